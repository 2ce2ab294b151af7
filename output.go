package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/minios-linux/objtrans/engine"
	"github.com/minios-linux/objtrans/i18n"
	"github.com/minios-linux/objtrans/metadata"
)

// failureMessage renders the errors of a failed result.
func failureMessage(r metadata.SaveResult) string {
	var parts []string
	for _, e := range r.Errors {
		parts = append(parts, e.StatusCode+": "+e.Message)
	}
	return strings.Join(parts, "; ")
}

// printFailures prints one line per failed field.
func printFailures(w io.Writer, failures []metadata.SaveResult) {
	if len(failures) == 0 {
		return
	}
	width := len("Field Name")
	for _, f := range failures {
		if len(f.FullName) > width {
			width = len(f.FullName)
		}
	}

	fmt.Fprintf(w, "\n%-*s  %s\n", width, i18n.T("Field Name"), i18n.T("Error Message"))
	fmt.Fprintln(w, strings.Repeat("─", width+40))
	for _, f := range failures {
		fmt.Fprintf(w, "%-*s  %s\n", width, f.FullName, failureMessage(f))
	}
}

// writeOutput is the JSON form of an import or deploy run. Result is a
// reconcile.Summary for import and a reconcile.CountSummary for deploy.
type writeOutput struct {
	*engine.WriteReport
	Result any `json:"result"`
	// Unchanged counts edits skipped by --incremental.
	Unchanged int `json:"unchanged,omitempty"`
}

// exportOutput is the JSON form of an export or retrieve run.
type exportOutput struct {
	*engine.ExportResult
	File   string `json:"file"`
	Sheets int    `json:"sheets"`
	Rows   int    `json:"rows"`
}

// resultFor returns the result shape of op.
func resultFor(op string, r *engine.WriteReport) any {
	if op == engine.OpDeploy {
		return r.Count()
	}
	return r.Summary()
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// reportWarnings logs what a write run skipped.
func reportWarnings(r *engine.WriteReport) {
	for _, name := range r.MissingSheets {
		logWarning(i18n.T("No sheet for object %s"), name)
	}
	if n := len(r.SkippedKeys); n > 0 {
		logWarning(i18n.N("Skipped %d row with an unreadable key", "Skipped %d rows with unreadable keys", n), n)
		if global.verbose {
			for _, k := range r.SkippedKeys {
				logWarning("  %q", k)
			}
		}
	}
}

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/minios-linux/objtrans/engine"
	"github.com/minios-linux/objtrans/i18n"
	"github.com/minios-linux/objtrans/lockfile"
	"github.com/minios-linux/objtrans/metadata"
	"github.com/minios-linux/objtrans/workbook"
)

// ---------------------------------------------------------------------------
// import / deploy (workbook → org)
// ---------------------------------------------------------------------------

type importFlags struct {
	objects     []string
	locales     []string
	file        string
	incremental bool
	dryRun      bool
}

func newImportCmd() *cobra.Command {
	var flags importFlags
	cmd := &cobra.Command{
		Use:   "import",
		Short: i18n.T("Write labels and descriptions from a workbook to the org"),
		Long: `Decode the workbook's sheets into field edits and update the org.
Empty cells leave the org value unchanged. Fields failing with
UNKNOWN_EXCEPTION are retried once. Picklist values are not written.`,
		Example: `  objtrans import -f i18n.xlsx
  objtrans import -o Account -l de --incremental`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd.Context(), engine.OpImport, flags)
		},
	}
	addImportFlags(cmd.Flags(), &flags)
	return cmd
}

func newDeployCmd() *cobra.Command {
	var flags importFlags
	cmd := &cobra.Command{
		Use:   "deploy",
		Short: i18n.T("Like import, but empty cells clear the org value"),
		Long: `Like import, but every label and description cell is sent: an empty
cell clears the org value. There is no retry pass.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd.Context(), engine.OpDeploy, flags)
		},
	}
	addImportFlags(cmd.Flags(), &flags)
	return cmd
}

func addImportFlags(fs *pflag.FlagSet, flags *importFlags) {
	fs.StringSliceVarP(&flags.objects, "objects", "o", nil, "Sheets to read (default: every sheet)")
	fs.StringSliceVarP(&flags.locales, "locales", "l", nil, "Locale columns to read (default: all org locales)")
	fs.StringVarP(&flags.file, "file", "f", "", "Workbook to read (default from config)")
	fs.BoolVar(&flags.incremental, "incremental", false, "Only send fields changed since the last run (objtrans.lock)")
	fs.BoolVar(&flags.dryRun, "dry-run", false, "Decode the workbook and list the edits without writing")
}

func runImport(ctx context.Context, op string, flags importFlags) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.finish()

	path := s.cfg.WorkbookPath()
	if flags.file != "" {
		path = flags.file
	}
	if !fileExists(path) {
		return fmt.Errorf(i18n.T("workbook not found: %s"), path)
	}
	book, err := workbook.Read(path)
	if err != nil {
		return err
	}

	var lock *lockfile.LockFile
	if flags.incremental || s.cfg.Lock {
		lock, err = lockfile.Load(".")
		if err != nil {
			return err
		}
	}

	var decoded, unchanged int
	opts := engine.ImportOptions{
		Objects: s.objectsOrDefault(flags.objects),
		Locales: s.localesOrDefault(flags.locales),
		Filter: func(edits []metadata.FieldEdit) []metadata.FieldEdit {
			decoded = len(edits)
			if lock != nil {
				edits = lock.FilterEdits(s.orgKey, edits)
				unchanged = decoded - len(edits)
			}
			if flags.dryRun {
				printEdits(edits)
				return nil
			}
			return edits
		},
	}

	var report *engine.WriteReport
	if op == engine.OpDeploy {
		report, err = s.engine.Deploy(ctx, book, opts)
	} else {
		report, err = s.engine.Import(ctx, book, opts)
	}
	s.finish()
	if err != nil {
		return err
	}
	reportWarnings(report)

	if unchanged > 0 {
		logInfo(i18n.N("%d field unchanged since the last run", "%d fields unchanged since the last run", unchanged), unchanged)
	}
	if flags.dryRun {
		logInfo(i18n.N("Dry run: %d field would be written", "Dry run: %d fields would be written", decoded-unchanged), decoded-unchanged)
		return nil
	}

	if err := s.saveSnapshot(); err != nil {
		return err
	}
	if lock != nil {
		if n := lock.Record(s.orgKey, report.Edits, report.Results); n > 0 {
			if err := lock.Save(); err != nil {
				logWarning(i18n.T("Could not save %s: %v"), lock.Path(), err)
			}
		}
	}

	count := report.Count()
	if global.jsonOutput {
		return printJSON(os.Stdout, writeOutput{WriteReport: report, Result: resultFor(op, report), Unchanged: unchanged})
	}

	if len(count.Failure) == 0 {
		logSuccess(i18n.T("%s complete: %d fields updated"), op, count.Success)
		return nil
	}
	logWarning(i18n.T("%s finished: %d fields updated, %d failed"), op, count.Success, len(count.Failure))
	printFailures(os.Stderr, count.Failure)
	return nil
}

// printEdits lists edits for --dry-run.
func printEdits(edits []metadata.FieldEdit) {
	for _, e := range edits {
		fmt.Fprintf(os.Stderr, "  %-40s label=%s description=%s\n", e.FullName, cellText(e.Label), cellText(e.Description))
	}
}

func cellText(v *string) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%q", *v)
}

// Package engine runs the four synchronization operations.
//
// Export and retrieve read the org and build the translation table; import
// and deploy decode a workbook and write field edits back. Stages run one
// after another; only the chunk calls inside a stage run concurrently.
package engine

import (
	"context"
	"errors"

	"github.com/minios-linux/objtrans/batch"
	"github.com/minios-linux/objtrans/locale"
	"github.com/minios-linux/objtrans/metadata"
	"github.com/minios-linux/objtrans/reader"
	"github.com/minios-linux/objtrans/reconcile"
	"github.com/minios-linux/objtrans/table"
	"github.com/minios-linux/objtrans/workbook"
)

// Operation names.
const (
	OpExport   = "export"
	OpRetrieve = "retrieve"
	OpImport   = "import"
	OpDeploy   = "deploy"
)

// StageLocales is the stage name of locale resolution.
const StageLocales = "locales"

// Engine binds the operations to a metadata service.
type Engine struct {
	Service    metadata.Service
	APIVersion string
	Batch      batch.Options
}

func (e *Engine) apiVersion() string {
	if e.APIVersion == "" {
		return metadata.DefaultAPIVersion
	}
	return e.APIVersion
}

func (e *Engine) reader() *reader.Reader {
	return &reader.Reader{Service: e.Service, Batch: e.Batch}
}

func (e *Engine) writer() *reconcile.Writer {
	return &reconcile.Writer{Service: e.Service, Batch: e.Batch}
}

// Locales returns the org's translation locales restricted to requested.
func (e *Engine) Locales(ctx context.Context, requested []string) ([]string, error) {
	locales, err := locale.Resolve(ctx, e.Service, e.apiVersion(), requested)
	if err != nil {
		return nil, stageErr("locales", StageLocales, err)
	}
	return locales, nil
}

// Objects lists the names of the org's objects, in org order.
func (e *Engine) Objects(ctx context.Context) ([]string, error) {
	res, err := e.Service.List(ctx, []metadata.ListQuery{{Type: metadata.TypeCustomObject}}, e.apiVersion())
	if err != nil {
		return nil, stageErr("objects", "list", err)
	}
	var out []string
	for _, p := range res.List() {
		out = append(out, p.FullName)
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Export / retrieve
// ---------------------------------------------------------------------------

// ExportOptions selects what to read.
type ExportOptions struct {
	// Objects to export; required.
	Objects []string
	// Locales to include; empty means every org locale.
	Locales []string
}

// ExportResult is the translation table read from the org.
type ExportResult struct {
	Locales []string      `json:"locales"`
	Sheets  []table.Sheet `json:"-"`
	// Missing lists requested objects the org does not have.
	Missing []string `json:"missing,omitempty"`
}

// Export builds the table from the object definitions alone.
func (e *Engine) Export(ctx context.Context, opts ExportOptions) (*ExportResult, error) {
	return e.export(ctx, OpExport, opts, false)
}

// Retrieve builds the table from full field records, read in batches.
// Picklist values still come from the object definitions.
func (e *Engine) Retrieve(ctx context.Context, opts ExportOptions) (*ExportResult, error) {
	return e.export(ctx, OpRetrieve, opts, true)
}

func (e *Engine) export(ctx context.Context, op string, opts ExportOptions, detailed bool) (*ExportResult, error) {
	locales, err := locale.Resolve(ctx, e.Service, e.apiVersion(), opts.Locales)
	if err != nil {
		return nil, stageErr(op, StageLocales, err)
	}

	r := e.reader()
	all, err := r.ObjectDefinitions(ctx, opts.Objects)
	if err != nil {
		return nil, stageErr(op, reader.StageObjects, err)
	}
	var (
		defs    []metadata.ObjectDefinition
		names   []string
		missing []string
	)
	for i, d := range all {
		if d.FullName == "" {
			if i < len(opts.Objects) {
				missing = append(missing, opts.Objects[i])
			}
			continue
		}
		defs = append(defs, d)
		names = append(names, d.FullName)
	}
	if len(defs) == 0 {
		return nil, ErrNoOrgResults
	}

	objects := table.FromDefinitions(defs)
	if detailed {
		objects, err = e.detailFields(ctx, r, defs)
		if err != nil {
			return nil, stageErr(op, reader.StageFields, err)
		}
	}

	translations, err := r.ObjectTranslations(ctx, names, locales)
	if err != nil {
		return nil, stageErr(op, reader.StageTranslations, err)
	}

	return &ExportResult{
		Locales: locales,
		Sheets:  table.Encode(objects, translations, locales),
		Missing: missing,
	}, nil
}

// detailFields replaces the custom fields of defs with their full records.
// A field the org does not return keeps its definition record.
func (e *Engine) detailFields(ctx context.Context, r *reader.Reader, defs []metadata.ObjectDefinition) ([]table.ObjectFields, error) {
	var names []string
	for _, n := range reader.FieldNames(defs) {
		if metadata.IsCustomField(n) {
			names = append(names, n)
		}
	}
	details, err := r.FieldDetails(ctx, names)
	if err != nil {
		return nil, err
	}
	byName := make(map[string]metadata.FieldRecord, len(details))
	for _, d := range details {
		if d.FullName != "" {
			byName[d.FullName] = d
		}
	}

	out := make([]table.ObjectFields, 0, len(defs))
	for _, d := range defs {
		of := table.ObjectFields{Object: d.FullName}
		for _, f := range d.Fields {
			rec, ok := byName[metadata.QualifiedName(d.FullName, f.FullName)]
			if !ok {
				of.Fields = append(of.Fields, f)
				continue
			}
			rec = rec.Clone()
			rec.FullName = f.FullName
			rec.ValueSet = f.ValueSet
			of.Fields = append(of.Fields, rec)
		}
		out = append(out, of)
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Import / deploy
// ---------------------------------------------------------------------------

// ImportOptions selects what to write.
type ImportOptions struct {
	// Objects are the sheets to read; empty means every sheet.
	Objects []string
	// Locales restrict the locale columns; empty means every org locale.
	Locales []string
	// Filter, when set, may drop edits before they are written.
	Filter func([]metadata.FieldEdit) []metadata.FieldEdit
}

// WriteReport is the outcome of import or deploy.
type WriteReport struct {
	Locales []string `json:"locales"`
	// Edits are the edits sent to the org, in result order.
	Edits   []metadata.FieldEdit  `json:"-"`
	Results []metadata.SaveResult `json:"-"`
	// SkippedKeys are key cells that could not be parsed.
	SkippedKeys []string `json:"skippedKeys,omitempty"`
	// MissingSheets are requested objects with no sheet in the workbook.
	MissingSheets []string `json:"missingSheets,omitempty"`
}

// Summary splits the results into successes and failures.
func (r *WriteReport) Summary() reconcile.Summary { return reconcile.Summarize(r.Results) }

// Count counts successes and collects failures.
func (r *WriteReport) Count() reconcile.CountSummary { return reconcile.Count(r.Results) }

// Import writes the workbook's labels and descriptions. Empty cells leave
// the org value alone; fields failing with UNKNOWN_EXCEPTION are retried once.
func (e *Engine) Import(ctx context.Context, book *workbook.Book, opts ImportOptions) (*WriteReport, error) {
	return e.write(ctx, OpImport, book, opts, table.DecodeOptions{SkipEmpty: true}, true)
}

// Deploy writes the workbook's labels and descriptions, clearing org values
// for empty cells. There is no retry pass.
func (e *Engine) Deploy(ctx context.Context, book *workbook.Book, opts ImportOptions) (*WriteReport, error) {
	return e.write(ctx, OpDeploy, book, opts, table.DecodeOptions{}, false)
}

func (e *Engine) write(ctx context.Context, op string, book *workbook.Book, opts ImportOptions, dec table.DecodeOptions, retry bool) (*WriteReport, error) {
	locales, err := locale.Resolve(ctx, e.Service, e.apiVersion(), opts.Locales)
	if err != nil {
		return nil, stageErr(op, StageLocales, err)
	}

	report := &WriteReport{Locales: locales}
	objects := opts.Objects
	if len(objects) == 0 {
		objects = book.SheetNames
	}

	var rows []table.Row
	found := 0
	for _, obj := range objects {
		records, ok := book.Sheets[obj]
		if !ok {
			report.MissingSheets = append(report.MissingSheets, obj)
			continue
		}
		found++
		r, skipped := table.ParseRows(records, locales)
		rows = append(rows, r...)
		report.SkippedKeys = append(report.SkippedKeys, skipped...)
	}
	if found == 0 {
		return nil, ErrNoSheets
	}

	edits := table.Decode(rows, dec)
	if opts.Filter != nil {
		edits = opts.Filter(edits)
	}
	report.Edits = edits

	w := e.writer()
	var results []metadata.SaveResult
	if retry {
		results, err = w.WriteWithRetry(ctx, edits)
	} else {
		results, err = w.Write(ctx, edits)
	}
	if err != nil {
		var pe *reconcile.PassError
		if errors.As(err, &pe) {
			return nil, stageErr(op, pe.Stage, pe.Err)
		}
		return nil, stageErr(op, reconcile.StageWrite, err)
	}
	report.Results = results
	return report, nil
}

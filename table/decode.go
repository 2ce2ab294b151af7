package table

import (
	"github.com/minios-linux/objtrans/key"
	"github.com/minios-linux/objtrans/metadata"
)

// ParseRows converts workbook records into rows. Locale columns not in
// locales are ignored; absent cells become nil. Records without a valid key
// are dropped and their key cells returned in skipped.
func ParseRows(records []map[string]string, locales []string) (rows []Row, skipped []string) {
	for _, rec := range records {
		k, err := key.Parse(rec[ColumnKey])
		if err != nil {
			skipped = append(skipped, rec[ColumnKey])
			continue
		}
		row := Row{
			Key:         k,
			Label:       cell(rec, ColumnLabel),
			Description: cell(rec, ColumnDescription),
			Locales:     make(map[string]*string, len(locales)),
		}
		for _, l := range locales {
			row.Locales[l] = cell(rec, l)
		}
		rows = append(rows, row)
	}
	return rows, skipped
}

func cell(rec map[string]string, column string) *string {
	v, ok := rec[column]
	if !ok {
		return nil
	}
	return &v
}

// DecodeOptions controls how cells map to edits.
type DecodeOptions struct {
	// SkipEmpty leaves empty and absent cells out of the edit instead of
	// clearing the org value.
	SkipEmpty bool
}

// Decode turns CustomField rows into one edit per field. Picklist value
// rows are ignored. Rows for the same field merge; later rows win, and a
// field's first row fixes its position in the result.
func Decode(rows []Row, opts DecodeOptions) []metadata.FieldEdit {
	var order []string
	edits := make(map[string]*metadata.FieldEdit)

	for _, r := range rows {
		if !r.Key.IsField() {
			continue
		}
		name := r.Key.FieldFullName()
		e, ok := edits[name]
		if !ok {
			e = &metadata.FieldEdit{FullName: name}
			edits[name] = e
			order = append(order, name)
		}

		switch r.Key.Sub {
		case key.SubFieldLabel:
			if v, ok := carried(r.Label, opts); ok {
				e.Label = v
			}
			if v, ok := carried(r.Description, opts); ok {
				e.Description = v
			}
		case key.SubRelatedListLabel:
			if v, ok := carried(r.Label, opts); ok {
				e.RelationshipLabel = v
			}
		}
	}

	out := make([]metadata.FieldEdit, 0, len(order))
	for _, name := range order {
		out = append(out, *edits[name])
	}
	return out
}

func carried(v *string, opts DecodeOptions) (*string, bool) {
	if v == nil || *v == "" {
		if opts.SkipEmpty {
			return nil, false
		}
		empty := ""
		return &empty, true
	}
	s := *v
	return &s, true
}

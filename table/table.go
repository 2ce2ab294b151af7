// Package table converts between org metadata and the row-oriented
// translation table stored in the workbook.
//
// Every sheet holds one object. Its header is
//
//	key | label | <locale>... | description
//
// and every row is one (field, attribute) pair: the field label, the
// related list label of a lookup, or one picklist value. A cell with no
// value is nil and is left empty in the workbook.
package table

import (
	"github.com/minios-linux/objtrans/key"
	"github.com/minios-linux/objtrans/metadata"
)

// Column names of the fixed workbook columns.
const (
	ColumnKey         = "key"
	ColumnLabel       = "label"
	ColumnDescription = "description"
)

// Row is one translation table row.
type Row struct {
	Key         key.Key
	Label       *string
	Description *string
	// Locales holds one cell per in-scope locale; nil means no translation.
	Locales map[string]*string
}

// Sheet is the table of one object.
type Sheet struct {
	Name   string
	Header []string
	Rows   []Row
}

// Header returns the column order for the given locales.
func Header(locales []string) []string {
	h := make([]string, 0, len(locales)+3)
	h = append(h, ColumnKey, ColumnLabel)
	h = append(h, locales...)
	return append(h, ColumnDescription)
}

// Records returns the sheet's rows as workbook records keyed by column
// name. Nil cells are omitted.
func (s Sheet) Records() []map[string]string {
	out := make([]map[string]string, 0, len(s.Rows))
	for _, r := range s.Rows {
		rec := map[string]string{ColumnKey: r.Key.String()}
		if r.Label != nil {
			rec[ColumnLabel] = *r.Label
		}
		if r.Description != nil {
			rec[ColumnDescription] = *r.Description
		}
		for l, v := range r.Locales {
			if v != nil {
				rec[l] = *v
			}
		}
		out = append(out, rec)
	}
	return out
}

// ObjectFields is an object with the field records to encode. Field names
// are relative to the object ("Rating__c").
type ObjectFields struct {
	Object string
	Fields []metadata.FieldRecord
}

// FromDefinitions takes the fields straight from the object definitions.
func FromDefinitions(defs []metadata.ObjectDefinition) []ObjectFields {
	out := make([]ObjectFields, 0, len(defs))
	for _, d := range defs {
		out = append(out, ObjectFields{Object: d.FullName, Fields: d.Fields})
	}
	return out
}

// translationIndex maps object → locale → translation record.
type translationIndex map[string]map[string]metadata.ObjectTranslation

func indexTranslations(translations []metadata.ObjectTranslation) translationIndex {
	idx := make(translationIndex)
	for _, tr := range translations {
		obj, loc := tr.Split()
		if idx[obj] == nil {
			idx[obj] = make(map[string]metadata.ObjectTranslation)
		}
		idx[obj][loc] = tr
	}
	return idx
}

// field returns the translation of one field in one locale.
func (idx translationIndex) field(object, locale, field string) (metadata.FieldTranslation, bool) {
	tr, ok := idx[object][locale]
	if !ok {
		return metadata.FieldTranslation{}, false
	}
	return tr.Field(field)
}

// Encode builds one sheet per object. Only custom fields are encoded.
// Field label and related list label rows come first, picklist value rows
// after them.
func Encode(objects []ObjectFields, translations []metadata.ObjectTranslation, locales []string) []Sheet {
	idx := indexTranslations(translations)
	sheets := make([]Sheet, 0, len(objects))

	for _, obj := range objects {
		var fieldRows, picklistRows []Row
		for _, f := range obj.Fields {
			if !metadata.IsCustomField(f.FullName) {
				continue
			}
			base := metadata.FieldBase(f.FullName)

			fieldRows = append(fieldRows, Row{
				Key:         key.FieldKey(obj.Object, base, key.SubFieldLabel),
				Label:       optional(f.Label),
				Description: optional(f.Description),
				Locales: perLocale(locales, func(l string) *string {
					tr, ok := idx.field(obj.Object, l, f.FullName)
					if !ok {
						return nil
					}
					return optional(tr.Label)
				}),
			})

			switch {
			case f.HasPicklist():
				for _, v := range f.ValueSet.Values {
					picklistRows = append(picklistRows, Row{
						Key:   key.PicklistKey(obj.Object, base, v.Label),
						Label: optional(v.Label),
						Locales: perLocale(locales, func(l string) *string {
							tr, ok := idx.field(obj.Object, l, f.FullName)
							if !ok {
								return nil
							}
							for _, pv := range tr.PicklistValues {
								if pv.MasterLabel == v.Label {
									return optional(pv.Translation)
								}
							}
							return nil
						}),
					})
				}
			case f.Type == metadata.TypeLookup:
				fieldRows = append(fieldRows, Row{
					Key:   key.FieldKey(obj.Object, base, key.SubRelatedListLabel),
					Label: optional(f.RelationshipLabel),
					Locales: perLocale(locales, func(l string) *string {
						tr, ok := idx.field(obj.Object, l, f.FullName)
						if !ok {
							return nil
						}
						return optional(tr.RelationshipLabel)
					}),
				})
			}
		}

		sheets = append(sheets, Sheet{
			Name:   obj.Object,
			Header: Header(locales),
			Rows:   append(fieldRows, picklistRows...),
		})
	}
	return sheets
}

func perLocale(locales []string, cell func(string) *string) map[string]*string {
	m := make(map[string]*string, len(locales))
	for _, l := range locales {
		m[l] = cell(l)
	}
	return m
}

// optional maps the empty string to a nil cell.
func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

package table

import (
	"reflect"
	"testing"

	"github.com/minios-linux/objtrans/key"
	"github.com/minios-linux/objtrans/metadata"
)

func ptr(s string) *string { return &s }

func deref(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

func accountFields() []ObjectFields {
	return []ObjectFields{{
		Object: "Account",
		Fields: []metadata.FieldRecord{
			{FullName: "Name", Label: "Account Name"},
			{
				FullName:    "Rating__c",
				Label:       "Rating",
				Description: "Customer rating",
				Type:        metadata.TypePicklist,
				ValueSet: &metadata.ValueSet{Values: []metadata.PicklistValue{
					{FullName: "Hot", Label: "Hot"},
					{FullName: "Cold", Label: "Cold"},
				}},
			},
			{FullName: "Parent__c", Label: "Parent", Type: metadata.TypeLookup, RelationshipLabel: "Accounts"},
		},
	}}
}

func TestHeader(t *testing.T) {
	got := Header([]string{"de", "fr"})
	want := []string{"key", "label", "de", "fr", "description"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Header = %v, want %v", got, want)
	}
}

func TestEncode(t *testing.T) {
	translations := []metadata.ObjectTranslation{{
		FullName: "Account-de",
		Fields: []metadata.FieldTranslation{
			{
				Name:           "Rating__c",
				Label:          "Bewertung",
				PicklistValues: []metadata.PicklistTranslation{{MasterLabel: "Hot", Translation: "Heiß"}},
			},
			{Name: "Parent__c", Label: "Übergeordnet", RelationshipLabel: "Konten"},
		},
	}}

	sheets := Encode(accountFields(), translations, []string{"de", "fr"})
	if len(sheets) != 1 || sheets[0].Name != "Account" {
		t.Fatalf("sheets = %#v", sheets)
	}
	rows := sheets[0].Rows

	var keys []string
	for _, r := range rows {
		keys = append(keys, r.Key.String())
	}
	wantKeys := []string{
		"CustomField.Account.Rating.FieldLabel",
		"CustomField.Account.Parent.FieldLabel",
		"CustomField.Account.Parent.RelatedListLabel",
		"PicklistValue.Account.Rating.Hot",
		"PicklistValue.Account.Rating.Cold",
	}
	if !reflect.DeepEqual(keys, wantKeys) {
		t.Fatalf("keys = %v\nwant %v", keys, wantKeys)
	}

	cases := []struct {
		row         int
		label, desc any
		de, fr      any
	}{
		{row: 0, label: "Rating", desc: "Customer rating", de: "Bewertung", fr: nil},
		{row: 1, label: "Parent", desc: nil, de: "Übergeordnet", fr: nil},
		{row: 2, label: "Accounts", desc: nil, de: "Konten", fr: nil},
		{row: 3, label: "Hot", desc: nil, de: "Heiß", fr: nil},
		{row: 4, label: "Cold", desc: nil, de: nil, fr: nil},
	}
	for _, tc := range cases {
		r := rows[tc.row]
		if deref(r.Label) != tc.label || deref(r.Description) != tc.desc {
			t.Fatalf("row %d label/description = %v/%v", tc.row, deref(r.Label), deref(r.Description))
		}
		if deref(r.Locales["de"]) != tc.de || deref(r.Locales["fr"]) != tc.fr {
			t.Fatalf("row %d locales = %v/%v", tc.row, deref(r.Locales["de"]), deref(r.Locales["fr"]))
		}
		if _, ok := r.Locales["fr"]; !ok {
			t.Fatalf("row %d has no fr cell", tc.row)
		}
	}
}

func TestEncodeLookupOnly(t *testing.T) {
	objs := []ObjectFields{{
		Object: "Contact",
		Fields: []metadata.FieldRecord{{FullName: "Boss__c", Label: "Boss", Type: metadata.TypeLookup, RelationshipLabel: "Accounts"}},
	}}
	rows := Encode(objs, nil, []string{"de"})[0].Rows
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	r := rows[1]
	if r.Key != key.FieldKey("Contact", "Boss", key.SubRelatedListLabel) || deref(r.Label) != "Accounts" {
		t.Fatalf("relationship row = %#v", r)
	}
	for _, r := range rows {
		if r.Key.Kind == key.KindPicklistValue {
			t.Fatalf("unexpected picklist row %v", r.Key)
		}
	}
}

func TestEncodeNoLocales(t *testing.T) {
	sheets := Encode(accountFields(), nil, nil)
	if got := sheets[0].Header; !reflect.DeepEqual(got, []string{"key", "label", "description"}) {
		t.Fatalf("header = %v", got)
	}
}

func TestRecords(t *testing.T) {
	s := Sheet{Rows: []Row{{
		Key:     key.FieldKey("Account", "Rating", key.SubFieldLabel),
		Label:   ptr("Rating"),
		Locales: map[string]*string{"de": ptr("Bewertung"), "fr": nil},
	}}}
	got := s.Records()
	want := []map[string]string{{"key": "CustomField.Account.Rating.FieldLabel", "label": "Rating", "de": "Bewertung"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Records = %v, want %v", got, want)
	}
}

func TestParseRows(t *testing.T) {
	records := []map[string]string{
		{"key": "CustomField.Account.Rating.FieldLabel", "label": "Rating", "de": "Bewertung", "it": "Valutazione"},
		{"key": "garbage"},
		{"label": "no key"},
	}
	rows, skipped := ParseRows(records, []string{"de", "fr"})
	if len(rows) != 1 || len(skipped) != 2 {
		t.Fatalf("rows = %d, skipped = %v", len(rows), skipped)
	}
	r := rows[0]
	if deref(r.Locales["de"]) != "Bewertung" || r.Locales["fr"] != nil {
		t.Fatalf("locales = %v", r.Locales)
	}
	if _, ok := r.Locales["it"]; ok {
		t.Fatal("out-of-scope locale column kept")
	}
	if r.Description != nil {
		t.Fatalf("description = %v", deref(r.Description))
	}
}

func TestDecodeFieldLabel(t *testing.T) {
	rows := []Row{{
		Key:         key.FieldKey("Account", "Rating", key.SubFieldLabel),
		Label:       ptr("Rating"),
		Description: ptr("desc"),
	}}
	got := Decode(rows, DecodeOptions{SkipEmpty: true})
	want := []metadata.FieldEdit{{FullName: "Account.Rating__c", Label: ptr("Rating"), Description: ptr("desc")}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Decode = %#v, want %#v", got, want)
	}
}

func TestDecodeMergesRowsOfOneField(t *testing.T) {
	rows := []Row{
		{Key: key.FieldKey("Account", "Parent", key.SubFieldLabel), Label: ptr("Parent")},
		{Key: key.FieldKey("Account", "Other", key.SubFieldLabel), Label: ptr("Other")},
		{Key: key.PicklistKey("Account", "Parent", "X"), Label: ptr("X")},
		{Key: key.FieldKey("Account", "Parent", key.SubRelatedListLabel), Label: ptr("Accounts")},
		{Key: key.FieldKey("Account", "Parent", key.SubFieldLabel), Label: ptr("Parent 2")},
	}
	got := Decode(rows, DecodeOptions{SkipEmpty: true})
	if len(got) != 2 {
		t.Fatalf("edits = %#v", got)
	}
	if got[0].FullName != "Account.Parent__c" || got[1].FullName != "Account.Other__c" {
		t.Fatalf("order = %s, %s", got[0].FullName, got[1].FullName)
	}
	if deref(got[0].Label) != "Parent 2" || deref(got[0].RelationshipLabel) != "Accounts" || got[0].Description != nil {
		t.Fatalf("merged edit = %#v", got[0])
	}
}

func TestDecodeEmptyCells(t *testing.T) {
	rows := []Row{{Key: key.FieldKey("Account", "Rating", key.SubFieldLabel), Label: ptr("")}}

	t.Run("skip empty", func(t *testing.T) {
		got := Decode(rows, DecodeOptions{SkipEmpty: true})
		if got[0].Label != nil || got[0].Description != nil {
			t.Fatalf("edit = %#v", got[0])
		}
	})

	t.Run("carry empty", func(t *testing.T) {
		got := Decode(rows, DecodeOptions{})
		if deref(got[0].Label) != "" || deref(got[0].Description) != "" {
			t.Fatalf("edit = %#v", got[0])
		}
	})
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	sheets := Encode(accountFields(), nil, []string{"de"})
	rows, skipped := ParseRows(sheets[0].Records(), []string{"de"})
	if len(skipped) != 0 {
		t.Fatalf("skipped = %v", skipped)
	}
	edits := Decode(rows, DecodeOptions{SkipEmpty: true})
	if len(edits) != 2 {
		t.Fatalf("edits = %#v", edits)
	}
	if deref(edits[0].Label) != "Rating" || deref(edits[0].Description) != "Customer rating" {
		t.Fatalf("rating edit = %#v", edits[0])
	}
	if deref(edits[1].RelationshipLabel) != "Accounts" {
		t.Fatalf("parent edit = %#v", edits[1])
	}
}

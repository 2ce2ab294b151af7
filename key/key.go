// Package key identifies translation table rows.
//
// A row is identified by its kind, the object, the field base name (the
// field API name without the custom suffix) and a sub-kind: FieldLabel or
// RelatedListLabel for field rows, the value label for picklist rows. The
// dotted string form only appears in the workbook's key column:
//
//	CustomField.Account.Rating.FieldLabel
//	CustomField.Account.Parent.RelatedListLabel
//	PicklistValue.Account.Rating.Hot
package key

import (
	"fmt"
	"strings"

	"github.com/minios-linux/objtrans/metadata"
)

// Kind is the first segment of a key.
type Kind string

const (
	KindCustomField   Kind = "CustomField"
	KindPicklistValue Kind = "PicklistValue"
)

// Sub-kinds of CustomField rows.
const (
	SubFieldLabel       = "FieldLabel"
	SubRelatedListLabel = "RelatedListLabel"
)

// Key is a structured row identifier.
type Key struct {
	Kind   Kind
	Object string
	Field  string // base name, without the custom suffix
	Sub    string // FieldLabel, RelatedListLabel or a picklist value label
}

// FieldKey builds the key of a field row.
func FieldKey(object, fieldBase, sub string) Key {
	return Key{Kind: KindCustomField, Object: object, Field: fieldBase, Sub: sub}
}

// PicklistKey builds the key of a picklist value row.
func PicklistKey(object, fieldBase, valueLabel string) Key {
	return Key{Kind: KindPicklistValue, Object: object, Field: fieldBase, Sub: valueLabel}
}

// String returns the workbook form of the key.
func (k Key) String() string {
	return string(k.Kind) + "." + k.Object + "." + k.Field + "." + k.Sub
}

// FieldFullName returns the qualified field name "<Object>.<Field>__c".
func (k Key) FieldFullName() string {
	return metadata.QualifiedName(k.Object, k.Field+metadata.CustomSuffix)
}

// IsField reports whether the key names a CustomField row.
func (k Key) IsField() bool { return k.Kind == KindCustomField }

// Parse parses the workbook form of a key. Object and field API names
// never contain dots, so everything after the third dot belongs to the
// sub-kind; picklist value labels may contain dots.
func Parse(s string) (Key, error) {
	parts := strings.SplitN(s, ".", 4)
	if len(parts) != 4 {
		return Key{}, fmt.Errorf("malformed key %q: want <kind>.<object>.<field>.<sub>", s)
	}
	k := Key{Kind: Kind(parts[0]), Object: parts[1], Field: parts[2], Sub: parts[3]}
	if k.Object == "" || k.Field == "" || k.Sub == "" {
		return Key{}, fmt.Errorf("malformed key %q: empty segment", s)
	}
	switch k.Kind {
	case KindCustomField, KindPicklistValue:
	default:
		return Key{}, fmt.Errorf("malformed key %q: unknown kind %q", s, parts[0])
	}
	return k, nil
}

// Package metadata holds the data model shared by the org readers and
// writers and the contract of the remote metadata service.
package metadata

import (
	"context"
	"fmt"
	"strings"

	"github.com/minios-linux/objtrans/batch"
)

// DefaultAPIVersion is used when neither flags nor config name one.
const DefaultAPIVersion = "46.0"

// CustomSuffix marks custom fields.
const CustomSuffix = "__c"

// Field types the translation table cares about.
const (
	TypePicklist            = "Picklist"
	TypeMultiselectPicklist = "MultiselectPicklist"
	TypeLookup              = "Lookup"
)

// Metadata type names.
const (
	TypeCustomObject            = "CustomObject"
	TypeCustomField             = "CustomField"
	TypeCustomObjectTranslation = "CustomObjectTranslation"
	TypeTranslations            = "Translations"
)

// StatusUnknownException is the transient per-field status that import
// retries once.
const StatusUnknownException = "UNKNOWN_EXCEPTION"

// StatusNotFound is reported for edits naming fields the org does not have.
const StatusNotFound = "NOT_FOUND"

// IsCustomField reports whether name ends with the custom suffix.
func IsCustomField(name string) bool {
	return strings.HasSuffix(name, CustomSuffix)
}

// FieldBase strips the custom suffix: "Rating__c" → "Rating".
func FieldBase(name string) string {
	return strings.TrimSuffix(name, CustomSuffix)
}

// QualifiedName joins an object and a field: "Account.Rating__c".
func QualifiedName(object, field string) string {
	return object + "." + field
}

// SplitQualified splits "Account.Rating__c" at the first dot.
func SplitQualified(fullName string) (object, field string, ok bool) {
	return strings.Cut(fullName, ".")
}

// ---------------------------------------------------------------------------
// Records
// ---------------------------------------------------------------------------

// PicklistValue is one value of a picklist value set, in org order.
type PicklistValue struct {
	FullName string `yaml:"fullName" json:"fullName"`
	Label    string `yaml:"label,omitempty" json:"label,omitempty"`
}

// ValueSet is the value set of a picklist field.
type ValueSet struct {
	Values []PicklistValue `yaml:"values" json:"values"`
}

// Property is an element of a field record the model does not interpret.
// Raw holds the element's inner XML so it survives a read → update trip.
type Property struct {
	Name string `yaml:"name" json:"name"`
	Raw  string `yaml:"raw" json:"raw"`
}

// FieldRecord is a field definition. Inside an ObjectDefinition FullName is
// relative to the object ("Rating__c"); read through ReadCustomFields it is
// qualified ("Account.Rating__c").
type FieldRecord struct {
	FullName          string     `yaml:"fullName" json:"fullName"`
	Label             string     `yaml:"label,omitempty" json:"label,omitempty"`
	Description       string     `yaml:"description,omitempty" json:"description,omitempty"`
	Type              string     `yaml:"type,omitempty" json:"type,omitempty"`
	RelationshipLabel string     `yaml:"relationshipLabel,omitempty" json:"relationshipLabel,omitempty"`
	InlineHelpText    string     `yaml:"inlineHelpText,omitempty" json:"inlineHelpText,omitempty"`
	ValueSet          *ValueSet  `yaml:"valueSet,omitempty" json:"valueSet,omitempty"`
	Extra             []Property `yaml:"extra,omitempty" json:"extra,omitempty"`
}

// Clone returns a deep copy of the record.
func (f FieldRecord) Clone() FieldRecord {
	out := f
	if f.ValueSet != nil {
		vs := ValueSet{Values: append([]PicklistValue(nil), f.ValueSet.Values...)}
		out.ValueSet = &vs
	}
	if f.Extra != nil {
		out.Extra = append([]Property(nil), f.Extra...)
	}
	return out
}

// HasPicklist reports whether the field is a picklist with values.
func (f FieldRecord) HasPicklist() bool {
	if f.Type != TypePicklist && f.Type != TypeMultiselectPicklist {
		return false
	}
	return f.ValueSet != nil && len(f.ValueSet.Values) > 0
}

// ObjectDefinition is a custom object with its fields.
type ObjectDefinition struct {
	FullName string        `yaml:"fullName" json:"fullName"`
	Fields   []FieldRecord `yaml:"fields,omitempty" json:"fields,omitempty"`
}

// PicklistTranslation maps a picklist value to its translated label.
type PicklistTranslation struct {
	MasterLabel string `yaml:"masterLabel" json:"masterLabel"`
	Translation string `yaml:"translation" json:"translation"`
}

// FieldTranslation holds the translated strings of one field.
type FieldTranslation struct {
	Name              string                `yaml:"name" json:"name"`
	Label             string                `yaml:"label,omitempty" json:"label,omitempty"`
	RelationshipLabel string                `yaml:"relationshipLabel,omitempty" json:"relationshipLabel,omitempty"`
	PicklistValues    []PicklistTranslation `yaml:"picklistValues,omitempty" json:"picklistValues,omitempty"`
}

// ObjectTranslation is the translation record of one object in one locale.
// FullName is "<Object>-<Locale>".
type ObjectTranslation struct {
	FullName string             `yaml:"fullName" json:"fullName"`
	Fields   []FieldTranslation `yaml:"fields,omitempty" json:"fields,omitempty"`
}

// Split returns the object and locale encoded in FullName.
func (t ObjectTranslation) Split() (object, locale string) {
	object, locale, _ = strings.Cut(t.FullName, "-")
	return object, locale
}

// TranslationName builds the "<Object>-<Locale>" name of a translation record.
func TranslationName(object, locale string) string {
	return object + "-" + locale
}

// Field returns the translation of the named field, if present.
func (t ObjectTranslation) Field(name string) (FieldTranslation, bool) {
	for _, f := range t.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldTranslation{}, false
}

// FieldEdit is a partial update of one field. A nil property is not
// carried; a non-nil one overwrites the org value (an empty string clears).
type FieldEdit struct {
	FullName          string  `json:"fullName"`
	Label             *string `json:"label,omitempty"`
	Description       *string `json:"description,omitempty"`
	RelationshipLabel *string `json:"relationshipLabel,omitempty"`
}

// MergeField returns base with every carried property of edit applied.
// base is not modified.
func MergeField(base FieldRecord, edit FieldEdit) FieldRecord {
	out := base.Clone()
	if edit.Label != nil {
		out.Label = *edit.Label
	}
	if edit.Description != nil {
		out.Description = *edit.Description
	}
	if edit.RelationshipLabel != nil {
		out.RelationshipLabel = *edit.RelationshipLabel
	}
	return out
}

// FileProperties is one entry of a List response.
type FileProperties struct {
	FullName string `yaml:"fullName" json:"fullName"`
	Type     string `yaml:"type,omitempty" json:"type,omitempty"`
	FileName string `yaml:"fileName,omitempty" json:"fileName,omitempty"`
}

// ListQuery selects the metadata components to list.
type ListQuery struct {
	Type   string
	Folder string
}

// ---------------------------------------------------------------------------
// Results & errors
// ---------------------------------------------------------------------------

// ServiceError is an error reported by the remote service, either for the
// whole call (a fault) or for one record of an update.
type ServiceError struct {
	StatusCode string   `yaml:"statusCode" json:"statusCode"`
	Message    string   `yaml:"message" json:"message"`
	Fields     []string `yaml:"fields,omitempty" json:"fields,omitempty"`
}

func (e *ServiceError) Error() string {
	if e.StatusCode == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.StatusCode, e.Message)
}

// SaveResult is the outcome of updating one field.
type SaveResult struct {
	FullName string         `yaml:"fullName" json:"fullName"`
	Success  bool           `yaml:"success" json:"success"`
	Errors   []ServiceError `yaml:"errors,omitempty" json:"errors,omitempty"`
}

// HasStatus reports whether any of the result's errors carries code.
func (r SaveResult) HasStatus(code string) bool {
	for _, e := range r.Errors {
		if e.StatusCode == code {
			return true
		}
	}
	return false
}

// Service is the remote metadata service. Every call takes at most
// batch.Size names and answers with a bare value for one name and a list
// otherwise; names the org does not know come back as records with an
// empty FullName.
type Service interface {
	List(ctx context.Context, queries []ListQuery, apiVersion string) (batch.Result[FileProperties], error)
	ReadCustomObjects(ctx context.Context, names []string) (batch.Result[ObjectDefinition], error)
	ReadCustomFields(ctx context.Context, names []string) (batch.Result[FieldRecord], error)
	ReadObjectTranslations(ctx context.Context, names []string) (batch.Result[ObjectTranslation], error)
	UpdateCustomFields(ctx context.Context, records []FieldRecord) (batch.Result[SaveResult], error)
}

// Package memorg is an in-memory metadata.Service backed by a snapshot of
// an org. It answers with the same shapes as the remote API, a bare value
// for one-name requests and empty records for unknown names, and it
// rejects calls with more than batch.Size names.
//
// The snapshot round-trips through YAML so that commands can run against a
// file instead of a live org.
package memorg

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/minios-linux/objtrans/batch"
	"github.com/minios-linux/objtrans/metadata"
)

// Snapshot is the persisted state of an org.
type Snapshot struct {
	// Locales are the org's Translations, in listing order.
	Locales []string `yaml:"locales"`
	// Objects are the custom object definitions.
	Objects []metadata.ObjectDefinition `yaml:"objects"`
	// Translations are the per-locale object translation records.
	Translations []metadata.ObjectTranslation `yaml:"translations,omitempty"`
}

// Op names a Service method, for failure injection and call inspection.
type Op string

const (
	OpList                   Op = "List"
	OpReadCustomObjects      Op = "ReadCustomObjects"
	OpReadCustomFields       Op = "ReadCustomFields"
	OpReadObjectTranslations Op = "ReadObjectTranslations"
	OpUpdateCustomFields     Op = "UpdateCustomFields"
)

type fieldFailure struct {
	remaining int
	err       metadata.ServiceError
}

// Org is an in-memory org. It is safe for concurrent use.
type Org struct {
	mu        sync.Mutex
	snap      Snapshot
	callErrs  map[Op]error
	fieldErrs map[string]*fieldFailure
	calls     map[Op][][]string
}

var _ metadata.Service = (*Org)(nil)

// New returns an org holding a copy of snap.
func New(snap Snapshot) *Org {
	return &Org{
		snap:      cloneSnapshot(snap),
		callErrs:  make(map[Op]error),
		fieldErrs: make(map[string]*fieldFailure),
		calls:     make(map[Op][][]string),
	}
}

// Load reads a YAML snapshot file.
func Load(path string) (*Org, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot %s: %w", path, err)
	}
	var snap Snapshot
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parsing snapshot %s: %w", path, err)
	}
	return New(snap), nil
}

// Save writes the current state as a YAML snapshot file.
func (o *Org) Save(path string) error {
	data, err := yaml.Marshal(o.Snapshot())
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing snapshot %s: %w", path, err)
	}
	return nil
}

// Snapshot returns a copy of the current state.
func (o *Org) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return cloneSnapshot(o.snap)
}

// FailCall makes every later call of op fail with err.
func (o *Org) FailCall(op Op, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.callErrs[op] = err
}

// FailUpdate makes the next times updates of the qualified field fullName
// fail with the given status.
func (o *Org) FailUpdate(fullName string, times int, status, message string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.fieldErrs[fullName] = &fieldFailure{
		remaining: times,
		err:       metadata.ServiceError{StatusCode: status, Message: message},
	}
}

// Calls returns the names passed to each call of op, in call order.
func (o *Org) Calls(op Op) [][]string {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([][]string, len(o.calls[op]))
	for i, c := range o.calls[op] {
		out[i] = append([]string(nil), c...)
	}
	return out
}

// begin records a call and returns the injected error, if any. Callers
// hold o.mu.
func (o *Org) begin(ctx context.Context, op Op, names []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	o.calls[op] = append(o.calls[op], append([]string(nil), names...))
	if err := o.callErrs[op]; err != nil {
		return err
	}
	if len(names) > batch.Size {
		return fmt.Errorf("%s: %d names exceed the limit of %d", op, len(names), batch.Size)
	}
	return nil
}

// List implements metadata.Service.
func (o *Org) List(ctx context.Context, queries []metadata.ListQuery, _ string) (batch.Result[metadata.FileProperties], error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	types := make([]string, len(queries))
	for i, q := range queries {
		types[i] = q.Type
	}
	if err := o.begin(ctx, OpList, types); err != nil {
		return batch.Result[metadata.FileProperties]{}, err
	}

	var out []metadata.FileProperties
	for _, q := range queries {
		switch q.Type {
		case metadata.TypeTranslations:
			for _, l := range o.snap.Locales {
				out = append(out, metadata.FileProperties{FullName: l, Type: q.Type, FileName: "translations/" + l + ".translation"})
			}
		case metadata.TypeCustomObject:
			for _, obj := range o.snap.Objects {
				out = append(out, metadata.FileProperties{FullName: obj.FullName, Type: q.Type, FileName: "objects/" + obj.FullName + ".object"})
			}
		case metadata.TypeCustomField:
			for _, obj := range o.snap.Objects {
				for _, f := range obj.Fields {
					out = append(out, metadata.FileProperties{FullName: metadata.QualifiedName(obj.FullName, f.FullName), Type: q.Type})
				}
			}
		}
	}
	return batch.Mirror(len(out), out), nil
}

// ReadCustomObjects implements metadata.Service.
func (o *Org) ReadCustomObjects(ctx context.Context, names []string) (batch.Result[metadata.ObjectDefinition], error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.begin(ctx, OpReadCustomObjects, names); err != nil {
		return batch.Result[metadata.ObjectDefinition]{}, err
	}
	out := make([]metadata.ObjectDefinition, len(names))
	for i, n := range names {
		if obj := o.object(n); obj != nil {
			out[i] = cloneObject(*obj)
		}
	}
	return batch.Mirror(len(names), out), nil
}

// ReadCustomFields implements metadata.Service. Names are qualified
// ("Account.Rating__c") and so are the returned records.
func (o *Org) ReadCustomFields(ctx context.Context, names []string) (batch.Result[metadata.FieldRecord], error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.begin(ctx, OpReadCustomFields, names); err != nil {
		return batch.Result[metadata.FieldRecord]{}, err
	}
	out := make([]metadata.FieldRecord, len(names))
	for i, n := range names {
		if f := o.field(n); f != nil {
			rec := f.Clone()
			rec.FullName = n
			out[i] = rec
		}
	}
	return batch.Mirror(len(names), out), nil
}

// ReadObjectTranslations implements metadata.Service.
func (o *Org) ReadObjectTranslations(ctx context.Context, names []string) (batch.Result[metadata.ObjectTranslation], error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.begin(ctx, OpReadObjectTranslations, names); err != nil {
		return batch.Result[metadata.ObjectTranslation]{}, err
	}
	out := make([]metadata.ObjectTranslation, len(names))
	for i, n := range names {
		for _, tr := range o.snap.Translations {
			if tr.FullName == n {
				out[i] = cloneTranslation(tr)
				break
			}
		}
	}
	return batch.Mirror(len(names), out), nil
}

// UpdateCustomFields implements metadata.Service. Records carry qualified
// names; unknown fields fail with metadata.StatusNotFound.
func (o *Org) UpdateCustomFields(ctx context.Context, records []metadata.FieldRecord) (batch.Result[metadata.SaveResult], error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	names := make([]string, len(records))
	for i, r := range records {
		names[i] = r.FullName
	}
	if err := o.begin(ctx, OpUpdateCustomFields, names); err != nil {
		return batch.Result[metadata.SaveResult]{}, err
	}

	out := make([]metadata.SaveResult, len(records))
	for i, rec := range records {
		res := metadata.SaveResult{FullName: rec.FullName}
		if ff := o.fieldErrs[rec.FullName]; ff != nil && ff.remaining > 0 {
			ff.remaining--
			res.Errors = []metadata.ServiceError{ff.err}
			out[i] = res
			continue
		}
		f := o.field(rec.FullName)
		if f == nil {
			res.Errors = []metadata.ServiceError{{
				StatusCode: metadata.StatusNotFound,
				Message:    fmt.Sprintf("no such field: %s", rec.FullName),
			}}
			out[i] = res
			continue
		}
		relative := f.FullName
		*f = rec.Clone()
		f.FullName = relative
		res.Success = true
		out[i] = res
	}
	return batch.Mirror(len(records), out), nil
}

func (o *Org) object(name string) *metadata.ObjectDefinition {
	for i := range o.snap.Objects {
		if strings.EqualFold(o.snap.Objects[i].FullName, name) {
			return &o.snap.Objects[i]
		}
	}
	return nil
}

func (o *Org) field(qualified string) *metadata.FieldRecord {
	objName, fieldName, ok := metadata.SplitQualified(qualified)
	if !ok {
		return nil
	}
	obj := o.object(objName)
	if obj == nil {
		return nil
	}
	for i := range obj.Fields {
		if strings.EqualFold(obj.Fields[i].FullName, fieldName) {
			return &obj.Fields[i]
		}
	}
	return nil
}

func cloneSnapshot(s Snapshot) Snapshot {
	out := Snapshot{Locales: append([]string(nil), s.Locales...)}
	for _, obj := range s.Objects {
		out.Objects = append(out.Objects, cloneObject(obj))
	}
	for _, tr := range s.Translations {
		out.Translations = append(out.Translations, cloneTranslation(tr))
	}
	return out
}

func cloneObject(obj metadata.ObjectDefinition) metadata.ObjectDefinition {
	out := metadata.ObjectDefinition{FullName: obj.FullName}
	for _, f := range obj.Fields {
		out.Fields = append(out.Fields, f.Clone())
	}
	return out
}

func cloneTranslation(tr metadata.ObjectTranslation) metadata.ObjectTranslation {
	out := metadata.ObjectTranslation{FullName: tr.FullName}
	for _, f := range tr.Fields {
		f.PicklistValues = append([]metadata.PicklistTranslation(nil), f.PicklistValues...)
		out.Fields = append(out.Fields, f)
	}
	return out
}

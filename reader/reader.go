// Package reader performs the batched reads of export and retrieve.
package reader

import (
	"context"
	"fmt"

	"github.com/minios-linux/objtrans/batch"
	"github.com/minios-linux/objtrans/metadata"
)

// Stage names reported to a batch.Tracker.
const (
	StageObjects      = "objects"
	StageFields       = "fields"
	StageTranslations = "translations"
)

// Reader reads metadata in chunks of batch.Size names.
type Reader struct {
	Service metadata.Service
	Batch   batch.Options
}

// ObjectDefinitions reads the definitions of objects. Unknown objects come
// back with an empty FullName.
func (r *Reader) ObjectDefinitions(ctx context.Context, objects []string) ([]metadata.ObjectDefinition, error) {
	out, err := batch.Do(ctx, StageObjects, objects, r.Batch, func(ctx context.Context, names []string) ([]metadata.ObjectDefinition, error) {
		res, err := r.Service.ReadCustomObjects(ctx, names)
		if err != nil {
			return nil, fmt.Errorf("reading objects %v: %w", names, err)
		}
		return res.List(), nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// FieldDetails reads full field records by qualified name.
func (r *Reader) FieldDetails(ctx context.Context, fullNames []string) ([]metadata.FieldRecord, error) {
	return batch.Do(ctx, StageFields, fullNames, r.Batch, func(ctx context.Context, names []string) ([]metadata.FieldRecord, error) {
		res, err := r.Service.ReadCustomFields(ctx, names)
		if err != nil {
			return nil, fmt.Errorf("reading fields %v: %w", names, err)
		}
		return res.List(), nil
	})
}

// ObjectTranslations reads the translation record of every (object,
// locale) pair. Pairs the org has no record for are dropped.
func (r *Reader) ObjectTranslations(ctx context.Context, objects, locales []string) ([]metadata.ObjectTranslation, error) {
	names := make([]string, 0, len(objects)*len(locales))
	for _, l := range locales {
		for _, o := range objects {
			names = append(names, metadata.TranslationName(o, l))
		}
	}
	all, err := batch.Do(ctx, StageTranslations, names, r.Batch, func(ctx context.Context, names []string) ([]metadata.ObjectTranslation, error) {
		res, err := r.Service.ReadObjectTranslations(ctx, names)
		if err != nil {
			return nil, fmt.Errorf("reading translations %v: %w", names, err)
		}
		return res.List(), nil
	})
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, tr := range all {
		if tr.FullName != "" {
			out = append(out, tr)
		}
	}
	return out, nil
}

// FieldNames returns "<Object>.<Field>" for every field of every object.
func FieldNames(objects []metadata.ObjectDefinition) []string {
	var out []string
	for _, obj := range objects {
		for _, f := range obj.Fields {
			out = append(out, metadata.QualifiedName(obj.FullName, f.FullName))
		}
	}
	return out
}

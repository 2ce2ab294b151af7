// Package reconcile writes field edits back to the org.
//
// A write reads the current record of every edited field, merges the edit
// over it and sends the merged records back, one read and one update per
// chunk of batch.Size fields.
package reconcile

import (
	"context"
	"fmt"
	"strings"

	"github.com/minios-linux/objtrans/batch"
	"github.com/minios-linux/objtrans/metadata"
)

// Stage names reported to a batch.Tracker.
const (
	StageWrite = "write"
	StageRetry = "retry"
)

// Writer writes field edits in chunks.
type Writer struct {
	Service metadata.Service
	Batch   batch.Options
}

// Write applies edits and returns one result per edit, in edit order. A
// failed read or update call aborts the whole write.
func (w *Writer) Write(ctx context.Context, edits []metadata.FieldEdit) ([]metadata.SaveResult, error) {
	return w.write(ctx, StageWrite, edits)
}

func (w *Writer) write(ctx context.Context, stage string, edits []metadata.FieldEdit) ([]metadata.SaveResult, error) {
	results, err := batch.Do(ctx, stage, edits, w.Batch, w.writeChunk)
	if err != nil {
		return nil, &PassError{Stage: stage, Err: err}
	}
	return results, nil
}

// PassError reports which pass of a write failed: StageWrite or StageRetry.
type PassError struct {
	Stage string
	Err   error
}

func (e *PassError) Error() string { return e.Stage + ": " + e.Err.Error() }

func (e *PassError) Unwrap() error { return e.Err }

func (w *Writer) writeChunk(ctx context.Context, edits []metadata.FieldEdit) ([]metadata.SaveResult, error) {
	names := make([]string, len(edits))
	for i, e := range edits {
		names[i] = e.FullName
	}

	read, err := w.Service.ReadCustomFields(ctx, names)
	if err != nil {
		return nil, fmt.Errorf("reading fields %v: %w", names, err)
	}

	// The org canonicalises the case of field names and need not keep the
	// request order, so records are matched to edits by name.
	byName := make(map[string]metadata.FieldRecord, len(edits))
	for _, rec := range read.List() {
		if rec.FullName != "" {
			byName[strings.ToLower(rec.FullName)] = rec
		}
	}

	// Fields the org does not return are reported as failures without
	// being sent.
	var (
		merged  []metadata.FieldRecord
		slots   []int
		results = make([]metadata.SaveResult, len(edits))
	)
	for i, e := range edits {
		rec, ok := byName[strings.ToLower(e.FullName)]
		if !ok {
			results[i] = metadata.SaveResult{
				FullName: e.FullName,
				Errors: []metadata.ServiceError{{
					StatusCode: metadata.StatusNotFound,
					Message:    fmt.Sprintf("field %s not found", e.FullName),
				}},
			}
			continue
		}
		merged = append(merged, metadata.MergeField(rec, e))
		slots = append(slots, i)
	}
	if len(merged) == 0 {
		return results, nil
	}

	upd, err := w.Service.UpdateCustomFields(ctx, merged)
	if err != nil {
		return nil, fmt.Errorf("updating fields %v: %w", names, err)
	}
	saved := upd.List()
	if len(saved) != len(merged) {
		return nil, fmt.Errorf("updating fields %v: got %d results for %d records", names, len(saved), len(merged))
	}
	// Results carry the edit's name, whatever case the org answered with.
	for j, res := range saved {
		res.FullName = edits[slots[j]].FullName
		results[slots[j]] = res
	}
	return results, nil
}

// WriteWithRetry writes edits and then writes once more the fields that
// failed with metadata.StatusUnknownException. A successful retry replaces
// the original result in place; a failed one leaves it untouched.
func (w *Writer) WriteWithRetry(ctx context.Context, edits []metadata.FieldEdit) ([]metadata.SaveResult, error) {
	results, err := w.write(ctx, StageWrite, edits)
	if err != nil {
		return nil, err
	}

	var (
		retry []metadata.FieldEdit
		slots []int
	)
	for i, r := range results {
		if !r.Success && r.HasStatus(metadata.StatusUnknownException) {
			retry = append(retry, edits[i])
			slots = append(slots, i)
		}
	}
	if len(retry) == 0 {
		return results, nil
	}

	again, err := w.write(ctx, StageRetry, retry)
	if err != nil {
		return nil, err
	}
	for j, r := range again {
		if r.Success {
			results[slots[j]] = r
		}
	}
	return results, nil
}

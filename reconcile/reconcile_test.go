package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minios-linux/objtrans/batch"
	"github.com/minios-linux/objtrans/memorg"
	"github.com/minios-linux/objtrans/metadata"
)

func ptr(s string) *string { return &s }

func orgWithFields(n int) *memorg.Org {
	obj := metadata.ObjectDefinition{FullName: "Account"}
	for i := range n {
		obj.Fields = append(obj.Fields, metadata.FieldRecord{
			FullName:    fmt.Sprintf("F%02d__c", i),
			Label:       fmt.Sprintf("Field %d", i),
			Description: "keep",
			Type:        "Text",
			Extra:       []metadata.Property{{Name: "length", Raw: "80"}},
		})
	}
	return memorg.New(memorg.Snapshot{Objects: []metadata.ObjectDefinition{obj}})
}

func labelEdits(n int) []metadata.FieldEdit {
	out := make([]metadata.FieldEdit, n)
	for i := range out {
		out[i] = metadata.FieldEdit{
			FullName: fmt.Sprintf("Account.F%02d__c", i),
			Label:    ptr(fmt.Sprintf("New %d", i)),
		}
	}
	return out
}

func TestWriteMergesAndChunks(t *testing.T) {
	org := orgWithFields(25)
	w := &Writer{Service: org}

	results, err := w.Write(context.Background(), labelEdits(25))
	require.NoError(t, err)
	require.Len(t, results, 25)
	for i, r := range results {
		assert.True(t, r.Success, "result %d", i)
		assert.Equal(t, fmt.Sprintf("Account.F%02d__c", i), r.FullName)
	}
	assert.Len(t, org.Calls(memorg.OpReadCustomFields), 3)
	assert.Len(t, org.Calls(memorg.OpUpdateCustomFields), 3)

	f := org.Snapshot().Objects[0].Fields[7]
	assert.Equal(t, "New 7", f.Label)
	assert.Equal(t, "keep", f.Description)
	assert.Equal(t, []metadata.Property{{Name: "length", Raw: "80"}}, f.Extra)
}

func TestWriteUnknownField(t *testing.T) {
	org := orgWithFields(1)
	w := &Writer{Service: org}
	results, err := w.Write(context.Background(), []metadata.FieldEdit{
		{FullName: "Account.Missing__c", Label: ptr("x")},
		{FullName: "Account.F00__c", Label: ptr("y")},
	})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.False(t, results[0].Success)
	assert.True(t, results[0].HasStatus(metadata.StatusNotFound))
	assert.True(t, results[1].Success)

	updates := org.Calls(memorg.OpUpdateCustomFields)
	require.Len(t, updates, 1)
	assert.Equal(t, []string{"Account.F00__c"}, updates[0])
}

func TestWriteAbortsOnCallError(t *testing.T) {
	org := orgWithFields(15)
	boom := &metadata.ServiceError{StatusCode: "INVALID_SESSION_ID", Message: "expired"}
	org.FailCall(memorg.OpUpdateCustomFields, boom)
	w := &Writer{Service: org}

	results, err := w.Write(context.Background(), labelEdits(15))
	assert.Nil(t, results)
	var se *metadata.ServiceError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "INVALID_SESSION_ID", se.StatusCode)
}

func TestWriteWithRetry(t *testing.T) {
	org := orgWithFields(3)
	org.FailUpdate("Account.F01__c", 1, metadata.StatusUnknownException, "try again")
	org.FailUpdate("Account.F02__c", 1, "FIELD_INTEGRITY_EXCEPTION", "bad")
	w := &Writer{Service: org}

	results, err := w.WriteWithRetry(context.Background(), labelEdits(3))
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.True(t, results[0].Success)
	assert.True(t, results[1].Success, "retried result replaces the failure in place")
	assert.Equal(t, "Account.F01__c", results[1].FullName)
	assert.False(t, results[2].Success)

	updates := org.Calls(memorg.OpUpdateCustomFields)
	require.Len(t, updates, 2)
	assert.Equal(t, []string{"Account.F01__c"}, updates[1])
}

// reversedReads returns read records in reverse order with upper-cased
// names, the way an org may canonicalise them.
type reversedReads struct {
	metadata.Service
}

func (r reversedReads) ReadCustomFields(ctx context.Context, names []string) (batch.Result[metadata.FieldRecord], error) {
	res, err := r.Service.ReadCustomFields(ctx, names)
	if err != nil {
		return res, err
	}
	recs := res.List()
	out := make([]metadata.FieldRecord, 0, len(recs))
	for i := len(recs) - 1; i >= 0; i-- {
		rec := recs[i]
		if rec.FullName != "" {
			rec.FullName = strings.ToUpper(rec.FullName)
		}
		out = append(out, rec)
	}
	return batch.Mirror(len(names), out), nil
}

// scriptedUpdates answers the n-th update call with statuses[n] for every
// record; an empty status is a success.
type scriptedUpdates struct {
	metadata.Service
	statuses []string
	calls    int
}

func (s *scriptedUpdates) UpdateCustomFields(ctx context.Context, records []metadata.FieldRecord) (batch.Result[metadata.SaveResult], error) {
	status := s.statuses[s.calls]
	s.calls++
	out := make([]metadata.SaveResult, len(records))
	for i, rec := range records {
		out[i] = metadata.SaveResult{FullName: rec.FullName, Success: status == ""}
		if status != "" {
			out[i].Errors = []metadata.ServiceError{{StatusCode: status, Message: "x"}}
		}
	}
	return batch.Mirror(len(records), out), nil
}

func TestWriteMatchesRecordsByName(t *testing.T) {
	org := orgWithFields(3)
	w := &Writer{Service: reversedReads{Service: org}}

	results, err := w.Write(context.Background(), labelEdits(3))
	require.NoError(t, err)
	require.Len(t, results, 3)
	for i, r := range results {
		assert.True(t, r.Success, "result %d", i)
	}

	for i, f := range org.Snapshot().Objects[0].Fields {
		assert.Equal(t, fmt.Sprintf("New %d", i), f.Label, "field %s", f.FullName)
	}
}

func TestWriteWithRetryKeepsOriginalFailure(t *testing.T) {
	svc := &scriptedUpdates{
		Service:  orgWithFields(1),
		statuses: []string{metadata.StatusUnknownException, "FIELD_INTEGRITY_EXCEPTION"},
	}
	w := &Writer{Service: svc}

	results, err := w.WriteWithRetry(context.Background(), labelEdits(1))
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 2, svc.calls)
	assert.False(t, results[0].Success)
	assert.True(t, results[0].HasStatus(metadata.StatusUnknownException))
	assert.False(t, results[0].HasStatus("FIELD_INTEGRITY_EXCEPTION"))
}

func TestWriteWithRetryReportsRetryPass(t *testing.T) {
	org := orgWithFields(2)
	org.FailUpdate("Account.F01__c", 1, metadata.StatusUnknownException, "try again")
	boom := errors.New("connection reset")
	w := &Writer{Service: &failingRetry{Org: org, err: boom}}

	_, err := w.WriteWithRetry(context.Background(), labelEdits(2))
	var pe *PassError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, StageRetry, pe.Stage)
	assert.ErrorIs(t, err, boom)
}

// failingRetry fails every update after the first.
type failingRetry struct {
	*memorg.Org
	err   error
	calls int
}

func (f *failingRetry) UpdateCustomFields(ctx context.Context, records []metadata.FieldRecord) (batch.Result[metadata.SaveResult], error) {
	f.calls++
	if f.calls > 1 {
		return batch.Result[metadata.SaveResult]{}, f.err
	}
	return f.Org.UpdateCustomFields(ctx, records)
}

func TestWriteWithRetryDepthOne(t *testing.T) {
	org := orgWithFields(2)
	org.FailUpdate("Account.F00__c", 5, metadata.StatusUnknownException, "try again")
	w := &Writer{Service: org}

	results, err := w.WriteWithRetry(context.Background(), labelEdits(2))
	require.NoError(t, err)
	assert.False(t, results[0].Success)
	assert.True(t, results[0].HasStatus(metadata.StatusUnknownException))
	assert.True(t, results[1].Success)
	assert.Len(t, org.Calls(memorg.OpUpdateCustomFields), 2)
}

func TestWriteWithRetryNoRetryNeeded(t *testing.T) {
	org := orgWithFields(2)
	w := &Writer{Service: org}
	_, err := w.WriteWithRetry(context.Background(), labelEdits(2))
	require.NoError(t, err)
	assert.Len(t, org.Calls(memorg.OpUpdateCustomFields), 1)
}

func TestWriteEmpty(t *testing.T) {
	org := orgWithFields(1)
	w := &Writer{Service: org}
	results, err := w.Write(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Empty(t, org.Calls(memorg.OpReadCustomFields))
}

func TestSummaries(t *testing.T) {
	results := []metadata.SaveResult{
		{FullName: "a", Success: true},
		{FullName: "b", Errors: []metadata.ServiceError{{StatusCode: "X", Message: "m"}}},
		{FullName: "c", Success: true},
	}
	s := Summarize(results)
	assert.Len(t, s.Success, 2)
	require.Len(t, s.Failure, 1)
	assert.Equal(t, "b", s.Failure[0].FullName)

	c := Count(results)
	assert.Equal(t, 2, c.Success)
	assert.Len(t, c.Failure, 1)

	empty := Count(nil)
	assert.NotNil(t, empty.Failure)
	assert.Zero(t, empty.Success)
}

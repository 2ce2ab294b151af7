package engine

import (
	"errors"
	"fmt"
)

// ErrNoOrgResults is returned when the org has none of the requested objects.
var ErrNoOrgResults = errors.New("no results from org")

// ErrNoSheets is returned when the workbook has none of the requested sheets.
var ErrNoSheets = errors.New("no matching sheets in workbook")

// StageError reports the operation and stage in which a remote call failed.
type StageError struct {
	// Op is the operation: export, retrieve, import or deploy.
	Op string
	// Stage is the failing stage, e.g. "locales" or "write".
	Stage string
	// Err is the underlying error.
	Err error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

func stageErr(op, stage string, err error) error {
	if err == nil {
		return nil
	}
	return &StageError{Op: op, Stage: stage, Err: err}
}

package domain

import (
	"errors"
	"fmt"
)

var (
	ErrDuplicatePlacement = errors.New("activity already has a placement")
	ErrRunFinalized       = errors.New("anchoring run is already finalized")
	ErrRunNotFinalized    = errors.New("anchoring run is not finalized")
	ErrRunNotFound        = errors.New("anchoring run not found")
	ErrDuplicateRun       = errors.New("anchoring run already exists")
)

// InvariantError reports a domain invariant violated by a specific record.
// The engine returns it instead of producing an inconsistent schedule.
type InvariantError struct {
	Invariant string
	RecordID  string
	Detail    string
}

func (e *InvariantError) Error() string {
	if e.RecordID == "" {
		return fmt.Sprintf("invariant %s violated: %s", e.Invariant, e.Detail)
	}
	return fmt.Sprintf("invariant %s violated by record %s: %s", e.Invariant, e.RecordID, e.Detail)
}

// NewInvariantError creates an InvariantError for the given record.
func NewInvariantError(invariant, recordID, detail string) *InvariantError {
	return &InvariantError{Invariant: invariant, RecordID: recordID, Detail: detail}
}

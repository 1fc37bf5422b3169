package expectation

import (
	"errors"
	"fmt"
)

// ErrNotFound means the referenced expectation id has no row in the store.
var ErrNotFound = errors.New("expectation not found")

// ValidationError reports the first field check that failed. Validation
// never has side effects; the candidate is rejected before any write.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ConflictError reports an overlapping active expectation for the same
// resource and type. ConflictingID identifies the first clashing row in
// storage order so callers can look it up.
type ConflictError struct {
	ConflictingID int
}

func (e ConflictError) Error() string {
	return fmt.Sprintf("date range overlaps active expectation %d", e.ConflictingID)
}

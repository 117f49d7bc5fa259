package models

import (
	"errors"
	"fmt"
)

// ErrMergeConflict is matched by every *MergeConflictError.
var ErrMergeConflict = errors.New("merge conflict")

// MergeConflictError reports a delta whose shape the merge rules do not accept.
// It indicates a stage/schema mismatch and fails the whole review.
type MergeConflictError struct {
	Stage  StageName
	Field  string
	Key    string
	Reason string
}

func (e *MergeConflictError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("merge conflict [%s %s[%s]]: %s", e.Stage, e.Field, e.Key, e.Reason)
	}
	return fmt.Sprintf("merge conflict [%s %s]: %s", e.Stage, e.Field, e.Reason)
}

func (e *MergeConflictError) Is(target error) bool {
	return target == ErrMergeConflict
}

package graph

import (
	"errors"
	"fmt"
)

// ErrMalformedMerge is returned (wrapped in a *MergeError) when a batch is
// internally inconsistent. A failed merge leaves the accumulator untouched.
var ErrMalformedMerge = errors.New("malformed merge")

// MergeError describes why a batch was rejected.
type MergeError struct {
	ID     string
	Reason string
}

func (e *MergeError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%v: %s", ErrMalformedMerge, e.Reason)
	}
	return fmt.Sprintf("%v: %s: %s", ErrMalformedMerge, e.ID, e.Reason)
}

func (e *MergeError) Unwrap() error { return ErrMalformedMerge }

func malformed(id, format string, args ...any) error {
	return &MergeError{ID: id, Reason: fmt.Sprintf(format, args...)}
}

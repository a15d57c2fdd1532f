package core

import (
	"errors"
	"fmt"
)

// ValidationError reports malformed, missing or out-of-range input.
// The ledger is never mutated when one is returned.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// NotFoundError reports a reference to an item that is not in the ledger.
type NotFoundError struct {
	ID ItemID
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("item %q not found", e.ID)
}

// InvalidMoveError reports a move target outside the item ordering.
type InvalidMoveError struct {
	ID    ItemID
	Index int
	Len   int
}

func (e *InvalidMoveError) Error() string {
	return fmt.Sprintf("cannot move item %q to index %d (ledger has %d items)", e.ID, e.Index, e.Len)
}

// IsValidation reports whether err is or wraps a *ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsNotFound reports whether err is or wraps a *NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsInvalidMove reports whether err is or wraps an *InvalidMoveError.
func IsInvalidMove(err error) bool {
	var m *InvalidMoveError
	return errors.As(err, &m)
}

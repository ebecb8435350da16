package reconciliation

import (
	"errors"
	"fmt"
)

// Edit errors
var (
	// ErrIndexOutOfRange is returned when a line item index is outside [0, len(lineItems)).
	ErrIndexOutOfRange = errors.New("line item index out of range")

	// ErrUnknownField is returned for field names that are unknown or not editable
	// (derived amounts and rawText).
	ErrUnknownField = errors.New("unknown or read-only field")

	// ErrInvalidValue is returned when a value has the wrong type for its field.
	ErrInvalidValue = errors.New("invalid value for field")

	// ErrUnknownOp is returned by Apply for an unrecognised edit operation.
	ErrUnknownOp = errors.New("unknown edit operation")
)

// EditError describes a rejected edit. The record the edit was applied to is left unchanged.
type EditError struct {
	Op    string
	Field string
	Index int // -1 when the edit does not address a line item
	Err   error
}

// Error implements the error interface.
func (e *EditError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("reconciliation: %s line item %d field %q: %v", e.Op, e.Index, e.Field, e.Err)
	}
	if e.Field != "" {
		return fmt.Sprintf("reconciliation: %s field %q: %v", e.Op, e.Field, e.Err)
	}
	return fmt.Sprintf("reconciliation: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *EditError) Unwrap() error {
	return e.Err
}

func newEditError(op, field string, index int, err error) *EditError {
	return &EditError{Op: op, Field: field, Index: index, Err: err}
}

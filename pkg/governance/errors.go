package governance

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound matches every *NotFoundError.
	ErrNotFound = errors.New("not found")

	// ErrConflict matches every *ConflictError.
	ErrConflict = errors.New("conflict")
)

// NotFoundError reports an operation on an unknown id.
type NotFoundError struct {
	Kind string // "guardrail", "decision", "intervention", "policy"
	ID   string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

// Is makes errors.Is(err, ErrNotFound) succeed.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// ValidationError reports a rejected operation. Nothing was applied.
type ValidationError struct {
	Op    string
	Cause error
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *ValidationError) Unwrap() error {
	return e.Cause
}

// ConflictError reports an operation that contradicts current state, such
// as reusing a guardrail id or reviewing a settled decision.
type ConflictError struct {
	Kind   string
	ID     string
	Reason string
	Cause  error
}

// Error implements the error interface.
func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s %q: %s", e.Kind, e.ID, e.Reason)
}

// Is makes errors.Is(err, ErrConflict) succeed.
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// Unwrap returns the underlying cause error.
func (e *ConflictError) Unwrap() error {
	return e.Cause
}

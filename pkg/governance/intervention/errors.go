package intervention

import (
	"errors"
	"fmt"
)

// Common sentinel errors
var (
	// ErrNotFound indicates an unknown intervention id.
	ErrNotFound = errors.New("intervention not found")

	// ErrNotPending indicates a resolution attempt on a terminal intervention.
	ErrNotPending = errors.New("intervention is not pending")

	// ErrInvalidResolution indicates a resolution missing its reviewer or type.
	ErrInvalidResolution = errors.New("invalid resolution")
)

// NotPendingError reports the terminal status that blocked a resolution.
type NotPendingError struct {
	ID     string
	Status Status
}

// Error returns the error message.
func (e *NotPendingError) Error() string {
	return fmt.Sprintf("intervention %s is %s", e.ID, e.Status)
}

// Is matches ErrNotPending.
func (e *NotPendingError) Is(target error) bool {
	return target == ErrNotPending
}

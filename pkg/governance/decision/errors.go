package decision

import (
	"errors"
	"strings"
)

// Common sentinel errors
var (
	// ErrNotFound indicates an unknown decision id.
	ErrNotFound = errors.New("decision not found")

	// ErrFinalized indicates a review on a decision that was already
	// reviewed, approved or rejected.
	ErrFinalized = errors.New("decision already reviewed")
)

// ValidationError reports missing or invalid fields of a decision input.
type ValidationError struct {
	Fields []string
}

// Error returns the error message.
func (e *ValidationError) Error() string {
	return "invalid decision input: " + strings.Join(e.Fields, "; ")
}

// ValidateInput checks the required fields of a decision input.
func ValidateInput(in Input) error {
	var fields []string
	if strings.TrimSpace(in.Action) == "" {
		fields = append(fields, "action is required")
	}
	if in.Context == nil {
		fields = append(fields, "context is required")
	} else if in.Context.Tokens < 0 {
		fields = append(fields, "context.tokens must not be negative")
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

package guardrail

import (
	"errors"
	"fmt"
	"strings"

	"mercator-hq/overseer/pkg/governance/predicate"
)

// ErrDuplicateID indicates a create with an explicit id that is already taken.
var ErrDuplicateID = errors.New("guardrail id already exists")

// FieldError describes one invalid field of a guardrail definition.
type FieldError struct {
	Field   string
	Message string
}

// Error returns the error message.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError reports every problem found in a guardrail definition.
// A definition that fails validation is never applied.
type ValidationError struct {
	Errors []FieldError
}

// Error returns the error message.
func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		msgs[i] = fe.Error()
	}
	return "invalid guardrail: " + strings.Join(msgs, "; ")
}

// validateDefinition checks the required fields of a definition.
func validateDefinition(def Definition) error {
	var errs []FieldError

	if strings.TrimSpace(def.Name) == "" {
		errs = append(errs, FieldError{Field: "name", Message: "is required"})
	}

	switch {
	case def.Category == "":
		errs = append(errs, FieldError{Field: "category", Message: "is required"})
	case !def.Category.IsValid():
		errs = append(errs, FieldError{Field: "category", Message: fmt.Sprintf("unknown category %q", def.Category)})
	}

	switch {
	case def.Severity == "":
		errs = append(errs, FieldError{Field: "severity", Message: "is required"})
	case !def.Severity.IsValid():
		errs = append(errs, FieldError{Field: "severity", Message: fmt.Sprintf("unknown severity %q", def.Severity)})
	}

	if def.Predicate != nil {
		if err := predicate.Validate(def.Predicate); err != nil {
			errs = append(errs, FieldError{Field: "predicate", Message: err.Error()})
		}
	}

	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}

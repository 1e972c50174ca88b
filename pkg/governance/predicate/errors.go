package predicate

import (
	"errors"
	"fmt"
	"strings"
)

// Common sentinel errors
var (
	// ErrNilPredicate indicates a nil node was found in a predicate tree.
	ErrNilPredicate = errors.New("nil predicate")

	// ErrMissingField indicates a leaf operator has no field to resolve.
	ErrMissingField = errors.New("leaf operator requires a field")

	// ErrUnknownOperator indicates an operator outside the closed set.
	ErrUnknownOperator = errors.New("unknown operator")

	// ErrUnknownType indicates a leaf predicate with an unknown evaluation domain.
	ErrUnknownType = errors.New("unknown predicate type")

	// ErrTooDeep indicates a predicate tree nested beyond MaxDepth.
	ErrTooDeep = errors.New("predicate tree too deep")
)

// EvaluationError describes a fault found while evaluating a predicate tree.
// Path locates the failing node as child indices from the root ("root.1.0").
type EvaluationError struct {
	Path     string
	Operator Operator
	Field    string
	Cause    error
}

// Error returns the error message.
func (e *EvaluationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "predicate %s", e.Path)
	if e.Operator != "" {
		fmt.Fprintf(&b, " (%s", e.Operator)
		if e.Field != "" {
			fmt.Fprintf(&b, " %s", e.Field)
		}
		b.WriteString(")")
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *EvaluationError) Unwrap() error {
	return e.Cause
}

// ValidationError collects structural problems found by Validate.
type ValidationError struct {
	Problems []string
}

// Error returns the error message.
func (e *ValidationError) Error() string {
	if len(e.Problems) == 1 {
		return "invalid predicate: " + e.Problems[0]
	}
	return fmt.Sprintf("invalid predicate: %d problems: %s", len(e.Problems), strings.Join(e.Problems, "; "))
}

package predicate

import (
	"fmt"
	"log/slog"
	"strconv"
)

// MaxDepth bounds predicate nesting so a hostile tree cannot exhaust the stack.
const MaxDepth = 64

// Evaluator evaluates predicate trees against a Context.
//
// Evaluation is pure and deterministic: the same predicate and context always
// yield the same result. An Evaluator is safe for concurrent use.
type Evaluator struct {
	logger *slog.Logger
}

// NewEvaluator creates a new evaluator.
func NewEvaluator(logger *slog.Logger) *Evaluator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Evaluator{
		logger: logger.With("component", "predicate.evaluator"),
	}
}

// Evaluate reports whether p matches ctx. Malformed trees and panics raised
// while evaluating are returned as *EvaluationError with a false result.
func (e *Evaluator) Evaluate(p *Predicate, ctx *Context) (matched bool, err error) {
	if ctx == nil {
		ctx = &Context{}
	}

	defer func() {
		if r := recover(); r != nil {
			matched = false
			err = &EvaluationError{Path: "root", Cause: fmt.Errorf("panic: %v", r)}
		}
	}()

	return evaluate(p, newResolver(ctx), "root", 0)
}

// Matches evaluates p for the named guardrail and treats any fault as "not
// triggered". The fault is logged so a single malformed rule never aborts the
// surrounding decision.
func (e *Evaluator) Matches(guardrailID string, p *Predicate, ctx *Context) bool {
	matched, err := e.Evaluate(p, ctx)
	if err != nil {
		e.logger.Warn("guardrail predicate evaluation failed",
			"guardrail_id", guardrailID,
			"error", err,
		)
		return false
	}
	return matched
}

// Evaluate is a convenience wrapper that evaluates p with a default evaluator
// and reports a fault as false.
func Evaluate(p *Predicate, ctx *Context) bool {
	matched, err := NewEvaluator(nil).Evaluate(p, ctx)
	return err == nil && matched
}

func evaluate(p *Predicate, r *resolver, path string, depth int) (bool, error) {
	if p == nil {
		return false, &EvaluationError{Path: path, Cause: ErrNilPredicate}
	}
	if depth > MaxDepth {
		return false, &EvaluationError{Path: path, Operator: p.Operator, Cause: ErrTooDeep}
	}

	switch p.Operator {
	case OperatorAnd:
		for i, child := range p.Children {
			matched, err := evaluate(child, r, childPath(path, i), depth+1)
			if err != nil {
				return false, err
			}
			if !matched {
				return false, nil
			}
		}
		return true, nil

	case OperatorOr:
		for i, child := range p.Children {
			matched, err := evaluate(child, r, childPath(path, i), depth+1)
			if err != nil {
				return false, err
			}
			if matched {
				return true, nil
			}
		}
		return false, nil

	case OperatorNot:
		if len(p.Children) > 0 {
			matched, err := evaluate(p.Children[0], r, childPath(path, 0), depth+1)
			if err != nil {
				return false, err
			}
			return !matched, nil
		}
		if p.Field == "" {
			return false, &EvaluationError{Path: path, Operator: p.Operator, Cause: ErrMissingField}
		}
		actual := r.resolve(p.Type, p.Field)
		if p.Value != nil {
			return !valuesEqual(actual, p.Value), nil
		}
		return !truthy(actual), nil

	case OperatorEquals, OperatorNotEquals, OperatorGreaterThan, OperatorLessThan, OperatorContains:
		if p.Field == "" {
			return false, &EvaluationError{Path: path, Operator: p.Operator, Cause: ErrMissingField}
		}
		if !p.Type.IsValid() {
			return false, &EvaluationError{
				Path:     path,
				Operator: p.Operator,
				Field:    p.Field,
				Cause:    fmt.Errorf("%w: %q", ErrUnknownType, p.Type),
			}
		}
		return compare(p.Operator, r.resolve(p.Type, p.Field), p.Value), nil

	default:
		return false, &EvaluationError{
			Path:     path,
			Operator: p.Operator,
			Field:    p.Field,
			Cause:    fmt.Errorf("%w: %q", ErrUnknownOperator, p.Operator),
		}
	}
}

func childPath(path string, i int) string {
	return path + "." + strconv.Itoa(i)
}

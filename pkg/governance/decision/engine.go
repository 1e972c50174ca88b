// Package decision evaluates proposed AI actions against the enabled
// guardrails and produces governance decisions.
//
// # Evaluation Flow
//
//	Input + Principal
//	       ↓
//	ContextBuilder (action type, scope, risk level, safety, tokens, user)
//	       ↓
//	For each enabled guardrail in registry order:
//	  Evaluate predicate → triggered? (faults count as not triggered)
//	       ↓
//	RiskScore → DetermineStatus
//	       ↓
//	Decision (not yet stored)
package decision

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"mercator-hq/overseer/pkg/governance/guardrail"
	"mercator-hq/overseer/pkg/governance/predicate"
)

// Fault records a guardrail whose predicate could not be evaluated.
type Fault struct {
	GuardrailID string
	Err         error
}

// Evaluation is the result of evaluating one action.
type Evaluation struct {
	Decision  *Decision
	Context   *predicate.Context
	Triggered []*guardrail.Guardrail
	Evaluated int
	Faults    []Fault
	Duration  time.Duration
}

// GuardrailSource yields the guardrails to evaluate, in order.
type GuardrailSource interface {
	Enabled() []*guardrail.Guardrail
}

// Engine evaluates actions against guardrails.
type Engine struct {
	guardrails GuardrailSource
	evaluator  *predicate.Evaluator
	builder    *ContextBuilder
	clock      func() time.Time
	logger     *slog.Logger
}

// NewEngine creates a decision engine.
func NewEngine(guardrails GuardrailSource, builder *ContextBuilder, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if builder == nil {
		builder = NewContextBuilder(DefaultTokenLimit, nil)
	}
	return &Engine{
		guardrails: guardrails,
		evaluator:  predicate.NewEvaluator(logger),
		builder:    builder,
		clock:      time.Now,
		logger:     logger.With("component", "decision.engine"),
	}
}

// WithClock overrides the clock for deterministic testing.
func (e *Engine) WithClock(clock func() time.Time) *Engine {
	e.clock = clock
	return e
}

// Evaluate validates in, runs every enabled guardrail against the derived
// context, and returns the new decision. The decision is not stored.
func (e *Engine) Evaluate(ctx context.Context, in Input, p Principal) (*Evaluation, error) {
	if err := ValidateInput(in); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	evalCtx := e.builder.Build(in, p)

	enabled := e.guardrails.Enabled()
	var (
		triggered  []*guardrail.Guardrail
		ids        = make([]string, 0)
		severities []guardrail.Severity
		faults     []Fault
	)
	for _, g := range enabled {
		matched, err := e.evaluator.Evaluate(g.Predicate, evalCtx)
		if err != nil {
			e.logger.Warn("guardrail evaluation failed, treating as not triggered",
				"guardrail_id", g.ID,
				"error", err,
			)
			faults = append(faults, Fault{GuardrailID: g.ID, Err: err})
			continue
		}
		if !matched {
			continue
		}
		triggered = append(triggered, g)
		ids = append(ids, g.ID)
		severities = append(severities, g.Severity)
	}

	score := RiskScore(in.Action, in.Context.Model, in.Context.Tokens, len(triggered))
	status := DetermineStatus(severities, score)

	d := &Decision{
		ID:                  uuid.NewString(),
		Timestamp:           e.clock(),
		SessionID:           in.SessionID,
		UserID:              in.UserID,
		Action:              in.Action,
		ActionAr:            in.ActionAr,
		Context:             *in.Context,
		Reasoning:           in.Reasoning,
		GuardrailsTriggered: ids,
		RiskScore:           score,
		Status:              status,
	}
	if in.Outcome != nil {
		d.Outcome = *in.Outcome
	}

	eval := &Evaluation{
		Decision:  d,
		Context:   evalCtx,
		Triggered: triggered,
		Evaluated: len(enabled),
		Faults:    faults,
		Duration:  time.Since(start),
	}

	e.logger.Info("decision evaluated",
		"decision_id", d.ID,
		"user_id", d.UserID,
		"action_type", evalCtx.Action.Type,
		"guardrails_evaluated", len(enabled),
		"guardrails_triggered", len(ids),
		"risk_score", score,
		"status", status,
	)

	return eval, nil
}

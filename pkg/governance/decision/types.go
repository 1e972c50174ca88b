package decision

import (
	"time"

	"mercator-hq/overseer/pkg/governance/intervention"
)

// Status is the governance verdict on an action.
type Status string

const (
	StatusPending      Status = "pending"
	StatusApproved     Status = "approved"
	StatusRejected     Status = "rejected"
	StatusAutoApproved Status = "auto-approved"
	StatusEscalated    Status = "escalated"
)

// IsValid reports whether s is a known status.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusAutoApproved, StatusEscalated:
		return true
	}
	return false
}

// IsFinal reports whether a human review has settled the decision.
func (s Status) IsFinal() bool {
	return s == StatusApproved || s == StatusRejected
}

// ActionContext is the runtime context submitted with an action.
type ActionContext struct {
	Model  string `json:"model"`
	Tokens int    `json:"tokens"`
	Input  string `json:"input"`
	Intent string `json:"intent"`
}

// Outcome records how the action went, when the caller knows.
type Outcome struct {
	Success bool   `json:"success"`
	Result  string `json:"result,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Decision is the record of one evaluated AI action. Only Status and
// HumanReview change after creation, and only through a review.
type Decision struct {
	ID                  string                     `json:"id"`
	Timestamp           time.Time                  `json:"timestamp"`
	SessionID           string                     `json:"sessionId"`
	UserID              string                     `json:"userId"`
	Action              string                     `json:"action"`
	ActionAr            string                     `json:"actionAr,omitempty"`
	Context             ActionContext              `json:"context"`
	Reasoning           string                     `json:"reasoning"`
	Outcome             Outcome                    `json:"outcome"`
	GuardrailsTriggered []string                   `json:"guardrailsTriggered"`
	RiskScore           int                        `json:"riskScore"`
	Status              Status                     `json:"status"`
	HumanReview         *intervention.Intervention `json:"humanReview,omitempty"`
}

// Reviewed reports whether a human review has already been applied. A
// decision is reviewed at most once.
func (d *Decision) Reviewed() bool {
	return d.HumanReview != nil || d.Status.IsFinal()
}

// Clone returns a deep copy of the decision.
func (d *Decision) Clone() *Decision {
	if d == nil {
		return nil
	}
	out := *d
	out.GuardrailsTriggered = append([]string(nil), d.GuardrailsTriggered...)
	out.HumanReview = d.HumanReview.Clone()
	return &out
}

// Input holds the arguments of a decision log request.
type Input struct {
	SessionID string         `json:"sessionId"`
	UserID    string         `json:"userId"`
	Action    string         `json:"action"`
	ActionAr  string         `json:"actionAr,omitempty"`
	Context   *ActionContext `json:"context"`
	Reasoning string         `json:"reasoning"`
	Outcome   *Outcome       `json:"outcome,omitempty"`
}

// Principal is the authenticated caller's authorization attributes.
type Principal struct {
	ID          string
	IsOwner     bool
	PIIAccess   bool
	Roles       []string
	Permissions []string
}

// Filter selects decisions. Zero fields match everything; Limit 0 means no
// limit.
type Filter struct {
	UserID string
	Status Status
	From   time.Time
	To     time.Time
	Limit  int
}

// Matches reports whether d passes the filter, ignoring Limit.
func (f Filter) Matches(d *Decision) bool {
	if f.UserID != "" && d.UserID != f.UserID {
		return false
	}
	if f.Status != "" && d.Status != f.Status {
		return false
	}
	if !f.From.IsZero() && d.Timestamp.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && d.Timestamp.After(f.To) {
		return false
	}
	return true
}

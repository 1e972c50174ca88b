// Package audit records an append-only trail of governance events.
//
// Every decision that is logged, every intervention that is opened, resolved
// or expires, and every change to guardrails or policies produces one Record.
// Records are written asynchronously by the recorder subpackage into a
// Storage backend and can be queried, exported and pruned.
package audit

import (
	"context"
	"io"
	"time"
)

// EventType identifies what happened.
type EventType string

const (
	EventDecisionLogged       EventType = "decision.logged"
	EventInterventionCreated  EventType = "intervention.created"
	EventInterventionResolved EventType = "intervention.resolved"
	EventInterventionExpired  EventType = "intervention.expired"
	EventGuardrailCreated     EventType = "guardrail.created"
	EventGuardrailUpdated     EventType = "guardrail.updated"
	EventGuardrailDeleted     EventType = "guardrail.deleted"
	EventPolicyUpdated        EventType = "policy.updated"
)

// EventTypes returns every known event type.
func EventTypes() []EventType {
	return []EventType{
		EventDecisionLogged,
		EventInterventionCreated,
		EventInterventionResolved,
		EventInterventionExpired,
		EventGuardrailCreated,
		EventGuardrailUpdated,
		EventGuardrailDeleted,
		EventPolicyUpdated,
	}
}

// IsValid reports whether e is a known event type.
func (e EventType) IsValid() bool {
	for _, known := range EventTypes() {
		if e == known {
			return true
		}
	}
	return false
}

// Record is one audit trail entry.
type Record struct {
	// Identity
	ID        string    `json:"id"`
	EventType EventType `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`

	// Who acted, and on what
	Actor     string `json:"actor"`
	SubjectID string `json:"subject_id"`

	// Decision context, empty for guardrail and policy events
	DecisionID string   `json:"decision_id,omitempty"`
	UserID     string   `json:"user_id,omitempty"`
	SessionID  string   `json:"session_id,omitempty"`
	Action     string   `json:"action,omitempty"`
	Status     string   `json:"status,omitempty"`
	RiskScore  int      `json:"risk_score"`
	Guardrails []string `json:"guardrails,omitempty"`

	// Free text, truncated by the recorder
	Summary string `json:"summary,omitempty"`

	// SHA-256 of the JSON encoding of the subject at the time of the event
	PayloadHash string `json:"payload_hash,omitempty"`

	RecordedAt time.Time `json:"recorded_at"`
}

// Query filters audit records. Zero-valued fields do not filter.
type Query struct {
	StartTime *time.Time
	EndTime   *time.Time

	ID         string
	EventType  EventType
	Actor      string
	SubjectID  string
	DecisionID string
	UserID     string
	Status     string

	MinRiskScore *int
	MaxRiskScore *int

	Limit  int
	Offset int

	// SortOrder is "asc" or "desc" by timestamp; the default is "desc".
	SortOrder string
}

// Storage persists audit records.
type Storage interface {
	// Store persists a record.
	Store(ctx context.Context, record *Record) error

	// Query returns records matching the filters.
	Query(ctx context.Context, query *Query) ([]*Record, error)

	// QueryStream streams records matching the filters. Both channels are
	// closed when the query completes.
	QueryStream(ctx context.Context, query *Query) (<-chan *Record, <-chan error, error)

	// Count returns the number of records matching the filters.
	Count(ctx context.Context, query *Query) (int64, error)

	// Delete removes records matching the filters and returns how many were
	// removed.
	Delete(ctx context.Context, query *Query) (int64, error)

	Close() error
}

// Exporter writes records in some external format.
type Exporter interface {
	Export(ctx context.Context, records []*Record, w io.Writer) error
}

package intervention

import "time"

// Type is the kind of human review requested or performed.
type Type string

const (
	TypeApproval     Type = "approval"
	TypeRejection    Type = "rejection"
	TypeModification Type = "modification"
	TypeEscalation   Type = "escalation"
	TypeOverride     Type = "override"
)

// IsValid reports whether t is a known intervention type.
func (t Type) IsValid() bool {
	switch t {
	case TypeApproval, TypeRejection, TypeModification, TypeEscalation, TypeOverride:
		return true
	}
	return false
}

// Status is the lifecycle state of an intervention. resolved and expired are
// terminal.
type Status string

const (
	StatusPending  Status = "pending"
	StatusResolved Status = "resolved"
	StatusExpired  Status = "expired"
)

// IsValid reports whether s is a known status.
func (s Status) IsValid() bool {
	return s == StatusPending || s == StatusResolved || s == StatusExpired
}

// Priority orders interventions for reviewers.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

// rank orders priorities, lowest rank first.
func (p Priority) rank() int {
	switch p {
	case PriorityCritical:
		return 0
	case PriorityHigh:
		return 1
	case PriorityMedium:
		return 2
	default:
		return 3
	}
}

// PriorityFor derives the priority from a decision risk score.
func PriorityFor(riskScore int) Priority {
	switch {
	case riskScore >= 80:
		return PriorityCritical
	case riskScore >= 60:
		return PriorityHigh
	case riskScore >= 40:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

// Intervention is a human-in-the-loop review request for one decision.
type Intervention struct {
	ID             string     `json:"id"`
	DecisionID     string     `json:"decisionId"`
	Type           Type       `json:"type"`
	RequestedAt    time.Time  `json:"requestedAt"`
	RequestedBy    string     `json:"requestedBy"`
	ResolvedAt     *time.Time `json:"resolvedAt,omitempty"`
	ResolvedBy     string     `json:"resolvedBy,omitempty"`
	Reason         string     `json:"reason"`
	ReasonAr       string     `json:"reasonAr,omitempty"`
	Notes          string     `json:"notes,omitempty"`
	OriginalAction string     `json:"originalAction"`
	ModifiedAction string     `json:"modifiedAction,omitempty"`
	Status         Status     `json:"status"`
	Priority       Priority   `json:"priority"`
	ExpiresAt      time.Time  `json:"expiresAt"`
}

// Clone returns a copy of the intervention.
func (i *Intervention) Clone() *Intervention {
	if i == nil {
		return nil
	}
	out := *i
	if i.ResolvedAt != nil {
		t := *i.ResolvedAt
		out.ResolvedAt = &t
	}
	return &out
}

// Request describes the intervention to create for a decision.
type Request struct {
	DecisionID     string
	RiskScore      int
	OriginalAction string
	Type           Type
	RequestedBy    string
	Reason         string
	ReasonAr       string
}

// Resolution is a reviewer's verdict on a pending intervention.
type Resolution struct {
	ResolvedBy     string `json:"resolvedBy"`
	Type           Type   `json:"type"`
	Notes          string `json:"notes,omitempty"`
	ModifiedAction string `json:"modifiedAction,omitempty"`
}

// Expiry holds the review window per priority.
type Expiry struct {
	Critical time.Duration `yaml:"critical"`
	High     time.Duration `yaml:"high"`
	Medium   time.Duration `yaml:"medium"`
	Low      time.Duration `yaml:"low"`
}

// DefaultExpiry returns the default review windows.
func DefaultExpiry() Expiry {
	return Expiry{
		Critical: time.Hour,
		High:     4 * time.Hour,
		Medium:   24 * time.Hour,
		Low:      24 * time.Hour,
	}
}

// For returns the window for priority p, falling back to the default window
// when the configured one is not positive.
func (e Expiry) For(p Priority) time.Duration {
	def := DefaultExpiry()
	var got, fallback time.Duration
	switch p {
	case PriorityCritical:
		got, fallback = e.Critical, def.Critical
	case PriorityHigh:
		got, fallback = e.High, def.High
	case PriorityMedium:
		got, fallback = e.Medium, def.Medium
	default:
		got, fallback = e.Low, def.Low
	}
	if got <= 0 {
		return fallback
	}
	return got
}

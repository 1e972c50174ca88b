package governance

import (
	"context"

	"mercator-hq/overseer/pkg/governance/decision"
)

// Stats summarizes logged decisions.
type Stats struct {
	TotalDecisions       int     `json:"totalDecisions"`
	AutoApproved         int     `json:"autoApproved"`
	HumanReviewed        int     `json:"humanReviewed"`
	Rejected             int     `json:"rejected"`
	Escalated            int     `json:"escalated"`
	Pending              int     `json:"pending"`
	GuardrailsTriggered  int     `json:"guardrailsTriggered"`
	AverageRiskScore     float64 `json:"averageRiskScore"`
	PendingInterventions int     `json:"pendingInterventions"`
	ActiveGuardrails     int     `json:"activeGuardrails"`
}

// GetStats aggregates every stored decision. AverageRiskScore is zero when
// nothing has been logged.
func (s *Service) GetStats(ctx context.Context) (*Stats, error) {
	s.mu.RLock()
	all, err := s.decisions.List(ctx, decision.Filter{})
	pending := s.interventions.PendingCount()
	s.mu.RUnlock()
	s.flushExpired()
	if err != nil {
		return nil, err
	}

	st := &Stats{
		TotalDecisions:       len(all),
		PendingInterventions: pending,
		ActiveGuardrails:     len(s.guardrails.Enabled()),
	}
	riskSum := 0
	for _, d := range all {
		riskSum += d.RiskScore
		st.GuardrailsTriggered += len(d.GuardrailsTriggered)
		if d.HumanReview != nil {
			st.HumanReviewed++
		}
		switch d.Status {
		case decision.StatusAutoApproved:
			st.AutoApproved++
		case decision.StatusRejected:
			st.Rejected++
		case decision.StatusEscalated:
			st.Escalated++
		case decision.StatusPending:
			st.Pending++
		}
	}
	if len(all) > 0 {
		st.AverageRiskScore = float64(riskSum) / float64(len(all))
	}
	return st, nil
}

package decision

import (
	"strings"

	"mercator-hq/overseer/pkg/governance/guardrail"
)

// Risk score weights.
const (
	baseRisk             = 20
	perGuardrailRisk     = 15
	largeContextTokens   = 4000
	largeContextRisk     = 10
	premiumModelRisk     = 5
	escalateThreshold    = 70
	pendingThreshold     = 50
	maxRiskScore         = 100
	premiumModelFragment = "gpt-4"
)

// keywordRisk adds weight for dangerous verbs in the action text. Every
// matching keyword counts.
var keywordRisk = []struct {
	Keyword string
	Weight  int
}{
	{Keyword: "delete", Weight: 25},
	{Keyword: "execute", Weight: 20},
	{Keyword: "deploy", Weight: 20},
	{Keyword: "modify", Weight: 15},
}

// RiskScore computes the 0-100 heuristic risk of an action. It is
// non-decreasing in triggered.
func RiskScore(action, model string, tokens, triggered int) int {
	text := strings.ToLower(action)

	score := baseRisk + perGuardrailRisk*triggered
	for _, kr := range keywordRisk {
		if strings.Contains(text, kr.Keyword) {
			score += kr.Weight
		}
	}
	if strings.Contains(strings.ToLower(model), premiumModelFragment) {
		score += premiumModelRisk
	}
	if tokens > largeContextTokens {
		score += largeContextRisk
	}

	if score < 0 {
		return 0
	}
	if score > maxRiskScore {
		return maxRiskScore
	}
	return score
}

// DetermineStatus derives the initial status from the severities of the
// triggered guardrails and the risk score. Any block severity escalates.
func DetermineStatus(severities []guardrail.Severity, riskScore int) Status {
	for _, s := range severities {
		if s == guardrail.SeverityBlock {
			return StatusEscalated
		}
	}
	switch {
	case riskScore >= escalateThreshold:
		return StatusEscalated
	case riskScore >= pendingThreshold:
		return StatusPending
	default:
		return StatusAutoApproved
	}
}

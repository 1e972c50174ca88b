package decision

import (
	"regexp"
	"strings"

	"mercator-hq/overseer/pkg/governance/predicate"
)

// DefaultTokenLimit is the token budget used for tokens.ratio.
const DefaultTokenLimit = 8000

// DefaultRestrictedModels returns the model deny-list used when none is
// configured.
func DefaultRestrictedModels() []string {
	return []string{"gpt-4-base", "text-davinci-003", "uncensored-llm"}
}

// actionRule classifies an action by keyword. Rules are checked in order.
type actionRule struct {
	Type     string
	Keywords []string
}

var actionRules = []actionRule{
	{Type: "execute", Keywords: []string{"execute"}},
	{Type: "deploy", Keywords: []string{"deploy"}},
	{Type: "delete", Keywords: []string{"delete"}},
	{Type: "modify", Keywords: []string{"modify", "update"}},
	{Type: "db_modify", Keywords: []string{"database", "schema", "migration", "sql"}},
	{Type: "read", Keywords: []string{"read", "view", "fetch", "list"}},
	{Type: "create", Keywords: []string{"create", "insert"}},
}

// riskRules derive the keyword risk level, first match wins.
var riskRules = []struct {
	Level    string
	Keywords []string
}{
	{Level: "high", Keywords: []string{"delete", "execute", "deploy", "schema", "production", "admin"}},
	{Level: "medium", Keywords: []string{"modify", "update", "create", "import"}},
}

// unsafePattern is one content pattern lowering the safety score.
type unsafePattern struct {
	Name string
	re   *regexp.Regexp
}

var unsafePatterns = []unsafePattern{
	{Name: "hacking", re: regexp.MustCompile(`(?i)\bhack(ing|er|s)?\b|\bexploit\b`)},
	{Name: "credential-theft", re: regexp.MustCompile(`(?i)\b(steal|dump|exfiltrate|harvest)\w*\s+(\w+\s+)?(credentials?|passwords?|secrets?|tokens?)\b`)},
	{Name: "injection", re: regexp.MustCompile(`(?i)('|")\s*or\s+'?1'?\s*=\s*'?1|\bunion\s+select\b|;\s*--`)},
	{Name: "script-tag", re: regexp.MustCompile(`(?i)<\s*script\b`)},
	{Name: "destructive-shell", re: regexp.MustCompile(`(?i)\brm\s+-(rf|fr)\b|\bmkfs\b|\bdd\s+if=|:\(\)\s*\{`)},
	{Name: "destructive-sql", re: regexp.MustCompile(`(?i)\bdrop\s+(table|database|schema)\b|\btruncate\s+table\b`)},
}

var (
	productionPattern = regexp.MustCompile(`(?i)\bprod(uction)?\b`)
	stagingPattern    = regexp.MustCompile(`(?i)\bstag(ing|e)\b`)
)

// ContextBuilder derives the predicate evaluation context from a submitted
// action and its principal.
type ContextBuilder struct {
	tokenLimit int
	restricted map[string]bool
}

// NewContextBuilder creates a builder. A non-positive tokenLimit uses
// DefaultTokenLimit; a nil restricted list uses DefaultRestrictedModels.
func NewContextBuilder(tokenLimit int, restricted []string) *ContextBuilder {
	if tokenLimit <= 0 {
		tokenLimit = DefaultTokenLimit
	}
	if restricted == nil {
		restricted = DefaultRestrictedModels()
	}
	set := make(map[string]bool, len(restricted))
	for _, m := range restricted {
		set[strings.ToLower(strings.TrimSpace(m))] = true
	}
	return &ContextBuilder{tokenLimit: tokenLimit, restricted: set}
}

// TokenLimit returns the configured token budget.
func (b *ContextBuilder) TokenLimit() int {
	return b.tokenLimit
}

// Build derives the evaluation context for in as submitted by p.
func (b *ContextBuilder) Build(in Input, p Principal) *predicate.Context {
	var ac ActionContext
	if in.Context != nil {
		ac = *in.Context
	}

	text := strings.ToLower(in.Action)
	intent := strings.ToLower(ac.Intent)

	scope := "project"
	if strings.Contains(intent, "global") {
		scope = "global"
	}
	risk := RiskLevel(text)
	patterns := MatchUnsafePatterns(in.Action + "\n" + ac.Input + "\n" + ac.Intent)

	return &predicate.Context{
		Action: predicate.ActionInfo{
			Name:      in.Action,
			Type:      ClassifyAction(text),
			Target:    target(in.Action),
			Scope:     scope,
			RiskLevel: risk,
		},
		Environment: predicate.EnvironmentInfo{Name: environment(in.Action, ac.Intent)},
		Data:        predicate.DataInfo{Type: dataType(text)},
		Tokens: predicate.TokenInfo{
			Used:  ac.Tokens,
			Limit: b.tokenLimit,
			Ratio: float64(ac.Tokens) / float64(b.tokenLimit),
		},
		Safety: predicate.SafetyInfo{
			Score:           SafetyScore(len(patterns)),
			MatchedPatterns: patterns,
		},
		Model: predicate.ModelInfo{
			Name:       ac.Model,
			Restricted: b.restricted[strings.ToLower(strings.TrimSpace(ac.Model))],
		},
		Scope: predicate.ScopeInfo{Level: scope},
		Risk:  predicate.RiskInfo{Level: risk},
		User: predicate.UserInfo{
			ID:          p.ID,
			IsOwner:     p.IsOwner,
			PIIAccess:   p.PIIAccess,
			Roles:       append([]string(nil), p.Roles...),
			Permissions: append([]string(nil), p.Permissions...),
		},
		Input:  ac.Input,
		Intent: ac.Intent,
	}
}

// ClassifyAction returns the action type for lower-cased action text.
func ClassifyAction(text string) string {
	for _, rule := range actionRules {
		for _, k := range rule.Keywords {
			if strings.Contains(text, k) {
				return rule.Type
			}
		}
	}
	return "unknown"
}

// RiskLevel returns high, medium or low for lower-cased action text.
func RiskLevel(text string) string {
	for _, rule := range riskRules {
		for _, k := range rule.Keywords {
			if strings.Contains(text, k) {
				return rule.Level
			}
		}
	}
	return "low"
}

// MatchUnsafePatterns returns the names of unsafe patterns found in text.
func MatchUnsafePatterns(text string) []string {
	var matched []string
	for _, p := range unsafePatterns {
		if p.re.MatchString(text) {
			matched = append(matched, p.Name)
		}
	}
	return matched
}

// SafetyScore starts at 1.0 and drops 0.15 per matched pattern, floored at 0.
func SafetyScore(matched int) float64 {
	score := 100 - 15*matched
	if score < 0 {
		score = 0
	}
	return float64(score) / 100
}

func target(action string) string {
	fields := strings.Fields(action)
	if len(fields) < 2 {
		return ""
	}
	return strings.Join(fields[1:], " ")
}

func environment(action, intent string) string {
	switch {
	case productionPattern.MatchString(action) || productionPattern.MatchString(intent):
		return "production"
	case stagingPattern.MatchString(action) || stagingPattern.MatchString(intent):
		return "staging"
	default:
		return "development"
	}
}

func dataType(text string) string {
	switch {
	case strings.Contains(text, "pii") || strings.Contains(text, "personal"):
		return "pii"
	case strings.Contains(text, "financial"):
		return "financial"
	default:
		return "standard"
	}
}

package predicate

import "strings"

// Context is the evaluation context a predicate is matched against. It is built
// once per proposed action by the decision engine and never mutated during
// evaluation.
type Context struct {
	Action      ActionInfo
	Environment EnvironmentInfo
	Data        DataInfo
	Tokens      TokenInfo
	Safety      SafetyInfo
	Model       ModelInfo
	Scope       ScopeInfo
	Risk        RiskInfo
	User        UserInfo

	// Input and Intent are the free-text fields submitted with the action.
	Input  string
	Intent string

	// Extra carries host-supplied attributes reachable only through dotted-path
	// lookup (custom predicates). Keys never shadow the built-in sections.
	Extra map[string]any
}

// ActionInfo describes the proposed action.
type ActionInfo struct {
	Name      string
	Type      string
	Target    string
	Scope     string
	RiskLevel string
}

// EnvironmentInfo describes the environment the action targets.
type EnvironmentInfo struct {
	Name string
}

// IsProduction reports whether the action targets production.
func (e EnvironmentInfo) IsProduction() bool {
	return e.Name == "production"
}

// DataInfo classifies the data the action touches.
type DataInfo struct {
	Type string
}

// TokenInfo captures token usage against the configured limit.
type TokenInfo struct {
	Used  int
	Limit int
	Ratio float64
}

// SafetyInfo is the content safety assessment of the action text.
type SafetyInfo struct {
	Score           float64
	MatchedPatterns []string
}

// ModelInfo describes the model proposing the action.
type ModelInfo struct {
	Name       string
	Restricted bool
}

// ScopeInfo is the derived blast radius of the action.
type ScopeInfo struct {
	Level string
}

// RiskInfo is the keyword-derived risk level.
type RiskInfo struct {
	Level string
}

// UserInfo holds the attributes of the principal submitting the action.
type UserInfo struct {
	ID          string
	IsOwner     bool
	PIIAccess   bool
	Roles       []string
	Permissions []string
}

// PrimaryRole returns the first role, or "user" when none are set.
func (u UserInfo) PrimaryRole() string {
	if len(u.Roles) == 0 {
		return "user"
	}
	return u.Roles[0]
}

// Raw returns the nested map view of the context used for dotted-path lookup.
// Keys mirror the field names accepted by the typed resolver.
func (c *Context) Raw() map[string]any {
	raw := map[string]any{
		"action": map[string]any{
			"name":      c.Action.Name,
			"type":      c.Action.Type,
			"target":    c.Action.Target,
			"scope":     c.Action.Scope,
			"riskLevel": c.Action.RiskLevel,
		},
		"environment": map[string]any{
			"name":         c.Environment.Name,
			"isProduction": c.Environment.IsProduction(),
		},
		"data": map[string]any{
			"type":        c.Data.Type,
			"containsPII": c.Data.Type == "pii",
		},
		"tokens": map[string]any{
			"used":  c.Tokens.Used,
			"limit": c.Tokens.Limit,
			"ratio": c.Tokens.Ratio,
		},
		"safety": map[string]any{
			"score":           c.Safety.Score,
			"matchedPatterns": len(c.Safety.MatchedPatterns),
		},
		"model": map[string]any{
			"name":       c.Model.Name,
			"restricted": c.Model.Restricted,
		},
		"scope": map[string]any{
			"level": c.Scope.Level,
		},
		"risk": map[string]any{
			"level": c.Risk.Level,
		},
		"user": map[string]any{
			"id":          c.User.ID,
			"isOwner":     c.User.IsOwner,
			"piiAccess":   c.User.PIIAccess,
			"role":        c.User.PrimaryRole(),
			"roles":       strings.Join(c.User.Roles, " "),
			"permissions": strings.Join(c.User.Permissions, " "),
		},
		"input":  c.Input,
		"intent": c.Intent,
	}

	for k, v := range c.Extra {
		if _, exists := raw[k]; exists {
			continue
		}
		raw[k] = v
	}

	return raw
}

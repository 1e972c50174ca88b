// Package compiler derives structured predicates from free-text guardrail
// conditions.
//
// Compilation is best-effort keyword matching over an ordered strategy table.
// The first strategy whose Match function accepts the lower-cased condition
// builds the predicate; when none does, a per-category default is used. The
// derived predicate is not guaranteed to capture everything the condition
// text says.
package compiler

import (
	"regexp"
	"strconv"
	"strings"

	"mercator-hq/overseer/pkg/governance/predicate"
)

const (
	// DefaultTokenRatio is the token-threshold ratio used when the condition
	// text carries no usable number.
	DefaultTokenRatio = 0.8

	// DefaultSafetyScore is the safety-score floor used when the condition
	// text carries no usable number.
	DefaultSafetyScore = 0.7
)

// Strategy is one keyword heuristic in the compilation table.
type Strategy struct {
	// Name identifies the strategy in Explain output.
	Name string

	// Match reports whether the strategy applies to the lower-cased condition.
	Match func(text string) bool

	// Build produces the predicate for the lower-cased condition.
	Build func(text string) *predicate.Predicate
}

// Strategies is the ordered compilation table. Order is significant: combined
// strategies such as execute-in-production must run before their single
// keyword counterparts.
var Strategies = []Strategy{
	{
		Name:  "execute-in-production",
		Match: containsAll("execute", "production"),
		Build: func(string) *predicate.Predicate {
			return predicate.And(predicate.TypeActionType,
				actionIs("execute"),
				environmentIs("production"),
			)
		},
	},
	{
		Name:  "delete-in-production",
		Match: containsAll("delete", "production"),
		Build: func(string) *predicate.Predicate {
			return predicate.And(predicate.TypeActionType,
				actionIs("delete"),
				environmentIs("production"),
			)
		},
	},
	{
		Name:  "token-threshold",
		Match: containsAny("token"),
		Build: func(text string) *predicate.Predicate {
			return predicate.Leaf(predicate.TypeTokenThreshold, "tokens.ratio",
				predicate.OperatorGreaterThan, threshold(text, DefaultTokenRatio))
		},
	},
	{
		Name:  "content-safety",
		Match: containsAny("safety", "unsafe", "harmful", "toxic"),
		Build: func(text string) *predicate.Predicate {
			return predicate.Leaf(predicate.TypeSafetyScore, "safety.score",
				predicate.OperatorLessThan, threshold(text, DefaultSafetyScore))
		},
	},
	{
		Name:  "pii-access",
		Match: containsAny("pii", "personal"),
		Build: func(string) *predicate.Predicate {
			return piiWithoutAccess()
		},
	},
	{
		Name:  "restricted-model",
		Match: containsAll("restricted", "model"),
		Build: func(string) *predicate.Predicate {
			return modelRestricted()
		},
	},
	{
		Name:  "global-scope",
		Match: containsAny("global", "scope"),
		Build: func(string) *predicate.Predicate {
			return predicate.And(predicate.TypeScopeBoundary,
				predicate.Leaf(predicate.TypeScopeBoundary, "scope.level", predicate.OperatorEquals, "global"),
				notOwner(predicate.TypeScopeBoundary),
			)
		},
	},
	{
		Name:  "owner-only",
		Match: containsAny("owner", "admin", "role"),
		Build: func(string) *predicate.Predicate {
			return notOwner(predicate.TypeRoleCheck)
		},
	},
	{
		Name:  "permission",
		Match: containsAny("permission"),
		Build: func(string) *predicate.Predicate {
			return predicate.Not(predicate.TypePermissionCheck,
				predicate.Leaf(predicate.TypePermissionCheck, "user.permissions", predicate.OperatorContains, "admin"))
		},
	},
	{
		Name:  "execute",
		Match: containsAny("execute"),
		Build: func(string) *predicate.Predicate { return actionIs("execute") },
	},
	{
		Name:  "delete",
		Match: containsAny("delete"),
		Build: func(string) *predicate.Predicate { return actionIs("delete") },
	},
	{
		Name:  "deploy",
		Match: containsAny("deploy"),
		Build: func(string) *predicate.Predicate { return actionIs("deploy") },
	},
	{
		Name:  "database",
		Match: containsAny("database", "schema", "db_modify", "sql"),
		Build: func(string) *predicate.Predicate { return actionIs("db_modify") },
	},
	{
		Name:  "high-risk",
		Match: containsAny("risk"),
		Build: func(string) *predicate.Predicate { return highRisk() },
	},
	{
		Name:  "production",
		Match: containsAny("production"),
		Build: func(string) *predicate.Predicate { return environmentIs("production") },
	},
}

// categoryDefaults holds the fallback predicate per guardrail category.
var categoryDefaults = map[string]func() *predicate.Predicate{
	"content": func() *predicate.Predicate {
		return predicate.Leaf(predicate.TypeSafetyScore, "safety.score", predicate.OperatorLessThan, DefaultSafetyScore)
	},
	"action": highRisk,
	"data-access": func() *predicate.Predicate {
		return predicate.Leaf(predicate.TypeDataType, "data.type", predicate.OperatorEquals, "pii")
	},
	"resource": func() *predicate.Predicate {
		return predicate.Leaf(predicate.TypeTokenThreshold, "tokens.ratio", predicate.OperatorGreaterThan, DefaultTokenRatio)
	},
	"scope": func() *predicate.Predicate {
		return predicate.Leaf(predicate.TypeScopeBoundary, "scope.level", predicate.OperatorEquals, "global")
	},
	"security": modelRestricted,
}

// Compile derives a predicate from condition text, falling back to the default
// predicate for category when no strategy matches. It never returns nil.
func Compile(condition, category string) *predicate.Predicate {
	p, _ := compile(condition, category)
	return p
}

// Explain returns the name of the strategy Compile would use for the
// condition, or "fallback:<category>" when none matches.
func Explain(condition, category string) string {
	_, name := compile(condition, category)
	return name
}

func compile(condition, category string) (*predicate.Predicate, string) {
	text := strings.ToLower(condition)
	for _, s := range Strategies {
		if s.Match(text) {
			return s.Build(text), s.Name
		}
	}

	if build, ok := categoryDefaults[category]; ok {
		return build(), "fallback:" + category
	}
	return highRisk(), "fallback:" + category
}

var numberPattern = regexp.MustCompile(`\d*\.?\d+`)

// threshold returns the first number in text within (0, 1], or def.
func threshold(text string, def float64) float64 {
	for _, lit := range numberPattern.FindAllString(text, -1) {
		v, err := strconv.ParseFloat(lit, 64)
		if err != nil {
			continue
		}
		if v > 0 && v <= 1 {
			return v
		}
	}
	return def
}

func containsAny(keywords ...string) func(string) bool {
	return func(text string) bool {
		for _, k := range keywords {
			if strings.Contains(text, k) {
				return true
			}
		}
		return false
	}
}

func containsAll(keywords ...string) func(string) bool {
	return func(text string) bool {
		for _, k := range keywords {
			if !strings.Contains(text, k) {
				return false
			}
		}
		return true
	}
}

func actionIs(actionType string) *predicate.Predicate {
	return predicate.Leaf(predicate.TypeActionType, "action.type", predicate.OperatorEquals, actionType)
}

func environmentIs(env string) *predicate.Predicate {
	return predicate.Leaf(predicate.TypeEnvironment, "environment.name", predicate.OperatorEquals, env)
}

func highRisk() *predicate.Predicate {
	return predicate.Leaf(predicate.TypeRiskLevel, "risk.level", predicate.OperatorEquals, "high")
}

func modelRestricted() *predicate.Predicate {
	return predicate.Leaf(predicate.TypeModelRestricted, "model.restricted", predicate.OperatorEquals, true)
}

func notOwner(t predicate.Type) *predicate.Predicate {
	return predicate.Not(t, predicate.Leaf(t, "user.isOwner", predicate.OperatorEquals, true))
}

func piiWithoutAccess() *predicate.Predicate {
	return predicate.And(predicate.TypeDataType,
		predicate.Leaf(predicate.TypeDataType, "data.type", predicate.OperatorEquals, "pii"),
		predicate.Not(predicate.TypePermissionCheck,
			predicate.Leaf(predicate.TypePermissionCheck, "user.piiAccess", predicate.OperatorEquals, true)),
	)
}

// Package policy stores named, prioritized rule sets.
//
// Policies are declarative: they can be listed and updated, but the decision
// engine does not consult them when evaluating actions.
package policy

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// Action is what a policy rule prescribes.
type Action string

const (
	ActionAllow           Action = "allow"
	ActionDeny            Action = "deny"
	ActionRequireApproval Action = "require-approval"
	ActionLog             Action = "log"
)

// IsValid reports whether a is a known rule action.
func (a Action) IsValid() bool {
	switch a {
	case ActionAllow, ActionDeny, ActionRequireApproval, ActionLog:
		return true
	}
	return false
}

// Rule is one entry of a policy.
type Rule struct {
	Condition string `json:"condition" yaml:"condition"`
	Action    Action `json:"action" yaml:"action"`
	Priority  int    `json:"priority" yaml:"priority"`
}

// Policy is a named rule set.
type Policy struct {
	ID          string    `json:"id" yaml:"id"`
	Name        string    `json:"name" yaml:"name"`
	NameAr      string    `json:"nameAr,omitempty" yaml:"name_ar,omitempty"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
	Rules       []Rule    `json:"rules" yaml:"rules"`
	Enabled     bool      `json:"enabled" yaml:"enabled"`
	UpdatedAt   time.Time `json:"updatedAt" yaml:"updated_at"`
}

// Clone returns a deep copy of the policy.
func (p *Policy) Clone() *Policy {
	if p == nil {
		return nil
	}
	out := *p
	out.Rules = append([]Rule(nil), p.Rules...)
	return &out
}

// Patch is a partial policy update. Nil fields are left unchanged.
type Patch struct {
	Name        *string `json:"name,omitempty"`
	NameAr      *string `json:"nameAr,omitempty"`
	Description *string `json:"description,omitempty"`
	Rules       []Rule  `json:"rules,omitempty"`
	Enabled     *bool   `json:"enabled,omitempty"`
}

// Registry is a keyed store of policies. It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	policies map[string]*Policy
	clock    func() time.Time
	logger   *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		policies: make(map[string]*Policy),
		clock:    time.Now,
		logger:   logger.With("component", "policy.registry"),
	}
}

// WithClock overrides the clock for deterministic testing.
func (r *Registry) WithClock(clock func() time.Time) *Registry {
	r.clock = clock
	return r
}

// Seed stores policies whose id is not yet present and returns the number
// added.
func (r *Registry) Seed(policies []*Policy) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	added := 0
	for _, p := range policies {
		if p == nil || p.ID == "" {
			continue
		}
		if _, exists := r.policies[p.ID]; exists {
			continue
		}
		c := p.Clone()
		sortRules(c.Rules)
		if c.UpdatedAt.IsZero() {
			c.UpdatedAt = r.clock()
		}
		r.policies[c.ID] = c
		added++
	}
	return added
}

// List returns every policy sorted by id.
func (r *Registry) List() []*Policy {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Policy, 0, len(r.policies))
	for _, p := range r.policies {
		out = append(out, p.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Get returns the policy with the given id.
func (r *Registry) Get(id string) (*Policy, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.policies[id]
	if !ok {
		return nil, false
	}
	return p.Clone(), true
}

// Update merges patch into the policy and bumps UpdatedAt. Replacement rules
// must use known actions and are stored highest priority first.
func (r *Registry) Update(id string, patch Patch) (*Policy, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.policies[id]
	if !ok {
		return nil, false, nil
	}

	for i, rule := range patch.Rules {
		if !rule.Action.IsValid() {
			return nil, true, fmt.Errorf("rule %d: unknown action %q", i, rule.Action)
		}
	}

	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.NameAr != nil {
		p.NameAr = *patch.NameAr
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.Rules != nil {
		p.Rules = append([]Rule(nil), patch.Rules...)
		sortRules(p.Rules)
	}
	if patch.Enabled != nil {
		p.Enabled = *patch.Enabled
	}
	p.UpdatedAt = r.clock()

	r.logger.Info("policy updated", "policy_id", id, "rule_count", len(p.Rules))
	return p.Clone(), true, nil
}

// Snapshot returns copies of every policy sorted by id.
func (r *Registry) Snapshot() []*Policy {
	return r.List()
}

// Restore replaces the registry contents.
func (r *Registry) Restore(policies []*Policy) {
	r.mu.Lock()
	r.policies = make(map[string]*Policy, len(policies))
	r.mu.Unlock()
	r.Seed(policies)
}

func sortRules(rules []Rule) {
	sort.SliceStable(rules, func(i, j int) bool { return rules[i].Priority > rules[j].Priority })
}

// Defaults returns the illustrative policies seeded at bootstrap.
func Defaults() []*Policy {
	return []*Policy{
		{
			ID:          "policy-data-protection",
			Name:        "Data Protection",
			NameAr:      "حماية البيانات",
			Description: "Personal data handling requires approval; bulk exports are denied.",
			Enabled:     true,
			Rules: []Rule{
				{Condition: "bulk export of personal data", Action: ActionDeny, Priority: 100},
				{Condition: "access to personal data", Action: ActionRequireApproval, Priority: 50},
				{Condition: "access to anonymised data", Action: ActionAllow, Priority: 10},
			},
		},
		{
			ID:          "policy-production-safety",
			Name:        "Production Safety",
			NameAr:      "سلامة بيئة الإنتاج",
			Description: "Changes to production require approval; reads are logged.",
			Enabled:     true,
			Rules: []Rule{
				{Condition: "deploy to production", Action: ActionRequireApproval, Priority: 90},
				{Condition: "delete in production", Action: ActionDeny, Priority: 100},
				{Condition: "read from production", Action: ActionLog, Priority: 10},
			},
		},
		{
			ID:          "policy-resource-usage",
			Name:        "Resource Usage",
			NameAr:      "استخدام الموارد",
			Description: "Large prompts are logged and runaway usage is denied.",
			Enabled:     true,
			Rules: []Rule{
				{Condition: "tokens above 80% of limit", Action: ActionLog, Priority: 20},
				{Condition: "tokens above limit", Action: ActionDeny, Priority: 80},
			},
		},
	}
}

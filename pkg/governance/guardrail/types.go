package guardrail

import (
	"time"

	"mercator-hq/overseer/pkg/governance/predicate"
)

// Category groups guardrails by the concern they inspect.
type Category string

const (
	CategoryContent    Category = "content"
	CategoryAction     Category = "action"
	CategoryDataAccess Category = "data-access"
	CategoryResource   Category = "resource"
	CategoryScope      Category = "scope"
	CategorySecurity   Category = "security"
)

// Categories returns every guardrail category.
func Categories() []Category {
	return []Category{
		CategoryContent,
		CategoryAction,
		CategoryDataAccess,
		CategoryResource,
		CategoryScope,
		CategorySecurity,
	}
}

// IsValid reports whether c is a known category.
func (c Category) IsValid() bool {
	for _, known := range Categories() {
		if c == known {
			return true
		}
	}
	return false
}

// Severity controls what a triggered guardrail does to a decision.
type Severity string

const (
	// SeverityBlock escalates the decision for human review.
	SeverityBlock Severity = "block"
	// SeverityWarn only raises the risk score.
	SeverityWarn Severity = "warn"
	// SeverityLog only raises the risk score and is recorded.
	SeverityLog Severity = "log"
)

// Severities returns every severity, most severe first.
func Severities() []Severity {
	return []Severity{SeverityBlock, SeverityWarn, SeverityLog}
}

// IsValid reports whether s is a known severity.
func (s Severity) IsValid() bool {
	return s == SeverityBlock || s == SeverityWarn || s == SeverityLog
}

// Guardrail is a named rule inspecting proposed AI actions.
type Guardrail struct {
	ID            string               `json:"id" yaml:"id"`
	Name          string               `json:"name" yaml:"name"`
	NameAr        string               `json:"nameAr,omitempty" yaml:"name_ar,omitempty"`
	Description   string               `json:"description,omitempty" yaml:"description,omitempty"`
	DescriptionAr string               `json:"descriptionAr,omitempty" yaml:"description_ar,omitempty"`
	Condition     string               `json:"condition,omitempty" yaml:"condition,omitempty"`
	ConditionAr   string               `json:"conditionAr,omitempty" yaml:"condition_ar,omitempty"`
	Category      Category             `json:"category" yaml:"category"`
	Severity      Severity             `json:"severity" yaml:"severity"`
	Predicate     *predicate.Predicate `json:"predicate" yaml:"predicate"`
	Enabled       bool                 `json:"enabled" yaml:"enabled"`
	CreatedAt     time.Time            `json:"createdAt" yaml:"created_at"`
	CreatedBy     string               `json:"createdBy" yaml:"created_by"`
	UpdatedAt     time.Time            `json:"updatedAt" yaml:"updated_at"`
}

// Clone returns a deep copy of the guardrail.
func (g *Guardrail) Clone() *Guardrail {
	if g == nil {
		return nil
	}
	out := *g
	out.Predicate = g.Predicate.Clone()
	return &out
}

// Definition is the input for creating a guardrail. A nil Predicate is derived
// from Condition and Category; a nil Enabled defaults to true. ID is optional
// and generated when empty.
type Definition struct {
	ID            string               `json:"id,omitempty" yaml:"id,omitempty"`
	Name          string               `json:"name" yaml:"name"`
	NameAr        string               `json:"nameAr,omitempty" yaml:"name_ar,omitempty"`
	Description   string               `json:"description,omitempty" yaml:"description,omitempty"`
	DescriptionAr string               `json:"descriptionAr,omitempty" yaml:"description_ar,omitempty"`
	Condition     string               `json:"condition,omitempty" yaml:"condition,omitempty"`
	ConditionAr   string               `json:"conditionAr,omitempty" yaml:"condition_ar,omitempty"`
	Category      Category             `json:"category" yaml:"category"`
	Severity      Severity             `json:"severity" yaml:"severity"`
	Predicate     *predicate.Predicate `json:"predicate,omitempty" yaml:"predicate,omitempty"`
	Enabled       *bool                `json:"enabled,omitempty" yaml:"enabled,omitempty"`
}

// Patch is a partial update. Nil fields are left unchanged.
type Patch struct {
	Name          *string              `json:"name,omitempty"`
	NameAr        *string              `json:"nameAr,omitempty"`
	Description   *string              `json:"description,omitempty"`
	DescriptionAr *string              `json:"descriptionAr,omitempty"`
	Condition     *string              `json:"condition,omitempty"`
	ConditionAr   *string              `json:"conditionAr,omitempty"`
	Category      *Category            `json:"category,omitempty"`
	Severity      *Severity            `json:"severity,omitempty"`
	Predicate     *predicate.Predicate `json:"predicate,omitempty"`
	Enabled       *bool                `json:"enabled,omitempty"`
}

func (p Patch) apply(g *Guardrail) {
	if p.Name != nil {
		g.Name = *p.Name
	}
	if p.NameAr != nil {
		g.NameAr = *p.NameAr
	}
	if p.Description != nil {
		g.Description = *p.Description
	}
	if p.DescriptionAr != nil {
		g.DescriptionAr = *p.DescriptionAr
	}
	if p.Condition != nil {
		g.Condition = *p.Condition
	}
	if p.ConditionAr != nil {
		g.ConditionAr = *p.ConditionAr
	}
	if p.Category != nil {
		g.Category = *p.Category
	}
	if p.Severity != nil {
		g.Severity = *p.Severity
	}
	if p.Predicate != nil {
		g.Predicate = p.Predicate.Clone()
	}
	if p.Enabled != nil {
		g.Enabled = *p.Enabled
	}
}

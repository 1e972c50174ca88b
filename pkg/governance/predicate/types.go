package predicate

// Type is the evaluation domain of a predicate. Each domain owns a small set of
// legal field names (see resolve.go).
type Type string

const (
	TypeActionType      Type = "action-type"
	TypeEnvironment     Type = "environment"
	TypeDataType        Type = "data-type"
	TypeTokenThreshold  Type = "token-threshold"
	TypeSafetyScore     Type = "safety-score"
	TypeModelRestricted Type = "model-restricted"
	TypeScopeBoundary   Type = "scope-boundary"
	TypeRiskLevel       Type = "risk-level"
	TypePermissionCheck Type = "permission-check"
	TypeRoleCheck       Type = "role-check"
	TypeCustom          Type = "custom"
)

// Types returns every evaluation domain in declaration order.
func Types() []Type {
	return []Type{
		TypeActionType,
		TypeEnvironment,
		TypeDataType,
		TypeTokenThreshold,
		TypeSafetyScore,
		TypeModelRestricted,
		TypeScopeBoundary,
		TypeRiskLevel,
		TypePermissionCheck,
		TypeRoleCheck,
		TypeCustom,
	}
}

// IsValid reports whether t is one of the known evaluation domains.
func (t Type) IsValid() bool {
	for _, known := range Types() {
		if t == known {
			return true
		}
	}
	return false
}

// Operator is a comparison or boolean combinator.
type Operator string

const (
	OperatorEquals      Operator = "equals"
	OperatorNotEquals   Operator = "not-equals"
	OperatorGreaterThan Operator = "greater-than"
	OperatorLessThan    Operator = "less-than"
	OperatorContains    Operator = "contains"
	OperatorAnd         Operator = "and"
	OperatorOr          Operator = "or"
	OperatorNot         Operator = "not"
)

// IsCombinator reports whether the operator combines child predicates.
func (o Operator) IsCombinator() bool {
	return o == OperatorAnd || o == OperatorOr || o == OperatorNot
}

// IsValid reports whether o is a known operator.
func (o Operator) IsValid() bool {
	switch o {
	case OperatorEquals, OperatorNotEquals, OperatorGreaterThan, OperatorLessThan,
		OperatorContains, OperatorAnd, OperatorOr, OperatorNot:
		return true
	}
	return false
}

// Predicate is a recursive boolean expression evaluated against a Context.
//
// and/or use Children and ignore Field/Value. not negates Children[0] when
// present, otherwise the Field/Value pair. Leaf operators compare the value
// resolved from Field against Value.
type Predicate struct {
	Type     Type         `json:"type" yaml:"type"`
	Field    string       `json:"field,omitempty" yaml:"field,omitempty"`
	Operator Operator     `json:"operator" yaml:"operator"`
	Value    any          `json:"value,omitempty" yaml:"value,omitempty"`
	Children []*Predicate `json:"children,omitempty" yaml:"children,omitempty"`
}

// Leaf builds a leaf comparison predicate.
func Leaf(t Type, field string, op Operator, value any) *Predicate {
	return &Predicate{Type: t, Field: field, Operator: op, Value: value}
}

// And builds an and-combinator of the given children.
func And(t Type, children ...*Predicate) *Predicate {
	return &Predicate{Type: t, Operator: OperatorAnd, Children: children}
}

// Or builds an or-combinator of the given children.
func Or(t Type, children ...*Predicate) *Predicate {
	return &Predicate{Type: t, Operator: OperatorOr, Children: children}
}

// Not negates a single child predicate.
func Not(t Type, child *Predicate) *Predicate {
	return &Predicate{Type: t, Operator: OperatorNot, Children: []*Predicate{child}}
}

// Clone returns a deep copy of the predicate tree.
func (p *Predicate) Clone() *Predicate {
	if p == nil {
		return nil
	}
	out := *p
	if len(p.Children) > 0 {
		out.Children = make([]*Predicate, len(p.Children))
		for i, child := range p.Children {
			out.Children[i] = child.Clone()
		}
	}
	return &out
}

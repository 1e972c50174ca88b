package predicate

import "strings"

// resolver resolves predicate fields against a Context. The raw map view is
// built lazily, only when a field falls through to dotted-path lookup.
type resolver struct {
	ctx *Context
	raw map[string]any
}

func newResolver(ctx *Context) *resolver {
	return &resolver{ctx: ctx}
}

// resolve looks up field for the given evaluation domain. Each domain owns a
// fixed set of field names; anything else falls back to dotted-path traversal
// of the raw context and yields nil when a segment is missing.
func (r *resolver) resolve(t Type, field string) any {
	c := r.ctx

	switch t {
	case TypeActionType:
		switch field {
		case "action.type":
			return c.Action.Type
		case "action.name":
			return c.Action.Name
		case "action.target":
			return c.Action.Target
		case "action.scope":
			return c.Action.Scope
		case "action.riskLevel":
			return c.Action.RiskLevel
		}

	case TypeEnvironment:
		switch field {
		case "environment.name":
			return c.Environment.Name
		case "environment.isProduction":
			return c.Environment.IsProduction()
		}

	case TypeDataType:
		switch field {
		case "data.type":
			return c.Data.Type
		case "data.containsPII":
			return c.Data.Type == "pii"
		}

	case TypeTokenThreshold:
		switch field {
		case "tokens.used":
			return c.Tokens.Used
		case "tokens.limit":
			return c.Tokens.Limit
		case "tokens.ratio":
			return c.Tokens.Ratio
		}

	case TypeSafetyScore:
		switch field {
		case "safety.score":
			return c.Safety.Score
		case "safety.matchedPatterns":
			return len(c.Safety.MatchedPatterns)
		}

	case TypeModelRestricted:
		switch field {
		case "model.name":
			return c.Model.Name
		case "model.restricted":
			return c.Model.Restricted
		}

	case TypeScopeBoundary:
		switch field {
		case "scope.level", "action.scope":
			return c.Scope.Level
		}

	case TypeRiskLevel:
		switch field {
		case "risk.level", "action.riskLevel":
			return c.Risk.Level
		}

	case TypePermissionCheck:
		switch field {
		case "user.permissions":
			return strings.Join(c.User.Permissions, " ")
		case "user.piiAccess":
			return c.User.PIIAccess
		case "user.isOwner":
			return c.User.IsOwner
		}

	case TypeRoleCheck:
		switch field {
		case "user.roles":
			return strings.Join(c.User.Roles, " ")
		case "user.role":
			return c.User.PrimaryRole()
		case "user.isOwner":
			return c.User.IsOwner
		}

	case TypeCustom:
		// custom predicates always use dotted-path lookup
	}

	return r.lookupPath(field)
}

// lookupPath walks a dotted path through the raw context map.
func (r *resolver) lookupPath(path string) any {
	if path == "" {
		return nil
	}
	if r.raw == nil {
		r.raw = r.ctx.Raw()
	}

	var current any = r.raw
	for _, segment := range strings.Split(path, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		current, ok = m[segment]
		if !ok {
			return nil
		}
	}
	return current
}

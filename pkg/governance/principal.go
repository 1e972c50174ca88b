package governance

import (
	"context"
	"strings"

	"mercator-hq/overseer/pkg/governance/decision"
)

// PrincipalResolver maps a user id to its authorization attributes.
type PrincipalResolver interface {
	Resolve(ctx context.Context, userID string) decision.Principal
}

// StaticResolver grants owner attributes to a fixed set of identities and
// baseline attributes to everyone else. Identities compare case-insensitively.
type StaticResolver struct {
	owners map[string]struct{}
}

// NewStaticResolver creates a resolver for the given owner identities.
func NewStaticResolver(owners ...string) *StaticResolver {
	r := &StaticResolver{owners: make(map[string]struct{}, len(owners))}
	for _, o := range owners {
		if o = normalizeID(o); o != "" {
			r.owners[o] = struct{}{}
		}
	}
	return r
}

// IsOwner reports whether userID is a configured owner.
func (r *StaticResolver) IsOwner(userID string) bool {
	_, ok := r.owners[normalizeID(userID)]
	return ok
}

// Resolve implements PrincipalResolver.
func (r *StaticResolver) Resolve(_ context.Context, userID string) decision.Principal {
	if r.IsOwner(userID) {
		return decision.Principal{
			ID:          userID,
			IsOwner:     true,
			PIIAccess:   true,
			Roles:       []string{"owner", "admin", "user"},
			Permissions: []string{"basic", "read", "write", "admin", "pii"},
		}
	}
	return decision.Principal{
		ID:          userID,
		Roles:       []string{"user"},
		Permissions: []string{"basic"},
	}
}

func normalizeID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

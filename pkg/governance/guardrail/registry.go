package guardrail

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/google/uuid"

	"mercator-hq/overseer/pkg/governance/compiler"
)

// SystemPrincipal is the creator recorded for seeded guardrails.
const SystemPrincipal = "system"

// Registry stores guardrail definitions in insertion order.
//
// All methods are safe for concurrent use. Returned guardrails are copies;
// mutating them does not affect the registry.
type Registry struct {
	mu    sync.RWMutex
	items map[string]*Guardrail
	order []string

	now    func() time.Time
	logger *slog.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithClock overrides the clock used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		r.now = now
	}
}

// NewRegistry creates an empty registry. Use Seed to load built-in guardrails.
func NewRegistry(logger *slog.Logger, opts ...Option) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{
		items:  make(map[string]*Guardrail),
		now:    time.Now,
		logger: logger.With("component", "guardrail.registry"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Create validates def and stores a new guardrail. When def has no predicate,
// one is compiled from its condition text and category.
func (r *Registry) Create(def Definition, createdBy string) (*Guardrail, error) {
	if err := validateDefinition(def); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if def.ID != "" {
		if _, exists := r.items[def.ID]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateID, def.ID)
		}
	}

	g := r.build(def, createdBy)
	r.insert(g)

	r.logger.Info("guardrail created",
		"guardrail_id", g.ID,
		"category", g.Category,
		"severity", g.Severity,
		"created_by", createdBy,
	)

	return g.Clone(), nil
}

// UpsertResult reports what Upsert did to the registry.
type UpsertResult int

const (
	// UpsertUnchanged means the stored guardrail already matched def.
	UpsertUnchanged UpsertResult = iota
	// UpsertCreated means a new guardrail was inserted.
	UpsertCreated
	// UpsertUpdated means an existing guardrail was replaced.
	UpsertUpdated
)

// Upsert validates def and replaces the guardrail with the same id, keeping
// its position and creation metadata, or inserts it when absent. def.ID is
// required. A definition identical to the stored guardrail leaves it,
// including UpdatedAt, untouched.
func (r *Registry) Upsert(def Definition, createdBy string) (*Guardrail, UpsertResult, error) {
	if def.ID == "" {
		return nil, UpsertUnchanged, &ValidationError{Errors: []FieldError{{Field: "id", Message: "is required"}}}
	}
	if err := validateDefinition(def); err != nil {
		return nil, UpsertUnchanged, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	g := r.build(def, createdBy)
	existing, ok := r.items[def.ID]
	if !ok {
		r.insert(g)
		return g.Clone(), UpsertCreated, nil
	}
	if sameContent(existing, g) {
		return existing.Clone(), UpsertUnchanged, nil
	}
	g.CreatedAt = existing.CreatedAt
	g.CreatedBy = existing.CreatedBy
	r.items[g.ID] = g
	return g.Clone(), UpsertUpdated, nil
}

// Sink receives the definitions a FileSource loads.
type Sink interface {
	ApplyGuardrails(ctx context.Context, defs []Definition, actor string) (int, error)
}

// ApplyGuardrails upserts every definition and returns how many were valid.
// Invalid definitions are reported together; the rest are still applied.
func (r *Registry) ApplyGuardrails(_ context.Context, defs []Definition, actor string) (int, error) {
	var errs []error
	applied := 0
	for i, def := range defs {
		if _, _, err := r.Upsert(def, actor); err != nil {
			errs = append(errs, fmt.Errorf("guardrail %d (%q): %w", i, def.ID, err))
			continue
		}
		applied++
	}
	return applied, errors.Join(errs...)
}

// sameContent compares the user-visible definition of two guardrails,
// ignoring timestamps and creator.
func sameContent(a, b *Guardrail) bool {
	x, y := *a, *b
	x.CreatedAt, y.CreatedAt = time.Time{}, time.Time{}
	x.UpdatedAt, y.UpdatedAt = time.Time{}, time.Time{}
	x.CreatedBy, y.CreatedBy = "", ""
	return reflect.DeepEqual(x, y)
}

// Seed stores definitions without validation beyond what compilation needs.
// Definitions whose id is already present are skipped. It returns the number
// of guardrails added.
func (r *Registry) Seed(defs []Definition) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	added := 0
	for _, def := range defs {
		if def.ID != "" {
			if _, exists := r.items[def.ID]; exists {
				continue
			}
		}
		r.insert(r.build(def, SystemPrincipal))
		added++
	}

	r.logger.Debug("guardrails seeded", "added", added, "total", len(r.order))
	return added
}

// Update merges patch into the guardrail with the given id. Only the presence
// of a field is checked; values are not validated.
func (r *Registry) Update(id string, patch Patch) (*Guardrail, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.items[id]
	if !ok {
		return nil, false
	}

	patch.apply(g)
	g.UpdatedAt = r.now()

	r.logger.Info("guardrail updated", "guardrail_id", id)
	return g.Clone(), true
}

// Delete removes the guardrail with the given id.
func (r *Registry) Delete(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return false
	}
	delete(r.items, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}

	r.logger.Info("guardrail deleted", "guardrail_id", id)
	return true
}

// Get returns the guardrail with the given id.
func (r *Registry) Get(id string) (*Guardrail, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	g, ok := r.items[id]
	if !ok {
		return nil, false
	}
	return g.Clone(), true
}

// List returns guardrails in insertion order, filtered by category when one
// is given.
func (r *Registry) List(category Category) []*Guardrail {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Guardrail, 0, len(r.order))
	for _, id := range r.order {
		g := r.items[id]
		if category != "" && g.Category != category {
			continue
		}
		out = append(out, g.Clone())
	}
	return out
}

// Enabled returns the enabled guardrails in insertion order.
func (r *Registry) Enabled() []*Guardrail {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Guardrail, 0, len(r.order))
	for _, id := range r.order {
		if g := r.items[id]; g.Enabled {
			out = append(out, g.Clone())
		}
	}
	return out
}

// Len returns the number of stored guardrails.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Snapshot returns copies of every guardrail in insertion order.
func (r *Registry) Snapshot() []*Guardrail {
	return r.List("")
}

// Restore replaces the registry contents with the given guardrails, keeping
// their order. Guardrails without a predicate are compiled.
func (r *Registry) Restore(items []*Guardrail) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items = make(map[string]*Guardrail, len(items))
	r.order = r.order[:0]
	for _, g := range items {
		if g == nil || g.ID == "" {
			continue
		}
		c := g.Clone()
		if c.Predicate == nil {
			c.Predicate = compiler.Compile(c.Condition, string(c.Category))
		}
		r.insert(c)
	}
}

// build converts a definition into a stored guardrail. Callers hold mu.
func (r *Registry) build(def Definition, createdBy string) *Guardrail {
	now := r.now()

	id := def.ID
	if id == "" {
		id = uuid.NewString()
	}

	p := def.Predicate.Clone()
	if p == nil {
		p = compiler.Compile(def.Condition, string(def.Category))
	}

	enabled := true
	if def.Enabled != nil {
		enabled = *def.Enabled
	}

	return &Guardrail{
		ID:            id,
		Name:          def.Name,
		NameAr:        def.NameAr,
		Description:   def.Description,
		DescriptionAr: def.DescriptionAr,
		Condition:     def.Condition,
		ConditionAr:   def.ConditionAr,
		Category:      def.Category,
		Severity:      def.Severity,
		Predicate:     p,
		Enabled:       enabled,
		CreatedAt:     now,
		CreatedBy:     createdBy,
		UpdatedAt:     now,
	}
}

// insert appends g, replacing any entry with the same id. Callers hold mu.
func (r *Registry) insert(g *Guardrail) {
	if _, exists := r.items[g.ID]; !exists {
		r.order = append(r.order, g.ID)
	}
	r.items[g.ID] = g
}

package decision

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"mercator-hq/overseer/pkg/governance/intervention"
)

// Store persists decisions. SetReview is the only mutation after Put.
type Store interface {
	// Put stores a new decision.
	Put(ctx context.Context, d *Decision) error

	// Get returns the decision with the given id or ErrNotFound.
	Get(ctx context.Context, id string) (*Decision, error)

	// List returns decisions matching the filter, newest first.
	List(ctx context.Context, f Filter) ([]*Decision, error)

	// SetReview attaches a resolved intervention and, when status is not
	// empty, replaces the decision status. It applies once: it fails with
	// ErrFinalized when the decision already carries a review or is
	// approved or rejected.
	SetReview(ctx context.Context, id string, review *intervention.Intervention, status Status) (*Decision, error)
}

// MemoryStore is an in-memory Store.
type MemoryStore struct {
	mu        sync.RWMutex
	decisions map[string]*Decision
	order     []string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{decisions: make(map[string]*Decision)}
}

// Put stores a copy of d.
func (s *MemoryStore) Put(ctx context.Context, d *Decision) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.decisions[d.ID]; exists {
		return fmt.Errorf("decision %s already stored", d.ID)
	}
	s.decisions[d.ID] = d.Clone()
	s.order = append(s.order, d.ID)
	return nil
}

// Get returns a copy of the decision with the given id.
func (s *MemoryStore) Get(ctx context.Context, id string) (*Decision, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.decisions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return d.Clone(), nil
}

// List returns copies of matching decisions, newest first. Decisions with
// equal timestamps are ordered by insertion, latest first.
func (s *MemoryStore) List(ctx context.Context, f Filter) ([]*Decision, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	out := make([]*Decision, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		d := s.decisions[s.order[i]]
		if f.Matches(d) {
			out = append(out, d.Clone())
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})

	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

// SetReview attaches review to an unreviewed decision and applies status
// when set.
func (s *MemoryStore) SetReview(ctx context.Context, id string, review *intervention.Intervention, status Status) (*Decision, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.decisions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if d.Reviewed() {
		return nil, fmt.Errorf("%w: %s is %s", ErrFinalized, id, d.Status)
	}

	d.HumanReview = review.Clone()
	if status != "" {
		d.Status = status
	}
	return d.Clone(), nil
}

// Len returns the number of stored decisions.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

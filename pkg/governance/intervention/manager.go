// Package intervention manages human-in-the-loop review requests spawned by
// escalated decisions.
//
// Interventions move from pending to resolved or expired and never leave a
// terminal state. Expiry is evaluated lazily: every read first sweeps pending
// interventions whose ExpiresAt has passed. There is no background timer.
package intervention

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Manager handles the lifecycle of interventions. It is safe for concurrent
// use; sweeps run under the manager lock so no intervention is transitioned
// twice.
type Manager struct {
	mu    sync.Mutex
	items map[string]*Intervention
	order []string

	expiry   Expiry
	clock    func() time.Time
	onExpire func(*Intervention)
	logger   *slog.Logger
}

// NewManager creates a new intervention manager.
func NewManager(expiry Expiry, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		items:  make(map[string]*Intervention),
		expiry: expiry,
		clock:  time.Now,
		logger: logger.With("component", "intervention.manager"),
	}
}

// WithClock overrides the clock for deterministic testing.
func (m *Manager) WithClock(clock func() time.Time) *Manager {
	m.clock = clock
	return m
}

// OnExpire registers a callback invoked, outside the manager lock, for each
// intervention a sweep transitions to expired.
func (m *Manager) OnExpire(fn func(*Intervention)) *Manager {
	m.onExpire = fn
	return m
}

// Create stores a new pending intervention. Priority and ExpiresAt are derived
// from the request's risk score at creation time.
func (m *Manager) Create(req Request) *Intervention {
	now := m.clock()
	priority := PriorityFor(req.RiskScore)

	typ := req.Type
	if typ == "" {
		typ = TypeEscalation
	}

	iv := &Intervention{
		ID:             uuid.NewString(),
		DecisionID:     req.DecisionID,
		Type:           typ,
		RequestedAt:    now,
		RequestedBy:    req.RequestedBy,
		Reason:         req.Reason,
		ReasonAr:       req.ReasonAr,
		OriginalAction: req.OriginalAction,
		Status:         StatusPending,
		Priority:       priority,
		ExpiresAt:      now.Add(m.expiry.For(priority)),
	}

	m.mu.Lock()
	m.items[iv.ID] = iv
	m.order = append(m.order, iv.ID)
	m.mu.Unlock()

	m.logger.Info("intervention created",
		"intervention_id", iv.ID,
		"decision_id", iv.DecisionID,
		"priority", iv.Priority,
		"expires_at", iv.ExpiresAt,
	)

	return iv.Clone()
}

// Resolve applies a reviewer's resolution to a pending intervention and sets
// its type to the resolution type. Terminal interventions are left untouched
// and a *NotPendingError is returned; an intervention whose window has passed
// is expired first.
func (m *Manager) Resolve(id string, res Resolution) (*Intervention, error) {
	if res.ResolvedBy == "" || !res.Type.IsValid() {
		return nil, fmt.Errorf("%w: resolver and a known type are required", ErrInvalidResolution)
	}

	m.mu.Lock()
	expired := m.sweepLocked()

	iv, ok := m.items[id]
	if !ok {
		m.mu.Unlock()
		m.notifyExpired(expired)
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if iv.Status != StatusPending {
		status := iv.Status
		m.mu.Unlock()
		m.notifyExpired(expired)
		return nil, &NotPendingError{ID: id, Status: status}
	}

	now := m.clock()
	iv.Status = StatusResolved
	iv.ResolvedAt = &now
	iv.ResolvedBy = res.ResolvedBy
	iv.Type = res.Type
	iv.Notes = res.Notes
	if res.ModifiedAction != "" {
		iv.ModifiedAction = res.ModifiedAction
	}
	out := iv.Clone()
	m.mu.Unlock()

	m.notifyExpired(expired)

	m.logger.Info("intervention resolved",
		"intervention_id", id,
		"decision_id", out.DecisionID,
		"type", out.Type,
		"resolved_by", out.ResolvedBy,
	)

	return out, nil
}

// Get returns the intervention with the given id after sweeping expiry.
func (m *Manager) Get(id string) (*Intervention, bool) {
	m.mu.Lock()
	expired := m.sweepLocked()
	iv, ok := m.items[id]
	var out *Intervention
	if ok {
		out = iv.Clone()
	}
	m.mu.Unlock()

	m.notifyExpired(expired)
	return out, ok
}

// List sweeps expiry, then returns interventions sorted by priority (critical
// first). Ties keep creation order. An empty status returns every intervention.
func (m *Manager) List(status Status) []*Intervention {
	m.mu.Lock()
	expired := m.sweepLocked()

	out := make([]*Intervention, 0, len(m.order))
	for _, id := range m.order {
		iv := m.items[id]
		if status != "" && iv.Status != status {
			continue
		}
		out = append(out, iv.Clone())
	}
	m.mu.Unlock()

	m.notifyExpired(expired)

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Priority.rank() < out[j].Priority.rank()
	})
	return out
}

// ForDecision returns every intervention created for a decision, in creation
// order.
func (m *Manager) ForDecision(decisionID string) []*Intervention {
	m.mu.Lock()
	expired := m.sweepLocked()

	var out []*Intervention
	for _, id := range m.order {
		if iv := m.items[id]; iv.DecisionID == decisionID {
			out = append(out, iv.Clone())
		}
	}
	m.mu.Unlock()

	m.notifyExpired(expired)
	return out
}

// PendingCount sweeps expiry and returns the number of pending interventions.
func (m *Manager) PendingCount() int {
	m.mu.Lock()
	expired := m.sweepLocked()

	count := 0
	for _, iv := range m.items {
		if iv.Status == StatusPending {
			count++
		}
	}
	m.mu.Unlock()

	m.notifyExpired(expired)
	return count
}

// Sweep transitions every overdue pending intervention to expired and returns
// copies of those it changed.
func (m *Manager) Sweep() []*Intervention {
	m.mu.Lock()
	expired := m.sweepLocked()
	m.mu.Unlock()

	m.notifyExpired(expired)
	return expired
}

// sweepLocked expires overdue pending interventions. Callers hold mu.
func (m *Manager) sweepLocked() []*Intervention {
	now := m.clock()

	var expired []*Intervention
	for _, id := range m.order {
		iv := m.items[id]
		if iv.Status != StatusPending || !now.After(iv.ExpiresAt) {
			continue
		}
		iv.Status = StatusExpired
		expired = append(expired, iv.Clone())
	}
	return expired
}

func (m *Manager) notifyExpired(expired []*Intervention) {
	for _, iv := range expired {
		m.logger.Info("intervention expired",
			"intervention_id", iv.ID,
			"decision_id", iv.DecisionID,
			"priority", iv.Priority,
		)
		if m.onExpire != nil {
			m.onExpire(iv)
		}
	}
}

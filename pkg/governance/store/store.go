// Package store persists snapshots of the guardrail and policy registries so
// that API-authored changes survive a restart.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"mercator-hq/overseer/pkg/governance/guardrail"
	"mercator-hq/overseer/pkg/governance/policy"
)

// Snapshot kinds.
const (
	KindGuardrails = "guardrails"
	KindPolicies   = "policies"
)

// ErrNoSnapshot is returned when nothing has been saved under a kind.
var ErrNoSnapshot = errors.New("no snapshot")

// Backend stores opaque JSON payloads by kind.
type Backend interface {
	Put(ctx context.Context, kind string, payload []byte, at time.Time) error
	Get(ctx context.Context, kind string) ([]byte, time.Time, error)
	Ping(ctx context.Context) error
	Close() error
}

// Snapshots reads and writes typed registry snapshots over a Backend.
type Snapshots struct {
	backend Backend
	clock   func() time.Time
}

// New wraps backend.
func New(backend Backend) *Snapshots {
	return &Snapshots{backend: backend, clock: time.Now}
}

// SaveGuardrails stores the guardrail list.
func (s *Snapshots) SaveGuardrails(ctx context.Context, items []*guardrail.Guardrail) error {
	return s.save(ctx, KindGuardrails, items)
}

// LoadGuardrails returns the saved guardrail list, or ErrNoSnapshot.
func (s *Snapshots) LoadGuardrails(ctx context.Context) ([]*guardrail.Guardrail, error) {
	var items []*guardrail.Guardrail
	if err := s.load(ctx, KindGuardrails, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// SavePolicies stores the policy list.
func (s *Snapshots) SavePolicies(ctx context.Context, items []*policy.Policy) error {
	return s.save(ctx, KindPolicies, items)
}

// LoadPolicies returns the saved policy list, or ErrNoSnapshot.
func (s *Snapshots) LoadPolicies(ctx context.Context) ([]*policy.Policy, error) {
	var items []*policy.Policy
	if err := s.load(ctx, KindPolicies, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// Ping reports whether the backend is reachable.
func (s *Snapshots) Ping(ctx context.Context) error {
	return s.backend.Ping(ctx)
}

// Close closes the backend.
func (s *Snapshots) Close() error {
	return s.backend.Close()
}

func (s *Snapshots) save(ctx context.Context, kind string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s snapshot: %w", kind, err)
	}
	if err := s.backend.Put(ctx, kind, data, s.clock()); err != nil {
		return fmt.Errorf("save %s snapshot: %w", kind, err)
	}
	return nil
}

func (s *Snapshots) load(ctx context.Context, kind string, out any) error {
	data, _, err := s.backend.Get(ctx, kind)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s snapshot: %w", kind, err)
	}
	return nil
}

// MemoryBackend keeps payloads in memory.
type MemoryBackend struct {
	mu    sync.RWMutex
	items map[string]memoryEntry
}

type memoryEntry struct {
	payload []byte
	at      time.Time
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{items: make(map[string]memoryEntry)}
}

// Put implements Backend.
func (m *MemoryBackend) Put(ctx context.Context, kind string, payload []byte, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[kind] = memoryEntry{payload: append([]byte(nil), payload...), at: at}
	return nil
}

// Get implements Backend.
func (m *MemoryBackend) Get(ctx context.Context, kind string) ([]byte, time.Time, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.items[kind]
	if !ok {
		return nil, time.Time{}, ErrNoSnapshot
	}
	return append([]byte(nil), e.payload...), e.at, nil
}

// Ping implements Backend.
func (m *MemoryBackend) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Close implements Backend.
func (m *MemoryBackend) Close() error {
	return nil
}

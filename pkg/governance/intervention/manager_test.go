package intervention

import (
	"errors"
	"sync"
	"testing"
	"time"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestManager(clock *testClock) *Manager {
	return NewManager(DefaultExpiry(), nil).WithClock(clock.Now)
}

func TestPriorityFor(t *testing.T) {
	tests := []struct {
		score int
		want  Priority
	}{
		{100, PriorityCritical},
		{80, PriorityCritical},
		{79, PriorityHigh},
		{60, PriorityHigh},
		{59, PriorityMedium},
		{40, PriorityMedium},
		{39, PriorityLow},
		{0, PriorityLow},
	}
	for _, tt := range tests {
		if got := PriorityFor(tt.score); got != tt.want {
			t.Errorf("PriorityFor(%d) = %s, want %s", tt.score, got, tt.want)
		}
	}
}

func TestCreate_ExpiryWindows(t *testing.T) {
	tests := []struct {
		name   string
		score  int
		window time.Duration
	}{
		{"critical", 85, time.Hour},
		{"high", 65, 4 * time.Hour},
		{"medium", 45, 24 * time.Hour},
		{"low", 20, 24 * time.Hour},
	}

	clock := newTestClock()
	m := newTestManager(clock)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			iv := m.Create(Request{DecisionID: "d-" + tt.name, RiskScore: tt.score, RequestedBy: "system"})
			if got := iv.ExpiresAt.Sub(iv.RequestedAt); got != tt.window {
				t.Errorf("window = %v, want %v", got, tt.window)
			}
			if iv.Status != StatusPending {
				t.Errorf("Status = %s, want pending", iv.Status)
			}
			if iv.Type != TypeEscalation {
				t.Errorf("Type = %s, want escalation default", iv.Type)
			}
		})
	}
}

func TestCreate_ConfiguredExpiry(t *testing.T) {
	clock := newTestClock()
	m := NewManager(Expiry{Critical: 10 * time.Minute}, nil).WithClock(clock.Now)

	crit := m.Create(Request{RiskScore: 90})
	if got := crit.ExpiresAt.Sub(crit.RequestedAt); got != 10*time.Minute {
		t.Errorf("critical window = %v, want 10m", got)
	}
	high := m.Create(Request{RiskScore: 70})
	if got := high.ExpiresAt.Sub(high.RequestedAt); got != 4*time.Hour {
		t.Errorf("unset high window = %v, want default 4h", got)
	}
}

func TestList_LazyExpiry(t *testing.T) {
	clock := newTestClock()
	var expiredIDs []string
	m := newTestManager(clock).OnExpire(func(iv *Intervention) {
		expiredIDs = append(expiredIDs, iv.ID)
	})

	crit := m.Create(Request{DecisionID: "d1", RiskScore: 90})
	med := m.Create(Request{DecisionID: "d2", RiskScore: 45})

	clock.Advance(time.Hour)
	if got := m.List(StatusPending); len(got) != 2 {
		t.Fatalf("at exactly ExpiresAt, pending = %d, want 2", len(got))
	}

	clock.Advance(time.Second)
	pending := m.List(StatusPending)
	if len(pending) != 1 || pending[0].ID != med.ID {
		t.Fatalf("pending = %+v, want only the medium intervention", pending)
	}

	expired := m.List(StatusExpired)
	if len(expired) != 1 || expired[0].ID != crit.ID {
		t.Fatalf("expired = %+v", expired)
	}
	if len(expiredIDs) != 1 || expiredIDs[0] != crit.ID {
		t.Errorf("OnExpire calls = %v", expiredIDs)
	}

	// a later sweep never revisits a terminal intervention
	clock.Advance(48 * time.Hour)
	m.List("")
	if len(expiredIDs) != 2 {
		t.Errorf("OnExpire calls = %d, want 2", len(expiredIDs))
	}
	if got, _ := m.Get(crit.ID); got.Status != StatusExpired {
		t.Errorf("critical status = %s, want expired", got.Status)
	}
}

func TestList_SortedByPriorityStable(t *testing.T) {
	clock := newTestClock()
	m := newTestManager(clock)

	low1 := m.Create(Request{RiskScore: 10})
	crit := m.Create(Request{RiskScore: 95})
	med := m.Create(Request{RiskScore: 50})
	low2 := m.Create(Request{RiskScore: 15})
	high := m.Create(Request{RiskScore: 70})

	got := m.List("")
	want := []string{crit.ID, high.ID, med.ID, low1.ID, low2.ID}
	for i, id := range want {
		if got[i].ID != id {
			t.Errorf("List()[%d] = %s (%s), want %s", i, got[i].ID, got[i].Priority, id)
		}
	}
}

func TestResolve(t *testing.T) {
	clock := newTestClock()
	m := newTestManager(clock)
	iv := m.Create(Request{DecisionID: "d1", RiskScore: 65, OriginalAction: "deploy api"})

	clock.Advance(time.Minute)
	resolved, err := m.Resolve(iv.ID, Resolution{
		ResolvedBy:     "owner@example.com",
		Type:           TypeModification,
		Notes:          "deploy to staging first",
		ModifiedAction: "deploy api to staging",
	})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	if resolved.Status != StatusResolved || resolved.Type != TypeModification {
		t.Errorf("resolved = %+v", resolved)
	}
	if resolved.ResolvedAt == nil || !resolved.ResolvedAt.Equal(clock.Now()) {
		t.Errorf("ResolvedAt = %v", resolved.ResolvedAt)
	}
	if resolved.ModifiedAction != "deploy api to staging" || resolved.OriginalAction != "deploy api" {
		t.Errorf("actions = %q / %q", resolved.OriginalAction, resolved.ModifiedAction)
	}
	if m.PendingCount() != 0 {
		t.Errorf("PendingCount() = %d, want 0", m.PendingCount())
	}
}

func TestResolve_TerminalIsRejected(t *testing.T) {
	clock := newTestClock()
	m := newTestManager(clock)
	iv := m.Create(Request{DecisionID: "d1", RiskScore: 90})

	first, err := m.Resolve(iv.ID, Resolution{ResolvedBy: "a", Type: TypeApproval})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	_, err = m.Resolve(iv.ID, Resolution{ResolvedBy: "b", Type: TypeRejection})
	if !errors.Is(err, ErrNotPending) {
		t.Fatalf("second Resolve() error = %v, want ErrNotPending", err)
	}

	got, _ := m.Get(iv.ID)
	if got.Status != StatusResolved || got.ResolvedBy != "a" || got.Type != TypeApproval {
		t.Errorf("terminal fields changed: %+v", got)
	}
	if !got.ResolvedAt.Equal(*first.ResolvedAt) {
		t.Error("ResolvedAt changed")
	}
}

func TestResolve_Expired(t *testing.T) {
	clock := newTestClock()
	m := newTestManager(clock)
	iv := m.Create(Request{DecisionID: "d1", RiskScore: 90})

	clock.Advance(2 * time.Hour)
	_, err := m.Resolve(iv.ID, Resolution{ResolvedBy: "a", Type: TypeApproval})

	var npErr *NotPendingError
	if !errors.As(err, &npErr) {
		t.Fatalf("Resolve() error = %v, want *NotPendingError", err)
	}
	if npErr.Status != StatusExpired {
		t.Errorf("Status = %s, want expired", npErr.Status)
	}
}

func TestResolve_Errors(t *testing.T) {
	m := newTestManager(newTestClock())
	iv := m.Create(Request{RiskScore: 10})

	if _, err := m.Resolve("missing", Resolution{ResolvedBy: "a", Type: TypeApproval}); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown id error = %v, want ErrNotFound", err)
	}
	if _, err := m.Resolve(iv.ID, Resolution{Type: TypeApproval}); !errors.Is(err, ErrInvalidResolution) {
		t.Errorf("missing resolver error = %v, want ErrInvalidResolution", err)
	}
	if _, err := m.Resolve(iv.ID, Resolution{ResolvedBy: "a", Type: "shrug"}); !errors.Is(err, ErrInvalidResolution) {
		t.Errorf("unknown type error = %v, want ErrInvalidResolution", err)
	}
	if m.PendingCount() != 1 {
		t.Error("rejected resolution changed state")
	}
}

func TestConcurrentSweepsTransitionOnce(t *testing.T) {
	clock := newTestClock()
	var mu sync.Mutex
	calls := 0
	m := newTestManager(clock).OnExpire(func(*Intervention) {
		mu.Lock()
		calls++
		mu.Unlock()
	})

	for i := 0; i < 50; i++ {
		m.Create(Request{RiskScore: 90})
	}
	clock.Advance(2 * time.Hour)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.List("")
			m.PendingCount()
		}()
	}
	wg.Wait()

	if calls != 50 {
		t.Errorf("expired transitions = %d, want 50", calls)
	}
}

func TestForDecision(t *testing.T) {
	m := newTestManager(newTestClock())
	a := m.Create(Request{DecisionID: "d1", RiskScore: 90})
	m.Create(Request{DecisionID: "d2", RiskScore: 90})
	b := m.Create(Request{DecisionID: "d1", RiskScore: 10})

	got := m.ForDecision("d1")
	if len(got) != 2 || got[0].ID != a.ID || got[1].ID != b.ID {
		t.Errorf("ForDecision() = %+v", got)
	}
}

package governance

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"mercator-hq/overseer/pkg/audit"
	"mercator-hq/overseer/pkg/audit/recorder"
	"mercator-hq/overseer/pkg/audit/storage"
	"mercator-hq/overseer/pkg/governance/decision"
	"mercator-hq/overseer/pkg/governance/guardrail"
	"mercator-hq/overseer/pkg/governance/intervention"
	"mercator-hq/overseer/pkg/governance/policy"
	"mercator-hq/overseer/pkg/governance/predicate"
	"mercator-hq/overseer/pkg/governance/store"
)

const (
	ownerID  = "owner@example.com"
	memberID = "member@example.com"
)

type fakeObserver struct {
	mu        sync.Mutex
	decisions map[string]int
	events    map[string]int
	faults    int
	pending   int
	enabled   int
	total     int
}

func newFakeObserver() *fakeObserver {
	return &fakeObserver{decisions: map[string]int{}, events: map[string]int{}}
}

func (o *fakeObserver) ObserveDecision(status string, _ int, _ []string, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.decisions[status]++
}

func (o *fakeObserver) ObserveEvaluationFault(string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.faults++
}

func (o *fakeObserver) ObserveIntervention(event, _ string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events[event]++
}

func (o *fakeObserver) SetPendingInterventions(n int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.pending = n
}

func (o *fakeObserver) SetGuardrails(enabled, total int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.enabled, o.total = enabled, total
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newSeededService(t *testing.T, opts ...Option) *Service {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Owners = []string{ownerID}
	s := New(cfg, opts...)
	s.Seed(context.Background())
	return s
}

func deleteUserRecord(userID string) decision.Input {
	return decision.Input{
		SessionID: "session-1",
		UserID:    userID,
		Action:    "delete user record",
		Context:   &decision.ActionContext{Model: "gpt-4", Tokens: 500},
		Reasoning: "cleanup requested",
	}
}

func TestService_SeedIsIdempotent(t *testing.T) {
	s := newSeededService(t)
	if got := len(s.ListGuardrails("")); got != 8 {
		t.Errorf("ListGuardrails() = %d, want 8", got)
	}
	if got := len(s.ListPolicies()); got != 3 {
		t.Errorf("ListPolicies() = %d, want 3", got)
	}

	res := s.Seed(context.Background())
	if res.Guardrails != 0 || res.Policies != 0 {
		t.Errorf("second Seed() = %+v, want nothing added", res)
	}
}

func TestService_EscalatedDecisionOpensIntervention(t *testing.T) {
	s := newSeededService(t)
	ctx := context.Background()

	d, err := s.LogDecision(ctx, deleteUserRecord(memberID))
	if err != nil {
		t.Fatalf("LogDecision() error = %v", err)
	}
	if d.Status != decision.StatusEscalated {
		t.Fatalf("Status = %s, want escalated", d.Status)
	}
	if d.RiskScore < 45 {
		t.Errorf("RiskScore = %d, want >= 45", d.RiskScore)
	}

	ivs := s.ListInterventions(ctx, "")
	if len(ivs) != 1 {
		t.Fatalf("ListInterventions() = %d, want 1", len(ivs))
	}
	iv := ivs[0]
	if iv.DecisionID != d.ID || iv.Status != intervention.StatusPending {
		t.Errorf("intervention = %+v", iv)
	}
	if iv.Priority != intervention.PriorityFor(d.RiskScore) {
		t.Errorf("Priority = %s, want %s", iv.Priority, intervention.PriorityFor(d.RiskScore))
	}
	if iv.RequestedBy != guardrail.SystemPrincipal || iv.ReasonAr != EscalationReasonAr {
		t.Errorf("requester/reason = %q / %q", iv.RequestedBy, iv.ReasonAr)
	}
}

func TestService_OwnerReadAutoApproves(t *testing.T) {
	s := newSeededService(t)
	ctx := context.Background()

	d, err := s.LogDecision(ctx, decision.Input{
		UserID:  ownerID,
		Action:  "read profile",
		Context: &decision.ActionContext{Model: "claude-3", Tokens: 10},
	})
	if err != nil {
		t.Fatalf("LogDecision() error = %v", err)
	}
	if d.RiskScore != 20 || d.Status != decision.StatusAutoApproved {
		t.Errorf("decision = %d %s, want 20 auto-approved", d.RiskScore, d.Status)
	}
	if len(d.GuardrailsTriggered) != 0 {
		t.Errorf("GuardrailsTriggered = %v", d.GuardrailsTriggered)
	}
	if n := len(s.ListInterventions(ctx, "")); n != 0 {
		t.Errorf("ListInterventions() = %d, want 0", n)
	}
}

func TestService_CompiledGuardrail(t *testing.T) {
	s := New(DefaultConfig())
	ctx := context.Background()

	g, err := s.CreateGuardrail(ctx, guardrail.Definition{
		Name:      "Token ceiling",
		Condition: "tokens.used > tokens.limit * 0.8",
		Category:  guardrail.CategoryResource,
		Severity:  guardrail.SeverityWarn,
	}, ownerID)
	if err != nil {
		t.Fatalf("CreateGuardrail() error = %v", err)
	}
	if g.Predicate.Type != predicate.TypeTokenThreshold || g.Predicate.Field != "tokens.ratio" {
		t.Errorf("Predicate = %+v", g.Predicate)
	}

	tests := []struct {
		tokens int
		want   bool
	}{
		{6500, true},
		{6000, false},
	}
	for _, tt := range tests {
		d, err := s.LogDecision(ctx, decision.Input{
			UserID:  memberID,
			Action:  "summarise document",
			Context: &decision.ActionContext{Tokens: tt.tokens},
		})
		if err != nil {
			t.Fatalf("LogDecision() error = %v", err)
		}
		if got := len(d.GuardrailsTriggered) == 1; got != tt.want {
			t.Errorf("tokens %d: triggered = %v, want %v", tt.tokens, d.GuardrailsTriggered, tt.want)
		}
	}
}

func TestService_InterventionExpiryWindows(t *testing.T) {
	clock := &testClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	s := New(DefaultConfig(), WithClock(clock.Now))
	ctx := context.Background()

	for _, id := range []string{"reads-a", "reads-b"} {
		if _, err := s.CreateGuardrail(ctx, guardrail.Definition{
			ID:        id,
			Name:      id,
			Category:  guardrail.CategoryAction,
			Severity:  guardrail.SeverityBlock,
			Predicate: predicate.Leaf(predicate.TypeActionType, "action.type", predicate.OperatorEquals, "read"),
		}, ownerID); err != nil {
			t.Fatalf("CreateGuardrail() error = %v", err)
		}
	}

	tests := []struct {
		name     string
		in       decision.Input
		priority intervention.Priority
		window   time.Duration
	}{
		{
			name: "critical",
			in: decision.Input{
				Action:  "execute deploy modify delete",
				Context: &decision.ActionContext{Model: "gpt-4-turbo", Tokens: 9000},
			},
			priority: intervention.PriorityCritical,
			window:   time.Hour,
		},
		{
			name: "medium",
			in: decision.Input{
				Action:  "read profile",
				Context: &decision.ActionContext{Model: "claude-3", Tokens: 10},
			},
			priority: intervention.PriorityMedium,
			window:   24 * time.Hour,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.in.UserID = memberID
			d, err := s.LogDecision(ctx, tt.in)
			if err != nil {
				t.Fatalf("LogDecision() error = %v", err)
			}
			var found *intervention.Intervention
			for _, iv := range s.ListInterventions(ctx, intervention.StatusPending) {
				if iv.DecisionID == d.ID {
					found = iv
				}
			}
			if found == nil {
				t.Fatalf("no intervention for decision %s (status %s, score %d)", d.ID, d.Status, d.RiskScore)
			}
			if found.Priority != tt.priority {
				t.Errorf("Priority = %s, want %s", found.Priority, tt.priority)
			}
			if got := found.ExpiresAt.Sub(found.RequestedAt); got != tt.window {
				t.Errorf("window = %v, want %v", got, tt.window)
			}
		})
	}
}

func TestService_ResolveIntervention(t *testing.T) {
	s := newSeededService(t)
	ctx := context.Background()

	first, _ := s.LogDecision(ctx, deleteUserRecord(memberID))
	second, _ := s.LogDecision(ctx, deleteUserRecord(memberID))
	ivFor := func(decisionID string) *intervention.Intervention {
		for _, iv := range s.ListInterventions(ctx, "") {
			if iv.DecisionID == decisionID {
				return iv
			}
		}
		t.Fatalf("no intervention for %s", decisionID)
		return nil
	}

	approved, err := s.ResolveIntervention(ctx, ivFor(first.ID).ID, intervention.Resolution{
		ResolvedBy: ownerID,
		Type:       intervention.TypeApproval,
		Notes:      "ok",
	})
	if err != nil {
		t.Fatalf("ResolveIntervention() error = %v", err)
	}
	if approved.Status != intervention.StatusResolved || approved.ResolvedAt == nil {
		t.Errorf("intervention = %+v", approved)
	}
	d, _ := s.GetDecision(ctx, first.ID)
	if d.Status != decision.StatusApproved || d.HumanReview == nil || d.HumanReview.ID != approved.ID {
		t.Errorf("decision after approval = %+v", d)
	}

	if _, err := s.ResolveIntervention(ctx, ivFor(second.ID).ID, intervention.Resolution{
		ResolvedBy: ownerID,
		Type:       intervention.TypeRejection,
	}); err != nil {
		t.Fatalf("ResolveIntervention() error = %v", err)
	}
	d, _ = s.GetDecision(ctx, second.ID)
	if d.Status != decision.StatusRejected {
		t.Errorf("Status = %s, want rejected", d.Status)
	}

	_, err = s.ResolveIntervention(ctx, approved.ID, intervention.Resolution{
		ResolvedBy: ownerID,
		Type:       intervention.TypeRejection,
	})
	if !errors.Is(err, ErrConflict) {
		t.Errorf("second resolution error = %v, want ErrConflict", err)
	}
}

func TestService_ModificationKeepsStatus(t *testing.T) {
	s := newSeededService(t)
	ctx := context.Background()

	d, _ := s.LogDecision(ctx, deleteUserRecord(memberID))
	iv := s.ListInterventions(ctx, "")[0]

	if _, err := s.ResolveIntervention(ctx, iv.ID, intervention.Resolution{
		ResolvedBy:     ownerID,
		Type:           intervention.TypeModification,
		ModifiedAction: "archive user record",
	}); err != nil {
		t.Fatalf("ResolveIntervention() error = %v", err)
	}
	got, _ := s.GetDecision(ctx, d.ID)
	if got.Status != decision.StatusEscalated {
		t.Errorf("Status = %s, want escalated", got.Status)
	}
	if got.HumanReview == nil || got.HumanReview.ModifiedAction != "archive user record" {
		t.Errorf("HumanReview = %+v", got.HumanReview)
	}
}

func TestService_ReviewAppliesOnce(t *testing.T) {
	s := newSeededService(t)
	ctx := context.Background()

	d, _ := s.LogDecision(ctx, deleteUserRecord(memberID))
	first := s.ListInterventions(ctx, "")[0]
	if _, err := s.ResolveIntervention(ctx, first.ID, intervention.Resolution{
		ResolvedBy:     ownerID,
		Type:           intervention.TypeModification,
		ModifiedAction: "archive user record",
	}); err != nil {
		t.Fatalf("ResolveIntervention() error = %v", err)
	}

	s.mu.Lock()
	extra := s.interventions.Create(intervention.Request{DecisionID: d.ID, RiskScore: d.RiskScore})
	s.mu.Unlock()

	_, err := s.ResolveIntervention(ctx, extra.ID, intervention.Resolution{
		ResolvedBy: ownerID, Type: intervention.TypeApproval,
	})
	if !errors.Is(err, ErrConflict) || !errors.Is(err, decision.ErrFinalized) {
		t.Fatalf("ResolveIntervention() error = %v, want reviewed conflict", err)
	}

	got, _ := s.GetDecision(ctx, d.ID)
	if got.Status != decision.StatusEscalated || got.HumanReview == nil || got.HumanReview.ID != first.ID {
		t.Errorf("decision = %+v, want the first review kept", got)
	}
	if iv, _ := s.GetIntervention(ctx, extra.ID); iv.Status != intervention.StatusPending {
		t.Errorf("second intervention status = %s, want pending", iv.Status)
	}
}

func TestService_SettledDecisionRejectsReview(t *testing.T) {
	s := newSeededService(t)
	ctx := context.Background()

	d, _ := s.LogDecision(ctx, deleteUserRecord(memberID))
	first := s.ListInterventions(ctx, "")[0]
	if _, err := s.ResolveIntervention(ctx, first.ID, intervention.Resolution{
		ResolvedBy: ownerID, Type: intervention.TypeApproval,
	}); err != nil {
		t.Fatalf("ResolveIntervention() error = %v", err)
	}

	s.mu.Lock()
	extra := s.interventions.Create(intervention.Request{DecisionID: d.ID, RiskScore: d.RiskScore})
	s.mu.Unlock()

	_, err := s.ResolveIntervention(ctx, extra.ID, intervention.Resolution{
		ResolvedBy: ownerID, Type: intervention.TypeRejection,
	})
	var cErr *ConflictError
	if !errors.As(err, &cErr) || !errors.Is(err, decision.ErrFinalized) {
		t.Fatalf("ResolveIntervention() error = %v, want finalized conflict", err)
	}
	got, _ := s.GetIntervention(ctx, extra.ID)
	if got.Status != intervention.StatusPending {
		t.Errorf("intervention was resolved: %+v", got)
	}
}

func TestService_Errors(t *testing.T) {
	s := newSeededService(t)
	ctx := context.Background()

	if _, err := s.GetDecision(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetDecision() error = %v", err)
	}
	if _, err := s.UpdateGuardrail(ctx, "missing", guardrail.Patch{}, ownerID); !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdateGuardrail() error = %v", err)
	}
	if s.DeleteGuardrail(ctx, "missing", ownerID) {
		t.Error("DeleteGuardrail() of unknown id returned true")
	}
	if _, err := s.UpdatePolicy(ctx, "missing", policy.Patch{}, ownerID); !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdatePolicy() error = %v", err)
	}
	if _, err := s.ResolveIntervention(ctx, "missing", intervention.Resolution{
		ResolvedBy: ownerID, Type: intervention.TypeApproval,
	}); !errors.Is(err, ErrNotFound) {
		t.Errorf("ResolveIntervention() error = %v", err)
	}

	var vErr *ValidationError
	if _, err := s.LogDecision(ctx, decision.Input{}); !errors.As(err, &vErr) {
		t.Errorf("LogDecision() error = %v, want *ValidationError", err)
	}
	if _, err := s.CreateGuardrail(ctx, guardrail.Definition{Name: "x"}, ownerID); !errors.As(err, &vErr) {
		t.Errorf("CreateGuardrail() error = %v, want *ValidationError", err)
	}
	if _, err := s.ResolveIntervention(ctx, "any", intervention.Resolution{Type: "maybe"}); !errors.As(err, &vErr) {
		t.Errorf("ResolveIntervention() error = %v, want *ValidationError", err)
	}
	if _, err := s.UpdatePolicy(ctx, "policy-data-protection", policy.Patch{
		Rules: []policy.Rule{{Condition: "x", Action: "maybe"}},
	}, ownerID); !errors.As(err, &vErr) {
		t.Errorf("UpdatePolicy() error = %v, want *ValidationError", err)
	}

	_, err := s.CreateGuardrail(ctx, guardrail.Definition{
		ID:       guardrail.BuiltinPIIAccess,
		Name:     "dup",
		Category: guardrail.CategoryDataAccess,
		Severity: guardrail.SeverityLog,
	}, ownerID)
	if !errors.Is(err, ErrConflict) {
		t.Errorf("CreateGuardrail() duplicate error = %v, want ErrConflict", err)
	}
}

func TestService_GuardrailLifecycle(t *testing.T) {
	obs := newFakeObserver()
	s := newSeededService(t, WithObserver(obs))
	ctx := context.Background()

	off := false
	g, err := s.UpdateGuardrail(ctx, guardrail.BuiltinDestructiveAction, guardrail.Patch{Enabled: &off}, ownerID)
	if err != nil || g.Enabled {
		t.Fatalf("UpdateGuardrail() = %+v, %v", g, err)
	}
	if obs.enabled != 7 || obs.total != 8 {
		t.Errorf("observer guardrails = %d/%d, want 7/8", obs.enabled, obs.total)
	}

	if !s.DeleteGuardrail(ctx, guardrail.BuiltinDestructiveAction, ownerID) {
		t.Fatal("DeleteGuardrail() = false")
	}
	if _, err := s.GetGuardrail(guardrail.BuiltinDestructiveAction); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetGuardrail() after delete error = %v", err)
	}
	if got := len(s.ListGuardrails(guardrail.CategoryAction)); got == 0 {
		t.Error("ListGuardrails(action) is empty")
	}
	for _, g := range s.ListGuardrails(guardrail.CategoryDataAccess) {
		if g.Category != guardrail.CategoryDataAccess {
			t.Errorf("ListGuardrails(data) returned %s", g.Category)
		}
	}
}

func TestService_GetDecisionsFilter(t *testing.T) {
	clock := &testClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	s := newSeededService(t, WithClock(clock.Now))
	ctx := context.Background()

	s.LogDecision(ctx, deleteUserRecord(memberID))
	clock.Advance(time.Minute)
	s.LogDecision(ctx, decision.Input{UserID: ownerID, Action: "read profile", Context: &decision.ActionContext{Tokens: 10}})
	clock.Advance(time.Minute)
	latest, _ := s.LogDecision(ctx, deleteUserRecord(memberID))

	all, err := s.GetDecisions(ctx, decision.Filter{})
	if err != nil || len(all) != 3 {
		t.Fatalf("GetDecisions() = %d, %v", len(all), err)
	}
	if all[0].ID != latest.ID {
		t.Errorf("first decision = %s, want newest %s", all[0].ID, latest.ID)
	}

	mine, _ := s.GetDecisions(ctx, decision.Filter{UserID: memberID, Status: decision.StatusEscalated})
	if len(mine) != 2 {
		t.Errorf("filtered decisions = %d, want 2", len(mine))
	}
}

func TestService_Stats(t *testing.T) {
	s := newSeededService(t)
	ctx := context.Background()

	empty, err := s.GetStats(ctx)
	if err != nil {
		t.Fatalf("GetStats() error = %v", err)
	}
	if empty.TotalDecisions != 0 || empty.AverageRiskScore != 0 {
		t.Errorf("empty stats = %+v", empty)
	}

	escalated, _ := s.LogDecision(ctx, deleteUserRecord(memberID))
	s.LogDecision(ctx, decision.Input{UserID: ownerID, Action: "read profile", Context: &decision.ActionContext{Model: "claude-3", Tokens: 10}})
	s.LogDecision(ctx, deleteUserRecord(memberID))

	iv := s.ListInterventions(ctx, "")
	for _, i := range iv {
		if i.DecisionID == escalated.ID {
			s.ResolveIntervention(ctx, i.ID, intervention.Resolution{ResolvedBy: ownerID, Type: intervention.TypeRejection})
		}
	}

	st, err := s.GetStats(ctx)
	if err != nil {
		t.Fatalf("GetStats() error = %v", err)
	}
	if st.TotalDecisions != 3 || st.AutoApproved != 1 || st.Rejected != 1 || st.HumanReviewed != 1 {
		t.Errorf("stats = %+v", st)
	}
	if st.PendingInterventions != 1 {
		t.Errorf("PendingInterventions = %d, want 1", st.PendingInterventions)
	}
	if st.GuardrailsTriggered != 2*len(escalated.GuardrailsTriggered) {
		t.Errorf("GuardrailsTriggered = %d", st.GuardrailsTriggered)
	}
	want := float64(2*escalated.RiskScore+20) / 3
	if st.AverageRiskScore != want {
		t.Errorf("AverageRiskScore = %v, want %v", st.AverageRiskScore, want)
	}
}

func TestService_AuditTrail(t *testing.T) {
	mem := storage.NewMemoryStorage()
	rec := recorder.NewRecorder(mem, recorder.DefaultConfig(), nil)
	s := newSeededService(t, WithAuditor(rec))
	ctx := context.Background()

	d, _ := s.LogDecision(ctx, deleteUserRecord(memberID))
	iv := s.ListInterventions(ctx, "")[0]
	s.ResolveIntervention(ctx, iv.ID, intervention.Resolution{ResolvedBy: ownerID, Type: intervention.TypeApproval})
	name := "Data Protection v2"
	s.UpdatePolicy(ctx, "policy-data-protection", policy.Patch{Name: &name}, ownerID)

	if err := rec.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	records, err := mem.Query(ctx, &audit.Query{DecisionID: d.ID, SortOrder: "asc"})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	got := map[audit.EventType]bool{}
	for _, r := range records {
		got[r.EventType] = true
	}
	for _, want := range []audit.EventType{
		audit.EventDecisionLogged,
		audit.EventInterventionCreated,
		audit.EventInterventionResolved,
	} {
		if !got[want] {
			t.Errorf("missing %s audit record", want)
		}
	}

	policies, _ := mem.Query(ctx, &audit.Query{EventType: audit.EventPolicyUpdated})
	if len(policies) != 1 || policies[0].Actor != ownerID || policies[0].PayloadHash == "" {
		t.Errorf("policy audit records = %+v", policies)
	}
}

func TestService_ApplyGuardrailsIsAudited(t *testing.T) {
	mem := storage.NewMemoryStorage()
	rec := recorder.NewRecorder(mem, recorder.DefaultConfig(), nil)
	snaps := store.New(store.NewMemoryBackend())
	obs := newFakeObserver()
	s := newSeededService(t, WithAuditor(rec), WithPersister(snaps), WithObserver(obs))
	ctx := context.Background()
	const actor = "file:/etc/overseer/guardrails.yaml"

	defs := []guardrail.Definition{
		{ID: "no-friday-deploys", Name: "No Friday deploys", Condition: "deploy requests", Category: guardrail.CategoryAction, Severity: guardrail.SeverityBlock},
		{ID: guardrail.BuiltinTokenBudget, Name: "Tighter Token Budget", Condition: "tokens above 0.5", Category: guardrail.CategoryResource, Severity: guardrail.SeverityBlock},
		{Name: "missing id", Category: guardrail.CategoryAction, Severity: guardrail.SeverityLog},
	}
	applied, err := s.ApplyGuardrails(ctx, defs, actor)
	if applied != 2 || err == nil {
		t.Errorf("ApplyGuardrails() = %d, %v; want 2 and an error for the missing id", applied, err)
	}
	if _, err := s.ApplyGuardrails(ctx, defs[:2], actor); err != nil {
		t.Errorf("reapply error = %v", err)
	}

	if err := rec.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	for _, tt := range []struct {
		event audit.EventType
		id    string
	}{
		{audit.EventGuardrailCreated, "no-friday-deploys"},
		{audit.EventGuardrailUpdated, guardrail.BuiltinTokenBudget},
	} {
		records, _ := mem.Query(ctx, &audit.Query{EventType: tt.event, SubjectID: tt.id})
		if len(records) != 1 || records[0].Actor != actor {
			t.Errorf("%s records for %s = %+v, want exactly one by %s", tt.event, tt.id, records, actor)
		}
	}

	saved, err := snaps.LoadGuardrails(ctx)
	if err != nil || len(saved) != 9 {
		t.Errorf("persisted guardrails = %d, %v; want 9", len(saved), err)
	}
	if obs.total != 9 {
		t.Errorf("guardrail gauge total = %d, want 9", obs.total)
	}
}

func TestService_ExpiredInterventionIsObserved(t *testing.T) {
	clock := &testClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	obs := newFakeObserver()
	s := newSeededService(t, WithClock(clock.Now), WithObserver(obs))
	ctx := context.Background()

	s.LogDecision(ctx, deleteUserRecord(memberID))
	clock.Advance(25 * time.Hour)

	if n := s.SweepInterventions(ctx); n != 1 {
		t.Errorf("SweepInterventions() = %d, want 1", n)
	}
	expired := s.ListInterventions(ctx, intervention.StatusExpired)
	if len(expired) != 1 {
		t.Fatalf("expired interventions = %d, want 1", len(expired))
	}
	if obs.events["created"] != 1 || obs.events["expired"] != 1 || obs.pending != 0 {
		t.Errorf("observer = %+v pending %d", obs.events, obs.pending)
	}

	_, err := s.ResolveIntervention(ctx, expired[0].ID, intervention.Resolution{ResolvedBy: ownerID, Type: intervention.TypeApproval})
	if !errors.Is(err, ErrConflict) {
		t.Errorf("ResolveIntervention() on expired error = %v, want ErrConflict", err)
	}
}

func TestService_PersistsSnapshots(t *testing.T) {
	snaps := store.New(store.NewMemoryBackend())
	s := newSeededService(t, WithPersister(snaps))
	ctx := context.Background()

	if _, err := s.CreateGuardrail(ctx, guardrail.Definition{
		ID:        "custom",
		Name:      "Custom",
		Condition: "action.type == delete",
		Category:  guardrail.CategoryAction,
		Severity:  guardrail.SeverityWarn,
	}, ownerID); err != nil {
		t.Fatalf("CreateGuardrail() error = %v", err)
	}

	restored := New(DefaultConfig())
	items, err := snaps.LoadGuardrails(ctx)
	if err != nil {
		t.Fatalf("LoadGuardrails() error = %v", err)
	}
	restored.Guardrails().Restore(items)
	if _, err := restored.GetGuardrail("custom"); err != nil {
		t.Errorf("restored registry lacks custom guardrail: %v", err)
	}
	if restored.Guardrails().Len() != 9 {
		t.Errorf("restored Len() = %d, want 9", restored.Guardrails().Len())
	}
}

func TestService_ConcurrentEscalationsAlwaysHaveIntervention(t *testing.T) {
	s := newSeededService(t)
	ctx := context.Background()

	stop := make(chan struct{})
	var readers sync.WaitGroup
	violations := make(chan string, 1)
	readers.Add(1)
	go func() {
		defer readers.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			escalated, _ := s.GetDecisions(ctx, decision.Filter{Status: decision.StatusEscalated})
			have := map[string]bool{}
			for _, iv := range s.ListInterventions(ctx, "") {
				have[iv.DecisionID] = true
			}
			for _, d := range escalated {
				if !have[d.ID] {
					select {
					case violations <- d.ID:
					default:
					}
					return
				}
			}
		}
	}()

	var writers sync.WaitGroup
	for i := 0; i < 8; i++ {
		writers.Add(1)
		go func() {
			defer writers.Done()
			for j := 0; j < 25; j++ {
				if _, err := s.LogDecision(ctx, deleteUserRecord(memberID)); err != nil {
					t.Errorf("LogDecision() error = %v", err)
				}
			}
		}()
	}
	writers.Wait()
	close(stop)
	readers.Wait()

	select {
	case id := <-violations:
		t.Fatalf("escalated decision %s observed without intervention", id)
	default:
	}
	if n := len(s.ListInterventions(ctx, intervention.StatusPending)); n != 200 {
		t.Errorf("pending interventions = %d, want 200", n)
	}
}

// stallingAuditor blocks every intervention.expired record until release is
// closed.
type stallingAuditor struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (a *stallingAuditor) Record(_ context.Context, rec *audit.Record) error {
	if rec.EventType != audit.EventInterventionExpired {
		return nil
	}
	a.once.Do(func() { close(a.entered) })
	<-a.release
	return nil
}

func TestService_ExpiryAuditDoesNotHoldLock(t *testing.T) {
	clock := &testClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	aud := &stallingAuditor{entered: make(chan struct{}), release: make(chan struct{})}
	s := newSeededService(t, WithClock(clock.Now), WithAuditor(aud))
	ctx := context.Background()

	s.LogDecision(ctx, deleteUserRecord(memberID))
	clock.Advance(3 * time.Hour)
	second, _ := s.LogDecision(ctx, deleteUserRecord(memberID))
	clock.Advance(2 * time.Hour)

	var target *intervention.Intervention
	for _, iv := range s.interventions.ForDecision(second.ID) {
		target = iv
	}
	if target == nil {
		t.Fatal("second decision has no intervention")
	}

	resolved := make(chan error, 1)
	go func() {
		_, err := s.ResolveIntervention(ctx, target.ID, intervention.Resolution{ResolvedBy: ownerID, Type: intervention.TypeApproval})
		resolved <- err
	}()

	select {
	case <-aud.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("expiry was never audited")
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.GetDecisions(ctx, decision.Filter{})
		s.LogDecision(ctx, deleteUserRecord(memberID))
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("readers and writers blocked while an expiry record was being written")
	}

	close(aud.release)
	if err := <-resolved; err != nil {
		t.Errorf("ResolveIntervention() error = %v", err)
	}
	if d, _ := s.GetDecision(ctx, second.ID); d.Status != decision.StatusApproved {
		t.Errorf("second decision status = %s, want approved", d.Status)
	}
}

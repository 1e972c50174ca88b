// Package governance is the operation surface of the governance engine.
//
// A Service ties together the guardrail registry, the decision engine, the
// decision store, the intervention manager and the policy registry. It keeps
// logging a decision and opening its intervention atomic with respect to
// readers, and it reports every state change to the optional audit recorder,
// metrics observer and snapshot persister.
//
// Authorization is the caller's concern: the Service trusts the actor ids it
// is given. The HTTP layer in pkg/api enforces the owner-only boundary.
package governance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"mercator-hq/overseer/pkg/audit"
	"mercator-hq/overseer/pkg/audit/recorder"
	"mercator-hq/overseer/pkg/governance/decision"
	"mercator-hq/overseer/pkg/governance/guardrail"
	"mercator-hq/overseer/pkg/governance/intervention"
	"mercator-hq/overseer/pkg/governance/policy"
)

// Escalation reasons attached to interventions opened by LogDecision.
const (
	EscalationReason   = "Decision escalated for human review"
	EscalationReasonAr = "تم تصعيد القرار للمراجعة البشرية"
)

// Auditor receives audit records. *recorder.Recorder satisfies it.
type Auditor interface {
	Record(ctx context.Context, record *audit.Record) error
}

// Observer receives metric events. *metrics.Collector satisfies it.
type Observer interface {
	ObserveDecision(status string, riskScore int, triggered []string, duration time.Duration)
	ObserveEvaluationFault(guardrailID string)
	ObserveIntervention(event, priority string)
	SetPendingInterventions(n int)
	SetGuardrails(enabled, total int)
}

// Persister saves registry snapshots. *store.Snapshots satisfies it.
type Persister interface {
	SaveGuardrails(ctx context.Context, items []*guardrail.Guardrail) error
	SavePolicies(ctx context.Context, items []*policy.Policy) error
}

// Config holds the engine tunables.
type Config struct {
	// TokenLimit is the denominator of tokens.ratio. Default 8000.
	TokenLimit int

	// RestrictedModels is the model deny-list. Nil uses the default list.
	RestrictedModels []string

	// Expiry holds the intervention review windows by priority.
	Expiry intervention.Expiry

	// Owners are the identities granted owner attributes when no
	// PrincipalResolver is supplied.
	Owners []string
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() Config {
	return Config{
		TokenLimit:       decision.DefaultTokenLimit,
		RestrictedModels: decision.DefaultRestrictedModels(),
		Expiry:           intervention.DefaultExpiry(),
	}
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithClock overrides the clock of every component, for deterministic tests.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) { s.clock = clock }
}

// WithPrincipalResolver replaces the owner-list resolver.
func WithPrincipalResolver(r PrincipalResolver) Option {
	return func(s *Service) { s.principals = r }
}

// WithDecisionStore replaces the in-memory decision store.
func WithDecisionStore(st decision.Store) Option {
	return func(s *Service) { s.decisions = st }
}

// WithAuditor sends audit records to a.
func WithAuditor(a Auditor) Option {
	return func(s *Service) { s.auditor = a }
}

// WithObserver sends metric events to o.
func WithObserver(o Observer) Option {
	return func(s *Service) { s.observer = o }
}

// WithPersister saves registry snapshots after every mutation.
func WithPersister(p Persister) Option {
	return func(s *Service) { s.persister = p }
}

// Service is the governance engine. It is safe for concurrent use.
type Service struct {
	// mu orders decision writes and intervention resolution against readers.
	mu sync.RWMutex
	// persistMu serializes snapshot writes.
	persistMu sync.Mutex
	// expiredMu guards expired, the interventions swept under mu whose
	// audit records are written once mu is released.
	expiredMu sync.Mutex
	expired   []*intervention.Intervention

	guardrails    *guardrail.Registry
	policies      *policy.Registry
	engine        *decision.Engine
	decisions     decision.Store
	interventions *intervention.Manager

	principals PrincipalResolver
	auditor    Auditor
	observer   Observer
	persister  Persister

	clock  func() time.Time
	logger *slog.Logger
}

// New constructs a Service with empty registries. Call Seed to install the
// built-in guardrails and default policies.
func New(cfg Config, opts ...Option) *Service {
	s := &Service{clock: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.principals == nil {
		s.principals = NewStaticResolver(cfg.Owners...)
	}
	if s.decisions == nil {
		s.decisions = decision.NewMemoryStore()
	}
	if cfg.TokenLimit <= 0 {
		cfg.TokenLimit = decision.DefaultTokenLimit
	}
	if cfg.RestrictedModels == nil {
		cfg.RestrictedModels = decision.DefaultRestrictedModels()
	}

	s.guardrails = guardrail.NewRegistry(s.logger, guardrail.WithClock(s.clock))
	s.policies = policy.NewRegistry(s.logger).WithClock(s.clock)
	s.engine = decision.NewEngine(s.guardrails,
		decision.NewContextBuilder(cfg.TokenLimit, cfg.RestrictedModels), s.logger).WithClock(s.clock)
	s.interventions = intervention.NewManager(cfg.Expiry, s.logger).
		WithClock(s.clock).
		OnExpire(s.queueExpired)

	s.logger = s.logger.With("component", "governance.service")
	return s
}

// Guardrails exposes the registry for file sources and snapshot restore.
func (s *Service) Guardrails() *guardrail.Registry {
	return s.guardrails
}

// Policies exposes the registry for snapshot restore.
func (s *Service) Policies() *policy.Registry {
	return s.policies
}

// SeedResult counts what Seed installed.
type SeedResult struct {
	Guardrails int `json:"guardrails"`
	Policies   int `json:"policies"`
}

// Seed installs the built-in guardrails and default policies. Entries whose
// id already exists are kept, so Seed after a snapshot restore only fills
// gaps.
func (s *Service) Seed(ctx context.Context) SeedResult {
	res := SeedResult{
		Guardrails: s.guardrails.Seed(guardrail.Builtins()),
		Policies:   s.policies.Seed(policy.Defaults()),
	}
	s.logger.Info("governance seeded",
		"guardrails_added", res.Guardrails,
		"policies_added", res.Policies,
	)
	s.observeGuardrails()
	return res
}

// GuardrailCategories returns every guardrail category.
func (s *Service) GuardrailCategories() []guardrail.Category {
	return guardrail.Categories()
}

// Severities returns every guardrail severity.
func (s *Service) Severities() []guardrail.Severity {
	return guardrail.Severities()
}

// ListGuardrails returns guardrails in registry order, optionally limited to
// one category.
func (s *Service) ListGuardrails(category guardrail.Category) []*guardrail.Guardrail {
	return s.guardrails.List(category)
}

// GetGuardrail returns one guardrail.
func (s *Service) GetGuardrail(id string) (*guardrail.Guardrail, error) {
	g, ok := s.guardrails.Get(id)
	if !ok {
		return nil, &NotFoundError{Kind: "guardrail", ID: id}
	}
	return g, nil
}

// CreateGuardrail validates def, compiles its predicate when absent and
// stores it.
func (s *Service) CreateGuardrail(ctx context.Context, def guardrail.Definition, createdBy string) (*guardrail.Guardrail, error) {
	g, err := s.guardrails.Create(def, createdBy)
	if err != nil {
		if errors.Is(err, guardrail.ErrDuplicateID) {
			return nil, &ConflictError{Kind: "guardrail", ID: def.ID, Reason: "id already exists", Cause: err}
		}
		return nil, &ValidationError{Op: "create guardrail", Cause: err}
	}

	s.record(ctx, &audit.Record{
		EventType:   audit.EventGuardrailCreated,
		Actor:       createdBy,
		SubjectID:   g.ID,
		Summary:     g.Name,
		PayloadHash: recorder.HashPayload(g),
	})
	s.persistGuardrails(ctx)
	s.observeGuardrails()
	return g, nil
}

// UpdateGuardrail applies a partial update.
func (s *Service) UpdateGuardrail(ctx context.Context, id string, patch guardrail.Patch, actor string) (*guardrail.Guardrail, error) {
	g, ok := s.guardrails.Update(id, patch)
	if !ok {
		return nil, &NotFoundError{Kind: "guardrail", ID: id}
	}

	s.record(ctx, &audit.Record{
		EventType:   audit.EventGuardrailUpdated,
		Actor:       actor,
		SubjectID:   g.ID,
		Summary:     g.Name,
		PayloadHash: recorder.HashPayload(g),
	})
	s.persistGuardrails(ctx)
	s.observeGuardrails()
	return g, nil
}

// DeleteGuardrail removes a guardrail and reports whether it existed.
func (s *Service) DeleteGuardrail(ctx context.Context, id, actor string) bool {
	if !s.guardrails.Delete(id) {
		return false
	}

	s.record(ctx, &audit.Record{
		EventType: audit.EventGuardrailDeleted,
		Actor:     actor,
		SubjectID: id,
	})
	s.persistGuardrails(ctx)
	s.observeGuardrails()
	return true
}

// ApplyGuardrails upserts definitions from an external source such as a
// guardrail file. Each created or changed guardrail is audited under actor;
// identical definitions are skipped. It returns how many definitions were
// valid and reports the invalid ones together. *Service is a guardrail.Sink.
func (s *Service) ApplyGuardrails(ctx context.Context, defs []guardrail.Definition, actor string) (int, error) {
	var errs []error
	applied, changed := 0, 0
	for i, def := range defs {
		g, res, err := s.guardrails.Upsert(def, actor)
		if err != nil {
			errs = append(errs, fmt.Errorf("guardrail %d (%q): %w", i, def.ID, err))
			continue
		}
		applied++

		event := audit.EventGuardrailUpdated
		switch res {
		case guardrail.UpsertUnchanged:
			continue
		case guardrail.UpsertCreated:
			event = audit.EventGuardrailCreated
		}
		changed++
		s.record(ctx, &audit.Record{
			EventType:   event,
			Actor:       actor,
			SubjectID:   g.ID,
			Summary:     g.Name,
			PayloadHash: recorder.HashPayload(g),
		})
	}

	if changed > 0 {
		s.persistGuardrails(ctx)
		s.logger.Info("guardrails applied",
			"actor", actor,
			"changed", changed,
			"unchanged", applied-changed,
		)
	}
	s.observeGuardrails()
	return applied, errors.Join(errs...)
}

// LogDecision evaluates and stores a decision. An escalated decision gets a
// pending escalation intervention before any reader can observe it.
func (s *Service) LogDecision(ctx context.Context, in decision.Input) (*decision.Decision, error) {
	principal := s.principals.Resolve(ctx, in.UserID)

	eval, err := s.engine.Evaluate(ctx, in, principal)
	if err != nil {
		var vErr *decision.ValidationError
		if errors.As(err, &vErr) {
			return nil, &ValidationError{Op: "log decision", Cause: err}
		}
		return nil, err
	}
	d := eval.Decision

	var iv *intervention.Intervention
	s.mu.Lock()
	if err := s.decisions.Put(ctx, d); err != nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("store decision: %w", err)
	}
	if d.Status == decision.StatusEscalated {
		iv = s.interventions.Create(intervention.Request{
			DecisionID:     d.ID,
			RiskScore:      d.RiskScore,
			OriginalAction: d.Action,
			Type:           intervention.TypeEscalation,
			RequestedBy:    guardrail.SystemPrincipal,
			Reason:         escalationReason(d),
			ReasonAr:       EscalationReasonAr,
		})
	}
	s.mu.Unlock()

	s.record(ctx, &audit.Record{
		EventType:   audit.EventDecisionLogged,
		Timestamp:   d.Timestamp,
		Actor:       d.UserID,
		SubjectID:   d.ID,
		DecisionID:  d.ID,
		UserID:      d.UserID,
		SessionID:   d.SessionID,
		Action:      d.Action,
		Status:      string(d.Status),
		RiskScore:   d.RiskScore,
		Guardrails:  d.GuardrailsTriggered,
		Summary:     d.Reasoning,
		PayloadHash: recorder.HashPayload(d),
	})

	if s.observer != nil {
		s.observer.ObserveDecision(string(d.Status), d.RiskScore, d.GuardrailsTriggered, eval.Duration)
		for _, f := range eval.Faults {
			s.observer.ObserveEvaluationFault(f.GuardrailID)
		}
	}

	if iv != nil {
		s.interventionCreated(ctx, iv, d)
	}

	return d.Clone(), nil
}

// GetDecisions returns decisions matching f, newest first.
func (s *Service) GetDecisions(ctx context.Context, f decision.Filter) ([]*decision.Decision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.decisions.List(ctx, f)
}

// GetDecision returns one decision.
func (s *Service) GetDecision(ctx context.Context, id string) (*decision.Decision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, err := s.decisions.Get(ctx, id)
	if errors.Is(err, decision.ErrNotFound) {
		return nil, &NotFoundError{Kind: "decision", ID: id}
	}
	return d, err
}

// ListInterventions expires overdue interventions and returns those with the
// given status (all when empty), highest priority first.
func (s *Service) ListInterventions(ctx context.Context, status intervention.Status) []*intervention.Intervention {
	s.mu.RLock()
	out := s.interventions.List(status)
	s.mu.RUnlock()

	s.observePending()
	return out
}

// GetIntervention returns one intervention.
func (s *Service) GetIntervention(ctx context.Context, id string) (*intervention.Intervention, error) {
	s.mu.RLock()
	iv, ok := s.interventions.Get(id)
	s.mu.RUnlock()
	s.flushExpired()
	if !ok {
		return nil, &NotFoundError{Kind: "intervention", ID: id}
	}
	return iv, nil
}

// ResolveIntervention records a reviewer's verdict. Approval and rejection
// settle the owning decision; other types only attach the review. A decision
// is reviewed once: later resolutions of its other interventions conflict.
func (s *Service) ResolveIntervention(ctx context.Context, id string, res intervention.Resolution) (*intervention.Intervention, error) {
	if res.ResolvedBy == "" || !res.Type.IsValid() {
		return nil, &ValidationError{Op: "resolve intervention", Cause: intervention.ErrInvalidResolution}
	}

	iv, d, err := s.resolveLocked(ctx, id, res)
	s.flushExpired()
	if err != nil {
		return nil, err
	}

	rec := &audit.Record{
		EventType:   audit.EventInterventionResolved,
		Actor:       iv.ResolvedBy,
		SubjectID:   iv.ID,
		DecisionID:  iv.DecisionID,
		Status:      string(iv.Type),
		Summary:     iv.Notes,
		PayloadHash: recorder.HashPayload(iv),
	}
	if d != nil {
		rec.UserID = d.UserID
		rec.SessionID = d.SessionID
		rec.Action = d.Action
		rec.RiskScore = d.RiskScore
	}
	s.record(ctx, rec)

	if s.observer != nil {
		s.observer.ObserveIntervention("resolved", string(iv.Priority))
	}
	s.observePending()
	return iv, nil
}

// resolveLocked resolves the intervention and settles its decision under mu.
// The returned decision is nil when it could not be updated.
func (s *Service) resolveLocked(ctx context.Context, id string, res intervention.Resolution) (*intervention.Intervention, *decision.Decision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.interventions.Get(id)
	if !ok {
		return nil, nil, &NotFoundError{Kind: "intervention", ID: id}
	}
	if owner, err := s.decisions.Get(ctx, current.DecisionID); err == nil && owner.Reviewed() {
		reason := "already " + string(owner.Status)
		if !owner.Status.IsFinal() {
			reason = "already reviewed"
		}
		return nil, nil, &ConflictError{
			Kind:   "decision",
			ID:     owner.ID,
			Reason: reason,
			Cause:  decision.ErrFinalized,
		}
	}

	iv, err := s.interventions.Resolve(id, res)
	if err != nil {
		if errors.Is(err, intervention.ErrNotPending) {
			return nil, nil, &ConflictError{Kind: "intervention", ID: id, Reason: "not pending", Cause: err}
		}
		if errors.Is(err, intervention.ErrNotFound) {
			return nil, nil, &NotFoundError{Kind: "intervention", ID: id}
		}
		return nil, nil, &ValidationError{Op: "resolve intervention", Cause: err}
	}

	var status decision.Status
	switch iv.Type {
	case intervention.TypeApproval:
		status = decision.StatusApproved
	case intervention.TypeRejection:
		status = decision.StatusRejected
	}
	d, err := s.decisions.SetReview(ctx, iv.DecisionID, iv, status)
	if err != nil && !errors.Is(err, decision.ErrNotFound) {
		s.logger.Error("failed to attach review to decision",
			"intervention_id", iv.ID,
			"decision_id", iv.DecisionID,
			"error", err,
		)
	}
	return iv, d, nil
}

// ListPolicies returns every policy sorted by id.
func (s *Service) ListPolicies() []*policy.Policy {
	return s.policies.List()
}

// UpdatePolicy merges patch into a policy.
func (s *Service) UpdatePolicy(ctx context.Context, id string, patch policy.Patch, actor string) (*policy.Policy, error) {
	p, ok, err := s.policies.Update(id, patch)
	if !ok {
		return nil, &NotFoundError{Kind: "policy", ID: id}
	}
	if err != nil {
		return nil, &ValidationError{Op: "update policy", Cause: err}
	}

	s.record(ctx, &audit.Record{
		EventType:   audit.EventPolicyUpdated,
		Actor:       actor,
		SubjectID:   p.ID,
		Summary:     p.Name,
		PayloadHash: recorder.HashPayload(p),
	})
	s.persistPolicies(ctx)
	return p, nil
}

// SweepInterventions expires overdue interventions and returns how many
// changed.
func (s *Service) SweepInterventions(ctx context.Context) int {
	s.mu.RLock()
	n := len(s.interventions.Sweep())
	s.mu.RUnlock()
	s.observePending()
	return n
}

func (s *Service) interventionCreated(ctx context.Context, iv *intervention.Intervention, d *decision.Decision) {
	s.record(ctx, &audit.Record{
		EventType:   audit.EventInterventionCreated,
		Timestamp:   iv.RequestedAt,
		Actor:       iv.RequestedBy,
		SubjectID:   iv.ID,
		DecisionID:  d.ID,
		UserID:      d.UserID,
		SessionID:   d.SessionID,
		Action:      d.Action,
		Status:      string(iv.Status),
		RiskScore:   d.RiskScore,
		Guardrails:  d.GuardrailsTriggered,
		Summary:     iv.Reason,
		PayloadHash: recorder.HashPayload(iv),
	})
	if s.observer != nil {
		s.observer.ObserveIntervention("created", string(iv.Priority))
	}
	s.observePending()
}

// queueExpired runs for each intervention a sweep expires. Sweeps happen
// while mu is held, so the record is written later by flushExpired.
func (s *Service) queueExpired(iv *intervention.Intervention) {
	s.expiredMu.Lock()
	s.expired = append(s.expired, iv)
	s.expiredMu.Unlock()
}

// flushExpired audits and observes queued expirations. Callers must not
// hold mu.
func (s *Service) flushExpired() {
	s.expiredMu.Lock()
	expired := s.expired
	s.expired = nil
	s.expiredMu.Unlock()

	for _, iv := range expired {
		s.record(context.Background(), &audit.Record{
			EventType:  audit.EventInterventionExpired,
			Actor:      guardrail.SystemPrincipal,
			SubjectID:  iv.ID,
			DecisionID: iv.DecisionID,
			Status:     string(iv.Status),
			Summary:    iv.Reason,
		})
		if s.observer != nil {
			s.observer.ObserveIntervention("expired", string(iv.Priority))
		}
	}
}

func (s *Service) record(ctx context.Context, rec *audit.Record) {
	if s.auditor == nil {
		return
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = s.clock()
	}
	if err := s.auditor.Record(ctx, rec); err != nil {
		s.logger.Warn("failed to record audit event",
			"event_type", rec.EventType,
			"subject_id", rec.SubjectID,
			"error", err,
		)
	}
}

func (s *Service) persistGuardrails(ctx context.Context) {
	if s.persister == nil {
		return
	}
	s.persistMu.Lock()
	defer s.persistMu.Unlock()
	if err := s.persister.SaveGuardrails(ctx, s.guardrails.Snapshot()); err != nil {
		s.logger.Error("failed to persist guardrails", "error", err)
	}
}

func (s *Service) persistPolicies(ctx context.Context) {
	if s.persister == nil {
		return
	}
	s.persistMu.Lock()
	defer s.persistMu.Unlock()
	if err := s.persister.SavePolicies(ctx, s.policies.Snapshot()); err != nil {
		s.logger.Error("failed to persist policies", "error", err)
	}
}

// Persist saves both registries now.
func (s *Service) Persist(ctx context.Context) {
	s.persistGuardrails(ctx)
	s.persistPolicies(ctx)
}

func (s *Service) observeGuardrails() {
	if s.observer == nil {
		return
	}
	s.observer.SetGuardrails(len(s.guardrails.Enabled()), s.guardrails.Len())
}

// observePending also flushes expirations found by the count's sweep.
func (s *Service) observePending() {
	if s.observer != nil {
		s.observer.SetPendingInterventions(s.interventions.PendingCount())
	}
	s.flushExpired()
}

func escalationReason(d *decision.Decision) string {
	if len(d.GuardrailsTriggered) == 0 {
		return fmt.Sprintf("%s: risk score %d", EscalationReason, d.RiskScore)
	}
	return fmt.Sprintf("%s: risk score %d, guardrails %s",
		EscalationReason, d.RiskScore, strings.Join(d.GuardrailsTriggered, ", "))
}

// Principal resolves the authorization attributes of userID.
func (s *Service) Principal(ctx context.Context, userID string) decision.Principal {
	return s.principals.Resolve(ctx, userID)
}

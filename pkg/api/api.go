package api

import (
	"log/slog"
	"net/http"

	"mercator-hq/overseer/pkg/api/middleware"
	"mercator-hq/overseer/pkg/audit"
	"mercator-hq/overseer/pkg/config"
	"mercator-hq/overseer/pkg/governance"
)

// API serves the governance routes.
type API struct {
	svc         *governance.Service
	auditStore  audit.Storage
	auditLimits config.QueryConfig
	logger      *slog.Logger
}

// Option configures an API.
type Option func(*API)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *API) { a.logger = logger }
}

// WithAudit enables the audit routes over storage. Query limits come from
// cfg.
func WithAudit(storage audit.Storage, cfg config.QueryConfig) Option {
	return func(a *API) {
		a.auditStore = storage
		a.auditLimits = cfg
	}
}

// New creates the API for svc.
func New(svc *governance.Service, opts ...Option) *API {
	a := &API{svc: svc}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = slog.Default()
	}
	a.logger = a.logger.With("component", "api")
	return a
}

// Register mounts every route on mux.
func (a *API) Register(mux *http.ServeMux) {
	a.handle(mux, "GET /api/guardrails", a.listGuardrails, false)
	a.handle(mux, "POST /api/guardrails", a.createGuardrail, true)
	a.handle(mux, "GET /api/guardrails/categories", a.guardrailCategories, false)
	a.handle(mux, "GET /api/guardrails/severities", a.severities, false)
	a.handle(mux, "GET /api/guardrails/{id}", a.getGuardrail, false)
	a.handle(mux, "PATCH /api/guardrails/{id}", a.updateGuardrail, true)
	a.handle(mux, "DELETE /api/guardrails/{id}", a.deleteGuardrail, true)

	a.handle(mux, "POST /api/decisions", a.logDecision, false)
	a.handle(mux, "GET /api/decisions", a.listDecisions, false)
	a.handle(mux, "GET /api/decisions/{id}", a.getDecision, false)

	a.handle(mux, "GET /api/interventions", a.listInterventions, false)
	a.handle(mux, "GET /api/interventions/{id}", a.getIntervention, false)
	a.handle(mux, "POST /api/interventions/{id}/resolve", a.resolveIntervention, true)

	a.handle(mux, "GET /api/policies", a.listPolicies, false)
	a.handle(mux, "PATCH /api/policies/{id}", a.updatePolicy, true)

	a.handle(mux, "GET /api/stats", a.stats, false)

	if a.auditStore != nil {
		a.handle(mux, "GET /api/audit", a.queryAudit, false)
		a.handle(mux, "GET /api/audit/export", a.exportAudit, false)
	}
}

// Handler returns a mux serving only the API routes.
func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()
	a.Register(mux)
	return mux
}

// callerHandler receives the authenticated caller's user id.
type callerHandler func(w http.ResponseWriter, r *http.Request, caller string)

// handle registers h behind the authentication and owner checks.
func (a *API) handle(mux *http.ServeMux, pattern string, h callerHandler, ownerOnly bool) {
	mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		middleware.SetRoute(r.Context(), r.Pattern)

		caller, ok := callerID(r)
		if !ok {
			middleware.WriteError(w, r, http.StatusUnauthorized, middleware.CodeUnauthorized, "authentication required")
			return
		}
		if ownerOnly && !a.svc.Principal(r.Context(), caller).IsOwner {
			a.logger.WarnContext(r.Context(), "owner-only operation denied",
				"user_id", caller,
				"route", r.Pattern,
			)
			middleware.WriteError(w, r, http.StatusForbidden, middleware.CodeForbidden, "owner role required")
			return
		}
		h(w, r, caller)
	})
}

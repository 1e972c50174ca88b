package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/overseer/pkg/api"
	"mercator-hq/overseer/pkg/api/middleware"
	"mercator-hq/overseer/pkg/audit"
	"mercator-hq/overseer/pkg/audit/recorder"
	"mercator-hq/overseer/pkg/audit/retention"
	"mercator-hq/overseer/pkg/audit/storage"
	"mercator-hq/overseer/pkg/config"
	"mercator-hq/overseer/pkg/governance"
	"mercator-hq/overseer/pkg/governance/guardrail"
	"mercator-hq/overseer/pkg/governance/intervention"
	"mercator-hq/overseer/pkg/governance/store"
	"mercator-hq/overseer/pkg/security/auth"
	"mercator-hq/overseer/pkg/telemetry/health"
	"mercator-hq/overseer/pkg/telemetry/metrics"
)

// OpenAuditStorage opens the audit backend selected by cfg.
func OpenAuditStorage(cfg config.AuditConfig) (audit.Storage, error) {
	switch cfg.Backend {
	case "memory":
		return storage.NewMemoryStorage(), nil
	case "sqlite", "":
		if err := ensureDir(cfg.SQLite.Path); err != nil {
			return nil, err
		}
		return storage.NewSQLiteStorage(&storage.SQLiteConfig{
			Path:         cfg.SQLite.Path,
			MaxOpenConns: cfg.SQLite.MaxOpenConns,
			MaxIdleConns: cfg.SQLite.MaxIdleConns,
			WALMode:      cfg.SQLite.WALMode,
			BusyTimeout:  cfg.SQLite.BusyTimeout,
		})
	default:
		return nil, fmt.Errorf("unknown audit backend %q", cfg.Backend)
	}
}

// OpenSnapshots opens the SQLite snapshot store.
func OpenSnapshots(cfg config.StoreConfig, logger *slog.Logger) (*store.Snapshots, error) {
	if err := ensureDir(cfg.Path); err != nil {
		return nil, err
	}
	backend, err := store.OpenSQLite(cfg.Path, cfg.BusyTimeout, logger)
	if err != nil {
		return nil, err
	}
	return store.New(backend), nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create data directory %s: %w", dir, err)
	}
	return nil
}

// build wires every component from the configuration. On error, anything
// already opened is closed.
func (s *Server) build() (err error) {
	cfg := s.cfg

	defer func() {
		if err != nil {
			_ = s.closeStores()
		}
	}()

	if cfg.Telemetry.Metrics.Enabled {
		s.collector = metrics.NewCollector(&cfg.Telemetry.Metrics, prometheus.NewRegistry())
	}

	s.auditStore, err = OpenAuditStorage(cfg.Audit)
	if err != nil {
		return fmt.Errorf("open audit storage: %w", err)
	}

	var recOpts []recorder.Option
	if s.collector != nil {
		collector := s.collector
		recOpts = append(recOpts, recorder.WithWriteHook(func(rec *audit.Record, werr error) {
			collector.RecordAuditWrite(string(rec.EventType), werr)
		}))
	}
	s.recorder = recorder.NewRecorder(s.auditStore, &recorder.Config{
		Enabled:        cfg.Audit.Enabled,
		AsyncBuffer:    cfg.Audit.Recorder.AsyncBuffer,
		WriteTimeout:   cfg.Audit.Recorder.WriteTimeout,
		MaxFieldLength: cfg.Audit.Recorder.MaxFieldLength,
	}, s.logger, recOpts...)

	s.pruner = retention.NewPruner(s.auditStore, &retention.Config{
		RetentionDays:       cfg.Audit.Retention.Days,
		PruneSchedule:       cfg.Audit.Retention.PruneSchedule,
		ArchiveBeforeDelete: cfg.Audit.Retention.ArchiveBeforeDelete,
		ArchivePath:         cfg.Audit.Retention.ArchivePath,
		MaxRecords:          cfg.Audit.Retention.MaxRecords,
	}, s.logger)

	if cfg.Store.Enabled {
		s.snapshots, err = OpenSnapshots(cfg.Store, s.logger)
		if err != nil {
			return err
		}
	}

	opts := []governance.Option{
		governance.WithLogger(s.logger),
		governance.WithAuditor(s.recorder),
	}
	if s.collector != nil {
		opts = append(opts, governance.WithObserver(s.collector))
	}
	if s.snapshots != nil {
		opts = append(opts, governance.WithPersister(s.snapshots))
	}
	s.svc = governance.New(GovernanceConfig(cfg), opts...)

	ctx := context.Background()
	s.source, err = InitRegistries(ctx, cfg, s.svc, s.snapshots, s.logger)
	if err != nil {
		return err
	}
	if s.snapshots != nil {
		s.svc.Persist(ctx)
	}

	if cfg.Guardrails.SourcePath != "" && cfg.Guardrails.Watch {
		s.watcher, err = guardrail.NewWatcher(s.source, s.svc, cfg.Guardrails.DebounceInterval, s.logger)
		if err != nil {
			return err
		}
	}

	s.checker = health.New(cfg.Telemetry.Health.CheckTimeout, s.logger)
	s.checker.RegisterCritical("audit_storage", health.AuditStorageCheck(s.auditStore))
	s.checker.RegisterCheck("audit_backlog", health.BacklogCheck(s.recorder.Pending, cfg.Audit.Recorder.AsyncBuffer))
	if s.snapshots != nil {
		s.checker.RegisterCritical("snapshot_store", health.PingCheck(s.snapshots))
	}

	s.handler = s.routes()
	return nil
}

// GovernanceConfig maps the engine section of cfg onto governance.Config.
func GovernanceConfig(cfg *config.Config) governance.Config {
	return governance.Config{
		TokenLimit:       cfg.Governance.TokenLimit,
		RestrictedModels: cfg.Governance.RestrictedModels,
		Owners:           cfg.Governance.Owners,
		Expiry: intervention.Expiry{
			Critical: cfg.Interventions.Expiry.Critical,
			High:     cfg.Interventions.Expiry.High,
			Medium:   cfg.Interventions.Expiry.Medium,
			Low:      cfg.Interventions.Expiry.Low,
		},
	}
}

// InitRegistries restores snapshots when snaps is set, seeds the built-ins
// over them and then upserts the configured file source, in that order. It
// returns the file source, or nil when none is configured.
func InitRegistries(ctx context.Context, cfg *config.Config, svc *governance.Service, snaps *store.Snapshots, logger *slog.Logger) (*guardrail.FileSource, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if snaps != nil {
		if err := restore(ctx, svc, snaps, logger); err != nil {
			return nil, err
		}
	}

	if cfg.Guardrails.SeedBuiltins {
		svc.Seed(ctx)
	}

	path := cfg.Guardrails.SourcePath
	if path == "" {
		return nil, nil
	}
	source := guardrail.NewFileSource(path, logger)
	if _, err := source.Apply(ctx, svc); err != nil {
		// Valid definitions were applied; rejected ones are only logged.
		logger.Warn("guardrail source partially applied", "path", path, "error", err)
	}
	return source, nil
}

func restore(ctx context.Context, svc *governance.Service, snaps *store.Snapshots, logger *slog.Logger) error {
	guardrails, err := snaps.LoadGuardrails(ctx)
	switch {
	case errors.Is(err, store.ErrNoSnapshot):
	case err != nil:
		return fmt.Errorf("restore guardrails: %w", err)
	default:
		svc.Guardrails().Restore(guardrails)
	}

	policies, err := snaps.LoadPolicies(ctx)
	switch {
	case errors.Is(err, store.ErrNoSnapshot):
	case err != nil:
		return fmt.Errorf("restore policies: %w", err)
	default:
		svc.Policies().Restore(policies)
	}

	logger.Info("registries restored from snapshot",
		"guardrails", len(guardrails),
		"policies", len(policies),
	)
	return nil
}

// routes builds the mux and the middleware chain. Authentication applies to
// /api/ only so health checks and scrapes stay anonymous.
func (s *Server) routes() http.Handler {
	cfg := s.cfg

	apiMux := http.NewServeMux()
	api.New(s.svc,
		api.WithLogger(s.logger),
		api.WithAudit(s.auditStore, cfg.Audit.Query),
	).Register(apiMux)

	authn := auth.NewMiddleware(cfg.Security.Authentication,
		auth.ValidatorFromConfig(cfg.Security.Authentication), s.logger)

	mux := http.NewServeMux()
	mux.Handle("/api/", authn.Handle(apiMux))

	if cfg.Telemetry.Health.Enabled {
		healthMux := http.NewServeMux()
		health.Register(healthMux, s.checker, cfg.Telemetry.Health, s.version)
		for _, path := range []string{
			cfg.Telemetry.Health.LivenessPath,
			cfg.Telemetry.Health.ReadinessPath,
			"/version",
		} {
			mux.Handle(path, routed(healthMux))
		}
	}

	if s.collector != nil {
		mux.Handle("GET "+cfg.Telemetry.Metrics.Path, routed(s.collector.Handler()))
	}

	mws := []func(http.Handler) http.Handler{
		middleware.Recovery(s.logger),
		middleware.RequestID,
		middleware.Logging(s.logger),
	}
	if s.collector != nil {
		mws = append(mws, middleware.Metrics(s.collector))
	}
	mws = append(mws,
		middleware.CORS(cfg.Server.CORS),
		middleware.MaxBody(cfg.Server.MaxBodyBytes),
	)
	return middleware.Chain(mux, mws...)
}

// routed labels the request with the pattern matched on the outer mux.
func routed(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		middleware.SetRoute(r.Context(), r.Pattern)
		h.ServeHTTP(w, r)
	})
}

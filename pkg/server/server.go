package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"mercator-hq/overseer/pkg/audit"
	"mercator-hq/overseer/pkg/audit/recorder"
	"mercator-hq/overseer/pkg/audit/retention"
	"mercator-hq/overseer/pkg/config"
	"mercator-hq/overseer/pkg/governance"
	"mercator-hq/overseer/pkg/governance/guardrail"
	"mercator-hq/overseer/pkg/governance/store"
	"mercator-hq/overseer/pkg/telemetry/health"
	"mercator-hq/overseer/pkg/telemetry/metrics"
)

// Server is the governance HTTP server and the background jobs around it.
type Server struct {
	cfg     *config.Config
	logger  *slog.Logger
	version health.VersionInfo

	svc        *governance.Service
	auditStore audit.Storage
	recorder   *recorder.Recorder
	pruner     *retention.Pruner
	snapshots  *store.Snapshots
	source     *guardrail.FileSource
	watcher    *guardrail.Watcher
	collector  *metrics.Collector
	checker    *health.Checker
	handler    http.Handler

	httpServer   *http.Server
	listener     net.Listener
	wg           sync.WaitGroup
	cancelJobs   context.CancelFunc
	shutdownChan chan struct{}
	shutdownOnce sync.Once
	mu           sync.RWMutex
	isRunning    bool
}

// New builds every component described by cfg. The returned server owns
// the audit and snapshot stores; Shutdown or Close releases them.
func New(cfg *config.Config, logger *slog.Logger, version health.VersionInfo) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("server: nil config")
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		cfg:          cfg,
		logger:       logger,
		version:      version,
		shutdownChan: make(chan struct{}),
	}
	if err := s.build(); err != nil {
		return nil, err
	}
	s.logger = logger.With("component", "server")
	return s, nil
}

// Service returns the governance engine.
func (s *Server) Service() *governance.Service {
	return s.svc
}

// Handler returns the HTTP handler with the full middleware chain.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Checker returns the health checker.
func (s *Server) Checker() *health.Checker {
	return s.checker
}

// Addr returns the bound listen address once the server is running.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Start binds the listener, starts the background jobs and blocks until ctx
// is cancelled, a shutdown signal arrives, Stop is called or serving fails.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}

	ln, err := net.Listen("tcp", s.cfg.Server.ListenAddress)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("listen on %s: %w", s.cfg.Server.ListenAddress, err)
	}
	s.listener = ln
	s.httpServer = &http.Server{
		Handler:        s.handler,
		ReadTimeout:    s.cfg.Server.ReadTimeout,
		WriteTimeout:   s.cfg.Server.WriteTimeout,
		IdleTimeout:    s.cfg.Server.IdleTimeout,
		MaxHeaderBytes: s.cfg.Server.MaxHeaderBytes,
		ErrorLog:       slog.NewLogLogger(s.logger.Handler(), slog.LevelWarn),
	}
	s.isRunning = true
	s.mu.Unlock()

	jobsCtx, cancel := context.WithCancel(context.Background())
	s.cancelJobs = cancel
	if err := s.startJobs(jobsCtx); err != nil {
		_ = s.Shutdown(context.Background())
		return err
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("starting governance server", "address", ln.Addr().String())
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case <-ctx.Done():
		s.logger.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case sig := <-sigChan:
		s.logger.Info("received shutdown signal", "signal", sig.String())
		return s.Shutdown(context.Background())
	case err := <-errChan:
		_ = s.Shutdown(context.Background())
		return err
	case <-s.shutdownChan:
		s.logger.Info("shutdown requested")
		return s.Shutdown(context.Background())
	}
}

// Stop asks a running Start to shut down.
func (s *Server) Stop() {
	select {
	case <-s.shutdownChan:
	default:
		close(s.shutdownChan)
	}
}

// startJobs launches the retention scheduler, the intervention sweep and the
// guardrail file watcher.
func (s *Server) startJobs(ctx context.Context) error {
	if err := s.pruner.Start(ctx); err != nil {
		return fmt.Errorf("start retention: %w", err)
	}

	if interval := s.cfg.Interventions.SweepInterval; interval > 0 {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.sweepLoop(ctx, interval)
		}()
	}

	if s.watcher != nil {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			if err := s.watcher.Watch(ctx); err != nil {
				s.logger.Error("guardrail watcher stopped", "error", err)
			}
		}()
	}
	return nil
}

func (s *Server) sweepLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.svc.SweepInterventions(ctx); n > 0 {
				s.logger.Debug("interventions expired by sweep", "count", n)
			}
		}
	}
}

// Shutdown drains HTTP traffic, stops the background jobs, flushes the audit
// recorder and closes the stores.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.logger.Info("initiating graceful shutdown", "timeout", s.cfg.Server.ShutdownTimeout.String())

		shutdownCtx, cancel := context.WithTimeout(ctx, s.cfg.Server.ShutdownTimeout)
		defer cancel()

		var errs []error
		if s.httpServer != nil {
			if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
				s.logger.Error("error during server shutdown", "error", err)
				errs = append(errs, fmt.Errorf("server shutdown error: %w", err))
			}
		}

		if s.cancelJobs != nil {
			s.cancelJobs()
		}
		s.pruner.Stop()
		if s.watcher != nil {
			if err := s.watcher.Stop(); err != nil {
				errs = append(errs, err)
			}
		}
		s.wg.Wait()

		if err := s.closeStores(); err != nil {
			errs = append(errs, err)
		}
		shutdownErr = errors.Join(errs...)

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()

		s.logger.Info("governance server stopped")
	})

	return shutdownErr
}

// Close releases the stores of a server that was never started.
func (s *Server) Close() error {
	return s.Shutdown(context.Background())
}

// closeStores flushes the recorder before closing the storage it writes to.
func (s *Server) closeStores() error {
	var errs []error
	if s.recorder != nil {
		if err := s.recorder.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close audit recorder: %w", err))
		}
	}
	if s.auditStore != nil {
		if err := s.auditStore.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close audit storage: %w", err))
		}
	}
	if s.snapshots != nil {
		if err := s.snapshots.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close snapshot store: %w", err))
		}
	}
	return errors.Join(errs...)
}

// IsRunning returns true if the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

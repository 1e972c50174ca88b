// Package server assembles the governance engine, its stores and the HTTP
// surface into one process and manages its lifecycle.
//
// # Startup Order
//
//	config.Config
//	     ↓
//	metrics collector (own prometheus.Registry)
//	     ↓
//	audit storage (memory | sqlite) → recorder → retention pruner
//	     ↓
//	snapshot store (optional) → restore guardrails and policies
//	     ↓
//	seed built-ins → upsert guardrail file source → persist
//	     ↓
//	health checks, routes, middleware chain
//
// # Routes
//
//	/api/...             governance API, behind authentication
//	/health, /ready      health checks (paths configurable)
//	/version             build information
//	/metrics             Prometheus scrape endpoint
//
// # Usage
//
//	cfg, err := config.LoadConfigWithEnvOverrides("config.yaml")
//	if err != nil {
//	    return err
//	}
//	logger, err := logging.New(cfg.Telemetry.Logging, os.Stderr)
//	if err != nil {
//	    return err
//	}
//	srv, err := server.New(cfg, logger, health.NewVersionInfo(version, commit, date))
//	if err != nil {
//	    return err
//	}
//	return srv.Start(ctx)
//
// Start blocks until ctx is cancelled or SIGINT/SIGTERM arrives, then drains
// in-flight requests, stops the retention scheduler, the optional intervention
// sweep and the guardrail watcher, flushes queued audit records and closes the
// stores.
package server

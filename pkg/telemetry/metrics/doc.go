// Package metrics exposes Prometheus metrics for the governance server.
//
// The Collector satisfies governance.Observer, so decisions, guardrail
// triggers, evaluation faults and intervention lifecycle events are recorded
// as the Service produces them. The API middleware records request counts and
// latency, and the audit recorder's write hook records audit writes.
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	svc := governance.New(govCfg, governance.WithObserver(collector))
//	mux.Handle(cfg.Telemetry.Metrics.Path, collector.Handler())
//
// All metrics share the configured namespace and subsystem, by default
// "overseer_governance_".
package metrics

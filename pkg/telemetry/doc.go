// Package telemetry groups the observability packages of the governance
// server.
//
// # Components
//
//   - logging: slog construction from config, context fields, PII redaction
//   - metrics: Prometheus metrics for decisions, interventions, HTTP and audit writes
//   - health: liveness, readiness and version endpoints
//
// # Usage
//
//	logger, err := logging.New(cfg.Telemetry.Logging, os.Stderr)
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, prometheus.NewRegistry())
//	checker := health.New(cfg.Telemetry.Health.CheckTimeout, logger)
//	checker.RegisterCritical("audit_storage", health.AuditStorageCheck(storage))
//
// # PII Protection
//
// With redact_pii enabled, log values are scrubbed before they are written:
//
//   - API keys: sk-abc123 → sk-***
//   - Emails: user@example.com → u***@example.com
//   - SSN: 123-45-6789 → ***-**-****
//   - Cards: 4111 1111 1111 1234 → ****-****-****-1234
//
// Custom redaction patterns can be configured.
package telemetry

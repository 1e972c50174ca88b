// Package health serves the liveness, readiness and version endpoints.
//
// Liveness answers 200 whenever the process can serve HTTP. Readiness runs
// the registered checks concurrently, each bounded by the check timeout, and
// answers 503 unless all of them pass:
//
//	checker := health.New(cfg.Telemetry.Health.CheckTimeout, logger)
//	checker.RegisterCritical("audit_storage", health.AuditStorageCheck(auditStore))
//	checker.RegisterCritical("snapshot_store", health.PingCheck(snapshots))
//	checker.RegisterCheck("audit_backlog", health.BacklogCheck(rec.Pending, cfg.Audit.Recorder.AsyncBuffer))
//
//	health.Register(mux, checker, cfg.Telemetry.Health, health.NewVersionInfo(version, commit, buildTime))
//
// A failed critical check reports "unhealthy"; any other failure reports
// "degraded".
package health

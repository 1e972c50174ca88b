package config

import (
	"fmt"
	"net"
	"regexp"
	"strings"
	"time"

	"mercator-hq/overseer/pkg/audit/retention"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "server.listen_address").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate checks the whole configuration and returns a ValidationError
// listing every problem, or nil.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateServer(&cfg.Server)...)
	errs = append(errs, validateGovernance(&cfg.Governance)...)
	errs = append(errs, validateGuardrails(&cfg.Guardrails)...)
	errs = append(errs, validateInterventions(&cfg.Interventions)...)
	errs = append(errs, validateStore(&cfg.Store)...)
	errs = append(errs, validateAudit(&cfg.Audit)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)
	errs = append(errs, validateSecurity(&cfg.Security)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

func validateServer(cfg *ServerConfig) []FieldError {
	var errs []FieldError

	if cfg.ListenAddress == "" {
		errs = append(errs, FieldError{Field: "server.listen_address", Message: "listen address is required"})
	} else if _, _, err := net.SplitHostPort(cfg.ListenAddress); err != nil {
		errs = append(errs, FieldError{Field: "server.listen_address", Message: fmt.Sprintf("invalid address: %v", err)})
	}

	if cfg.ReadTimeout < 0 {
		errs = append(errs, FieldError{Field: "server.read_timeout", Message: "read timeout must be positive"})
	}
	if cfg.WriteTimeout < 0 {
		errs = append(errs, FieldError{Field: "server.write_timeout", Message: "write timeout must be positive"})
	}
	if cfg.IdleTimeout < 0 {
		errs = append(errs, FieldError{Field: "server.idle_timeout", Message: "idle timeout must be positive"})
	}
	if cfg.ShutdownTimeout < 0 {
		errs = append(errs, FieldError{Field: "server.shutdown_timeout", Message: "shutdown timeout must be positive"})
	}
	if cfg.MaxHeaderBytes < 0 {
		errs = append(errs, FieldError{Field: "server.max_header_bytes", Message: "max header bytes must be non-negative"})
	}
	if cfg.MaxBodyBytes < 0 {
		errs = append(errs, FieldError{Field: "server.max_body_bytes", Message: "max body bytes must be non-negative"})
	}
	if cfg.CORS.Enabled {
		if len(cfg.CORS.AllowedOrigins) == 0 {
			errs = append(errs, FieldError{Field: "server.cors.allowed_origins", Message: "at least one origin is required when CORS is enabled"})
		}
		for _, origin := range cfg.CORS.AllowedOrigins {
			if origin == "*" && cfg.CORS.AllowCredentials {
				errs = append(errs, FieldError{Field: "server.cors.allow_credentials", Message: "credentials cannot be allowed for a wildcard origin"})
			}
		}
		if cfg.CORS.MaxAge < 0 {
			errs = append(errs, FieldError{Field: "server.cors.max_age", Message: "max age must be non-negative"})
		}
	}

	return errs
}

func validateGovernance(cfg *GovernanceConfig) []FieldError {
	var errs []FieldError

	if cfg.TokenLimit <= 0 {
		errs = append(errs, FieldError{Field: "governance.token_limit", Message: "token limit must be positive"})
	}
	for i, owner := range cfg.Owners {
		if strings.TrimSpace(owner) == "" {
			errs = append(errs, FieldError{Field: fmt.Sprintf("governance.owners[%d]", i), Message: "owner id must not be empty"})
		}
	}

	return errs
}

func validateGuardrails(cfg *GuardrailsConfig) []FieldError {
	var errs []FieldError

	if cfg.Watch && cfg.SourcePath == "" {
		errs = append(errs, FieldError{Field: "guardrails.watch", Message: "watch requires guardrails.source_path"})
	}
	if cfg.DebounceInterval < 0 {
		errs = append(errs, FieldError{Field: "guardrails.debounce_interval", Message: "debounce interval must be non-negative"})
	}

	return errs
}

func validateInterventions(cfg *InterventionsConfig) []FieldError {
	var errs []FieldError

	windows := []struct {
		name string
		d    time.Duration
	}{
		{"critical", cfg.Expiry.Critical},
		{"high", cfg.Expiry.High},
		{"medium", cfg.Expiry.Medium},
		{"low", cfg.Expiry.Low},
	}
	for _, w := range windows {
		if w.d <= 0 {
			errs = append(errs, FieldError{Field: "interventions.expiry." + w.name, Message: "review window must be positive"})
		}
	}
	if cfg.SweepInterval < 0 {
		errs = append(errs, FieldError{Field: "interventions.sweep_interval", Message: "sweep interval must be non-negative"})
	}

	return errs
}

func validateStore(cfg *StoreConfig) []FieldError {
	if cfg.Enabled && cfg.Path == "" {
		return []FieldError{{Field: "store.path", Message: "path is required when the store is enabled"}}
	}
	return nil
}

func validateAudit(cfg *AuditConfig) []FieldError {
	var errs []FieldError
	if !cfg.Enabled {
		return errs
	}

	switch cfg.Backend {
	case "memory":
	case "sqlite":
		if cfg.SQLite.Path == "" {
			errs = append(errs, FieldError{Field: "audit.sqlite.path", Message: "path is required for the sqlite backend"})
		}
		if cfg.SQLite.MaxIdleConns > cfg.SQLite.MaxOpenConns {
			errs = append(errs, FieldError{Field: "audit.sqlite.max_idle_conns", Message: "must not exceed max_open_conns"})
		}
	default:
		errs = append(errs, FieldError{Field: "audit.backend", Message: fmt.Sprintf("unknown backend %q (want memory or sqlite)", cfg.Backend)})
	}

	if cfg.Recorder.AsyncBuffer < 0 {
		errs = append(errs, FieldError{Field: "audit.recorder.async_buffer", Message: "buffer size must be non-negative"})
	}
	if cfg.Retention.PruneSchedule != "" {
		if err := retention.ValidateSchedule(cfg.Retention.PruneSchedule); err != nil {
			errs = append(errs, FieldError{Field: "audit.retention.prune_schedule", Message: err.Error()})
		}
	}
	if cfg.Retention.MaxRecords < 0 {
		errs = append(errs, FieldError{Field: "audit.retention.max_records", Message: "max records must be non-negative"})
	}
	if cfg.Retention.ArchiveBeforeDelete && cfg.Retention.ArchivePath == "" {
		errs = append(errs, FieldError{Field: "audit.retention.archive_path", Message: "archive path is required when archiving"})
	}
	if cfg.Query.DefaultLimit > cfg.Query.MaxLimit {
		errs = append(errs, FieldError{Field: "audit.query.default_limit", Message: "must not exceed max_limit"})
	}

	return errs
}

func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, FieldError{Field: "telemetry.logging.level", Message: fmt.Sprintf("unknown level %q", cfg.Logging.Level)})
	}
	switch cfg.Logging.Format {
	case "json", "text":
	default:
		errs = append(errs, FieldError{Field: "telemetry.logging.format", Message: fmt.Sprintf("unknown format %q", cfg.Logging.Format)})
	}
	for i, p := range cfg.Logging.RedactPatterns {
		if _, err := regexp.Compile(p.Pattern); err != nil {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("telemetry.logging.redact_patterns[%d].pattern", i),
				Message: fmt.Sprintf("invalid regular expression: %v", err),
			})
		}
	}

	if cfg.Metrics.Enabled && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		errs = append(errs, FieldError{Field: "telemetry.metrics.path", Message: "path must start with /"})
	}
	if cfg.Health.Enabled {
		if !strings.HasPrefix(cfg.Health.LivenessPath, "/") {
			errs = append(errs, FieldError{Field: "telemetry.health.liveness_path", Message: "path must start with /"})
		}
		if !strings.HasPrefix(cfg.Health.ReadinessPath, "/") {
			errs = append(errs, FieldError{Field: "telemetry.health.readiness_path", Message: "path must start with /"})
		}
	}

	return errs
}

func validateSecurity(cfg *SecurityConfig) []FieldError {
	var errs []FieldError
	auth := cfg.Authentication
	if !auth.Enabled {
		return errs
	}

	if len(auth.Keys) == 0 {
		errs = append(errs, FieldError{Field: "security.authentication.keys", Message: "at least one key is required when authentication is enabled"})
	}
	seen := make(map[string]bool, len(auth.Keys))
	for i, k := range auth.Keys {
		field := fmt.Sprintf("security.authentication.keys[%d]", i)
		if k.Key == "" {
			errs = append(errs, FieldError{Field: field + ".key", Message: "key is required"})
		} else if seen[k.Key] {
			errs = append(errs, FieldError{Field: field + ".key", Message: "duplicate key"})
		}
		seen[k.Key] = true
		if k.UserID == "" {
			errs = append(errs, FieldError{Field: field + ".user_id", Message: "user id is required"})
		}
	}
	for i, src := range auth.Sources {
		field := fmt.Sprintf("security.authentication.sources[%d]", i)
		if src.Type != "header" && src.Type != "query" {
			errs = append(errs, FieldError{Field: field + ".type", Message: fmt.Sprintf("unknown source type %q", src.Type)})
		}
		if src.Name == "" {
			errs = append(errs, FieldError{Field: field + ".name", Message: "name is required"})
		}
	}

	return errs
}

package config

import "time"

// Config is the root configuration of the Overseer governance server.
type Config struct {
	// Server contains HTTP listener configuration.
	Server ServerConfig `yaml:"server"`

	// Governance contains decision engine tunables and the owner identities.
	Governance GovernanceConfig `yaml:"governance"`

	// Guardrails controls the built-in set and the optional YAML source.
	Guardrails GuardrailsConfig `yaml:"guardrails"`

	// Interventions contains review window configuration.
	Interventions InterventionsConfig `yaml:"interventions"`

	// Store contains the guardrail and policy snapshot store configuration.
	Store StoreConfig `yaml:"store"`

	// Audit contains audit trail storage, recording and retention settings.
	Audit AuditConfig `yaml:"audit"`

	// Telemetry contains logging, metrics and health check configuration.
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Security contains API key authentication configuration.
	Security SecurityConfig `yaml:"security"`
}

// ServerConfig contains configuration for the HTTP server.
type ServerConfig struct {
	// ListenAddress is the address the API listens on.
	// Default: "127.0.0.1:8080"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout bounds reading a full request.
	// Default: 30s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout bounds writing a response.
	// Default: 30s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout bounds keep-alive connections.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout bounds graceful shutdown.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxHeaderBytes limits request header size.
	// Default: 1048576 (1MB)
	MaxHeaderBytes int `yaml:"max_header_bytes"`

	// MaxBodyBytes limits request body size.
	// Default: 1048576 (1MB)
	MaxBodyBytes int64 `yaml:"max_body_bytes"`

	// CORS configures cross-origin access for dashboards.
	CORS CORSConfig `yaml:"cors"`
}

// CORSConfig configures Cross-Origin Resource Sharing.
type CORSConfig struct {
	// Enabled controls whether CORS headers are sent.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// AllowedOrigins lists allowed origins. ["*"] allows any origin.
	AllowedOrigins []string `yaml:"allowed_origins"`

	// AllowedMethods lists methods allowed in preflight responses.
	// Default: GET, POST, PATCH, DELETE, OPTIONS
	AllowedMethods []string `yaml:"allowed_methods"`

	// AllowedHeaders lists request headers allowed in preflight responses.
	// Default: Authorization, Content-Type, X-API-Key, X-Request-ID, X-User-ID
	AllowedHeaders []string `yaml:"allowed_headers"`

	// ExposedHeaders lists response headers readable by the browser.
	// Default: X-Request-ID
	ExposedHeaders []string `yaml:"exposed_headers"`

	// MaxAge is the preflight cache lifetime in seconds.
	// Default: 3600
	MaxAge int `yaml:"max_age"`

	// AllowCredentials allows cookies and auth headers. It cannot be
	// combined with a "*" origin.
	AllowCredentials bool `yaml:"allow_credentials"`
}

// GovernanceConfig contains decision engine configuration.
type GovernanceConfig struct {
	// Owners are the user ids granted owner attributes. Owners bypass the
	// PII and role guardrails and may mutate guardrails, policies and
	// interventions through the API.
	Owners []string `yaml:"owners"`

	// TokenLimit is the denominator of tokens.ratio.
	// Default: 8000
	TokenLimit int `yaml:"token_limit"`

	// RestrictedModels is the model deny-list.
	// Default: ["gpt-4-base", "text-davinci-003", "uncensored-llm"]
	RestrictedModels []string `yaml:"restricted_models"`
}

// GuardrailsConfig controls where guardrails come from.
type GuardrailsConfig struct {
	// SeedBuiltins installs the built-in guardrails and default policies at
	// startup.
	// Default: true
	SeedBuiltins bool `yaml:"seed_builtins"`

	// SourcePath is an optional YAML file or directory of guardrail
	// definitions, upserted at startup.
	SourcePath string `yaml:"source_path"`

	// Watch reloads SourcePath when it changes.
	// Default: false
	Watch bool `yaml:"watch"`

	// DebounceInterval coalesces bursts of file events.
	// Default: 100ms
	DebounceInterval time.Duration `yaml:"debounce_interval"`
}

// InterventionsConfig contains review window configuration.
type InterventionsConfig struct {
	// Expiry holds the review window per priority.
	Expiry ExpiryConfig `yaml:"expiry"`

	// SweepInterval enables an optional background expiry pass. Every read
	// already expires overdue entries, so the sweep only matters for
	// keeping the pending gauge and audit trail current while idle.
	// Default: 0 (disabled)
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

// ExpiryConfig holds review windows by priority.
type ExpiryConfig struct {
	// Default: 1h
	Critical time.Duration `yaml:"critical"`
	// Default: 4h
	High time.Duration `yaml:"high"`
	// Default: 24h
	Medium time.Duration `yaml:"medium"`
	// Default: 24h
	Low time.Duration `yaml:"low"`
}

// StoreConfig configures durable guardrail and policy snapshots.
type StoreConfig struct {
	// Enabled restores snapshots at startup and saves them after every
	// mutation.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Path is the SQLite database file.
	// Default: "data/governance.db"
	Path string `yaml:"path"`

	// BusyTimeout is how long to wait on a locked database.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// AuditConfig contains audit trail configuration.
type AuditConfig struct {
	// Enabled controls whether audit records are written.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Backend selects the storage backend.
	// Options: "memory", "sqlite"
	// Default: "sqlite"
	Backend string `yaml:"backend"`

	// SQLite contains SQLite backend configuration.
	SQLite SQLiteConfig `yaml:"sqlite"`

	// Recorder contains async recorder configuration.
	Recorder RecorderConfig `yaml:"recorder"`

	// Retention contains pruning configuration.
	Retention RetentionConfig `yaml:"retention"`

	// Query contains query limits.
	Query QueryConfig `yaml:"query"`
}

// SQLiteConfig contains SQLite-specific configuration.
type SQLiteConfig struct {
	// Path is the file path for the SQLite database.
	// Default: "data/audit.db"
	Path string `yaml:"path"`

	// MaxOpenConns is the maximum number of open database connections.
	// Default: 10
	MaxOpenConns int `yaml:"max_open_conns"`

	// MaxIdleConns is the maximum number of idle database connections.
	// Default: 5
	MaxIdleConns int `yaml:"max_idle_conns"`

	// WALMode enables Write-Ahead Logging mode.
	// Default: true
	WALMode bool `yaml:"wal_mode"`

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// RecorderConfig contains audit recorder configuration.
type RecorderConfig struct {
	// AsyncBuffer is the size of the async write channel buffer.
	// Default: 1000
	AsyncBuffer int `yaml:"async_buffer"`

	// WriteTimeout is the timeout for writing a record to storage.
	// Default: 5s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// MaxFieldLength is the maximum length for text fields before truncation.
	// Default: 500
	MaxFieldLength int `yaml:"max_field_length"`
}

// RetentionConfig contains retention policy configuration.
type RetentionConfig struct {
	// Days is the number of days to retain audit records. A negative value
	// keeps records forever.
	// Default: 90
	Days int `yaml:"days"`

	// PruneSchedule is a cron expression for scheduling pruning.
	// Default: "0 3 * * *" (daily at 3 AM)
	PruneSchedule string `yaml:"prune_schedule"`

	// ArchiveBeforeDelete writes pruned records to ArchivePath first.
	// Default: false
	ArchiveBeforeDelete bool `yaml:"archive_before_delete"`

	// ArchivePath is the directory for archived records.
	// Default: "data/archives/"
	ArchivePath string `yaml:"archive_path"`

	// MaxRecords is the maximum number of records to keep. 0 is unlimited.
	// Default: 0
	MaxRecords int64 `yaml:"max_records"`
}

// QueryConfig contains audit query limits.
type QueryConfig struct {
	// DefaultLimit applies when a query sets no limit.
	// Default: 100
	DefaultLimit int `yaml:"default_limit"`

	// MaxLimit is the largest accepted limit.
	// Default: 10000
	MaxLimit int `yaml:"max_limit"`
}

// TelemetryConfig contains configuration for observability.
type TelemetryConfig struct {
	// Logging contains logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains metrics collection configuration.
	Metrics MetricsConfig `yaml:"metrics"`

	// Health contains health check configuration.
	Health HealthConfig `yaml:"health"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text"
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	// Default: false
	AddSource bool `yaml:"add_source"`

	// RedactPII enables automatic PII redaction in logs.
	// Default: true
	RedactPII bool `yaml:"redact_pii"`

	// RedactPatterns contains custom redaction patterns.
	RedactPatterns []RedactPattern `yaml:"redact_patterns"`
}

// RedactPattern defines a custom redaction pattern.
type RedactPattern struct {
	// Name is a descriptive name for the pattern.
	Name string `yaml:"name"`

	// Pattern is the regular expression to match.
	Pattern string `yaml:"pattern"`

	// Replacement is the string to replace matches with.
	Replacement string `yaml:"replacement"`
}

// MetricsConfig contains metrics collection configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics collection is active.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the HTTP path for the Prometheus metrics endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace is the metric name prefix.
	// Default: "overseer"
	Namespace string `yaml:"namespace"`

	// Subsystem is the metric subsystem name.
	// Default: "governance"
	Subsystem string `yaml:"subsystem"`

	// EvaluationDurationBuckets defines histogram buckets for decision
	// evaluation time (seconds).
	// Default: [0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.05]
	EvaluationDurationBuckets []float64 `yaml:"evaluation_duration_buckets"`

	// RequestDurationBuckets defines histogram buckets for HTTP request
	// duration (seconds).
	// Default: [0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0]
	RequestDurationBuckets []float64 `yaml:"request_duration_buckets"`
}

// HealthConfig contains health check endpoint configuration.
type HealthConfig struct {
	// Enabled controls whether health check endpoints are enabled.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// LivenessPath is the path for the liveness endpoint.
	// Default: "/health"
	LivenessPath string `yaml:"liveness_path"`

	// ReadinessPath is the path for the readiness endpoint.
	// Default: "/ready"
	ReadinessPath string `yaml:"readiness_path"`

	// CheckTimeout is the timeout for individual component health checks.
	// Default: 5s
	CheckTimeout time.Duration `yaml:"check_timeout"`
}

// SecurityConfig contains security-related configuration.
type SecurityConfig struct {
	// Authentication contains API key authentication configuration.
	Authentication AuthenticationConfig `yaml:"authentication"`
}

// AuthenticationConfig contains API key authentication configuration.
type AuthenticationConfig struct {
	// Enabled controls whether API key authentication is enabled. When
	// disabled the caller identity is taken from the X-User-ID header.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Sources defines where to extract API keys from (headers, query params).
	Sources []APIKeySource `yaml:"sources"`

	// Keys is the list of valid API keys.
	Keys []APIKeyConfig `yaml:"keys"`
}

// APIKeySource defines where to extract API keys from in HTTP requests.
type APIKeySource struct {
	// Type is the source type.
	// Options: "header", "query"
	Type string `yaml:"type"`

	// Name is the header name or query parameter name.
	Name string `yaml:"name"`

	// Scheme is the authentication scheme for header-based extraction,
	// e.g. "Bearer". Empty means the raw header value.
	Scheme string `yaml:"scheme,omitempty"`
}

// APIKeyConfig contains configuration for a single API key.
type APIKeyConfig struct {
	// Key is the API key value.
	Key string `yaml:"key"`

	// UserID is the identity the key authenticates as.
	UserID string `yaml:"user_id"`

	// Enabled controls whether this key is accepted. Nil means enabled.
	Enabled *bool `yaml:"enabled,omitempty"`
}

// IsEnabled reports whether the key is accepted.
func (k APIKeyConfig) IsEnabled() bool {
	return k.Enabled == nil || *k.Enabled
}

package config

import "time"

// Default values for configuration fields.
const (
	// Server defaults
	DefaultListenAddress   = "127.0.0.1:8080"
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMaxHeaderBytes  = 1048576 // 1MB
	DefaultMaxBodyBytes    = int64(1048576)
	DefaultCORSMaxAge      = 3600

	// Governance defaults
	DefaultTokenLimit = 8000

	// Guardrail defaults
	DefaultSeedBuiltins     = true
	DefaultDebounceInterval = 100 * time.Millisecond

	// Intervention defaults
	DefaultExpiryCritical = time.Hour
	DefaultExpiryHigh     = 4 * time.Hour
	DefaultExpiryMedium   = 24 * time.Hour
	DefaultExpiryLow      = 24 * time.Hour

	// Store defaults
	DefaultStorePath        = "data/governance.db"
	DefaultStoreBusyTimeout = 5 * time.Second

	// Audit defaults
	DefaultAuditEnabled              = true
	DefaultAuditBackend              = "sqlite"
	DefaultAuditSQLitePath           = "data/audit.db"
	DefaultAuditSQLiteMaxOpenConns   = 10
	DefaultAuditSQLiteMaxIdleConns   = 5
	DefaultAuditSQLiteWALMode        = true
	DefaultAuditSQLiteBusyTimeout    = 5 * time.Second
	DefaultAuditRecorderAsyncBuffer  = 1000
	DefaultAuditRecorderWriteTimeout = 5 * time.Second
	DefaultAuditRecorderMaxFieldLen  = 500
	DefaultAuditRetentionDays        = 90
	DefaultAuditRetentionSchedule    = "0 3 * * *"
	DefaultAuditRetentionArchivePath = "data/archives/"
	DefaultAuditQueryDefaultLimit    = 100
	DefaultAuditQueryMaxLimit        = 10000

	// Telemetry defaults
	DefaultLoggingLevel     = "info"
	DefaultLoggingFormat    = "json"
	DefaultLoggingRedactPII = true
	DefaultMetricsEnabled   = true
	DefaultMetricsPath      = "/metrics"
	DefaultMetricsNamespace = "overseer"
	DefaultMetricsSubsystem = "governance"
	DefaultHealthEnabled    = true
	DefaultLivenessPath     = "/health"
	DefaultReadinessPath    = "/ready"
	DefaultHealthTimeout    = 5 * time.Second
)

// DefaultRestrictedModels is the model deny-list used when none is configured.
func DefaultRestrictedModels() []string {
	return []string{"gpt-4-base", "text-davinci-003", "uncensored-llm"}
}

// Default returns a configuration with every default applied, including the
// boolean switches that default to true. LoadConfig decodes YAML on top of it
// so omitted switches keep their defaults.
func Default() *Config {
	cfg := &Config{
		Guardrails: GuardrailsConfig{SeedBuiltins: DefaultSeedBuiltins},
		Audit: AuditConfig{
			Enabled: DefaultAuditEnabled,
			SQLite:  SQLiteConfig{WALMode: DefaultAuditSQLiteWALMode},
		},
		Telemetry: TelemetryConfig{
			Logging: LoggingConfig{RedactPII: DefaultLoggingRedactPII},
			Metrics: MetricsConfig{Enabled: DefaultMetricsEnabled},
			Health:  HealthConfig{Enabled: DefaultHealthEnabled},
		},
	}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults sets defaults for any fields that have zero values. It is
// idempotent. Boolean switches are left alone; see Default.
func ApplyDefaults(cfg *Config) {
	// Server defaults
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Server.MaxHeaderBytes == 0 {
		cfg.Server.MaxHeaderBytes = DefaultMaxHeaderBytes
	}
	if cfg.Server.MaxBodyBytes == 0 {
		cfg.Server.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if cfg.Server.CORS.Enabled {
		cors := &cfg.Server.CORS
		if len(cors.AllowedMethods) == 0 {
			cors.AllowedMethods = []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"}
		}
		if len(cors.AllowedHeaders) == 0 {
			cors.AllowedHeaders = []string{"Authorization", "Content-Type", "X-API-Key", "X-Request-ID", "X-User-ID"}
		}
		if len(cors.ExposedHeaders) == 0 {
			cors.ExposedHeaders = []string{"X-Request-ID"}
		}
		if cors.MaxAge == 0 {
			cors.MaxAge = DefaultCORSMaxAge
		}
	}

	// Governance defaults
	if cfg.Governance.TokenLimit == 0 {
		cfg.Governance.TokenLimit = DefaultTokenLimit
	}
	if cfg.Governance.RestrictedModels == nil {
		cfg.Governance.RestrictedModels = DefaultRestrictedModels()
	}

	// Guardrail defaults
	if cfg.Guardrails.DebounceInterval == 0 {
		cfg.Guardrails.DebounceInterval = DefaultDebounceInterval
	}

	// Intervention defaults
	if cfg.Interventions.Expiry.Critical == 0 {
		cfg.Interventions.Expiry.Critical = DefaultExpiryCritical
	}
	if cfg.Interventions.Expiry.High == 0 {
		cfg.Interventions.Expiry.High = DefaultExpiryHigh
	}
	if cfg.Interventions.Expiry.Medium == 0 {
		cfg.Interventions.Expiry.Medium = DefaultExpiryMedium
	}
	if cfg.Interventions.Expiry.Low == 0 {
		cfg.Interventions.Expiry.Low = DefaultExpiryLow
	}

	// Store defaults
	if cfg.Store.Path == "" {
		cfg.Store.Path = DefaultStorePath
	}
	if cfg.Store.BusyTimeout == 0 {
		cfg.Store.BusyTimeout = DefaultStoreBusyTimeout
	}

	// Audit defaults
	if cfg.Audit.Backend == "" {
		cfg.Audit.Backend = DefaultAuditBackend
	}
	if cfg.Audit.SQLite.Path == "" {
		cfg.Audit.SQLite.Path = DefaultAuditSQLitePath
	}
	if cfg.Audit.SQLite.MaxOpenConns == 0 {
		cfg.Audit.SQLite.MaxOpenConns = DefaultAuditSQLiteMaxOpenConns
	}
	if cfg.Audit.SQLite.MaxIdleConns == 0 {
		cfg.Audit.SQLite.MaxIdleConns = DefaultAuditSQLiteMaxIdleConns
	}
	if cfg.Audit.SQLite.BusyTimeout == 0 {
		cfg.Audit.SQLite.BusyTimeout = DefaultAuditSQLiteBusyTimeout
	}
	if cfg.Audit.Recorder.AsyncBuffer == 0 {
		cfg.Audit.Recorder.AsyncBuffer = DefaultAuditRecorderAsyncBuffer
	}
	if cfg.Audit.Recorder.WriteTimeout == 0 {
		cfg.Audit.Recorder.WriteTimeout = DefaultAuditRecorderWriteTimeout
	}
	if cfg.Audit.Recorder.MaxFieldLength == 0 {
		cfg.Audit.Recorder.MaxFieldLength = DefaultAuditRecorderMaxFieldLen
	}
	if cfg.Audit.Retention.Days == 0 {
		cfg.Audit.Retention.Days = DefaultAuditRetentionDays
	}
	if cfg.Audit.Retention.PruneSchedule == "" {
		cfg.Audit.Retention.PruneSchedule = DefaultAuditRetentionSchedule
	}
	if cfg.Audit.Retention.ArchivePath == "" {
		cfg.Audit.Retention.ArchivePath = DefaultAuditRetentionArchivePath
	}
	if cfg.Audit.Query.DefaultLimit == 0 {
		cfg.Audit.Query.DefaultLimit = DefaultAuditQueryDefaultLimit
	}
	if cfg.Audit.Query.MaxLimit == 0 {
		cfg.Audit.Query.MaxLimit = DefaultAuditQueryMaxLimit
	}

	// Telemetry defaults
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Telemetry.Metrics.Subsystem == "" {
		cfg.Telemetry.Metrics.Subsystem = DefaultMetricsSubsystem
	}
	if cfg.Telemetry.Health.LivenessPath == "" {
		cfg.Telemetry.Health.LivenessPath = DefaultLivenessPath
	}
	if cfg.Telemetry.Health.ReadinessPath == "" {
		cfg.Telemetry.Health.ReadinessPath = DefaultReadinessPath
	}
	if cfg.Telemetry.Health.CheckTimeout == 0 {
		cfg.Telemetry.Health.CheckTimeout = DefaultHealthTimeout
	}

	// Security defaults
	if cfg.Security.Authentication.Enabled && len(cfg.Security.Authentication.Sources) == 0 {
		cfg.Security.Authentication.Sources = DefaultAPIKeySources()
	}
}

// DefaultAPIKeySources returns the key sources used when none are
// configured: a Bearer Authorization header, then X-API-Key.
func DefaultAPIKeySources() []APIKeySource {
	return []APIKeySource{
		{Type: "header", Name: "Authorization", Scheme: "Bearer"},
		{Type: "header", Name: "X-API-Key"},
	}
}

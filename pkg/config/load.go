package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "OVERSEER_"

// LoadConfig loads configuration from a YAML file at the specified path.
// Values absent from the file keep their defaults. The result is validated.
// Environment variables are ignored; use LoadConfigWithEnvOverrides for that.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Parse decodes YAML on top of Default and applies defaults to anything the
// document zeroed. It does not validate.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	ApplyDefaults(cfg)
	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides named OVERSEER_SECTION_FIELD, e.g.
// OVERSEER_SERVER_LISTEN_ADDRESS. An empty path starts from defaults.
//
// The loading sequence is:
// 1. Load YAML from file
// 2. Apply default values
// 3. Apply environment variable overrides
// 4. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	var cfg *Config
	if path == "" {
		cfg = Default()
	} else {
		var err error
		if cfg, err = LoadConfig(path); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to cfg.
func applyEnvOverrides(cfg *Config) {
	// Server overrides
	envString("SERVER_LISTEN_ADDRESS", &cfg.Server.ListenAddress)
	envDuration("SERVER_READ_TIMEOUT", &cfg.Server.ReadTimeout)
	envDuration("SERVER_WRITE_TIMEOUT", &cfg.Server.WriteTimeout)
	envDuration("SERVER_SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout)

	// Governance overrides
	envList("GOVERNANCE_OWNERS", &cfg.Governance.Owners)
	envInt("GOVERNANCE_TOKEN_LIMIT", &cfg.Governance.TokenLimit)
	envList("GOVERNANCE_RESTRICTED_MODELS", &cfg.Governance.RestrictedModels)

	// Guardrail overrides
	envBool("GUARDRAILS_SEED_BUILTINS", &cfg.Guardrails.SeedBuiltins)
	envString("GUARDRAILS_SOURCE_PATH", &cfg.Guardrails.SourcePath)
	envBool("GUARDRAILS_WATCH", &cfg.Guardrails.Watch)

	// Intervention overrides
	envDuration("INTERVENTIONS_EXPIRY_CRITICAL", &cfg.Interventions.Expiry.Critical)
	envDuration("INTERVENTIONS_EXPIRY_HIGH", &cfg.Interventions.Expiry.High)
	envDuration("INTERVENTIONS_EXPIRY_MEDIUM", &cfg.Interventions.Expiry.Medium)
	envDuration("INTERVENTIONS_EXPIRY_LOW", &cfg.Interventions.Expiry.Low)
	envDuration("INTERVENTIONS_SWEEP_INTERVAL", &cfg.Interventions.SweepInterval)

	// Store overrides
	envBool("STORE_ENABLED", &cfg.Store.Enabled)
	envString("STORE_PATH", &cfg.Store.Path)

	// Audit overrides
	envBool("AUDIT_ENABLED", &cfg.Audit.Enabled)
	envString("AUDIT_BACKEND", &cfg.Audit.Backend)
	envString("AUDIT_SQLITE_PATH", &cfg.Audit.SQLite.Path)
	envInt("AUDIT_RETENTION_DAYS", &cfg.Audit.Retention.Days)
	envString("AUDIT_RETENTION_PRUNE_SCHEDULE", &cfg.Audit.Retention.PruneSchedule)

	// Telemetry overrides
	envString("TELEMETRY_LOGGING_LEVEL", &cfg.Telemetry.Logging.Level)
	envString("TELEMETRY_LOGGING_FORMAT", &cfg.Telemetry.Logging.Format)
	envBool("TELEMETRY_METRICS_ENABLED", &cfg.Telemetry.Metrics.Enabled)
	envString("TELEMETRY_METRICS_PATH", &cfg.Telemetry.Metrics.Path)

	// Security overrides
	envBool("SECURITY_AUTHENTICATION_ENABLED", &cfg.Security.Authentication.Enabled)

	ApplyDefaults(cfg)
}

func envString(name string, dst *string) {
	if val := os.Getenv(EnvPrefix + name); val != "" {
		*dst = val
	}
}

func envList(name string, dst *[]string) {
	val := os.Getenv(EnvPrefix + name)
	if val == "" {
		return
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	*dst = out
}

func envBool(name string, dst *bool) {
	if val := os.Getenv(EnvPrefix + name); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			*dst = b
		}
	}
}

func envInt(name string, dst *int) {
	if val := os.Getenv(EnvPrefix + name); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			*dst = i
		}
	}
}

func envDuration(name string, dst *time.Duration) {
	if val := os.Getenv(EnvPrefix + name); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			*dst = d
		}
	}
}

package cli

import (
	"errors"
	"fmt"
	"testing"

	"mercator-hq/overseer/pkg/config"
)

func TestConfigError(t *testing.T) {
	cause := errors.New("listen address is required")
	tests := []struct {
		name string
		err  *ConfigError
		want string
	}{
		{"path and field", &ConfigError{Path: "overseer.yaml", Field: "server.listen_address", Err: cause},
			"config overseer.yaml: server.listen_address: listen address is required"},
		{"path only", NewConfigError("overseer.yaml", cause), "config overseer.yaml: listen address is required"},
		{"bare", &ConfigError{Err: cause}, "config: listen address is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
			if !errors.Is(tt.err, cause) {
				t.Error("errors.Is() should reach the cause")
			}
		})
	}
}

func TestCommandError(t *testing.T) {
	underlyingErr := errors.New("underlying error")
	err := NewCommandError("run", underlyingErr)

	expected := "command run failed: underlying error"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
	if !errors.Is(err, underlyingErr) {
		t.Error("errors.Is() should work with CommandError.Unwrap()")
	}
}

func TestExitCode(t *testing.T) {
	validation := config.ValidationError{Errors: []config.FieldError{{Field: "audit.backend", Message: "unknown"}}}

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitOK},
		{"generic", errors.New("boom"), ExitFailure},
		{"config error", NewConfigError("x.yaml", errors.New("bad")), ExitConfig},
		{"wrapped validation", fmt.Errorf("load: %w", validation), ExitConfig},
		{"usage", NewUsageError("missing %s", "--id"), ExitUsage},
		{"command wrapping usage", NewCommandError("audit", NewUsageError("bad")), ExitUsage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.err); got != tt.want {
				t.Errorf("ExitCode() = %d, want %d", got, tt.want)
			}
		})
	}
}

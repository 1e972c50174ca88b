package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"mercator-hq/overseer/pkg/config"
	"mercator-hq/overseer/pkg/telemetry/logging"
)

// UserHeader carries the caller's user id when authentication is disabled.
const UserHeader = "X-User-ID"

// Source types.
const (
	SourceHeader = "header"
	SourceQuery  = "query"
)

// Middleware authenticates requests and stores the caller's user id in the
// request context.
type Middleware struct {
	enabled   bool
	validator APIKeyStore
	sources   []config.APIKeySource
	logger    *slog.Logger
}

// NewMiddleware creates the authentication middleware. With authentication
// disabled, the caller is taken from the X-User-ID header without checks.
func NewMiddleware(cfg config.AuthenticationConfig, validator APIKeyStore, logger *slog.Logger) *Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	if validator == nil {
		validator = ValidatorFromConfig(cfg)
	}
	sources := cfg.Sources
	if len(sources) == 0 {
		sources = config.DefaultAPIKeySources()
	}
	return &Middleware{
		enabled:   cfg.Enabled,
		validator: validator,
		sources:   sources,
		logger:    logger.With("component", "auth"),
	}
}

// Handle wraps next with authentication.
func (m *Middleware) Handle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !m.enabled {
			if user := strings.TrimSpace(r.Header.Get(UserHeader)); user != "" {
				r = r.WithContext(WithUserID(r.Context(), user))
			}
			next.ServeHTTP(w, r)
			return
		}

		key, err := m.extractAPIKey(r)
		if err == nil {
			var info *APIKeyInfo
			info, err = m.validator.Validate(key)
			if err == nil {
				m.logger.Debug("API key authenticated", "user_id", info.UserID, "path", r.URL.Path)
				next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), info.UserID)))
				return
			}
		}

		m.logger.Warn("authentication failed",
			"error", err,
			"remote_addr", r.RemoteAddr,
			"path", r.URL.Path,
		)
		w.Header().Set("WWW-Authenticate", `Bearer realm="overseer"`)
		msg := "invalid API key"
		if errors.Is(err, ErrMissingKey) {
			msg = "missing API key"
		}
		writeUnauthorized(w, msg)
	})
}

func (m *Middleware) extractAPIKey(r *http.Request) (string, error) {
	for _, source := range m.sources {
		switch source.Type {
		case SourceHeader:
			value := r.Header.Get(source.Name)
			if value == "" {
				continue
			}
			if source.Scheme == "" {
				return value, nil
			}
			prefix := source.Scheme + " "
			if len(value) > len(prefix) && strings.EqualFold(value[:len(prefix)], prefix) {
				return value[len(prefix):], nil
			}
		case SourceQuery:
			if value := r.URL.Query().Get(source.Name); value != "" {
				return value, nil
			}
		}
	}
	return "", ErrMissingKey
}

func writeUnauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":{"code":"unauthorized","message":"` + msg + `"}}`))
}

type contextKey string

const userIDKey contextKey = "auth_user_id"

// WithUserID stores the authenticated user id in ctx. The id is also added
// to the logging context.
func WithUserID(ctx context.Context, userID string) context.Context {
	ctx = context.WithValue(ctx, userIDKey, userID)
	return logging.WithUser(ctx, userID)
}

// UserID returns the authenticated user id, if any.
func UserID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}

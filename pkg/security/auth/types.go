package auth

import "errors"

var (
	// ErrMissingKey is returned when no configured source carries a key.
	ErrMissingKey = errors.New("no API key found")

	// ErrInvalidKey is returned for unknown keys.
	ErrInvalidKey = errors.New("invalid API key")

	// ErrKeyDisabled is returned for keys that are configured but disabled.
	ErrKeyDisabled = errors.New("API key disabled")
)

// APIKeyInfo maps an API key to the user id it authenticates as.
type APIKeyInfo struct {
	Key     string
	UserID  string
	Enabled bool
}

// APIKeyStore validates API keys.
type APIKeyStore interface {
	Validate(key string) (*APIKeyInfo, error)
}

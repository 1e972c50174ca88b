package auth

import (
	"sort"
	"sync"

	"mercator-hq/overseer/pkg/config"
)

// APIKeyValidator validates API keys against a configured set of keys.
type APIKeyValidator struct {
	mu   sync.RWMutex
	keys map[string]*APIKeyInfo
}

// NewAPIKeyValidator creates a validator for keys.
func NewAPIKeyValidator(keys []*APIKeyInfo) *APIKeyValidator {
	keyMap := make(map[string]*APIKeyInfo, len(keys))
	for _, key := range keys {
		keyMap[key.Key] = key
	}
	return &APIKeyValidator{keys: keyMap}
}

// ValidatorFromConfig builds a validator from the configured keys.
func ValidatorFromConfig(cfg config.AuthenticationConfig) *APIKeyValidator {
	keys := make([]*APIKeyInfo, 0, len(cfg.Keys))
	for _, k := range cfg.Keys {
		keys = append(keys, &APIKeyInfo{Key: k.Key, UserID: k.UserID, Enabled: k.IsEnabled()})
	}
	return NewAPIKeyValidator(keys)
}

// Validate returns the info for key, or ErrInvalidKey / ErrKeyDisabled.
func (v *APIKeyValidator) Validate(key string) (*APIKeyInfo, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	info, ok := v.keys[key]
	if !ok {
		return nil, ErrInvalidKey
	}
	if !info.Enabled {
		return nil, ErrKeyDisabled
	}
	out := *info
	return &out, nil
}

// Users returns the distinct user ids of enabled keys, sorted.
func (v *APIKeyValidator) Users() []string {
	v.mu.RLock()
	defer v.mu.RUnlock()

	seen := make(map[string]bool)
	var users []string
	for _, info := range v.keys {
		if info.Enabled && !seen[info.UserID] {
			seen[info.UserID] = true
			users = append(users, info.UserID)
		}
	}
	sort.Strings(users)
	return users
}

// Add adds or replaces a key.
func (v *APIKeyValidator) Add(info *APIKeyInfo) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.keys[info.Key] = info
}

// Remove deletes a key.
func (v *APIKeyValidator) Remove(key string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.keys, key)
}

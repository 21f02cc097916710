// Package secrets holds signing keys and credentials in memory and lets
// them be rotated without a restart.
package secrets

import (
	"errors"
	"fmt"
	"sync"
)

// ErrMissing is returned by Require for an absent or too short secret.
var ErrMissing = errors.New("secret missing or too short")

// Loader retrieves secrets from a source (env vars, mounted files, etc.).
type Loader func() (map[string]string, error)

// Vault holds secret values and swaps them atomically on Reload.
type Vault struct {
	mu      sync.RWMutex
	values  map[string]string
	loader  Loader
	version uint64
}

// NewVault creates a Vault, calling the loader once to populate initial values.
func NewVault(loader Loader) (*Vault, error) {
	vals, err := loader()
	if err != nil {
		return nil, fmt.Errorf("initial secret load: %w", err)
	}
	return &Vault{values: vals, loader: loader, version: 1}, nil
}

// Static returns a Vault over a fixed map. Used by tests and the admin CLI.
func Static(values map[string]string) *Vault {
	v, _ := NewVault(func() (map[string]string, error) {
		cp := make(map[string]string, len(values))
		for k, val := range values {
			cp[k] = val
		}
		return cp, nil
	})
	return v
}

// Get returns the secret for key, or an empty string if not found.
func (v *Vault) Get(key string) string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.values[key]
}

// Require returns the secret for key as bytes. It fails with ErrMissing
// when the value is shorter than minLen.
func (v *Vault) Require(key string, minLen int) ([]byte, error) {
	s := v.Get(key)
	if len(s) < minLen {
		return nil, fmt.Errorf("%w: %s needs at least %d bytes", ErrMissing, key, minLen)
	}
	return []byte(s), nil
}

// Version increases by one on every successful Reload.
func (v *Vault) Version() uint64 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.version
}

// Reload calls the loader and swaps in the new values atomically.
// If the loader returns an error, existing values are preserved.
func (v *Vault) Reload() error {
	vals, err := v.loader()
	if err != nil {
		return fmt.Errorf("reload secrets: %w", err)
	}
	v.mu.Lock()
	v.values = vals
	v.version++
	v.mu.Unlock()
	return nil
}

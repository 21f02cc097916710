package service

import (
	"errors"
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"github.com/Strob0t/Tasklane/internal/domain"
)

// bcrypt ignores input past 72 bytes; longer candidates can never match a
// hash produced by HashPassword.
const maxPasswordBytes = 72

// HashPassword hashes plain with bcrypt at the given cost.
func HashPassword(plain string, cost int) (string, error) {
	if plain == "" {
		return "", fmt.Errorf("%w: password is required", domain.ErrInput)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", fmt.Errorf("%w: password must be at most 72 bytes", domain.ErrInput)
		}
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword compares candidate with storedHash in constant time.
// A mismatch is (false, nil); a malformed stored hash is an internal error.
func VerifyPassword(candidate, storedHash string) (bool, error) {
	if candidate == "" || storedHash == "" {
		return false, fmt.Errorf("%w: password and hash are required", domain.ErrInput)
	}
	if len(candidate) > maxPasswordBytes {
		return false, nil
	}
	err := bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(candidate))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, fmt.Errorf("verify password: %w", err)
	}
}

// Credentials hashes and verifies passwords at the configured cost.
type Credentials struct {
	cost int

	dummyOnce sync.Once
	dummy     string
}

// NewCredentials creates a Credentials using bcrypt cost.
func NewCredentials(cost int) *Credentials {
	return &Credentials{cost: cost}
}

// Hash hashes plain at the configured cost.
func (c *Credentials) Hash(plain string) (string, error) {
	return HashPassword(plain, c.cost)
}

// Verify is VerifyPassword.
func (c *Credentials) Verify(candidate, storedHash string) (bool, error) {
	return VerifyPassword(candidate, storedHash)
}

// Burn performs one comparison against a fixed hash of the same cost, so a
// login for an unknown email takes as long as one for a known email.
func (c *Credentials) Burn(candidate string) {
	c.dummyOnce.Do(func() {
		h, err := bcrypt.GenerateFromPassword([]byte("tasklane-timing-equalizer"), c.cost)
		if err == nil {
			c.dummy = string(h)
		}
	})
	if c.dummy == "" || candidate == "" {
		return
	}
	_, _ = VerifyPassword(candidate, c.dummy)
}

package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/Strob0t/Tasklane/internal/config"
	"github.com/Strob0t/Tasklane/internal/domain"
	"github.com/Strob0t/Tasklane/internal/domain/principal"
	"github.com/Strob0t/Tasklane/internal/secrets"
)

// minSecretBytes is the shortest HS256 signing key accepted.
const minSecretBytes = 32

// Claims is the session token payload. Subject is the principal id and ID
// the token id used for revocation.
type Claims struct {
	Role     principal.Role `json:"role"`
	TenantID string         `json:"tid,omitempty"`
	jwt.RegisteredClaims
}

// ExpiresAtTime returns the expiry as time.Time.
func (c *Claims) ExpiresAtTime() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// TokenIssuer signs and verifies HS256 session tokens. The signing key is
// read from the vault on every call so rotation takes effect immediately.
type TokenIssuer struct {
	vault *secrets.Vault
	cfg   config.Auth
	now   func() time.Time // for testing
}

// NewTokenIssuer creates a TokenIssuer.
func NewTokenIssuer(vault *secrets.Vault, cfg config.Auth) *TokenIssuer {
	return &TokenIssuer{vault: vault, cfg: cfg, now: time.Now}
}

func (t *TokenIssuer) secret() ([]byte, error) {
	key, err := t.vault.Require(t.cfg.SecretEnv, minSecretBytes)
	if err != nil {
		return nil, fmt.Errorf("token signing key: %w", err)
	}
	return key, nil
}

// Issue signs a token for p valid for the configured TTL.
func (t *TokenIssuer) Issue(p *principal.Principal) (string, time.Time, error) {
	if err := p.Validate(); err != nil {
		return "", time.Time{}, fmt.Errorf("issue token: %w", err)
	}
	key, err := t.secret()
	if err != nil {
		return "", time.Time{}, err
	}

	now := t.now()
	exp := now.Add(t.cfg.TokenTTL)
	claims := Claims{
		Role:     p.Role,
		TenantID: p.TenantID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.ID,
			ID:        uuid.NewString(),
			Issuer:    t.cfg.Issuer,
			Audience:  jwt.ClaimStrings{t.cfg.Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, claims.ExpiresAt.Time, nil
}

// Verify checks signature, algorithm, issuer, audience and expiry, then the
// role/tenant binding of the claims. Every token problem is ErrAuth; a
// missing signing key is an internal error.
func (t *TokenIssuer) Verify(raw string) (*Claims, error) {
	key, err := t.secret()
	if err != nil {
		return nil, err
	}
	if raw == "" {
		return nil, fmt.Errorf("%w: missing token", domain.ErrAuth)
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(t.cfg.Issuer),
		jwt.WithAudience(t.cfg.Audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	claims := &Claims{}
	_, err = parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) { return key, nil })
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: token expired", domain.ErrAuth)
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrAuth, err)
	}

	if claims.Subject == "" || claims.ID == "" {
		return nil, fmt.Errorf("%w: token lacks subject or id", domain.ErrAuth)
	}
	bound := principal.Principal{ID: claims.Subject, Role: claims.Role, TenantID: claims.TenantID}
	if err := bound.Validate(); err != nil {
		return nil, fmt.Errorf("%w: inconsistent role and tenant claims", domain.ErrAuth)
	}
	return claims, nil
}

package postgres

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
)

// Revocations are keyed by token id and are not tenant-owned: a token id is
// globally unique and the row outlives nothing but the token itself.

// RevokeToken records tokenID as revoked until expiresAt. Revoking twice is
// a no-op.
func (s *Store) RevokeToken(ctx context.Context, tokenID string, expiresAt time.Time) error {
	b := psql.Insert("revoked_tokens").
		Columns("jti", "expires_at").
		Values(tokenID, expiresAt.UTC()).
		Suffix("ON CONFLICT (jti) DO NOTHING")
	if _, err := execBuilt(ctx, s.pool, b); err != nil {
		return fmt.Errorf("revoke token %s: %w", tokenID, err)
	}
	return nil
}

// IsTokenRevoked reports whether tokenID has been revoked.
func (s *Store) IsTokenRevoked(ctx context.Context, tokenID string) (bool, error) {
	exists := psql.Select("1").From("revoked_tokens").Where(sq.Eq{"jti": tokenID}).Prefix("SELECT EXISTS (").Suffix(")")
	row, err := rowBuilt(ctx, s.pool, exists)
	if err != nil {
		return false, err
	}
	var revoked bool
	if err := row.Scan(&revoked); err != nil {
		return false, fmt.Errorf("check revocation %s: %w", tokenID, err)
	}
	return revoked, nil
}

// PurgeExpiredRevocations deletes revocations of tokens that expired before
// at and returns how many were removed.
func (s *Store) PurgeExpiredRevocations(ctx context.Context, at time.Time) (int64, error) {
	tag, err := execBuilt(ctx, s.pool, psql.Delete("revoked_tokens").Where(sq.Lt{"expires_at": at.UTC()}))
	if err != nil {
		return 0, fmt.Errorf("purge revocations: %w", err)
	}
	return tag.RowsAffected(), nil
}

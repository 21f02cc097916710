// Package tiered layers an in-process cache in front of a shared one.
package tiered

import (
	"context"
	"log/slog"
	"time"

	"github.com/Strob0t/Tasklane/internal/port/cache"
)

// Cache reads the local level first and falls back to the shared level,
// backfilling the local level on a shared hit. The shared level is
// authoritative: writes go there first and a local failure never fails the
// call.
type Cache struct {
	local    cache.Cache
	shared   cache.Cache
	localTTL time.Duration
}

// New creates a tiered cache. localTTL caps how long entries live locally.
func New(local, shared cache.Cache, localTTL time.Duration) *Cache {
	return &Cache{local: local, shared: shared, localTTL: localTTL}
}

func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if val, found, err := c.local.Get(ctx, key); err == nil && found {
		return val, true, nil
	}

	val, found, err := c.shared.Get(ctx, key)
	if err != nil || !found {
		return nil, false, err
	}
	if err := c.local.Set(ctx, key, val, c.localTTL); err != nil {
		slog.DebugContext(ctx, "tiered cache backfill failed", "error", err)
	}
	return val, true, nil
}

func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.shared.Set(ctx, key, value, ttl); err != nil {
		return err
	}
	localTTL := c.localTTL
	if ttl > 0 && ttl < localTTL {
		localTTL = ttl
	}
	if err := c.local.Set(ctx, key, value, localTTL); err != nil {
		slog.DebugContext(ctx, "tiered cache local set failed", "error", err)
	}
	return nil
}

func (c *Cache) Delete(ctx context.Context, key string) error {
	_ = c.local.Delete(ctx, key)
	return c.shared.Delete(ctx, key)
}

// Package cache defines the port interface for caching.
//
// Cached values never carry authority: callers cache only immutable
// mappings (such as subdomain to tenant id) and re-read mutable state.
package cache

import (
	"context"
	"time"
)

// Cache is the port interface for key-value caching.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

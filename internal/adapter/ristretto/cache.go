// Package ristretto is the in-process implementation of the cache port,
// used as the tenant resolver cache and as the local tier of the
// idempotency store.
package ristretto

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

const minBudget = 1 << 10

// Cache is a size-bounded TTL cache. Values are copied on the way in and
// out, so callers may reuse or mutate their slices.
type Cache struct {
	c *ristretto.Cache[string, []byte]
}

// New creates a cache holding at most maxBytes of values.
func New(maxBytes int64) (*Cache, error) {
	if maxBytes < minBudget {
		return nil, fmt.Errorf("ristretto: budget %d below %d bytes", maxBytes, minBudget)
	}
	c, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		// Counters track roughly ten times the expected entry count,
		// assuming ~100 byte values.
		NumCounters:        maxBytes / 10,
		MaxCost:            maxBytes,
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("ristretto: %w", err)
	}
	return &Cache{c: c}, nil
}

// Get returns a copy of the value stored under key.
func (c *Cache) Get(_ context.Context, key string) ([]byte, bool, error) {
	val, ok := c.c.Get(key)
	if !ok {
		return nil, false, nil
	}
	return bytes.Clone(val), true, nil
}

// Set stores a copy of value for ttl. The write is flushed before Set
// returns so a following Get observes it. Admission may still reject the
// entry under pressure; the cache is then simply cold for key.
func (c *Cache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	v := bytes.Clone(value)
	c.c.SetWithTTL(key, v, int64(len(v)), ttl)
	c.c.Wait()
	return nil
}

// Delete drops key.
func (c *Cache) Delete(_ context.Context, key string) error {
	c.c.Del(key)
	return nil
}

// Close stops the cache's background goroutines.
func (c *Cache) Close() {
	c.c.Close()
}

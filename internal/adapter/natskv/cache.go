// Package natskv implements the cache port on a NATS JetStream KV bucket,
// shared by every replica.
package natskv

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/nats-io/nats.go/jetstream"
)

var validKey = regexp.MustCompile(`^[-/_=.a-zA-Z0-9]+$`)

// Cache wraps a JetStream KeyValue bucket.
type Cache struct {
	kv jetstream.KeyValue
}

// New creates a KV-backed cache.
func New(kv jetstream.KeyValue) *Cache {
	return &Cache{kv: kv}
}

func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := checkKey(key); err != nil {
		return nil, false, err
	}
	entry, err := c.kv.Get(ctx, key)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("natskv get: %w", err)
	}
	return entry.Value(), true, nil
}

// Set stores value. Expiry is the bucket's TTL; the per-call ttl is ignored.
func (c *Cache) Set(ctx context.Context, key string, value []byte, _ time.Duration) error {
	if err := checkKey(key); err != nil {
		return err
	}
	if _, err := c.kv.Put(ctx, key, value); err != nil {
		return fmt.Errorf("natskv put: %w", err)
	}
	return nil
}

func (c *Cache) Delete(ctx context.Context, key string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	err := c.kv.Delete(ctx, key)
	if err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
		return fmt.Errorf("natskv delete: %w", err)
	}
	return nil
}

func checkKey(key string) error {
	if !validKey.MatchString(key) {
		return fmt.Errorf("natskv: invalid key %q", key)
	}
	return nil
}

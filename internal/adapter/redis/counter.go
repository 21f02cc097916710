// Package redis implements the login attempt counter on Redis so the
// throttle holds across replicas.
package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/Strob0t/Tasklane/internal/config"
)

const keyPrefix = "tasklane:attempts:"

// Counter is a fixed-window counter backed by INCR and a window expiry.
type Counter struct {
	client  *goredis.Client
	timeout time.Duration
}

// Connect dials Redis and pings it.
func Connect(ctx context.Context, cfg config.Redis) (*Counter, error) {
	client := goredis.NewClient(&goredis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}
	return &Counter{client: client, timeout: 250 * time.Millisecond}, nil
}

// Incr counts one attempt for key. The window starts with the first attempt;
// later attempts do not extend it.
func (c *Counter) Incr(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	redisKey := keyPrefix + key
	var (
		incr *goredis.IntCmd
		pttl *goredis.DurationCmd
	)
	_, err := c.client.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		incr = p.Incr(ctx, redisKey)
		p.ExpireNX(ctx, redisKey, window)
		pttl = p.PTTL(ctx, redisKey)
		return nil
	})
	if err != nil {
		return 0, 0, fmt.Errorf("redis incr %s: %w", key, err)
	}

	ttl := pttl.Val()
	if ttl <= 0 {
		ttl = window
	}
	return incr.Val(), ttl, nil
}

// Ping reports whether Redis is reachable.
func (c *Counter) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close releases the client.
func (c *Counter) Close() error {
	return c.client.Close()
}

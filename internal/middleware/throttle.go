package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// AttemptCounter counts events per key inside a fixed window. Incr returns
// the count including this attempt and the time left in the window.
type AttemptCounter interface {
	Incr(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}

// LoginThrottle limits login attempts per client IP. It backs the generic
// 401 on login so credential guessing is bounded even across replicas when
// the counter is shared.
type LoginThrottle struct {
	counter AttemptCounter
	limit   int64
	window  time.Duration
}

// NewLoginThrottle returns a throttle allowing limit attempts per window.
func NewLoginThrottle(counter AttemptCounter, limit int, window time.Duration) *LoginThrottle {
	return &LoginThrottle{counter: counter, limit: int64(limit), window: window}
}

// Handler returns middleware enforcing the throttle.
func (t *LoginThrottle) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n, ttl, err := t.counter.Incr(r.Context(), "login:"+clientIP(r), t.window)
		if err != nil {
			// The per-IP RateLimiter still applies, so an unavailable counter
			// does not lock every tenant out of login.
			slog.WarnContext(r.Context(), "login throttle unavailable", "error", err)
			next.ServeHTTP(w, r)
			return
		}
		if n > t.limit {
			secs := int(ttl.Round(time.Second) / time.Second)
			if secs < 1 {
				secs = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(secs))
			writeError(w, http.StatusTooManyRequests, "RATE_LIMITED", "too many login attempts")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// WindowCounter is the in-process AttemptCounter used when no shared
// counter is configured.
type WindowCounter struct {
	mu      sync.Mutex
	windows map[string]*window
	now     func() time.Time
}

type window struct {
	count   int64
	resetAt time.Time
}

// NewWindowCounter creates an empty in-process counter.
func NewWindowCounter() *WindowCounter {
	return &WindowCounter{windows: make(map[string]*window), now: time.Now}
}

// Incr implements AttemptCounter.
func (c *WindowCounter) Incr(_ context.Context, key string, d time.Duration) (int64, time.Duration, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	w, ok := c.windows[key]
	if !ok || !now.Before(w.resetAt) {
		w = &window{resetAt: now.Add(d)}
		c.windows[key] = w
	}
	w.count++
	return w.count, w.resetAt.Sub(now), nil
}

// Sweep drops expired windows.
func (c *WindowCounter) Sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	for k, w := range c.windows {
		if !now.Before(w.resetAt) {
			delete(c.windows, k)
		}
	}
}

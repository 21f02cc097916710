package middleware

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"
)

type failingCounter struct{}

func (failingCounter) Incr(context.Context, string, time.Duration) (int64, time.Duration, error) {
	return 0, 0, errors.New("redis: connection refused")
}

func TestLoginThrottle(t *testing.T) {
	clk := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	counter := NewWindowCounter()
	counter.now = clk.now
	h := NewLoginThrottle(counter, 3, time.Minute).Handler(okHandler())

	for i := range 3 {
		if rec := hit(h, "10.0.0.1"); rec.Code != http.StatusOK {
			t.Fatalf("attempt %d: status = %d", i+1, rec.Code)
		}
	}
	rec := hit(h, "10.0.0.1")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "60" {
		t.Errorf("Retry-After = %q, want 60", rec.Header().Get("Retry-After"))
	}

	if rec := hit(h, "10.0.0.2"); rec.Code != http.StatusOK {
		t.Errorf("other IP throttled: %d", rec.Code)
	}

	clk.advance(time.Minute)
	if rec := hit(h, "10.0.0.1"); rec.Code != http.StatusOK {
		t.Errorf("after window: status = %d", rec.Code)
	}
}

func TestLoginThrottle_CounterFailureLetsRequestsThrough(t *testing.T) {
	h := NewLoginThrottle(failingCounter{}, 1, time.Minute).Handler(okHandler())
	for range 3 {
		if rec := hit(h, "10.0.0.1"); rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
	}
}

func TestWindowCounter_Sweep(t *testing.T) {
	clk := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewWindowCounter()
	c.now = clk.now

	_, _, _ = c.Incr(context.Background(), "a", time.Second)
	_, _, _ = c.Incr(context.Background(), "b", time.Hour)
	clk.advance(2 * time.Second)
	c.Sweep()

	if len(c.windows) != 1 {
		t.Fatalf("windows = %d, want 1", len(c.windows))
	}
	if _, ok := c.windows["b"]; !ok {
		t.Error("live window was swept")
	}
}

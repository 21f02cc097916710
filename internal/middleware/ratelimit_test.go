package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestLimiter(rate float64, burst int) (*RateLimiter, *fakeClock) {
	clk := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	rl := NewRateLimiter(rate, burst)
	rl.now = clk.now
	return rl, clk
}

func hit(h http.Handler, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	req.RemoteAddr = ip + ":4242"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
}

func TestRateLimiter_Burst(t *testing.T) {
	rl, _ := newTestLimiter(1, 5)
	h := rl.Handler(okHandler())

	for i := range 5 {
		if rec := hit(h, "192.168.1.1"); rec.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200", i+1, rec.Code)
		}
	}

	rec := hit(h, "192.168.1.1")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "1" {
		t.Errorf("Retry-After = %q, want 1", rec.Header().Get("Retry-After"))
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["code"] != "RATE_LIMITED" {
		t.Errorf("code = %q", body["code"])
	}
}

func TestRateLimiter_Refill(t *testing.T) {
	rl, clk := newTestLimiter(2, 1)
	h := rl.Handler(okHandler())

	if rec := hit(h, "10.0.0.1"); rec.Code != http.StatusOK {
		t.Fatalf("first: %d", rec.Code)
	}
	if rec := hit(h, "10.0.0.1"); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second: %d", rec.Code)
	}
	clk.advance(500 * time.Millisecond)
	if rec := hit(h, "10.0.0.1"); rec.Code != http.StatusOK {
		t.Fatalf("after refill: %d", rec.Code)
	}
}

func TestRateLimiter_PerIP(t *testing.T) {
	rl, _ := newTestLimiter(1, 2)
	h := rl.Handler(okHandler())

	hit(h, "10.0.0.1")
	hit(h, "10.0.0.1")
	if rec := hit(h, "10.0.0.1"); rec.Code != http.StatusTooManyRequests {
		t.Errorf("10.0.0.1: status = %d, want 429", rec.Code)
	}
	if rec := hit(h, "10.0.0.2"); rec.Code != http.StatusOK {
		t.Errorf("10.0.0.2: status = %d, want 200", rec.Code)
	}
}

func TestRateLimiter_Headers(t *testing.T) {
	rl, _ := newTestLimiter(10, 10)
	rec := hit(rl.Handler(okHandler()), "10.0.0.1")

	if rec.Header().Get("X-RateLimit-Limit") != "10" {
		t.Errorf("limit = %q", rec.Header().Get("X-RateLimit-Limit"))
	}
	if rec.Header().Get("X-RateLimit-Remaining") != "9" {
		t.Errorf("remaining = %q", rec.Header().Get("X-RateLimit-Remaining"))
	}
}

func TestRateLimiter_Capacity(t *testing.T) {
	rl, _ := newTestLimiter(10, 10)
	rl.maxBuckets = 2
	h := rl.Handler(okHandler())

	hit(h, "10.0.0.1")
	hit(h, "10.0.0.2")
	if rec := hit(h, "10.0.0.3"); rec.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429 at capacity", rec.Code)
	}
}

func TestRateLimiter_Cleanup(t *testing.T) {
	rl, clk := newTestLimiter(10, 10)
	h := rl.Handler(okHandler())

	hit(h, "10.0.0.1")
	clk.advance(time.Minute)
	hit(h, "10.0.0.2")

	rl.cleanup(30 * time.Second)
	if rl.Len() != 1 {
		t.Fatalf("Len = %d, want 1", rl.Len())
	}
}

func TestRateLimiter_StartCleanupStops(t *testing.T) {
	rl := NewRateLimiter(10, 10)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		rl.StartCleanup(ctx, time.Millisecond, time.Hour)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("cleanup loop did not stop")
	}
}

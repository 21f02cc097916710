package logger

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Closer flushes and stops a log handler.
type Closer interface {
	Close()
}

type nopCloser struct{}

func (nopCloser) Close() {}

// errHandlerClosed is returned by Handle after Close.
var errHandlerClosed = errors.New("logger: async handler closed")

// asyncQueue is the state shared by an AsyncHandler and its derived
// handlers.
type asyncQueue struct {
	ch      chan asyncRecord
	wg      sync.WaitGroup
	mu      sync.RWMutex // guards closed against concurrent sends
	closed  bool
	dropped atomic.Int64
}

type asyncRecord struct {
	h   slog.Handler
	rec slog.Record
}

// AsyncHandler moves record formatting and I/O off the request path.
// Records below Error are dropped when the buffer is full; Error records
// wait for room so failures are never lost.
type AsyncHandler struct {
	inner slog.Handler
	q     *asyncQueue
}

// NewAsyncHandler starts workers draining a buffer of size records into
// inner.
func NewAsyncHandler(inner slog.Handler, size, workers int) *AsyncHandler {
	q := &asyncQueue{ch: make(chan asyncRecord, size)}
	for range workers {
		q.wg.Add(1)
		go func() {
			defer q.wg.Done()
			for r := range q.ch {
				_ = r.h.Handle(context.Background(), r.rec)
			}
		}()
	}
	return &AsyncHandler{inner: inner, q: q}
}

// Enabled delegates to the inner handler.
func (h *AsyncHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle enqueues rec for the workers.
func (h *AsyncHandler) Handle(_ context.Context, rec slog.Record) error { //nolint:gocritic // slog.Handler interface requires value receiver
	h.q.mu.RLock()
	defer h.q.mu.RUnlock()
	if h.q.closed {
		return errHandlerClosed
	}

	r := asyncRecord{h: h.inner, rec: rec}
	if rec.Level >= slog.LevelError {
		h.q.ch <- r
		return nil
	}
	select {
	case h.q.ch <- r:
	default:
		h.q.dropped.Add(1)
	}
	return nil
}

// WithAttrs returns a handler writing through the same buffer.
func (h *AsyncHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &AsyncHandler{inner: h.inner.WithAttrs(attrs), q: h.q}
}

// WithGroup returns a handler writing through the same buffer.
func (h *AsyncHandler) WithGroup(name string) slog.Handler {
	return &AsyncHandler{inner: h.inner.WithGroup(name), q: h.q}
}

// DroppedCount returns the number of records discarded on a full buffer.
func (h *AsyncHandler) DroppedCount() int64 {
	return h.q.dropped.Load()
}

// Close drains the buffer and stops the workers. A non-zero drop count is
// written synchronously as a final warning. Close is idempotent.
func (h *AsyncHandler) Close() {
	h.q.mu.Lock()
	if h.q.closed {
		h.q.mu.Unlock()
		return
	}
	h.q.closed = true
	close(h.q.ch)
	h.q.mu.Unlock()
	h.q.wg.Wait()

	if n := h.q.dropped.Load(); n > 0 {
		rec := slog.NewRecord(time.Now(), slog.LevelWarn, "async logger dropped records", 0)
		rec.AddAttrs(slog.Int64("dropped", n))
		_ = h.inner.Handle(context.Background(), rec)
	}
}

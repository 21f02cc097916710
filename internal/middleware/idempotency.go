package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/Strob0t/Tasklane/internal/port/cache"
)

const (
	headerIdempotencyKey = "Idempotency-Key"
	headerReplayed       = "Idempotent-Replayed"
	maxIdempotencyBody   = 1 << 20
	maxIdempotencyKeyLen = 255
)

type idempotencyEntry struct {
	StatusCode int                 `json:"status_code"`
	Headers    map[string][]string `json:"headers"`
	Body       []byte              `json:"body"`
}

// Idempotency returns middleware that replays the stored response of a
// mutating request carrying an Idempotency-Key header. Entries are keyed by
// caller, method, path and key, so one caller can never replay another's
// response. Only non-5xx responses are stored.
func Idempotency(store cache.Cache, ttl time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			key := r.Header.Get(headerIdempotencyKey)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}
			if len(key) > maxIdempotencyKeyLen {
				writeError(w, http.StatusBadRequest, "INVALID_INPUT", "idempotency key too long")
				return
			}

			storeKey := idempotencyStoreKey(r, key)
			if data, ok, err := store.Get(r.Context(), storeKey); err != nil {
				slog.WarnContext(r.Context(), "idempotency lookup failed", "error", err)
			} else if ok {
				var cached idempotencyEntry
				if err := json.Unmarshal(data, &cached); err == nil {
					for k, vals := range cached.Headers {
						for _, v := range vals {
							w.Header().Add(k, v)
						}
					}
					w.Header().Set(headerReplayed, "true")
					w.WriteHeader(cached.StatusCode)
					_, _ = w.Write(cached.Body)
					return
				}
				slog.WarnContext(r.Context(), "idempotency: corrupt entry", "key", storeKey)
			}

			rec := &responseRecorder{ResponseWriter: w, statusCode: http.StatusOK, body: &bytes.Buffer{}}
			next.ServeHTTP(rec, r)

			if rec.statusCode >= http.StatusInternalServerError || rec.body.Len() > maxIdempotencyBody {
				return
			}
			data, err := json.Marshal(idempotencyEntry{
				StatusCode: rec.statusCode,
				Headers:    w.Header().Clone(),
				Body:       rec.body.Bytes(),
			})
			if err != nil {
				return
			}
			if err := store.Set(r.Context(), storeKey, data, ttl); err != nil {
				slog.WarnContext(r.Context(), "idempotency: store failed", "error", err)
			}
		})
	}
}

// idempotencyStoreKey hashes the caller identity with the request line and
// key. NATS KV keys allow only a restricted alphabet, hence the hex digest.
func idempotencyStoreKey(r *http.Request, key string) string {
	caller := "ip:" + clientIP(r)
	if pc, ok := PrincipalFromContext(r.Context()); ok {
		caller = "principal:" + pc.PrincipalID()
	}
	sum := sha256.Sum256([]byte(caller + "\x00" + r.Method + "\x00" + r.URL.Path + "\x00" + key))
	return "idem." + hex.EncodeToString(sum[:])
}

type responseRecorder struct {
	http.ResponseWriter
	statusCode int
	body       *bytes.Buffer
}

func (r *responseRecorder) WriteHeader(code int) {
	r.statusCode = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

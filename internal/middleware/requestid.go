// Package middleware provides HTTP middleware for Tasklane.
package middleware

import (
	"net/http"
	"regexp"

	"github.com/google/uuid"

	"github.com/Strob0t/Tasklane/internal/logger"
)

const headerRequestID = "X-Request-ID"

// validRequestID bounds client-supplied ids so they are safe to log.
var validRequestID = regexp.MustCompile(`^[A-Za-z0-9._-]{1,64}$`)

// RequestID is HTTP middleware that takes X-Request-ID from the request or
// generates a new one. The ID is stored in the context and echoed on the
// response.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(headerRequestID)
		if !validRequestID.MatchString(id) {
			id = uuid.NewString()
		}

		ctx := logger.WithRequestID(r.Context(), id)
		w.Header().Set(headerRequestID, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Strob0t/Tasklane/internal/domain"
	"github.com/Strob0t/Tasklane/internal/domain/principal"
	"github.com/Strob0t/Tasklane/internal/middleware"
)

const maxRequestBodySize = 1 << 20

// ---------------------------------------------------------------------------
// Request helpers
// ---------------------------------------------------------------------------

// readJSON decodes a JSON request body with a size limit.
func readJSON[T any](w http.ResponseWriter, r *http.Request) (T, bool) {
	var v T
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "INVALID_INPUT", "request body too large")
		} else {
			writeError(w, http.StatusBadRequest, "INVALID_INPUT", "invalid request body")
		}
		return v, false
	}
	return v, true
}

// urlParam is a short alias for chi.URLParam.
func urlParam(r *http.Request, name string) string {
	return chi.URLParam(r, name)
}

// pageParams reads page and limit; malformed values fall back to defaults.
func pageParams(r *http.Request) domain.PageRequest {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	return domain.PageRequest{Page: page, Limit: limit}.Normalize()
}

// caller returns the authenticated principal. Routes behind Auth always
// have one; a missing one is answered with 401.
func caller(w http.ResponseWriter, r *http.Request) (principal.Context, bool) {
	pc, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "authentication required")
	}
	return pc, ok
}

// ---------------------------------------------------------------------------
// Response helpers
// ---------------------------------------------------------------------------

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

type listResponse[T any] struct {
	Data       []T                `json:"data"`
	Pagination *domain.Pagination `json:"pagination,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to write JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: message, Code: code})
}

func writeList[T any](w http.ResponseWriter, items []T, pg *domain.Pagination) {
	if items == nil {
		items = []T{}
	}
	writeJSON(w, http.StatusOK, listResponse[T]{Data: items, Pagination: pg})
}

// writeDomainError maps err onto the error taxonomy. Authentication and
// not-found answers use fixed messages so they never confirm what exists;
// internal errors are logged and never echoed.
func (h *Handlers) writeDomainError(w http.ResponseWriter, r *http.Request, err error, notFoundMsg string) {
	code := domain.Code(err)
	if code != "INTERNAL" {
		h.Metrics.PolicyDenial(r.Context(), code)
		slog.InfoContext(r.Context(), "request refused", "path", r.URL.Path, "code", code, "reason", err.Error())
	}

	switch code {
	case "INVALID_INPUT":
		writeError(w, http.StatusBadRequest, code, detail(err, domain.ErrInput))
	case "UNAUTHENTICATED":
		writeError(w, http.StatusUnauthorized, code, "authentication required")
	case "FORBIDDEN":
		writeError(w, http.StatusForbidden, code, detail(err, domain.ErrForbidden))
	case "QUOTA_EXCEEDED":
		writeError(w, http.StatusForbidden, code, detail(err, domain.ErrQuotaExceeded))
	case "NOT_FOUND":
		writeError(w, http.StatusNotFound, code, notFoundMsg)
	case "CONFLICT":
		writeError(w, http.StatusConflict, code, detail(err, domain.ErrConflict))
	default:
		slog.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, code, "internal server error")
	}
}

// detail returns the text following sentinel in err, or the sentinel text
// itself when nothing follows.
func detail(err, sentinel error) string {
	msg := err.Error()
	prefix := sentinel.Error() + ": "
	if i := strings.Index(msg, prefix); i >= 0 {
		return msg[i+len(prefix):]
	}
	return sentinel.Error()
}

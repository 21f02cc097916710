package http

import (
	"context"
	"net/http"

	"github.com/Strob0t/Tasklane/internal/domain/principal"
)

// ---------------------------------------------------------------------------
// Generic handler factories for principal-scoped resources. Each factory
// reads the caller from the request context and passes it explicitly to the
// service, which authorizes against stored ownership.
// ---------------------------------------------------------------------------

type (
	getFunc[T any]         func(ctx context.Context, pc principal.Context, id string) (*T, error)
	updateFunc[Req, T any] func(ctx context.Context, pc principal.Context, id string, req Req) (*T, error)
	createFunc[Req, T any] func(ctx context.Context, pc principal.Context, parentID string, req Req) (*T, error)
	deleteFunc             func(ctx context.Context, pc principal.Context, id string) error
)

// handleGet serves GET on the resource named by URL param.
func handleGet[T any](h *Handlers, param string, get getFunc[T], notFoundMsg string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pc, ok := caller(w, r)
		if !ok {
			return
		}
		item, err := get(r.Context(), pc, urlParam(r, param))
		if err != nil {
			h.writeDomainError(w, r, err, notFoundMsg)
			return
		}
		writeJSON(w, http.StatusOK, item)
	}
}

// handleCreate decodes Req and creates a resource under the parent named by
// URL param. param may be empty for top-level resources.
func handleCreate[Req, T any](h *Handlers, param string, create createFunc[Req, T], notFoundMsg string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pc, ok := caller(w, r)
		if !ok {
			return
		}
		req, ok := readJSON[Req](w, r)
		if !ok {
			return
		}
		var parentID string
		if param != "" {
			parentID = urlParam(r, param)
		}
		item, err := create(r.Context(), pc, parentID, req)
		if err != nil {
			h.writeDomainError(w, r, err, notFoundMsg)
			return
		}
		writeJSON(w, http.StatusCreated, item)
	}
}

// handleUpdate decodes Req and updates the resource named by URL param.
func handleUpdate[Req, T any](h *Handlers, param string, update updateFunc[Req, T], notFoundMsg string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pc, ok := caller(w, r)
		if !ok {
			return
		}
		req, ok := readJSON[Req](w, r)
		if !ok {
			return
		}
		item, err := update(r.Context(), pc, urlParam(r, param), req)
		if err != nil {
			h.writeDomainError(w, r, err, notFoundMsg)
			return
		}
		writeJSON(w, http.StatusOK, item)
	}
}

// handleDelete deletes the resource named by URL param and answers 204.
func handleDelete(h *Handlers, param string, del deleteFunc, notFoundMsg string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pc, ok := caller(w, r)
		if !ok {
			return
		}
		if err := del(r.Context(), pc, urlParam(r, param)); err != nil {
			h.writeDomainError(w, r, err, notFoundMsg)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

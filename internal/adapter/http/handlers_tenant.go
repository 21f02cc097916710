package http

import (
	"context"
	"net/http"

	"github.com/Strob0t/Tasklane/internal/domain/principal"
	"github.com/Strob0t/Tasklane/internal/domain/tenant"
)

const tenantNotFound = "tenant not found"

// ListTenants handles GET /api/tenants.
func (h *Handlers) ListTenants(w http.ResponseWriter, r *http.Request) {
	pc, ok := caller(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	f := tenant.ListFilter{
		Status:      tenant.Status(q.Get("status")),
		Plan:        tenant.Plan(q.Get("subscriptionPlan")),
		Search:      q.Get("search"),
		PageRequest: pageParams(r),
	}
	items, pg, err := h.Tenants.List(r.Context(), pc, f)
	if err != nil {
		h.writeDomainError(w, r, err, tenantNotFound)
		return
	}
	writeList(w, items, &pg)
}

// GetTenant handles GET /api/tenants/{tenantId}.
func (h *Handlers) GetTenant(w http.ResponseWriter, r *http.Request) {
	handleGet[tenant.Detail](h, "tenantId", h.Tenants.Get, tenantNotFound)(w, r)
}

// UpdateTenant handles PUT /api/tenants/{tenantId}.
func (h *Handlers) UpdateTenant(w http.ResponseWriter, r *http.Request) {
	handleUpdate[tenant.UpdateRequest, tenant.Tenant](h, "tenantId", h.Tenants.Update, tenantNotFound)(w, r)
}

// ListTenantUsers handles GET /api/tenants/{tenantId}/users.
func (h *Handlers) ListTenantUsers(w http.ResponseWriter, r *http.Request) {
	pc, ok := caller(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	f := principal.ListFilter{
		Search:      q.Get("search"),
		Role:        principal.Role(q.Get("role")),
		PageRequest: pageParams(r),
	}
	items, pg, err := h.Users.List(r.Context(), pc, urlParam(r, "tenantId"), f)
	if err != nil {
		h.writeDomainError(w, r, err, tenantNotFound)
		return
	}
	writeList(w, items, &pg)
}

// CreateTenantUser handles POST /api/tenants/{tenantId}/users.
func (h *Handlers) CreateTenantUser(w http.ResponseWriter, r *http.Request) {
	handleCreate[principal.CreateRequest, principal.Principal](h, "tenantId", func(ctx context.Context, pc principal.Context, tenantID string, req principal.CreateRequest) (*principal.Principal, error) {
		return h.Users.Create(ctx, pc, tenantID, req)
	}, tenantNotFound)(w, r)
}

// UpdateUser handles PUT /api/users/{userId}.
func (h *Handlers) UpdateUser(w http.ResponseWriter, r *http.Request) {
	handleUpdate[principal.UpdateRequest, principal.Principal](h, "userId", h.Users.Update, "user not found")(w, r)
}

// DeleteUser handles DELETE /api/users/{userId}.
func (h *Handlers) DeleteUser(w http.ResponseWriter, r *http.Request) {
	handleDelete(h, "userId", h.Users.Delete, "user not found")(w, r)
}

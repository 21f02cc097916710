package http

import (
	"net/http"

	"github.com/Strob0t/Tasklane/internal/domain/principal"
	"github.com/Strob0t/Tasklane/internal/domain/tenant"
)

// Register handles POST /api/auth/register.
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[tenant.RegisterRequest](w, r)
	if !ok {
		return
	}
	resp, err := h.Auth.Register(r.Context(), req)
	if err != nil {
		h.writeDomainError(w, r, err, "not found")
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

// Login handles POST /api/auth/login. Every credential or tenant problem
// produces the same 401 body.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[principal.LoginRequest](w, r)
	if !ok {
		return
	}
	resp, err := h.Auth.Login(r.Context(), req)
	if err != nil {
		h.writeDomainError(w, r, err, "not found")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Me handles GET /api/auth/me.
func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	pc, ok := caller(w, r)
	if !ok {
		return
	}
	prof, err := h.Auth.Me(r.Context(), pc)
	if err != nil {
		h.writeDomainError(w, r, err, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, prof)
}

// Logout handles POST /api/auth/logout by revoking the presented token.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	pc, ok := caller(w, r)
	if !ok {
		return
	}
	if err := h.Auth.Logout(r.Context(), pc); err != nil {
		h.writeDomainError(w, r, err, "not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

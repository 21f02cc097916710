package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Strob0t/Tasklane/internal/domain/principal"
	"github.com/Strob0t/Tasklane/internal/logger"
	"github.com/Strob0t/Tasklane/internal/middleware"
)

func TestAuth_PublicPathsSkipAuthentication(t *testing.T) {
	handler := middleware.Auth(newFakeAuth())(ok())

	for _, path := range []string{"/api/health", "/api/auth/login", "/api/auth/register", "/metrics"} {
		req := httptest.NewRequest(http.MethodGet, path, http.NoBody)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("%s: status = %d, want 200", path, rec.Code)
		}
	}
}

func TestAuth_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{"no header", ""},
		{"wrong scheme", "Basic admin-token"},
		{"empty token", "Bearer "},
		{"unknown token", "Bearer forged"},
		{"missing scheme", "admin-token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := middleware.Auth(newFakeAuth())(ok())
			req := httptest.NewRequest(http.MethodGet, "/api/projects", http.NoBody)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("status = %d, want 401", rec.Code)
			}
			body := decodeError(t, rec)
			if body["code"] != "UNAUTHENTICATED" || body["error"] != "authentication required" {
				t.Errorf("body = %v", body)
			}
		})
	}
}

func TestAuth_InternalFailureIs500(t *testing.T) {
	a := newFakeAuth()
	a.err = errBackend
	handler := middleware.Auth(a)(ok())

	req := httptest.NewRequest(http.MethodGet, "/api/projects", http.NoBody)
	req.Header.Set("Authorization", "Bearer admin-token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if body := decodeError(t, rec); body["error"] == errBackend.Error() {
		t.Error("internal error detail leaked to client")
	}
}

func TestAuth_StoresPrincipalAndActor(t *testing.T) {
	var (
		got   principal.Context
		actor logger.Actor
	)
	handler := middleware.Auth(newFakeAuth())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = middleware.PrincipalFromContext(r.Context())
		actor, _ = logger.ActorFrom(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/projects", http.NoBody)
	req.Header.Set("Authorization", "bearer admin-token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got.PrincipalID() != "u-admin" || got.Role() != principal.RoleTenantAdmin || got.TenantID() != "t-1" {
		t.Errorf("principal = %+v", got)
	}
	if actor.PrincipalID != "u-admin" || actor.TenantID != "t-1" {
		t.Errorf("actor = %+v", actor)
	}
}

func TestPrincipalFromContext_Empty(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	if _, ok := middleware.PrincipalFromContext(req.Context()); ok {
		t.Error("expected no principal in a bare context")
	}
	ctx := middleware.ContextWithPrincipal(req.Context(), principal.Context{})
	if _, ok := middleware.PrincipalFromContext(ctx); ok {
		t.Error("zero principal must not count as authenticated")
	}
}

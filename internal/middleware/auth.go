package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Strob0t/Tasklane/internal/domain"
	"github.com/Strob0t/Tasklane/internal/domain/principal"
	"github.com/Strob0t/Tasklane/internal/logger"
)

type principalCtxKey struct{}

// publicPaths are exempt from authentication.
var publicPaths = map[string]bool{
	"/api/health":        true,
	"/api/auth/login":    true,
	"/api/auth/register": true,
	"/metrics":           true,
}

// Authenticator turns a bearer token into a verified principal.Context.
type Authenticator interface {
	Authenticate(ctx context.Context, bearer string) (principal.Context, error)
}

// Auth returns middleware that authenticates the Authorization bearer token
// and stores the resulting principal.Context in the request context. Every
// token problem yields the same 401 body.
func Auth(a Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if publicPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				writeError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "authentication required")
				return
			}

			pc, err := a.Authenticate(r.Context(), token)
			if err != nil {
				if errors.Is(err, domain.ErrAuth) {
					slog.InfoContext(r.Context(), "authentication rejected", "path", r.URL.Path, "reason", err.Error())
					writeError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "authentication required")
					return
				}
				slog.ErrorContext(r.Context(), "authentication failed", "path", r.URL.Path, "error", err)
				writeError(w, http.StatusInternalServerError, "INTERNAL", "internal server error")
				return
			}

			ctx := ContextWithPrincipal(r.Context(), pc)
			ctx = logger.WithActor(ctx, logger.Actor{PrincipalID: pc.PrincipalID(), TenantID: pc.TenantID()})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// PrincipalFromContext returns the authenticated principal of the request.
func PrincipalFromContext(ctx context.Context) (principal.Context, bool) {
	pc, ok := ctx.Value(principalCtxKey{}).(principal.Context)
	return pc, ok && !pc.IsZero()
}

// ContextWithPrincipal stores pc in ctx. Used by Auth and by tests.
func ContextWithPrincipal(ctx context.Context, pc principal.Context) context.Context {
	return context.WithValue(ctx, principalCtxKey{}, pc)
}

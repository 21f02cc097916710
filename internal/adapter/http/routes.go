package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Strob0t/Tasklane/internal/domain/access"
	"github.com/Strob0t/Tasklane/internal/domain/principal"
	"github.com/Strob0t/Tasklane/internal/middleware"
	"github.com/Strob0t/Tasklane/internal/port/cache"
)

// RouteOptions carries the optional per-route middleware.
type RouteOptions struct {
	// LoginThrottle limits failed-login bursts per client. Nil disables it.
	LoginThrottle *middleware.LoginThrottle
	// IdempotencyStore backs Idempotency-Key replay on registration. Nil
	// disables replay.
	IdempotencyStore cache.Cache
	IdempotencyTTL   time.Duration
	// Metrics serves /metrics when set.
	Metrics http.Handler
}

// MountRoutes registers all API routes on the given chi router.
func MountRoutes(r chi.Router, h *Handlers, opts RouteOptions) {
	if opts.Metrics != nil {
		r.Handle("/metrics", opts.Metrics)
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)

		r.Route("/auth", func(r chi.Router) {
			register := http.Handler(http.HandlerFunc(h.Register))
			if opts.IdempotencyStore != nil {
				register = middleware.Idempotency(opts.IdempotencyStore, opts.IdempotencyTTL)(register)
			}
			r.Method(http.MethodPost, "/register", register)

			login := http.Handler(http.HandlerFunc(h.Login))
			if opts.LoginThrottle != nil {
				login = opts.LoginThrottle.Handler(login)
			}
			r.Method(http.MethodPost, "/login", login)

			r.Group(func(r chi.Router) {
				r.Use(middleware.Auth(h.Auth))
				r.Get("/me", h.Me)
				r.Post("/logout", h.Logout)
			})
		})

		// Everything below requires a verified principal. The capability
		// gates are coarse; services re-check tenant ownership per resource.
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(h.Auth))

			// Tenants
			r.With(middleware.RequireRole(principal.RoleSuperAdmin)).Get("/tenants", h.ListTenants)
			r.With(middleware.RequireCapability(access.TenantRead)).Get("/tenants/{tenantId}", h.GetTenant)
			r.With(middleware.RequireCapability(access.TenantProfile)).Put("/tenants/{tenantId}", h.UpdateTenant)

			// Users
			r.With(middleware.RequireCapability(access.UserRead)).Get("/tenants/{tenantId}/users", h.ListTenantUsers)
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireCapability(access.UserManage))
				r.Post("/tenants/{tenantId}/users", h.CreateTenantUser)
				r.Put("/users/{userId}", h.UpdateUser)
				r.Delete("/users/{userId}", h.DeleteUser)
			})

			// Projects and tasks
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireCapability(access.ResourceRead))
				r.Get("/tenants/{tenantId}/projects", h.ListTenantProjects)
				r.Get("/projects", h.ListProjects)
				r.Get("/projects/{projectId}", h.GetProject)
				r.Get("/projects/{projectId}/tasks", h.ListTasks)
				r.Get("/tasks/{taskId}", h.GetTask)
			})
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireCapability(access.ResourceWrite))
				r.Post("/projects", h.CreateProject)
				r.Put("/projects/{projectId}", h.UpdateProject)
				r.Delete("/projects/{projectId}", h.DeleteProject)
				r.Post("/projects/{projectId}/tasks", h.CreateTask)
				r.Put("/tasks/{taskId}", h.UpdateTask)
				r.Patch("/tasks/{taskId}/status", h.UpdateTaskStatus)
				r.Delete("/tasks/{taskId}", h.DeleteTask)
			})
		})
	})
}

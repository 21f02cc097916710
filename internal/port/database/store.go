// Package database defines the database store port (interface).
//
// Every method that touches tenant-owned rows takes an access.Scope derived
// from the caller's verified principal.Context. Implementations must refuse
// a zero scope with domain.ErrUnscoped and must report rows outside the
// scope as domain.ErrNotFound.
package database

import (
	"context"
	"time"

	"github.com/Strob0t/Tasklane/internal/domain/access"
	"github.com/Strob0t/Tasklane/internal/domain/principal"
	"github.com/Strob0t/Tasklane/internal/domain/project"
	"github.com/Strob0t/Tasklane/internal/domain/task"
	"github.com/Strob0t/Tasklane/internal/domain/tenant"
)

// Store is the port interface for database operations.
type Store interface {
	Ping(ctx context.Context) error

	// Tenants
	GetTenant(ctx context.Context, id string) (*tenant.Tenant, error)
	FindTenantBySubdomain(ctx context.Context, subdomain string) (*tenant.Tenant, error)
	ListTenants(ctx context.Context, filter tenant.ListFilter) ([]tenant.Tenant, int, error)
	UpdateTenant(ctx context.Context, t *tenant.Tenant) error
	// RegisterTenant inserts t and its first admin in one transaction.
	// A taken subdomain yields domain.ErrConflict and nothing is written.
	RegisterTenant(ctx context.Context, t *tenant.Tenant, admin *principal.Principal) error

	// Principals
	// FindPrincipalsByEmail looks up principals bound to tenantID. An empty
	// tenantID searches the tenant-less super admin namespace only.
	FindPrincipalsByEmail(ctx context.Context, email, tenantID string) ([]principal.Principal, error)
	GetPrincipal(ctx context.Context, scope access.Scope, id string) (*principal.Principal, error)
	ListPrincipals(ctx context.Context, scope access.Scope, filter principal.ListFilter) ([]principal.Principal, int, error)
	UpdatePrincipal(ctx context.Context, scope access.Scope, p *principal.Principal) error
	DeletePrincipal(ctx context.Context, scope access.Scope, id string) error
	CreateSuperAdmin(ctx context.Context, p *principal.Principal) error

	// Quota
	CountResources(ctx context.Context, kind tenant.ResourceKind, tenantID string) (int, error)
	// WithTenantLock runs fn while holding an exclusive lock on the tenant,
	// so that count-then-insert inside fn is atomic for that tenant. The lock
	// is released and fn's writes committed only if fn returns nil.
	WithTenantLock(ctx context.Context, tenantID string, fn func(tx TenantTx) error) error

	// Projects
	GetProject(ctx context.Context, scope access.Scope, id string) (*project.Project, error)
	ListProjects(ctx context.Context, scope access.Scope, filter project.ListFilter) ([]project.Project, int, error)
	UpdateProject(ctx context.Context, scope access.Scope, p *project.Project) error
	DeleteProject(ctx context.Context, scope access.Scope, id string) error

	// Tasks
	CreateTask(ctx context.Context, scope access.Scope, t *task.Task) error
	GetTask(ctx context.Context, scope access.Scope, id string) (*task.Task, error)
	ListTasks(ctx context.Context, scope access.Scope, projectID string, filter task.ListFilter) ([]task.Task, error)
	UpdateTask(ctx context.Context, scope access.Scope, t *task.Task) error
	DeleteTask(ctx context.Context, scope access.Scope, id string) error

	// Token revocation
	RevokeToken(ctx context.Context, tokenID string, expiresAt time.Time) error
	IsTokenRevoked(ctx context.Context, tokenID string) (bool, error)
	PurgeExpiredRevocations(ctx context.Context, now time.Time) (int64, error)
}

// TenantTx is the view of the store available inside WithTenantLock.
type TenantTx interface {
	// Tenant returns the locked tenant row as read under the lock.
	Tenant() *tenant.Tenant
	CountResources(ctx context.Context, kind tenant.ResourceKind) (int, error)
	InsertPrincipal(ctx context.Context, p *principal.Principal) error
	InsertProject(ctx context.Context, p *project.Project) error
}

package access

import (
	"github.com/Strob0t/Tasklane/internal/domain"
	"github.com/Strob0t/Tasklane/internal/domain/principal"
)

// Scope is the set of tenants a query may touch. Exactly one of TenantID and
// AllTenants is meaningful; the zero Scope matches nothing and is rejected
// by the persistence layer.
type Scope struct {
	TenantID   string
	AllTenants bool
}

// ScopeFor derives the scope of pc. Super admins span all tenants; everyone
// else is pinned to the tenant in their verified token.
func ScopeFor(pc principal.Context) Scope {
	if pc.IsSuperAdmin() {
		return Scope{AllTenants: true}
	}
	return Scope{TenantID: pc.TenantID()}
}

// TenantScope pins a query to one tenant. Used by super-admin operations
// that address a specific tenant and by internal flows such as login.
func TenantScope(tenantID string) Scope {
	return Scope{TenantID: tenantID}
}

// Narrow restricts an all-tenants scope to tenantID. A tenant-bound scope is
// returned unchanged so a caller-supplied tenant can never widen it.
func (s Scope) Narrow(tenantID string) Scope {
	if s.AllTenants && tenantID != "" {
		return Scope{TenantID: tenantID}
	}
	return s
}

// Valid reports whether the scope can be applied to a query.
func (s Scope) Valid() bool {
	return s.AllTenants || s.TenantID != ""
}

// Check returns ErrUnscoped for an unusable scope.
func (s Scope) Check() error {
	if !s.Valid() {
		return domain.ErrUnscoped
	}
	return nil
}

// Contains reports whether a row owned by tenantID is visible in the scope.
func (s Scope) Contains(tenantID string) bool {
	if s.AllTenants {
		return true
	}
	return s.TenantID != "" && s.TenantID == tenantID
}

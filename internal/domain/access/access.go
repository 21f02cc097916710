// Package access holds the role/tenant access matrix and the tenant scope
// that every data query is parameterized by. It is pure: callers supply the
// verified principal.Context and the target resource's owning tenant, which
// must come from stored ownership, never from the request.
package access

import (
	"fmt"
	"slices"

	"github.com/Strob0t/Tasklane/internal/domain"
	"github.com/Strob0t/Tasklane/internal/domain/principal"
)

// Capability names a class of operations guarded by the matrix.
type Capability string

const (
	// TenantManage covers listing all tenants and changing status, plan and limits.
	TenantManage Capability = "tenant.manage"
	// TenantRead covers reading a tenant's profile and stats.
	TenantRead Capability = "tenant.read"
	// TenantProfile covers renaming a tenant.
	TenantProfile Capability = "tenant.profile"
	// UserManage covers creating, updating and deleting users.
	UserManage Capability = "user.manage"
	// UserRead covers listing a tenant's users.
	UserRead Capability = "user.read"
	// ResourceRead covers reading projects and tasks.
	ResourceRead Capability = "resource.read"
	// ResourceWrite covers creating, updating and deleting projects and tasks.
	ResourceWrite Capability = "resource.write"
)

// matrix is the single source of truth for which role may exercise which
// capability. Tenant matching is enforced separately for every role except
// super_admin.
var matrix = map[principal.Role]map[Capability]bool{
	principal.RoleSuperAdmin: {
		TenantManage:  true,
		TenantRead:    true,
		TenantProfile: true,
		UserManage:    true,
		UserRead:      true,
		ResourceRead:  true,
		ResourceWrite: true,
	},
	principal.RoleTenantAdmin: {
		TenantRead:    true,
		TenantProfile: true,
		UserManage:    true,
		UserRead:      true,
		ResourceRead:  true,
		ResourceWrite: true,
	},
	principal.RoleMember: {
		TenantRead:    true,
		UserRead:      true,
		ResourceRead:  true,
		ResourceWrite: true,
	},
}

// Allowed reports whether role holds capability in the matrix.
func Allowed(role principal.Role, c Capability) bool {
	return matrix[role][c]
}

// Request describes one authorization decision.
type Request struct {
	Capability Capability
	// TargetTenantID is the tenant owning the resource, resolved from its
	// stored ownership chain. Empty only for cross-tenant operations such as
	// the super-admin tenant listing.
	TargetTenantID string
	// Write marks state-changing operations, which suspended tenants refuse.
	Write bool
}

// Authorize applies the access matrix to pc.
//
//   - a zero context fails with ErrAuth;
//   - a capability outside the caller's row fails with ErrForbidden;
//   - a tenant-bound caller addressing another tenant fails with ErrNotFound
//     so the other tenant's resources are not confirmed to exist;
//   - a write against a suspended tenant fails with ErrForbidden unless the
//     caller is a super admin.
func Authorize(pc principal.Context, req Request) error {
	if pc.IsZero() {
		return domain.ErrAuth
	}
	if !Allowed(pc.Role(), req.Capability) {
		return fmt.Errorf("%w: role %s lacks %s", domain.ErrForbidden, pc.Role(), req.Capability)
	}
	if pc.IsSuperAdmin() {
		return nil
	}
	if req.TargetTenantID == "" || !pc.OwnsTenant(req.TargetTenantID) {
		return fmt.Errorf("tenant %q outside caller scope: %w", req.TargetTenantID, domain.ErrNotFound)
	}
	if req.Write && pc.TenantSuspended() {
		return fmt.Errorf("%w: tenant is suspended", domain.ErrForbidden)
	}
	return nil
}

// AuthorizeRoles is the role-set form of Authorize: the caller's role must be
// in roles and, unless super admin, the caller must belong to targetTenantID.
func AuthorizeRoles(pc principal.Context, roles []principal.Role, targetTenantID string) error {
	if err := HasRole(pc, roles...); err != nil {
		return err
	}
	if pc.IsSuperAdmin() {
		return nil
	}
	if !pc.OwnsTenant(targetTenantID) {
		return fmt.Errorf("tenant %q outside caller scope: %w", targetTenantID, domain.ErrNotFound)
	}
	return nil
}

// HasRole checks only the role set: ErrAuth for a zero context, ErrForbidden
// when the caller's role is not in roles.
func HasRole(pc principal.Context, roles ...principal.Role) error {
	if pc.IsZero() {
		return domain.ErrAuth
	}
	if !slices.Contains(roles, pc.Role()) {
		return fmt.Errorf("%w: role %s not permitted", domain.ErrForbidden, pc.Role())
	}
	return nil
}

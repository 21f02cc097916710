package principal

import (
	"time"

	"github.com/Strob0t/Tasklane/internal/domain/tenant"
)

// Context is the authenticated identity of one request. It is built once
// from verified token claims plus a fresh principal and tenant lookup, and
// is passed by value; its fields cannot be changed after construction.
type Context struct {
	principalID  string
	email        string
	fullName     string
	role         Role
	tenantID     string
	tenantStatus tenant.Status
	tokenID      string
	expiresAt    time.Time
}

// NewContext builds the request context for p. t must be nil exactly when p
// is a super admin.
func NewContext(p *Principal, t *tenant.Tenant, tokenID string, expiresAt time.Time) Context {
	c := Context{
		principalID: p.ID,
		email:       p.Email,
		fullName:    p.FullName,
		role:        p.Role,
		tenantID:    p.TenantID,
		tokenID:     tokenID,
		expiresAt:   expiresAt,
	}
	if t != nil {
		c.tenantStatus = t.Status
	}
	return c
}

func (c Context) PrincipalID() string { return c.principalID }
func (c Context) Email() string { return c.email }
func (c Context) FullName() string { return c.fullName }
func (c Context) Role() Role { return c.role }

// TenantID is empty for super admins.
func (c Context) TenantID() string { return c.tenantID }

// TenantStatus is the status read at authentication time, not the one in
// the token.
func (c Context) TenantStatus() tenant.Status { return c.tenantStatus }

// TokenID is the jti that Logout revokes.
func (c Context) TokenID() string { return c.tokenID }
func (c Context) ExpiresAt() time.Time { return c.expiresAt }

func (c Context) IsSuperAdmin() bool { return c.role == RoleSuperAdmin }

// IsZero reports whether c is the unauthenticated zero value.
func (c Context) IsZero() bool { return c.principalID == "" }

// TenantSuspended reports whether the caller's tenant was suspended when
// the request was authenticated. Always false for super admins.
func (c Context) TenantSuspended() bool { return c.tenantStatus == tenant.StatusSuspended }

// OwnsTenant reports whether tenantID is the caller's own tenant. It is
// false for super admins and for an empty id; callers that let super admins
// through must check IsSuperAdmin first.
func (c Context) OwnsTenant(tenantID string) bool { return c.tenantID != "" && c.tenantID == tenantID }

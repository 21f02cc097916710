// Package principal defines the authenticated actor model: users, their
// roles, and the immutable per-request context derived from a verified token.
package principal

import (
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/Strob0t/Tasklane/internal/domain"
	"github.com/Strob0t/Tasklane/internal/domain/tenant"
)

// Role represents the authorization level of a principal.
type Role string

const (
	RoleSuperAdmin  Role = "super_admin"
	RoleTenantAdmin Role = "tenant_admin"
	RoleMember      Role = "member"
)

// ValidRoles is the set of all valid roles.
var ValidRoles = map[Role]bool{
	RoleSuperAdmin:  true,
	RoleTenantAdmin: true,
	RoleMember:      true,
}

// TenantBound reports whether principals of this role belong to exactly one tenant.
func (r Role) TenantBound() bool {
	return r == RoleTenantAdmin || r == RoleMember
}

// Principal is a registered user. Super admins have an empty TenantID;
// every other role has exactly one.
type Principal struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	FullName     string    `json:"fullName"`
	PasswordHash string    `json:"-"` // never serialized
	Role         Role      `json:"role"`
	TenantID     string    `json:"tenantId,omitempty"`
	Active       bool      `json:"isActive"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Validate enforces the role/tenant binding invariant.
func (p *Principal) Validate() error {
	if !ValidRoles[p.Role] {
		return fmt.Errorf("%w: invalid role %q", domain.ErrValidation, p.Role)
	}
	if p.Role == RoleSuperAdmin && p.TenantID != "" {
		return fmt.Errorf("%w: super_admin must not be bound to a tenant", domain.ErrValidation)
	}
	if p.Role.TenantBound() && p.TenantID == "" {
		return fmt.Errorf("%w: %s must be bound to a tenant", domain.ErrValidation, p.Role)
	}
	return nil
}

// NormalizeEmail lowercases and trims an email address.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// ValidateCredentials checks the email, password and name fields shared by
// registration and user creation.
func ValidateCredentials(email, password, fullName string) error {
	if email == "" {
		return fmt.Errorf("%w: email is required", domain.ErrValidation)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return fmt.Errorf("%w: invalid email format", domain.ErrValidation)
	}
	if fullName == "" {
		return fmt.Errorf("%w: full name is required", domain.ErrValidation)
	}
	if len(password) < 8 {
		return fmt.Errorf("%w: password must be at least 8 characters", domain.ErrValidation)
	}
	if len(password) > 72 {
		return fmt.Errorf("%w: password must be at most 72 bytes", domain.ErrValidation)
	}
	return nil
}

// CreateRequest is the input for adding a user to a tenant. The tenant is
// taken from the URL and checked against the caller's scope, never from
// the body.
type CreateRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"` //nolint:gosec // request field, not a hardcoded secret
	FullName string `json:"fullName"`
	Role     Role   `json:"role"`
}

// Validate checks that the CreateRequest has all required fields. Super
// admins are never created through this path.
func (r *CreateRequest) Validate() error {
	r.Email = NormalizeEmail(r.Email)
	r.FullName = strings.TrimSpace(r.FullName)
	if err := ValidateCredentials(r.Email, r.Password, r.FullName); err != nil {
		return err
	}
	if r.Role == "" {
		r.Role = RoleMember
	}
	if !r.Role.TenantBound() {
		return fmt.Errorf("%w: role must be tenant_admin or member", domain.ErrValidation)
	}
	return nil
}

// UpdateRequest is the input for updating an existing user.
type UpdateRequest struct {
	FullName string `json:"fullName,omitempty"`
	Role     Role   `json:"role,omitempty"`
	Active   *bool  `json:"isActive,omitempty"`
}

// Validate checks the fields that are set.
func (r *UpdateRequest) Validate() error {
	if r.Role != "" && !r.Role.TenantBound() {
		return fmt.Errorf("%w: role must be tenant_admin or member", domain.ErrValidation)
	}
	return nil
}

// ListFilter narrows a tenant's user listing.
type ListFilter struct {
	Search string
	Role   Role
	domain.PageRequest
}

// LoginRequest is the input for user authentication.
type LoginRequest struct {
	Email           string `json:"email"`
	Password        string `json:"password"` //nolint:gosec // request field, not a hardcoded secret
	TenantSubdomain string `json:"tenantSubdomain,omitempty"`
}

// Validate checks that the LoginRequest has all required fields.
func (r *LoginRequest) Validate() error {
	r.Email = NormalizeEmail(r.Email)
	r.TenantSubdomain = tenant.NormalizeSubdomain(r.TenantSubdomain)
	if r.Email == "" {
		return fmt.Errorf("%w: email is required", domain.ErrValidation)
	}
	if r.Password == "" {
		return fmt.Errorf("%w: password is required", domain.ErrValidation)
	}
	return nil
}

// TenantRef is the tenant summary embedded in login and /me responses.
type TenantRef struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Subdomain string        `json:"subdomain"`
	Status    tenant.Status `json:"status"`
	Plan      tenant.Plan   `json:"subscriptionPlan"`
}

// RefOf summarizes t, or returns nil for a nil tenant.
func RefOf(t *tenant.Tenant) *TenantRef {
	if t == nil {
		return nil
	}
	return &TenantRef{ID: t.ID, Name: t.Name, Subdomain: t.Subdomain, Status: t.Status, Plan: t.Plan}
}

// Profile is the outward view of a principal.
type Profile struct {
	ID       string     `json:"id"`
	Email    string     `json:"email"`
	FullName string     `json:"fullName"`
	Role     Role       `json:"role"`
	TenantID string     `json:"tenantId,omitempty"`
	Tenant   *TenantRef `json:"tenant,omitempty"`
}

// ProfileOf builds the outward view of p bound to t.
func ProfileOf(p *Principal, t *tenant.Tenant) Profile {
	return Profile{
		ID:       p.ID,
		Email:    p.Email,
		FullName: p.FullName,
		Role:     p.Role,
		TenantID: p.TenantID,
		Tenant:   RefOf(t),
	}
}

// LoginResponse is returned after successful authentication.
type LoginResponse struct {
	Token     string    `json:"token"` //nolint:gosec // response field, not a hardcoded secret
	ExpiresAt time.Time `json:"expiresAt"`
	Principal Profile   `json:"principal"`
}

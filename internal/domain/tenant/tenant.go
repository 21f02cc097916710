// Package tenant defines the tenant domain model for multi-tenancy.
package tenant

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/Strob0t/Tasklane/internal/domain"
)

// Status is the lifecycle state of a tenant.
type Status string

const (
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
	StatusTrial     Status = "trial"
)

// Plan is the subscription plan of a tenant.
type Plan string

const (
	PlanFree       Plan = "free"
	PlanPro        Plan = "pro"
	PlanEnterprise Plan = "enterprise"
)

// ValidStatuses is the set of all valid tenant statuses.
var ValidStatuses = map[Status]bool{
	StatusActive:    true,
	StatusSuspended: true,
	StatusTrial:     true,
}

// ValidPlans is the set of all valid subscription plans.
var ValidPlans = map[Plan]bool{
	PlanFree:       true,
	PlanPro:        true,
	PlanEnterprise: true,
}

// ResourceKind names a quota-limited resource.
type ResourceKind string

const (
	ResourceUsers    ResourceKind = "users"
	ResourceProjects ResourceKind = "projects"
	ResourceTasks    ResourceKind = "tasks"
)

// Limits are the resource ceilings of a tenant.
type Limits struct {
	MaxUsers    int `json:"maxUsers" yaml:"max_users"`
	MaxProjects int `json:"maxProjects" yaml:"max_projects"`
}

// Ceiling returns the limit for kind, or 0 when kind is not quota-limited.
func (l Limits) Ceiling(kind ResourceKind) int {
	switch kind {
	case ResourceUsers:
		return l.MaxUsers
	case ResourceProjects:
		return l.MaxProjects
	default:
		return 0
	}
}

// Tenant represents an isolated customer organization.
type Tenant struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Subdomain string    `json:"subdomain"`
	Status    Status    `json:"status"`
	Plan      Plan      `json:"subscriptionPlan"`
	Limits              // maxUsers, maxProjects
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Suspended reports whether the tenant is in read-only mode.
func (t *Tenant) Suspended() bool { return t.Status == StatusSuspended }

// CanLogin reports whether new sessions may be opened for the tenant.
func (t *Tenant) CanLogin() bool { return t.Status == StatusActive || t.Status == StatusTrial }

// Stats holds resource counts shown on the tenant detail view.
type Stats struct {
	TotalUsers    int `json:"totalUsers"`
	TotalProjects int `json:"totalProjects"`
	TotalTasks    int `json:"totalTasks"`
}

// Detail is a tenant together with its current resource counts.
type Detail struct {
	Tenant
	Stats Stats `json:"stats"`
}

var subdomainRegex = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]*[a-z0-9])?$`)

// NormalizeSubdomain trims and lowercases a subdomain as typed at login.
func NormalizeSubdomain(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// ValidateSubdomain checks the subdomain format: lowercase alphanumerics and
// inner hyphens, 3 to 63 characters.
func ValidateSubdomain(s string) error {
	if len(s) < 3 || len(s) > 63 || !subdomainRegex.MatchString(s) {
		return fmt.Errorf("%w: invalid subdomain %q: must be 3-63 lowercase alphanumeric characters or hyphens", domain.ErrValidation, s)
	}
	return nil
}

// UpdateRequest holds the fields that can be updated on a tenant. Name may be
// changed by the tenant's own admin; the remaining fields are reserved for
// super admins.
type UpdateRequest struct {
	Name        string `json:"name,omitempty"`
	Status      Status `json:"status,omitempty"`
	Plan        Plan   `json:"subscriptionPlan,omitempty"`
	MaxUsers    *int   `json:"maxUsers,omitempty"`
	MaxProjects *int   `json:"maxProjects,omitempty"`
}

// TouchesManagedFields reports whether the request changes anything beyond
// the tenant's display name.
func (r *UpdateRequest) TouchesManagedFields() bool {
	return r.Status != "" || r.Plan != "" || r.MaxUsers != nil || r.MaxProjects != nil
}

// Validate checks value ranges of the fields that are set.
func (r *UpdateRequest) Validate() error {
	if r.Status != "" && !ValidStatuses[r.Status] {
		return fmt.Errorf("%w: invalid status %q", domain.ErrValidation, r.Status)
	}
	if r.Plan != "" && !ValidPlans[r.Plan] {
		return fmt.Errorf("%w: invalid subscription plan %q", domain.ErrValidation, r.Plan)
	}
	if r.MaxUsers != nil && *r.MaxUsers < 1 {
		return fmt.Errorf("%w: maxUsers must be a positive integer", domain.ErrValidation)
	}
	if r.MaxProjects != nil && *r.MaxProjects < 1 {
		return fmt.Errorf("%w: maxProjects must be a positive integer", domain.ErrValidation)
	}
	if len(r.Name) > 255 {
		return fmt.Errorf("%w: name too long", domain.ErrValidation)
	}
	return nil
}

// Apply copies the set fields of r onto t.
func (r *UpdateRequest) Apply(t *Tenant) {
	if r.Name != "" {
		t.Name = r.Name
	}
	if r.Status != "" {
		t.Status = r.Status
	}
	if r.Plan != "" {
		t.Plan = r.Plan
	}
	if r.MaxUsers != nil {
		t.MaxUsers = *r.MaxUsers
	}
	if r.MaxProjects != nil {
		t.MaxProjects = *r.MaxProjects
	}
}

// ListFilter narrows the super-admin tenant listing.
type ListFilter struct {
	Status Status
	Plan   Plan
	Search string
	domain.PageRequest
}

// RegisterRequest is the self-service signup payload. It creates a tenant
// and its first tenant admin together.
type RegisterRequest struct {
	TenantName    string `json:"tenantName"`
	Subdomain     string `json:"subdomain"`
	AdminEmail    string `json:"adminEmail"`
	AdminPassword string `json:"adminPassword"` //nolint:gosec // request field, not a hardcoded secret
	AdminFullName string `json:"adminFullName"`
}

// Normalize lowercases the subdomain and email and trims whitespace.
func (r *RegisterRequest) Normalize() {
	r.TenantName = strings.TrimSpace(r.TenantName)
	r.Subdomain = NormalizeSubdomain(r.Subdomain)
	r.AdminEmail = strings.ToLower(strings.TrimSpace(r.AdminEmail))
	r.AdminFullName = strings.TrimSpace(r.AdminFullName)
}

// Validate checks the tenant half of the request. The admin half is
// validated by the principal package when the admin is built.
func (r *RegisterRequest) Validate() error {
	if r.TenantName == "" {
		return fmt.Errorf("%w: tenant name is required", domain.ErrValidation)
	}
	if len(r.TenantName) > 255 {
		return fmt.Errorf("%w: tenant name too long", domain.ErrValidation)
	}
	return ValidateSubdomain(r.Subdomain)
}

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/Strob0t/Tasklane/internal/config"
	"github.com/Strob0t/Tasklane/internal/domain"
	"github.com/Strob0t/Tasklane/internal/domain/principal"
	"github.com/Strob0t/Tasklane/internal/domain/project"
	"github.com/Strob0t/Tasklane/internal/domain/tenant"
	"github.com/Strob0t/Tasklane/internal/port/database"
)

// Demo credentials created by SeedDemo.
const (
	DemoSubdomain      = "demo"
	DemoAdminEmail     = "admin@demo.com"
	DemoAdminPassword  = "Demo@123"
	DemoSuperEmail     = "superadmin@system.com"
	DemoSuperPassword  = "Admin@123"
	AcmeSubdomain      = "acme"
	AcmeAdminEmail     = "admin@acme.com"
	AcmeAdminPassword  = "Acme@1234"
	demoSuperAdminName = "System Administrator"
)

// AdminService runs operator tasks that are not tied to a request
// principal: bootstrapping super admins and seeding demo data.
type AdminService struct {
	store database.Store
	creds *Credentials
	quota *QuotaEnforcer
	plans config.Plans
}

// NewAdminService creates an AdminService.
func NewAdminService(store database.Store, creds *Credentials, plans config.Plans) *AdminService {
	return &AdminService{store: store, creds: creds, quota: NewQuotaEnforcer(store), plans: plans}
}

// CreateSuperAdmin adds a tenant-less super admin.
func (s *AdminService) CreateSuperAdmin(ctx context.Context, email, fullName, password string) (*principal.Principal, error) {
	email = principal.NormalizeEmail(email)
	if err := principal.ValidateCredentials(email, password, fullName); err != nil {
		return nil, err
	}
	hash, err := s.creds.Hash(password)
	if err != nil {
		return nil, err
	}
	p := &principal.Principal{
		ID:           uuid.NewString(),
		Email:        email,
		FullName:     fullName,
		PasswordHash: hash,
		Role:         principal.RoleSuperAdmin,
		Active:       true,
	}
	if err := s.store.CreateSuperAdmin(ctx, p); err != nil {
		return nil, fmt.Errorf("create super admin: %w", err)
	}
	return p, nil
}

// ListTenants returns every tenant, page by page, for the admin CLI.
func (s *AdminService) ListTenants(ctx context.Context) ([]tenant.Tenant, error) {
	var out []tenant.Tenant
	f := tenant.ListFilter{PageRequest: domain.PageRequest{Page: 1, Limit: 100}}
	for {
		page, total, err := s.store.ListTenants(ctx, f)
		if err != nil {
			return nil, fmt.Errorf("list tenants: %w", err)
		}
		out = append(out, page...)
		if len(page) == 0 || len(out) >= total {
			return out, nil
		}
		f.Page++
	}
}

type seedTenant struct {
	name, subdomain   string
	plan              tenant.Plan
	email, password   string
	adminName, sample string
}

// SeedDemo creates the demo and acme tenants with one admin and one
// project each, plus the system super admin. Existing rows are left alone.
func (s *AdminService) SeedDemo(ctx context.Context) error {
	for _, st := range []seedTenant{
		{"Demo Company", DemoSubdomain, tenant.PlanPro, DemoAdminEmail, DemoAdminPassword, "Demo Admin", "Website Redesign"},
		{"Acme Corporation", AcmeSubdomain, tenant.PlanFree, AcmeAdminEmail, AcmeAdminPassword, "Acme Admin", "Launch Plan"},
	} {
		if err := s.seedTenant(ctx, st); err != nil {
			return err
		}
	}

	existing, err := s.store.FindPrincipalsByEmail(ctx, DemoSuperEmail, "")
	if err != nil {
		return fmt.Errorf("find super admin: %w", err)
	}
	if len(existing) == 0 {
		if _, err := s.CreateSuperAdmin(ctx, DemoSuperEmail, demoSuperAdminName, DemoSuperPassword); err != nil {
			return err
		}
		slog.InfoContext(ctx, "seeded super admin", "email", DemoSuperEmail)
	}
	return nil
}

func (s *AdminService) seedTenant(ctx context.Context, st seedTenant) error {
	_, err := s.store.FindTenantBySubdomain(ctx, st.subdomain)
	if err == nil {
		return nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("find tenant %s: %w", st.subdomain, err)
	}

	limits, _ := s.plans.For(st.plan)
	hash, err := s.creds.Hash(st.password)
	if err != nil {
		return err
	}
	t := &tenant.Tenant{
		ID:        uuid.NewString(),
		Name:      st.name,
		Subdomain: st.subdomain,
		Status:    tenant.StatusActive,
		Plan:      st.plan,
		Limits:    limits,
	}
	admin := &principal.Principal{
		ID:           uuid.NewString(),
		Email:        st.email,
		FullName:     st.adminName,
		PasswordHash: hash,
		Role:         principal.RoleTenantAdmin,
		TenantID:     t.ID,
		Active:       true,
	}
	if err := s.store.RegisterTenant(ctx, t, admin); err != nil {
		return fmt.Errorf("seed tenant %s: %w", st.subdomain, err)
	}
	err = s.quota.CreateProject(ctx, &project.Project{
		ID:        uuid.NewString(),
		TenantID:  t.ID,
		Name:      st.sample,
		Status:    project.StatusActive,
		CreatedBy: admin.ID,
	})
	if err != nil {
		return fmt.Errorf("seed project for %s: %w", st.subdomain, err)
	}
	slog.InfoContext(ctx, "seeded tenant", "subdomain", st.subdomain, "admin", st.email)
	return nil
}

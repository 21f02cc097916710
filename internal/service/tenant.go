package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Strob0t/Tasklane/internal/config"
	"github.com/Strob0t/Tasklane/internal/domain"
	"github.com/Strob0t/Tasklane/internal/domain/access"
	"github.com/Strob0t/Tasklane/internal/domain/principal"
	"github.com/Strob0t/Tasklane/internal/domain/tenant"
	"github.com/Strob0t/Tasklane/internal/port/database"
	"github.com/Strob0t/Tasklane/internal/port/messagequeue"
)

// TenantService exposes tenant listing, detail and updates.
type TenantService struct {
	store database.Store
	quota *QuotaEnforcer
	plans config.Plans
	audit *AuditService
}

// NewTenantService creates a TenantService.
func NewTenantService(store database.Store, quota *QuotaEnforcer, plans config.Plans, audit *AuditService) *TenantService {
	return &TenantService{store: store, quota: quota, plans: plans, audit: audit}
}

// List returns one page of all tenants. Super admins only.
func (s *TenantService) List(ctx context.Context, pc principal.Context, f tenant.ListFilter) ([]tenant.Tenant, domain.Pagination, error) {
	if err := access.Authorize(pc, access.Request{Capability: access.TenantManage}); err != nil {
		return nil, domain.Pagination{}, err
	}
	f.PageRequest = f.Normalize()
	list, total, err := s.store.ListTenants(ctx, f)
	if err != nil {
		return nil, domain.Pagination{}, fmt.Errorf("list tenants: %w", err)
	}
	return list, domain.NewPagination(f.PageRequest, total), nil
}

// Get returns the tenant with its resource counts.
func (s *TenantService) Get(ctx context.Context, pc principal.Context, id string) (*tenant.Detail, error) {
	if err := access.Authorize(pc, access.Request{Capability: access.TenantRead, TargetTenantID: id}); err != nil {
		return nil, err
	}
	t, err := s.store.GetTenant(ctx, id)
	if err != nil {
		return nil, err
	}
	st, err := s.quota.Usage(ctx, t.ID)
	if err != nil {
		return nil, err
	}
	return &tenant.Detail{Tenant: *t, Stats: st}, nil
}

// Update applies req to the tenant. Renaming needs tenant.profile; status,
// plan and limit changes need tenant.manage. Changing the plan without
// explicit limits resets the limits to the plan defaults.
func (s *TenantService) Update(ctx context.Context, pc principal.Context, id string, req tenant.UpdateRequest) (*tenant.Tenant, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	capability := access.TenantProfile
	if req.TouchesManagedFields() {
		capability = access.TenantManage
	}
	if err := access.Authorize(pc, access.Request{Capability: capability, TargetTenantID: id, Write: true}); err != nil {
		return nil, err
	}

	t, err := s.store.GetTenant(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Plan != "" && req.Plan != t.Plan {
		if limits, ok := s.plans.For(req.Plan); ok {
			if req.MaxUsers == nil {
				req.MaxUsers = &limits.MaxUsers
			}
			if req.MaxProjects == nil {
				req.MaxProjects = &limits.MaxProjects
			}
		}
	}
	req.Apply(t)
	if err := s.store.UpdateTenant(ctx, t); err != nil {
		return nil, fmt.Errorf("update tenant: %w", err)
	}

	slog.InfoContext(ctx, "tenant updated", "tenant_id", t.ID, "status", t.Status, "plan", t.Plan)
	s.audit.Record(ctx, Actor(messagequeue.AuditEvent{
		Subject:  messagequeue.SubjectTenantUpdated,
		TenantID: t.ID,
		TargetID: t.ID,
	}, pc))
	return t, nil
}

// Package service implements business logic on top of ports. Every
// operation takes the caller's principal.Context and authorizes against the
// access matrix before touching the store.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/Strob0t/Tasklane/internal/domain"
	"github.com/Strob0t/Tasklane/internal/domain/access"
	"github.com/Strob0t/Tasklane/internal/domain/principal"
	"github.com/Strob0t/Tasklane/internal/domain/project"
	"github.com/Strob0t/Tasklane/internal/port/database"
)

// ProjectService handles project business logic.
type ProjectService struct {
	store database.Store
	quota *QuotaEnforcer
}

// NewProjectService creates a new ProjectService.
func NewProjectService(store database.Store, quota *QuotaEnforcer) *ProjectService {
	return &ProjectService{store: store, quota: quota}
}

// List returns the caller's projects. Tenant-bound callers see their own
// tenant; super admins see all tenants or the one named in f.TenantID.
// A tenant-bound caller naming another tenant gets ErrNotFound.
func (s *ProjectService) List(ctx context.Context, pc principal.Context, f project.ListFilter) ([]project.Project, domain.Pagination, error) {
	target := pc.TenantID()
	if pc.IsSuperAdmin() || f.TenantID != "" {
		target = f.TenantID
	}
	if err := access.Authorize(pc, access.Request{Capability: access.ResourceRead, TargetTenantID: target}); err != nil {
		return nil, domain.Pagination{}, err
	}
	return s.list(ctx, access.ScopeFor(pc).Narrow(f.TenantID), f)
}

// ListForTenant returns the projects of an explicitly addressed tenant.
func (s *ProjectService) ListForTenant(ctx context.Context, pc principal.Context, tenantID string, f project.ListFilter) ([]project.Project, domain.Pagination, error) {
	if err := access.Authorize(pc, access.Request{Capability: access.ResourceRead, TargetTenantID: tenantID}); err != nil {
		return nil, domain.Pagination{}, err
	}
	return s.list(ctx, access.ScopeFor(pc).Narrow(tenantID), f)
}

func (s *ProjectService) list(ctx context.Context, scope access.Scope, f project.ListFilter) ([]project.Project, domain.Pagination, error) {
	f.PageRequest = f.Normalize()
	list, total, err := s.store.ListProjects(ctx, scope, f)
	if err != nil {
		return nil, domain.Pagination{}, fmt.Errorf("list projects: %w", err)
	}
	return list, domain.NewPagination(f.PageRequest, total), nil
}

// Create adds a project to the caller's tenant, subject to MaxProjects.
// Super admins must name the tenant in req.TenantID; anyone else may only
// name their own.
func (s *ProjectService) Create(ctx context.Context, pc principal.Context, req project.CreateRequest) (*project.Project, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	tenantID := pc.TenantID()
	if req.TenantID != "" {
		tenantID = req.TenantID
	} else if pc.IsSuperAdmin() {
		return nil, fmt.Errorf("%w: tenantId is required", domain.ErrInput)
	}
	if err := access.Authorize(pc, access.Request{Capability: access.ResourceWrite, TargetTenantID: tenantID, Write: true}); err != nil {
		return nil, err
	}

	p := &project.Project{
		ID:          uuid.NewString(),
		TenantID:    tenantID,
		Name:        req.Name,
		Description: req.Description,
		Status:      req.Status,
		CreatedBy:   pc.PrincipalID(),
	}
	if err := s.quota.CreateProject(ctx, p); err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "project created", "project_id", p.ID)
	return p, nil
}

// Get returns a project visible to the caller.
func (s *ProjectService) Get(ctx context.Context, pc principal.Context, id string) (*project.Project, error) {
	return s.load(ctx, pc, id, false)
}

func (s *ProjectService) load(ctx context.Context, pc principal.Context, id string, write bool) (*project.Project, error) {
	if pc.IsZero() {
		return nil, domain.ErrAuth
	}
	p, err := s.store.GetProject(ctx, access.ScopeFor(pc), id)
	if err != nil {
		return nil, err
	}
	capability := access.ResourceRead
	if write {
		capability = access.ResourceWrite
	}
	if err := access.Authorize(pc, access.Request{Capability: capability, TargetTenantID: p.TenantID, Write: write}); err != nil {
		return nil, err
	}
	return p, nil
}

// Update changes a project's name, description or status.
func (s *ProjectService) Update(ctx context.Context, pc principal.Context, id string, req project.UpdateRequest) (*project.Project, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	p, err := s.load(ctx, pc, id, true)
	if err != nil {
		return nil, err
	}
	req.Apply(p)
	if err := s.store.UpdateProject(ctx, access.ScopeFor(pc), p); err != nil {
		return nil, fmt.Errorf("update project: %w", err)
	}
	return p, nil
}

// Delete removes a project and its tasks. Members may delete only projects
// they created.
func (s *ProjectService) Delete(ctx context.Context, pc principal.Context, id string) error {
	p, err := s.load(ctx, pc, id, true)
	if err != nil {
		return err
	}
	if pc.Role() == principal.RoleMember && p.CreatedBy != pc.PrincipalID() {
		return fmt.Errorf("%w: only the creator or a tenant admin may delete a project", domain.ErrForbidden)
	}
	if err := s.store.DeleteProject(ctx, access.ScopeFor(pc), id); err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	slog.InfoContext(ctx, "project deleted", "project_id", id)
	return nil
}

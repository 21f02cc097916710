package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/Strob0t/Tasklane/internal/domain"
	"github.com/Strob0t/Tasklane/internal/domain/access"
	"github.com/Strob0t/Tasklane/internal/domain/principal"
	"github.com/Strob0t/Tasklane/internal/port/database"
	"github.com/Strob0t/Tasklane/internal/port/messagequeue"
)

// UserService manages the principals of a tenant.
type UserService struct {
	store database.Store
	quota *QuotaEnforcer
	creds *Credentials
	audit *AuditService
}

// NewUserService creates a UserService.
func NewUserService(store database.Store, quota *QuotaEnforcer, creds *Credentials, audit *AuditService) *UserService {
	return &UserService{store: store, quota: quota, creds: creds, audit: audit}
}

// List returns one page of the users of tenantID.
func (s *UserService) List(ctx context.Context, pc principal.Context, tenantID string, f principal.ListFilter) ([]principal.Principal, domain.Pagination, error) {
	if err := access.Authorize(pc, access.Request{Capability: access.UserRead, TargetTenantID: tenantID}); err != nil {
		return nil, domain.Pagination{}, err
	}
	if _, err := s.store.GetTenant(ctx, tenantID); err != nil {
		return nil, domain.Pagination{}, err
	}
	f.PageRequest = f.Normalize()
	list, total, err := s.store.ListPrincipals(ctx, access.ScopeFor(pc).Narrow(tenantID), f)
	if err != nil {
		return nil, domain.Pagination{}, fmt.Errorf("list users: %w", err)
	}
	return list, domain.NewPagination(f.PageRequest, total), nil
}

// Create adds a user to tenantID, subject to the tenant's MaxUsers.
func (s *UserService) Create(ctx context.Context, pc principal.Context, tenantID string, req principal.CreateRequest) (*principal.Principal, error) {
	if err := access.Authorize(pc, access.Request{Capability: access.UserManage, TargetTenantID: tenantID, Write: true}); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	hash, err := s.creds.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	p := &principal.Principal{
		ID:           uuid.NewString(),
		Email:        req.Email,
		FullName:     req.FullName,
		PasswordHash: hash,
		Role:         req.Role,
		TenantID:     tenantID,
		Active:       true,
	}
	if err := s.quota.CreatePrincipal(ctx, p); err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "user created", "user_id", p.ID, "role", p.Role)
	s.audit.Record(ctx, Actor(messagequeue.AuditEvent{
		Subject:  messagequeue.SubjectPrincipalCreated,
		TenantID: tenantID,
		TargetID: p.ID,
	}, pc))
	return p, nil
}

// load fetches a tenant-bound principal visible to pc and authorizes
// user.manage on its tenant.
func (s *UserService) load(ctx context.Context, pc principal.Context, id string) (*principal.Principal, error) {
	if pc.IsZero() {
		return nil, domain.ErrAuth
	}
	p, err := s.store.GetPrincipal(ctx, access.ScopeFor(pc), id)
	if err != nil {
		return nil, err
	}
	if !p.Role.TenantBound() {
		return nil, fmt.Errorf("%w: super admins are managed with the admin CLI", domain.ErrForbidden)
	}
	if err := access.Authorize(pc, access.Request{Capability: access.UserManage, TargetTenantID: p.TenantID, Write: true}); err != nil {
		return nil, err
	}
	return p, nil
}

// Update changes name, role or active flag. Callers cannot change their own
// role or deactivate themselves.
func (s *UserService) Update(ctx context.Context, pc principal.Context, id string, req principal.UpdateRequest) (*principal.Principal, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	p, err := s.load(ctx, pc, id)
	if err != nil {
		return nil, err
	}
	if p.ID == pc.PrincipalID() && ((req.Role != "" && req.Role != p.Role) || (req.Active != nil && !*req.Active)) {
		return nil, fmt.Errorf("%w: cannot change own role or deactivate self", domain.ErrForbidden)
	}

	if req.FullName != "" {
		p.FullName = req.FullName
	}
	if req.Role != "" {
		p.Role = req.Role
	}
	if req.Active != nil {
		p.Active = *req.Active
	}
	if err := s.store.UpdatePrincipal(ctx, access.ScopeFor(pc), p); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	return p, nil
}

// Delete removes a user. Callers cannot delete themselves.
func (s *UserService) Delete(ctx context.Context, pc principal.Context, id string) error {
	p, err := s.load(ctx, pc, id)
	if err != nil {
		return err
	}
	if p.ID == pc.PrincipalID() {
		return fmt.Errorf("%w: cannot delete self", domain.ErrForbidden)
	}
	if err := s.store.DeletePrincipal(ctx, access.ScopeFor(pc), id); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}

	slog.InfoContext(ctx, "user deleted", "user_id", id)
	s.audit.Record(ctx, Actor(messagequeue.AuditEvent{
		Subject:  messagequeue.SubjectPrincipalDeleted,
		TenantID: p.TenantID,
		TargetID: id,
	}, pc))
	return nil
}

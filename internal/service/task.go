package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/Strob0t/Tasklane/internal/domain"
	"github.com/Strob0t/Tasklane/internal/domain/access"
	"github.com/Strob0t/Tasklane/internal/domain/principal"
	"github.com/Strob0t/Tasklane/internal/domain/task"
	"github.com/Strob0t/Tasklane/internal/port/database"
)

// TaskService handles tasks. A task is reachable only through a project
// visible to the caller, and its tenant is always the project's tenant.
type TaskService struct {
	store    database.Store
	projects *ProjectService
}

// NewTaskService creates a TaskService.
func NewTaskService(store database.Store, projects *ProjectService) *TaskService {
	return &TaskService{store: store, projects: projects}
}

// List returns the tasks of a project.
func (s *TaskService) List(ctx context.Context, pc principal.Context, projectID string, f task.ListFilter) ([]task.Task, error) {
	if _, err := s.projects.load(ctx, pc, projectID, false); err != nil {
		return nil, err
	}
	list, err := s.store.ListTasks(ctx, access.ScopeFor(pc), projectID, f)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return list, nil
}

// Create adds a task to a project. An assignee must belong to the
// project's tenant.
func (s *TaskService) Create(ctx context.Context, pc principal.Context, projectID string, req task.CreateRequest) (*task.Task, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	p, err := s.projects.load(ctx, pc, projectID, true)
	if err != nil {
		return nil, err
	}
	if err := s.checkAssignee(ctx, p.TenantID, req.AssigneeID); err != nil {
		return nil, err
	}

	t := &task.Task{
		ID:          uuid.NewString(),
		TenantID:    p.TenantID,
		ProjectID:   p.ID,
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
		AssigneeID:  req.AssigneeID,
		DueDate:     req.DueDate,
	}
	if err := s.store.CreateTask(ctx, access.ScopeFor(pc), t); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	return t, nil
}

func (s *TaskService) checkAssignee(ctx context.Context, tenantID, assigneeID string) error {
	if assigneeID == "" {
		return nil
	}
	_, err := s.store.GetPrincipal(ctx, access.TenantScope(tenantID), assigneeID)
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("%w: assignee must belong to the project's tenant", domain.ErrInput)
	}
	return err
}

// Get returns a task visible to the caller.
func (s *TaskService) Get(ctx context.Context, pc principal.Context, id string) (*task.Task, error) {
	return s.load(ctx, pc, id, false)
}

func (s *TaskService) load(ctx context.Context, pc principal.Context, id string, write bool) (*task.Task, error) {
	if pc.IsZero() {
		return nil, domain.ErrAuth
	}
	t, err := s.store.GetTask(ctx, access.ScopeFor(pc), id)
	if err != nil {
		return nil, err
	}
	capability := access.ResourceRead
	if write {
		capability = access.ResourceWrite
	}
	if err := access.Authorize(pc, access.Request{Capability: capability, TargetTenantID: t.TenantID, Write: write}); err != nil {
		return nil, err
	}
	return t, nil
}

// Update changes the fields set in req.
func (s *TaskService) Update(ctx context.Context, pc principal.Context, id string, req task.UpdateRequest) (*task.Task, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	t, err := s.load(ctx, pc, id, true)
	if err != nil {
		return nil, err
	}
	if req.AssigneeID != nil {
		if err := s.checkAssignee(ctx, t.TenantID, *req.AssigneeID); err != nil {
			return nil, err
		}
	}
	req.Apply(t)
	if err := s.store.UpdateTask(ctx, access.ScopeFor(pc), t); err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	return t, nil
}

// UpdateStatus moves a task to status.
func (s *TaskService) UpdateStatus(ctx context.Context, pc principal.Context, id string, status task.Status) (*task.Task, error) {
	if status == "" {
		return nil, fmt.Errorf("%w: status is required", domain.ErrInput)
	}
	return s.Update(ctx, pc, id, task.UpdateRequest{Status: status})
}

// Delete removes a task.
func (s *TaskService) Delete(ctx context.Context, pc principal.Context, id string) error {
	if _, err := s.load(ctx, pc, id, true); err != nil {
		return err
	}
	if err := s.store.DeleteTask(ctx, access.ScopeFor(pc), id); err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}

package http

import (
	"context"
	"net/http"

	"github.com/Strob0t/Tasklane/internal/domain/principal"
	"github.com/Strob0t/Tasklane/internal/domain/project"
	"github.com/Strob0t/Tasklane/internal/domain/task"
)

const (
	projectNotFound = "project not found"
	taskNotFound    = "task not found"
)

func projectFilter(r *http.Request) project.ListFilter {
	q := r.URL.Query()
	return project.ListFilter{
		Status:      project.Status(q.Get("status")),
		Search:      q.Get("search"),
		TenantID:    q.Get("tenantId"),
		PageRequest: pageParams(r),
	}
}

// ListProjects handles GET /api/projects. Super admins may narrow the
// listing with ?tenantId=; tenant-bound callers always see their own tenant
// and get 404 for any other.
func (h *Handlers) ListProjects(w http.ResponseWriter, r *http.Request) {
	pc, ok := caller(w, r)
	if !ok {
		return
	}
	items, pg, err := h.Projects.List(r.Context(), pc, projectFilter(r))
	if err != nil {
		h.writeDomainError(w, r, err, projectNotFound)
		return
	}
	writeList(w, items, &pg)
}

// ListTenantProjects handles GET /api/tenants/{tenantId}/projects.
func (h *Handlers) ListTenantProjects(w http.ResponseWriter, r *http.Request) {
	pc, ok := caller(w, r)
	if !ok {
		return
	}
	items, pg, err := h.Projects.ListForTenant(r.Context(), pc, urlParam(r, "tenantId"), projectFilter(r))
	if err != nil {
		h.writeDomainError(w, r, err, "tenant not found")
		return
	}
	writeList(w, items, &pg)
}

// CreateProject handles POST /api/projects.
func (h *Handlers) CreateProject(w http.ResponseWriter, r *http.Request) {
	handleCreate[project.CreateRequest, project.Project](h, "", func(ctx context.Context, pc principal.Context, _ string, req project.CreateRequest) (*project.Project, error) {
		return h.Projects.Create(ctx, pc, req)
	}, "tenant not found")(w, r)
}

// GetProject handles GET /api/projects/{projectId}.
func (h *Handlers) GetProject(w http.ResponseWriter, r *http.Request) {
	handleGet[project.Project](h, "projectId", h.Projects.Get, projectNotFound)(w, r)
}

// UpdateProject handles PUT /api/projects/{projectId}.
func (h *Handlers) UpdateProject(w http.ResponseWriter, r *http.Request) {
	handleUpdate[project.UpdateRequest, project.Project](h, "projectId", h.Projects.Update, projectNotFound)(w, r)
}

// DeleteProject handles DELETE /api/projects/{projectId}.
func (h *Handlers) DeleteProject(w http.ResponseWriter, r *http.Request) {
	handleDelete(h, "projectId", h.Projects.Delete, projectNotFound)(w, r)
}

// ListTasks handles GET /api/projects/{projectId}/tasks.
func (h *Handlers) ListTasks(w http.ResponseWriter, r *http.Request) {
	pc, ok := caller(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	f := task.ListFilter{
		Status:     task.Status(q.Get("status")),
		Priority:   task.Priority(q.Get("priority")),
		AssigneeID: q.Get("assignedTo"),
	}
	items, err := h.Tasks.List(r.Context(), pc, urlParam(r, "projectId"), f)
	if err != nil {
		h.writeDomainError(w, r, err, projectNotFound)
		return
	}
	writeList(w, items, nil)
}

// CreateTask handles POST /api/projects/{projectId}/tasks.
func (h *Handlers) CreateTask(w http.ResponseWriter, r *http.Request) {
	handleCreate[task.CreateRequest, task.Task](h, "projectId", h.Tasks.Create, projectNotFound)(w, r)
}

// GetTask handles GET /api/tasks/{taskId}.
func (h *Handlers) GetTask(w http.ResponseWriter, r *http.Request) {
	handleGet[task.Task](h, "taskId", h.Tasks.Get, taskNotFound)(w, r)
}

// UpdateTask handles PUT /api/tasks/{taskId}.
func (h *Handlers) UpdateTask(w http.ResponseWriter, r *http.Request) {
	handleUpdate[task.UpdateRequest, task.Task](h, "taskId", h.Tasks.Update, taskNotFound)(w, r)
}

type statusRequest struct {
	Status task.Status `json:"status"`
}

// UpdateTaskStatus handles PATCH /api/tasks/{taskId}/status.
func (h *Handlers) UpdateTaskStatus(w http.ResponseWriter, r *http.Request) {
	handleUpdate[statusRequest, task.Task](h, "taskId", func(ctx context.Context, pc principal.Context, id string, req statusRequest) (*task.Task, error) {
		return h.Tasks.UpdateStatus(ctx, pc, id, req.Status)
	}, taskNotFound)(w, r)
}

// DeleteTask handles DELETE /api/tasks/{taskId}.
func (h *Handlers) DeleteTask(w http.ResponseWriter, r *http.Request) {
	handleDelete(h, "taskId", h.Tasks.Delete, taskNotFound)(w, r)
}

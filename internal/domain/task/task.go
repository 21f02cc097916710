// Package task defines the Task domain entity.
package task

import (
	"fmt"
	"strings"
	"time"

	"github.com/Strob0t/Tasklane/internal/domain"
)

// Status represents the current state of a task.
type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// Priority orders tasks within a project.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// ValidStatuses is the set of all valid task statuses.
var ValidStatuses = map[Status]bool{
	StatusTodo:       true,
	StatusInProgress: true,
	StatusCompleted:  true,
}

// ValidPriorities is the set of all valid task priorities.
var ValidPriorities = map[Priority]bool{
	PriorityLow:    true,
	PriorityMedium: true,
	PriorityHigh:   true,
}

// Task is a unit of work inside a project. TenantID mirrors the owning
// project's tenant so every row can be filtered without a join.
type Task struct {
	ID          string     `json:"id"`
	TenantID    string     `json:"tenantId"`
	ProjectID   string     `json:"projectId"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      Status     `json:"status"`
	Priority    Priority   `json:"priority"`
	AssigneeID  string     `json:"assignedTo,omitempty"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// CreateRequest holds the fields needed to create a new task.
type CreateRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      Status     `json:"status"`
	Priority    Priority   `json:"priority"`
	AssigneeID  string     `json:"assignedTo,omitempty"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
}

// Validate checks that the CreateRequest has all required fields and fills
// defaults.
func (r *CreateRequest) Validate() error {
	r.Title = strings.TrimSpace(r.Title)
	if r.Title == "" {
		return fmt.Errorf("%w: task title is required", domain.ErrValidation)
	}
	if r.Status == "" {
		r.Status = StatusTodo
	}
	if r.Priority == "" {
		r.Priority = PriorityMedium
	}
	if !ValidStatuses[r.Status] {
		return fmt.Errorf("%w: invalid task status %q", domain.ErrValidation, r.Status)
	}
	if !ValidPriorities[r.Priority] {
		return fmt.Errorf("%w: invalid task priority %q", domain.ErrValidation, r.Priority)
	}
	return nil
}

// UpdateRequest holds the fields that can be changed on a task.
// An empty AssigneeID pointer value clears the assignee.
type UpdateRequest struct {
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	Status      Status     `json:"status,omitempty"`
	Priority    Priority   `json:"priority,omitempty"`
	AssigneeID  *string    `json:"assignedTo,omitempty"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
}

// Validate checks the fields that are set.
func (r *UpdateRequest) Validate() error {
	if r.Title != nil && strings.TrimSpace(*r.Title) == "" {
		return fmt.Errorf("%w: task title must not be empty", domain.ErrValidation)
	}
	if r.Status != "" && !ValidStatuses[r.Status] {
		return fmt.Errorf("%w: invalid task status %q", domain.ErrValidation, r.Status)
	}
	if r.Priority != "" && !ValidPriorities[r.Priority] {
		return fmt.Errorf("%w: invalid task priority %q", domain.ErrValidation, r.Priority)
	}
	return nil
}

// Apply copies the set fields of r onto t.
func (r *UpdateRequest) Apply(t *Task) {
	if r.Title != nil {
		t.Title = strings.TrimSpace(*r.Title)
	}
	if r.Description != nil {
		t.Description = *r.Description
	}
	if r.Status != "" {
		t.Status = r.Status
	}
	if r.Priority != "" {
		t.Priority = r.Priority
	}
	if r.AssigneeID != nil {
		t.AssigneeID = *r.AssigneeID
	}
	if r.DueDate != nil {
		t.DueDate = r.DueDate
	}
}

// ListFilter narrows a project's task listing.
type ListFilter struct {
	Status     Status
	Priority   Priority
	AssigneeID string
}

// Package project defines the Project domain entity.
package project

import (
	"fmt"
	"strings"
	"time"

	"github.com/Strob0t/Tasklane/internal/domain"
)

// Status is the lifecycle state of a project.
type Status string

const (
	StatusActive    Status = "active"
	StatusArchived  Status = "archived"
	StatusCompleted Status = "completed"
)

// ValidStatuses is the set of all valid project statuses.
var ValidStatuses = map[Status]bool{
	StatusActive:    true,
	StatusArchived:  true,
	StatusCompleted: true,
}

// Project is a tenant-owned container of tasks.
type Project struct {
	ID                 string    `json:"id"`
	TenantID           string    `json:"tenantId"`
	Name               string    `json:"name"`
	Description        string    `json:"description"`
	Status             Status    `json:"status"`
	CreatedBy          string    `json:"createdBy"`
	TaskCount          int       `json:"taskCount"`
	CompletedTaskCount int       `json:"completedTaskCount"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

// CreateRequest holds the fields needed to create a new project.
// TenantID is required for super admins, who have no tenant of their own.
// Anyone else may omit it or repeat their own tenant; naming another tenant
// fails as not found.
type CreateRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Status      Status `json:"status"`
	TenantID    string `json:"tenantId,omitempty"`
}

// Validate checks that the CreateRequest has all required fields.
func (r *CreateRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return fmt.Errorf("%w: project name is required", domain.ErrValidation)
	}
	if len(r.Name) > 255 {
		return fmt.Errorf("%w: project name too long", domain.ErrValidation)
	}
	if r.Status == "" {
		r.Status = StatusActive
	}
	if !ValidStatuses[r.Status] {
		return fmt.Errorf("%w: invalid project status %q", domain.ErrValidation, r.Status)
	}
	return nil
}

// UpdateRequest holds the fields that can be changed on a project.
type UpdateRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Status      Status  `json:"status,omitempty"`
}

// Validate checks the fields that are set.
func (r *UpdateRequest) Validate() error {
	if r.Name != nil && strings.TrimSpace(*r.Name) == "" {
		return fmt.Errorf("%w: project name must not be empty", domain.ErrValidation)
	}
	if r.Status != "" && !ValidStatuses[r.Status] {
		return fmt.Errorf("%w: invalid project status %q", domain.ErrValidation, r.Status)
	}
	return nil
}

// Apply copies the set fields of r onto p.
func (r *UpdateRequest) Apply(p *Project) {
	if r.Name != nil {
		p.Name = strings.TrimSpace(*r.Name)
	}
	if r.Description != nil {
		p.Description = *r.Description
	}
	if r.Status != "" {
		p.Status = r.Status
	}
}

// ListFilter narrows a project listing. TenantID lets a super admin look at
// one tenant; a tenant-bound caller may only name their own.
type ListFilter struct {
	Status   Status
	Search   string
	TenantID string
	domain.PageRequest
}

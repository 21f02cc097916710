package postgres

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/Strob0t/Tasklane/internal/domain"
	"github.com/Strob0t/Tasklane/internal/domain/access"
	"github.com/Strob0t/Tasklane/internal/domain/task"
)

const taskColumns = "id, tenant_id, project_id, title, description, status, priority, assigned_to, due_date, created_at, updated_at"

func scanTask(row scannable) (task.Task, error) {
	var t task.Task
	var assignee *string
	err := row.Scan(&t.ID, &t.TenantID, &t.ProjectID, &t.Title, &t.Description, &t.Status, &t.Priority,
		&assignee, &t.DueDate, &t.CreatedAt, &t.UpdatedAt)
	t.AssigneeID = derefString(assignee)
	return t, err
}

// CreateTask inserts t. The task's tenant must lie inside scope; the
// composite foreign keys reject a project or assignee from another tenant.
func (s *Store) CreateTask(ctx context.Context, scope access.Scope, t *task.Task) error {
	if err := scope.Check(); err != nil {
		return err
	}
	if !scope.Contains(t.TenantID) {
		return fmt.Errorf("create task in tenant %q: %w", t.TenantID, domain.ErrNotFound)
	}
	now := time.Now().UTC()
	t.CreatedAt, t.UpdatedAt = now, now
	_, err := s.pool.Exec(ctx, `
		INSERT INTO tasks (`+taskColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		t.ID, t.TenantID, t.ProjectID, t.Title, t.Description, t.Status, t.Priority,
		nullIfEmpty(t.AssigneeID), t.DueDate, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return writeWrap(err, "create task %q", t.Title)
	}
	return nil
}

func (s *Store) GetTask(ctx context.Context, scope access.Scope, id string) (*task.Task, error) {
	b, err := scopedSelect(scope, "tasks", taskColumns)
	if err != nil {
		return nil, err
	}
	if err := checkID("task", id); err != nil {
		return nil, err
	}
	row, err := rowBuilt(ctx, s.pool, b.Where(sq.Eq{"id": id}))
	if err != nil {
		return nil, err
	}
	t, err := scanTask(row)
	if err != nil {
		return nil, notFoundWrap(err, "get task %s", id)
	}
	return &t, nil
}

func (s *Store) ListTasks(ctx context.Context, scope access.Scope, projectID string, f task.ListFilter) ([]task.Task, error) {
	b, err := scopedSelect(scope, "tasks", taskColumns)
	if err != nil {
		return nil, err
	}
	if err := checkID("project", projectID); err != nil {
		return nil, err
	}
	b = b.Where(sq.Eq{"project_id": projectID})
	if f.Status != "" {
		b = b.Where(sq.Eq{"status": f.Status})
	}
	if f.Priority != "" {
		b = b.Where(sq.Eq{"priority": f.Priority})
	}
	if f.AssigneeID != "" {
		b = b.Where(sq.Eq{"assigned_to": f.AssigneeID})
	}

	rows, err := queryBuilt(ctx, s.pool, b.OrderBy("created_at DESC"))
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []task.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return orEmpty(tasks), rows.Err()
}

func (s *Store) UpdateTask(ctx context.Context, scope access.Scope, t *task.Task) error {
	b, err := scopedUpdate(scope, "tasks")
	if err != nil {
		return err
	}
	if err := checkID("task", t.ID); err != nil {
		return err
	}
	t.UpdatedAt = time.Now().UTC()
	tag, err := execBuilt(ctx, s.pool, b.
		Set("title", t.Title).
		Set("description", t.Description).
		Set("status", t.Status).
		Set("priority", t.Priority).
		Set("assigned_to", nullIfEmpty(t.AssigneeID)).
		Set("due_date", t.DueDate).
		Set("updated_at", t.UpdatedAt).
		Where(sq.Eq{"id": t.ID}))
	return execExpectOne(tag, err, "update task %s", t.ID)
}

func (s *Store) DeleteTask(ctx context.Context, scope access.Scope, id string) error {
	b, err := scopedDelete(scope, "tasks")
	if err != nil {
		return err
	}
	if err := checkID("task", id); err != nil {
		return err
	}
	tag, err := execBuilt(ctx, s.pool, b.Where(sq.Eq{"id": id}))
	return execExpectOne(tag, err, "delete task %s", id)
}

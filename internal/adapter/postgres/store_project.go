package postgres

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/Strob0t/Tasklane/internal/domain/access"
	"github.com/Strob0t/Tasklane/internal/domain/project"
)

var projectColumns = []string{
	"p.id", "p.tenant_id", "p.name", "p.description", "p.status", "p.created_by", "p.created_at", "p.updated_at",
	"(SELECT count(*) FROM tasks t WHERE t.project_id = p.id) AS task_count",
	"(SELECT count(*) FROM tasks t WHERE t.project_id = p.id AND t.status = 'completed') AS completed_task_count",
}

func scanProject(row scannable) (project.Project, error) {
	var p project.Project
	var createdBy *string
	err := row.Scan(&p.ID, &p.TenantID, &p.Name, &p.Description, &p.Status, &createdBy, &p.CreatedAt, &p.UpdatedAt,
		&p.TaskCount, &p.CompletedTaskCount)
	p.CreatedBy = derefString(createdBy)
	return p, err
}

func (s *Store) GetProject(ctx context.Context, scope access.Scope, id string) (*project.Project, error) {
	b, err := scopedSelect(scope, "projects p", projectColumns...)
	if err != nil {
		return nil, err
	}
	if err := checkID("project", id); err != nil {
		return nil, err
	}
	row, err := rowBuilt(ctx, s.pool, b.Where(sq.Eq{"p.id": id}))
	if err != nil {
		return nil, err
	}
	p, err := scanProject(row)
	if err != nil {
		return nil, notFoundWrap(err, "get project %s", id)
	}
	return &p, nil
}

func (s *Store) ListProjects(ctx context.Context, scope access.Scope, f project.ListFilter) ([]project.Project, int, error) {
	page := f.PageRequest.Normalize()

	conds := sq.And{}
	if f.Status != "" {
		conds = append(conds, sq.Eq{"p.status": f.Status})
	}
	if f.Search != "" {
		conds = append(conds, sq.ILike{"p.name": likePattern(f.Search)})
	}

	countQ, err := scopedSelect(scope, "projects p", "count(*)")
	if err != nil {
		return nil, 0, err
	}
	total, err := countBuilt(ctx, s.pool, countQ.Where(conds))
	if err != nil {
		return nil, 0, fmt.Errorf("count projects: %w", err)
	}

	listQ, err := scopedSelect(scope, "projects p", projectColumns...)
	if err != nil {
		return nil, 0, err
	}
	rows, err := queryBuilt(ctx, s.pool, listQ.Where(conds).
		OrderBy("p.created_at DESC").
		Limit(uint64(page.Limit)).
		Offset(uint64(page.Offset())))
	if err != nil {
		return nil, 0, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var projects []project.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, p)
	}
	return orEmpty(projects), total, rows.Err()
}

func (s *Store) UpdateProject(ctx context.Context, scope access.Scope, p *project.Project) error {
	b, err := scopedUpdate(scope, "projects")
	if err != nil {
		return err
	}
	if err := checkID("project", p.ID); err != nil {
		return err
	}
	p.UpdatedAt = time.Now().UTC()
	tag, err := execBuilt(ctx, s.pool, b.
		Set("name", p.Name).
		Set("description", p.Description).
		Set("status", p.Status).
		Set("updated_at", p.UpdatedAt).
		Where(sq.Eq{"id": p.ID}))
	return execExpectOne(tag, err, "update project %s", p.ID)
}

func (s *Store) DeleteProject(ctx context.Context, scope access.Scope, id string) error {
	b, err := scopedDelete(scope, "projects")
	if err != nil {
		return err
	}
	if err := checkID("project", id); err != nil {
		return err
	}
	tag, err := execBuilt(ctx, s.pool, b.Where(sq.Eq{"id": id}))
	return execExpectOne(tag, err, "delete project %s", id)
}

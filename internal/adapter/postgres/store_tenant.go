package postgres

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/Strob0t/Tasklane/internal/domain/principal"
	"github.com/Strob0t/Tasklane/internal/domain/tenant"
)

const tenantColumns = "id, name, subdomain, status, subscription_plan, max_users, max_projects, created_at, updated_at"

func scanTenant(row scannable) (tenant.Tenant, error) {
	var t tenant.Tenant
	err := row.Scan(&t.ID, &t.Name, &t.Subdomain, &t.Status, &t.Plan, &t.MaxUsers, &t.MaxProjects, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

func (s *Store) GetTenant(ctx context.Context, id string) (*tenant.Tenant, error) {
	if err := checkID("tenant", id); err != nil {
		return nil, err
	}
	t, err := scanTenant(s.pool.QueryRow(ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE id = $1`, id))
	if err != nil {
		return nil, notFoundWrap(err, "get tenant %s", id)
	}
	return &t, nil
}

func (s *Store) FindTenantBySubdomain(ctx context.Context, subdomain string) (*tenant.Tenant, error) {
	t, err := scanTenant(s.pool.QueryRow(ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE subdomain = $1`, subdomain))
	if err != nil {
		return nil, notFoundWrap(err, "find tenant by subdomain %q", subdomain)
	}
	return &t, nil
}

func tenantFilter(f tenant.ListFilter) sq.And {
	conds := sq.And{}
	if f.Status != "" {
		conds = append(conds, sq.Eq{"status": f.Status})
	}
	if f.Plan != "" {
		conds = append(conds, sq.Eq{"subscription_plan": f.Plan})
	}
	if f.Search != "" {
		p := likePattern(f.Search)
		conds = append(conds, sq.Or{sq.ILike{"name": p}, sq.ILike{"subdomain": p}})
	}
	return conds
}

func (s *Store) ListTenants(ctx context.Context, f tenant.ListFilter) ([]tenant.Tenant, int, error) {
	page := f.PageRequest.Normalize()
	conds := tenantFilter(f)

	total, err := countBuilt(ctx, s.pool, psql.Select("count(*)").From("tenants").Where(conds))
	if err != nil {
		return nil, 0, fmt.Errorf("count tenants: %w", err)
	}

	rows, err := queryBuilt(ctx, s.pool, psql.Select(tenantColumns).From("tenants").Where(conds).
		OrderBy("created_at DESC").
		Limit(uint64(page.Limit)).
		Offset(uint64(page.Offset())))
	if err != nil {
		return nil, 0, fmt.Errorf("list tenants: %w", err)
	}
	defer rows.Close()

	var tenants []tenant.Tenant
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan tenant: %w", err)
		}
		tenants = append(tenants, t)
	}
	return orEmpty(tenants), total, rows.Err()
}

// UpdateTenant writes the mutable fields of t. The subdomain is never
// written; the schema also rejects changes to it.
func (s *Store) UpdateTenant(ctx context.Context, t *tenant.Tenant) error {
	if err := checkID("tenant", t.ID); err != nil {
		return err
	}
	t.UpdatedAt = time.Now().UTC()
	tag, err := s.pool.Exec(ctx, `
		UPDATE tenants
		SET name = $2, status = $3, subscription_plan = $4, max_users = $5, max_projects = $6, updated_at = $7
		WHERE id = $1`,
		t.ID, t.Name, t.Status, t.Plan, t.MaxUsers, t.MaxProjects, t.UpdatedAt)
	return execExpectOne(tag, err, "update tenant %s", t.ID)
}

func (s *Store) RegisterTenant(ctx context.Context, t *tenant.Tenant, admin *principal.Principal) error {
	now := time.Now().UTC()
	t.CreatedAt, t.UpdatedAt = now, now
	admin.CreatedAt, admin.UpdatedAt = now, now

	return s.inTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO tenants (`+tenantColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			t.ID, t.Name, t.Subdomain, t.Status, t.Plan, t.MaxUsers, t.MaxProjects, t.CreatedAt, t.UpdatedAt)
		if err != nil {
			return writeWrap(err, "register tenant %q", t.Subdomain)
		}
		return insertPrincipal(ctx, tx, admin)
	})
}

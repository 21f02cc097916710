package postgres

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/Strob0t/Tasklane/internal/domain/access"
	"github.com/Strob0t/Tasklane/internal/domain/principal"
)

const principalColumns = "id, email, full_name, password_hash, role, tenant_id, is_active, created_at, updated_at"

func scanPrincipal(row scannable) (principal.Principal, error) {
	var p principal.Principal
	var tenantID *string
	err := row.Scan(&p.ID, &p.Email, &p.FullName, &p.PasswordHash, &p.Role, &tenantID, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	p.TenantID = derefString(tenantID)
	return p, err
}

func insertPrincipal(ctx context.Context, q querier, p *principal.Principal) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if p.CreatedAt.IsZero() {
		now := time.Now().UTC()
		p.CreatedAt, p.UpdatedAt = now, now
	}
	_, err := q.Exec(ctx, `
		INSERT INTO users (`+principalColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		p.ID, p.Email, p.FullName, p.PasswordHash, p.Role, nullIfEmpty(p.TenantID), p.Active, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return writeWrap(err, "create principal %s", p.Email)
	}
	return nil
}

func (s *Store) FindPrincipalsByEmail(ctx context.Context, email, tenantID string) ([]principal.Principal, error) {
	b := psql.Select(principalColumns).From("users").Where(sq.Eq{"email": email})
	if tenantID == "" {
		b = b.Where(sq.Eq{"tenant_id": nil})
	} else {
		if err := checkID("tenant", tenantID); err != nil {
			return nil, err
		}
		b = b.Where(sq.Eq{"tenant_id": tenantID})
	}

	rows, err := queryBuilt(ctx, s.pool, b)
	if err != nil {
		return nil, fmt.Errorf("find principals by email: %w", err)
	}
	defer rows.Close()

	var out []principal.Principal
	for rows.Next() {
		p, err := scanPrincipal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan principal: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) GetPrincipal(ctx context.Context, scope access.Scope, id string) (*principal.Principal, error) {
	b, err := scopedSelect(scope, "users", principalColumns)
	if err != nil {
		return nil, err
	}
	if err := checkID("principal", id); err != nil {
		return nil, err
	}
	row, err := rowBuilt(ctx, s.pool, b.Where(sq.Eq{"id": id}))
	if err != nil {
		return nil, err
	}
	p, err := scanPrincipal(row)
	if err != nil {
		return nil, notFoundWrap(err, "get principal %s", id)
	}
	return &p, nil
}

func (s *Store) ListPrincipals(ctx context.Context, scope access.Scope, f principal.ListFilter) ([]principal.Principal, int, error) {
	page := f.PageRequest.Normalize()

	conds := sq.And{}
	if f.Role != "" {
		conds = append(conds, sq.Eq{"role": f.Role})
	}
	if f.Search != "" {
		p := likePattern(f.Search)
		conds = append(conds, sq.Or{sq.ILike{"full_name": p}, sq.ILike{"email": p}})
	}

	countQ, err := scopedSelect(scope, "users", "count(*)")
	if err != nil {
		return nil, 0, err
	}
	total, err := countBuilt(ctx, s.pool, countQ.Where(conds))
	if err != nil {
		return nil, 0, fmt.Errorf("count principals: %w", err)
	}

	listQ, err := scopedSelect(scope, "users", principalColumns)
	if err != nil {
		return nil, 0, err
	}
	rows, err := queryBuilt(ctx, s.pool, listQ.Where(conds).
		OrderBy("created_at DESC").
		Limit(uint64(page.Limit)).
		Offset(uint64(page.Offset())))
	if err != nil {
		return nil, 0, fmt.Errorf("list principals: %w", err)
	}
	defer rows.Close()

	var out []principal.Principal
	for rows.Next() {
		p, err := scanPrincipal(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan principal: %w", err)
		}
		out = append(out, p)
	}
	return orEmpty(out), total, rows.Err()
}

func (s *Store) UpdatePrincipal(ctx context.Context, scope access.Scope, p *principal.Principal) error {
	b, err := scopedUpdate(scope, "users")
	if err != nil {
		return err
	}
	if err := checkID("principal", p.ID); err != nil {
		return err
	}
	p.UpdatedAt = time.Now().UTC()
	tag, err := execBuilt(ctx, s.pool, b.
		Set("full_name", p.FullName).
		Set("role", p.Role).
		Set("is_active", p.Active).
		Set("password_hash", p.PasswordHash).
		Set("updated_at", p.UpdatedAt).
		Where(sq.Eq{"id": p.ID}))
	return execExpectOne(tag, err, "update principal %s", p.ID)
}

// DeletePrincipal removes the principal and clears its task assignments in
// the same transaction.
func (s *Store) DeletePrincipal(ctx context.Context, scope access.Scope, id string) error {
	clear, err := scopedUpdate(scope, "tasks")
	if err != nil {
		return err
	}
	del, err := scopedDelete(scope, "users")
	if err != nil {
		return err
	}
	if err := checkID("principal", id); err != nil {
		return err
	}

	return s.inTx(ctx, func(tx pgx.Tx) error {
		if _, err := execBuilt(ctx, tx, clear.Set("assigned_to", nil).Where(sq.Eq{"assigned_to": id})); err != nil {
			return fmt.Errorf("unassign tasks of %s: %w", id, err)
		}
		tag, err := execBuilt(ctx, tx, del.Where(sq.Eq{"id": id}))
		return execExpectOne(tag, err, "delete principal %s", id)
	})
}

func (s *Store) CreateSuperAdmin(ctx context.Context, p *principal.Principal) error {
	if p.Role != principal.RoleSuperAdmin {
		return fmt.Errorf("create super admin: unexpected role %s", p.Role)
	}
	return insertPrincipal(ctx, s.pool, p)
}

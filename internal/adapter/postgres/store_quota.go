package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Strob0t/Tasklane/internal/domain/principal"
	"github.com/Strob0t/Tasklane/internal/domain/project"
	"github.com/Strob0t/Tasklane/internal/domain/tenant"
	"github.com/Strob0t/Tasklane/internal/port/database"
)

// quotaTables maps quota-counted resource kinds to their tables.
var quotaTables = map[tenant.ResourceKind]string{
	tenant.ResourceUsers:    "users",
	tenant.ResourceProjects: "projects",
	tenant.ResourceTasks:    "tasks",
}

func countResources(ctx context.Context, q querier, kind tenant.ResourceKind, tenantID string) (int, error) {
	table, ok := quotaTables[kind]
	if !ok {
		return 0, fmt.Errorf("count resources: unknown kind %q", kind)
	}
	var n int
	if err := q.QueryRow(ctx, `SELECT count(*) FROM `+table+` WHERE tenant_id = $1`, tenantID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s for tenant %s: %w", kind, tenantID, err)
	}
	return n, nil
}

func (s *Store) CountResources(ctx context.Context, kind tenant.ResourceKind, tenantID string) (int, error) {
	if err := checkID("tenant", tenantID); err != nil {
		return 0, err
	}
	return countResources(ctx, s.pool, kind, tenantID)
}

// WithTenantLock takes a row lock on the tenant for the duration of a
// transaction. Concurrent callers for the same tenant, in this process or
// any other, queue on the lock, so a count taken inside fn stays valid until
// fn's insert commits.
func (s *Store) WithTenantLock(ctx context.Context, tenantID string, fn func(tx database.TenantTx) error) error {
	if err := checkID("tenant", tenantID); err != nil {
		return err
	}
	return s.inTx(ctx, func(tx pgx.Tx) error {
		t, err := scanTenant(tx.QueryRow(ctx,
			`SELECT `+tenantColumns+` FROM tenants WHERE id = $1 FOR UPDATE`, tenantID))
		if err != nil {
			return notFoundWrap(err, "lock tenant %s", tenantID)
		}
		return fn(&tenantTx{tx: tx, tenant: &t})
	})
}

// tenantTx is the database.TenantTx handed to WithTenantLock callbacks.
type tenantTx struct {
	tx     pgx.Tx
	tenant *tenant.Tenant
}

func (t *tenantTx) Tenant() *tenant.Tenant { return t.tenant }

func (t *tenantTx) CountResources(ctx context.Context, kind tenant.ResourceKind) (int, error) {
	return countResources(ctx, t.tx, kind, t.tenant.ID)
}

func (t *tenantTx) InsertPrincipal(ctx context.Context, p *principal.Principal) error {
	if p.TenantID != t.tenant.ID {
		return fmt.Errorf("insert principal: tenant %q does not match locked tenant %s", p.TenantID, t.tenant.ID)
	}
	return insertPrincipal(ctx, t.tx, p)
}

func (t *tenantTx) InsertProject(ctx context.Context, p *project.Project) error {
	if p.TenantID != t.tenant.ID {
		return fmt.Errorf("insert project: tenant %q does not match locked tenant %s", p.TenantID, t.tenant.ID)
	}
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	_, err := t.tx.Exec(ctx, `
		INSERT INTO projects (id, tenant_id, name, description, status, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		p.ID, p.TenantID, p.Name, p.Description, p.Status, nullIfEmpty(p.CreatedBy), p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return writeWrap(err, "create project %q", p.Name)
	}
	return nil
}

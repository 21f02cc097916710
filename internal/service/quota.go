package service

import (
	"context"
	"errors"
	"fmt"

	cfotel "github.com/Strob0t/Tasklane/internal/adapter/otel"
	"github.com/Strob0t/Tasklane/internal/domain"
	"github.com/Strob0t/Tasklane/internal/domain/principal"
	"github.com/Strob0t/Tasklane/internal/domain/project"
	"github.com/Strob0t/Tasklane/internal/domain/tenant"
	"github.com/Strob0t/Tasklane/internal/port/database"
)

// QuotaEnforcer creates quota-limited rows. Each creation counts and
// inserts under the tenant lock, so concurrent creations for one tenant
// can never overshoot its ceiling.
type QuotaEnforcer struct {
	store   database.Store
	metrics *cfotel.Metrics
}

// NewQuotaEnforcer creates a QuotaEnforcer.
func NewQuotaEnforcer(store database.Store) *QuotaEnforcer {
	return &QuotaEnforcer{store: store}
}

// SetMetrics attaches the quota rejection counter.
func (q *QuotaEnforcer) SetMetrics(m *cfotel.Metrics) { q.metrics = m }

// CreatePrincipal inserts p if its tenant is below MaxUsers.
func (q *QuotaEnforcer) CreatePrincipal(ctx context.Context, p *principal.Principal) error {
	return q.create(ctx, p.TenantID, tenant.ResourceUsers, func(tx database.TenantTx) error {
		return tx.InsertPrincipal(ctx, p)
	})
}

// CreateProject inserts p if its tenant is below MaxProjects.
func (q *QuotaEnforcer) CreateProject(ctx context.Context, p *project.Project) error {
	return q.create(ctx, p.TenantID, tenant.ResourceProjects, func(tx database.TenantTx) error {
		return tx.InsertProject(ctx, p)
	})
}

func (q *QuotaEnforcer) create(ctx context.Context, tenantID string, kind tenant.ResourceKind, insert func(database.TenantTx) error) error {
	ctx, span := cfotel.StartQuotaSpan(ctx, tenantID, string(kind))
	err := q.store.WithTenantLock(ctx, tenantID, func(tx database.TenantTx) error {
		if err := checkCeiling(ctx, tx, kind); err != nil {
			return err
		}
		return insert(tx)
	})
	if errors.Is(err, domain.ErrQuotaExceeded) {
		q.metrics.QuotaRejection(ctx, string(kind))
	}
	cfotel.End(span, err)
	return err
}

func checkCeiling(ctx context.Context, tx database.TenantTx, kind tenant.ResourceKind) error {
	limit := tx.Tenant().Ceiling(kind)
	n, err := tx.CountResources(ctx, kind)
	if err != nil {
		return fmt.Errorf("count %s: %w", kind, err)
	}
	if n >= limit {
		return fmt.Errorf("%w: tenant %s has %d of %d %s", domain.ErrQuotaExceeded, tx.Tenant().ID, n, limit, kind)
	}
	return nil
}

// Usage returns the current resource counts of tenantID.
func (q *QuotaEnforcer) Usage(ctx context.Context, tenantID string) (tenant.Stats, error) {
	var st tenant.Stats
	for _, c := range []struct {
		kind tenant.ResourceKind
		dst  *int
	}{
		{tenant.ResourceUsers, &st.TotalUsers},
		{tenant.ResourceProjects, &st.TotalProjects},
		{tenant.ResourceTasks, &st.TotalTasks},
	} {
		n, err := q.store.CountResources(ctx, c.kind, tenantID)
		if err != nil {
			return tenant.Stats{}, fmt.Errorf("count %s: %w", c.kind, err)
		}
		*c.dst = n
	}
	return st, nil
}

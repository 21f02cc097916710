//go:build integration

package postgres_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Strob0t/Tasklane/internal/adapter/postgres"
	"github.com/Strob0t/Tasklane/internal/domain"
	"github.com/Strob0t/Tasklane/internal/domain/access"
	"github.com/Strob0t/Tasklane/internal/domain/principal"
	"github.com/Strob0t/Tasklane/internal/domain/project"
	"github.com/Strob0t/Tasklane/internal/domain/task"
	"github.com/Strob0t/Tasklane/internal/domain/tenant"
	"github.com/Strob0t/Tasklane/internal/port/database"
)

// setupStore creates a pgxpool connection, runs all migrations, and returns a
// ready-to-use Store. The pool is closed via t.Cleanup.
func setupStore(t *testing.T) *postgres.Store {
	t.Helper()

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("requires DATABASE_URL")
	}

	ctx := context.Background()
	if err := postgres.RunMigrations(ctx, dsn); err != nil {
		t.Fatalf("run migrations: %v", err)
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("create pool: %v", err)
	}
	t.Cleanup(pool.Close)

	return postgres.NewStore(pool)
}

// registerTestTenant registers a tenant with a random subdomain plus its
// admin, and returns both.
func registerTestTenant(t *testing.T, store *postgres.Store, maxProjects int) (*tenant.Tenant, *principal.Principal) {
	t.Helper()
	sub := "test-" + uuid.New().String()[:8]
	tn := &tenant.Tenant{
		ID:        uuid.New().String(),
		Name:      "Tenant " + sub,
		Subdomain: sub,
		Status:    tenant.StatusActive,
		Plan:      tenant.PlanFree,
		Limits:    tenant.Limits{MaxUsers: 5, MaxProjects: maxProjects},
	}
	admin := &principal.Principal{
		ID:           uuid.New().String(),
		Email:        "admin@" + sub + ".test",
		FullName:     "Admin",
		PasswordHash: "x",
		Role:         principal.RoleTenantAdmin,
		TenantID:     tn.ID,
		Active:       true,
	}
	if err := store.RegisterTenant(context.Background(), tn, admin); err != nil {
		t.Fatalf("register tenant: %v", err)
	}
	return tn, admin
}

func createProject(ctx context.Context, store *postgres.Store, tenantID, name string) (*project.Project, error) {
	p := &project.Project{ID: uuid.New().String(), TenantID: tenantID, Name: name, Status: project.StatusActive}
	err := store.WithTenantLock(ctx, tenantID, func(tx database.TenantTx) error {
		n, err := tx.CountResources(ctx, tenant.ResourceProjects)
		if err != nil {
			return err
		}
		if n >= tx.Tenant().MaxProjects {
			return domain.ErrQuotaExceeded
		}
		return tx.InsertProject(ctx, p)
	})
	return p, err
}

func TestStore_RegisterTenant_DuplicateSubdomain(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	tn, _ := registerTestTenant(t, store, 3)

	dup := &tenant.Tenant{ID: uuid.New().String(), Name: "Dup", Subdomain: tn.Subdomain,
		Status: tenant.StatusActive, Plan: tenant.PlanFree, Limits: tenant.Limits{MaxUsers: 1, MaxProjects: 1}}
	admin := &principal.Principal{ID: uuid.New().String(), Email: "dup@x.test", FullName: "Dup",
		PasswordHash: "x", Role: principal.RoleTenantAdmin, TenantID: dup.ID, Active: true}

	err := store.RegisterTenant(ctx, dup, admin)
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
	if _, err := store.GetTenant(ctx, dup.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("duplicate tenant row exists: %v", err)
	}
	if got, _ := store.FindPrincipalsByEmail(ctx, admin.Email, dup.ID); len(got) != 0 {
		t.Errorf("partial admin row written: %+v", got)
	}
}

func TestStore_ProjectIsolation(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	tnA, _ := registerTestTenant(t, store, 3)
	tnB, _ := registerTestTenant(t, store, 3)

	pa, err := createProject(ctx, store, tnA.ID, "alpha")
	if err != nil {
		t.Fatalf("create project: %v", err)
	}

	if _, err := store.GetProject(ctx, access.TenantScope(tnA.ID), pa.ID); err != nil {
		t.Fatalf("own tenant get: %v", err)
	}
	if _, err := store.GetProject(ctx, access.TenantScope(tnB.ID), pa.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("cross-tenant get: err = %v, want ErrNotFound", err)
	}
	if _, err := store.GetProject(ctx, access.Scope{AllTenants: true}, pa.ID); err != nil {
		t.Errorf("all-tenants get: %v", err)
	}

	pa.Name = "hijacked"
	if err := store.UpdateProject(ctx, access.TenantScope(tnB.ID), pa); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("cross-tenant update: err = %v, want ErrNotFound", err)
	}
	if err := store.DeleteProject(ctx, access.TenantScope(tnB.ID), pa.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("cross-tenant delete: err = %v, want ErrNotFound", err)
	}

	list, total, err := store.ListProjects(ctx, access.TenantScope(tnB.ID), project.ListFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if total != 0 || len(list) != 0 {
		t.Errorf("tenant B sees %d projects of tenant A", total)
	}

	if _, err := store.GetProject(ctx, access.Scope{}, pa.ID); !errors.Is(err, domain.ErrUnscoped) {
		t.Errorf("zero scope: err = %v, want ErrUnscoped", err)
	}
}

func TestStore_TaskOwnershipChain(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	tnA, adminA := registerTestTenant(t, store, 3)
	tnB, adminB := registerTestTenant(t, store, 3)

	pa, err := createProject(ctx, store, tnA.ID, "alpha")
	if err != nil {
		t.Fatal(err)
	}

	tk := &task.Task{ID: uuid.New().String(), TenantID: tnA.ID, ProjectID: pa.ID, Title: "one",
		Status: task.StatusTodo, Priority: task.PriorityMedium, AssigneeID: adminA.ID}
	if err := store.CreateTask(ctx, access.TenantScope(tnA.ID), tk); err != nil {
		t.Fatalf("create task: %v", err)
	}

	// A task claiming tenant B for tenant A's project violates the composite key.
	bad := &task.Task{ID: uuid.New().String(), TenantID: tnB.ID, ProjectID: pa.ID, Title: "forged",
		Status: task.StatusTodo, Priority: task.PriorityLow}
	if err := store.CreateTask(ctx, access.TenantScope(tnB.ID), bad); !errors.Is(err, domain.ErrInput) {
		t.Errorf("forged project: err = %v, want ErrInput", err)
	}

	// Assigning to a principal of another tenant is refused.
	tk.AssigneeID = adminB.ID
	if err := store.UpdateTask(ctx, access.TenantScope(tnA.ID), tk); !errors.Is(err, domain.ErrInput) {
		t.Errorf("foreign assignee: err = %v, want ErrInput", err)
	}

	if _, err := store.GetTask(ctx, access.TenantScope(tnB.ID), tk.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("cross-tenant task get: err = %v, want ErrNotFound", err)
	}

	got, err := store.GetProject(ctx, access.TenantScope(tnA.ID), pa.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.TaskCount != 1 || got.CompletedTaskCount != 0 {
		t.Errorf("counters = %d/%d, want 1/0", got.TaskCount, got.CompletedTaskCount)
	}
}

func TestStore_QuotaUnderConcurrency(t *testing.T) {
	store := setupStore(t)
	const limit = 4
	tn, _ := registerTestTenant(t, store, limit)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		ok, over int
	)
	for i := range limit + 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := createProject(context.Background(), store, tn.ID, "p"+string(rune('a'+i)))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, domain.ErrQuotaExceeded):
				over++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if ok != limit || over != 5 {
		t.Fatalf("successes = %d, quota errors = %d; want %d and 5", ok, over, limit)
	}
	n, err := store.CountResources(context.Background(), tenant.ResourceProjects, tn.ID)
	if err != nil {
		t.Fatal(err)
	}
	if n != limit {
		t.Fatalf("stored projects = %d, want %d", n, limit)
	}
}

func TestStore_PrincipalRoleTenantConstraint(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	tn, _ := registerTestTenant(t, store, 3)

	err := store.WithTenantLock(ctx, tn.ID, func(tx database.TenantTx) error {
		return tx.InsertPrincipal(ctx, &principal.Principal{
			ID: uuid.New().String(), Email: "m@x.test", FullName: "M", PasswordHash: "x",
			Role: principal.RoleMember, TenantID: tn.ID, Active: true,
		})
	})
	if err != nil {
		t.Fatalf("insert member: %v", err)
	}

	// A super admin bound to a tenant is refused before it reaches the schema.
	bad := &principal.Principal{ID: uuid.New().String(), Email: "s@x.test", FullName: "S",
		PasswordHash: "x", Role: principal.RoleSuperAdmin, TenantID: tn.ID}
	if err := store.CreateSuperAdmin(ctx, bad); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("tenant-bound super admin: err = %v, want ErrValidation", err)
	}
}

func TestStore_TokenRevocation(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	jti := uuid.New().String()

	revoked, err := store.IsTokenRevoked(ctx, jti)
	if err != nil || revoked {
		t.Fatalf("fresh jti revoked = %v, err = %v", revoked, err)
	}
	past := mustPast()
	if err := store.RevokeToken(ctx, jti, past); err != nil {
		t.Fatal(err)
	}
	if revoked, _ := store.IsTokenRevoked(ctx, jti); !revoked {
		t.Fatal("jti not revoked after RevokeToken")
	}
	if _, err := store.PurgeExpiredRevocations(ctx, past.Add(1)); err != nil {
		t.Fatal(err)
	}
	if revoked, _ := store.IsTokenRevoked(ctx, jti); revoked {
		t.Fatal("expired revocation not purged")
	}
}

func mustPast() time.Time {
	return time.Now().Add(-time.Hour).UTC()
}

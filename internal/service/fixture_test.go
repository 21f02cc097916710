package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/Strob0t/Tasklane/internal/adapter/memstore"
	"github.com/Strob0t/Tasklane/internal/config"
	"github.com/Strob0t/Tasklane/internal/domain/access"
	"github.com/Strob0t/Tasklane/internal/domain/principal"
	"github.com/Strob0t/Tasklane/internal/domain/tenant"
	"github.com/Strob0t/Tasklane/internal/port/messagequeue"
	"github.com/Strob0t/Tasklane/internal/secrets"
)

const testSecret = "test-signing-key-0123456789abcdef"

func testAuthConfig() config.Auth {
	return config.Auth{
		SecretEnv:  "TASKLANE_JWT_SECRET",
		TokenTTL:   time.Hour,
		Issuer:     "tasklane",
		Audience:   "tasklane-api",
		BcryptCost: bcrypt.MinCost,
	}
}

func testPlans() config.Plans {
	return config.Defaults().Plans
}

func testVault() *secrets.Vault {
	return secrets.Static(map[string]string{"TASKLANE_JWT_SECRET": testSecret})
}

// fixture wires every service over a seeded memstore.
type fixture struct {
	store    *memstore.Store
	queue    *recordingQueue
	tokens   *TokenIssuer
	creds    *Credentials
	auth     *AuthService
	tenants  *TenantService
	users    *UserService
	projects *ProjectService
	tasks    *TaskService
	admin    *AdminService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memstore.New()
	q := &recordingQueue{}
	creds := NewCredentials(bcrypt.MinCost)
	tokens := NewTokenIssuer(testVault(), testAuthConfig())
	audit := NewAuditService(q, nil)
	quota := NewQuotaEnforcer(store)
	projects := NewProjectService(store, quota)

	f := &fixture{
		store:    store,
		queue:    q,
		tokens:   tokens,
		creds:    creds,
		auth:     NewAuthService(store, NewTenantResolver(store, nil, time.Minute), tokens, creds, testPlans(), audit),
		tenants:  NewTenantService(store, quota, testPlans(), audit),
		users:    NewUserService(store, quota, creds, audit),
		projects: projects,
		tasks:    NewTaskService(store, projects),
		admin:    NewAdminService(store, creds, testPlans()),
	}
	if err := f.admin.SeedDemo(context.Background()); err != nil {
		t.Fatalf("seed demo: %v", err)
	}
	return f
}

// login authenticates through the full login and token path.
func (f *fixture) login(t *testing.T, subdomain, email, password string) principal.Context {
	t.Helper()
	ctx := context.Background()
	resp, err := f.auth.Login(ctx, principal.LoginRequest{Email: email, Password: password, TenantSubdomain: subdomain})
	if err != nil {
		t.Fatalf("login %s@%s: %v", email, subdomain, err)
	}
	pc, err := f.auth.Authenticate(ctx, resp.Token)
	if err != nil {
		t.Fatalf("authenticate %s: %v", email, err)
	}
	return pc
}

func (f *fixture) demoAdmin(t *testing.T) principal.Context {
	return f.login(t, DemoSubdomain, DemoAdminEmail, DemoAdminPassword)
}

func (f *fixture) acmeAdmin(t *testing.T) principal.Context {
	return f.login(t, AcmeSubdomain, AcmeAdminEmail, AcmeAdminPassword)
}

func (f *fixture) superAdmin(t *testing.T) principal.Context {
	return f.login(t, "", DemoSuperEmail, DemoSuperPassword)
}

func (f *fixture) tenant(t *testing.T, subdomain string) *tenant.Tenant {
	t.Helper()
	tn, err := f.store.FindTenantBySubdomain(context.Background(), subdomain)
	if err != nil {
		t.Fatalf("find tenant %s: %v", subdomain, err)
	}
	return tn
}

// member creates a member in subdomain's tenant and logs it in.
func (f *fixture) member(t *testing.T, subdomain, email string) principal.Context {
	t.Helper()
	admin := f.login(t, subdomain, adminEmailOf(subdomain), adminPasswordOf(subdomain))
	_, err := f.users.Create(context.Background(), admin, admin.TenantID(), principal.CreateRequest{
		Email: email, Password: "member-pass-1", FullName: "Member", Role: principal.RoleMember,
	})
	if err != nil {
		t.Fatalf("create member: %v", err)
	}
	return f.login(t, subdomain, email, "member-pass-1")
}

func adminEmailOf(sub string) string {
	if sub == AcmeSubdomain {
		return AcmeAdminEmail
	}
	return DemoAdminEmail
}

func adminPasswordOf(sub string) string {
	if sub == AcmeSubdomain {
		return AcmeAdminPassword
	}
	return DemoAdminPassword
}

// reauth issues a fresh token for pc's principal and authenticates it, which
// works even when the tenant no longer accepts logins.
func (f *fixture) reauth(t *testing.T, pc principal.Context) principal.Context {
	t.Helper()
	ctx := context.Background()
	p, err := f.store.GetPrincipal(ctx, access.Scope{AllTenants: true}, pc.PrincipalID())
	if err != nil {
		t.Fatalf("load principal: %v", err)
	}
	raw, _, err := f.tokens.Issue(p)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	out, err := f.auth.Authenticate(ctx, raw)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	return out
}

func (f *fixture) setStatus(t *testing.T, subdomain string, st tenant.Status) {
	t.Helper()
	tn := f.tenant(t, subdomain)
	tn.Status = st
	if err := f.store.UpdateTenant(context.Background(), tn); err != nil {
		t.Fatalf("update tenant: %v", err)
	}
}

// recordingQueue is a messagequeue.Queue that keeps published messages.
type recordingQueue struct {
	mu       sync.Mutex
	subjects []string
	payloads [][]byte
	handlers map[string]messagequeue.Handler
	err      error
}

var _ messagequeue.Queue = (*recordingQueue)(nil)

func (q *recordingQueue) Publish(_ context.Context, subject string, data []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.subjects = append(q.subjects, subject)
	q.payloads = append(q.payloads, data)
	return nil
}

func (q *recordingQueue) Subscribe(_ context.Context, subject string, h messagequeue.Handler) (func(), error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.handlers == nil {
		q.handlers = make(map[string]messagequeue.Handler)
	}
	q.handlers[subject] = h
	return func() {
		q.mu.Lock()
		defer q.mu.Unlock()
		delete(q.handlers, subject)
	}, nil
}
func (q *recordingQueue) Drain() error      { return nil }
func (q *recordingQueue) Close() error      { return nil }
func (q *recordingQueue) IsConnected() bool { return true }

func (q *recordingQueue) published(subject string) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := 0
	for _, s := range q.subjects {
		if s == subject {
			n++
		}
	}
	return n
}

// revocationDownStore fails every revocation lookup.
type revocationDownStore struct {
	*memstore.Store
}

func (revocationDownStore) IsTokenRevoked(context.Context, string) (bool, error) {
	return false, errors.New("connection refused")
}

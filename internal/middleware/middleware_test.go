package middleware_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/Strob0t/Tasklane/internal/domain"
	"github.com/Strob0t/Tasklane/internal/domain/principal"
	"github.com/Strob0t/Tasklane/internal/domain/tenant"
)

// fakeAuth maps bearer tokens to principals.
type fakeAuth struct {
	tokens map[string]*principal.Principal
	err    error
}

func (f *fakeAuth) Authenticate(_ context.Context, bearer string) (principal.Context, error) {
	if f.err != nil {
		return principal.Context{}, f.err
	}
	p, ok := f.tokens[bearer]
	if !ok {
		return principal.Context{}, fmt.Errorf("unknown token: %w", domain.ErrAuth)
	}
	var t *tenant.Tenant
	if p.TenantID != "" {
		t = &tenant.Tenant{ID: p.TenantID, Status: tenant.StatusActive}
	}
	return principal.NewContext(p, t, "jti-"+bearer, time.Now().Add(time.Hour)), nil
}

var (
	adminP  = &principal.Principal{ID: "u-admin", Role: principal.RoleTenantAdmin, TenantID: "t-1"}
	memberP = &principal.Principal{ID: "u-member", Role: principal.RoleMember, TenantID: "t-1"}
	superP  = &principal.Principal{ID: "u-super", Role: principal.RoleSuperAdmin}
)

func newFakeAuth() *fakeAuth {
	return &fakeAuth{tokens: map[string]*principal.Principal{
		"admin-token":  adminP,
		"member-token": memberP,
		"super-token":  superP,
	}}
}

func ok() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return body
}

// memCache is an in-memory cache.Cache.
type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
	err  error
}

func newMemCache() *memCache { return &memCache{data: make(map[string][]byte)} }

func (m *memCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, false, m.err
	}
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.data[key] = value
	return nil
}

func (m *memCache) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *memCache) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}

var errBackend = errors.New("backend down")

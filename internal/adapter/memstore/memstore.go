// Package memstore is an in-memory implementation of database.Store. It
// mirrors the scoping, uniqueness and ownership rules of the postgres
// adapter and backs the service tests and development mode.
package memstore

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/Strob0t/Tasklane/internal/domain"
	"github.com/Strob0t/Tasklane/internal/domain/access"
	"github.com/Strob0t/Tasklane/internal/domain/principal"
	"github.com/Strob0t/Tasklane/internal/domain/project"
	"github.com/Strob0t/Tasklane/internal/domain/task"
	"github.com/Strob0t/Tasklane/internal/domain/tenant"
	"github.com/Strob0t/Tasklane/internal/port/database"
)

var _ database.Store = (*Store)(nil)

// Store holds all rows in maps guarded by one RWMutex. Tenant locks are
// separate per-tenant mutexes so WithTenantLock serializes only callers of
// the same tenant.
type Store struct {
	mu         sync.RWMutex
	tenants    map[string]tenant.Tenant
	principals map[string]principal.Principal
	projects   map[string]project.Project
	tasks      map[string]task.Task
	revoked    map[string]time.Time

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex

	// PingErr, when set, is returned by Ping.
	PingErr error
}

// New returns an empty store.
func New() *Store {
	return &Store{
		tenants:    make(map[string]tenant.Tenant),
		principals: make(map[string]principal.Principal),
		projects:   make(map[string]project.Project),
		tasks:      make(map[string]task.Task),
		revoked:    make(map[string]time.Time),
		locks:      make(map[string]*sync.Mutex),
	}
}

func now() time.Time { return time.Now().UTC() }

func (s *Store) Ping(context.Context) error { return s.PingErr }

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

// page slices items according to p.
func page[T any](items []T, p domain.PageRequest) []T {
	p = p.Normalize()
	start := p.Offset()
	if start >= len(items) {
		return []T{}
	}
	end := min(start+p.Limit, len(items))
	return items[start:end]
}

// newestFirst orders by creation time descending, then id.
func newestFirst[T any](items []T, created func(T) time.Time, id func(T) string) {
	slices.SortFunc(items, func(a, b T) int {
		if c := created(b).Compare(created(a)); c != 0 {
			return c
		}
		return cmp.Compare(id(a), id(b))
	})
}

// --- Tenants ---

func (s *Store) GetTenant(_ context.Context, id string) (*tenant.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tenants[id]
	if !ok {
		return nil, fmt.Errorf("get tenant %s: %w", id, domain.ErrNotFound)
	}
	return &t, nil
}

func (s *Store) FindTenantBySubdomain(_ context.Context, subdomain string) (*tenant.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.tenants {
		if t.Subdomain == subdomain {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("find tenant by subdomain %q: %w", subdomain, domain.ErrNotFound)
}

func (s *Store) ListTenants(_ context.Context, f tenant.ListFilter) ([]tenant.Tenant, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []tenant.Tenant
	for _, t := range s.tenants {
		if f.Status != "" && t.Status != f.Status {
			continue
		}
		if f.Plan != "" && t.Plan != f.Plan {
			continue
		}
		if f.Search != "" && !containsFold(t.Name, f.Search) && !containsFold(t.Subdomain, f.Search) {
			continue
		}
		out = append(out, t)
	}
	newestFirst(out, func(t tenant.Tenant) time.Time { return t.CreatedAt }, func(t tenant.Tenant) string { return t.ID })
	return page(out, f.PageRequest), len(out), nil
}

func (s *Store) UpdateTenant(_ context.Context, t *tenant.Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.tenants[t.ID]
	if !ok {
		return fmt.Errorf("update tenant %s: %w", t.ID, domain.ErrNotFound)
	}
	t.Subdomain = cur.Subdomain
	t.CreatedAt = cur.CreatedAt
	t.UpdatedAt = now()
	s.tenants[t.ID] = *t
	return nil
}

func (s *Store) RegisterTenant(_ context.Context, t *tenant.Tenant, admin *principal.Principal) error {
	if err := admin.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.tenants {
		if existing.Subdomain == t.Subdomain {
			return fmt.Errorf("register tenant %q: %w", t.Subdomain, domain.ErrConflict)
		}
	}
	if _, ok := s.tenants[t.ID]; ok {
		return fmt.Errorf("register tenant %s: %w", t.ID, domain.ErrConflict)
	}
	ts := now()
	t.CreatedAt, t.UpdatedAt = ts, ts
	admin.CreatedAt, admin.UpdatedAt = ts, ts
	s.tenants[t.ID] = *t
	if err := s.insertPrincipalLocked(admin); err != nil {
		delete(s.tenants, t.ID)
		return err
	}
	return nil
}

// --- Principals ---

func (s *Store) insertPrincipalLocked(p *principal.Principal) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if p.TenantID != "" {
		if _, ok := s.tenants[p.TenantID]; !ok {
			return fmt.Errorf("create principal %s: %w: unknown tenant", p.Email, domain.ErrInput)
		}
	}
	for _, existing := range s.principals {
		if existing.ID == p.ID || (existing.Email == p.Email && existing.TenantID == p.TenantID) {
			return fmt.Errorf("create principal %s: %w", p.Email, domain.ErrConflict)
		}
	}
	if p.CreatedAt.IsZero() {
		ts := now()
		p.CreatedAt, p.UpdatedAt = ts, ts
	}
	s.principals[p.ID] = *p
	return nil
}

func (s *Store) FindPrincipalsByEmail(_ context.Context, email, tenantID string) ([]principal.Principal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []principal.Principal
	for _, p := range s.principals {
		if p.Email == email && p.TenantID == tenantID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *Store) GetPrincipal(_ context.Context, scope access.Scope, id string) (*principal.Principal, error) {
	if err := scope.Check(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.principals[id]
	if !ok || !visible(scope, p.TenantID) {
		return nil, fmt.Errorf("get principal %s: %w", id, domain.ErrNotFound)
	}
	return &p, nil
}

// visible applies scope to a row owned by tenantID. Tenant-less rows (super
// admins) are visible only to all-tenants scopes.
func visible(scope access.Scope, tenantID string) bool {
	return scope.Contains(tenantID)
}

func (s *Store) ListPrincipals(_ context.Context, scope access.Scope, f principal.ListFilter) ([]principal.Principal, int, error) {
	if err := scope.Check(); err != nil {
		return nil, 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []principal.Principal
	for _, p := range s.principals {
		if !visible(scope, p.TenantID) {
			continue
		}
		if f.Role != "" && p.Role != f.Role {
			continue
		}
		if f.Search != "" && !containsFold(p.FullName, f.Search) && !containsFold(p.Email, f.Search) {
			continue
		}
		out = append(out, p)
	}
	newestFirst(out, func(p principal.Principal) time.Time { return p.CreatedAt }, func(p principal.Principal) string { return p.ID })
	return page(out, f.PageRequest), len(out), nil
}

func (s *Store) UpdatePrincipal(_ context.Context, scope access.Scope, p *principal.Principal) error {
	if err := scope.Check(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.principals[p.ID]
	if !ok || !visible(scope, cur.TenantID) {
		return fmt.Errorf("update principal %s: %w", p.ID, domain.ErrNotFound)
	}
	cur.FullName = p.FullName
	cur.Role = p.Role
	cur.Active = p.Active
	cur.PasswordHash = p.PasswordHash
	if err := cur.Validate(); err != nil {
		return err
	}
	cur.UpdatedAt = now()
	p.UpdatedAt = cur.UpdatedAt
	s.principals[p.ID] = cur
	return nil
}

func (s *Store) DeletePrincipal(_ context.Context, scope access.Scope, id string) error {
	if err := scope.Check(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.principals[id]
	if !ok || !visible(scope, cur.TenantID) {
		return fmt.Errorf("delete principal %s: %w", id, domain.ErrNotFound)
	}
	for tid, t := range s.tasks {
		if t.AssigneeID == id {
			t.AssigneeID = ""
			s.tasks[tid] = t
		}
	}
	for pid, p := range s.projects {
		if p.CreatedBy == id {
			p.CreatedBy = ""
			s.projects[pid] = p
		}
	}
	delete(s.principals, id)
	return nil
}

func (s *Store) CreateSuperAdmin(_ context.Context, p *principal.Principal) error {
	if p.Role != principal.RoleSuperAdmin {
		return fmt.Errorf("create super admin: unexpected role %s", p.Role)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertPrincipalLocked(p)
}

// --- Quota ---

func (s *Store) countLocked(kind tenant.ResourceKind, tenantID string) (int, error) {
	n := 0
	switch kind {
	case tenant.ResourceUsers:
		for _, p := range s.principals {
			if p.TenantID == tenantID {
				n++
			}
		}
	case tenant.ResourceProjects:
		for _, p := range s.projects {
			if p.TenantID == tenantID {
				n++
			}
		}
	case tenant.ResourceTasks:
		for _, t := range s.tasks {
			if t.TenantID == tenantID {
				n++
			}
		}
	default:
		return 0, fmt.Errorf("count resources: unknown kind %q", kind)
	}
	return n, nil
}

func (s *Store) CountResources(_ context.Context, kind tenant.ResourceKind, tenantID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.countLocked(kind, tenantID)
}

func (s *Store) tenantLock(tenantID string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	m, ok := s.locks[tenantID]
	if !ok {
		m = &sync.Mutex{}
		s.locks[tenantID] = m
	}
	return m
}

// WithTenantLock serializes fn with every other WithTenantLock call for the
// same tenant. Inserts made through the TenantTx are applied immediately.
func (s *Store) WithTenantLock(ctx context.Context, tenantID string, fn func(tx database.TenantTx) error) error {
	lock := s.tenantLock(tenantID)
	lock.Lock()
	defer lock.Unlock()

	t, err := s.GetTenant(ctx, tenantID)
	if err != nil {
		return err
	}
	return fn(&tenantTx{s: s, tenant: t})
}

type tenantTx struct {
	s      *Store
	tenant *tenant.Tenant
}

func (t *tenantTx) Tenant() *tenant.Tenant { return t.tenant }

func (t *tenantTx) CountResources(ctx context.Context, kind tenant.ResourceKind) (int, error) {
	return t.s.CountResources(ctx, kind, t.tenant.ID)
}

func (t *tenantTx) InsertPrincipal(_ context.Context, p *principal.Principal) error {
	if p.TenantID != t.tenant.ID {
		return fmt.Errorf("insert principal: tenant %q does not match locked tenant %s", p.TenantID, t.tenant.ID)
	}
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	return t.s.insertPrincipalLocked(p)
}

func (t *tenantTx) InsertProject(_ context.Context, p *project.Project) error {
	if p.TenantID != t.tenant.ID {
		return fmt.Errorf("insert project: tenant %q does not match locked tenant %s", p.TenantID, t.tenant.ID)
	}
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if _, ok := t.s.projects[p.ID]; ok {
		return fmt.Errorf("create project %s: %w", p.ID, domain.ErrConflict)
	}
	ts := now()
	p.CreatedAt, p.UpdatedAt = ts, ts
	t.s.projects[p.ID] = *p
	return nil
}

// --- Projects ---

func (s *Store) withCountsLocked(p project.Project) project.Project {
	p.TaskCount, p.CompletedTaskCount = 0, 0
	for _, t := range s.tasks {
		if t.ProjectID != p.ID {
			continue
		}
		p.TaskCount++
		if t.Status == task.StatusCompleted {
			p.CompletedTaskCount++
		}
	}
	return p
}

func (s *Store) GetProject(_ context.Context, scope access.Scope, id string) (*project.Project, error) {
	if err := scope.Check(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.projects[id]
	if !ok || !visible(scope, p.TenantID) {
		return nil, fmt.Errorf("get project %s: %w", id, domain.ErrNotFound)
	}
	p = s.withCountsLocked(p)
	return &p, nil
}

func (s *Store) ListProjects(_ context.Context, scope access.Scope, f project.ListFilter) ([]project.Project, int, error) {
	if err := scope.Check(); err != nil {
		return nil, 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []project.Project
	for _, p := range s.projects {
		if !visible(scope, p.TenantID) {
			continue
		}
		if f.Status != "" && p.Status != f.Status {
			continue
		}
		if f.Search != "" && !containsFold(p.Name, f.Search) {
			continue
		}
		out = append(out, s.withCountsLocked(p))
	}
	newestFirst(out, func(p project.Project) time.Time { return p.CreatedAt }, func(p project.Project) string { return p.ID })
	return page(out, f.PageRequest), len(out), nil
}

func (s *Store) UpdateProject(_ context.Context, scope access.Scope, p *project.Project) error {
	if err := scope.Check(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.projects[p.ID]
	if !ok || !visible(scope, cur.TenantID) {
		return fmt.Errorf("update project %s: %w", p.ID, domain.ErrNotFound)
	}
	cur.Name, cur.Description, cur.Status = p.Name, p.Description, p.Status
	cur.UpdatedAt = now()
	p.UpdatedAt = cur.UpdatedAt
	s.projects[p.ID] = cur
	return nil
}

func (s *Store) DeleteProject(_ context.Context, scope access.Scope, id string) error {
	if err := scope.Check(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.projects[id]
	if !ok || !visible(scope, cur.TenantID) {
		return fmt.Errorf("delete project %s: %w", id, domain.ErrNotFound)
	}
	for tid, t := range s.tasks {
		if t.ProjectID == id {
			delete(s.tasks, tid)
		}
	}
	delete(s.projects, id)
	return nil
}

// --- Tasks ---

// checkTaskRefsLocked enforces what the postgres composite keys enforce:
// the project and the assignee belong to the task's tenant.
func (s *Store) checkTaskRefsLocked(t *task.Task) error {
	p, ok := s.projects[t.ProjectID]
	if !ok || p.TenantID != t.TenantID {
		return fmt.Errorf("task %s: %w: referenced row outside tenant", t.ID, domain.ErrInput)
	}
	if t.AssigneeID != "" {
		a, ok := s.principals[t.AssigneeID]
		if !ok || a.TenantID != t.TenantID {
			return fmt.Errorf("task %s: %w: referenced row outside tenant", t.ID, domain.ErrInput)
		}
	}
	return nil
}

func (s *Store) CreateTask(_ context.Context, scope access.Scope, t *task.Task) error {
	if err := scope.Check(); err != nil {
		return err
	}
	if !scope.Contains(t.TenantID) {
		return fmt.Errorf("create task in tenant %q: %w", t.TenantID, domain.ErrNotFound)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkTaskRefsLocked(t); err != nil {
		return err
	}
	if _, ok := s.tasks[t.ID]; ok {
		return fmt.Errorf("create task %s: %w", t.ID, domain.ErrConflict)
	}
	ts := now()
	t.CreatedAt, t.UpdatedAt = ts, ts
	s.tasks[t.ID] = *t
	return nil
}

func (s *Store) GetTask(_ context.Context, scope access.Scope, id string) (*task.Task, error) {
	if err := scope.Check(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[id]
	if !ok || !visible(scope, t.TenantID) {
		return nil, fmt.Errorf("get task %s: %w", id, domain.ErrNotFound)
	}
	return &t, nil
}

func (s *Store) ListTasks(_ context.Context, scope access.Scope, projectID string, f task.ListFilter) ([]task.Task, error) {
	if err := scope.Check(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []task.Task{}
	for _, t := range s.tasks {
		if t.ProjectID != projectID || !visible(scope, t.TenantID) {
			continue
		}
		if f.Status != "" && t.Status != f.Status {
			continue
		}
		if f.Priority != "" && t.Priority != f.Priority {
			continue
		}
		if f.AssigneeID != "" && t.AssigneeID != f.AssigneeID {
			continue
		}
		out = append(out, t)
	}
	newestFirst(out, func(t task.Task) time.Time { return t.CreatedAt }, func(t task.Task) string { return t.ID })
	return out, nil
}

func (s *Store) UpdateTask(_ context.Context, scope access.Scope, t *task.Task) error {
	if err := scope.Check(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.tasks[t.ID]
	if !ok || !visible(scope, cur.TenantID) {
		return fmt.Errorf("update task %s: %w", t.ID, domain.ErrNotFound)
	}
	next := *t
	next.TenantID, next.ProjectID, next.CreatedAt = cur.TenantID, cur.ProjectID, cur.CreatedAt
	if err := s.checkTaskRefsLocked(&next); err != nil {
		return err
	}
	next.UpdatedAt = now()
	t.UpdatedAt = next.UpdatedAt
	s.tasks[t.ID] = next
	return nil
}

func (s *Store) DeleteTask(_ context.Context, scope access.Scope, id string) error {
	if err := scope.Check(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.tasks[id]
	if !ok || !visible(scope, cur.TenantID) {
		return fmt.Errorf("delete task %s: %w", id, domain.ErrNotFound)
	}
	delete(s.tasks, id)
	return nil
}

// --- Token revocation ---

func (s *Store) RevokeToken(_ context.Context, tokenID string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.revoked[tokenID]; !ok {
		s.revoked[tokenID] = expiresAt
	}
	return nil
}

func (s *Store) IsTokenRevoked(_ context.Context, tokenID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.revoked[tokenID]
	return ok, nil
}

func (s *Store) PurgeExpiredRevocations(_ context.Context, at time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, exp := range s.revoked {
		if exp.Before(at) {
			delete(s.revoked, id)
			n++
		}
	}
	return n, nil
}

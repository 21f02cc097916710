package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Strob0t/Tasklane/internal/domain"
	"github.com/Strob0t/Tasklane/internal/domain/principal"
	"github.com/Strob0t/Tasklane/internal/domain/tenant"
	"github.com/Strob0t/Tasklane/internal/port/cache"
	"github.com/Strob0t/Tasklane/internal/port/database"
)

const subdomainKeyPrefix = "tenant:subdomain:"

// Resolution is the login context for an email: the addressed tenant (nil
// for the super admin namespace) and the principals that may own the email.
type Resolution struct {
	Tenant     *tenant.Tenant
	Candidates []principal.Principal
}

// TenantResolver maps a login subdomain to a tenant and its candidate
// principals. Only the subdomain to id mapping is cached; subdomains never
// change, and the tenant row is re-read so status is always current.
type TenantResolver struct {
	store database.Store
	cache cache.Cache
	ttl   time.Duration
	group singleflight.Group
}

// NewTenantResolver creates a resolver. c may be nil to disable caching.
func NewTenantResolver(store database.Store, c cache.Cache, ttl time.Duration) *TenantResolver {
	return &TenantResolver{store: store, cache: c, ttl: ttl}
}

// Resolve returns the candidates for email. An empty subdomain searches
// tenant-less super admins only. An unknown subdomain is ErrNotFound and a
// suspended tenant is ErrForbidden.
func (r *TenantResolver) Resolve(ctx context.Context, subdomain, email string) (*Resolution, error) {
	subdomain = tenant.NormalizeSubdomain(subdomain)
	email = principal.NormalizeEmail(email)

	if subdomain == "" {
		cands, err := r.store.FindPrincipalsByEmail(ctx, email, "")
		if err != nil {
			return nil, fmt.Errorf("find super admins: %w", err)
		}
		return &Resolution{Candidates: superAdminsOnly(cands)}, nil
	}

	t, err := r.TenantBySubdomain(ctx, subdomain)
	if err != nil {
		return nil, err
	}
	if !t.CanLogin() {
		return nil, fmt.Errorf("%w: tenant %s is %s", domain.ErrForbidden, t.Subdomain, t.Status)
	}

	cands, err := r.store.FindPrincipalsByEmail(ctx, email, t.ID)
	if err != nil {
		return nil, fmt.Errorf("find principals: %w", err)
	}
	return &Resolution{Tenant: t, Candidates: cands}, nil
}

func superAdminsOnly(in []principal.Principal) []principal.Principal {
	out := in[:0]
	for i := range in {
		if in[i].Role == principal.RoleSuperAdmin && in[i].TenantID == "" {
			out = append(out, in[i])
		}
	}
	return out
}

// TenantBySubdomain returns the current tenant row for subdomain.
func (r *TenantResolver) TenantBySubdomain(ctx context.Context, subdomain string) (*tenant.Tenant, error) {
	key := subdomainKeyPrefix + subdomain

	if r.cache != nil {
		if id, ok, err := r.cache.Get(ctx, key); err == nil && ok {
			t, err := r.store.GetTenant(ctx, string(id))
			if err == nil {
				return t, nil
			}
			if !errors.Is(err, domain.ErrNotFound) {
				return nil, fmt.Errorf("get tenant: %w", err)
			}
			_ = r.cache.Delete(ctx, key)
		}
	}

	v, err, _ := r.group.Do(key, func() (any, error) {
		t, err := r.store.FindTenantBySubdomain(ctx, subdomain)
		if err != nil {
			return nil, err
		}
		if r.cache != nil {
			if err := r.cache.Set(ctx, key, []byte(t.ID), r.ttl); err != nil {
				slog.WarnContext(ctx, "subdomain cache set failed", "subdomain", subdomain, "error", err)
			}
		}
		return t, nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("tenant %q: %w", subdomain, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("find tenant: %w", err)
	}
	// singleflight shares the pointer between waiters.
	t := *(v.(*tenant.Tenant))
	return &t, nil
}

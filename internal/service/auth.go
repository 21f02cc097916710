package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	cfotel "github.com/Strob0t/Tasklane/internal/adapter/otel"
	"github.com/Strob0t/Tasklane/internal/config"
	"github.com/Strob0t/Tasklane/internal/domain"
	"github.com/Strob0t/Tasklane/internal/domain/access"
	"github.com/Strob0t/Tasklane/internal/domain/principal"
	"github.com/Strob0t/Tasklane/internal/domain/tenant"
	"github.com/Strob0t/Tasklane/internal/port/database"
	"github.com/Strob0t/Tasklane/internal/port/messagequeue"
)

// errInvalidLogin is the single failure reported for every login problem.
var errInvalidLogin = fmt.Errorf("%w: invalid credentials", domain.ErrAuth)

// RegisterResponse is returned after a successful signup.
type RegisterResponse struct {
	Tenant tenant.Tenant     `json:"tenant"`
	Admin  principal.Profile `json:"admin"`
}

// AuthService handles signup, login, logout and per-request authentication.
type AuthService struct {
	store    database.Store
	resolver *TenantResolver
	tokens   *TokenIssuer
	creds    *Credentials
	plans    config.Plans
	audit    *AuditService
	metrics  *cfotel.Metrics
}

// NewAuthService creates a new authentication service.
func NewAuthService(
	store database.Store,
	resolver *TenantResolver,
	tokens *TokenIssuer,
	creds *Credentials,
	plans config.Plans,
	audit *AuditService,
) *AuthService {
	return &AuthService{
		store:    store,
		resolver: resolver,
		tokens:   tokens,
		creds:    creds,
		plans:    plans,
		audit:    audit,
	}
}

// SetMetrics attaches login and authentication counters.
func (s *AuthService) SetMetrics(m *cfotel.Metrics) { s.metrics = m }

// Register creates a tenant on the free plan together with its first
// tenant admin. A taken subdomain is ErrConflict and writes nothing.
func (s *AuthService) Register(ctx context.Context, req tenant.RegisterRequest) (*RegisterResponse, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := principal.ValidateCredentials(req.AdminEmail, req.AdminPassword, req.AdminFullName); err != nil {
		return nil, err
	}

	limits, ok := s.plans.For(tenant.PlanFree)
	if !ok {
		return nil, errors.New("free plan limits not configured")
	}
	hash, err := s.creds.Hash(req.AdminPassword)
	if err != nil {
		return nil, err
	}

	t := &tenant.Tenant{
		ID:        uuid.NewString(),
		Name:      req.TenantName,
		Subdomain: req.Subdomain,
		Status:    tenant.StatusActive,
		Plan:      tenant.PlanFree,
		Limits:    limits,
	}
	admin := &principal.Principal{
		ID:           uuid.NewString(),
		Email:        req.AdminEmail,
		FullName:     req.AdminFullName,
		PasswordHash: hash,
		Role:         principal.RoleTenantAdmin,
		TenantID:     t.ID,
		Active:       true,
	}
	if err := s.store.RegisterTenant(ctx, t, admin); err != nil {
		return nil, fmt.Errorf("register tenant: %w", err)
	}

	slog.InfoContext(ctx, "tenant registered", "tenant_id", t.ID, "subdomain", t.Subdomain)
	s.audit.Record(ctx, messagequeue.AuditEvent{
		Subject:  messagequeue.SubjectTenantRegistered,
		ActorID:  admin.ID,
		TenantID: t.ID,
		TargetID: t.ID,
	})
	return &RegisterResponse{Tenant: *t, Admin: principal.ProfileOf(admin, t)}, nil
}

// Login verifies credentials and issues a session token. Unknown tenant,
// suspended tenant, unknown email, wrong password and inactive account all
// return the same ErrAuth.
func (s *AuthService) Login(ctx context.Context, req principal.LoginRequest) (resp *principal.LoginResponse, err error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	ctx, span := cfotel.StartLoginSpan(ctx, req.TenantSubdomain)
	defer func() {
		outcome := "success"
		if err != nil {
			outcome = "failure"
		}
		s.metrics.Login(ctx, outcome)
		cfotel.End(span, err)
	}()

	res, err := s.resolver.Resolve(ctx, req.TenantSubdomain, req.Email)
	if err != nil {
		if !domain.IsPolicy(err) {
			return nil, fmt.Errorf("resolve tenant: %w", err)
		}
		s.creds.Burn(req.Password)
		return nil, s.loginFailed(ctx, req, "", err.Error())
	}
	if len(res.Candidates) == 0 {
		s.creds.Burn(req.Password)
		return nil, s.loginFailed(ctx, req, tenantIDOf(res.Tenant), "unknown email")
	}

	p := &res.Candidates[0]
	ok, err := s.creds.Verify(req.Password, p.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verify credentials: %w", err)
	}
	if !ok {
		return nil, s.loginFailed(ctx, req, p.TenantID, "wrong password")
	}
	if !p.Active {
		return nil, s.loginFailed(ctx, req, p.TenantID, "inactive principal")
	}

	token, exp, err := s.tokens.Issue(p)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	slog.InfoContext(ctx, "login succeeded", "principal_id", p.ID, "tenant_id", p.TenantID, "role", p.Role)
	return &principal.LoginResponse{
		Token:     token,
		ExpiresAt: exp,
		Principal: principal.ProfileOf(p, res.Tenant),
	}, nil
}

func tenantIDOf(t *tenant.Tenant) string {
	if t == nil {
		return ""
	}
	return t.ID
}

// loginFailed logs and audits the real reason and returns the generic error.
func (s *AuthService) loginFailed(ctx context.Context, req principal.LoginRequest, tenantID, reason string) error {
	slog.InfoContext(ctx, "login rejected", "subdomain", req.TenantSubdomain, "reason", reason)
	s.audit.Record(ctx, messagequeue.AuditEvent{
		Subject:  messagequeue.SubjectLoginFailed,
		TenantID: tenantID,
		Reason:   reason,
	})
	return errInvalidLogin
}

// Authenticate turns a bearer token into the request's principal.Context.
// The token must verify and must not be revoked, and the principal it names
// must still exist, be active, and hold the role and tenant in the token.
// A revocation lookup failure denies the request.
func (s *AuthService) Authenticate(ctx context.Context, bearer string) (pc principal.Context, err error) {
	ctx, span := cfotel.StartAuthenticateSpan(ctx)
	defer func() {
		outcome := "success"
		switch {
		case errors.Is(err, domain.ErrAuth):
			outcome = "rejected"
		case err != nil:
			outcome = "error"
		}
		s.metrics.Authentication(ctx, outcome)
		cfotel.End(span, err)
	}()

	claims, err := s.tokens.Verify(bearer)
	if err != nil {
		return principal.Context{}, err
	}

	revoked, err := s.store.IsTokenRevoked(ctx, claims.ID)
	if err != nil {
		return principal.Context{}, fmt.Errorf("check token revocation: %w", err)
	}
	if revoked {
		return principal.Context{}, fmt.Errorf("%w: token revoked", domain.ErrAuth)
	}

	scope := access.TenantScope(claims.TenantID)
	if claims.Role == principal.RoleSuperAdmin {
		scope = access.Scope{AllTenants: true}
	}
	p, err := s.store.GetPrincipal(ctx, scope, claims.Subject)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return principal.Context{}, fmt.Errorf("%w: principal no longer exists", domain.ErrAuth)
		}
		return principal.Context{}, fmt.Errorf("load principal: %w", err)
	}
	if !p.Active || p.Role != claims.Role || p.TenantID != claims.TenantID {
		return principal.Context{}, fmt.Errorf("%w: principal changed since token was issued", domain.ErrAuth)
	}

	var t *tenant.Tenant
	if p.TenantID != "" {
		t, err = s.store.GetTenant(ctx, p.TenantID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return principal.Context{}, fmt.Errorf("%w: tenant no longer exists", domain.ErrAuth)
			}
			return principal.Context{}, fmt.Errorf("load tenant: %w", err)
		}
	}
	return principal.NewContext(p, t, claims.ID, claims.ExpiresAtTime()), nil
}

// Me returns the caller's profile with a fresh tenant summary.
func (s *AuthService) Me(ctx context.Context, pc principal.Context) (*principal.Profile, error) {
	if pc.IsZero() {
		return nil, domain.ErrAuth
	}
	p, err := s.store.GetPrincipal(ctx, access.ScopeFor(pc), pc.PrincipalID())
	if err != nil {
		return nil, err
	}
	var t *tenant.Tenant
	if p.TenantID != "" {
		if t, err = s.store.GetTenant(ctx, p.TenantID); err != nil {
			return nil, err
		}
	}
	prof := principal.ProfileOf(p, t)
	return &prof, nil
}

// Logout revokes the caller's token until its natural expiry.
func (s *AuthService) Logout(ctx context.Context, pc principal.Context) error {
	if pc.IsZero() || pc.TokenID() == "" {
		return domain.ErrAuth
	}
	if err := s.store.RevokeToken(ctx, pc.TokenID(), pc.ExpiresAt()); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

// StartRevocationPurge periodically deletes revocations whose tokens have
// expired anyway. It returns when ctx is cancelled.
func (s *AuthService) StartRevocationPurge(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.store.PurgeExpiredRevocations(ctx, time.Now())
			if err != nil {
				slog.WarnContext(ctx, "failed to purge expired token revocations", "error", err)
			} else if n > 0 {
				slog.InfoContext(ctx, "purged expired token revocations", "count", n)
			}
		}
	}
}

package principal

import (
	"errors"
	"testing"
	"time"

	"github.com/Strob0t/Tasklane/internal/domain"
	"github.com/Strob0t/Tasklane/internal/domain/tenant"
)

func TestPrincipal_Validate(t *testing.T) {
	tests := []struct {
		name    string
		p       Principal
		wantErr bool
	}{
		{"super admin without tenant", Principal{Role: RoleSuperAdmin}, false},
		{"super admin with tenant", Principal{Role: RoleSuperAdmin, TenantID: "t1"}, true},
		{"admin with tenant", Principal{Role: RoleTenantAdmin, TenantID: "t1"}, false},
		{"member without tenant", Principal{Role: RoleMember}, true},
		{"unknown role", Principal{Role: "owner", TenantID: "t1"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.p.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("error %v does not wrap ErrValidation", err)
			}
		})
	}
}

func TestCreateRequest_Validate(t *testing.T) {
	r := CreateRequest{Email: "  Bob@Example.COM ", Password: "longenough", FullName: " Bob "}
	if err := r.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Email != "bob@example.com" {
		t.Errorf("email = %q, want normalized", r.Email)
	}
	if r.Role != RoleMember {
		t.Errorf("role = %q, want member default", r.Role)
	}

	bad := []CreateRequest{
		{Email: "not-an-email", Password: "longenough", FullName: "x"},
		{Email: "a@b.com", Password: "short", FullName: "x"},
		{Email: "a@b.com", Password: "longenough", FullName: ""},
		{Email: "a@b.com", Password: "longenough", FullName: "x", Role: RoleSuperAdmin},
	}
	for i, r := range bad {
		if err := r.Validate(); !errors.Is(err, domain.ErrValidation) {
			t.Errorf("case %d: err = %v, want ErrValidation", i, err)
		}
	}
}

func TestLoginRequest_Validate(t *testing.T) {
	r := LoginRequest{Email: " Admin@Demo.com", Password: "x", TenantSubdomain: " DEMO "}
	if err := r.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Email != "admin@demo.com" || r.TenantSubdomain != "demo" {
		t.Errorf("not normalized: %+v", r)
	}
	if err := (&LoginRequest{Email: "a@b.com"}).Validate(); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("missing password: err = %v", err)
	}
}

func TestContext(t *testing.T) {
	exp := time.Now().Add(time.Hour)
	p := &Principal{ID: "u1", Email: "a@b.com", Role: RoleMember, TenantID: "t1"}
	c := NewContext(p, &tenant.Tenant{ID: "t1", Status: tenant.StatusSuspended}, "jti-1", exp)

	if c.IsZero() || c.IsSuperAdmin() {
		t.Fatal("member context reported as zero or super admin")
	}
	if !c.OwnsTenant("t1") || c.OwnsTenant("t2") || c.OwnsTenant("") {
		t.Error("OwnsTenant mismatch")
	}
	if !c.TenantSuspended() {
		t.Error("TenantSuspended = false, want true")
	}
	if c.TokenID() != "jti-1" || !c.ExpiresAt().Equal(exp) {
		t.Error("token metadata not carried")
	}

	// Mutating the source principal must not affect the built context.
	p.TenantID = "t2"
	if c.TenantID() != "t1" {
		t.Error("context changed after principal mutation")
	}

	super := NewContext(&Principal{ID: "s", Role: RoleSuperAdmin}, nil, "", exp)
	if !super.IsSuperAdmin() || super.OwnsTenant("") {
		t.Error("super admin context must own no tenant")
	}
}

package tenant

import (
	"errors"
	"testing"

	"github.com/Strob0t/Tasklane/internal/domain"
)

func TestValidateSubdomain(t *testing.T) {
	valid := []string{"acme", "abc", "my-company", "a1b2c3"}
	for _, s := range valid {
		if err := ValidateSubdomain(s); err != nil {
			t.Errorf("ValidateSubdomain(%q) = %v, want nil", s, err)
		}
	}
	invalid := []string{"", "ab", "-acme", "acme-", "Acme", "ac me", "acme.io"}
	for _, s := range invalid {
		if err := ValidateSubdomain(s); !errors.Is(err, domain.ErrValidation) {
			t.Errorf("ValidateSubdomain(%q) = %v, want ErrValidation", s, err)
		}
	}
}

func TestUpdateRequest(t *testing.T) {
	zero := 0
	if err := (&UpdateRequest{MaxUsers: &zero}).Validate(); err == nil {
		t.Error("maxUsers 0 accepted")
	}
	if err := (&UpdateRequest{Status: "closed"}).Validate(); err == nil {
		t.Error("unknown status accepted")
	}

	name := UpdateRequest{Name: "New"}
	if name.TouchesManagedFields() {
		t.Error("name-only update reported as managed")
	}

	ten := 10
	r := UpdateRequest{Status: StatusSuspended, MaxProjects: &ten}
	if !r.TouchesManagedFields() {
		t.Error("status update not reported as managed")
	}
	tn := Tenant{Name: "Old", Status: StatusActive, Limits: Limits{MaxUsers: 5, MaxProjects: 3}}
	r.Apply(&tn)
	if tn.Status != StatusSuspended || tn.MaxProjects != 10 || tn.MaxUsers != 5 || tn.Name != "Old" {
		t.Errorf("Apply result = %+v", tn)
	}
}

func TestTenant_LoginGate(t *testing.T) {
	cases := map[Status]bool{StatusActive: true, StatusTrial: true, StatusSuspended: false}
	for st, want := range cases {
		tn := Tenant{Status: st}
		if got := tn.CanLogin(); got != want {
			t.Errorf("CanLogin(%s) = %v, want %v", st, got, want)
		}
	}
}

func TestLimits_Ceiling(t *testing.T) {
	l := Limits{MaxUsers: 5, MaxProjects: 3}
	if l.Ceiling(ResourceUsers) != 5 || l.Ceiling(ResourceProjects) != 3 || l.Ceiling(ResourceTasks) != 0 {
		t.Errorf("unexpected ceilings for %+v", l)
	}
}

func TestRegisterRequest(t *testing.T) {
	r := RegisterRequest{TenantName: " Acme ", Subdomain: " ACME ", AdminEmail: " A@B.com "}
	r.Normalize()
	if r.TenantName != "Acme" || r.Subdomain != "acme" || r.AdminEmail != "a@b.com" {
		t.Errorf("Normalize result = %+v", r)
	}
	if err := r.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
	r.TenantName = ""
	if err := r.Validate(); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("missing name: err = %v", err)
	}
}

package messagequeue

import (
	"strings"
	"testing"
)

func TestValidateValidAuditEvent(t *testing.T) {
	data := []byte(`{"subject":"audit.tenant.registered","tenant_id":"t1","at":"2026-01-02T03:04:05Z"}`)
	if err := Validate(SubjectTenantRegistered, data); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateInvalidJSON(t *testing.T) {
	err := Validate(SubjectLoginFailed, []byte(`{not json`))
	if err == nil {
		t.Fatal("expected error for invalid JSON")
	}
	if !strings.Contains(err.Error(), "invalid JSON") {
		t.Errorf("unexpected error message: %v", err)
	}
}

func TestValidateSubjectMismatch(t *testing.T) {
	data := []byte(`{"subject":"audit.tenant.updated","at":"2026-01-02T03:04:05Z"}`)
	if err := Validate(SubjectPrincipalCreated, data); err == nil {
		t.Fatal("expected error for mismatched subject field")
	}
}

func TestValidateMissingTimestamp(t *testing.T) {
	data := []byte(`{"subject":"audit.principal.deleted"}`)
	if err := Validate(SubjectPrincipalDeleted, data); err == nil {
		t.Fatal("expected error for missing timestamp")
	}
}

func TestValidateWrongFieldType(t *testing.T) {
	data := []byte(`{"subject":"audit.auth.login_failed","tenant_id":42,"at":"2026-01-02T03:04:05Z"}`)
	if err := Validate(SubjectLoginFailed, data); err == nil {
		t.Fatal("expected error for numeric tenant_id")
	}
}

func TestValidateUnknownSubjectPasses(t *testing.T) {
	if err := Validate("health.ping", []byte(`{"anything":true}`)); err != nil {
		t.Fatalf("unknown subject should pass, got %v", err)
	}
}

package messagequeue

import "time"

// AuditEvent is the schema shared by every audit.* subject. Secrets and
// password material are never part of an event.
type AuditEvent struct {
	Subject   string    `json:"subject"`
	ActorID   string    `json:"actor_id,omitempty"`
	ActorRole string    `json:"actor_role,omitempty"`
	TenantID  string    `json:"tenant_id,omitempty"`
	TargetID  string    `json:"target_id,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
	At        time.Time `json:"at"`
}

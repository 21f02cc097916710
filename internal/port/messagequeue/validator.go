package messagequeue

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Validate checks whether data is valid JSON conforming to the schema
// associated with the given subject. Unknown subjects pass validation.
func Validate(subject string, data []byte) error {
	if !json.Valid(data) {
		return fmt.Errorf("invalid JSON on subject %s", subject)
	}
	if !strings.HasPrefix(subject, SubjectAuditPrefix) {
		return nil
	}

	var ev AuditEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return fmt.Errorf("schema validation failed for %s: %w", subject, err)
	}
	if ev.Subject != subject {
		return fmt.Errorf("schema validation failed for %s: subject field %q does not match", subject, ev.Subject)
	}
	if ev.At.IsZero() {
		return fmt.Errorf("schema validation failed for %s: missing timestamp", subject)
	}
	return nil
}

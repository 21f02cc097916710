package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "tasklane"

// Metrics holds the authorization core's instruments. Every method is safe
// on a nil *Metrics so services run unchanged without telemetry.
type Metrics struct {
	logins          metric.Int64Counter
	authentications metric.Int64Counter
	policyDenials   metric.Int64Counter
	quotaRejections metric.Int64Counter
	auditDropped    metric.Int64Counter
}

// NewMetrics creates all metric instruments on the global meter provider.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.logins, err = meter.Int64Counter("tasklane.auth.logins",
		metric.WithDescription("Login attempts by outcome"))
	if err != nil {
		return nil, err
	}

	m.authentications, err = meter.Int64Counter("tasklane.auth.authentications",
		metric.WithDescription("Bearer token authentications by outcome"))
	if err != nil {
		return nil, err
	}

	m.policyDenials, err = meter.Int64Counter("tasklane.authz.denials",
		metric.WithDescription("Requests refused by policy, by error code"))
	if err != nil {
		return nil, err
	}

	m.quotaRejections, err = meter.Int64Counter("tasklane.quota.rejections",
		metric.WithDescription("Creations refused by a tenant ceiling"))
	if err != nil {
		return nil, err
	}

	m.auditDropped, err = meter.Int64Counter("tasklane.audit.dropped",
		metric.WithDescription("Audit events that could not be published"))
	if err != nil {
		return nil, err
	}

	return m, nil
}

func add(ctx context.Context, c metric.Int64Counter, key, value string) {
	c.Add(ctx, 1, metric.WithAttributes(attribute.String(key, value)))
}

// Login counts one login attempt; outcome is "success" or "failure".
func (m *Metrics) Login(ctx context.Context, outcome string) {
	if m != nil {
		add(ctx, m.logins, "outcome", outcome)
	}
}

// Authentication counts one bearer token check.
func (m *Metrics) Authentication(ctx context.Context, outcome string) {
	if m != nil {
		add(ctx, m.authentications, "outcome", outcome)
	}
}

// PolicyDenial counts one request refused with the given error code.
func (m *Metrics) PolicyDenial(ctx context.Context, code string) {
	if m != nil {
		add(ctx, m.policyDenials, "code", code)
	}
}

// QuotaRejection counts one creation refused for kind.
func (m *Metrics) QuotaRejection(ctx context.Context, kind string) {
	if m != nil {
		add(ctx, m.quotaRejections, "kind", kind)
	}
}

// AuditDropped counts one unpublished audit event.
func (m *Metrics) AuditDropped(ctx context.Context, subject string) {
	if m != nil {
		add(ctx, m.auditDropped, "subject", subject)
	}
}

package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "tasklane"

// StartLoginSpan starts a span for a login attempt. The email is not recorded.
func StartLoginSpan(ctx context.Context, subdomain string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "auth.login",
		trace.WithAttributes(attribute.String("tenant.subdomain", subdomain)),
	)
}

// StartAuthenticateSpan starts a span for bearer token authentication.
func StartAuthenticateSpan(ctx context.Context) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "auth.authenticate")
}

// StartQuotaSpan starts a span for a quota-checked creation.
func StartQuotaSpan(ctx context.Context, tenantID, kind string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "quota.create",
		trace.WithAttributes(
			attribute.String("tenant.id", tenantID),
			attribute.String("quota.kind", kind),
		),
	)
}

// End finishes span, marking it failed when err is non-nil.
func End(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

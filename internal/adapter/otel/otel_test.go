package otel

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.opentelemetry.io/otel/trace"

	"github.com/Strob0t/Tasklane/internal/config"
)

func TestSetupDisabled(t *testing.T) {
	shutdown, err := Setup(context.Background(), config.OTEL{Enabled: false})
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("shutdown: %v", err)
	}
}

func TestMetricsNilSafe(t *testing.T) {
	var m *Metrics
	ctx := context.Background()
	m.Login(ctx, "success")
	m.Authentication(ctx, "failure")
	m.PolicyDenial(ctx, "NOT_FOUND")
	m.QuotaRejection(ctx, "projects")
	m.AuditDropped(ctx, "audit.auth.login_failed")
}

func TestNewMetrics(t *testing.T) {
	m, err := NewMetrics()
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	m.QuotaRejection(context.Background(), "projects")
	m.PolicyDenial(context.Background(), "FORBIDDEN")
}

func TestSpansWithNoopProvider(t *testing.T) {
	ctx, span := StartQuotaSpan(context.Background(), "t-1", "projects")
	if !trace.SpanFromContext(ctx).SpanContext().Equal(span.SpanContext()) {
		t.Error("span not stored in context")
	}
	End(span, errors.New("quota exceeded"))

	_, span = StartAuthenticateSpan(context.Background())
	End(span, nil)
}

func TestHTTPMiddlewarePassesThrough(t *testing.T) {
	h := HTTPMiddleware("tasklane")(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/projects", http.NoBody))
	if rec.Code != http.StatusTeapot {
		t.Errorf("status = %d", rec.Code)
	}
}

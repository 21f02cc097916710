package http

import (
	"net/http"
	"strings"
	"net/http/httptest"
	"testing"
)

func TestSecurityHeaders(t *testing.T) {
	h := SecurityHeaders(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", http.NoBody))

	for _, name := range []string{"X-Content-Type-Options", "X-Frame-Options", "Cache-Control", "Content-Security-Policy"} {
		if w.Header().Get(name) == "" {
			t.Errorf("missing %s", name)
		}
	}
}

func TestCORS_Preflight(t *testing.T) {
	called := false
	h := CORS("https://app.example.com")(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		called = true
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/api/projects", http.NoBody))
	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", w.Code)
	}
	if called {
		t.Fatal("preflight reached the handler")
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
		t.Fatalf("origin = %q", got)
	}
}

func TestResponseWriter_KeepsFirstStatus(t *testing.T) {
	inner := httptest.NewRecorder()
	rw := &responseWriter{ResponseWriter: inner, status: http.StatusOK}

	rw.WriteHeader(http.StatusTeapot)
	rw.WriteHeader(http.StatusInternalServerError)
	if rw.status != http.StatusTeapot {
		t.Fatalf("status = %d, want 418", rw.status)
	}
	if rw.Unwrap() != inner {
		t.Fatal("Unwrap did not return the inner writer")
	}
}

func TestHTTPMetrics_RecordsRoutePattern(t *testing.T) {
	m := NewHTTPMetrics()
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/projects", http.NoBody))

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if body := w.Body.String(); !strings.Contains(body, "tasklane_http_requests_total") {
		t.Fatal("request counter missing from exposition")
	}
}

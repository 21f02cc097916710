package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	cfotel "github.com/Strob0t/Tasklane/internal/adapter/otel"
	"github.com/Strob0t/Tasklane/internal/service"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handlers holds the services behind the HTTP API.
type Handlers struct {
	Auth     *service.AuthService
	Tenants  *service.TenantService
	Users    *service.UserService
	Projects *service.ProjectService
	Tasks    *service.TaskService
	DB       Pinger
	Metrics  *cfotel.Metrics // nil disables policy denial counters
}

type healthResponse struct {
	Status    string    `json:"status"`
	Database  string    `json:"database"`
	Timestamp time.Time `json:"timestamp"`
}

// Health handles GET /api/health.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.DB.Ping(ctx); err != nil {
		slog.WarnContext(r.Context(), "health check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, healthResponse{
			Status: "error", Database: "disconnected", Timestamp: time.Now().UTC(),
		})
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{
		Status: "ok", Database: "connected", Timestamp: time.Now().UTC(),
	})
}

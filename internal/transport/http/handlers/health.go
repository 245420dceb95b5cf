package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/baechuer/curation-service/internal/transport/http/response"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	deps map[string]Pinger
}

// NewHealthHandler takes named dependencies checked by Readyz; nil entries
// are skipped.
func NewHealthHandler(deps map[string]Pinger) *HealthHandler {
	return &HealthHandler{deps: deps}
}

func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	response.Data(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := map[string]string{}
	ready := true
	for name, p := range h.deps {
		if p == nil {
			continue
		}
		if err := p.Ping(ctx); err != nil {
			status[name] = "down"
			ready = false
			continue
		}
		status[name] = "ok"
	}
	if !ready {
		response.Fail(w, http.StatusServiceUnavailable, "not_ready", "dependencies unavailable", status,
			response.RequestIDFromRequest(r))
		return
	}
	response.Data(w, http.StatusOK, status)
}

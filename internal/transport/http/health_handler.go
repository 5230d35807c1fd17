package http

import (
	"net/http"
	"time"

	"github.com/go-chi/render"
)

// HealthHandler serves liveness checks.
type HealthHandler struct {
	startedAt time.Time
	version   string
}

// NewHealthHandler creates the handler.
func NewHealthHandler(version string) *HealthHandler {
	return &HealthHandler{startedAt: time.Now().UTC(), version: version}
}

// Healthz handles GET /healthz.
func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]any{
		"status":  "ok",
		"version": h.version,
		"uptime":  time.Since(h.startedAt).String(),
	})
}

package handlers

import (
	"net/http"

	"github.com/spendlens/spendlens/internal/pkg/logger"
)

// HealthHandler handles liveness and readiness probes.
type HealthHandler struct {
	logger *logger.Logger
}

// NewHealthHandler creates a health handler.
func NewHealthHandler(log *logger.Logger) *HealthHandler {
	return &HealthHandler{logger: log}
}

// Healthz handles the liveness probe.
func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Readyz handles the readiness probe. The pipeline has no hard backing
// service, so readiness equals liveness.
func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

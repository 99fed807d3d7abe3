package handlers

import (
	"net/http"

	"github.com/spendlens/spendlens/internal/domain/cost"
	"github.com/spendlens/spendlens/internal/pkg/logger"
	"github.com/spendlens/spendlens/internal/providers"
)

// StatusHandler reports per-provider availability.
type StatusHandler struct {
	probe  providers.StatusProbe
	logger *logger.Logger
}

// NewStatusHandler creates a status handler.
func NewStatusHandler(probe providers.StatusProbe, log *logger.Logger) *StatusHandler {
	return &StatusHandler{probe: probe, logger: log}
}

// List handles GET /api/v1/providers/status
func (h *StatusHandler) List(w http.ResponseWriter, r *http.Request) {
	statuses := make([]providers.Status, 0, len(cost.KnownProviders))
	for _, name := range cost.KnownProviders {
		statuses = append(statuses, h.probe.Status(r.Context(), name))
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"providers": statuses})
}

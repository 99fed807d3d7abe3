package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/spendlens/spendlens/internal/api/dto"
	"github.com/spendlens/spendlens/internal/domain/analysis"
	"github.com/spendlens/spendlens/internal/domain/cost"
	snapdomain "github.com/spendlens/spendlens/internal/domain/snapshot"
	"github.com/spendlens/spendlens/internal/orchestrator"
	apperrors "github.com/spendlens/spendlens/internal/pkg/errors"
	"github.com/spendlens/spendlens/internal/pkg/logger"
	"github.com/spendlens/spendlens/internal/pkg/validator"
	"github.com/spendlens/spendlens/internal/snapshot"
)

// SnapshotHandler persists and serves named snapshots and their diffs.
type SnapshotHandler struct {
	store     snapdomain.Store
	orch      *orchestrator.Orchestrator
	validator *validator.Validator
	logger    *logger.Logger
}

// NewSnapshotHandler creates a snapshot handler.
func NewSnapshotHandler(store snapdomain.Store, orch *orchestrator.Orchestrator,
	val *validator.Validator, log *logger.Logger) *SnapshotHandler {
	return &SnapshotHandler{store: store, orch: orch, validator: val, logger: log}
}

// Save handles POST /api/v1/snapshots. It runs an analysis for the requested
// provider (or aggregate) and captures the outcome under the given name.
func (h *SnapshotHandler) Save(w http.ResponseWriter, r *http.Request) {
	var req dto.SaveSnapshotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, apperrors.BadRequest("invalid JSON body"))
		return
	}
	if errs := h.validator.Validate(req); len(errs) > 0 {
		respondValidation(w, errs)
		return
	}
	if req.Days == 0 {
		req.Days = 30
	}
	if req.Provider == "" {
		req.Provider = analysis.AggregateProvider
	}

	window := cost.LastDays(req.Days, time.Now().UTC())
	var result *analysis.Result
	var err error
	if req.Provider == analysis.AggregateProvider {
		result, err = h.orch.Aggregate(r.Context(), nil, window)
	} else {
		result, err = h.orch.Analyze(r.Context(), req.Provider, window)
	}
	if err != nil {
		respondError(w, err)
		return
	}

	snap := snapshot.FromResult(req.Name, time.Now().UTC(), result)
	if err := h.store.Save(r.Context(), snap, req.Overwrite); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, snap)
}

// List handles GET /api/v1/snapshots
func (h *SnapshotHandler) List(w http.ResponseWriter, r *http.Request) {
	snaps, err := h.store.List(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"snapshots": snaps})
}

// Get handles GET /api/v1/snapshots/{name}
func (h *SnapshotHandler) Get(w http.ResponseWriter, r *http.Request) {
	snap, err := h.store.Get(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, snap)
}

// Delete handles DELETE /api/v1/snapshots/{name}
func (h *SnapshotHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Delete(r.Context(), chi.URLParam(r, "name")); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Diff handles GET /api/v1/snapshots/{name}/diff/{other}. {name} is the
// baseline, {other} the current state.
func (h *SnapshotHandler) Diff(w http.ResponseWriter, r *http.Request) {
	baseline, err := h.store.Get(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		respondError(w, err)
		return
	}
	current, err := h.store.Get(r.Context(), chi.URLParam(r, "other"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, snapshot.Diff(baseline, current))
}

package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/spendlens/spendlens/internal/domain/analysis"
	"github.com/spendlens/spendlens/internal/domain/cost"
	"github.com/spendlens/spendlens/internal/insights"
	"github.com/spendlens/spendlens/internal/orchestrator"
	"github.com/spendlens/spendlens/internal/pkg/logger"
)

// AnalysisHandler serves single-provider and aggregate analysis runs.
type AnalysisHandler struct {
	orch      *orchestrator.Orchestrator
	generator *insights.Generator
	logger    *logger.Logger
}

// NewAnalysisHandler creates an analysis handler.
func NewAnalysisHandler(orch *orchestrator.Orchestrator, gen *insights.Generator, log *logger.Logger) *AnalysisHandler {
	return &AnalysisHandler{orch: orch, generator: gen, logger: log}
}

type analysisResponse struct {
	*analysis.Result
	Insights []string `json:"insights,omitempty"`
}

// Analyze handles GET /api/v1/analysis/{provider}?days=30&insights=true
func (h *AnalysisHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")
	days, err := queryDays(r, 30)
	if err != nil {
		respondError(w, err)
		return
	}

	window := cost.LastDays(days, time.Now().UTC())
	result, err := h.orch.Analyze(r.Context(), provider, window)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, h.withInsights(r, result))
}

// Aggregate handles GET /api/v1/analysis?providers=gcp,aws&days=30
func (h *AnalysisHandler) Aggregate(w http.ResponseWriter, r *http.Request) {
	days, err := queryDays(r, 30)
	if err != nil {
		respondError(w, err)
		return
	}

	var names []string
	if raw := r.URL.Query().Get("providers"); raw != "" {
		for _, name := range strings.Split(raw, ",") {
			if name = strings.TrimSpace(name); name != "" {
				names = append(names, name)
			}
		}
	}

	window := cost.LastDays(days, time.Now().UTC())
	result, err := h.orch.Aggregate(r.Context(), names, window)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, h.withInsights(r, result))
}

func (h *AnalysisHandler) withInsights(r *http.Request, result *analysis.Result) analysisResponse {
	resp := analysisResponse{Result: result}
	if r.URL.Query().Get("insights") == "true" {
		resp.Insights = h.generator.Narrate(r.Context(), result)
	}
	return resp
}

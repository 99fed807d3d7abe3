package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/spendlens/spendlens/internal/api/handlers"
	"github.com/spendlens/spendlens/internal/api/middleware"
	"github.com/spendlens/spendlens/internal/pkg/logger"
	"github.com/spendlens/spendlens/internal/pkg/metrics"
)

// Handlers bundles the API's handler set.
type Handlers struct {
	Health   *handlers.HealthHandler
	Analysis *handlers.AnalysisHandler
	Status   *handlers.StatusHandler
	Snapshot *handlers.SnapshotHandler
}

// New assembles the router with the standard middleware chain.
func New(log *logger.Logger, h *Handlers) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(log))
	r.Use(middleware.Recovery(log))
	r.Use(middleware.CORS([]string{"*"}))
	r.Use(metrics.Middleware)

	r.Get("/healthz", h.Health.Healthz)
	r.Get("/readyz", h.Health.Readyz)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/analysis", h.Analysis.Aggregate)
		r.Get("/analysis/{provider}", h.Analysis.Analyze)

		r.Get("/providers/status", h.Status.List)

		r.Route("/snapshots", func(r chi.Router) {
			r.Get("/", h.Snapshot.List)
			r.Post("/", h.Snapshot.Save)
			r.Get("/{name}", h.Snapshot.Get)
			r.Delete("/{name}", h.Snapshot.Delete)
			r.Get("/{name}/diff/{other}", h.Snapshot.Diff)
		})
	})

	return r
}

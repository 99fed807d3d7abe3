package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spendlens/spendlens/internal/analytics"
	"github.com/spendlens/spendlens/internal/api/handlers"
	"github.com/spendlens/spendlens/internal/api/router"
	"github.com/spendlens/spendlens/internal/config"
	"github.com/spendlens/spendlens/internal/governance"
	"github.com/spendlens/spendlens/internal/history"
	"github.com/spendlens/spendlens/internal/insights"
	"github.com/spendlens/spendlens/internal/normalize"
	"github.com/spendlens/spendlens/internal/orchestrator"
	"github.com/spendlens/spendlens/internal/pkg/logger"
	"github.com/spendlens/spendlens/internal/pkg/validator"
	"github.com/spendlens/spendlens/internal/providers"
	"github.com/spendlens/spendlens/internal/snapshot"
	"github.com/spendlens/spendlens/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	log := logger.Default()

	registry := providers.NewRegistry(
		providers.WithFetchPolicy(providers.NewAWSAdapter(cfg.Providers.AWS, log), cfg.Fetch, log),
		providers.WithFetchPolicy(providers.NewGCPAdapter(cfg.Providers.GCP, log), cfg.Fetch, log),
		providers.WithFetchPolicy(providers.NewAzureAdapter(cfg.Providers.Azure, log), cfg.Fetch, log),
	)

	policies, err := governance.LoadFile(cfg.Analytics.PolicyFile, log)
	if err != nil {
		log.ErrorWithErr(err, "failed to load governance policies")
		os.Exit(1)
	}

	hist, err := history.Open(cfg.History.Path, log)
	if err != nil {
		log.Warnf("cost history disabled: %v", err)
		hist = nil
	}

	store, err := snapshot.NewFileStore(cfg.Snapshot.Dir, log)
	if err != nil {
		log.ErrorWithErr(err, "failed to open snapshot store")
		os.Exit(1)
	}

	orch := orchestrator.New(registry, normalize.New(log),
		analytics.NewAggregator(cfg.Analytics, log), policies, hist, log)
	generator := insights.NewGenerator(cfg.Insights, log)

	h := &router.Handlers{
		Health:   handlers.NewHealthHandler(log),
		Analysis: handlers.NewAnalysisHandler(orch, generator, log),
		Status:   handlers.NewStatusHandler(providers.NewCLIProbe(cfg.Providers), log),
		Snapshot: handlers.NewSnapshotHandler(store, orch, validator.New(), log),
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.New(log, h),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	var collector *worker.Collector
	if cfg.Collector.Enabled {
		collector = worker.NewCollector(orch, cfg.Collector, log)
		if err := collector.Start(context.Background()); err != nil {
			log.ErrorWithErr(err, "failed to start collector")
			os.Exit(1)
		}
	}

	go func() {
		log.Infof("server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.ErrorWithErr(err, "server failed")
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down")

	if collector != nil {
		collector.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.ErrorWithErr(err, "forced shutdown")
	}
	if hist != nil {
		_ = hist.Close()
	}
	log.Info("server stopped")
}

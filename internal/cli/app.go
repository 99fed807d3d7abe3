package cli

import (
	"github.com/spendlens/spendlens/internal/analytics"
	"github.com/spendlens/spendlens/internal/config"
	"github.com/spendlens/spendlens/internal/governance"
	"github.com/spendlens/spendlens/internal/history"
	"github.com/spendlens/spendlens/internal/insights"
	"github.com/spendlens/spendlens/internal/normalize"
	"github.com/spendlens/spendlens/internal/orchestrator"
	"github.com/spendlens/spendlens/internal/pkg/logger"
	"github.com/spendlens/spendlens/internal/providers"
	"github.com/spendlens/spendlens/internal/snapshot"
)

// app holds the wired pipeline shared by all commands. Commands run against
// the local credentials; there is no server between the CLI and the
// providers.
type app struct {
	cfg       *config.Config
	log       *logger.Logger
	probe     providers.StatusProbe
	orch      *orchestrator.Orchestrator
	store     *snapshot.FileStore
	generator *insights.Generator
	history   *history.Store
}

var current *app

func initApp() error {
	if current != nil {
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Keep pipeline logs off the table output unless asked for.
	level := cfg.Logging.Level
	if level == "info" {
		level = "warn"
	}
	log := logger.New(logger.Config{Level: level, Format: "console"})

	registry := providers.NewRegistry(
		providers.WithFetchPolicy(providers.NewAWSAdapter(cfg.Providers.AWS, log), cfg.Fetch, log),
		providers.WithFetchPolicy(providers.NewGCPAdapter(cfg.Providers.GCP, log), cfg.Fetch, log),
		providers.WithFetchPolicy(providers.NewAzureAdapter(cfg.Providers.Azure, log), cfg.Fetch, log),
	)

	policies, err := governance.LoadFile(cfg.Analytics.PolicyFile, log)
	if err != nil {
		return err
	}

	hist, err := history.Open(cfg.History.Path, log)
	if err != nil {
		log.Warnf("cost history disabled: %v", err)
		hist = nil
	}

	store, err := snapshot.NewFileStore(cfg.Snapshot.Dir, log)
	if err != nil {
		return err
	}

	current = &app{
		cfg:   cfg,
		log:   log,
		probe: providers.NewCLIProbe(cfg.Providers),
		orch: orchestrator.New(registry, normalize.New(log),
			analytics.NewAggregator(cfg.Analytics, log), policies, hist, log),
		store:     store,
		generator: insights.NewGenerator(cfg.Insights, log),
		history:   hist,
	}
	return nil
}

func closeApp() {
	if current != nil && current.history != nil {
		_ = current.history.Close()
	}
}

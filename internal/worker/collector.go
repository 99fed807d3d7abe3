package worker

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/spendlens/spendlens/internal/config"
	"github.com/spendlens/spendlens/internal/domain/cost"
	"github.com/spendlens/spendlens/internal/orchestrator"
	"github.com/spendlens/spendlens/internal/pkg/logger"
)

// Collector runs aggregate analysis on a cron schedule so the spend history
// keeps filling without anyone invoking the CLI. Each run covers the
// configured number of trailing days ending yesterday.
type Collector struct {
	orch   *orchestrator.Orchestrator
	cfg    config.CollectorConfig
	cron   *cron.Cron
	logger *logger.Logger
}

// NewCollector creates a collector worker.
func NewCollector(orch *orchestrator.Orchestrator, cfg config.CollectorConfig, log *logger.Logger) *Collector {
	return &Collector{
		orch:   orch,
		cfg:    cfg,
		logger: log,
	}
}

// Start schedules collection runs and performs one immediately. It returns
// after scheduling; Stop tears the schedule down.
func (c *Collector) Start(ctx context.Context) error {
	c.cron = cron.New()
	_, err := c.cron.AddFunc(c.cfg.Schedule, func() {
		c.RunOnce(ctx)
	})
	if err != nil {
		return err
	}

	c.logger.WithFields(map[string]interface{}{
		"schedule": c.cfg.Schedule,
		"days":     c.cfg.Days,
	}).Info("collector started")

	go c.RunOnce(ctx)
	c.cron.Start()
	return nil
}

// Stop halts the schedule and waits for a running job to finish.
func (c *Collector) Stop() {
	if c.cron == nil {
		return
	}
	stopCtx := c.cron.Stop()
	<-stopCtx.Done()
	c.logger.Info("collector stopped")
}

// RunOnce performs a single collection run over the trailing window.
func (c *Collector) RunOnce(ctx context.Context) {
	window := cost.LastDays(c.cfg.Days, time.Now().UTC())
	c.logger.Infof("collection run starting for %s", window)

	result, err := c.orch.Aggregate(ctx, nil, window)
	if err != nil {
		c.logger.ErrorWithErr(err, "collection run failed")
		return
	}
	c.logger.WithFields(map[string]interface{}{
		"window": window.String(),
		"total":  result.Summary.TotalCost,
		"issues": len(result.GovernanceIssues),
	}).Info("collection run complete")
}

package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/spendlens/spendlens/internal/worker"
)

func newCollectCmd() *cobra.Command {
	var days int
	var watch bool
	var schedule string

	cmd := &cobra.Command{
		Use:   "collect",
		Short: "Run a collection pass into the cost history",
		Long: `collect runs the aggregate pipeline and stores the normalized records in
the local cost history database. With --watch it keeps running on the
configured cron schedule until interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := current.cfg.Collector
			if days > 0 {
				cfg.Days = days
			}
			if schedule != "" {
				cfg.Schedule = schedule
			}
			if err := checkDays(cfg.Days); err != nil {
				return err
			}

			collector := worker.NewCollector(current.orch, cfg, current.log)
			ctx := context.Background()

			if !watch {
				collector.RunOnce(ctx)
				return nil
			}

			if err := collector.Start(ctx); err != nil {
				return err
			}
			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			<-quit
			collector.Stop()
			return nil
		},
	}

	cmd.Flags().IntVar(&days, "days", 0, "window length per collection run")
	cmd.Flags().BoolVar(&watch, "watch", false, "keep collecting on the cron schedule")
	cmd.Flags().StringVar(&schedule, "schedule", "", "cron schedule override for --watch")

	return cmd
}

package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/spendlens/spendlens/internal/api/handlers"
	"github.com/spendlens/spendlens/internal/api/router"
	"github.com/spendlens/spendlens/internal/pkg/validator"
	"github.com/spendlens/spendlens/internal/worker"
)

func newServeCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the analysis API over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := current.cfg
			if port == 0 {
				port = cfg.Server.Port
			}

			h := &router.Handlers{
				Health:   handlers.NewHealthHandler(current.log),
				Analysis: handlers.NewAnalysisHandler(current.orch, current.generator, current.log),
				Status:   handlers.NewStatusHandler(current.probe, current.log),
				Snapshot: handlers.NewSnapshotHandler(current.store, current.orch, validator.New(), current.log),
			}

			srv := &http.Server{
				Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, port),
				Handler:      router.New(current.log, h),
				ReadTimeout:  cfg.Server.ReadTimeout,
				WriteTimeout: cfg.Server.WriteTimeout,
			}

			var collector *worker.Collector
			if cfg.Collector.Enabled {
				collector = worker.NewCollector(current.orch, cfg.Collector, current.log)
				if err := collector.Start(context.Background()); err != nil {
					return err
				}
			}

			errCh := make(chan error, 1)
			go func() {
				current.log.Infof("server listening on %s", srv.Addr)
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- err
				}
			}()

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			select {
			case err := <-errCh:
				return err
			case <-quit:
			}

			if collector != nil {
				collector.Stop()
			}
			ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			return srv.Shutdown(ctx)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "listen port override")

	return cmd
}

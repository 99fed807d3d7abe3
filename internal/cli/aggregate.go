package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/spendlens/spendlens/internal/domain/cost"
)

func newAggregateCmd() *cobra.Command {
	var days int
	var names []string
	var withInsights bool

	cmd := &cobra.Command{
		Use:   "aggregate",
		Short: "Run spend analysis across all configured providers",
		RunE: func(cmd *cobra.Command, args []string) error {
			if days == 0 {
				days = defaultDays()
			}
			if err := checkDays(days); err != nil {
				return err
			}

			ctx := context.Background()
			window := cost.LastDays(days, time.Now().UTC())
			result, err := current.orch.Aggregate(ctx, names, window)
			if err != nil {
				return err
			}

			var narratives []string
			if withInsights {
				narratives = current.generator.Narrate(ctx, result)
			}
			return renderResult(result, narratives)
		},
	}

	cmd.Flags().IntVar(&days, "days", 0, "trailing window length in days")
	cmd.Flags().StringSliceVar(&names, "providers", nil, "providers to include (default all registered)")
	cmd.Flags().BoolVar(&withInsights, "insights", false, "include narrative insights")

	return cmd
}

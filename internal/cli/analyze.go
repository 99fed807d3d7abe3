package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/spendlens/spendlens/internal/domain/cost"
)

func newAnalyzeCmd() *cobra.Command {
	var days int
	var withInsights bool

	cmd := &cobra.Command{
		Use:   "analyze <provider>",
		Short: "Run spend analysis for one provider",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if days == 0 {
				days = defaultDays()
			}
			if err := checkDays(days); err != nil {
				return err
			}

			ctx := context.Background()
			window := cost.LastDays(days, time.Now().UTC())
			result, err := current.orch.Analyze(ctx, args[0], window)
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
	cmd.Flags().BoolVar(&withInsights, "insights", false, "include narrative insights")

	return cmd
}

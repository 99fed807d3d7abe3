package cli

import (
	"context"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/spendlens/spendlens/internal/domain/analysis"
	"github.com/spendlens/spendlens/internal/domain/cost"
	snapdomain "github.com/spendlens/spendlens/internal/domain/snapshot"
	"github.com/spendlens/spendlens/internal/snapshot"
)

func newSnapshotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Manage named inventory snapshots",
	}

	cmd.AddCommand(newSnapshotSaveCmd())
	cmd.AddCommand(newSnapshotListCmd())
	cmd.AddCommand(newSnapshotShowCmd())
	cmd.AddCommand(newSnapshotDeleteCmd())

	return cmd
}

func newSnapshotSaveCmd() *cobra.Command {
	var provider string
	var days int
	var overwrite bool

	cmd := &cobra.Command{
		Use:   "save <name>",
		Short: "Run an analysis and capture it under a name",
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

			var result *analysis.Result
			var err error
			if provider == analysis.AggregateProvider {
				result, err = current.orch.Aggregate(ctx, nil, window)
			} else {
				result, err = current.orch.Analyze(ctx, provider, window)
			}
			if err != nil {
				return err
			}

			snap := snapshot.FromResult(args[0], time.Now().UTC(), result)
			if err := current.store.Save(ctx, snap, overwrite); err != nil {
				return err
			}

			cmd.Printf("saved snapshot %q (%d resources, total %s)\n",
				snap.Name, len(snap.Resources), money(snap.TotalCost))
			return nil
		},
	}

	cmd.Flags().StringVar(&provider, "provider", analysis.AggregateProvider, "provider to capture, or aggregate")
	cmd.Flags().IntVar(&days, "days", 0, "trailing window length in days")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "replace an existing snapshot with the same name")

	return cmd
}

func newSnapshotListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved snapshots",
		RunE: func(cmd *cobra.Command, args []string) error {
			snaps, err := current.store.List(context.Background())
			if err != nil {
				return err
			}

			if getOutputFormat() != "table" {
				return printOutput(map[string]interface{}{"snapshots": snaps})
			}

			t := NewTable("NAME", "PROVIDER", "CAPTURED", "RESOURCES", "TOTAL")
			for _, s := range snaps {
				t.AddRow(s.Name, s.Provider, s.CapturedAt.Format(time.RFC3339),
					strconv.Itoa(len(s.Resources)), money(s.TotalCost))
			}
			t.Render()
			return nil
		},
	}
}

func newSnapshotShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <name>",
		Short: "Print one snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := current.store.Get(context.Background(), args[0])
			if err != nil {
				return err
			}
			return printOutput(snap)
		},
	}
}

func newSnapshotDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := current.store.Delete(context.Background(), args[0]); err != nil {
				return err
			}
			cmd.Printf("deleted snapshot %q\n", args[0])
			return nil
		},
	}
}

func newDiffCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "diff <baseline> [current]",
		Short: "Compare two snapshots, or a snapshot against a fresh run",
		Long: `With two names, compares the saved snapshots. With one name, runs a new
analysis over the baseline's provider and window length and compares the
baseline against it without saving anything.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			baseline, err := current.store.Get(ctx, args[0])
			if err != nil {
				return err
			}

			var latest *snapdomain.Snapshot
			if len(args) == 2 {
				latest, err = current.store.Get(ctx, args[1])
			} else {
				latest, err = captureCurrent(ctx, baseline)
			}
			if err != nil {
				return err
			}

			diff := snapshot.Diff(baseline, latest)
			if getOutputFormat() != "table" {
				return printOutput(diff)
			}
			return renderDiff(cmd, diff)
		},
	}
}

// captureCurrent reruns the baseline's analysis over an equally long
// trailing window and wraps the result as an unsaved snapshot.
func captureCurrent(ctx context.Context, baseline *snapdomain.Snapshot) (*snapdomain.Snapshot, error) {
	window := cost.LastDays(baseline.Window.Days(), time.Now().UTC())

	var result *analysis.Result
	var err error
	if baseline.Provider == analysis.AggregateProvider {
		result, err = current.orch.Aggregate(ctx, nil, window)
	} else {
		result, err = current.orch.Analyze(ctx, baseline.Provider, window)
	}
	if err != nil {
		return nil, err
	}
	return snapshot.FromResult("current", time.Now().UTC(), result), nil
}

func renderDiff(cmd *cobra.Command, diff *snapdomain.Diff) error {
	if diff.NewSpend {
		cmd.Printf("Baseline %s had no spend; current total delta %s\n",
			diff.Baseline, money(diff.TotalCostDelta))
	} else {
		cmd.Printf("Baseline %s: total delta %s (%+.1f%%)\n",
			diff.Baseline, money(diff.TotalCostDelta), diff.TotalCostDeltaPct)
	}

	if len(diff.Added) > 0 {
		t := NewTable("ADDED", "TYPE", "PROVIDER", "COST30D")
		for _, r := range diff.Added {
			t.AddRow(truncate(r.Name, 40), r.Type, r.Provider, money(r.Cost30d))
		}
		t.Render()
	}
	if len(diff.Removed) > 0 {
		t := NewTable("REMOVED", "TYPE", "PROVIDER", "COST30D")
		for _, r := range diff.Removed {
			t.AddRow(truncate(r.Name, 40), r.Type, r.Provider, money(r.Cost30d))
		}
		t.Render()
	}
	if len(diff.Changed) > 0 {
		t := NewTable("CHANGED", "PROVIDER", "OLD", "NEW", "DELTA")
		for _, c := range diff.Changed {
			t.AddRow(c.ResourceID, c.Provider, money(c.OldCost),
				money(c.NewCost), money(c.Delta))
		}
		t.Render()
	}
	return nil
}

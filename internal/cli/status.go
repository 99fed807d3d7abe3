package cli

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/spendlens/spendlens/internal/domain/cost"
	"github.com/spendlens/spendlens/internal/providers"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show provider availability",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			statuses := make([]providers.Status, 0, len(cost.KnownProviders))
			for _, name := range cost.KnownProviders {
				statuses = append(statuses, current.probe.Status(ctx, name))
			}

			if getOutputFormat() != "table" {
				return printOutput(map[string]interface{}{"providers": statuses})
			}

			t := NewTable("PROVIDER", "INSTALLED", "AUTHENTICATED", "IDENTIFIERS", "NOTE")
			for _, s := range statuses {
				t.AddRow(s.Provider, formatBool(s.Installed), formatBool(s.Authenticated),
					strings.Join(s.Identifiers, ","), truncate(s.Error, 70))
			}
			t.Render()
			return nil
		},
	}
}

package providers

import (
	"context"
	"fmt"
	"strconv"

	"cloud.google.com/go/bigquery"
	compute "cloud.google.com/go/compute/apiv1"
	"cloud.google.com/go/compute/apiv1/computepb"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/spendlens/spendlens/internal/config"
	"github.com/spendlens/spendlens/internal/domain/cost"
	apperrors "github.com/spendlens/spendlens/internal/pkg/errors"
	"github.com/spendlens/spendlens/internal/pkg/logger"
)

// GCPAdapter queries the BigQuery billing export for daily cost groups and
// the Compute Engine API for instance inventory.
type GCPAdapter struct {
	cfg    config.GCPConfig
	logger *logger.Logger
}

// NewGCPAdapter builds the GCP adapter.
func NewGCPAdapter(cfg config.GCPConfig, log *logger.Logger) *GCPAdapter {
	return &GCPAdapter{cfg: cfg, logger: log.With("provider", cost.ProviderGCP)}
}

func (g *GCPAdapter) Provider() string {
	return cost.ProviderGCP
}

func (g *GCPAdapter) Fetch(ctx context.Context, window cost.Window) (*RawBatch, error) {
	if g.cfg.BillingTable == "" {
		return nil, apperrors.NotConfigured(cost.ProviderGCP,
			"set GCP_BILLING_TABLE to the billing export table (project.dataset.table)")
	}

	costs, err := g.fetchCosts(ctx, window)
	if err != nil {
		return nil, classifyFetchErr(cost.ProviderGCP, err)
	}
	if len(costs) == 0 {
		return nil, apperrors.Empty(cost.ProviderGCP)
	}

	resources, err := g.fetchInstances(ctx, window)
	if err != nil {
		g.logger.ErrorWithErr(err, "compute inventory fetch failed, continuing with costs only")
		resources = nil
	}

	return &RawBatch{Provider: cost.ProviderGCP, Costs: costs, Resources: resources}, nil
}

func (g *GCPAdapter) clientOptions() []option.ClientOption {
	var opts []option.ClientOption
	if g.cfg.ServiceAccountJSON != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(g.cfg.ServiceAccountJSON)))
	}
	return opts
}

func (g *GCPAdapter) fetchCosts(ctx context.Context, window cost.Window) ([]RawCostRecord, error) {
	client, err := bigquery.NewClient(ctx, g.cfg.ProjectID, g.clientOptions()...)
	if err != nil {
		return nil, fmt.Errorf("bigquery client: %w", err)
	}
	defer client.Close()

	query := client.Query(fmt.Sprintf(`
		SELECT
			DATE(usage_start_time) AS usage_date,
			service.description AS service_name,
			IFNULL(location.region, 'global') AS region,
			project.id AS project_id,
			SUM(cost) AS total_cost,
			currency
		FROM `+"`%s`"+`
		WHERE DATE(usage_start_time) BETWEEN @start_date AND @end_date
		GROUP BY usage_date, service_name, region, project_id, currency
		ORDER BY usage_date ASC
	`, g.cfg.BillingTable))
	query.Parameters = []bigquery.QueryParameter{
		{Name: "start_date", Value: window.Start.Format("2006-01-02")},
		{Name: "end_date", Value: window.End.Format("2006-01-02")},
	}

	it, err := query.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("billing export query: %w", err)
	}

	var rows []RawCostRecord
	for {
		var row struct {
			UsageDate bigquery.NullDate `bigquery:"usage_date"`
			Service   string            `bigquery:"service_name"`
			Region    string            `bigquery:"region"`
			ProjectID string            `bigquery:"project_id"`
			TotalCost float64           `bigquery:"total_cost"`
			Currency  string            `bigquery:"currency"`
		}
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("billing export row: %w", err)
		}

		raw := GCPBillingRow{
			Service:   row.Service,
			Region:    row.Region,
			ProjectID: row.ProjectID,
			Currency:  row.Currency,
		}
		if row.UsageDate.Valid {
			raw.UsageDate = row.UsageDate.Date.String()
		}
		c := row.TotalCost
		raw.Cost = &c
		rows = append(rows, RawCostRecord{Provider: cost.ProviderGCP, GCP: &raw})
	}
	return rows, nil
}

func (g *GCPAdapter) fetchInstances(ctx context.Context, window cost.Window) ([]RawResource, error) {
	if g.cfg.ProjectID == "" {
		return nil, nil
	}
	client, err := compute.NewInstancesRESTClient(ctx, g.clientOptions()...)
	if err != nil {
		return nil, fmt.Errorf("compute client: %w", err)
	}
	defer client.Close()

	var out []RawResource
	it := client.AggregatedList(ctx, &computepb.AggregatedListInstancesRequest{Project: g.cfg.ProjectID})
	for {
		pair, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("compute aggregated list: %w", err)
		}
		if pair.Value == nil {
			continue
		}
		for _, inst := range pair.Value.Instances {
			row := GCPInstanceRow{
				ID:          strconv.FormatUint(inst.GetId(), 10),
				Name:        inst.GetName(),
				MachineType: inst.GetMachineType(),
				Zone:        inst.GetZone(),
				Status:      inst.GetStatus(),
				NatIP:       natIP(inst),
			}
			out = append(out, RawResource{Provider: cost.ProviderGCP, GCP: &row})
		}
	}

	if len(out) > 0 {
		cpu, err := g.fetchCPUAverages(ctx, window)
		if err != nil {
			g.logger.ErrorWithErr(err, "monitoring utilization fetch failed, continuing without idle signals")
		} else {
			applyGCPIdleSignals(out, cpu)
		}
	}
	return out, nil
}

func natIP(inst *computepb.Instance) string {
	for _, nic := range inst.GetNetworkInterfaces() {
		for _, ac := range nic.GetAccessConfigs() {
			if ip := ac.GetNatIP(); ip != "" {
				return ip
			}
		}
	}
	return ""
}

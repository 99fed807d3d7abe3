package providers

import (
	"context"
	"fmt"
	"strings"
	"time"

	monitoring "cloud.google.com/go/monitoring/apiv3/v2"
	"cloud.google.com/go/monitoring/apiv3/v2/monitoringpb"
	"google.golang.org/api/iterator"
	"google.golang.org/protobuf/types/known/durationpb"
	"google.golang.org/protobuf/types/known/timestamppb"

	"github.com/spendlens/spendlens/internal/domain/cost"
)

const gcpCPUFilter = `metric.type="compute.googleapis.com/instance/cpu/utilization" AND resource.type="gce_instance"`

// fetchCPUAverages reads the mean instance CPU utilization over the window
// from Cloud Monitoring. One alignment period spanning the window collapses
// each series to a single point. Returns utilization keyed by instance id,
// 0-100 (the API reports a 0-1 fraction).
func (g *GCPAdapter) fetchCPUAverages(ctx context.Context, window cost.Window) (map[string]float64, error) {
	client, err := monitoring.NewMetricClient(ctx, g.clientOptions()...)
	if err != nil {
		return nil, fmt.Errorf("monitoring client: %w", err)
	}
	defer client.Close()

	span := time.Duration(window.Days()) * 24 * time.Hour
	req := &monitoringpb.ListTimeSeriesRequest{
		Name:   "projects/" + g.cfg.ProjectID,
		Filter: gcpCPUFilter,
		Interval: &monitoringpb.TimeInterval{
			StartTime: timestamppb.New(window.Start),
			EndTime:   timestamppb.New(window.End.AddDate(0, 0, 1)),
		},
		Aggregation: &monitoringpb.Aggregation{
			AlignmentPeriod:  durationpb.New(span),
			PerSeriesAligner: monitoringpb.Aggregation_ALIGN_MEAN,
		},
	}

	cpu := make(map[string]float64)
	it := client.ListTimeSeries(ctx, req)
	for {
		series, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("monitoring time series: %w", err)
		}
		id := series.GetResource().GetLabels()["instance_id"]
		points := series.GetPoints()
		if id == "" || len(points) == 0 {
			continue
		}
		cpu[id] = points[0].GetValue().GetDoubleValue() * 100
	}
	return cpu, nil
}

// applyGCPIdleSignals fills IdlePct on running Compute Engine rows from the
// utilization averages, same contract as applyAWSIdleSignals.
func applyGCPIdleSignals(resources []RawResource, cpu map[string]float64) {
	for _, r := range resources {
		row := r.GCP
		if row == nil || !strings.EqualFold(row.Status, "RUNNING") {
			continue
		}
		if avg, ok := cpu[row.ID]; ok {
			row.IdlePct = idleFromCPU(avg)
		}
	}
}

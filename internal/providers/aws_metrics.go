package providers

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"github.com/spendlens/spendlens/internal/domain/cost"
)

// cloudwatchAPI is the slice of the CloudWatch client the adapter calls.
type cloudwatchAPI interface {
	GetMetricData(ctx context.Context, params *cloudwatch.GetMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.GetMetricDataOutput, error)
}

// metricQueryBatch keeps each GetMetricData call well under the 500-query
// request cap.
const metricQueryBatch = 100

// fetchCPUAverages reads the mean EC2 CPUUtilization per instance over the
// window. A single period spanning the whole window collapses each instance
// to one datapoint. Returns utilization keyed by instance id, 0-100.
func fetchCPUAverages(ctx context.Context, client cloudwatchAPI, window cost.Window, ids []string) (map[string]float64, error) {
	start := window.Start
	end := window.End.AddDate(0, 0, 1)
	period := aws.Int32(int32(window.Days()) * 86400)

	out := make(map[string]float64, len(ids))
	for offset := 0; offset < len(ids); offset += metricQueryBatch {
		batch := ids[offset:min(offset+metricQueryBatch, len(ids))]

		queries := make([]cwtypes.MetricDataQuery, 0, len(batch))
		for i, id := range batch {
			queries = append(queries, cwtypes.MetricDataQuery{
				// Query ids must be alphanumeric; the label carries the
				// instance id back out.
				Id:    aws.String(fmt.Sprintf("cpu%d", offset+i)),
				Label: aws.String(id),
				MetricStat: &cwtypes.MetricStat{
					Metric: &cwtypes.Metric{
						Namespace:  aws.String("AWS/EC2"),
						MetricName: aws.String("CPUUtilization"),
						Dimensions: []cwtypes.Dimension{
							{Name: aws.String("InstanceId"), Value: aws.String(id)},
						},
					},
					Period: period,
					Stat:   aws.String("Average"),
				},
			})
		}

		input := &cloudwatch.GetMetricDataInput{
			StartTime:         aws.Time(start),
			EndTime:           aws.Time(end),
			MetricDataQueries: queries,
		}
		for {
			result, err := client.GetMetricData(ctx, input)
			if err != nil {
				return nil, fmt.Errorf("cloudwatch metric data: %w", err)
			}
			for _, r := range result.MetricDataResults {
				if r.Label == nil || len(r.Values) == 0 {
					continue
				}
				var sum float64
				for _, v := range r.Values {
					sum += v
				}
				out[*r.Label] = sum / float64(len(r.Values))
			}
			if result.NextToken == nil {
				break
			}
			input.NextToken = result.NextToken
		}
	}
	return out, nil
}

// runningInstanceIDs lists the instances worth querying for utilization.
// Stopped and terminated instances already score through their state.
func runningInstanceIDs(resources []RawResource) []string {
	var ids []string
	for _, r := range resources {
		if r.AWS != nil && r.AWS.InstanceID != "" && strings.EqualFold(r.AWS.State, "running") {
			ids = append(ids, r.AWS.InstanceID)
		}
	}
	return ids
}

// idleFromCPU converts a mean utilization percentage into the idle signal,
// clamped to 0-100.
func idleFromCPU(avg float64) *float64 {
	idle := 100 - avg
	if idle < 0 {
		idle = 0
	}
	if idle > 100 {
		idle = 100
	}
	return &idle
}

// applyAWSIdleSignals fills IdlePct on running instances from the CPU
// averages. Instances without datapoints keep a nil signal; missing
// telemetry is not evidence of idleness.
func applyAWSIdleSignals(resources []RawResource, cpu map[string]float64) {
	for _, r := range resources {
		row := r.AWS
		if row == nil || !strings.EqualFold(row.State, "running") {
			continue
		}
		if avg, ok := cpu[row.InstanceID]; ok {
			row.IdlePct = idleFromCPU(avg)
		}
	}
}

package providers

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/costexplorer"
	cetypes "github.com/aws/aws-sdk-go-v2/service/costexplorer/types"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/spendlens/spendlens/internal/config"
	"github.com/spendlens/spendlens/internal/domain/cost"
	apperrors "github.com/spendlens/spendlens/internal/pkg/errors"
	"github.com/spendlens/spendlens/internal/pkg/logger"
)

// AWSAdapter fetches daily cost groups from Cost Explorer and EC2 instance
// inventory. Cost Explorer is only reachable through us-east-1.
type AWSAdapter struct {
	cfg    config.AWSConfig
	logger *logger.Logger
}

// NewAWSAdapter builds the AWS adapter.
func NewAWSAdapter(cfg config.AWSConfig, log *logger.Logger) *AWSAdapter {
	return &AWSAdapter{cfg: cfg, logger: log.With("provider", cost.ProviderAWS)}
}

func (a *AWSAdapter) Provider() string {
	return cost.ProviderAWS
}

func (a *AWSAdapter) Fetch(ctx context.Context, window cost.Window) (*RawBatch, error) {
	awsCfg, err := a.loadConfig(ctx, "us-east-1")
	if err != nil {
		return nil, apperrors.AuthFailed(cost.ProviderAWS, err)
	}

	costs, err := a.fetchCosts(ctx, awsCfg, window)
	if err != nil {
		return nil, classifyFetchErr(cost.ProviderAWS, err)
	}
	if len(costs) == 0 {
		return nil, apperrors.Empty(cost.ProviderAWS)
	}

	resources, err := a.fetchInstances(ctx, window)
	if err != nil {
		// Inventory is best effort; billing data alone still yields a useful run.
		a.logger.ErrorWithErr(err, "ec2 inventory fetch failed, continuing with costs only")
		resources = nil
	}

	return &RawBatch{Provider: cost.ProviderAWS, Costs: costs, Resources: resources}, nil
}

func (a *AWSAdapter) loadConfig(ctx context.Context, region string) (aws.Config, error) {
	if a.cfg.AccessKeyID != "" && a.cfg.SecretAccessKey != "" {
		return awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion(region),
			awsconfig.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(a.cfg.AccessKeyID, a.cfg.SecretAccessKey, "")),
		)
	}
	return awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
}

func (a *AWSAdapter) fetchCosts(ctx context.Context, awsCfg aws.Config, window cost.Window) ([]RawCostRecord, error) {
	client := costexplorer.NewFromConfig(awsCfg)

	// Cost Explorer treats End as exclusive.
	input := &costexplorer.GetCostAndUsageInput{
		TimePeriod: &cetypes.DateInterval{
			Start: aws.String(window.Start.Format("2006-01-02")),
			End:   aws.String(window.End.AddDate(0, 0, 1).Format("2006-01-02")),
		},
		Granularity: cetypes.GranularityDaily,
		Metrics:     []string{"UnblendedCost"},
		GroupBy: []cetypes.GroupDefinition{
			{Type: cetypes.GroupDefinitionTypeDimension, Key: aws.String("SERVICE")},
			{Type: cetypes.GroupDefinitionTypeDimension, Key: aws.String("REGION")},
		},
	}

	var rows []RawCostRecord
	for {
		result, err := client.GetCostAndUsage(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("cost explorer query: %w", err)
		}

		for _, byTime := range result.ResultsByTime {
			if byTime.TimePeriod == nil || byTime.TimePeriod.Start == nil {
				continue
			}
			start := *byTime.TimePeriod.Start
			for _, group := range byTime.Groups {
				row := AWSCostRow{StartDate: start}
				if len(group.Keys) > 0 {
					row.Service = group.Keys[0]
				}
				if len(group.Keys) > 1 {
					row.Region = group.Keys[1]
				}
				if metric, ok := group.Metrics["UnblendedCost"]; ok {
					if metric.Amount != nil {
						row.Amount = *metric.Amount
					}
					if metric.Unit != nil {
						row.Unit = *metric.Unit
					}
				}
				rows = append(rows, RawCostRecord{Provider: cost.ProviderAWS, AWS: &row})
			}
		}

		if result.NextPageToken == nil {
			break
		}
		input.NextPageToken = result.NextPageToken
	}
	return rows, nil
}

func (a *AWSAdapter) fetchInstances(ctx context.Context, window cost.Window) ([]RawResource, error) {
	region := a.cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	awsCfg, err := a.loadConfig(ctx, region)
	if err != nil {
		return nil, err
	}
	client := ec2.NewFromConfig(awsCfg)

	var out []RawResource
	paginator := ec2.NewDescribeInstancesPaginator(client, &ec2.DescribeInstancesInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("describe instances: %w", err)
		}
		for _, reservation := range page.Reservations {
			for _, inst := range reservation.Instances {
				row := AWSInstanceRow{Region: region}
				if inst.InstanceId != nil {
					row.InstanceID = *inst.InstanceId
				}
				row.InstanceType = string(inst.InstanceType)
				if inst.State != nil {
					row.State = string(inst.State.Name)
				}
				if inst.PublicIpAddress != nil {
					row.PublicIPAddress = *inst.PublicIpAddress
				}
				row.NameTag = nameFromTags(inst.Tags)
				out = append(out, RawResource{Provider: cost.ProviderAWS, AWS: &row})
			}
		}
	}

	// Idle signals are best effort like the inventory itself; an instance
	// without telemetry keeps a nil signal.
	if ids := runningInstanceIDs(out); len(ids) > 0 {
		cpu, err := fetchCPUAverages(ctx, cloudwatch.NewFromConfig(awsCfg), window, ids)
		if err != nil {
			a.logger.ErrorWithErr(err, "cloudwatch utilization fetch failed, continuing without idle signals")
		} else {
			applyAWSIdleSignals(out, cpu)
		}
	}
	return out, nil
}

func nameFromTags(tags []ec2types.Tag) string {
	for _, t := range tags {
		if t.Key != nil && *t.Key == "Name" && t.Value != nil {
			return *t.Value
		}
	}
	return ""
}

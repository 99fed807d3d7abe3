package orchestrator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/spendlens/spendlens/internal/analytics"
	"github.com/spendlens/spendlens/internal/config"
	"github.com/spendlens/spendlens/internal/domain/analysis"
	"github.com/spendlens/spendlens/internal/domain/cost"
	"github.com/spendlens/spendlens/internal/governance"
	"github.com/spendlens/spendlens/internal/normalize"
	apperrors "github.com/spendlens/spendlens/internal/pkg/errors"
	"github.com/spendlens/spendlens/internal/pkg/logger"
	"github.com/spendlens/spendlens/internal/providers"
	"github.com/spendlens/spendlens/internal/testutil"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Level: "error", Format: "json"})
}

func testWindow() cost.Window {
	return cost.Window{
		Start: time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 7, 30, 0, 0, 0, 0, time.UTC),
	}
}

func awsBatch(amount string) *providers.RawBatch {
	return &providers.RawBatch{
		Provider: cost.ProviderAWS,
		Costs: []providers.RawCostRecord{
			{Provider: cost.ProviderAWS, AWS: &providers.AWSCostRow{
				StartDate: "2026-07-10", Service: "ec2", Amount: amount, Unit: "USD",
			}},
		},
		Resources: []providers.RawResource{
			{Provider: cost.ProviderAWS, AWS: &providers.AWSInstanceRow{
				InstanceID: "i-1", State: "running", Region: "us-east-1",
			}},
		},
	}
}

func gcpBatch(costVal float64) *providers.RawBatch {
	return &providers.RawBatch{
		Provider: cost.ProviderGCP,
		Costs: []providers.RawCostRecord{
			{Provider: cost.ProviderGCP, GCP: &providers.GCPBillingRow{
				UsageDate: "2026-07-12", Service: "compute", Cost: &costVal, Currency: "USD",
			}},
		},
	}
}

func newOrchestrator(adapters ...providers.Adapter) *Orchestrator {
	log := testLogger()
	cfg := config.DefaultAnalytics()
	return New(
		providers.NewRegistry(adapters...),
		normalize.New(log),
		analytics.NewAggregator(cfg, log),
		governance.NewEngine(nil, log),
		nil,
		log,
	)
}

func TestAnalyze_SingleProvider(t *testing.T) {
	o := newOrchestrator(&testutil.MockAdapter{Name: cost.ProviderAWS, Batch: awsBatch("42.5")})

	result, err := o.Analyze(context.Background(), cost.ProviderAWS, testWindow())
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if result.Meta.Provider != cost.ProviderAWS {
		t.Errorf("provider = %q", result.Meta.Provider)
	}
	if result.Summary.TotalCost != 42.5 {
		t.Errorf("total = %v, want 42.5", result.Summary.TotalCost)
	}
	if len(result.Trends) != 30 {
		t.Errorf("trends = %d points, want 30", len(result.Trends))
	}
	if result.Summary.ResourceCount != 1 || result.RunningCount != 1 {
		t.Errorf("resources = %d running %d, want 1/1", result.Summary.ResourceCount, result.RunningCount)
	}
}

func TestAnalyze_UnknownProvider(t *testing.T) {
	o := newOrchestrator()
	if _, err := o.Analyze(context.Background(), "digitalocean", testWindow()); err == nil {
		t.Error("Analyze() accepted an unknown provider")
	}
}

func TestAnalyze_UnregisteredProvider(t *testing.T) {
	o := newOrchestrator(&testutil.MockAdapter{Name: cost.ProviderAWS, Batch: awsBatch("1")})
	_, err := o.Analyze(context.Background(), cost.ProviderGCP, testWindow())
	if apperrors.Code(err) != apperrors.ErrCodeNotConfigured {
		t.Errorf("Analyze() error = %v, want not configured", err)
	}
}

func TestAnalyze_FetchFailurePropagates(t *testing.T) {
	o := newOrchestrator(&testutil.MockAdapter{
		Name: cost.ProviderAWS,
		Err:  apperrors.AuthFailed(cost.ProviderAWS, errors.New("denied")),
	})
	_, err := o.Analyze(context.Background(), cost.ProviderAWS, testWindow())
	if apperrors.Code(err) != apperrors.ErrCodeAuthFailed {
		t.Errorf("Analyze() error = %v, want auth failure", err)
	}
}

func TestAggregate_MergesProviders(t *testing.T) {
	o := newOrchestrator(
		&testutil.MockAdapter{Name: cost.ProviderAWS, Batch: awsBatch("10")},
		&testutil.MockAdapter{Name: cost.ProviderGCP, Batch: gcpBatch(5)},
	)

	result, err := o.Aggregate(context.Background(), nil, testWindow())
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}
	if result.Meta.Provider != analysis.AggregateProvider {
		t.Errorf("provider = %q, want aggregate", result.Meta.Provider)
	}
	if result.Summary.TotalCost != 15 {
		t.Errorf("total = %v, want 15", result.Summary.TotalCost)
	}
	if len(result.GovernanceIssues) != 0 {
		t.Errorf("issues = %+v, want none", result.GovernanceIssues)
	}
}

func TestAggregate_PartialFailure(t *testing.T) {
	o := newOrchestrator(
		&testutil.MockAdapter{Name: cost.ProviderAWS, Batch: awsBatch("10")},
		&testutil.MockAdapter{
			Name: cost.ProviderGCP,
			Err:  apperrors.Timeout(cost.ProviderGCP, context.DeadlineExceeded),
		},
	)

	result, err := o.Aggregate(context.Background(), []string{cost.ProviderAWS, cost.ProviderGCP}, testWindow())
	if err != nil {
		t.Fatalf("Aggregate() error = %v, want partial result", err)
	}
	if result.Summary.TotalCost != 10 {
		t.Errorf("total = %v, want the surviving provider's 10", result.Summary.TotalCost)
	}

	var failure *analysis.GovernanceIssue
	for i := range result.GovernanceIssues {
		if result.GovernanceIssues[i].Kind == analysis.IssueProviderFailure {
			failure = &result.GovernanceIssues[i]
		}
	}
	if failure == nil {
		t.Fatal("no provider-failure issue recorded")
	}
	if failure.Provider != cost.ProviderGCP || failure.ErrorKind != "timeout" {
		t.Errorf("failure = %+v, want gcp/timeout", failure)
	}
}

func TestAggregate_TotalFailure(t *testing.T) {
	o := newOrchestrator(
		&testutil.MockAdapter{Name: cost.ProviderAWS, Err: apperrors.Empty(cost.ProviderAWS)},
		&testutil.MockAdapter{Name: cost.ProviderGCP, Err: apperrors.Empty(cost.ProviderGCP)},
	)

	_, err := o.Aggregate(context.Background(), nil, testWindow())
	if apperrors.Code(err) != apperrors.ErrCodeTotalFailure {
		t.Errorf("Aggregate() error = %v, want total failure", err)
	}
}

func TestAggregate_PolicyViolationsSurface(t *testing.T) {
	log := testLogger()
	o := New(
		providers.NewRegistry(&testutil.MockAdapter{Name: cost.ProviderAWS, Batch: awsBatch("500")}),
		normalize.New(log),
		analytics.NewAggregator(config.DefaultAnalytics(), log),
		governance.NewEngine([]governance.Policy{
			{Name: "cap-ec2", Scope: "service", MaxCost: 100},
		}, log),
		nil,
		log,
	)

	result, err := o.Aggregate(context.Background(), []string{cost.ProviderAWS}, testWindow())
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, issue := range result.GovernanceIssues {
		if issue.Kind == analysis.IssuePolicyViolation && issue.Scope == "ec2" {
			found = true
		}
	}
	if !found {
		t.Errorf("issues = %+v, want a policy violation for ec2", result.GovernanceIssues)
	}
}

func TestAggregate_CancelledContext(t *testing.T) {
	o := newOrchestrator(&testutil.MockAdapter{
		Name:  cost.ProviderAWS,
		Batch: awsBatch("10"),
		Delay: 200 * time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := o.Aggregate(ctx, nil, testWindow()); err == nil {
		t.Error("Aggregate() succeeded on a cancelled context")
	}
}

func TestAnalyze_MalformedRowsBecomeWarnings(t *testing.T) {
	batch := awsBatch("10")
	batch.Costs = append(batch.Costs, providers.RawCostRecord{
		Provider: cost.ProviderAWS,
		AWS:      &providers.AWSCostRow{StartDate: "2026-07-11", Service: "s3"},
	})
	o := newOrchestrator(&testutil.MockAdapter{Name: cost.ProviderAWS, Batch: batch})

	result, err := o.Analyze(context.Background(), cost.ProviderAWS, testWindow())
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if len(result.Warnings) != 1 {
		t.Errorf("warnings = %v, want the malformed row reported", result.Warnings)
	}
	if result.Summary.TotalCost != 10 {
		t.Errorf("total = %v, want valid rows still aggregated", result.Summary.TotalCost)
	}
}

package analytics

import (
	"math"
	"testing"
	"time"

	"github.com/spendlens/spendlens/internal/config"
	"github.com/spendlens/spendlens/internal/domain/analysis"
	"github.com/spendlens/spendlens/internal/domain/cost"
	"github.com/spendlens/spendlens/internal/domain/resource"
)

func window30() cost.Window {
	start := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	return cost.Window{Start: start, End: start.AddDate(0, 0, 29)}
}

func record(provider, service string, day int, amount float64) cost.Record {
	return cost.Record{
		Amount:   amount,
		Currency: "USD",
		Date:     time.Date(2026, 7, day, 0, 0, 0, 0, time.UTC),
		Service:  service,
		Provider: provider,
	}
}

func TestBuild_TrendsGapFilledAndOrdered(t *testing.T) {
	a := NewAggregator(config.DefaultAnalytics(), testLogger())
	w := window30()

	records := []cost.Record{
		record(cost.ProviderAWS, "ec2", 5, 10),
		record(cost.ProviderAWS, "ec2", 5, 2.5),
		record(cost.ProviderAWS, "s3", 20, 7),
	}
	result := a.Build(cost.ProviderAWS, w, records, nil, nil, nil)

	if len(result.Trends) != w.Days() {
		t.Fatalf("trends has %d points, want %d (one per window day)", len(result.Trends), w.Days())
	}
	var sum float64
	for i, p := range result.Trends {
		sum += p.Amount
		if i > 0 && !p.Date.After(result.Trends[i-1].Date) {
			t.Errorf("trends not strictly ascending at %d", i)
		}
	}
	if math.Abs(sum-result.Summary.TotalCost) > 1e-9 {
		t.Errorf("sum of trends %v != total_cost %v", sum, result.Summary.TotalCost)
	}
	if result.Trends[4].Amount != 12.5 {
		t.Errorf("day 5 amount = %v, want 12.5", result.Trends[4].Amount)
	}
	if result.Trends[0].Amount != 0 {
		t.Errorf("empty day amount = %v, want gap-filled zero", result.Trends[0].Amount)
	}
}

func TestBuild_DriversRankedWithAlphabeticalTies(t *testing.T) {
	a := NewAggregator(config.DefaultAnalytics(), testLogger())

	records := []cost.Record{
		record(cost.ProviderAWS, "s3", 1, 5),
		record(cost.ProviderAWS, "ec2", 1, 5),
		record(cost.ProviderAWS, "rds", 1, 9),
	}
	result := a.Build(cost.ProviderAWS, window30(), records, nil, nil, nil)

	want := []cost.Driver{{Service: "rds", Cost: 9}, {Service: "ec2", Cost: 5}, {Service: "s3", Cost: 5}}
	if len(result.CostDrivers) != len(want) {
		t.Fatalf("drivers = %+v, want %+v", result.CostDrivers, want)
	}
	for i := range want {
		if result.CostDrivers[i] != want[i] {
			t.Errorf("driver[%d] = %+v, want %+v", i, result.CostDrivers[i], want[i])
		}
	}
}

func TestBuild_CurrencyHandling(t *testing.T) {
	a := NewAggregator(config.DefaultAnalytics(), testLogger())
	w := window30()

	uniform := a.Build(cost.ProviderAWS, w, []cost.Record{
		record(cost.ProviderAWS, "ec2", 1, 5),
		record(cost.ProviderAWS, "s3", 2, 5),
	}, nil, nil, nil)
	if uniform.Summary.Currency != "USD" {
		t.Errorf("uniform currency = %q, want USD", uniform.Summary.Currency)
	}

	eur := record(cost.ProviderAWS, "ec2", 3, 5)
	eur.Currency = "EUR"
	mixed := a.Build(cost.ProviderAWS, w, []cost.Record{
		record(cost.ProviderAWS, "ec2", 1, 5),
		eur,
	}, nil, nil, nil)
	if mixed.Summary.Currency != "" {
		t.Errorf("mixed currency = %q, want unset", mixed.Summary.Currency)
	}
	found := false
	for _, issue := range mixed.GovernanceIssues {
		if issue.Kind == analysis.IssueMixedCurrency {
			found = true
		}
	}
	if !found {
		t.Error("mixed currencies did not surface a governance issue")
	}
}

func TestBuild_ResourceRollups(t *testing.T) {
	a := NewAggregator(config.DefaultAnalytics(), testLogger())

	resources := []resource.Resource{
		{ID: "i-1", Name: "web", Type: resource.TypeComputeInstance, Provider: cost.ProviderAWS,
			State: resource.StateRunning, ExternalIP: "1.2.3.4", Cost30d: 300},
		{ID: "i-2", Name: "old", Type: resource.TypeComputeInstance, Provider: cost.ProviderAWS,
			State: resource.StateStopped, ExternalIP: "1.2.3.5"},
		{ID: "b-1", Name: "bkt", Type: resource.TypeStorageBucket, Provider: cost.ProviderAWS,
			ExternalIP: "1.2.3.6"},
	}
	result := a.Build(cost.ProviderAWS, window30(), nil, resources, nil, nil)

	if result.Summary.ResourceCount != 3 {
		t.Errorf("resource_count = %d, want 3", result.Summary.ResourceCount)
	}
	if result.RunningCount != 1 {
		t.Errorf("running_count = %d, want 1", result.RunningCount)
	}
	if result.ResourceTypes[resource.TypeComputeInstance] != 2 || result.ResourceTypes[resource.TypeStorageBucket] != 1 {
		t.Errorf("resource_types = %v", result.ResourceTypes)
	}
	if len(result.HighCostResources) != 1 || result.HighCostResources[0].ID != "i-1" {
		t.Errorf("high_cost_resources = %+v, want just i-1", result.HighCostResources)
	}
	// i-1: running (20) + high-cost (20) = 40, weighted by all spend on it.
	if result.Summary.RiskScore != 40 {
		t.Errorf("summary risk = %v, want 40", result.Summary.RiskScore)
	}
}

func TestBuild_ResourceCountDeduplicates(t *testing.T) {
	a := NewAggregator(config.DefaultAnalytics(), testLogger())
	w := window30()

	// The same instance can arrive twice, once per fetch path. The count
	// must follow (provider, id) identity, not row count, so a
	// single-provider document and its one-part merge agree.
	resources := []resource.Resource{
		{ID: "i-1", Provider: cost.ProviderAWS, Type: resource.TypeComputeInstance, State: resource.StateRunning},
		{ID: "i-1", Provider: cost.ProviderAWS, Type: resource.TypeComputeInstance, State: resource.StateRunning},
		{ID: "i-2", Provider: cost.ProviderAWS, Type: resource.TypeComputeInstance},
	}
	built := a.Build(cost.ProviderAWS, w, nil, resources, nil, nil)

	if built.Summary.ResourceCount != 2 {
		t.Errorf("resource_count = %d, want 2 distinct keys", built.Summary.ResourceCount)
	}

	merged := a.Merge(w, []*analysis.Result{built}, nil, nil)
	if merged.Summary.ResourceCount != built.Summary.ResourceCount {
		t.Errorf("merge of one part reports %d resources, build reported %d",
			merged.Summary.ResourceCount, built.Summary.ResourceCount)
	}
}

func TestMerge_SumsAndUnions(t *testing.T) {
	a := NewAggregator(config.DefaultAnalytics(), testLogger())
	w := window30()

	gcp := a.Build(cost.ProviderGCP, w, []cost.Record{
		record(cost.ProviderGCP, "compute", 3, 10),
	}, []resource.Resource{
		{ID: "vm-1", Provider: cost.ProviderGCP, Type: resource.TypeComputeInstance},
	}, nil, nil)
	aws := a.Build(cost.ProviderAWS, w, []cost.Record{
		record(cost.ProviderAWS, "ec2", 3, 5),
		record(cost.ProviderAWS, "compute", 4, 1),
	}, []resource.Resource{
		{ID: "i-1", Provider: cost.ProviderAWS, Type: resource.TypeComputeInstance},
	}, nil, nil)

	merged := a.Merge(w, []*analysis.Result{gcp, aws}, nil, nil)

	if merged.Meta.Provider != analysis.AggregateProvider {
		t.Errorf("provider = %q, want aggregate", merged.Meta.Provider)
	}
	if math.Abs(merged.Summary.TotalCost-16) > 1e-9 {
		t.Errorf("total = %v, want 16", merged.Summary.TotalCost)
	}
	if merged.Trends[2].Amount != 15 {
		t.Errorf("day 3 = %v, want summed 15", merged.Trends[2].Amount)
	}
	if merged.Summary.ResourceCount != 2 {
		t.Errorf("resource union = %d, want 2", merged.Summary.ResourceCount)
	}
	if merged.CostDrivers[0].Service != "compute" || merged.CostDrivers[0].Cost != 11 {
		t.Errorf("top driver = %+v, want compute at 11", merged.CostDrivers[0])
	}
	if merged.Summary.Currency != "USD" {
		t.Errorf("currency = %q, want USD", merged.Summary.Currency)
	}
}

func TestMerge_Associative(t *testing.T) {
	a := NewAggregator(config.DefaultAnalytics(), testLogger())
	w := window30()

	gcp := a.Build(cost.ProviderGCP, w, []cost.Record{record(cost.ProviderGCP, "compute", 2, 4)},
		[]resource.Resource{{ID: "vm-1", Provider: cost.ProviderGCP, Type: resource.TypeComputeInstance}}, nil, nil)
	aws := a.Build(cost.ProviderAWS, w, []cost.Record{record(cost.ProviderAWS, "ec2", 9, 6)},
		[]resource.Resource{{ID: "i-1", Provider: cost.ProviderAWS, Type: resource.TypeComputeInstance}}, nil, nil)
	azure := a.Build(cost.ProviderAzure, w, []cost.Record{record(cost.ProviderAzure, "vm", 9, 2)},
		[]resource.Resource{{ID: "v-1", Provider: cost.ProviderAzure, Type: resource.TypeComputeInstance}}, nil, nil)

	direct := a.Merge(w, []*analysis.Result{gcp, aws, azure}, nil, nil)
	staged := a.Merge(w, []*analysis.Result{a.Merge(w, []*analysis.Result{gcp, aws}, nil, nil), azure}, nil, nil)

	if math.Abs(direct.Summary.TotalCost-staged.Summary.TotalCost) > 1e-9 {
		t.Errorf("totals differ: direct %v staged %v", direct.Summary.TotalCost, staged.Summary.TotalCost)
	}
	for i := range direct.Trends {
		if math.Abs(direct.Trends[i].Amount-staged.Trends[i].Amount) > 1e-9 {
			t.Errorf("trend day %d differs: %v vs %v", i, direct.Trends[i].Amount, staged.Trends[i].Amount)
		}
	}
	if direct.Summary.ResourceCount != staged.Summary.ResourceCount {
		t.Errorf("resource counts differ: %d vs %d", direct.Summary.ResourceCount, staged.Summary.ResourceCount)
	}
	if len(direct.CostDrivers) != len(staged.CostDrivers) {
		t.Fatalf("driver counts differ: %d vs %d", len(direct.CostDrivers), len(staged.CostDrivers))
	}
	for i := range direct.CostDrivers {
		if direct.CostDrivers[i] != staged.CostDrivers[i] {
			t.Errorf("driver %d differs: %+v vs %+v", i, direct.CostDrivers[i], staged.CostDrivers[i])
		}
	}
	if len(direct.Anomalies) != len(staged.Anomalies) {
		t.Errorf("anomaly counts differ: %d vs %d", len(direct.Anomalies), len(staged.Anomalies))
	}
}

func TestMerge_CarriesIssuesAndWarnings(t *testing.T) {
	a := NewAggregator(config.DefaultAnalytics(), testLogger())
	w := window30()

	part := a.Build(cost.ProviderAWS, w, []cost.Record{record(cost.ProviderAWS, "ec2", 1, 5)},
		nil, nil, []string{"aws: cost row 2: missing amount"})
	failure := analysis.GovernanceIssue{
		Kind: analysis.IssueProviderFailure, Provider: cost.ProviderGCP, ErrorKind: "auth_failed",
	}
	merged := a.Merge(w, []*analysis.Result{part}, []analysis.GovernanceIssue{failure}, nil)

	foundFailure := false
	for _, issue := range merged.GovernanceIssues {
		if issue.Kind == analysis.IssueProviderFailure && issue.Provider == cost.ProviderGCP {
			foundFailure = true
		}
	}
	if !foundFailure {
		t.Error("merged result lost the provider failure issue")
	}
	if len(merged.Warnings) != 1 {
		t.Errorf("warnings = %v, want the part's warning carried over", merged.Warnings)
	}
}

func TestBuild_ExecutiveSummary(t *testing.T) {
	a := NewAggregator(config.DefaultAnalytics(), testLogger())
	w := window30()

	result := a.Build(cost.ProviderAWS, w, []cost.Record{record(cost.ProviderAWS, "ec2", 1, 100)},
		[]resource.Resource{
			{ID: "i-1", State: resource.StateRunning, ExternalIP: "1.2.3.4", Cost30d: 50},
		}, nil, nil)

	exec := result.Executive
	if exec == nil {
		t.Fatal("executive summary missing")
	}
	if exec.TotalSpend != 100 {
		t.Errorf("total spend = %v, want 100", exec.TotalSpend)
	}
	if exec.WastePercentage != 50 {
		t.Errorf("waste pct = %v, want 50 (50 of 100 spent on flagged resources)", exec.WastePercentage)
	}
	if exec.ExposureCategory == "" {
		t.Error("exposure category empty")
	}
}

func TestExposureBands(t *testing.T) {
	tests := []struct {
		score float64
		want  string
	}{
		{10, analysis.ExposureLow},
		{25, analysis.ExposureLow},
		{26, analysis.ExposureModerate},
		{51, analysis.ExposureHigh},
		{76, analysis.ExposureCritical},
	}
	for _, tt := range tests {
		if got := exposure(tt.score); got != tt.want {
			t.Errorf("exposure(%v) = %q, want %q", tt.score, got, tt.want)
		}
	}
}

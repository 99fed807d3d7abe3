package normalize

import (
	"testing"
	"time"

	"github.com/spendlens/spendlens/internal/domain/cost"
	"github.com/spendlens/spendlens/internal/domain/resource"
	"github.com/spendlens/spendlens/internal/pkg/logger"
	"github.com/spendlens/spendlens/internal/providers"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Level: "error", Format: "json"})
}

func f64(v float64) *float64 { return &v }

func testWindow() cost.Window {
	return cost.Window{
		Start: time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC),
	}
}

func TestRecords_AWS(t *testing.T) {
	n := New(testLogger())
	batch := &providers.RawBatch{
		Provider: cost.ProviderAWS,
		Costs: []providers.RawCostRecord{
			{Provider: cost.ProviderAWS, AWS: &providers.AWSCostRow{
				StartDate: "2026-07-10", Service: "Amazon EC2", Region: "us-east-1",
				Amount: "12.50", Unit: "USD",
			}},
			{Provider: cost.ProviderAWS, AWS: &providers.AWSCostRow{
				StartDate: "2026-07-11", Service: "", Amount: "3.25", Unit: "USD",
			}},
		},
	}

	records, warnings := n.Records(batch, testWindow())
	if len(warnings) != 0 {
		t.Fatalf("Records() warnings = %v, want none", warnings)
	}
	if len(records) != 2 {
		t.Fatalf("Records() returned %d records, want 2", len(records))
	}
	if records[0].Amount != 12.50 || records[0].Currency != "USD" {
		t.Errorf("record[0] = %+v, want amount 12.50 USD", records[0])
	}
	if records[0].Provider != cost.ProviderAWS {
		t.Errorf("record[0] provider = %q, want %q", records[0].Provider, cost.ProviderAWS)
	}
	if records[1].Service != ServiceUnclassified {
		t.Errorf("empty service normalized to %q, want %q", records[1].Service, ServiceUnclassified)
	}
}

func TestRecords_MalformedRowsDroppedWithWarning(t *testing.T) {
	n := New(testLogger())

	tests := []struct {
		name string
		row  providers.RawCostRecord
	}{
		{
			name: "aws missing amount",
			row: providers.RawCostRecord{Provider: cost.ProviderAWS, AWS: &providers.AWSCostRow{
				StartDate: "2026-07-10", Service: "Amazon EC2",
			}},
		},
		{
			name: "aws non-numeric amount",
			row: providers.RawCostRecord{Provider: cost.ProviderAWS, AWS: &providers.AWSCostRow{
				StartDate: "2026-07-10", Service: "Amazon EC2", Amount: "abc",
			}},
		},
		{
			name: "gcp missing cost",
			row: providers.RawCostRecord{Provider: cost.ProviderGCP, GCP: &providers.GCPBillingRow{
				UsageDate: "2026-07-10", Service: "Compute Engine",
			}},
		},
		{
			name: "gcp missing date",
			row: providers.RawCostRecord{Provider: cost.ProviderGCP, GCP: &providers.GCPBillingRow{
				Service: "Compute Engine", Cost: f64(1.0),
			}},
		},
		{
			name: "azure missing cost",
			row: providers.RawCostRecord{Provider: cost.ProviderAzure, Azure: &providers.AzureUsageRow{
				DateKey: 20260710, Service: "Virtual Machines",
			}},
		},
		{
			name: "azure invalid date key",
			row: providers.RawCostRecord{Provider: cost.ProviderAzure, Azure: &providers.AzureUsageRow{
				DateKey: 20261399, Service: "Virtual Machines", PreTaxCost: f64(1.0),
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			valid := providers.RawCostRecord{Provider: cost.ProviderAWS, AWS: &providers.AWSCostRow{
				StartDate: "2026-07-12", Service: "Amazon S3", Amount: "1.00", Unit: "USD",
			}}
			batch := &providers.RawBatch{Provider: tt.row.Provider, Costs: []providers.RawCostRecord{tt.row, valid}}

			records, warnings := n.Records(batch, testWindow())
			if len(warnings) != 1 {
				t.Fatalf("Records() warnings = %v, want exactly 1", warnings)
			}
			if len(records) != 1 {
				t.Fatalf("Records() kept %d records, want the valid one to survive", len(records))
			}
		})
	}
}

func TestRecords_OutsideWindowSkipped(t *testing.T) {
	n := New(testLogger())
	batch := &providers.RawBatch{
		Provider: cost.ProviderGCP,
		Costs: []providers.RawCostRecord{
			{Provider: cost.ProviderGCP, GCP: &providers.GCPBillingRow{
				UsageDate: "2026-06-30", Service: "Compute Engine", Cost: f64(5), Currency: "USD",
			}},
			{Provider: cost.ProviderGCP, GCP: &providers.GCPBillingRow{
				UsageDate: "2026-07-01", Service: "Compute Engine", Cost: f64(7), Currency: "USD",
			}},
		},
	}

	records, warnings := n.Records(batch, testWindow())
	if len(records) != 1 {
		t.Fatalf("Records() kept %d records, want 1 inside the window", len(records))
	}
	if len(warnings) != 1 {
		t.Fatalf("Records() warnings = %v, want 1 for the out-of-window row", warnings)
	}
	if !records[0].Date.Equal(time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("kept record date = %v, want 2026-07-01", records[0].Date)
	}
}

func TestRecords_AzureDateKey(t *testing.T) {
	n := New(testLogger())
	batch := &providers.RawBatch{
		Provider: cost.ProviderAzure,
		Costs: []providers.RawCostRecord{
			{Provider: cost.ProviderAzure, Azure: &providers.AzureUsageRow{
				DateKey: 20260715, Service: "Virtual Machines", Location: "eastus",
				PreTaxCost: f64(42.1), Currency: "EUR", SubscriptionID: "sub-1",
			}},
		},
	}

	records, warnings := n.Records(batch, testWindow())
	if len(warnings) != 0 || len(records) != 1 {
		t.Fatalf("Records() = %d records, %v warnings", len(records), warnings)
	}
	rec := records[0]
	if !rec.Date.Equal(time.Date(2026, 7, 15, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("date = %v, want 2026-07-15", rec.Date)
	}
	if rec.Currency != "EUR" || rec.Account != "sub-1" || rec.Region != "eastus" {
		t.Errorf("record = %+v, want EUR/sub-1/eastus passthrough", rec)
	}
}

func TestFlattenLabels(t *testing.T) {
	labels := map[string]interface{}{
		"env":  "prod",
		"team": map[string]interface{}{"name": "platform", "tier": 2},
		"nil":  nil,
	}
	flat := flattenLabels(labels)

	want := map[string]string{
		"env":       "prod",
		"team.name": "platform",
		"team.tier": "2",
	}
	if len(flat) != len(want) {
		t.Fatalf("flattenLabels() = %v, want %v", flat, want)
	}
	for k, v := range want {
		if flat[k] != v {
			t.Errorf("flattenLabels()[%q] = %q, want %q", k, flat[k], v)
		}
	}
}

func TestResources(t *testing.T) {
	n := New(testLogger())
	batch := &providers.RawBatch{
		Provider: cost.ProviderGCP,
		Resources: []providers.RawResource{
			{Provider: cost.ProviderGCP, GCP: &providers.GCPInstanceRow{
				ID: "123", Name: "web-1", Zone: "https://compute.googleapis.com/zones/us-central1-a",
				Status: "RUNNING", NatIP: "34.1.2.3", IdlePct: f64(80), EstimatedMonthlyCost: f64(120),
			}},
			{Provider: cost.ProviderGCP, GCP: &providers.GCPInstanceRow{
				ID: "456", Name: "batch-1", Zone: "europe-west1-b", Status: "TERMINATED",
			}},
		},
	}

	resources, warnings := n.Resources(batch)
	if len(warnings) != 0 || len(resources) != 2 {
		t.Fatalf("Resources() = %d resources, %v warnings", len(resources), warnings)
	}

	r := resources[0]
	if r.Region != "us-central1" {
		t.Errorf("region = %q, want us-central1", r.Region)
	}
	if r.State != resource.StateRunning || r.ExternalIP != "34.1.2.3" {
		t.Errorf("resource = %+v, want running with external ip", r)
	}
	if r.IdleSignal != 80 || r.Cost30d != 120 {
		t.Errorf("signals = idle %v cost %v, want 80/120", r.IdleSignal, r.Cost30d)
	}
	if resources[1].State != resource.StateStopped {
		t.Errorf("terminated gcp instance state = %q, want stopped", resources[1].State)
	}
}

func TestAWSStateMapping(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"running", resource.StateRunning},
		{"stopped", resource.StateStopped},
		{"stopping", resource.StateStopped},
		{"terminated", resource.StateTerminated},
		{"pending", resource.StateUnknown},
	}
	for _, tt := range tests {
		if got := awsState(tt.in); got != tt.want {
			t.Errorf("awsState(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

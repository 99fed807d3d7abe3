package normalize

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spendlens/spendlens/internal/domain/cost"
	"github.com/spendlens/spendlens/internal/domain/resource"
	"github.com/spendlens/spendlens/internal/pkg/logger"
	"github.com/spendlens/spendlens/internal/pkg/metrics"
	"github.com/spendlens/spendlens/internal/providers"
)

// ServiceUnclassified is assigned when a billing row carries no service name.
const ServiceUnclassified = "unclassified"

// Normalizer converts provider-shaped rows into canonical records. Rows that
// cannot be parsed are skipped and reported as warnings; normalization never
// fails the pipeline.
type Normalizer struct {
	logger *logger.Logger
}

// New builds a Normalizer.
func New(log *logger.Logger) *Normalizer {
	return &Normalizer{logger: log}
}

// Records normalizes the billing rows of a batch. Rows with a missing amount
// or date, or with a date outside the window, are skipped with a warning.
// Currency passes through unchanged.
func (n *Normalizer) Records(batch *providers.RawBatch, window cost.Window) ([]cost.Record, []string) {
	var records []cost.Record
	var warnings []string

	for i, raw := range batch.Costs {
		rec, err := normalizeCost(raw)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("%s: cost row %d: %v", batch.Provider, i, err))
			continue
		}
		if !window.Contains(rec.Date) {
			warnings = append(warnings,
				fmt.Sprintf("%s: cost row %d: date %s outside window %s",
					batch.Provider, i, rec.Date.Format("2006-01-02"), window))
			continue
		}
		records = append(records, rec)
	}

	if len(warnings) > 0 {
		n.logger.WithFields(map[string]interface{}{
			"provider": batch.Provider,
			"skipped":  len(warnings),
			"kept":     len(records),
		}).Warn("dropped malformed cost rows")
		metrics.RecordNormalizeWarnings(batch.Provider, len(warnings))
	}
	return records, warnings
}

// Resources normalizes the inventory rows of a batch.
func (n *Normalizer) Resources(batch *providers.RawBatch) ([]resource.Resource, []string) {
	var resources []resource.Resource
	var warnings []string

	for i, raw := range batch.Resources {
		res, err := normalizeResource(raw)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("%s: resource row %d: %v", batch.Provider, i, err))
			continue
		}
		resources = append(resources, res)
	}

	if len(warnings) > 0 {
		metrics.RecordNormalizeWarnings(batch.Provider, len(warnings))
	}
	return resources, warnings
}

func normalizeCost(raw providers.RawCostRecord) (cost.Record, error) {
	switch {
	case raw.AWS != nil:
		return awsCost(raw.AWS)
	case raw.GCP != nil:
		return gcpCost(raw.GCP)
	case raw.Azure != nil:
		return azureCost(raw.Azure)
	}
	return cost.Record{}, fmt.Errorf("no provider variant set")
}

func awsCost(row *providers.AWSCostRow) (cost.Record, error) {
	if row.Amount == "" {
		return cost.Record{}, fmt.Errorf("missing amount")
	}
	amount, err := strconv.ParseFloat(row.Amount, 64)
	if err != nil {
		return cost.Record{}, fmt.Errorf("non-numeric amount %q", row.Amount)
	}
	if row.StartDate == "" {
		return cost.Record{}, fmt.Errorf("missing date")
	}
	date, err := time.Parse("2006-01-02", row.StartDate)
	if err != nil {
		return cost.Record{}, fmt.Errorf("invalid date %q", row.StartDate)
	}
	return cost.Record{
		Amount:   amount,
		Currency: row.Unit,
		Date:     cost.Day(date),
		Service:  serviceOr(row.Service),
		Provider: cost.ProviderAWS,
		Account:  row.Account,
		Region:   row.Region,
		Tags:     row.Tags,
	}, nil
}

func gcpCost(row *providers.GCPBillingRow) (cost.Record, error) {
	if row.Cost == nil {
		return cost.Record{}, fmt.Errorf("missing cost")
	}
	if row.UsageDate == "" {
		return cost.Record{}, fmt.Errorf("missing usage date")
	}
	date, err := time.Parse("2006-01-02", row.UsageDate)
	if err != nil {
		return cost.Record{}, fmt.Errorf("invalid usage date %q", row.UsageDate)
	}
	return cost.Record{
		Amount:   *row.Cost,
		Currency: row.Currency,
		Date:     cost.Day(date),
		Service:  serviceOr(row.Service),
		Provider: cost.ProviderGCP,
		Account:  row.ProjectID,
		Region:   row.Region,
		Tags:     flattenLabels(row.Labels),
	}, nil
}

func azureCost(row *providers.AzureUsageRow) (cost.Record, error) {
	if row.PreTaxCost == nil {
		return cost.Record{}, fmt.Errorf("missing cost")
	}
	if row.DateKey == 0 {
		return cost.Record{}, fmt.Errorf("missing date key")
	}
	year := row.DateKey / 10000
	month := (row.DateKey % 10000) / 100
	day := row.DateKey % 100
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return cost.Record{}, fmt.Errorf("invalid date key %d", row.DateKey)
	}
	return cost.Record{
		Amount:   *row.PreTaxCost,
		Currency: row.Currency,
		Date:     time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC),
		Service:  serviceOr(row.Service),
		Provider: cost.ProviderAzure,
		Account:  row.SubscriptionID,
		Region:   row.Location,
		Tags:     row.Tags,
	}, nil
}

func serviceOr(name string) string {
	if strings.TrimSpace(name) == "" {
		return ServiceUnclassified
	}
	return name
}

// flattenLabels reduces a possibly nested label structure to one string map.
// Nested maps contribute dotted keys; scalar values are stringified.
func flattenLabels(labels map[string]interface{}) map[string]string {
	if len(labels) == 0 {
		return nil
	}
	out := make(map[string]string, len(labels))
	flattenInto(out, "", labels)
	if len(out) == 0 {
		return nil
	}
	return out
}

func flattenInto(out map[string]string, prefix string, labels map[string]interface{}) {
	for k, v := range labels {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch val := v.(type) {
		case nil:
			continue
		case string:
			out[key] = val
		case map[string]interface{}:
			flattenInto(out, key, val)
		default:
			out[key] = fmt.Sprint(val)
		}
	}
}

func normalizeResource(raw providers.RawResource) (resource.Resource, error) {
	switch {
	case raw.AWS != nil:
		return awsResource(raw.AWS), nil
	case raw.GCP != nil:
		return gcpResource(raw.GCP), nil
	case raw.Azure != nil:
		return azureResource(raw.Azure), nil
	}
	return resource.Resource{}, fmt.Errorf("no provider variant set")
}

func awsResource(row *providers.AWSInstanceRow) resource.Resource {
	name := row.NameTag
	if name == "" {
		name = row.InstanceID
	}
	return resource.Resource{
		ID:         row.InstanceID,
		Name:       name,
		Type:       resource.TypeComputeInstance,
		Provider:   cost.ProviderAWS,
		Region:     row.Region,
		State:      awsState(row.State),
		ExternalIP: row.PublicIPAddress,
		IdleSignal: derefFloat(row.IdlePct),
		Cost30d:    derefFloat(row.EstimatedMonthlyCost),
	}
}

func awsState(state string) string {
	switch state {
	case "running":
		return resource.StateRunning
	case "stopped", "stopping":
		return resource.StateStopped
	case "terminated", "shutting-down":
		return resource.StateTerminated
	}
	return resource.StateUnknown
}

func gcpResource(row *providers.GCPInstanceRow) resource.Resource {
	return resource.Resource{
		ID:         row.ID,
		Name:       row.Name,
		Type:       resource.TypeComputeInstance,
		Provider:   cost.ProviderGCP,
		Region:     regionFromZone(row.Zone),
		State:      gcpState(row.Status),
		ExternalIP: row.NatIP,
		IdleSignal: derefFloat(row.IdlePct),
		Cost30d:    derefFloat(row.EstimatedMonthlyCost),
	}
}

func gcpState(status string) string {
	switch status {
	case "RUNNING":
		return resource.StateRunning
	// A TERMINATED Compute Engine instance still exists and can be restarted.
	case "STOPPED", "SUSPENDED", "TERMINATED", "STOPPING":
		return resource.StateStopped
	}
	return resource.StateUnknown
}

// regionFromZone reduces a zone URL or name ("…/zones/us-central1-a") to its
// region ("us-central1").
func regionFromZone(zone string) string {
	if idx := strings.LastIndex(zone, "/"); idx >= 0 {
		zone = zone[idx+1:]
	}
	if idx := strings.LastIndex(zone, "-"); idx > 0 {
		return zone[:idx]
	}
	return zone
}

func azureResource(row *providers.AzureVMRow) resource.Resource {
	return resource.Resource{
		ID:         row.VMID,
		Name:       row.Name,
		Type:       resource.TypeComputeInstance,
		Provider:   cost.ProviderAzure,
		Region:     row.Location,
		State:      azureState(row.PowerState),
		ExternalIP: row.PublicIPAddress,
		IdleSignal: derefFloat(row.IdlePct),
		Cost30d:    derefFloat(row.EstimatedMonthlyCost),
	}
}

func azureState(powerState string) string {
	switch powerState {
	case "running", "starting":
		return resource.StateRunning
	case "stopped", "stopping", "deallocated", "deallocating":
		return resource.StateStopped
	}
	return resource.StateUnknown
}

func derefFloat(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}

package analytics

import (
	"fmt"
	"sort"
	"time"

	"github.com/spendlens/spendlens/internal/config"
	"github.com/spendlens/spendlens/internal/domain/analysis"
	"github.com/spendlens/spendlens/internal/domain/cost"
	"github.com/spendlens/spendlens/internal/domain/resource"
	"github.com/spendlens/spendlens/internal/pkg/logger"
)

// Aggregator assembles the full analytics document for one provider's
// records, and merges per-provider documents into an aggregate one. Merging
// re-runs the derived engines (anomalies, forecast, roll-ups) on the merged
// inputs, so merge order never changes the outcome.
type Aggregator struct {
	cfg       config.AnalyticsConfig
	anomalies *AnomalyDetector
	forecast  *Forecaster
	risk      *RiskScorer
	logger    *logger.Logger
}

// NewAggregator builds an aggregator and its sub-engines.
func NewAggregator(cfg config.AnalyticsConfig, log *logger.Logger) *Aggregator {
	return &Aggregator{
		cfg:       cfg,
		anomalies: NewAnomalyDetector(cfg, log),
		forecast:  NewForecaster(cfg, log),
		risk:      NewRiskScorer(cfg, log),
		logger:    log,
	}
}

// Build produces the analytics document for one provider. The issues slice
// carries conditions recorded upstream (policy violations, provider
// failures); Build appends data conditions it finds itself.
func (a *Aggregator) Build(provider string, window cost.Window, records []cost.Record,
	resources []resource.Resource, issues []analysis.GovernanceIssue, warnings []string) *analysis.Result {

	trends := buildTrends(records, window)
	drivers := buildDrivers(records)

	currency, mixed := detectCurrency(records)
	if mixed {
		issues = append(issues, analysis.GovernanceIssue{
			Kind:   analysis.IssueMixedCurrency,
			Detail: "records in the window carry more than one currency; totals are not converted",
		})
	}

	var total float64
	for _, p := range trends {
		total += p.Amount
	}

	scored := a.risk.Score(resources)

	result := &analysis.Result{
		Meta: analysis.Meta{
			Provider:    provider,
			Period:      fmt.Sprintf("%dd", window.Days()),
			Window:      window,
			GeneratedAt: time.Now().UTC(),
		},
		Summary: analysis.Summary{
			TotalCost:     total,
			ResourceCount: distinctResources(scored),
			RiskScore:     a.risk.SummaryRisk(scored),
			Currency:      currency,
		},
		Trends:            trends,
		Anomalies:         a.anomalies.Detect(provider, trends),
		Forecast:          a.forecast.Project(trends, window),
		GovernanceIssues:  issues,
		Resources:         scored,
		CostDrivers:       drivers,
		ResourceTypes:     typeHistogram(scored),
		RunningCount:      runningCount(scored),
		HighCostResources: a.risk.HighCost(scored),
		IdleResources:     a.risk.Idle(scored),
		WasteFindings:     a.risk.Findings(scored),
		Warnings:          warnings,
	}
	result.Executive = a.buildExecutive(result)
	return result
}

// distinctResources counts unique (provider, id) keys so a single-provider
// document reports the same count its merged counterpart would.
func distinctResources(resources []resource.Resource) int {
	seen := make(map[resource.Key]bool, len(resources))
	for _, r := range resources {
		seen[r.Key()] = true
	}
	return len(seen)
}

// Merge folds per-provider documents into one aggregate document. Parts must
// share the window. A part may itself be a merged document; merging is
// associative because every derived field is recomputed from the merged
// trends and the resource union.
func (a *Aggregator) Merge(window cost.Window, parts []*analysis.Result,
	issues []analysis.GovernanceIssue, warnings []string) *analysis.Result {

	byDate := make(map[time.Time]float64)
	byService := make(map[string]float64)
	seen := make(map[resource.Key]bool)
	var resources []resource.Resource
	currencies := make(map[string]bool)
	currencyUnknown := false

	for _, part := range parts {
		for _, p := range part.Trends {
			byDate[p.Date] += p.Amount
		}
		for _, d := range part.CostDrivers {
			byService[d.Service] += d.Cost
		}
		for _, r := range part.Resources {
			if !seen[r.Key()] {
				seen[r.Key()] = true
				resources = append(resources, r)
			}
		}
		if part.Summary.Currency == "" {
			if part.Summary.TotalCost != 0 {
				currencyUnknown = true
			}
		} else {
			currencies[part.Summary.Currency] = true
		}
		issues = append(issues, part.GovernanceIssues...)
		warnings = append(warnings, part.Warnings...)
	}

	trends := make([]cost.TrendPoint, 0, window.Days())
	var total float64
	for d := window.Start; !d.After(window.End); d = d.AddDate(0, 0, 1) {
		amount := byDate[d]
		total += amount
		trends = append(trends, cost.TrendPoint{Date: d, Amount: amount})
	}

	drivers := make([]cost.Driver, 0, len(byService))
	for service, c := range byService {
		drivers = append(drivers, cost.Driver{Service: service, Cost: c})
	}
	rankDrivers(drivers)

	var currency string
	if len(currencies) == 1 && !currencyUnknown {
		for c := range currencies {
			currency = c
		}
	}
	if len(currencies) > 1 {
		issues = append(issues, analysis.GovernanceIssue{
			Kind:   analysis.IssueMixedCurrency,
			Detail: "providers report different currencies; totals are not converted",
		})
	}

	result := &analysis.Result{
		Meta: analysis.Meta{
			Provider:    analysis.AggregateProvider,
			Period:      fmt.Sprintf("%dd", window.Days()),
			Window:      window,
			GeneratedAt: time.Now().UTC(),
		},
		Summary: analysis.Summary{
			TotalCost:     total,
			ResourceCount: len(resources),
			RiskScore:     a.risk.SummaryRisk(resources),
			Currency:      currency,
		},
		Trends:            trends,
		Anomalies:         a.anomalies.Detect(analysis.AggregateProvider, trends),
		Forecast:          a.forecast.Project(trends, window),
		GovernanceIssues:  issues,
		Resources:         resources,
		CostDrivers:       drivers,
		ResourceTypes:     typeHistogram(resources),
		RunningCount:      runningCount(resources),
		HighCostResources: a.risk.HighCost(resources),
		IdleResources:     a.risk.Idle(resources),
		WasteFindings:     a.risk.Findings(resources),
		Warnings:          warnings,
	}
	result.Executive = a.buildExecutive(result)
	return result
}

// buildTrends groups record amounts by calendar day and gap-fills every day
// of the window, ascending.
func buildTrends(records []cost.Record, window cost.Window) []cost.TrendPoint {
	byDate := make(map[time.Time]float64)
	for _, rec := range records {
		byDate[cost.Day(rec.Date)] += rec.Amount
	}
	trends := make([]cost.TrendPoint, 0, window.Days())
	for d := window.Start; !d.After(window.End); d = d.AddDate(0, 0, 1) {
		trends = append(trends, cost.TrendPoint{Date: d, Amount: byDate[d]})
	}
	return trends
}

// buildDrivers ranks services by total spend, descending, ties alphabetical.
// The full ranking is returned; truncation is a presentation concern.
func buildDrivers(records []cost.Record) []cost.Driver {
	byService := make(map[string]float64)
	for _, rec := range records {
		byService[rec.Service] += rec.Amount
	}
	drivers := make([]cost.Driver, 0, len(byService))
	for service, c := range byService {
		drivers = append(drivers, cost.Driver{Service: service, Cost: c})
	}
	rankDrivers(drivers)
	return drivers
}

func rankDrivers(drivers []cost.Driver) {
	sort.Slice(drivers, func(i, j int) bool {
		if drivers[i].Cost != drivers[j].Cost {
			return drivers[i].Cost > drivers[j].Cost
		}
		return drivers[i].Service < drivers[j].Service
	})
}

// detectCurrency returns the shared currency of the records, or reports a
// mix. Records without a currency leave the summary currency unset but are
// not by themselves a mix.
func detectCurrency(records []cost.Record) (string, bool) {
	currencies := make(map[string]bool)
	unknown := false
	for _, rec := range records {
		if rec.Currency == "" {
			unknown = true
			continue
		}
		currencies[rec.Currency] = true
	}
	if len(currencies) > 1 {
		return "", true
	}
	if len(currencies) == 1 && !unknown {
		for c := range currencies {
			return c, false
		}
	}
	return "", false
}

func typeHistogram(resources []resource.Resource) map[string]int {
	hist := make(map[string]int)
	for _, r := range resources {
		hist[r.Type]++
	}
	return hist
}

func runningCount(resources []resource.Resource) int {
	count := 0
	for _, r := range resources {
		if r.State == resource.StateRunning {
			count++
		}
	}
	return count
}

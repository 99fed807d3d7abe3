package analysis

import (
	"time"

	"github.com/spendlens/spendlens/internal/domain/cost"
	"github.com/spendlens/spendlens/internal/domain/resource"
)

// AggregateProvider is the Meta.Provider value of a merged multi-provider result.
const AggregateProvider = "aggregate"

// Meta describes the run that produced a result.
type Meta struct {
	Provider    string      `json:"provider"`
	Period      string      `json:"period"`
	Window      cost.Window `json:"window"`
	GeneratedAt time.Time   `json:"generated_at"`
}

// Summary is the headline block of a result. Currency is set only when every
// record in the window shares one currency; a mixed-currency window leaves it
// empty and surfaces a governance issue instead.
type Summary struct {
	TotalCost     float64 `json:"total_cost"`
	ResourceCount int     `json:"resource_count"`
	RiskScore     float64 `json:"risk_score"`
	Currency      string  `json:"currency,omitempty"`
}

// Anomaly types
const (
	AnomalyTypeSpike    = "spike"
	AnomalyTypeDrop     = "drop"
	AnomalyTypeNewSpend = "new-spend"
)

// Anomaly severities
const (
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// Anomaly is a trend-series day that deviates from its rolling baseline.
// DeviationRatio is amount/baseline; it is zero for the new-spend case where
// the baseline itself is zero.
type Anomaly struct {
	ID             string    `json:"id"`
	Date           time.Time `json:"date"`
	Amount         float64   `json:"amount"`
	Baseline       float64   `json:"baseline"`
	DeviationRatio float64   `json:"deviation_ratio"`
	Type           string    `json:"type"`
	Severity       string    `json:"severity"`
}

// ForecastPoint is one projected 30-day period.
type ForecastPoint struct {
	Month          string  `json:"month"`
	PredictedCost  float64 `json:"predicted_cost"`
	ConfidenceLow  float64 `json:"confidence_low"`
	ConfidenceHigh float64 `json:"confidence_high"`
}

// Governance issue kinds
const (
	IssueProviderFailure = "provider-failure"
	IssuePolicyViolation = "policy-violation"
	IssueMixedCurrency   = "mixed-currency"
)

// GovernanceIssue is a recorded condition surfaced alongside analytics:
// a failed provider in aggregate mode, a policy violation, or a data
// condition the consumer should know about.
type GovernanceIssue struct {
	Kind      string  `json:"kind"`
	Provider  string  `json:"provider,omitempty"`
	ErrorKind string  `json:"error_kind,omitempty"`
	Policy    string  `json:"policy,omitempty"`
	Scope     string  `json:"scope,omitempty"`
	Actual    float64 `json:"actual,omitempty"`
	Detail    string  `json:"detail,omitempty"`
}

// WasteFinding is one resource with at least one triggered waste rule.
type WasteFinding struct {
	ResourceID   string   `json:"resource_id"`
	ResourceName string   `json:"resource_name"`
	ResourceType string   `json:"resource_type"`
	Provider     string   `json:"provider"`
	Reasons      []string `json:"reasons"`
	MonthlyCost  float64  `json:"monthly_cost"`
}

// Exposure categories for the executive summary.
const (
	ExposureLow      = "LOW"
	ExposureModerate = "MODERATE"
	ExposureHigh     = "HIGH"
	ExposureCritical = "CRITICAL"
)

// ExecutiveSummary is the org-level risk roll-up derived from a completed
// result: waste share, anomaly and violation counts, and forecast trend,
// folded into a 0-100 composite.
type ExecutiveSummary struct {
	TotalSpend           float64 `json:"total_spend"`
	WastePercentage      float64 `json:"waste_percentage"`
	AnomalyCount         int     `json:"anomaly_count"`
	GovernanceViolations int     `json:"governance_violations"`
	ForecastTrendPct     float64 `json:"forecast_trend_percent"`
	RiskScore            float64 `json:"risk_score"`
	ExposureCategory     string  `json:"exposure_category"`
}

// Result is the full analytics document handed to the presentation layer.
// Field names and nesting are part of the consumer contract.
type Result struct {
	Meta              Meta                `json:"meta"`
	Summary           Summary             `json:"summary"`
	Trends            []cost.TrendPoint   `json:"trends"`
	Anomalies         []Anomaly           `json:"anomalies"`
	Forecast          []ForecastPoint     `json:"forecast"`
	GovernanceIssues  []GovernanceIssue   `json:"governance_issues"`
	Resources         []resource.Resource `json:"resources"`
	CostDrivers       []cost.Driver       `json:"cost_drivers"`
	ResourceTypes     map[string]int      `json:"resource_types"`
	RunningCount      int                 `json:"running_count"`
	HighCostResources []resource.Resource `json:"high_cost_resources"`
	IdleResources     []resource.Resource `json:"idle_resources"`
	WasteFindings     []WasteFinding      `json:"waste_findings"`
	Warnings          []string            `json:"warnings,omitempty"`
	Executive         *ExecutiveSummary   `json:"executive_summary,omitempty"`
}

package analytics

import (
	"github.com/spendlens/spendlens/internal/domain/analysis"
)

// buildExecutive folds a completed document into the org-level roll-up:
// waste share, anomaly and violation counts, and forecast trend, each capped
// at 100 and weighted into a composite score.
func (a *Aggregator) buildExecutive(result *analysis.Result) *analysis.ExecutiveSummary {
	total := result.Summary.TotalCost

	var wasteCost float64
	for _, f := range result.WasteFindings {
		wasteCost += f.MonthlyCost
	}
	wastePct := 0.0
	if total > 0 {
		wastePct = wasteCost / total * 100
	}

	violations := 0
	for _, issue := range result.GovernanceIssues {
		if issue.Kind == analysis.IssuePolicyViolation {
			violations++
		}
	}

	// Forecast trend compares the first projected period against the
	// window's spend scaled to a 30-day month.
	trendPct := 0.0
	if len(result.Forecast) > 0 && total > 0 {
		days := result.Meta.Window.Days()
		monthly := total / float64(days) * 30
		if monthly > 0 {
			trendPct = (result.Forecast[0].PredictedCost - monthly) / monthly * 100
		}
	}

	score := cap100(wastePct)*0.3 +
		cap100(float64(len(result.Anomalies))*5)*0.2 +
		cap100(float64(violations)*10)*0.3
	if trendPct > 0 {
		score += cap100(trendPct) * 0.2
	}

	return &analysis.ExecutiveSummary{
		TotalSpend:           total,
		WastePercentage:      wastePct,
		AnomalyCount:         len(result.Anomalies),
		GovernanceViolations: violations,
		ForecastTrendPct:     trendPct,
		RiskScore:            score,
		ExposureCategory:     exposure(score),
	}
}

func exposure(score float64) string {
	switch {
	case score > 75:
		return analysis.ExposureCritical
	case score > 50:
		return analysis.ExposureHigh
	case score > 25:
		return analysis.ExposureModerate
	}
	return analysis.ExposureLow
}

func cap100(v float64) float64 {
	if v > 100 {
		return 100
	}
	return v
}

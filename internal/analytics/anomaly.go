package analytics

import (
	"sort"

	"github.com/google/uuid"

	"github.com/spendlens/spendlens/internal/config"
	"github.com/spendlens/spendlens/internal/domain/analysis"
	"github.com/spendlens/spendlens/internal/domain/cost"
	"github.com/spendlens/spendlens/internal/pkg/logger"
	"github.com/spendlens/spendlens/internal/pkg/metrics"
)

// AnomalyDetector flags days whose spend deviates from a rolling median
// baseline. The median absorbs single-day outliers that would drag a mean
// baseline toward the anomaly it is supposed to expose.
type AnomalyDetector struct {
	cfg    config.AnalyticsConfig
	logger *logger.Logger
}

// NewAnomalyDetector builds a detector with the given thresholds.
func NewAnomalyDetector(cfg config.AnalyticsConfig, log *logger.Logger) *AnomalyDetector {
	return &AnomalyDetector{cfg: cfg, logger: log}
}

// Detect scans a gap-filled daily series in ascending date order. Days
// without a full baseline window of preceding days are never flagged. The
// returned anomalies are chronological.
func (d *AnomalyDetector) Detect(provider string, series []cost.TrendPoint) []analysis.Anomaly {
	var anomalies []analysis.Anomaly

	for i := d.cfg.AnomalyBaselineDays; i < len(series); i++ {
		baseline := median(series[i-d.cfg.AnomalyBaselineDays : i])
		amount := series[i].Amount

		var typ string
		switch {
		case baseline == 0 && amount > 0:
			typ = analysis.AnomalyTypeNewSpend
		case baseline > 0 && amount > baseline*d.cfg.AnomalySpikeRatio:
			typ = analysis.AnomalyTypeSpike
		case baseline > 0 && amount < baseline*d.cfg.AnomalyDropRatio:
			typ = analysis.AnomalyTypeDrop
		default:
			continue
		}

		a := analysis.Anomaly{
			ID:       uuid.New().String(),
			Date:     series[i].Date,
			Amount:   amount,
			Baseline: baseline,
			Type:     typ,
		}
		if baseline > 0 {
			a.DeviationRatio = amount / baseline
		}
		a.Severity = severity(a)
		anomalies = append(anomalies, a)
		metrics.RecordAnomaly(provider, a.Severity)
	}

	if len(anomalies) > 0 {
		d.logger.WithFields(map[string]interface{}{
			"provider": provider,
			"count":    len(anomalies),
		}).Info("anomalies detected")
	}
	return anomalies
}

// severity grades an anomaly by its percentage deviation from baseline. A
// new-spend day has no meaningful deviation and is graded high outright.
func severity(a analysis.Anomaly) string {
	if a.Type == analysis.AnomalyTypeNewSpend {
		return analysis.SeverityHigh
	}
	deviation := (a.Amount - a.Baseline) / a.Baseline * 100
	if deviation < 0 {
		deviation = -deviation
	}
	switch {
	case deviation > 100:
		return analysis.SeverityCritical
	case deviation > 50:
		return analysis.SeverityHigh
	case deviation > 25:
		return analysis.SeverityMedium
	}
	return analysis.SeverityLow
}

func median(points []cost.TrendPoint) float64 {
	if len(points) == 0 {
		return 0
	}
	amounts := make([]float64, len(points))
	for i, p := range points {
		amounts[i] = p.Amount
	}
	sort.Float64s(amounts)
	mid := len(amounts) / 2
	if len(amounts)%2 == 0 {
		return (amounts[mid-1] + amounts[mid]) / 2
	}
	return amounts[mid]
}

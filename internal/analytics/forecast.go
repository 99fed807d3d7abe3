package analytics

import (
	"github.com/spendlens/spendlens/internal/config"
	"github.com/spendlens/spendlens/internal/domain/analysis"
	"github.com/spendlens/spendlens/internal/domain/cost"
	"github.com/spendlens/spendlens/internal/pkg/logger"
)

// Forecaster projects spend forward with a least-squares linear fit over the
// daily series. The projection is deterministic for a given series and
// window; it never consults the wall clock.
type Forecaster struct {
	cfg    config.AnalyticsConfig
	logger *logger.Logger
}

// NewForecaster builds a forecaster.
func NewForecaster(cfg config.AnalyticsConfig, log *logger.Logger) *Forecaster {
	return &Forecaster{cfg: cfg, logger: log}
}

// Project fits y = a + b*x to the gap-filled series (x is the day index) and
// projects the configured number of forward 30-day periods. Each period's
// predicted cost is the fitted daily rate at the period midpoint times 30,
// floored at zero, with a symmetric confidence band around it.
func (f *Forecaster) Project(series []cost.TrendPoint, window cost.Window) []analysis.ForecastPoint {
	n := len(series)
	if n < 2 {
		return nil
	}

	var sumX, sumY, sumXY, sumXX float64
	for i, p := range series {
		x := float64(i)
		sumX += x
		sumY += p.Amount
		sumXY += x * p.Amount
		sumXX += x * x
	}
	nf := float64(n)
	denom := nf*sumXX - sumX*sumX
	if denom == 0 {
		return nil
	}
	b := (nf*sumXY - sumX*sumY) / denom
	a := (sumY - b*sumX) / nf

	points := make([]analysis.ForecastPoint, 0, f.cfg.ForecastPeriods)
	for i := 1; i <= f.cfg.ForecastPeriods; i++ {
		mid := float64(n-1) + (float64(i)-0.5)*30
		predicted := (a + b*mid) * 30
		if predicted < 0 {
			predicted = 0
		}
		low := predicted * (1 - f.cfg.ForecastConfidence)
		if low < 0 {
			low = 0
		}
		points = append(points, analysis.ForecastPoint{
			Month:          window.End.AddDate(0, i, 0).Format("2006-01"),
			PredictedCost:  predicted,
			ConfidenceLow:  low,
			ConfidenceHigh: predicted * (1 + f.cfg.ForecastConfidence),
		})
	}
	return points
}

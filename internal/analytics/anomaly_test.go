package analytics

import (
	"testing"
	"time"

	"github.com/spendlens/spendlens/internal/config"
	"github.com/spendlens/spendlens/internal/domain/analysis"
	"github.com/spendlens/spendlens/internal/domain/cost"
	"github.com/spendlens/spendlens/internal/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Level: "error", Format: "json"})
}

func series(amounts ...float64) []cost.TrendPoint {
	start := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	points := make([]cost.TrendPoint, len(amounts))
	for i, a := range amounts {
		points[i] = cost.TrendPoint{Date: start.AddDate(0, 0, i), Amount: a}
	}
	return points
}

func TestDetect_SpikeAgainstMedianBaseline(t *testing.T) {
	d := NewAnomalyDetector(config.DefaultAnalytics(), testLogger())

	anomalies := d.Detect("aws", series(10, 10, 10, 10, 10, 10, 10, 10, 100, 10))
	if len(anomalies) != 1 {
		t.Fatalf("Detect() flagged %d anomalies, want 1: %+v", len(anomalies), anomalies)
	}

	a := anomalies[0]
	if a.Type != analysis.AnomalyTypeSpike {
		t.Errorf("type = %q, want spike", a.Type)
	}
	if a.Baseline != 10 {
		t.Errorf("baseline = %v, want 10", a.Baseline)
	}
	if a.Amount != 100 {
		t.Errorf("amount = %v, want 100", a.Amount)
	}
	if a.DeviationRatio != 10 {
		t.Errorf("deviation ratio = %v, want 10", a.DeviationRatio)
	}
	if a.Severity != analysis.SeverityCritical {
		t.Errorf("severity = %q, want critical for a 900%% deviation", a.Severity)
	}
	wantDate := time.Date(2026, 7, 9, 0, 0, 0, 0, time.UTC)
	if !a.Date.Equal(wantDate) {
		t.Errorf("date = %v, want %v", a.Date, wantDate)
	}
	if a.ID == "" {
		t.Error("anomaly id is empty")
	}
}

func TestDetect_NewSpendOnZeroBaseline(t *testing.T) {
	d := NewAnomalyDetector(config.DefaultAnalytics(), testLogger())

	anomalies := d.Detect("gcp", series(0, 0, 0, 0, 0, 0, 0, 50))
	if len(anomalies) != 1 {
		t.Fatalf("Detect() flagged %d anomalies, want 1: %+v", len(anomalies), anomalies)
	}
	a := anomalies[0]
	if a.Type != analysis.AnomalyTypeNewSpend {
		t.Errorf("type = %q, want new-spend", a.Type)
	}
	if a.Baseline != 0 || a.DeviationRatio != 0 {
		t.Errorf("baseline/ratio = %v/%v, want 0/0", a.Baseline, a.DeviationRatio)
	}
}

func TestDetect_Drop(t *testing.T) {
	d := NewAnomalyDetector(config.DefaultAnalytics(), testLogger())

	anomalies := d.Detect("aws", series(100, 100, 100, 100, 100, 100, 100, 20))
	if len(anomalies) != 1 {
		t.Fatalf("Detect() flagged %d anomalies, want 1: %+v", len(anomalies), anomalies)
	}
	a := anomalies[0]
	if a.Type != analysis.AnomalyTypeDrop {
		t.Errorf("type = %q, want drop", a.Type)
	}
	if a.Severity != analysis.SeverityHigh {
		t.Errorf("severity = %q, want high for an 80%% drop", a.Severity)
	}
}

func TestDetect_QuietSeriesFlagsNothing(t *testing.T) {
	d := NewAnomalyDetector(config.DefaultAnalytics(), testLogger())

	if got := d.Detect("aws", series(10, 11, 9, 10, 12, 10, 9, 11, 10, 12)); len(got) != 0 {
		t.Errorf("Detect() = %+v, want no anomalies on a quiet series", got)
	}
}

func TestDetect_NoBaselineWindowNoFlags(t *testing.T) {
	d := NewAnomalyDetector(config.DefaultAnalytics(), testLogger())

	// Fewer points than the baseline window: nothing can be flagged.
	if got := d.Detect("aws", series(10, 1000, 10)); len(got) != 0 {
		t.Errorf("Detect() = %+v, want none without a full baseline window", got)
	}
}

func TestDetect_ChronologicalOrder(t *testing.T) {
	d := NewAnomalyDetector(config.DefaultAnalytics(), testLogger())

	anomalies := d.Detect("aws", series(10, 10, 10, 10, 10, 10, 10, 100, 10, 10, 10, 10, 10, 10, 90))
	if len(anomalies) < 2 {
		t.Fatalf("Detect() flagged %d anomalies, want at least 2", len(anomalies))
	}
	for i := 1; i < len(anomalies); i++ {
		if anomalies[i].Date.Before(anomalies[i-1].Date) {
			t.Errorf("anomalies out of order: %v before %v", anomalies[i].Date, anomalies[i-1].Date)
		}
	}
}

func TestMedian(t *testing.T) {
	tests := []struct {
		name    string
		amounts []float64
		want    float64
	}{
		{"odd", []float64{3, 1, 2}, 2},
		{"even", []float64{4, 1, 3, 2}, 2.5},
		{"single", []float64{7}, 7},
		{"empty", nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := median(series(tt.amounts...)); got != tt.want {
				t.Errorf("median(%v) = %v, want %v", tt.amounts, got, tt.want)
			}
		})
	}
}

package analytics

import (
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/spendlens/spendlens/internal/config"
	"github.com/spendlens/spendlens/internal/domain/cost"
)

func forecastWindow(days int) cost.Window {
	start := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	return cost.Window{Start: start, End: start.AddDate(0, 0, days-1)}
}

func TestProject_FlatSeries(t *testing.T) {
	f := NewForecaster(config.DefaultAnalytics(), testLogger())

	amounts := make([]float64, 30)
	for i := range amounts {
		amounts[i] = 10
	}
	points := f.Project(series(amounts...), forecastWindow(30))
	if len(points) != 3 {
		t.Fatalf("Project() returned %d periods, want 3", len(points))
	}

	// A flat 10/day series projects 300 per 30-day period.
	for i, p := range points {
		if math.Abs(p.PredictedCost-300) > 1e-6 {
			t.Errorf("period %d predicted = %v, want 300", i+1, p.PredictedCost)
		}
		if math.Abs(p.ConfidenceLow-300*0.85) > 1e-6 || math.Abs(p.ConfidenceHigh-300*1.15) > 1e-6 {
			t.Errorf("period %d band = [%v,%v], want [255,345]", i+1, p.ConfidenceLow, p.ConfidenceHigh)
		}
	}
}

func TestProject_GrowthTrendIncreases(t *testing.T) {
	f := NewForecaster(config.DefaultAnalytics(), testLogger())

	amounts := make([]float64, 30)
	for i := range amounts {
		amounts[i] = float64(i + 1)
	}
	points := f.Project(series(amounts...), forecastWindow(30))
	if len(points) != 3 {
		t.Fatalf("Project() returned %d periods, want 3", len(points))
	}
	for i := 1; i < len(points); i++ {
		if points[i].PredictedCost <= points[i-1].PredictedCost {
			t.Errorf("period %d (%v) not above period %d (%v) on a growing series",
				i+1, points[i].PredictedCost, i, points[i-1].PredictedCost)
		}
	}
}

func TestProject_DecliningSeriesFlooredAtZero(t *testing.T) {
	f := NewForecaster(config.DefaultAnalytics(), testLogger())

	amounts := make([]float64, 30)
	for i := range amounts {
		amounts[i] = float64(30 - i)
	}
	points := f.Project(series(amounts...), forecastWindow(30))
	for i, p := range points {
		if p.PredictedCost < 0 || p.ConfidenceLow < 0 {
			t.Errorf("period %d has negative projection: %+v", i+1, p)
		}
	}
}

func TestProject_Deterministic(t *testing.T) {
	f := NewForecaster(config.DefaultAnalytics(), testLogger())

	s := series(5, 7, 6, 8, 9, 7, 10, 11, 9, 12)
	w := forecastWindow(10)
	first := f.Project(s, w)
	second := f.Project(s, w)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("Project() is not deterministic:\n%+v\n%+v", first, second)
	}
}

func TestProject_MonthLabelsFollowWindowEnd(t *testing.T) {
	f := NewForecaster(config.DefaultAnalytics(), testLogger())

	points := f.Project(series(1, 2, 3, 4, 5), forecastWindow(5))
	want := []string{"2026-08", "2026-09", "2026-10"}
	for i, p := range points {
		if p.Month != want[i] {
			t.Errorf("period %d month = %q, want %q", i+1, p.Month, want[i])
		}
	}
}

func TestProject_TooShortSeries(t *testing.T) {
	f := NewForecaster(config.DefaultAnalytics(), testLogger())

	if got := f.Project(series(5), forecastWindow(1)); got != nil {
		t.Errorf("Project() on a single point = %+v, want nil", got)
	}
	if got := f.Project(nil, forecastWindow(1)); got != nil {
		t.Errorf("Project() on empty series = %+v, want nil", got)
	}
}

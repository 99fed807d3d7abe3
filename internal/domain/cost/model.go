package cost

import (
	"fmt"
	"time"
)

// Provider constants
const (
	ProviderAWS   = "aws"
	ProviderGCP   = "gcp"
	ProviderAzure = "azure"
)

// KnownProviders lists every provider the pipeline understands.
var KnownProviders = []string{ProviderGCP, ProviderAWS, ProviderAzure}

// ValidProvider reports whether name is a supported provider id.
func ValidProvider(name string) bool {
	for _, p := range KnownProviders {
		if p == name {
			return true
		}
	}
	return false
}

// Record is a cost record normalized to the canonical schema. Amount may be
// negative only for credits and refunds. Date carries no time component and
// is always UTC midnight.
type Record struct {
	Amount   float64           `json:"amount"`
	Currency string            `json:"currency"`
	Date     time.Time         `json:"date"`
	Service  string            `json:"service"`
	Provider string            `json:"provider"`
	Account  string            `json:"account,omitempty"`
	Region   string            `json:"region,omitempty"`
	Tags     map[string]string `json:"tags,omitempty"`
}

// Window is an inclusive range of calendar days. Start and End are UTC
// midnights with Start <= End.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Day truncates t to its UTC calendar day.
func Day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// LastDays builds a window covering the given number of calendar days ending
// at the day before `until` (billing data for the current day is incomplete
// on every provider).
func LastDays(days int, until time.Time) Window {
	if days < 1 {
		days = 1
	}
	end := Day(until).AddDate(0, 0, -1)
	return Window{Start: end.AddDate(0, 0, -(days - 1)), End: end}
}

// Days returns the number of calendar days in the window, inclusive.
func (w Window) Days() int {
	return int(w.End.Sub(w.Start).Hours()/24) + 1
}

// Contains reports whether the calendar day of t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	d := Day(t)
	return !d.Before(w.Start) && !d.After(w.End)
}

func (w Window) String() string {
	return fmt.Sprintf("%s..%s", w.Start.Format("2006-01-02"), w.End.Format("2006-01-02"))
}

// TrendPoint is one day of the gap-filled trend series.
type TrendPoint struct {
	Date   time.Time `json:"date"`
	Amount float64   `json:"amount"`
}

// Driver is one entry of the cost-driver ranking: a service and its total
// spend over the window. The ranking is returned in full; truncation to a
// top-N is a presentation concern.
type Driver struct {
	Service string  `json:"service"`
	Cost    float64 `json:"cost"`
}

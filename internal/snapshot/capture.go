package snapshot

import (
	"time"

	"github.com/spendlens/spendlens/internal/domain/analysis"
	"github.com/spendlens/spendlens/internal/domain/snapshot"
)

// FromResult captures an analysis document as a named snapshot. The caller
// decides whether to persist it; diffing against a fresh run works on the
// unsaved value.
func FromResult(name string, capturedAt time.Time, result *analysis.Result) *snapshot.Snapshot {
	return &snapshot.Snapshot{
		Name:       name,
		CapturedAt: capturedAt,
		Provider:   result.Meta.Provider,
		Window:     result.Meta.Window,
		Resources:  result.Resources,
		TotalCost:  result.Summary.TotalCost,
	}
}

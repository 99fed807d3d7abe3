package snapshot

import (
	"context"
	"time"

	"github.com/spendlens/spendlens/internal/domain/cost"
	"github.com/spendlens/spendlens/internal/domain/resource"
)

// SchemaVersion is written into every snapshot document so later readers can
// migrate old files.
const SchemaVersion = 1

// Snapshot is a named point-in-time capture of an analysis result, immutable
// once written. Provider is a provider id or "aggregate".
type Snapshot struct {
	SchemaVersion int                 `json:"schema_version"`
	Name          string              `json:"name"`
	CapturedAt    time.Time           `json:"captured_at"`
	Provider      string              `json:"provider"`
	Window        cost.Window         `json:"window"`
	Resources     []resource.Resource `json:"resources"`
	TotalCost     float64             `json:"total_cost"`
}

// ChangedResource is a resource present in both snapshots with differing cost.
type ChangedResource struct {
	ResourceID string  `json:"resource_id"`
	Provider   string  `json:"provider"`
	OldCost    float64 `json:"old_cost"`
	NewCost    float64 `json:"new_cost"`
	Delta      float64 `json:"delta"`
}

// Diff is the delta between a baseline snapshot and a later result. It is
// computed on demand and never persisted. NewSpend is set when the baseline
// total was zero and the current total is positive, in which case
// TotalCostDeltaPct is meaningless and left at zero.
type Diff struct {
	Baseline          string              `json:"baseline"`
	Added             []resource.Resource `json:"added"`
	Removed           []resource.Resource `json:"removed"`
	Changed           []ChangedResource   `json:"changed"`
	TotalCostDelta    float64             `json:"total_cost_delta"`
	TotalCostDeltaPct float64             `json:"total_cost_delta_pct"`
	NewSpend          bool                `json:"new_spend,omitempty"`
}

// Store persists named snapshots. Writes to one name are mutually exclusive;
// reads may proceed concurrently with unrelated writes.
type Store interface {
	Save(ctx context.Context, snap *Snapshot, overwrite bool) error
	Get(ctx context.Context, name string) (*Snapshot, error)
	List(ctx context.Context) ([]*Snapshot, error)
	Delete(ctx context.Context, name string) error
}

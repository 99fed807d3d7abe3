package snapshot

import (
	"testing"
	"time"

	"github.com/spendlens/spendlens/internal/domain/cost"
	"github.com/spendlens/spendlens/internal/domain/resource"
	"github.com/spendlens/spendlens/internal/domain/snapshot"
)

func snapWith(name string, total float64, resources ...resource.Resource) *snapshot.Snapshot {
	return &snapshot.Snapshot{
		SchemaVersion: snapshot.SchemaVersion,
		Name:          name,
		CapturedAt:    time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		Provider:      cost.ProviderAWS,
		Resources:     resources,
		TotalCost:     total,
	}
}

func res(provider, id string, cost30d float64) resource.Resource {
	return resource.Resource{ID: id, Provider: provider, Type: resource.TypeComputeInstance, Cost30d: cost30d}
}

func TestDiff_AddedRemovedChanged(t *testing.T) {
	baseline := snapWith("before", 120,
		res(cost.ProviderAWS, "r1", 50),
		res(cost.ProviderAWS, "r3", 70),
	)
	current := snapWith("after", 150,
		res(cost.ProviderAWS, "r1", 80),
		res(cost.ProviderAWS, "r2", 70),
	)

	d := Diff(baseline, current)

	if d.Baseline != "before" {
		t.Errorf("baseline = %q, want before", d.Baseline)
	}
	if len(d.Added) != 1 || d.Added[0].ID != "r2" {
		t.Errorf("added = %+v, want r2", d.Added)
	}
	if len(d.Removed) != 1 || d.Removed[0].ID != "r3" {
		t.Errorf("removed = %+v, want r3", d.Removed)
	}
	if len(d.Changed) != 1 {
		t.Fatalf("changed = %+v, want r1", d.Changed)
	}
	c := d.Changed[0]
	if c.ResourceID != "r1" || c.OldCost != 50 || c.NewCost != 80 || c.Delta != 30 {
		t.Errorf("changed[0] = %+v, want r1 50 -> 80", c)
	}
	if d.TotalCostDelta != 30 {
		t.Errorf("total delta = %v, want 30", d.TotalCostDelta)
	}
	if d.TotalCostDeltaPct != 25 {
		t.Errorf("total delta pct = %v, want 25", d.TotalCostDeltaPct)
	}
	if d.NewSpend {
		t.Error("new_spend set with a nonzero baseline")
	}
}

func TestDiff_SameIDDifferentProviderIsNotTheSameResource(t *testing.T) {
	baseline := snapWith("before", 10, res(cost.ProviderAWS, "shared", 10))
	current := snapWith("after", 10, res(cost.ProviderGCP, "shared", 10))

	d := Diff(baseline, current)
	if len(d.Added) != 1 || len(d.Removed) != 1 || len(d.Changed) != 0 {
		t.Errorf("diff = %+v, want the id treated as two distinct resources", d)
	}
}

func TestDiff_NewSpendFromZeroBaseline(t *testing.T) {
	baseline := snapWith("empty", 0)
	current := snapWith("after", 40, res(cost.ProviderAWS, "r1", 40))

	d := Diff(baseline, current)
	if !d.NewSpend {
		t.Error("new_spend not set for zero baseline with current spend")
	}
	if d.TotalCostDeltaPct != 0 {
		t.Errorf("delta pct = %v, want 0 when baseline is zero", d.TotalCostDeltaPct)
	}
	if d.TotalCostDelta != 40 {
		t.Errorf("delta = %v, want 40", d.TotalCostDelta)
	}
}

func TestDiff_BothZero(t *testing.T) {
	d := Diff(snapWith("a", 0), snapWith("b", 0))
	if d.NewSpend || d.TotalCostDelta != 0 || d.TotalCostDeltaPct != 0 {
		t.Errorf("diff of two empty snapshots = %+v, want all zero", d)
	}
}

func TestDiff_UnchangedCostNotReported(t *testing.T) {
	baseline := snapWith("a", 10, res(cost.ProviderAWS, "r1", 10))
	current := snapWith("b", 10, res(cost.ProviderAWS, "r1", 10))

	d := Diff(baseline, current)
	if len(d.Added)+len(d.Removed)+len(d.Changed) != 0 {
		t.Errorf("diff = %+v, want empty for identical snapshots", d)
	}
}

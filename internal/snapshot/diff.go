package snapshot

import (
	"sort"

	"github.com/spendlens/spendlens/internal/domain/resource"
	"github.com/spendlens/spendlens/internal/domain/snapshot"
)

// Diff compares a baseline snapshot against a current one. Resources match
// by (provider, id); a matched resource with a different 30-day cost lands in
// Changed. Added, Removed, and Changed are each ordered by provider then id
// so output is stable across runs.
func Diff(baseline, current *snapshot.Snapshot) *snapshot.Diff {
	baseByKey := make(map[resource.Key]resource.Resource, len(baseline.Resources))
	for _, r := range baseline.Resources {
		baseByKey[r.Key()] = r
	}
	curByKey := make(map[resource.Key]resource.Resource, len(current.Resources))
	for _, r := range current.Resources {
		curByKey[r.Key()] = r
	}

	d := &snapshot.Diff{Baseline: baseline.Name}

	for _, r := range current.Resources {
		old, ok := baseByKey[r.Key()]
		if !ok {
			d.Added = append(d.Added, r)
			continue
		}
		if old.Cost30d != r.Cost30d {
			d.Changed = append(d.Changed, snapshot.ChangedResource{
				ResourceID: r.ID,
				Provider:   r.Provider,
				OldCost:    old.Cost30d,
				NewCost:    r.Cost30d,
				Delta:      r.Cost30d - old.Cost30d,
			})
		}
	}
	for _, r := range baseline.Resources {
		if _, ok := curByKey[r.Key()]; !ok {
			d.Removed = append(d.Removed, r)
		}
	}

	sortResources(d.Added)
	sortResources(d.Removed)
	sort.Slice(d.Changed, func(i, j int) bool {
		if d.Changed[i].Provider != d.Changed[j].Provider {
			return d.Changed[i].Provider < d.Changed[j].Provider
		}
		return d.Changed[i].ResourceID < d.Changed[j].ResourceID
	})

	d.TotalCostDelta = current.TotalCost - baseline.TotalCost
	switch {
	case baseline.TotalCost == 0 && current.TotalCost > 0:
		d.NewSpend = true
	case baseline.TotalCost != 0:
		d.TotalCostDeltaPct = d.TotalCostDelta / baseline.TotalCost * 100
	}
	return d
}

func sortResources(rs []resource.Resource) {
	sort.Slice(rs, func(i, j int) bool {
		if rs[i].Provider != rs[j].Provider {
			return rs[i].Provider < rs[j].Provider
		}
		return rs[i].ID < rs[j].ID
	})
}

package analytics

import (
	"math"
	"sort"

	"github.com/spendlens/spendlens/internal/config"
	"github.com/spendlens/spendlens/internal/domain/analysis"
	"github.com/spendlens/spendlens/internal/domain/resource"
	"github.com/spendlens/spendlens/internal/pkg/logger"
)

// RiskScorer applies additive waste heuristics per resource and rolls them
// up into collection-level views. A resource's score is the clamped sum of
// every triggered rule's points; the rules stack.
type RiskScorer struct {
	cfg    config.AnalyticsConfig
	logger *logger.Logger
}

// NewRiskScorer builds a scorer with the given rule weights.
func NewRiskScorer(cfg config.AnalyticsConfig, log *logger.Logger) *RiskScorer {
	return &RiskScorer{cfg: cfg, logger: log}
}

// Score returns a scored copy of the input. IdleScore lands in [0,100];
// WasteReasons lists the triggered rules in evaluation order.
func (r *RiskScorer) Score(resources []resource.Resource) []resource.Resource {
	scored := make([]resource.Resource, len(resources))
	for i, res := range resources {
		scored[i] = r.scoreOne(res)
	}
	return scored
}

func (r *RiskScorer) scoreOne(res resource.Resource) resource.Resource {
	score := 0.0
	var reasons []string

	if res.State == resource.StateRunning {
		score += float64(r.cfg.RiskRunningPoints)
		reasons = append(reasons, resource.RuleRunning)
	}
	if res.ExternalIP == "" {
		score += float64(r.cfg.RiskNoExternalIPPts)
		reasons = append(reasons, resource.RuleNoExternalIP)
	}
	if res.IdleSignal > 0 {
		pts := res.IdleSignal * r.cfg.RiskIdleScale
		if max := float64(r.cfg.RiskIdleMaxPoints); pts > max {
			pts = max
		}
		score += pts
		if res.IdleSignal >= float64(r.cfg.IdleScoreThreshold) {
			reasons = append(reasons, resource.RuleIdle)
		}
	}
	if res.Cost30d > r.cfg.RiskHighCost {
		score += float64(r.cfg.RiskHighCostPts)
		reasons = append(reasons, resource.RuleHighCost)
	}
	if res.Cost30d > r.cfg.RiskVeryHighCost {
		score += float64(r.cfg.RiskHighCostPts)
		reasons = append(reasons, resource.RuleVeryHighCost)
	}

	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}
	res.IdleScore = int(math.Round(score))
	res.WasteReasons = reasons
	return res
}

// Idle returns the scored resources above the idle cutoff.
func (r *RiskScorer) Idle(scored []resource.Resource) []resource.Resource {
	var idle []resource.Resource
	for _, res := range scored {
		if res.IdleScore > r.cfg.IdleScoreThreshold {
			idle = append(idle, res)
		}
	}
	return idle
}

// HighCost returns the top cost decile of resources with nonzero spend,
// sorted by cost descending. The decile rounds up, so any nonzero spend
// yields at least one entry.
func (r *RiskScorer) HighCost(scored []resource.Resource) []resource.Resource {
	var costed []resource.Resource
	for _, res := range scored {
		if res.Cost30d > 0 {
			costed = append(costed, res)
		}
	}
	if len(costed) == 0 {
		return nil
	}
	sort.SliceStable(costed, func(i, j int) bool {
		if costed[i].Cost30d != costed[j].Cost30d {
			return costed[i].Cost30d > costed[j].Cost30d
		}
		return costed[i].Name < costed[j].Name
	})
	k := (len(costed) + 9) / 10
	return costed[:k]
}

// Findings converts every resource with at least one triggered rule into a
// waste finding.
func (r *RiskScorer) Findings(scored []resource.Resource) []analysis.WasteFinding {
	var findings []analysis.WasteFinding
	for _, res := range scored {
		if len(res.WasteReasons) == 0 {
			continue
		}
		findings = append(findings, analysis.WasteFinding{
			ResourceID:   res.ID,
			ResourceName: res.Name,
			ResourceType: res.Type,
			Provider:     res.Provider,
			Reasons:      res.WasteReasons,
			MonthlyCost:  res.Cost30d,
		})
	}
	return findings
}

// SummaryRisk is the cost-weighted mean of the per-resource scores. Without
// any spend to weight by it is zero.
func (r *RiskScorer) SummaryRisk(scored []resource.Resource) float64 {
	var weighted, weight float64
	for _, res := range scored {
		weighted += float64(res.IdleScore) * res.Cost30d
		weight += res.Cost30d
	}
	if weight == 0 {
		return 0
	}
	return weighted / weight
}

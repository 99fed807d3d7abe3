package orchestrator

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/spendlens/spendlens/internal/analytics"
	"github.com/spendlens/spendlens/internal/domain/analysis"
	"github.com/spendlens/spendlens/internal/domain/cost"
	"github.com/spendlens/spendlens/internal/governance"
	"github.com/spendlens/spendlens/internal/history"
	"github.com/spendlens/spendlens/internal/normalize"
	apperrors "github.com/spendlens/spendlens/internal/pkg/errors"
	"github.com/spendlens/spendlens/internal/pkg/logger"
	"github.com/spendlens/spendlens/internal/pkg/metrics"
	"github.com/spendlens/spendlens/internal/providers"
)

// Orchestrator drives a pipeline run: fetch, normalize, evaluate policies,
// build analytics. In aggregate mode the per-provider legs run concurrently
// and stay isolated; one provider's failure becomes a governance issue, never
// an abort of the others.
type Orchestrator struct {
	registry   *providers.Registry
	normalizer *normalize.Normalizer
	aggregator *analytics.Aggregator
	policies   *governance.Engine
	history    *history.Store // optional spend-history sink
	logger     *logger.Logger
}

// New wires an orchestrator. history may be nil when no sink is configured.
func New(registry *providers.Registry, normalizer *normalize.Normalizer,
	aggregator *analytics.Aggregator, policies *governance.Engine,
	hist *history.Store, log *logger.Logger) *Orchestrator {
	return &Orchestrator{
		registry:   registry,
		normalizer: normalizer,
		aggregator: aggregator,
		policies:   policies,
		history:    hist,
		logger:     log,
	}
}

// Analyze runs the pipeline for a single provider.
func (o *Orchestrator) Analyze(ctx context.Context, provider string, window cost.Window) (*analysis.Result, error) {
	start := time.Now()
	if !cost.ValidProvider(provider) {
		return nil, apperrors.BadRequest(fmt.Sprintf("unknown provider %q", provider))
	}

	adapter, err := o.registry.Get(provider)
	if err != nil {
		return nil, err
	}

	batch, err := adapter.Fetch(ctx, window)
	if err != nil {
		metrics.RecordPipelineRun(provider, "error", time.Since(start))
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		metrics.RecordPipelineRun(provider, "error", time.Since(start))
		return nil, err
	}

	records, warnings := o.normalizer.Records(batch, window)
	resources, resWarnings := o.normalizer.Resources(batch)
	warnings = append(warnings, resWarnings...)

	issues := o.policies.Evaluate(records)
	result := o.aggregator.Build(provider, window, records, resources, issues, warnings)

	o.sink(ctx, records)
	metrics.RecordPipelineRun(provider, "ok", time.Since(start))
	o.logger.WithFields(map[string]interface{}{
		"provider": provider,
		"window":   window.String(),
		"total":    result.Summary.TotalCost,
		"duration": time.Since(start).String(),
	}).Info("analysis complete")
	return result, nil
}

// Aggregate runs the pipeline for several providers concurrently and merges
// their results. Providers that fail are reported as governance issues; the
// call errors only when every provider fails.
func (o *Orchestrator) Aggregate(ctx context.Context, names []string, window cost.Window) (*analysis.Result, error) {
	start := time.Now()
	if len(names) == 0 {
		names = o.registry.Names()
	}
	if len(names) == 0 {
		return nil, apperrors.BadRequest("no providers configured")
	}
	for _, name := range names {
		if !cost.ValidProvider(name) {
			return nil, apperrors.BadRequest(fmt.Sprintf("unknown provider %q", name))
		}
	}

	type outcome struct {
		provider string
		result   *analysis.Result
		records  []cost.Record
		err      error
	}

	outcomes := make([]outcome, len(names))
	var wg sync.WaitGroup
	for i, name := range names {
		wg.Add(1)
		go func(i int, name string) {
			defer wg.Done()
			out := outcome{provider: name}
			defer func() { outcomes[i] = out }()

			adapter, err := o.registry.Get(name)
			if err != nil {
				out.err = err
				return
			}
			batch, err := adapter.Fetch(ctx, window)
			if err != nil {
				out.err = err
				return
			}
			// A cancelled fetch must not feed partial data into the merge.
			if err := ctx.Err(); err != nil {
				out.err = apperrors.Timeout(name, err)
				return
			}

			records, warnings := o.normalizer.Records(batch, window)
			resources, resWarnings := o.normalizer.Resources(batch)
			warnings = append(warnings, resWarnings...)
			out.records = records
			out.result = o.aggregator.Build(name, window, records, resources, nil, warnings)
		}(i, name)
	}
	wg.Wait()

	var parts []*analysis.Result
	var issues []analysis.GovernanceIssue
	var allRecords []cost.Record
	var failures []string
	for _, out := range outcomes {
		if out.err != nil {
			kind := providers.ErrorKind(out.err)
			o.logger.WithFields(map[string]interface{}{
				"provider": out.provider,
				"kind":     kind,
			}).Warnf("provider failed in aggregate run: %v", out.err)
			issues = append(issues, analysis.GovernanceIssue{
				Kind:      analysis.IssueProviderFailure,
				Provider:  out.provider,
				ErrorKind: kind,
				Detail:    out.err.Error(),
			})
			failures = append(failures, out.provider)
			continue
		}
		parts = append(parts, out.result)
		allRecords = append(allRecords, out.records...)
	}

	if len(parts) == 0 {
		metrics.RecordPipelineRun(analysis.AggregateProvider, "error", time.Since(start))
		sort.Strings(failures)
		return nil, apperrors.TotalFailure(fmt.Errorf("providers %v all failed", failures))
	}

	issues = append(issues, o.policies.Evaluate(allRecords)...)
	result := o.aggregator.Merge(window, parts, issues, nil)

	o.sink(ctx, allRecords)
	metrics.RecordPipelineRun(analysis.AggregateProvider, "ok", time.Since(start))
	o.logger.WithFields(map[string]interface{}{
		"providers": len(parts),
		"failed":    len(failures),
		"window":    window.String(),
		"total":     result.Summary.TotalCost,
		"duration":  time.Since(start).String(),
	}).Info("aggregate analysis complete")
	return result, nil
}

// sink records the run's normalized records into the spend history, best
// effort.
func (o *Orchestrator) sink(ctx context.Context, records []cost.Record) {
	if o.history == nil || len(records) == 0 {
		return
	}
	if err := o.history.SaveRecords(ctx, records); err != nil {
		o.logger.ErrorWithErr(err, "failed to persist records to spend history")
	}
}

// Package core has core logic for pass rates, paired comparisons and correction.
package core

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/huangsam/ragdelta/internal/contract"
	"github.com/huangsam/ragdelta/internal/outwriter"
	"github.com/huangsam/ragdelta/internal/report"
	"github.com/huangsam/ragdelta/schema"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrNoGroups is returned when no (model, stratum) pair is selected.
var ErrNoGroups = eris.New("no groups to compare")

// ExecuteCompare runs the comparison pipeline over the reports on disk, records
// the run when a history store is configured, and prints the results.
// It serves as the main entry point for the 'compare' command.
func ExecuteCompare(ctx context.Context, cfg *contract.Config, mgr contract.HistoryManager) error {
	start := time.Now()
	if !shouldSuppressHeader(ctx) {
		outwriter.LogCompareHeader(cfg)
	}

	rep, err := GetComparisonReport(ctx, cfg, mgr)
	if err != nil {
		return err
	}

	duration := time.Since(start)
	return outwriter.PrintComparisonReport(rep, cfg, duration)
}

// GetComparisonReport runs the pipeline over the reports on disk and records
// the run when a history store is configured. Nothing is printed.
func GetComparisonReport(ctx context.Context, cfg *contract.Config, mgr contract.HistoryManager) (*schema.ComparisonReport, error) {
	start := time.Now()
	rep, err := RunComparison(ctx, cfg, report.NewFileSource(cfg))
	if err != nil {
		return nil, err
	}
	recordRun(cfg, mgr, start, rep)
	return rep, nil
}

// RunComparison executes load, compare, correct and aggregate for every
// selected group. Groups are processed stratum by stratum. Inside a stratum
// groups run on up to cfg.Workers goroutines and the stratum is corrected
// only after all of them finish. A group that fails is logged and left out.
func RunComparison(ctx context.Context, cfg *contract.Config, src contract.ReportSource) (*schema.ComparisonReport, error) {
	logger := loggerFromContext(ctx)

	groups, err := selectGroups(ctx, cfg, src)
	if err != nil {
		return nil, err
	}
	if len(groups) == 0 {
		return nil, ErrNoGroups
	}

	engine := NewEngine(cfg)
	agg := NewAggregator(cfg.Labels, cfg.Alpha)
	var skipped []schema.SkippedGroup

	for _, stratum := range strataOf(groups) {
		keys := groupsInStratum(groups, stratum)
		results, skips, err := compareStratum(ctx, cfg, engine, src, keys)
		if err != nil {
			return nil, err
		}
		skipped = append(skipped, skips...)

		// Barrier passed: every group of the stratum is done.
		CorrectStratum(results, cfg.Alpha)
		if err := agg.Add(stratum, results); err != nil {
			return nil, err
		}
		logger.Debug("stratum corrected",
			zap.String("stratum", stratum),
			zap.Int("comparisons", len(results)),
			zap.Int("skipped", len(skips)))
	}

	return agg.Report(skipped), nil
}

// compareStratum computes one raw result per group of a stratum. Results keep
// the order of keys. Only context cancellation is returned as an error.
func compareStratum(ctx context.Context, cfg *contract.Config, engine *Engine, src contract.ReportSource, keys []schema.GroupKey) ([]*schema.ComparisonResult, []schema.SkippedGroup, error) {
	slots := make([]*schema.ComparisonResult, len(keys))
	reasons := make([]error, len(keys))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for i, key := range keys {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			// Each goroutine writes only its own index.
			slots[i], reasons[i] = compareGroup(gctx, cfg, engine, src, key)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, eris.Wrap(err, "comparison cancelled")
	}

	logger := loggerFromContext(ctx)
	results := make([]*schema.ComparisonResult, 0, len(keys))
	var skipped []schema.SkippedGroup
	for i, key := range keys {
		if reasons[i] != nil {
			logSkip(logger, key, reasons[i])
			skipped = append(skipped, schema.SkippedGroup{
				Model:   key.Model,
				Stratum: key.Stratum,
				Reason:  reasons[i].Error(),
			})
			continue
		}
		results = append(results, slots[i])
	}
	return results, skipped, nil
}

// compareGroup loads both reports of a group and runs the engine.
func compareGroup(ctx context.Context, cfg *contract.Config, engine *Engine, src contract.ReportSource, key schema.GroupKey) (*schema.ComparisonResult, error) {
	baseRows, err := src.Load(ctx, key, cfg.Baseline)
	if err != nil {
		return nil, err
	}
	treatRows, err := src.Load(ctx, key, cfg.Treatment)
	if err != nil {
		return nil, err
	}
	return engine.Compare(key, ComputePassRates(baseRows), ComputePassRates(treatRows))
}

// logSkip logs a dropped group at a level that matches its cause.
func logSkip(logger *zap.Logger, key schema.GroupKey, reason error) {
	fields := []zap.Field{
		zap.String("model", key.Model),
		zap.String("stratum", key.Stratum),
		zap.String("reason", reason.Error()),
	}
	switch {
	case errors.Is(reason, report.ErrMissingInput):
		logger.Warn("skipping group: missing report", fields...)
	case errors.Is(reason, ErrNoPairedItems):
		logger.Info("skipping group: no paired items", fields...)
	case errors.Is(reason, report.ErrSchema):
		logger.Error("skipping group: invalid report", fields...)
	default:
		logger.Error("skipping group: comparison failed", fields...)
	}
}

// selectGroups resolves the groups to compare. When both models and strata
// are configured their cross product is used as-is so that missing reports
// surface as skips; otherwise groups are discovered and filtered.
func selectGroups(ctx context.Context, cfg *contract.Config, src contract.ReportSource) ([]schema.GroupKey, error) {
	if len(cfg.Models) > 0 && len(cfg.Strata) > 0 {
		groups := make([]schema.GroupKey, 0, len(cfg.Models)*len(cfg.Strata))
		for _, stratum := range cfg.Strata {
			for _, model := range cfg.Models {
				groups = append(groups, schema.GroupKey{Model: model, Stratum: stratum})
			}
		}
		return groups, nil
	}

	discovered, err := src.Groups(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "failed to discover groups")
	}
	groups := make([]schema.GroupKey, 0, len(discovered))
	for _, g := range discovered {
		if len(cfg.Models) > 0 && !slices.Contains(cfg.Models, g.Model) {
			continue
		}
		if len(cfg.Strata) > 0 && !slices.Contains(cfg.Strata, g.Stratum) {
			continue
		}
		groups = append(groups, g)
	}
	return groups, nil
}

// strataOf returns the distinct strata in first-seen order.
func strataOf(groups []schema.GroupKey) []string {
	var strata []string
	for _, g := range groups {
		if !slices.Contains(strata, g.Stratum) {
			strata = append(strata, g.Stratum)
		}
	}
	return strata
}

// groupsInStratum returns the groups of one stratum, keeping their order.
func groupsInStratum(groups []schema.GroupKey, stratum string) []schema.GroupKey {
	var keys []schema.GroupKey
	for _, g := range groups {
		if g.Stratum == stratum {
			keys = append(keys, g)
		}
	}
	return keys
}

// recordRun stores the run and its table in the history store, if any.
// Failures are reported as warnings and never fail the run.
func recordRun(cfg *contract.Config, mgr contract.HistoryManager, start time.Time, rep *schema.ComparisonReport) {
	if mgr == nil {
		return
	}
	store := mgr.GetHistoryStore()
	if store == nil {
		return
	}

	configParams := map[string]any{
		"reports_dir": cfg.ReportsDir,
		"pattern":     cfg.Pattern,
		"baseline":    cfg.Baseline,
		"treatment":   cfg.Treatment,
		"alpha":       cfg.Alpha,
		"bootstrap":   cfg.Bootstrap,
		"workers":     cfg.Workers,
	}
	if cfg.Seed != nil {
		configParams["seed"] = *cfg.Seed
	}

	runID, err := store.BeginRun(start, configParams)
	if err != nil {
		contract.LogWarn("Run tracking initialization failed", err)
		return
	}
	if err := store.RecordComparisons(runID, rep.Rows); err != nil {
		contract.LogWarn("Failed to record comparisons", err)
	}
	if err := store.EndRun(runID, time.Now(), len(rep.Rows)); err != nil {
		contract.LogWarn("Failed to finalize run tracking", err)
	}
}

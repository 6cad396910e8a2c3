// Package shiftwatch runs the full workforce-hours analysis: it resolves
// the analysis window, detects model and statistical variances, fits
// trends, and compiles everything into one ordered exception stream.
package shiftwatch

import (
	"errors"
	"fmt"
	"runtime"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/shiftwatch/shiftwatch/pkg/exception"
	"github.com/shiftwatch/shiftwatch/pkg/hours"
	"github.com/shiftwatch/shiftwatch/pkg/stat"
	"github.com/shiftwatch/shiftwatch/pkg/trend"
	"github.com/shiftwatch/shiftwatch/pkg/variance"
	"github.com/shiftwatch/shiftwatch/pkg/window"
)

// ErrNoSamples is returned when Run is given an empty dataset.  This is an
// input-contract violation, unlike a window that happens to filter every
// sample out.
var ErrNoSamples = errors.New("shiftwatch: dataset contains no samples")

// RoleSummary pairs the descriptive statistics and control limits of one
// (facility, role) group over the analysis window.
type RoleSummary struct {
	Facility string
	Role     string
	Stats    stat.Descriptive
	Limits   stat.ControlLimits
}

// Result is the complete output of one analysis run.  All slices are
// deterministically ordered; running twice on the same input yields
// identical results.
type Result struct {
	Window       window.Window
	Exceptions   []exception.Record
	Limits       []RoleSummary
	Trends       []trend.Record
	TrendSummary trend.Summary
	Facilities   []exception.FacilitySummary
	KPIs         []exception.KPI
}

// Engine ties the detectors together under one configuration.
type Engine struct {
	cv      *ControlVariables
	log     *zap.Logger
	workers int

	overrideStart time.Time
	overrideEnd   time.Time
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger attaches a logger to the engine and everything it runs.
func WithLogger(log *zap.Logger) EngineOption {
	return func(e *Engine) { e.log = log }
}

// WithWorkers bounds the per-group worker pools.
func WithWorkers(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithWindowOverride pins the analysis window to explicit dates.  Both
// must be non-zero; a partial override is ignored.
func WithWindowOverride(start, end time.Time) EngineOption {
	return func(e *Engine) {
		e.overrideStart = start
		e.overrideEnd = end
	}
}

// NewEngine returns an Engine for one set of control variables.
func NewEngine(cv *ControlVariables, opts ...EngineOption) *Engine {
	e := &Engine{
		cv:      cv,
		log:     zap.NewNop(),
		workers: runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run analyzes one immutable snapshot of hours against the expected-hours
// model.  Variance detection and trend analysis read disjoint state and
// run concurrently.  A window that filters out every sample is not an
// error; the run completes with an empty exception list.
func (e *Engine) Run(samples []hours.Sample, model *hours.ModelTable) (*Result, error) {
	if len(samples) == 0 {
		return nil, ErrNoSamples
	}

	w, err := window.Resolve(samples, window.Params{
		DaysToDrop:    e.cv.DaysToDrop,
		DaysToProcess: e.cv.DaysToProcess,
		NewDataDay:    e.cv.NewDataDay,
		UseDataDay:    e.cv.UseDataDay,
	}, window.WithLogger(e.log), window.WithOverride(e.overrideStart, e.overrideEnd))
	if err != nil {
		return nil, fmt.Errorf("resolving analysis window: %w", err)
	}

	snapshot := hours.FilterRange(samples, w.Start, w.End)
	e.log.Info("analysis window resolved",
		zap.Stringer("window", w),
		zap.Int("samples", len(snapshot)))
	if len(snapshot) == 0 {
		e.log.Warn("no samples fall inside the analysis window")
		return &Result{Window: w}, nil
	}

	detector := variance.New(e.cv.VarianceThreshold,
		variance.WithLogger(e.log),
		variance.WithStatistics(e.cv.UseStatistics),
		variance.WithControlWeeks(e.cv.WeeksForControl),
		variance.WithWorkers(e.workers))
	analyzer := trend.New(e.cv.WeeksForTrends,
		trend.WithLogger(e.log),
		trend.WithWorkers(e.workers))

	var variances []variance.Record
	var trends []trend.Record
	var eg errgroup.Group
	eg.Go(func() error {
		variances = detector.DetectAll(snapshot, model, w.End)
		return nil
	})
	eg.Go(func() error {
		trends = analyzer.Analyze(snapshot)
		return nil
	})
	_ = eg.Wait() // detectors log their own failures and never return errors

	exceptions := exception.Compile(variances, trends)
	result := &Result{
		Window:       w,
		Exceptions:   exceptions,
		Limits:       e.roleSummaries(snapshot),
		Trends:       trends,
		TrendSummary: trend.Summarize(trends),
		Facilities:   exception.Summarize(exceptions),
		KPIs:         exception.FacilityKPIs(snapshot, model, w.Start, w.End, exceptions),
	}
	e.log.Info("analysis run complete",
		zap.Int("exceptions", len(result.Exceptions)),
		zap.Int("trends", len(result.Trends)),
		zap.Int("facility_role_groups", len(result.Limits)))
	return result, nil
}

// roleSummaries computes descriptive statistics and control limits per
// (facility, role) group, in group order.
func (e *Engine) roleSummaries(snapshot []hours.Sample) []RoleSummary {
	calc := stat.NewCalculator(stat.WithLogger(e.log))
	groups := hours.GroupByFacilityRole(snapshot)
	out := make([]RoleSummary, 0, len(groups))
	for _, g := range groups {
		values := hours.Values(g.Samples)
		out = append(out, RoleSummary{
			Facility: g.Key.Facility,
			Role:     g.Key.Role,
			Stats:    stat.Describe(values),
			Limits:   calc.Limits(values),
		})
	}
	return out
}

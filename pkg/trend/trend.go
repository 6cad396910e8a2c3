// Package trend fits a linear trend to weekly-aggregated hours per
// facility-role combination over a trailing window and classifies its
// direction and statistical significance.
package trend

import (
	"fmt"
	"math"
	"runtime"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/shiftwatch/shiftwatch/pkg/hours"
	pstat "github.com/shiftwatch/shiftwatch/pkg/stat"
)

// significanceLevel is the p-value at or below which a slope counts as a
// real trend.
const significanceLevel = 0.05

// minPoints is the fewest weekly points a regression needs.
const minPoints = 3

// Direction classifies the fitted slope.  A slope whose p-value exceeds
// the significance level is stable regardless of sign.
type Direction int

const (
	Stable Direction = iota
	Increasing
	Decreasing
)

func (d Direction) String() string {
	switch d {
	case Increasing:
		return "increasing"
	case Decreasing:
		return "decreasing"
	default:
		return "stable"
	}
}

// Record is the trend result for one facility-role combination.
type Record struct {
	Facility      string
	Role          string
	Start         time.Time
	End           time.Time
	Slope         float64
	PValue        float64
	RSquared      float64
	Significant   bool
	Direction     Direction
	WeeksAnalyzed int
}

// Analyzer fits trends over a trailing window of weeks.
type Analyzer struct {
	weeks   int
	workers int
	log     *zap.Logger
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithLogger attaches a logger.
func WithLogger(log *zap.Logger) Option {
	return func(a *Analyzer) { a.log = log }
}

// WithWorkers bounds the group worker pool.
func WithWorkers(n int) Option {
	return func(a *Analyzer) {
		if n > 0 {
			a.workers = n
		}
	}
}

// New returns an Analyzer over a trailing window of weeks.
func New(weeks int, opts ...Option) *Analyzer {
	a := &Analyzer{
		weeks:   weeks,
		workers: runtime.GOMAXPROCS(0),
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze produces one Record per facility-role combination with enough
// trailing data.  The window ends at the dataset's latest date; groups
// with fewer than three weekly points are silently skipped.
func (a *Analyzer) Analyze(samples []hours.Sample) []Record {
	if len(samples) == 0 {
		a.log.Warn("no samples for trend analysis")
		return nil
	}
	latest := hours.LatestDate(samples)
	cutoff := latest.AddDate(0, 0, -7*a.weeks)
	a.log.Info("analyzing trends",
		zap.Int("weeks", a.weeks),
		zap.Time("cutoff", cutoff))

	groups := hours.GroupByFacilityRole(samples)
	results := make([]*Record, len(groups))
	var eg errgroup.Group
	eg.SetLimit(a.workers)
	for i, g := range groups {
		i, g := i, g
		eg.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					a.log.Error("trend computation failed",
						zap.String("facility", g.Key.Facility),
						zap.String("role", g.Key.Role),
						zap.String("panic", fmt.Sprint(r)))
				}
			}()
			results[i] = a.analyzeGroup(g, cutoff)
			return nil
		})
	}
	_ = eg.Wait() // workers never return errors; failures are logged per group

	var out []Record
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}
	a.log.Info("trend analysis complete", zap.Int("analyzed", len(out)), zap.Int("groups", len(groups)))
	return out
}

func (a *Analyzer) analyzeGroup(g hours.Group, cutoff time.Time) *Record {
	var recent []hours.Sample
	for _, s := range g.Samples {
		if !s.Date.Before(cutoff) {
			recent = append(recent, s)
		}
	}
	if len(recent) < minPoints {
		a.log.Debug("insufficient trend data",
			zap.String("facility", g.Key.Facility),
			zap.String("role", g.Key.Role),
			zap.Int("n", len(recent)))
		return nil
	}

	start, end := dateRange(recent)
	xs, ys := weeklySeries(recent, start)
	if len(xs) < minPoints {
		a.log.Debug("insufficient weekly points for trend",
			zap.String("facility", g.Key.Facility),
			zap.String("role", g.Key.Role),
			zap.Int("weeks", len(xs)))
		return nil
	}

	slope, p, r2, ok := fitLine(xs, ys)
	if !ok {
		return nil
	}

	r := &Record{
		Facility:      g.Key.Facility,
		Role:          g.Key.Role,
		Start:         start,
		End:           end,
		Slope:         slope,
		PValue:        p,
		RSquared:      r2,
		Significant:   p <= significanceLevel,
		WeeksAnalyzed: a.weeks,
	}
	switch {
	case p > significanceLevel:
		r.Direction = Stable
	case slope > 0:
		r.Direction = Increasing
	case slope < 0:
		r.Direction = Decreasing
	default:
		r.Direction = Stable
	}
	a.log.Debug("trend fitted",
		zap.String("facility", r.Facility),
		zap.String("role", r.Role),
		zap.Stringer("direction", r.Direction),
		zap.Float64("slope", r.Slope),
		zap.Float64("p", r.PValue))
	return r
}

// weeklySeries buckets samples into Sunday-start weeks and returns one
// regression point per week: x is the day offset of the week's earliest
// observation from start, y is the week's mean hours.
func weeklySeries(samples []hours.Sample, start time.Time) (xs, ys []float64) {
	type bucket struct {
		sum   float64
		n     int
		first time.Time
	}
	buckets := make(map[time.Time]*bucket)
	for _, s := range samples {
		ws := hours.WeekStart(s.Date)
		b, ok := buckets[ws]
		if !ok {
			b = &bucket{first: s.Date}
			buckets[ws] = b
		}
		b.sum += s.Hours
		b.n++
		if s.Date.Before(b.first) {
			b.first = s.Date
		}
	}

	weeks := make([]time.Time, 0, len(buckets))
	for ws := range buckets {
		weeks = append(weeks, ws)
	}
	sort.Slice(weeks, func(i, j int) bool { return weeks[i].Before(weeks[j]) })

	for _, ws := range weeks {
		b := buckets[ws]
		xs = append(xs, math.Round(b.first.Sub(start).Hours()/24))
		ys = append(ys, b.sum/float64(b.n))
	}
	return xs, ys
}

// fitLine runs ordinary least squares of ys on xs and returns the slope,
// the two-sided p-value of the slope, and r-squared.  ok is false when the
// x values carry no spread.
func fitLine(xs, ys []float64) (slope, p, r2 float64, ok bool) {
	n := len(xs)
	if n < minPoints {
		return 0, 1, 0, false
	}
	alpha, beta := stat.LinearRegression(xs, ys, nil, false)

	xbar := stat.Mean(xs, nil)
	ybar := stat.Mean(ys, nil)
	var sxx, sse, sst float64
	for i := range xs {
		dx := xs[i] - xbar
		sxx += dx * dx
		resid := ys[i] - (alpha + beta*xs[i])
		sse += resid * resid
		dy := ys[i] - ybar
		sst += dy * dy
	}
	if sxx == 0 {
		return 0, 1, 0, false
	}
	if sst > 0 {
		r2 = 1 - sse/sst
	}

	df := float64(n - 2)
	se := math.Sqrt(sse / df / sxx)
	switch {
	case se == 0 && beta == 0:
		p = 1
	case se == 0:
		p = 0
	default:
		t := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
		p = 2 * (1 - t.CDF(math.Abs(beta/se)))
	}
	return beta, p, r2, true
}

func dateRange(samples []hours.Sample) (min, max time.Time) {
	min, max = samples[0].Date, samples[0].Date
	for _, s := range samples[1:] {
		if s.Date.Before(min) {
			min = s.Date
		}
		if s.Date.After(max) {
			max = s.Date
		}
	}
	return min, max
}

// Summary aggregates a run's trend records.
type Summary struct {
	Total        int
	Significant  int
	Increasing   int
	Decreasing   int
	Stable       int
	MeanRSquared float64
	MedianPValue float64
}

// Summarize rolls trend records up into counts and fit-quality aggregates.
func Summarize(records []Record) Summary {
	s := Summary{Total: len(records)}
	if len(records) == 0 {
		return s
	}
	r2s := make([]float64, 0, len(records))
	ps := make([]float64, 0, len(records))
	for _, r := range records {
		if r.Significant {
			s.Significant++
		}
		switch r.Direction {
		case Increasing:
			s.Increasing++
		case Decreasing:
			s.Decreasing++
		default:
			s.Stable++
		}
		r2s = append(r2s, r.RSquared)
		ps = append(ps, r.PValue)
	}
	s.MeanRSquared = stat.Mean(r2s, nil)
	s.MedianPValue = pstat.Median(ps)
	return s
}

// Package variance detects staffing exceptions in three independent ways:
// deviation of grouped actual hours from the expected-hours model, and
// statistical out-of-control observations at the facility-role and
// employee-role level.  Groups are processed independently on a bounded
// worker pool; a failure inside one group is logged and skipped without
// affecting the others.
package variance

import (
	"fmt"
	"math"
	"runtime"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/shiftwatch/shiftwatch/pkg/hours"
	"github.com/shiftwatch/shiftwatch/pkg/stat"
)

// UnboundedPercent is the percentage reported when the model expects zero
// hours but actual hours were recorded.  The true percentage is undefined;
// this sentinel always exceeds any configurable threshold (0-100) so the
// observation is flagged.  Records carrying it also set Unbounded so
// consumers do not have to compare against the number.
const UnboundedPercent = 999.0

// Kind distinguishes the variance classes.
type Kind int

const (
	KindModel Kind = iota
	KindStatistical
)

func (k Kind) String() string {
	if k == KindStatistical {
		return "statistical"
	}
	return "model"
}

// Record is one detected variance for one dated observation.
type Record struct {
	Facility      string
	Role          string
	EmployeeID    string
	Date          time.Time
	Kind          Kind
	Value         float64
	Percent       float64
	HasPercent    bool
	Unbounded     bool
	Exception     bool
	Threshold     float64
	ModelHours    float64
	ActualHours   float64
	LimitViolated string
}

// Detector runs the variance algorithms.
type Detector struct {
	threshold     float64
	useStatistics bool
	weeksControl  int
	workers       int
	calc          *stat.Calculator
	log           *zap.Logger
}

// Option configures a Detector.
type Option func(*Detector)

// WithLogger attaches a logger.
func WithLogger(log *zap.Logger) Option {
	return func(d *Detector) { d.log = log }
}

// WithStatistics enables or disables the statistical detectors.
func WithStatistics(enabled bool) Option {
	return func(d *Detector) { d.useStatistics = enabled }
}

// WithControlWeeks restricts the control-limit sample to the trailing
// number of weeks before the analysis end date.  Zero means the whole
// analysis window.
func WithControlWeeks(weeks int) Option {
	return func(d *Detector) { d.weeksControl = weeks }
}

// WithWorkers bounds the group worker pool.
func WithWorkers(n int) Option {
	return func(d *Detector) {
		if n > 0 {
			d.workers = n
		}
	}
}

// New returns a Detector flagging model variances beyond threshold percent.
func New(threshold float64, opts ...Option) *Detector {
	d := &Detector{
		threshold:     threshold,
		useStatistics: true,
		workers:       runtime.GOMAXPROCS(0),
		log:           zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.calc = stat.NewCalculator(stat.WithLogger(d.log))
	return d
}

// Percentage returns the percent deviation of actual from expected.  When
// expected is zero the percentage is undefined: zero actual hours yield
// (0, false) and positive actual hours yield the unbounded sentinel
// (UnboundedPercent, true).
func Percentage(actual, expected float64) (pct float64, unbounded bool) {
	if expected == 0 {
		if actual == 0 {
			return 0, false
		}
		return UnboundedPercent, true
	}
	return (actual - expected) / expected * 100, false
}

// DetectModel compares mean actual hours per (facility, role, day-of-week)
// group against the expected-hours model.  A lookup miss is treated as
// zero expected hours.  When the group percentage exceeds the threshold,
// one record is emitted per dated observation in the group, each carrying
// the group-level percentage.
func (d *Detector) DetectModel(samples []hours.Sample, model *hours.ModelTable) []Record {
	if len(samples) == 0 || model.Len() == 0 {
		d.log.Warn("no samples or model entries for model variance detection")
		return nil
	}
	d.log.Info("detecting model variances", zap.Float64("threshold_pct", d.threshold))

	groups := hours.GroupByFacilityRoleWeekday(samples)
	return d.runGroups(groups, func(g hours.Group) []Record {
		expected, ok := model.Lookup(g.Key.Facility, g.Key.Role, g.Key.Weekday)
		if !ok {
			d.log.Warn("no expected hours for group, treating as zero",
				zap.String("facility", g.Key.Facility),
				zap.String("role", g.Key.Role),
				zap.Stringer("weekday", g.Key.Weekday))
		}
		mean := meanHours(g.Samples)
		pct, unbounded := Percentage(mean, expected)
		if unbounded {
			d.log.Debug("actual hours recorded where model expects none",
				zap.String("facility", g.Key.Facility),
				zap.String("role", g.Key.Role),
				zap.Float64("mean_hours", mean))
		}
		if math.Abs(pct) <= d.threshold {
			return nil
		}

		recs := make([]Record, 0, len(g.Samples))
		for _, s := range g.Samples {
			recs = append(recs, Record{
				Facility:    g.Key.Facility,
				Role:        g.Key.Role,
				Date:        s.Date,
				Kind:        KindModel,
				Value:       mean - expected,
				Percent:     pct,
				HasPercent:  true,
				Unbounded:   unbounded,
				Exception:   true,
				Threshold:   d.threshold,
				ModelHours:  expected,
				ActualHours: s.Hours,
			})
		}
		return recs
	})
}

// DetectFacilityRole flags observations outside the control limits of their
// (facility, role) group.  Groups with fewer than stat.MinSampleSize
// observations are skipped.  asOf anchors the trailing control window.
func (d *Detector) DetectFacilityRole(samples []hours.Sample, asOf time.Time) []Record {
	if !d.useStatistics {
		d.log.Info("statistical variance detection disabled")
		return nil
	}
	groups := hours.GroupByFacilityRole(d.controlSample(samples, asOf))
	return d.runGroups(groups, func(g hours.Group) []Record {
		return d.detectControlViolations(g, "")
	})
}

// DetectEmployeeRole runs the same control-limit algorithm grouped by
// (facility, employee, role).  Skipped entirely when employee identity is
// absent from the input or statistics are disabled.
func (d *Detector) DetectEmployeeRole(samples []hours.Sample, asOf time.Time) []Record {
	if !d.useStatistics {
		d.log.Info("employee statistical variance detection disabled")
		return nil
	}
	if !hours.HasEmployeeIDs(samples) {
		d.log.Warn("employee identity unavailable, skipping employee-level variance detection")
		return nil
	}
	groups := hours.GroupByEmployeeRole(d.controlSample(samples, asOf))
	return d.runGroups(groups, func(g hours.Group) []Record {
		return d.detectControlViolations(g, " (employee-level)")
	})
}

// DetectAll runs the three detectors and concatenates their records in a
// fixed order: model, facility-role statistical, employee-role statistical.
func (d *Detector) DetectAll(samples []hours.Sample, model *hours.ModelTable, asOf time.Time) []Record {
	var out []Record
	out = append(out, d.DetectModel(samples, model)...)
	out = append(out, d.DetectFacilityRole(samples, asOf)...)
	out = append(out, d.DetectEmployeeRole(samples, asOf)...)
	d.log.Info("variance detection complete", zap.Int("records", len(out)))
	return out
}

func (d *Detector) detectControlViolations(g hours.Group, suffix string) []Record {
	if len(g.Samples) < stat.MinSampleSize {
		d.log.Debug("insufficient data for control limits",
			zap.String("facility", g.Key.Facility),
			zap.String("role", g.Key.Role),
			zap.String("employee", g.Key.Employee),
			zap.Int("n", len(g.Samples)))
		return nil
	}
	limits := d.calc.Limits(hours.Values(g.Samples))

	var recs []Record
	for _, s := range g.Samples {
		bound, excess, violated := boundViolated(s.Hours, limits)
		if !violated {
			continue
		}
		recs = append(recs, Record{
			Facility:      g.Key.Facility,
			Role:          g.Key.Role,
			EmployeeID:    g.Key.Employee,
			Date:          s.Date,
			Kind:          KindStatistical,
			Value:         excess,
			Exception:     true,
			ActualHours:   s.Hours,
			LimitViolated: bound + " control limit" + suffix,
		})
	}
	if len(recs) > 0 {
		d.log.Info("control limit violations detected",
			zap.String("facility", g.Key.Facility),
			zap.String("role", g.Key.Role),
			zap.String("employee", g.Key.Employee),
			zap.Int("violations", len(recs)))
	}
	return recs
}

// boundViolated reports which control limit v falls outside of and by how
// much.
func boundViolated(v float64, l stat.ControlLimits) (bound string, excess float64, violated bool) {
	switch {
	case v > l.Upper:
		return "upper", v - l.Upper, true
	case v < l.Lower:
		return "lower", l.Lower - v, true
	default:
		return "", 0, false
	}
}

// controlSample trims samples to the trailing control window ending at
// asOf.
func (d *Detector) controlSample(samples []hours.Sample, asOf time.Time) []hours.Sample {
	if d.weeksControl <= 0 || asOf.IsZero() {
		return samples
	}
	cutoff := asOf.AddDate(0, 0, -7*d.weeksControl)
	var out []hours.Sample
	for _, s := range samples {
		if !s.Date.Before(cutoff) {
			out = append(out, s)
		}
	}
	return out
}

// runGroups fans group computations out over the worker pool, preserving
// group order in the flattened result.  A panic inside one group is
// recovered and logged; the group contributes nothing.
func (d *Detector) runGroups(groups []hours.Group, fn func(hours.Group) []Record) []Record {
	results := make([][]Record, len(groups))
	var eg errgroup.Group
	eg.SetLimit(d.workers)
	for i, g := range groups {
		i, g := i, g
		eg.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					d.log.Error("variance group computation failed",
						zap.String("facility", g.Key.Facility),
						zap.String("role", g.Key.Role),
						zap.String("employee", g.Key.Employee),
						zap.String("panic", fmt.Sprint(r)))
				}
			}()
			results[i] = fn(g)
			return nil
		})
	}
	_ = eg.Wait() // workers never return errors; failures are logged per group

	var out []Record
	for _, r := range results {
		out = append(out, r...)
	}
	return out
}

func meanHours(samples []hours.Sample) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += s.Hours
	}
	return sum / float64(len(samples))
}

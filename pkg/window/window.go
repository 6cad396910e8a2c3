// Package window resolves the sliding analysis date window from the
// control variables and the latest observed date in the dataset.
package window

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/shiftwatch/shiftwatch/pkg/hours"
)

// longSpanDays is the point past which a window is accepted but logged as
// suspiciously long.
const longSpanDays = 365

// ErrNoDates is returned when dynamic resolution finds no usable dates.
var ErrNoDates = errors.New("window: dataset contains no dates")

// Window is an inclusive analysis date range.
type Window struct {
	Start time.Time
	End   time.Time
}

// Days returns the inclusive calendar span of the window.
func (w Window) Days() int {
	return int(w.End.Sub(w.Start).Hours()/24) + 1
}

func (w Window) String() string {
	return fmt.Sprintf("%s to %s", w.Start.Format("2006-01-02"), w.End.Format("2006-01-02"))
}

// Params are the control variables the resolver consumes.
type Params struct {
	DaysToDrop    int
	DaysToProcess int
	NewDataDay    hours.ModelWeekday
	UseDataDay    bool
}

type resolver struct {
	log           *zap.Logger
	overrideStart time.Time
	overrideEnd   time.Time
}

// Option configures Resolve.
type Option func(*resolver)

// WithLogger attaches a logger.
func WithLogger(log *zap.Logger) Option {
	return func(r *resolver) { r.log = log }
}

// WithOverride pins the window to explicit dates, bypassing dynamic
// resolution.  Both dates must be non-zero; a partial override is treated
// as no override at all.
func WithOverride(start, end time.Time) Option {
	return func(r *resolver) {
		r.overrideStart = start
		r.overrideEnd = end
	}
}

// Resolve computes the analysis window.  An explicit override wins when
// both dates are supplied; otherwise the window is derived from the most
// recent data and the control variables: the period end is either the most
// recent date matching NewDataDay (falling back to the overall most recent
// date) or the most recent date minus DaysToDrop, and the window then spans
// exactly DaysToProcess calendar days ending there.
func Resolve(samples []hours.Sample, p Params, opts ...Option) (Window, error) {
	r := &resolver{log: zap.NewNop()}
	for _, opt := range opts {
		opt(r)
	}

	if !r.overrideStart.IsZero() && !r.overrideEnd.IsZero() {
		w := Window{Start: r.overrideStart, End: r.overrideEnd}
		r.log.Info("using explicit date override", zap.Stringer("window", w))
		return w, validate(w, r.log)
	}

	latest := hours.LatestDate(samples)
	if latest.IsZero() {
		return Window{}, ErrNoDates
	}

	var end time.Time
	if p.UseDataDay {
		end = mostRecentOnDay(samples, p.NewDataDay)
		if end.IsZero() {
			r.log.Warn("no dates match the configured data day, falling back to most recent date",
				zap.Stringer("new_data_day", p.NewDataDay))
			end = latest
		}
	} else {
		end = latest.AddDate(0, 0, -p.DaysToDrop)
	}

	w := Window{
		Start: end.AddDate(0, 0, -(p.DaysToProcess - 1)),
		End:   end,
	}
	r.log.Info("resolved analysis window", zap.Stringer("window", w), zap.Int("days", w.Days()))
	return w, validate(w, r.log)
}

// mostRecentOnDay scans for the most recent sample date whose weekday
// matches target.  Returns the zero time when none match.
func mostRecentOnDay(samples []hours.Sample, target hours.ModelWeekday) time.Time {
	wd, err := target.Weekday()
	if err != nil {
		return time.Time{}
	}
	var max time.Time
	for _, s := range samples {
		if s.Date.Weekday() == wd && s.Date.After(max) {
			max = s.Date
		}
	}
	return max
}

func validate(w Window, log *zap.Logger) error {
	if !w.Start.Before(w.End) {
		return fmt.Errorf("window: start %s must be before end %s",
			w.Start.Format("2006-01-02"), w.End.Format("2006-01-02"))
	}
	if d := w.Days(); d > longSpanDays {
		log.Warn("analysis window is unusually long", zap.Int("days", d))
	}
	return nil
}

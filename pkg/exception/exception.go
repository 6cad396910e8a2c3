// Package exception merges variance and trend findings into a single
// ordered exception stream.  Each exception carries a 0-100 severity
// score and a human-readable description, and traces back to exactly one
// source record.  The output ordering (facility ascending, severity
// descending, date descending) is a contract: downstream "top N" views
// depend on it.
package exception

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/shiftwatch/shiftwatch/pkg/hours"
	"github.com/shiftwatch/shiftwatch/pkg/trend"
	"github.com/shiftwatch/shiftwatch/pkg/variance"
)

// maxSeverity caps every severity formula.
const maxSeverity = 100.0

// Source identifies which detector produced an exception.
type Source int

const (
	SourceModel Source = iota
	SourceStatistical
	SourceTrend
)

func (s Source) String() string {
	switch s {
	case SourceModel:
		return "model"
	case SourceStatistical:
		return "statistical"
	case SourceTrend:
		return "trend"
	default:
		return "unknown"
	}
}

// Record is one compiled exception.  Exactly one of Variance or Trend is
// set, matching Source.
type Record struct {
	Facility    string
	Role        string
	EmployeeID  string
	Date        time.Time
	Source      Source
	Severity    float64
	Description string
	Variance    *variance.Record
	Trend       *trend.Record
}

// Compile scores and describes every variance record and every trend
// record with a significant direction, then sorts the unified list by
// facility ascending, severity descending, date descending.
func Compile(variances []variance.Record, trends []trend.Record) []Record {
	out := make([]Record, 0, len(variances)+len(trends))
	for i := range variances {
		out = append(out, fromVariance(&variances[i]))
	}
	for i := range trends {
		t := &trends[i]
		if t.Direction != trend.Increasing && t.Direction != trend.Decreasing {
			continue
		}
		out = append(out, fromTrend(t))
	}
	Sort(out)
	return out
}

// Sort applies the mandated exception ordering in place.  The sort is
// stable so equal records keep their compile order and repeated runs stay
// reproducible.
func Sort(recs []Record) {
	sort.SliceStable(recs, func(i, j int) bool {
		a, b := recs[i], recs[j]
		if a.Facility != b.Facility {
			return a.Facility < b.Facility
		}
		if a.Severity != b.Severity {
			return a.Severity > b.Severity
		}
		return a.Date.After(b.Date)
	})
}

func fromVariance(v *variance.Record) Record {
	r := Record{
		Facility:   v.Facility,
		Role:       v.Role,
		EmployeeID: v.EmployeeID,
		Date:       v.Date,
		Variance:   v,
	}
	if v.Kind == variance.KindModel {
		r.Source = SourceModel
		r.Severity = math.Min(math.Abs(v.Percent), maxSeverity)
		r.Description = modelDescription(v)
	} else {
		r.Source = SourceStatistical
		r.Severity = math.Min(math.Abs(v.Value)*10, maxSeverity)
		r.Description = fmt.Sprintf("Statistical control limit violation: %.1f hours beyond the %s",
			math.Abs(v.Value), v.LimitViolated)
	}
	return r
}

func modelDescription(v *variance.Record) string {
	if v.Unbounded {
		return fmt.Sprintf("Actual hours recorded where the model expects none (threshold: %.1f%%)",
			v.Threshold)
	}
	dir := "above"
	if v.Percent < 0 {
		dir = "below"
	}
	return fmt.Sprintf("Actual hours %s model by %.1f%% (threshold: %.1f%%)",
		dir, math.Abs(v.Percent), v.Threshold)
}

func fromTrend(t *trend.Record) Record {
	return Record{
		Facility: t.Facility,
		Role:     t.Role,
		Date:     t.End,
		Source:   SourceTrend,
		Severity: math.Min((1-t.PValue)*maxSeverity+t.RSquared*20, maxSeverity),
		Trend:    t,
		Description: fmt.Sprintf("Significant %s trend over %d weeks (p-value: %.3f, r-squared: %.2f)",
			t.Direction, t.WeeksAnalyzed, t.PValue, t.RSquared),
	}
}

// FacilitySummary rolls one facility's exceptions up for reporting.
type FacilitySummary struct {
	Facility     string
	Total        int
	Model        int
	Statistical  int
	Trend        int
	MaxSeverity  float64
	MeanSeverity float64
}

// Summarize aggregates exceptions per facility, sorted by facility.
func Summarize(recs []Record) []FacilitySummary {
	byFacility := make(map[string]*FacilitySummary)
	var order []string
	for _, r := range recs {
		s, ok := byFacility[r.Facility]
		if !ok {
			s = &FacilitySummary{Facility: r.Facility}
			byFacility[r.Facility] = s
			order = append(order, r.Facility)
		}
		s.Total++
		switch r.Source {
		case SourceModel:
			s.Model++
		case SourceStatistical:
			s.Statistical++
		case SourceTrend:
			s.Trend++
		}
		if r.Severity > s.MaxSeverity {
			s.MaxSeverity = r.Severity
		}
		s.MeanSeverity += r.Severity
	}
	sort.Strings(order)

	out := make([]FacilitySummary, 0, len(order))
	for _, f := range order {
		s := byFacility[f]
		s.MeanSeverity /= float64(s.Total)
		out = append(out, *s)
	}
	return out
}

// maxKPIDays bounds the calendar walk so a corrupt window cannot spin.
const maxKPIDays = 400

// KPI compares a facility's actual hours against its modeled hours over
// an analysis window.
type KPI struct {
	Facility        string
	ModelHours      float64
	ActualHours     float64
	VariancePercent float64
	Unbounded       bool
	Exceptions      int
}

// FacilityKPIs walks every calendar day of [start, end] and sums the model
// table's expected hours per facility, then compares against actual hours
// and counts compiled exceptions.  Results are sorted by facility.
func FacilityKPIs(samples []hours.Sample, model *hours.ModelTable, start, end time.Time, recs []Record) []KPI {
	if model == nil || start.IsZero() || end.IsZero() || end.Before(start) {
		return nil
	}

	modelHours := make(map[string]float64)
	for _, f := range model.Facilities() {
		day := start
		for i := 0; !day.After(end) && i < maxKPIDays; i++ {
			modelHours[f] += model.DayTotal(f, hours.ToModelWeekday(day.Weekday()))
			day = day.AddDate(0, 0, 1)
		}
	}

	actual := make(map[string]float64)
	for _, s := range samples {
		if s.Date.Before(start) || s.Date.After(end) {
			continue
		}
		actual[s.Facility] += s.Hours
	}
	exceptions := make(map[string]int)
	for _, r := range recs {
		exceptions[r.Facility]++
	}

	facilities := make(map[string]bool)
	for f := range modelHours {
		facilities[f] = true
	}
	for f := range actual {
		facilities[f] = true
	}
	names := make([]string, 0, len(facilities))
	for f := range facilities {
		names = append(names, f)
	}
	sort.Strings(names)

	out := make([]KPI, 0, len(names))
	for _, f := range names {
		k := KPI{
			Facility:    f,
			ModelHours:  modelHours[f],
			ActualHours: actual[f],
			Exceptions:  exceptions[f],
		}
		k.VariancePercent, k.Unbounded = variance.Percentage(k.ActualHours, k.ModelHours)
		out = append(out, k)
	}
	return out
}

package exception

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/shiftwatch/shiftwatch/pkg/hours"
	"github.com/shiftwatch/shiftwatch/pkg/trend"
	"github.com/shiftwatch/shiftwatch/pkg/variance"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestCompileSortOrder(t *testing.T) {
	// statistical severity is |magnitude|*10 capped at 100
	variances := []variance.Record{
		{Facility: "B", Role: "RN", Date: day("2025-05-03"), Kind: variance.KindStatistical, Value: 9.5},
		{Facility: "A", Role: "RN", Date: day("2025-05-01"), Kind: variance.KindStatistical, Value: 4},
		{Facility: "A", Role: "RN", Date: day("2025-05-02"), Kind: variance.KindStatistical, Value: 9},
	}
	recs := Compile(variances, nil)

	assert.Len(t, recs, 3)
	assert.Equal(t, "A", recs[0].Facility)
	assert.Equal(t, 90.0, recs[0].Severity)
	assert.Equal(t, "A", recs[1].Facility)
	assert.Equal(t, 40.0, recs[1].Severity)
	assert.Equal(t, "B", recs[2].Facility)
	assert.Equal(t, 95.0, recs[2].Severity)
}

func TestCompileDateTiebreak(t *testing.T) {
	variances := []variance.Record{
		{Facility: "A", Role: "RN", Date: day("2025-05-01"), Kind: variance.KindStatistical, Value: 5},
		{Facility: "A", Role: "RN", Date: day("2025-05-09"), Kind: variance.KindStatistical, Value: 5},
	}
	recs := Compile(variances, nil)

	assert.Len(t, recs, 2)
	assert.Equal(t, day("2025-05-09"), recs[0].Date)
	assert.Equal(t, day("2025-05-01"), recs[1].Date)
}

func TestCompileModelSeverity(t *testing.T) {
	tt := []struct {
		name     string
		record   variance.Record
		severity float64
		desc     string
	}{
		{
			name: "over model",
			record: variance.Record{
				Facility: "A", Kind: variance.KindModel,
				Percent: 23.4, HasPercent: true, Threshold: 15.0,
			},
			severity: 23.4,
			desc:     "Actual hours above model by 23.4% (threshold: 15.0%)",
		},
		{
			name: "under model",
			record: variance.Record{
				Facility: "A", Kind: variance.KindModel,
				Percent: -40, HasPercent: true, Threshold: 15.0,
			},
			severity: 40,
			desc:     "Actual hours below model by 40.0% (threshold: 15.0%)",
		},
		{
			name: "unbounded caps at 100",
			record: variance.Record{
				Facility: "A", Kind: variance.KindModel,
				Percent: variance.UnboundedPercent, HasPercent: true,
				Unbounded: true, Threshold: 15.0,
			},
			severity: 100,
			desc:     "Actual hours recorded where the model expects none (threshold: 15.0%)",
		},
	}
	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			recs := Compile([]variance.Record{tc.record}, nil)
			assert.Len(t, recs, 1)
			assert.Equal(t, SourceModel, recs[0].Source)
			assert.InDelta(t, tc.severity, recs[0].Severity, 1e-9)
			assert.Equal(t, tc.desc, recs[0].Description)
			assert.NotNil(t, recs[0].Variance)
			assert.Nil(t, recs[0].Trend)
		})
	}
}

func TestCompileStatisticalSeverityCap(t *testing.T) {
	recs := Compile([]variance.Record{
		{Facility: "A", Kind: variance.KindStatistical, Value: 42},
	}, nil)
	assert.Equal(t, 100.0, recs[0].Severity)
}

func TestCompileTrends(t *testing.T) {
	trends := []trend.Record{
		{
			Facility: "A", Role: "RN", End: day("2025-05-24"),
			Direction: trend.Increasing, Significant: true,
			PValue: 0.01, RSquared: 0.8, WeeksAnalyzed: 8,
		},
		{
			Facility: "A", Role: "CNA", End: day("2025-05-24"),
			Direction: trend.Stable, PValue: 0.6,
		},
	}
	recs := Compile(nil, trends)

	// stable trends are not exceptions
	assert.Len(t, recs, 1)
	r := recs[0]
	assert.Equal(t, SourceTrend, r.Source)
	// (1-0.01)*100 + 0.8*20 = 115, capped at 100
	assert.Equal(t, 100.0, r.Severity)
	assert.Equal(t, day("2025-05-24"), r.Date)
	assert.Equal(t, "Significant increasing trend over 8 weeks (p-value: 0.010, r-squared: 0.80)", r.Description)
	assert.NotNil(t, r.Trend)
	assert.Nil(t, r.Variance)
}

func TestCompileIdempotent(t *testing.T) {
	variances := []variance.Record{
		{Facility: "B", Date: day("2025-05-03"), Kind: variance.KindStatistical, Value: 9.5},
		{Facility: "A", Date: day("2025-05-01"), Kind: variance.KindStatistical, Value: 4},
		{Facility: "A", Date: day("2025-05-02"), Kind: variance.KindModel, Percent: 40, HasPercent: true},
	}
	first := Compile(variances, nil)
	second := Compile(variances, nil)
	assert.Equal(t, first, second)
}

func TestSummarize(t *testing.T) {
	recs := []Record{
		{Facility: "A", Source: SourceModel, Severity: 30},
		{Facility: "A", Source: SourceStatistical, Severity: 90},
		{Facility: "B", Source: SourceTrend, Severity: 60},
	}
	summaries := Summarize(recs)

	assert.Len(t, summaries, 2)
	a := summaries[0]
	assert.Equal(t, "A", a.Facility)
	assert.Equal(t, 2, a.Total)
	assert.Equal(t, 1, a.Model)
	assert.Equal(t, 1, a.Statistical)
	assert.Equal(t, 90.0, a.MaxSeverity)
	assert.Equal(t, 60.0, a.MeanSeverity)
	b := summaries[1]
	assert.Equal(t, "B", b.Facility)
	assert.Equal(t, 1, b.Trend)
}

func TestFacilityKPIs(t *testing.T) {
	model := hours.NewModelTable([]hours.ModelEntry{
		{Facility: "east", Role: "RN", Weekday: hours.Monday, TotalHours: 10},
		{Facility: "east", Role: "CNA", Weekday: hours.Monday, TotalHours: 5},
	})
	samples := []hours.Sample{
		{Facility: "east", Role: "RN", Date: day("2025-05-05"), Hours: 12}, // Monday
		{Facility: "east", Role: "RN", Date: day("2025-04-01"), Hours: 99}, // outside window
		{Facility: "west", Role: "RN", Date: day("2025-05-06"), Hours: 6},  // unmodeled facility
	}
	recs := []Record{{Facility: "east", Severity: 50}}

	// one Monday falls inside the window
	kpis := FacilityKPIs(samples, model, day("2025-05-05"), day("2025-05-11"), recs)

	assert.Len(t, kpis, 2)
	east := kpis[0]
	assert.Equal(t, "east", east.Facility)
	assert.Equal(t, 15.0, east.ModelHours)
	assert.Equal(t, 12.0, east.ActualHours)
	assert.InDelta(t, -20.0, east.VariancePercent, 1e-9)
	assert.Equal(t, 1, east.Exceptions)

	west := kpis[1]
	assert.Equal(t, "west", west.Facility)
	assert.Equal(t, 0.0, west.ModelHours)
	assert.True(t, west.Unbounded)
}

func TestFacilityKPIsInvalidWindow(t *testing.T) {
	assert.Nil(t, FacilityKPIs(nil, hours.NewModelTable(nil), day("2025-05-10"), day("2025-05-01"), nil))
}

package shiftwatch

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shiftwatch/shiftwatch/pkg/hours"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

// buildDataset generates a deterministic 12-week dataset for two
// facilities: routine staffing with a few planted anomalies.
func buildDataset() ([]hours.Sample, *hours.ModelTable) {
	var samples []hours.Sample
	start := day("2025-03-02") // a Sunday
	for w := 0; w < 12; w++ {
		for d := 0; d < 7; d++ {
			date := start.AddDate(0, 0, w*7+d)
			// smooth deterministic wobble around eight hours
			wobble := 0.5 * math.Sin(float64(w*7+d))
			samples = append(samples,
				hours.Sample{Facility: "east", Role: "RN", EmployeeID: "e1", Date: date, Hours: 8 + wobble},
				hours.Sample{Facility: "east", Role: "CNA", EmployeeID: "e2", Date: date, Hours: 6 + wobble},
				// steadily increasing hours at west
				hours.Sample{Facility: "west", Role: "RN", EmployeeID: "e3", Date: date, Hours: 8 + float64(w)*0.5},
			)
		}
	}
	// planted outlier shift
	samples = append(samples, hours.Sample{
		Facility: "east", Role: "RN", EmployeeID: "e1", Date: start.AddDate(0, 0, 40), Hours: 30,
	})

	var entries []hours.ModelEntry
	for wd := hours.Sunday; wd <= hours.Saturday; wd++ {
		entries = append(entries,
			hours.ModelEntry{Facility: "east", Role: "RN", Weekday: wd, TotalHours: 8},
			hours.ModelEntry{Facility: "east", Role: "CNA", Weekday: wd, TotalHours: 6},
			hours.ModelEntry{Facility: "west", Role: "RN", Weekday: wd, TotalHours: 8},
		)
	}
	return samples, hours.NewModelTable(entries)
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	cv, errs := NewControlVariables(UseDataDay("false"), DaysToDrop("0"))
	require.Empty(t, errs)
	return NewEngine(cv)
}

func TestEngineRun(t *testing.T) {
	samples, model := buildDataset()
	engine := newTestEngine(t)

	result, err := engine.Run(samples, model)
	require.NoError(t, err)

	assert.Equal(t, 84, result.Window.Days())
	assert.NotEmpty(t, result.Exceptions)
	assert.NotEmpty(t, result.Limits)
	assert.NotEmpty(t, result.Trends)
	assert.NotEmpty(t, result.KPIs)

	// west's steady increase should surface as a significant trend
	var westTrend bool
	for _, tr := range result.Trends {
		if tr.Facility == "west" && tr.Role == "RN" {
			westTrend = tr.Significant
		}
	}
	assert.True(t, westTrend)

	// the mandated exception ordering holds across the whole stream
	for i := 1; i < len(result.Exceptions); i++ {
		prev, cur := result.Exceptions[i-1], result.Exceptions[i]
		assert.LessOrEqual(t, prev.Facility, cur.Facility)
		if prev.Facility == cur.Facility {
			assert.GreaterOrEqual(t, prev.Severity, cur.Severity)
		}
	}

	// every compiled exception traces back to exactly one source record
	for _, e := range result.Exceptions {
		hasVariance := e.Variance != nil
		hasTrend := e.Trend != nil
		assert.NotEqual(t, hasVariance, hasTrend)
	}
}

func TestEngineRunIdempotent(t *testing.T) {
	samples, model := buildDataset()
	engine := newTestEngine(t)

	first, err := engine.Run(samples, model)
	require.NoError(t, err)
	second, err := engine.Run(samples, model)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestEngineRunEmptyDataset(t *testing.T) {
	engine := newTestEngine(t)
	_, err := engine.Run(nil, hours.NewModelTable(nil))
	assert.ErrorIs(t, err, ErrNoSamples)
}

func TestEngineRunWindowOverride(t *testing.T) {
	samples, model := buildDataset()
	cv, errs := NewControlVariables()
	require.Empty(t, errs)
	engine := NewEngine(cv, WithWindowOverride(day("2025-03-02"), day("2025-04-26")))

	result, err := engine.Run(samples, model)
	require.NoError(t, err)
	assert.Equal(t, day("2025-03-02"), result.Window.Start)
	assert.Equal(t, day("2025-04-26"), result.Window.End)
}

func TestEngineRunEmptyWindow(t *testing.T) {
	samples, model := buildDataset()
	cv, errs := NewControlVariables()
	require.Empty(t, errs)
	// a valid window with no data in it is not an error
	engine := NewEngine(cv, WithWindowOverride(day("2020-01-01"), day("2020-03-01")))

	result, err := engine.Run(samples, model)
	require.NoError(t, err)
	assert.Empty(t, result.Exceptions)
	assert.Empty(t, result.Limits)
}

func TestEngineRunStatisticsDisabled(t *testing.T) {
	samples, model := buildDataset()
	cv, errs := NewControlVariables(UseDataDay("false"), DaysToDrop("0"), UseStatistics("false"))
	require.Empty(t, errs)
	engine := NewEngine(cv)

	result, err := engine.Run(samples, model)
	require.NoError(t, err)
	for _, e := range result.Exceptions {
		if e.Variance != nil {
			assert.NotEqual(t, "statistical", e.Source.String())
		}
	}
}

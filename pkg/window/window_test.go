package window

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/shiftwatch/shiftwatch/pkg/hours"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

// daily returns one sample per day over [from, to] inclusive.
func daily(from, to string) []hours.Sample {
	var out []hours.Sample
	for d := day(from); !d.After(day(to)); d = d.AddDate(0, 0, 1) {
		out = append(out, hours.Sample{Facility: "east", Role: "RN", Date: d, Hours: 8})
	}
	return out
}

func TestResolveDropDays(t *testing.T) {
	samples := daily("2025-01-01", "2025-05-31")
	w, err := Resolve(samples, Params{
		DaysToDrop:    7,
		DaysToProcess: 84,
		UseDataDay:    false,
	})

	assert.NoError(t, err)
	assert.Equal(t, day("2025-05-24"), w.End)
	assert.Equal(t, day("2025-03-02"), w.Start)
	assert.Equal(t, 84, w.Days())
}

func TestResolveDataDay(t *testing.T) {
	// latest date is Saturday 2025-05-31; the most recent Sunday wins
	samples := daily("2025-01-01", "2025-05-31")
	w, err := Resolve(samples, Params{
		DaysToDrop:    7,
		DaysToProcess: 84,
		NewDataDay:    hours.Sunday,
		UseDataDay:    true,
	})

	assert.NoError(t, err)
	assert.Equal(t, day("2025-05-25"), w.End)
	assert.Equal(t, day("2025-03-03"), w.Start)
	assert.Equal(t, 84, w.Days())
}

func TestResolveDataDayFallback(t *testing.T) {
	// all samples are Mondays, no Sunday exists: fall back to the latest date
	samples := []hours.Sample{
		{Facility: "east", Role: "RN", Date: day("2025-05-05"), Hours: 8},
		{Facility: "east", Role: "RN", Date: day("2025-05-12"), Hours: 8},
	}
	w, err := Resolve(samples, Params{
		DaysToProcess: 28,
		NewDataDay:    hours.Sunday,
		UseDataDay:    true,
	})

	assert.NoError(t, err)
	assert.Equal(t, day("2025-05-12"), w.End)
	assert.Equal(t, day("2025-04-15"), w.Start)
}

func TestResolveOverride(t *testing.T) {
	w, err := Resolve(nil, Params{},
		WithOverride(day("2025-03-01"), day("2025-03-31")))

	assert.NoError(t, err)
	assert.Equal(t, day("2025-03-01"), w.Start)
	assert.Equal(t, day("2025-03-31"), w.End)
	assert.Equal(t, 31, w.Days())
}

func TestResolvePartialOverrideIgnored(t *testing.T) {
	samples := daily("2025-05-01", "2025-05-31")
	w, err := Resolve(samples, Params{
		DaysToDrop:    7,
		DaysToProcess: 14,
		UseDataDay:    false,
	}, WithOverride(day("2025-03-01"), time.Time{}))

	assert.NoError(t, err)
	assert.Equal(t, day("2025-05-24"), w.End)
}

func TestResolveErrors(t *testing.T) {
	tt := []struct {
		name    string
		samples []hours.Sample
		p       Params
		opts    []Option
	}{
		{name: "no dates", samples: nil, p: Params{DaysToProcess: 84}},
		{
			name:    "degenerate one day window",
			samples: daily("2025-05-01", "2025-05-31"),
			p:       Params{DaysToProcess: 1, UseDataDay: false},
		},
		{
			name: "override start after end",
			opts: []Option{WithOverride(day("2025-05-31"), day("2025-05-01"))},
		},
	}
	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Resolve(tc.samples, tc.p, tc.opts...)
			assert.Error(t, err)
		})
	}
}

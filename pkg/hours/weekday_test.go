package hours

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWeekdayConversion(t *testing.T) {
	tt := []struct {
		model ModelWeekday
		std   time.Weekday
	}{
		{model: Sunday, std: time.Sunday},
		{model: Monday, std: time.Monday},
		{model: Tuesday, std: time.Tuesday},
		{model: Wednesday, std: time.Wednesday},
		{model: Thursday, std: time.Thursday},
		{model: Friday, std: time.Friday},
		{model: Saturday, std: time.Saturday},
	}
	for _, tc := range tt {
		t.Run(tc.model.String(), func(t *testing.T) {
			assert.Equal(t, tc.model, ToModelWeekday(tc.std))
			wd, err := tc.model.Weekday()
			assert.NoError(t, err)
			assert.Equal(t, tc.std, wd)
		})
	}
}

func TestWeekdayInvalid(t *testing.T) {
	for _, m := range []ModelWeekday{0, 8, -1} {
		assert.False(t, m.Valid())
		_, err := m.Weekday()
		assert.Error(t, err)
	}
}

func TestWeekStart(t *testing.T) {
	tt := []struct {
		name string
		in   string
		want string
	}{
		{name: "sunday maps to itself", in: "2025-05-25", want: "2025-05-25"},
		{name: "monday", in: "2025-05-26", want: "2025-05-25"},
		{name: "saturday", in: "2025-05-31", want: "2025-05-25"},
		{name: "month boundary", in: "2025-06-02", want: "2025-06-01"},
	}
	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			in, _ := time.Parse("2006-01-02", tc.in)
			want, _ := time.Parse("2006-01-02", tc.want)
			assert.Equal(t, want, WeekStart(in))
		})
	}
}

package hours

import (
	"fmt"
	"time"
)

// ModelWeekday is the day-of-week convention used by the expected-hours
// model data: Sunday=1 through Saturday=7.  All conversion to and from
// Go's time.Weekday (Sunday=0) happens here and nowhere else.
type ModelWeekday int

const (
	Sunday ModelWeekday = iota + 1
	Monday
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
)

// ToModelWeekday converts a time.Weekday to the model convention.
func ToModelWeekday(d time.Weekday) ModelWeekday {
	return ModelWeekday(int(d) + 1)
}

// Weekday converts back to time.Weekday.  It errors on values outside 1-7
// so a bad day number from configuration or model data surfaces instead of
// silently aliasing another day.
func (m ModelWeekday) Weekday() (time.Weekday, error) {
	if !m.Valid() {
		return 0, fmt.Errorf("invalid model weekday %d: must be 1 (Sunday) through 7 (Saturday)", int(m))
	}
	return time.Weekday(int(m) - 1), nil
}

// Valid reports whether m is in the 1-7 range.
func (m ModelWeekday) Valid() bool {
	return m >= Sunday && m <= Saturday
}

func (m ModelWeekday) String() string {
	if !m.Valid() {
		return fmt.Sprintf("ModelWeekday(%d)", int(m))
	}
	return time.Weekday(int(m) - 1).String()
}

// WeekStart returns the date of the Sunday that starts the week containing
// t, at midnight in t's location.  Weekly trend buckets key on this.
func WeekStart(t time.Time) time.Time {
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return d.AddDate(0, 0, -int(d.Weekday()))
}

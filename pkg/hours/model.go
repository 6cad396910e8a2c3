package hours

import "sort"

// ModelEntry is the expected-hours model for one (facility, role, weekday)
// combination.  Two formats exist upstream: an aggregate daily total, or a
// per-person daily figure with a staff count.  PerPerson selects which pair
// of fields is authoritative.
type ModelEntry struct {
	Facility       string
	Role           string
	Weekday        ModelWeekday
	TotalHours     float64
	PerPersonHours float64
	StaffCount     float64
	PerPerson      bool
}

// ExpectedHours resolves the entry to a single expected-hours figure.
func (e ModelEntry) ExpectedHours() float64 {
	if e.PerPerson {
		return e.PerPersonHours * e.StaffCount
	}
	return e.TotalHours
}

type modelKey struct {
	facility string
	role     string
	weekday  ModelWeekday
}

// ModelTable indexes expected-hours entries by (facility, role, weekday).
type ModelTable struct {
	entries map[modelKey]ModelEntry
}

// NewModelTable builds a table from entries.  A later duplicate of the same
// key replaces the earlier one.
func NewModelTable(entries []ModelEntry) *ModelTable {
	t := &ModelTable{entries: make(map[modelKey]ModelEntry, len(entries))}
	for _, e := range entries {
		t.entries[modelKey{e.Facility, e.Role, e.Weekday}] = e
	}
	return t
}

// Lookup returns the expected hours for the exact key.  A miss returns
// (0, false); callers treat that as zero expected hours rather than an
// error.
func (t *ModelTable) Lookup(facility, role string, weekday ModelWeekday) (float64, bool) {
	if t == nil {
		return 0, false
	}
	e, ok := t.entries[modelKey{facility, role, weekday}]
	if !ok {
		return 0, false
	}
	return e.ExpectedHours(), true
}

// DayTotal sums expected hours across all roles for a facility on the given
// weekday.  Used by the per-facility KPI rollup that walks a calendar
// period day by day.
func (t *ModelTable) DayTotal(facility string, weekday ModelWeekday) float64 {
	if t == nil {
		return 0
	}
	var sum float64
	for k, e := range t.entries {
		if k.facility == facility && k.weekday == weekday {
			sum += e.ExpectedHours()
		}
	}
	return sum
}

// Len reports the number of entries.
func (t *ModelTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

// Facilities returns the distinct facility names in the table, sorted.
func (t *ModelTable) Facilities() []string {
	if t == nil {
		return nil
	}
	seen := make(map[string]bool)
	var out []string
	for k := range t.entries {
		if !seen[k.facility] {
			seen[k.facility] = true
			out = append(out, k.facility)
		}
	}
	sort.Strings(out)
	return out
}

// Package hours holds the normalized workforce dataset consumed by the
// variance engine: dated hour samples, the expected-hours model table, and
// the weekday conventions shared by both.  The engine treats everything in
// this package as an immutable snapshot for the duration of a run.
package hours

import (
	"sort"
	"time"
)

// Sample is one recorded observation of actual hours worked at a facility
// for a role on a date.  Employee identity is optional; when absent the
// employee-level detectors are skipped.
type Sample struct {
	Facility     string
	Role         string
	Date         time.Time
	Hours        float64
	EmployeeID   string
	EmployeeName string
}

// GroupKey is the composite key used for every grouping the engine performs.
// Employee and Weekday are zero when the grouping does not include them.
// Using a comparable struct instead of concatenated strings keeps key
// collisions ("facility_role") impossible.
type GroupKey struct {
	Facility string
	Role     string
	Employee string
	Weekday  ModelWeekday
}

// Group is a key plus the samples that share it, in input order.
type Group struct {
	Key     GroupKey
	Samples []Sample
}

// GroupByFacilityRole partitions samples by (facility, role).  Groups are
// returned in ascending key order so downstream output is deterministic.
func GroupByFacilityRole(samples []Sample) []Group {
	return groupBy(samples, func(s Sample) GroupKey {
		return GroupKey{Facility: s.Facility, Role: s.Role}
	})
}

// GroupByFacilityRoleWeekday partitions samples by (facility, role,
// day-of-week) using the model weekday convention derived from each
// sample's date.
func GroupByFacilityRoleWeekday(samples []Sample) []Group {
	return groupBy(samples, func(s Sample) GroupKey {
		return GroupKey{Facility: s.Facility, Role: s.Role, Weekday: ToModelWeekday(s.Date.Weekday())}
	})
}

// GroupByEmployeeRole partitions samples by (facility, employee, role).
// Samples without an employee id are excluded.
func GroupByEmployeeRole(samples []Sample) []Group {
	var withID []Sample
	for _, s := range samples {
		if s.EmployeeID != "" {
			withID = append(withID, s)
		}
	}
	return groupBy(withID, func(s Sample) GroupKey {
		return GroupKey{Facility: s.Facility, Role: s.Role, Employee: s.EmployeeID}
	})
}

func groupBy(samples []Sample, key func(Sample) GroupKey) []Group {
	idx := make(map[GroupKey]int)
	var groups []Group
	for _, s := range samples {
		k := key(s)
		i, ok := idx[k]
		if !ok {
			i = len(groups)
			idx[k] = i
			groups = append(groups, Group{Key: k})
		}
		groups[i].Samples = append(groups[i].Samples, s)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Key.less(groups[j].Key) })
	return groups
}

func (k GroupKey) less(o GroupKey) bool {
	if k.Facility != o.Facility {
		return k.Facility < o.Facility
	}
	if k.Role != o.Role {
		return k.Role < o.Role
	}
	if k.Employee != o.Employee {
		return k.Employee < o.Employee
	}
	return k.Weekday < o.Weekday
}

// HasEmployeeIDs reports whether any sample carries an employee id.
func HasEmployeeIDs(samples []Sample) bool {
	for _, s := range samples {
		if s.EmployeeID != "" {
			return true
		}
	}
	return false
}

// LatestDate returns the most recent sample date, or the zero time for an
// empty slice.
func LatestDate(samples []Sample) time.Time {
	var max time.Time
	for _, s := range samples {
		if s.Date.After(max) {
			max = s.Date
		}
	}
	return max
}

// FilterRange returns the samples whose date falls within [start, end]
// inclusive.
func FilterRange(samples []Sample, start, end time.Time) []Sample {
	var out []Sample
	for _, s := range samples {
		if s.Date.Before(start) || s.Date.After(end) {
			continue
		}
		out = append(out, s)
	}
	return out
}

// Values extracts the hour figures from samples in order.
func Values(samples []Sample) []float64 {
	out := make([]float64, len(samples))
	for i, s := range samples {
		out[i] = s.Hours
	}
	return out
}

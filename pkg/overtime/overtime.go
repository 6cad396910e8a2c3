// Package overtime ranks employees by hours worked beyond the standard
// shift length for their role.  Standard shift lengths live outside this
// engine, so callers inject a lookup.
package overtime

import (
	"sort"

	"github.com/shiftwatch/shiftwatch/pkg/hours"
)

// ShiftHours reports the standard shift length for a role.  ok is false
// when no standard is defined for the role; such samples accrue no
// overtime.
type ShiftHours func(role string) (standard float64, ok bool)

// Report is one employee's overtime totals over the analyzed samples.
type Report struct {
	EmployeeID    string
	EmployeeName  string
	Facility      string
	PrimaryRole   string
	TotalHours    float64
	OvertimeHours float64
	OvertimeDays  int
}

// Compute totals overtime per employee.  A dated observation contributes
// max(hours-standard, 0) for its role.  PrimaryRole and Facility are the
// ones the employee logged the most hours under.  Samples without an
// employee id are skipped.  Results are sorted by overtime descending,
// then employee id ascending.
func Compute(samples []hours.Sample, shift ShiftHours) []Report {
	type acc struct {
		Report
		roleHours     map[string]float64
		facilityHours map[string]float64
	}
	byEmployee := make(map[string]*acc)
	for _, s := range samples {
		if s.EmployeeID == "" {
			continue
		}
		a, ok := byEmployee[s.EmployeeID]
		if !ok {
			a = &acc{
				Report:        Report{EmployeeID: s.EmployeeID, EmployeeName: s.EmployeeName},
				roleHours:     make(map[string]float64),
				facilityHours: make(map[string]float64),
			}
			byEmployee[s.EmployeeID] = a
		}
		a.TotalHours += s.Hours
		a.roleHours[s.Role] += s.Hours
		a.facilityHours[s.Facility] += s.Hours
		if std, ok := shift(s.Role); ok && s.Hours > std {
			a.OvertimeHours += s.Hours - std
			a.OvertimeDays++
		}
	}

	out := make([]Report, 0, len(byEmployee))
	for _, a := range byEmployee {
		a.PrimaryRole = topKey(a.roleHours)
		a.Facility = topKey(a.facilityHours)
		out = append(out, a.Report)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].OvertimeHours != out[j].OvertimeHours {
			return out[i].OvertimeHours > out[j].OvertimeHours
		}
		return out[i].EmployeeID < out[j].EmployeeID
	})
	return out
}

// TopN returns the first n reports, or all of them when fewer exist.
func TopN(reports []Report, n int) []Report {
	if n < 0 {
		n = 0
	}
	if n > len(reports) {
		n = len(reports)
	}
	return reports[:n]
}

// topKey picks the key with the most hours, breaking ties by name so the
// result is stable across runs.
func topKey(m map[string]float64) string {
	var best string
	var bestHours float64
	for k, v := range m {
		if v > bestHours || (v == bestHours && (best == "" || k < best)) {
			best, bestHours = k, v
		}
	}
	return best
}

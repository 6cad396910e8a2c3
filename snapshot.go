package shiftwatch

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/shiftwatch/shiftwatch/pkg/hours"
)

// snapshotFile is the normalized input produced by the ingestion pipeline:
// one hours table and one expected-hours model table.  Dates are
// YYYY-MM-DD strings; weekdays use the 1 (Sunday) through 7 (Saturday)
// convention.
type snapshotFile struct {
	Hours []sampleJSON `json:"hours"`
	Model []modelJSON  `json:"model"`
}

type sampleJSON struct {
	Facility     string  `json:"facility"`
	Role         string  `json:"role"`
	Date         string  `json:"date"`
	Hours        float64 `json:"hours"`
	EmployeeID   string  `json:"employee_id,omitempty"`
	EmployeeName string  `json:"employee_name,omitempty"`
}

type modelJSON struct {
	Facility       string  `json:"facility"`
	Role           string  `json:"role"`
	Weekday        int     `json:"weekday"`
	TotalHours     float64 `json:"total_hours,omitempty"`
	PerPersonHours float64 `json:"per_person_hours,omitempty"`
	StaffCount     float64 `json:"staff_count,omitempty"`
	PerPerson      bool    `json:"per_person,omitempty"`
}

// LoadSnapshot reads a normalized snapshot from path.  Structural problems
// (unreadable file, malformed rows, negative hours) are fatal: they mean
// the ingestion contract was violated upstream.
func LoadSnapshot(path string) ([]hours.Sample, *hours.ModelTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("reading snapshot: %w", err)
	}

	var file snapshotFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, nil, fmt.Errorf("decoding snapshot %s: %w", path, err)
	}

	samples := make([]hours.Sample, 0, len(file.Hours))
	for i, row := range file.Hours {
		if row.Facility == "" || row.Role == "" {
			return nil, nil, fmt.Errorf("snapshot hours row %d: facility and role are required", i)
		}
		date, err := time.Parse(dateLayout, row.Date)
		if err != nil {
			return nil, nil, fmt.Errorf("snapshot hours row %d: invalid date %q, expected YYYY-MM-DD", i, row.Date)
		}
		if row.Hours < 0 {
			return nil, nil, fmt.Errorf("snapshot hours row %d: hours must be >= 0, got %g", i, row.Hours)
		}
		samples = append(samples, hours.Sample{
			Facility:     row.Facility,
			Role:         row.Role,
			Date:         date,
			Hours:        row.Hours,
			EmployeeID:   row.EmployeeID,
			EmployeeName: row.EmployeeName,
		})
	}

	entries := make([]hours.ModelEntry, 0, len(file.Model))
	for i, row := range file.Model {
		wd := hours.ModelWeekday(row.Weekday)
		if !wd.Valid() {
			return nil, nil, fmt.Errorf("snapshot model row %d: weekday must be 1 (Sunday) through 7 (Saturday), got %d", i, row.Weekday)
		}
		entries = append(entries, hours.ModelEntry{
			Facility:       row.Facility,
			Role:           row.Role,
			Weekday:        wd,
			TotalHours:     row.TotalHours,
			PerPersonHours: row.PerPersonHours,
			StaffCount:     row.StaffCount,
			PerPerson:      row.PerPerson,
		})
	}

	return samples, hours.NewModelTable(entries), nil
}

package shiftwatch

import (
	"fmt"
	"strconv"

	"github.com/shiftwatch/shiftwatch/pkg/hours"
)

// ControlVariables tune one analysis run.  Zero values are never used
// directly; construct through NewControlVariables so defaults and range
// validation apply.
type ControlVariables struct {
	DaysToDrop        int
	DaysToProcess     int
	NewDataDay        hours.ModelWeekday
	UseDataDay        bool
	UseStatistics     bool
	VarianceThreshold float64
	WeeksForControl   int
	WeeksForTrends    int
}

type ConfigOption func(cv *ControlVariables) error

// NewControlVariables builds the run configuration from defaults plus
// options, collecting every option and validation error rather than
// stopping at the first.
func NewControlVariables(options ...ConfigOption) (*ControlVariables, []error) {
	cv := &ControlVariables{
		DaysToDrop:        7,
		DaysToProcess:     84,
		NewDataDay:        hours.Sunday,
		UseDataDay:        true,
		UseStatistics:     true,
		VarianceThreshold: 15.0,
		WeeksForControl:   12,
		WeeksForTrends:    8,
	}

	var errors []error
	for _, option := range options {
		if err := option(cv); err != nil {
			errors = append(errors, err)
		}
	}
	errors = append(errors, cv.validate()...)

	if len(errors) > 0 {
		return nil, errors
	}
	return cv, nil
}

func (cv *ControlVariables) validate() []error {
	var errors []error
	if cv.DaysToDrop < 0 {
		errors = append(errors, fmt.Errorf("days-to-drop must be >= 0, got %d", cv.DaysToDrop))
	}
	if cv.DaysToProcess < 1 {
		errors = append(errors, fmt.Errorf("days-to-process must be >= 1, got %d", cv.DaysToProcess))
	}
	if !cv.NewDataDay.Valid() {
		errors = append(errors, fmt.Errorf("new-data-day must be 1 (Sunday) through 7 (Saturday), got %d", cv.NewDataDay))
	}
	if cv.VarianceThreshold < 0 || cv.VarianceThreshold > 100 {
		errors = append(errors, fmt.Errorf("variance-threshold must be between 0 and 100, got %g", cv.VarianceThreshold))
	}
	if cv.WeeksForControl < 1 {
		errors = append(errors, fmt.Errorf("weeks-for-control must be >= 1, got %d", cv.WeeksForControl))
	}
	if cv.WeeksForTrends < 1 {
		errors = append(errors, fmt.Errorf("weeks-for-trends must be >= 1, got %d", cv.WeeksForTrends))
	}
	return errors
}

func DaysToDrop(value string) ConfigOption {
	return func(cv *ControlVariables) error {
		d, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("could not convert days-to-drop to integer: %s", value)
		}
		cv.DaysToDrop = d
		return nil
	}
}

func DaysToProcess(value string) ConfigOption {
	return func(cv *ControlVariables) error {
		d, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("could not convert days-to-process to integer: %s", value)
		}
		cv.DaysToProcess = d
		return nil
	}
}

func NewDataDay(value string) ConfigOption {
	return func(cv *ControlVariables) error {
		d, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("could not convert new-data-day to integer: %s", value)
		}
		cv.NewDataDay = hours.ModelWeekday(d)
		return nil
	}
}

func UseDataDay(value string) ConfigOption {
	return func(cv *ControlVariables) error {
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("could not convert use-data-day to boolean: %s", value)
		}
		cv.UseDataDay = b
		return nil
	}
}

func UseStatistics(value string) ConfigOption {
	return func(cv *ControlVariables) error {
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("could not convert use-statistics to boolean: %s", value)
		}
		cv.UseStatistics = b
		return nil
	}
}

func VarianceThreshold(value string) ConfigOption {
	return func(cv *ControlVariables) error {
		t, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("could not convert variance-threshold to number: %s", value)
		}
		cv.VarianceThreshold = t
		return nil
	}
}

func WeeksForControl(value string) ConfigOption {
	return func(cv *ControlVariables) error {
		w, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("could not convert weeks-for-control to integer: %s", value)
		}
		cv.WeeksForControl = w
		return nil
	}
}

func WeeksForTrends(value string) ConfigOption {
	return func(cv *ControlVariables) error {
		w, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("could not convert weeks-for-trends to integer: %s", value)
		}
		cv.WeeksForTrends = w
		return nil
	}
}

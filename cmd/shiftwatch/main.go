package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/shiftwatch/shiftwatch"
)

func main() {

	cl, err := shiftwatch.ParseCommandLine()
	if err != nil {
		if !errors.Is(err, pflag.ErrHelp) {
			fmt.Printf("Could not parse configuration: %s\n\nUse shiftwatch --help for options\n", err)
		}
		os.Exit(1)
	}
	if len(cl.Args) != 1 {
		fmt.Println("Expected exactly one snapshot file.  Use shiftwatch --help for options.")
		os.Exit(1)
	}

	cv, errs := shiftwatch.NewControlVariables(cl.Options...)
	if len(errs) > 0 {
		fmt.Println("Error in config:")
		for _, e := range errs {
			fmt.Println(e)
		}
		os.Exit(1)
	}

	log := newLogger(cl.Verbose)
	defer log.Sync()

	samples, model, err := shiftwatch.LoadSnapshot(cl.Args[0])
	if err != nil {
		fmt.Println("Snapshot error:", err)
		os.Exit(1)
	}

	engine := shiftwatch.NewEngine(cv,
		shiftwatch.WithLogger(log),
		shiftwatch.WithWindowOverride(cl.StartDate, cl.EndDate))
	result, err := engine.Run(samples, model)
	if err != nil {
		fmt.Println("Analysis error:", err)
		os.Exit(1)
	}

	printResult(result)
	os.Exit(0)
}

func printResult(result *shiftwatch.Result) {
	fmt.Printf("Analysis window: %s (%d days)\n", result.Window, result.Window.Days())
	fmt.Printf("Exceptions: %d\n\n", len(result.Exceptions))
	for _, r := range result.Exceptions {
		fmt.Printf("%-12s %-20s %s  sev %5.1f  [%s] %s\n",
			r.Facility, r.Role, r.Date.Format("2006-01-02"), r.Severity, r.Source, r.Description)
	}
	if len(result.Facilities) > 0 {
		fmt.Println("\nPer-facility summary:")
		for _, s := range result.Facilities {
			fmt.Printf("%-12s total %3d  (model %d, statistical %d, trend %d)  max sev %5.1f\n",
				s.Facility, s.Total, s.Model, s.Statistical, s.Trend, s.MaxSeverity)
		}
	}
	if result.TrendSummary.Total > 0 {
		ts := result.TrendSummary
		fmt.Printf("\nTrends: %d analyzed, %d significant (%d increasing, %d decreasing, %d stable)\n",
			ts.Total, ts.Significant, ts.Increasing, ts.Decreasing, ts.Stable)
	}
}

func newLogger(verbose bool) *zap.Logger {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	log, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return log
}

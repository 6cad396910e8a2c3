package shiftwatch

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// envVars maps environment variable names onto the equivalent flag names.
// Environment values have the lowest priority after built-in defaults.
var envVars = map[string]string{
	"DAYS_TO_DROP":       "days-to-drop",
	"DAYS_TO_PROCESS":    "days-to-process",
	"NEW_DATA_DAY":       "new-data-day",
	"USE_DATA_DAY":       "use-data-day",
	"USE_STATISTICS":     "use-statistics",
	"VARIANCE_THRESHOLD": "variance-threshold",
	"WEEKS_FOR_CONTROL":  "weeks-for-control",
	"WEEKS_FOR_TRENDS":   "weeks-for-trends",
}

const dateLayout = "2006-01-02"

// CommandLine is the parsed invocation: positional arguments, the
// ControlVariables options accumulated from environment, config file and
// flags (in that priority order), and the run settings that are not
// control variables.
type CommandLine struct {
	Args    []string
	Options []ConfigOption

	StartDate time.Time
	EndDate   time.Time
	Verbose   bool
}

type parsed struct {
	fileOptions []ConfigOption
	flagOptions []ConfigOption
	cl          *CommandLine
	err         error
}

// ParseCommandLine configures the engine from environment variables,
// an optional YAML configuration file passed with the -c flag, and
// command line flags.  Later sources override earlier ones: flags beat
// the file, the file beats the environment.
func ParseCommandLine() (*CommandLine, error) {
	pf := createFlagSet()
	return parse(os.Args[1:], os.LookupEnv, pf)
}

func parse(args []string, env func(string) (string, bool), pf *pflag.FlagSet) (*CommandLine, error) {
	p := parsed{cl: &CommandLine{}}
	for name, flag := range envVars {
		if value, ok := env(name); ok {
			option, err := handleOption(flag, value)
			if err != nil {
				return p.cl, err
			}
			p.cl.Options = append(p.cl.Options, option)
		}
	}

	if err := pf.ParseAll(args, parseFlag(&p)); err != nil {
		return p.cl, err
	}
	if p.err != nil {
		return p.cl, p.err
	}

	p.cl.Args = pf.Args()
	p.cl.Options = append(p.cl.Options, p.fileOptions...)
	p.cl.Options = append(p.cl.Options, p.flagOptions...)
	return p.cl, nil
}

func createFlagSet() *pflag.FlagSet {
	pf := pflag.NewFlagSet("shiftwatch", pflag.ContinueOnError)
	pf.Usage = func() {
		fmt.Printf("Usage of shiftwatch:\nshiftwatch <options> snapshot.json\n")
		fmt.Printf("\n%s", pf.FlagUsagesWrapped(10))
	}

	pf.StringP("config", "c", "", "Use yaml configuration file")
	pf.Int("days-to-drop", 7, "Days to drop from the end of the dataset when deriving the period end date.")
	pf.Int("days-to-process", 84, "Inclusive calendar length of the analysis window in days.")
	pf.Int("new-data-day", 1, "Weekday new data arrives on, 1 (Sunday) through 7 (Saturday).")
	pf.Bool("use-data-day", true, "Anchor the period end on the most recent new-data-day instead of dropping days.")
	pf.Bool("use-statistics", true, "Run the statistical control-limit detectors.")
	pf.Float64("variance-threshold", 15.0, "Percent deviation from model hours that flags an exception (0-100).")
	pf.Int("weeks-for-control", 12, "Trailing weeks of data used for control limits.")
	pf.Int("weeks-for-trends", 8, "Trailing weeks of data used for trend analysis.")
	pf.String("start-date", "", "Explicit window start (YYYY-MM-DD).  Requires --end-date.")
	pf.String("end-date", "", "Explicit window end (YYYY-MM-DD).  Requires --start-date.")
	pf.BoolP("verbose", "v", false, "Enable debug logging")

	return pf
}

func parseFlag(p *parsed) func(*pflag.Flag, string) error {
	return func(flag *pflag.Flag, value string) error {
		switch flag.Name {
		case "config":
			opts, err := parseFromFile(value, p.cl)
			if err != nil {
				p.err = err
				return err
			}
			p.fileOptions = append(p.fileOptions, opts...)
		case "start-date":
			t, err := time.Parse(dateLayout, value)
			if err != nil {
				p.err = fmt.Errorf("invalid start-date %q, expected YYYY-MM-DD", value)
				return p.err
			}
			p.cl.StartDate = t
		case "end-date":
			t, err := time.Parse(dateLayout, value)
			if err != nil {
				p.err = fmt.Errorf("invalid end-date %q, expected YYYY-MM-DD", value)
				return p.err
			}
			p.cl.EndDate = t
		case "verbose":
			p.cl.Verbose = true
		default:
			option, err := handleOption(flag.Name, value)
			if err != nil {
				p.err = err
				return err
			}
			p.flagOptions = append(p.flagOptions, option)
		}
		return nil
	}
}

func handleOption(name string, value string) (ConfigOption, error) {
	switch name {
	case "days-to-drop":
		return DaysToDrop(value), nil
	case "days-to-process":
		return DaysToProcess(value), nil
	case "new-data-day":
		return NewDataDay(value), nil
	case "use-data-day":
		return UseDataDay(value), nil
	case "use-statistics":
		return UseStatistics(value), nil
	case "variance-threshold":
		return VarianceThreshold(value), nil
	case "weeks-for-control":
		return WeeksForControl(value), nil
	case "weeks-for-trends":
		return WeeksForTrends(value), nil
	default:
		return nil, fmt.Errorf("unknown option: %s", name)
	}
}

func parseFromFile(fpath string, cl *CommandLine) ([]ConfigOption, error) {
	var options []ConfigOption
	data, err := os.ReadFile(fpath)
	if err != nil {
		return options, err
	}

	cfg := make(map[string]interface{})
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return options, err
	}
	for k, v := range cfg {
		value, err := stringify(k, v)
		if err != nil {
			return options, err
		}
		switch k {
		case "start-date":
			t, err := time.Parse(dateLayout, value)
			if err != nil {
				return options, fmt.Errorf("invalid start-date %q in %s, expected YYYY-MM-DD", value, fpath)
			}
			cl.StartDate = t
		case "end-date":
			t, err := time.Parse(dateLayout, value)
			if err != nil {
				return options, fmt.Errorf("invalid end-date %q in %s, expected YYYY-MM-DD", value, fpath)
			}
			cl.EndDate = t
		default:
			opt, err := handleOption(k, value)
			if err != nil {
				return options, err
			}
			options = append(options, opt)
		}
	}
	return options, nil
}

func stringify(key string, v interface{}) (string, error) {
	switch value := v.(type) {
	case string:
		return value, nil
	case int:
		return strconv.Itoa(value), nil
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64), nil
	case bool:
		return strconv.FormatBool(value), nil
	default:
		return "", fmt.Errorf("could not process config key %s, unknown type", key)
	}
}

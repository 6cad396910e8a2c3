// Package stat implements the statistical core of the variance engine:
// normality classification of hour samples and the control limits derived
// from it.  Samples that pass a Shapiro-Wilk test get conventional
// mean +/- 3 sigma limits; everything else falls back to the robust
// median +/- 3 MAD method.
package stat

import (
	"math"
	"sort"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"
)

const (
	// MinSampleSize is the fewest observations the normality test accepts.
	// Every grouped detector gates on this same constant.
	MinSampleSize = 3
	// MaxSampleSize is the largest sample the Shapiro-Wilk approximation
	// supports; larger samples are truncated to the most recent values.
	MaxSampleSize = 5000
	// NormalityPValue is the threshold above which a sample is classified
	// as normally distributed.
	NormalityPValue = 0.05
	// LimitMultiplier scales the dispersion measure when setting control
	// limits.  Fixed by convention, never derived from the data.
	LimitMultiplier = 3.0
)

// Classification is the outcome of the normality test.
type Classification int

const (
	Insufficient Classification = iota // fewer than MinSampleSize values
	ZeroRange                          // all values identical
	Normal
	NotNormal
)

func (c Classification) String() string {
	switch c {
	case Insufficient:
		return "insufficient data"
	case ZeroRange:
		return "zero range"
	case Normal:
		return "normal"
	case NotNormal:
		return "not normal"
	default:
		return "unknown"
	}
}

// Method tags which control-limit calculation produced a set of limits.
type Method int

const (
	MethodNormal Method = iota // mean and standard deviation
	MethodRobust               // median and MAD
)

func (m Method) String() string {
	if m == MethodRobust {
		return "mad"
	}
	return "normal"
}

// ControlLimits bounds the expected range of a sample.  Lower is floored at
// zero because hours cannot be negative.
type ControlLimits struct {
	Center     float64
	Upper      float64
	Lower      float64
	Dispersion float64
	Method     Method
	Normality  Classification
	PValue     float64
	N          int
}

// Calculator classifies samples and computes control limits.  The zero
// value is usable; options attach a logger.
type Calculator struct {
	log *zap.Logger
}

// Option configures a Calculator.
type Option func(*Calculator)

// WithLogger attaches a logger for truncation warnings and test failures.
func WithLogger(log *zap.Logger) Option {
	return func(c *Calculator) { c.log = log }
}

// NewCalculator returns a Calculator.
func NewCalculator(opts ...Option) *Calculator {
	c := &Calculator{log: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Calculator) logger() *zap.Logger {
	if c == nil || c.log == nil {
		return zap.NewNop()
	}
	return c.log
}

// Classify runs the normality decision tree over xs and returns the
// classification plus the test p-value (0 when no test was run).  Samples
// larger than MaxSampleSize are truncated to the most recent observations
// before testing; the truncation is logged, not an error.
func (c *Calculator) Classify(xs []float64) (Classification, float64) {
	clean := dropNaN(xs)
	n := len(clean)
	if n < MinSampleSize {
		return Insufficient, 0
	}
	lo, hi := clean[0], clean[0]
	for _, v := range clean[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if hi-lo == 0 {
		return ZeroRange, 0
	}
	if n > MaxSampleSize {
		c.logger().Warn("sample exceeds normality test maximum, truncating to most recent observations",
			zap.Int("n", n), zap.Int("max", MaxSampleSize))
		clean = clean[n-MaxSampleSize:]
	}
	_, p, err := shapiroWilk(clean)
	if err != nil {
		c.logger().Error("normality test failed", zap.Error(err))
		return NotNormal, 0
	}
	if p > NormalityPValue {
		return Normal, p
	}
	return NotNormal, p
}

// Limits computes control limits for xs, choosing the method from the
// normality classification.  NotNormal, Insufficient and ZeroRange all
// fall back to the robust method.  An empty sample yields all-zero limits
// with the normal method as a safe default.
func (c *Calculator) Limits(xs []float64) ControlLimits {
	clean := dropNaN(xs)
	if len(clean) == 0 {
		return ControlLimits{Method: MethodNormal}
	}

	cls, p := c.Classify(clean)
	l := ControlLimits{Normality: cls, PValue: p, N: len(clean)}
	if cls == Normal {
		l.Method = MethodNormal
		l.Center = stat.Mean(clean, nil)
		l.Dispersion = stat.StdDev(clean, nil)
	} else {
		l.Method = MethodRobust
		l.Center = Median(clean)
		l.Dispersion = MAD(clean)
	}
	l.Upper = l.Center + LimitMultiplier*l.Dispersion
	l.Lower = math.Max(l.Center-LimitMultiplier*l.Dispersion, 0)
	return l
}

// Median returns the sample median.  xs is not modified.
func Median(xs []float64) float64 {
	n := len(xs)
	if n == 0 {
		return 0
	}
	s := make([]float64, n)
	copy(s, xs)
	sort.Float64s(s)
	if n%2 == 1 {
		return s[n/2]
	}
	return (s[n/2-1] + s[n/2]) / 2
}

// MAD returns the median absolute deviation from the median, the robust
// dispersion measure used for non-normal samples.
func MAD(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	med := Median(xs)
	dev := make([]float64, len(xs))
	for i, v := range xs {
		dev[i] = math.Abs(v - med)
	}
	return Median(dev)
}

func dropNaN(xs []float64) []float64 {
	out := xs[:0:0]
	for _, v := range xs {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

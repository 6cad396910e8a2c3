package stat

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Descriptive summarizes the shape of a sample.  Quartile fields are zero
// for samples with fewer than four values; skewness and kurtosis require
// three and four values respectively.
type Descriptive struct {
	N        int
	Mean     float64
	Median   float64
	Std      float64
	MAD      float64
	Min      float64
	Max      float64
	Range    float64
	Q25      float64
	Q75      float64
	IQR      float64
	Skewness float64
	Kurtosis float64
}

// Describe computes descriptive statistics for xs.
func Describe(xs []float64) Descriptive {
	clean := dropNaN(xs)
	n := len(clean)
	if n == 0 {
		return Descriptive{}
	}

	s := make([]float64, n)
	copy(s, clean)
	sort.Float64s(s)

	d := Descriptive{
		N:      n,
		Mean:   stat.Mean(s, nil),
		Median: Median(s),
		MAD:    MAD(s),
		Min:    s[0],
		Max:    s[n-1],
	}
	d.Range = d.Max - d.Min
	if n > 1 {
		d.Std = stat.StdDev(s, nil)
	}
	if n >= 4 {
		d.Q25 = stat.Quantile(0.25, stat.Empirical, s, nil)
		d.Q75 = stat.Quantile(0.75, stat.Empirical, s, nil)
		d.IQR = d.Q75 - d.Q25
	}
	if d.Std > 0 {
		if n > 2 {
			d.Skewness = stat.Skew(s, nil)
		}
		if n > 3 {
			d.Kurtosis = stat.ExKurtosis(s, nil)
		}
	}
	return d
}

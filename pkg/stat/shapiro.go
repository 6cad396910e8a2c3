package stat

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat/distuv"
)

// Shapiro-Wilk W test for normality using Royston's AS R94 approximation,
// valid for sample sizes 3 through 5000.  The weight vector is built from
// expected normal order statistics with Royston's polynomial corrections to
// the two extreme weights, and W is mapped to a p-value through a
// normalizing transform of ln(1-W).

// Polynomial coefficients from Royston (1995), AS R94.
var (
	swC1 = []float64{0, 0.221157, -0.147981, -2.071190, 4.434685, -2.706056}
	swC2 = []float64{0, 0.042981, -0.293762, -1.752461, 5.682633, -3.582633}
	swC3 = []float64{0.544, -0.39978, 0.025054, -6.714e-4}
	swC4 = []float64{1.3822, -0.77857, 0.062767, -0.0020322}
	swC5 = []float64{-1.5861, -0.31082, -0.083751, 0.0038915}
	swC6 = []float64{-0.4803, -0.082676, 0.0030302}
	swG  = []float64{-2.273, 0.459}
)

// shapiroWilk returns the W statistic and the upper-tail p-value for the
// null hypothesis that xs is drawn from a normal distribution.  xs must
// contain 3 to 5000 values with nonzero range; it is not modified.
func shapiroWilk(xs []float64) (w, p float64, err error) {
	n := len(xs)
	if n < MinSampleSize || n > MaxSampleSize {
		return 0, 0, fmt.Errorf("shapiro-wilk: sample size %d outside supported range [%d, %d]", n, MinSampleSize, MaxSampleSize)
	}

	x := make([]float64, n)
	copy(x, xs)
	sort.Float64s(x)

	if x[n-1]-x[0] == 0 {
		return 0, 0, fmt.Errorf("shapiro-wilk: zero range")
	}

	an := float64(n)
	nn2 := n / 2
	a := make([]float64, nn2+1) // 1-indexed like the reference implementation

	norm := distuv.UnitNormal
	if n == 3 {
		a[1] = math.Sqrt(0.5)
	} else {
		summ2 := 0.0
		for i := 1; i <= nn2; i++ {
			a[i] = norm.Quantile((float64(i) - 0.375) / (an + 0.25))
			summ2 += a[i] * a[i]
		}
		summ2 *= 2
		ssumm2 := math.Sqrt(summ2)
		rsn := 1 / math.Sqrt(an)
		a1 := poly(swC1, rsn) - a[1]/ssumm2

		var fac float64
		i1 := 2
		if n > 5 {
			i1 = 3
			a2 := -a[2]/ssumm2 + poly(swC2, rsn)
			fac = math.Sqrt((summ2 - 2*a[1]*a[1] - 2*a[2]*a[2]) / (1 - 2*a1*a1 - 2*a2*a2))
			a[2] = a2
		} else {
			fac = math.Sqrt((summ2 - 2*a[1]*a[1]) / (1 - 2*a1*a1))
		}
		a[1] = a1
		for i := i1; i <= nn2; i++ {
			a[i] = -a[i] / fac
		}
	}

	// W = (sum of weighted symmetric spreads)^2 / total sum of squares.
	mean := 0.0
	for _, v := range x {
		mean += v
	}
	mean /= an
	ssq := 0.0
	for _, v := range x {
		d := v - mean
		ssq += d * d
	}
	sax := 0.0
	for i := 1; i <= nn2; i++ {
		sax += a[i] * (x[n-i] - x[i-1])
	}
	w = (sax * sax) / ssq
	if w > 1 {
		w = 1
	}

	// Significance of W.
	switch {
	case n == 3:
		const pi6 = 1.90985931710274  // 6/pi
		const stqr = 1.04719755119660 // asin(sqrt(3/4))
		p = pi6 * (math.Asin(math.Sqrt(w)) - stqr)
		if p < 0 {
			p = 0
		}
		if p > 1 {
			p = 1
		}
	case n <= 11:
		gamma := poly(swG, an)
		y := math.Log1p(-w)
		if y >= gamma {
			return w, 1e-99, nil
		}
		y = -math.Log(gamma - y)
		m := poly(swC3, an)
		s := math.Exp(poly(swC4, an))
		p = norm.Survival((y - m) / s)
	default:
		ln := math.Log(an)
		y := math.Log1p(-w)
		m := poly(swC5, ln)
		s := math.Exp(poly(swC6, ln))
		p = norm.Survival((y - m) / s)
	}
	return w, p, nil
}

// poly evaluates c[0] + c[1]*x + c[2]*x^2 + ...
func poly(c []float64, x float64) float64 {
	v := 0.0
	for i := len(c) - 1; i >= 0; i-- {
		v = v*x + c[i]
	}
	return v
}

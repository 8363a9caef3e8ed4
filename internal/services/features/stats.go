package features

import (
	"math"
	"sort"
)

// finite drops NaN values, the way pandas aggregations skip missing data.
func finite(xs []float64) []float64 {
	out := make([]float64, 0, len(xs))
	for _, x := range xs {
		if !math.IsNaN(x) {
			out = append(out, x)
		}
	}
	return out
}

// Mean returns the average of the non-NaN values, or NaN when there are none.
func Mean(xs []float64) float64 {
	vals := finite(xs)
	if len(vals) == 0 {
		return math.NaN()
	}
	sum := 0.0
	for _, x := range vals {
		sum += x
	}
	return sum / float64(len(vals))
}

// Median returns the median of the non-NaN values, or NaN when there are none.
func Median(xs []float64) float64 {
	vals := finite(xs)
	if len(vals) == 0 {
		return math.NaN()
	}
	sort.Float64s(vals)
	n := len(vals)
	if n%2 == 1 {
		return vals[n/2]
	}
	return (vals[n/2-1] + vals[n/2]) / 2
}

// SampleStd is the standard deviation with one degree of freedom removed.
// Fewer than two values yield NaN.
func SampleStd(xs []float64) float64 {
	vals := finite(xs)
	n := len(vals)
	if n < 2 {
		return math.NaN()
	}
	mean := Mean(vals)
	sum2 := 0.0
	for _, x := range vals {
		d := x - mean
		sum2 += d * d
	}
	return math.Sqrt(sum2 / float64(n-1))
}

// Quantile returns the q-th quantile using linear interpolation between
// closest ranks. NaN when there are no values.
func Quantile(xs []float64, q float64) float64 {
	vals := finite(xs)
	if len(vals) == 0 {
		return math.NaN()
	}
	sort.Float64s(vals)
	pos := q * float64(len(vals)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return vals[lo]
	}
	frac := pos - float64(lo)
	return vals[lo] + (vals[hi]-vals[lo])*frac
}

// Clamp bounds x to [lo, hi].
func Clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}

// ClampInt bounds x to [lo, hi].
func ClampInt(x, lo, hi int) int {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// RoundTo rounds half to even at the given number of decimals.
func RoundTo(x float64, decimals int) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return x
	}
	p := math.Pow(10, float64(decimals))
	return math.RoundToEven(x*p) / p
}

// RoundInt rounds half to even and converts to int.
func RoundInt(x float64) int {
	return int(math.RoundToEven(x))
}

// Or returns x unless it is NaN, in which case fallback.
func Or(x, fallback float64) float64 {
	if math.IsNaN(x) {
		return fallback
	}
	return x
}

// Last returns the last n elements of xs (all of them if shorter).
func Last(xs []float64, n int) []float64 {
	if len(xs) <= n {
		return xs
	}
	return xs[len(xs)-n:]
}

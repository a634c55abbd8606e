package indicators

import "math"

// Polarity maps x to -1, 0 or +1. Missing stays missing.
func Polarity(x float64) float64 {
	switch {
	case math.IsNaN(x):
		return x
	case x > 0:
		return 1
	case x < 0:
		return -1
	default:
		return 0
	}
}

// CrossoverPolarity is Polarity(diff[t]*diff[t-1]): -1 when the two lines behind diff
// swapped order at t, +1 when they did not, 0 when either bar touches exactly.
// The first value is missing.
func CrossoverPolarity(diff []float64) []float64 {
	out := nanSeries(len(diff))
	for i := 1; i < len(diff); i++ {
		out[i] = Polarity(diff[i] * diff[i-1])
	}
	return out
}

// Diff is a-b element-wise.
func Diff(a, b []float64) []float64 {
	out := nanSeries(len(a))
	for i := range out {
		if i < len(b) {
			out[i] = a[i] - b[i]
		}
	}
	return out
}

package indicators

import "math"

// EWM is an exponentially weighted mean with alpha = 2/(span+1) and no bias adjustment:
// m[0] = x[0], m[t] = alpha*x[t] + (1-alpha)*m[t-1].
// The recursion starts at the first non-missing value. A missing input repeats the previous
// mean, but the old mean keeps decaying across the gap, so the next value weighs
// alpha / (alpha + (1-alpha)^(gap+1)).
func EWM(series []float64, span int) []float64 {
	out := nanSeries(len(series))
	if span < 1 {
		return out
	}
	alpha := 2.0 / float64(span+1)
	started := false
	mean, oldWt := 0.0, 1.0
	for i, x := range series {
		if !started {
			if math.IsNaN(x) {
				continue
			}
			mean, started = x, true
			out[i] = mean
			continue
		}
		oldWt *= 1 - alpha
		if !math.IsNaN(x) {
			mean = (oldWt*mean + alpha*x) / (oldWt + alpha)
			oldWt = 1
		}
		out[i] = mean
	}
	return out
}

// RMI is the relative momentum index in its charting-platform form: momentum over
// momentumPeriod bars is split into up and down parts, each smoothed with EWM(timePeriod),
// and RMI = 100*up/(up+down).
//
// The first timePeriod+momentumPeriod-1 values are always missing. The EWM recursion yields
// numbers there, but they come from an incomplete window.
func RMI(close []float64, timePeriod, momentumPeriod int) []float64 {
	n := len(close)
	if timePeriod < 1 || momentumPeriod < 1 {
		return nanSeries(n)
	}
	up := nanSeries(n)
	down := nanSeries(n)
	for i := momentumPeriod; i < n; i++ {
		m := close[i] - close[i-momentumPeriod]
		if math.IsNaN(m) {
			continue
		}
		up[i] = math.Max(m, 0)
		down[i] = math.Max(-m, 0)
	}
	eu := EWM(up, timePeriod)
	ed := EWM(down, timePeriod)

	out := nanSeries(n)
	for i := range out {
		total := eu[i] + ed[i]
		if math.IsNaN(total) || total == 0 {
			continue
		}
		out[i] = 100 * eu[i] / total
	}
	return mask(out, timePeriod+momentumPeriod-1)
}

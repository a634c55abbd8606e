package indicators

import "math"

// RollingMax is the trailing maximum over window values; missing until the window is full
// and whenever the window holds a missing value.
func RollingMax(series []float64, window int) []float64 {
	return rolling(series, window, math.Max)
}

// RollingMin is the trailing minimum, see RollingMax.
func RollingMin(series []float64, window int) []float64 {
	return rolling(series, window, math.Min)
}

func rolling(series []float64, window int, pick func(a, b float64) float64) []float64 {
	out := nanSeries(len(series))
	if window < 1 {
		return out
	}
	for i := window - 1; i < len(series); i++ {
		acc := series[i-window+1]
		for j := i - window + 2; j <= i; j++ {
			acc = pick(acc, series[j])
		}
		// math.Max/Min propagate NaN, so a gap anywhere in the window yields NaN.
		out[i] = acc
	}
	return out
}

// Shift moves values by k positions: k > 0 lags (out[i] = x[i-k]), k < 0 leads (out[i] = x[i-k]
// with i-k in the future). Vacated positions are missing.
func Shift(series []float64, k int) []float64 {
	n := len(series)
	out := nanSeries(n)
	for i := range out {
		j := i - k
		if j >= 0 && j < n {
			out[i] = series[j]
		}
	}
	return out
}

// PctDistance is (a-b)/b*100, element-wise.
func PctDistance(a, b []float64) []float64 {
	out := nanSeries(len(a))
	for i := range out {
		if i >= len(b) || b[i] == 0 {
			continue
		}
		out[i] = (a[i] - b[i]) / b[i] * 100
	}
	return out
}

// Ratio is a/b, element-wise; a zero denominator gives a missing value.
func Ratio(a, b []float64) []float64 {
	out := nanSeries(len(a))
	for i := range out {
		if i >= len(b) || b[i] == 0 {
			continue
		}
		out[i] = a[i] / b[i]
	}
	return out
}

// PctChange is the one-step relative change x[t]/x[t-1]-1.
func PctChange(series []float64) []float64 {
	out := nanSeries(len(series))
	for i := 1; i < len(series); i++ {
		prev := series[i-1]
		if prev == 0 {
			continue
		}
		out[i] = series[i]/prev - 1
	}
	return out
}

// LogReturns computes r_t = ln(x_t / x_{t-1}); non-positive prices give a missing value.
func LogReturns(series []float64) []float64 {
	out := nanSeries(len(series))
	for i := 1; i < len(series); i++ {
		prev, cur := series[i-1], series[i]
		if prev <= 0 || cur <= 0 {
			continue
		}
		out[i] = math.Log(cur / prev)
	}
	return out
}

// RealizedVolatility is the rolling sample standard deviation of log returns over window,
// annualised with periodsPerYear.
func RealizedVolatility(logReturns []float64, window int, periodsPerYear float64) []float64 {
	out := nanSeries(len(logReturns))
	if window < 2 {
		return out
	}
	for i := window - 1; i < len(logReturns); i++ {
		sum, sum2 := 0.0, 0.0
		ok := true
		for j := i - window + 1; j <= i; j++ {
			r := logReturns[j]
			if math.IsNaN(r) {
				ok = false
				break
			}
			sum += r
			sum2 += r * r
		}
		if !ok {
			continue
		}
		n := float64(window)
		mean := sum / n
		variance := (sum2 - n*mean*mean) / (n - 1)
		if variance < 0 {
			variance = 0
		}
		out[i] = math.Sqrt(variance * periodsPerYear)
	}
	return out
}

// TradingDaysPerYear annualises daily series.
const TradingDaysPerYear = 252.0

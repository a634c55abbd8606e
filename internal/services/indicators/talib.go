// Package indicators implements the technical indicators used to build feature panels.
//
// Every function takes and returns []float64 aligned with its input. NaN marks a missing
// value: rolling outputs stay NaN until their window has filled and nothing is forward-filled.
package indicators

import (
	"math"

	talib "github.com/markcheno/go-talib"
)

// MACDResult holds the three aligned MACD series.
type MACDResult struct {
	Line   []float64
	Signal []float64
	Hist   []float64
}

// SMA is the trailing arithmetic mean over window observations. A missing input blanks every
// window that contains it; the mean resumes once window valid values follow the gap.
func SMA(series []float64, window int) []float64 {
	out := nanSeries(len(series))
	for _, r := range validRuns(series) {
		copy(out[r.from:r.to], sma(series[r.from:r.to], window))
	}
	return out
}

func sma(series []float64, window int) []float64 {
	if window < 1 || len(series) < window {
		return nanSeries(len(series))
	}
	return mask(talib.Sma(series, window), window-1)
}

// RSI is Wilder's relative strength index. After a missing close the smoothing restarts and
// the first period values of the new run are missing again.
func RSI(close []float64, period int) []float64 {
	out := nanSeries(len(close))
	for _, r := range validRuns(close) {
		copy(out[r.from:r.to], rsi(close[r.from:r.to], period))
	}
	return out
}

func rsi(close []float64, period int) []float64 {
	if period < 2 || len(close) <= period {
		return nanSeries(len(close))
	}
	return mask(talib.Rsi(close, period), period)
}

// MACD returns the line, signal and histogram series. The first slow+signal-2 values of
// every run of valid closes are missing.
func MACD(close []float64, fast, slow, signal int) MACDResult {
	n := len(close)
	res := MACDResult{Line: nanSeries(n), Signal: nanSeries(n), Hist: nanSeries(n)}
	for _, r := range validRuns(close) {
		part := macd(close[r.from:r.to], fast, slow, signal)
		copy(res.Line[r.from:r.to], part.Line)
		copy(res.Signal[r.from:r.to], part.Signal)
		copy(res.Hist[r.from:r.to], part.Hist)
	}
	return res
}

func macd(close []float64, fast, slow, signal int) MACDResult {
	if slow < fast {
		fast, slow = slow, fast
	}
	lookback := slow - 1 + signal - 1
	n := len(close)
	if fast < 1 || signal < 1 || n <= lookback {
		return MACDResult{Line: nanSeries(n), Signal: nanSeries(n), Hist: nanSeries(n)}
	}
	line, sig, hist := talib.Macd(close, fast, slow, signal)
	return MACDResult{
		Line:   mask(line, lookback),
		Signal: mask(sig, lookback),
		Hist:   mask(hist, lookback),
	}
}

// MFI is the money flow index. A row missing any of its four inputs splits the series.
func MFI(high, low, close, volume []float64, period int) []float64 {
	n := len(close)
	out := nanSeries(n)
	if len(high) != n || len(low) != n || len(volume) != n {
		return out
	}
	for _, r := range validRuns(high, low, close, volume) {
		copy(out[r.from:r.to], mfi(high[r.from:r.to], low[r.from:r.to], close[r.from:r.to], volume[r.from:r.to], period))
	}
	return out
}

func mfi(high, low, close, volume []float64, period int) []float64 {
	if period < 2 || len(close) <= period {
		return nanSeries(len(close))
	}
	return mask(talib.Mfi(high, low, close, volume, period), period)
}

// run is a half-open index range [from, to).
type run struct{ from, to int }

// validRuns returns the maximal ranges where every series holds a value. TA-Lib's running
// sums never recover from a NaN, so each range is computed on its own.
func validRuns(series ...[]float64) []run {
	if len(series) == 0 {
		return nil
	}
	var out []run
	start := -1
	for i := range series[0] {
		ok := true
		for _, s := range series {
			if math.IsNaN(s[i]) {
				ok = false
				break
			}
		}
		switch {
		case ok && start < 0:
			start = i
		case !ok && start >= 0:
			out = append(out, run{start, i})
			start = -1
		}
	}
	if start >= 0 {
		out = append(out, run{start, len(series[0])})
	}
	return out
}

// mask overwrites the first n values, which TA-Lib leaves as zeros, with NaN.
func mask(xs []float64, n int) []float64 {
	for i := 0; i < n && i < len(xs); i++ {
		xs[i] = math.NaN()
	}
	return xs
}

func nanSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

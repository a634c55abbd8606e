package panel

import (
	"fmt"
	"time"

	"FinPanel/internal/domain/models"
	"FinPanel/internal/services/indicators"
)

// Options controls which features a panel carries. The zero value is not useful; start from DefaultOptions.
type Options struct {
	Location *time.Location

	SMAWindows     []int
	RSIPeriod      int
	MFIPeriod      int
	RMITimePeriod  int
	RMIMomentum    int
	MACDFast       int
	MACDSlow       int
	MACDSignal     int
	Ichimoku       indicators.IchimokuParams
	HighLowWindows []int

	// LagColumns get LagSteps shifted copies, LagStep rows apart.
	LagColumns []string
	LagSteps   int
	LagStep    int

	// Future appends Ichimoku.Base business days so the leading spans reach past the last bar.
	Future bool

	// Benchmark frame settings.
	BenchmarkSMA       int
	BenchmarkVolWindow int
}

// DefaultHighLowWindows is weekly steps from 7 to 364 days.
func DefaultHighLowWindows() []int {
	out := make([]int, 0, 52)
	for d := 7; d <= 364; d += 7 {
		out = append(out, d)
	}
	return out
}

// DefaultOptions returns the standard feature set anchored in ExchangeTimezone.
func DefaultOptions() Options {
	loc, err := LoadLocation(ExchangeTimezone)
	if err != nil {
		loc = time.UTC
	}
	return Options{
		Location:           loc,
		SMAWindows:         []int{20, 50, 200},
		RSIPeriod:          14,
		MFIPeriod:          14,
		RMITimePeriod:      14,
		RMIMomentum:        5,
		MACDFast:           12,
		MACDSlow:           26,
		MACDSignal:         9,
		Ichimoku:           indicators.DefaultIchimoku,
		HighLowWindows:     DefaultHighLowWindows(),
		LagStep:            1,
		BenchmarkSMA:       50,
		BenchmarkVolWindow: 21,
	}
}

// Validate rejects option sets that cannot produce a panel.
func (o Options) Validate() error {
	if o.Location == nil {
		return fmt.Errorf("panel options: location is required")
	}
	for _, w := range o.SMAWindows {
		if w < 1 {
			return fmt.Errorf("panel options: sma window %d", w)
		}
	}
	for _, w := range o.HighLowWindows {
		if w < 1 {
			return fmt.Errorf("panel options: high/low window %d", w)
		}
	}
	if o.Ichimoku.Conversion < 1 || o.Ichimoku.Base < 1 || o.Ichimoku.SpanB < 1 {
		return fmt.Errorf("panel options: ichimoku periods %+v", o.Ichimoku)
	}
	if o.LagSteps < 0 || (o.LagSteps > 0 && o.LagStep < 1) {
		return fmt.Errorf("panel options: lag steps %d step %d", o.LagSteps, o.LagStep)
	}
	return nil
}

// IchimokuColumns names the cloud columns for the configured periods.
func (o Options) IchimokuColumns() models.IchimokuColumns {
	return models.NewIchimokuColumns(o.Ichimoku.Conversion, o.Ichimoku.Base, o.Ichimoku.SpanB)
}

// Column names derived from options.

func SMAColumn(window int) string { return fmt.Sprintf("sma_%d", window) }
func RSIColumn(period int) string { return fmt.Sprintf("rsi_%d", period) }
func MFIColumn(period int) string { return fmt.Sprintf("mfi_%d", period) }

func RMIColumn(timePeriod, momentum int) string {
	return fmt.Sprintf("rmi_%d_%d", timePeriod, momentum)
}

func MACDColumns(fast, slow, signal int) (line, sig, hist string) {
	s := fmt.Sprintf("%d_%d_%d", fast, slow, signal)
	return "macd_" + s, "macd_signal_" + s, "macd_hist_" + s
}

func CloseToHighColumn(days int) string { return fmt.Sprintf("close_to_high_%d", days) }
func CloseToLowColumn(days int) string  { return fmt.Sprintf("close_to_low_%d", days) }

// LagColumn names the copy of col shifted by k rows.
func LagColumn(col string, k int) string { return fmt.Sprintf("%s_lag_%d", col, k) }

// Cloud distance columns.
const (
	ColPctCloseConversion = "pct_close_ic_conversion"
	ColPctCloseBase       = "pct_close_ic_base"
	ColPctCloseSpanA      = "pct_close_ic_span_a"
	ColPctCloseSpanB      = "pct_close_ic_span_b"
	ColPctConversionBase  = "pct_ic_conversion_ic_base"
)

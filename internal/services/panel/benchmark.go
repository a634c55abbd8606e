package panel

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"FinPanel/internal/domain/models"
	"FinPanel/internal/services/indicators"
)

// DefaultBenchmarks are the reference indices joined into every instrument panel.
var DefaultBenchmarks = []string{"SPY", "QQQ", "DIA", "IWM"}

// BuildBenchmark computes per-index features and outer-joins them on anchored dates.
// The result is shared by every instrument build and must not be modified afterwards.
func BuildBenchmark(indices map[string][]models.AdjustedBar, opts Options) (*models.Panel, error) {
	if len(indices) == 0 {
		return nil, errors.New("benchmark: no index histories")
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	symbols := make([]string, 0, len(indices))
	for s := range indices {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)

	frames := make([]*models.Panel, 0, len(symbols))
	seen := make(map[int64]time.Time)
	for _, sym := range symbols {
		f, err := benchmarkFrame(sym, indices[sym], opts)
		if err != nil {
			return nil, err
		}
		for _, d := range f.Dates() {
			seen[d.Unix()] = d
		}
		frames = append(frames, f)
	}

	dates := make([]time.Time, 0, len(seen))
	for _, d := range seen {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	out := models.NewPanel(dates)
	for _, f := range frames {
		if _, err := out.LeftJoin(f); err != nil {
			return nil, fmt.Errorf("benchmark: %w", err)
		}
	}
	return out, nil
}

func benchmarkFrame(sym string, bars []models.AdjustedBar, opts Options) (*models.Panel, error) {
	if len(bars) == 0 {
		return nil, fmt.Errorf("benchmark %s: no bars", sym)
	}
	p, err := rawPanel(bars, opts.Location)
	if err != nil {
		return nil, fmt.Errorf("benchmark %s: %w", sym, err)
	}
	high, _ := p.Col(models.ColHigh)
	low, _ := p.Col(models.ColLow)
	close, _ := p.Col(models.ColClose)

	prefix := strings.ToLower(sym) + "_"
	out := models.NewPanel(p.Dates())
	_, _, hist := MACDColumns(opts.MACDFast, opts.MACDSlow, opts.MACDSignal)
	cloud := indicators.Ichimoku(high, low, close, false, opts.Ichimoku)

	out.Set(prefix+"close_pct_change", indicators.PctChange(close))
	out.Set(prefix+RSIColumn(opts.RSIPeriod), indicators.RSI(close, opts.RSIPeriod))
	out.Set(prefix+hist, indicators.MACD(close, opts.MACDFast, opts.MACDSlow, opts.MACDSignal).Hist)
	out.Set(prefix+fmt.Sprintf("pct_close_sma_%d", opts.BenchmarkSMA),
		indicators.PctDistance(close, indicators.SMA(close, opts.BenchmarkSMA)))
	out.Set(prefix+ColPctCloseSpanA, indicators.PctDistance(close, cloud.SpanA))
	out.Set(prefix+ColPctCloseSpanB, indicators.PctDistance(close, cloud.SpanB))
	if opts.BenchmarkVolWindow > 1 {
		out.Set(prefix+fmt.Sprintf("realized_vol_%d", opts.BenchmarkVolWindow),
			indicators.RealizedVolatility(indicators.LogReturns(close), opts.BenchmarkVolWindow, indicators.TradingDaysPerYear))
	}
	return out, nil
}

// Package panel turns one instrument's adjusted history and corporate events into a
// date-indexed feature panel.
package panel

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"FinPanel/internal/domain/models"
	"FinPanel/internal/services/adjust"
	"FinPanel/internal/services/indicators"
)

var (
	// ErrNoEvents means the instrument has no earnings events to measure from.
	ErrNoEvents = errors.New("no earnings events")
	// ErrNoBenchmarkOverlap means no instrument date matched a benchmark date.
	ErrNoBenchmarkOverlap = errors.New("no overlap with benchmark dates")
)

// Input is everything needed to build one instrument panel.
type Input struct {
	Instrument models.Instrument
	Bars       []models.AdjustedBar
	Events     []models.Event
}

// Builder builds instrument panels against a shared benchmark frame.
type Builder struct {
	opts      Options
	benchmark *models.Panel
}

// NewBuilder returns a Builder. A nil benchmark disables the benchmark join.
func NewBuilder(benchmark *models.Panel, opts Options) (*Builder, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Builder{opts: opts, benchmark: benchmark}, nil
}

// Options returns the builder configuration.
func (b *Builder) Options() Options { return b.opts }

// Build assembles the panel. It is safe to call concurrently.
func (b *Builder) Build(in Input) (*models.Panel, error) {
	if len(in.Bars) == 0 {
		return nil, adjust.ErrEmptyHistory
	}
	earnings, err := earningsDates(in.Events, b.opts.Location)
	if err != nil {
		return nil, err
	}
	if len(earnings) == 0 {
		return nil, ErrNoEvents
	}

	p, err := rawPanel(in.Bars, b.opts.Location)
	if err != nil {
		return nil, err
	}

	if b.benchmark != nil {
		matched, err := p.LeftJoin(b.benchmark)
		if err != nil {
			return nil, err
		}
		if matched == 0 {
			return nil, ErrNoBenchmarkOverlap
		}
	}

	p.Set(models.ColDaysSinceEarnings, daysSince(p.Dates(), earnings))
	b.addIndicators(p)
	b.addHighLow(p)

	if b.opts.Future {
		dates := p.Dates()
		p.Extend(NextBusinessDays(dates[len(dates)-1], b.opts.Ichimoku.Base))
	}
	if err := b.addCloud(p); err != nil {
		return nil, err
	}

	p.Set(models.ColMonth, months(p.Dates()))
	p.FillLabel(models.ColSector, in.Instrument.Sector)

	if err := b.addLags(p); err != nil {
		return nil, err
	}
	return p, nil
}

// rawPanel anchors and sorts bars and lays out the price columns.
func rawPanel(bars []models.AdjustedBar, loc *time.Location) (*models.Panel, error) {
	sorted := make([]models.AdjustedBar, len(bars))
	copy(sorted, bars)
	for i := range sorted {
		sorted[i].Date = Anchor(sorted[i].Date, loc)
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	dates := make([]time.Time, len(sorted))
	n := len(sorted)
	open, high, low, close := make([]float64, n), make([]float64, n), make([]float64, n), make([]float64, n)
	volume, adjClose, dividend, factor := make([]float64, n), make([]float64, n), make([]float64, n), make([]float64, n)
	for i, bar := range sorted {
		if i > 0 && bar.Date.Equal(dates[i-1]) {
			return nil, fmt.Errorf("duplicate bar on %s", bar.Date.Format("2006-01-02"))
		}
		dates[i] = bar.Date
		open[i], high[i], low[i], close[i] = bar.Open, bar.High, bar.Low, bar.Close
		volume[i], adjClose[i] = bar.Volume, bar.AdjustedClose
		dividend[i], factor[i] = bar.DividendAmount, bar.SplitFactor
	}

	p := models.NewPanel(dates)
	p.Set(models.ColOpen, open)
	p.Set(models.ColHigh, high)
	p.Set(models.ColLow, low)
	p.Set(models.ColClose, close)
	p.Set(models.ColVolume, volume)
	p.Set(models.ColAdjustedClose, adjClose)
	p.Set(models.ColDividendAmount, dividend)
	p.Set(models.ColSplitFactor, factor)
	return p, nil
}

func earningsDates(events []models.Event, loc *time.Location) ([]time.Time, error) {
	var out []time.Time
	for _, e := range events {
		if err := e.Validate(); err != nil {
			return nil, err
		}
		if e.Kind == models.EventEarnings {
			out = append(out, AnchorInstant(e.Timestamp, loc))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out, nil
}

// daysSince counts trading rows since the latest earnings date on or before each row:
// 0 on the event day, 1 on the next row. Rows before the first event are missing.
// An event on a non-trading day counts from the next row; one before the first row is
// offset by the weekdays in between.
func daysSince(dates []time.Time, events []time.Time) []float64 {
	out := make([]float64, len(dates))
	next := 0
	eventRow := 0
	have := false
	for i, d := range dates {
		advanced := false
		var last time.Time
		for next < len(events) && !events[next].After(d) {
			last = events[next]
			next++
			advanced = true
		}
		if advanced {
			have = true
			eventRow = i
			if i == 0 && last.Before(d) {
				eventRow = -businessDaysBetween(last, d)
			}
		}
		if !have {
			out[i] = math.NaN()
			continue
		}
		out[i] = float64(i - eventRow)
	}
	return out
}

func months(dates []time.Time) []float64 {
	out := make([]float64, len(dates))
	for i, d := range dates {
		out[i] = float64(d.Month())
	}
	return out
}

func (b *Builder) addIndicators(p *models.Panel) {
	o := b.opts
	high, _ := p.Col(models.ColHigh)
	low, _ := p.Col(models.ColLow)
	close, _ := p.Col(models.ColClose)
	volume, _ := p.Col(models.ColVolume)

	for _, w := range o.SMAWindows {
		p.Set(SMAColumn(w), indicators.SMA(close, w))
	}
	p.Set(RSIColumn(o.RSIPeriod), indicators.RSI(close, o.RSIPeriod))
	p.Set(MFIColumn(o.MFIPeriod), indicators.MFI(high, low, close, volume, o.MFIPeriod))
	p.Set(RMIColumn(o.RMITimePeriod, o.RMIMomentum), indicators.RMI(close, o.RMITimePeriod, o.RMIMomentum))

	macd := indicators.MACD(close, o.MACDFast, o.MACDSlow, o.MACDSignal)
	line, sig, hist := MACDColumns(o.MACDFast, o.MACDSlow, o.MACDSignal)
	p.Set(line, macd.Line)
	p.Set(sig, macd.Signal)
	p.Set(hist, macd.Hist)
}

func (b *Builder) addHighLow(p *models.Panel) {
	high, _ := p.Col(models.ColHigh)
	low, _ := p.Col(models.ColLow)
	close, _ := p.Col(models.ColClose)
	for _, d := range b.opts.HighLowWindows {
		p.Set(CloseToHighColumn(d), indicators.Ratio(close, indicators.RollingMax(high, d)))
		p.Set(CloseToLowColumn(d), indicators.Ratio(close, indicators.RollingMin(low, d)))
	}
}

// addCloud adds the Ichimoku lines and distances. In future mode the panel has already been
// extended, so the cloud is computed over the real bars only and its padding lines up with the
// appended rows.
func (b *Builder) addCloud(p *models.Panel) error {
	high, _ := p.Col(models.ColHigh)
	low, _ := p.Col(models.ColLow)
	close, _ := p.Col(models.ColClose)
	if b.opts.Future {
		n := p.Len() - b.opts.Ichimoku.Base
		high, low, close = high[:n], low[:n], close[:n]
	}
	cloud := indicators.Ichimoku(high, low, close, b.opts.Future, b.opts.Ichimoku)
	if cloud.Len() != p.Len() {
		return fmt.Errorf("ichimoku produced %d rows for a %d row panel", cloud.Len(), p.Len())
	}

	cols := b.opts.IchimokuColumns()
	p.Set(cols.Conversion, cloud.Conversion)
	p.Set(cols.Base, cloud.Base)
	p.Set(cols.SpanA, cloud.SpanA)
	p.Set(cols.SpanB, cloud.SpanB)

	full, _ := p.Col(models.ColClose)
	p.Set(ColPctCloseConversion, indicators.PctDistance(full, cloud.Conversion))
	p.Set(ColPctCloseBase, indicators.PctDistance(full, cloud.Base))
	p.Set(ColPctCloseSpanA, indicators.PctDistance(full, cloud.SpanA))
	p.Set(ColPctCloseSpanB, indicators.PctDistance(full, cloud.SpanB))
	p.Set(ColPctConversionBase, indicators.PctDistance(cloud.Conversion, cloud.Base))
	return nil
}

func (b *Builder) addLags(p *models.Panel) error {
	if b.opts.LagSteps == 0 {
		return nil
	}
	for _, col := range b.opts.LagColumns {
		vals, ok := p.Col(col)
		if !ok {
			return fmt.Errorf("lag column %q is not in the panel", col)
		}
		for k := 1; k <= b.opts.LagSteps; k++ {
			shift := k * b.opts.LagStep
			p.Set(LagColumn(col, shift), indicators.Shift(vals, shift))
		}
	}
	return nil
}

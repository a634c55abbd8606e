package indicators

import "math"

// IchimokuParams are the cloud periods.
type IchimokuParams struct {
	Conversion int
	Base       int
	SpanB      int
}

// DefaultIchimoku is the usual 9/26/52 configuration.
var DefaultIchimoku = IchimokuParams{Conversion: 9, Base: 26, SpanB: 52}

// IchimokuResult holds the cloud lines, all of equal length.
// Lagging is close shifted backward by Base, so each value is only known Base bars later.
type IchimokuResult struct {
	Conversion []float64
	Base       []float64
	SpanA      []float64
	SpanB      []float64
	Lagging    []float64
}

// Len returns the number of rows in the result.
func (r IchimokuResult) Len() int { return len(r.Conversion) }

// Ichimoku computes the cloud. With future set, Base blank rows are appended before computing,
// so the forward-shifted spans extend past the last bar while the price-derived lines stay
// missing on the appended rows. No price data is fabricated for those rows.
func Ichimoku(high, low, close []float64, future bool, p IchimokuParams) IchimokuResult {
	if future {
		high = padNaN(high, p.Base)
		low = padNaN(low, p.Base)
		close = padNaN(close, p.Base)
	}
	conversion := midpoint(high, low, p.Conversion)
	base := midpoint(high, low, p.Base)

	avg := make([]float64, len(conversion))
	for i := range avg {
		avg[i] = (conversion[i] + base[i]) / 2
	}

	return IchimokuResult{
		Conversion: conversion,
		Base:       base,
		SpanA:      Shift(avg, p.Base),
		SpanB:      Shift(midpoint(high, low, p.SpanB), p.Base),
		Lagging:    Shift(close, -p.Base),
	}
}

func midpoint(high, low []float64, window int) []float64 {
	hi := RollingMax(high, window)
	lo := RollingMin(low, window)
	out := make([]float64, len(hi))
	for i := range out {
		out[i] = (hi[i] + lo[i]) / 2
	}
	return out
}

func padNaN(xs []float64, n int) []float64 {
	out := make([]float64, len(xs), len(xs)+n)
	copy(out, xs)
	for i := 0; i < n; i++ {
		out = append(out, math.NaN())
	}
	return out
}

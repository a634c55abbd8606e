package models

import "time"

// PriceBar is one daily OHLCV record as delivered by the price provider.
type PriceBar struct {
	Symbol           string
	Date             time.Time
	Open             float64
	High             float64
	Low              float64
	Close            float64
	AdjustedClose    float64
	Volume           float64
	DividendAmount   float64
	SplitCoefficient float64
}

// AdjustedBar is a PriceBar rescaled for splits that happened after its date.
// SplitFactor is the cumulative product of later split coefficients (1 for the latest bar).
type AdjustedBar struct {
	PriceBar
	SplitFactor float64
}

// Instrument describes a tradable symbol from the reference table.
type Instrument struct {
	Symbol   string
	Company  string
	Sector   string
	Industry string
	Indices  []string // e.g. "s_and_p_500", "nasdaq_100", "djia"
}

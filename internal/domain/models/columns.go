package models

import "fmt"

// Panel column names shared across the pipeline.
const (
	ColOpen           = "open"
	ColHigh           = "high"
	ColLow            = "low"
	ColClose          = "close"
	ColVolume         = "volume"
	ColAdjustedClose  = "adjusted_close"
	ColDividendAmount = "dividend_amount"
	ColSplitFactor    = "split_factor"

	ColDaysSinceEarnings = "days_since_earnings"
	ColMonth             = "month"

	ColSymbol = "symbol"
	ColSector = "sector"
)

// IchimokuSuffix is appended to cloud column names, e.g. ic_base_9_26_52.
func IchimokuSuffix(conversion, base, spanB int) string {
	return fmt.Sprintf("%d_%d_%d", conversion, base, spanB)
}

// IchimokuColumns names the four cloud lines kept in a panel.
type IchimokuColumns struct {
	Conversion string
	Base       string
	SpanA      string
	SpanB      string
}

// NewIchimokuColumns returns the column names for the given periods.
func NewIchimokuColumns(conversion, base, spanB int) IchimokuColumns {
	s := IchimokuSuffix(conversion, base, spanB)
	return IchimokuColumns{
		Conversion: "ic_conversion_" + s,
		Base:       "ic_base_" + s,
		SpanA:      "ic_span_a_" + s,
		SpanB:      "ic_span_b_" + s,
	}
}

// DefaultIchimokuColumns uses the 9/26/52 periods.
var DefaultIchimokuColumns = NewIchimokuColumns(9, 26, 52)

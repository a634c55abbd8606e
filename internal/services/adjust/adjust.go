// Package adjust rescales raw daily bars for stock splits so that price series are continuous.
package adjust

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"FinPanel/internal/domain/models"
)

// ErrEmptyHistory is returned when an instrument has no bars to adjust.
var ErrEmptyHistory = errors.New("empty price history")

type options struct {
	providerAdjustedClose bool
}

// Option configures Adjust.
type Option func(*options)

// WithProviderAdjustedClose replaces the split-adjusted close with the provider's adjusted close
// whenever it is positive, and rescales open/high/low by the same ratio. This makes the series
// dividend-aware as well as split-aware.
func WithProviderAdjustedClose() Option {
	return func(o *options) { o.providerAdjustedClose = true }
}

// Adjust divides OHLC by the cumulative coefficient of all splits strictly after each bar and
// multiplies volume by it. The latest bar keeps factor 1 and a split day is not adjusted by its own
// coefficient. Input order does not matter; output is ascending by date.
func Adjust(bars []models.PriceBar, opts ...Option) ([]models.AdjustedBar, error) {
	if len(bars) == 0 {
		return nil, ErrEmptyHistory
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	sorted := make([]models.PriceBar, len(bars))
	copy(sorted, bars)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date.After(sorted[j].Date) })

	out := make([]models.AdjustedBar, len(sorted))
	logSum := 0.0
	for i, b := range sorted {
		if i > 0 && b.Date.Equal(sorted[i-1].Date) {
			return nil, fmt.Errorf("adjust %s: duplicate bar on %s", b.Symbol, b.Date.Format("2006-01-02"))
		}
		coef := b.SplitCoefficient
		if math.IsNaN(coef) || coef <= 0 {
			return nil, fmt.Errorf("adjust %s: invalid split coefficient %v on %s", b.Symbol, b.SplitCoefficient, b.Date.Format("2006-01-02"))
		}

		factor := math.Exp(logSum)
		a := models.AdjustedBar{PriceBar: b, SplitFactor: factor}
		a.Open = b.Open / factor
		a.High = b.High / factor
		a.Low = b.Low / factor
		a.Close = b.Close / factor
		a.Volume = b.Volume * factor
		if o.providerAdjustedClose && b.AdjustedClose > 0 && b.Close > 0 {
			ratio := b.AdjustedClose / b.Close
			a.Open = b.Open * ratio
			a.High = b.High * ratio
			a.Low = b.Low * ratio
			a.Close = b.AdjustedClose
		}
		// fill from the most recent bar backwards
		out[len(sorted)-1-i] = a

		// this bar's split applies to everything before it
		logSum += math.Log(coef)
	}
	return out, nil
}

// Closes extracts the close series.
func Closes(bars []models.AdjustedBar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}

package split

import (
	"math"
	"testing"

	"FinPanel/internal/domain/models"
	"FinPanel/internal/services/adjust"
	"FinPanel/internal/services/labeling"
	"FinPanel/internal/services/panel"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	e2eRows     = 300
	e2eSplitRow = 150
	e2eEarnRow  = 200
	e2eHorizon  = 10
)

// syntheticHistory returns 300 weekday bars whose true price is smooth; bars before the
// 2:1 split on row 150 are quoted at twice the post-split price.
func syntheticHistory(t *testing.T) ([]models.PriceBar, []float64) {
	t.Helper()
	loc, err := panel.LoadLocation(panel.ExchangeTimezone)
	require.NoError(t, err)

	d := panel.Anchor(day0, loc)
	truth := make([]float64, e2eRows)
	bars := make([]models.PriceBar, e2eRows)
	for i := range bars {
		truth[i] = 50 + 8*math.Sin(float64(i)/9) + 2*math.Cos(float64(i)/4) + float64(i)*0.02
		scale := 1.0
		if i < e2eSplitRow {
			scale = 2
		}
		c := truth[i] * scale
		bars[i] = models.PriceBar{
			Symbol:           "SYN",
			Date:             d,
			Open:             c * 0.995,
			High:             c * 1.01,
			Low:              c * 0.99,
			Close:            c,
			AdjustedClose:    truth[i],
			Volume:           1e6 / scale,
			SplitCoefficient: 1,
		}
		if i == e2eSplitRow {
			bars[i].SplitCoefficient = 2
		}
		d = panel.NextBusinessDays(d, 1)[0]
	}
	return bars, truth
}

func TestEndToEndSyntheticHistory(t *testing.T) {
	raw, truth := syntheticHistory(t)

	adjusted, err := adjust.Adjust(raw)
	require.NoError(t, err)
	for i, b := range adjusted {
		require.InDelta(t, truth[i], b.Close, 1e-9, "row %d", i)
	}

	opts := panel.DefaultOptions()
	opts.SMAWindows = []int{5, 10}
	opts.HighLowWindows = []int{7, 14}
	builder, err := panel.NewBuilder(nil, opts)
	require.NoError(t, err)

	earnings := models.NewEarnings("SYN", raw[e2eEarnRow].Date, models.EarningsPayload{FiscalPeriod: "2023Q4"})
	p, err := builder.Build(panel.Input{
		Instrument: models.Instrument{Symbol: "SYN", Sector: "Industrials"},
		Bars:       adjusted,
		Events:     []models.Event{earnings},
	})
	require.NoError(t, err)
	require.Equal(t, e2eRows, p.Len())

	close, _ := p.Col(models.ColClose)
	for i := 1; i < len(close); i++ {
		assert.Less(t, math.Abs(close[i]/close[i-1]-1), 0.05, "adjusted close jumps at row %d", i)
	}

	days, _ := p.Col(models.ColDaysSinceEarnings)
	assert.True(t, math.IsNaN(days[e2eEarnRow-1]))
	assert.Equal(t, 0.0, days[e2eEarnRow])
	for i := e2eEarnRow + 1; i < e2eRows; i++ {
		assert.Equal(t, float64(i-e2eEarnRow), days[i])
	}

	target := labeling.ForwardTarget(close, labeling.TargetSpec{Aggregation: labeling.AggMax, Horizon: e2eHorizon})
	for i := e2eRows - e2eHorizon; i < e2eRows; i++ {
		assert.True(t, math.IsNaN(target[i]), "row %d", i)
	}

	dates := p.Dates()
	res, err := Build(map[string]*models.Panel{"SYN": p}, Config{
		Target: labeling.TargetSpec{Aggregation: labeling.AggMax, Horizon: e2eHorizon},
		Cutoff: dates[260],
	})
	require.NoError(t, err)
	require.Equal(t, []string{"SYN"}, res.Processed)

	lastLabeled := dates[e2eRows-e2eHorizon-1]
	for _, part := range []*models.Panel{res.Train, res.Test} {
		for _, d := range part.Dates() {
			assert.False(t, d.After(lastLabeled), "unlabeled row %s leaked", d)
		}
		for _, name := range res.Features {
			col, _ := part.Col(name)
			for _, v := range col {
				assert.False(t, math.IsNaN(v), "missing %s", name)
			}
		}
	}
	// rows before the earnings event have no days_since_earnings
	assert.Equal(t, 260-e2eEarnRow, res.Train.Len())
	assert.Equal(t, e2eRows-e2eHorizon-260, res.Test.Len())
	assertChronological(t, res)
}

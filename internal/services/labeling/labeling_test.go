package labeling

import (
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	"FinPanel/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForwardTarget(t *testing.T) {
	close := []float64{10, 11, 9, 12, 10, 13}
	tests := []struct {
		agg  Aggregation
		want []float64
	}{
		{AggMax, []float64{0.1, 12.0/11 - 1, 12.0/9 - 1, 13.0/12 - 1}},
		{AggMin, []float64{-0.1, 9.0/11 - 1, 10.0/9 - 1, 10.0/12 - 1}},
		{AggMean, []float64{0.0, 10.5/11 - 1, 11.0/9 - 1, 11.5/12 - 1}},
		{AggLast, []float64{-0.1, 12.0/11 - 1, 10.0/9 - 1, 13.0/12 - 1}},
	}
	for _, tt := range tests {
		t.Run(string(tt.agg), func(t *testing.T) {
			out := ForwardTarget(close, TargetSpec{Aggregation: tt.agg, Horizon: 2})
			require.Len(t, out, len(close))
			for i, w := range tt.want {
				assert.InDelta(t, w, out[i], 1e-12, "row %d", i)
			}
			assert.True(t, math.IsNaN(out[4]))
			assert.True(t, math.IsNaN(out[5]))
		})
	}
}

func TestForwardTargetRequiresCompleteWindow(t *testing.T) {
	out := ForwardTarget([]float64{10, math.NaN(), 12, 13, 14}, TargetSpec{Aggregation: AggMax, Horizon: 2})
	assert.True(t, math.IsNaN(out[0]), "window holds a gap")
	assert.True(t, math.IsNaN(out[1]), "current close is missing")
	assert.InDelta(t, 14.0/12-1, out[2], 1e-12)
	assert.True(t, math.IsNaN(out[3]))
	assert.True(t, math.IsNaN(out[4]))
}

func TestTargetColumn(t *testing.T) {
	assert.Equal(t, "highest_close_next_20_days_percent", TargetSpec{Aggregation: AggMax, Horizon: 20}.Column())
	assert.Equal(t, "lowest_close_next_5_days_percent", TargetSpec{Aggregation: AggMin, Horizon: 5}.Column())

	agg, err := ParseAggregation("")
	require.NoError(t, err)
	assert.Equal(t, AggMax, agg)
	_, err = ParseAggregation("median")
	assert.Error(t, err)
	assert.Error(t, TargetSpec{Aggregation: AggMax}.Validate())
}

func TestMacKinnonP(t *testing.T) {
	assert.Equal(t, 1.0, MacKinnonP(3))
	assert.Equal(t, 0.0, MacKinnonP(-20))
	assert.InDelta(t, 0.0349, MacKinnonP(-3.0), 0.001)
	// both response surfaces meet at the switch point
	assert.InDelta(t, MacKinnonP(-1.6099999), MacKinnonP(-1.61), 0.002)
	assert.Less(t, MacKinnonP(-4), MacKinnonP(-2))
}

func TestADFStationarySeries(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	x := make([]float64, 400)
	for i := 1; i < len(x); i++ {
		x[i] = 0.3*x[i-1] + rng.NormFloat64()
	}
	res, err := ADF(x, ADFOptions{MaxLag: -1})
	require.NoError(t, err)
	assert.Less(t, res.PValue, 0.01)
	assert.LessOrEqual(t, res.UsedLag, 17)
	assert.Equal(t, len(x)-1-res.UsedLag, res.NObs)
}

func TestGate(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	noise := make([]float64, 300)
	explosive := make([]float64, 200)
	explosive[0] = 10
	for i := range noise {
		noise[i] = rng.NormFloat64()
	}
	for i := 1; i < len(explosive); i++ {
		explosive[i] = 1.02*explosive[i-1] + rng.NormFloat64()*0.1
	}
	noise[3] = math.NaN()

	g := Gate{Threshold: DefaultStationarityThreshold}
	res, err := g.Check(noise)
	require.NoError(t, err)
	assert.True(t, res.Stationary)

	res, err = g.Check(explosive)
	require.NoError(t, err)
	assert.False(t, res.Stationary)
	assert.Greater(t, res.PValue, 0.05)

	_, err = g.Check(make([]float64, 10))
	assert.True(t, errors.Is(err, ErrTooFewObservations))
}

func TestParseRule(t *testing.T) {
	for _, name := range []string{"bullish_cloud_crossover", "bearish_cloud_crossover", "cloud_crossover", "", "none"} {
		_, err := ParseRule(name)
		assert.NoError(t, err, name)
	}
	_, err := ParseRule("golden_cross")
	assert.True(t, errors.Is(err, ErrUnknownRule))
}

func signalPanel() *models.Panel {
	d := time.Date(2024, 1, 1, 16, 0, 0, 0, time.UTC)
	dates := make([]time.Time, 6)
	for i := range dates {
		dates[i] = d.AddDate(0, 0, i)
	}
	p := models.NewPanel(dates)
	nan := math.NaN()
	// conversion-base: -1, 1, 2, -2, 1, 1
	p.Set(models.ColClose, []float64{10, 12, 12, 5, 12, nan})
	p.Set(models.DefaultIchimokuColumns.Conversion, []float64{9, 11, 12, 8, 11, 11})
	p.Set(models.DefaultIchimokuColumns.Base, []float64{10, 10, 10, 10, 10, 10})
	p.Set(models.DefaultIchimokuColumns.SpanA, []float64{11, 11, 11, 11, nan, 11})
	p.Set(models.DefaultIchimokuColumns.SpanB, []float64{9, 9, 9, 9, 9, 9})
	return p
}

func TestSignalMask(t *testing.T) {
	p := signalPanel()
	cols := models.DefaultIchimokuColumns

	bull, err := SignalMask(p, RuleBullish, cols)
	require.NoError(t, err)
	assert.Equal(t, []bool{false, true, false, false, false, false}, bull)

	bear, err := SignalMask(p, RuleBearish, cols)
	require.NoError(t, err)
	assert.Equal(t, []bool{false, false, false, true, false, false}, bear)

	both, err := SignalMask(p, RuleCrossover, cols)
	require.NoError(t, err)
	assert.Equal(t, []bool{false, true, false, true, false, false}, both)

	filtered, err := Filter(p, RuleCrossover, cols)
	require.NoError(t, err)
	assert.Equal(t, 2, filtered.Len())

	all, err := Filter(p, RuleNone, cols)
	require.NoError(t, err)
	assert.Equal(t, p.Len(), all.Len())

	_, err = SignalMask(p, Rule("golden_cross"), cols)
	assert.True(t, errors.Is(err, ErrUnknownRule))

	p.Drop(cols.SpanB)
	_, err = SignalMask(p, RuleBullish, cols)
	assert.Error(t, err)
}

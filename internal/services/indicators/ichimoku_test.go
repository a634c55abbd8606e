package indicators

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hlc(n int) (high, low, close []float64) {
	close = wave(n)
	high = make([]float64, n)
	low = make([]float64, n)
	for i, c := range close {
		high[i] = c + 1 + float64(i%3)
		low[i] = c - 1 - float64(i%4)
	}
	return high, low, close
}

func windowMid(high, low []float64, end, window int) float64 {
	hi, lo := math.Inf(-1), math.Inf(1)
	for j := end - window + 1; j <= end; j++ {
		hi = math.Max(hi, high[j])
		lo = math.Min(lo, low[j])
	}
	return (hi + lo) / 2
}

func TestIchimokuLines(t *testing.T) {
	const n = 90
	high, low, close := hlc(n)
	r := Ichimoku(high, low, close, false, DefaultIchimoku)
	require.Equal(t, n, r.Len())

	for i := 0; i < n; i++ {
		if i < 8 {
			assert.True(t, math.IsNaN(r.Conversion[i]))
		} else {
			assert.InDelta(t, windowMid(high, low, i, 9), r.Conversion[i], 1e-12)
		}
		if i < 25 {
			assert.True(t, math.IsNaN(r.Base[i]))
		} else {
			assert.InDelta(t, windowMid(high, low, i, 26), r.Base[i], 1e-12)
		}
		if i < 51 {
			assert.True(t, math.IsNaN(r.SpanA[i]), "span A at %d", i)
		} else {
			want := (windowMid(high, low, i-26, 9) + windowMid(high, low, i-26, 26)) / 2
			assert.InDelta(t, want, r.SpanA[i], 1e-12)
		}
		if i < 77 {
			assert.True(t, math.IsNaN(r.SpanB[i]), "span B at %d", i)
		} else {
			assert.InDelta(t, windowMid(high, low, i-26, 52), r.SpanB[i], 1e-12)
		}
		if i+26 < n {
			assert.Equal(t, close[i+26], r.Lagging[i])
		} else {
			assert.True(t, math.IsNaN(r.Lagging[i]))
		}
	}
}

func TestIchimokuFutureMode(t *testing.T) {
	const n = 90
	high, low, close := hlc(n)
	r := Ichimoku(high, low, close, true, DefaultIchimoku)
	require.Equal(t, n+26, r.Len())
	assert.Len(t, high, n, "inputs are not modified")

	for i := n; i < r.Len(); i++ {
		assert.False(t, math.IsNaN(r.SpanA[i]), "span A at appended row %d", i)
		assert.False(t, math.IsNaN(r.SpanB[i]), "span B at appended row %d", i)
		assert.True(t, math.IsNaN(r.Conversion[i]))
		assert.True(t, math.IsNaN(r.Base[i]))
		assert.True(t, math.IsNaN(r.Lagging[i]))
	}

	past := Ichimoku(high, low, close, false, DefaultIchimoku)
	for i := 0; i < n; i++ {
		if math.IsNaN(past.SpanA[i]) {
			assert.True(t, math.IsNaN(r.SpanA[i]))
			continue
		}
		assert.Equal(t, past.SpanA[i], r.SpanA[i])
	}
}

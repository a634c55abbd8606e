package models

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func days(n int) []time.Time {
	start := time.Date(2024, 1, 1, 16, 0, 0, 0, time.UTC)
	out := make([]time.Time, n)
	for i := range out {
		out[i] = start.AddDate(0, 0, i)
	}
	return out
}

func TestPanelSetAndDrop(t *testing.T) {
	p := NewPanel(days(3))
	p.Set("a", []float64{1, 2, 3})
	p.Set("b", []float64{4, 5, 6})
	p.FillLabel(ColSector, "Tech")
	p.Set("a", []float64{7, 8, 9})

	assert.Equal(t, []string{"a", "b"}, p.Names())
	a, _ := p.Col("a")
	assert.Equal(t, []float64{7, 8, 9}, a)

	p.Drop("a", ColSector, "missing")
	assert.Equal(t, []string{"b"}, p.Names())
	assert.Empty(t, p.LabelNames())
}

func TestPanelSetLengthMismatchPanics(t *testing.T) {
	p := NewPanel(days(2))
	assert.Panics(t, func() { p.Set("x", []float64{1}) })
}

func TestPanelDropIncomplete(t *testing.T) {
	p := NewPanel(days(4))
	p.Set("a", []float64{1, math.NaN(), 3, 4})
	p.Set("b", []float64{1, 2, 3, math.NaN()})
	p.Set("ignored", []float64{math.NaN(), math.NaN(), math.NaN(), math.NaN()})

	out := p.DropIncomplete([]string{"a", "b"})
	require.Equal(t, 2, out.Len())
	a, _ := out.Col("a")
	assert.Equal(t, []float64{1, 3}, a)
	assert.True(t, out.Dates()[1].Equal(p.Dates()[2]))
}

func TestPanelLeftJoin(t *testing.T) {
	left := NewPanel(days(3))
	left.Set("x", []float64{1, 2, 3})
	right := NewPanel(days(5)[1:])
	right.Set("spy_rsi_14", []float64{10, 20, 30, 40})

	matched, err := left.LeftJoin(right)
	require.NoError(t, err)
	assert.Equal(t, 2, matched)
	col, _ := left.Col("spy_rsi_14")
	assert.True(t, math.IsNaN(col[0]))
	assert.Equal(t, []float64{10, 20}, col[1:])

	_, err = left.LeftJoin(right)
	assert.Error(t, err)
}

func TestPanelExtend(t *testing.T) {
	p := NewPanel(days(2))
	p.Set("x", []float64{1, 2})
	p.FillLabel(ColSector, "Energy")
	p.Extend(days(4)[2:])

	require.Equal(t, 4, p.Len())
	x, _ := p.Col("x")
	assert.True(t, math.IsNaN(x[3]))
	s, _ := p.Label(ColSector)
	assert.Equal(t, []string{"Energy", "Energy", "", ""}, s)
}

func TestConcatAndSort(t *testing.T) {
	d := days(3)
	a := NewPanel([]time.Time{d[2], d[0]})
	a.Set("x", []float64{3, 1})
	a.FillLabel(ColSymbol, "BBB")
	b := NewPanel([]time.Time{d[0], d[1]})
	b.Set("x", []float64{10, 20})
	b.FillLabel(ColSymbol, "AAA")

	out, err := Concat(a, b)
	require.NoError(t, err)
	out.SortByDate()

	x, _ := out.Col("x")
	sym, _ := out.Label(ColSymbol)
	assert.Equal(t, []float64{10, 1, 20, 3}, x)
	assert.Equal(t, []string{"AAA", "BBB", "AAA", "BBB"}, sym)
}

func TestConcatSchemaMismatch(t *testing.T) {
	a := NewPanel(days(1))
	a.Set("x", []float64{1})
	b := NewPanel(days(1))
	b.Set("y", []float64{1})
	_, err := Concat(a, b)
	assert.Error(t, err)
}

func TestPanelRow(t *testing.T) {
	p := NewPanel(days(2))
	p.Set("x", []float64{1, 2})
	p.FillLabel(ColSymbol, "IBM")
	r := p.Row(1)
	assert.Equal(t, 2.0, r.Values["x"])
	assert.Equal(t, "IBM", r.Labels[ColSymbol])
}

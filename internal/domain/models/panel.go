package models

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// Panel is a column-oriented table indexed by trading date.
// Numeric columns use NaN as the missing marker; categorical columns are strings.
// Column order is insertion order. Set and SetLabel panic on a length mismatch,
// which is always a programming error.
type Panel struct {
	dates  []time.Time
	names  []string
	cols   map[string][]float64
	lnames []string
	labels map[string][]string
}

// Row is a single panel row materialised for persistence or publishing.
type Row struct {
	Date   time.Time
	Values map[string]float64
	Labels map[string]string
}

// NewPanel creates an empty panel over a copy of dates.
func NewPanel(dates []time.Time) *Panel {
	d := make([]time.Time, len(dates))
	copy(d, dates)
	return &Panel{
		dates:  d,
		cols:   make(map[string][]float64),
		labels: make(map[string][]string),
	}
}

// Len returns the number of rows.
func (p *Panel) Len() int { return len(p.dates) }

// Dates returns the row index. Callers must not modify it.
func (p *Panel) Dates() []time.Time { return p.dates }

// Set adds or replaces a numeric column.
func (p *Panel) Set(name string, vals []float64) {
	if len(vals) != len(p.dates) {
		panic(fmt.Sprintf("panel: column %q has %d values, want %d", name, len(vals), len(p.dates)))
	}
	if _, ok := p.cols[name]; !ok {
		p.names = append(p.names, name)
	}
	p.cols[name] = vals
}

// Col returns a numeric column.
func (p *Panel) Col(name string) ([]float64, bool) {
	v, ok := p.cols[name]
	return v, ok
}

// HasCol reports whether a numeric column exists.
func (p *Panel) HasCol(name string) bool {
	_, ok := p.cols[name]
	return ok
}

// Names returns numeric column names in insertion order.
func (p *Panel) Names() []string {
	out := make([]string, len(p.names))
	copy(out, p.names)
	return out
}

// SetLabel adds or replaces a categorical column.
func (p *Panel) SetLabel(name string, vals []string) {
	if len(vals) != len(p.dates) {
		panic(fmt.Sprintf("panel: label %q has %d values, want %d", name, len(vals), len(p.dates)))
	}
	if _, ok := p.labels[name]; !ok {
		p.lnames = append(p.lnames, name)
	}
	p.labels[name] = vals
}

// FillLabel sets a categorical column to the same value on every row.
func (p *Panel) FillLabel(name, value string) {
	vals := make([]string, len(p.dates))
	for i := range vals {
		vals[i] = value
	}
	p.SetLabel(name, vals)
}

// Label returns a categorical column.
func (p *Panel) Label(name string) ([]string, bool) {
	v, ok := p.labels[name]
	return v, ok
}

// LabelNames returns categorical column names in insertion order.
func (p *Panel) LabelNames() []string {
	out := make([]string, len(p.lnames))
	copy(out, p.lnames)
	return out
}

// Drop removes numeric or categorical columns. Unknown names are ignored.
func (p *Panel) Drop(names ...string) {
	for _, n := range names {
		if _, ok := p.cols[n]; ok {
			delete(p.cols, n)
			p.names = remove(p.names, n)
		}
		if _, ok := p.labels[n]; ok {
			delete(p.labels, n)
			p.lnames = remove(p.lnames, n)
		}
	}
}

// Filter returns a new panel holding the rows where mask is true.
func (p *Panel) Filter(mask []bool) *Panel {
	if len(mask) != len(p.dates) {
		panic(fmt.Sprintf("panel: mask has %d values, want %d", len(mask), len(p.dates)))
	}
	idx := make([]int, 0, len(mask))
	for i, keep := range mask {
		if keep {
			idx = append(idx, i)
		}
	}
	return p.take(idx)
}

// Slice returns rows [from, to).
func (p *Panel) Slice(from, to int) *Panel {
	idx := make([]int, 0, to-from)
	for i := from; i < to; i++ {
		idx = append(idx, i)
	}
	return p.take(idx)
}

// DropIncomplete keeps only rows where every listed column is non-missing.
func (p *Panel) DropIncomplete(cols []string) *Panel {
	mask := make([]bool, p.Len())
	for i := range mask {
		mask[i] = true
	}
	for _, c := range cols {
		vals, ok := p.cols[c]
		if !ok {
			continue
		}
		for i, v := range vals {
			if math.IsNaN(v) {
				mask[i] = false
			}
		}
	}
	return p.Filter(mask)
}

// LeftJoin adds every column of other, aligned on date. Dates missing in other become NaN / "".
// It returns the number of matched rows.
func (p *Panel) LeftJoin(other *Panel) (int, error) {
	pos := make(map[int64]int, other.Len())
	for i, d := range other.dates {
		pos[d.Unix()] = i
	}
	rowMap := make([]int, p.Len())
	matched := 0
	for i, d := range p.dates {
		j, ok := pos[d.Unix()]
		if !ok {
			rowMap[i] = -1
			continue
		}
		rowMap[i] = j
		matched++
	}
	for _, n := range other.names {
		if p.HasCol(n) {
			return 0, fmt.Errorf("panel join: duplicate column %q", n)
		}
		src := other.cols[n]
		dst := make([]float64, p.Len())
		for i, j := range rowMap {
			if j < 0 {
				dst[i] = math.NaN()
				continue
			}
			dst[i] = src[j]
		}
		p.Set(n, dst)
	}
	for _, n := range other.lnames {
		if _, ok := p.labels[n]; ok {
			return 0, fmt.Errorf("panel join: duplicate label %q", n)
		}
		src := other.labels[n]
		dst := make([]string, p.Len())
		for i, j := range rowMap {
			if j >= 0 {
				dst[i] = src[j]
			}
		}
		p.SetLabel(n, dst)
	}
	return matched, nil
}

// Extend appends blank rows for the given dates.
func (p *Panel) Extend(dates []time.Time) {
	p.dates = append(p.dates, dates...)
	for _, n := range p.names {
		col := p.cols[n]
		for range dates {
			col = append(col, math.NaN())
		}
		p.cols[n] = col
	}
	for _, n := range p.lnames {
		p.labels[n] = append(p.labels[n], make([]string, len(dates))...)
	}
}

// Clone returns a deep copy.
func (p *Panel) Clone() *Panel {
	idx := make([]int, p.Len())
	for i := range idx {
		idx[i] = i
	}
	return p.take(idx)
}

// Row materialises row i.
func (p *Panel) Row(i int) Row {
	r := Row{
		Date:   p.dates[i],
		Values: make(map[string]float64, len(p.names)),
		Labels: make(map[string]string, len(p.lnames)),
	}
	for _, n := range p.names {
		r.Values[n] = p.cols[n][i]
	}
	for _, n := range p.lnames {
		r.Labels[n] = p.labels[n][i]
	}
	return r
}

// SortByDate stably orders rows by date, then by the "symbol" label when present.
func (p *Panel) SortByDate() {
	idx := make([]int, p.Len())
	for i := range idx {
		idx[i] = i
	}
	sym := p.labels[ColSymbol]
	sort.SliceStable(idx, func(a, b int) bool {
		da, db := p.dates[idx[a]], p.dates[idx[b]]
		if !da.Equal(db) {
			return da.Before(db)
		}
		if sym != nil {
			return sym[idx[a]] < sym[idx[b]]
		}
		return false
	})
	sorted := p.take(idx)
	*p = *sorted
}

// Concat stacks panels with identical schemas. The result is not re-sorted.
func Concat(panels ...*Panel) (*Panel, error) {
	if len(panels) == 0 {
		return NewPanel(nil), nil
	}
	first := panels[0]
	for _, q := range panels[1:] {
		if err := first.SameSchema(q); err != nil {
			return nil, err
		}
	}
	total := 0
	for _, q := range panels {
		total += q.Len()
	}
	dates := make([]time.Time, 0, total)
	for _, q := range panels {
		dates = append(dates, q.dates...)
	}
	out := NewPanel(dates)
	for _, n := range first.names {
		col := make([]float64, 0, total)
		for _, q := range panels {
			col = append(col, q.cols[n]...)
		}
		out.Set(n, col)
	}
	for _, n := range first.lnames {
		col := make([]string, 0, total)
		for _, q := range panels {
			col = append(col, q.labels[n]...)
		}
		out.SetLabel(n, col)
	}
	return out, nil
}

// SameSchema returns an error unless q has the same numeric and categorical columns, in the same order.
func (p *Panel) SameSchema(q *Panel) error {
	if !equalStrings(p.names, q.names) {
		return fmt.Errorf("panel schema mismatch: %d vs %d columns", len(p.names), len(q.names))
	}
	if !equalStrings(p.lnames, q.lnames) {
		return fmt.Errorf("panel schema mismatch: labels %v vs %v", p.lnames, q.lnames)
	}
	return nil
}

func (p *Panel) take(idx []int) *Panel {
	dates := make([]time.Time, len(idx))
	for k, i := range idx {
		dates[k] = p.dates[i]
	}
	out := NewPanel(dates)
	for _, n := range p.names {
		src := p.cols[n]
		dst := make([]float64, len(idx))
		for k, i := range idx {
			dst[k] = src[i]
		}
		out.Set(n, dst)
	}
	for _, n := range p.lnames {
		src := p.labels[n]
		dst := make([]string, len(idx))
		for k, i := range idx {
			dst[k] = src[i]
		}
		out.SetLabel(n, dst)
	}
	return out
}

func remove(xs []string, s string) []string {
	out := xs[:0]
	for _, x := range xs {
		if x != s {
			out = append(out, x)
		}
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

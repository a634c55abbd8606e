package usecase

import (
	"context"
	"errors"
	"math"
	"slices"
	"sync"
	"testing"
	"time"

	"FinPanel/internal/domain/models"
	drepo "FinPanel/internal/domain/repository"
	"FinPanel/internal/services/panel"

	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

type memStore struct {
	mu          sync.Mutex
	instruments []models.Instrument
	bars        map[string][]models.PriceBar
	events      map[string][]models.Event
	barErr      map[string]error

	adjusted      map[string]int
	indicatorRows map[string]int
	upsertedBars  []models.PriceBar
	upsertedEvts  []models.Event
	registered    []models.Instrument
	updates       []bool
}

func newMemStore() *memStore {
	return &memStore{
		bars:          make(map[string][]models.PriceBar),
		events:        make(map[string][]models.Event),
		barErr:        make(map[string]error),
		adjusted:      make(map[string]int),
		indicatorRows: make(map[string]int),
	}
}

func (s *memStore) Init(context.Context) error { return nil }

func (s *memStore) Instruments(context.Context) ([]models.Instrument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.instruments), nil
}

func (s *memStore) RawBars(_ context.Context, symbol string) ([]models.PriceBar, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.barErr[symbol]; err != nil {
		return nil, err
	}
	return s.bars[symbol], nil
}

func (s *memStore) Events(_ context.Context, symbol string) ([]models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.events[symbol], nil
}

func (s *memStore) UpsertInstruments(_ context.Context, in []models.Instrument, update bool) (drepo.UpsertResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.registered = append(s.registered, in...)
	s.updates = append(s.updates, update)
	var res drepo.UpsertResult
	for _, inst := range in {
		idx := slices.IndexFunc(s.instruments, func(x models.Instrument) bool { return x.Symbol == inst.Symbol })
		switch {
		case idx < 0:
			s.instruments = append(s.instruments, inst)
			res.Inserted++
		case update:
			s.instruments[idx] = inst
			res.Updated++
		default:
			res.Unchanged++
		}
	}
	return res, nil
}

func (s *memStore) UpsertBars(_ context.Context, bars []models.PriceBar, update bool) (drepo.UpsertResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upsertedBars = append(s.upsertedBars, bars...)
	s.updates = append(s.updates, update)
	return drepo.UpsertResult{Inserted: len(bars)}, nil
}

func (s *memStore) UpsertEvents(_ context.Context, events []models.Event, update bool) (drepo.UpsertResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upsertedEvts = append(s.upsertedEvts, events...)
	return drepo.UpsertResult{Inserted: len(events)}, nil
}

func (s *memStore) UpsertAdjustedBars(_ context.Context, bars []models.AdjustedBar, _ bool) (drepo.UpsertResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(bars) > 0 {
		s.adjusted[bars[0].Symbol] += len(bars)
	}
	return drepo.UpsertResult{Inserted: len(bars)}, nil
}

func (s *memStore) UpsertIndicatorRows(_ context.Context, symbol string, p *models.Panel, _ bool) (drepo.UpsertResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.indicatorRows[symbol] += p.Len()
	return drepo.UpsertResult{Inserted: p.Len()}, nil
}

func (s *memStore) Health(context.Context) error { return nil }
func (s *memStore) Close() error                 { return nil }

type memMetrics struct {
	mu       sync.Mutex
	results  map[string]int
	skips    map[models.Stage]int
	rows     map[string]int
	durStage map[models.Stage]bool
}

func newMemMetrics() *memMetrics {
	return &memMetrics{
		results:  make(map[string]int),
		skips:    make(map[models.Stage]int),
		rows:     make(map[string]int),
		durStage: make(map[models.Stage]bool),
	}
}

func (m *memMetrics) RecordInstrument(result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results[result]++
}

func (m *memMetrics) RecordSkip(stage models.Stage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.skips[stage]++
}

func (m *memMetrics) RecordRows(split string, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[split] += n
}

func (m *memMetrics) RecordStageDuration(stage models.Stage, _ float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.durStage[stage] = true
}

type memPublisher struct {
	published map[string]int
	err       error
}

func (p *memPublisher) PublishPanel(_ context.Context, split string, pn *models.Panel) (int, error) {
	if p.err != nil {
		return 0, p.err
	}
	if p.published == nil {
		p.published = make(map[string]int)
	}
	p.published[split] += pn.Len()
	return pn.Len(), nil
}

func (p *memPublisher) Close() error { return nil }

type fakeReference struct {
	instruments []models.Instrument
	err         error
}

func (r fakeReference) Instruments(context.Context) ([]models.Instrument, error) {
	return r.instruments, r.err
}

// weekdayBars returns n raw weekday bars from 2 January 2020 with a smooth, non-trending close.
func weekdayBars(t *testing.T, symbol string, n int, phase float64) []models.PriceBar {
	t.Helper()
	loc, err := panel.LoadLocation(panel.ExchangeTimezone)
	require.NoError(t, err)
	d := time.Date(2020, 1, 2, 16, 0, 0, 0, loc)
	bars := make([]models.PriceBar, n)
	for i := range bars {
		x := float64(i)
		c := 100 + 6*math.Sin(x/7+phase) + 2*math.Cos(x/3) + 0.03*x
		bars[i] = models.PriceBar{
			Symbol: symbol, Date: d,
			Open: c - 0.4, High: c + 1.1, Low: c - 1.2, Close: c, AdjustedClose: c,
			Volume: 1e6 + 1e4*math.Abs(math.Sin(x)), SplitCoefficient: 1,
		}
		d = panel.NextBusinessDays(d, 1)[0]
	}
	return bars
}

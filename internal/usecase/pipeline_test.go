package usecase

import (
	"context"
	"testing"

	"FinPanel/internal/domain/models"
	"FinPanel/internal/services/labeling"
	"FinPanel/internal/services/panel"
	"FinPanel/internal/services/split"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testRows    = 300
	testHoldout = 20
)

func testPipelineConfig(t *testing.T) PipelineConfig {
	t.Helper()
	opts := panel.DefaultOptions()
	opts.SMAWindows = []int{5, 10}
	opts.HighLowWindows = []int{7, 14}
	require.NoError(t, opts.Validate())
	return PipelineConfig{
		Benchmarks: []string{"SPY"},
		Workers:    3,
		Panel:      opts,
		Split: split.Config{
			Target:      labeling.TargetSpec{Aggregation: labeling.AggMax, Horizon: 10},
			Rule:        labeling.RuleNone,
			HoldoutRows: testHoldout,
		},
		PersistIndicators: true,
	}
}

func seededStore(t *testing.T) *memStore {
	t.Helper()
	s := newMemStore()
	s.instruments = []models.Instrument{
		{Symbol: "AAA", Sector: "Technology"},
		{Symbol: "BBB", Sector: "Energy"},
		{Symbol: "CCC", Sector: "Utilities"},
		{Symbol: "DDD", Sector: "Utilities"},
		{Symbol: "EEE", Sector: "Utilities"},
		{Symbol: "SPY"},
	}
	for i, sym := range []string{"AAA", "BBB", "CCC", "SPY", "EEE"} {
		s.bars[sym] = weekdayBars(t, sym, testRows, float64(i))
	}
	for _, sym := range []string{"AAA", "BBB"} {
		bars := s.bars[sym]
		s.events[sym] = []models.Event{
			models.NewEarnings(sym, bars[100].Date, models.EarningsPayload{FiscalPeriod: "Q1"}),
			models.NewEarnings(sym, bars[163].Date, models.EarningsPayload{FiscalPeriod: "Q2"}),
		}
	}
	s.barErr["EEE"] = errBoom
	return s
}

func TestPipelineRun(t *testing.T) {
	store := seededStore(t)
	metrics := newMemMetrics()
	pub := &memPublisher{}
	p := NewPipeline(store, pub, metrics, testPipelineConfig(t))

	report, res, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"AAA", "BBB"}, report.Processed)
	require.Len(t, report.Skipped, 3)
	stages := map[string]models.Stage{}
	for _, s := range report.Skipped {
		stages[s.Symbol] = s.Stage
	}
	assert.Equal(t, map[string]models.Stage{
		"CCC": models.StagePanel,
		"DDD": models.StageAdjust,
		"EEE": models.StageLoad,
	}, stages)

	assert.Equal(t, 2*testHoldout, report.TestRows)
	assert.Positive(t, report.TrainRows)
	assert.Equal(t, report.TrainRows, res.Train.Len())
	assert.NotContains(t, res.Features, res.Target)

	// benchmark columns reach every instrument
	assert.Contains(t, res.Features, "spy_close_pct_change")

	assert.Equal(t, map[string]int{SplitTrain: report.TrainRows, SplitTest: report.TestRows}, pub.published)
	assert.Equal(t, report.TrainRows, metrics.rows[SplitTrain])
	assert.Equal(t, 2, metrics.results["processed"])
	assert.Equal(t, 3, metrics.results["skipped"])
	assert.Equal(t, 1, metrics.skips[models.StagePanel])
	assert.True(t, metrics.durStage[models.StageSplit])

	// adjusted bars persist for every instrument that adjusted, indicators only for built panels
	assert.Equal(t, testRows, store.adjusted["AAA"])
	assert.Equal(t, testRows, store.adjusted["CCC"])
	assert.NotContains(t, store.adjusted, "SPY")
	assert.Equal(t, testRows, store.indicatorRows["BBB"])
	assert.NotContains(t, store.indicatorRows, "CCC")
}

func TestPipelinePanelsCarryReferenceSector(t *testing.T) {
	store := seededStore(t)
	for i := range store.instruments {
		store.instruments[i].Sector = ""
	}
	ing := NewIngestor(&fakePrices{t: t}, nil, store, newMemMetrics(), false)
	ing.SetReference(fakeReference{instruments: []models.Instrument{
		{Symbol: "AAA", Sector: "Technology"},
		{Symbol: "BBB", Sector: "Energy"},
	}})
	_, err := ing.SyncReference(context.Background())
	require.NoError(t, err)

	_, res, err := NewPipeline(store, nil, newMemMetrics(), testPipelineConfig(t)).Run(context.Background())
	require.NoError(t, err)

	want := map[string]string{"AAA": "Technology", "BBB": "Energy"}
	for _, part := range []*models.Panel{res.Train, res.Test} {
		symbols, ok := part.Label(models.ColSymbol)
		require.True(t, ok)
		sectors, ok := part.Label(models.ColSector)
		require.True(t, ok)
		require.NotEmpty(t, sectors)
		for i := range sectors {
			assert.Equal(t, want[symbols[i]], sectors[i], "row %d", i)
		}
	}
}

func TestPipelineTrainPrecedesTest(t *testing.T) {
	p := NewPipeline(seededStore(t), nil, newMemMetrics(), testPipelineConfig(t))
	_, res, err := p.Run(context.Background())
	require.NoError(t, err)

	last := map[string]int64{}
	symbols, ok := res.Train.Label(models.ColSymbol)
	require.True(t, ok)
	for i, d := range res.Train.Dates() {
		if u := d.Unix(); u > last[symbols[i]] {
			last[symbols[i]] = u
		}
	}
	testSymbols, ok := res.Test.Label(models.ColSymbol)
	require.True(t, ok)
	for i, d := range res.Test.Dates() {
		assert.Greater(t, d.Unix(), last[testSymbols[i]])
	}
}

func TestPipelineSymbolSelection(t *testing.T) {
	store := seededStore(t)
	cfg := testPipelineConfig(t)
	cfg.Symbols = []string{"BBB", "SPY", "ZZZ", "BBB"}
	p := NewPipeline(store, nil, newMemMetrics(), cfg)

	got, err := p.instruments(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, models.Instrument{Symbol: "BBB", Sector: "Energy"}, got[0])
	assert.Equal(t, models.Instrument{Symbol: "ZZZ"}, got[1])

	cfg.Symbols = nil
	all, err := NewPipeline(store, nil, newMemMetrics(), cfg).instruments(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

func TestPipelineFatalErrors(t *testing.T) {
	ctx := context.Background()

	cfg := testPipelineConfig(t)
	cfg.Split.Cutoff = weekdayBars(t, "X", 1, 0)[0].Date
	_, _, err := NewPipeline(seededStore(t), nil, newMemMetrics(), cfg).Run(ctx)
	assert.ErrorIs(t, err, split.ErrSplitMode)

	cfg = testPipelineConfig(t)
	cfg.Benchmarks = []string{"QQQ"}
	_, _, err = NewPipeline(seededStore(t), nil, newMemMetrics(), cfg).Run(ctx)
	assert.ErrorContains(t, err, "benchmark")

	_, _, err = NewPipeline(seededStore(t), &memPublisher{err: errBoom}, newMemMetrics(), testPipelineConfig(t)).Run(ctx)
	assert.ErrorIs(t, err, errBoom)
}

func TestPipelineWithoutBenchmark(t *testing.T) {
	cfg := testPipelineConfig(t)
	cfg.Benchmarks = nil
	cfg.Symbols = []string{"AAA"}
	report, res, err := NewPipeline(seededStore(t), nil, newMemMetrics(), cfg).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"AAA"}, report.Processed)
	assert.NotContains(t, res.Features, "spy_close_pct_change")
}

func TestPipelineCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := NewPipeline(seededStore(t), nil, newMemMetrics(), testPipelineConfig(t)).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

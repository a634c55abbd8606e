package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"FinPanel/internal/domain/models"
	drepo "FinPanel/internal/domain/repository"
	"FinPanel/internal/services/adjust"
	"FinPanel/internal/services/panel"
	"FinPanel/internal/services/split"
	applogger "FinPanel/pkg/logger"

	"golang.org/x/sync/errgroup"
)

const (
	SplitTrain = "train"
	SplitTest  = "test"
)

// PipelineConfig is the immutable configuration of one panel run.
type PipelineConfig struct {
	// Symbols restricts the run. Empty means every instrument in the store.
	Symbols    []string
	Benchmarks []string
	Workers    int

	Panel panel.Options
	Split split.Config

	ProviderAdjustedClose bool
	PersistIndicators     bool
	UpdateExisting        bool
}

// Pipeline builds per-instrument panels from the store and splits them into train and test sets.
type Pipeline struct {
	store     drepo.MarketStore
	publisher drepo.PanelPublisher
	metrics   drepo.Metrics
	cfg       PipelineConfig
	l         *applogger.Logger
}

// NewPipeline creates a Pipeline. publisher may be nil.
func NewPipeline(store drepo.MarketStore, publisher drepo.PanelPublisher, metrics drepo.Metrics, cfg PipelineConfig) *Pipeline {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return &Pipeline{store: store, publisher: publisher, metrics: metrics, cfg: cfg, l: applogger.Nop()}
}

// SetLogger injects a structured logger.
func (p *Pipeline) SetLogger(l *applogger.Logger) { p.l = l }

// Run executes the whole pipeline. Per-instrument failures are reported, not returned;
// configuration, benchmark and store-wide failures abort the run.
func (p *Pipeline) Run(ctx context.Context) (*models.RunReport, *split.Result, error) {
	if err := p.cfg.Split.Validate(); err != nil {
		return nil, nil, fmt.Errorf("split config: %w", err)
	}
	if err := p.cfg.Panel.Validate(); err != nil {
		return nil, nil, err
	}

	instruments, err := p.instruments(ctx)
	if err != nil {
		return nil, nil, err
	}

	start := time.Now()
	benchmark, err := p.benchmark(ctx)
	if err != nil {
		return nil, nil, err
	}
	builder, err := panel.NewBuilder(benchmark, p.cfg.Panel)
	if err != nil {
		return nil, nil, err
	}
	p.metrics.RecordStageDuration(models.StageLoad, time.Since(start).Seconds())

	start = time.Now()
	panels, skipped, err := p.buildPanels(ctx, builder, instruments)
	if err != nil {
		return nil, nil, err
	}
	p.metrics.RecordStageDuration(models.StagePanel, time.Since(start).Seconds())

	start = time.Now()
	res, err := split.Build(panels, p.cfg.Split)
	if err != nil {
		return nil, nil, fmt.Errorf("split: %w", err)
	}
	p.metrics.RecordStageDuration(models.StageSplit, time.Since(start).Seconds())

	report := &models.RunReport{
		Processed: res.Processed,
		Skipped:   append(skipped, res.Skipped...),
		TrainRows: res.Train.Len(),
		TestRows:  res.Test.Len(),
	}
	report.Sort()

	for _, s := range res.Skipped {
		p.metrics.RecordSkip(s.Stage)
		p.metrics.RecordInstrument("skipped")
	}
	for range res.Processed {
		p.metrics.RecordInstrument("processed")
	}
	p.metrics.RecordRows(SplitTrain, report.TrainRows)
	p.metrics.RecordRows(SplitTest, report.TestRows)

	if err := p.publish(ctx, res); err != nil {
		return report, res, err
	}

	for _, s := range report.Skipped {
		p.logSkip(s)
	}
	p.l.Info("panel run finished",
		applogger.Int("processed", len(report.Processed)),
		applogger.Int("skipped", len(report.Skipped)),
		applogger.Int("train_rows", report.TrainRows),
		applogger.Int("test_rows", report.TestRows),
		applogger.Int("features", len(res.Features)),
		applogger.String("target", res.Target),
	)
	return report, res, nil
}

// instruments resolves the configured symbols against the reference table. Benchmarks are never instruments.
func (p *Pipeline) instruments(ctx context.Context) ([]models.Instrument, error) {
	stored, err := p.store.Instruments(ctx)
	if err != nil {
		return nil, fmt.Errorf("load instruments: %w", err)
	}
	bench := make(map[string]bool, len(p.cfg.Benchmarks))
	for _, b := range p.cfg.Benchmarks {
		bench[b] = true
	}

	var out []models.Instrument
	if len(p.cfg.Symbols) == 0 {
		for _, in := range stored {
			if !bench[in.Symbol] {
				out = append(out, in)
			}
		}
		return out, nil
	}

	bySymbol := make(map[string]models.Instrument, len(stored))
	for _, in := range stored {
		bySymbol[in.Symbol] = in
	}
	seen := make(map[string]bool, len(p.cfg.Symbols))
	for _, s := range p.cfg.Symbols {
		if bench[s] || seen[s] {
			continue
		}
		seen[s] = true
		in, ok := bySymbol[s]
		if !ok {
			in = models.Instrument{Symbol: s}
		}
		out = append(out, in)
	}
	return out, nil
}

// benchmark builds the shared index frame. Indices without history are left out; when every
// configured index is missing the run fails.
func (p *Pipeline) benchmark(ctx context.Context) (*models.Panel, error) {
	if len(p.cfg.Benchmarks) == 0 {
		return nil, nil
	}
	indices := make(map[string][]models.AdjustedBar, len(p.cfg.Benchmarks))
	for _, sym := range p.cfg.Benchmarks {
		bars, err := p.adjusted(ctx, sym)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			p.l.Warn("benchmark left out",
				applogger.String("symbol", sym),
				applogger.Error(err),
			)
			continue
		}
		indices[sym] = bars
	}
	if len(indices) == 0 {
		return nil, errors.New("benchmark: no index has price history")
	}
	bench, err := panel.BuildBenchmark(indices, p.cfg.Panel)
	if err != nil {
		return nil, fmt.Errorf("build benchmark: %w", err)
	}
	return bench, nil
}

func (p *Pipeline) adjusted(ctx context.Context, symbol string) ([]models.AdjustedBar, error) {
	raw, err := p.store.RawBars(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("load bars: %w", err)
	}
	return p.adjust(raw)
}

func (p *Pipeline) adjust(raw []models.PriceBar) ([]models.AdjustedBar, error) {
	if p.cfg.ProviderAdjustedClose {
		return adjust.Adjust(raw, adjust.WithProviderAdjustedClose())
	}
	return adjust.Adjust(raw)
}

// buildPanels fans out per-instrument builds. Only context cancellation fails the group.
func (p *Pipeline) buildPanels(ctx context.Context, b *panel.Builder, instruments []models.Instrument) (map[string]*models.Panel, []models.Skip, error) {
	var (
		mu      sync.Mutex
		panels  = make(map[string]*models.Panel, len(instruments))
		skipped []models.Skip
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Workers)
	for _, in := range instruments {
		in := in
		g.Go(func() error {
			pn, skip := p.buildOne(gctx, b, in)
			if err := gctx.Err(); err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			if skip != nil {
				skipped = append(skipped, *skip)
				return nil
			}
			panels[in.Symbol] = pn
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	for _, s := range skipped {
		p.metrics.RecordSkip(s.Stage)
		p.metrics.RecordInstrument("skipped")
	}
	return panels, skipped, nil
}

func (p *Pipeline) buildOne(ctx context.Context, b *panel.Builder, in models.Instrument) (*models.Panel, *models.Skip) {
	skip := func(stage models.Stage, err error) (*models.Panel, *models.Skip) {
		s := models.NewSkip(in.Symbol, stage, err.Error())
		return nil, &s
	}

	raw, err := p.store.RawBars(ctx, in.Symbol)
	if err != nil {
		return skip(models.StageLoad, err)
	}
	bars, err := p.adjust(raw)
	if err != nil {
		return skip(models.StageAdjust, err)
	}
	if _, err := p.store.UpsertAdjustedBars(ctx, bars, p.cfg.UpdateExisting); err != nil {
		return skip(models.StagePersist, err)
	}

	events, err := p.store.Events(ctx, in.Symbol)
	if err != nil {
		return skip(models.StageLoad, err)
	}
	pn, err := b.Build(panel.Input{Instrument: in, Bars: bars, Events: events})
	if err != nil {
		return skip(models.StagePanel, err)
	}

	if p.cfg.PersistIndicators {
		if _, err := p.store.UpsertIndicatorRows(ctx, in.Symbol, pn, p.cfg.UpdateExisting); err != nil {
			return skip(models.StagePersist, err)
		}
	}
	return pn, nil
}

func (p *Pipeline) publish(ctx context.Context, res *split.Result) error {
	if p.publisher == nil {
		return nil
	}
	for _, part := range []struct {
		name  string
		panel *models.Panel
	}{{SplitTrain, res.Train}, {SplitTest, res.Test}} {
		n, err := p.publisher.PublishPanel(ctx, part.name, part.panel)
		if err != nil {
			return fmt.Errorf("publish %s: %w", part.name, err)
		}
		p.l.Debug("panel published", applogger.String("split", part.name), applogger.Int("rows", n))
	}
	return nil
}

func (p *Pipeline) logSkip(s models.Skip) {
	fields := []applogger.Field{
		applogger.String("symbol", s.Symbol),
		applogger.String("stage", string(s.Stage)),
		applogger.String("reason", s.Reason),
	}
	if !math.IsNaN(s.PValue) {
		fields = append(fields, applogger.Float64("p_value", s.PValue))
	}
	p.l.Warn("instrument skipped", fields...)
}

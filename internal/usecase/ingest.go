package usecase

import (
	"context"
	"fmt"
	"time"

	"FinPanel/internal/domain/models"
	drepo "FinPanel/internal/domain/repository"
	applogger "FinPanel/pkg/logger"
)

// Ingestor copies provider data into the market store.
type Ingestor struct {
	prices    drepo.PriceSource
	events    drepo.EventSource
	reference drepo.ReferenceSource
	store     drepo.MarketStore
	metrics   drepo.Metrics
	update    bool
	l         *applogger.Logger
}

// NewIngestor creates an Ingestor. events may be nil, in which case only prices are ingested.
func NewIngestor(
	prices drepo.PriceSource,
	events drepo.EventSource,
	store drepo.MarketStore,
	metrics drepo.Metrics,
	update bool,
) *Ingestor {
	return &Ingestor{
		prices:  prices,
		events:  events,
		store:   store,
		metrics: metrics,
		update:  update,
		l:       applogger.Nop(),
	}
}

// SetLogger injects a structured logger.
func (i *Ingestor) SetLogger(l *applogger.Logger) { i.l = l }

// SetReference injects the source SyncReference reads from.
func (i *Ingestor) SetReference(r drepo.ReferenceSource) { i.reference = r }

// SyncReference writes the reference rows over the stored instruments so sector, company
// and index membership follow the latest exports. Without a reference source it does nothing.
func (i *Ingestor) SyncReference(ctx context.Context) (drepo.UpsertResult, error) {
	var res drepo.UpsertResult
	if i.reference == nil {
		return res, nil
	}
	instruments, err := i.reference.Instruments(ctx)
	if err != nil {
		return res, fmt.Errorf("load reference: %w", err)
	}
	if len(instruments) == 0 {
		i.l.Warn("reference data is empty")
		return res, nil
	}
	if res, err = i.store.UpsertInstruments(ctx, instruments, true); err != nil {
		return res, fmt.Errorf("store reference: %w", err)
	}
	i.l.Info("reference synced",
		applogger.Int("instruments", len(instruments)),
		applogger.Int("inserted", res.Inserted),
		applogger.Int("updated", res.Updated),
	)
	return res, nil
}

// IngestReport summarises one ingest run.
type IngestReport struct {
	Symbols     []string
	Bars        drepo.UpsertResult
	Events      drepo.UpsertResult
	// Instruments counts reference rows registered for newly seen symbols.
	Instruments drepo.UpsertResult
	Skipped     []models.Skip
}

// Ingest fetches prices for every symbol and benchmark and events for every symbol.
// Provider failures skip the symbol; a cancelled context stops the run.
func (i *Ingestor) Ingest(ctx context.Context, symbols, benchmarks []string) (*IngestReport, error) {
	start := time.Now()
	rep := &IngestReport{}

	type job struct {
		symbol    string
		benchmark bool
	}
	jobs := make([]job, 0, len(symbols)+len(benchmarks))
	seen := make(map[string]bool)
	for _, s := range symbols {
		if !seen[s] {
			seen[s] = true
			jobs = append(jobs, job{symbol: s})
		}
	}
	for _, s := range benchmarks {
		if !seen[s] {
			seen[s] = true
			jobs = append(jobs, job{symbol: s, benchmark: true})
		}
	}

	var fresh []models.Instrument
	for _, j := range jobs {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		bars, events, err := i.ingestOne(ctx, j.symbol, !j.benchmark && i.events != nil)
		if err != nil {
			if ctx.Err() != nil {
				return rep, ctx.Err()
			}
			skip := models.NewSkip(j.symbol, models.StageIngest, err.Error())
			rep.Skipped = append(rep.Skipped, skip)
			i.metrics.RecordSkip(models.StageIngest)
			i.l.Warn("ingest skipped",
				applogger.String("symbol", j.symbol),
				applogger.Error(err),
			)
			continue
		}
		rep.Symbols = append(rep.Symbols, j.symbol)
		rep.Bars.Add(bars)
		rep.Events.Add(events)
		if !j.benchmark {
			fresh = append(fresh, models.Instrument{Symbol: j.symbol})
		}
	}

	// Existing reference rows keep their sector and company.
	if len(fresh) > 0 {
		res, err := i.store.UpsertInstruments(ctx, fresh, false)
		if err != nil {
			return rep, fmt.Errorf("register instruments: %w", err)
		}
		rep.Instruments = res
	}

	i.metrics.RecordStageDuration(models.StageIngest, time.Since(start).Seconds())
	i.l.Info("ingest finished",
		applogger.Int("symbols", len(rep.Symbols)),
		applogger.Int("skipped", len(rep.Skipped)),
		applogger.Int("bars_inserted", rep.Bars.Inserted),
		applogger.Int("bars_updated", rep.Bars.Updated),
		applogger.Int("events_inserted", rep.Events.Inserted),
		applogger.Duration("took_ms", time.Since(start)),
	)
	return rep, nil
}

func (i *Ingestor) ingestOne(ctx context.Context, symbol string, withEvents bool) (bars, events drepo.UpsertResult, err error) {
	priceBars, err := i.prices.DailyAdjusted(ctx, symbol)
	if err != nil {
		return bars, events, fmt.Errorf("fetch prices: %w", err)
	}
	if bars, err = i.store.UpsertBars(ctx, priceBars, i.update); err != nil {
		return bars, events, fmt.Errorf("store prices: %w", err)
	}
	if !withEvents {
		return bars, events, nil
	}

	evs, err := i.events.Events(ctx, symbol)
	if err != nil {
		return bars, events, fmt.Errorf("fetch events: %w", err)
	}
	if events, err = i.store.UpsertEvents(ctx, evs, i.update); err != nil {
		return bars, events, fmt.Errorf("store events: %w", err)
	}
	return bars, events, nil
}

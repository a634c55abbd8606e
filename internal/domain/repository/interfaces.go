package repository

import (
	"context"

	"FinPanel/internal/domain/models"
)

// PriceSource delivers daily OHLCV history with adjusted close, dividends and split coefficients.
type PriceSource interface {
	DailyAdjusted(ctx context.Context, symbol string) ([]models.PriceBar, error)
}

// EventSource delivers typed corporate events for a symbol.
type EventSource interface {
	Events(ctx context.Context, symbol string) ([]models.Event, error)
}

// ReferenceSource delivers descriptive instrument rows: company, sector, industry and index membership.
type ReferenceSource interface {
	Instruments(ctx context.Context) ([]models.Instrument, error)
}

// MarketStore is the persistent store the pipeline reads raw data from and writes derived data to.
// Upserts insert rows whose key is absent; existing rows are rewritten only when update is true.
type MarketStore interface {
	Init(ctx context.Context) error
	Instruments(ctx context.Context) ([]models.Instrument, error)
	RawBars(ctx context.Context, symbol string) ([]models.PriceBar, error)
	Events(ctx context.Context, symbol string) ([]models.Event, error)

	UpsertInstruments(ctx context.Context, instruments []models.Instrument, update bool) (UpsertResult, error)
	UpsertBars(ctx context.Context, bars []models.PriceBar, update bool) (UpsertResult, error)
	UpsertEvents(ctx context.Context, events []models.Event, update bool) (UpsertResult, error)
	UpsertAdjustedBars(ctx context.Context, bars []models.AdjustedBar, update bool) (UpsertResult, error)
	UpsertIndicatorRows(ctx context.Context, symbol string, p *models.Panel, update bool) (UpsertResult, error)

	Health(ctx context.Context) error
	Close() error
}

// PanelPublisher ships train/test rows to downstream consumers.
type PanelPublisher interface {
	PublishPanel(ctx context.Context, split string, p *models.Panel) (int, error)
	Close() error
}

// Metrics records pipeline counters and latencies.
type Metrics interface {
	RecordInstrument(result string)
	RecordSkip(stage models.Stage)
	RecordRows(split string, n int)
	RecordStageDuration(stage models.Stage, seconds float64)
}

package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	drepo "FinPanel/internal/domain/repository"
	"FinPanel/internal/usecase"
	"FinPanel/pkg/config"
	applogger "FinPanel/pkg/logger"
	"FinPanel/pkg/metrics"
)

// Mode selects which stages a run executes.
type Mode string

const (
	ModeAll    Mode = "all"
	ModeIngest Mode = "ingest"
	ModeBuild  Mode = "build"
)

// ParseMode validates a command-line mode.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModeAll, ModeIngest, ModeBuild:
		return m, nil
	case "":
		return ModeAll, nil
	default:
		return "", fmt.Errorf("unknown mode %q (want all, ingest or build)", s)
	}
}

const (
	initTimeout = 30 * time.Second
	pushTimeout = 10 * time.Second
)

// App encapsulates one batch run: schema setup, ingestion, panel build and metrics push.
type App struct {
	cfg       *config.Config
	store     drepo.MarketStore
	ingestor  *usecase.Ingestor
	pipeline  *usecase.Pipeline
	publisher drepo.PanelPublisher
	recorder  *metrics.Recorder
	l         *applogger.Logger
}

// New creates a new App instance with all dependencies. publisher may be nil.
func New(
	cfg *config.Config,
	store drepo.MarketStore,
	ingestor *usecase.Ingestor,
	pipeline *usecase.Pipeline,
	publisher drepo.PanelPublisher,
	recorder *metrics.Recorder,
	l *applogger.Logger,
) *App {
	return &App{
		cfg:       cfg,
		store:     store,
		ingestor:  ingestor,
		pipeline:  pipeline,
		publisher: publisher,
		recorder:  recorder,
		l:         l,
	}
}

// Run executes mode and returns when it finishes or an interrupt arrives.
func (a *App) Run(mode Mode) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer a.shutdown()

	err := a.run(ctx, mode)
	if perr := a.pushMetrics(); perr != nil {
		a.l.Warn("metrics push failed", applogger.Error(perr))
	}
	if err != nil && ctx.Err() != nil {
		a.l.Info("run interrupted")
	}
	return err
}

func (a *App) run(ctx context.Context, mode Mode) error {
	initCtx, cancel := context.WithTimeout(ctx, initTimeout)
	defer cancel()
	if err := a.store.Init(initCtx); err != nil {
		return fmt.Errorf("store init: %w", err)
	}
	a.l.Info("store ready",
		applogger.String("database", a.cfg.ClickHouse.Database),
		applogger.String("mode", string(mode)),
	)

	if mode == ModeAll || mode == ModeIngest {
		if _, err := a.ingestor.SyncReference(ctx); err != nil {
			return fmt.Errorf("reference: %w", err)
		}
		symbols, err := a.ingestSymbols(ctx)
		if err != nil {
			return err
		}
		if _, err := a.ingestor.Ingest(ctx, symbols, a.cfg.Pipeline.Benchmarks); err != nil {
			return fmt.Errorf("ingest: %w", err)
		}
	}

	if mode == ModeAll || mode == ModeBuild {
		if _, _, err := a.pipeline.Run(ctx); err != nil {
			return fmt.Errorf("pipeline: %w", err)
		}
	}
	return nil
}

// ingestSymbols falls back to the stored instruments when no symbols are configured.
func (a *App) ingestSymbols(ctx context.Context) ([]string, error) {
	if len(a.cfg.Pipeline.Symbols) > 0 {
		return a.cfg.Pipeline.Symbols, nil
	}
	instruments, err := a.store.Instruments(ctx)
	if err != nil {
		return nil, fmt.Errorf("load instruments: %w", err)
	}
	symbols := make([]string, 0, len(instruments))
	for _, in := range instruments {
		symbols = append(symbols, in.Symbol)
	}
	return symbols, nil
}

func (a *App) pushMetrics() error {
	if a.recorder == nil || a.cfg.Metrics.PushgatewayURL == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), pushTimeout)
	defer cancel()
	return a.recorder.Push(ctx, a.cfg.Metrics.PushgatewayURL, a.cfg.Metrics.Job)
}

// shutdown releases infrastructure clients.
func (a *App) shutdown() {
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.l.Warn("kafka producer close error", applogger.Error(err))
		}
	}
	if err := a.store.Close(); err != nil {
		a.l.Warn("clickhouse close error", applogger.Error(err))
	}
	a.l.Info("shutdown complete")
}

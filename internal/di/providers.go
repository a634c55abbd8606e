package di

import (
	"context"
	"fmt"
	"time"

	"FinPanel/internal/domain/repository"
	internalrepo "FinPanel/internal/repository"
	"FinPanel/internal/service/alphavantage"
	"FinPanel/internal/service/cache"
	"FinPanel/internal/service/finviz"
	"FinPanel/internal/service/ratelimit"
	"FinPanel/internal/service/reference"
	"FinPanel/internal/services/labeling"
	"FinPanel/internal/services/panel"
	"FinPanel/internal/services/split"
	"FinPanel/internal/usecase"
	pkgch "FinPanel/pkg/clickhouse"
	"FinPanel/pkg/config"
	pkghttp "FinPanel/pkg/http"
	pkgkafka "FinPanel/pkg/kafka"
	applogger "FinPanel/pkg/logger"
	"FinPanel/pkg/metrics"
	"FinPanel/pkg/server"
)

// ProvideLogger creates the application logger from the log section.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(applogger.String("env", cfg.Environment)), nil
}

// ProvideRecorder creates the Prometheus recorder.
func ProvideRecorder() *metrics.Recorder {
	return metrics.New()
}

// ProvideMetrics exposes the recorder as the pipeline metrics sink.
func ProvideMetrics(r *metrics.Recorder) repository.Metrics {
	return r
}

// ProvideClickHouseClient creates a ClickHouse client. Schema creation happens when the app starts.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	c := cfg.ClickHouse
	client, err := pkgch.NewClient(
		pkgch.WithHost(c.Host),
		pkgch.WithPort(c.Port),
		pkgch.WithDatabase(c.Database),
		pkgch.WithCredentials(c.User, c.Password),
		pkgch.WithMaxConnections(c.MaxOpenConns, c.MaxOpenConns/2+1),
		pkgch.WithHTTP(c.UseHTTP),
		pkgch.WithAsyncInsert(c.AsyncInsert, c.WaitForAsync),
		pkgch.WithTimeouts(c.DialTimeout, c.ReadTimeout),
		pkgch.WithMaxExecutionTime(c.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, nil
}

// ProvideMarketStore creates the ClickHouse-backed market store.
func ProvideMarketStore(ch *pkgch.Client, l *applogger.Logger) repository.MarketStore {
	s := internalrepo.NewCHMarketStore(ch)
	s.SetLogger(l)
	return s
}

// ProvideKafkaProducer creates a Kafka producer. No brokers means publishing is disabled and nil is returned.
func ProvideKafkaProducer(cfg *config.Config, r *metrics.Recorder) (*pkgkafka.Producer, error) {
	k := cfg.Kafka
	if len(k.Brokers) == 0 {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(k.Brokers),
		pkgkafka.WithCompression(k.Compression),
		pkgkafka.WithRequiredAcks(k.RequiredAcks),
		pkgkafka.WithMaxAttempts(k.MaxAttempts),
		pkgkafka.WithBatching(k.BatchSize, k.BatchBytes, k.BatchTimeout),
		pkgkafka.WithTimeouts(k.WriteTimeout, k.WriteTimeout),
		pkgkafka.WithHashByKey(true),
		pkgkafka.WithAutoCreateTopics(k.AutoCreate),
		pkgkafka.WithRegisterer(r.Registry()),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvidePanelPublisher wraps the producer. It returns nil when publishing is disabled.
func ProvidePanelPublisher(producer *pkgkafka.Producer, cfg *config.Config, l *applogger.Logger) repository.PanelPublisher {
	if producer == nil {
		return nil
	}
	pub := internalrepo.NewKafkaPanelPublisher(producer, cfg.Kafka.Topic, cfg.Kafka.BatchSize)
	pub.SetLogger(l)
	return pub
}

// ProvideResponseCache layers memory over Redis when an address is configured and keeps the cache in process otherwise.
func ProvideResponseCache(cfg *config.Config, l *applogger.Logger) (cache.BytesCache, func(), error) {
	if cfg.Redis.Addr == "" {
		return cache.NewTTLCache(), func() {}, nil
	}
	rc := cache.NewRedisCache(cache.RedisConfig{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		Prefix:   cfg.Redis.Prefix,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rc.Ping(ctx); err != nil {
		_ = rc.Close()
		return nil, nil, fmt.Errorf("redis ping: %w", err)
	}
	cleanup := func() {
		if err := rc.Close(); err != nil {
			l.Warn("redis close error", applogger.Error(err))
		}
	}
	return cache.NewLayeredCache(rc), cleanup, nil
}

// ProvidePriceSource creates the Alpha Vantage client.
func ProvidePriceSource(cfg *config.Config, c cache.BytesCache, r *metrics.Recorder, l *applogger.Logger) (repository.PriceSource, error) {
	av := cfg.AlphaVantage
	loc, err := panel.LoadLocation(cfg.Pipeline.Timezone)
	if err != nil {
		return nil, err
	}
	client, err := alphavantage.New(alphavantage.Config{
		APIKey:     av.APIKey,
		BaseURL:    av.BaseURL,
		OutputSize: av.OutputSize,
		CacheTTL:   av.CacheTTL,
		Location:   loc,
	}, pkghttp.NewClient(pkghttp.WithTimeout(av.Timeout)), c, ratelimit.NewPacer(av.Pace))
	if err != nil {
		return nil, err
	}
	client.SetLogger(l)
	client.SetObserver(r)
	return client, nil
}

// ProvideEventSource creates the Finviz client.
func ProvideEventSource(cfg *config.Config, c cache.BytesCache, r *metrics.Recorder, l *applogger.Logger) (repository.EventSource, error) {
	fv := cfg.Finviz
	loc, err := panel.LoadLocation(cfg.Pipeline.Timezone)
	if err != nil {
		return nil, err
	}
	if fv.Cookie == "" {
		l.Warn("finviz cookie is empty; event pages may be incomplete")
	}
	httpc := pkghttp.NewClient(
		pkghttp.WithTimeout(fv.Timeout),
		pkghttp.WithUserAgent(fv.UserAgent),
	)
	client := finviz.New(finviz.Config{
		BaseURL:  fv.BaseURL,
		Cookie:   fv.Cookie,
		CacheTTL: fv.CacheTTL,
		Location: loc,
	}, httpc, c, ratelimit.NewPacer(fv.Pace))
	client.SetLogger(l)
	client.SetObserver(r)
	return client, nil
}

// ProvideReferenceSource reads screener exports from reference.dir. It returns nil when no directory is set.
func ProvideReferenceSource(cfg *config.Config, l *applogger.Logger) repository.ReferenceSource {
	if cfg.Reference.Dir == "" {
		return nil
	}
	src := reference.New(cfg.Reference.Dir, cfg.Reference.IndexFiles)
	src.SetLogger(l)
	return src
}

// ProvideIngestor creates the ingest use case.
func ProvideIngestor(
	prices repository.PriceSource,
	events repository.EventSource,
	ref repository.ReferenceSource,
	store repository.MarketStore,
	m repository.Metrics,
	cfg *config.Config,
	l *applogger.Logger,
) *usecase.Ingestor {
	ing := usecase.NewIngestor(prices, events, store, m, cfg.Store.UpdateExisting)
	ing.SetReference(ref)
	ing.SetLogger(l)
	return ing
}

// ProvidePipelineConfig turns the pipeline and labeling sections into immutable run options.
func ProvidePipelineConfig(cfg *config.Config) (usecase.PipelineConfig, error) {
	pc, lc := cfg.Pipeline, cfg.Labeling

	opts := panel.DefaultOptions()
	loc, err := panel.LoadLocation(pc.Timezone)
	if err != nil {
		return usecase.PipelineConfig{}, err
	}
	opts.Location = loc
	opts.SMAWindows = pc.SMAWindows
	if len(pc.HighLowWindows) > 0 {
		opts.HighLowWindows = pc.HighLowWindows
	}
	opts.LagColumns = pc.LagColumns
	opts.LagSteps = pc.LagSteps
	opts.LagStep = pc.LagStep
	opts.Future = pc.Future
	if err := opts.Validate(); err != nil {
		return usecase.PipelineConfig{}, err
	}

	agg, err := labeling.ParseAggregation(lc.Target)
	if err != nil {
		return usecase.PipelineConfig{}, err
	}
	rule, err := labeling.ParseRule(lc.Rule)
	if err != nil {
		return usecase.PipelineConfig{}, err
	}
	minDate, err := config.Date(lc.MinDate, loc)
	if err != nil {
		return usecase.PipelineConfig{}, fmt.Errorf("labeling.min_date: %w", err)
	}
	cutoff, err := config.Date(lc.CutoffDate, loc)
	if err != nil {
		return usecase.PipelineConfig{}, fmt.Errorf("labeling.cutoff_date: %w", err)
	}

	sc := split.Config{
		Target:                labeling.TargetSpec{Aggregation: agg, Horizon: lc.Horizon},
		DropColumns:           lc.DropColumns,
		MinDate:               minDate,
		Rule:                  rule,
		Ichimoku:              opts.IchimokuColumns(),
		Cutoff:                cutoff,
		HoldoutRows:           lc.HoldoutRows,
		EarningsExclusionDays: lc.EarningsExclusionDays,
	}
	if !lc.SkipStationarity {
		sc.Gate = labeling.Gate{Threshold: lc.StationarityPValue}
	}
	if err := sc.Validate(); err != nil {
		return usecase.PipelineConfig{}, err
	}

	return usecase.PipelineConfig{
		Symbols:               pc.Symbols,
		Benchmarks:            pc.Benchmarks,
		Workers:               pc.Workers,
		Panel:                 opts,
		Split:                 sc,
		ProviderAdjustedClose: pc.ProviderAdjustedClose,
		PersistIndicators:     pc.PersistIndicators,
		UpdateExisting:        cfg.Store.UpdateExisting,
	}, nil
}

// ProvidePipeline creates the panel pipeline use case.
func ProvidePipeline(
	store repository.MarketStore,
	pub repository.PanelPublisher,
	m repository.Metrics,
	pcfg usecase.PipelineConfig,
	l *applogger.Logger,
) *usecase.Pipeline {
	p := usecase.NewPipeline(store, pub, m, pcfg)
	p.SetLogger(l)
	return p
}

// ProvideApp creates the batch application.
func ProvideApp(
	cfg *config.Config,
	store repository.MarketStore,
	ing *usecase.Ingestor,
	pipe *usecase.Pipeline,
	pub repository.PanelPublisher,
	r *metrics.Recorder,
	l *applogger.Logger,
) *server.App {
	return server.New(cfg, store, ing, pipe, pub, r, l)
}

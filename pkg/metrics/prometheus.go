package metrics

import (
	"context"
	"fmt"
	"time"

	"FinPanel/internal/domain/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Recorder implements domain.repository.Metrics using Prometheus.
// It owns its registry so a run can be pushed without process-global state.
type Recorder struct {
	reg *prometheus.Registry

	instruments   *prometheus.CounterVec
	skips         *prometheus.CounterVec
	rows          *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	providerCalls *prometheus.CounterVec
	providerTime  *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Recorder{
		reg: reg,
		instruments: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finpanel_instruments_processed_total",
				Help: "Instruments handled by a run, by result",
			},
			[]string{"result"},
		),
		skips: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finpanel_instruments_skipped_total",
				Help: "Instruments left out of a run, by stage",
			},
			[]string{"stage"},
		),
		rows: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finpanel_panel_rows_total",
				Help: "Rows written per split",
			},
			[]string{"split"},
		),
		stageDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "finpanel_stage_duration_seconds",
				Help:    "Duration of pipeline stages in seconds",
				Buckets: prometheus.ExponentialBuckets(0.005, 4, 10),
			},
			[]string{"stage"},
		),
		providerCalls: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finpanel_provider_requests_total",
				Help: "Provider requests by provider and result",
			},
			[]string{"provider", "result"},
		),
		providerTime: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "finpanel_provider_request_seconds",
				Help:    "Provider request latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"provider"},
		),
	}
}

// Registry exposes the recorder's registry, e.g. for the Kafka producer metrics.
func (r *Recorder) Registry() *prometheus.Registry { return r.reg }

// RecordInstrument counts an instrument by result ("processed", "skipped", "failed").
func (r *Recorder) RecordInstrument(result string) {
	r.instruments.WithLabelValues(result).Inc()
}

// RecordSkip counts a skip at stage.
func (r *Recorder) RecordSkip(stage models.Stage) {
	r.skips.WithLabelValues(string(stage)).Inc()
}

// RecordRows adds n rows to split.
func (r *Recorder) RecordRows(split string, n int) {
	r.rows.WithLabelValues(split).Add(float64(n))
}

// RecordStageDuration records stage latency in seconds.
func (r *Recorder) RecordStageDuration(stage models.Stage, seconds float64) {
	r.stageDuration.WithLabelValues(string(stage)).Observe(seconds)
}

// ObserveProviderCall records one provider request.
func (r *Recorder) ObserveProviderCall(provider string, d time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.providerCalls.WithLabelValues(provider, result).Inc()
	r.providerTime.WithLabelValues(provider).Observe(d.Seconds())
}

// Push sends every metric of the registry to a Pushgateway under job.
func (r *Recorder) Push(ctx context.Context, url, job string) error {
	if url == "" {
		return nil
	}
	if err := push.New(url, job).Gatherer(r.reg).PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}

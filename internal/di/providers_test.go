package di

import (
	"context"
	"testing"
	"time"

	"FinPanel/internal/service/cache"
	"FinPanel/internal/services/labeling"
	"FinPanel/pkg/config"
	applogger "FinPanel/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T, extra string) *config.Config {
	t.Helper()
	c, err := config.Parse([]byte(`
environment: test
alphavantage:
  api_key: demo
pipeline:
  lag_columns: [rsi_14]
  lag_steps: 2
`+extra), nil)
	require.NoError(t, err)
	return c
}

func TestProvidePipelineConfigCutoff(t *testing.T) {
	cfg := testConfig(t, `
labeling:
  target: mean
  rule: cloud_crossover
  cutoff_date: '2023-01-03'
  min_date: '2010-01-04'
  earnings_exclusion_days: 3
`)
	pc, err := ProvidePipelineConfig(cfg)
	require.NoError(t, err)

	assert.Equal(t, labeling.AggMean, pc.Split.Target.Aggregation)
	assert.Equal(t, labeling.RuleCrossover, pc.Split.Rule)
	assert.Equal(t, 3, pc.Split.EarningsExclusionDays)
	assert.Equal(t, "America/New_York", pc.Split.Cutoff.Location().String())
	y, m, d := pc.Split.Cutoff.Date()
	assert.Equal(t, []int{2023, 1, 3}, []int{y, int(m), d})
	assert.False(t, pc.Split.MinDate.IsZero())
	assert.NotEmpty(t, pc.Split.Ichimoku.Conversion)
	assert.Equal(t, labeling.Gate{Threshold: 0.05}, pc.Split.Gate)

	assert.Equal(t, []string{"rsi_14"}, pc.Panel.LagColumns)
	assert.Equal(t, 2, pc.Panel.LagSteps)
	assert.Len(t, pc.Panel.HighLowWindows, 52)
	assert.Equal(t, 4, pc.Workers)
}

func TestProvidePipelineConfigHoldoutWithoutGate(t *testing.T) {
	cfg := testConfig(t, `
labeling:
  holdout_rows: 60
  skip_stationarity: true
`)
	pc, err := ProvidePipelineConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, 60, pc.Split.HoldoutRows)
	assert.True(t, pc.Split.Cutoff.IsZero())
	assert.Nil(t, pc.Split.Gate)
	assert.Equal(t, labeling.RuleNone, pc.Split.Rule)
}

func TestProvidePipelineConfigRejectsUnknownRule(t *testing.T) {
	cfg := testConfig(t, `
labeling:
  holdout_rows: 60
  rule: golden_cross
`)
	_, err := ProvidePipelineConfig(cfg)
	assert.ErrorIs(t, err, labeling.ErrUnknownRule)
}

func TestProvideResponseCacheInProcess(t *testing.T) {
	cfg := testConfig(t, "\nlabeling:\n  holdout_rows: 5\n")
	c, cleanup, err := ProvideResponseCache(cfg, applogger.Nop())
	require.NoError(t, err)
	defer cleanup()
	assert.IsType(t, &cache.TTLCache{}, c)

	ctx := context.Background()
	require.NoError(t, c.SetBytes(ctx, "k", []byte("v"), time.Minute))
	_, ok, err := c.GetBytes(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestProvidePublisherDisabledWithoutBrokers(t *testing.T) {
	cfg := testConfig(t, "\nlabeling:\n  holdout_rows: 5\n")
	producer, err := ProvideKafkaProducer(cfg, ProvideRecorder())
	require.NoError(t, err)
	assert.Nil(t, producer)
	assert.Nil(t, ProvidePanelPublisher(producer, cfg, applogger.Nop()))
}

func TestProvideReferenceSource(t *testing.T) {
	cfg := testConfig(t, "\nlabeling:\n  holdout_rows: 5\n")
	assert.Nil(t, ProvideReferenceSource(cfg, applogger.Nop()))

	cfg.Reference.Dir = t.TempDir()
	src := ProvideReferenceSource(cfg, applogger.Nop())
	require.NotNil(t, src)
	got, err := src.Instruments(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
}

package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimal = `
environment: test
alphavantage:
  api_key: demo
labeling:
  holdout_rows: 60
`

func TestParseAppliesDefaults(t *testing.T) {
	c, err := Parse([]byte(minimal), nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"SPY", "QQQ", "DIA", "IWM"}, c.Pipeline.Benchmarks)
	assert.Equal(t, []int{20, 50, 200}, c.Pipeline.SMAWindows)
	assert.Equal(t, 4, c.Pipeline.Workers)
	assert.Equal(t, "America/New_York", c.Pipeline.Timezone)
	assert.Equal(t, 1, c.Pipeline.LagStep)
	assert.Equal(t, "max", c.Labeling.Target)
	assert.Equal(t, 10, c.Labeling.Horizon)
	assert.Equal(t, 0.05, c.Labeling.StationarityPValue)
	assert.Equal(t, 100*time.Millisecond, c.AlphaVantage.Pace)
	assert.Equal(t, 3*time.Second, c.Finviz.Pace)
	assert.Equal(t, 9000, c.ClickHouse.Port)
	assert.Equal(t, -1, c.Kafka.RequiredAcks)
	assert.Equal(t, "finpanel", c.Metrics.Job)
}

func TestParseKeepsExplicitValues(t *testing.T) {
	c, err := Parse([]byte(`
pipeline:
  workers: 8
  sma_windows: [5, 10]
alphavantage:
  api_key: demo
  pace: 250ms
labeling:
  holdout_rows: 20
`), nil)
	require.NoError(t, err)
	assert.Equal(t, 8, c.Pipeline.Workers)
	assert.Equal(t, []int{5, 10}, c.Pipeline.SMAWindows)
	assert.Equal(t, 250*time.Millisecond, c.AlphaVantage.Pace)
}

func TestParseEnvOverrides(t *testing.T) {
	env := map[string]string{
		"ALPHAVANTAGE_API_KEY": "from-env",
		"SYMBOLS":              "aapl, msft",
		"KAFKA_BROKERS":        "k1:9092,k2:9092",
		"CLICKHOUSE_HOST":      "ch",
		"FINVIZ_COOKIE":        "auth=1",
	}
	c, err := Parse([]byte("labeling:\n  cutoff_date: '2023-01-02'\n"), func(k string) string { return env[k] })
	require.NoError(t, err)
	assert.Equal(t, "from-env", c.AlphaVantage.APIKey)
	assert.Equal(t, []string{"AAPL", "MSFT"}, c.Pipeline.Symbols)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, c.Kafka.Brokers)
	assert.Equal(t, "ch", c.ClickHouse.Host)
	assert.Equal(t, "auth=1", c.Finviz.Cookie)
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]string{
		"missing api key":   "labeling:\n  holdout_rows: 5\n",
		"no split mode":     "alphavantage:\n  api_key: k\n",
		"both split modes":  "alphavantage:\n  api_key: k\nlabeling:\n  holdout_rows: 5\n  cutoff_date: '2023-01-02'\n",
		"bad target":        minimal + "  target: median\n",
		"bad cutoff format": "alphavantage:\n  api_key: k\nlabeling:\n  cutoff_date: '01/02/2023'\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc), nil)
			assert.Error(t, err)
		})
	}
}

func TestLoadReadsExampleFile(t *testing.T) {
	path := filepath.Join("..", "..", "configs", "config.yaml")
	t.Setenv("ALPHAVANTAGE_API_KEY", "k")
	c, err := LoadWithEnv(path)
	require.NoError(t, err)
	assert.NotEmpty(t, c.ClickHouse.Database)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestDate(t *testing.T) {
	d, err := Date("", time.UTC)
	require.NoError(t, err)
	assert.True(t, d.IsZero())
	d, err = Date("2023-01-02", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, 2023, d.Year())
}

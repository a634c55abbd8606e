package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"FinPanel/pkg/util"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment  string             `yaml:"environment" default:"development" validate:"required,oneof=development staging production test"`
	Log          LogConfig          `yaml:"log"`
	Pipeline     PipelineConfig     `yaml:"pipeline"`
	Labeling     LabelingConfig     `yaml:"labeling"`
	Store        StoreConfig        `yaml:"store"`
	Reference    ReferenceConfig    `yaml:"reference"`
	AlphaVantage AlphaVantageConfig `yaml:"alphavantage"`
	Finviz       FinvizConfig       `yaml:"finviz"`
	ClickHouse   ClickHouseConfig   `yaml:"clickhouse"`
	Kafka        KafkaConfig        `yaml:"kafka"`
	Redis        RedisConfig        `yaml:"redis"`
	Metrics      MetricsConfig      `yaml:"metrics"`
}

type LogConfig struct {
	Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" default:"console" validate:"oneof=json console"`
	Output string `yaml:"output" default:"stdout"`
}

// PipelineConfig controls which instruments are processed and which features their panels carry.
type PipelineConfig struct {
	// Symbols to process. Empty means every instrument in the store.
	Symbols    []string `yaml:"symbols"`
	Benchmarks []string `yaml:"benchmarks" default:"[\"SPY\",\"QQQ\",\"DIA\",\"IWM\"]"`
	Workers    int      `yaml:"workers" default:"4" validate:"min=1,max=64"`
	Timezone   string   `yaml:"timezone" default:"America/New_York" validate:"required"`

	SMAWindows []int `yaml:"sma_windows" default:"[20,50,200]" validate:"dive,min=1"`
	// HighLowWindows defaults to weekly steps up to 364 days when empty.
	HighLowWindows []int    `yaml:"high_low_windows" validate:"dive,min=1"`
	LagColumns     []string `yaml:"lag_columns"`
	LagSteps       int      `yaml:"lag_steps" validate:"min=0"`
	LagStep        int      `yaml:"lag_step" default:"1" validate:"min=1"`
	Future         bool     `yaml:"future"`

	ProviderAdjustedClose bool `yaml:"provider_adjusted_close"`
	PersistIndicators     bool `yaml:"persist_indicators"`
}

// LabelingConfig controls the target, the row filters and the train/test split.
type LabelingConfig struct {
	Target                string   `yaml:"target" default:"max" validate:"oneof=max min mean last"`
	Horizon               int      `yaml:"horizon" default:"10" validate:"min=1"`
	Rule                  string   `yaml:"rule" default:"none"`
	MinDate               string   `yaml:"min_date" validate:"omitempty,datetime=2006-01-02"`
	DropColumns           []string `yaml:"drop_columns"`
	EarningsExclusionDays int      `yaml:"earnings_exclusion_days" validate:"min=0"`
	CutoffDate            string   `yaml:"cutoff_date" validate:"omitempty,datetime=2006-01-02"`
	HoldoutRows           int      `yaml:"holdout_rows" validate:"min=0"`
	StationarityPValue    float64  `yaml:"stationarity_pvalue" default:"0.05" validate:"gt=0,lt=1"`
	SkipStationarity      bool     `yaml:"skip_stationarity"`
}

// ReferenceConfig points at screener CSV exports with Ticker, Company, Sector and Industry
// columns. An empty Dir leaves the instrument reference table as it is.
type ReferenceConfig struct {
	Dir string `yaml:"dir"`
	// IndexFiles maps a file name in Dir to the index its tickers belong to.
	IndexFiles map[string]string `yaml:"index_files"`
}

type StoreConfig struct {
	UpdateExisting bool `yaml:"update_existing"`
}

type AlphaVantageConfig struct {
	APIKey     string        `yaml:"api_key" validate:"required"`
	BaseURL    string        `yaml:"base_url" default:"https://www.alphavantage.co/query" validate:"url"`
	OutputSize string        `yaml:"output_size" default:"full" validate:"oneof=full compact"`
	Pace       time.Duration `yaml:"pace" default:"100ms"`
	Timeout    time.Duration `yaml:"timeout" default:"30s"`
	CacheTTL   time.Duration `yaml:"cache_ttl" default:"12h"`
}

type FinvizConfig struct {
	BaseURL   string        `yaml:"base_url" default:"https://elite.finviz.com/quote.ashx" validate:"url"`
	Cookie    string        `yaml:"cookie"`
	UserAgent string        `yaml:"user_agent" default:"Mozilla/5.0 (X11; Linux x86_64)"`
	Pace      time.Duration `yaml:"pace" default:"3s"`
	Timeout   time.Duration `yaml:"timeout" default:"30s"`
	CacheTTL  time.Duration `yaml:"cache_ttl" default:"24h"`
}

type ClickHouseConfig struct {
	Host             string        `yaml:"host" default:"localhost" validate:"required"`
	Port             int           `yaml:"port" default:"9000" validate:"min=1,max=65535"`
	Database         string        `yaml:"database" default:"finpanel" validate:"required"`
	User             string        `yaml:"user" default:"default"`
	Password         string        `yaml:"password"`
	UseHTTP          bool          `yaml:"use_http"`
	AsyncInsert      bool          `yaml:"async_insert"`
	WaitForAsync     bool          `yaml:"wait_for_async_insert"`
	MaxOpenConns     int           `yaml:"max_open_conns" default:"8" validate:"min=1"`
	DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
	ReadTimeout      time.Duration `yaml:"read_timeout" default:"60s"`
	MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"60s"`
}

// KafkaConfig configures panel publishing. No brokers disables it.
type KafkaConfig struct {
	Brokers      []string      `yaml:"brokers"`
	Topic        string        `yaml:"topic" default:"finpanel.panel-rows"`
	RequiredAcks int           `yaml:"required_acks" default:"-1" validate:"oneof=-1 0 1"`
	Compression  string        `yaml:"compression" default:"gzip" validate:"oneof=gzip snappy lz4 zstd"`
	MaxAttempts  int           `yaml:"max_attempts" default:"3" validate:"min=1"`
	BatchSize    int           `yaml:"batch_size" default:"500" validate:"min=1"`
	BatchBytes   int           `yaml:"batch_bytes" default:"4194304" validate:"min=1"`
	BatchTimeout time.Duration `yaml:"batch_timeout" default:"200ms"`
	WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
	AutoCreate   bool          `yaml:"auto_create_topics"`
}

// RedisConfig configures the provider response cache. An empty address keeps the cache in process.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db" validate:"min=0"`
	Prefix   string `yaml:"prefix" default:"finpanel:"`
}

type MetricsConfig struct {
	PushgatewayURL string `yaml:"pushgateway_url" validate:"omitempty,url"`
	Job            string `yaml:"job" default:"finpanel"`
}

var validate = validator.New()

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	return load(path, nil)
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	return load(path, os.Getenv)
}

func load(path string, getenv func(string) string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b, getenv)
}

// Parse decodes YAML, fills defaults, applies environment overrides when getenv is set and validates.
func Parse(b []byte, getenv func(string) string) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	if getenv != nil {
		c.applyEnv(getenv)
	}
	if len(c.Pipeline.Symbols) > 0 {
		c.Pipeline.Symbols = util.UpperAll(c.Pipeline.Symbols)
	}
	c.Pipeline.Benchmarks = util.UpperAll(c.Pipeline.Benchmarks)
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	if v := getenv("ALPHAVANTAGE_API_KEY"); v != "" {
		c.AlphaVantage.APIKey = v
	}
	if v := getenv("FINVIZ_COOKIE"); v != "" {
		c.Finviz.Cookie = v
	}
	if v := getenv("SYMBOLS"); v != "" {
		c.Pipeline.Symbols = util.SplitList(v)
	}
	if v := getenv("REFERENCE_DIR"); v != "" {
		c.Reference.Dir = v
	}
	if v := getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}
	if v := getenv("CLICKHOUSE_PORT"); v != "" {
		c.ClickHouse.Port = util.ParseIntDefault(v, c.ClickHouse.Port)
	}
	if v := getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = util.SplitList(v)
	}
	if v := getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := getenv("PUSHGATEWAY_URL"); v != "" {
		c.Metrics.PushgatewayURL = v
	}
}

// Validate checks struct tags and cross-field rules.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
			}
			return errors.New(strings.Join(msgs, "; "))
		}
		return err
	}
	if (c.Labeling.CutoffDate == "") == (c.Labeling.HoldoutRows == 0) {
		return fmt.Errorf("labeling: set exactly one of cutoff_date and holdout_rows")
	}
	return nil
}

// Date parses a YYYY-MM-DD setting in loc. Empty yields the zero time.
func Date(s string, loc *time.Location) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return util.ParseDate(s, loc)
}

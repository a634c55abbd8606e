// Package alphavantage fetches daily adjusted price history from Alpha Vantage.
package alphavantage

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"FinPanel/internal/domain/models"
	"FinPanel/internal/service/cache"
	"FinPanel/internal/service/ratelimit"
	pkghttp "FinPanel/pkg/http"
	applogger "FinPanel/pkg/logger"
)

const DefaultBaseURL = "https://www.alphavantage.co/query"

// Config configures the client.
type Config struct {
	APIKey     string
	BaseURL    string
	OutputSize string // "full" or "compact"
	CacheTTL   time.Duration
	Location   *time.Location
}

// Client implements repository.PriceSource.
type Client struct {
	cfg   Config
	http  *pkghttp.Client
	cache cache.BytesCache
	pacer *ratelimit.Pacer
	obs   CallObserver
	l     *applogger.Logger
}

// CallObserver records provider request outcomes.
type CallObserver interface {
	ObserveProviderCall(provider string, d time.Duration, err error)
}

// New creates a client. cache may be nil.
func New(cfg Config, httpc *pkghttp.Client, c cache.BytesCache, pacer *ratelimit.Pacer) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("alphavantage: api key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.OutputSize == "" {
		cfg.OutputSize = "full"
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if pacer == nil {
		pacer = ratelimit.NewPacer(0)
	}
	return &Client{cfg: cfg, http: httpc, cache: c, pacer: pacer}, nil
}

// SetLogger injects a structured logger.
func (c *Client) SetLogger(l *applogger.Logger) { c.l = l }

// SetObserver injects a request observer.
func (c *Client) SetObserver(o CallObserver) { c.obs = o }

func (c *Client) observe(start time.Time, err error) {
	if c.obs != nil {
		c.obs.ObserveProviderCall("alphavantage", time.Since(start), err)
	}
}

// DailyAdjusted returns the full daily history of symbol, oldest first.
func (c *Client) DailyAdjusted(ctx context.Context, symbol string) ([]models.PriceBar, error) {
	symbol = strings.ToUpper(symbol)
	key := cache.Key("av", "daily", c.cfg.OutputSize, symbol)

	if c.cache != nil {
		body, ok, err := c.cache.GetBytes(ctx, key)
		if err != nil && c.l != nil {
			c.l.Warn("alphavantage cache read failed", applogger.String("symbol", symbol), applogger.Error(err))
		}
		if ok {
			if bars, err := parseDailyAdjusted(symbol, body, c.cfg.Location); err == nil {
				return bars, nil
			}
		}
	}

	if err := c.pacer.Wait(ctx); err != nil {
		return nil, err
	}
	start := time.Now()
	body, err := c.http.Get(ctx, pkghttp.Request{
		URL: c.cfg.BaseURL,
		Query: url.Values{
			"function":   {"TIME_SERIES_DAILY_ADJUSTED"},
			"symbol":     {symbol},
			"outputsize": {c.cfg.OutputSize},
			"datatype":   {"json"},
			"apikey":     {c.cfg.APIKey},
		},
	})
	if err != nil {
		c.observe(start, err)
		return nil, fmt.Errorf("alphavantage daily %s: %w", symbol, err)
	}

	bars, err := parseDailyAdjusted(symbol, body, c.cfg.Location)
	c.observe(start, err)
	if err != nil {
		return nil, err
	}
	if c.l != nil {
		c.l.Debug("alphavantage daily fetched",
			applogger.String("symbol", symbol),
			applogger.Int("bars", len(bars)),
			applogger.Duration("took_ms", time.Since(start)),
		)
	}
	if c.cache != nil && c.cfg.CacheTTL > 0 {
		if err := c.cache.SetBytes(ctx, key, body, c.cfg.CacheTTL); err != nil && c.l != nil {
			c.l.Warn("alphavantage cache write failed", applogger.String("symbol", symbol), applogger.Error(err))
		}
	}
	return bars, nil
}

// Package finviz reads corporate events embedded in Finviz quote pages.
package finviz

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

const DefaultBaseURL = "https://elite.finviz.com/quote.ashx"

// Config configures the client. Cookie is a logged-in session cookie.
type Config struct {
	BaseURL  string
	Cookie   string
	CacheTTL time.Duration
	Location *time.Location
}

// Client implements repository.EventSource.
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
func New(cfg Config, httpc *pkghttp.Client, c cache.BytesCache, pacer *ratelimit.Pacer) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if pacer == nil {
		pacer = ratelimit.NewPacer(0)
	}
	return &Client{cfg: cfg, http: httpc, cache: c, pacer: pacer}
}

// SetLogger injects a structured logger.
func (c *Client) SetLogger(l *applogger.Logger) { c.l = l }

// SetObserver injects a request observer.
func (c *Client) SetObserver(o CallObserver) { c.obs = o }

func (c *Client) observe(start time.Time, err error) {
	if c.obs != nil {
		c.obs.ObserveProviderCall("finviz", time.Since(start), err)
	}
}

// Events returns the earnings, dividend and split events shown on the symbol's daily chart.
func (c *Client) Events(ctx context.Context, symbol string) ([]models.Event, error) {
	symbol = strings.ToUpper(symbol)
	page, err := c.page(ctx, symbol)
	if err != nil {
		return nil, err
	}
	events, skipped, err := parseQuotePage(symbol, page, c.cfg.Location)
	if err != nil {
		return nil, err
	}
	if len(skipped) > 0 && c.l != nil {
		c.l.Debug("finviz unknown event types ignored",
			applogger.String("symbol", symbol),
			applogger.Strings("types", skipped),
		)
	}
	return events, nil
}

func (c *Client) page(ctx context.Context, symbol string) ([]byte, error) {
	key := cache.Key("finviz", "quote", symbol)
	if c.cache != nil {
		if b, ok, err := c.cache.GetBytes(ctx, key); err == nil && ok {
			return b, nil
		}
	}

	if err := c.pacer.Wait(ctx); err != nil {
		return nil, err
	}
	headers := map[string]string{"Accept": "text/html"}
	if c.cfg.Cookie != "" {
		headers["Cookie"] = c.cfg.Cookie
	}
	start := time.Now()
	body, err := c.http.Get(ctx, pkghttp.Request{
		URL:     c.cfg.BaseURL,
		Headers: headers,
		Query:   url.Values{"t": {symbol}, "p": {"d"}},
	})
	c.observe(start, err)
	if err != nil {
		return nil, fmt.Errorf("finviz quote %s: %w", symbol, err)
	}

	if c.cache != nil && c.cfg.CacheTTL > 0 {
		if err := c.cache.SetBytes(ctx, key, body, c.cfg.CacheTTL); err != nil && c.l != nil {
			c.l.Warn("finviz cache write failed", applogger.String("symbol", symbol), applogger.Error(err))
		}
	}
	return body, nil
}

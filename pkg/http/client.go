package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// ClientOption configures Client.
type ClientOption func(*Client)

// Request is a provider GET request.
type Request struct {
	URL     string
	Query   url.Values
	Headers map[string]string
}

// Client fetches provider resources with a timeout, default headers and bounded retries
// of temporary failures.
type Client struct {
	timeout   time.Duration
	userAgent string
	headers   map[string]string
	transport http.RoundTripper
	retries   int
	backoff   time.Duration
	maxBody   int64
	client    *http.Client
}

// NewClient creates a new HTTP client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		timeout:   30 * time.Second,
		userAgent: "finpanel/1.0",
		headers:   map[string]string{},
		retries:   2,
		backoff:   time.Second,
		maxBody:   64 << 20,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.client = &http.Client{Timeout: c.timeout, Transport: c.transport}
	return c
}

// Get returns the body of a 2xx response. 429, 5xx and transport errors are retried
// with doubling backoff; any other status fails at once with a *StatusError.
func (c *Client) Get(ctx context.Context, r Request) ([]byte, error) {
	wait := c.backoff
	for attempt := 0; ; attempt++ {
		body, err := c.get(ctx, r)
		if err == nil || attempt >= c.retries || !retryable(err) {
			return body, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
		wait *= 2
	}
}

func (c *Client) get(ctx context.Context, r Request) ([]byte, error) {
	req, err := c.newRequest(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &StatusError{Status: resp.StatusCode, URL: r.URL, Body: string(snippet)}
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

func (c *Client) newRequest(ctx context.Context, r Request) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.URL, nil)
	if err != nil {
		return nil, err
	}
	if len(r.Query) > 0 {
		q := req.URL.Query()
		for key, values := range r.Query {
			for _, v := range values {
				q.Add(key, v)
			}
		}
		req.URL.RawQuery = q.Encode()
	}

	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}
	for key, value := range r.Headers {
		req.Header.Set(key, value)
	}
	return req, nil
}

func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Temporary()
	}
	return true
}

// WithTimeout sets client timeout.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) { c.userAgent = ua }
}

// WithHeader adds a header sent with every request.
func WithHeader(key, value string) ClientOption {
	return func(c *Client) { c.headers[key] = value }
}

// WithTransport replaces the round tripper.
func WithTransport(rt http.RoundTripper) ClientOption {
	return func(c *Client) { c.transport = rt }
}

// WithRetry sets how many times a temporary failure is retried and the first backoff.
func WithRetry(retries int, backoff time.Duration) ClientOption {
	return func(c *Client) {
		c.retries = max(retries, 0)
		c.backoff = backoff
	}
}

// WithMaxBodySize caps how many bytes of a response body are read.
func WithMaxBodySize(n int64) ClientOption {
	return func(c *Client) { c.maxBody = n }
}

// Package fetch issues throttled HTTP requests against rate-limited
// external APIs with retry, backoff, and cooldown handling. Failures
// never propagate as panics; callers get a nil payload plus an error
// value describing the soft failure and decide whether to continue.
package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"time"

	"github.com/mgh3326/rent-radar/internal/logger"
)

// HTTP status codes handled by the retry loop.
const (
	statusOK           = 200
	statusTooManyReqs  = 429
	statusServerErrLow = 500
)

// maxResponseBodyBytes limits the size of fetched responses.
const maxResponseBodyBytes = 10 * 1024 * 1024 // 10 MB

// Transport tuning for the shared HTTP client.
const (
	defaultMaxIdleConns        = 100
	defaultMaxIdleConnsPerHost = 10
	defaultIdleConnTimeout     = 90 * time.Second
)

// Config controls retry, backoff, and throttling behavior. All delays
// are operationally tuned; zero values fall back to conservative
// defaults in NewClient.
type Config struct {
	RequestTimeout    time.Duration
	InterRequestDelay time.Duration
	MaxRetries        int
	BaseDelay         time.Duration
	MaxBackoff        time.Duration
	JitterRatio       float64
	CooldownThreshold int
	Cooldown          time.Duration
}

// Client performs throttled JSON/text fetches against one source.
// It is not safe for concurrent use: the consecutive-429 counter is
// run-scoped state, and crawl runs process their request matrix
// strictly sequentially anyway.
type Client struct {
	httpClient *http.Client
	cfg        Config
	headers    map[string]string
	log        logger.Logger
	metrics    *Metrics

	consecutive429 int
}

// NewClient creates a fetch client for one source. headers are sent
// with every request.
func NewClient(cfg Config, headers map[string]string, log logger.Logger) *Client {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = time.Second
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 30 * time.Second
	}
	if cfg.CooldownThreshold <= 0 {
		cfg.CooldownThreshold = 3
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = time.Minute
	}
	if log == nil {
		log = logger.NewNop()
	}

	transport := &http.Transport{
		MaxIdleConns:        defaultMaxIdleConns,
		MaxIdleConnsPerHost: defaultMaxIdleConnsPerHost,
		IdleConnTimeout:     defaultIdleConnTimeout,
	}

	return &Client{
		httpClient: &http.Client{
			Timeout:   cfg.RequestTimeout,
			Transport: transport,
		},
		cfg:     cfg,
		headers: headers,
		log:     log,
		metrics: NewMetrics(),
	}
}

// Metrics returns the run-level retry/cooldown counters.
func (c *Client) Metrics() *Metrics {
	return c.metrics
}

// StartRun clears run-scoped state. Crawlers call it at the top of
// Run so a client reused across scheduled runs reports per-run
// counters instead of cumulative totals.
func (c *Client) StartRun() {
	c.consecutive429 = 0
	c.metrics.Reset()
}

// Throttle sleeps the configured inter-request delay. This politeness
// delay is independent of retry backoff.
func (c *Client) Throttle(ctx context.Context) error {
	return sleepCtx(ctx, c.cfg.InterRequestDelay)
}

// GetJSON fetches url with params and decodes the response as a JSON
// object. Retries 429 and 5xx with exponential backoff; other errors
// return (nil, err) immediately with no retry. A payload that is not
// a JSON object is a failure, never a panic.
func (c *Client) GetJSON(ctx context.Context, rawURL string, params url.Values) (map[string]any, error) {
	body, err := c.getWithRetry(ctx, rawURL, params)
	if err != nil {
		return nil, err
	}

	var payload map[string]any
	if unmarshalErr := json.Unmarshal(body, &payload); unmarshalErr != nil {
		c.metrics.RecordFailure()
		c.log.Warn("non-object JSON payload", logger.String("url", rawURL))
		return nil, fmt.Errorf("decode JSON payload: %w", unmarshalErr)
	}

	return payload, nil
}

// GetText fetches url with params and returns the raw response body.
// Used for XML endpoints; the same retry rules apply.
func (c *Client) GetText(ctx context.Context, rawURL string, params url.Values) (string, error) {
	body, err := c.getWithRetry(ctx, rawURL, params)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// getWithRetry runs the attempt loop: MaxRetries+1 attempts total.
func (c *Client) getWithRetry(ctx context.Context, rawURL string, params url.Values) ([]byte, error) {
	var lastStatus int

	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		body, status, err := c.getOnce(ctx, rawURL, params)
		if err != nil {
			// Transport-level failures are soft: logged and surfaced
			// to the caller without retry.
			c.metrics.RecordFailure()
			c.log.Warn("request failed", logger.String("url", rawURL), logger.Error(err))
			return nil, err
		}

		switch {
		case status == statusOK:
			c.consecutive429 = 0
			return body, nil

		case status == statusTooManyReqs:
			lastStatus = status
			c.metrics.RecordRetry()
			c.consecutive429++
			if c.consecutive429 >= c.cfg.CooldownThreshold {
				c.metrics.RecordCooldown()
				c.consecutive429 = 0
				c.log.Warn("rate limit cooldown",
					logger.String("url", rawURL),
					logger.Duration("cooldown", c.cfg.Cooldown),
				)
				if sleepErr := sleepCtx(ctx, c.cfg.Cooldown); sleepErr != nil {
					return nil, sleepErr
				}
			} else if attempt < c.cfg.MaxRetries {
				if sleepErr := sleepCtx(ctx, c.backoff(attempt)); sleepErr != nil {
					return nil, sleepErr
				}
			}

		case status >= statusServerErrLow:
			lastStatus = status
			c.metrics.RecordRetry()
			c.consecutive429 = 0
			if attempt < c.cfg.MaxRetries {
				if sleepErr := sleepCtx(ctx, c.backoff(attempt)); sleepErr != nil {
					return nil, sleepErr
				}
			}

		default:
			// 4xx other than 429: not retryable.
			c.metrics.RecordFailure()
			c.consecutive429 = 0
			return nil, fmt.Errorf("http status %d for %s", status, rawURL)
		}
	}

	c.metrics.RecordFailure()
	return nil, fmt.Errorf("retry budget exhausted for %s (last status %d)", rawURL, lastStatus)
}

// getOnce performs a single HTTP GET.
func (c *Client) getOnce(ctx context.Context, rawURL string, params url.Values) ([]byte, int, error) {
	reqURL := rawURL
	if len(params) > 0 {
		reqURL = rawURL + "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("http fetch: %w", err)
	}
	defer resp.Body.Close()

	limited := io.LimitReader(resp.Body, maxResponseBodyBytes)
	body, readErr := io.ReadAll(limited)
	if readErr != nil {
		return nil, resp.StatusCode, fmt.Errorf("read response body: %w", readErr)
	}

	return body, resp.StatusCode, nil
}

// backoff computes the jittered exponential delay for an attempt:
// BaseDelay * 2^attempt capped at MaxBackoff, with ±JitterRatio
// spread to avoid synchronized retries across workers.
func (c *Client) backoff(attempt int) time.Duration {
	delay := c.cfg.BaseDelay << uint(attempt)
	if delay > c.cfg.MaxBackoff || delay <= 0 {
		delay = c.cfg.MaxBackoff
	}
	if c.cfg.JitterRatio > 0 {
		spread := 1 + c.cfg.JitterRatio*(2*rand.Float64()-1)
		delay = time.Duration(float64(delay) * spread)
	}
	return delay
}

// sleepCtx sleeps for d or returns early when the context ends.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// Package zigbang crawls the Zigbang rental API. Apartments use the
// catalog endpoint; villas and officetels use search with a per-item
// detail fallback. The two paths are deliberately distinct strategies,
// not redundant variants.
package zigbang

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/mgh3326/rent-radar/internal/crawler"
	"github.com/mgh3326/rent-radar/internal/domain"
	"github.com/mgh3326/rent-radar/internal/fetch"
	"github.com/mgh3326/rent-radar/internal/logger"
)

const defaultBaseURL = "https://apis.zigbang.com/v2"

var defaultHeaders = map[string]string{
	"User-Agent":      "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	"Referer":         "https://zigbang.com/",
	"Accept":          "application/json, text/plain, */*",
	"Accept-Language": "ko-KR,ko;q=0.9,en-US;q=0.8,en;q=0.7",
}

// DefaultHeaders returns the browser-like headers for the Zigbang API.
func DefaultHeaders() map[string]string {
	headers := make(map[string]string, len(defaultHeaders))
	for key, value := range defaultHeaders {
		headers[key] = value
	}
	return headers
}

// Search request codes per property type, in crawl order. Apartments
// are absent here: they go through the catalog path instead.
var searchPropertyTypes = []string{"빌라/연립", "오피스텔"}

var searchTypeCodes = map[string]string{
	"빌라/연립": "A2",
	"오피스텔":  "A4",
}

// Crawler fetches Zigbang rental listings across the configured
// (region name x property type x rent type) matrix.
type Crawler struct {
	client      *fetch.Client
	log         logger.Logger
	baseURL     string
	regionNames []string

	rowCooldownEvery int
	rowCooldown      time.Duration

	metrics domain.RunMetrics
}

// Option customizes a Crawler.
type Option func(*Crawler)

// WithBaseURL overrides the API base URL (tests point it at a local server).
func WithBaseURL(baseURL string) Option {
	return func(c *Crawler) { c.baseURL = baseURL }
}

// WithRowCooldown configures the extra sleep inserted every N
// accumulated rows, independent of per-request throttling.
func WithRowCooldown(every int, d time.Duration) Option {
	return func(c *Crawler) {
		c.rowCooldownEvery = every
		c.rowCooldown = d
	}
}

// New creates a Zigbang crawler over the given district names.
func New(client *fetch.Client, log logger.Logger, regionNames []string, opts ...Option) *Crawler {
	c := &Crawler{
		client:           client,
		log:              log,
		baseURL:          defaultBaseURL,
		regionNames:      regionNames,
		rowCooldownEvery: 20,
		rowCooldown:      2 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Source implements crawler.ListingCrawler.
func (c *Crawler) Source() string { return "zigbang" }

// Metrics returns diagnostics from the most recent run.
func (c *Crawler) Metrics() domain.RunMetrics { return c.metrics }

// run state shared by the two fetch strategies.
type runState struct {
	rows          []domain.ListingRecord
	errs          []string
	metrics       domain.RunMetrics
	seen          map[string]struct{}
	schemaSampler *domain.KeySampler
	sourceSampler *domain.KeySampler
}

// Run fetches and parses Zigbang listings. Returns
// *domain.SchemaMismatchError when raw items were observed but none
// parsed; an empty configured matrix is a legitimate empty result.
func (c *Crawler) Run(ctx context.Context) (*domain.CrawlResult[domain.ListingRecord], error) {
	c.client.StartRun()

	state := &runState{
		seen:          map[string]struct{}{},
		schemaSampler: domain.NewKeySampler(),
		sourceSampler: domain.NewKeySampler(),
	}

	if len(c.regionNames) == 0 {
		c.log.Warn("no region names configured, returning empty result")
		c.metrics = state.metrics
		return &domain.CrawlResult[domain.ListingRecord]{}, nil
	}

	for _, regionName := range c.regionNames {
		if err := c.crawlAptCatalog(ctx, state, regionName); err != nil {
			return nil, err
		}
		for _, propertyType := range searchPropertyTypes {
			for _, rentCode := range []string{"G1", "G2"} {
				if err := c.crawlSearch(ctx, state, regionName, propertyType, rentCode); err != nil {
					return nil, err
				}
			}
		}
	}

	state.metrics.SchemaKeySamples = state.schemaSampler.Samples()
	state.metrics.SourceKeySamples = state.sourceSampler.Samples()
	state.metrics.RetryCount, state.metrics.CooldownCount, _ = c.client.Metrics().Snapshot()
	c.metrics = state.metrics

	if state.metrics.RawCount > 0 && state.metrics.ParsedCount == 0 {
		return nil, &domain.SchemaMismatchError{Source: c.Source(), Metrics: state.metrics}
	}

	c.log.Info("zigbang crawl finished",
		logger.Int("rows", len(state.rows)),
		logger.Int("errors", len(state.errs)),
	)

	return &domain.CrawlResult[domain.ListingRecord]{
		Count:  len(state.rows),
		Rows:   state.rows,
		Errors: state.errs,
	}, nil
}

// crawlAptCatalog runs the apartment strategy: one catalog request per
// region covering both rent types.
func (c *Crawler) crawlAptCatalog(ctx context.Context, state *runState, regionName string) error {
	if err := c.client.Throttle(ctx); err != nil {
		return err
	}

	params := url.Values{}
	params.Set("q", regionName)
	params.Set("typeCode", "A1")

	payload, err := c.client.GetJSON(ctx, c.baseURL+"/apt/catalog", params)
	if err != nil {
		state.errs = append(state.errs, fmt.Sprintf("zigbang apt catalog region=%s: %v", regionName, err))
		c.log.Warn("apt catalog fetch failed", logger.String("region", regionName), logger.Error(err))
		return nil
	}

	items := crawler.AsList(crawler.FirstValue(payload, "catalog", "items"))
	c.consumeItems(ctx, state, items, regionName, false)

	c.log.Info("fetched apt catalog",
		logger.String("region", regionName),
		logger.Int("count", len(items)),
	)
	return nil
}

// crawlSearch runs the search strategy for one matrix cell, with the
// per-item detail fallback for abbreviated summaries.
func (c *Crawler) crawlSearch(ctx context.Context, state *runState, regionName, propertyType, rentCode string) error {
	if err := c.client.Throttle(ctx); err != nil {
		return err
	}

	params := url.Values{}
	params.Set("q", regionName)
	params.Set("typeCode", searchTypeCodes[propertyType])
	params.Set("salesTypeCode", rentCode)

	payload, err := c.client.GetJSON(ctx, c.baseURL+"/search", params)
	if err != nil {
		state.errs = append(state.errs,
			fmt.Sprintf("zigbang search region=%s type=%s rent=%s: %v", regionName, propertyType, rentCode, err))
		c.log.Warn("search fetch failed",
			logger.String("region", regionName),
			logger.String("property_type", propertyType),
			logger.Error(err),
		)
		return nil
	}

	if code := crawler.FirstString(payload, "code"); code != "" && code != "200" {
		message := crawler.FirstString(payload, "message")
		state.errs = append(state.errs,
			fmt.Sprintf("zigbang search region=%s failed: %s", regionName, message))
		return nil
	}

	items := crawler.AsList(payload["items"])
	c.consumeItems(ctx, state, items, regionName, true)

	c.log.Info("fetched search results",
		logger.String("region", regionName),
		logger.String("property_type", propertyType),
		logger.String("rent_code", rentCode),
		logger.Int("count", len(items)),
	)
	return nil
}

// consumeItems samples, dedupes, and parses raw items, optionally
// falling back to the detail endpoint when a summary does not parse.
func (c *Crawler) consumeItems(ctx context.Context, state *runState, items []any, regionName string, detailFallback bool) {
	for _, raw := range items {
		state.metrics.RawCount++
		item := crawler.AsObject(raw)
		if item == nil {
			state.metrics.InvalidCount++
			continue
		}
		state.schemaSampler.Observe(crawler.SortedKeys(item))
		if source := crawler.AsObject(item["_source"]); source != nil {
			state.sourceSampler.Observe(crawler.SortedKeys(source))
		}

		record := parseItem(item, regionName)
		if record == nil && detailFallback {
			record = c.parseViaDetail(ctx, state, item, regionName)
		}
		if record == nil || !record.Valid() {
			state.metrics.InvalidCount++
			continue
		}

		if _, dup := state.seen[record.Key()]; dup {
			continue
		}
		state.seen[record.Key()] = struct{}{}
		state.rows = append(state.rows, *record)
		state.metrics.ParsedCount++

		// Sustained-rate brake on top of per-request throttling.
		if c.rowCooldownEvery > 0 && len(state.rows)%c.rowCooldownEvery == 0 {
			if err := sleepCtx(ctx, c.rowCooldown); err != nil {
				return
			}
		}
	}
}

// parseViaDetail fetches the item's detail payload and retries parsing
// against each candidate sub-object; the first successful parse wins.
func (c *Crawler) parseViaDetail(ctx context.Context, state *runState, item map[string]any, regionName string) *domain.ListingRecord {
	itemID := extractSourceID(item)
	if itemID == "" {
		return nil
	}

	if err := c.client.Throttle(ctx); err != nil {
		return nil
	}

	params := url.Values{}
	params.Set("item_ids", itemID)
	params.Set("detail", "true")

	payload, err := c.client.GetJSON(ctx, c.baseURL+"/items", params)
	if err != nil {
		state.errs = append(state.errs, fmt.Sprintf("zigbang detail item=%s: %v", itemID, err))
		return nil
	}

	for _, candidate := range detailCandidates(payload) {
		if record := parseItem(candidate, regionName); record != nil {
			return record
		}
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

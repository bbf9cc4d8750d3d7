// Package naver crawls the Naver Real Estate articles API.
package naver

import (
	"context"
	"fmt"
	"net/url"

	"github.com/mgh3326/rent-radar/internal/crawler"
	"github.com/mgh3326/rent-radar/internal/domain"
	"github.com/mgh3326/rent-radar/internal/fetch"
	"github.com/mgh3326/rent-radar/internal/logger"
)

const defaultBaseURL = "https://new.land.naver.com/api"

// Headers that make the articles API answer like a browser session.
var defaultHeaders = map[string]string{
	"User-Agent":      "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	"Referer":         "https://new.land.naver.com/articles",
	"Accept":          "application/json, text/plain, */*",
	"Accept-Language": "ko-KR,ko;q=0.9,en-US;q=0.8,en;q=0.7",
}

// DefaultHeaders returns the browser-like headers for the articles API.
func DefaultHeaders() map[string]string {
	headers := make(map[string]string, len(defaultHeaders))
	for key, value := range defaultHeaders {
		headers[key] = value
	}
	return headers
}

// Crawler fetches rental listings from the Naver articles endpoint
// across a (region x property type x trade type) matrix.
type Crawler struct {
	client        *fetch.Client
	log           logger.Logger
	baseURL       string
	regionCodes   []string
	propertyTypes []string

	metrics domain.RunMetrics
}

// Option customizes a Crawler.
type Option func(*Crawler)

// WithBaseURL overrides the API base URL (tests point it at a local server).
func WithBaseURL(baseURL string) Option {
	return func(c *Crawler) { c.baseURL = baseURL }
}

// WithPropertyTypes overrides the property type codes to crawl.
func WithPropertyTypes(types []string) Option {
	return func(c *Crawler) { c.propertyTypes = types }
}

// New creates a Naver crawler.
func New(client *fetch.Client, log logger.Logger, regionCodes []string, opts ...Option) *Crawler {
	c := &Crawler{
		client:        client,
		log:           log,
		baseURL:       defaultBaseURL,
		regionCodes:   regionCodes,
		propertyTypes: []string{"APT", "VILLA", "OPST", "ONEROOM"},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Source implements crawler.ListingCrawler.
func (c *Crawler) Source() string { return "naver" }

// Metrics returns diagnostics from the most recent run.
func (c *Crawler) Metrics() domain.RunMetrics { return c.metrics }

// Run fetches and parses Naver listings for the configured matrix.
func (c *Crawler) Run(ctx context.Context) (*domain.CrawlResult[domain.ListingRecord], error) {
	c.client.StartRun()

	var (
		rows     []domain.ListingRecord
		errs     []string
		metrics  domain.RunMetrics
		seen     = map[string]struct{}{}
		sampler  = domain.NewKeySampler()
	)

	for _, regionCode := range c.regionCodes {
		for _, propertyType := range c.propertyTypes {
			for _, tradeType := range []string{"B1", "B2"} {
				if err := c.client.Throttle(ctx); err != nil {
					return nil, err
				}

				articles, err := c.fetchArticles(ctx, regionCode, propertyType, tradeType)
				if err != nil {
					msg := fmt.Sprintf("naver fetch region=%s type=%s trade=%s: %v",
						regionCode, propertyType, tradeType, err)
					c.log.Warn("article fetch failed",
						logger.String("region_code", regionCode),
						logger.String("property_type", propertyType),
						logger.String("trade_type", tradeType),
						logger.Error(err),
					)
					errs = append(errs, msg)
					continue
				}

				for _, raw := range articles {
					metrics.RawCount++
					item := crawler.AsObject(raw)
					if item == nil {
						metrics.InvalidCount++
						continue
					}
					sampler.Observe(crawler.SortedKeys(item))

					record := parseArticle(item)
					if record == nil || !record.Valid() {
						metrics.InvalidCount++
						continue
					}
					if _, dup := seen[record.Key()]; dup {
						continue
					}
					seen[record.Key()] = struct{}{}
					rows = append(rows, *record)
					metrics.ParsedCount++
				}

				c.log.Info("fetched articles",
					logger.String("region_code", regionCode),
					logger.String("property_type", propertyType),
					logger.String("trade_type", tradeType),
					logger.Int("count", len(articles)),
				)
			}
		}
	}

	metrics.SchemaKeySamples = sampler.Samples()
	metrics.RetryCount, metrics.CooldownCount, _ = c.client.Metrics().Snapshot()
	c.metrics = metrics

	if metrics.RawCount > 0 && metrics.ParsedCount == 0 {
		return nil, &domain.SchemaMismatchError{Source: c.Source(), Metrics: metrics}
	}

	c.log.Info("naver crawl finished",
		logger.Int("rows", len(rows)),
		logger.Int("errors", len(errs)),
	)

	return &domain.CrawlResult[domain.ListingRecord]{
		Count:  len(rows),
		Rows:   rows,
		Errors: errs,
	}, nil
}

// fetchArticles calls the articles search endpoint for one matrix cell.
func (c *Crawler) fetchArticles(ctx context.Context, regionCode, propertyType, tradeType string) ([]any, error) {
	params := url.Values{}
	params.Set("cortarNo", regionCode)
	params.Set("realEstateType", propertyType)
	params.Set("tradeType", tradeType)

	payload, err := c.client.GetJSON(ctx, c.baseURL+"/articles", params)
	if err != nil {
		return nil, err
	}

	if success, ok := payload["success"].(bool); ok && !success {
		return nil, nil
	}

	return crawler.AsList(payload["articleList"]), nil
}

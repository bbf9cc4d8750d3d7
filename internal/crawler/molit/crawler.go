// Package molit crawls the MOLIT public-data apartment rent API,
// which serves official real-trade records as paginated XML.
package molit

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/mgh3326/rent-radar/internal/domain"
	"github.com/mgh3326/rent-radar/internal/fetch"
	"github.com/mgh3326/rent-radar/internal/logger"
)

// pageSize is the portal's maximum rows per page; a short page marks
// the end of pagination.
const pageSize = 1000

// Config holds the MOLIT-specific crawl parameters.
type Config struct {
	APIKey      string
	Endpoint    string
	RegionCodes []string
	FetchMonths int
}

// Crawler fetches official real trades for the configured regions over
// a recent-months window.
type Crawler struct {
	client *fetch.Client
	log    logger.Logger
	cfg    Config
	now    func() time.Time

	metrics domain.RunMetrics
}

// Option customizes a Crawler.
type Option func(*Crawler)

// WithClock overrides the time source (tests pin the month window).
func WithClock(now func() time.Time) Option {
	return func(c *Crawler) { c.now = now }
}

// New creates a MOLIT crawler.
func New(client *fetch.Client, log logger.Logger, cfg Config, opts ...Option) *Crawler {
	if cfg.FetchMonths < 1 {
		cfg.FetchMonths = 1
	}
	c := &Crawler{
		client: client,
		log:    log,
		cfg:    cfg,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Source implements crawler.TradeCrawler.
func (c *Crawler) Source() string { return "molit" }

// Metrics returns diagnostics from the most recent run.
func (c *Crawler) Metrics() domain.RunMetrics { return c.metrics }

// Run fetches and parses real trade rows for every configured region
// and target month, paging until a short page.
func (c *Crawler) Run(ctx context.Context) (*domain.CrawlResult[domain.TradeRecord], error) {
	c.client.StartRun()

	var (
		rows    []domain.TradeRecord
		errs    []string
		metrics domain.RunMetrics
	)

	for _, regionCode := range c.cfg.RegionCodes {
		for _, dealYM := range c.targetMonths() {
			pageRows, pageErrs, pageMetrics := c.crawlRegionMonth(ctx, regionCode, dealYM)
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			rows = append(rows, pageRows...)
			errs = append(errs, pageErrs...)
			metrics.RawCount += pageMetrics.RawCount
			metrics.ParsedCount += pageMetrics.ParsedCount
			metrics.InvalidCount += pageMetrics.InvalidCount
		}
	}

	metrics.RetryCount, metrics.CooldownCount, _ = c.client.Metrics().Snapshot()
	c.metrics = metrics

	if metrics.RawCount > 0 && metrics.ParsedCount == 0 {
		return nil, &domain.SchemaMismatchError{Source: c.Source(), Metrics: metrics}
	}

	c.log.Info("molit crawl finished",
		logger.Int("rows", len(rows)),
		logger.Int("errors", len(errs)),
	)

	return &domain.CrawlResult[domain.TradeRecord]{
		Count:  len(rows),
		Rows:   rows,
		Errors: errs,
	}, nil
}

// crawlRegionMonth pages through one (region, month) cell.
func (c *Crawler) crawlRegionMonth(ctx context.Context, regionCode, dealYM string) (
	rows []domain.TradeRecord, errs []string, metrics domain.RunMetrics,
) {
	for pageNo := 1; ; pageNo++ {
		if err := c.client.Throttle(ctx); err != nil {
			return rows, errs, metrics
		}

		params := url.Values{}
		params.Set("serviceKey", c.cfg.APIKey)
		params.Set("LAWD_CD", regionCode)
		params.Set("DEAL_YMD", dealYM)
		params.Set("pageNo", strconv.Itoa(pageNo))
		params.Set("numOfRows", strconv.Itoa(pageSize))

		xmlText, err := c.client.GetText(ctx, c.cfg.Endpoint, params)
		if err != nil {
			errs = append(errs, fmt.Sprintf("molit fetch region=%s month=%s page=%d: %v",
				regionCode, dealYM, pageNo, err))
			c.log.Warn("trade fetch failed",
				logger.String("region_code", regionCode),
				logger.String("deal_ym", dealYM),
				logger.Int("page", pageNo),
				logger.Error(err),
			)
			return rows, errs, metrics
		}

		parsed, rawCount, parseErr := parseXML(regionCode, xmlText)
		if parseErr != nil {
			errs = append(errs, fmt.Sprintf("molit parse region=%s month=%s page=%d: %v",
				regionCode, dealYM, pageNo, parseErr))
			return rows, errs, metrics
		}

		metrics.RawCount += rawCount
		metrics.ParsedCount += len(parsed)
		metrics.InvalidCount += rawCount - len(parsed)
		rows = append(rows, parsed...)

		if rawCount < pageSize {
			return rows, errs, metrics
		}
	}
}

// targetMonths returns YYYYMM strings for the current month and the
// preceding FetchMonths-1 months.
func (c *Crawler) targetMonths() []string {
	now := c.now().UTC()
	year, month := now.Year(), int(now.Month())

	months := make([]string, 0, c.cfg.FetchMonths)
	for range c.cfg.FetchMonths {
		months = append(months, fmt.Sprintf("%04d%02d", year, month))
		month--
		if month < 1 {
			month = 12
			year--
		}
	}
	return months
}

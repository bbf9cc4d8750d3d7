// Package crawler defines the crawl contracts shared by the
// source-specific crawlers and helpers for parsing unstable
// third-party payloads.
package crawler

import (
	"context"

	"github.com/mgh3326/rent-radar/internal/domain"
)

// ListingCrawler fetches and parses rental listings from one portal.
type ListingCrawler interface {
	// Source returns the stable source name ("naver", "zigbang").
	Source() string
	// Run executes one full crawl over the configured matrix. It
	// returns *domain.SchemaMismatchError when raw items were fetched
	// but none of them parsed; per-request failures accumulate in
	// Result.Errors instead of aborting the run.
	Run(ctx context.Context) (*domain.CrawlResult[domain.ListingRecord], error)
	// Metrics returns diagnostics from the most recent run.
	Metrics() domain.RunMetrics
}

// TradeCrawler fetches and parses official real-trade records.
type TradeCrawler interface {
	Source() string
	Run(ctx context.Context) (*domain.CrawlResult[domain.TradeRecord], error)
	Metrics() domain.RunMetrics
}

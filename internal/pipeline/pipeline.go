// Package pipeline orchestrates end-to-end crawl runs: dedup lock,
// crawl, persist, reap stale rows, notify.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/mgh3326/rent-radar/internal/crawler"
	"github.com/mgh3326/rent-radar/internal/dedup"
	"github.com/mgh3326/rent-radar/internal/domain"
	"github.com/mgh3326/rent-radar/internal/logger"
	"github.com/mgh3326/rent-radar/internal/notify"
)

// taskRetryDelay spaces out attempts after a transient run failure.
const taskRetryDelay = 5 * time.Second

// ListingStore is the persistence surface the pipeline needs for
// rental listings.
type ListingStore interface {
	Upsert(ctx context.Context, records []domain.ListingRecord) (int, error)
	DeactivateStale(ctx context.Context, source string, threshold time.Duration) (int64, error)
}

// TradeStore is the persistence surface for official trades.
type TradeStore interface {
	Insert(ctx context.Context, records []domain.TradeRecord) (int, error)
}

// Config holds orchestration tuning.
type Config struct {
	RegionCodes    []string
	StaleThreshold time.Duration
	DedupTTL       time.Duration
	MaxAttempts    int
	RetryDelay     time.Duration
}

// RunReport summarizes one source run.
type RunReport struct {
	RunID       string
	Source      string
	Skipped     bool
	Attempts    int
	Raw         int
	Parsed      int
	Upserted    int
	Deactivated int64
	FetchErrors int
	Metrics     domain.RunMetrics
	Duration    time.Duration
}

// Pipeline drives crawls through persistence and notification.
type Pipeline struct {
	listings ListingStore
	trades   TradeStore
	guard    dedup.Guard
	notifier notify.Notifier
	log      logger.Logger
	cfg      Config
}

// New creates a pipeline.
func New(
	listings ListingStore,
	trades TradeStore,
	guard dedup.Guard,
	notifier notify.Notifier,
	log logger.Logger,
	cfg Config,
) *Pipeline {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = taskRetryDelay
	}
	return &Pipeline{
		listings: listings,
		trades:   trades,
		guard:    guard,
		notifier: notifier,
		log:      log,
		cfg:      cfg,
	}
}

// RunListingSource executes one listing crawl under a dedup lock, then
// upserts the records and deactivates rows not re-observed within the
// staleness threshold. A run that fetched raw items but parsed none
// aborts before persistence so a drifted upstream schema cannot mass
// deactivate healthy data.
func (p *Pipeline) RunListingSource(ctx context.Context, c crawler.ListingCrawler) (*RunReport, error) {
	report := &RunReport{RunID: uuid.NewString(), Source: c.Source()}
	started := time.Now()
	defer func() { report.Duration = time.Since(started) }()

	key := p.lockKey(c.Source())
	acquired, err := p.guard.Acquire(ctx, key, p.cfg.DedupTTL)
	if err != nil {
		return report, fmt.Errorf("acquire dedup lock for %s: %w", c.Source(), err)
	}
	if !acquired {
		p.log.Info("crawl already running, skipping",
			logger.String("source", c.Source()))
		report.Skipped = true
		return report, nil
	}
	defer p.releaseLock(ctx, key)

	// The retry covers the whole attempt, not just the fetch: a
	// transient persistence failure re-runs the crawl, and the
	// idempotent upsert makes the replay safe.
	runErr := p.runWithRetry(ctx, report, func(ctx context.Context) error {
		result, err := c.Run(ctx)
		report.Metrics = c.Metrics()
		if err != nil {
			return err
		}

		report.Raw = report.Metrics.RawCount
		report.Parsed = len(result.Rows)
		report.FetchErrors = len(result.Errors)

		upserted, err := p.listings.Upsert(ctx, result.Rows)
		if err != nil {
			return fmt.Errorf("upsert %s listings: %w", c.Source(), err)
		}
		report.Upserted = upserted

		deactivated, err := p.listings.DeactivateStale(ctx, c.Source(), p.cfg.StaleThreshold)
		if err != nil {
			return fmt.Errorf("deactivate stale %s listings: %w", c.Source(), err)
		}
		report.Deactivated = deactivated
		return nil
	})
	if runErr != nil {
		p.notifySchemaMismatch(ctx, runErr)
		return report, runErr
	}

	p.log.Info("listing crawl finished",
		logger.String("run_id", report.RunID),
		logger.String("source", c.Source()),
		logger.Int("raw", report.Raw),
		logger.Int("parsed", report.Parsed),
		logger.Int("upserted", report.Upserted),
		logger.Int64("deactivated", report.Deactivated),
		logger.Int("fetch_errors", report.FetchErrors))

	if report.Upserted > 0 {
		p.notifier.Send(ctx, "crawl "+c.Source(),
			fmt.Sprintf("%d listings upserted, %d deactivated, %d fetch errors",
				report.Upserted, report.Deactivated, report.FetchErrors))
	}
	return report, nil
}

// RunTradeSource executes one trade crawl under a dedup lock and
// inserts the records. Trades are immutable, so there is no reap pass.
func (p *Pipeline) RunTradeSource(ctx context.Context, c crawler.TradeCrawler) (*RunReport, error) {
	report := &RunReport{RunID: uuid.NewString(), Source: c.Source()}
	started := time.Now()
	defer func() { report.Duration = time.Since(started) }()

	key := p.lockKey(c.Source())
	acquired, err := p.guard.Acquire(ctx, key, p.cfg.DedupTTL)
	if err != nil {
		return report, fmt.Errorf("acquire dedup lock for %s: %w", c.Source(), err)
	}
	if !acquired {
		p.log.Info("crawl already running, skipping",
			logger.String("source", c.Source()))
		report.Skipped = true
		return report, nil
	}
	defer p.releaseLock(ctx, key)

	runErr := p.runWithRetry(ctx, report, func(ctx context.Context) error {
		result, err := c.Run(ctx)
		report.Metrics = c.Metrics()
		if err != nil {
			return err
		}

		report.Raw = report.Metrics.RawCount
		report.Parsed = len(result.Rows)
		report.FetchErrors = len(result.Errors)

		// Insert-only with DO NOTHING on the identity constraint, so
		// a retried attempt never duplicates trades.
		inserted, err := p.trades.Insert(ctx, result.Rows)
		if err != nil {
			return fmt.Errorf("insert %s trades: %w", c.Source(), err)
		}
		report.Upserted = inserted
		return nil
	})
	if runErr != nil {
		p.notifySchemaMismatch(ctx, runErr)
		return report, runErr
	}

	p.log.Info("trade crawl finished",
		logger.String("run_id", report.RunID),
		logger.String("source", c.Source()),
		logger.Int("raw", report.Raw),
		logger.Int("parsed", report.Parsed),
		logger.Int("inserted", report.Upserted),
		logger.Int("fetch_errors", report.FetchErrors))

	if report.Upserted > 0 {
		p.notifier.Send(ctx, "crawl "+c.Source(),
			fmt.Sprintf("%d new trades recorded, %d fetch errors",
				report.Upserted, report.FetchErrors))
	}
	return report, nil
}

// RunAll runs every crawler sequentially. A failing source does not
// stop the others; errors are joined into the return value.
func (p *Pipeline) RunAll(
	ctx context.Context,
	listingCrawlers []crawler.ListingCrawler,
	tradeCrawlers []crawler.TradeCrawler,
) ([]*RunReport, error) {
	var (
		reports []*RunReport
		errs    []error
	)

	for _, c := range listingCrawlers {
		report, err := p.RunListingSource(ctx, c)
		reports = append(reports, report)
		if err != nil {
			p.log.Error("listing crawl failed",
				logger.String("source", c.Source()),
				logger.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", c.Source(), err))
		}
		if ctx.Err() != nil {
			return reports, ctx.Err()
		}
	}
	for _, c := range tradeCrawlers {
		report, err := p.RunTradeSource(ctx, c)
		reports = append(reports, report)
		if err != nil {
			p.log.Error("trade crawl failed",
				logger.String("source", c.Source()),
				logger.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", c.Source(), err))
		}
		if ctx.Err() != nil {
			return reports, ctx.Err()
		}
	}

	return reports, errors.Join(errs...)
}

// runWithRetry retries a full crawl-and-persist attempt up to
// MaxAttempts on transient failures. Schema mismatches are
// deterministic and fail immediately: rerunning the same parse
// against the same drifted payload cannot succeed.
func (p *Pipeline) runWithRetry(
	ctx context.Context,
	report *RunReport,
	run func(context.Context) error,
) error {
	var lastErr error
	for attempt := 1; attempt <= p.cfg.MaxAttempts; attempt++ {
		report.Attempts = attempt

		err := run(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		var mismatch *domain.SchemaMismatchError
		if errors.As(err, &mismatch) {
			return err
		}
		if ctx.Err() != nil {
			return err
		}

		p.log.Warn("crawl attempt failed",
			logger.String("source", report.Source),
			logger.Int("attempt", attempt),
			logger.Error(err))

		if attempt < p.cfg.MaxAttempts {
			select {
			case <-time.After(p.cfg.RetryDelay * time.Duration(attempt)):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return fmt.Errorf("crawl failed after %d attempts: %w", p.cfg.MaxAttempts, lastErr)
}

// TryEnqueue takes the enqueue-scope dedup lock for a manually
// triggered crawl. The fingerprint is the requested source plus the
// configured region set, so an identical trigger within the dedup
// window reports false and should be dropped before any crawler runs.
// Scheduled runs skip this and rely on the execution lock alone.
func (p *Pipeline) TryEnqueue(ctx context.Context, source string) (bool, error) {
	if source == "" {
		source = "all"
	}
	return p.guard.Acquire(ctx, dedup.BuildKey("enqueue", source, p.sortedRegions()...), p.cfg.DedupTTL)
}

func (p *Pipeline) lockKey(source string) string {
	return dedup.BuildKey("execution", source, p.sortedRegions()...)
}

func (p *Pipeline) sortedRegions() []string {
	regions := append([]string(nil), p.cfg.RegionCodes...)
	sort.Strings(regions)
	return regions
}

func (p *Pipeline) releaseLock(ctx context.Context, key string) {
	if err := p.guard.Release(ctx, key); err != nil {
		p.log.Warn("failed to release dedup lock",
			logger.String("key", key),
			logger.Error(err))
	}
}

func (p *Pipeline) notifySchemaMismatch(ctx context.Context, err error) {
	var mismatch *domain.SchemaMismatchError
	if !errors.As(err, &mismatch) {
		return
	}
	p.notifier.Send(ctx, "schema mismatch "+mismatch.Source, mismatch.Error())
}

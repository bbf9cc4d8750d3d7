package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mgh3326/rent-radar/internal/crawler"
	"github.com/mgh3326/rent-radar/internal/dedup"
	"github.com/mgh3326/rent-radar/internal/domain"
	"github.com/mgh3326/rent-radar/internal/logger"
)

type fakeListingStore struct {
	upserted    []domain.ListingRecord
	upsertCalls int
	deactivated int64
	reapCalls   int
	upsertErr   error
	failFirst   int
}

func (s *fakeListingStore) Upsert(_ context.Context, records []domain.ListingRecord) (int, error) {
	s.upsertCalls++
	if s.upsertCalls <= s.failFirst {
		return 0, errors.New("deadlock detected")
	}
	if s.upsertErr != nil {
		return 0, s.upsertErr
	}
	s.upserted = append(s.upserted, records...)
	return len(records), nil
}

func (s *fakeListingStore) DeactivateStale(context.Context, string, time.Duration) (int64, error) {
	s.reapCalls++
	return s.deactivated, nil
}

type fakeTradeStore struct {
	inserted int
}

func (s *fakeTradeStore) Insert(_ context.Context, records []domain.TradeRecord) (int, error) {
	s.inserted += len(records)
	return len(records), nil
}

type fakeNotifier struct {
	titles   []string
	messages []string
}

func (n *fakeNotifier) Send(_ context.Context, title, message string) bool {
	n.titles = append(n.titles, title)
	n.messages = append(n.messages, message)
	return true
}

type fakeListingCrawler struct {
	source   string
	results  []*domain.CrawlResult[domain.ListingRecord]
	errs     []error
	runCalls int
	metrics  domain.RunMetrics
}

func (c *fakeListingCrawler) Source() string { return c.source }

func (c *fakeListingCrawler) Run(context.Context) (*domain.CrawlResult[domain.ListingRecord], error) {
	i := c.runCalls
	c.runCalls++
	if i >= len(c.results) {
		i = len(c.results) - 1
	}
	return c.results[i], c.errs[i]
}

func (c *fakeListingCrawler) Metrics() domain.RunMetrics { return c.metrics }

type fakeTradeCrawler struct {
	source string
	result *domain.CrawlResult[domain.TradeRecord]
	err    error
}

func (c *fakeTradeCrawler) Source() string { return c.source }

func (c *fakeTradeCrawler) Run(context.Context) (*domain.CrawlResult[domain.TradeRecord], error) {
	return c.result, c.err
}

func (c *fakeTradeCrawler) Metrics() domain.RunMetrics { return domain.RunMetrics{} }

func listingResult(ids ...string) *domain.CrawlResult[domain.ListingRecord] {
	rows := make([]domain.ListingRecord, 0, len(ids))
	for _, id := range ids {
		rows = append(rows, domain.ListingRecord{Source: "naver", SourceID: id})
	}
	return &domain.CrawlResult[domain.ListingRecord]{Count: len(rows), Rows: rows}
}

func newTestPipeline(listings *fakeListingStore, trades *fakeTradeStore, notifier *fakeNotifier) *Pipeline {
	return New(listings, trades, dedup.NewMemoryGuard(), notifier, logger.NewNop(), Config{
		RegionCodes:    []string{"11110"},
		StaleThreshold: 48 * time.Hour,
		DedupTTL:       time.Minute,
		MaxAttempts:    3,
		RetryDelay:     time.Millisecond,
	})
}

func TestRunListingSourcePersistsReapsAndNotifies(t *testing.T) {
	listings := &fakeListingStore{deactivated: 4}
	notifier := &fakeNotifier{}
	p := newTestPipeline(listings, &fakeTradeStore{}, notifier)

	c := &fakeListingCrawler{
		source:  "naver",
		results: []*domain.CrawlResult[domain.ListingRecord]{listingResult("1", "2")},
		errs:    []error{nil},
		metrics: domain.RunMetrics{RawCount: 3, ParsedCount: 2},
	}

	report, err := p.RunListingSource(context.Background(), c)
	require.NoError(t, err)

	assert.False(t, report.Skipped)
	assert.Equal(t, 1, report.Attempts)
	assert.Equal(t, 3, report.Raw)
	assert.Equal(t, 2, report.Parsed)
	assert.Equal(t, 2, report.Upserted)
	assert.Equal(t, int64(4), report.Deactivated)
	assert.NotEmpty(t, report.RunID)

	assert.Len(t, listings.upserted, 2)
	assert.Equal(t, 1, listings.reapCalls)
	require.Len(t, notifier.titles, 1)
	assert.Equal(t, "crawl naver", notifier.titles[0])
}

func TestRunListingSourceSkipsWhenLockHeld(t *testing.T) {
	listings := &fakeListingStore{}
	p := newTestPipeline(listings, &fakeTradeStore{}, &fakeNotifier{})

	// Hold the lock the pipeline would take.
	held, err := p.guard.Acquire(context.Background(), p.lockKey("naver"), time.Minute)
	require.NoError(t, err)
	require.True(t, held)

	c := &fakeListingCrawler{
		source:  "naver",
		results: []*domain.CrawlResult[domain.ListingRecord]{listingResult("1")},
		errs:    []error{nil},
	}

	report, err := p.RunListingSource(context.Background(), c)
	require.NoError(t, err)
	assert.True(t, report.Skipped)
	assert.Zero(t, c.runCalls)
	assert.Zero(t, listings.upsertCalls)
}

func TestRunListingSourceReleasesLock(t *testing.T) {
	p := newTestPipeline(&fakeListingStore{}, &fakeTradeStore{}, &fakeNotifier{})

	c := &fakeListingCrawler{
		source:  "naver",
		results: []*domain.CrawlResult[domain.ListingRecord]{listingResult("1")},
		errs:    []error{nil},
	}

	_, err := p.RunListingSource(context.Background(), c)
	require.NoError(t, err)

	// Lock must be free again.
	held, err := p.guard.Acquire(context.Background(), p.lockKey("naver"), time.Minute)
	require.NoError(t, err)
	assert.True(t, held)
}

func TestRunListingSourceSchemaMismatchAbortsPersistence(t *testing.T) {
	listings := &fakeListingStore{}
	notifier := &fakeNotifier{}
	p := newTestPipeline(listings, &fakeTradeStore{}, notifier)

	mismatch := &domain.SchemaMismatchError{
		Source:  "naver",
		Metrics: domain.RunMetrics{RawCount: 10},
	}
	c := &fakeListingCrawler{
		source:  "naver",
		results: []*domain.CrawlResult[domain.ListingRecord]{nil},
		errs:    []error{mismatch},
	}

	_, err := p.RunListingSource(context.Background(), c)
	require.Error(t, err)

	var got *domain.SchemaMismatchError
	assert.True(t, errors.As(err, &got))

	// No retry for a deterministic failure, no writes, no reap. The
	// alert still goes out.
	assert.Equal(t, 1, c.runCalls)
	assert.Zero(t, listings.upsertCalls)
	assert.Zero(t, listings.reapCalls)
	require.Len(t, notifier.titles, 1)
	assert.Equal(t, "schema mismatch naver", notifier.titles[0])
}

func TestRunListingSourceRetriesTransientFailures(t *testing.T) {
	listings := &fakeListingStore{}
	p := newTestPipeline(listings, &fakeTradeStore{}, &fakeNotifier{})

	c := &fakeListingCrawler{
		source: "naver",
		results: []*domain.CrawlResult[domain.ListingRecord]{
			nil,
			listingResult("1"),
		},
		errs: []error{errors.New("connection reset"), nil},
	}

	report, err := p.RunListingSource(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Attempts)
	assert.Equal(t, 1, report.Upserted)
}

func TestRunListingSourceRetriesTransientUpsertFailure(t *testing.T) {
	listings := &fakeListingStore{failFirst: 1}
	p := newTestPipeline(listings, &fakeTradeStore{}, &fakeNotifier{})

	c := &fakeListingCrawler{
		source:  "naver",
		results: []*domain.CrawlResult[domain.ListingRecord]{listingResult("1")},
		errs:    []error{nil},
	}

	report, err := p.RunListingSource(context.Background(), c)
	require.NoError(t, err)

	// The retry re-runs the whole attempt; the idempotent upsert
	// makes the replayed crawl safe.
	assert.Equal(t, 2, report.Attempts)
	assert.Equal(t, 2, c.runCalls)
	assert.Equal(t, 2, listings.upsertCalls)
	assert.Equal(t, 1, report.Upserted)
}

func TestTryEnqueueDedupesWithinWindow(t *testing.T) {
	p := newTestPipeline(&fakeListingStore{}, &fakeTradeStore{}, &fakeNotifier{})

	enqueued, err := p.TryEnqueue(context.Background(), "naver")
	require.NoError(t, err)
	assert.True(t, enqueued)

	enqueued, err = p.TryEnqueue(context.Background(), "naver")
	require.NoError(t, err)
	assert.False(t, enqueued)

	// A different fingerprint is an independent trigger. Empty maps
	// to the all-sources fingerprint.
	enqueued, err = p.TryEnqueue(context.Background(), "")
	require.NoError(t, err)
	assert.True(t, enqueued)
}

func TestTryEnqueueDoesNotBlockExecution(t *testing.T) {
	listings := &fakeListingStore{}
	p := newTestPipeline(listings, &fakeTradeStore{}, &fakeNotifier{})

	enqueued, err := p.TryEnqueue(context.Background(), "naver")
	require.NoError(t, err)
	require.True(t, enqueued)

	c := &fakeListingCrawler{
		source:  "naver",
		results: []*domain.CrawlResult[domain.ListingRecord]{listingResult("1")},
		errs:    []error{nil},
	}

	report, err := p.RunListingSource(context.Background(), c)
	require.NoError(t, err)
	assert.False(t, report.Skipped)
	assert.Equal(t, 1, listings.upsertCalls)
}

func TestRunListingSourceExhaustsAttempts(t *testing.T) {
	p := newTestPipeline(&fakeListingStore{}, &fakeTradeStore{}, &fakeNotifier{})

	c := &fakeListingCrawler{
		source:  "naver",
		results: []*domain.CrawlResult[domain.ListingRecord]{nil},
		errs:    []error{errors.New("boom")},
	}

	_, err := p.RunListingSource(context.Background(), c)
	require.Error(t, err)
	assert.Equal(t, 3, c.runCalls)
	assert.Contains(t, err.Error(), "after 3 attempts")
}

func TestRunListingSourceNoNotificationWithoutUpserts(t *testing.T) {
	notifier := &fakeNotifier{}
	p := newTestPipeline(&fakeListingStore{}, &fakeTradeStore{}, notifier)

	c := &fakeListingCrawler{
		source:  "naver",
		results: []*domain.CrawlResult[domain.ListingRecord]{listingResult()},
		errs:    []error{nil},
	}

	_, err := p.RunListingSource(context.Background(), c)
	require.NoError(t, err)
	assert.Empty(t, notifier.titles)
}

func TestRunAllContinuesPastFailingSource(t *testing.T) {
	listings := &fakeListingStore{}
	trades := &fakeTradeStore{}
	p := newTestPipeline(listings, trades, &fakeNotifier{})

	failing := &fakeListingCrawler{
		source:  "naver",
		results: []*domain.CrawlResult[domain.ListingRecord]{nil},
		errs:    []error{errors.New("boom")},
	}
	healthy := &fakeListingCrawler{
		source:  "zigbang",
		results: []*domain.CrawlResult[domain.ListingRecord]{listingResult("5")},
		errs:    []error{nil},
	}
	trade := &fakeTradeCrawler{
		source: "molit",
		result: &domain.CrawlResult[domain.TradeRecord]{
			Count: 1,
			Rows:  []domain.TradeRecord{{RegionCode: "11110", ContractYear: 2025, ContractMonth: 8}},
		},
	}

	reports, err := p.RunAll(context.Background(),
		[]crawler.ListingCrawler{failing, healthy},
		[]crawler.TradeCrawler{trade})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "naver")
	assert.Len(t, reports, 3)

	// The failure in naver did not stop the later sources.
	assert.Len(t, listings.upserted, 1)
	assert.Equal(t, 1, trades.inserted)
}

func TestRunAllStopsOnContextCancellation(t *testing.T) {
	p := newTestPipeline(&fakeListingStore{}, &fakeTradeStore{}, &fakeNotifier{})

	ctx, cancel := context.WithCancel(context.Background())
	first := &fakeListingCrawler{
		source:  "naver",
		results: []*domain.CrawlResult[domain.ListingRecord]{listingResult("1")},
		errs:    []error{nil},
	}
	second := &fakeListingCrawler{
		source:  "zigbang",
		results: []*domain.CrawlResult[domain.ListingRecord]{listingResult("2")},
		errs:    []error{nil},
	}
	cancelAfterFirst := &cancellingCrawler{inner: first, cancel: cancel}

	_, err := p.RunAll(ctx, []crawler.ListingCrawler{cancelAfterFirst, second}, nil)
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, second.runCalls)
}

type cancellingCrawler struct {
	inner  *fakeListingCrawler
	cancel context.CancelFunc
}

func (c *cancellingCrawler) Source() string { return c.inner.Source() }

func (c *cancellingCrawler) Run(ctx context.Context) (*domain.CrawlResult[domain.ListingRecord], error) {
	defer c.cancel()
	return c.inner.Run(ctx)
}

func (c *cancellingCrawler) Metrics() domain.RunMetrics { return c.inner.Metrics() }

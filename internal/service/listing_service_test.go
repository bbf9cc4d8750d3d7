package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mgh3326/rent-radar/internal/cache"
	"github.com/mgh3326/rent-radar/internal/database"
	"github.com/mgh3326/rent-radar/internal/domain"
	"github.com/mgh3326/rent-radar/internal/logger"
)

type fakeSearcher struct {
	listings    []domain.Listing
	searchErr   error
	searchCalls int
	byID        map[int64]*domain.Listing
}

func (f *fakeSearcher) Search(_ context.Context, _ database.ListingFilters) ([]domain.Listing, error) {
	f.searchCalls++
	return f.listings, f.searchErr
}

func (f *fakeSearcher) GetByID(_ context.Context, id int64) (*domain.Listing, error) {
	listing, ok := f.byID[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	return listing, nil
}

type fakeResultCache struct {
	entries  map[string][]byte
	getErr   error
	setErr   error
	getCalls int
	setCalls int
}

func newFakeResultCache() *fakeResultCache {
	return &fakeResultCache{entries: make(map[string][]byte)}
}

func (f *fakeResultCache) Get(_ context.Context, key string) ([]byte, error) {
	f.getCalls++
	if f.getErr != nil {
		return nil, f.getErr
	}
	payload, ok := f.entries[key]
	if !ok {
		return nil, cache.ErrMiss
	}
	return payload, nil
}

func (f *fakeResultCache) Set(_ context.Context, key string, payload []byte) error {
	f.setCalls++
	if f.setErr != nil {
		return f.setErr
	}
	f.entries[key] = payload
	return nil
}

func sampleListings() []domain.Listing {
	dong := "아현동"
	return []domain.Listing{
		{ID: 1, Source: "naver", SourceID: "a1", PropertyType: "apt", RentType: "jeonse", Deposit: 50000, Dong: &dong},
		{ID: 2, Source: "zigbang", SourceID: "b2", PropertyType: "officetel", RentType: "monthly", Deposit: 1000, MonthlyRent: 65},
	}
}

func TestListingSearchCachesResult(t *testing.T) {
	searcher := &fakeSearcher{listings: sampleListings()}
	resultCache := newFakeResultCache()
	svc := NewListingService(searcher, resultCache, logger.NewNop())

	filters := database.ListingFilters{Source: "naver", Limit: 20}

	first, err := svc.Search(context.Background(), filters)
	require.NoError(t, err)
	assert.Equal(t, 1, searcher.searchCalls)
	assert.Equal(t, 1, resultCache.setCalls)

	second, err := svc.Search(context.Background(), filters)
	require.NoError(t, err)

	// The second call is served from cache, byte for byte.
	assert.Equal(t, 1, searcher.searchCalls)
	assert.Equal(t, first, second)

	var decoded []domain.Listing
	require.NoError(t, json.Unmarshal(second, &decoded))
	assert.Len(t, decoded, 2)
	assert.Equal(t, int64(1), decoded[0].ID)
}

func TestListingSearchDifferentFiltersMissCache(t *testing.T) {
	searcher := &fakeSearcher{listings: sampleListings()}
	resultCache := newFakeResultCache()
	svc := NewListingService(searcher, resultCache, logger.NewNop())

	_, err := svc.Search(context.Background(), database.ListingFilters{Source: "naver"})
	require.NoError(t, err)
	_, err = svc.Search(context.Background(), database.ListingFilters{Source: "zigbang"})
	require.NoError(t, err)

	assert.Equal(t, 2, searcher.searchCalls)
	assert.Len(t, resultCache.entries, 2)
}

func TestListingSearchCacheFailureFallsThrough(t *testing.T) {
	searcher := &fakeSearcher{listings: sampleListings()}
	resultCache := newFakeResultCache()
	resultCache.getErr = errors.New("redis gone")
	resultCache.setErr = errors.New("redis gone")
	svc := NewListingService(searcher, resultCache, logger.NewNop())

	payload, err := svc.Search(context.Background(), database.ListingFilters{})
	require.NoError(t, err)
	assert.NotEmpty(t, payload)
	assert.Equal(t, 1, searcher.searchCalls)
}

func TestListingSearchNilCache(t *testing.T) {
	searcher := &fakeSearcher{listings: sampleListings()}
	svc := NewListingService(searcher, nil, logger.NewNop())

	payload, err := svc.Search(context.Background(), database.ListingFilters{})
	require.NoError(t, err)
	assert.NotEmpty(t, payload)
}

func TestListingSearchNegativeLimit(t *testing.T) {
	svc := NewListingService(&fakeSearcher{}, nil, logger.NewNop())

	_, err := svc.Search(context.Background(), database.ListingFilters{Limit: -1})
	assert.ErrorIs(t, err, database.ErrInvalidLimit)
}

func TestListingSearchEmptyResultIsCached(t *testing.T) {
	searcher := &fakeSearcher{listings: []domain.Listing{}}
	resultCache := newFakeResultCache()
	svc := NewListingService(searcher, resultCache, logger.NewNop())

	payload, err := svc.Search(context.Background(), database.ListingFilters{Dong: "없는동"})
	require.NoError(t, err)
	assert.Equal(t, "[]", string(payload))
	assert.Equal(t, 1, resultCache.setCalls)

	_, err = svc.Search(context.Background(), database.ListingFilters{Dong: "없는동"})
	require.NoError(t, err)
	assert.Equal(t, 1, searcher.searchCalls)
}

func TestListingSearchRepositoryError(t *testing.T) {
	searcher := &fakeSearcher{searchErr: errors.New("db down")}
	svc := NewListingService(searcher, nil, logger.NewNop())

	_, err := svc.Search(context.Background(), database.ListingFilters{})
	assert.Error(t, err)
}

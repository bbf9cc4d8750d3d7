// Package service implements the read-path business logic between the
// HTTP API and the repositories.
package service

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mgh3326/rent-radar/internal/cache"
	"github.com/mgh3326/rent-radar/internal/database"
	"github.com/mgh3326/rent-radar/internal/domain"
	"github.com/mgh3326/rent-radar/internal/logger"
)

// ListingSearcher is the repository surface ListingService reads from.
type ListingSearcher interface {
	Search(ctx context.Context, filters database.ListingFilters) ([]domain.Listing, error)
	GetByID(ctx context.Context, id int64) (*domain.Listing, error)
}

// ResultCache stores serialized query results.
type ResultCache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, payload []byte) error
}

// ListingService serves listing searches with a Redis read-through
// cache. Cached responses are stored as serialized JSON so a hit is
// byte-identical to the response originally computed.
type ListingService struct {
	repo  ListingSearcher
	cache ResultCache
	log   logger.Logger
}

// NewListingService creates a listing service. Cache may be nil, which
// disables caching.
func NewListingService(repo ListingSearcher, resultCache ResultCache, log logger.Logger) *ListingService {
	return &ListingService{repo: repo, cache: resultCache, log: log}
}

// Search returns serialized listings matching the filters. An empty
// result is a valid response, not an error, and is cached like any
// other.
func (s *ListingService) Search(ctx context.Context, filters database.ListingFilters) ([]byte, error) {
	if filters.Limit < 0 {
		return nil, database.ErrInvalidLimit
	}

	key, keyErr := searchCacheKey(filters)
	if s.cache != nil && keyErr == nil {
		if payload, err := s.cache.Get(ctx, key); err == nil {
			return payload, nil
		} else if !errors.Is(err, cache.ErrMiss) {
			s.log.Warn("search cache read failed", logger.Error(err))
		}
	}

	listings, err := s.repo.Search(ctx, filters)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(listings)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal listings: %w", err)
	}

	if s.cache != nil && keyErr == nil {
		if err := s.cache.Set(ctx, key, payload); err != nil {
			s.log.Warn("search cache write failed", logger.Error(err))
		}
	}
	return payload, nil
}

// GetByID returns one listing.
func (s *ListingService) GetByID(ctx context.Context, id int64) (*domain.Listing, error) {
	return s.repo.GetByID(ctx, id)
}

// searchCacheKey derives a stable cache key from the filter set.
func searchCacheKey(filters database.ListingFilters) (string, error) {
	raw, err := json.Marshal(filters)
	if err != nil {
		return "", err
	}
	sum := sha1.Sum(raw)
	return "search:listings:" + hex.EncodeToString(sum[:]), nil
}

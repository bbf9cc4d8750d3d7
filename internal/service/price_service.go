package service

import (
	"context"

	"github.com/mgh3326/rent-radar/internal/database"
	"github.com/mgh3326/rent-radar/internal/domain"
)

// PriceChangeReader reads the price audit trail.
type PriceChangeReader interface {
	History(ctx context.Context, listingID int64, limit int) ([]domain.PriceChange, error)
	Recent(ctx context.Context, limit int) ([]domain.PriceChange, error)
}

// TradeReader reads official trades and their aggregates.
type TradeReader interface {
	RecentTrades(ctx context.Context, filters database.TradeFilters) ([]domain.RealTrade, error)
	PriceTrend(ctx context.Context, regionCode, aptName string, months int) ([]domain.TrendPoint, error)
}

// PriceService exposes price history and market trend queries.
type PriceService struct {
	changes PriceChangeReader
	trades  TradeReader
}

// NewPriceService creates a price service.
func NewPriceService(changes PriceChangeReader, trades TradeReader) *PriceService {
	return &PriceService{changes: changes, trades: trades}
}

// History returns a listing's recorded price changes, newest first.
func (s *PriceService) History(ctx context.Context, listingID int64, limit int) ([]domain.PriceChange, error) {
	return s.changes.History(ctx, listingID, limit)
}

// RecentDrops returns the latest price changes across all listings.
func (s *PriceService) RecentDrops(ctx context.Context, limit int) ([]domain.PriceChange, error) {
	return s.changes.Recent(ctx, limit)
}

// Trend returns the monthly trade-price trend for a region, optionally
// narrowed to one building, in chronological order.
func (s *PriceService) Trend(ctx context.Context, regionCode, aptName string, months int) ([]domain.TrendPoint, error) {
	return s.trades.PriceTrend(ctx, regionCode, aptName, months)
}

// RecentTrades returns recent official trades matching the filters.
func (s *PriceService) RecentTrades(ctx context.Context, filters database.TradeFilters) ([]domain.RealTrade, error) {
	return s.trades.RecentTrades(ctx, filters)
}

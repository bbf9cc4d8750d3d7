package service

import (
	"context"
	"fmt"

	"github.com/mgh3326/rent-radar/internal/database"
	"github.com/mgh3326/rent-radar/internal/domain"
)

// comparisonSampleSize caps how many trades feed a market average.
const comparisonSampleSize = 50

// Comparison relates a listing's asking price to recent official
// trades in the same neighborhood. Deltas are percentages relative to
// the trade average; positive means the asking price is above market.
type Comparison struct {
	Listing             domain.Listing `json:"listing"`
	TradeCount          int            `json:"trade_count"`
	AvgTradeDeposit     float64        `json:"avg_trade_deposit"`
	AvgTradeMonthlyRent float64        `json:"avg_trade_monthly_rent"`
	DepositDeltaPct     *float64       `json:"deposit_delta_pct"`
	MonthlyRentDeltaPct *float64       `json:"monthly_rent_delta_pct"`
}

// ComparisonService compares asking prices against the official trade
// record.
type ComparisonService struct {
	listings ListingSearcher
	trades   TradeReader
}

// NewComparisonService creates a comparison service.
func NewComparisonService(listings ListingSearcher, trades TradeReader) *ComparisonService {
	return &ComparisonService{listings: listings, trades: trades}
}

// Compare matches the listing against recent trades sharing its dong,
// property type, and rent type. A listing with no comparable trades
// yields a zero-count comparison with nil deltas, not an error.
func (s *ComparisonService) Compare(ctx context.Context, listingID int64) (*Comparison, error) {
	listing, err := s.listings.GetByID(ctx, listingID)
	if err != nil {
		return nil, err
	}

	filters := database.TradeFilters{
		PropertyType: listing.PropertyType,
		RentType:     listing.RentType,
		Limit:        comparisonSampleSize,
	}
	if listing.Dong != nil {
		filters.Dong = *listing.Dong
	}
	if filters.Dong == "" {
		return &Comparison{Listing: *listing}, nil
	}

	trades, err := s.trades.RecentTrades(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to load comparable trades: %w", err)
	}

	comparison := &Comparison{
		Listing:    *listing,
		TradeCount: len(trades),
	}
	if len(trades) == 0 {
		return comparison, nil
	}

	var depositSum, rentSum float64
	for _, trade := range trades {
		depositSum += float64(trade.Deposit)
		rentSum += float64(trade.MonthlyRent)
	}
	comparison.AvgTradeDeposit = depositSum / float64(len(trades))
	comparison.AvgTradeMonthlyRent = rentSum / float64(len(trades))

	if comparison.AvgTradeDeposit > 0 {
		delta := (float64(listing.Deposit) - comparison.AvgTradeDeposit) / comparison.AvgTradeDeposit * 100
		comparison.DepositDeltaPct = &delta
	}
	if comparison.AvgTradeMonthlyRent > 0 {
		delta := (float64(listing.MonthlyRent) - comparison.AvgTradeMonthlyRent) / comparison.AvgTradeMonthlyRent * 100
		comparison.MonthlyRentDeltaPct = &delta
	}
	return comparison, nil
}

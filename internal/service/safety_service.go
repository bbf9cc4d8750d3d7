package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/mgh3326/rent-radar/internal/database"
	"github.com/mgh3326/rent-radar/internal/domain"
)

// Jeonse safety thresholds: a deposit under 70% of the average sale
// price is considered recoverable in a forced sale; between 70% and
// 90% warrants caution; above 90% the deposit may exceed what an
// auction would return.
const (
	safeRatioThreshold    = 0.7
	warningRatioThreshold = 0.9

	// comparableAreaDelta bounds how far a sale's area may differ
	// from the checked unit, in square meters.
	comparableAreaDelta = 5.0

	defaultSafetyMonths = 12
)

// ErrMissingDeposit means a safety check had no deposit to evaluate.
var ErrMissingDeposit = errors.New("deposit is required for a safety check")

// SaleTradeReader reads sale-category trades for safety comparisons.
type SaleTradeReader interface {
	SaleTrades(ctx context.Context, filters database.SaleTradeFilters) ([]domain.RealTrade, error)
}

// SafetyRequest describes one jeonse safety check. When ListingID is
// set, unset fields are filled from the stored listing.
type SafetyRequest struct {
	ListingID    int64
	Deposit      int
	PropertyType string
	RegionCode   string
	Dong         string
	AreaM2       *float64
	PeriodMonths int
}

// SafetyReport relates a jeonse deposit to recent sale prices of
// comparable units. Status is "safe", "caution", "unsafe", or
// "unknown" when no comparable sales exist.
type SafetyReport struct {
	Deposit              int      `json:"deposit"`
	Status               string   `json:"status"`
	Message              string   `json:"message"`
	SafetyRatio          *float64 `json:"safety_ratio"`
	AvgSalePrice         *int     `json:"avg_sale_price"`
	MinSalePrice         *int     `json:"min_sale_price"`
	MaxSalePrice         *int     `json:"max_sale_price"`
	ComparableSalesCount int      `json:"comparable_sales_count"`
}

// SafetyOption customizes a SafetyService.
type SafetyOption func(*SafetyService)

// WithSafetyClock overrides the time source, for tests.
func WithSafetyClock(now func() time.Time) SafetyOption {
	return func(s *SafetyService) { s.now = now }
}

// SafetyService checks jeonse deposits against the official sale
// record.
type SafetyService struct {
	listings ListingSearcher
	sales    SaleTradeReader
	now      func() time.Time
}

// NewSafetyService creates a safety service.
func NewSafetyService(listings ListingSearcher, sales SaleTradeReader, opts ...SafetyOption) *SafetyService {
	s := &SafetyService{listings: listings, sales: sales, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CheckJeonse evaluates whether the deposit is covered by recent sale
// prices of comparable units. No comparable sales yields an "unknown"
// report, not an error.
func (s *SafetyService) CheckJeonse(ctx context.Context, req SafetyRequest) (*SafetyReport, error) {
	if req.ListingID > 0 {
		if err := s.fillFromListing(ctx, &req); err != nil {
			return nil, err
		}
	}
	if req.Deposit <= 0 {
		return nil, ErrMissingDeposit
	}
	if req.PeriodMonths <= 0 {
		req.PeriodMonths = defaultSafetyMonths
	}

	sales, err := s.sales.SaleTrades(ctx, database.SaleTradeFilters{
		RegionCode:     req.RegionCode,
		Dong:           req.Dong,
		PropertyType:   req.PropertyType,
		StartYearMonth: s.startYearMonth(req.PeriodMonths),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load comparable sales: %w", err)
	}

	comparable := sales
	if req.AreaM2 != nil {
		comparable = comparable[:0:0]
		for _, sale := range sales {
			if sale.AreaM2 != nil && math.Abs(*sale.AreaM2-*req.AreaM2) <= comparableAreaDelta {
				comparable = append(comparable, sale)
			}
		}
	}

	report := &SafetyReport{
		Deposit:              req.Deposit,
		ComparableSalesCount: len(comparable),
	}
	if len(comparable) == 0 {
		report.Status = "unknown"
		report.Message = "no comparable sale data available"
		return report, nil
	}

	var sum, minSale, maxSale int
	minSale = comparable[0].Deposit
	for _, sale := range comparable {
		sum += sale.Deposit
		if sale.Deposit < minSale {
			minSale = sale.Deposit
		}
		if sale.Deposit > maxSale {
			maxSale = sale.Deposit
		}
	}
	avgSale := float64(sum) / float64(len(comparable))

	ratio := 1.0
	if avgSale > 0 {
		ratio = float64(req.Deposit) / avgSale
	}

	avg := int(avgSale)
	report.SafetyRatio = &ratio
	report.AvgSalePrice = &avg
	report.MinSalePrice = &minSale
	report.MaxSalePrice = &maxSale

	switch {
	case ratio < safeRatioThreshold:
		report.Status = "safe"
		report.Message = fmt.Sprintf("deposit is %.1f%% of the average sale price, within the safe range", ratio*100)
	case ratio < warningRatioThreshold:
		report.Status = "caution"
		report.Message = fmt.Sprintf("deposit is %.1f%% of the average sale price, exercise caution", ratio*100)
	default:
		report.Status = "unsafe"
		report.Message = fmt.Sprintf("deposit is %.1f%% of the average sale price, high risk", ratio*100)
	}
	return report, nil
}

// fillFromListing resolves unset request fields from the stored
// listing. Explicitly supplied values win.
func (s *SafetyService) fillFromListing(ctx context.Context, req *SafetyRequest) error {
	listing, err := s.listings.GetByID(ctx, req.ListingID)
	if err != nil {
		return err
	}
	if req.Deposit <= 0 {
		req.Deposit = listing.Deposit
	}
	if req.PropertyType == "" {
		req.PropertyType = listing.PropertyType
	}
	if req.Dong == "" && listing.Dong != nil {
		req.Dong = *listing.Dong
	}
	if req.AreaM2 == nil {
		req.AreaM2 = listing.AreaM2
	}
	return nil
}

// startYearMonth returns the YYYYMM lower bound covering the last
// periodMonths calendar months, current month inclusive.
func (s *SafetyService) startYearMonth(periodMonths int) int {
	now := s.now().UTC()
	year, month := now.Year(), int(now.Month())
	for i := 0; i < periodMonths-1; i++ {
		month--
		if month < 1 {
			month = 12
			year--
		}
	}
	return year*100 + month
}

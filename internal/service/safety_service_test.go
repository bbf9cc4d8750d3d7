package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mgh3326/rent-radar/internal/database"
	"github.com/mgh3326/rent-radar/internal/domain"
)

type fakeSaleReader struct {
	sales   []domain.RealTrade
	err     error
	filters database.SaleTradeFilters
}

func (f *fakeSaleReader) SaleTrades(_ context.Context, filters database.SaleTradeFilters) ([]domain.RealTrade, error) {
	f.filters = filters
	return f.sales, f.err
}

func fixedClock(year int, month time.Month) SafetyOption {
	return WithSafetyClock(func() time.Time {
		return time.Date(year, month, 15, 12, 0, 0, 0, time.UTC)
	})
}

func saleTrade(deposit int, areaM2 float64) domain.RealTrade {
	return domain.RealTrade{Deposit: deposit, AreaM2: &areaM2}
}

func TestCheckJeonseSafeDeposit(t *testing.T) {
	sales := &fakeSaleReader{sales: []domain.RealTrade{
		saleTrade(90000, 84.9), saleTrade(110000, 84.9),
	}}
	svc := NewSafetyService(&fakeSearcher{}, sales, fixedClock(2026, time.June))

	report, err := svc.CheckJeonse(context.Background(), SafetyRequest{
		Deposit:    60000,
		RegionCode: "11440",
	})
	require.NoError(t, err)

	assert.Equal(t, "safe", report.Status)
	assert.Equal(t, 2, report.ComparableSalesCount)
	require.NotNil(t, report.SafetyRatio)
	assert.InDelta(t, 0.6, *report.SafetyRatio, 0.001)
	require.NotNil(t, report.AvgSalePrice)
	assert.Equal(t, 100000, *report.AvgSalePrice)
	assert.Equal(t, 90000, *report.MinSalePrice)
	assert.Equal(t, 110000, *report.MaxSalePrice)

	// Defaults to a 12-month window ending at the current month.
	assert.Equal(t, "11440", sales.filters.RegionCode)
	assert.Equal(t, 202507, sales.filters.StartYearMonth)
}

func TestCheckJeonseCautionAndUnsafeThresholds(t *testing.T) {
	tests := []struct {
		name    string
		deposit int
		status  string
	}{
		{name: "just under warning", deposit: 89000, status: "caution"},
		{name: "at warning threshold", deposit: 90000, status: "unsafe"},
		{name: "above average", deposit: 120000, status: "unsafe"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sales := &fakeSaleReader{sales: []domain.RealTrade{saleTrade(100000, 59.8)}}
			svc := NewSafetyService(&fakeSearcher{}, sales)

			report, err := svc.CheckJeonse(context.Background(), SafetyRequest{Deposit: tt.deposit})
			require.NoError(t, err)
			assert.Equal(t, tt.status, report.Status)
		})
	}
}

func TestCheckJeonseNoComparableSales(t *testing.T) {
	svc := NewSafetyService(&fakeSearcher{}, &fakeSaleReader{})

	report, err := svc.CheckJeonse(context.Background(), SafetyRequest{Deposit: 50000})
	require.NoError(t, err)

	assert.Equal(t, "unknown", report.Status)
	assert.Zero(t, report.ComparableSalesCount)
	assert.Nil(t, report.SafetyRatio)
	assert.Nil(t, report.AvgSalePrice)
}

func TestCheckJeonseAreaFilter(t *testing.T) {
	sales := &fakeSaleReader{sales: []domain.RealTrade{
		saleTrade(100000, 84.9),
		saleTrade(200000, 114.8), // too large, excluded
		{Deposit: 300000},        // no recorded area, excluded
	}}
	svc := NewSafetyService(&fakeSearcher{}, sales)

	area := 84.5
	report, err := svc.CheckJeonse(context.Background(), SafetyRequest{
		Deposit: 50000,
		AreaM2:  &area,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, report.ComparableSalesCount)
	require.NotNil(t, report.AvgSalePrice)
	assert.Equal(t, 100000, *report.AvgSalePrice)
}

func TestCheckJeonseFillsFromListing(t *testing.T) {
	listings := &fakeSearcher{byID: map[int64]*domain.Listing{7: jeonseListing(55000)}}
	sales := &fakeSaleReader{sales: []domain.RealTrade{saleTrade(100000, 84.9)}}
	svc := NewSafetyService(listings, sales)

	report, err := svc.CheckJeonse(context.Background(), SafetyRequest{ListingID: 7})
	require.NoError(t, err)

	assert.Equal(t, 55000, report.Deposit)
	assert.Equal(t, "safe", report.Status)
	assert.Equal(t, "아현동", sales.filters.Dong)
	assert.Equal(t, "apt", sales.filters.PropertyType)
}

func TestCheckJeonseExplicitValuesWinOverListing(t *testing.T) {
	listings := &fakeSearcher{byID: map[int64]*domain.Listing{7: jeonseListing(55000)}}
	sales := &fakeSaleReader{sales: []domain.RealTrade{saleTrade(100000, 84.9)}}
	svc := NewSafetyService(listings, sales)

	report, err := svc.CheckJeonse(context.Background(), SafetyRequest{
		ListingID: 7,
		Deposit:   60000,
		Dong:      "공덕동",
	})
	require.NoError(t, err)

	assert.Equal(t, 60000, report.Deposit)
	assert.Equal(t, "공덕동", sales.filters.Dong)
}

func TestCheckJeonseUnknownListing(t *testing.T) {
	svc := NewSafetyService(&fakeSearcher{}, &fakeSaleReader{})

	_, err := svc.CheckJeonse(context.Background(), SafetyRequest{ListingID: 404})
	assert.ErrorIs(t, err, database.ErrNotFound)
}

func TestCheckJeonseMissingDeposit(t *testing.T) {
	svc := NewSafetyService(&fakeSearcher{}, &fakeSaleReader{})

	_, err := svc.CheckJeonse(context.Background(), SafetyRequest{})
	assert.ErrorIs(t, err, ErrMissingDeposit)
}

func TestCheckJeonseSaleQueryError(t *testing.T) {
	sales := &fakeSaleReader{err: errors.New("connection refused")}
	svc := NewSafetyService(&fakeSearcher{}, sales)

	_, err := svc.CheckJeonse(context.Background(), SafetyRequest{Deposit: 50000})
	assert.ErrorContains(t, err, "failed to load comparable sales")
}

func TestCheckJeonseWindowCrossesYearBoundary(t *testing.T) {
	sales := &fakeSaleReader{}
	svc := NewSafetyService(&fakeSearcher{}, sales, fixedClock(2026, time.February))

	_, err := svc.CheckJeonse(context.Background(), SafetyRequest{
		Deposit:      50000,
		PeriodMonths: 6,
	})
	require.NoError(t, err)

	// Feb 2026 minus five months lands in September 2025.
	assert.Equal(t, 202509, sales.filters.StartYearMonth)
}

package naver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mgh3326/rent-radar/internal/domain"
)

func TestParseArticle(t *testing.T) {
	item := map[string]any{
		"articleNo":          "2512345",
		"realEstateType":     "OPST",
		"tradeType":          "B2",
		"price1":             "1,000",
		"price2":             float64(65),
		"address":            "서울시 마포구",
		"dong":               "서교동",
		"floorInfo":          "7/15",
		"area1":              "29.75",
		"articleFeatureDesc": "역세권 풀옵션",
		"latitude":           37.5552,
		"longitude":          126.9237,
	}

	record := parseArticle(item)
	require.NotNil(t, record)

	assert.Equal(t, "naver", record.Source)
	assert.Equal(t, "2512345", record.SourceID)
	assert.Equal(t, domain.PropertyOfficetel, record.PropertyType)
	assert.Equal(t, domain.RentMonthly, record.RentType)
	assert.Equal(t, 1000, record.Deposit)
	assert.Equal(t, 65, record.MonthlyRent)
	assert.Equal(t, "서울시 마포구", record.Address)
	require.NotNil(t, record.Dong)
	assert.Equal(t, "서교동", *record.Dong)
	require.NotNil(t, record.Floor)
	assert.Equal(t, 7, *record.Floor)
	require.NotNil(t, record.TotalFloors)
	assert.Equal(t, 15, *record.TotalFloors)
	require.NotNil(t, record.AreaM2)
	assert.InDelta(t, 29.75, *record.AreaM2, 0.001)
}

func TestParseArticleAlternateKeys(t *testing.T) {
	item := map[string]any{
		"articleId":        "99",
		"realEstateTypeCode": "VILLA",
		"tradeTypeCode":    "B1",
		"dealOrWarrantPrc": "15,000",
		"roadAddress":      "서울시 은평구",
	}

	record := parseArticle(item)
	require.NotNil(t, record)

	assert.Equal(t, "99", record.SourceID)
	assert.Equal(t, domain.PropertyVilla, record.PropertyType)
	assert.Equal(t, domain.RentJeonse, record.RentType)
	assert.Equal(t, 15000, record.Deposit)
	assert.Equal(t, 0, record.MonthlyRent)
	assert.Equal(t, "서울시 은평구", record.Address)
	assert.Nil(t, record.Floor)
}

func TestParseArticleRejectsMissingID(t *testing.T) {
	record := parseArticle(map[string]any{"price1": "1000"})
	assert.Nil(t, record)
}

func TestParseArticleUnknownCodesFallBack(t *testing.T) {
	record := parseArticle(map[string]any{
		"articleNo":      "1",
		"realEstateType": "UNKNOWN",
		"tradeType":      "Z9",
	})
	require.NotNil(t, record)
	assert.Equal(t, domain.PropertyApt, record.PropertyType)
	assert.Equal(t, domain.RentJeonse, record.RentType)
}

func TestParseFloorInfo(t *testing.T) {
	floor, total := parseFloorInfo("3/15")
	require.NotNil(t, floor)
	require.NotNil(t, total)
	assert.Equal(t, 3, *floor)
	assert.Equal(t, 15, *total)

	floor, total = parseFloorInfo("고/15")
	assert.Nil(t, floor)
	require.NotNil(t, total)
	assert.Equal(t, 15, *total)

	floor, total = parseFloorInfo("")
	assert.Nil(t, floor)
	assert.Nil(t, total)
}

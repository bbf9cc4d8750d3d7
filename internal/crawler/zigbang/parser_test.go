package zigbang

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mgh3326/rent-radar/internal/domain"
)

func fullItem() map[string]any {
	return map[string]any{
		"item_id":          float64(77001),
		"property_type":    "오피스텔",
		"sales_type":       "월세",
		"deposit":          float64(1000),
		"rent":             float64(70),
		"address":          "서울시 마포구 서교동",
		"exclusive_area_m2": 23.14,
		"floor1":           float64(5),
		"comment":          "신축 풀옵션",
		"full_address":     "서울시 마포구 서교동 400-1",
	}
}

func TestParseItem(t *testing.T) {
	record := parseItem(fullItem(), "서울특별시 마포구")
	require.NotNil(t, record)

	assert.Equal(t, "zigbang", record.Source)
	assert.Equal(t, "77001", record.SourceID)
	assert.Equal(t, domain.PropertyOfficetel, record.PropertyType)
	assert.Equal(t, domain.RentMonthly, record.RentType)
	assert.Equal(t, 1000, record.Deposit)
	assert.Equal(t, 70, record.MonthlyRent)
	require.NotNil(t, record.Dong)
	assert.Equal(t, "서울특별시 마포구", *record.Dong)
	require.NotNil(t, record.Floor)
	assert.Equal(t, 5, *record.Floor)
	require.NotNil(t, record.DetailAddress)
	assert.Equal(t, "서울시 마포구 서교동 400-1", *record.DetailAddress)
}

func TestParseItemShortCodes(t *testing.T) {
	item := map[string]any{
		"itemId":             "88",
		"property_type_code": "A2",
		"sales_type_code":    "G1",
		"deposit":            float64(20000),
		"rent":               float64(0),
		"address":            "서울시 은평구",
	}

	record := parseItem(item, "")
	require.NotNil(t, record)
	assert.Equal(t, domain.PropertyVilla, record.PropertyType)
	assert.Equal(t, domain.RentJeonse, record.RentType)
	assert.Nil(t, record.Dong)
}

func TestParseItemRejectsAbbreviatedSummary(t *testing.T) {
	// A search summary without price fields must not parse; the
	// crawler falls back to the detail endpoint for these.
	summary := map[string]any{"item_id": float64(12), "title": "역세권"}
	assert.Nil(t, parseItem(summary, "서울"))

	// Prices present but no address field at all.
	noAddress := map[string]any{"item_id": float64(12), "deposit": 1, "rent": 1}
	assert.Nil(t, parseItem(noAddress, "서울"))
}

func TestParseItemRejectsMissingID(t *testing.T) {
	item := fullItem()
	delete(item, "item_id")
	assert.Nil(t, parseItem(item, "서울"))
}

func TestDetailCandidatesOrder(t *testing.T) {
	payload := map[string]any{
		"item":  map[string]any{"a": 1},
		"items": []any{map[string]any{"b": 2}},
		"data": map[string]any{
			"item": map[string]any{"c": 3},
		},
	}

	candidates := detailCandidates(payload)
	require.Len(t, candidates, 4)
	// Root first, then item, then list entries, then nested data.
	assert.Equal(t, payload, candidates[0])
	assert.Equal(t, 1, candidates[1]["a"])
	assert.Equal(t, 2, candidates[2]["b"])
	assert.Equal(t, 3, candidates[3]["c"])
}

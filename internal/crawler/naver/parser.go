package naver

import (
	"strconv"
	"strings"

	"github.com/mgh3326/rent-radar/internal/crawler"
	"github.com/mgh3326/rent-radar/internal/domain"
)

// Trade and property type code tables for the Naver articles API.
// Unknown codes fall back to jeonse/apt rather than erroring.
var tradeTypeMap = map[string]domain.RentType{
	"B1": domain.RentJeonse,
	"B2": domain.RentMonthly,
}

var propertyTypeMap = map[string]domain.PropertyType{
	"APT":     domain.PropertyApt,
	"VILLA":   domain.PropertyVilla,
	"OPST":    domain.PropertyOfficetel,
	"ONEROOM": domain.PropertyOneroom,
}

func mapTradeType(code string) domain.RentType {
	if rentType, ok := tradeTypeMap[code]; ok {
		return rentType
	}
	return domain.RentJeonse
}

func mapPropertyType(code string) domain.PropertyType {
	if propertyType, ok := propertyTypeMap[code]; ok {
		return propertyType
	}
	return domain.PropertyApt
}

// parseArticle converts one raw article object into a canonical
// record. Items without an article number are rejected with nil.
func parseArticle(item map[string]any) *domain.ListingRecord {
	sourceID := crawler.FirstString(item, "articleNo", "articleId", "id")
	if sourceID == "" {
		return nil
	}

	floorInfo := crawler.FirstString(item, "floorInfo", "floor")
	floor, totalFloors := parseFloorInfo(floorInfo)

	record := &domain.ListingRecord{
		Source:       "naver",
		SourceID:     sourceID,
		PropertyType: mapPropertyType(crawler.FirstString(item, "realEstateType", "realEstateTypeCode")),
		RentType:     mapTradeType(crawler.FirstString(item, "tradeType", "tradeTypeCode")),
		Deposit:      crawler.ToInt(crawler.FirstValue(item, "price1", "dealOrWarrantPrc", "deposit"), 0),
		MonthlyRent:  crawler.ToInt(crawler.FirstValue(item, "price2", "rentPrc", "monthlyRent"), 0),
		Address:      crawler.FirstString(item, "address", "roadAddress"),
		AreaM2:       crawler.ToFloat(crawler.FirstValue(item, "area1", "area2", "areaM2")),
		Floor:        floor,
		TotalFloors:  totalFloors,
		Description:  crawler.FirstString(item, "articleFeatureDesc", "description"),
		Latitude:     crawler.ToFloat(crawler.FirstValue(item, "latitude", "lat")),
		Longitude:    crawler.ToFloat(crawler.FirstValue(item, "longitude", "lng")),
	}

	if dong := crawler.FirstString(item, "dong", "dongName"); dong != "" {
		record.Dong = &dong
	}
	if detail := crawler.FirstString(item, "detailAddress", "buildingName"); detail != "" {
		record.DetailAddress = &detail
	}

	return record
}

// parseFloorInfo splits the "3/15" floor/total-floors notation.
func parseFloorInfo(info string) (floor, totalFloors *int) {
	parts := strings.Split(info, "/")
	if len(parts) != 2 {
		return nil, nil
	}
	if n, err := strconv.Atoi(strings.TrimSpace(parts[0])); err == nil {
		floor = &n
	}
	if n, err := strconv.Atoi(strings.TrimSpace(parts[1])); err == nil {
		totalFloors = &n
	}
	return floor, totalFloors
}

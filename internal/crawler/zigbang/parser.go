package zigbang

import (
	"github.com/mgh3326/rent-radar/internal/crawler"
	"github.com/mgh3326/rent-radar/internal/domain"
)

// Code tables for the Zigbang API. Responses carry either short codes
// (A1/G1) or Korean display names depending on the endpoint; both are
// mapped, and unknown values fall back to apt/jeonse.
var propertyTypeCodes = map[string]domain.PropertyType{
	"A1":    domain.PropertyApt,
	"A2":    domain.PropertyVilla,
	"A4":    domain.PropertyOfficetel,
	"아파트":   domain.PropertyApt,
	"빌라/연립": domain.PropertyVilla,
	"오피스텔":  domain.PropertyOfficetel,
}

var salesTypeCodes = map[string]domain.RentType{
	"G1": domain.RentJeonse,
	"G2": domain.RentMonthly,
	"전세": domain.RentJeonse,
	"월세": domain.RentMonthly,
}

func mapPropertyType(raw string) domain.PropertyType {
	if propertyType, ok := propertyTypeCodes[raw]; ok {
		return propertyType
	}
	return domain.PropertyApt
}

func mapSalesType(raw string) domain.RentType {
	if rentType, ok := salesTypeCodes[raw]; ok {
		return rentType
	}
	return domain.RentJeonse
}

// extractSourceID tries the drifting identifier keys in priority order.
func extractSourceID(item map[string]any) string {
	return crawler.FirstString(item, "item_id", "itemId", "id")
}

// hasCoreFields reports whether the item looks like a full listing:
// deposit plus rent plus some address field. Abbreviated search
// summaries fail this check and trigger the detail-fetch fallback.
func hasCoreFields(item map[string]any) bool {
	if _, ok := item["deposit"]; !ok {
		return false
	}
	if _, ok := item["rent"]; !ok {
		return false
	}
	_, hasAddress := item["address"]
	_, hasFullAddress := item["full_address"]
	return hasAddress || hasFullAddress
}

// parseItem converts one raw Zigbang item into a canonical record.
// Returns nil for items missing the identifier or the core field set.
func parseItem(item map[string]any, searchRegion string) *domain.ListingRecord {
	sourceID := extractSourceID(item)
	if sourceID == "" {
		return nil
	}
	if !hasCoreFields(item) {
		return nil
	}

	propertyTypeRaw := crawler.FirstString(item, "property_type_code", "property_type", "service_type")
	salesTypeRaw := crawler.FirstString(item, "sales_type_code", "sales_type")

	record := &domain.ListingRecord{
		Source:       "zigbang",
		SourceID:     sourceID,
		PropertyType: mapPropertyType(propertyTypeRaw),
		RentType:     mapSalesType(salesTypeRaw),
		Deposit:      crawler.ToInt(item["deposit"], 0),
		MonthlyRent:  crawler.ToInt(item["rent"], 0),
		Address:      crawler.FirstString(item, "address", "address1"),
		AreaM2:       crawler.ToFloat(crawler.FirstValue(item, "exclusive_area_m2", "area_m2", "size_m2")),
		Floor:        crawler.ToIntPtr(crawler.FirstValue(item, "floor1", "floor")),
		Description:  crawler.FirstString(item, "comment", "title", "description"),
	}

	if searchRegion != "" {
		region := searchRegion
		record.Dong = &region
	}
	if full := crawler.FirstString(item, "full_address", "jibun_address"); full != "" {
		record.DetailAddress = &full
	}

	return record
}

// detailCandidates returns the sub-objects of a detail payload worth
// trying as a listing item, in priority order: the root itself, then
// "item", "items", then the same shapes under "data".
func detailCandidates(payload map[string]any) []map[string]any {
	var candidates []map[string]any

	appendObject := func(value any) {
		if obj := crawler.AsObject(value); obj != nil {
			candidates = append(candidates, obj)
		}
	}
	appendListHead := func(value any) {
		for _, entry := range crawler.AsList(value) {
			appendObject(entry)
		}
	}

	candidates = append(candidates, payload)
	appendObject(payload["item"])
	appendListHead(payload["items"])

	if data := crawler.AsObject(payload["data"]); data != nil {
		appendObject(data["item"])
		appendListHead(data["items"])
	}

	return candidates
}

package molit

import (
	"strings"

	"github.com/antchfx/xmlquery"

	"github.com/mgh3326/rent-radar/internal/crawler"
	"github.com/mgh3326/rent-radar/internal/domain"
)

// elementText looks up candidate element names in priority order and
// returns the first non-empty trimmed text. The portal has served both
// Korean and English tag names across API revisions.
func elementText(item *xmlquery.Node, candidates ...string) string {
	for _, name := range candidates {
		if el := item.SelectElement(name); el != nil {
			if text := strings.TrimSpace(el.InnerText()); text != "" {
				return text
			}
		}
	}
	return ""
}

// parseItem converts one <item> element into a canonical trade record.
// Items without a contract year/month are rejected with nil.
func parseItem(regionCode string, item *xmlquery.Node) *domain.TradeRecord {
	contractYear := crawler.ToInt(elementText(item, "년", "dealYear"), 0)
	contractMonth := crawler.ToInt(elementText(item, "월", "dealMonth"), 0)
	contractDay := crawler.ToInt(elementText(item, "일", "dealDay"), 1)
	if contractYear <= 0 || contractMonth <= 0 {
		return nil
	}

	deposit := crawler.ToInt(stripDash(elementText(item, "보증금액", "deposit")), 0)
	monthlyRent := crawler.ToInt(stripDash(elementText(item, "월세금액", "monthlyRent")), 0)

	rentType := domain.RentJeonse
	if monthlyRent > 0 {
		rentType = domain.RentMonthly
	}

	record := &domain.TradeRecord{
		PropertyType:  domain.PropertyApt,
		RentType:      rentType,
		TradeCategory: domain.TradeRent,
		RegionCode:    regionCode,
		Deposit:       deposit,
		MonthlyRent:   monthlyRent,
		AreaM2:        crawler.ToFloat(elementText(item, "전용면적", "excluUseAr")),
		ContractYear:  contractYear,
		ContractMonth: contractMonth,
		ContractDay:   contractDay,
	}

	if dong := elementText(item, "법정동", "umdNm"); dong != "" {
		record.Dong = &dong
	}
	if aptName := elementText(item, "아파트", "aptNm"); aptName != "" {
		record.AptName = &aptName
	}
	if floor := crawler.ToInt(elementText(item, "층", "floor"), 0); floor != 0 {
		record.Floor = &floor
	}

	return record
}

// stripDash removes the placeholder dash the portal uses for empty
// money amounts.
func stripDash(raw string) string {
	return strings.ReplaceAll(raw, "-", "")
}

// parseXML extracts all trade records from one response page.
func parseXML(regionCode, xmlText string) ([]domain.TradeRecord, int, error) {
	doc, err := xmlquery.Parse(strings.NewReader(xmlText))
	if err != nil {
		return nil, 0, err
	}

	items := xmlquery.Find(doc, "//item")
	parsed := make([]domain.TradeRecord, 0, len(items))
	for _, item := range items {
		if record := parseItem(regionCode, item); record != nil {
			parsed = append(parsed, *record)
		}
	}
	return parsed, len(items), nil
}

// Package regioncode maps 5-digit legal district codes to their
// Korean district names. The table covers the Seoul districts plus the
// nearby metro areas the crawlers target.
package regioncode

import "sort"

var districtNames = map[string]string{
	"11110": "서울특별시 종로구",
	"11140": "서울특별시 중구",
	"11170": "서울특별시 용산구",
	"11200": "서울특별시 성동구",
	"11215": "서울특별시 광진구",
	"11230": "서울특별시 동대문구",
	"11260": "서울특별시 중랑구",
	"11290": "서울특별시 성북구",
	"11305": "서울특별시 강북구",
	"11320": "서울특별시 도봉구",
	"11350": "서울특별시 노원구",
	"11380": "서울특별시 은평구",
	"11410": "서울특별시 서대문구",
	"11440": "서울특별시 마포구",
	"11470": "서울특별시 양천구",
	"11500": "서울특별시 강서구",
	"11530": "서울특별시 구로구",
	"11545": "서울특별시 금천구",
	"11560": "서울특별시 영등포구",
	"11590": "서울특별시 동작구",
	"11620": "서울특별시 관악구",
	"11650": "서울특별시 서초구",
	"11680": "서울특별시 강남구",
	"11710": "서울특별시 송파구",
	"11740": "서울특별시 강동구",
	"41131": "경기도 성남시 수정구",
	"41133": "경기도 성남시 중원구",
	"41135": "경기도 성남시 분당구",
	"41173": "경기도 안양시 동안구",
	"41210": "경기도 광명시",
	"41285": "경기도 고양시 일산동구",
	"41287": "경기도 고양시 일산서구",
	"41450": "경기도 하남시",
	"41465": "경기도 용인시 수지구",
	"28237": "인천광역시 부평구",
	"28260": "인천광역시 서구",
}

// Name returns the district name for a code. The second return
// reports whether the code is known.
func Name(code string) (string, bool) {
	name, ok := districtNames[code]
	return name, ok
}

// NameOrCode returns the district name, falling back to the raw code
// for unknown regions so callers always have something displayable.
func NameOrCode(code string) string {
	if name, ok := districtNames[code]; ok {
		return name
	}
	return code
}

// Known reports whether the code exists in the table.
func Known(code string) bool {
	_, ok := districtNames[code]
	return ok
}

// Codes returns all known codes in sorted order.
func Codes() []string {
	codes := make([]string, 0, len(districtNames))
	for code := range districtNames {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

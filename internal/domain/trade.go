package domain

import "time"

// TradeCategory distinguishes rental trades from sales.
type TradeCategory string

const (
	TradeRent TradeCategory = "rent"
	TradeSale TradeCategory = "sale"
)

// TradeRecord is the canonical crawl output for an official real-trade
// row from the public data portal. Trades are immutable historical
// facts: the store only ever inserts them, never updates.
//
// The identity tuple (property_type, region_code, dong, apt_name,
// area_m2, floor, contract_year, contract_month, contract_day,
// rent_type, trade_category) must be fully populated before insert;
// Normalize replaces nils with ""/0 so the uniqueness constraint can
// actually catch duplicates (SQL treats NULLs as distinct).
type TradeRecord struct {
	PropertyType  PropertyType
	RentType      RentType
	TradeCategory TradeCategory
	RegionCode    string
	Dong          *string
	AptName       *string
	Deposit       int
	MonthlyRent   int
	AreaM2        *float64
	Floor         *int
	ContractYear  int
	ContractMonth int
	ContractDay   int
}

// Normalize fills identity fields that arrived empty so duplicates
// collide on the unique constraint instead of slipping past it.
func (t *TradeRecord) Normalize() {
	if t.Dong == nil {
		empty := ""
		t.Dong = &empty
	}
	if t.AptName == nil {
		empty := ""
		t.AptName = &empty
	}
	if t.AreaM2 == nil {
		zero := 0.0
		t.AreaM2 = &zero
	}
	if t.Floor == nil {
		zero := 0
		t.Floor = &zero
	}
	if t.TradeCategory == "" {
		t.TradeCategory = TradeRent
	}
}

// RealTrade is a persisted official trade row.
type RealTrade struct {
	ID            int64     `db:"id" json:"id"`
	PropertyType  string    `db:"property_type" json:"property_type"`
	RentType      string    `db:"rent_type" json:"rent_type"`
	TradeCategory string    `db:"trade_category" json:"trade_category"`
	RegionCode    string    `db:"region_code" json:"region_code"`
	Dong          string    `db:"dong" json:"dong"`
	AptName       string    `db:"apt_name" json:"apt_name"`
	Deposit       int       `db:"deposit" json:"deposit"`
	MonthlyRent   int       `db:"monthly_rent" json:"monthly_rent"`
	AreaM2        *float64  `db:"area_m2" json:"area_m2"`
	Floor         int       `db:"floor" json:"floor"`
	ContractYear  int       `db:"contract_year" json:"contract_year"`
	ContractMonth int       `db:"contract_month" json:"contract_month"`
	ContractDay   int       `db:"contract_day" json:"contract_day"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// TrendPoint is a monthly aggregate of trade prices.
type TrendPoint struct {
	ContractYear   int     `db:"contract_year" json:"contract_year"`
	ContractMonth  int     `db:"contract_month" json:"contract_month"`
	AvgDeposit     float64 `db:"avg_deposit" json:"avg_deposit"`
	AvgMonthlyRent float64 `db:"avg_monthly_rent" json:"avg_monthly_rent"`
	TradeCount     int     `db:"trade_count" json:"trade_count"`
}

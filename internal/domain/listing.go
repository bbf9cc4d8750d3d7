// Package domain defines the core data types shared across crawlers,
// repositories, and services.
package domain

import "time"

// PropertyType is the normalized property classification.
type PropertyType string

const (
	PropertyApt       PropertyType = "apt"
	PropertyVilla     PropertyType = "villa"
	PropertyOfficetel PropertyType = "officetel"
	PropertyOneroom   PropertyType = "oneroom"
)

// RentType distinguishes deposit-only (jeonse) from deposit-plus-monthly rentals.
type RentType string

const (
	RentJeonse  RentType = "jeonse"
	RentMonthly RentType = "monthly"
)

// ListingRecord is the canonical crawl output for a rental listing,
// prior to persistence. Deposit and monthly rent are in units of
// 10,000 KRW.
type ListingRecord struct {
	Source        string
	SourceID      string
	PropertyType  PropertyType
	RentType      RentType
	Deposit       int
	MonthlyRent   int
	Address       string
	Dong          *string
	DetailAddress *string
	AreaM2        *float64
	Floor         *int
	TotalFloors   *int
	Description   string
	Latitude      *float64
	Longitude     *float64
}

// Key returns the natural key for in-run deduplication and upserts.
// Records with an empty key must be discarded before persistence.
func (r ListingRecord) Key() string {
	return r.Source + ":" + r.SourceID
}

// Valid reports whether the record carries its natural-key identifier.
func (r ListingRecord) Valid() bool {
	return r.Source != "" && r.SourceID != ""
}

// Listing is a persisted rental listing row.
type Listing struct {
	ID            int64      `db:"id" json:"id"`
	Source        string     `db:"source" json:"source"`
	SourceID      string     `db:"source_id" json:"source_id"`
	PropertyType  string     `db:"property_type" json:"property_type"`
	RentType      string     `db:"rent_type" json:"rent_type"`
	Deposit       int        `db:"deposit" json:"deposit"`
	MonthlyRent   int        `db:"monthly_rent" json:"monthly_rent"`
	Address       string     `db:"address" json:"address"`
	Dong          *string    `db:"dong" json:"dong"`
	DetailAddress *string    `db:"detail_address" json:"detail_address"`
	AreaM2        *float64   `db:"area_m2" json:"area_m2"`
	Floor         *int       `db:"floor" json:"floor"`
	TotalFloors   *int       `db:"total_floors" json:"total_floors"`
	Description   *string    `db:"description" json:"description"`
	Latitude      *float64   `db:"latitude" json:"latitude"`
	Longitude     *float64   `db:"longitude" json:"longitude"`
	IsActive      bool       `db:"is_active" json:"is_active"`
	FirstSeenAt   time.Time  `db:"first_seen_at" json:"first_seen_at"`
	LastSeenAt    time.Time  `db:"last_seen_at" json:"last_seen_at"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

// PriceChange is an append-only audit row recorded whenever an upsert
// observes a deposit or monthly rent that differs from the stored value.
type PriceChange struct {
	ID             int64     `db:"id" json:"id"`
	ListingID      int64     `db:"listing_id" json:"listing_id"`
	OldDeposit     int       `db:"old_deposit" json:"old_deposit"`
	OldMonthlyRent int       `db:"old_monthly_rent" json:"old_monthly_rent"`
	NewDeposit     int       `db:"new_deposit" json:"new_deposit"`
	NewMonthlyRent int       `db:"new_monthly_rent" json:"new_monthly_rent"`
	ChangedAt      time.Time `db:"changed_at" json:"changed_at"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// Favorite is a user-scoped bookmark with a point-in-time price snapshot.
type Favorite struct {
	ID                int64     `db:"id" json:"id"`
	UserID            string    `db:"user_id" json:"user_id"`
	ListingID         int64     `db:"listing_id" json:"listing_id"`
	DepositAtSave     *int      `db:"deposit_at_save" json:"deposit_at_save"`
	MonthlyRentAtSave *int      `db:"monthly_rent_at_save" json:"monthly_rent_at_save"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
}

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/mgh3326/rent-radar/internal/domain"
)

// listingSelectColumns lists columns for SELECT queries on listings.
const listingSelectColumns = `id, source, source_id, property_type, rent_type, deposit, monthly_rent,
	address, dong, detail_address, area_m2, floor, total_floors, description,
	latitude, longitude, is_active, first_seen_at, last_seen_at, created_at, updated_at`

// listingInsertColumns lists the data columns written by upserts, in
// bind order.
const listingInsertColumns = `source, source_id, property_type, rent_type, deposit, monthly_rent,
	address, dong, detail_address, area_m2, floor, total_floors, description, latitude, longitude`

const listingInsertColumnCount = 15

// defaultSearchLimit caps result sets when the caller does not ask for
// a specific limit.
const defaultSearchLimit = 50

// ListingRepository owns all writes to listings and price_changes.
// Crawlers hold only transient in-memory records and never touch
// storage directly.
type ListingRepository struct {
	db *sqlx.DB
}

// NewListingRepository creates a new listing repository.
func NewListingRepository(db *sqlx.DB) *ListingRepository {
	return &ListingRepository{db: db}
}

// Upsert merges canonical records into the listings store:
// insert-if-absent, update-if-present, recording a price_changes audit
// row whenever deposit or monthly rent differ from the stored values.
// Input rows are deduplicated by natural key (last write wins) so one
// call never issues two conflicting writes for the same key.
// Re-upserting an unchanged batch refreshes last_seen_at but emits no
// further price changes.
func (r *ListingRepository) Upsert(ctx context.Context, records []domain.ListingRecord) (int, error) {
	rows := dedupeLastWins(records)
	if len(rows) == 0 {
		return 0, nil
	}

	if r.db.DriverName() == "postgres" {
		return r.upsertBulk(ctx, rows)
	}
	return r.upsertRowByRow(ctx, rows)
}

// dedupeLastWins collapses records sharing a natural key, keeping the
// most recent record at the position of the first occurrence, and
// drops records with an incomplete key.
func dedupeLastWins(records []domain.ListingRecord) []domain.ListingRecord {
	index := make(map[string]int, len(records))
	deduped := make([]domain.ListingRecord, 0, len(records))
	for _, record := range records {
		if !record.Valid() {
			continue
		}
		if at, ok := index[record.Key()]; ok {
			deduped[at] = record
			continue
		}
		index[record.Key()] = len(deduped)
		deduped = append(deduped, record)
	}
	return deduped
}

// existingPrice is the slice of an existing row needed for price-delta
// detection.
type existingPrice struct {
	ID          int64  `db:"id"`
	Source      string `db:"source"`
	SourceID    string `db:"source_id"`
	Deposit     int    `db:"deposit"`
	MonthlyRent int    `db:"monthly_rent"`
}

// upsertBulk is the Postgres fast path: one existing-row scan for
// price deltas, one batched price_changes insert, one multi-row
// conflict-resolving insert.
func (r *ListingRepository) upsertBulk(ctx context.Context, rows []domain.ListingRecord) (int, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin upsert transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	existing, err := selectExistingPrices(ctx, tx, rows)
	if err != nil {
		return 0, err
	}

	if insertErr := insertPriceChanges(ctx, tx, rows, existing); insertErr != nil {
		return 0, insertErr
	}

	if writeErr := bulkWriteListings(ctx, tx, rows); writeErr != nil {
		return 0, writeErr
	}

	if commitErr := tx.Commit(); commitErr != nil {
		return 0, fmt.Errorf("failed to commit upsert transaction: %w", commitErr)
	}

	return len(rows), nil
}

// selectExistingPrices loads the stored prices for every batch key.
func selectExistingPrices(
	ctx context.Context,
	tx *sqlx.Tx,
	rows []domain.ListingRecord,
) (map[string]existingPrice, error) {
	pairs := make([]string, 0, len(rows))
	args := make([]any, 0, len(rows)*2)
	for i, row := range rows {
		pairs = append(pairs, fmt.Sprintf("($%d, $%d)", i*2+1, i*2+2))
		args = append(args, row.Source, row.SourceID)
	}

	query := `
		SELECT id, source, source_id, deposit, monthly_rent
		FROM listings
		WHERE (source, source_id) IN (` + strings.Join(pairs, ", ") + `)`

	var found []existingPrice
	if err := tx.SelectContext(ctx, &found, query, args...); err != nil {
		return nil, fmt.Errorf("failed to select existing listings: %w", err)
	}

	existing := make(map[string]existingPrice, len(found))
	for _, row := range found {
		existing[row.Source+":"+row.SourceID] = row
	}
	return existing, nil
}

// insertPriceChanges writes one audit row per price delta, before the
// new values overwrite the stored ones.
func insertPriceChanges(
	ctx context.Context,
	tx *sqlx.Tx,
	rows []domain.ListingRecord,
	existing map[string]existingPrice,
) error {
	var (
		values []string
		args   []any
	)
	for _, row := range rows {
		old, ok := existing[row.Key()]
		if !ok || (old.Deposit == row.Deposit && old.MonthlyRent == row.MonthlyRent) {
			continue
		}
		base := len(args)
		values = append(values, fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, NOW())",
			base+1, base+2, base+3, base+4, base+5))
		args = append(args, old.ID, old.Deposit, old.MonthlyRent, row.Deposit, row.MonthlyRent)
	}
	if len(values) == 0 {
		return nil
	}

	query := `
		INSERT INTO price_changes (listing_id, old_deposit, old_monthly_rent, new_deposit, new_monthly_rent, changed_at)
		VALUES ` + strings.Join(values, ", ")

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert price changes: %w", err)
	}
	return nil
}

// bulkWriteListings issues the single conflict-resolving multi-row
// insert that makes the fast path one round trip for the data itself.
func bulkWriteListings(ctx context.Context, tx *sqlx.Tx, rows []domain.ListingRecord) error {
	values := make([]string, 0, len(rows))
	args := make([]any, 0, len(rows)*listingInsertColumnCount)
	for i, row := range rows {
		base := i * listingInsertColumnCount
		marks := make([]string, 0, listingInsertColumnCount)
		for j := 1; j <= listingInsertColumnCount; j++ {
			marks = append(marks, fmt.Sprintf("$%d", base+j))
		}
		values = append(values, "("+strings.Join(marks, ", ")+", TRUE, NOW(), NOW())")
		args = append(args, listingArgs(row)...)
	}

	query := `
		INSERT INTO listings (` + listingInsertColumns + `, is_active, first_seen_at, last_seen_at)
		VALUES ` + strings.Join(values, ", ") + `
		ON CONFLICT (source, source_id) DO UPDATE SET
			property_type = EXCLUDED.property_type,
			rent_type = EXCLUDED.rent_type,
			deposit = EXCLUDED.deposit,
			monthly_rent = EXCLUDED.monthly_rent,
			address = EXCLUDED.address,
			dong = EXCLUDED.dong,
			detail_address = EXCLUDED.detail_address,
			area_m2 = EXCLUDED.area_m2,
			floor = EXCLUDED.floor,
			total_floors = EXCLUDED.total_floors,
			description = EXCLUDED.description,
			latitude = EXCLUDED.latitude,
			longitude = EXCLUDED.longitude,
			is_active = TRUE,
			last_seen_at = NOW(),
			updated_at = NOW()`

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to bulk upsert listings: %w", err)
	}
	return nil
}

// listingArgs returns the bind arguments for one record, matching
// listingInsertColumns order.
func listingArgs(row domain.ListingRecord) []any {
	return []any{
		row.Source, row.SourceID, string(row.PropertyType), string(row.RentType),
		row.Deposit, row.MonthlyRent, row.Address, row.Dong, row.DetailAddress,
		row.AreaM2, row.Floor, row.TotalFloors, row.Description,
		row.Latitude, row.Longitude,
	}
}

// upsertRowByRow is the portable fallback for storage backends without
// a native bulk upsert: existence check, then branch to insert or
// update, per row.
func (r *ListingRepository) upsertRowByRow(ctx context.Context, rows []domain.ListingRecord) (int, error) {
	processed := 0
	for _, row := range rows {
		var old existingPrice
		query := r.db.Rebind(`SELECT id, source, source_id, deposit, monthly_rent FROM listings WHERE source = ? AND source_id = ?`)
		err := r.db.GetContext(ctx, &old, query, row.Source, row.SourceID)

		switch {
		case errors.Is(err, sql.ErrNoRows):
			if insertErr := r.insertListing(ctx, row); insertErr != nil {
				return processed, insertErr
			}
		case err != nil:
			return processed, fmt.Errorf("failed to check existing listing: %w", err)
		default:
			if old.Deposit != row.Deposit || old.MonthlyRent != row.MonthlyRent {
				if auditErr := r.insertPriceChange(ctx, old, row); auditErr != nil {
					return processed, auditErr
				}
			}
			if updateErr := r.updateListing(ctx, old.ID, row); updateErr != nil {
				return processed, updateErr
			}
		}
		processed++
	}
	return processed, nil
}

func (r *ListingRepository) insertListing(ctx context.Context, row domain.ListingRecord) error {
	now := time.Now().UTC()
	query := r.db.Rebind(`
		INSERT INTO listings (` + listingInsertColumns + `, is_active, first_seen_at, last_seen_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)

	args := append(listingArgs(row), true, now, now)
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert listing: %w", err)
	}
	return nil
}

func (r *ListingRepository) updateListing(ctx context.Context, id int64, row domain.ListingRecord) error {
	now := time.Now().UTC()
	query := r.db.Rebind(`
		UPDATE listings
		SET property_type = ?, rent_type = ?, deposit = ?, monthly_rent = ?,
			address = ?, dong = ?, detail_address = ?, area_m2 = ?, floor = ?,
			total_floors = ?, description = ?, latitude = ?, longitude = ?,
			is_active = ?, last_seen_at = ?, updated_at = ?
		WHERE id = ?`)

	result, err := r.db.ExecContext(ctx, query,
		string(row.PropertyType), string(row.RentType), row.Deposit, row.MonthlyRent,
		row.Address, row.Dong, row.DetailAddress, row.AreaM2, row.Floor,
		row.TotalFloors, row.Description, row.Latitude, row.Longitude,
		true, now, now, id,
	)
	return requireAffected(result, err, fmt.Errorf("listing not found: %d", id))
}

func (r *ListingRepository) insertPriceChange(ctx context.Context, old existingPrice, row domain.ListingRecord) error {
	query := r.db.Rebind(`
		INSERT INTO price_changes (listing_id, old_deposit, old_monthly_rent, new_deposit, new_monthly_rent, changed_at)
		VALUES (?, ?, ?, ?, ?, ?)`)

	_, err := r.db.ExecContext(ctx, query,
		old.ID, old.Deposit, old.MonthlyRent, row.Deposit, row.MonthlyRent, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert price change: %w", err)
	}
	return nil
}

// DeactivateStale flips is_active off for every active listing of
// source not re-observed within the threshold. The predicate is scoped
// on last_seen_at rather than a snapshot of IDs, so a listing
// re-observed mid-pass stays active.
func (r *ListingRepository) DeactivateStale(ctx context.Context, source string, threshold time.Duration) (int64, error) {
	query := `
		UPDATE listings
		SET is_active = FALSE, updated_at = NOW()
		WHERE source = $1
		  AND is_active
		  AND last_seen_at < NOW() - ($2 * INTERVAL '1 hour')`

	result, err := r.db.ExecContext(ctx, query, source, threshold.Hours())
	if err != nil {
		return 0, fmt.Errorf("failed to deactivate stale listings: %w", err)
	}

	deactivated, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return deactivated, nil
}

// GetByID retrieves a listing by surrogate key.
func (r *ListingRepository) GetByID(ctx context.Context, id int64) (*domain.Listing, error) {
	var listing domain.Listing
	query := `SELECT ` + listingSelectColumns + ` FROM listings WHERE id = $1`

	err := r.db.GetContext(ctx, &listing, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("listing %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get listing: %w", err)
	}
	return &listing, nil
}

// ListingFilters represents optional search filters.
type ListingFilters struct {
	Source         string
	Dong           string
	PropertyType   string
	RentType       string
	MinDeposit     *int
	MaxDeposit     *int
	MinMonthlyRent *int
	MaxMonthlyRent *int
	MinArea        *float64
	MaxArea        *float64
	MinFloor       *int
	MaxFloor       *int
	IsActive       *bool
	Limit          int
}

// Search returns listings matching the filters with stable ordering
// (deposit asc, id asc). A zero limit falls back to the default; a
// negative limit is a validation error.
func (r *ListingRepository) Search(ctx context.Context, filters ListingFilters) ([]domain.Listing, error) {
	if filters.Limit < 0 {
		return nil, ErrInvalidLimit
	}
	if filters.Limit == 0 {
		filters.Limit = defaultSearchLimit
	}

	whereClause, args := buildListingWhere(filters)
	query := fmt.Sprintf(`
		SELECT %s
		FROM listings
		%s
		ORDER BY deposit ASC, id ASC
		LIMIT $%d`, listingSelectColumns, whereClause, len(args)+1)
	args = append(args, filters.Limit)

	var listings []domain.Listing
	if err := r.db.SelectContext(ctx, &listings, query, args...); err != nil {
		return nil, fmt.Errorf("failed to search listings: %w", err)
	}
	if listings == nil {
		listings = []domain.Listing{}
	}
	return listings, nil
}

// buildListingWhere builds the WHERE clause and args for listing queries.
func buildListingWhere(filters ListingFilters) (whereClause string, args []any) {
	var conditions []string
	args = []any{}

	add := func(condition string, value any) {
		conditions = append(conditions, fmt.Sprintf(condition, len(args)+1))
		args = append(args, value)
	}

	if filters.Source != "" {
		add("source = $%d", filters.Source)
	}
	if filters.Dong != "" {
		add("dong ILIKE $%d", "%"+filters.Dong+"%")
	}
	if filters.PropertyType != "" {
		add("property_type = $%d", filters.PropertyType)
	}
	if filters.RentType != "" {
		add("rent_type = $%d", filters.RentType)
	}
	if filters.MinDeposit != nil {
		add("deposit >= $%d", *filters.MinDeposit)
	}
	if filters.MaxDeposit != nil {
		add("deposit <= $%d", *filters.MaxDeposit)
	}
	if filters.MinMonthlyRent != nil {
		add("monthly_rent >= $%d", *filters.MinMonthlyRent)
	}
	if filters.MaxMonthlyRent != nil {
		add("monthly_rent <= $%d", *filters.MaxMonthlyRent)
	}
	if filters.MinArea != nil {
		add("area_m2 >= $%d", *filters.MinArea)
	}
	if filters.MaxArea != nil {
		add("area_m2 <= $%d", *filters.MaxArea)
	}
	if filters.MinFloor != nil {
		add("floor >= $%d", *filters.MinFloor)
	}
	if filters.MaxFloor != nil {
		add("floor <= $%d", *filters.MaxFloor)
	}
	if filters.IsActive != nil {
		add("is_active = $%d", *filters.IsActive)
	}

	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}
	return whereClause, args
}

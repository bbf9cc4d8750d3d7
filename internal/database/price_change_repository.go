package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/mgh3326/rent-radar/internal/domain"
)

// PriceChangeRepository reads the append-only price audit trail.
// Writes happen inside ListingRepository.Upsert, within the same
// transaction as the listing update.
type PriceChangeRepository struct {
	db *sqlx.DB
}

// NewPriceChangeRepository creates a new price change repository.
func NewPriceChangeRepository(db *sqlx.DB) *PriceChangeRepository {
	return &PriceChangeRepository{db: db}
}

// History returns a listing's price changes, newest first.
func (r *PriceChangeRepository) History(ctx context.Context, listingID int64, limit int) ([]domain.PriceChange, error) {
	if limit < 0 {
		return nil, ErrInvalidLimit
	}
	if limit == 0 {
		limit = defaultSearchLimit
	}

	query := `
		SELECT id, listing_id, old_deposit, old_monthly_rent, new_deposit, new_monthly_rent, changed_at, created_at
		FROM price_changes
		WHERE listing_id = $1
		ORDER BY changed_at DESC, id DESC
		LIMIT $2`

	var changes []domain.PriceChange
	if err := r.db.SelectContext(ctx, &changes, query, listingID, limit); err != nil {
		return nil, fmt.Errorf("failed to query price changes: %w", err)
	}
	if changes == nil {
		changes = []domain.PriceChange{}
	}
	return changes, nil
}

// Recent returns the latest price changes across all listings, for the
// drops feed.
func (r *PriceChangeRepository) Recent(ctx context.Context, limit int) ([]domain.PriceChange, error) {
	if limit < 0 {
		return nil, ErrInvalidLimit
	}
	if limit == 0 {
		limit = defaultSearchLimit
	}

	query := `
		SELECT id, listing_id, old_deposit, old_monthly_rent, new_deposit, new_monthly_rent, changed_at, created_at
		FROM price_changes
		ORDER BY changed_at DESC, id DESC
		LIMIT $1`

	var changes []domain.PriceChange
	if err := r.db.SelectContext(ctx, &changes, query, limit); err != nil {
		return nil, fmt.Errorf("failed to query recent price changes: %w", err)
	}
	if changes == nil {
		changes = []domain.PriceChange{}
	}
	return changes, nil
}

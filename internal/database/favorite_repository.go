package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/mgh3326/rent-radar/internal/domain"
)

// FavoriteRepository stores user bookmarks with a price snapshot taken
// at save time, so later drift against the live listing is observable.
type FavoriteRepository struct {
	db *sqlx.DB
}

// NewFavoriteRepository creates a new favorite repository.
func NewFavoriteRepository(db *sqlx.DB) *FavoriteRepository {
	return &FavoriteRepository{db: db}
}

// Add bookmarks a listing for a user, snapshotting its current prices.
// Re-adding an existing bookmark is a no-op and returns the stored row.
func (r *FavoriteRepository) Add(ctx context.Context, userID string, listingID int64) (*domain.Favorite, error) {
	query := `
		INSERT INTO favorites (user_id, listing_id, deposit_at_save, monthly_rent_at_save)
		SELECT $1, l.id, l.deposit, l.monthly_rent
		FROM listings l
		WHERE l.id = $2
		ON CONFLICT (user_id, listing_id) DO NOTHING
		RETURNING id, user_id, listing_id, deposit_at_save, monthly_rent_at_save, created_at`

	var favorite domain.Favorite
	err := r.db.GetContext(ctx, &favorite, query, userID, listingID)
	if err == nil {
		return &favorite, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to add favorite: %w", err)
	}

	// No row returned: either the bookmark already exists or the
	// listing does not. Disambiguate by reading back.
	existing, getErr := r.get(ctx, userID, listingID)
	if getErr != nil {
		if errors.Is(getErr, sql.ErrNoRows) {
			return nil, fmt.Errorf("listing %d: %w", listingID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read back favorite: %w", getErr)
	}
	return existing, nil
}

func (r *FavoriteRepository) get(ctx context.Context, userID string, listingID int64) (*domain.Favorite, error) {
	var favorite domain.Favorite
	query := `
		SELECT id, user_id, listing_id, deposit_at_save, monthly_rent_at_save, created_at
		FROM favorites
		WHERE user_id = $1 AND listing_id = $2`
	if err := r.db.GetContext(ctx, &favorite, query, userID, listingID); err != nil {
		return nil, err
	}
	return &favorite, nil
}

// Remove deletes a bookmark.
func (r *FavoriteRepository) Remove(ctx context.Context, userID string, listingID int64) error {
	query := `DELETE FROM favorites WHERE user_id = $1 AND listing_id = $2`

	result, err := r.db.ExecContext(ctx, query, userID, listingID)
	return requireAffected(result, err, fmt.Errorf("favorite for listing %d: %w", listingID, ErrNotFound))
}

// FavoriteWithListing joins a bookmark with its live listing so
// callers can compute price drift since save.
type FavoriteWithListing struct {
	Favorite domain.Favorite `json:"favorite"`
	Listing  domain.Listing  `json:"listing"`
}

// ListWithListings returns a user's bookmarks joined with the current
// listing state, newest bookmark first.
func (r *FavoriteRepository) ListWithListings(ctx context.Context, userID string) ([]FavoriteWithListing, error) {
	query := `
		SELECT
			f.id AS "favorite.id",
			f.user_id AS "favorite.user_id",
			f.listing_id AS "favorite.listing_id",
			f.deposit_at_save AS "favorite.deposit_at_save",
			f.monthly_rent_at_save AS "favorite.monthly_rent_at_save",
			f.created_at AS "favorite.created_at",
			l.id AS "listing.id",
			l.source AS "listing.source",
			l.source_id AS "listing.source_id",
			l.property_type AS "listing.property_type",
			l.rent_type AS "listing.rent_type",
			l.deposit AS "listing.deposit",
			l.monthly_rent AS "listing.monthly_rent",
			l.address AS "listing.address",
			l.dong AS "listing.dong",
			l.detail_address AS "listing.detail_address",
			l.area_m2 AS "listing.area_m2",
			l.floor AS "listing.floor",
			l.total_floors AS "listing.total_floors",
			l.description AS "listing.description",
			l.latitude AS "listing.latitude",
			l.longitude AS "listing.longitude",
			l.is_active AS "listing.is_active",
			l.first_seen_at AS "listing.first_seen_at",
			l.last_seen_at AS "listing.last_seen_at",
			l.created_at AS "listing.created_at",
			l.updated_at AS "listing.updated_at"
		FROM favorites f
		JOIN listings l ON l.id = f.listing_id
		WHERE f.user_id = $1
		ORDER BY f.created_at DESC, f.id DESC`

	rows := []struct {
		Favorite domain.Favorite `db:"favorite"`
		Listing  domain.Listing  `db:"listing"`
	}{}
	if err := r.db.SelectContext(ctx, &rows, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list favorites: %w", err)
	}

	result := make([]FavoriteWithListing, 0, len(rows))
	for _, row := range rows {
		result = append(result, FavoriteWithListing{Favorite: row.Favorite, Listing: row.Listing})
	}
	return result, nil
}

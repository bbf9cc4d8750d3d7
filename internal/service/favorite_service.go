package service

import (
	"context"

	"github.com/mgh3326/rent-radar/internal/database"
	"github.com/mgh3326/rent-radar/internal/domain"
)

// FavoriteStore is the repository surface for bookmarks.
type FavoriteStore interface {
	Add(ctx context.Context, userID string, listingID int64) (*domain.Favorite, error)
	Remove(ctx context.Context, userID string, listingID int64) error
	ListWithListings(ctx context.Context, userID string) ([]database.FavoriteWithListing, error)
}

// FavoriteDrift is a bookmark annotated with how far the live prices
// have moved since the user saved it.
type FavoriteDrift struct {
	Favorite         domain.Favorite `json:"favorite"`
	Listing          domain.Listing  `json:"listing"`
	DepositDrift     *int            `json:"deposit_drift"`
	MonthlyRentDrift *int            `json:"monthly_rent_drift"`
}

// FavoriteService manages bookmarks and their price drift.
type FavoriteService struct {
	repo FavoriteStore
}

// NewFavoriteService creates a favorite service.
func NewFavoriteService(repo FavoriteStore) *FavoriteService {
	return &FavoriteService{repo: repo}
}

// Add bookmarks a listing, snapshotting its current prices.
func (s *FavoriteService) Add(ctx context.Context, userID string, listingID int64) (*domain.Favorite, error) {
	return s.repo.Add(ctx, userID, listingID)
}

// Remove deletes a bookmark.
func (s *FavoriteService) Remove(ctx context.Context, userID string, listingID int64) error {
	return s.repo.Remove(ctx, userID, listingID)
}

// List returns a user's bookmarks with price drift computed against
// the snapshot taken at save time. Listings crawled before snapshots
// existed have nil drift.
func (s *FavoriteService) List(ctx context.Context, userID string) ([]FavoriteDrift, error) {
	rows, err := s.repo.ListWithListings(ctx, userID)
	if err != nil {
		return nil, err
	}

	drifts := make([]FavoriteDrift, 0, len(rows))
	for _, row := range rows {
		drift := FavoriteDrift{Favorite: row.Favorite, Listing: row.Listing}
		if row.Favorite.DepositAtSave != nil {
			delta := row.Listing.Deposit - *row.Favorite.DepositAtSave
			drift.DepositDrift = &delta
		}
		if row.Favorite.MonthlyRentAtSave != nil {
			delta := row.Listing.MonthlyRent - *row.Favorite.MonthlyRentAtSave
			drift.MonthlyRentDrift = &delta
		}
		drifts = append(drifts, drift)
	}
	return drifts, nil
}

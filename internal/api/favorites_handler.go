package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mgh3326/rent-radar/internal/database"
	"github.com/mgh3326/rent-radar/internal/logger"
	"github.com/mgh3326/rent-radar/internal/service"
)

// FavoritesHandler handles bookmark requests. The user is identified
// by the X-User-ID header; there is no account system.
type FavoritesHandler struct {
	favorites *service.FavoriteService
	log       logger.Logger
}

// NewFavoritesHandler creates a new favorites handler.
func NewFavoritesHandler(favorites *service.FavoriteService, log logger.Logger) *FavoritesHandler {
	return &FavoritesHandler{favorites: favorites, log: log}
}

func userID(c *gin.Context) (string, bool) {
	id := c.GetHeader("X-User-ID")
	if id == "" {
		respondBadRequest(c, "X-User-ID header is required")
		return "", false
	}
	return id, true
}

// List handles GET /api/v1/favorites
func (h *FavoritesHandler) List(c *gin.Context) {
	user, ok := userID(c)
	if !ok {
		return
	}

	favorites, err := h.favorites.List(c.Request.Context(), user)
	if err != nil {
		h.log.Error("favorites query failed", logger.Error(err))
		respondInternalError(c, "Failed to retrieve favorites")
		return
	}

	c.JSON(http.StatusOK, gin.H{"favorites": favorites})
}

// addRequest represents the JSON body for POST /api/v1/favorites.
type addRequest struct {
	ListingID int64 `binding:"required" json:"listing_id"`
}

// Add handles POST /api/v1/favorites
func (h *FavoritesHandler) Add(c *gin.Context) {
	user, ok := userID(c)
	if !ok {
		return
	}

	var req addRequest
	if bindErr := c.ShouldBindJSON(&req); bindErr != nil {
		respondBadRequest(c, "listing_id is required")
		return
	}

	favorite, err := h.favorites.Add(c.Request.Context(), user, req.ListingID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondNotFound(c, "listing")
			return
		}
		h.log.Error("favorite add failed", logger.Error(err))
		respondInternalError(c, "Failed to add favorite")
		return
	}

	c.JSON(http.StatusCreated, favorite)
}

// Remove handles DELETE /api/v1/favorites/:id
func (h *FavoritesHandler) Remove(c *gin.Context) {
	user, ok := userID(c)
	if !ok {
		return
	}
	listingID, ok := parseIntParam(c, "id")
	if !ok {
		return
	}

	if err := h.favorites.Remove(c.Request.Context(), user, listingID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondNotFound(c, "favorite")
			return
		}
		h.log.Error("favorite remove failed", logger.Error(err))
		respondInternalError(c, "Failed to remove favorite")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "favorite removed"})
}

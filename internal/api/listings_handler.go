package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mgh3326/rent-radar/internal/database"
	"github.com/mgh3326/rent-radar/internal/logger"
	"github.com/mgh3326/rent-radar/internal/service"
)

const defaultListingsLimit = 50

// ListingsHandler handles listing search and lookup requests.
type ListingsHandler struct {
	listings   *service.ListingService
	comparison *service.ComparisonService
	log        logger.Logger
}

// NewListingsHandler creates a new listings handler.
func NewListingsHandler(
	listings *service.ListingService,
	comparison *service.ComparisonService,
	log logger.Logger,
) *ListingsHandler {
	return &ListingsHandler{listings: listings, comparison: comparison, log: log}
}

// Search handles GET /api/v1/listings
func (h *ListingsHandler) Search(c *gin.Context) {
	limit, ok := parseLimit(c, defaultListingsLimit)
	if !ok {
		return
	}

	active := true
	filters := database.ListingFilters{
		Source:         c.Query("source"),
		Dong:           c.Query("dong"),
		PropertyType:   c.Query("property_type"),
		RentType:       c.Query("rent_type"),
		MinDeposit:     intQuery(c, "min_deposit"),
		MaxDeposit:     intQuery(c, "max_deposit"),
		MinMonthlyRent: intQuery(c, "min_monthly_rent"),
		MaxMonthlyRent: intQuery(c, "max_monthly_rent"),
		MinArea:        floatQuery(c, "min_area"),
		MaxArea:        floatQuery(c, "max_area"),
		MinFloor:       intQuery(c, "min_floor"),
		MaxFloor:       intQuery(c, "max_floor"),
		IsActive:       &active,
		Limit:          limit,
	}
	if c.Query("include_inactive") == "true" {
		filters.IsActive = nil
	}

	payload, err := h.listings.Search(c.Request.Context(), filters)
	if err != nil {
		if errors.Is(err, database.ErrInvalidLimit) {
			respondBadRequest(c, "limit must be positive")
			return
		}
		h.log.Error("listing search failed", logger.Error(err))
		respondInternalError(c, "Failed to search listings")
		return
	}

	c.Data(http.StatusOK, "application/json; charset=utf-8", payload)
}

// Get handles GET /api/v1/listings/:id
func (h *ListingsHandler) Get(c *gin.Context) {
	id, ok := parseIntParam(c, "id")
	if !ok {
		return
	}

	listing, err := h.listings.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondNotFound(c, "listing")
			return
		}
		h.log.Error("listing lookup failed", logger.Error(err))
		respondInternalError(c, "Failed to retrieve listing")
		return
	}

	c.JSON(http.StatusOK, listing)
}

// Compare handles GET /api/v1/listings/:id/compare
func (h *ListingsHandler) Compare(c *gin.Context) {
	id, ok := parseIntParam(c, "id")
	if !ok {
		return
	}

	comparison, err := h.comparison.Compare(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondNotFound(c, "listing")
			return
		}
		h.log.Error("listing comparison failed", logger.Error(err))
		respondInternalError(c, "Failed to compare listing")
		return
	}

	c.JSON(http.StatusOK, comparison)
}

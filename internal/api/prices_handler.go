package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mgh3326/rent-radar/internal/database"
	"github.com/mgh3326/rent-radar/internal/logger"
	"github.com/mgh3326/rent-radar/internal/service"
)

const (
	defaultPriceHistoryLimit = 50
	defaultTrendMonths       = 12
)

// PricesHandler handles price history, drops, trades, and trend requests.
type PricesHandler struct {
	prices *service.PriceService
	log    logger.Logger
}

// NewPricesHandler creates a new prices handler.
func NewPricesHandler(prices *service.PriceService, log logger.Logger) *PricesHandler {
	return &PricesHandler{prices: prices, log: log}
}

// History handles GET /api/v1/listings/:id/prices
func (h *PricesHandler) History(c *gin.Context) {
	id, ok := parseIntParam(c, "id")
	if !ok {
		return
	}

	limit, ok := parseLimit(c, defaultPriceHistoryLimit)
	if !ok {
		return
	}

	changes, err := h.prices.History(c.Request.Context(), id, limit)
	if err != nil {
		h.log.Error("price history query failed", logger.Error(err))
		respondInternalError(c, "Failed to retrieve price history")
		return
	}

	c.JSON(http.StatusOK, gin.H{"changes": changes})
}

// RecentDrops handles GET /api/v1/prices/changes
func (h *PricesHandler) RecentDrops(c *gin.Context) {
	limit, ok := parseLimit(c, defaultPriceHistoryLimit)
	if !ok {
		return
	}

	changes, err := h.prices.RecentDrops(c.Request.Context(), limit)
	if err != nil {
		h.log.Error("recent price changes query failed", logger.Error(err))
		respondInternalError(c, "Failed to retrieve price changes")
		return
	}

	c.JSON(http.StatusOK, gin.H{"changes": changes})
}

// Trades handles GET /api/v1/trades
func (h *PricesHandler) Trades(c *gin.Context) {
	limit, ok := parseLimit(c, defaultPriceHistoryLimit)
	if !ok {
		return
	}

	filters := database.TradeFilters{
		RegionCode:   c.Query("region_code"),
		Dong:         c.Query("dong"),
		AptName:      c.Query("apt_name"),
		PropertyType: c.Query("property_type"),
		RentType:     c.Query("rent_type"),
		Limit:        limit,
	}

	trades, err := h.prices.RecentTrades(c.Request.Context(), filters)
	if err != nil {
		if errors.Is(err, database.ErrInvalidLimit) {
			respondBadRequest(c, "limit must be positive")
			return
		}
		h.log.Error("trades query failed", logger.Error(err))
		respondInternalError(c, "Failed to retrieve trades")
		return
	}

	c.JSON(http.StatusOK, gin.H{"trades": trades})
}

// Trend handles GET /api/v1/trades/trend
func (h *PricesHandler) Trend(c *gin.Context) {
	regionCode := c.Query("region_code")
	if regionCode == "" {
		respondBadRequest(c, "region_code is required")
		return
	}

	months, _ := strconv.Atoi(c.DefaultQuery("months", strconv.Itoa(defaultTrendMonths)))
	points, err := h.prices.Trend(c.Request.Context(), regionCode, c.Query("apt_name"), months)
	if err != nil {
		h.log.Error("trend query failed", logger.Error(err))
		respondInternalError(c, "Failed to retrieve price trend")
		return
	}

	c.JSON(http.StatusOK, gin.H{"trend": points})
}

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

// SafetyHandler serves jeonse safety checks.
type SafetyHandler struct {
	safety *service.SafetyService
	log    logger.Logger
}

// NewSafetyHandler creates a safety handler.
func NewSafetyHandler(safety *service.SafetyService, log logger.Logger) *SafetyHandler {
	return &SafetyHandler{safety: safety, log: log}
}

// Check handles GET /api/v1/safety/check. A listing_id auto-fills
// deposit, property type, dong, and area from the stored listing;
// explicit query params override.
func (h *SafetyHandler) Check(c *gin.Context) {
	req := service.SafetyRequest{
		PropertyType: c.Query("property_type"),
		RegionCode:   c.Query("region_code"),
		Dong:         c.Query("dong"),
		AreaM2:       floatQuery(c, "area_m2"),
	}

	if raw := c.Query("listing_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			respondBadRequest(c, "invalid listing_id")
			return
		}
		req.ListingID = id
	}
	if deposit := intQuery(c, "deposit"); deposit != nil {
		req.Deposit = *deposit
	}
	if months := intQuery(c, "period_months"); months != nil {
		req.PeriodMonths = *months
	}

	h.respond(c, req)
}

// CheckListing handles GET /api/v1/listings/:id/safety.
func (h *SafetyHandler) CheckListing(c *gin.Context) {
	id, ok := parseIntParam(c, "id")
	if !ok {
		return
	}

	h.respond(c, service.SafetyRequest{ListingID: id})
}

func (h *SafetyHandler) respond(c *gin.Context, req service.SafetyRequest) {
	report, err := h.safety.CheckJeonse(c.Request.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMissingDeposit):
			respondBadRequest(c, "deposit or listing_id is required")
		case errors.Is(err, database.ErrNotFound):
			respondNotFound(c, "listing")
		default:
			h.log.Error("safety check failed", logger.Error(err))
			respondInternalError(c, "Failed to run safety check")
		}
		return
	}

	c.JSON(http.StatusOK, report)
}

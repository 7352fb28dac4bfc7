package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/dancymeals/backend/internal/metrics"
	"github.com/dancymeals/backend/internal/service"
)

// StorefrontHandler exposes the customer-facing availability endpoints
// consumed by the checkout flow.
type StorefrontHandler struct {
	scheduling *service.OrderSchedulingService
	logger     zerolog.Logger
}

// NewStorefrontHandler creates a new StorefrontHandler instance.
func NewStorefrontHandler(scheduling *service.OrderSchedulingService, logger zerolog.Logger) *StorefrontHandler {
	return &StorefrontHandler{scheduling: scheduling, logger: logger}
}

// RegisterRoutes mounts the storefront routes. The caller wires the rate
// limiter in front of this group.
func (h *StorefrontHandler) RegisterRoutes(router *gin.RouterGroup) {
	storefront := router.Group("/storefront/:tenant_id")
	{
		storefront.GET("/available-dates", h.AvailableDates)
		storefront.GET("/next-available", h.NextAvailable)
		storefront.POST("/validate-date", h.ValidateDate)
		storefront.POST("/cart/unavailable-items", h.UnavailableCartItems)
	}
}

// AvailableDates returns the rolling ordering window for a storefront.
func (h *StorefrontHandler) AvailableDates(c *gin.Context) {
	tenantID, ok := parseTenantID(c)
	if !ok {
		return
	}

	days, err := h.scheduling.GetAvailableDates(c.Request.Context(), tenantID)
	if err != nil {
		h.logger.Error().Err(err).Str("tenant_id", tenantID.String()).Msg("load available dates")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load available dates"})
		return
	}

	hasAvailable := false
	for _, d := range days {
		if d.Available {
			hasAvailable = true
			break
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"dates":         days,
		"has_available": hasAvailable,
	})
}

// NextAvailable returns the first orderable date in the window, if any.
func (h *StorefrontHandler) NextAvailable(c *gin.Context) {
	tenantID, ok := parseTenantID(c)
	if !ok {
		return
	}

	slot, err := h.scheduling.GetNextAvailableSlot(c.Request.Context(), tenantID)
	if err != nil {
		h.logger.Error().Err(err).Str("tenant_id", tenantID.String()).Msg("load next available slot")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load next available slot"})
		return
	}

	c.JSON(http.StatusOK, slot)
}

type validateDateRequest struct {
	Date string `json:"date" binding:"required"`
}

// ValidateDate checks a client-chosen date against the ordering window.
// The outcome is always a 200 with a {valid, error} body; invalid dates are
// expected input, not server failures.
func (h *StorefrontHandler) ValidateDate(c *gin.Context) {
	tenantID, ok := parseTenantID(c)
	if !ok {
		return
	}

	var req validateDateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.scheduling.ValidateScheduledDate(c.Request.Context(), tenantID, req.Date)
	if err != nil {
		h.logger.Error().Err(err).Str("tenant_id", tenantID.String()).Msg("validate scheduled date")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to validate date"})
		return
	}
	if !result.Valid {
		metrics.IncDateRejection()
	}

	c.JSON(http.StatusOK, result)
}

type cartCheckRequest struct {
	Date  string             `json:"date" binding:"required"`
	Items []service.CartItem `json:"items" binding:"required"`
}

// UnavailableCartItems flags cart meals whose custom schedules exclude the
// chosen date.
func (h *StorefrontHandler) UnavailableCartItems(c *gin.Context) {
	tenantID, ok := parseTenantID(c)
	if !ok {
		return
	}

	var req cartCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	unavailable, err := h.scheduling.GetUnavailableCartItems(c.Request.Context(), tenantID, req.Date, req.Items)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid scheduled date"})
		return
	}
	if unavailable == nil {
		unavailable = []service.UnavailableItem{}
	}

	c.JSON(http.StatusOK, gin.H{"unavailable_items": unavailable})
}

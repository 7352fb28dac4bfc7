package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/dancymeals/backend/internal/metrics"
	"github.com/dancymeals/backend/internal/models"
	"github.com/dancymeals/backend/internal/service"
)

// ScheduleHandler exposes the dashboard schedule management endpoints.
type ScheduleHandler struct {
	repo      *service.ScheduleRepository
	validator *service.ScheduleValidationService
	logger    zerolog.Logger
}

// NewScheduleHandler creates a new ScheduleHandler instance.
func NewScheduleHandler(repo *service.ScheduleRepository, validator *service.ScheduleValidationService, logger zerolog.Logger) *ScheduleHandler {
	return &ScheduleHandler{repo: repo, validator: validator, logger: logger}
}

// RegisterRoutes mounts the schedule routes under a tenant scope.
func (h *ScheduleHandler) RegisterRoutes(router *gin.RouterGroup) {
	tenants := router.Group("/tenants/:tenant_id")
	{
		tenants.GET("/schedules", h.ListSchedules)
		tenants.POST("/schedules", h.CreateEntry)
		tenants.PUT("/schedules/:id/order-window", h.UpdateOrderWindow)
		tenants.PUT("/schedules/:id/fulfillment", h.UpdateFulfillment)
		tenants.GET("/meals/:meal_id/schedules", h.ListMealSchedules)
		tenants.DELETE("/meals/:meal_id/schedules", h.RevertMealSchedule)
	}
}

type entryResponse struct {
	models.ScheduleEntry
	DisplayLabel string `json:"display_label"`
}

func toEntryResponses(entries []models.ScheduleEntry) []entryResponse {
	out := make([]entryResponse, len(entries))
	for i, e := range entries {
		out[i] = entryResponse{ScheduleEntry: e, DisplayLabel: e.DisplayLabel()}
	}
	return out
}

func groupedResponse(grouped map[string][]models.ScheduleEntry) map[string][]entryResponse {
	out := make(map[string][]entryResponse, len(grouped))
	for day, entries := range grouped {
		out[day] = toEntryResponses(entries)
	}
	return out
}

func parseTenantID(c *gin.Context) (uuid.UUID, bool) {
	tenantID, err := uuid.Parse(c.Param("tenant_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid tenant id"})
		return uuid.Nil, false
	}
	return tenantID, true
}

// ListSchedules returns the cook-level default entries grouped by day.
func (h *ScheduleHandler) ListSchedules(c *gin.Context) {
	tenantID, ok := parseTenantID(c)
	if !ok {
		return
	}

	grouped, err := h.repo.EntriesGroupedByDay(c.Request.Context(), models.CookOwner(tenantID))
	if err != nil {
		h.logger.Error().Err(err).Str("tenant_id", tenantID.String()).Msg("list schedules")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load schedules"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"schedules": groupedResponse(grouped)})
}

type createEntryRequest struct {
	MealID              *uuid.UUID `json:"meal_id"`
	DayOfWeek           string     `json:"day_of_week" binding:"required"`
	IsAvailable         *bool      `json:"is_available"`
	Label               string     `json:"label"`
	OrderStartTime      string     `json:"order_start_time" binding:"required"`
	OrderStartDayOffset int        `json:"order_start_day_offset"`
	OrderEndTime        string     `json:"order_end_time" binding:"required"`
	OrderEndDayOffset   int        `json:"order_end_day_offset"`
	DeliveryEnabled     bool       `json:"delivery_enabled"`
	DeliveryStartTime   string     `json:"delivery_start_time"`
	DeliveryEndTime     string     `json:"delivery_end_time"`
	PickupEnabled       bool       `json:"pickup_enabled"`
	PickupStartTime     string     `json:"pickup_start_time"`
	PickupEndTime       string     `json:"pickup_end_time"`
}

// CreateEntry validates and inserts a schedule entry. A meal_id in the body
// creates a meal-level override; otherwise the entry is a cook-level default.
func (h *ScheduleHandler) CreateEntry(c *gin.Context) {
	tenantID, ok := parseTenantID(c)
	if !ok {
		return
	}

	var req createEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	owner := models.CookOwner(tenantID)
	if req.MealID != nil {
		owner = models.MealOwner(tenantID, *req.MealID)
	}

	available := true
	if req.IsAvailable != nil {
		available = *req.IsAvailable
	}

	entry := &models.ScheduleEntry{
		OwnerType:           owner.Type,
		OwnerID:             owner.ID,
		TenantID:            owner.TenantID,
		DayOfWeek:           req.DayOfWeek,
		IsAvailable:         available,
		Label:               req.Label,
		OrderStartTime:      req.OrderStartTime,
		OrderStartDayOffset: req.OrderStartDayOffset,
		OrderEndTime:        req.OrderEndTime,
		OrderEndDayOffset:   req.OrderEndDayOffset,
		DeliveryEnabled:     req.DeliveryEnabled,
		DeliveryStartTime:   req.DeliveryStartTime,
		DeliveryEndTime:     req.DeliveryEndTime,
		PickupEnabled:       req.PickupEnabled,
		PickupStartTime:     req.PickupStartTime,
		PickupEndTime:       req.PickupEndTime,
	}

	result, err := h.validator.ValidateNewEntry(c.Request.Context(), entry)
	if err != nil {
		h.logger.Error().Err(err).Msg("validate schedule entry")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to validate schedule entry"})
		return
	}
	if !result.Valid {
		for field := range result.Errors {
			metrics.IncScheduleValidationFailure(field)
		}
		c.JSON(http.StatusUnprocessableEntity, result)
		return
	}

	if err := h.repo.CreateEntry(c.Request.Context(), entry); err != nil {
		switch {
		case errors.Is(err, service.ErrDayFull), errors.Is(err, service.ErrWindowOverlap):
			// Lost a race with a concurrent insert; surface as a conflict.
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			h.logger.Error().Err(err).Msg("create schedule entry")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create schedule entry"})
		}
		return
	}

	c.JSON(http.StatusCreated, entryResponse{ScheduleEntry: *entry, DisplayLabel: entry.DisplayLabel()})
}

func (h *ScheduleHandler) loadEntry(c *gin.Context, tenantID uuid.UUID) (*models.ScheduleEntry, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid schedule entry id"})
		return nil, false
	}
	entry, err := h.repo.GetEntry(c.Request.Context(), tenantID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "schedule entry not found"})
		} else {
			h.logger.Error().Err(err).Msg("load schedule entry")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load schedule entry"})
		}
		return nil, false
	}
	return entry, true
}

type orderWindowRequest struct {
	OrderStartTime      string `json:"order_start_time" binding:"required"`
	OrderStartDayOffset int    `json:"order_start_day_offset"`
	OrderEndTime        string `json:"order_end_time" binding:"required"`
	OrderEndDayOffset   int    `json:"order_end_day_offset"`
}

// UpdateOrderWindow edits an entry's order window after validating the new
// interval against its siblings.
func (h *ScheduleHandler) UpdateOrderWindow(c *gin.Context) {
	tenantID, ok := parseTenantID(c)
	if !ok {
		return
	}
	entry, ok := h.loadEntry(c, tenantID)
	if !ok {
		return
	}

	var req orderWindowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.validator.ValidateOrderIntervalUpdate(c.Request.Context(), entry,
		req.OrderStartTime, req.OrderStartDayOffset, req.OrderEndTime, req.OrderEndDayOffset)
	if err != nil {
		h.logger.Error().Err(err).Msg("validate order window update")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to validate order window"})
		return
	}
	if !result.Valid {
		for field := range result.Errors {
			metrics.IncScheduleValidationFailure(field)
		}
		c.JSON(http.StatusUnprocessableEntity, result)
		return
	}

	entry.OrderStartTime = req.OrderStartTime
	entry.OrderStartDayOffset = req.OrderStartDayOffset
	entry.OrderEndTime = req.OrderEndTime
	entry.OrderEndDayOffset = req.OrderEndDayOffset
	if err := h.repo.UpdateEntry(c.Request.Context(), entry); err != nil {
		h.logger.Error().Err(err).Msg("update order window")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update schedule entry"})
		return
	}

	c.JSON(http.StatusOK, entryResponse{ScheduleEntry: *entry, DisplayLabel: entry.DisplayLabel()})
}

type fulfillmentRequest struct {
	DeliveryEnabled   bool   `json:"delivery_enabled"`
	DeliveryStartTime string `json:"delivery_start_time"`
	DeliveryEndTime   string `json:"delivery_end_time"`
	PickupEnabled     bool   `json:"pickup_enabled"`
	PickupStartTime   string `json:"pickup_start_time"`
	PickupEndTime     string `json:"pickup_end_time"`
}

// UpdateFulfillment edits an entry's delivery and pickup windows.
func (h *ScheduleHandler) UpdateFulfillment(c *gin.Context) {
	tenantID, ok := parseTenantID(c)
	if !ok {
		return
	}
	entry, ok := h.loadEntry(c, tenantID)
	if !ok {
		return
	}

	var req fulfillmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.validator.ValidateDeliveryPickupUpdate(c.Request.Context(), entry,
		req.DeliveryEnabled, req.DeliveryStartTime, req.DeliveryEndTime,
		req.PickupEnabled, req.PickupStartTime, req.PickupEndTime)
	if err != nil {
		h.logger.Error().Err(err).Msg("validate fulfillment update")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to validate fulfillment windows"})
		return
	}
	if !result.Valid {
		for field := range result.Errors {
			metrics.IncScheduleValidationFailure(field)
		}
		c.JSON(http.StatusUnprocessableEntity, result)
		return
	}

	entry.DeliveryEnabled = req.DeliveryEnabled
	entry.DeliveryStartTime = req.DeliveryStartTime
	entry.DeliveryEndTime = req.DeliveryEndTime
	entry.PickupEnabled = req.PickupEnabled
	entry.PickupStartTime = req.PickupStartTime
	entry.PickupEndTime = req.PickupEndTime
	if err := h.repo.UpdateEntry(c.Request.Context(), entry); err != nil {
		h.logger.Error().Err(err).Msg("update fulfillment windows")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update schedule entry"})
		return
	}

	c.JSON(http.StatusOK, entryResponse{ScheduleEntry: *entry, DisplayLabel: entry.DisplayLabel()})
}

// ListMealSchedules returns a meal's override entries grouped by day along
// with whether the meal uses a custom schedule at all.
func (h *ScheduleHandler) ListMealSchedules(c *gin.Context) {
	tenantID, ok := parseTenantID(c)
	if !ok {
		return
	}
	mealID, err := uuid.Parse(c.Param("meal_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid meal id"})
		return
	}

	ctx := c.Request.Context()
	custom, err := h.repo.HasCustomSchedule(ctx, tenantID, mealID)
	if err != nil {
		h.logger.Error().Err(err).Msg("check custom schedule")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load meal schedule"})
		return
	}

	grouped, err := h.repo.EntriesGroupedByDay(ctx, models.MealOwner(tenantID, mealID))
	if err != nil {
		h.logger.Error().Err(err).Msg("list meal schedules")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load meal schedule"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"has_custom_schedule": custom,
		"schedules":           groupedResponse(grouped),
	})
}

// RevertMealSchedule deletes a meal's override entries so it falls back to
// the cook-level defaults.
func (h *ScheduleHandler) RevertMealSchedule(c *gin.Context) {
	tenantID, ok := parseTenantID(c)
	if !ok {
		return
	}
	mealID, err := uuid.Parse(c.Param("meal_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid meal id"})
		return
	}

	deleted, err := h.repo.DeleteAllForOwner(c.Request.Context(), models.MealOwner(tenantID, mealID))
	if err != nil {
		h.logger.Error().Err(err).Msg("revert meal schedule")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to revert meal schedule"})
		return
	}

	h.logger.Info().
		Str("tenant_id", tenantID.String()).
		Str("meal_id", mealID.String()).
		Int64("deleted", deleted).
		Msg("meal reverted to cook default schedule")
	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}

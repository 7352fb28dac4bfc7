package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dancymeals/backend/internal/models"
	"github.com/dancymeals/backend/internal/service"
	"github.com/dancymeals/backend/internal/testhelpers"
)

type stubClock struct{ now time.Time }

func (c stubClock) Now() time.Time { return c.now }

// Sunday, so the ordering window runs Monday Feb 23 through Sunday Mar 8.
var testNow = time.Date(2026, 2, 22, 15, 0, 0, 0, time.UTC)

func setupStorefrontRouter(t *testing.T) (*gin.Engine, *service.ScheduleRepository) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testhelpers.SetupTestDB(t)
	repo := service.NewScheduleRepository(db)
	scheduling := service.NewOrderSchedulingService(repo, stubClock{now: testNow}, zerolog.Nop())
	handler := NewStorefrontHandler(scheduling, zerolog.Nop())

	router := gin.New()
	handler.RegisterRoutes(router.Group("/api/v1"))
	return router, repo
}

func seedCookEntry(t *testing.T, repo *service.ScheduleRepository, tenantID uuid.UUID, day string) {
	t.Helper()
	owner := models.CookOwner(tenantID)
	entry := &models.ScheduleEntry{
		OwnerType:         owner.Type,
		OwnerID:           owner.ID,
		TenantID:          owner.TenantID,
		DayOfWeek:         day,
		IsAvailable:       true,
		OrderStartTime:    "06:00",
		OrderEndTime:      "10:00",
		DeliveryEnabled:   true,
		DeliveryStartTime: "17:00",
		DeliveryEndTime:   "19:00",
	}
	require.NoError(t, repo.CreateEntry(context.Background(), entry))
}

func TestStorefrontAvailableDates(t *testing.T) {
	router, repo := setupStorefrontRouter(t)
	tenantID := uuid.New()
	seedCookEntry(t, repo, tenantID, "monday")

	w := doJSON(t, router, http.MethodGet,
		fmt.Sprintf("/api/v1/storefront/%s/available-dates", tenantID), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Dates        []service.CalendarDay `json:"dates"`
		HasAvailable bool                  `json:"has_available"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Dates, service.OrderWindowDays)
	assert.True(t, body.HasAvailable)

	assert.Equal(t, "2026-02-23", body.Dates[0].Date)
	assert.True(t, body.Dates[0].Available)
	assert.False(t, body.Dates[1].Available)

	var available []string
	for _, d := range body.Dates {
		if d.Available {
			available = append(available, d.Date)
		}
	}
	assert.Equal(t, []string{"2026-02-23", "2026-03-02"}, available)
}

func TestStorefrontValidateDate(t *testing.T) {
	router, repo := setupStorefrontRouter(t)
	tenantID := uuid.New()
	seedCookEntry(t, repo, tenantID, "monday")
	path := fmt.Sprintf("/api/v1/storefront/%s/validate-date", tenantID)

	w := doJSON(t, router, http.MethodPost, path, map[string]any{"date": "2026-02-23"})
	require.Equal(t, http.StatusOK, w.Code)
	var result service.DateValidation
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.True(t, result.Valid)

	// Rejections are still 200s; the client renders the message inline.
	w = doJSON(t, router, http.MethodPost, path, map[string]any{"date": "2026-02-22"})
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.False(t, result.Valid)
	assert.NotEmpty(t, result.Error)
}

func TestStorefrontNextAvailable(t *testing.T) {
	router, repo := setupStorefrontRouter(t)
	tenantID := uuid.New()
	seedCookEntry(t, repo, tenantID, "wednesday")

	w := doJSON(t, router, http.MethodGet,
		fmt.Sprintf("/api/v1/storefront/%s/next-available", tenantID), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var slot service.NextAvailableSlot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &slot))
	require.NotNil(t, slot.Date)
	assert.Equal(t, "2026-02-25", *slot.Date)
}

func TestStorefrontUnavailableCartItems(t *testing.T) {
	router, repo := setupStorefrontRouter(t)
	tenantID := uuid.New()
	seedCookEntry(t, repo, tenantID, "monday")

	customMeal := uuid.New()
	mealOwner := models.MealOwner(tenantID, customMeal)
	entry := &models.ScheduleEntry{
		OwnerType:         mealOwner.Type,
		OwnerID:           mealOwner.ID,
		TenantID:          mealOwner.TenantID,
		DayOfWeek:         "friday",
		IsAvailable:       true,
		OrderStartTime:    "06:00",
		OrderEndTime:      "10:00",
		DeliveryEnabled:   true,
		DeliveryStartTime: "17:00",
		DeliveryEndTime:   "19:00",
	}
	require.NoError(t, repo.CreateEntry(context.Background(), entry))

	inheritingMeal := uuid.New()
	w := doJSON(t, router, http.MethodPost,
		fmt.Sprintf("/api/v1/storefront/%s/cart/unavailable-items", tenantID),
		map[string]any{
			"date": "2026-02-23",
			"items": []map[string]any{
				{"meal_id": customMeal, "quantity": 1},
				{"meal_id": inheritingMeal, "quantity": 2},
			},
		})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body struct {
		UnavailableItems []service.UnavailableItem `json:"unavailable_items"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.UnavailableItems, 1)
	assert.Equal(t, customMeal, body.UnavailableItems[0].MealID)
	assert.Contains(t, body.UnavailableItems[0].Reason, "Monday")
}

func TestStorefrontBadDateIsBadRequest(t *testing.T) {
	router, _ := setupStorefrontRouter(t)
	tenantID := uuid.New()

	w := doJSON(t, router, http.MethodPost,
		fmt.Sprintf("/api/v1/storefront/%s/cart/unavailable-items", tenantID),
		map[string]any{"date": "not-a-date", "items": []map[string]any{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

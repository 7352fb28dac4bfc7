package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dancymeals/backend/internal/models"
	"github.com/dancymeals/backend/internal/service"
	"github.com/dancymeals/backend/internal/testhelpers"
)

func setupScheduleRouter(t *testing.T) (*gin.Engine, *service.ScheduleRepository) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testhelpers.SetupTestDB(t)
	repo := service.NewScheduleRepository(db)
	validator := service.NewScheduleValidationService(repo)
	handler := NewScheduleHandler(repo, validator, zerolog.Nop())

	router := gin.New()
	handler.RegisterRoutes(router.Group("/api/v1"))
	return router, repo
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func validEntryBody() map[string]any {
	return map[string]any{
		"day_of_week":         "monday",
		"order_start_time":    "06:00",
		"order_end_time":      "10:00",
		"delivery_enabled":    true,
		"delivery_start_time": "17:00",
		"delivery_end_time":   "19:00",
	}
}

func TestCreateScheduleEntry(t *testing.T) {
	router, _ := setupScheduleRouter(t)
	tenantID := uuid.New()

	w := doJSON(t, router, http.MethodPost,
		fmt.Sprintf("/api/v1/tenants/%s/schedules", tenantID), validEntryBody())
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created struct {
		models.ScheduleEntry
		DisplayLabel string `json:"display_label"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, models.OwnerCook, created.OwnerType)
	assert.Equal(t, tenantID, created.TenantID)
	assert.Equal(t, 1, created.Position)
	assert.Equal(t, "Slot 1", created.DisplayLabel)
	assert.True(t, created.IsAvailable)
}

func TestCreateScheduleEntryValidationFailure(t *testing.T) {
	router, _ := setupScheduleRouter(t)
	tenantID := uuid.New()

	body := validEntryBody()
	body["order_start_time"] = "25:00"
	body["delivery_enabled"] = false
	body["delivery_start_time"] = ""
	body["delivery_end_time"] = ""

	w := doJSON(t, router, http.MethodPost,
		fmt.Sprintf("/api/v1/tenants/%s/schedules", tenantID), body)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var result service.ValidationResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.False(t, result.Valid)
	assert.Contains(t, result.Errors, "order_start_time")
	assert.Contains(t, result.Errors, "delivery_enabled")
}

func TestCreateScheduleEntryOverlapRejected(t *testing.T) {
	router, _ := setupScheduleRouter(t)
	tenantID := uuid.New()
	path := fmt.Sprintf("/api/v1/tenants/%s/schedules", tenantID)

	require.Equal(t, http.StatusCreated, doJSON(t, router, http.MethodPost, path, validEntryBody()).Code)

	overlapping := validEntryBody()
	overlapping["order_start_time"] = "08:00"
	overlapping["order_end_time"] = "12:00"
	overlapping["delivery_start_time"] = "20:00"
	overlapping["delivery_end_time"] = "22:00"

	w := doJSON(t, router, http.MethodPost, path, overlapping)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var result service.ValidationResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Contains(t, result.Errors, "order_start_time")
}

func TestCreateScheduleEntryBadTenantID(t *testing.T) {
	router, _ := setupScheduleRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/v1/tenants/not-a-uuid/schedules", validEntryBody())
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateOrderWindow(t *testing.T) {
	router, repo := setupScheduleRouter(t)
	tenantID := uuid.New()
	path := fmt.Sprintf("/api/v1/tenants/%s/schedules", tenantID)

	created := doJSON(t, router, http.MethodPost, path, validEntryBody())
	require.Equal(t, http.StatusCreated, created.Code)
	var entry models.ScheduleEntry
	require.NoError(t, json.Unmarshal(created.Body.Bytes(), &entry))

	w := doJSON(t, router, http.MethodPut,
		fmt.Sprintf("%s/%s/order-window", path, entry.ID),
		map[string]any{"order_start_time": "07:00", "order_end_time": "11:00"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	stored, err := repo.GetEntry(context.Background(), tenantID, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, "07:00", stored.OrderStartTime)
	assert.Equal(t, "11:00", stored.OrderEndTime)
}

func TestUpdateOrderWindowRejectsCloseAfterDelivery(t *testing.T) {
	router, _ := setupScheduleRouter(t)
	tenantID := uuid.New()
	path := fmt.Sprintf("/api/v1/tenants/%s/schedules", tenantID)

	created := doJSON(t, router, http.MethodPost, path, validEntryBody())
	require.Equal(t, http.StatusCreated, created.Code)
	var entry models.ScheduleEntry
	require.NoError(t, json.Unmarshal(created.Body.Bytes(), &entry))

	// Delivery starts at 17:00; ordering cannot stay open past that.
	w := doJSON(t, router, http.MethodPut,
		fmt.Sprintf("%s/%s/order-window", path, entry.ID),
		map[string]any{"order_start_time": "06:00", "order_end_time": "18:00"})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var result service.ValidationResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Contains(t, result.Errors, "order_end_time")
}

func TestUpdateOrderWindowNotFound(t *testing.T) {
	router, _ := setupScheduleRouter(t)
	tenantID := uuid.New()

	w := doJSON(t, router, http.MethodPut,
		fmt.Sprintf("/api/v1/tenants/%s/schedules/%s/order-window", tenantID, uuid.New()),
		map[string]any{"order_start_time": "07:00", "order_end_time": "11:00"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateFulfillment(t *testing.T) {
	router, repo := setupScheduleRouter(t)
	tenantID := uuid.New()
	path := fmt.Sprintf("/api/v1/tenants/%s/schedules", tenantID)

	created := doJSON(t, router, http.MethodPost, path, validEntryBody())
	require.Equal(t, http.StatusCreated, created.Code)
	var entry models.ScheduleEntry
	require.NoError(t, json.Unmarshal(created.Body.Bytes(), &entry))

	w := doJSON(t, router, http.MethodPut,
		fmt.Sprintf("%s/%s/fulfillment", path, entry.ID),
		map[string]any{
			"delivery_enabled":  false,
			"pickup_enabled":    true,
			"pickup_start_time": "12:00",
			"pickup_end_time":   "14:00",
		})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	stored, err := repo.GetEntry(context.Background(), tenantID, entry.ID)
	require.NoError(t, err)
	assert.False(t, stored.DeliveryEnabled)
	assert.True(t, stored.PickupEnabled)
	assert.Equal(t, "12:00", stored.PickupStartTime)
}

func TestMealScheduleOverrideAndRevert(t *testing.T) {
	router, _ := setupScheduleRouter(t)
	tenantID := uuid.New()
	mealID := uuid.New()

	body := validEntryBody()
	body["meal_id"] = mealID
	w := doJSON(t, router, http.MethodPost,
		fmt.Sprintf("/api/v1/tenants/%s/schedules", tenantID), body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	mealPath := fmt.Sprintf("/api/v1/tenants/%s/meals/%s/schedules", tenantID, mealID)

	list := doJSON(t, router, http.MethodGet, mealPath, nil)
	require.Equal(t, http.StatusOK, list.Code)
	var listBody struct {
		HasCustomSchedule bool                       `json:"has_custom_schedule"`
		Schedules         map[string]json.RawMessage `json:"schedules"`
	}
	require.NoError(t, json.Unmarshal(list.Body.Bytes(), &listBody))
	assert.True(t, listBody.HasCustomSchedule)
	assert.Contains(t, listBody.Schedules, "monday")

	revert := doJSON(t, router, http.MethodDelete, mealPath, nil)
	require.Equal(t, http.StatusOK, revert.Code)
	var revertBody struct {
		Deleted int64 `json:"deleted"`
	}
	require.NoError(t, json.Unmarshal(revert.Body.Bytes(), &revertBody))
	assert.EqualValues(t, 1, revertBody.Deleted)

	list = doJSON(t, router, http.MethodGet, mealPath, nil)
	require.Equal(t, http.StatusOK, list.Code)
	require.NoError(t, json.Unmarshal(list.Body.Bytes(), &listBody))
	assert.False(t, listBody.HasCustomSchedule)
}

func TestListSchedulesGroupedByDay(t *testing.T) {
	router, _ := setupScheduleRouter(t)
	tenantID := uuid.New()
	path := fmt.Sprintf("/api/v1/tenants/%s/schedules", tenantID)

	require.Equal(t, http.StatusCreated, doJSON(t, router, http.MethodPost, path, validEntryBody()).Code)
	second := validEntryBody()
	second["day_of_week"] = "thursday"
	require.Equal(t, http.StatusCreated, doJSON(t, router, http.MethodPost, path, second).Code)

	w := doJSON(t, router, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Schedules map[string][]json.RawMessage `json:"schedules"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body.Schedules, 2)
	assert.Len(t, body.Schedules["monday"], 1)
	assert.Len(t, body.Schedules["thursday"], 1)
}

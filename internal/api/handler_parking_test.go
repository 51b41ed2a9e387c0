package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"carpark-status-backend/config"
	"carpark-status-backend/internal/ingest"
	"carpark-status-backend/internal/model"
	"carpark-status-backend/internal/notification"
	"carpark-status-backend/internal/status"
	"carpark-status-backend/internal/store"
)

type nopFetcher struct{}

func (nopFetcher) FetchMovements(_ context.Context, _, _ time.Time) ([]model.MovementEvent, error) {
	return nil, nil
}

func setupTestRouter(t *testing.T) (*gin.Engine, store.EventStore, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	eventDB, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s_events?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, eventDB.AutoMigrate(&model.MovementEvent{}, &model.PushSubscription{}))

	productDB, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s_product?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, productDB.AutoMigrate(&model.Vehicle{}, &model.VehicleStatus{}, &model.VehicleTask{}))

	t.Cleanup(func() {
		db1, _ := eventDB.DB()
		db1.Close()
		db2, _ := productDB.DB()
		db2.Close()
	})

	s := store.NewGormStore(eventDB)
	resolver := status.NewResolver(productDB)
	job, err := ingest.NewJob(&config.IngestConfig{Enabled: true, Timezone: "UTC"}, nopFetcher{}, s, notification.NewWebhookNotifier("", time.Second), nil)
	require.NoError(t, err)

	r := gin.New()
	handler := NewHandler(s, resolver, job, nil)
	r.GET("/api/stats", handler.GetStats)
	r.GET("/api/parked", handler.GetParkedVehicles)
	r.GET("/api/parked/by-location", handler.GetParkingCountByLocation)
	r.GET("/api/vehicles/:plate/history", handler.GetVehicleHistory)
	r.POST("/api/status/resolve", handler.ResolveStatus)
	r.PUT("/api/subscriptions", handler.PutSubscription)
	return r, s, productDB
}

func seedEvents(t *testing.T, s store.EventStore) {
	t.Helper()
	base := time.Now().UTC().Add(-2 * time.Hour)
	_, err := s.Append(context.Background(), []model.MovementEvent{
		{PlateNumber: "12A3456", EventType: model.MovementEntry, OccurredAt: base, Location: "Gate A"},
		{PlateNumber: "34B7890", EventType: model.MovementEntry, OccurredAt: base.Add(time.Minute)},
		{PlateNumber: "34B7890", EventType: model.MovementExit, OccurredAt: base.Add(time.Hour)},
	})
	require.NoError(t, err)
}

func TestGetStats(t *testing.T) {
	r, s, _ := setupTestRouter(t)
	seedEvents(t, s)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/stats", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		TotalEvents     int64 `json:"totalEvents"`
		CurrentlyParked int   `json:"currentlyParked"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(3), resp.TotalEvents)
	assert.Equal(t, 1, resp.CurrentlyParked)
}

func TestGetParkedVehicles_WithStatus(t *testing.T) {
	r, s, productDB := setupTestRouter(t)
	seedEvents(t, s)
	require.NoError(t, productDB.Create(&model.Vehicle{ID: 1, PlateNumber: "12A3456"}).Error)
	require.NoError(t, productDB.Create(&model.VehicleStatus{ID: 10, VehicleID: 1, StatusCode: "REPAIRING"}).Error)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/parked?with_status=1", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp []struct {
		PlateNumber string `json:"plateNumber"`
		Status      *struct {
			Category string `json:"category"`
		} `json:"status"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp, 1)
	assert.Equal(t, "12A3456", resp[0].PlateNumber)
	require.NotNil(t, resp[0].Status)
	assert.Equal(t, "working", resp[0].Status.Category)
}

func TestGetParkingCountByLocation(t *testing.T) {
	r, s, _ := setupTestRouter(t)
	seedEvents(t, s)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/parked/by-location", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var counts map[string]int
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &counts))
	assert.Equal(t, map[string]int{"Gate A": 1}, counts)
}

func TestGetVehicleHistory(t *testing.T) {
	r, s, _ := setupTestRouter(t)
	seedEvents(t, s)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/vehicles/34B7890/history", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var events []model.MovementEvent
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &events))
	require.Len(t, events, 2)
	assert.Equal(t, model.MovementExit, events[0].EventType)
}

func TestResolveStatus_BadRequest(t *testing.T) {
	r, _, _ := setupTestRouter(t)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/api/status/resolve", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPutSubscription_Validation(t *testing.T) {
	r, _, _ := setupTestRouter(t)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPut, "/api/subscriptions", strings.NewReader(`{"endpoint":"https://push.example/x"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code, "p256dh and auth are required")

	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodPut, "/api/subscriptions",
		strings.NewReader(`{"endpoint":"https://push.example/x","p256dh":"k","auth":"a"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusCreated, w.Code)
}

package internal

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"carpark-status-backend/config"
	"carpark-status-backend/internal/ingest"
	"carpark-status-backend/internal/model"
	"carpark-status-backend/internal/notification"
	"carpark-status-backend/internal/provider"
	"carpark-status-backend/internal/store"
)

// TestIngestionLifecycle drives the full pipeline against a fake provider:
// login, fetch, idempotent persistence, and derived occupancy across an
// entry/exit cycle.
func TestIngestionLifecycle(t *testing.T) {
	testDB, err := gorm.Open(sqlite.Open("file:ingestion_lifecycle?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, _ := testDB.DB()
	defer sqlDB.Close()
	require.NoError(t, testDB.AutoMigrate(&model.MovementEvent{}))

	// Phase 0 serves the morning entry, phase 1 adds the evening exit.
	var phase atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("/login.html", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "JSESSIONID", Value: "it"})
	})
	mux.HandleFunc("/api/login", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{}`)
	})
	mux.HandleFunc("/api/search", func(w http.ResponseWriter, r *http.Request) {
		entry := `{"carNo":"12A3456","inOutGbn":"0","passTime":"2024-01-01 09:00:00"}`
		exit := `{"carNo":"12A3456","inOutGbn":"1","passTime":"2024-01-01 18:00:00"}`
		if phase.Load() == 0 {
			fmt.Fprintf(w, `{"rows":[%s]}`, entry)
		} else {
			fmt.Fprintf(w, `{"rows":[%s,%s]}`, entry, exit)
		}
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	// Capture outcome notifications on a local webhook.
	var reports atomic.Int32
	webhook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reports.Add(1)
	}))
	defer webhook.Close()

	client := provider.NewClient(&config.ProviderConfig{
		BaseURL:       server.URL,
		LoginPagePath: "/login.html",
		LoginPath:     "/api/login",
		SearchPath:    "/api/search",
		Username:      "operator",
		Password:      "secret",
		LoginMarker:   "loginForm",
		RowLimit:      100,
		TimeoutSecs:   5,
	}, time.UTC)

	s := store.NewGormStore(testDB)
	notifier := notification.NewWebhookNotifier(webhook.URL, time.Second)
	job, err := ingest.NewJob(&config.IngestConfig{Enabled: true, Timezone: "UTC"}, client, s, notifier, nil)
	require.NoError(t, err)

	ctx := context.Background()
	rangeStart := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rangeEnd := rangeStart.Add(24 * time.Hour)

	// --- Morning: one entry ---
	require.NoError(t, job.RunRange(ctx, rangeStart, rangeEnd))

	queryAt := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	parked, err := s.ParkedVehicles(ctx, queryAt)
	require.NoError(t, err)
	require.Len(t, parked, 1)
	assert.Equal(t, "12A3456", parked[0].PlateNumber)
	assert.Equal(t, store.UnspecifiedLocation, parked[0].Location)
	assert.InDelta(t, 3.0, parked[0].ParkingHours, 0.001)

	// --- Evening: the same entry re-polled plus the exit ---
	phase.Store(1)
	require.NoError(t, job.RunRange(ctx, rangeStart, rangeEnd))

	parked, err = s.ParkedVehicles(ctx, rangeEnd)
	require.NoError(t, err)
	assert.Empty(t, parked, "vehicle exited")

	history, err := s.HistoryFor(ctx, "12A3456")
	require.NoError(t, err)
	require.Len(t, history, 2, "re-polled entry must not duplicate")
	assert.Equal(t, model.MovementExit, history[0].EventType)
	assert.Equal(t, model.MovementEntry, history[1].EventType)

	stats, err := s.Stats(ctx, rangeEnd)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalEvents)
	assert.Equal(t, 0, stats.CurrentlyParked)

	assert.Equal(t, int32(2), reports.Load(), "each run with new events notifies once")
}

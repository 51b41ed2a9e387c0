package api

import (
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"carpark-status-backend/config"
	"carpark-status-backend/internal/ingest"
	"carpark-status-backend/internal/mw"
	"carpark-status-backend/internal/status"
	"carpark-status-backend/internal/store"
)

// NewRouter creates and configures the Gin router for the collaborator API.
func NewRouter(cfg *config.ServerConfig, s store.EventStore, resolver *status.Resolver, job *ingest.Job, webpushOptions *webpush.Options, registry *prometheus.Registry) *gin.Engine {
	r := gin.Default()

	handler := NewHandler(s, resolver, job, webpushOptions)

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst, cfg.RequestIPHeader)

	cacheTTL := time.Duration(cfg.CacheTTLSeconds) * time.Second
	cacheStore := cache.New(cacheTTL, 2*cacheTTL)
	caching := mw.Cache(cacheStore, cacheTTL)

	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		// Occupancy projections. Cached: they are pure reads of the log.
		api.GET("/stats", caching, handler.GetStats)
		api.GET("/parked", caching, handler.GetParkedVehicles)
		api.GET("/parked/by-location", caching, handler.GetParkingCountByLocation)
		api.GET("/vehicles/:plate/history", caching, handler.GetVehicleHistory)

		// Product-status resolution.
		api.POST("/status/resolve", handler.ResolveStatus)
		api.POST("/status/active-tasks", handler.ActiveTasks)
		api.POST("/status/task-counts", handler.ActiveTaskCounts)

		// Operator actions.
		api.POST("/ingest/run", handler.TriggerIngestion)

		// Push subscriptions.
		api.GET("/subscriptions", handler.GetSubscription)
		api.PUT("/subscriptions", handler.PutSubscription)
		api.DELETE("/subscriptions", handler.DeleteSubscription)
		api.GET("/vapid_public_key", handler.GetVAPIDPublicKey)
	}

	return r
}

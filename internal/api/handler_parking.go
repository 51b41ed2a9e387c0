package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"carpark-status-backend/internal/status"
	"carpark-status-backend/internal/store"
)

// statsResponse is the GET /api/stats payload.
type statsResponse struct {
	store.Stats
	LastUpdate *time.Time `json:"lastUpdate"`
}

// GetStats handles GET /api/stats.
func (h *Handler) GetStats(c *gin.Context) {
	stats, err := h.store.Stats(c.Request.Context(), time.Now().UTC())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute stats"})
		return
	}

	resp := statsResponse{Stats: stats}
	if last := h.job.LastUpdate(); !last.IsZero() {
		resp.LastUpdate = &last
	}
	c.JSON(http.StatusOK, resp)
}

// parkedVehicleResponse is a parked vehicle optionally enriched with its
// refurbishment status.
type parkedVehicleResponse struct {
	store.ParkedVehicle
	Status *status.Info `json:"status,omitempty"`
}

// GetParkedVehicles handles GET /api/parked. With ?with_status=1 each row
// is joined against the product store; plates missing from the resolver's
// map are unregistered vehicles and get no status object.
func (h *Handler) GetParkedVehicles(c *gin.Context) {
	ctx := c.Request.Context()
	parked, err := h.store.ParkedVehicles(ctx, time.Now().UTC())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to derive parked vehicles"})
		return
	}

	response := make([]parkedVehicleResponse, 0, len(parked))

	if c.Query("with_status") == "1" {
		plates := make([]string, len(parked))
		for i, p := range parked {
			plates[i] = p.PlateNumber
		}
		resolved := h.resolver.ResolveStatus(ctx, plates)
		for _, p := range parked {
			row := parkedVehicleResponse{ParkedVehicle: p}
			if info, ok := resolved[p.PlateNumber]; ok {
				row.Status = &info
			}
			response = append(response, row)
		}
	} else {
		for _, p := range parked {
			response = append(response, parkedVehicleResponse{ParkedVehicle: p})
		}
	}

	c.JSON(http.StatusOK, response)
}

// GetParkingCountByLocation handles GET /api/parked/by-location.
func (h *Handler) GetParkingCountByLocation(c *gin.Context) {
	counts, err := h.store.CountByLocation(c.Request.Context(), time.Now().UTC())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to aggregate locations"})
		return
	}
	c.JSON(http.StatusOK, counts)
}

// GetVehicleHistory handles GET /api/vehicles/:plate/history.
func (h *Handler) GetVehicleHistory(c *gin.Context) {
	plate := c.Param("plate")
	if plate == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "plate is required"})
		return
	}

	history, err := h.store.HistoryFor(c.Request.Context(), plate)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to load history"})
		return
	}
	c.JSON(http.StatusOK, history)
}

package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

type platesRequest struct {
	Plates []string `json:"plates" binding:"required"`
}

// ResolveStatus handles POST /api/status/resolve. Plates absent from the
// result have no vehicle identity in the product store.
func (h *Handler) ResolveStatus(c *gin.Context) {
	var req platesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, h.resolver.ResolveStatus(c.Request.Context(), req.Plates))
}

// ActiveTasks handles POST /api/status/active-tasks.
func (h *Handler) ActiveTasks(c *gin.Context) {
	var req platesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, h.resolver.ActiveTasksFor(c.Request.Context(), req.Plates))
}

type taskCountsRequest struct {
	StatusRecordIDs []int64 `json:"statusRecordIds" binding:"required"`
}

// ActiveTaskCounts handles POST /api/status/task-counts.
func (h *Handler) ActiveTaskCounts(c *gin.Context) {
	var req taskCountsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, h.resolver.ActiveTaskCountsByPart(c.Request.Context(), req.StatusRecordIDs))
}

// TriggerIngestion handles POST /api/ingest/run: an operator-invoked
// one-off run. The run happens in the background; if one is already in
// flight the trigger is silently dropped by the job's single-flight flag.
func (h *Handler) TriggerIngestion(c *gin.Context) {
	// Detached from the request context: the run outlives the HTTP
	// request that triggered it. Failures are logged and notified by the
	// job itself.
	go func() {
		_ = h.job.RunOnce(context.Background())
	}()
	c.JSON(http.StatusAccepted, gin.H{"status": "triggered"})
}

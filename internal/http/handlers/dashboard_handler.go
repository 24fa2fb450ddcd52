// README: Dashboard API: usage metrics and example cache inspection.
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"wayfarer/internal/modules/examples"
	"wayfarer/internal/modules/metrics"
	"wayfarer/internal/service"
)

const maxSummaryHours = 720

type DashboardHandler struct {
	metrics   *metrics.Tracker
	cache     *examples.Cache
	assistant *service.TravelAssistant
}

func NewDashboardHandler(tracker *metrics.Tracker, cache *examples.Cache, assistant *service.TravelAssistant) *DashboardHandler {
	return &DashboardHandler{metrics: tracker, cache: cache, assistant: assistant}
}

func (h *DashboardHandler) Metrics(c *gin.Context) {
	writeJSON(c, http.StatusOK, h.metrics.Dashboard())
}

// Summary handles GET /dashboard/api/metrics/summary?hours=N.
func (h *DashboardHandler) Summary(c *gin.Context) {
	hours, err := strconv.Atoi(c.DefaultQuery("hours", "24"))
	if err != nil || hours < 1 || hours > maxSummaryHours {
		writeError(c, http.StatusBadRequest, "hours must be between 1 and 720")
		return
	}
	writeJSON(c, http.StatusOK, h.metrics.Summary(hours))
}

func (h *DashboardHandler) UserStats(c *gin.Context) {
	userID := c.Param("id")
	if !isValidID(userID) {
		writeError(c, http.StatusBadRequest, "invalid user id")
		return
	}
	writeJSON(c, http.StatusOK, h.metrics.UserStats(userID))
}

func (h *DashboardHandler) CacheStats(c *gin.Context) {
	writeJSON(c, http.StatusOK, h.cache.Stats())
}

func (h *DashboardHandler) ResetMetrics(c *gin.Context) {
	h.metrics.Reset()
	writeJSON(c, http.StatusOK, gin.H{"status": "reset"})
}

// ClearCache drops cached examples and cached responses.
func (h *DashboardHandler) ClearCache(c *gin.Context) {
	n := h.cache.Len()
	h.cache.Clear()
	if h.assistant != nil {
		h.assistant.ClearResponses()
	}
	writeJSON(c, http.StatusOK, gin.H{"status": "cleared", "entries": n})
}

// README: Trip history handlers: record a trip, read a profile, rate a trip.
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"wayfarer/internal/modules/history"
	"wayfarer/internal/modules/metrics"
	"wayfarer/internal/service"
)

type HistoryHandler struct {
	assistant *service.TravelAssistant
	metrics   *metrics.Tracker
}

func NewHistoryHandler(assistant *service.TravelAssistant, tracker *metrics.Tracker) *HistoryHandler {
	return &HistoryHandler{assistant: assistant, metrics: tracker}
}

type rateTripRequest struct {
	Rating *float64 `json:"satisfaction_rating" binding:"required"`
}

// RecordTrip handles POST /api/users/:id/trips.
func (h *HistoryHandler) RecordTrip(c *gin.Context) {
	userID := c.Param("id")
	if !isValidID(userID) {
		writeError(c, http.StatusBadRequest, "invalid user id")
		return
	}
	if !authorizeUser(c, userID) {
		return
	}
	var in history.TripInput
	if err := c.ShouldBindJSON(&in); err != nil {
		writeError(c, http.StatusBadRequest, "destination is required")
		return
	}

	start := time.Now()
	rec, err := h.assistant.RecordTrip(c.Request.Context(), userID, in)
	h.track(c, userID, start, err)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, rec)
}

// History handles GET /api/users/:id/history.
func (h *HistoryHandler) History(c *gin.Context) {
	userID := c.Param("id")
	if !isValidID(userID) {
		writeError(c, http.StatusBadRequest, "invalid user id")
		return
	}
	if !authorizeUser(c, userID) {
		return
	}

	start := time.Now()
	prof, err := h.assistant.Profile(c.Request.Context(), userID)
	h.track(c, userID, start, err)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, prof)
}

// RateTrip handles PUT /api/users/:id/trips/:tripID/rating.
func (h *HistoryHandler) RateTrip(c *gin.Context) {
	userID, tripID := c.Param("id"), c.Param("tripID")
	if !isValidID(userID) || !isValidID(tripID) {
		writeError(c, http.StatusBadRequest, "invalid id")
		return
	}
	if !authorizeUser(c, userID) {
		return
	}
	var req rateTripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "satisfaction_rating is required")
		return
	}

	start := time.Now()
	rec, err := h.assistant.RateTrip(c.Request.Context(), userID, tripID, *req.Rating)
	h.track(c, userID, start, err)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, rec)
}

func (h *HistoryHandler) track(c *gin.Context, userID string, start time.Time, err error) {
	if h.metrics == nil {
		return
	}
	rec := metrics.Record{
		Endpoint:  c.FullPath(),
		UserID:    userID,
		LatencyMs: time.Since(start).Milliseconds(),
		Success:   err == nil,
	}
	if err != nil {
		rec.Error = err.Error()
	}
	h.metrics.Track(rec)
}

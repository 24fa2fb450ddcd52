// README: Travel assistant handler: validates the request and runs the planner.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"wayfarer/internal/http/middleware"
	"wayfarer/internal/service"
)

type TravelHandler struct {
	assistant *service.TravelAssistant
}

func NewTravelHandler(assistant *service.TravelAssistant) *TravelHandler {
	return &TravelHandler{assistant: assistant}
}

// Plan handles POST /api/travel-assistant.
func (h *TravelHandler) Plan(c *gin.Context) {
	var req service.TravelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "destination, travel_dates and preferences are required")
		return
	}
	// A verified caller always plans for itself.
	if uid := middleware.CallerUID(c); uid != "" {
		req.UserID = uid
	}

	resp, err := h.assistant.Plan(c.Request.Context(), req)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, resp)
}

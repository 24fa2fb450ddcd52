// README: Base handler utilities (JSON helpers, error mapping).
package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"wayfarer/internal/http/middleware"
	"wayfarer/internal/modules/history"
	"wayfarer/internal/modules/quota"
	"wayfarer/internal/service"
)

type errorResponse struct {
	Error string `json:"error"`
}

// isValidID accepts the ids we hand out (uuids) and the uids Firebase issues.
func isValidID(v string) bool {
	if v == "" || len(v) > 128 {
		return false
	}
	for _, c := range v {
		if (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '-' || c == '_' {
			continue
		}
		return false
	}
	return true
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, msg string) {
	writeJSON(c, status, errorResponse{Error: msg})
}

func writeServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrBadRequest), errors.Is(err, history.ErrBadRequest):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, history.ErrNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, quota.ErrQuotaExceeded):
		writeError(c, http.StatusTooManyRequests, err.Error())
	default:
		_ = c.Error(err)
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}

// authorizeUser rejects callers acting on another user's data. Without auth every caller passes.
func authorizeUser(c *gin.Context, userID string) bool {
	uid := middleware.CallerUID(c)
	if uid == "" || uid == userID || strings.EqualFold(middleware.CallerRole(c), middleware.RoleAdmin) {
		return true
	}
	writeError(c, http.StatusForbidden, "forbidden")
	return false
}

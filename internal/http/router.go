// README: HTTP router registration.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"wayfarer/internal/http/handlers"
	"wayfarer/internal/http/middleware"
	"wayfarer/internal/service"
)

func (s *Server) Routes() *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Logging(s.log), middleware.Recovery(s.log))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})
	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"name":    ServiceName,
			"version": Version,
			"endpoints": []string{
				"POST " + service.EndpointTravelAssistant,
				"POST /api/users/:id/trips",
				"GET /api/users/:id/history",
				"PUT /api/users/:id/trips/:tripID/rating",
				"GET /dashboard/api/metrics",
				"GET /dashboard/api/metrics/summary",
				"GET /dashboard/api/metrics/user/:id",
				"GET /dashboard/api/cache/stats",
				"POST /dashboard/api/metrics/reset",
				"POST /dashboard/api/cache/clear",
				"GET /health",
			},
		})
	})

	api := r.Group("/api")
	dash := r.Group("/dashboard/api")
	if s.verifier != nil {
		api.Use(middleware.Auth(s.verifier))
		dash.Use(middleware.Auth(s.verifier), middleware.RequireRole(middleware.RoleAdmin))
	}

	travelHandler := handlers.NewTravelHandler(s.assistant)
	api.POST("/travel-assistant", travelHandler.Plan)

	historyHandler := handlers.NewHistoryHandler(s.assistant, s.metrics)
	api.POST("/users/:id/trips", historyHandler.RecordTrip)
	api.GET("/users/:id/history", historyHandler.History)
	api.PUT("/users/:id/trips/:tripID/rating", historyHandler.RateTrip)

	dashboardHandler := handlers.NewDashboardHandler(s.metrics, s.cache, s.assistant)
	dash.GET("/metrics", dashboardHandler.Metrics)
	dash.GET("/metrics/summary", dashboardHandler.Summary)
	dash.GET("/metrics/user/:id", dashboardHandler.UserStats)
	dash.GET("/cache/stats", dashboardHandler.CacheStats)
	dash.POST("/metrics/reset", dashboardHandler.ResetMetrics)
	dash.POST("/cache/clear", dashboardHandler.ClearCache)

	return r
}

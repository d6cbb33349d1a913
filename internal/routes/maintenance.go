package routes

import (
	"github.com/gin-gonic/gin"

	"gridagent/internal/handlers"
	"gridagent/internal/middleware"
)

// SetupMaintenanceRoutes wires the maintenance flag endpoints. Rate limited
// so a misbehaving dashboard cannot flap the agent's pause state.
func SetupMaintenanceRoutes(r *gin.Engine) {
	v1 := r.Group("/maintenance")
	v1.Use(middleware.RateLimiterMiddleware(middleware.RateLimiterConfig{
		RequestsPerSecond: 1,
		Burst:             5,
	}))
	{
		v1.GET("", handlers.GetMaintenanceStatus)
		v1.POST("/acquire", handlers.AcquireMaintenance)
		v1.POST("/release", handlers.ReleaseMaintenance)
	}
}

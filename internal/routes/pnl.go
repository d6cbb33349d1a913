package routes

import (
	"github.com/gin-gonic/gin"

	"gridagent/internal/handlers"
)

// SetupPnLRoutes wires the profit/loss endpoints.
func SetupPnLRoutes(r *gin.Engine) {
	v1 := r.Group("/pnl")
	{
		v1.GET("/summary", handlers.GetPnLSummary)
		v1.GET("/daily", handlers.GetDailyAggregates)
	}
	r.GET("/status", handlers.GetAgentStatus)
}

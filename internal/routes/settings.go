package routes

import (
	"github.com/gin-gonic/gin"

	"gridagent/internal/handlers"
)

// SetupSettingRoutes wires the settings and baseline endpoints.
func SetupSettingRoutes(r *gin.Engine) {
	v1 := r.Group("/settings")
	{
		v1.GET("", handlers.ListSettings)
		v1.PUT("", handlers.UpdateSetting)
	}

	baseline := r.Group("/baseline")
	{
		baseline.GET("", handlers.GetBaseline)
		baseline.POST("", handlers.SetBaseline)
		baseline.POST("/reset", handlers.ResetBaseline)
	}
}

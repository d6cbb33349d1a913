package routes

import (
	"github.com/gin-gonic/gin"

	"gridagent/internal/handlers"
)

// SetupEventRoutes wires the event log and the websocket stream.
func SetupEventRoutes(r *gin.Engine) {
	r.GET("/events", handlers.ListEvents)
	r.GET("/ws/events", handlers.StreamEvents)
}

package routes

import (
	"github.com/gin-gonic/gin"

	"gridagent/internal/handlers"
)

// SetupTransactionRoutes wires the ledger read endpoints.
func SetupTransactionRoutes(r *gin.Engine) {
	v1 := r.Group("/transactions")
	{
		v1.GET("", handlers.ListTransactions)
		v1.GET("/:id", handlers.GetTransaction)
		v1.GET("/archive/list", handlers.ListArchivedTransactions)
	}
}

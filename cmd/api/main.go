package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"

	"gridagent/internal/handlers"
	"gridagent/internal/routes"
	"gridagent/internal/store"
	"gridagent/pkg/config"
)

func main() {
	_ = godotenv.Load()

	// Initialize database
	config.InitDB()
	handlers.InitLedger(store.NewLedger(config.DB, config.DatabaseDSN()))

	flagPath := os.Getenv("MAINTENANCE_FLAG")
	if flagPath == "" {
		flagPath = "maintenance.flag"
	}
	handlers.InitMaintenanceFlag(flagPath)

	// Set up router
	r := routes.SetupRouter()

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	if err := r.Run(":" + port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}

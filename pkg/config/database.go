package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"gridagent/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

// DatabaseDSN builds the postgres DSN from the environment.
func DatabaseDSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
		os.Getenv("DB_HOST"),
		os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"),
		os.Getenv("DB_NAME"),
		os.Getenv("DB_PORT"),
	)
}

// InitDB initializes the database connection
func InitDB() {
	db, err := gorm.Open(postgres.Open(DatabaseDSN()), &gorm.Config{})
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatal("Failed to get database instance:", err)
	}

	// Single-writer agent plus the dashboard; a small pool is plenty.
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetConnMaxLifetime(time.Hour)

	DB = db

	// Auto migrate all models
	err = DB.AutoMigrate(
		&models.TransactionRecord{},
		&models.ArchivedTransactionRecord{},
		&models.AgentSetting{},
		&models.DailySnapshot{},
		&models.AgentEvent{},
	)
	if err != nil {
		log.Fatal("Failed to migrate database:", err)
	}
}

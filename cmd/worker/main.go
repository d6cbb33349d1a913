package main

import (
	"encoding/json"

	"github.com/joho/godotenv"
	logrus "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"gridagent/internal/models"
	"gridagent/pkg/config"
)

func main() {
	// Initialize logger
	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetLevel(logrus.InfoLevel)

	_ = godotenv.Load()

	// Initialize database
	config.InitDB()

	// Initialize RabbitMQ
	config.InitRabbitMQ()
	defer config.RabbitMQ.Close()

	msgConsumer, err := config.NewConsumer(config.AgentEventsQueue)
	if err != nil {
		logrus.Fatal("Failed to create consumer: ", err)
	}
	defer msgConsumer.Close()

	logrus.Info("Event worker started, waiting for messages...")

	err = msgConsumer.Consume(func(msg []byte) error {
		var event config.Event
		if err := json.Unmarshal(msg, &event); err != nil {
			logrus.Errorf("Failed to unmarshal event: %v", err)
			// A malformed message will never parse; drop it instead of
			// requeueing forever.
			return nil
		}
		return persistEvent(config.DB, event)
	})
	if err != nil {
		logrus.Fatal("Consumer stopped: ", err)
	}
}

// persistEvent inserts one event row. Delivery is at-least-once, so a
// redelivered event hits the event_id unique index; the conflict clause
// makes the insert a no-op instead of an error the consumer would requeue.
func persistEvent(db *gorm.DB, event config.Event) error {
	row := models.AgentEvent{
		EventID:   event.EventID,
		Type:      event.Type,
		Payload:   models.JSONMap(event.Payload),
		CreatedAt: event.CreatedAt,
	}
	res := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "event_id"}},
		DoNothing: true,
	}).Create(&row)
	if res.Error != nil {
		logrus.Errorf("Failed to persist event %s: %v", event.EventID, res.Error)
		return res.Error
	}
	if res.RowsAffected == 0 {
		logrus.Warnf("Duplicate event %s, skipping", event.EventID)
		return nil
	}

	logrus.WithFields(logrus.Fields{
		"event_id": event.EventID,
		"type":     event.Type,
	}).Info("event persisted")
	return nil
}

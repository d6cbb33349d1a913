package main

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"gridagent/internal/models"
	"gridagent/pkg/config"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("TEST_DATABASE_DSN not set")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.AgentEvent{}))
	require.NoError(t, db.Exec("DELETE FROM agent_events").Error)
	return db
}

func TestPersistEvent(t *testing.T) {
	db := openTestDB(t)

	event := config.Event{
		EventID:   "4f1c2a9e-0000-4000-8000-000000000001",
		Type:      "deploy",
		Payload:   map[string]interface{}{"round_id": float64(42)},
		CreatedAt: time.Now().UTC(),
	}

	require.NoError(t, persistEvent(db, event))

	var rows []models.AgentEvent
	require.NoError(t, db.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, event.EventID, rows[0].EventID)
	assert.Equal(t, "deploy", rows[0].Type)

	t.Run("Redelivered Event Is A No-Op", func(t *testing.T) {
		// At-least-once delivery: the same message can arrive again after
		// a crash between insert and ack. The handler must return nil or
		// the consumer requeues the message forever.
		require.NoError(t, persistEvent(db, event))

		var count int64
		require.NoError(t, db.Model(&models.AgentEvent{}).Count(&count).Error)
		assert.Equal(t, int64(1), count)
	})

	t.Run("Distinct Event Inserts A Second Row", func(t *testing.T) {
		next := event
		next.EventID = "4f1c2a9e-0000-4000-8000-000000000002"
		require.NoError(t, persistEvent(db, next))

		var count int64
		require.NoError(t, db.Model(&models.AgentEvent{}).Count(&count).Error)
		assert.Equal(t, int64(2), count)
	})
}

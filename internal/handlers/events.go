package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"gridagent/internal/models"
	dbconfig "gridagent/pkg/config"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The dashboard is served from another origin; CORS is enforced at the
	// router level.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ListEvents returns recent agent events, newest first.
func ListEvents(c *gin.Context) {
	limit := 100
	if v := c.Query("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit format"})
			return
		}
		limit = parsed
	}

	var events []models.AgentEvent
	q := dbconfig.DB.Order("id desc").Limit(limit)
	if eventType := c.Query("type"); eventType != "" {
		q = q.Where("type = ?", eventType)
	}
	if err := q.Find(&events).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, events)
}

// StreamEvents upgrades to a websocket and pushes agent events as the
// worker persists them. Replays the last 20 on connect, then tails the
// table.
func StreamEvents(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warnf("websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	// Reader goroutine: we never expect client messages, but reading is
	// required to notice the peer closing.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	var lastID uint
	var recent []models.AgentEvent
	if err := dbconfig.DB.Order("id desc").Limit(20).Find(&recent).Error; err == nil {
		for i := len(recent) - 1; i >= 0; i-- {
			if err := conn.WriteJSON(recent[i]); err != nil {
				return
			}
			if recent[i].ID > lastID {
				lastID = recent[i].ID
			}
		}
	}

	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			var events []models.AgentEvent
			err := dbconfig.DB.Where("id > ?", lastID).Order("id asc").Find(&events).Error
			if err != nil {
				log.Warnf("event tail query failed: %v", err)
				continue
			}
			for _, event := range events {
				if err := conn.WriteJSON(event); err != nil {
					return
				}
				lastID = event.ID
			}
		}
	}
}

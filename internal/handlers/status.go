package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"gridagent/internal/models"
	dbconfig "gridagent/pkg/config"
)

// GetAgentStatus summarizes what the agent last did: newest ledger entry,
// baseline state and whether maintenance is holding it paused.
func GetAgentStatus(c *gin.Context) {
	var last models.TransactionRecord
	err := dbconfig.DB.Order("id desc").First(&last).Error
	if err != nil && err != gorm.ErrRecordNotFound {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	_, baselineSet, err := Ledger.Baseline()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	status := gin.H{
		"maintenance":  Flag.Active(),
		"baseline_set": baselineSet,
	}
	if last.ID != 0 {
		status["last_record"] = last
	}
	c.JSON(http.StatusOK, status)
}

package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"gridagent/internal/models"
	"gridagent/internal/store"
	dbconfig "gridagent/pkg/config"
)

// Ledger is the shared store handle, set by the API main before routing.
var Ledger *store.Ledger

// InitLedger wires the store used by the settings, baseline and PnL
// handlers.
func InitLedger(l *store.Ledger) {
	Ledger = l
}

// SettingRequest is the update payload.
type SettingRequest struct {
	Key   string `json:"key" binding:"required"`
	Value string `json:"value" binding:"required"`
}

// BaselineRequest is the set-baseline payload.
type BaselineRequest struct {
	BaselineSol float64 `json:"baseline_sol" binding:"required"`
}

// ListSettings returns all settings rows.
func ListSettings(c *gin.Context) {
	var settings []models.AgentSetting
	if err := dbconfig.DB.Order("key asc").Find(&settings).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, settings)
}

// UpdateSetting upserts a key/value pair. The baseline key is managed by
// its own endpoints and rejected here.
func UpdateSetting(c *gin.Context) {
	var req SettingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Key == models.SettingBaseline {
		c.JSON(http.StatusBadRequest, gin.H{"error": "baseline is managed via /baseline"})
		return
	}
	if err := Ledger.SetSetting(req.Key, req.Value); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Setting updated successfully"})
}

// GetBaseline returns the recorded starting balance, if any.
func GetBaseline(c *gin.Context) {
	baseline, ok, err := Ledger.Baseline()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"set": ok, "baseline_sol": baseline})
}

// SetBaseline records the starting balance. Set-once: conflicts return 409.
func SetBaseline(c *gin.Context) {
	var req BaselineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := Ledger.SetBaseline(req.BaselineSol); err != nil {
		if errors.Is(err, store.ErrBaselineSet) {
			c.JSON(http.StatusConflict, gin.H{"error": "baseline already set; reset first"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Baseline recorded"})
}

// ResetBaseline archives the ledger and clears the baseline.
func ResetBaseline(c *gin.Context) {
	if err := Ledger.ResetBaseline(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Ledger archived and baseline cleared"})
}

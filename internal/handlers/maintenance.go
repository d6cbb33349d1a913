package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"gridagent/internal/engine"
)

// Flag is the shared maintenance flag handle, set by the API main.
var Flag *engine.MaintenanceFlag

// InitMaintenanceFlag wires the flag path used by the maintenance
// endpoints. The agent watches the same file.
func InitMaintenanceFlag(path string) {
	Flag = engine.NewMaintenanceFlag(path)
}

// GetMaintenanceStatus reports whether the flag is held.
func GetMaintenanceStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"active": Flag.Active()})
}

// AcquireMaintenance raises the flag. The agent pauses ledger writes and
// releases its store handle on its next cycle.
func AcquireMaintenance(c *gin.Context) {
	if Flag.Active() {
		c.JSON(http.StatusConflict, gin.H{"error": "maintenance flag already held"})
		return
	}
	if err := Flag.Acquire(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Maintenance flag acquired"})
}

// ReleaseMaintenance lowers the flag; the agent resumes on its next cycle.
func ReleaseMaintenance(c *gin.Context) {
	if err := Flag.Release(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Maintenance flag released"})
}

package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"gridagent/internal/models"
	dbconfig "gridagent/pkg/config"
)

// ListTransactions returns ledger entries, newest first. Optional query
// params: type, status, round_id, limit (default 100).
func ListTransactions(c *gin.Context) {
	q := dbconfig.DB.Model(&models.TransactionRecord{}).Order("id desc")

	if txType := c.Query("type"); txType != "" {
		q = q.Where("type = ?", txType)
	}
	if status := c.Query("status"); status != "" {
		q = q.Where("status = ?", status)
	}
	if roundID := c.Query("round_id"); roundID != "" {
		id, err := strconv.ParseUint(roundID, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid round_id format"})
			return
		}
		q = q.Where("round_id = ?", id)
	}

	limit := 100
	if v := c.Query("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit format"})
			return
		}
		limit = parsed
	}
	q = q.Limit(limit)

	var records []models.TransactionRecord
	if err := q.Find(&records).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, records)
}

// GetTransaction returns a single ledger entry by ID.
func GetTransaction(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return
	}

	var record models.TransactionRecord
	if err := dbconfig.DB.First(&record, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Record not found"})
		return
	}
	c.JSON(http.StatusOK, record)
}

// ListArchivedTransactions returns entries moved aside by a baseline reset.
func ListArchivedTransactions(c *gin.Context) {
	var records []models.ArchivedTransactionRecord
	if err := dbconfig.DB.Order("id desc").Limit(500).Find(&records).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, records)
}

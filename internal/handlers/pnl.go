package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"gridagent/internal/engine"
	"gridagent/internal/models"
	dbconfig "gridagent/pkg/config"
)

// GetPnLSummary derives the profit/loss summary from the full ledger plus
// the latest daily snapshot's balances. Nothing here is stored; the same
// inputs always produce the same summary.
func GetPnLSummary(c *gin.Context) {
	records, err := Ledger.Records()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	var snap models.DailySnapshot
	err = dbconfig.DB.Order("date desc").First(&snap).Error
	if err != nil && err != gorm.ErrRecordNotFound {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	bal := engine.BalanceSet{
		WalletLamports:  uint64(snap.WalletLamports),
		EscrowLamports:  uint64(snap.EscrowLamports),
		ClaimableTokens: uint64(snap.ClaimableTokens),
		StakedTokens:    uint64(snap.StakedTokens),
		WalletTokens:    uint64(snap.WalletTokens),
		TokenPriceSOL:   snap.TokenPriceSol,
	}

	var baselinePtr *float64
	if baseline, ok, err := Ledger.Baseline(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	} else if ok {
		baselinePtr = &baseline
	}

	summary := engine.Reconcile(records, bal, baselinePtr, engine.DefaultParams())
	c.JSON(http.StatusOK, gin.H{
		"summary":       summary,
		"snapshot_date": snap.Date,
	})
}

// GetDailyAggregates returns up to ?days= snapshots (default 30), newest
// first.
func GetDailyAggregates(c *gin.Context) {
	days := 30
	if v := c.Query("days"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid days format"})
			return
		}
		days = parsed
	}

	snaps, err := Ledger.DailyAggregates(days)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, snaps)
}

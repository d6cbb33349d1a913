package store

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"gridagent/internal/models"
)

// openTestLedger connects to the database named by TEST_DATABASE_DSN and
// starts from empty tables. Tests are skipped when the variable is unset.
func openTestLedger(t *testing.T) *Ledger {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("TEST_DATABASE_DSN not set")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	err = db.AutoMigrate(
		&models.TransactionRecord{},
		&models.ArchivedTransactionRecord{},
		&models.AgentSetting{},
		&models.DailySnapshot{},
	)
	require.NoError(t, err)
	require.NoError(t, db.Exec("DELETE FROM transaction_records").Error)
	require.NoError(t, db.Exec("DELETE FROM transaction_records_archive").Error)
	require.NoError(t, db.Exec("DELETE FROM agent_settings").Error)
	require.NoError(t, db.Exec("DELETE FROM daily_snapshots").Error)
	return NewLedger(db, dsn)
}

func TestLedgerAppendAndQuery(t *testing.T) {
	ledger := openTestLedger(t)

	records := []models.TransactionRecord{
		{Type: models.TxDeploy, Lamports: -1_000_000, RoundID: 10, Status: models.TxStatusConfirmed},
		{Type: models.TxDeploy, Lamports: -1_000_000, RoundID: 11, Status: models.TxStatusFailed},
		{Type: models.TxClaim, TokenAmount: 500_000_000, Status: models.TxStatusConfirmed},
	}
	for i := range records {
		require.NoError(t, ledger.Append(&records[i]))
	}

	t.Run("Records In Insertion Order", func(t *testing.T) {
		all, err := ledger.Records()
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, models.TxDeploy, all[0].Type)
		assert.Equal(t, models.TxClaim, all[2].Type)
	})

	t.Run("Filter By Type", func(t *testing.T) {
		got, err := ledger.Query(RecordFilter{Type: models.TxDeploy})
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})

	t.Run("Filter By Status And Round", func(t *testing.T) {
		got, err := ledger.Query(RecordFilter{Status: models.TxStatusFailed, RoundID: 11})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, uint64(11), got[0].RoundID)
	})

	t.Run("Limit Newest First", func(t *testing.T) {
		got, err := ledger.Query(RecordFilter{Limit: 1})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, models.TxClaim, got[0].Type)
	})
}

func TestLedgerBaselineLifecycle(t *testing.T) {
	ledger := openTestLedger(t)

	_, ok, err := ledger.Baseline()
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, ledger.SetBaseline(12.5))
	baseline, ok, err := ledger.Baseline()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 12.5, baseline)

	t.Run("Second Set Fails", func(t *testing.T) {
		assert.ErrorIs(t, ledger.SetBaseline(99), ErrBaselineSet)
	})

	t.Run("Reset Archives And Clears", func(t *testing.T) {
		rec := models.TransactionRecord{Type: models.TxDeploy, Lamports: -500, Status: models.TxStatusConfirmed}
		require.NoError(t, ledger.Append(&rec))

		require.NoError(t, ledger.ResetBaseline())

		all, err := ledger.Records()
		require.NoError(t, err)
		assert.Empty(t, all)

		db, err := ledger.handle()
		require.NoError(t, err)
		var archived []models.ArchivedTransactionRecord
		require.NoError(t, db.Find(&archived).Error)
		require.Len(t, archived, 1)
		assert.Equal(t, int64(-500), archived[0].Lamports)

		_, ok, err := ledger.Baseline()
		require.NoError(t, err)
		assert.False(t, ok)

		require.NoError(t, ledger.SetBaseline(3))
	})
}

func TestLedgerSnapshotUpsert(t *testing.T) {
	ledger := openTestLedger(t)

	date := time.Now().UTC().Format("2006-01-02")
	require.NoError(t, ledger.SaveSnapshot(&models.DailySnapshot{Date: date, WalletLamports: 100}))
	require.NoError(t, ledger.SaveSnapshot(&models.DailySnapshot{Date: date, WalletLamports: 250}))

	snaps, err := ledger.DailyAggregates(7)
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, int64(250), snaps[0].WalletLamports)
}

func TestLedgerReleaseAndReopen(t *testing.T) {
	ledger := openTestLedger(t)

	require.NoError(t, ledger.Release())

	_, err := ledger.Records()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "released for maintenance")

	// Release while released is a no-op.
	require.NoError(t, ledger.Release())

	require.NoError(t, ledger.Reopen())
	_, err = ledger.Records()
	assert.NoError(t, err)
}

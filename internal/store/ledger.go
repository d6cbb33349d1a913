package store

import (
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"gridagent/internal/models"
)

// ErrBaselineSet is returned when SetBaseline is called twice without a
// reset in between.
var ErrBaselineSet = errors.New("baseline already set")

// RecordFilter narrows a ledger query. Zero fields are ignored.
type RecordFilter struct {
	Type    string
	Status  string
	RoundID uint64
	Since   time.Time
	Limit   int
}

// Ledger is the gorm-backed transaction log and settings store. The agent
// is the only writer; the dashboard reads concurrently. Release/Reopen hand
// the connection over while an operator holds the maintenance flag.
type Ledger struct {
	mu  sync.Mutex
	db  *gorm.DB
	dsn string
}

// NewLedger wraps an open gorm handle. The dsn is kept for Reopen.
func NewLedger(db *gorm.DB, dsn string) *Ledger {
	return &Ledger{db: db, dsn: dsn}
}

func (l *Ledger) handle() (*gorm.DB, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.db == nil {
		return nil, errors.New("ledger is released for maintenance")
	}
	return l.db, nil
}

// Append inserts one transaction record. Records are never updated after
// insertion.
func (l *Ledger) Append(rec *models.TransactionRecord) error {
	db, err := l.handle()
	if err != nil {
		return err
	}
	if err := db.Create(rec).Error; err != nil {
		return fmt.Errorf("append transaction record: %w", err)
	}
	return nil
}

// Records returns the full ledger in insertion order.
func (l *Ledger) Records() ([]models.TransactionRecord, error) {
	db, err := l.handle()
	if err != nil {
		return nil, err
	}
	var records []models.TransactionRecord
	if err := db.Order("id asc").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("load transaction records: %w", err)
	}
	return records, nil
}

// Query returns records matching the filter, newest first.
func (l *Ledger) Query(filter RecordFilter) ([]models.TransactionRecord, error) {
	db, err := l.handle()
	if err != nil {
		return nil, err
	}
	q := db.Model(&models.TransactionRecord{}).Order("id desc")
	if filter.Type != "" {
		q = q.Where("type = ?", filter.Type)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.RoundID != 0 {
		q = q.Where("round_id = ?", filter.RoundID)
	}
	if !filter.Since.IsZero() {
		q = q.Where("created_at >= ?", filter.Since)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	var records []models.TransactionRecord
	if err := q.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("query transaction records: %w", err)
	}
	return records, nil
}

// Setting returns the value for a key and whether it exists.
func (l *Ledger) Setting(key string) (string, bool, error) {
	db, err := l.handle()
	if err != nil {
		return "", false, err
	}
	var setting models.AgentSetting
	err = db.Where("key = ?", key).First(&setting).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("load setting %s: %w", key, err)
	}
	return setting.Value, true, nil
}

// SetSetting upserts a key/value pair.
func (l *Ledger) SetSetting(key, value string) error {
	db, err := l.handle()
	if err != nil {
		return err
	}
	setting := models.AgentSetting{Key: key, Value: value}
	err = db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&setting).Error
	if err != nil {
		return fmt.Errorf("set setting %s: %w", key, err)
	}
	return nil
}

// Baseline returns the recorded starting balance in SOL, if set.
func (l *Ledger) Baseline() (float64, bool, error) {
	value, ok, err := l.Setting(models.SettingBaseline)
	if err != nil || !ok {
		return 0, false, err
	}
	baseline, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, false, fmt.Errorf("parse baseline %q: %w", value, err)
	}
	return baseline, true, nil
}

// SetBaseline records the starting balance. Set-once: a second write fails
// until ResetBaseline has run.
func (l *Ledger) SetBaseline(sol float64) error {
	_, ok, err := l.Baseline()
	if err != nil {
		return err
	}
	if ok {
		return ErrBaselineSet
	}
	return l.SetSetting(models.SettingBaseline, strconv.FormatFloat(sol, 'f', -1, 64))
}

// ResetBaseline archives the current ledger and clears the baseline, all in
// one transaction. The archive keeps history auditable after a reset.
func (l *Ledger) ResetBaseline() error {
	db, err := l.handle()
	if err != nil {
		return err
	}
	return db.Transaction(func(tx *gorm.DB) error {
		err := tx.Exec(`INSERT INTO transaction_records_archive
			(type, signature, lamports, token_amount, fee_lamports, round_id, status, notes, created_at, archived_at)
			SELECT type, signature, lamports, token_amount, fee_lamports, round_id, status, notes, created_at, NOW()
			FROM transaction_records`).Error
		if err != nil {
			return fmt.Errorf("archive transaction records: %w", err)
		}
		if err := tx.Exec(`DELETE FROM transaction_records`).Error; err != nil {
			return fmt.Errorf("clear transaction records: %w", err)
		}
		err = tx.Where("key = ?", models.SettingBaseline).
			Delete(&models.AgentSetting{}).Error
		if err != nil {
			return fmt.Errorf("clear baseline: %w", err)
		}
		return nil
	})
}

// SaveSnapshot upserts the daily aggregate row for its date.
func (l *Ledger) SaveSnapshot(snap *models.DailySnapshot) error {
	db, err := l.handle()
	if err != nil {
		return err
	}
	err = db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"wallet_lamports", "escrow_lamports", "claimable_tokens",
			"staked_tokens", "wallet_tokens", "token_price_sol", "net_profit_sol",
		}),
	}).Create(snap).Error
	if err != nil {
		return fmt.Errorf("save daily snapshot: %w", err)
	}
	return nil
}

// DailyAggregates returns up to days of snapshots, newest first.
func (l *Ledger) DailyAggregates(days int) ([]models.DailySnapshot, error) {
	db, err := l.handle()
	if err != nil {
		return nil, err
	}
	var snaps []models.DailySnapshot
	q := db.Order("date desc")
	if days > 0 {
		q = q.Limit(days)
	}
	if err := q.Find(&snaps).Error; err != nil {
		return nil, fmt.Errorf("load daily snapshots: %w", err)
	}
	return snaps, nil
}

// Release closes the underlying connection so an operator can take the
// database down while the maintenance flag is held.
func (l *Ledger) Release() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.db == nil {
		return nil
	}
	sqlDB, err := l.db.DB()
	if err != nil {
		return fmt.Errorf("get database instance: %w", err)
	}
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	l.db = nil
	return nil
}

// Reopen restores the connection released by Release.
func (l *Ledger) Reopen() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.db != nil {
		return nil
	}
	db, err := gorm.Open(postgres.Open(l.dsn), &gorm.Config{})
	if err != nil {
		return fmt.Errorf("reopen database: %w", err)
	}
	l.db = db
	return nil
}

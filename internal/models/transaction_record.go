package models

import (
	"time"
)

// Transaction record types.
const (
	TxDeploy          = "deploy"
	TxCheckpoint      = "checkpoint"
	TxAutomationOpen  = "automation_create"
	TxAutomationClose = "automation_close"
	TxAutomationTopUp = "automation_topup"
	TxClaim           = "claim"
	TxYieldClaim      = "yield_claim"
	TxStake           = "stake"
	TxSwap            = "swap"
)

// Transaction record statuses.
const (
	TxStatusConfirmed = "confirmed"
	TxStatusFailed    = "failed"
	TxStatusSkipped   = "skipped"
)

// TransactionRecord is one append-only ledger entry. Rows are never updated
// or deleted outside the archive-and-reset flow.
type TransactionRecord struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	Type        string    `gorm:"type:varchar(40);not null;index" json:"type"`
	Signature   string    `gorm:"type:text" json:"signature"`
	Lamports    int64     `gorm:"not null;default:0" json:"lamports"`
	TokenAmount int64     `gorm:"not null;default:0" json:"token_amount"`
	FeeLamports int64     `gorm:"not null;default:0" json:"fee_lamports"`
	RoundID     uint64    `gorm:"not null;default:0;index" json:"round_id"`
	Status      string    `gorm:"type:varchar(20);not null" json:"status"`
	Notes       string    `gorm:"type:text" json:"notes"`
	CreatedAt   time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

func (TransactionRecord) TableName() string {
	return "transaction_records"
}

// ArchivedTransactionRecord holds rows moved aside by the baseline
// reset-and-rearchive flow. Same shape as TransactionRecord.
type ArchivedTransactionRecord struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	Type        string    `gorm:"type:varchar(40);not null" json:"type"`
	Signature   string    `gorm:"type:text" json:"signature"`
	Lamports    int64     `gorm:"not null;default:0" json:"lamports"`
	TokenAmount int64     `gorm:"not null;default:0" json:"token_amount"`
	FeeLamports int64     `gorm:"not null;default:0" json:"fee_lamports"`
	RoundID     uint64    `gorm:"not null;default:0" json:"round_id"`
	Status      string    `gorm:"type:varchar(20);not null" json:"status"`
	Notes       string    `gorm:"type:text" json:"notes"`
	CreatedAt   time.Time `json:"created_at"`
	ArchivedAt  time.Time `gorm:"autoCreateTime" json:"archived_at"`
}

func (ArchivedTransactionRecord) TableName() string {
	return "transaction_records_archive"
}

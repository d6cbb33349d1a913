package models

import (
	"time"
)

// Well-known setting keys.
const (
	SettingBaseline      = "baseline_sol"
	SettingSetupPoolSize = "setup_reward_pool"
)

// AgentSetting is a single key/value row in the settings store. The baseline
// key is set-once: writes after the first go through the reset flow only.
type AgentSetting struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	Key       string    `gorm:"column:key;type:varchar(64);not null;uniqueIndex" json:"key"`
	Value     string    `gorm:"column:value;type:text;not null" json:"value"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (AgentSetting) TableName() string {
	return "agent_settings"
}

// DailySnapshot is one row per day of aggregate balances and PnL, recorded
// by the agent's cron job so the dashboard can chart history without
// touching the chain.
type DailySnapshot struct {
	ID              uint      `gorm:"primarykey" json:"id"`
	Date            string    `gorm:"type:varchar(10);not null;uniqueIndex" json:"date"`
	WalletLamports  int64     `gorm:"not null;default:0" json:"wallet_lamports"`
	EscrowLamports  int64     `gorm:"not null;default:0" json:"escrow_lamports"`
	ClaimableTokens int64     `gorm:"not null;default:0" json:"claimable_tokens"`
	StakedTokens    int64     `gorm:"not null;default:0" json:"staked_tokens"`
	WalletTokens    int64     `gorm:"not null;default:0" json:"wallet_tokens"`
	TokenPriceSol   float64   `gorm:"not null;default:0" json:"token_price_sol"`
	NetProfitSol    float64   `gorm:"not null;default:0" json:"net_profit_sol"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (DailySnapshot) TableName() string {
	return "daily_snapshots"
}

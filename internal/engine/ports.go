package engine

import (
	"context"
	"errors"
	"time"

	"gridagent/internal/models"
)

// ErrNotFound is returned by chain reads when the requested account does not
// exist on chain (e.g. the miner state before the first deployment, or the
// automation account after it has been closed).
var ErrNotFound = errors.New("account not found")

// Board is the global state of the minefield program.
type Board struct {
	CurrentRound  uint64
	RoundDuration time.Duration
	SquareCount   uint8
}

// Round is a single time-boxed game round. Immutable once past EndTime.
type Round struct {
	ID            uint64
	StartTime     time.Time
	EndTime       time.Time
	TotalDeployed uint64 // lamports committed by all miners this round
}

// AgentState is the per-wallet miner account.
type AgentState struct {
	Checkpoint      uint64 // last round settled for this miner
	ClaimableTokens uint64 // accrued reward tokens, base units
}

// Automation is the pre-funded escrow account the program executes
// deployments from. CostPerRound derives from the square mask.
type Automation struct {
	AmountPerSquare uint64 // lamports committed per square per round
	Balance         uint64 // remaining escrow balance, lamports
	SquareMask      uint32 // bitmask of squares to deploy on
}

// CostPerRound returns the lamports consumed by one automated deployment.
func (a *Automation) CostPerRound() uint64 {
	return a.AmountPerSquare * uint64(popcount(a.SquareMask))
}

func popcount(mask uint32) int {
	n := 0
	for mask != 0 {
		mask &= mask - 1
		n++
	}
	return n
}

// RewardPool is the accumulated bonus treasury, in reward-token base units.
type RewardPool struct {
	Balance uint64
}

// StakeAccount is the miner's staked reward-token position.
type StakeAccount struct {
	StakedTokens uint64
	PendingYield uint64
}

// ChainAdapter is the read/write surface of the minefield program. Reads
// return ErrNotFound for missing accounts; writes return the confirmed
// transaction signature or an error classifiable via Classify.
type ChainAdapter interface {
	Board(ctx context.Context) (*Board, error)
	Round(ctx context.Context, id uint64) (*Round, error)
	AgentState(ctx context.Context) (*AgentState, error)
	Automation(ctx context.Context) (*Automation, error)
	RewardPool(ctx context.Context) (*RewardPool, error)
	StakeAccount(ctx context.Context) (*StakeAccount, error)

	WalletBalance(ctx context.Context) (uint64, error)
	TokenBalance(ctx context.Context) (uint64, error)

	Deploy(ctx context.Context, roundID uint64) (string, error)
	Checkpoint(ctx context.Context, rounds []uint64) (string, error)
	CreateAutomation(ctx context.Context, amountPerSquare uint64, squareMask uint32, deposit uint64) (string, error)
	CloseAutomation(ctx context.Context) (string, error)
	TopUpAutomation(ctx context.Context, lamports uint64) (string, error)
	ClaimRewards(ctx context.Context) (string, error)
	ClaimYield(ctx context.Context) (string, error)
	Stake(ctx context.Context, tokens uint64) (string, error)
}

// Quote is a cached price lookup result. A zero-valued quote means the
// oracle is unavailable; callers must treat that pessimistically.
type Quote struct {
	SolPerToken float64
	TokenPerSol float64
}

// PriceOracle resolves the reward-token market price. Implementations cache
// internally and never return an error: failure is the zero quote.
type PriceOracle interface {
	TokenPrice() Quote
}

// Swapper converts held reward tokens to the native asset.
type Swapper interface {
	SwapTokenForSol(ctx context.Context, tokens uint64) (sig string, lamportsOut uint64, err error)
}

// LedgerStore is the append-only transaction log plus the settings store.
type LedgerStore interface {
	Append(rec *models.TransactionRecord) error
	Records() ([]models.TransactionRecord, error)
	Baseline() (float64, bool, error)
	Setting(key string) (string, bool, error)
	SetSetting(key, value string) error

	// Release closes the underlying handle while the dashboard holds the
	// maintenance flag; Reopen restores it.
	Release() error
	Reopen() error
}

// EventPublisher pushes agent events to the (optional) message bus.
// Implementations are best-effort; a nil publisher is valid.
type EventPublisher interface {
	Publish(eventType string, payload map[string]interface{})
}

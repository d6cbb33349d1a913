package engine

import (
	"fmt"
	"time"
)

// LamportsPerSol is the native base-unit scale.
const LamportsPerSol = 1e9

// Strategy selects how the automation account spreads capital over the
// board. Consumers switch exhaustively; unknown values are an error, never
// a silent default.
type Strategy int

const (
	// StrategyFullBoard deploys on every square.
	StrategyFullBoard Strategy = iota
	// StrategyHalfBoard deploys on every other square.
	StrategyHalfBoard
	// StrategySingleSquare concentrates on one square.
	StrategySingleSquare
)

func (s Strategy) String() string {
	switch s {
	case StrategyFullBoard:
		return "full_board"
	case StrategyHalfBoard:
		return "half_board"
	case StrategySingleSquare:
		return "single_square"
	}
	return fmt.Sprintf("strategy(%d)", int(s))
}

// ParseStrategy maps a config string to a Strategy.
func ParseStrategy(s string) (Strategy, error) {
	switch s {
	case "full_board", "":
		return StrategyFullBoard, nil
	case "half_board":
		return StrategyHalfBoard, nil
	case "single_square":
		return StrategySingleSquare, nil
	}
	return 0, fmt.Errorf("unknown automation strategy %q", s)
}

// SquareMask returns the deployment bitmask for a board of the given size.
func (s Strategy) SquareMask(squares uint8) (uint32, error) {
	switch s {
	case StrategyFullBoard:
		return uint32(1)<<squares - 1, nil
	case StrategyHalfBoard:
		var mask uint32
		for i := uint8(0); i < squares; i += 2 {
			mask |= 1 << i
		}
		return mask, nil
	case StrategySingleSquare:
		return 1, nil
	}
	return 0, fmt.Errorf("unknown automation strategy %d", int(s))
}

// PoolTier maps a reward-pool size to a target round count. A larger pool
// justifies fewer, larger rounds.
type PoolTier struct {
	MaxPoolTokens float64 // tier applies while pool < this; last tier is open
	TargetRounds  uint64
}

// Params holds every tunable the engine consumes. Ambient state the loop
// needs (last-check timestamps, recorded setup pool) lives on the component
// structs, not here.
type Params struct {
	// Evaluator.
	FixedEmissionTokens float64
	HitProbability      float64
	ProtocolFeeRate     float64
	RefundRate          float64
	FallbackMultiplier  float64
	MinCompetingSOL     float64
	MinExpectedValueSOL float64
	TokenDecimals       uint8

	// Automation lifecycle.
	Strategy          Strategy
	SquareCount       uint8
	BudgetFraction    float64
	MinBudgetLamports uint64
	Tiers             []PoolTier
	RescaleUpPct      float64
	RescaleDownPct    float64
	RescaleAbsolute   float64 // whole tokens
	EscrowFloorRounds uint64
	RefundTolerance   float64

	// Orchestrator.
	PollInterval          time.Duration
	PollSlice             time.Duration
	RewardPoolFloorTokens float64
	CheckpointBatchLimit  int
	MaintenanceFlagPath   string

	// Claim scheduler.
	ClaimInterval        time.Duration
	StakeInterval        time.Duration
	ClaimThresholdTokens float64
	StakeReserveTokens   float64

	// PnL.
	ReconcileToleranceSOL float64
	AvgFeeLamports        int64
}

// DefaultParams returns the tuned defaults; the yaml config overrides them.
func DefaultParams() Params {
	return Params{
		FixedEmissionTokens: 1.0,
		HitProbability:      1.0 / 25.0,
		ProtocolFeeRate:     0.10,
		RefundRate:          0.75,
		FallbackMultiplier:  10,
		MinCompetingSOL:     0.01,
		MinExpectedValueSOL: 0,
		TokenDecimals:       9,

		Strategy:          StrategyFullBoard,
		SquareCount:       25,
		BudgetFraction:    0.5,
		MinBudgetLamports: 0.01 * LamportsPerSol,
		Tiers: []PoolTier{
			{MaxPoolTokens: 1, TargetRounds: 32},
			{MaxPoolTokens: 10, TargetRounds: 16},
			{TargetRounds: 8},
		},
		RescaleUpPct:      0.50,
		RescaleDownPct:    0.40,
		RescaleAbsolute:   100,
		EscrowFloorRounds: 2,
		RefundTolerance:   0.90,

		PollInterval:          30 * time.Second,
		PollSlice:             500 * time.Millisecond,
		RewardPoolFloorTokens: 0.05,
		CheckpointBatchLimit:  10,
		MaintenanceFlagPath:   "maintenance.flag",

		ClaimInterval:        10 * time.Minute,
		StakeInterval:        time.Hour,
		ClaimThresholdTokens: 0.1,
		StakeReserveTokens:   0.05,

		ReconcileToleranceSOL: 0.01,
		AvgFeeLamports:        5000,
	}
}

// TargetRoundsFor picks the funding tier for the given reward-pool size.
func (p Params) TargetRoundsFor(poolTokens float64) uint64 {
	for _, tier := range p.Tiers {
		if tier.MaxPoolTokens > 0 && poolTokens >= tier.MaxPoolTokens {
			continue
		}
		return tier.TargetRounds
	}
	return 1
}

// SolFromLamports converts base units to SOL.
func SolFromLamports(lamports uint64) float64 {
	return float64(lamports) / LamportsPerSol
}

// TokensFromBase converts reward-token base units to whole tokens.
func TokensFromBase(amount uint64, decimals uint8) float64 {
	div := 1.0
	for i := uint8(0); i < decimals; i++ {
		div *= 10
	}
	return float64(amount) / div
}

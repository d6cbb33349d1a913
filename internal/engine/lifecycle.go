package engine

import (
	"context"
	"fmt"
	"strconv"

	log "github.com/sirupsen/logrus"

	"gridagent/internal/models"
)

// Lifecycle creates, rescales, refunds and closes the automation escrow.
// It is the only component that mutates the escrow from this process.
type Lifecycle struct {
	chain  ChainAdapter
	swap   Swapper
	ledger LedgerStore
	pub    EventPublisher
	params Params

	// Reward-pool size recorded at the last create; the rescale hysteresis
	// compares against it. Persisted so a restart keeps the reference point.
	setupPool float64
}

// NewLifecycle builds the manager and restores the recorded setup pool.
func NewLifecycle(chain ChainAdapter, swap Swapper, ledger LedgerStore, pub EventPublisher, params Params) *Lifecycle {
	l := &Lifecycle{chain: chain, swap: swap, ledger: ledger, pub: pub, params: params}
	if v, ok, err := ledger.Setting(models.SettingSetupPoolSize); err == nil && ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			l.setupPool = f
		}
	}
	return l
}

// SetupPool returns the reward-pool size recorded at the last create.
func (l *Lifecycle) SetupPool() float64 { return l.setupPool }

// Create funds a new automation account sized by the reward-pool tier.
// Fails without creating anything when the usable budget is below the
// configured floor.
func (l *Lifecycle) Create(ctx context.Context, budgetLamports uint64, poolTokens float64) error {
	if budgetLamports < l.params.MinBudgetLamports {
		return fmt.Errorf("usable budget %.4f SOL below floor %.4f SOL",
			SolFromLamports(budgetLamports), SolFromLamports(l.params.MinBudgetLamports))
	}

	mask, err := l.params.Strategy.SquareMask(l.params.SquareCount)
	if err != nil {
		return err
	}
	squares := uint64(popcount(mask))
	targetRounds := l.params.TargetRoundsFor(poolTokens)
	amountPerSquare := budgetLamports / (targetRounds * squares)
	if amountPerSquare == 0 {
		return fmt.Errorf("budget %d lamports too small for %d rounds x %d squares",
			budgetLamports, targetRounds, squares)
	}

	sig, err := l.chain.CreateAutomation(ctx, amountPerSquare, mask, budgetLamports)
	if err != nil {
		if Classify(err) == KindAlreadySatisfied {
			log.Info("automation account already exists, keeping it")
			return nil
		}
		return fmt.Errorf("create automation: %w", err)
	}

	l.record(&models.TransactionRecord{
		Type:      models.TxAutomationOpen,
		Signature: sig,
		Lamports:  -int64(budgetLamports),
		Status:    models.TxStatusConfirmed,
		Notes:     fmt.Sprintf("strategy=%s per_square=%d rounds=%d", l.params.Strategy, amountPerSquare, targetRounds),
	})
	l.setupPool = poolTokens
	if err := l.ledger.SetSetting(models.SettingSetupPoolSize, strconv.FormatFloat(poolTokens, 'f', -1, 64)); err != nil {
		log.Warnf("persist setup pool size: %v", err)
	}
	l.publish("automation_created", map[string]interface{}{
		"signature":  sig,
		"budget_sol": SolFromLamports(budgetLamports),
		"per_square": amountPerSquare,
		"rounds":     targetRounds,
	})
	log.WithFields(log.Fields{
		"budget_sol": SolFromLamports(budgetLamports),
		"per_square": amountPerSquare,
		"rounds":     targetRounds,
		"pool":       poolTokens,
	}).Info("automation account created")
	return nil
}

// CreateFromWallet funds a new automation account from the configured
// fraction of the current wallet balance.
func (l *Lifecycle) CreateFromWallet(ctx context.Context, poolTokens float64) error {
	budget, err := l.usableBudget(ctx)
	if err != nil {
		return fmt.Errorf("read wallet budget: %w", err)
	}
	return l.Create(ctx, budget, poolTokens)
}

// Close reclaims the remaining escrow balance to the wallet.
func (l *Lifecycle) Close(ctx context.Context) error {
	auto, err := l.chain.Automation(ctx)
	if err == ErrNotFound {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read automation: %w", err)
	}

	sig, err := l.chain.CloseAutomation(ctx)
	if err != nil {
		if Classify(err) == KindAlreadySatisfied {
			return nil
		}
		return fmt.Errorf("close automation: %w", err)
	}
	l.record(&models.TransactionRecord{
		Type:      models.TxAutomationClose,
		Signature: sig,
		Lamports:  int64(auto.Balance),
		Status:    models.TxStatusConfirmed,
	})
	l.publish("automation_closed", map[string]interface{}{
		"signature":     sig,
		"reclaimed_sol": SolFromLamports(auto.Balance),
	})
	log.WithField("reclaimed_sol", SolFromLamports(auto.Balance)).Info("automation account closed")
	return nil
}

// Rescale compares the current reward pool against the recorded setup pool
// and runs a close+recreate cycle only when the change clears both the
// percentage and the absolute threshold. The dual condition prevents
// thrashing on small-pool noise.
func (l *Lifecycle) Rescale(ctx context.Context, currentPool float64) (bool, error) {
	if l.setupPool <= 0 {
		return false, nil
	}
	diff := currentPool - l.setupPool
	pct := diff / l.setupPool

	up := pct >= l.params.RescaleUpPct && diff >= l.params.RescaleAbsolute
	down := pct <= -l.params.RescaleDownPct && -diff >= l.params.RescaleAbsolute
	if !up && !down {
		return false, nil
	}

	log.WithFields(log.Fields{
		"setup_pool":   l.setupPool,
		"current_pool": currentPool,
		"change_pct":   pct * 100,
	}).Info("reward pool moved outside hysteresis band, rescaling automation")

	if err := l.Close(ctx); err != nil {
		return false, fmt.Errorf("rescale close: %w", err)
	}
	budget, err := l.usableBudget(ctx)
	if err != nil {
		return false, fmt.Errorf("rescale budget: %w", err)
	}
	if err := l.Create(ctx, budget, currentPool); err != nil {
		return false, fmt.Errorf("rescale create: %w", err)
	}
	return true, nil
}

// Refund tops the escrow back up when its balance drops below the minimum
// operating floor, by liquidating the held reward-token balance. The
// program tracks escrow balance internally, decoupled from raw transfers;
// if the top-up does not visibly register, fall back to close+recreate so
// funds are not stranded mid-cycle.
func (l *Lifecycle) Refund(ctx context.Context, auto *Automation) error {
	floor := auto.CostPerRound() * l.params.EscrowFloorRounds
	if auto.Balance >= floor {
		return nil
	}
	before := auto.Balance
	log.WithFields(log.Fields{
		"balance_sol": SolFromLamports(auto.Balance),
		"floor_sol":   SolFromLamports(floor),
	}).Info("escrow balance below operating floor, refunding")

	tokens, err := l.chain.TokenBalance(ctx)
	if err != nil {
		return fmt.Errorf("read token balance: %w", err)
	}
	if tokens == 0 {
		return NewChainError(KindInsufficientFunds, "refund", fmt.Errorf("no reward tokens to liquidate"))
	}

	swapSig, lamportsOut, err := l.swap.SwapTokenForSol(ctx, tokens)
	if err != nil {
		return fmt.Errorf("swap for refund: %w", err)
	}
	l.record(&models.TransactionRecord{
		Type:        models.TxSwap,
		Signature:   swapSig,
		Lamports:    int64(lamportsOut),
		TokenAmount: -int64(tokens),
		Status:      models.TxStatusConfirmed,
		Notes:       "escrow refund liquidation",
	})

	topupSig, err := l.chain.TopUpAutomation(ctx, lamportsOut)
	if err == nil {
		l.record(&models.TransactionRecord{
			Type:      models.TxAutomationTopUp,
			Signature: topupSig,
			Lamports:  -int64(lamportsOut),
			Status:    models.TxStatusConfirmed,
		})
		after, rerr := l.chain.Automation(ctx)
		if rerr == nil && float64(after.Balance) >= float64(before)+l.params.RefundTolerance*float64(lamportsOut) {
			log.WithField("topped_up_sol", SolFromLamports(lamportsOut)).Info("escrow refunded")
			return nil
		}
		log.Warn("escrow top-up did not register on the automation balance, rebuilding account")
	} else {
		log.Warnf("escrow top-up failed (%v), rebuilding account", err)
	}

	// Fallback: rebuild the account with whatever the wallet holds now.
	if err := l.Close(ctx); err != nil {
		return fmt.Errorf("refund fallback close: %w", err)
	}
	budget, err := l.usableBudget(ctx)
	if err != nil {
		return fmt.Errorf("refund fallback budget: %w", err)
	}
	if err := l.Create(ctx, budget, l.setupPool); err != nil {
		return fmt.Errorf("refund fallback create: %w", err)
	}
	return nil
}

func (l *Lifecycle) usableBudget(ctx context.Context) (uint64, error) {
	balance, err := l.chain.WalletBalance(ctx)
	if err != nil {
		return 0, err
	}
	return uint64(float64(balance) * l.params.BudgetFraction), nil
}

func (l *Lifecycle) record(rec *models.TransactionRecord) {
	if err := l.ledger.Append(rec); err != nil {
		log.Errorf("append %s record: %v", rec.Type, err)
	}
}

func (l *Lifecycle) publish(eventType string, payload map[string]interface{}) {
	if l.pub != nil {
		l.pub.Publish(eventType, payload)
	}
}

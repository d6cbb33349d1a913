package engine

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"gridagent/internal/models"
)

// State names the orchestrator's position in its per-cycle machine.
type State int

const (
	StateAwaitingSetup State = iota
	StateCatchingUp
	StateEvaluating
	StateDeploying
	StateIdle
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateAwaitingSetup:
		return "awaiting_setup"
	case StateCatchingUp:
		return "catching_up_checkpoint"
	case StateEvaluating:
		return "evaluating_profitability"
	case StateDeploying:
		return "deploying"
	case StateIdle:
		return "idle"
	case StateStopped:
		return "stopped"
	}
	return "unknown"
}

// Orchestrator is the top-level per-cycle decision loop. It is the single
// logical thread of control: every chain read/write is an awaited step in
// one sequential loop, so at most one chain-mutating operation from this
// process is in flight at any instant.
type Orchestrator struct {
	chain     ChainAdapter
	oracle    PriceOracle
	ledger    LedgerStore
	lifecycle *Lifecycle
	claims    *ClaimScheduler
	pub       EventPublisher
	flag      *MaintenanceFlag
	params    Params

	state     State
	lastRound uint64
	deployed  map[uint64]bool
	paused    bool
	now       func() time.Time
}

// NewOrchestrator wires the loop. The deployed set guarantees at most one
// deployment write per observed round within this run.
func NewOrchestrator(chain ChainAdapter, oracle PriceOracle, ledger LedgerStore,
	lifecycle *Lifecycle, claims *ClaimScheduler, pub EventPublisher, params Params) *Orchestrator {
	return &Orchestrator{
		chain:     chain,
		oracle:    oracle,
		ledger:    ledger,
		lifecycle: lifecycle,
		claims:    claims,
		pub:       pub,
		flag:      NewMaintenanceFlag(params.MaintenanceFlagPath),
		params:    params,
		state:     StateAwaitingSetup,
		deployed:  make(map[uint64]bool),
		now:       time.Now,
	}
}

// State returns the current machine state.
func (o *Orchestrator) State() State { return o.state }

// Run drives cycles until the context is cancelled. Cancellation is polled
// inside the chopped sleep, so shutdown latency stays well below one poll
// period; any in-flight cycle finishes before the loop exits.
func (o *Orchestrator) Run(ctx context.Context) error {
	log.WithFields(log.Fields{
		"poll_interval": o.params.PollInterval,
		"strategy":      o.params.Strategy.String(),
	}).Info("round orchestrator started")

	for {
		if ctx.Err() != nil {
			break
		}
		o.Cycle(ctx)
		if !o.sleep(ctx) {
			break
		}
	}
	o.transition(StateStopped)
	log.Info("round orchestrator stopped")
	return nil
}

// sleep waits one poll interval in small slices, returning false when the
// context is cancelled.
func (o *Orchestrator) sleep(ctx context.Context) bool {
	remaining := o.params.PollInterval
	for remaining > 0 {
		slice := o.params.PollSlice
		if slice <= 0 || slice > remaining {
			slice = remaining
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(slice):
		}
		remaining -= slice
	}
	return true
}

// Cycle runs one pass of the decision loop.
func (o *Orchestrator) Cycle(ctx context.Context) {
	if o.flag.Active() {
		if !o.paused {
			log.Info("maintenance flag present, releasing store handle and pausing writes")
			if err := o.ledger.Release(); err != nil {
				log.Warnf("release ledger handle: %v", err)
			}
			o.paused = true
		}
		return
	}
	if o.paused {
		if err := o.ledger.Reopen(); err != nil {
			log.Errorf("reopen ledger handle: %v", err)
			return
		}
		o.paused = false
		log.Info("maintenance flag cleared, resuming")
	}

	board, err := o.chain.Board(ctx)
	if err != nil {
		log.Warnf("read board: %v (skipping cycle)", err)
		return
	}

	if board.CurrentRound == o.lastRound {
		// No round change: periodic maintenance only.
		o.transition(StateIdle)
		o.claims.Tick(ctx)
		return
	}
	round := board.CurrentRound
	log.WithField("round", round).Info("new round observed")

	// Resolve the checkpoint backlog before anything else; the program
	// rejects deployments from a lagging miner.
	o.transition(StateCatchingUp)
	if err := o.catchUp(ctx, round); err != nil {
		log.Errorf("checkpoint catch-up failed, skipping deployment for round %d: %v", round, err)
		o.skipRound(ctx, round, "checkpoint catch-up failed: "+err.Error())
		return
	}

	pool, poolKnown := o.rewardPool(ctx)

	if poolKnown {
		if _, err := o.lifecycle.Rescale(ctx, pool); err != nil {
			log.Warnf("rescale check failed: %v", err)
		}
	}

	auto, err := o.chain.Automation(ctx)
	if err == ErrNotFound {
		o.transition(StateAwaitingSetup)
		log.Info("automation account missing, recreating")
		if err := o.lifecycle.CreateFromWallet(ctx, pool); err != nil {
			log.Errorf("recreate automation: %v", err)
			o.skipRound(ctx, round, "automation recreate failed: "+err.Error())
			return
		}
		auto, err = o.chain.Automation(ctx)
	}
	if err != nil {
		log.Warnf("read automation: %v (skipping cycle)", err)
		return
	}

	if err := o.lifecycle.Refund(ctx, auto); err != nil {
		log.Warnf("escrow refund: %v", err)
	} else if refreshed, rerr := o.chain.Automation(ctx); rerr == nil {
		auto = refreshed
	}
	if auto.CostPerRound() > auto.Balance {
		o.skipRound(ctx, round, fmt.Sprintf("escrow balance %.4f SOL below cost per round %.4f SOL",
			SolFromLamports(auto.Balance), SolFromLamports(auto.CostPerRound())))
		return
	}

	if !poolKnown {
		o.skipRound(ctx, round, "reward pool unreadable, idling pessimistically")
		return
	}
	if pool < o.params.RewardPoolFloorTokens {
		o.skipRound(ctx, round, fmt.Sprintf("reward pool %.4f below floor %.4f", pool, o.params.RewardPoolFloorTokens))
		return
	}

	o.transition(StateEvaluating)
	rd, err := o.chain.Round(ctx, round)
	if err != nil {
		log.Warnf("read round %d: %v (skipping cycle)", round, err)
		return
	}
	quote := o.oracle.TokenPrice()
	snap := Evaluate(EvaluateInput{
		CostPerRound:        SolFromLamports(auto.CostPerRound()),
		RewardPoolTokens:    pool,
		TokenPriceSOL:       quote.SolPerToken,
		CompetingDeployment: SolFromLamports(rd.TotalDeployed),
		FixedEmissionTokens: o.params.FixedEmissionTokens,
		HitProbability:      o.params.HitProbability,
		ProtocolFeeRate:     o.params.ProtocolFeeRate,
		RefundRate:          o.params.RefundRate,
		FallbackMultiplier:  o.params.FallbackMultiplier,
		MinCompeting:        o.params.MinCompetingSOL,
		MinExpectedValue:    o.params.MinExpectedValueSOL,
	})
	if snap.CompetitionSource == SourceEstimate {
		log.Debug("on-chain competition negligible, using configured estimate (degraded mode)")
	}
	if !snap.Profitable {
		o.skipRound(ctx, round, fmt.Sprintf("not profitable: ev=%.6f SOL (cost=%.4f reward=%.6f refund=%.4f, competition=%s)",
			snap.ExpectedValue, snap.ProductionCost, snap.ExpectedRewardValue, snap.ExpectedRefundValue, snap.CompetitionSource))
		return
	}

	if o.now().After(rd.EndTime) {
		o.skipRound(ctx, round, "round window already closed")
		return
	}

	o.transition(StateDeploying)
	o.deploy(ctx, round, auto.CostPerRound())
	o.finishRound(ctx, round)
}

// catchUp issues checkpoint writes in bounded batches until the miner
// checkpoint equals the target round. The checkpoint only moves forward,
// one round at a time, never skipping.
func (o *Orchestrator) catchUp(ctx context.Context, target uint64) error {
	state, err := o.chain.AgentState(ctx)
	if err == ErrNotFound {
		// No miner account yet; the first deployment creates it.
		return nil
	}
	if err != nil {
		return fmt.Errorf("read agent state: %w", err)
	}

	cp := state.Checkpoint
	if cp >= target {
		return nil
	}
	log.WithFields(log.Fields{"checkpoint": cp, "target": target}).Info("catching up checkpoint backlog")

	for cp < target {
		last := cp + uint64(o.params.CheckpointBatchLimit)
		if last > target {
			last = target
		}
		batch := make([]uint64, 0, last-cp)
		for r := cp + 1; r <= last; r++ {
			batch = append(batch, r)
		}

		sig, err := o.chain.Checkpoint(ctx, batch)
		if err != nil {
			if Classify(err) == KindAlreadySatisfied {
				cp = last
				continue
			}
			return fmt.Errorf("checkpoint rounds %d-%d: %w", batch[0], last, err)
		}
		o.record(&models.TransactionRecord{
			Type:      models.TxCheckpoint,
			Signature: sig,
			RoundID:   last,
			Status:    models.TxStatusConfirmed,
			Notes:     fmt.Sprintf("rounds %d-%d", batch[0], last),
		})
		cp = last
	}
	return nil
}

// deploy submits the deployment write for the round, classifying failures:
// a checkpoint rejection is recovered by catching up and retrying exactly
// once; "already deployed" is a benign no-op; everything else skips the
// round and the loop continues.
func (o *Orchestrator) deploy(ctx context.Context, round, costLamports uint64) {
	if o.deployed[round] {
		log.WithField("round", round).Debug("deployment already submitted for this round")
		return
	}

	sig, err := o.chain.Deploy(ctx, round)
	if err != nil {
		switch Classify(err) {
		case KindCheckpointRequired:
			log.WithField("round", round).Info("deployment rejected for lagging checkpoint, catching up and retrying once")
			if cerr := o.catchUp(ctx, round); cerr != nil {
				o.recordDeployFailure(round, cerr)
				return
			}
			sig, err = o.chain.Deploy(ctx, round)
			if err != nil {
				if Classify(err) == KindAlreadySatisfied {
					o.markDeployed(round, "", costLamports, "already deployed (retry)")
					return
				}
				o.recordDeployFailure(round, err)
				return
			}
		case KindAlreadySatisfied:
			log.WithField("round", round).Info("already deployed for this round, treating as success")
			o.deployed[round] = true
			return
		case KindInsufficientFunds:
			log.WithField("round", round).Warnf("deployment short on funds, deferring to refund: %v", err)
			o.recordDeployFailure(round, err)
			return
		default:
			log.WithFields(log.Fields{"round": round, "kind": Classify(err).String()}).
				Errorf("deployment rejected: %v", err)
			o.recordDeployFailure(round, err)
			return
		}
	}
	o.markDeployed(round, sig, costLamports, "")
}

func (o *Orchestrator) markDeployed(round uint64, sig string, costLamports uint64, note string) {
	o.deployed[round] = true
	o.record(&models.TransactionRecord{
		Type:      models.TxDeploy,
		Signature: sig,
		Lamports:  -int64(costLamports),
		RoundID:   round,
		Status:    models.TxStatusConfirmed,
		Notes:     note,
	})
	if o.pub != nil {
		o.pub.Publish("round_deployed", map[string]interface{}{
			"round":     round,
			"signature": sig,
			"cost_sol":  SolFromLamports(costLamports),
		})
	}
	log.WithFields(log.Fields{"round": round, "signature": sig}).Info("capital deployed")
}

func (o *Orchestrator) recordDeployFailure(round uint64, err error) {
	o.record(&models.TransactionRecord{
		Type:    models.TxDeploy,
		RoundID: round,
		Status:  models.TxStatusFailed,
		Notes:   err.Error(),
	})
}

// skipRound logs the specific trigger so an operator can tell intentional
// idling from failure, records it, and runs the periodic maintenance that
// every cycle owes.
func (o *Orchestrator) skipRound(ctx context.Context, round uint64, reason string) {
	log.WithFields(log.Fields{"round": round, "reason": reason}).Info("skipping round")
	o.record(&models.TransactionRecord{
		Type:    models.TxDeploy,
		RoundID: round,
		Status:  models.TxStatusSkipped,
		Notes:   reason,
	})
	if o.pub != nil {
		o.pub.Publish("round_skipped", map[string]interface{}{"round": round, "reason": reason})
	}
	o.finishRound(ctx, round)
}

func (o *Orchestrator) finishRound(ctx context.Context, round uint64) {
	o.lastRound = round
	o.transition(StateIdle)
	o.claims.Tick(ctx)
}

func (o *Orchestrator) rewardPool(ctx context.Context) (float64, bool) {
	rp, err := o.chain.RewardPool(ctx)
	if err != nil {
		log.Warnf("read reward pool: %v", err)
		return 0, false
	}
	return TokensFromBase(rp.Balance, o.params.TokenDecimals), true
}

func (o *Orchestrator) record(rec *models.TransactionRecord) {
	if err := o.ledger.Append(rec); err != nil {
		log.Errorf("append %s record: %v", rec.Type, err)
	}
}

func (o *Orchestrator) transition(next State) {
	if o.state == next {
		return
	}
	log.WithFields(log.Fields{"from": o.state.String(), "to": next.String()}).Debug("state transition")
	o.state = next
}

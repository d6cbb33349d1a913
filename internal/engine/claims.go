package engine

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"gridagent/internal/models"
)

// ClaimScheduler drives the periodic claim and stake triggers. It runs on
// the orchestrator's loop via time-since-last-run gates rather than its own
// goroutine, so at most one chain write from this process is ever in
// flight. Each trigger is its own transaction; one stream's failure never
// blocks another's.
type ClaimScheduler struct {
	chain  ChainAdapter
	ledger LedgerStore
	pub    EventPublisher
	params Params

	lastClaimCheck time.Time
	lastStakeCheck time.Time
	now            func() time.Time
}

// NewClaimScheduler builds a scheduler with zeroed gates, so the first tick
// runs every stream.
func NewClaimScheduler(chain ChainAdapter, ledger LedgerStore, pub EventPublisher, params Params) *ClaimScheduler {
	return &ClaimScheduler{chain: chain, ledger: ledger, pub: pub, params: params, now: time.Now}
}

// Tick runs whichever streams are due. Failures are logged at the stream
// boundary and never propagate to the caller.
func (s *ClaimScheduler) Tick(ctx context.Context) {
	t := s.now()
	if t.Sub(s.lastClaimCheck) >= s.params.ClaimInterval {
		s.lastClaimCheck = t
		s.claimRewards(ctx)
		s.claimYield(ctx)
	}
	if t.Sub(s.lastStakeCheck) >= s.params.StakeInterval {
		s.lastStakeCheck = t
		s.stakeExcess(ctx)
	}
}

func (s *ClaimScheduler) claimRewards(ctx context.Context) {
	state, err := s.chain.AgentState(ctx)
	if err != nil {
		if err != ErrNotFound {
			log.Warnf("claim check: read agent state: %v", err)
		}
		return
	}
	claimable := TokensFromBase(state.ClaimableTokens, s.params.TokenDecimals)
	if claimable < s.params.ClaimThresholdTokens {
		return
	}

	sig, err := s.chain.ClaimRewards(ctx)
	if err != nil {
		if Classify(err) == KindAlreadySatisfied {
			return
		}
		log.Warnf("claim rewards: %v", err)
		return
	}
	s.record(&models.TransactionRecord{
		Type:        models.TxClaim,
		Signature:   sig,
		TokenAmount: int64(state.ClaimableTokens),
		Status:      models.TxStatusConfirmed,
	})
	s.publish("rewards_claimed", map[string]interface{}{"signature": sig, "tokens": claimable})
	log.WithField("tokens", claimable).Info("claimed accrued rewards")
}

// claimYield is best-effort: the yield source is externally funded and its
// availability cannot be predicted, so failures here are expected and kept
// at debug level.
func (s *ClaimScheduler) claimYield(ctx context.Context) {
	stake, err := s.chain.StakeAccount(ctx)
	if err != nil || stake.PendingYield == 0 {
		return
	}
	sig, err := s.chain.ClaimYield(ctx)
	if err != nil {
		log.Debugf("claim yield (best effort): %v", err)
		return
	}
	s.record(&models.TransactionRecord{
		Type:        models.TxYieldClaim,
		Signature:   sig,
		TokenAmount: int64(stake.PendingYield),
		Status:      models.TxStatusConfirmed,
	})
	log.WithField("tokens", TokensFromBase(stake.PendingYield, s.params.TokenDecimals)).Info("claimed staking yield")
}

func (s *ClaimScheduler) stakeExcess(ctx context.Context) {
	balance, err := s.chain.TokenBalance(ctx)
	if err != nil {
		log.Warnf("stake check: read token balance: %v", err)
		return
	}
	reserve := baseFromTokens(s.params.StakeReserveTokens, s.params.TokenDecimals)
	if balance <= reserve {
		return
	}
	amount := balance - reserve

	sig, err := s.chain.Stake(ctx, amount)
	if err != nil {
		log.Warnf("stake excess balance: %v", err)
		return
	}
	s.record(&models.TransactionRecord{
		Type:        models.TxStake,
		Signature:   sig,
		TokenAmount: -int64(amount),
		Status:      models.TxStatusConfirmed,
	})
	s.publish("tokens_staked", map[string]interface{}{
		"signature": sig,
		"tokens":    TokensFromBase(amount, s.params.TokenDecimals),
	})
	log.WithField("tokens", TokensFromBase(amount, s.params.TokenDecimals)).Info("staked excess token balance")
}

func (s *ClaimScheduler) record(rec *models.TransactionRecord) {
	if err := s.ledger.Append(rec); err != nil {
		log.Errorf("append %s record: %v", rec.Type, err)
	}
}

func (s *ClaimScheduler) publish(eventType string, payload map[string]interface{}) {
	if s.pub != nil {
		s.pub.Publish(eventType, payload)
	}
}

func baseFromTokens(tokens float64, decimals uint8) uint64 {
	mul := 1.0
	for i := uint8(0); i < decimals; i++ {
		mul *= 10
	}
	return uint64(tokens * mul)
}

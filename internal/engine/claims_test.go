package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gridagent/internal/models"
)

func schedulerAt(chain *fakeChain, ledger *fakeLedger, now time.Time) *ClaimScheduler {
	s := NewClaimScheduler(chain, ledger, nil, DefaultParams())
	s.now = func() time.Time { return now }
	return s
}

func TestClaimAboveThreshold(t *testing.T) {
	chain := newFakeChain()
	chain.state = &AgentState{ClaimableTokens: 500_000_000} // 0.5 tokens
	ledger := newFakeLedger()
	s := schedulerAt(chain, ledger, time.Now())

	s.Tick(context.Background())

	assert.Equal(t, 1, chain.claimCalls)
	records := ledger.recordsOfType(models.TxClaim)
	require.Len(t, records, 1)
	assert.Equal(t, int64(500_000_000), records[0].TokenAmount)
}

func TestClaimBelowThresholdWaits(t *testing.T) {
	chain := newFakeChain()
	chain.state = &AgentState{ClaimableTokens: 50_000_000} // 0.05 < 0.1 threshold
	s := schedulerAt(chain, newFakeLedger(), time.Now())

	s.Tick(context.Background())
	assert.Zero(t, chain.claimCalls)
}

func TestClaimIntervalGate(t *testing.T) {
	chain := newFakeChain()
	chain.state = &AgentState{ClaimableTokens: 500_000_000}
	ledger := newFakeLedger()
	base := time.Now()
	s := schedulerAt(chain, ledger, base)

	s.Tick(context.Background())
	require.Equal(t, 1, chain.claimCalls)

	// Refill and tick again inside the interval: the gate holds.
	chain.state.ClaimableTokens = 500_000_000
	s.now = func() time.Time { return base.Add(time.Minute) }
	s.Tick(context.Background())
	assert.Equal(t, 1, chain.claimCalls)

	// Past the interval it fires again.
	s.now = func() time.Time { return base.Add(11 * time.Minute) }
	s.Tick(context.Background())
	assert.Equal(t, 2, chain.claimCalls)
}

func TestStakeExcessAboveReserve(t *testing.T) {
	chain := newFakeChain()
	chain.tokens = 1_050_000_000 // 1.05 tokens, reserve 0.05
	ledger := newFakeLedger()
	s := schedulerAt(chain, ledger, time.Now())

	s.Tick(context.Background())

	require.Len(t, chain.stakeCalls, 1)
	assert.Equal(t, uint64(1_000_000_000), chain.stakeCalls[0])
	assert.Len(t, ledger.recordsOfType(models.TxStake), 1)
}

func TestStakeKeepsReserve(t *testing.T) {
	chain := newFakeChain()
	chain.tokens = 40_000_000 // below the reserve
	s := schedulerAt(chain, newFakeLedger(), time.Now())

	s.Tick(context.Background())
	assert.Empty(t, chain.stakeCalls)
}

func TestYieldClaimIsBestEffort(t *testing.T) {
	chain := newFakeChain()
	chain.stake = &StakeAccount{StakedTokens: 1_000_000_000, PendingYield: 10_000_000}
	ledger := newFakeLedger()
	s := schedulerAt(chain, ledger, time.Now())

	s.Tick(context.Background())
	assert.Equal(t, 1, chain.yieldCalls)
	assert.Len(t, ledger.recordsOfType(models.TxYieldClaim), 1)
}

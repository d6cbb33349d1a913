package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gridagent/internal/models"
)

func newTestLifecycle(chain *fakeChain, ledger *fakeLedger, swap *fakeSwapper) *Lifecycle {
	return NewLifecycle(chain, swap, ledger, nil, DefaultParams())
}

func TestCreateBelowBudgetFloor(t *testing.T) {
	chain := newFakeChain()
	lc := newTestLifecycle(chain, newFakeLedger(), &fakeSwapper{})

	err := lc.Create(context.Background(), 1_000_000, 5) // 0.001 SOL < 0.01 floor
	require.Error(t, err)
	assert.Contains(t, err.Error(), "below floor")
	assert.Zero(t, chain.createCalls, "no escrow may be created on a failed budget check")
}

func TestCreateSizesByTier(t *testing.T) {
	tests := []struct {
		name       string
		poolTokens float64
		wantRounds uint64
	}{
		{"small pool spreads thin", 0.5, 32},
		{"medium pool", 5, 16},
		{"large pool commits aggressively", 50, 8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chain := newFakeChain()
			lc := newTestLifecycle(chain, newFakeLedger(), &fakeSwapper{})

			budget := uint64(1 * LamportsPerSol)
			require.NoError(t, lc.Create(context.Background(), budget, tt.poolTokens))
			require.NotNil(t, chain.auto)
			assert.Equal(t, budget/(tt.wantRounds*25), chain.auto.AmountPerSquare)
		})
	}
}

func TestCreateRecordsSetupPool(t *testing.T) {
	chain := newFakeChain()
	ledger := newFakeLedger()
	lc := newTestLifecycle(chain, ledger, &fakeSwapper{})

	require.NoError(t, lc.Create(context.Background(), 1*LamportsPerSol, 300))
	assert.Equal(t, 300.0, lc.SetupPool())
	assert.Equal(t, "300", ledger.settings[models.SettingSetupPoolSize])
	assert.Len(t, ledger.recordsOfType(models.TxAutomationOpen), 1)
}

func TestRescaleHysteresis(t *testing.T) {
	tests := []struct {
		name        string
		setupPool   float64
		currentPool float64
		want        bool
	}{
		{"+50% and +150 absolute triggers", 300, 450, true},
		{"+46.7% stays inside the band", 300, 440, false},
		{"+60% but only +60 absolute stays put", 100, 160, false},
		{"-40% and -160 absolute triggers", 400, 240, true},
		{"-30% stays inside the band", 400, 280, false},
		{"unchanged is a no-op", 300, 300, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chain := newFakeChain()
			chain.wallet = 2 * LamportsPerSol
			chain.auto = &Automation{AmountPerSquare: 1000, SquareMask: 1<<25 - 1, Balance: LamportsPerSol / 2}
			lc := newTestLifecycle(chain, newFakeLedger(), &fakeSwapper{})
			lc.setupPool = tt.setupPool

			did, err := lc.Rescale(context.Background(), tt.currentPool)
			require.NoError(t, err)
			assert.Equal(t, tt.want, did)
			if tt.want {
				assert.Equal(t, 1, chain.closeCalls)
				assert.Equal(t, 1, chain.createCalls)
				assert.Equal(t, tt.currentPool, lc.SetupPool())
			} else {
				assert.Zero(t, chain.closeCalls)
				assert.Zero(t, chain.createCalls)
			}
		})
	}
}

func TestRescaleWithoutRecordedSetup(t *testing.T) {
	lc := newTestLifecycle(newFakeChain(), newFakeLedger(), &fakeSwapper{})
	did, err := lc.Rescale(context.Background(), 500)
	require.NoError(t, err)
	assert.False(t, did)
}

func TestRefundAboveFloorIsNoop(t *testing.T) {
	chain := newFakeChain()
	auto := &Automation{AmountPerSquare: 1000, SquareMask: 0b11, Balance: 100_000}
	swap := &fakeSwapper{}
	lc := newTestLifecycle(chain, newFakeLedger(), swap)

	require.NoError(t, lc.Refund(context.Background(), auto))
	assert.Empty(t, swap.calls)
}

func TestRefundTopsUpEscrow(t *testing.T) {
	chain := newFakeChain()
	chain.tokens = 2_000_000_000
	auto := &Automation{AmountPerSquare: 1_000_000, SquareMask: 1<<25 - 1, Balance: 10_000_000}
	chain.auto = auto
	chain.onTopUp = func(lamports uint64) { chain.auto.Balance += lamports }
	swap := &fakeSwapper{lamportsOut: 90_000_000}
	ledger := newFakeLedger()
	lc := newTestLifecycle(chain, ledger, swap)

	require.NoError(t, lc.Refund(context.Background(), auto))
	assert.Equal(t, []uint64{2_000_000_000}, swap.calls)
	assert.Equal(t, []uint64{90_000_000}, chain.topupCalls)
	assert.Zero(t, chain.closeCalls, "a registered top-up must not rebuild the account")
	assert.Len(t, ledger.recordsOfType(models.TxSwap), 1)
	assert.Len(t, ledger.recordsOfType(models.TxAutomationTopUp), 1)
}

func TestRefundFallsBackWhenTransferDoesNotRegister(t *testing.T) {
	chain := newFakeChain()
	chain.tokens = 2_000_000_000
	chain.wallet = 1 * LamportsPerSol
	auto := &Automation{AmountPerSquare: 1_000_000, SquareMask: 1<<25 - 1, Balance: 10_000_000}
	chain.auto = auto
	// onTopUp left nil: the program keeps the transfer off its internal
	// balance, reproducing the observed stranding behavior.
	swap := &fakeSwapper{lamportsOut: 90_000_000}
	lc := newTestLifecycle(chain, newFakeLedger(), swap)

	require.NoError(t, lc.Refund(context.Background(), auto))
	assert.Equal(t, 1, chain.closeCalls)
	assert.Equal(t, 1, chain.createCalls)
}

func TestStrategyMasks(t *testing.T) {
	full, err := StrategyFullBoard.SquareMask(25)
	require.NoError(t, err)
	assert.Equal(t, 25, popcount(full))

	half, err := StrategyHalfBoard.SquareMask(25)
	require.NoError(t, err)
	assert.Equal(t, 13, popcount(half))

	single, err := StrategySingleSquare.SquareMask(25)
	require.NoError(t, err)
	assert.Equal(t, 1, popcount(single))

	_, err = Strategy(42).SquareMask(25)
	assert.Error(t, err)
}

func TestParseStrategy(t *testing.T) {
	s, err := ParseStrategy("half_board")
	require.NoError(t, err)
	assert.Equal(t, StrategyHalfBoard, s)

	_, err = ParseStrategy("yolo")
	assert.Error(t, err)
}

package engine

import (
	"context"
	"fmt"

	"gridagent/internal/models"
)

// fakeChain is an in-memory ChainAdapter for loop tests.
type fakeChain struct {
	board  *Board
	rounds map[uint64]*Round
	state  *AgentState
	auto   *Automation
	pool   *RewardPool
	stake  *StakeAccount
	wallet uint64
	tokens uint64

	deployCalls   []uint64
	deployErrs    []error // consumed per call; nil entry = success
	checkpointLog [][]uint64
	checkpointErr error
	createCalls   int
	closeCalls    int
	topupCalls    []uint64
	topupErr      error
	claimCalls    int
	yieldCalls    int
	stakeCalls    []uint64

	onTopUp  func(lamports uint64)
	onCreate func(perSquare uint64, mask uint32, deposit uint64)
}

func newFakeChain() *fakeChain {
	return &fakeChain{rounds: make(map[uint64]*Round)}
}

func (f *fakeChain) Board(ctx context.Context) (*Board, error) {
	if f.board == nil {
		return nil, fmt.Errorf("connection refused")
	}
	return f.board, nil
}

func (f *fakeChain) Round(ctx context.Context, id uint64) (*Round, error) {
	rd, ok := f.rounds[id]
	if !ok {
		return nil, ErrNotFound
	}
	return rd, nil
}

func (f *fakeChain) AgentState(ctx context.Context) (*AgentState, error) {
	if f.state == nil {
		return nil, ErrNotFound
	}
	return f.state, nil
}

func (f *fakeChain) Automation(ctx context.Context) (*Automation, error) {
	if f.auto == nil {
		return nil, ErrNotFound
	}
	return f.auto, nil
}

func (f *fakeChain) RewardPool(ctx context.Context) (*RewardPool, error) {
	if f.pool == nil {
		return nil, fmt.Errorf("timeout")
	}
	return f.pool, nil
}

func (f *fakeChain) StakeAccount(ctx context.Context) (*StakeAccount, error) {
	if f.stake == nil {
		return nil, ErrNotFound
	}
	return f.stake, nil
}

func (f *fakeChain) WalletBalance(ctx context.Context) (uint64, error) { return f.wallet, nil }
func (f *fakeChain) TokenBalance(ctx context.Context) (uint64, error)  { return f.tokens, nil }

func (f *fakeChain) Deploy(ctx context.Context, roundID uint64) (string, error) {
	f.deployCalls = append(f.deployCalls, roundID)
	if len(f.deployErrs) > 0 {
		err := f.deployErrs[0]
		f.deployErrs = f.deployErrs[1:]
		if err != nil {
			return "", err
		}
	}
	return fmt.Sprintf("deploy-sig-%d", roundID), nil
}

func (f *fakeChain) Checkpoint(ctx context.Context, rounds []uint64) (string, error) {
	if f.checkpointErr != nil {
		return "", f.checkpointErr
	}
	f.checkpointLog = append(f.checkpointLog, rounds)
	if f.state != nil {
		f.state.Checkpoint = rounds[len(rounds)-1]
	}
	return "checkpoint-sig", nil
}

func (f *fakeChain) CreateAutomation(ctx context.Context, perSquare uint64, mask uint32, deposit uint64) (string, error) {
	f.createCalls++
	if f.onCreate != nil {
		f.onCreate(perSquare, mask, deposit)
	} else {
		f.auto = &Automation{AmountPerSquare: perSquare, SquareMask: mask, Balance: deposit}
	}
	return "create-sig", nil
}

func (f *fakeChain) CloseAutomation(ctx context.Context) (string, error) {
	f.closeCalls++
	if f.auto != nil {
		f.wallet += f.auto.Balance
		f.auto = nil
	}
	return "close-sig", nil
}

func (f *fakeChain) TopUpAutomation(ctx context.Context, lamports uint64) (string, error) {
	if f.topupErr != nil {
		return "", f.topupErr
	}
	f.topupCalls = append(f.topupCalls, lamports)
	if f.onTopUp != nil {
		f.onTopUp(lamports)
	}
	return "topup-sig", nil
}

func (f *fakeChain) ClaimRewards(ctx context.Context) (string, error) {
	f.claimCalls++
	if f.state != nil {
		f.state.ClaimableTokens = 0
	}
	return "claim-sig", nil
}

func (f *fakeChain) ClaimYield(ctx context.Context) (string, error) {
	f.yieldCalls++
	return "yield-sig", nil
}

func (f *fakeChain) Stake(ctx context.Context, tokens uint64) (string, error) {
	f.stakeCalls = append(f.stakeCalls, tokens)
	return "stake-sig", nil
}

// fakeLedger keeps records and settings in memory.
type fakeLedger struct {
	records  []models.TransactionRecord
	settings map[string]string
	released bool
	reopened int
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{settings: make(map[string]string)}
}

func (f *fakeLedger) Append(rec *models.TransactionRecord) error {
	f.records = append(f.records, *rec)
	return nil
}

func (f *fakeLedger) Records() ([]models.TransactionRecord, error) { return f.records, nil }

func (f *fakeLedger) Baseline() (float64, bool, error) { return 0, false, nil }

func (f *fakeLedger) Setting(key string) (string, bool, error) {
	v, ok := f.settings[key]
	return v, ok, nil
}

func (f *fakeLedger) SetSetting(key, value string) error {
	f.settings[key] = value
	return nil
}

func (f *fakeLedger) Release() error { f.released = true; return nil }
func (f *fakeLedger) Reopen() error  { f.released = false; f.reopened++; return nil }

func (f *fakeLedger) recordsOfType(t string) []models.TransactionRecord {
	var out []models.TransactionRecord
	for _, rec := range f.records {
		if rec.Type == t {
			out = append(out, rec)
		}
	}
	return out
}

type fakeOracle struct {
	quote Quote
}

func (f *fakeOracle) TokenPrice() Quote { return f.quote }

type fakeSwapper struct {
	lamportsOut uint64
	err         error
	calls       []uint64
}

func (f *fakeSwapper) SwapTokenForSol(ctx context.Context, tokens uint64) (string, uint64, error) {
	f.calls = append(f.calls, tokens)
	if f.err != nil {
		return "", 0, f.err
	}
	return "swap-sig", f.lamportsOut, nil
}

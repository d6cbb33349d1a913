package minefield

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"gridagent/internal/engine"
	chain "gridagent/pkg/solana"
)

// Adapter exposes the minefield program as the engine's chain port. All
// writes go through the client's retry and confirmation path.
type Adapter struct {
	client *chain.Client
}

func NewAdapter(client *chain.Client) *Adapter {
	return &Adapter{client: client}
}

func (a *Adapter) fetchAccount(ctx context.Context, key solana.PublicKey) ([]byte, error) {
	accountInfo, err := a.client.RPC().GetAccountInfo(ctx, key)
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) || strings.Contains(err.Error(), "not found") {
			return nil, engine.ErrNotFound
		}
		return nil, err
	}
	if accountInfo == nil || accountInfo.Value == nil {
		return nil, engine.ErrNotFound
	}
	return accountInfo.Value.Data.GetBinary(), nil
}

func (a *Adapter) Board(ctx context.Context) (*engine.Board, error) {
	boardPDA, _, err := GetBoardPDA()
	if err != nil {
		return nil, err
	}
	data, err := a.fetchAccount(ctx, boardPDA)
	if err != nil {
		return nil, err
	}
	board, err := DecodeBoard(data)
	if err != nil {
		return nil, err
	}
	return &engine.Board{
		CurrentRound:  board.CurrentRound,
		RoundDuration: time.Duration(board.RoundDurationSecs) * time.Second,
		SquareCount:   board.SquareCount,
	}, nil
}

func (a *Adapter) Round(ctx context.Context, id uint64) (*engine.Round, error) {
	roundPDA, _, err := GetRoundPDA(id)
	if err != nil {
		return nil, err
	}
	data, err := a.fetchAccount(ctx, roundPDA)
	if err != nil {
		return nil, err
	}
	round, err := DecodeRound(data)
	if err != nil {
		return nil, err
	}
	return &engine.Round{
		ID:            round.ID,
		StartTime:     time.Unix(round.StartTime, 0),
		EndTime:       time.Unix(round.EndTime, 0),
		TotalDeployed: round.TotalDeployed,
	}, nil
}

func (a *Adapter) AgentState(ctx context.Context) (*engine.AgentState, error) {
	minerPDA, _, err := GetMinerPDA(a.client.Wallet())
	if err != nil {
		return nil, err
	}
	data, err := a.fetchAccount(ctx, minerPDA)
	if err != nil {
		return nil, err
	}
	miner, err := DecodeMiner(data)
	if err != nil {
		return nil, err
	}
	return &engine.AgentState{
		Checkpoint:      miner.Checkpoint,
		ClaimableTokens: miner.ClaimableTokens,
	}, nil
}

func (a *Adapter) Automation(ctx context.Context) (*engine.Automation, error) {
	automationPDA, _, err := GetAutomationPDA(a.client.Wallet())
	if err != nil {
		return nil, err
	}
	data, err := a.fetchAccount(ctx, automationPDA)
	if err != nil {
		return nil, err
	}
	auto, err := DecodeAutomation(data)
	if err != nil {
		return nil, err
	}
	return &engine.Automation{
		AmountPerSquare: auto.AmountPerSquare,
		Balance:         auto.Balance,
		SquareMask:      auto.SquareMask,
	}, nil
}

func (a *Adapter) RewardPool(ctx context.Context) (*engine.RewardPool, error) {
	treasuryPDA, _, err := GetTreasuryPDA()
	if err != nil {
		return nil, err
	}
	data, err := a.fetchAccount(ctx, treasuryPDA)
	if err != nil {
		return nil, err
	}
	treasury, err := DecodeTreasury(data)
	if err != nil {
		return nil, err
	}
	return &engine.RewardPool{Balance: treasury.RewardPool}, nil
}

func (a *Adapter) StakeAccount(ctx context.Context) (*engine.StakeAccount, error) {
	stakePDA, _, err := GetStakePDA(a.client.Wallet())
	if err != nil {
		return nil, err
	}
	data, err := a.fetchAccount(ctx, stakePDA)
	if err != nil {
		return nil, err
	}
	stake, err := DecodeStakePosition(data)
	if err != nil {
		return nil, err
	}
	return &engine.StakeAccount{
		StakedTokens: stake.StakedTokens,
		PendingYield: stake.PendingYield,
	}, nil
}

func (a *Adapter) WalletBalance(ctx context.Context) (uint64, error) {
	return a.client.SolBalance(ctx, a.client.Wallet())
}

func (a *Adapter) TokenBalance(ctx context.Context) (uint64, error) {
	return a.client.TokenBalance(ctx, a.client.Wallet(), RewardMint)
}

func (a *Adapter) submit(ctx context.Context, op string, ix solana.Instruction, err error) (string, error) {
	if err != nil {
		return "", fmt.Errorf("build %s instruction: %w", op, err)
	}
	sig, err := a.client.SendAndConfirm(ctx, []solana.Instruction{ix})
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return sig.String(), nil
}

func (a *Adapter) Deploy(ctx context.Context, roundID uint64) (string, error) {
	ix, err := CreateDeployInstruction(a.client.Wallet(), roundID)
	return a.submit(ctx, "deploy", ix, err)
}

func (a *Adapter) Checkpoint(ctx context.Context, rounds []uint64) (string, error) {
	ix, err := CreateCheckpointInstruction(a.client.Wallet(), rounds)
	return a.submit(ctx, "checkpoint", ix, err)
}

func (a *Adapter) CreateAutomation(ctx context.Context, amountPerSquare uint64, squareMask uint32, deposit uint64) (string, error) {
	ix, err := CreateCreateAutomationInstruction(a.client.Wallet(), amountPerSquare, squareMask, deposit)
	return a.submit(ctx, "create_automation", ix, err)
}

func (a *Adapter) CloseAutomation(ctx context.Context) (string, error) {
	ix, err := CreateCloseAutomationInstruction(a.client.Wallet())
	return a.submit(ctx, "close_automation", ix, err)
}

func (a *Adapter) TopUpAutomation(ctx context.Context, lamports uint64) (string, error) {
	ix, err := CreateTopUpAutomationInstruction(a.client.Wallet(), lamports)
	return a.submit(ctx, "top_up_automation", ix, err)
}

func (a *Adapter) ClaimRewards(ctx context.Context) (string, error) {
	ix, err := CreateClaimRewardsInstruction(a.client.Wallet())
	return a.submit(ctx, "claim_rewards", ix, err)
}

func (a *Adapter) ClaimYield(ctx context.Context) (string, error) {
	ix, err := CreateClaimYieldInstruction(a.client.Wallet())
	return a.submit(ctx, "claim_yield", ix, err)
}

func (a *Adapter) Stake(ctx context.Context, tokens uint64) (string, error) {
	ix, err := CreateStakeInstruction(a.client.Wallet(), tokens)
	return a.submit(ctx, "stake", ix, err)
}

package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	logrus "github.com/sirupsen/logrus"

	"gridagent/internal/engine"
	"gridagent/internal/models"
	"gridagent/internal/store"
)

// recordDailySnapshot captures the chain balances and the derived net
// profit into one daily_snapshots row.
func recordDailySnapshot(ctx context.Context, chain engine.ChainAdapter,
	oracle engine.PriceOracle, ledger *store.Ledger, params engine.Params) error {

	wallet, err := chain.WalletBalance(ctx)
	if err != nil {
		return fmt.Errorf("wallet balance: %w", err)
	}
	walletTokens, err := chain.TokenBalance(ctx)
	if err != nil {
		return fmt.Errorf("token balance: %w", err)
	}

	var escrow uint64
	if auto, err := chain.Automation(ctx); err == nil {
		escrow = auto.Balance
	} else if !errors.Is(err, engine.ErrNotFound) {
		return fmt.Errorf("automation: %w", err)
	}

	var claimable uint64
	if state, err := chain.AgentState(ctx); err == nil {
		claimable = state.ClaimableTokens
	} else if !errors.Is(err, engine.ErrNotFound) {
		return fmt.Errorf("agent state: %w", err)
	}

	var staked uint64
	if stake, err := chain.StakeAccount(ctx); err == nil {
		staked = stake.StakedTokens
	} else if !errors.Is(err, engine.ErrNotFound) {
		return fmt.Errorf("stake account: %w", err)
	}

	quote := oracle.TokenPrice()

	bal := engine.BalanceSet{
		WalletLamports:  wallet,
		EscrowLamports:  escrow,
		ClaimableTokens: claimable,
		StakedTokens:    staked,
		WalletTokens:    walletTokens,
		TokenPriceSOL:   quote.SolPerToken,
	}

	records, err := ledger.Records()
	if err != nil {
		return err
	}
	var baselinePtr *float64
	if baseline, ok, err := ledger.Baseline(); err != nil {
		return err
	} else if ok {
		baselinePtr = &baseline
	}
	summary := engine.Reconcile(records, bal, baselinePtr, params)

	snap := &models.DailySnapshot{
		Date:            time.Now().UTC().Format("2006-01-02"),
		WalletLamports:  int64(wallet),
		EscrowLamports:  int64(escrow),
		ClaimableTokens: int64(claimable),
		StakedTokens:    int64(staked),
		WalletTokens:    int64(walletTokens),
		TokenPriceSol:   quote.SolPerToken,
		NetProfitSol:    summary.NetProfitTotalSOL,
	}
	if err := ledger.SaveSnapshot(snap); err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{
		"date":       snap.Date,
		"net_profit": snap.NetProfitSol,
	}).Info("daily snapshot recorded")
	return nil
}

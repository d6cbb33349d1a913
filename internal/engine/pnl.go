package engine

import (
	"math"

	"gridagent/internal/models"
)

// BalanceSet is the live-balance half of a PnL derivation.
type BalanceSet struct {
	WalletLamports  uint64
	EscrowLamports  uint64
	ClaimableTokens uint64
	StakedTokens    uint64
	WalletTokens    uint64
	TokenPriceSOL   float64
}

// Summary is fully derived from the ledger plus live balances; it is never
// stored, so storage and presentation cannot drift.
type Summary struct {
	CapitalSOL        float64
	DeployedToDateSOL float64

	ClaimedNativeSOL  float64
	TokenSalesSOL     float64
	MarkToMarketSOL   float64
	IncomeSOL         float64

	FeesSOL          float64
	SwapFeesSOL      float64
	ProtocolSkimSOL  float64
	ExpensesSOL      float64
	EstimatedFeeTxs  int

	NetProfitNativeSOL float64
	NetProfitTotalSOL  float64
	ROI                float64

	BaselineSet      bool
	BaselineSOL      float64
	CurrentValueSOL  float64
	TrueProfitSOL    float64
	ExpectedWallet   float64
	WalletDifference float64
	Reconciled       bool

	RecordCount int
}

// Reconcile derives the full PnL summary. Pure: identical inputs always
// yield an identical summary, and the ledger is never touched.
func Reconcile(records []models.TransactionRecord, bal BalanceSet, baseline *float64, p Params) Summary {
	var s Summary
	s.RecordCount = len(records)

	tokenHoldings := TokensFromBase(bal.WalletTokens+bal.StakedTokens+bal.ClaimableTokens, p.TokenDecimals)
	s.MarkToMarketSOL = tokenHoldings * bal.TokenPriceSOL

	s.CapitalSOL = SolFromLamports(bal.WalletLamports+bal.EscrowLamports) +
		TokensFromBase(bal.ClaimableTokens, p.TokenDecimals)*bal.TokenPriceSOL

	var claimedTokens float64
	for _, rec := range records {
		switch rec.Type {
		case models.TxDeploy, models.TxAutomationOpen:
			if rec.Lamports < 0 {
				s.DeployedToDateSOL += SolFromLamports(uint64(-rec.Lamports))
			}
		case models.TxCheckpoint:
			if rec.Lamports > 0 {
				s.ClaimedNativeSOL += SolFromLamports(uint64(rec.Lamports))
			}
		case models.TxSwap:
			if rec.Lamports > 0 {
				s.TokenSalesSOL += SolFromLamports(uint64(rec.Lamports))
			}
			s.SwapFeesSOL += SolFromLamports(uint64(rec.FeeLamports))
		case models.TxClaim, models.TxYieldClaim:
			if rec.TokenAmount > 0 {
				claimedTokens += TokensFromBase(uint64(rec.TokenAmount), p.TokenDecimals)
			}
		}
		if rec.Type != models.TxSwap {
			if rec.FeeLamports > 0 {
				s.FeesSOL += SolFromLamports(uint64(rec.FeeLamports))
			} else if rec.Status == models.TxStatusConfirmed {
				s.EstimatedFeeTxs++
			}
		}
	}
	s.FeesSOL += float64(s.EstimatedFeeTxs) * SolFromLamports(uint64(p.AvgFeeLamports))

	// The protocol skims its fee before crediting claims; reconstruct the
	// skimmed share from what was actually credited.
	if p.ProtocolFeeRate > 0 && p.ProtocolFeeRate < 1 {
		s.ProtocolSkimSOL = claimedTokens * (p.ProtocolFeeRate / (1 - p.ProtocolFeeRate)) * bal.TokenPriceSOL
	}

	s.IncomeSOL = s.ClaimedNativeSOL + s.TokenSalesSOL + s.MarkToMarketSOL
	s.ExpensesSOL = s.FeesSOL + s.SwapFeesSOL + s.ProtocolSkimSOL
	s.NetProfitNativeSOL = s.ClaimedNativeSOL + s.TokenSalesSOL - s.ExpensesSOL
	s.NetProfitTotalSOL = s.NetProfitNativeSOL + s.MarkToMarketSOL
	if s.DeployedToDateSOL > 0 {
		s.ROI = s.NetProfitTotalSOL / s.DeployedToDateSOL
	}

	s.CurrentValueSOL = SolFromLamports(bal.WalletLamports+bal.EscrowLamports) + s.MarkToMarketSOL
	if baseline != nil {
		s.BaselineSet = true
		s.BaselineSOL = *baseline
		s.TrueProfitSOL = s.CurrentValueSOL - s.BaselineSOL
		actualWallet := SolFromLamports(bal.WalletLamports + bal.EscrowLamports)
		incomeNative := s.ClaimedNativeSOL + s.TokenSalesSOL
		s.ExpectedWallet, s.WalletDifference, s.Reconciled =
			reconcileWallet(s.BaselineSOL, incomeNative, s.ExpensesSOL, actualWallet, p.ReconcileToleranceSOL)
	}
	return s
}

// reconcileWallet checks the append-only history against reality: with a
// fixed baseline, the wallet should sit at baseline + income - expenses.
func reconcileWallet(baseline, income, expenses, actualWallet, tolerance float64) (expected, difference float64, ok bool) {
	expected = baseline + income - expenses
	difference = actualWallet - expected
	return expected, difference, math.Abs(difference) <= tolerance
}

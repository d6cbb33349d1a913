package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/olekukonko/tablewriter"
	"gorm.io/gorm"

	"gridagent/internal/engine"
	"gridagent/internal/models"
	"gridagent/internal/store"
	"gridagent/pkg/config"
)

func main() {
	_ = godotenv.Load()

	config.InitDB()
	ledger := store.NewLedger(config.DB, config.DatabaseDSN())

	if err := run(ledger); err != nil {
		fmt.Fprintln(os.Stderr, "report failed:", err)
		os.Exit(1)
	}
}

func run(ledger *store.Ledger) error {
	records, err := ledger.Records()
	if err != nil {
		return err
	}

	var snap models.DailySnapshot
	err = config.DB.Order("date desc").First(&snap).Error
	if err != nil && err != gorm.ErrRecordNotFound {
		return err
	}

	bal := engine.BalanceSet{
		WalletLamports:  uint64(snap.WalletLamports),
		EscrowLamports:  uint64(snap.EscrowLamports),
		ClaimableTokens: uint64(snap.ClaimableTokens),
		StakedTokens:    uint64(snap.StakedTokens),
		WalletTokens:    uint64(snap.WalletTokens),
		TokenPriceSOL:   snap.TokenPriceSol,
	}

	var baselinePtr *float64
	if baseline, ok, err := ledger.Baseline(); err != nil {
		return err
	} else if ok {
		baselinePtr = &baseline
	}

	summary := engine.Reconcile(records, bal, baselinePtr, engine.DefaultParams())

	if snap.Date != "" {
		fmt.Printf("Balances as of snapshot %s\n\n", snap.Date)
	} else {
		fmt.Println("No balance snapshot recorded yet; chain-side figures are zero.")
	}

	printSummary(summary)
	printActivity(records)

	if summary.BaselineSet && !summary.Reconciled {
		fmt.Printf("\nWARNING: wallet differs from expectation by %.4f SOL\n", summary.WalletDifference)
	}
	return nil
}

func printSummary(s engine.Summary) {
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Metric", "SOL")

	table.Append("Capital (wallet+escrow+claimable)", fmt.Sprintf("%.4f", s.CapitalSOL))
	table.Append("Deployed to date", fmt.Sprintf("%.4f", s.DeployedToDateSOL))
	table.Append("Claimed native", fmt.Sprintf("%.4f", s.ClaimedNativeSOL))
	table.Append("Token sales", fmt.Sprintf("%.4f", s.TokenSalesSOL))
	table.Append("Mark to market", fmt.Sprintf("%.4f", s.MarkToMarketSOL))
	table.Append("Income", fmt.Sprintf("%.4f", s.IncomeSOL))
	table.Append("Fees", fmt.Sprintf("%.6f", s.FeesSOL))
	table.Append("Swap fees", fmt.Sprintf("%.6f", s.SwapFeesSOL))
	table.Append("Protocol skim", fmt.Sprintf("%.4f", s.ProtocolSkimSOL))
	table.Append("Expenses", fmt.Sprintf("%.4f", s.ExpensesSOL))
	table.Append("Net profit (native)", fmt.Sprintf("%.4f", s.NetProfitNativeSOL))
	table.Append("Net profit (total)", fmt.Sprintf("%.4f", s.NetProfitTotalSOL))
	table.Append("ROI", fmt.Sprintf("%.2f%%", s.ROI*100))

	if s.BaselineSet {
		table.Append("Baseline", fmt.Sprintf("%.4f", s.BaselineSOL))
		table.Append("Expected wallet", fmt.Sprintf("%.4f", s.ExpectedWallet))
		table.Append("Wallet difference", fmt.Sprintf("%.4f", s.WalletDifference))
	}

	table.Render()
}

func printActivity(records []models.TransactionRecord) {
	counts := make(map[string]int)
	failures := 0
	for _, rec := range records {
		counts[rec.Type]++
		if rec.Status == models.TxStatusFailed {
			failures++
		}
	}

	fmt.Printf("\nActivity: %d records, %d failed\n", len(records), failures)

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Type", "Count")
	for _, txType := range []string{
		models.TxDeploy, models.TxCheckpoint, models.TxAutomationOpen,
		models.TxAutomationClose, models.TxAutomationTopUp,
		models.TxClaim, models.TxYieldClaim, models.TxStake, models.TxSwap,
	} {
		if counts[txType] > 0 {
			table.Append(txType, fmt.Sprintf("%d", counts[txType]))
		}
	}
	table.Render()
}

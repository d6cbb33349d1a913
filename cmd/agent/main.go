package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	logrus "github.com/sirupsen/logrus"

	"gridagent/internal/engine"
	"gridagent/internal/store"
	"gridagent/pkg/config"
	chain "gridagent/pkg/solana"
	"gridagent/pkg/solana/minefield"
	"gridagent/pkg/utils"
)

func main() {
	// Initialize logger
	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetLevel(logrus.InfoLevel)
	if level, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		logrus.SetLevel(level)
	}

	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	configPath := os.Getenv("AGENT_CONFIG")
	if configPath == "" {
		configPath = "configs/agent.yaml"
	}
	cfg, err := config.LoadAgentConfig(configPath)
	if err != nil {
		logrus.Fatal("Failed to load agent config: ", err)
	}
	params, err := cfg.EngineParams()
	if err != nil {
		logrus.Fatal("Invalid agent config: ", err)
	}

	// Initialize database
	config.InitDB()
	config.ExecuteMigrations()
	ledger := store.NewLedger(config.DB, config.DatabaseDSN())

	// Wallet credentials are mandatory; an agent without a signing key has
	// nothing to do.
	password := os.Getenv("WALLET_PASSWORD")
	if cfg.Wallet.Address == "" || password == "" {
		logrus.Fatal("WALLET_ADDRESS and WALLET_PASSWORD must be set")
	}
	km := chain.NewKeyManager(cfg.Wallet.KeystoreDir)
	wallet, err := km.LoadSigningKey(cfg.Wallet.Address, password)
	if err != nil {
		logrus.Fatal("Failed to load signing key: ", err)
	}

	client := chain.NewClientFromEnv(wallet)
	adapter := minefield.NewAdapter(client)
	oracle := utils.NewPriceOracle(minefield.RewardMint.String())
	swapper := utils.NewJupiterSwapper(client, minefield.RewardMint.String())

	// Initialize RabbitMQ (optional, skipped when not configured)
	var publisher engine.EventPublisher
	if config.RabbitMQEnabled() {
		config.InitRabbitMQ()
		defer config.RabbitMQ.Close()

		p, err := config.NewPublisher()
		if err != nil {
			logrus.Fatal("Failed to create publisher: ", err)
		}
		defer p.Close()
		publisher = p
		logrus.Info("RabbitMQ publisher initialized")
	} else {
		logrus.Info("RabbitMQ not configured, events disabled")
	}

	lifecycle := engine.NewLifecycle(adapter, swapper, ledger, publisher, params)
	claims := engine.NewClaimScheduler(adapter, ledger, publisher, params)
	orchestrator := engine.NewOrchestrator(adapter, oracle, ledger, lifecycle, claims, publisher, params)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Daily snapshot at 00:05 UTC so the dashboard can chart history.
	c := cron.New(cron.WithSeconds())
	_, err = c.AddFunc("0 5 0 * * *", func() {
		if err := recordDailySnapshot(ctx, adapter, oracle, ledger, params); err != nil {
			logrus.Errorf("Failed to record daily snapshot: %v", err)
		}
	})
	if err != nil {
		logrus.Fatal("Failed to schedule snapshot job: ", err)
	}
	c.Start()
	defer c.Stop()

	logrus.WithFields(logrus.Fields{
		"wallet":   cfg.Wallet.Address,
		"strategy": params.Strategy.String(),
	}).Info("agent starting")

	if err := orchestrator.Run(ctx); err != nil {
		logrus.Fatal("Orchestrator stopped with error: ", err)
	}
	logrus.Info("agent shut down cleanly")
}

package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"gridagent/internal/engine"
)

// AgentConfig is the yaml strategy file. Every field is optional; missing
// values fall back to the engine defaults. Credentials come from the
// environment only, never from the file.
type AgentConfig struct {
	Wallet   WalletConfig   `yaml:"wallet"`
	Strategy StrategyConfig `yaml:"strategy"`
	Schedule ScheduleConfig `yaml:"schedule"`
}

// WalletConfig locates the signing key.
type WalletConfig struct {
	Address     string `yaml:"address"`
	KeystoreDir string `yaml:"keystore_dir"`
}

// StrategyConfig tunes the evaluator and the automation lifecycle.
type StrategyConfig struct {
	Mode                string  `yaml:"mode"` // full_board | half_board | single_square
	BudgetFraction      float64 `yaml:"budget_fraction"`
	MinExpectedValueSOL float64 `yaml:"min_expected_value_sol"`
	RefundRate          float64 `yaml:"refund_rate"`
	FallbackMultiplier  float64 `yaml:"fallback_multiplier"`
	RewardPoolFloor     float64 `yaml:"reward_pool_floor"`
	ClaimThreshold      float64 `yaml:"claim_threshold"`
	StakeReserve        float64 `yaml:"stake_reserve"`
}

// ScheduleConfig tunes the loop cadence.
type ScheduleConfig struct {
	PollSeconds          int    `yaml:"poll_seconds"`
	ClaimIntervalMinutes int    `yaml:"claim_interval_minutes"`
	StakeIntervalMinutes int    `yaml:"stake_interval_minutes"`
	MaintenanceFlagPath  string `yaml:"maintenance_flag_path"`
}

// LoadAgentConfig reads the yaml strategy file and applies env overrides.
// A missing file is not an error; defaults apply.
func LoadAgentConfig(path string) (*AgentConfig, error) {
	var cfg AgentConfig

	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse agent config %q: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read agent config %q: %w", path, err)
	}

	if v := os.Getenv("WALLET_ADDRESS"); v != "" {
		cfg.Wallet.Address = v
	}
	if v := os.Getenv("KEYSTORE_DIR"); v != "" {
		cfg.Wallet.KeystoreDir = v
	}
	return &cfg, nil
}

// EngineParams merges the config over the engine defaults.
func (c *AgentConfig) EngineParams() (engine.Params, error) {
	p := engine.DefaultParams()

	strategy, err := engine.ParseStrategy(c.Strategy.Mode)
	if err != nil {
		return p, err
	}
	p.Strategy = strategy

	if c.Strategy.BudgetFraction > 0 {
		p.BudgetFraction = c.Strategy.BudgetFraction
	}
	if c.Strategy.MinExpectedValueSOL != 0 {
		p.MinExpectedValueSOL = c.Strategy.MinExpectedValueSOL
	}
	if c.Strategy.RefundRate > 0 {
		p.RefundRate = c.Strategy.RefundRate
	}
	if c.Strategy.FallbackMultiplier > 0 {
		p.FallbackMultiplier = c.Strategy.FallbackMultiplier
	}
	if c.Strategy.RewardPoolFloor > 0 {
		p.RewardPoolFloorTokens = c.Strategy.RewardPoolFloor
	}
	if c.Strategy.ClaimThreshold > 0 {
		p.ClaimThresholdTokens = c.Strategy.ClaimThreshold
	}
	if c.Strategy.StakeReserve > 0 {
		p.StakeReserveTokens = c.Strategy.StakeReserve
	}

	if c.Schedule.PollSeconds > 0 {
		p.PollInterval = time.Duration(c.Schedule.PollSeconds) * time.Second
	}
	if c.Schedule.ClaimIntervalMinutes > 0 {
		p.ClaimInterval = time.Duration(c.Schedule.ClaimIntervalMinutes) * time.Minute
	}
	if c.Schedule.StakeIntervalMinutes > 0 {
		p.StakeInterval = time.Duration(c.Schedule.StakeIntervalMinutes) * time.Minute
	}
	if c.Schedule.MaintenanceFlagPath != "" {
		p.MaintenanceFlagPath = c.Schedule.MaintenanceFlagPath
	}
	return p, nil
}

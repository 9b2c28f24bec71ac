package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/mdelgado/polycopy/internal/domain"
)

// Config is the full runtime configuration for the copy-trading engine,
// per §6/§10's configuration surface: a YAML document for structure and
// tuning, overlaid with a .env file for secrets that must never live in
// the YAML.
type Config struct {
	Targets      []string           `yaml:"targets"`
	Mode         string             `yaml:"mode"` // "paper" | "live" | "dry-run"
	Trading      TradingConfig      `yaml:"trading"`
	Risk         RiskConfig         `yaml:"risk"`
	Polling      PollingConfig      `yaml:"polling"`
	PaperTrading PaperTradingConfig `yaml:"paperTrading"`
	StopLoss     StopLossConfig     `yaml:"stopLoss"`
	AutoRedeem   AutoRedeemConfig   `yaml:"autoRedeem"`
	API          APIConfig          `yaml:"api"`
	Storage      StorageConfig      `yaml:"storage"`
	Log          LogConfig          `yaml:"log"`

	// Account holds LIVE credentials, populated only from the .env overlay
	// (never from YAML). A zero-value Account keeps the engine in PAPER or
	// DRY_RUN, per domain.ResolveMode.
	Account AccountConfig `yaml:"-"`
}

// TradingConfig controls how replica orders are sized.
type TradingConfig struct {
	SizingMode             string  `yaml:"sizingMode"` // "proportional" | "fixed-usd" | "fixed-shares"
	FixedUsdSize           float64 `yaml:"fixedUsdSize"`
	FixedSharesSize        float64 `yaml:"fixedSharesSize"`
	ProportionalMultiplier float64 `yaml:"proportionalMultiplier"`
	MinOrderSize           float64 `yaml:"minOrderSize"`   // USD floor
	MinOrderShares         float64 `yaml:"minOrderShares"` // shares floor
	Slippage               float64 `yaml:"slippage"`       // fraction in [0,1]
}

// RiskConfig controls caps and allow/deny lists applied by the risk manager.
type RiskConfig struct {
	MaxUsdPerTrade    float64  `yaml:"maxUsdPerTrade"`
	MaxUsdPerMarket   float64  `yaml:"maxUsdPerMarket"`
	MaxDailyUsdVolume float64  `yaml:"maxDailyUsdVolume"`
	MarketAllowlist   []string `yaml:"marketAllowlist"`
	MarketDenylist    []string `yaml:"marketDenylist"`
	DryRun            bool     `yaml:"dryRun"`
}

// PollingConfig tunes the per-target HTTP poller leg of the ingester.
type PollingConfig struct {
	IntervalMs          int `yaml:"intervalMs"`
	TradeLimit          int `yaml:"tradeLimit"`
	MaxRetries          int `yaml:"maxRetries"`
	BaseBackoffMs       int `yaml:"baseBackoffMs"`
	AggregationWindowMs int `yaml:"aggregationWindowMs"` // 0 disables the aggregation buffer (§4.3)
}

// PaperTradingConfig seeds the in-memory paper ledger.
type PaperTradingConfig struct {
	StartingBalance float64 `yaml:"startingBalance"`
	FeeRate         float64 `yaml:"feeRate"`
}

// StopLossConfig drives the supervisor's stop-loss sweep (§11).
type StopLossConfig struct {
	Enabled         bool    `yaml:"enabled"`
	Percent         float64 `yaml:"percent"`
	CheckIntervalMs int     `yaml:"checkIntervalMs"`
}

// AutoRedeemConfig drives the supervisor's auto-redeem sweep (§11).
type AutoRedeemConfig struct {
	Enabled    bool `yaml:"enabled"`
	IntervalMs int  `yaml:"intervalMs"`
}

// APIConfig holds the base URLs for the outbound HTTP/WS surfaces.
type APIConfig struct {
	CLOBBase  string   `yaml:"clobBase"`
	GammaBase string   `yaml:"gammaBase"`
	DataBase  string   `yaml:"dataBase"`
	WSBase    string   `yaml:"wsBase"`
	ChainRPC  []string `yaml:"chainRpc"`
}

// StorageConfig controls where state lives and whether the optional
// analytics side-car is enabled.
type StorageConfig struct {
	DataDir      string `yaml:"dataDir"`
	AnalyticsDSN string `yaml:"analyticsDsn"` // empty disables the side-car (§11)
}

// LogConfig controls the structured logger.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// AccountConfig mirrors domain.AccountConfig but as loaded config, before
// it is translated into the domain type at startup.
type AccountConfig struct {
	ID            string
	PrivateKeyHex string
	APIKey        string
	APISecret     string
	APIPassphrase string
	FunderAddress string
}

// Load reads the YAML document at path, then overlays secrets from a .env
// file in the working directory. Env values never appear in the YAML.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	return &cfg, nil
}

// PollingInterval is Polling.IntervalMs as a time.Duration.
func (c *Config) PollingInterval() time.Duration {
	return time.Duration(c.Polling.IntervalMs) * time.Millisecond
}

// StopLossInterval is StopLoss.CheckIntervalMs as a time.Duration.
func (c *Config) StopLossInterval() time.Duration {
	return time.Duration(c.StopLoss.CheckIntervalMs) * time.Millisecond
}

// AutoRedeemInterval is AutoRedeem.IntervalMs as a time.Duration.
func (c *Config) AutoRedeemInterval() time.Duration {
	return time.Duration(c.AutoRedeem.IntervalMs) * time.Millisecond
}

// AggregationWindow is Polling.AggregationWindowMs as a time.Duration.
// Zero means the Aggregation Buffer (C8) is disabled, per §4.3.
func (c *Config) AggregationWindow() time.Duration {
	return time.Duration(c.Polling.AggregationWindowMs) * time.Millisecond
}

// HasAccount reports whether LIVE credentials were supplied via the .env
// overlay. Mode resolution does not call it: domain.ResolveMode keys on
// AccountConfig.ID.
func (c *Config) HasAccount() bool {
	return c.Account.PrivateKeyHex != "" && c.Account.APIKey != ""
}

// Domain translates the loaded AccountConfig into domain.AccountConfig for
// the Mode Controller and LIVE executor construction.
func (a AccountConfig) Domain() domain.AccountConfig {
	return domain.AccountConfig{
		ID:            a.ID,
		PrivateKeyHex: a.PrivateKeyHex,
		APIKey:        a.APIKey,
		APISecret:     a.APISecret,
		APIPassphrase: a.APIPassphrase,
		FunderAddress: a.FunderAddress,
	}
}

// applyEnvOverrides reads secrets and log overrides from the environment;
// these must never live in the checked-in YAML file.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("POLY_PRIVATE_KEY"); v != "" {
		cfg.Account.PrivateKeyHex = v
		cfg.Account.ID = "default"
	}
	if v := os.Getenv("POLY_API_KEY"); v != "" {
		cfg.Account.APIKey = v
	}
	if v := os.Getenv("POLY_API_SECRET"); v != "" {
		cfg.Account.APISecret = v
	}
	if v := os.Getenv("POLY_PASSPHRASE"); v != "" {
		cfg.Account.APIPassphrase = v
	}
	if v := os.Getenv("POLY_FUNDER_ADDRESS"); v != "" {
		cfg.Account.FunderAddress = v
	}

	for i, t := range cfg.Targets {
		cfg.Targets[i] = strings.ToLower(t)
	}
}

// setDefaults fills the same sane defaults §10 requires: poll interval 2s,
// trade limit 20, base backoff, 0.1% paper fee.
func setDefaults(cfg *Config) {
	if cfg.Mode == "" {
		cfg.Mode = "paper"
	}
	if cfg.Trading.SizingMode == "" {
		cfg.Trading.SizingMode = "proportional"
	}
	if cfg.Trading.ProportionalMultiplier <= 0 {
		cfg.Trading.ProportionalMultiplier = 1.0
	}
	if cfg.Trading.Slippage <= 0 {
		cfg.Trading.Slippage = 0.01
	}
	if cfg.Polling.IntervalMs <= 0 {
		cfg.Polling.IntervalMs = 2000
	}
	if cfg.Polling.TradeLimit <= 0 {
		cfg.Polling.TradeLimit = 20
	}
	if cfg.Polling.MaxRetries <= 0 {
		cfg.Polling.MaxRetries = 5
	}
	if cfg.Polling.BaseBackoffMs <= 0 {
		cfg.Polling.BaseBackoffMs = 1000
	}
	if cfg.PaperTrading.StartingBalance <= 0 {
		cfg.PaperTrading.StartingBalance = 10000
	}
	if cfg.PaperTrading.FeeRate <= 0 {
		cfg.PaperTrading.FeeRate = 0.001
	}
	if cfg.StopLoss.CheckIntervalMs <= 0 {
		cfg.StopLoss.CheckIntervalMs = 30000
	}
	if cfg.AutoRedeem.IntervalMs <= 0 {
		cfg.AutoRedeem.IntervalMs = 300000
	}
	if cfg.API.CLOBBase == "" {
		cfg.API.CLOBBase = "https://clob.polymarket.com"
	}
	if cfg.API.GammaBase == "" {
		cfg.API.GammaBase = "https://gamma-api.polymarket.com"
	}
	if cfg.API.DataBase == "" {
		cfg.API.DataBase = "https://data-api.polymarket.com"
	}
	if cfg.API.WSBase == "" {
		cfg.API.WSBase = "wss://ws-subscriptions-clob.polymarket.com/ws"
	}
	if len(cfg.API.ChainRPC) == 0 {
		cfg.API.ChainRPC = []string{"https://polygon-rpc.com"}
	}
	if cfg.Storage.DataDir == "" {
		cfg.Storage.DataDir = "data"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}

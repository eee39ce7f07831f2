package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v2"
)

// TokenConfig describes one reserve token the engine may hold positions in.
type TokenConfig struct {
	TokenID         string `json:"token_id" yaml:"token_id"`
	CurrencyCode    string `json:"currency_code" yaml:"currency_code"`
	DisplayName     string `json:"display_name" yaml:"display_name"`
	ContractAddress string `json:"contract_address" yaml:"contract_address"`
	// Decimals is the token's on-chain decimal count.
	Decimals int `json:"decimals" yaml:"decimals"`
}

// RateLimitConfig caps outgoing RPC traffic.
type RateLimitConfig struct {
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second"`
	BurstSize         int     `json:"burst_size" yaml:"burst_size"`
}

// ProtocolConfig holds the lending protocol deployment's contract addresses.
type ProtocolConfig struct {
	PluginID            string  `json:"plugin_id" yaml:"plugin_id"`
	DisplayName         string  `json:"display_name" yaml:"display_name"`
	MaxLTV              float64 `json:"max_ltv" yaml:"max_ltv"`
	PoolAddress         string  `json:"pool_address" yaml:"pool_address"`
	DataProviderAddress string  `json:"data_provider_address" yaml:"data_provider_address"`
	PriceOracleAddress  string  `json:"price_oracle_address" yaml:"price_oracle_address"`
	RepayAdapterAddress string  `json:"repay_adapter_address" yaml:"repay_adapter_address"`
}

// SwapConfig configures the swap aggregator used for collateral-funded
// repayment.
type SwapConfig struct {
	APIURL  string `json:"api_url" yaml:"api_url"`
	Partner string `json:"partner" yaml:"partner"`
	// SlippagePercent pads collateral-funded repay swap amounts.
	SlippagePercent int64 `json:"slippage_percent" yaml:"slippage_percent"`
}

type Config struct {
	// Chain and network settings
	ChainID     uint64 `json:"chain_id" yaml:"chain_id"`
	RPCEndpoint string `json:"rpc_endpoint" yaml:"rpc_endpoint"`

	// Wallet settings
	WalletID         string        `json:"wallet_id" yaml:"wallet_id"`
	CurrencyPluginID string        `json:"currency_plugin_id" yaml:"currency_plugin_id"`
	WalletAddress    string        `json:"wallet_address" yaml:"wallet_address"`
	Tokens           []TokenConfig `json:"tokens" yaml:"tokens"`

	// Protocol deployment
	Protocol ProtocolConfig `json:"protocol" yaml:"protocol"`
	Swap     SwapConfig     `json:"swap" yaml:"swap"`

	// Sync cadences
	BalanceResyncInterval time.Duration `json:"balance_resync_interval" yaml:"balance_resync_interval"`
	LtvResyncInterval     time.Duration `json:"ltv_resync_interval" yaml:"ltv_resync_interval"`
	SyncLoopDelay         time.Duration `json:"sync_loop_delay" yaml:"sync_loop_delay"`

	// Gas limits per call class
	ApproveGasLimit   uint64 `json:"approve_gas_limit" yaml:"approve_gas_limit"`
	PoolGasLimit      uint64 `json:"pool_gas_limit" yaml:"pool_gas_limit"`
	SwapRepayGasLimit uint64 `json:"swap_repay_gas_limit" yaml:"swap_repay_gas_limit"`

	RPCRateLimit RateLimitConfig `json:"rpc_rate_limit" yaml:"rpc_rate_limit"`

	// Observability
	PrometheusEnabled  bool   `json:"prometheus_enabled" yaml:"prometheus_enabled"`
	PrometheusEndpoint string `json:"prometheus_endpoint" yaml:"prometheus_endpoint"`
}

// Validate checks the configuration for the settings without usable
// defaults.
func (c *Config) Validate() error {
	var errors []string

	if c.ChainID == 0 {
		errors = append(errors, "chain_id must be specified")
	}
	if c.RPCEndpoint == "" {
		errors = append(errors, "rpc_endpoint must be specified")
	}
	if c.WalletAddress == "" {
		errors = append(errors, "wallet_address must be specified")
	}
	if c.Protocol.PoolAddress == "" {
		errors = append(errors, "protocol.pool_address must be specified")
	}
	if c.Protocol.DataProviderAddress == "" {
		errors = append(errors, "protocol.data_provider_address must be specified")
	}
	if c.Protocol.PriceOracleAddress == "" {
		errors = append(errors, "protocol.price_oracle_address must be specified")
	}
	if c.Swap.SlippagePercent < 0 {
		errors = append(errors, "swap.slippage_percent cannot be negative")
	}
	for i, token := range c.Tokens {
		if token.TokenID == "" {
			errors = append(errors, fmt.Sprintf("tokens[%d].token_id must be specified", i))
		}
		if token.ContractAddress == "" {
			errors = append(errors, fmt.Sprintf("tokens[%d].contract_address must be specified", i))
		}
		if token.Decimals < 0 || token.Decimals > 36 {
			errors = append(errors, fmt.Sprintf("tokens[%d].decimals out of range", i))
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errors, "; "))
	}
	return nil
}

// LoadConfig reads a JSON or YAML config file, picked by extension, and
// validates it. An empty path falls back to ~/.borrowd.json.
func LoadConfig(cfgFile string) (*Config, error) {
	if cfgFile == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		cfgFile = filepath.Join(home, ".borrowd.json")
	}

	raw, err := os.ReadFile(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	switch strings.ToLower(filepath.Ext(cfgFile)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(raw, config); err != nil {
			return nil, fmt.Errorf("failed to decode config file: %w", err)
		}
	default:
		if err := json.Unmarshal(raw, config); err != nil {
			return nil, fmt.Errorf("failed to decode config file: %w", err)
		}
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// SaveConfig writes the config as indented JSON.
func SaveConfig(cfg *Config, cfgFile string) error {
	if cfgFile == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return err
		}
		cfgFile = filepath.Join(home, ".borrowd.json")
	}

	file, err := os.Create(cfgFile)
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "    ")
	return encoder.Encode(cfg)
}

// DefaultConfig returns a config with every tunable at its default.
// Deployment addresses and wallet settings still have to be provided.
func DefaultConfig() *Config {
	return &Config{
		ChainID:     1,
		RPCEndpoint: "http://localhost:8545",
		Swap: SwapConfig{
			APIURL:          "https://apiv5.paraswap.io",
			SlippagePercent: 1,
		},
		BalanceResyncInterval: 10 * time.Minute,
		LtvResyncInterval:     time.Minute,
		SyncLoopDelay:         time.Second,
		ApproveGasLimit:       500000,
		PoolGasLimit:          800000,
		SwapRepayGasLimit:     1800000,
		RPCRateLimit: RateLimitConfig{
			RequestsPerSecond: 20,
			BurstSize:         5,
		},
		PrometheusEnabled:  false,
		PrometheusEndpoint: ":9090",
	}
}

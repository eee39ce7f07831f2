package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfigJSON(t *testing.T) {
	path := writeFile(t, "config.json", `{
		"chain_id": 137,
		"rpc_endpoint": "https://polygon-rpc.example",
		"wallet_id": "wallet-1",
		"currency_plugin_id": "polygon",
		"wallet_address": "0x1000000000000000000000000000000000000001",
		"protocol": {
			"plugin_id": "aavePolygon",
			"pool_address": "0x5000000000000000000000000000000000000001",
			"data_provider_address": "0x5000000000000000000000000000000000000002",
			"price_oracle_address": "0x5000000000000000000000000000000000000003",
			"repay_adapter_address": "0x5000000000000000000000000000000000000004"
		},
		"tokens": [
			{"token_id": "WBTC", "currency_code": "WBTC", "contract_address": "0x3000000000000000000000000000000000000001", "decimals": 8}
		]
	}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, uint64(137), cfg.ChainID)
	assert.Equal(t, "aavePolygon", cfg.Protocol.PluginID)
	require.Len(t, cfg.Tokens, 1)
	assert.Equal(t, 8, cfg.Tokens[0].Decimals)

	// Unspecified settings keep their defaults.
	assert.Equal(t, 10*time.Minute, cfg.BalanceResyncInterval)
	assert.Equal(t, time.Minute, cfg.LtvResyncInterval)
	assert.Equal(t, time.Second, cfg.SyncLoopDelay)
	assert.Equal(t, int64(1), cfg.Swap.SlippagePercent)
}

func TestLoadConfigYAML(t *testing.T) {
	path := writeFile(t, "config.yaml", `
chain_id: 1
rpc_endpoint: https://mainnet.example
wallet_address: "0x1000000000000000000000000000000000000001"
protocol:
  pool_address: "0x5000000000000000000000000000000000000001"
  data_provider_address: "0x5000000000000000000000000000000000000002"
  price_oracle_address: "0x5000000000000000000000000000000000000003"
balance_resync_interval: 5m
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), cfg.ChainID)
	assert.Equal(t, 5*time.Minute, cfg.BalanceResyncInterval)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Run("MissingRequired", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.RPCEndpoint = ""
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "rpc_endpoint")
		assert.Contains(t, err.Error(), "wallet_address")
		assert.Contains(t, err.Error(), "pool_address")
	})

	t.Run("BadToken", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.WalletAddress = "0x1000000000000000000000000000000000000001"
		cfg.Protocol.PoolAddress = "0x5000000000000000000000000000000000000001"
		cfg.Protocol.DataProviderAddress = "0x5000000000000000000000000000000000000002"
		cfg.Protocol.PriceOracleAddress = "0x5000000000000000000000000000000000000003"
		cfg.Tokens = []TokenConfig{{TokenID: "", ContractAddress: "", Decimals: 99}}
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "tokens[0]")
	})
}

func TestApplyEnv(t *testing.T) {
	cfg := DefaultConfig()
	t.Setenv(EnvRPCEndpoint, "https://override.example")
	t.Setenv(EnvWalletAddress, "0xabc0000000000000000000000000000000000001")

	ApplyEnv(cfg)
	assert.Equal(t, "https://override.example", cfg.RPCEndpoint)
	assert.Equal(t, "0xabc0000000000000000000000000000000000001", cfg.WalletAddress)
}

func TestSaveConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	cfg := DefaultConfig()
	cfg.WalletAddress = "0x1000000000000000000000000000000000000001"
	cfg.Protocol.PoolAddress = "0x5000000000000000000000000000000000000001"
	cfg.Protocol.DataProviderAddress = "0x5000000000000000000000000000000000000002"
	cfg.Protocol.PriceOracleAddress = "0x5000000000000000000000000000000000000003"

	require.NoError(t, SaveConfig(cfg, path))
	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.WalletAddress, loaded.WalletAddress)
	assert.Equal(t, cfg.BalanceResyncInterval, loaded.BalanceResyncInterval)
}

package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Environment variables
const (
	EnvRPCEndpoint   = "BORROWD_RPC_ENDPOINT"
	EnvWalletAddress = "BORROWD_WALLET_ADDRESS"
	EnvSwapAPIURL    = "BORROWD_SWAP_API_URL"
)

// LoadEnv loads environment variables from a .env file when one exists.
func LoadEnv() error {
	if _, err := os.Stat(".env"); os.IsNotExist(err) {
		return nil
	}
	return godotenv.Load()
}

// ApplyEnv overrides file-based settings with environment variables.
func ApplyEnv(cfg *Config) {
	if v := os.Getenv(EnvRPCEndpoint); v != "" {
		cfg.RPCEndpoint = v
	}
	if v := os.Getenv(EnvWalletAddress); v != "" {
		cfg.WalletAddress = v
	}
	if v := os.Getenv(EnvSwapAPIURL); v != "" {
		cfg.Swap.APIURL = v
	}
}

// GetEnvWithDefault gets an environment variable with a default value.
func GetEnvWithDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// GetRequiredEnv fails when the environment variable is unset.
func GetRequiredEnv(key string) (string, error) {
	value := os.Getenv(key)
	if value == "" {
		return "", fmt.Errorf("required environment variable %s not set", key)
	}
	return value, nil
}

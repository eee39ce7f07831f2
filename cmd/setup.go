package cmd

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/michaelpento.lv/borrowd/config"
	"github.com/michaelpento.lv/borrowd/engine"
	"github.com/michaelpento.lv/borrowd/lending/aave"
	"github.com/michaelpento.lv/borrowd/swap"
	"github.com/michaelpento.lv/borrowd/utils/metrics"
	"github.com/michaelpento.lv/borrowd/wallet"
)

const metricsNamespace = "borrowd"

// buildEngine wires a watch-only borrow engine from the daemon config: RPC
// client, protocol adapter, swap quoter, plugin and engine. The returned
// registry carries every metric the setup created.
func buildEngine(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*engine.BorrowEngine, *prometheus.Registry, error) {
	client, err := ethclient.Dial(cfg.RPCEndpoint)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to RPC endpoint: %w", err)
	}

	registry := prometheus.NewRegistry()
	adapterMetrics := metrics.NewAdapterMetrics(metricsNamespace)
	if err := adapterMetrics.Register(registry); err != nil {
		return nil, nil, err
	}

	adapter, err := aave.NewAdapter(client, &aave.Config{
		PoolAddress:         common.HexToAddress(cfg.Protocol.PoolAddress),
		DataProviderAddress: common.HexToAddress(cfg.Protocol.DataProviderAddress),
		PriceOracleAddress:  common.HexToAddress(cfg.Protocol.PriceOracleAddress),
		RepayAdapterAddress: common.HexToAddress(cfg.Protocol.RepayAdapterAddress),
		ApproveGasLimit:     cfg.ApproveGasLimit,
		PoolGasLimit:        cfg.PoolGasLimit,
		SwapRepayGasLimit:   cfg.SwapRepayGasLimit,
		RateLimit:           cfg.RPCRateLimit.RequestsPerSecond,
		RateBurst:           cfg.RPCRateLimit.BurstSize,
	}, logger, adapterMetrics)
	if err != nil {
		return nil, nil, err
	}

	var quoter swap.Quoter
	if cfg.Swap.APIURL != "" {
		client, err := swap.NewClient(cfg.Swap.APIURL, cfg.ChainID, cfg.Swap.Partner, logger)
		if err != nil {
			return nil, nil, err
		}
		quoter = client
	}

	syncMetrics := metrics.NewSyncMetrics(metricsNamespace, cfg.WalletID)
	if err := syncMetrics.Register(registry); err != nil {
		return nil, nil, err
	}

	plugin, err := aave.NewPlugin(aave.PluginParams{
		Info: engine.PluginInfo{
			PluginID:         cfg.Protocol.PluginID,
			DisplayName:      cfg.Protocol.DisplayName,
			CurrencyPluginID: cfg.CurrencyPluginID,
			MaxLTV:           cfg.Protocol.MaxLTV,
		},
		Adapter: adapter,
		Quoter:  quoter,
		Logger:  logger,
		Options: engine.Options{
			Metrics:               syncMetrics,
			BalanceResyncInterval: cfg.BalanceResyncInterval,
			LtvResyncInterval:     cfg.LtvResyncInterval,
			LoopDelay:             cfg.SyncLoopDelay,
			SlippagePercent:       cfg.Swap.SlippagePercent,
		},
	})
	if err != nil {
		return nil, nil, err
	}
	if err := engine.RegisterPlugin(plugin); err != nil {
		return nil, nil, err
	}

	registered, ok := engine.LookupPlugin(cfg.Protocol.PluginID)
	if !ok {
		return nil, nil, fmt.Errorf("plugin %q did not register", cfg.Protocol.PluginID)
	}

	eng, err := registered.NewEngine(ctx, buildWallet(cfg))
	if err != nil {
		return nil, nil, err
	}
	return eng, registry, nil
}

// buildWallet creates the watch-only wallet described by the config's wallet
// section. The daemon never signs; mutators are composed by library callers
// that bring their own wallet.
func buildWallet(cfg *config.Config) wallet.Wallet {
	tokens := make(map[string]*wallet.Token, len(cfg.Tokens))
	for _, t := range cfg.Tokens {
		tokens[t.TokenID] = &wallet.Token{
			TokenID:         t.TokenID,
			CurrencyCode:    t.CurrencyCode,
			DisplayName:     t.DisplayName,
			ContractAddress: common.HexToAddress(t.ContractAddress),
			Multiplier:      new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(t.Decimals)), nil),
		}
	}
	return wallet.NewReadOnly(cfg.WalletID, cfg.CurrencyPluginID, common.HexToAddress(cfg.WalletAddress), tokens)
}

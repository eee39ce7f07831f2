package aave

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/michaelpento.lv/borrowd/engine"
	"github.com/michaelpento.lv/borrowd/lending"
	"github.com/michaelpento.lv/borrowd/swap"
	"github.com/michaelpento.lv/borrowd/utils/metrics"
	"github.com/michaelpento.lv/borrowd/wallet"
)

var _ lending.Adapter = (*Adapter)(nil)
var _ engine.Plugin = (*Plugin)(nil)

// PluginParams configures an Aave borrow plugin for one deployment.
type PluginParams struct {
	Info    engine.PluginInfo
	Adapter lending.Adapter
	// Quoter enables collateral-funded repayment; optional.
	Quoter swap.Quoter
	Logger *zap.Logger
	// MetricsNamespace prefixes per-engine sync metrics; empty disables
	// engine instrumentation.
	MetricsNamespace string
	Options          engine.Options
}

// Plugin builds borrow engines bound to one Aave deployment.
type Plugin struct {
	params PluginParams
}

// NewPlugin creates an Aave borrow plugin.
func NewPlugin(params PluginParams) (*Plugin, error) {
	if params.Info.PluginID == "" {
		return nil, fmt.Errorf("plugin info is missing an id")
	}
	if params.Adapter == nil {
		return nil, fmt.Errorf("adapter cannot be nil")
	}
	if params.Logger == nil {
		params.Logger = zap.NewNop()
	}
	return &Plugin{params: params}, nil
}

// Info returns the plugin's deployment description.
func (p *Plugin) Info() engine.PluginInfo { return p.params.Info }

// NewEngine creates a borrow engine for the given wallet. The wallet must
// belong to the deployment's network.
func (p *Plugin) NewEngine(ctx context.Context, w wallet.Wallet) (*engine.BorrowEngine, error) {
	if w == nil {
		return nil, fmt.Errorf("wallet cannot be nil")
	}
	if p.params.Info.CurrencyPluginID != "" && w.PluginID() != p.params.Info.CurrencyPluginID {
		return nil, fmt.Errorf("wallet plugin %q is not supported by %s", w.PluginID(), p.params.Info.PluginID)
	}

	opts := p.params.Options
	opts.Quoter = p.params.Quoter
	opts.Logger = p.params.Logger.With(zap.String("wallet", w.ID()))
	opts.ProtocolLabel = p.params.Info.DisplayName
	if p.params.MetricsNamespace != "" && opts.Metrics == nil {
		opts.Metrics = metrics.NewSyncMetrics(p.params.MetricsNamespace, w.ID())
	}
	return engine.New(ctx, w, p.params.Adapter, &opts)
}

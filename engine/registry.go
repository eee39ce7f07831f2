package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/michaelpento.lv/borrowd/wallet"
)

// PluginInfo describes a lending protocol plugin.
type PluginInfo struct {
	// PluginID uniquely identifies the protocol deployment, e.g.
	// "aavePolygon".
	PluginID string
	// DisplayName is the human-readable protocol name.
	DisplayName string
	// CurrencyPluginID is the wallet plugin the engine's wallet must
	// belong to.
	CurrencyPluginID string
	// MaxLTV is the protocol's liquidation-safe loan-to-value bound.
	MaxLTV float64
}

// Plugin builds borrow engines for one lending protocol deployment.
type Plugin interface {
	Info() PluginInfo
	NewEngine(ctx context.Context, w wallet.Wallet) (*BorrowEngine, error)
}

var (
	registryMu sync.RWMutex
	registry   = map[string]Plugin{}
)

// RegisterPlugin adds a protocol plugin to the process-wide registry.
// Registering the same plugin id twice is a programming error.
func RegisterPlugin(p Plugin) error {
	info := p.Info()
	if info.PluginID == "" {
		return fmt.Errorf("plugin has no id")
	}
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, exists := registry[info.PluginID]; exists {
		return fmt.Errorf("plugin %q is already registered", info.PluginID)
	}
	registry[info.PluginID] = p
	return nil
}

// LookupPlugin returns the registered plugin for id.
func LookupPlugin(id string) (Plugin, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	p, ok := registry[id]
	return p, ok
}

// Plugins returns all registered plugins.
func Plugins() []Plugin {
	registryMu.RLock()
	defer registryMu.RUnlock()
	out := make([]Plugin, 0, len(registry))
	for _, p := range registry {
		out = append(out, p)
	}
	return out
}

package gas

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"go.uber.org/zap"
)

// PriceSource fetches the current suggested gas price. *ethclient.Client
// satisfies this.
type PriceSource interface {
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
}

// Estimator provides gas price estimation with a short-lived cache so that
// building a multi-call action does not hit the RPC node once per call.
type Estimator struct {
	source PriceSource
	logger *zap.Logger
	maxAge time.Duration

	mu        sync.RWMutex
	price     *big.Int
	fetchedAt time.Time
}

// NewEstimator creates a new gas estimator. maxAge bounds how stale a cached
// price may be before it is refetched.
func NewEstimator(source PriceSource, maxAge time.Duration, logger *zap.Logger) (*Estimator, error) {
	if source == nil {
		return nil, fmt.Errorf("price source cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if maxAge <= 0 {
		maxAge = 5 * time.Second
	}
	return &Estimator{source: source, logger: logger, maxAge: maxAge}, nil
}

// GasPrice returns a recent suggested gas price, refetching when the cached
// value is too old.
func (e *Estimator) GasPrice(ctx context.Context) (*big.Int, error) {
	e.mu.RLock()
	price, fetchedAt := e.price, e.fetchedAt
	e.mu.RUnlock()

	if price != nil && time.Since(fetchedAt) < e.maxAge {
		return new(big.Int).Set(price), nil
	}

	fresh, err := e.source.SuggestGasPrice(ctx)
	if err != nil {
		// Serve a stale price rather than failing while one exists.
		if price != nil {
			e.logger.Warn("Failed to refresh gas price, serving stale value",
				zap.Error(err),
				zap.Duration("age", time.Since(fetchedAt)))
			return new(big.Int).Set(price), nil
		}
		return nil, fmt.Errorf("failed to get gas price: %w", err)
	}

	e.mu.Lock()
	e.price = new(big.Int).Set(fresh)
	e.fetchedAt = time.Now()
	e.mu.Unlock()

	return fresh, nil
}

// EstimateCost returns the worst-case fee for a call at the current price.
func (e *Estimator) EstimateCost(ctx context.Context, gasLimit uint64) (*big.Int, error) {
	price, err := e.GasPrice(ctx)
	if err != nil {
		return nil, err
	}
	return new(big.Int).Mul(price, new(big.Int).SetUint64(gasLimit)), nil
}

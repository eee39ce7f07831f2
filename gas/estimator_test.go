package gas

import (
	"context"
	"fmt"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type stubSource struct {
	price *big.Int
	err   error
	calls int
}

func (s *stubSource) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return new(big.Int).Set(s.price), nil
}

func TestGasPriceCaching(t *testing.T) {
	ctx := context.Background()
	source := &stubSource{price: big.NewInt(100)}
	estimator, err := NewEstimator(source, time.Hour, zaptest.NewLogger(t))
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		price, err := estimator.GasPrice(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(100), price.Int64())
	}
	assert.Equal(t, 1, source.calls)
}

func TestGasPriceStaleFallback(t *testing.T) {
	ctx := context.Background()
	source := &stubSource{price: big.NewInt(100)}
	estimator, err := NewEstimator(source, time.Nanosecond, zaptest.NewLogger(t))
	require.NoError(t, err)

	price, err := estimator.GasPrice(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(100), price.Int64())

	// The cached value expires immediately; a failing refresh serves it
	// anyway.
	source.err = fmt.Errorf("rpc unavailable")
	time.Sleep(time.Millisecond)
	price, err = estimator.GasPrice(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(100), price.Int64())
}

func TestGasPriceNoCacheNoFallback(t *testing.T) {
	source := &stubSource{err: fmt.Errorf("rpc unavailable")}
	estimator, err := NewEstimator(source, time.Hour, zaptest.NewLogger(t))
	require.NoError(t, err)

	_, err = estimator.GasPrice(context.Background())
	assert.Error(t, err)
}

func TestEstimateCost(t *testing.T) {
	source := &stubSource{price: big.NewInt(30)}
	estimator, err := NewEstimator(source, time.Hour, zaptest.NewLogger(t))
	require.NoError(t, err)

	cost, err := estimator.EstimateCost(context.Background(), 800000)
	require.NoError(t, err)
	assert.Equal(t, int64(24_000_000), cost.Int64())
}

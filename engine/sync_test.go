package engine

import (
	"context"
	"fmt"
	"math/big"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/michaelpento.lv/borrowd/lending"
	"github.com/michaelpento.lv/borrowd/utils/metrics"
)

func counterValue(t *testing.T, m *metrics.SyncMetrics, counterKind string, label string) float64 {
	t.Helper()
	var out dto.Metric
	var err error
	switch counterKind {
	case "refreshes":
		err = m.Refreshes.WithLabelValues(label).Write(&out)
	case "errors":
		err = m.Errors.WithLabelValues(label).Write(&out)
	}
	require.NoError(t, err)
	return out.GetCounter().GetValue()
}

func TestSyncLoopRefreshesState(t *testing.T) {
	adapter := newFakeAdapter()
	adapter.account = lending.AccountData{
		TotalCollateral: big.NewInt(400),
		TotalDebt:       big.NewInt(100),
	}
	adapter.balances = []lending.ReserveBalance{
		{
			TokenAddress:      wbtcAddress,
			CollateralBalance: big.NewInt(5000),
			DebtBalance:       big.NewInt(0),
		},
		{
			TokenAddress:      daiAddress,
			CollateralBalance: big.NewInt(0),
			DebtBalance:       big.NewInt(700),
			VariableAPR:       0.042,
		},
	}

	syncMetrics := metrics.NewSyncMetrics("borrowd_test", "wallet-1")
	eng, _ := newTestEngine(t, adapter, &Options{
		Metrics:               syncMetrics,
		BalanceResyncInterval: time.Hour,
		LtvResyncInterval:     time.Hour,
		LoopDelay:             5 * time.Millisecond,
	})

	assert.Equal(t, 0.0, eng.SyncRatio())

	eng.Start()
	defer eng.Stop()
	assert.True(t, eng.IsRunning())

	require.Eventually(t, func() bool {
		return eng.SyncRatio() == 1
	}, time.Second, 5*time.Millisecond)

	assert.InDelta(t, 0.25, eng.LoanToValue(), 1e-9)

	collaterals := eng.Collaterals()
	require.Len(t, collaterals, 2)
	assert.Equal(t, "WBTC", collaterals[0].TokenID)
	assert.Equal(t, int64(5000), collaterals[0].NativeAmount.Int64())

	debts := eng.Debts()
	require.Len(t, debts, 2)
	assert.Equal(t, "DAI", debts[1].TokenID)
	assert.Equal(t, int64(700), debts[1].NativeAmount.Int64())
	assert.InDelta(t, 0.042, debts[1].APR, 1e-9)

	assert.GreaterOrEqual(t, counterValue(t, syncMetrics, "refreshes", refreshKindBalances), 1.0)
	assert.GreaterOrEqual(t, counterValue(t, syncMetrics, "refreshes", refreshKindLtv), 1.0)
}

func TestSyncLoopUnknownReservesSkipped(t *testing.T) {
	adapter := newFakeAdapter()
	adapter.balances = []lending.ReserveBalance{
		{
			// Not in the wallet's token table.
			TokenAddress:      aWbtcAddress,
			CollateralBalance: big.NewInt(1),
			DebtBalance:       big.NewInt(1),
		},
	}
	eng, _ := newTestEngine(t, adapter, nil)

	require.NoError(t, eng.refreshBalances(context.Background()))
	assert.Empty(t, eng.Collaterals())
	assert.Empty(t, eng.Debts())
	assert.Equal(t, 1.0, eng.SyncRatio())
}

func TestSyncLoopSurvivesErrors(t *testing.T) {
	adapter := newFakeAdapter()
	adapter.balancesErr = fmt.Errorf("rpc unavailable")
	adapter.accountErr = fmt.Errorf("rpc unavailable")

	syncMetrics := metrics.NewSyncMetrics("borrowd_test", "wallet-2")
	eng, _ := newTestEngine(t, adapter, &Options{
		Metrics:               syncMetrics,
		BalanceResyncInterval: time.Hour,
		LtvResyncInterval:     time.Hour,
		LoopDelay:             time.Millisecond,
	})

	eng.Start()
	defer eng.Stop()

	// Several failing iterations pass without killing the loop.
	require.Eventually(t, func() bool {
		return counterValue(t, syncMetrics, "errors", refreshKindBalances) >= 3
	}, time.Second, time.Millisecond)

	assert.True(t, eng.IsRunning())
	assert.Equal(t, 0.0, eng.SyncRatio())

	// A failed refresh never advances the cadence; recovery is picked up on
	// the very next pass.
	adapter.mu.Lock()
	adapter.balancesErr = nil
	adapter.accountErr = nil
	adapter.mu.Unlock()

	require.Eventually(t, func() bool {
		return eng.SyncRatio() == 1
	}, time.Second, time.Millisecond)
}

func TestSyncLoopHonorsCadence(t *testing.T) {
	adapter := newFakeAdapter()
	eng, _ := newTestEngine(t, adapter, &Options{
		BalanceResyncInterval: time.Hour,
		LtvResyncInterval:     time.Hour,
		LoopDelay:             time.Millisecond,
	})

	eng.Start()
	defer eng.Stop()

	require.Eventually(t, func() bool {
		return eng.SyncRatio() == 1
	}, time.Second, time.Millisecond)

	// Give the loop time for many more iterations, then confirm the hourly
	// cadences kept both refreshes at one call each.
	time.Sleep(50 * time.Millisecond)
	adapter.mu.Lock()
	defer adapter.mu.Unlock()
	assert.Equal(t, 1, adapter.balanceCalls)
	assert.Equal(t, 1, adapter.accountCalls)
}

func TestStartStopIdempotent(t *testing.T) {
	eng, _ := newTestEngine(t, newFakeAdapter(), &Options{LoopDelay: time.Millisecond})

	eng.Start()
	eng.Start()
	assert.True(t, eng.IsRunning())

	eng.Stop()
	eng.Stop()
	assert.False(t, eng.IsRunning())
}

package engine

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/michaelpento.lv/borrowd/types"
	bigmath "github.com/michaelpento.lv/borrowd/utils/math"
)

const (
	refreshKindLtv      = "ltv"
	refreshKindBalances = "balances"
)

// Start launches the background sync loop. Safe to call repeatedly.
func (e *BorrowEngine) Start() {
	e.runMu.Lock()
	defer e.runMu.Unlock()
	if e.running {
		return
	}
	e.running = true
	e.stopCh = make(chan struct{})
	go e.syncLoop(e.stopCh)
	e.logger.Info("Borrow engine started",
		zap.String("wallet", e.wallet.ID()),
		zap.Duration("balance_resync", e.balanceResyncInterval),
		zap.Duration("ltv_resync", e.ltvResyncInterval))
}

// Stop terminates the background sync loop. Safe to call repeatedly.
func (e *BorrowEngine) Stop() {
	e.runMu.Lock()
	defer e.runMu.Unlock()
	if !e.running {
		return
	}
	e.running = false
	close(e.stopCh)
	e.logger.Info("Borrow engine stopped", zap.String("wallet", e.wallet.ID()))
}

// IsRunning reports whether the sync loop is active.
func (e *BorrowEngine) IsRunning() bool {
	e.runMu.Lock()
	defer e.runMu.Unlock()
	return e.running
}

// syncLoop refreshes the loan-to-value ratio and the position balances on
// independent cadences. A failed refresh never advances its next-due
// timestamp and never stops the loop; the stale state simply survives until
// the next pass succeeds.
func (e *BorrowEngine) syncLoop(stop <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-stop
		cancel()
	}()

	var nextLtvSync, nextBalanceSync time.Time
	for {
		now := time.Now()

		if !now.Before(nextLtvSync) {
			if err := e.refreshLtv(ctx); err != nil {
				e.countRefreshError(refreshKindLtv)
				e.logger.Warn("Failed to refresh loan-to-value", zap.Error(err))
			} else {
				e.countRefresh(refreshKindLtv)
				nextLtvSync = now.Add(e.ltvResyncInterval)
			}
		}

		if !now.Before(nextBalanceSync) {
			if err := e.refreshBalances(ctx); err != nil {
				e.countRefreshError(refreshKindBalances)
				e.logger.Warn("Failed to refresh balances", zap.Error(err))
			} else {
				e.countRefresh(refreshKindBalances)
				nextBalanceSync = now.Add(e.balanceResyncInterval)
			}
		}

		select {
		case <-stop:
			return
		case <-time.After(e.loopDelay):
		}
	}
}

// refreshLtv recomputes the account-wide loan-to-value from the protocol's
// aggregate account data.
func (e *BorrowEngine) refreshLtv(ctx context.Context) error {
	started := time.Now()
	data, err := e.adapter.AccountData(ctx, e.walletAddress)
	if err != nil {
		return err
	}
	// An empty account has no meaningful ratio; report zero.
	ltv := bigmath.Ratio(data.TotalDebt, data.TotalCollateral)

	e.mu.Lock()
	e.loanToValue = ltv
	e.mu.Unlock()
	e.emit(KeyLoanToValue, ltv)

	if e.metrics != nil {
		e.metrics.LoanToValue.Set(ltv)
		e.metrics.RefreshLatency.Observe(time.Since(started).Seconds())
	}
	return nil
}

// refreshBalances pulls per-reserve collateral and debt balances and
// replaces the position slices wholesale. Reserves with no matching wallet
// token are skipped; the engine cannot label an asset it does not know.
func (e *BorrowEngine) refreshBalances(ctx context.Context) error {
	started := time.Now()
	balances, err := e.adapter.ReserveBalances(ctx, e.walletAddress)
	if err != nil {
		return err
	}

	collaterals := make([]types.BorrowCollateral, 0, len(balances))
	debts := make([]types.BorrowDebt, 0, len(balances))
	for _, balance := range balances {
		token, err := e.wallet.TokenByAddress(balance.TokenAddress)
		if err != nil {
			e.logger.Debug("Skipping unknown reserve token",
				zap.String("address", balance.TokenAddress.Hex()))
			continue
		}
		collaterals = append(collaterals, types.BorrowCollateral{
			TokenID:      token.TokenID,
			NativeAmount: balance.CollateralBalance,
		})
		debts = append(debts, types.BorrowDebt{
			TokenID:      token.TokenID,
			NativeAmount: balance.DebtBalance,
			APR:          balance.VariableAPR,
		})
	}

	e.mu.Lock()
	e.collaterals = collaterals
	e.debts = debts
	e.syncRatio = 1
	e.mu.Unlock()
	e.emit(KeyCollaterals, collaterals)
	e.emit(KeyDebts, debts)
	e.emit(KeySyncRatio, float64(1))

	if e.metrics != nil {
		e.metrics.SyncRatio.Set(1)
		e.metrics.RefreshLatency.Observe(time.Since(started).Seconds())
	}
	return nil
}

func (e *BorrowEngine) countRefresh(kind string) {
	if e.metrics != nil {
		e.metrics.Refreshes.WithLabelValues(kind).Inc()
	}
}

func (e *BorrowEngine) countRefreshError(kind string) {
	if e.metrics != nil {
		e.metrics.Errors.WithLabelValues(kind).Inc()
	}
}

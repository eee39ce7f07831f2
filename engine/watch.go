package engine

// Keys passed to change subscribers.
const (
	KeyCollaterals = "collaterals"
	KeyDebts       = "debts"
	KeyLoanToValue = "loanToValue"
	KeySyncRatio   = "syncRatio"
)

// ChangeFunc observes one state change. The value is the new state under the
// key: []types.BorrowCollateral, []types.BorrowDebt or float64.
type ChangeFunc func(key string, value interface{})

// Subscribe registers a change observer and returns its unsubscribe func.
// Observers are called outside the engine's state lock, so they may call
// back into the engine.
func (e *BorrowEngine) Subscribe(fn ChangeFunc) func() {
	e.watchMu.Lock()
	id := e.nextWatch
	e.nextWatch++
	e.watchers[id] = fn
	e.watchMu.Unlock()

	return func() {
		e.watchMu.Lock()
		delete(e.watchers, id)
		e.watchMu.Unlock()
	}
}

func (e *BorrowEngine) emit(key string, value interface{}) {
	e.watchMu.Lock()
	fns := make([]ChangeFunc, 0, len(e.watchers))
	for _, fn := range e.watchers {
		fns = append(fns, fn)
	}
	e.watchMu.Unlock()

	for _, fn := range fns {
		fn(key, value)
	}
}

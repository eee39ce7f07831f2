package action

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync/atomic"

	"github.com/michaelpento.lv/borrowd/lending"
	"github.com/michaelpento.lv/borrowd/types"
	"github.com/michaelpento.lv/borrowd/wallet"
)

var (
	// ErrMissingGasPrice is returned when a raw call carries no gas price.
	// Implicit fee estimation is unsafe for contract calls.
	ErrMissingGasPrice = errors.New("raw call is missing a gas price")
	// ErrMissingGasLimit is returned when a raw call carries no gas limit.
	ErrMissingGasLimit = errors.New("raw call is missing a gas limit")
	// ErrConsumed is returned when Approve is called more than once on the
	// same action. Re-broadcasting could double-spend.
	ErrConsumed = errors.New("action has already been approved")
)

// Action is the atomic unit of a pending blockchain operation. Dryrun
// simulates the action against a pending-transaction map without touching
// persistent state; Approve signs, broadcasts and persists, and is valid at
// most once.
type Action interface {
	NetworkFee() types.NetworkFee
	UnsignedTxs() []*types.UnsignedTx
	// Dryrun simulates the action. It must be idempotent and side-effect
	// free on persistent state. The pending map is never mutated.
	Dryrun(ctx context.Context, pending types.PendingTxMap) ([]types.BroadcastTx, error)
	// Approve signs, broadcasts and saves the action's transactions, then
	// runs any attached local state mutation. At most one call succeeds.
	Approve(ctx context.Context) ([]types.BroadcastTx, error)
}

// CallInfo ties one raw contract call to the wallet that will fund it.
type CallInfo struct {
	Call   *lending.RawCall
	Wallet wallet.Wallet
	// SpendToken is the asset moved by the call, nil for the native asset.
	SpendToken *wallet.Token
	// NativeAmount is the signed economic delta for transaction labeling.
	NativeAmount *big.Int
	Metadata     types.TxMetadata
}

type callAction struct {
	info     *CallInfo
	unsigned *types.UnsignedTx
	consumed atomic.Bool
}

// NewCall wraps one raw contract call into an approvable action. The fee is
// derived by building the spend once up front, so callers can quote it
// before the user commits.
func NewCall(ctx context.Context, info *CallInfo) (Action, error) {
	if info == nil || info.Call == nil {
		return nil, errors.New("call info is missing a raw call")
	}
	if info.Wallet == nil {
		return nil, errors.New("call info is missing a wallet")
	}
	if info.Call.GasPrice == nil || info.Call.GasPrice.Sign() <= 0 {
		return nil, ErrMissingGasPrice
	}
	if info.Call.GasLimit == 0 {
		return nil, ErrMissingGasLimit
	}

	unsigned, err := info.Wallet.MakeSpend(ctx, spendInfo(info, nil))
	if err != nil {
		return nil, fmt.Errorf("invalid transaction response: %w", err)
	}

	return &callAction{info: info, unsigned: unsigned}, nil
}

// NewCalls wraps a batch of raw calls, preserving order.
func NewCalls(ctx context.Context, infos []*CallInfo) ([]Action, error) {
	actions := make([]Action, 0, len(infos))
	for _, info := range infos {
		act, err := NewCall(ctx, info)
		if err != nil {
			return nil, err
		}
		actions = append(actions, act)
	}
	return actions, nil
}

func spendInfo(info *CallInfo, pendingTxs []*types.SignedTx) *wallet.SpendInfo {
	value := info.Call.Value
	if value == nil {
		value = big.NewInt(0)
	}
	return &wallet.SpendInfo{
		Token:        info.SpendToken,
		To:           info.Call.To,
		Value:        value,
		Data:         info.Call.Data,
		GasLimit:     info.Call.GasLimit,
		GasPrice:     info.Call.GasPrice,
		NativeAmount: info.NativeAmount,
		PendingTxs:   pendingTxs,
		Metadata:     info.Metadata,
	}
}

func (a *callAction) NetworkFee() types.NetworkFee {
	return a.unsigned.NetworkFee
}

func (a *callAction) UnsignedTxs() []*types.UnsignedTx {
	return []*types.UnsignedTx{a.unsigned}
}

func (a *callAction) Dryrun(ctx context.Context, pending types.PendingTxMap) ([]types.BroadcastTx, error) {
	w := a.info.Wallet
	unsigned, err := w.MakeSpend(ctx, spendInfo(a.info, pending[w.ID()]))
	if err != nil {
		return nil, fmt.Errorf("invalid transaction response: %w", err)
	}
	signed, err := w.SignTx(ctx, unsigned)
	if err != nil {
		return nil, err
	}
	return []types.BroadcastTx{{
		WalletID:   w.ID(),
		NetworkFee: unsigned.NetworkFee,
		Tx:         signed,
	}}, nil
}

func (a *callAction) Approve(ctx context.Context) ([]types.BroadcastTx, error) {
	if !a.consumed.CompareAndSwap(false, true) {
		return nil, ErrConsumed
	}
	w := a.info.Wallet
	unsigned, err := w.MakeSpend(ctx, spendInfo(a.info, nil))
	if err != nil {
		return nil, fmt.Errorf("invalid transaction response: %w", err)
	}
	signed, err := w.SignTx(ctx, unsigned)
	if err != nil {
		return nil, err
	}
	if err := w.BroadcastTx(ctx, signed); err != nil {
		return nil, err
	}
	if err := w.SaveTx(ctx, signed); err != nil {
		return nil, err
	}
	return []types.BroadcastTx{{
		WalletID:   w.ID(),
		NetworkFee: unsigned.NetworkFee,
		Tx:         signed,
	}}, nil
}

type sideEffectAction struct {
	fn       func(ctx context.Context) error
	consumed atomic.Bool
}

// NewSideEffect builds a degenerate action with no transactions and a
// sentinel fee. It exists so a local state mutation can ride along at the
// end of a composed chain and only run when the chain is actually approved.
func NewSideEffect(fn func(ctx context.Context) error) Action {
	return &sideEffectAction{fn: fn}
}

func (a *sideEffectAction) NetworkFee() types.NetworkFee {
	return types.NetworkFee{CurrencyCode: types.SideEffectCurrency, NativeAmount: big.NewInt(0)}
}

func (a *sideEffectAction) UnsignedTxs() []*types.UnsignedTx { return nil }

func (a *sideEffectAction) Dryrun(ctx context.Context, pending types.PendingTxMap) ([]types.BroadcastTx, error) {
	return []types.BroadcastTx{}, nil
}

func (a *sideEffectAction) Approve(ctx context.Context) ([]types.BroadcastTx, error) {
	if !a.consumed.CompareAndSwap(false, true) {
		return nil, ErrConsumed
	}
	if err := a.fn(ctx); err != nil {
		return nil, err
	}
	return []types.BroadcastTx{}, nil
}

package action

import (
	"context"
	"fmt"
	"math/big"

	"github.com/michaelpento.lv/borrowd/types"
)

type composedAction struct {
	actions  []Action
	fee      types.NetworkFee
	unsigned []*types.UnsignedTx
}

// Compose merges actions into one. The composed fee is the sum of the
// component fees (side-effect sentinels excluded), the transactions keep
// input order, dry-runs chain each component's simulated transactions into
// the next component's pending map, and approval runs strictly in sequence.
//
// Composition fails when two real actions quote fees in different
// currencies, since unlike units cannot be summed.
func Compose(actions ...Action) (Action, error) {
	fee := types.NetworkFee{
		CurrencyCode: types.SideEffectCurrency,
		NativeAmount: big.NewInt(0),
	}
	var unsigned []*types.UnsignedTx
	for _, act := range actions {
		actFee := act.NetworkFee()
		if !actFee.IsSideEffect() {
			if fee.IsSideEffect() {
				fee = types.NetworkFee{
					CurrencyCode: actFee.CurrencyCode,
					NativeAmount: new(big.Int).Set(actFee.NativeAmount),
				}
			} else {
				if fee.CurrencyCode != actFee.CurrencyCode {
					return nil, fmt.Errorf(
						"cannot compose actions with mismatched fee currencies %s and %s",
						fee.CurrencyCode, actFee.CurrencyCode)
				}
				fee.NativeAmount = new(big.Int).Add(fee.NativeAmount, actFee.NativeAmount)
			}
		}
		unsigned = append(unsigned, act.UnsignedTxs()...)
	}
	return &composedAction{actions: actions, fee: fee, unsigned: unsigned}, nil
}

func (c *composedAction) NetworkFee() types.NetworkFee { return c.fee }

func (c *composedAction) UnsignedTxs() []*types.UnsignedTx { return c.unsigned }

// Dryrun simulates each component in order against a locally accumulating
// copy of the pending map. Appending each component's simulated transactions
// before dry-running the next is what lets transaction N see the balance
// effects of transactions 1..N-1 even though none have been broadcast.
func (c *composedAction) Dryrun(ctx context.Context, pending types.PendingTxMap) ([]types.BroadcastTx, error) {
	local := pending.Clone()
	var out []types.BroadcastTx
	for _, act := range c.actions {
		txs, err := act.Dryrun(ctx, local)
		if err != nil {
			return nil, err
		}
		for _, tx := range txs {
			local.Append(tx.WalletID, tx.Tx)
		}
		out = append(out, txs...)
	}
	return out, nil
}

// Approve executes components strictly in order. Protocol operations are
// often interdependent (an allowance approval must land before the spend
// that relies on it), so no parallelism is allowed here.
func (c *composedAction) Approve(ctx context.Context) ([]types.BroadcastTx, error) {
	var out []types.BroadcastTx
	for _, act := range c.actions {
		txs, err := act.Approve(ctx)
		if err != nil {
			return nil, err
		}
		out = append(out, txs...)
	}
	return out, nil
}

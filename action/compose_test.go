package action

import (
	"context"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/michaelpento.lv/borrowd/types"
)

func TestComposeFeeSumming(t *testing.T) {
	ctx := context.Background()
	w := newFakeWallet("wallet-1")

	first, err := NewCall(ctx, &CallInfo{Call: rawCall(), Wallet: w})
	require.NoError(t, err)
	second, err := NewCall(ctx, &CallInfo{Call: rawCall(), Wallet: w})
	require.NoError(t, err)
	mutate := NewSideEffect(func(ctx context.Context) error { return nil })

	composed, err := Compose(first, second, mutate)
	require.NoError(t, err)

	// Two real fees of 100 each; the side-effect sentinel contributes
	// nothing.
	assert.Equal(t, "ETH", composed.NetworkFee().CurrencyCode)
	assert.Equal(t, int64(200), composed.NetworkFee().NativeAmount.Int64())
	assert.Len(t, composed.UnsignedTxs(), 2)
}

func TestComposeMismatchedFeeCurrencies(t *testing.T) {
	ctx := context.Background()
	ethWallet := newFakeWallet("wallet-1")
	maticWallet := newFakeWallet("wallet-2")

	first, err := NewCall(ctx, &CallInfo{Call: rawCall(), Wallet: ethWallet})
	require.NoError(t, err)
	second, err := NewCall(ctx, &CallInfo{Call: rawCall(), Wallet: maticWallet})
	require.NoError(t, err)

	// Patch the second action's quoted currency to simulate a cross-network
	// composition.
	second.(*callAction).unsigned.NetworkFee.CurrencyCode = "MATIC"

	_, err = Compose(first, second)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mismatched fee currencies")
}

func TestComposeOnlySideEffects(t *testing.T) {
	mutate := NewSideEffect(func(ctx context.Context) error { return nil })
	composed, err := Compose(mutate)
	require.NoError(t, err)
	assert.True(t, composed.NetworkFee().IsSideEffect())
}

func TestComposedDryrunChainsPendingTxs(t *testing.T) {
	ctx := context.Background()
	w := newFakeWallet("wallet-1")
	w.feePerPending = 10

	first, err := NewCall(ctx, &CallInfo{Call: rawCall(), Wallet: w})
	require.NoError(t, err)
	second, err := NewCall(ctx, &CallInfo{Call: rawCall(), Wallet: w})
	require.NoError(t, err)
	third, err := NewCall(ctx, &CallInfo{Call: rawCall(), Wallet: w})
	require.NoError(t, err)

	composed, err := Compose(first, second, third)
	require.NoError(t, err)

	pending := types.PendingTxMap{}
	txs, err := composed.Dryrun(ctx, pending)
	require.NoError(t, err)
	require.Len(t, txs, 3)

	// Each transaction saw one more pending transaction than the last.
	assert.Equal(t, int64(100), txs[0].NetworkFee.NativeAmount.Int64())
	assert.Equal(t, int64(110), txs[1].NetworkFee.NativeAmount.Int64())
	assert.Equal(t, int64(120), txs[2].NetworkFee.NativeAmount.Int64())

	// The caller's map stays empty; the chain accumulated in a local copy.
	assert.Empty(t, pending)
	assert.Empty(t, w.broadcast)
}

func TestComposedDryrunSeedsFromCallerMap(t *testing.T) {
	ctx := context.Background()
	w := newFakeWallet("wallet-1")
	w.feePerPending = 10

	act, err := NewCall(ctx, &CallInfo{Call: rawCall(), Wallet: w})
	require.NoError(t, err)
	composed, err := Compose(act)
	require.NoError(t, err)

	pending := types.PendingTxMap{
		"wallet-1": {
			{TxID: "prior-1", WalletID: "wallet-1"},
			{TxID: "prior-2", WalletID: "wallet-1"},
		},
	}
	txs, err := composed.Dryrun(ctx, pending)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, int64(120), txs[0].NetworkFee.NativeAmount.Int64())
	assert.Len(t, pending["wallet-1"], 2)
}

func TestComposedApproveRunsInOrder(t *testing.T) {
	ctx := context.Background()
	w := newFakeWallet("wallet-1")

	var order []string
	first, err := NewCall(ctx, &CallInfo{Call: rawCall(), Wallet: w})
	require.NoError(t, err)
	mutate := NewSideEffect(func(ctx context.Context) error {
		order = append(order, "mutate")
		return nil
	})

	composed, err := Compose(first, mutate)
	require.NoError(t, err)

	txs, err := composed.Approve(ctx)
	require.NoError(t, err)
	assert.Len(t, txs, 1)
	assert.Len(t, w.broadcast, 1)
	assert.Equal(t, []string{"mutate"}, order)

	// A consumed chain cannot be replayed.
	_, err = composed.Approve(ctx)
	assert.ErrorIs(t, err, ErrConsumed)
	assert.Len(t, w.broadcast, 1)
	assert.Equal(t, []string{"mutate"}, order)
}

func TestComposedFeeIsolatedFromComponents(t *testing.T) {
	ctx := context.Background()
	w := newFakeWallet("wallet-1")

	act, err := NewCall(ctx, &CallInfo{Call: rawCall(), Wallet: w})
	require.NoError(t, err)
	composed, err := Compose(act)
	require.NoError(t, err)

	// Mutating the composed fee amount must not corrupt the component.
	composed.NetworkFee().NativeAmount.Add(composed.NetworkFee().NativeAmount, big.NewInt(5))
	assert.Equal(t, int64(100), act.NetworkFee().NativeAmount.Int64())
}

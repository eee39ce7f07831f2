package types

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPendingTxMapClone(t *testing.T) {
	original := PendingTxMap{
		"wallet-1": {{TxID: "tx-1", WalletID: "wallet-1"}},
	}

	clone := original.Clone()
	clone.Append("wallet-1", &SignedTx{TxID: "tx-2", WalletID: "wallet-1"})
	clone.Append("wallet-2", &SignedTx{TxID: "tx-3", WalletID: "wallet-2"})

	// Appending to the clone never leaks back into the original.
	assert.Len(t, original["wallet-1"], 1)
	assert.NotContains(t, original, "wallet-2")
	assert.Len(t, clone["wallet-1"], 2)
	assert.Len(t, clone["wallet-2"], 1)
}

func TestNetworkFeeIsSideEffect(t *testing.T) {
	assert.True(t, NetworkFee{CurrencyCode: SideEffectCurrency, NativeAmount: big.NewInt(0)}.IsSideEffect())
	assert.False(t, NetworkFee{CurrencyCode: "ETH", NativeAmount: big.NewInt(1)}.IsSideEffect())
}

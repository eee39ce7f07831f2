package types

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// SideEffectCurrency is the sentinel fee currency code used by actions that
// carry no real on-chain fee (pure local state mutations).
const SideEffectCurrency = "NONE"

// NetworkFee is a fee denominated in a specific asset, in that asset's
// smallest unit.
type NetworkFee struct {
	CurrencyCode string
	NativeAmount *big.Int
}

// IsSideEffect reports whether the fee belongs to a side-effect action
// rather than a real transaction.
func (f NetworkFee) IsSideEffect() bool {
	return f.CurrencyCode == SideEffectCurrency
}

// TxMetadata labels a transaction for wallet persistence.
type TxMetadata struct {
	Name     string
	Category string
	Notes    string
}

// UnsignedTx is a spendable transaction built by a wallet from a raw
// contract call. Gas price and limit are always explicit; wallets must not
// fall back to implicit fee estimation for contract calls.
type UnsignedTx struct {
	WalletID   string
	To         common.Address
	Value      *big.Int
	Data       []byte
	GasLimit   uint64
	GasPrice   *big.Int
	NetworkFee NetworkFee
	Metadata   TxMetadata
}

// SignedTx is a signed but possibly not-yet-broadcast transaction.
type SignedTx struct {
	TxID       string
	WalletID   string
	Raw        []byte
	NetworkFee NetworkFee
}

// BroadcastTx is the result of broadcasting (or simulating the broadcast of)
// one transaction.
type BroadcastTx struct {
	WalletID   string
	NetworkFee NetworkFee
	Tx         *SignedTx
}

// PendingTxMap maps a wallet id to the ordered list of signed transactions
// that have been simulated but not yet broadcast. Threading this map through
// sequential dry-runs lets transaction N account for the balance effects of
// transactions 1..N-1.
type PendingTxMap map[string][]*SignedTx

// Clone returns a copy safe to append to without mutating the original.
// The transaction lists are copied shallowly; SignedTx values are never
// mutated after creation.
func (m PendingTxMap) Clone() PendingTxMap {
	out := make(PendingTxMap, len(m))
	for walletID, txs := range m {
		out[walletID] = append([]*SignedTx(nil), txs...)
	}
	return out
}

// Append adds txs to the wallet's pending list.
func (m PendingTxMap) Append(walletID string, txs ...*SignedTx) {
	m[walletID] = append(m[walletID], txs...)
}

// BorrowCollateral is one deposited asset and its balance in the asset's
// smallest unit. An empty TokenID means the network's native asset.
type BorrowCollateral struct {
	TokenID      string
	NativeAmount *big.Int
}

// BorrowDebt is one borrowed asset, its outstanding balance, and the current
// variable interest rate.
type BorrowDebt struct {
	TokenID      string
	NativeAmount *big.Int
	APR          float64
}

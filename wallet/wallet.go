package wallet

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/michaelpento.lv/borrowd/types"
)

// Token describes an asset known to a wallet.
type Token struct {
	TokenID         string
	CurrencyCode    string
	DisplayName     string
	ContractAddress common.Address
	// Multiplier converts one whole token into smallest units (10^decimals).
	Multiplier *big.Int
}

// SpendInfo describes one spend to be built by a wallet. GasPrice and
// GasLimit are required; contract calls must never rely on the wallet's
// implicit fee estimation.
type SpendInfo struct {
	// Token is the asset being spent, nil for the native asset.
	Token    *Token
	To       common.Address
	Value    *big.Int
	Data     []byte
	GasLimit uint64
	GasPrice *big.Int
	// NativeAmount is the signed economic delta of the spend from the
	// wallet's point of view, used for transaction labeling only.
	NativeAmount *big.Int
	// PendingTxs are signed-but-unbroadcast transactions the wallet must
	// account for when estimating fees and spendable balance.
	PendingTxs []*types.SignedTx
	Metadata   types.TxMetadata
}

// Wallet is the currency-wallet surface consumed by the borrow engine.
// Implementations live outside this module.
type Wallet interface {
	ID() string
	// PluginID identifies the currency plugin (network) backing the wallet.
	PluginID() string
	ReceiveAddress(ctx context.Context) (common.Address, error)
	// MakeSpend builds an unsigned transaction, deriving its network fee
	// consistently with the supplied pending transactions.
	MakeSpend(ctx context.Context, info *SpendInfo) (*types.UnsignedTx, error)
	SignTx(ctx context.Context, tx *types.UnsignedTx) (*types.SignedTx, error)
	BroadcastTx(ctx context.Context, tx *types.SignedTx) error
	SaveTx(ctx context.Context, tx *types.SignedTx) error

	// Token resolves a wallet-level token id to its metadata.
	Token(tokenID string) (*Token, error)
	// TokenByAddress resolves a protocol contract address back to a token.
	TokenByAddress(addr common.Address) (*Token, error)
}

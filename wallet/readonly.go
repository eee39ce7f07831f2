package wallet

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/michaelpento.lv/borrowd/types"
)

// ErrReadOnly is returned by every spending method of a read-only wallet.
var ErrReadOnly = errors.New("wallet is read-only")

// ReadOnly is a watch-only wallet around a bare address and a static token
// table. It supports everything the sync loop and the APR/LTV read paths
// need; spending methods fail with ErrReadOnly.
type ReadOnly struct {
	id       string
	pluginID string
	address  common.Address
	tokens   map[string]*Token
}

// NewReadOnly builds a watch-only wallet. The tokens map is keyed by token id.
func NewReadOnly(id, pluginID string, address common.Address, tokens map[string]*Token) *ReadOnly {
	if tokens == nil {
		tokens = map[string]*Token{}
	}
	return &ReadOnly{id: id, pluginID: pluginID, address: address, tokens: tokens}
}

func (w *ReadOnly) ID() string       { return w.id }
func (w *ReadOnly) PluginID() string { return w.pluginID }

func (w *ReadOnly) ReceiveAddress(ctx context.Context) (common.Address, error) {
	return w.address, nil
}

func (w *ReadOnly) MakeSpend(ctx context.Context, info *SpendInfo) (*types.UnsignedTx, error) {
	return nil, ErrReadOnly
}

func (w *ReadOnly) SignTx(ctx context.Context, tx *types.UnsignedTx) (*types.SignedTx, error) {
	return nil, ErrReadOnly
}

func (w *ReadOnly) BroadcastTx(ctx context.Context, tx *types.SignedTx) error {
	return ErrReadOnly
}

func (w *ReadOnly) SaveTx(ctx context.Context, tx *types.SignedTx) error {
	return ErrReadOnly
}

func (w *ReadOnly) Token(tokenID string) (*Token, error) {
	token := w.tokens[tokenID]
	if token == nil {
		return nil, fmt.Errorf("unable to find token on wallet for %s tokenId", tokenID)
	}
	return token, nil
}

func (w *ReadOnly) TokenByAddress(addr common.Address) (*Token, error) {
	want := strings.ToLower(addr.Hex())
	for _, token := range w.tokens {
		if strings.ToLower(token.ContractAddress.Hex()) == want {
			return token, nil
		}
	}
	return nil, fmt.Errorf("unable to find token for contract address %s", addr.Hex())
}

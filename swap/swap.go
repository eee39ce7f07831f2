package swap

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Side selects which leg of the swap the amount refers to.
type Side int

const (
	// SideSell quotes for a fixed source amount.
	SideSell Side = iota
	// SideBuy quotes for a fixed destination amount.
	SideBuy
)

func (s Side) String() string {
	if s == SideBuy {
		return "BUY"
	}
	return "SELL"
}

// QuoteRequest asks an aggregator for a route between two tokens.
type QuoteRequest struct {
	FromToken   common.Address
	ToToken     common.Address
	Amount      *big.Int
	Side        Side
	UserAddress common.Address
}

// Quote is a priced route plus the calldata to execute it.
type Quote struct {
	// SrcAmount is the source amount the route consumes.
	SrcAmount *big.Int
	// DestAmount is the destination amount the route produces.
	DestAmount *big.Int
	// Target is the aggregator contract the calldata must be sent to.
	Target common.Address
	// Calldata executes the swap when passed to Target.
	Calldata []byte
}

// Quoter fetches executable swap quotes from an aggregator.
type Quoter interface {
	FetchQuote(ctx context.Context, req *QuoteRequest) (*Quote, error)
}

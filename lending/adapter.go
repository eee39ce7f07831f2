package lending

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// ReserveBalance is one reserve token's position for a user: the deposited
// (yield-bearing) balance, the variable-rate debt balance, and the reserve's
// current variable APR.
type ReserveBalance struct {
	TokenAddress      common.Address
	CollateralBalance *big.Int
	DebtBalance       *big.Int
	VariableAPR       float64
}

// AprRates holds a reserve's current interest rates as fractions (0.05 = 5%).
type AprRates struct {
	VariableAPR float64
	StableAPR   float64
}

// AccountData is a user's aggregate position in the protocol's common
// valuation unit (the network's base asset).
type AccountData struct {
	TotalCollateral *big.Int
	TotalDebt       *big.Int
}

// RawCall is an unsigned contract call ready to be wrapped into a wallet
// spend. GasLimit and GasPrice are always populated by the adapter; callers
// fail fast when either is missing.
type RawCall struct {
	To       common.Address
	Data     []byte
	Value    *big.Int
	GasLimit uint64
	GasPrice *big.Int
}

// SwapAndRepayParams parameterizes the protocol's swap-and-repay entrypoint
// used for collateral-funded repayment.
type SwapAndRepayParams struct {
	CollateralAsset common.Address
	DebtAsset       common.Address
	// MaxCollateralAmount is the swap source amount including slippage.
	MaxCollateralAmount *big.Int
	// DebtRepayAmount is the exact debt amount bought by the swap.
	DebtRepayAmount *big.Int
	// FullRepay selects the protocol's close-entire-principal behavior,
	// which tolerates the interest accrued between quoting and inclusion.
	// The exact contract semantics are protocol-specific and owned by the
	// adapter.
	FullRepay bool
	// SwapCalldata and SwapTarget come from the swap aggregator quote.
	SwapCalldata []byte
	SwapTarget   common.Address
	GasPrice     *big.Int
}

// Adapter wraps one lending protocol deployment on one network. It exposes
// read paths for reserve balances, rates, account valuation and prices, and
// raw unsigned-call builders for every mutating protocol operation.
//
// Adapters must be safe for concurrent use. Callers treat every method as
// fallible; the sync loop retries, mutators surface errors to their caller.
type Adapter interface {
	// ReserveBalances returns the user's position in every reserve token.
	ReserveBalances(ctx context.Context, owner common.Address) ([]ReserveBalance, error)
	// AprRates returns the current rates for one reserve token.
	AprRates(ctx context.Context, token common.Address) (AprRates, error)
	// AccountData returns the user's aggregate collateral and debt values.
	AccountData(ctx context.Context, owner common.Address) (AccountData, error)
	// AssetPrice returns a token's price in the common valuation unit,
	// scaled to the unit's smallest denomination.
	AssetPrice(ctx context.Context, token common.Address) (*big.Int, error)
	// Allowance returns the amount spender may draw from owner's token.
	Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error)
	// CollateralTokenAddress resolves a reserve token to its yield-bearing
	// representation (the token actually held as collateral).
	CollateralTokenAddress(ctx context.Context, token common.Address) (common.Address, error)
	// GasPrice returns the gas price to use for protocol calls.
	GasPrice(ctx context.Context) (*big.Int, error)

	// PoolAddress is the spender for deposit/repay allowances.
	PoolAddress() common.Address
	// RepayAdapterAddress is the spender for swap-and-repay allowances.
	RepayAdapterAddress() common.Address

	ApproveCall(token, spender common.Address, amount, gasPrice *big.Int) (*RawCall, error)
	DepositCall(asset common.Address, amount *big.Int, onBehalfOf common.Address, gasPrice *big.Int) (*RawCall, error)
	WithdrawCall(asset common.Address, amount *big.Int, to common.Address, gasPrice *big.Int) (*RawCall, error)
	BorrowCall(asset common.Address, amount *big.Int, onBehalfOf common.Address, gasPrice *big.Int) (*RawCall, error)
	RepayCall(asset common.Address, amount *big.Int, onBehalfOf common.Address, gasPrice *big.Int) (*RawCall, error)
	SwapAndRepayCall(params *SwapAndRepayParams) (*RawCall, error)
}

// MaxAmount is the protocol sentinel meaning "the entire balance".
var MaxAmount = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

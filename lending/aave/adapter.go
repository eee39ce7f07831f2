package aave

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	lru "github.com/hashicorp/golang-lru"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/michaelpento.lv/borrowd/gas"
	"github.com/michaelpento.lv/borrowd/lending"
	"github.com/michaelpento.lv/borrowd/utils/metrics"
)

const (
	// variableRateMode selects variable-rate debt for borrow and repay.
	variableRateMode = 2
	referralCode     = 0

	// fullRepayCalldataOffset is the byte offset of the destination amount
	// word inside Augustus buy calldata. Passing it tells the repay adapter
	// to patch the bought amount up to the whole outstanding debt.
	fullRepayCalldataOffset = 164

	// rayUnit scales Aave interest rates (1e27 = 100%).
	rayUnit = 1e27

	aTokenCacheSize = 128

	defaultApproveGasLimit   = 500000
	defaultPoolGasLimit      = 800000
	defaultSwapRepayGasLimit = 1800000
	defaultRateLimit         = 20
	defaultRateBurst         = 5
	defaultGasPriceMaxAge    = 5 * time.Second
)

// abi argument types for the paraswapData envelope.
var (
	abiBytes, _   = abi.NewType("bytes", "", nil)
	abiAddress, _ = abi.NewType("address", "", nil)

	paraswapDataArgs = abi.Arguments{
		{Type: abiBytes},
		{Type: abiAddress},
	}
)

// permitSignature mirrors the repay adapter's permit tuple. The adapter
// always sends the zero permit; allowances are granted by explicit approvals.
type permitSignature struct {
	Amount   *big.Int
	Deadline *big.Int
	V        uint8
	R        [32]byte
	S        [32]byte
}

func zeroPermit() permitSignature {
	return permitSignature{Amount: big.NewInt(0), Deadline: big.NewInt(0)}
}

// EthClient is the RPC surface the adapter needs. *ethclient.Client
// satisfies it.
type EthClient interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
}

// Config holds one Aave V2 deployment's contract addresses and call tuning.
type Config struct {
	PoolAddress         common.Address
	DataProviderAddress common.Address
	PriceOracleAddress  common.Address
	RepayAdapterAddress common.Address

	ApproveGasLimit   uint64
	PoolGasLimit      uint64
	SwapRepayGasLimit uint64

	// RateLimit caps RPC calls per second; RateBurst is the burst size.
	RateLimit float64
	RateBurst int
}

func (c *Config) withDefaults() *Config {
	out := *c
	if out.ApproveGasLimit == 0 {
		out.ApproveGasLimit = defaultApproveGasLimit
	}
	if out.PoolGasLimit == 0 {
		out.PoolGasLimit = defaultPoolGasLimit
	}
	if out.SwapRepayGasLimit == 0 {
		out.SwapRepayGasLimit = defaultSwapRepayGasLimit
	}
	if out.RateLimit <= 0 {
		out.RateLimit = defaultRateLimit
	}
	if out.RateBurst <= 0 {
		out.RateBurst = defaultRateBurst
	}
	return &out
}

// Adapter implements lending.Adapter against an Aave V2 deployment.
type Adapter struct {
	client  EthClient
	config  *Config
	logger  *zap.Logger
	gas     *gas.Estimator
	limiter *rate.Limiter
	metrics *metrics.AdapterMetrics

	poolABI         abi.ABI
	erc20ABI        abi.ABI
	dataProviderABI abi.ABI
	oracleABI       abi.ABI
	repayABI        abi.ABI

	// aTokens caches the immutable reserve-to-aToken mapping.
	aTokens *lru.Cache
}

// NewAdapter creates an Aave V2 adapter. adapterMetrics may be nil.
func NewAdapter(client EthClient, config *Config, logger *zap.Logger, adapterMetrics *metrics.AdapterMetrics) (*Adapter, error) {
	if client == nil {
		return nil, fmt.Errorf("ethclient cannot be nil")
	}
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	config = config.withDefaults()

	poolABI, err := abi.JSON(strings.NewReader(lendingPoolABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse lending pool ABI: %w", err)
	}
	tokenABI, err := abi.JSON(strings.NewReader(erc20ABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse ERC20 ABI: %w", err)
	}
	providerABI, err := abi.JSON(strings.NewReader(dataProviderABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse data provider ABI: %w", err)
	}
	oracleABI, err := abi.JSON(strings.NewReader(priceOracleABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse price oracle ABI: %w", err)
	}
	repayABI, err := abi.JSON(strings.NewReader(repayAdapterABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse repay adapter ABI: %w", err)
	}

	estimator, err := gas.NewEstimator(client, defaultGasPriceMaxAge, logger)
	if err != nil {
		return nil, err
	}
	aTokens, err := lru.New(aTokenCacheSize)
	if err != nil {
		return nil, err
	}

	return &Adapter{
		client:          client,
		config:          config,
		logger:          logger,
		gas:             estimator,
		limiter:         rate.NewLimiter(rate.Limit(config.RateLimit), config.RateBurst),
		metrics:         adapterMetrics,
		poolABI:         poolABI,
		erc20ABI:        tokenABI,
		dataProviderABI: providerABI,
		oracleABI:       oracleABI,
		repayABI:        repayABI,
		aTokens:         aTokens,
	}, nil
}

// PoolAddress is the spender for deposit and repay allowances.
func (a *Adapter) PoolAddress() common.Address { return a.config.PoolAddress }

// RepayAdapterAddress is the spender for swap-and-repay allowances.
func (a *Adapter) RepayAdapterAddress() common.Address { return a.config.RepayAdapterAddress }

// GasPrice returns a recent suggested gas price.
func (a *Adapter) GasPrice(ctx context.Context) (*big.Int, error) {
	return a.gas.GasPrice(ctx)
}

//
// Read paths
//

// ReserveBalances walks the pool's reserve list and returns the owner's
// position in every reserve.
func (a *Adapter) ReserveBalances(ctx context.Context, owner common.Address) ([]lending.ReserveBalance, error) {
	reserves, err := a.reservesList(ctx)
	if err != nil {
		return nil, err
	}

	balances := make([]lending.ReserveBalance, 0, len(reserves))
	for _, reserve := range reserves {
		collateral, variableDebt, err := a.userReserveData(ctx, reserve, owner)
		if err != nil {
			return nil, err
		}
		// The rate lookup is an extra call per reserve; only debts need it.
		apr := 0.0
		if variableDebt.Sign() > 0 {
			rates, err := a.AprRates(ctx, reserve)
			if err != nil {
				return nil, err
			}
			apr = rates.VariableAPR
		}
		balances = append(balances, lending.ReserveBalance{
			TokenAddress:      reserve,
			CollateralBalance: collateral,
			DebtBalance:       variableDebt,
			VariableAPR:       apr,
		})
	}
	return balances, nil
}

// AprRates returns the reserve's current rates as fractions.
func (a *Adapter) AprRates(ctx context.Context, token common.Address) (lending.AprRates, error) {
	out, err := a.call(ctx, "getReserveData", a.dataProviderABI, a.config.DataProviderAddress, token)
	if err != nil {
		return lending.AprRates{}, err
	}
	variableRate, ok := out[4].(*big.Int)
	if !ok {
		return lending.AprRates{}, fmt.Errorf("unexpected variable rate type in reserve data")
	}
	stableRate, ok := out[5].(*big.Int)
	if !ok {
		return lending.AprRates{}, fmt.Errorf("unexpected stable rate type in reserve data")
	}
	return lending.AprRates{
		VariableAPR: rayToFraction(variableRate),
		StableAPR:   rayToFraction(stableRate),
	}, nil
}

// AccountData returns the owner's aggregate collateral and debt valued in
// the network's base asset.
func (a *Adapter) AccountData(ctx context.Context, owner common.Address) (lending.AccountData, error) {
	out, err := a.call(ctx, "getUserAccountData", a.poolABI, a.config.PoolAddress, owner)
	if err != nil {
		return lending.AccountData{}, err
	}
	totalCollateral, ok := out[0].(*big.Int)
	if !ok {
		return lending.AccountData{}, fmt.Errorf("unexpected collateral type in account data")
	}
	totalDebt, ok := out[1].(*big.Int)
	if !ok {
		return lending.AccountData{}, fmt.Errorf("unexpected debt type in account data")
	}
	return lending.AccountData{
		TotalCollateral: totalCollateral,
		TotalDebt:       totalDebt,
	}, nil
}

// AssetPrice returns the oracle price of a token in the base asset's
// smallest denomination.
func (a *Adapter) AssetPrice(ctx context.Context, token common.Address) (*big.Int, error) {
	out, err := a.call(ctx, "getAssetPrice", a.oracleABI, a.config.PriceOracleAddress, token)
	if err != nil {
		return nil, err
	}
	price, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected price type in oracle response")
	}
	return price, nil
}

// Allowance returns what spender may currently draw from owner's token.
func (a *Adapter) Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error) {
	out, err := a.call(ctx, "allowance", a.erc20ABI, token, owner, spender)
	if err != nil {
		return nil, err
	}
	allowance, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected allowance type in ERC20 response")
	}
	return allowance, nil
}

// CollateralTokenAddress resolves a reserve to its aToken. The mapping is
// immutable, so results are cached.
func (a *Adapter) CollateralTokenAddress(ctx context.Context, token common.Address) (common.Address, error) {
	if cached, ok := a.aTokens.Get(token); ok {
		return cached.(common.Address), nil
	}
	out, err := a.call(ctx, "getReserveTokensAddresses", a.dataProviderABI, a.config.DataProviderAddress, token)
	if err != nil {
		return common.Address{}, err
	}
	aToken, ok := out[0].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("unexpected aToken type in reserve tokens response")
	}
	a.aTokens.Add(token, aToken)
	return aToken, nil
}

func (a *Adapter) reservesList(ctx context.Context) ([]common.Address, error) {
	out, err := a.call(ctx, "getReservesList", a.poolABI, a.config.PoolAddress)
	if err != nil {
		return nil, err
	}
	reserves, ok := out[0].([]common.Address)
	if !ok {
		return nil, fmt.Errorf("unexpected reserves list type")
	}
	return reserves, nil
}

func (a *Adapter) userReserveData(ctx context.Context, reserve, owner common.Address) (collateral, variableDebt *big.Int, err error) {
	out, err := a.call(ctx, "getUserReserveData", a.dataProviderABI, a.config.DataProviderAddress, reserve, owner)
	if err != nil {
		return nil, nil, err
	}
	collateral, ok := out[0].(*big.Int)
	if !ok {
		return nil, nil, fmt.Errorf("unexpected aToken balance type in user reserve data")
	}
	variableDebt, ok = out[2].(*big.Int)
	if !ok {
		return nil, nil, fmt.Errorf("unexpected variable debt type in user reserve data")
	}
	return collateral, variableDebt, nil
}

// call packs, rate-limits, executes and unpacks one eth_call.
func (a *Adapter) call(ctx context.Context, method string, contractABI abi.ABI, to common.Address, args ...interface{}) ([]interface{}, error) {
	started := time.Now()
	data, err := contractABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s: %w", method, err)
	}

	if err := a.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	if a.metrics != nil {
		a.metrics.Calls.WithLabelValues(method).Inc()
	}

	result, err := a.client.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if a.metrics != nil {
		a.metrics.CallLatency.Observe(time.Since(started).Seconds())
	}
	if err != nil {
		if a.metrics != nil {
			a.metrics.Errors.WithLabelValues(method).Inc()
		}
		return nil, fmt.Errorf("%s call failed: %w", method, err)
	}

	out, err := contractABI.Unpack(method, result)
	if err != nil {
		if a.metrics != nil {
			a.metrics.Errors.WithLabelValues(method).Inc()
		}
		return nil, fmt.Errorf("failed to unpack %s response: %w", method, err)
	}
	return out, nil
}

// rayToFraction converts a ray-scaled rate (1e27 = 100%) to a fraction.
func rayToFraction(ray *big.Int) float64 {
	f, _ := new(big.Float).Quo(new(big.Float).SetInt(ray), big.NewFloat(rayUnit)).Float64()
	return f
}

//
// Call builders
//

// ApproveCall builds an ERC20 approve on token for spender.
func (a *Adapter) ApproveCall(token, spender common.Address, amount, gasPrice *big.Int) (*lending.RawCall, error) {
	data, err := a.erc20ABI.Pack("approve", spender, amount)
	if err != nil {
		return nil, fmt.Errorf("failed to pack approve: %w", err)
	}
	return &lending.RawCall{
		To:       token,
		Data:     data,
		Value:    big.NewInt(0),
		GasLimit: a.config.ApproveGasLimit,
		GasPrice: gasPrice,
	}, nil
}

// DepositCall builds a pool deposit crediting onBehalfOf.
func (a *Adapter) DepositCall(asset common.Address, amount *big.Int, onBehalfOf common.Address, gasPrice *big.Int) (*lending.RawCall, error) {
	data, err := a.poolABI.Pack("deposit", asset, amount, onBehalfOf, uint16(referralCode))
	if err != nil {
		return nil, fmt.Errorf("failed to pack deposit: %w", err)
	}
	return a.poolCall(data, gasPrice), nil
}

// WithdrawCall builds a pool withdraw paying out to the given address.
func (a *Adapter) WithdrawCall(asset common.Address, amount *big.Int, to common.Address, gasPrice *big.Int) (*lending.RawCall, error) {
	data, err := a.poolABI.Pack("withdraw", asset, amount, to)
	if err != nil {
		return nil, fmt.Errorf("failed to pack withdraw: %w", err)
	}
	return a.poolCall(data, gasPrice), nil
}

// BorrowCall builds a variable-rate pool borrow.
func (a *Adapter) BorrowCall(asset common.Address, amount *big.Int, onBehalfOf common.Address, gasPrice *big.Int) (*lending.RawCall, error) {
	data, err := a.poolABI.Pack("borrow", asset, amount, big.NewInt(variableRateMode), uint16(referralCode), onBehalfOf)
	if err != nil {
		return nil, fmt.Errorf("failed to pack borrow: %w", err)
	}
	return a.poolCall(data, gasPrice), nil
}

// RepayCall builds a variable-rate pool repay.
func (a *Adapter) RepayCall(asset common.Address, amount *big.Int, onBehalfOf common.Address, gasPrice *big.Int) (*lending.RawCall, error) {
	data, err := a.poolABI.Pack("repay", asset, amount, big.NewInt(variableRateMode), onBehalfOf)
	if err != nil {
		return nil, fmt.Errorf("failed to pack repay: %w", err)
	}
	return a.poolCall(data, gasPrice), nil
}

// SwapAndRepayCall builds a repay through the ParaSwap repay adapter,
// swapping collateral into the debt asset inside one transaction.
func (a *Adapter) SwapAndRepayCall(params *lending.SwapAndRepayParams) (*lending.RawCall, error) {
	paraswapData, err := paraswapDataArgs.Pack(params.SwapCalldata, params.SwapTarget)
	if err != nil {
		return nil, fmt.Errorf("failed to pack paraswap data: %w", err)
	}

	offset := big.NewInt(0)
	if params.FullRepay {
		offset = big.NewInt(fullRepayCalldataOffset)
	}

	data, err := a.repayABI.Pack("swapAndRepay",
		params.CollateralAsset,
		params.DebtAsset,
		params.MaxCollateralAmount,
		params.DebtRepayAmount,
		big.NewInt(variableRateMode),
		offset,
		paraswapData,
		zeroPermit(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to pack swapAndRepay: %w", err)
	}
	return &lending.RawCall{
		To:       a.config.RepayAdapterAddress,
		Data:     data,
		Value:    big.NewInt(0),
		GasLimit: a.config.SwapRepayGasLimit,
		GasPrice: gasPriceOrZero(params.GasPrice),
	}, nil
}

func (a *Adapter) poolCall(data []byte, gasPrice *big.Int) *lending.RawCall {
	return &lending.RawCall{
		To:       a.config.PoolAddress,
		Data:     data,
		Value:    big.NewInt(0),
		GasLimit: a.config.PoolGasLimit,
		GasPrice: gasPrice,
	}
}

func gasPriceOrZero(price *big.Int) *big.Int {
	if price == nil {
		return big.NewInt(0)
	}
	return price
}

package engine

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/michaelpento.lv/borrowd/action"
	"github.com/michaelpento.lv/borrowd/lending"
	"github.com/michaelpento.lv/borrowd/swap"
	"github.com/michaelpento.lv/borrowd/types"
	bigmath "github.com/michaelpento.lv/borrowd/utils/math"
	"github.com/michaelpento.lv/borrowd/utils/metrics"
	"github.com/michaelpento.lv/borrowd/wallet"
)

const (
	defaultBalanceResyncInterval = 10 * time.Minute
	defaultLtvResyncInterval     = time.Minute
	defaultLoopDelay             = time.Second
	defaultSlippagePercent       = 1
)

var (
	// ErrZeroAmount is returned when a mutator request carries no positive
	// amount.
	ErrZeroAmount = errors.New("request contains no native amount")
	// ErrNoCollateral is returned when a withdraw or collateral-funded
	// repay names a token with no collateral entry.
	ErrNoCollateral = errors.New("no collateral for token")
	// ErrNoDebt is returned when a repay names a token with no debt entry.
	ErrNoDebt = errors.New("no debt for token")
	// ErrWalletMismatch is returned when a request's wallet belongs to a
	// different currency plugin than the engine's own wallet.
	ErrWalletMismatch = errors.New("wallet plugin does not match engine wallet plugin")
	// ErrNoSwapQuoter is returned by collateral-funded repay when the
	// engine was built without a swap quoter.
	ErrNoSwapQuoter = errors.New("engine has no swap quoter configured")
	// ErrNativeToken is returned where a wrapped-native position would be
	// required. Pass the wrapped token's id explicitly instead.
	ErrNativeToken = errors.New("native asset positions are not supported, pass the wrapped token id")
)

// Options tunes a borrow engine. Zero values select defaults.
type Options struct {
	// Quoter serves collateral-funded repayment; optional.
	Quoter swap.Quoter
	Logger *zap.Logger
	// Metrics instruments the sync loop; optional.
	Metrics *metrics.SyncMetrics
	// ProtocolLabel names the protocol in transaction metadata.
	ProtocolLabel string

	BalanceResyncInterval time.Duration
	LtvResyncInterval     time.Duration
	LoopDelay             time.Duration
	// SlippagePercent pads collateral-funded repay swap amounts.
	SlippagePercent int64
}

// BorrowEngine tracks one wallet's position against one lending protocol
// and builds approvable actions for every position mutation. Local state
// changes ride along as side-effect actions, so they only apply when the
// composed action is actually approved.
type BorrowEngine struct {
	wallet        wallet.Wallet
	adapter       lending.Adapter
	quoter        swap.Quoter
	logger        *zap.Logger
	metrics       *metrics.SyncMetrics
	label         string
	walletAddress common.Address

	balanceResyncInterval time.Duration
	ltvResyncInterval     time.Duration
	loopDelay             time.Duration
	slippagePercent       int64

	mu          sync.RWMutex
	collaterals []types.BorrowCollateral
	debts       []types.BorrowDebt
	loanToValue float64
	syncRatio   float64

	runMu   sync.Mutex
	running bool
	stopCh  chan struct{}

	watchMu   sync.Mutex
	watchers  map[int]ChangeFunc
	nextWatch int
}

// New creates a borrow engine for one (protocol, wallet) pair. The wallet
// reference stays owned by the caller; the engine never persists anything
// itself.
func New(ctx context.Context, w wallet.Wallet, adapter lending.Adapter, opts *Options) (*BorrowEngine, error) {
	if w == nil {
		return nil, fmt.Errorf("wallet cannot be nil")
	}
	if adapter == nil {
		return nil, fmt.Errorf("adapter cannot be nil")
	}
	if opts == nil {
		opts = &Options{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	walletAddress, err := w.ReceiveAddress(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve wallet address: %w", err)
	}

	e := &BorrowEngine{
		wallet:                w,
		adapter:               adapter,
		quoter:                opts.Quoter,
		logger:                logger,
		metrics:               opts.Metrics,
		label:                 opts.ProtocolLabel,
		walletAddress:         walletAddress,
		balanceResyncInterval: opts.BalanceResyncInterval,
		ltvResyncInterval:     opts.LtvResyncInterval,
		loopDelay:             opts.LoopDelay,
		slippagePercent:       opts.SlippagePercent,
		watchers:              map[int]ChangeFunc{},
	}
	if e.label == "" {
		e.label = "Lending"
	}
	if e.balanceResyncInterval <= 0 {
		e.balanceResyncInterval = defaultBalanceResyncInterval
	}
	if e.ltvResyncInterval <= 0 {
		e.ltvResyncInterval = defaultLtvResyncInterval
	}
	if e.loopDelay <= 0 {
		e.loopDelay = defaultLoopDelay
	}
	if e.slippagePercent <= 0 {
		e.slippagePercent = defaultSlippagePercent
	}
	return e, nil
}

// Wallet returns the engine's own currency wallet.
func (e *BorrowEngine) Wallet() wallet.Wallet { return e.wallet }

// Collaterals returns a copy of the current collateral entries.
func (e *BorrowEngine) Collaterals() []types.BorrowCollateral {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]types.BorrowCollateral(nil), e.collaterals...)
}

// Debts returns a copy of the current debt entries.
func (e *BorrowEngine) Debts() []types.BorrowDebt {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]types.BorrowDebt(nil), e.debts...)
}

// LoanToValue returns the last synced loan-to-value ratio.
func (e *BorrowEngine) LoanToValue() float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.loanToValue
}

// SyncRatio returns 1 once balances have been synced at least once.
func (e *BorrowEngine) SyncRatio() float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.syncRatio
}

//
// Mutators
//

// DepositRequest asks to move collateral into the protocol. FromWallet
// defaults to the engine's own wallet; a different wallet of the same
// network deposits on behalf of the engine's wallet address.
type DepositRequest struct {
	TokenID      string
	NativeAmount *big.Int
	FromWallet   wallet.Wallet
}

// Deposit builds the action depositing collateral, prefixed with an
// allowance approval when the current allowance is insufficient.
func (e *BorrowEngine) Deposit(ctx context.Context, req *DepositRequest) (action.Action, error) {
	if req.NativeAmount == nil || req.NativeAmount.Sign() <= 0 {
		return nil, fmt.Errorf("deposit: %w", ErrZeroAmount)
	}
	fromWallet := req.FromWallet
	if fromWallet == nil {
		fromWallet = e.wallet
	}
	if err := e.validateWallet(fromWallet); err != nil {
		return nil, err
	}

	token, err := e.getToken(req.TokenID)
	if err != nil {
		return nil, err
	}
	fromAddress, err := fromWallet.ReceiveAddress(ctx)
	if err != nil {
		return nil, err
	}

	gasPrice, err := e.adapter.GasPrice(ctx)
	if err != nil {
		return nil, err
	}

	var infos []*action.CallInfo
	approveInfo, err := e.approveAllowanceCall(ctx, fromWallet, token, fromAddress, e.adapter.PoolAddress(), req.NativeAmount, gasPrice)
	if err != nil {
		return nil, err
	}
	if approveInfo != nil {
		infos = append(infos, approveInfo)
	}

	// Funds from another wallet are still credited to the engine's own
	// position.
	depositCall, err := e.adapter.DepositCall(token.ContractAddress, req.NativeAmount, e.walletAddress, gasPrice)
	if err != nil {
		return nil, fmt.Errorf("invalid transaction response: %w", err)
	}
	infos = append(infos, &action.CallInfo{
		Call:         depositCall,
		Wallet:       fromWallet,
		SpendToken:   token,
		NativeAmount: new(big.Int).Neg(req.NativeAmount),
		Metadata: types.TxMetadata{
			Name:     e.label,
			Category: "Transfer:Deposit",
			Notes:    fmt.Sprintf("Deposit %s collateral", token.CurrencyCode),
		},
	})

	actions, err := action.NewCalls(ctx, infos)
	if err != nil {
		return nil, err
	}

	tokenID, amount := req.TokenID, new(big.Int).Set(req.NativeAmount)
	mutate := action.NewSideEffect(func(ctx context.Context) error {
		e.adjustCollateral(tokenID, amount)
		return nil
	})
	return action.Compose(append(actions, mutate)...)
}

// WithdrawRequest asks to move collateral out of the protocol. Amounts above
// the held collateral withdraw everything.
type WithdrawRequest struct {
	TokenID      string
	NativeAmount *big.Int
	ToWallet     wallet.Wallet
}

// Withdraw builds the action withdrawing collateral to the target wallet.
func (e *BorrowEngine) Withdraw(ctx context.Context, req *WithdrawRequest) (action.Action, error) {
	collateral, ok := e.findCollateral(req.TokenID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoCollateral, req.TokenID)
	}
	if req.NativeAmount == nil || req.NativeAmount.Sign() <= 0 {
		return nil, fmt.Errorf("withdraw: %w", ErrZeroAmount)
	}
	toWallet := req.ToWallet
	if toWallet == nil {
		toWallet = e.wallet
	}
	if err := e.validateWallet(toWallet); err != nil {
		return nil, err
	}

	token, err := e.getToken(req.TokenID)
	if err != nil {
		return nil, err
	}
	toAddress, err := toWallet.ReceiveAddress(ctx)
	if err != nil {
		return nil, err
	}

	gasPrice, err := e.adapter.GasPrice(ctx)
	if err != nil {
		return nil, err
	}

	// Anything above the held collateral becomes the protocol's
	// withdraw-everything sentinel.
	contractAmount := req.NativeAmount
	if req.NativeAmount.Cmp(collateral.NativeAmount) > 0 {
		contractAmount = lending.MaxAmount
	}
	amountWithdrawn := bigmath.Min(req.NativeAmount, collateral.NativeAmount)

	withdrawCall, err := e.adapter.WithdrawCall(token.ContractAddress, contractAmount, toAddress, gasPrice)
	if err != nil {
		return nil, fmt.Errorf("invalid transaction response: %w", err)
	}
	withdrawAction, err := action.NewCall(ctx, &action.CallInfo{
		Call:         withdrawCall,
		Wallet:       e.wallet,
		SpendToken:   token,
		NativeAmount: amountWithdrawn,
		Metadata: types.TxMetadata{
			Name:     e.label,
			Category: "Transfer:Withdraw",
			Notes:    fmt.Sprintf("Withdraw %s collateral", token.CurrencyCode),
		},
	})
	if err != nil {
		return nil, err
	}

	tokenID := req.TokenID
	mutate := action.NewSideEffect(func(ctx context.Context) error {
		e.adjustCollateral(tokenID, new(big.Int).Neg(amountWithdrawn))
		return nil
	})
	return action.Compose(withdrawAction, mutate)
}

// BorrowRequest asks to borrow against deposited collateral.
type BorrowRequest struct {
	TokenID      string
	NativeAmount *big.Int
	FromWallet   wallet.Wallet
}

// Borrow builds the action borrowing the requested amount.
func (e *BorrowEngine) Borrow(ctx context.Context, req *BorrowRequest) (action.Action, error) {
	if req.NativeAmount == nil || req.NativeAmount.Sign() <= 0 {
		return nil, fmt.Errorf("borrow: %w", ErrZeroAmount)
	}
	fromWallet := req.FromWallet
	if fromWallet == nil {
		fromWallet = e.wallet
	}
	if err := e.validateWallet(fromWallet); err != nil {
		return nil, err
	}

	token, err := e.getToken(req.TokenID)
	if err != nil {
		return nil, err
	}
	onBehalfOf, err := fromWallet.ReceiveAddress(ctx)
	if err != nil {
		return nil, err
	}

	gasPrice, err := e.adapter.GasPrice(ctx)
	if err != nil {
		return nil, err
	}

	borrowCall, err := e.adapter.BorrowCall(token.ContractAddress, req.NativeAmount, onBehalfOf, gasPrice)
	if err != nil {
		return nil, fmt.Errorf("invalid transaction response: %w", err)
	}
	borrowAction, err := action.NewCall(ctx, &action.CallInfo{
		Call:         borrowCall,
		Wallet:       fromWallet,
		SpendToken:   token,
		NativeAmount: req.NativeAmount,
		Metadata: types.TxMetadata{
			Name:     e.label,
			Category: "Transfer:Borrow",
			Notes:    fmt.Sprintf("Borrow %s loan", token.DisplayName),
		},
	})
	if err != nil {
		return nil, err
	}

	tokenID, amount := req.TokenID, new(big.Int).Set(req.NativeAmount)
	mutate := action.NewSideEffect(func(ctx context.Context) error {
		e.adjustDebt(tokenID, amount)
		return nil
	})
	return action.Compose(borrowAction, mutate)
}

// RepayRequest asks to repay debt, either from wallet funds or, when
// FromTokenID is set, by swapping that collateral into the debt asset.
type RepayRequest struct {
	TokenID      string
	NativeAmount *big.Int
	FromTokenID  string
	FromWallet   wallet.Wallet
}

// Repay builds the action repaying debt. The effective amount is capped at
// the outstanding debt.
func (e *BorrowEngine) Repay(ctx context.Context, req *RepayRequest) (action.Action, error) {
	debt, ok := e.findDebt(req.TokenID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoDebt, req.TokenID)
	}
	if req.NativeAmount == nil || req.NativeAmount.Sign() <= 0 {
		return nil, fmt.Errorf("repay: %w", ErrZeroAmount)
	}
	// The outstanding debt is the upper bound for the effective amount.
	amount := bigmath.Min(req.NativeAmount, debt.NativeAmount)
	if amount.Sign() == 0 {
		return nil, fmt.Errorf("repay: %w", ErrZeroAmount)
	}

	fromWallet := req.FromWallet
	if fromWallet == nil {
		fromWallet = e.wallet
	}
	if err := e.validateWallet(fromWallet); err != nil {
		return nil, err
	}
	fromAddress, err := fromWallet.ReceiveAddress(ctx)
	if err != nil {
		return nil, err
	}

	debtToken, err := e.getToken(req.TokenID)
	if err != nil {
		return nil, err
	}

	gasPrice, err := e.adapter.GasPrice(ctx)
	if err != nil {
		return nil, err
	}

	if req.FromTokenID != "" {
		return e.repayWithCollateral(ctx, req, debt, debtToken, fromWallet, fromAddress, amount, gasPrice)
	}

	var infos []*action.CallInfo
	approveInfo, err := e.approveAllowanceCall(ctx, fromWallet, debtToken, fromAddress, e.adapter.PoolAddress(), amount, gasPrice)
	if err != nil {
		return nil, err
	}
	if approveInfo != nil {
		infos = append(infos, approveInfo)
	}

	repayCall, err := e.adapter.RepayCall(debtToken.ContractAddress, amount, fromAddress, gasPrice)
	if err != nil {
		return nil, fmt.Errorf("invalid transaction response: %w", err)
	}
	infos = append(infos, &action.CallInfo{
		Call:         repayCall,
		Wallet:       fromWallet,
		SpendToken:   debtToken,
		NativeAmount: new(big.Int).Neg(amount),
		Metadata: types.TxMetadata{
			Name:     e.label,
			Category: "Expense:Repay",
			Notes:    fmt.Sprintf("Repay %s loan", debtToken.DisplayName),
		},
	})

	actions, err := action.NewCalls(ctx, infos)
	if err != nil {
		return nil, err
	}

	tokenID := req.TokenID
	mutate := action.NewSideEffect(func(ctx context.Context) error {
		e.adjustDebt(tokenID, new(big.Int).Neg(amount))
		return nil
	})
	return action.Compose(append(actions, mutate)...)
}

// repayWithCollateral swaps collateral into the debt asset via the swap
// aggregator and repays through the protocol's swap-and-repay entrypoint.
func (e *BorrowEngine) repayWithCollateral(
	ctx context.Context,
	req *RepayRequest,
	debt types.BorrowDebt,
	debtToken *wallet.Token,
	fromWallet wallet.Wallet,
	fromAddress common.Address,
	amount *big.Int,
	gasPrice *big.Int,
) (action.Action, error) {
	if e.quoter == nil {
		return nil, ErrNoSwapQuoter
	}
	if _, ok := e.findCollateral(req.FromTokenID); !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoCollateral, req.FromTokenID)
	}
	collateralToken, err := e.getToken(req.FromTokenID)
	if err != nil {
		return nil, err
	}

	// Pad the bought amount so interest accrued between quote and
	// inclusion cannot leave dust debt behind.
	amountToSwap := bigmath.AddPercent(amount, e.slippagePercent)
	quote, err := e.quoter.FetchQuote(ctx, &swap.QuoteRequest{
		FromToken:   collateralToken.ContractAddress,
		ToToken:     debtToken.ContractAddress,
		Amount:      amountToSwap,
		Side:        swap.SideBuy,
		UserAddress: fromAddress,
	})
	if err != nil {
		return nil, err
	}
	maxCollateralAmount := bigmath.AddPercent(quote.SrcAmount, 1)

	// The swap adapter draws from the yield-bearing collateral token, so
	// the allowance belongs on that token, not the underlying.
	aTokenAddress, err := e.adapter.CollateralTokenAddress(ctx, collateralToken.ContractAddress)
	if err != nil {
		return nil, err
	}

	var infos []*action.CallInfo
	approveInfo, err := e.approveAllowanceCallForAddress(ctx, fromWallet, aTokenAddress, fromAddress, e.adapter.RepayAdapterAddress(), maxCollateralAmount, gasPrice)
	if err != nil {
		return nil, err
	}
	if approveInfo != nil {
		infos = append(infos, approveInfo)
	}

	repayCall, err := e.adapter.SwapAndRepayCall(&lending.SwapAndRepayParams{
		CollateralAsset:     collateralToken.ContractAddress,
		DebtAsset:           debtToken.ContractAddress,
		MaxCollateralAmount: maxCollateralAmount,
		DebtRepayAmount:     quote.DestAmount,
		FullRepay:           req.NativeAmount.Cmp(debt.NativeAmount) >= 0,
		SwapCalldata:        quote.Calldata,
		SwapTarget:          quote.Target,
		GasPrice:            gasPrice,
	})
	if err != nil {
		return nil, fmt.Errorf("invalid transaction response: %w", err)
	}
	infos = append(infos, &action.CallInfo{
		Call:   repayCall,
		Wallet: fromWallet,
		Metadata: types.TxMetadata{
			Name:     e.label,
			Category: "Expense:Repay",
			Notes:    fmt.Sprintf("Repay %s with %s collateral", debtToken.DisplayName, collateralToken.DisplayName),
		},
	})

	actions, err := action.NewCalls(ctx, infos)
	if err != nil {
		return nil, err
	}

	debtTokenID, collateralTokenID := req.TokenID, req.FromTokenID
	collateralSpent := new(big.Int).Set(quote.SrcAmount)
	mutate := action.NewSideEffect(func(ctx context.Context) error {
		e.adjustCollateral(collateralTokenID, new(big.Int).Neg(collateralSpent))
		e.adjustDebt(debtTokenID, new(big.Int).Neg(amount))
		return nil
	})
	return action.Compose(append(actions, mutate)...)
}

// Close composes a maximal repay of every debt followed by a maximal
// withdraw of every collateral into a single action.
func (e *BorrowEngine) Close(ctx context.Context) (action.Action, error) {
	var actions []action.Action
	for _, debt := range e.Debts() {
		if debt.NativeAmount.Sign() == 0 {
			continue
		}
		repayAction, err := e.Repay(ctx, &RepayRequest{
			TokenID:      debt.TokenID,
			NativeAmount: lending.MaxAmount,
		})
		if err != nil {
			return nil, err
		}
		actions = append(actions, repayAction)
	}
	for _, collateral := range e.Collaterals() {
		if collateral.NativeAmount.Sign() == 0 {
			continue
		}
		withdrawAction, err := e.Withdraw(ctx, &WithdrawRequest{
			TokenID:      collateral.TokenID,
			NativeAmount: lending.MaxAmount,
		})
		if err != nil {
			return nil, err
		}
		actions = append(actions, withdrawAction)
	}
	return action.Compose(actions...)
}

//
// Read paths
//

// GetAprQuote returns the token's current variable borrow rate.
func (e *BorrowEngine) GetAprQuote(ctx context.Context, tokenID string) (float64, error) {
	token, err := e.getToken(tokenID)
	if err != nil {
		return 0, err
	}
	rates, err := e.adapter.AprRates(ctx, token.ContractAddress)
	if err != nil {
		return 0, err
	}
	return rates.VariableAPR, nil
}

// ProjectedLtvRequest holds hypothetical position entries, already filtered
// by the caller to whatever scenario is being priced.
type ProjectedLtvRequest struct {
	Collaterals []types.BorrowCollateral
	Debts       []types.BorrowDebt
}

// CalculateProjectedLtv revalues the hypothetical position through the
// protocol's price oracle and returns debt value over collateral value.
// No collateral yields a defined zero, never a division error.
func (e *BorrowEngine) CalculateProjectedLtv(ctx context.Context, req *ProjectedLtvRequest) (float64, error) {
	collaterals := make([]types.BorrowCollateral, 0, len(req.Collaterals))
	for _, c := range req.Collaterals {
		if !bigmath.IsZero(c.NativeAmount) {
			collaterals = append(collaterals, c)
		}
	}
	if len(collaterals) == 0 {
		return 0, nil
	}

	totalCollateral := big.NewInt(0)
	for _, c := range collaterals {
		value, err := e.assetValue(ctx, c.TokenID, c.NativeAmount)
		if err != nil {
			return 0, err
		}
		totalCollateral.Add(totalCollateral, value)
	}
	totalDebt := big.NewInt(0)
	for _, d := range req.Debts {
		if bigmath.IsZero(d.NativeAmount) {
			continue
		}
		value, err := e.assetValue(ctx, d.TokenID, d.NativeAmount)
		if err != nil {
			return 0, err
		}
		totalDebt.Add(totalDebt, value)
	}
	return bigmath.Ratio(totalDebt, totalCollateral), nil
}

// assetValue converts an amount of a token into the protocol's common
// valuation unit via the price oracle.
func (e *BorrowEngine) assetValue(ctx context.Context, tokenID string, amount *big.Int) (*big.Int, error) {
	token, err := e.getToken(tokenID)
	if err != nil {
		return nil, err
	}
	price, err := e.adapter.AssetPrice(ctx, token.ContractAddress)
	if err != nil {
		return nil, err
	}
	value := new(big.Int).Mul(amount, price)
	return value.Div(value, token.Multiplier), nil
}

//
// Internals
//

func (e *BorrowEngine) getToken(tokenID string) (*wallet.Token, error) {
	if tokenID == "" {
		return nil, ErrNativeToken
	}
	return e.wallet.Token(tokenID)
}

func (e *BorrowEngine) validateWallet(w wallet.Wallet) error {
	if w.PluginID() != e.wallet.PluginID() {
		return fmt.Errorf("%w: %s != %s", ErrWalletMismatch, w.PluginID(), e.wallet.PluginID())
	}
	return nil
}

func (e *BorrowEngine) findCollateral(tokenID string) (types.BorrowCollateral, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, c := range e.collaterals {
		if c.TokenID == tokenID {
			return c, true
		}
	}
	return types.BorrowCollateral{}, false
}

func (e *BorrowEngine) findDebt(tokenID string) (types.BorrowDebt, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, d := range e.debts {
		if d.TokenID == tokenID {
			return d, true
		}
	}
	return types.BorrowDebt{}, false
}

// approveAllowanceCall returns an unlimited-allowance approval call when the
// current allowance does not cover amount, or nil when it already does.
func (e *BorrowEngine) approveAllowanceCall(ctx context.Context, w wallet.Wallet, token *wallet.Token, owner, spender common.Address, amount, gasPrice *big.Int) (*action.CallInfo, error) {
	info, err := e.approveAllowanceCallForAddress(ctx, w, token.ContractAddress, owner, spender, amount, gasPrice)
	if err != nil || info == nil {
		return info, err
	}
	info.SpendToken = token
	return info, nil
}

func (e *BorrowEngine) approveAllowanceCallForAddress(ctx context.Context, w wallet.Wallet, tokenAddress common.Address, owner, spender common.Address, amount, gasPrice *big.Int) (*action.CallInfo, error) {
	allowance, err := e.adapter.Allowance(ctx, tokenAddress, owner, spender)
	if err != nil {
		return nil, err
	}
	if allowance.Cmp(amount) >= 0 {
		return nil, nil
	}
	approveCall, err := e.adapter.ApproveCall(tokenAddress, spender, lending.MaxAmount, gasPrice)
	if err != nil {
		return nil, fmt.Errorf("invalid transaction response: %w", err)
	}
	return &action.CallInfo{
		Call:   approveCall,
		Wallet: w,
		Metadata: types.TxMetadata{
			Name:     e.label,
			Category: "Expense:Service",
			Notes:    fmt.Sprintf("%s contract approval", e.label),
		},
	}, nil
}

// adjustCollateral applies a signed delta to one collateral entry, clamping
// at zero and replacing the slice so watchers observe a new reference.
func (e *BorrowEngine) adjustCollateral(tokenID string, delta *big.Int) {
	e.mu.Lock()
	next := make([]types.BorrowCollateral, len(e.collaterals))
	copy(next, e.collaterals)
	found := false
	for i := range next {
		if next[i].TokenID == tokenID {
			next[i].NativeAmount = bigmath.ClampZero(new(big.Int).Add(next[i].NativeAmount, delta))
			found = true
			break
		}
	}
	if !found && delta.Sign() > 0 {
		next = append(next, types.BorrowCollateral{TokenID: tokenID, NativeAmount: new(big.Int).Set(delta)})
	}
	e.collaterals = next
	e.mu.Unlock()
	e.emit(KeyCollaterals, next)
}

// adjustDebt applies a signed delta to one debt entry, clamping at zero and
// replacing the slice so watchers observe a new reference.
func (e *BorrowEngine) adjustDebt(tokenID string, delta *big.Int) {
	e.mu.Lock()
	next := make([]types.BorrowDebt, len(e.debts))
	copy(next, e.debts)
	found := false
	for i := range next {
		if next[i].TokenID == tokenID {
			next[i].NativeAmount = bigmath.ClampZero(new(big.Int).Add(next[i].NativeAmount, delta))
			found = true
			break
		}
	}
	if !found && delta.Sign() > 0 {
		next = append(next, types.BorrowDebt{TokenID: tokenID, NativeAmount: new(big.Int).Set(delta)})
	}
	e.debts = next
	e.mu.Unlock()
	e.emit(KeyDebts, next)
}

package aave

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/michaelpento.lv/borrowd/lending"
)

var (
	testPool         = common.HexToAddress("0x5000000000000000000000000000000000000001")
	testDataProvider = common.HexToAddress("0x5000000000000000000000000000000000000002")
	testOracle       = common.HexToAddress("0x5000000000000000000000000000000000000003")
	testRepayAdapter = common.HexToAddress("0x5000000000000000000000000000000000000004")
	testAsset        = common.HexToAddress("0x3000000000000000000000000000000000000001")
	testOwner        = common.HexToAddress("0x1000000000000000000000000000000000000001")
	testSpender      = common.HexToAddress("0x1000000000000000000000000000000000000002")
)

type mockEthClient struct {
	responses map[[4]byte][]byte
	calls     map[[4]byte]int
	gasPrice  *big.Int
}

func newMockEthClient() *mockEthClient {
	return &mockEthClient{
		responses: map[[4]byte][]byte{},
		calls:     map[[4]byte]int{},
		gasPrice:  big.NewInt(30_000_000_000),
	}
}

func (m *mockEthClient) respond(method abi.Method, data []byte) {
	var sel [4]byte
	copy(sel[:], method.ID)
	m.responses[sel] = data
}

func (m *mockEthClient) callCount(method abi.Method) int {
	var sel [4]byte
	copy(sel[:], method.ID)
	return m.calls[sel]
}

func (m *mockEthClient) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	var sel [4]byte
	copy(sel[:], msg.Data[:4])
	m.calls[sel]++
	if resp, ok := m.responses[sel]; ok {
		return resp, nil
	}
	return nil, fmt.Errorf("unexpected call %x", sel)
}

func (m *mockEthClient) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return m.gasPrice, nil
}

// encodeWords concatenates values into 32-byte ABI words.
func encodeWords(vals ...*big.Int) []byte {
	out := make([]byte, 0, 32*len(vals))
	for _, v := range vals {
		word := make([]byte, 32)
		v.FillBytes(word)
		out = append(out, word...)
	}
	return out
}

func addressWord(addr common.Address) *big.Int {
	return new(big.Int).SetBytes(addr.Bytes())
}

func newTestAdapter(t *testing.T) (*Adapter, *mockEthClient) {
	t.Helper()
	client := newMockEthClient()
	adapter, err := NewAdapter(client, &Config{
		PoolAddress:         testPool,
		DataProviderAddress: testDataProvider,
		PriceOracleAddress:  testOracle,
		RepayAdapterAddress: testRepayAdapter,
	}, zaptest.NewLogger(t), nil)
	require.NoError(t, err)
	return adapter, client
}

func TestCallBuilders(t *testing.T) {
	adapter, _ := newTestAdapter(t)
	gasPrice := big.NewInt(25_000_000_000)
	amount := big.NewInt(12345)

	poolABI, err := abi.JSON(strings.NewReader(lendingPoolABI))
	require.NoError(t, err)
	tokenABI, err := abi.JSON(strings.NewReader(erc20ABI))
	require.NoError(t, err)

	t.Run("Approve", func(t *testing.T) {
		call, err := adapter.ApproveCall(testAsset, testSpender, amount, gasPrice)
		require.NoError(t, err)
		assert.Equal(t, testAsset, call.To)
		assert.Equal(t, tokenABI.Methods["approve"].ID, call.Data[:4])
		assert.Equal(t, uint64(defaultApproveGasLimit), call.GasLimit)
		assert.Equal(t, gasPrice, call.GasPrice)
	})

	t.Run("Deposit", func(t *testing.T) {
		call, err := adapter.DepositCall(testAsset, amount, testOwner, gasPrice)
		require.NoError(t, err)
		assert.Equal(t, testPool, call.To)
		assert.Equal(t, poolABI.Methods["deposit"].ID, call.Data[:4])
		assert.Equal(t, uint64(defaultPoolGasLimit), call.GasLimit)
	})

	t.Run("Withdraw", func(t *testing.T) {
		call, err := adapter.WithdrawCall(testAsset, lending.MaxAmount, testOwner, gasPrice)
		require.NoError(t, err)
		assert.Equal(t, testPool, call.To)
		assert.Equal(t, poolABI.Methods["withdraw"].ID, call.Data[:4])
		// The withdraw-everything sentinel survives packing.
		assert.Equal(t, lending.MaxAmount.Bytes(), call.Data[36:68])
	})

	t.Run("Borrow", func(t *testing.T) {
		call, err := adapter.BorrowCall(testAsset, amount, testOwner, gasPrice)
		require.NoError(t, err)
		assert.Equal(t, poolABI.Methods["borrow"].ID, call.Data[:4])
		// Word 3 is the interest rate mode.
		rateMode := new(big.Int).SetBytes(call.Data[68:100])
		assert.Equal(t, int64(variableRateMode), rateMode.Int64())
	})

	t.Run("Repay", func(t *testing.T) {
		call, err := adapter.RepayCall(testAsset, amount, testOwner, gasPrice)
		require.NoError(t, err)
		assert.Equal(t, poolABI.Methods["repay"].ID, call.Data[:4])
	})

	t.Run("SwapAndRepay", func(t *testing.T) {
		call, err := adapter.SwapAndRepayCall(&lending.SwapAndRepayParams{
			CollateralAsset:     testAsset,
			DebtAsset:           testSpender,
			MaxCollateralAmount: big.NewInt(40),
			DebtRepayAmount:     big.NewInt(101),
			FullRepay:           true,
			SwapCalldata:        []byte{0xde, 0xad},
			SwapTarget:          testOwner,
			GasPrice:            gasPrice,
		})
		require.NoError(t, err)
		assert.Equal(t, testRepayAdapter, call.To)
		assert.Equal(t, uint64(defaultSwapRepayGasLimit), call.GasLimit)
		// Word 6 carries the full-repay calldata offset.
		offset := new(big.Int).SetBytes(call.Data[164:196])
		assert.Equal(t, int64(fullRepayCalldataOffset), offset.Int64())
	})

	t.Run("SwapAndRepayPartial", func(t *testing.T) {
		call, err := adapter.SwapAndRepayCall(&lending.SwapAndRepayParams{
			CollateralAsset:     testAsset,
			DebtAsset:           testSpender,
			MaxCollateralAmount: big.NewInt(40),
			DebtRepayAmount:     big.NewInt(50),
			SwapCalldata:        []byte{0xde, 0xad},
			SwapTarget:          testOwner,
			GasPrice:            gasPrice,
		})
		require.NoError(t, err)
		offset := new(big.Int).SetBytes(call.Data[164:196])
		assert.Equal(t, int64(0), offset.Int64())
	})
}

func TestAllowance(t *testing.T) {
	adapter, client := newTestAdapter(t)
	client.respond(adapter.erc20ABI.Methods["allowance"], encodeWords(big.NewInt(777)))

	allowance, err := adapter.Allowance(context.Background(), testAsset, testOwner, testSpender)
	require.NoError(t, err)
	assert.Equal(t, int64(777), allowance.Int64())
}

func TestAccountData(t *testing.T) {
	adapter, client := newTestAdapter(t)
	client.respond(adapter.poolABI.Methods["getUserAccountData"], encodeWords(
		big.NewInt(400), // total collateral
		big.NewInt(100), // total debt
		big.NewInt(200),
		big.NewInt(8000),
		big.NewInt(7500),
		big.NewInt(2),
	))

	data, err := adapter.AccountData(context.Background(), testOwner)
	require.NoError(t, err)
	assert.Equal(t, int64(400), data.TotalCollateral.Int64())
	assert.Equal(t, int64(100), data.TotalDebt.Int64())
}

func TestAprRates(t *testing.T) {
	adapter, client := newTestAdapter(t)
	// 4.2% variable, 6% stable, both ray-scaled.
	variable := new(big.Int).Mul(big.NewInt(42), new(big.Int).Exp(big.NewInt(10), big.NewInt(24), nil))
	stable := new(big.Int).Mul(big.NewInt(6), new(big.Int).Exp(big.NewInt(10), big.NewInt(25), nil))
	client.respond(adapter.dataProviderABI.Methods["getReserveData"], encodeWords(
		big.NewInt(0), big.NewInt(0), big.NewInt(0), big.NewInt(0),
		variable, stable,
		big.NewInt(0), big.NewInt(0), big.NewInt(0), big.NewInt(0),
	))

	rates, err := adapter.AprRates(context.Background(), testAsset)
	require.NoError(t, err)
	assert.InDelta(t, 0.042, rates.VariableAPR, 1e-9)
	assert.InDelta(t, 0.06, rates.StableAPR, 1e-9)
}

func TestAssetPrice(t *testing.T) {
	adapter, client := newTestAdapter(t)
	client.respond(adapter.oracleABI.Methods["getAssetPrice"], encodeWords(big.NewInt(20_000)))

	price, err := adapter.AssetPrice(context.Background(), testAsset)
	require.NoError(t, err)
	assert.Equal(t, int64(20_000), price.Int64())
}

func TestCollateralTokenAddressCached(t *testing.T) {
	adapter, client := newTestAdapter(t)
	aToken := common.HexToAddress("0x4000000000000000000000000000000000000001")
	method := adapter.dataProviderABI.Methods["getReserveTokensAddresses"]
	client.respond(method, encodeWords(
		addressWord(aToken),
		addressWord(common.Address{}),
		addressWord(common.Address{}),
	))

	for i := 0; i < 3; i++ {
		resolved, err := adapter.CollateralTokenAddress(context.Background(), testAsset)
		require.NoError(t, err)
		assert.Equal(t, aToken, resolved)
	}
	// The mapping is immutable; only the first lookup hits the chain.
	assert.Equal(t, 1, client.callCount(method))
}

func TestReserveBalances(t *testing.T) {
	adapter, client := newTestAdapter(t)

	// One reserve in the pool's list. getReservesList returns a dynamic
	// array: offset word, length word, then the elements.
	client.respond(adapter.poolABI.Methods["getReservesList"], encodeWords(
		big.NewInt(32),
		big.NewInt(1),
		addressWord(testAsset),
	))
	client.respond(adapter.dataProviderABI.Methods["getUserReserveData"], encodeWords(
		big.NewInt(5000), // aToken balance
		big.NewInt(0),    // stable debt
		big.NewInt(700),  // variable debt
		big.NewInt(0), big.NewInt(0), big.NewInt(0), big.NewInt(0), big.NewInt(0), big.NewInt(0),
	))
	variable := new(big.Int).Mul(big.NewInt(42), new(big.Int).Exp(big.NewInt(10), big.NewInt(24), nil))
	client.respond(adapter.dataProviderABI.Methods["getReserveData"], encodeWords(
		big.NewInt(0), big.NewInt(0), big.NewInt(0), big.NewInt(0),
		variable, big.NewInt(0),
		big.NewInt(0), big.NewInt(0), big.NewInt(0), big.NewInt(0),
	))

	balances, err := adapter.ReserveBalances(context.Background(), testOwner)
	require.NoError(t, err)
	require.Len(t, balances, 1)
	assert.Equal(t, testAsset, balances[0].TokenAddress)
	assert.Equal(t, int64(5000), balances[0].CollateralBalance.Int64())
	assert.Equal(t, int64(700), balances[0].DebtBalance.Int64())
	assert.InDelta(t, 0.042, balances[0].VariableAPR, 1e-9)
}

func TestGasPriceServedFromEstimator(t *testing.T) {
	adapter, client := newTestAdapter(t)
	client.gasPrice = big.NewInt(55)

	price, err := adapter.GasPrice(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(55), price.Int64())
}

func TestNewAdapterValidation(t *testing.T) {
	logger := zaptest.NewLogger(t)
	_, err := NewAdapter(nil, &Config{}, logger, nil)
	assert.Error(t, err)
	_, err = NewAdapter(newMockEthClient(), nil, logger, nil)
	assert.Error(t, err)
	_, err = NewAdapter(newMockEthClient(), &Config{}, nil, nil)
	assert.Error(t, err)
}

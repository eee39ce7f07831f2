package aave

// LendingPool entrypoints used by the adapter. Aave V2 signatures.
const lendingPoolABI = `[
	{
		"inputs": [
			{"internalType": "address", "name": "asset", "type": "address"},
			{"internalType": "uint256", "name": "amount", "type": "uint256"},
			{"internalType": "address", "name": "onBehalfOf", "type": "address"},
			{"internalType": "uint16", "name": "referralCode", "type": "uint16"}
		],
		"name": "deposit",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"inputs": [
			{"internalType": "address", "name": "asset", "type": "address"},
			{"internalType": "uint256", "name": "amount", "type": "uint256"},
			{"internalType": "address", "name": "to", "type": "address"}
		],
		"name": "withdraw",
		"outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"inputs": [
			{"internalType": "address", "name": "asset", "type": "address"},
			{"internalType": "uint256", "name": "amount", "type": "uint256"},
			{"internalType": "uint256", "name": "interestRateMode", "type": "uint256"},
			{"internalType": "uint16", "name": "referralCode", "type": "uint16"},
			{"internalType": "address", "name": "onBehalfOf", "type": "address"}
		],
		"name": "borrow",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"inputs": [
			{"internalType": "address", "name": "asset", "type": "address"},
			{"internalType": "uint256", "name": "amount", "type": "uint256"},
			{"internalType": "uint256", "name": "rateMode", "type": "uint256"},
			{"internalType": "address", "name": "onBehalfOf", "type": "address"}
		],
		"name": "repay",
		"outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"inputs": [{"internalType": "address", "name": "user", "type": "address"}],
		"name": "getUserAccountData",
		"outputs": [
			{"internalType": "uint256", "name": "totalCollateralETH", "type": "uint256"},
			{"internalType": "uint256", "name": "totalDebtETH", "type": "uint256"},
			{"internalType": "uint256", "name": "availableBorrowsETH", "type": "uint256"},
			{"internalType": "uint256", "name": "currentLiquidationThreshold", "type": "uint256"},
			{"internalType": "uint256", "name": "ltv", "type": "uint256"},
			{"internalType": "uint256", "name": "healthFactor", "type": "uint256"}
		],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [],
		"name": "getReservesList",
		"outputs": [{"internalType": "address[]", "name": "", "type": "address[]"}],
		"stateMutability": "view",
		"type": "function"
	}
]`

const erc20ABI = `[
	{
		"inputs": [
			{"internalType": "address", "name": "spender", "type": "address"},
			{"internalType": "uint256", "name": "amount", "type": "uint256"}
		],
		"name": "approve",
		"outputs": [{"internalType": "bool", "name": "", "type": "bool"}],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"inputs": [
			{"internalType": "address", "name": "owner", "type": "address"},
			{"internalType": "address", "name": "spender", "type": "address"}
		],
		"name": "allowance",
		"outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
		"stateMutability": "view",
		"type": "function"
	}
]`

// ProtocolDataProvider read paths for per-reserve balances and rates.
const dataProviderABI = `[
	{
		"inputs": [
			{"internalType": "address", "name": "asset", "type": "address"},
			{"internalType": "address", "name": "user", "type": "address"}
		],
		"name": "getUserReserveData",
		"outputs": [
			{"internalType": "uint256", "name": "currentATokenBalance", "type": "uint256"},
			{"internalType": "uint256", "name": "currentStableDebt", "type": "uint256"},
			{"internalType": "uint256", "name": "currentVariableDebt", "type": "uint256"},
			{"internalType": "uint256", "name": "principalStableDebt", "type": "uint256"},
			{"internalType": "uint256", "name": "scaledVariableDebt", "type": "uint256"},
			{"internalType": "uint256", "name": "stableBorrowRate", "type": "uint256"},
			{"internalType": "uint256", "name": "liquidityRate", "type": "uint256"},
			{"internalType": "uint40", "name": "stableRateLastUpdated", "type": "uint40"},
			{"internalType": "bool", "name": "usageAsCollateralEnabled", "type": "bool"}
		],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [{"internalType": "address", "name": "asset", "type": "address"}],
		"name": "getReserveData",
		"outputs": [
			{"internalType": "uint256", "name": "availableLiquidity", "type": "uint256"},
			{"internalType": "uint256", "name": "totalStableDebt", "type": "uint256"},
			{"internalType": "uint256", "name": "totalVariableDebt", "type": "uint256"},
			{"internalType": "uint256", "name": "liquidityRate", "type": "uint256"},
			{"internalType": "uint256", "name": "variableBorrowRate", "type": "uint256"},
			{"internalType": "uint256", "name": "stableBorrowRate", "type": "uint256"},
			{"internalType": "uint256", "name": "averageStableBorrowRate", "type": "uint256"},
			{"internalType": "uint256", "name": "liquidityIndex", "type": "uint256"},
			{"internalType": "uint256", "name": "variableBorrowIndex", "type": "uint256"},
			{"internalType": "uint40", "name": "lastUpdateTimestamp", "type": "uint40"}
		],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [{"internalType": "address", "name": "asset", "type": "address"}],
		"name": "getReserveTokensAddresses",
		"outputs": [
			{"internalType": "address", "name": "aTokenAddress", "type": "address"},
			{"internalType": "address", "name": "stableDebtTokenAddress", "type": "address"},
			{"internalType": "address", "name": "variableDebtTokenAddress", "type": "address"}
		],
		"stateMutability": "view",
		"type": "function"
	}
]`

const priceOracleABI = `[
	{
		"inputs": [{"internalType": "address", "name": "asset", "type": "address"}],
		"name": "getAssetPrice",
		"outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
		"stateMutability": "view",
		"type": "function"
	}
]`

// ParaSwapRepayAdapter entrypoint for collateral-funded repayment.
const repayAdapterABI = `[
	{
		"inputs": [
			{"internalType": "address", "name": "collateralAsset", "type": "address"},
			{"internalType": "address", "name": "debtAsset", "type": "address"},
			{"internalType": "uint256", "name": "collateralAmount", "type": "uint256"},
			{"internalType": "uint256", "name": "debtRepayAmount", "type": "uint256"},
			{"internalType": "uint256", "name": "debtRateMode", "type": "uint256"},
			{"internalType": "uint256", "name": "buyAllBalanceOffset", "type": "uint256"},
			{"internalType": "bytes", "name": "paraswapData", "type": "bytes"},
			{
				"components": [
					{"internalType": "uint256", "name": "amount", "type": "uint256"},
					{"internalType": "uint256", "name": "deadline", "type": "uint256"},
					{"internalType": "uint8", "name": "v", "type": "uint8"},
					{"internalType": "bytes32", "name": "r", "type": "bytes32"},
					{"internalType": "bytes32", "name": "s", "type": "bytes32"}
				],
				"internalType": "struct IERC20WithPermit.PermitSignature",
				"name": "permitSignature",
				"type": "tuple"
			}
		],
		"name": "swapAndRepay",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	}
]`

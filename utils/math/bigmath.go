package math

import (
	"fmt"
	"math/big"
)

// Min returns the smaller of x and y as a new value.
func Min(x, y *big.Int) *big.Int {
	if x.Cmp(y) <= 0 {
		return new(big.Int).Set(x)
	}
	return new(big.Int).Set(y)
}

// Max returns the larger of x and y as a new value.
func Max(x, y *big.Int) *big.Int {
	if x.Cmp(y) >= 0 {
		return new(big.Int).Set(x)
	}
	return new(big.Int).Set(y)
}

// ClampZero returns x, or zero when x is negative.
func ClampZero(x *big.Int) *big.Int {
	if x.Sign() < 0 {
		return big.NewInt(0)
	}
	return new(big.Int).Set(x)
}

// IsZero reports whether x is nil or zero.
func IsZero(x *big.Int) bool {
	return x == nil || x.Sign() == 0
}

// AddPercent returns x increased by pct percent, rounding down.
// AddPercent(x, 1) is the usual one-percent slippage bump.
func AddPercent(x *big.Int, pct int64) *big.Int {
	out := new(big.Int).Mul(x, big.NewInt(100+pct))
	return out.Div(out, big.NewInt(100))
}

// ParseBig parses a base-10 integer string.
func ParseBig(s string) (*big.Int, error) {
	out, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("invalid integer string %q", s)
	}
	return out, nil
}

// Ratio returns x/y as a float64, or 0 when y is zero.
func Ratio(x, y *big.Int) float64 {
	if x == nil || IsZero(y) {
		return 0
	}
	quo := new(big.Float).Quo(new(big.Float).SetInt(x), new(big.Float).SetInt(y))
	out, _ := quo.Float64()
	return out
}

// Package math implements the fixed-point arithmetic used across the engine.
// USD values and debt units use 18 decimal places; oracle prices arrive with
// 8 decimal places and are upscaled by an additional 1e10 factor before use.
package math

import "math/big"

var (
	// Precision is the scale of USD values and debt units (1e18).
	Precision = pow10(18)

	// FeedPrecision is the native scale of oracle price reports (1e8).
	FeedPrecision = pow10(8)

	// AdditionalFeedPrecision upscales feed prices to Precision (1e10).
	AdditionalFeedPrecision = pow10(10)

	// MaxHealthFactor is the largest representable health factor (2^256 - 1).
	// Returned for positions with zero debt, which can never be liquidated.
	MaxHealthFactor = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
)

type RoundingMode int

const (
	// RoundDown truncates toward zero. This is the default for all
	// value-to-token conversions: rounding must bias in the protocol's
	// favor, never over-paying the recipient.
	RoundDown RoundingMode = iota
	RoundUp
)

func pow10(n int) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}

// Pow10 returns 10^n for a token decimal precision.
func Pow10(n int) *big.Int {
	return pow10(n)
}

// MulDiv computes a * b / denom with the given rounding mode. Intermediate
// products are arbitrary-precision, so the computation cannot overflow.
func MulDiv(a, b, denom *big.Int, mode RoundingMode) *big.Int {
	num := new(big.Int).Mul(a, b)
	quo, rem := new(big.Int).QuoRem(num, denom, new(big.Int))
	if mode == RoundUp && rem.Sign() != 0 {
		quo.Add(quo, big.NewInt(1))
	}
	return quo
}

// UsdValue converts a token amount (in base units of a token with the given
// decimals) into a Precision-scaled USD value, given a FeedPrecision price.
//
//	usd = price * AdditionalFeedPrecision * amount / 10^decimals
func UsdValue(price, amount *big.Int, decimals int) *big.Int {
	scaled := new(big.Int).Mul(price, AdditionalFeedPrecision)
	return MulDiv(scaled, amount, pow10(decimals), RoundDown)
}

// TokenAmountFromUsd is the inverse of UsdValue: it converts a
// Precision-scaled USD amount into base units of the asset. Truncates toward
// zero so that conversions never pay out more token value than usd is worth.
func TokenAmountFromUsd(usd, price *big.Int, decimals int) *big.Int {
	scaled := new(big.Int).Mul(price, AdditionalFeedPrecision)
	return MulDiv(usd, pow10(decimals), scaled, RoundDown)
}

// HealthFactor computes the solvency metric for a position:
//
//	hf = (collateralUsd * thresholdNum / thresholdDen) * Precision / debt
//
// Both collateralUsd and debt are Precision-scaled. A zero debt yields
// MaxHealthFactor.
func HealthFactor(collateralUsd, debt *big.Int, thresholdNum, thresholdDen int64) *big.Int {
	if debt.Sign() == 0 {
		return new(big.Int).Set(MaxHealthFactor)
	}
	adjusted := MulDiv(collateralUsd, big.NewInt(thresholdNum), big.NewInt(thresholdDen), RoundDown)
	return MulDiv(adjusted, Precision, debt, RoundDown)
}

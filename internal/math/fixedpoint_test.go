package math

import (
	"math/big"
	"testing"
)

func mustInt(t *testing.T, s string) *big.Int {
	t.Helper()
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		t.Fatalf("bad integer literal %q", s)
	}
	return v
}

func TestMulDivRounding(t *testing.T) {
	cases := []struct {
		name        string
		a, b, denom int64
		mode        RoundingMode
		want        int64
	}{
		{"exact down", 10, 3, 6, RoundDown, 5},
		{"exact up", 10, 3, 6, RoundUp, 5},
		{"truncates", 7, 1, 2, RoundDown, 3},
		{"rounds up", 7, 1, 2, RoundUp, 4},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := MulDiv(big.NewInt(tc.a), big.NewInt(tc.b), big.NewInt(tc.denom), tc.mode)
			if got.Int64() != tc.want {
				t.Errorf("MulDiv = %v, want %d", got, tc.want)
			}
		})
	}
}

func TestUsdValue(t *testing.T) {
	// 15e18 base units of an 18-decimal token at $2000 (1e8 scale).
	price := big.NewInt(2000_00000000)
	amount := new(big.Int).Mul(big.NewInt(15), Precision)

	got := UsdValue(price, amount, 18)
	want := new(big.Int).Mul(big.NewInt(30_000), Precision)
	if got.Cmp(want) != 0 {
		t.Errorf("UsdValue = %v, want %v", got, want)
	}
}

func TestUsdValueLowDecimalToken(t *testing.T) {
	// 2 units of an 8-decimal token at $30000.
	price := big.NewInt(30_000_00000000)
	amount := big.NewInt(2_00000000)

	got := UsdValue(price, amount, 8)
	want := new(big.Int).Mul(big.NewInt(60_000), Precision)
	if got.Cmp(want) != 0 {
		t.Errorf("UsdValue = %v, want %v", got, want)
	}
}

func TestTokenAmountFromUsdInvertsUsdValue(t *testing.T) {
	price := big.NewInt(2000_00000000)
	usd := new(big.Int).Mul(big.NewInt(100), Precision)

	got := TokenAmountFromUsd(usd, price, 18)
	want := new(big.Int).Quo(Precision, big.NewInt(20)) // 0.05 tokens
	if got.Cmp(want) != 0 {
		t.Errorf("TokenAmountFromUsd = %v, want %v", got, want)
	}

	back := UsdValue(price, got, 18)
	if back.Cmp(usd) != 0 {
		t.Errorf("round trip = %v, want %v", back, usd)
	}
}

func TestTokenAmountFromUsdTruncates(t *testing.T) {
	// $1 at a price of $3 per whole token: 0.333... truncates.
	price := big.NewInt(3_00000000)
	got := TokenAmountFromUsd(Precision, price, 18)
	want := mustInt(t, "333333333333333333")
	if got.Cmp(want) != 0 {
		t.Errorf("TokenAmountFromUsd = %v, want %v", got, want)
	}
}

func TestHealthFactor(t *testing.T) {
	collateral := new(big.Int).Mul(big.NewInt(20_000), Precision)
	debt := new(big.Int).Mul(big.NewInt(10_000), Precision)

	got := HealthFactor(collateral, debt, 50, 100)
	if got.Cmp(Precision) != 0 {
		t.Errorf("HealthFactor = %v, want %v", got, Precision)
	}
}

func TestHealthFactorZeroDebt(t *testing.T) {
	collateral := new(big.Int).Mul(big.NewInt(5), Precision)

	got := HealthFactor(collateral, new(big.Int), 50, 100)
	if got.Cmp(MaxHealthFactor) != 0 {
		t.Errorf("HealthFactor = %v, want MaxHealthFactor", got)
	}
}

func TestHealthFactorZeroCollateralWithDebt(t *testing.T) {
	got := HealthFactor(new(big.Int), Precision, 50, 100)
	if got.Sign() != 0 {
		t.Errorf("HealthFactor = %v, want 0", got)
	}
}

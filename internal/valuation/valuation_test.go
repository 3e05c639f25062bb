package valuation

import (
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/google/uuid"

	"StableMint/internal/ledger"
	fp "StableMint/internal/math"
	"StableMint/internal/oracle"
	"StableMint/internal/registry"
)

type fixture struct {
	valuator *Valuator
	ledger   *ledger.PositionLedger
	ethFeed  *oracle.MemoryFeed
	btcFeed  *oracle.MemoryFeed
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	ethFeed := oracle.NewMemoryFeed(big.NewInt(2000_00000000)) // $2000
	btcFeed := oracle.NewMemoryFeed(big.NewInt(1000_00000000)) // $1000

	reg, err := registry.New([]registry.AssetDescriptor{
		{Asset: "WETH", Feed: ethFeed, Decimals: 18},
		{Asset: "WBTC", Feed: btcFeed, Decimals: 8},
	})
	if err != nil {
		t.Fatalf("registry.New: %v", err)
	}

	led := ledger.New(reg)
	adapter := oracle.NewAdapter(time.Hour)

	return &fixture{
		valuator: New(reg, adapter, led, 50, 100),
		ledger:   led,
		ethFeed:  ethFeed,
		btcFeed:  btcFeed,
	}
}

func usd(n int64) *big.Int {
	out := big.NewInt(n)
	return out.Mul(out, fp.Precision)
}

// ============================================================
// USD pricing
// ============================================================

func TestUsdValueScalesFeedPrecision(t *testing.T) {
	f := newFixture(t)

	// 15 WETH at $2000.
	got, err := f.valuator.UsdValue("WETH", usd(15))
	if err != nil {
		t.Fatalf("UsdValue: %v", err)
	}
	if want := usd(30_000); got.Cmp(want) != 0 {
		t.Errorf("UsdValue = %v, want %v", got, want)
	}
}

func TestUsdValueHandlesNonStandardDecimals(t *testing.T) {
	f := newFixture(t)

	// 2 WBTC in 8-decimal base units at $1000.
	got, err := f.valuator.UsdValue("WBTC", big.NewInt(2_00000000))
	if err != nil {
		t.Fatalf("UsdValue: %v", err)
	}
	if want := usd(2000); got.Cmp(want) != 0 {
		t.Errorf("UsdValue = %v, want %v", got, want)
	}
}

func TestUsdValueUnknownAsset(t *testing.T) {
	f := newFixture(t)

	_, err := f.valuator.UsdValue("DOGE", usd(1))
	if !errors.Is(err, registry.ErrUnknownAsset) {
		t.Errorf("err = %v, want ErrUnknownAsset", err)
	}
}

func TestTokenAmountFromUsdRoundsDown(t *testing.T) {
	f := newFixture(t)

	// $100 of WETH at $2000 is 0.05 WETH.
	got, err := f.valuator.TokenAmountFromUsd("WETH", usd(100))
	if err != nil {
		t.Fatalf("TokenAmountFromUsd: %v", err)
	}
	want := new(big.Int).Quo(fp.Precision, big.NewInt(20))
	if got.Cmp(want) != 0 {
		t.Errorf("TokenAmountFromUsd = %v, want %v", got, want)
	}

	// One indivisible dollar-wei of WBTC prices below a single base unit
	// and truncates to zero.
	got, err = f.valuator.TokenAmountFromUsd("WBTC", big.NewInt(1))
	if err != nil {
		t.Fatalf("TokenAmountFromUsd: %v", err)
	}
	if got.Sign() != 0 {
		t.Errorf("TokenAmountFromUsd(1) = %v, want 0", got)
	}
}

// ============================================================
// Account valuation and health
// ============================================================

func TestAccountCollateralValueSumsAssets(t *testing.T) {
	f := newFixture(t)
	owner := uuid.New()

	if err := f.ledger.Credit(owner, "WETH", usd(10)); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if err := f.ledger.Credit(owner, "WBTC", big.NewInt(3_00000000)); err != nil {
		t.Fatalf("credit: %v", err)
	}

	got, err := f.valuator.AccountCollateralValue(owner)
	if err != nil {
		t.Fatalf("AccountCollateralValue: %v", err)
	}
	// 10 * $2000 + 3 * $1000.
	if want := usd(23_000); got.Cmp(want) != 0 {
		t.Errorf("AccountCollateralValue = %v, want %v", got, want)
	}
}

func TestHealthFactorAppliesThreshold(t *testing.T) {
	f := newFixture(t)
	owner := uuid.New()

	if err := f.ledger.Credit(owner, "WETH", usd(15)); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if err := f.ledger.AddDebt(owner, usd(10_000)); err != nil {
		t.Fatalf("add debt: %v", err)
	}

	got, err := f.valuator.HealthFactor(owner)
	if err != nil {
		t.Fatalf("HealthFactor: %v", err)
	}
	// $30000 collateral at 50% threshold over $10000 debt: 1.5.
	want := new(big.Int).Add(fp.Precision, new(big.Int).Quo(fp.Precision, big.NewInt(2)))
	if got.Cmp(want) != 0 {
		t.Errorf("HealthFactor = %v, want %v", got, want)
	}
}

func TestHealthFactorWithoutDebtIsMax(t *testing.T) {
	f := newFixture(t)
	owner := uuid.New()

	if err := f.ledger.Credit(owner, "WETH", usd(1)); err != nil {
		t.Fatalf("credit: %v", err)
	}

	got, err := f.valuator.HealthFactor(owner)
	if err != nil {
		t.Fatalf("HealthFactor: %v", err)
	}
	if got.Cmp(fp.MaxHealthFactor) != 0 {
		t.Errorf("HealthFactor = %v, want MaxHealthFactor", got)
	}
}

func TestStalePriceFailsValuation(t *testing.T) {
	f := newFixture(t)
	owner := uuid.New()

	if err := f.ledger.Credit(owner, "WETH", usd(1)); err != nil {
		t.Fatalf("credit: %v", err)
	}

	f.ethFeed.Push(big.NewInt(2000_00000000), time.Now().Add(-2*time.Hour))

	if _, err := f.valuator.AccountCollateralValue(owner); !errors.Is(err, oracle.ErrStalePrice) {
		t.Errorf("err = %v, want ErrStalePrice", err)
	}
	if _, err := f.valuator.HealthFactor(owner); !errors.Is(err, oracle.ErrStalePrice) {
		t.Errorf("err = %v, want ErrStalePrice", err)
	}
}

func TestIncompleteRoundFailsValuation(t *testing.T) {
	f := newFixture(t)
	owner := uuid.New()

	if err := f.ledger.Credit(owner, "WBTC", big.NewInt(1_00000000)); err != nil {
		t.Fatalf("credit: %v", err)
	}

	f.btcFeed.SetRound(oracle.Round{
		Price:     big.NewInt(1000_00000000),
		UpdatedAt: time.Now(),
		Complete:  false,
	})

	if _, err := f.valuator.UsdValue("WBTC", big.NewInt(1)); !errors.Is(err, oracle.ErrStalePrice) {
		t.Errorf("err = %v, want ErrStalePrice", err)
	}
}

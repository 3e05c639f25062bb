// Package valuation converts ledger positions into USD terms and computes
// health factors. Every valuation reads a fresh price through the oracle
// adapter; a stale or invalid round fails the calling operation.
package valuation

import (
	"fmt"
	"math/big"

	"github.com/google/uuid"

	"StableMint/internal/ledger"
	fp "StableMint/internal/math"
	"StableMint/internal/oracle"
	"StableMint/internal/registry"
)

// Valuator prices collateral and scores account solvency.
type Valuator struct {
	registry     *registry.CollateralRegistry
	oracle       *oracle.Adapter
	ledger       *ledger.PositionLedger
	thresholdNum int64
	thresholdDen int64
}

func New(reg *registry.CollateralRegistry, adapter *oracle.Adapter, led *ledger.PositionLedger, thresholdNum, thresholdDen int64) *Valuator {
	return &Valuator{
		registry:     reg,
		oracle:       adapter,
		ledger:       led,
		thresholdNum: thresholdNum,
		thresholdDen: thresholdDen,
	}
}

// UsdValue prices an amount of one asset in 1e18 USD terms.
func (v *Valuator) UsdValue(asset string, amount *big.Int) (*big.Int, error) {
	desc, err := v.registry.Describe(asset)
	if err != nil {
		return nil, err
	}

	price, err := v.oracle.Price(desc.Feed)
	if err != nil {
		return nil, fmt.Errorf("price %s: %w", asset, err)
	}

	return fp.UsdValue(price, amount, desc.Decimals), nil
}

// TokenAmountFromUsd converts a 1e18 USD value into base units of one asset
// at the current price, rounding down.
func (v *Valuator) TokenAmountFromUsd(asset string, usd *big.Int) (*big.Int, error) {
	desc, err := v.registry.Describe(asset)
	if err != nil {
		return nil, err
	}

	price, err := v.oracle.Price(desc.Feed)
	if err != nil {
		return nil, fmt.Errorf("price %s: %w", asset, err)
	}

	return fp.TokenAmountFromUsd(usd, price, desc.Decimals), nil
}

// AccountCollateralValue sums the USD value of every asset an account has
// deposited. Assets are visited in the registry's deterministic order.
func (v *Valuator) AccountCollateralValue(owner uuid.UUID) (*big.Int, error) {
	total := new(big.Int)
	for _, asset := range v.registry.Assets() {
		balance := v.ledger.CollateralBalance(owner, asset)
		if balance.Sign() == 0 {
			continue
		}

		value, err := v.UsdValue(asset, balance)
		if err != nil {
			return nil, err
		}
		total.Add(total, value)
	}
	return total, nil
}

// HealthFactor scores an account's solvency: adjusted collateral value over
// debt, in 1e18 fixed point. A debt-free account scores the maximum value.
func (v *Valuator) HealthFactor(owner uuid.UUID) (*big.Int, error) {
	collateralUsd, err := v.AccountCollateralValue(owner)
	if err != nil {
		return nil, err
	}
	debt := v.ledger.DebtOf(owner)
	return fp.HealthFactor(collateralUsd, debt, v.thresholdNum, v.thresholdDen), nil
}

package engine

import (
	"math/big"

	"github.com/google/uuid"
)

// AccountInfo is the per-account summary returned by AccountInformation.
type AccountInfo struct {
	Debt               *big.Int
	CollateralValueUsd *big.Int
	HealthFactor       *big.Int
	Collateral         map[string]*big.Int
}

// SolvencyReport compares system-wide collateral value against outstanding
// debt at current prices.
type SolvencyReport struct {
	TotalDebt          *big.Int
	TotalCollateralUsd *big.Int
	Collateral         map[string]*big.Int
	Solvent            bool
}

// HealthFactor scores the user's position at current prices.
func (e *Engine) HealthFactor(user uuid.UUID) (*big.Int, error) {
	return e.valuator.HealthFactor(user)
}

// AccountCollateralValue prices the user's deposits in 1e18 USD terms.
func (e *Engine) AccountCollateralValue(user uuid.UUID) (*big.Int, error) {
	return e.valuator.AccountCollateralValue(user)
}

// CollateralBalanceOf returns the user's recorded deposit of one asset.
// Unknown users and assets read as zero.
func (e *Engine) CollateralBalanceOf(user uuid.UUID, asset string) *big.Int {
	return e.ledger.CollateralBalance(user, asset)
}

// DebtOf returns the user's outstanding debt.
func (e *Engine) DebtOf(user uuid.UUID) *big.Int {
	return e.ledger.DebtOf(user)
}

// AccountInformation gathers debt, collateral value, health factor, and
// per-asset balances for one account.
func (e *Engine) AccountInformation(user uuid.UUID) (AccountInfo, error) {
	value, err := e.valuator.AccountCollateralValue(user)
	if err != nil {
		return AccountInfo{}, err
	}
	hf, err := e.valuator.HealthFactor(user)
	if err != nil {
		return AccountInfo{}, err
	}

	collateral := make(map[string]*big.Int)
	for _, asset := range e.registry.Assets() {
		if bal := e.ledger.CollateralBalance(user, asset); bal.Sign() > 0 {
			collateral[asset] = bal
		}
	}

	return AccountInfo{
		Debt:               e.ledger.DebtOf(user),
		CollateralValueUsd: value,
		HealthFactor:       hf,
		Collateral:         collateral,
	}, nil
}

// SupportedAssets lists the registered collateral assets.
func (e *Engine) SupportedAssets() []string {
	return e.registry.Assets()
}

// Config returns the engine's risk constants.
func (e *Engine) Config() Config {
	cfg := e.cfg
	cfg.MinHealthFactor = new(big.Int).Set(e.cfg.MinHealthFactor)
	return cfg
}

// Solvency reports whether deposited collateral still out-values the debt
// supply at current prices.
func (e *Engine) Solvency() (SolvencyReport, error) {
	totalUsd := new(big.Int)
	collateral := make(map[string]*big.Int)

	for _, asset := range e.registry.Assets() {
		deposited := e.ledger.TotalCollateral(asset)
		collateral[asset] = deposited
		if deposited.Sign() == 0 {
			continue
		}

		value, err := e.valuator.UsdValue(asset, deposited)
		if err != nil {
			return SolvencyReport{}, err
		}
		totalUsd.Add(totalUsd, value)
	}

	debt := e.ledger.TotalDebt()
	return SolvencyReport{
		TotalDebt:          debt,
		TotalCollateralUsd: totalUsd,
		Collateral:         collateral,
		Solvent:            totalUsd.Cmp(debt) >= 0,
	}, nil
}

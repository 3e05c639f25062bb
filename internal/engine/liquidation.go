package engine

import (
	"fmt"
	"math/big"

	"github.com/google/uuid"

	"StableMint/internal/event"
	"StableMint/internal/ledger"
)

// Liquidate lets a third party repay part of an insolvent target's debt in
// exchange for the equivalent collateral plus a bonus. The target's health
// factor is recomputed at fresh prices after the seizure and must not have
// decreased, and must sit at or above the minimum. Any failure restores
// state exactly.
func (e *Engine) Liquidate(liquidator, target uuid.UUID, asset string, debtToCover *big.Int) error {
	op := "liquidate"
	defer e.track(op)()
	if err := e.enter(); err != nil {
		return e.rejected(op, err)
	}
	defer e.exit()

	if debtToCover == nil || debtToCover.Sign() <= 0 {
		return e.rejected(op, ledger.ErrZeroAmount)
	}
	if _, err := e.registry.Describe(asset); err != nil {
		return e.rejected(op, err)
	}

	healthBefore, err := e.valuator.HealthFactor(target)
	if err != nil {
		return e.rejected(op, err)
	}
	if healthBefore.Cmp(e.cfg.MinHealthFactor) >= 0 {
		return e.rejected(op, fmt.Errorf("%w: health factor %s", ErrNotLiquidatable, healthBefore))
	}

	base, err := e.valuator.TokenAmountFromUsd(asset, debtToCover)
	if err != nil {
		return e.rejected(op, err)
	}
	bonus := new(big.Int).Mul(base, big.NewInt(e.cfg.LiquidationBonus))
	bonus.Quo(bonus, big.NewInt(e.cfg.LiquidationPrecision))
	seize := new(big.Int).Add(base, bonus)
	if seize.Sign() == 0 {
		return e.rejected(op, fmt.Errorf("%w: covered debt converts to zero collateral", ledger.ErrZeroAmount))
	}

	// Effects first. Debit fails outright when the target holds less of the
	// asset than the seizure requires; there is no partial seize.
	if err := e.ledger.Debit(target, asset, seize); err != nil {
		return e.rejected(op, err)
	}
	if err := e.ledger.ReduceDebt(target, debtToCover); err != nil {
		e.creditBack(target, asset, seize)
		return e.rejected(op, err)
	}

	rollback := func() {
		e.creditBack(target, asset, seize)
		if rbErr := e.ledger.AddDebt(target, debtToCover); rbErr != nil {
			e.log.Error().Err(rbErr).Msg("liquidation rollback: debt restore failed")
		}
	}

	healthAfter, err := e.valuator.HealthFactor(target)
	if err != nil {
		rollback()
		return e.rejected(op, err)
	}
	if healthAfter.Cmp(healthBefore) < 0 {
		rollback()
		return e.rejected(op, fmt.Errorf("%w: %s -> %s", ErrHealthFactorNotImproved, healthBefore, healthAfter))
	}
	if healthAfter.Cmp(e.cfg.MinHealthFactor) < 0 {
		rollback()
		return e.rejected(op, &HealthFactorError{HealthFactor: healthAfter})
	}

	// Interactions last: settle the covered debt, then pay out the seized
	// collateral.
	if err := e.debt.TransferFrom(liquidator, e.self, debtToCover); err != nil {
		rollback()
		return e.rejected(op, fmt.Errorf("%w: pull debt units: %v", ErrTransferFailed, err))
	}
	if err := e.debt.Burn(debtToCover); err != nil {
		if rbErr := e.debt.TransferFrom(e.self, liquidator, debtToCover); rbErr != nil {
			e.log.Error().Err(rbErr).Msg("liquidation rollback: unit return failed")
		}
		rollback()
		return e.rejected(op, fmt.Errorf("%w: burn debt units: %v", ErrTransferFailed, err))
	}
	if err := e.collateral[asset].Transfer(liquidator, seize); err != nil {
		// The covered units are already destroyed; the engine re-mints them
		// back to the liquidator as the compensating action.
		if rbErr := e.debt.Mint(liquidator, debtToCover); rbErr != nil {
			e.log.Error().Err(rbErr).Msg("liquidation rollback: re-mint failed")
		}
		rollback()
		return e.rejected(op, fmt.Errorf("%w: send %s: %v", ErrTransferFailed, asset, err))
	}

	e.emit(event.LiquidationExecuted{
		Liquidator:       liquidator,
		Target:           target,
		Asset:            asset,
		DebtCovered:      debtToCover.String(),
		CollateralSeized: seize.String(),
		Bonus:            bonus.String(),
		HealthBefore:     healthBefore.String(),
		HealthAfter:      healthAfter.String(),
	})
	if e.metrics != nil {
		e.metrics.Liquidations.WithLabelValues(asset).Inc()
		e.metrics.CollateralSeized.WithLabelValues(asset).Add(bigFloat(seize))
		e.metrics.LiquidationBonus.WithLabelValues(asset).Add(bigFloat(bonus))
	}
	e.applied(op, target)
	return nil
}

func (e *Engine) creditBack(target uuid.UUID, asset string, seize *big.Int) {
	if rbErr := e.ledger.Credit(target, asset, seize); rbErr != nil {
		e.log.Error().Err(rbErr).Msg("liquidation rollback: collateral restore failed")
	}
}

package engine

import (
	"errors"
	"fmt"
	"math/big"
)

var (
	// ErrTransferFailed wraps a collaborator transfer that did not complete.
	ErrTransferFailed = errors.New("engine: transfer failed")

	// ErrNotLiquidatable rejects liquidation of a healthy position.
	ErrNotLiquidatable = errors.New("engine: health factor ok")

	// ErrHealthFactorNotImproved rejects a liquidation that left the target
	// position worse than it found it.
	ErrHealthFactorNotImproved = errors.New("engine: health factor not improved")

	// ErrReentrantCall rejects a nested call into the engine while another
	// operation is mid-flight.
	ErrReentrantCall = errors.New("engine: reentrant call")
)

// HealthFactorError reports a solvency violation together with the observed
// health factor, 1e18 fixed point.
type HealthFactorError struct {
	HealthFactor *big.Int
}

func (e *HealthFactorError) Error() string {
	return fmt.Sprintf("engine: health factor %s below minimum", e.HealthFactor)
}

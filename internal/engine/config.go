package engine

import (
	"fmt"
	"math/big"
	"time"

	fp "StableMint/internal/math"
)

// Config carries the engine's risk constants. The struct is validated once at
// construction and never mutated afterward.
type Config struct {
	// LiquidationThreshold over LiquidationPrecision is the fraction of
	// collateral value that counts toward solvency. 50/100 means a position
	// must stay at least 200% over-collateralized.
	LiquidationThreshold int64
	LiquidationPrecision int64

	// LiquidationBonus over LiquidationPrecision is the extra collateral a
	// liquidator receives on top of the covered debt's value.
	LiquidationBonus int64

	// MinHealthFactor is the solvency floor, 1e18 fixed point.
	MinHealthFactor *big.Int

	// StalenessWindow bounds the age of an acceptable oracle round.
	StalenessWindow time.Duration
}

func DefaultConfig() Config {
	return Config{
		LiquidationThreshold: 50,
		LiquidationPrecision: 100,
		LiquidationBonus:     10,
		MinHealthFactor:      new(big.Int).Set(fp.Precision),
		StalenessWindow:      3 * time.Hour,
	}
}

func (c Config) Validate() error {
	if c.LiquidationPrecision <= 0 {
		return fmt.Errorf("liquidation precision must be positive, got %d", c.LiquidationPrecision)
	}
	if c.LiquidationThreshold <= 0 || c.LiquidationThreshold > c.LiquidationPrecision {
		return fmt.Errorf("liquidation threshold %d/%d out of range",
			c.LiquidationThreshold, c.LiquidationPrecision)
	}
	if c.LiquidationBonus < 0 || c.LiquidationBonus > c.LiquidationPrecision {
		return fmt.Errorf("liquidation bonus %d/%d out of range",
			c.LiquidationBonus, c.LiquidationPrecision)
	}
	if c.MinHealthFactor == nil || c.MinHealthFactor.Sign() <= 0 {
		return fmt.Errorf("min health factor must be positive, got %v", c.MinHealthFactor)
	}
	if c.StalenessWindow <= 0 {
		return fmt.Errorf("staleness window must be positive, got %s", c.StalenessWindow)
	}
	return nil
}

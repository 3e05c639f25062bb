package query

import "github.com/google/uuid"

// Amounts are decimal strings throughout: JSON numbers cannot represent the
// engine's 256-bit values.

// AccountSummary is the response shape for a single account.
type AccountSummary struct {
	User               uuid.UUID         `json:"user"`
	Debt               string            `json:"debt"`
	CollateralValueUsd string            `json:"collateral_value_usd"`
	HealthFactor       string            `json:"health_factor"`
	Collateral         map[string]string `json:"collateral"`
}

// CollateralBalance is the response shape for one account/asset pair.
type CollateralBalance struct {
	User    uuid.UUID `json:"user"`
	Asset   string    `json:"asset"`
	Balance string    `json:"balance"`
}

// AssetInfo describes one registered collateral asset.
type AssetInfo struct {
	Asset    string `json:"asset"`
	Decimals int    `json:"decimals"`
}

// ConfigInfo exposes the engine's risk constants.
type ConfigInfo struct {
	LiquidationThreshold int64  `json:"liquidation_threshold"`
	LiquidationPrecision int64  `json:"liquidation_precision"`
	LiquidationBonus     int64  `json:"liquidation_bonus"`
	MinHealthFactor      string `json:"min_health_factor"`
	StalenessWindow      string `json:"staleness_window"`
}

// SolvencyReport compares system collateral value against debt supply.
type SolvencyReport struct {
	TotalDebt          string            `json:"total_debt"`
	TotalCollateralUsd string            `json:"total_collateral_usd"`
	Collateral         map[string]string `json:"collateral"`
	Solvent            bool              `json:"solvent"`
}

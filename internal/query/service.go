// Package query shapes engine state into API responses. It is strictly
// read-only; every answer reflects the ledger at call time priced by the
// current oracle rounds.
package query

import (
	"github.com/google/uuid"

	"StableMint/internal/engine"
	"StableMint/internal/registry"
)

type Service struct {
	eng      *engine.Engine
	registry *registry.CollateralRegistry
}

func NewService(eng *engine.Engine, reg *registry.CollateralRegistry) *Service {
	return &Service{eng: eng, registry: reg}
}

// Account summarizes one account's position.
func (s *Service) Account(user uuid.UUID) (AccountSummary, error) {
	info, err := s.eng.AccountInformation(user)
	if err != nil {
		return AccountSummary{}, err
	}

	collateral := make(map[string]string, len(info.Collateral))
	for asset, bal := range info.Collateral {
		collateral[asset] = bal.String()
	}

	return AccountSummary{
		User:               user,
		Debt:               info.Debt.String(),
		CollateralValueUsd: info.CollateralValueUsd.String(),
		HealthFactor:       info.HealthFactor.String(),
		Collateral:         collateral,
	}, nil
}

// Collateral returns one account's recorded balance of one asset.
func (s *Service) Collateral(user uuid.UUID, asset string) (CollateralBalance, error) {
	if _, err := s.registry.Describe(asset); err != nil {
		return CollateralBalance{}, err
	}
	return CollateralBalance{
		User:    user,
		Asset:   asset,
		Balance: s.eng.CollateralBalanceOf(user, asset).String(),
	}, nil
}

// Assets lists the registered collateral assets.
func (s *Service) Assets() ([]AssetInfo, error) {
	assets := s.registry.Assets()
	out := make([]AssetInfo, 0, len(assets))
	for _, asset := range assets {
		desc, err := s.registry.Describe(asset)
		if err != nil {
			return nil, err
		}
		out = append(out, AssetInfo{Asset: desc.Asset, Decimals: desc.Decimals})
	}
	return out, nil
}

// Config exposes the engine's risk constants.
func (s *Service) Config() ConfigInfo {
	cfg := s.eng.Config()
	return ConfigInfo{
		LiquidationThreshold: cfg.LiquidationThreshold,
		LiquidationPrecision: cfg.LiquidationPrecision,
		LiquidationBonus:     cfg.LiquidationBonus,
		MinHealthFactor:      cfg.MinHealthFactor.String(),
		StalenessWindow:      cfg.StalenessWindow.String(),
	}
}

// Solvency reports system-wide collateral value against debt supply.
func (s *Service) Solvency() (SolvencyReport, error) {
	report, err := s.eng.Solvency()
	if err != nil {
		return SolvencyReport{}, err
	}

	collateral := make(map[string]string, len(report.Collateral))
	for asset, bal := range report.Collateral {
		collateral[asset] = bal.String()
	}

	return SolvencyReport{
		TotalDebt:          report.TotalDebt.String(),
		TotalCollateralUsd: report.TotalCollateralUsd.String(),
		Collateral:         collateral,
		Solvent:            report.Solvent,
	}, nil
}

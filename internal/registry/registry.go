// Package registry holds the fixed set of collateral assets the engine
// accepts. The set is established at construction and is read-only for the
// lifetime of the engine; no asset may be added or removed afterward.
package registry

import (
	"errors"
	"fmt"
	"sort"

	"StableMint/internal/oracle"
)

var ErrUnknownAsset = errors.New("unknown asset")

// AssetDescriptor describes one accepted collateral asset.
type AssetDescriptor struct {
	Asset    string           // symbol, e.g. "WETH"
	Feed     oracle.PriceFeed // USD price source
	Decimals int              // base-unit decimal precision
}

// CollateralRegistry is the append-at-construction-only asset set.
type CollateralRegistry struct {
	descriptors map[string]AssetDescriptor
	assets      []string // sorted, for deterministic iteration
}

// New validates and freezes the descriptor set. Malformed configuration
// (duplicate or empty asset ids, nil feeds, non-positive decimals) fails
// fast here rather than at call time.
func New(descriptors []AssetDescriptor) (*CollateralRegistry, error) {
	if len(descriptors) == 0 {
		return nil, fmt.Errorf("registry requires at least one collateral asset")
	}

	byAsset := make(map[string]AssetDescriptor, len(descriptors))
	assets := make([]string, 0, len(descriptors))

	for _, d := range descriptors {
		if d.Asset == "" {
			return nil, fmt.Errorf("descriptor has empty asset id")
		}
		if _, dup := byAsset[d.Asset]; dup {
			return nil, fmt.Errorf("duplicate asset %q", d.Asset)
		}
		if d.Feed == nil {
			return nil, fmt.Errorf("asset %q has nil price feed", d.Asset)
		}
		if d.Decimals <= 0 || d.Decimals > 36 {
			return nil, fmt.Errorf("asset %q has invalid decimals %d", d.Asset, d.Decimals)
		}

		byAsset[d.Asset] = d
		assets = append(assets, d.Asset)
	}

	sort.Strings(assets)

	return &CollateralRegistry{
		descriptors: byAsset,
		assets:      assets,
	}, nil
}

// IsSupported reports whether the asset was registered at construction.
func (r *CollateralRegistry) IsSupported(asset string) bool {
	_, ok := r.descriptors[asset]
	return ok
}

// Describe returns the descriptor for a registered asset.
func (r *CollateralRegistry) Describe(asset string) (AssetDescriptor, error) {
	d, ok := r.descriptors[asset]
	if !ok {
		return AssetDescriptor{}, fmt.Errorf("%w: %s", ErrUnknownAsset, asset)
	}
	return d, nil
}

// Assets returns the registered asset ids in deterministic order.
func (r *CollateralRegistry) Assets() []string {
	out := make([]string, len(r.assets))
	copy(out, r.assets)
	return out
}

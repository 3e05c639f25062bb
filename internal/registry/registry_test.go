package registry

import (
	"errors"
	"math/big"
	"testing"

	"StableMint/internal/oracle"
)

func descriptors() []AssetDescriptor {
	feed := oracle.NewMemoryFeed(big.NewInt(1_00000000))
	return []AssetDescriptor{
		{Asset: "WETH", Feed: feed, Decimals: 18},
		{Asset: "WBTC", Feed: feed, Decimals: 8},
	}
}

func TestNewFreezesAssetSet(t *testing.T) {
	r, err := New(descriptors())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if !r.IsSupported("WETH") || !r.IsSupported("WBTC") {
		t.Error("registered assets not supported")
	}
	if r.IsSupported("DOGE") {
		t.Error("unregistered asset reported supported")
	}

	got := r.Assets()
	if len(got) != 2 || got[0] != "WBTC" || got[1] != "WETH" {
		t.Errorf("Assets() = %v, want sorted [WBTC WETH]", got)
	}
}

func TestNewValidation(t *testing.T) {
	feed := oracle.NewMemoryFeed(big.NewInt(1))

	cases := []struct {
		name string
		in   []AssetDescriptor
	}{
		{"empty set", nil},
		{"empty id", []AssetDescriptor{{Asset: "", Feed: feed, Decimals: 18}}},
		{"nil feed", []AssetDescriptor{{Asset: "WETH", Feed: nil, Decimals: 18}}},
		{"zero decimals", []AssetDescriptor{{Asset: "WETH", Feed: feed, Decimals: 0}}},
		{"absurd decimals", []AssetDescriptor{{Asset: "WETH", Feed: feed, Decimals: 40}}},
		{"duplicate", []AssetDescriptor{
			{Asset: "WETH", Feed: feed, Decimals: 18},
			{Asset: "WETH", Feed: feed, Decimals: 18},
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := New(tc.in); err == nil {
				t.Error("New accepted malformed descriptors")
			}
		})
	}
}

func TestDescribe(t *testing.T) {
	r, err := New(descriptors())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	d, err := r.Describe("WBTC")
	if err != nil {
		t.Fatalf("Describe: %v", err)
	}
	if d.Decimals != 8 {
		t.Errorf("decimals = %d, want 8", d.Decimals)
	}

	if _, err := r.Describe("DOGE"); !errors.Is(err, ErrUnknownAsset) {
		t.Errorf("err = %v, want ErrUnknownAsset", err)
	}
}

func TestAssetsReturnsCopy(t *testing.T) {
	r, err := New(descriptors())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	r.Assets()[0] = "HACK"
	if got := r.Assets(); got[0] != "WBTC" {
		t.Errorf("asset list mutated through copy: %v", got)
	}
}

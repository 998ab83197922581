package revenuesplit

import (
	"fmt"
	"sort"
	"strings"
)

// HomeSize is the home-size category chosen at checkout.
type HomeSize string

const (
	HomeSizePocketPalace    HomeSize = "pocket_palace"
	HomeSizeFamilyHub       HomeSize = "family_hub"
	HomeSizeGrandEstate     HomeSize = "grand_estate"
	HomeSizeMonumentalManor HomeSize = "monumental_manor"
	HomeSizeEpicEstate      HomeSize = "epic_estate"
)

// FeeTier selects how the long-term placement fee is derived.
type FeeTier string

const (
	// FeeTierFlat charges FlatPlacementFee regardless of rate.
	FeeTierFlat FeeTier = "flat"
	// FeeTierPremium charges PremiumFeePercent of the monthly rate.
	FeeTierPremium FeeTier = "premium"
)

// FeeTable maps every home size to exactly one fee tier.
type FeeTable map[HomeSize]FeeTier

// HomeSizes lists every recognised home size in ascending order of size.
func HomeSizes() []HomeSize {
	return []HomeSize{
		HomeSizePocketPalace,
		HomeSizeFamilyHub,
		HomeSizeGrandEstate,
		HomeSizeMonumentalManor,
		HomeSizeEpicEstate,
	}
}

// DefaultFeeTable returns the canonical tier mapping. grand_estate is
// premium here and can be overridden through policy configuration.
func DefaultFeeTable() FeeTable {
	return FeeTable{
		HomeSizePocketPalace:    FeeTierFlat,
		HomeSizeFamilyHub:       FeeTierFlat,
		HomeSizeGrandEstate:     FeeTierPremium,
		HomeSizeMonumentalManor: FeeTierPremium,
		HomeSizeEpicEstate:      FeeTierPremium,
	}
}

// ParseHomeSize normalises raw input into a HomeSize.
func ParseHomeSize(raw string) (HomeSize, error) {
	value := HomeSize(strings.ToLower(strings.TrimSpace(raw)))
	for _, size := range HomeSizes() {
		if size == value {
			return size, nil
		}
	}
	return "", ErrInvalidHomeSize
}

// WithOverrides returns a copy of the table with the given tiers applied.
func (t FeeTable) WithOverrides(overrides map[string]string) (FeeTable, error) {
	out := make(FeeTable, len(t))
	for size, tier := range t {
		out[size] = tier
	}
	keys := make([]string, 0, len(overrides))
	for key := range overrides {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		size, err := ParseHomeSize(key)
		if err != nil {
			return nil, fmt.Errorf("placement fee override %q: %w", key, err)
		}
		tier := FeeTier(strings.ToLower(strings.TrimSpace(overrides[key])))
		if tier != FeeTierFlat && tier != FeeTierPremium {
			return nil, fmt.Errorf("placement fee override %q: %w", key, ErrInvalidFeeTier)
		}
		out[size] = tier
	}
	return out, nil
}

// Validate ensures every home size resolves to a known tier.
func (t FeeTable) Validate() error {
	for _, size := range HomeSizes() {
		tier, ok := t[size]
		if !ok {
			return fmt.Errorf("home size %s: %w", size, ErrInvalidFeeTier)
		}
		if tier != FeeTierFlat && tier != FeeTierPremium {
			return fmt.Errorf("home size %s: %w", size, ErrInvalidFeeTier)
		}
	}
	return nil
}

// Tier returns the configured tier for the home size.
func (t FeeTable) Tier(size HomeSize) (FeeTier, error) {
	tier, ok := t[size]
	if !ok {
		return "", ErrInvalidHomeSize
	}
	return tier, nil
}

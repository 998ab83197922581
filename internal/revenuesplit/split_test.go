package revenuesplit

import (
	"errors"
	"testing"

	"github.com/smallbiznis/nannyhub/internal/apperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLongTermFamilyHubScenario(t *testing.T) {
	got, err := Calculate(Input{
		Category: CategoryLongTerm,
		Rate:     800_000,
		HomeSize: HomeSizeFamilyHub,
	})
	require.NoError(t, err)

	assert.Equal(t, Result{
		FixedFee:          250_000,
		CommissionPercent: 15,
		CommissionAmount:  120_000,
		PayerTotal:        370_000,
		PayeeNet:          680_000,
	}, got)
}

func TestShortTermScenario(t *testing.T) {
	got, err := Calculate(Input{
		Category:    CategoryShortTerm,
		Rate:        50_000,
		HomeSize:    HomeSizePocketPalace,
		BookingDays: 3,
	})
	require.NoError(t, err)

	assert.Equal(t, Result{
		FixedFee:          10_500,
		CommissionPercent: 20,
		CommissionAmount:  7_900,
		PayerTotal:        18_400,
		PayeeNet:          42_100,
	}, got)
}

func TestCommissionTierBoundaries(t *testing.T) {
	cases := []struct {
		name string
		rate int64
		want int64
	}{
		{name: "exactly_5000", rate: 500_000, want: 10},
		{name: "just_above_5000", rate: 500_001, want: 15},
		{name: "just_below_10000", rate: 999_999, want: 15},
		{name: "exactly_10000", rate: 1_000_000, want: 25},
		{name: "zero", rate: 0, want: 10},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Calculate(Input{Category: CategoryLongTerm, Rate: tc.rate, HomeSize: HomeSizeFamilyHub})
			require.NoError(t, err)
			assert.Equal(t, tc.want, got.CommissionPercent)
		})
	}
}

func TestShortTermFeeFloor(t *testing.T) {
	for _, days := range []int{0, -4, 1} {
		got, err := Calculate(Input{Category: CategoryShortTerm, Rate: 50_000, HomeSize: HomeSizeFamilyHub, BookingDays: days})
		require.NoError(t, err)
		assert.Equal(t, int64(3_500), got.FixedFee, "days=%d", days)
	}
}

func TestShortTermTotalBelowFixedFee(t *testing.T) {
	got, err := Calculate(Input{Category: CategoryShortTerm, Rate: 5_000, HomeSize: HomeSizeFamilyHub, BookingDays: 2})
	require.NoError(t, err)

	assert.Equal(t, int64(7_000), got.FixedFee)
	assert.Equal(t, int64(0), got.CommissionAmount)
	assert.Equal(t, int64(5_000), got.PayeeNet)
}

func TestPremiumTierUsesHalfOfRate(t *testing.T) {
	for _, size := range []HomeSize{HomeSizeGrandEstate, HomeSizeMonumentalManor, HomeSizeEpicEstate} {
		got, err := Calculate(Input{Category: CategoryLongTerm, Rate: 1_200_001, HomeSize: size})
		require.NoError(t, err)
		assert.Equal(t, int64(600_001), got.FixedFee, "home size %s", size)
		assert.Equal(t, int64(25), got.CommissionPercent)
		assert.Equal(t, int64(300_000), got.CommissionAmount)
	}
}

func TestGrandEstateOverrideToFlat(t *testing.T) {
	table, err := DefaultFeeTable().WithOverrides(map[string]string{"grand_estate": "flat"})
	require.NoError(t, err)

	engine := NewEngine(func() FeeTable { return table })
	got, err := engine.Calculate(Input{Category: CategoryLongTerm, Rate: 800_000, HomeSize: HomeSizeGrandEstate})
	require.NoError(t, err)
	assert.Equal(t, FlatPlacementFee, got.FixedFee)
}

func TestLongTermInvariantsHoldAcrossRates(t *testing.T) {
	for _, size := range HomeSizes() {
		for rate := int64(0); rate <= 2_000_000; rate += 33_333 {
			got, err := Calculate(Input{Category: CategoryLongTerm, Rate: rate, HomeSize: size})
			require.NoError(t, err)
			assert.Equal(t, got.FixedFee+got.CommissionAmount, got.PayerTotal)
			assert.Equal(t, rate-got.CommissionAmount, got.PayeeNet)
		}
	}
}

func TestCalculateIsDeterministic(t *testing.T) {
	in := Input{Category: CategoryShortTerm, Rate: 123_457, HomeSize: HomeSizeMonumentalManor, BookingDays: 5}
	first, err := Calculate(in)
	require.NoError(t, err)
	second, err := Calculate(in)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestRoundingHappensAfterMultiplication(t *testing.T) {
	// 5000.05 * 15% = 750.0075 -> 750.01
	got, err := Calculate(Input{Category: CategoryLongTerm, Rate: 500_005, HomeSize: HomeSizeFamilyHub})
	require.NoError(t, err)
	assert.Equal(t, int64(75_001), got.CommissionAmount)
}

func TestValidationErrors(t *testing.T) {
	cases := []struct {
		name string
		in   Input
		want error
	}{
		{name: "unknown_home_size", in: Input{Category: CategoryLongTerm, Rate: 1, HomeSize: "castle"}, want: ErrInvalidHomeSize},
		{name: "negative_rate", in: Input{Category: CategoryLongTerm, Rate: -1, HomeSize: HomeSizeFamilyHub}, want: ErrInvalidRate},
		{name: "unknown_category", in: Input{Category: "weekly", Rate: 1, HomeSize: HomeSizeFamilyHub}, want: ErrInvalidCategory},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Calculate(tc.in)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tc.want))
			assert.True(t, apperror.IsValidation(err))
		})
	}
}

func TestFeeTableOverrideRejectsUnknownValues(t *testing.T) {
	_, err := DefaultFeeTable().WithOverrides(map[string]string{"grand_estate": "half"})
	assert.ErrorIs(t, err, ErrInvalidFeeTier)

	_, err = DefaultFeeTable().WithOverrides(map[string]string{"castle": "flat"})
	assert.ErrorIs(t, err, ErrInvalidHomeSize)
}

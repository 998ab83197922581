package revenuesplit

import (
	"strings"

	"github.com/smallbiznis/nannyhub/internal/apperror"
)

// Category distinguishes monthly placements from one-off bookings.
type Category string

const (
	CategoryShortTerm Category = "short_term"
	CategoryLongTerm  Category = "long_term"
)

// Amounts are minor units (cents).
const (
	FlatPlacementFee    int64 = 250_000
	PremiumFeePercent   int64 = 50
	ShortTermDailyFee   int64 = 3_500
	ShortTermCommission int64 = 20

	LowerCommissionThreshold int64 = 500_000
	UpperCommissionThreshold int64 = 1_000_000

	LowCommissionPercent  int64 = 10
	MidCommissionPercent  int64 = 15
	HighCommissionPercent int64 = 25
)

var (
	ErrInvalidHomeSize = apperror.Validation("invalid_home_size")
	ErrInvalidCategory = apperror.Validation("invalid_booking_category")
	ErrInvalidRate     = apperror.Validation("invalid_rate")
	ErrInvalidFeeTier  = apperror.Validation("invalid_fee_tier")
)

// Input describes the booking attributes that drive the split.
// Rate is the monthly rate for long-term bookings and the total amount
// for short-term bookings.
type Input struct {
	Category    Category
	Rate        int64
	HomeSize    HomeSize
	BookingDays int
}

// Result is the decomposition of a booking price.
type Result struct {
	FixedFee          int64 `json:"fixed_fee"`
	CommissionPercent int64 `json:"commission_percent"`
	CommissionAmount  int64 `json:"commission_amount"`
	PayerTotal        int64 `json:"payer_total"`
	PayeeNet          int64 `json:"payee_net"`
}

// ParseCategory normalises raw input into a Category.
func ParseCategory(raw string) (Category, error) {
	switch Category(strings.ToLower(strings.TrimSpace(raw))) {
	case CategoryShortTerm:
		return CategoryShortTerm, nil
	case CategoryLongTerm:
		return CategoryLongTerm, nil
	default:
		return "", ErrInvalidCategory
	}
}

// TableFunc yields the fee table in effect at call time.
type TableFunc func() FeeTable

// Engine computes splits against a fee table that may change at runtime.
type Engine struct {
	table TableFunc
}

func NewEngine(table TableFunc) *Engine {
	if table == nil {
		table = DefaultFeeTable
	}
	return &Engine{table: table}
}

func (e *Engine) Calculate(in Input) (Result, error) {
	if e == nil {
		return Calculate(in)
	}
	return CalculateWithTable(e.table(), in)
}

// Calculate computes the split with the default fee table.
func Calculate(in Input) (Result, error) {
	return CalculateWithTable(DefaultFeeTable(), in)
}

// CalculateWithTable computes the split with an explicit fee table.
func CalculateWithTable(table FeeTable, in Input) (Result, error) {
	if in.Rate < 0 {
		return Result{}, ErrInvalidRate
	}
	size, err := ParseHomeSize(string(in.HomeSize))
	if err != nil {
		return Result{}, err
	}

	switch in.Category {
	case CategoryLongTerm:
		tier, err := table.Tier(size)
		if err != nil {
			return Result{}, err
		}
		return longTerm(in.Rate, tier), nil
	case CategoryShortTerm:
		return shortTerm(in.Rate, in.BookingDays), nil
	default:
		return Result{}, ErrInvalidCategory
	}
}

// LongTermCommissionPercent returns the sliding-scale percentage for a
// monthly rate.
func LongTermCommissionPercent(monthlyRate int64) int64 {
	switch {
	case monthlyRate >= UpperCommissionThreshold:
		return HighCommissionPercent
	case monthlyRate <= LowerCommissionThreshold:
		return LowCommissionPercent
	default:
		return MidCommissionPercent
	}
}

func longTerm(rate int64, tier FeeTier) Result {
	fixedFee := FlatPlacementFee
	if tier == FeeTierPremium {
		fixedFee = percentOf(rate, PremiumFeePercent)
	}
	pct := LongTermCommissionPercent(rate)
	commission := percentOf(rate, pct)
	return Result{
		FixedFee:          fixedFee,
		CommissionPercent: pct,
		CommissionAmount:  commission,
		PayerTotal:        fixedFee + commission,
		PayeeNet:          rate - commission,
	}
}

func shortTerm(total int64, days int) Result {
	if days < 1 {
		days = 1
	}
	fixedFee := ShortTermDailyFee * int64(days)
	base := total - fixedFee
	if base < 0 {
		base = 0
	}
	commission := percentOf(base, ShortTermCommission)
	return Result{
		FixedFee:          fixedFee,
		CommissionPercent: ShortTermCommission,
		CommissionAmount:  commission,
		PayerTotal:        fixedFee + commission,
		PayeeNet:          total - commission,
	}
}

// percentOf multiplies first and rounds half-up to the nearest cent.
func percentOf(amount, pct int64) int64 {
	return (amount*pct + 50) / 100
}

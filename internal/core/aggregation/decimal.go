package aggregation

import "github.com/shopspring/decimal"

// RateScale is the number of decimal places rates and means are rounded to.
const RateScale = 4

// Ratio returns num/den, or an invalid NullDecimal when den is zero.
func Ratio(num, den int64) decimal.NullDecimal {
	if den == 0 {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(
		decimal.NewFromInt(num).DivRound(decimal.NewFromInt(den), RateScale),
	)
}

// ClampedRatio returns num/den capped at 1. A zero denominator yields zero;
// callers that must distinguish that case exclude the row before asking.
func ClampedRatio(num, den int64) decimal.Decimal {
	if den <= 0 {
		return decimal.Zero
	}
	if num > den {
		num = den
	}
	return decimal.NewFromInt(num).DivRound(decimal.NewFromInt(den), RateScale)
}

// Mean divides sum by n, or returns zero for an empty group.
func Mean(sum decimal.Decimal, n int64) decimal.Decimal {
	if n == 0 {
		return decimal.Zero
	}
	return sum.DivRound(decimal.NewFromInt(n), RateScale)
}

package ledger

import (
	"errors"

	"github.com/shopspring/decimal"

	"tabung/internal/models"
)

// TotalTolerance is how far the allowed buckets may sum from 100 and still be saved.
var TotalTolerance = decimal.RequireFromString("0.1")

// ErrZeroSum is returned by AutoAdjust when there is nothing to scale.
var ErrZeroSum = errors.New("ledger: allowed bucket percentages sum to zero")

// SumOf adds the percentages of the given buckets.
func SumOf(percentages models.Percentages, buckets []models.Bucket) decimal.Decimal {
	sum := decimal.Zero
	for _, b := range buckets {
		sum = sum.Add(percentages.Get(b))
	}
	return sum
}

// ValidateTotal sums the allowed buckets and reports whether the sum is
// within TotalTolerance of 100.
func ValidateTotal(percentages models.Percentages, allowed []models.Bucket) (decimal.Decimal, bool) {
	sum := SumOf(percentages, allowed)
	return sum, sum.Sub(hundred).Abs().LessThanOrEqual(TotalTolerance)
}

// AutoAdjust scales the allowed buckets so they sum to exactly 100. Each
// scaled value is rounded to one decimal place. A positive rounding residue
// goes to the last allowed bucket; a negative one is taken from the allowed
// buckets walking backwards, never below zero. Buckets outside allowed are
// untouched.
func AutoAdjust(percentages models.Percentages, allowed []models.Bucket) (models.Percentages, error) {
	sum := SumOf(percentages, allowed)
	if sum.IsZero() {
		return nil, ErrZeroSum
	}

	out := percentages.Clone()
	total := decimal.Zero
	for _, b := range allowed {
		scaled := percentages.Get(b).Mul(hundred).Div(sum).Round(1)
		out[b] = scaled
		total = total.Add(scaled)
	}

	residue := hundred.Sub(total)
	if residue.IsPositive() {
		last := allowed[len(allowed)-1]
		out[last] = out[last].Add(residue)
		return out, nil
	}

	excess := residue.Neg()
	for i := len(allowed) - 1; i >= 0 && excess.IsPositive(); i-- {
		b := allowed[i]
		take := decimal.Min(out[b], excess)
		out[b] = out[b].Sub(take)
		excess = excess.Sub(take)
	}
	return out, nil
}

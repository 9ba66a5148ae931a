package coupon

import (
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Validate checks a rule's eligibility against the order subtotal at the
// given instant. It returns the first violated constraint as one of the
// package sentinel errors.
func Validate(rule *Rule, subtotal decimal.Decimal, now time.Time) error {
	if !rule.Active {
		return ErrInactive
	}
	if rule.ValidFrom != nil && now.Before(*rule.ValidFrom) {
		return ErrExpired
	}
	if rule.ValidUntil != nil && now.After(*rule.ValidUntil) {
		return ErrExpired
	}
	if rule.UsageLimit > 0 && rule.UsedCount >= rule.UsageLimit {
		return ErrExhausted
	}
	if rule.MinOrderAmount.IsPositive() && subtotal.LessThan(rule.MinOrderAmount) {
		return ErrMinimumNotMet
	}
	return nil
}

// Apply computes the discount amount for an eligible rule. The result never
// exceeds the subtotal and is rounded to 2 decimal places.
func Apply(rule *Rule, subtotal decimal.Decimal) (decimal.Decimal, error) {
	var amount decimal.Decimal

	switch rule.DiscountType {
	case DiscountPercentage:
		amount = subtotal.Mul(rule.Value).Div(hundred)
		if rule.MaxDiscount.IsPositive() {
			amount = decimal.Min(amount, rule.MaxDiscount)
		}
	case DiscountFixedAmount:
		amount = rule.Value
	default:
		return decimal.Zero, errors.Errorf("unsupported discount type: %q", rule.DiscountType)
	}

	amount = decimal.Min(amount, subtotal)
	if amount.IsNegative() {
		amount = decimal.Zero
	}
	return amount.Round(2), nil
}

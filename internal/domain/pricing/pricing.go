// Package pricing computes the full money breakdown of a candidate order:
// line subtotals, coupon discount, shipping fee, and the final total.
package pricing

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront-checkout/internal/domain/coupon"
	"github.com/xenking/storefront-checkout/internal/domain/shipping"
)

// Item is one priced line of a candidate order.
type Item struct {
	VariantID string
	UnitPrice decimal.Decimal
	Quantity  int
	WeightKg  decimal.Decimal
}

// Quote is the computed money breakdown for a candidate order. Total is
// always subtotal - discount + shipping fee, clamped at zero.
type Quote struct {
	Subtotal      decimal.Decimal
	Discount      decimal.Decimal
	ShippingFee   decimal.Decimal
	Total         decimal.Decimal
	AppliedCoupon *coupon.Rule
}

// Config holds pricing constants.
type Config struct {
	// IncludedWeightKg is the shipment weight covered by the base fee;
	// only weight above it incurs the per-kg surcharge.
	IncludedWeightKg decimal.Decimal
}

// Engine computes order quotes. It reads coupons but never consumes them:
// the usage increment belongs to the order-creation transaction.
type Engine struct {
	coupons coupon.Repository
	cfg     Config
	now     func() time.Time
}

// NewEngine creates a pricing Engine.
func NewEngine(coupons coupon.Repository, cfg Config) *Engine {
	return &Engine{coupons: coupons, cfg: cfg, now: time.Now}
}

// Quote prices the given items, applies at most one coupon, and adds the
// shipping fee for the chosen method. Coupon eligibility failures surface as
// the coupon package's sentinel errors.
func (e *Engine) Quote(ctx context.Context, items []Item, couponCode string, method *shipping.Method) (*Quote, error) {
	subtotal := decimal.Zero
	totalWeight := decimal.Zero
	for _, item := range items {
		qty := decimal.NewFromInt(int64(item.Quantity))
		subtotal = subtotal.Add(item.UnitPrice.Mul(qty))
		totalWeight = totalWeight.Add(item.WeightKg.Mul(qty))
	}
	subtotal = subtotal.Round(2)

	discount := decimal.Zero
	var applied *coupon.Rule
	if couponCode != "" {
		rule, err := e.coupons.FindByCode(ctx, couponCode)
		if err != nil {
			if errors.Is(err, coupon.ErrNotFound) {
				return nil, coupon.ErrNotFound
			}
			return nil, errors.Wrap(err, "lookup coupon")
		}
		if err := coupon.Validate(rule, subtotal, e.now()); err != nil {
			return nil, err
		}
		discount, err = coupon.Apply(rule, subtotal)
		if err != nil {
			return nil, err
		}
		applied = rule
	}

	fee := ShippingFee(method, subtotal, totalWeight, e.cfg.IncludedWeightKg)

	total := subtotal.Sub(discount).Add(fee)
	if total.IsNegative() {
		total = decimal.Zero
	}

	return &Quote{
		Subtotal:      subtotal,
		Discount:      discount,
		ShippingFee:   fee,
		Total:         total.Round(2),
		AppliedCoupon: applied,
	}, nil
}

// ShippingFee computes the delivery fee for a method: the base fee plus the
// per-kg surcharge on weight above includedKg. The fee is waived entirely
// when the method has a free-shipping threshold the subtotal reaches.
func ShippingFee(method *shipping.Method, subtotal, totalWeight, includedKg decimal.Decimal) decimal.Decimal {
	if method.FreeThreshold.IsPositive() && subtotal.GreaterThanOrEqual(method.FreeThreshold) {
		return decimal.Zero
	}

	excess := totalWeight.Sub(includedKg)
	if excess.IsNegative() {
		excess = decimal.Zero
	}
	return method.BaseFee.Add(excess.Mul(method.ExtraFeePerKg)).Round(2)
}

package pricing

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/storefront-checkout/internal/domain/coupon"
	"github.com/xenking/storefront-checkout/internal/domain/shipping"
)

type mockCouponRepo struct {
	rule *coupon.Rule
	err  error
}

func (m *mockCouponRepo) FindByCode(_ context.Context, _ string) (*coupon.Rule, error) {
	return m.rule, m.err
}

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func newEngine(repo coupon.Repository) *Engine {
	e := NewEngine(repo, Config{IncludedWeightKg: decimal.Zero})
	e.now = func() time.Time {
		return time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	}
	return e
}

var flatMethod = &shipping.Method{
	ID:            "standard",
	Name:          "Standard",
	BaseFee:       d("30000"),
	ExtraFeePerKg: d("5000"),
}

func TestQuote_NoCoupon(t *testing.T) {
	e := newEngine(&mockCouponRepo{})

	q, err := e.Quote(context.Background(), []Item{
		{VariantID: "v1", UnitPrice: d("150000"), Quantity: 2, WeightKg: d("0.5")},
		{VariantID: "v2", UnitPrice: d("200000"), Quantity: 1, WeightKg: d("1")},
	}, "", flatMethod)

	require.NoError(t, err)
	assert.True(t, d("500000").Equal(q.Subtotal), "subtotal: %s", q.Subtotal)
	assert.True(t, q.Discount.IsZero())
	// base 30000 + 2kg * 5000
	assert.True(t, d("40000").Equal(q.ShippingFee), "shipping: %s", q.ShippingFee)
	assert.True(t, d("540000").Equal(q.Total), "total: %s", q.Total)
	assert.Nil(t, q.AppliedCoupon)
}

func TestQuote_PercentageCouponWithCap(t *testing.T) {
	// Scenario: subtotal 500000, 10% coupon capped at 50000,
	// base 30000 + 5000/kg, 2kg total weight.
	e := newEngine(&mockCouponRepo{rule: &coupon.Rule{
		Code:         "SAVE10",
		DiscountType: coupon.DiscountPercentage,
		Value:        d("10"),
		MaxDiscount:  d("50000"),
		Active:       true,
	}})

	q, err := e.Quote(context.Background(), []Item{
		{VariantID: "v1", UnitPrice: d("250000"), Quantity: 2, WeightKg: d("1")},
	}, "SAVE10", flatMethod)

	require.NoError(t, err)
	assert.True(t, d("500000").Equal(q.Subtotal))
	assert.True(t, d("50000").Equal(q.Discount), "discount capped: %s", q.Discount)
	assert.True(t, d("40000").Equal(q.ShippingFee))
	assert.True(t, d("490000").Equal(q.Total), "total: %s", q.Total)
	require.NotNil(t, q.AppliedCoupon)
	assert.Equal(t, "SAVE10", q.AppliedCoupon.Code)
}

func TestQuote_CouponNotFound(t *testing.T) {
	e := newEngine(&mockCouponRepo{err: coupon.ErrNotFound})

	_, err := e.Quote(context.Background(), []Item{
		{VariantID: "v1", UnitPrice: d("100"), Quantity: 1},
	}, "BOGUS", flatMethod)

	assert.ErrorIs(t, err, coupon.ErrNotFound)
}

func TestQuote_CouponEligibilityErrors(t *testing.T) {
	past := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		rule    *coupon.Rule
		wantErr error
	}{
		{
			name:    "inactive",
			rule:    &coupon.Rule{Code: "C", Active: false},
			wantErr: coupon.ErrInactive,
		},
		{
			name:    "expired",
			rule:    &coupon.Rule{Code: "C", Active: true, ValidUntil: &past},
			wantErr: coupon.ErrExpired,
		},
		{
			name:    "exhausted",
			rule:    &coupon.Rule{Code: "C", Active: true, UsageLimit: 1, UsedCount: 1},
			wantErr: coupon.ErrExhausted,
		},
		{
			name:    "minimum not met",
			rule:    &coupon.Rule{Code: "C", Active: true, MinOrderAmount: d("1000000")},
			wantErr: coupon.ErrMinimumNotMet,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEngine(&mockCouponRepo{rule: tt.rule})
			_, err := e.Quote(context.Background(), []Item{
				{VariantID: "v1", UnitPrice: d("100000"), Quantity: 1},
			}, "C", flatMethod)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestQuote_TotalNeverNegative(t *testing.T) {
	e := newEngine(&mockCouponRepo{rule: &coupon.Rule{
		Code:         "FREE",
		DiscountType: coupon.DiscountPercentage,
		Value:        d("100"),
		Active:       true,
	}})

	free := &shipping.Method{ID: "pickup", BaseFee: decimal.Zero, ExtraFeePerKg: decimal.Zero}
	q, err := e.Quote(context.Background(), []Item{
		{VariantID: "v1", UnitPrice: d("100"), Quantity: 1},
	}, "FREE", free)

	require.NoError(t, err)
	assert.True(t, q.Discount.LessThanOrEqual(q.Subtotal))
	assert.True(t, q.Total.GreaterThanOrEqual(decimal.Zero))
}

func TestQuote_SalePriceUsedByCaller(t *testing.T) {
	// The engine trusts the unit price it is handed; the caller resolves
	// sale vs list price. This pins the subtotal arithmetic.
	e := newEngine(&mockCouponRepo{})

	q, err := e.Quote(context.Background(), []Item{
		{VariantID: "v1", UnitPrice: d("9.99"), Quantity: 3},
	}, "", &shipping.Method{ID: "m", BaseFee: decimal.Zero, ExtraFeePerKg: decimal.Zero})

	require.NoError(t, err)
	assert.True(t, d("29.97").Equal(q.Subtotal))
}

func TestShippingFee(t *testing.T) {
	tests := []struct {
		name     string
		method   *shipping.Method
		subtotal decimal.Decimal
		weight   decimal.Decimal
		included decimal.Decimal
		want     decimal.Decimal
	}{
		{
			name:     "base plus per-kg",
			method:   flatMethod,
			subtotal: d("100000"),
			weight:   d("2"),
			included: decimal.Zero,
			want:     d("40000"),
		},
		{
			name:     "included weight not charged",
			method:   flatMethod,
			subtotal: d("100000"),
			weight:   d("2"),
			included: d("3"),
			want:     d("30000"),
		},
		{
			name: "free above threshold",
			method: &shipping.Method{
				BaseFee:       d("30000"),
				ExtraFeePerKg: d("5000"),
				FreeThreshold: d("400000"),
			},
			subtotal: d("400000"),
			weight:   d("5"),
			included: decimal.Zero,
			want:     decimal.Zero,
		},
		{
			name: "below threshold still charged",
			method: &shipping.Method{
				BaseFee:       d("30000"),
				ExtraFeePerKg: d("5000"),
				FreeThreshold: d("400000"),
			},
			subtotal: d("399999"),
			weight:   d("1"),
			included: decimal.Zero,
			want:     d("35000"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ShippingFee(tt.method, tt.subtotal, tt.weight, tt.included)
			assert.True(t, tt.want.Equal(got), "got %s, want %s", got, tt.want)
		})
	}
}

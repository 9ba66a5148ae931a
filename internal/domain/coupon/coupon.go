package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// DiscountType enumerates the supported coupon discount strategies.
type DiscountType string

const (
	// DiscountPercentage applies a percentage-based discount to the subtotal.
	DiscountPercentage DiscountType = "percentage"
	// DiscountFixedAmount applies a fixed monetary discount capped at the subtotal.
	DiscountFixedAmount DiscountType = "fixed_amount"
)

var (
	// ErrNotFound is returned when a coupon code does not exist.
	ErrNotFound = errors.New("coupon not found")
	// ErrInactive is returned when a coupon exists but is switched off.
	ErrInactive = errors.New("coupon is not active")
	// ErrExpired is returned when the current time is outside the coupon's
	// validity window.
	ErrExpired = errors.New("coupon expired")
	// ErrExhausted is returned when a coupon has no remaining uses.
	ErrExhausted = errors.New("coupon usage limit reached")
	// ErrMinimumNotMet is returned when the order subtotal is below the
	// coupon's minimum order amount.
	ErrMinimumNotMet = errors.New("order amount below coupon minimum")
)

// Rule defines a coupon's discount behaviour and eligibility constraints.
type Rule struct {
	Code           string
	DiscountType   DiscountType
	Value          decimal.Decimal
	MinOrderAmount decimal.Decimal // zero means no minimum
	MaxDiscount    decimal.Decimal // zero means uncapped; percentage only
	ValidFrom      *time.Time
	ValidUntil     *time.Time
	UsageLimit     int // zero means unlimited
	UsedCount      int
	Active         bool
}

// Repository provides coupon rule lookup. The usage counter is incremented
// by the order-creation transaction, not through this interface, so that the
// increment commits or rolls back together with the stock decrement.
type Repository interface {
	FindByCode(ctx context.Context, code string) (*Rule, error)
}

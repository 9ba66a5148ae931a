// Package order owns the Order/Payment aggregate: the immutable checkout
// snapshot, both status state machines, and the workflow that drives them.
package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound is returned when an order does not exist.
	ErrNotFound = errors.New("order not found")
	// ErrPaymentNotFound is returned when a callback references an unknown payment.
	ErrPaymentNotFound = errors.New("payment not found")
	// ErrAlreadySettled is returned when a payment is already in the terminal
	// status a callback is trying to move it to. Safe to treat as a no-op.
	ErrAlreadySettled = errors.New("payment already settled")
	// ErrInsufficientStock is returned when a variant cannot cover the
	// requested quantity at the instant of decrement.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrStorageUnavailable is returned when the store could not complete the
	// operation within its retry budget.
	ErrStorageUnavailable = errors.New("storage unavailable")
	// ErrEmptySelection is returned when no cart items were selected.
	ErrEmptySelection = errors.New("no items selected")
	// ErrInvalidQuantity is returned when a cart line has a non-positive quantity.
	ErrInvalidQuantity = errors.New("quantity must be greater than 0")
)

// Item is an immutable snapshot of a variant at order-creation time.
// Unit price and quantity are frozen here and never recomputed.
type Item struct {
	ID          string
	VariantID   string
	ProductName string
	SKU         string
	UnitPrice   decimal.Decimal
	Quantity    int
}

// Subtotal returns unit price times quantity for this line.
func (i Item) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// PaymentHistory is one append-only audit entry, written once per payment
// status transition. Entries are never edited or removed.
type PaymentHistory struct {
	ID        string
	PaymentID string
	Status    PaymentStatus
	Note      string
	CreatedAt time.Time
}

// Payment is the single payment owned by an Order. It is created inside the
// same transaction as its order and cannot exist independently.
type Payment struct {
	ID              string
	OrderID         string
	MethodID        string
	Amount          decimal.Decimal
	TransactionCode string
	Status          PaymentStatus
	GatewayPayload  string
	History         []PaymentHistory
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Order is the aggregate root: the priced snapshot of a checkout plus its
// owned Payment. Total = sum(item subtotals) - discount + shipping fee,
// fixed at creation.
type Order struct {
	ID               string
	UserID           string
	AddressID        string
	ShippingMethodID string
	Items            []Item
	Subtotal         decimal.Decimal
	Discount         decimal.Decimal
	ShippingFee      decimal.Decimal
	Total            decimal.Decimal
	CouponCode       string
	Status           Status
	// DeliveryCode is a one-time confirmation code generated when the order
	// enters SHIPPING, presented by the courier at handover.
	DeliveryCode       string
	DeliveryCodeExpiry *time.Time
	CancelReason       string
	RejectionReason    string
	Payment            *Payment
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// CanCancel reports whether a customer may still cancel this order.
func (o *Order) CanCancel() bool {
	return o.Status == StatusPending || o.Status == StatusConfirmed
}

// ListFilter narrows ListOrders results. Zero values match everything.
type ListFilter struct {
	UserID string
	Status Status
	Limit  int
	Offset int
}

// CreateParams carries everything the order-creation transaction commits
// atomically: the aggregate, the coupon to consume, and the cart items to
// clear. Any failure rolls back all of it.
type CreateParams struct {
	Order       *Order
	CouponCode  string
	CartItemIDs []string
}

// StatusUpdate persists one validated order status transition.
type StatusUpdate struct {
	OrderID            string
	Status             Status
	CancelReason       string
	RejectionReason    string
	DeliveryCode       string
	DeliveryCodeExpiry *time.Time
}

// Settlement persists one validated payment settlement: the payment moves to
// a terminal status with its history entry, and the order is confirmed when
// the payment completed. All in one transaction.
type Settlement struct {
	PaymentID       string
	OrderID         string
	Status          PaymentStatus
	TransactionCode string
	GatewayPayload  string
	Note            string
	// ConfirmOrder moves the owning order PENDING -> CONFIRMED.
	ConfirmOrder bool
}

// Repository defines persistence for the Order/Payment aggregate. There is
// deliberately no mutator for payment history and no independent payment
// creation.
type Repository interface {
	Create(ctx context.Context, params CreateParams) error
	GetByID(ctx context.Context, id string) (*Order, error)
	List(ctx context.Context, filter ListFilter) ([]Order, error)
	UpdateStatus(ctx context.Context, update StatusUpdate) error
	GetPaymentByOrderID(ctx context.Context, orderID string) (*Payment, error)
	SettlePayment(ctx context.Context, s Settlement) error
}

// Notifier dispatches order lifecycle notifications. Calls are
// fire-and-forget: a failed notification never affects the order.
type Notifier interface {
	OrderCreated(ctx context.Context, o *Order)
}

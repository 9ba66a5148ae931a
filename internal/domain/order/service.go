package order

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/xenking/storefront-checkout/internal/domain/cart"
	"github.com/xenking/storefront-checkout/internal/domain/catalog"
	"github.com/xenking/storefront-checkout/internal/domain/pricing"
	"github.com/xenking/storefront-checkout/internal/domain/shipping"
)

// deliveryCodeTTL bounds how long a delivery confirmation code stays valid.
const deliveryCodeTTL = 15 * time.Minute

// CreateOrderRequest holds the input for creating an order from a cart.
type CreateOrderRequest struct {
	UserID             string
	AddressID          string
	ShippingMethodID   string
	PaymentMethodID    string
	CouponCode         string
	SelectedVariantIDs []string
}

// Workflow orchestrates the cart-to-order transition and both state
// machines. It holds no mutable state; all coordination happens in the store.
type Workflow struct {
	carts    cart.Repository
	variants catalog.Repository
	methods  shipping.Repository
	pricer   *pricing.Engine
	orders   Repository
	notifier Notifier
	now      func() time.Time
}

// NewWorkflow creates an order Workflow with the required dependencies.
func NewWorkflow(
	carts cart.Repository,
	variants catalog.Repository,
	methods shipping.Repository,
	pricer *pricing.Engine,
	orders Repository,
	notifier Notifier,
) *Workflow {
	return &Workflow{
		carts:    carts,
		variants: variants,
		methods:  methods,
		pricer:   pricer,
		orders:   orders,
		notifier: notifier,
		now:      time.Now,
	}
}

// CreateOrder validates the selected cart items against the current catalog,
// prices the order, and persists the aggregate: stock decrement, coupon
// consumption, order + items + payment insert, and cart cleanup commit as
// one transaction. The returned order is in PENDING status with a PENDING
// payment whose amount equals the order total.
func (w *Workflow) CreateOrder(ctx context.Context, req CreateOrderRequest) (*Order, error) {
	if len(req.SelectedVariantIDs) == 0 {
		return nil, ErrEmptySelection
	}

	cartItems, err := w.carts.GetItems(ctx, req.UserID, req.SelectedVariantIDs)
	if err != nil {
		return nil, errors.Wrap(err, "get cart items")
	}
	byVariant := make(map[string]cart.Item, len(cartItems))
	for _, it := range cartItems {
		byVariant[it.VariantID] = it
	}
	for _, id := range req.SelectedVariantIDs {
		if _, ok := byVariant[id]; !ok {
			return nil, errors.Wrapf(cart.ErrItemNotFound, "variant %s", id)
		}
	}

	variants, err := w.variants.GetVariantsByIDs(ctx, req.SelectedVariantIDs)
	if err != nil {
		return nil, errors.Wrap(err, "get variants")
	}
	variantByID := make(map[string]catalog.Variant, len(variants))
	for _, v := range variants {
		variantByID[v.ID] = v
	}

	method, err := w.methods.GetMethod(ctx, req.ShippingMethodID)
	if err != nil {
		if errors.Is(err, shipping.ErrMethodNotFound) {
			return nil, shipping.ErrMethodNotFound
		}
		return nil, errors.Wrap(err, "get shipping method")
	}

	priceItems := make([]pricing.Item, 0, len(req.SelectedVariantIDs))
	cartItemIDs := make([]string, 0, len(req.SelectedVariantIDs))
	for _, id := range req.SelectedVariantIDs {
		ci := byVariant[id]
		if ci.Quantity <= 0 {
			return nil, errors.Wrapf(ErrInvalidQuantity, "variant %s", id)
		}
		v, ok := variantByID[id]
		if !ok {
			return nil, errors.Wrapf(catalog.ErrVariantNotFound, "variant %s", id)
		}
		priceItems = append(priceItems, pricing.Item{
			VariantID: v.ID,
			UnitPrice: v.UnitPrice(),
			Quantity:  ci.Quantity,
			WeightKg:  v.WeightKg,
		})
		cartItemIDs = append(cartItemIDs, ci.ID)
	}

	quote, err := w.pricer.Quote(ctx, priceItems, req.CouponCode, method)
	if err != nil {
		return nil, err
	}

	now := w.now()
	o := &Order{
		ID:               uuid.New().String(),
		UserID:           req.UserID,
		AddressID:        req.AddressID,
		ShippingMethodID: req.ShippingMethodID,
		Subtotal:         quote.Subtotal,
		Discount:         quote.Discount,
		ShippingFee:      quote.ShippingFee,
		Total:            quote.Total,
		CouponCode:       req.CouponCode,
		Status:           StatusPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	o.Items = make([]Item, len(priceItems))
	for i, pi := range priceItems {
		v := variantByID[pi.VariantID]
		o.Items[i] = Item{
			ID:          uuid.New().String(),
			VariantID:   v.ID,
			ProductName: v.ProductName,
			SKU:         v.SKU,
			UnitPrice:   pi.UnitPrice,
			Quantity:    pi.Quantity,
		}
	}
	o.Payment = &Payment{
		ID:        uuid.New().String(),
		OrderID:   o.ID,
		MethodID:  req.PaymentMethodID,
		Amount:    quote.Total,
		Status:    PaymentPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = w.orders.Create(ctx, CreateParams{
		Order:       o,
		CouponCode:  req.CouponCode,
		CartItemIDs: cartItemIDs,
	})
	if err != nil {
		return nil, err
	}

	if w.notifier != nil {
		go w.notifier.OrderCreated(context.WithoutCancel(ctx), o)
	}

	return o, nil
}

// GetOrder returns an order with its items and payment.
func (w *Workflow) GetOrder(ctx context.Context, id string) (*Order, error) {
	return w.orders.GetByID(ctx, id)
}

// ListOrders returns orders matching the filter.
func (w *Workflow) ListOrders(ctx context.Context, filter ListFilter) ([]Order, error) {
	return w.orders.List(ctx, filter)
}

// CancelOrder moves an order to CANCELLED, recording the reason. Customers
// may cancel only while the order is PENDING or CONFIRMED; admins may cancel
// any non-terminal order.
func (w *Workflow) CancelOrder(ctx context.Context, id, reason string, actor Actor) (*Order, error) {
	o, err := w.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := ValidateTransition(o.Status, StatusCancelled, actor); err != nil {
		return nil, err
	}

	err = w.orders.UpdateStatus(ctx, StatusUpdate{
		OrderID:      id,
		Status:       StatusCancelled,
		CancelReason: reason,
	})
	if err != nil {
		return nil, err
	}
	o.Status = StatusCancelled
	o.CancelReason = reason
	return o, nil
}

// TransitionStatus moves an order along a forward edge of the state machine.
// Entering SHIPPING generates a fresh delivery confirmation code.
func (w *Workflow) TransitionStatus(ctx context.Context, id string, to Status, actor Actor) (*Order, error) {
	o, err := w.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := ValidateTransition(o.Status, to, actor); err != nil {
		return nil, err
	}

	update := StatusUpdate{OrderID: id, Status: to}
	if to == StatusShipping {
		code, err := generateDeliveryCode()
		if err != nil {
			return nil, errors.Wrap(err, "generate delivery code")
		}
		expiry := w.now().Add(deliveryCodeTTL)
		update.DeliveryCode = code
		update.DeliveryCodeExpiry = &expiry
		o.DeliveryCode = code
		o.DeliveryCodeExpiry = &expiry
	}

	if err := w.orders.UpdateStatus(ctx, update); err != nil {
		return nil, err
	}
	o.Status = to
	return o, nil
}

// MarkDeliveryFailed records a failed delivery: SHIPPING -> DELIVERY_FAILED
// with a rejection reason. This is the only path into DELIVERY_FAILED;
// cancellation never produces it.
func (w *Workflow) MarkDeliveryFailed(ctx context.Context, id, reason string, actor Actor) (*Order, error) {
	o, err := w.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := ValidateTransition(o.Status, StatusDeliveryFailed, actor); err != nil {
		return nil, err
	}

	err = w.orders.UpdateStatus(ctx, StatusUpdate{
		OrderID:         id,
		Status:          StatusDeliveryFailed,
		RejectionReason: reason,
	})
	if err != nil {
		return nil, err
	}
	o.Status = StatusDeliveryFailed
	o.RejectionReason = reason
	return o, nil
}

// SettlePayment applies a verified gateway outcome to an order's payment.
// A repeated callback for an already-settled payment returns
// ErrAlreadySettled without touching any state, which makes settlement safe
// under at-least-once delivery. A COMPLETED payment confirms the order; a
// FAILED payment leaves the order PENDING.
func (w *Workflow) SettlePayment(ctx context.Context, orderID string, outcome PaymentStatus, txnCode, payload string) (*Payment, error) {
	p, err := w.orders.GetPaymentByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if p.Status == outcome {
		return p, ErrAlreadySettled
	}
	if err := ValidatePaymentTransition(p.Status, outcome); err != nil {
		return nil, err
	}

	err = w.orders.SettlePayment(ctx, Settlement{
		PaymentID:       p.ID,
		OrderID:         p.OrderID,
		Status:          outcome,
		TransactionCode: txnCode,
		GatewayPayload:  payload,
		Note:            fmt.Sprintf("gateway settlement: %s", outcome),
		ConfirmOrder:    outcome == PaymentCompleted,
	})
	if err != nil {
		// A concurrent callback can win the store-level PENDING guard after
		// the read above saw PENDING. Reload so the caller still gets the
		// settled payment alongside ErrAlreadySettled.
		if errors.Is(err, ErrAlreadySettled) {
			settled, readErr := w.orders.GetPaymentByOrderID(ctx, orderID)
			if readErr != nil {
				return nil, errors.Wrap(readErr, "reloading settled payment")
			}
			return settled, ErrAlreadySettled
		}
		return nil, err
	}

	p.Status = outcome
	p.TransactionCode = txnCode
	return p, nil
}

// generateDeliveryCode returns a 6-digit numeric one-time code.
func generateDeliveryCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

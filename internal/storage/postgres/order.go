package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront-checkout/internal/domain/coupon"
	"github.com/xenking/storefront-checkout/internal/domain/order"
)

const (
	decrementStockSQL = `UPDATE variants SET stock = stock - $2
		WHERE id = $1 AND stock >= $2`

	consumeCouponSQL = `UPDATE coupons SET used_count = used_count + 1
		WHERE UPPER(code) = UPPER($1) AND active
		AND (usage_limit = 0 OR used_count < usage_limit)`

	couponStateSQL = `SELECT active FROM coupons WHERE UPPER(code) = UPPER($1)`

	insertOrderSQL = `INSERT INTO orders (id, user_id, address_id, shipping_method_id,
		subtotal, discount, shipping_fee, total, coupon_code, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)`

	insertOrderItemSQL = `INSERT INTO order_items (id, order_id, variant_id,
		product_name, sku, unit_price, quantity)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	insertPaymentSQL = `INSERT INTO payments (id, order_id, method_id, amount,
		status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)`

	insertHistorySQL = `INSERT INTO payment_history (id, payment_id, status, note, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	clearCartItemsSQL = `DELETE FROM cart_items WHERE id = ANY($1)`

	getOrderSQL = `SELECT id, user_id, address_id, shipping_method_id,
		subtotal, discount, shipping_fee, total, coupon_code, status,
		delivery_code, delivery_code_expiry, cancel_reason, rejection_reason,
		created_at, updated_at
		FROM orders WHERE id = $1`

	listOrdersSQL = `SELECT id, user_id, address_id, shipping_method_id,
		subtotal, discount, shipping_fee, total, coupon_code, status,
		delivery_code, delivery_code_expiry, cancel_reason, rejection_reason,
		created_at, updated_at
		FROM orders
		WHERE ($1 = '' OR user_id = $1) AND ($2 = '' OR status = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4`

	getOrderItemsSQL = `SELECT id, variant_id, product_name, sku, unit_price, quantity
		FROM order_items WHERE order_id = $1 ORDER BY id`

	getPaymentByOrderSQL = `SELECT id, order_id, method_id, amount,
		transaction_code, status, gateway_payload, created_at, updated_at
		FROM payments WHERE order_id = $1`

	getHistorySQL = `SELECT id, payment_id, status, note, created_at
		FROM payment_history WHERE payment_id = $1 ORDER BY created_at, id`

	updateOrderStatusSQL = `UPDATE orders SET status = $2,
		cancel_reason = COALESCE(NULLIF($3, ''), cancel_reason),
		rejection_reason = COALESCE(NULLIF($4, ''), rejection_reason),
		delivery_code = COALESCE(NULLIF($5, ''), delivery_code),
		delivery_code_expiry = COALESCE($6, delivery_code_expiry),
		updated_at = now()
		WHERE id = $1`

	settlePaymentSQL = `UPDATE payments SET status = $2, transaction_code = $3,
		gateway_payload = $4, updated_at = now()
		WHERE id = $1 AND status = 'PENDING'`

	confirmOrderSQL = `UPDATE orders SET status = 'CONFIRMED', updated_at = now()
		WHERE id = $1 AND status = 'PENDING'`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL. The
// aggregate writes (create, settle) run in single transactions with bounded
// conflict retry.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists the order aggregate atomically: every variant's stock is
// conditionally decremented (the WHERE stock >= quantity guard makes
// check-and-decrement one statement, serialized by the row lock), the coupon
// usage counter is consumed under the same guard pattern, the order with its
// items and pending payment is inserted, and the consumed cart lines are
// removed. Any failure rolls back all of it.
func (r *OrderRepository) Create(ctx context.Context, params order.CreateParams) error {
	o := params.Order

	return inTx(ctx, r.pool, func(ctx context.Context, tx pgx.Tx) error {
		for _, item := range o.Items {
			tag, err := tx.Exec(ctx, decrementStockSQL, item.VariantID, item.Quantity)
			if err != nil {
				return fmt.Errorf("decrementing stock for variant %q: %w", item.VariantID, err)
			}
			if tag.RowsAffected() == 0 {
				return errors.Wrapf(order.ErrInsufficientStock, "variant %s", item.VariantID)
			}
		}

		if params.CouponCode != "" {
			tag, err := tx.Exec(ctx, consumeCouponSQL, params.CouponCode)
			if err != nil {
				return fmt.Errorf("consuming coupon %q: %w", params.CouponCode, err)
			}
			if tag.RowsAffected() == 0 {
				return diagnoseCouponDenial(ctx, tx, params.CouponCode)
			}
		}

		_, err := tx.Exec(ctx, insertOrderSQL,
			o.ID, o.UserID, o.AddressID, o.ShippingMethodID,
			o.Subtotal, o.Discount, o.ShippingFee, o.Total,
			o.CouponCode, string(o.Status), o.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("inserting order %q: %w", o.ID, err)
		}

		for _, item := range o.Items {
			_, err := tx.Exec(ctx, insertOrderItemSQL,
				item.ID, o.ID, item.VariantID, item.ProductName,
				item.SKU, item.UnitPrice, item.Quantity,
			)
			if err != nil {
				return fmt.Errorf("inserting order item %q: %w", item.ID, err)
			}
		}

		p := o.Payment
		_, err = tx.Exec(ctx, insertPaymentSQL,
			p.ID, o.ID, p.MethodID, p.Amount, string(p.Status), p.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("inserting payment %q: %w", p.ID, err)
		}

		_, err = tx.Exec(ctx, insertHistorySQL,
			uuid.New().String(), p.ID, string(p.Status), "payment created", p.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("inserting payment history: %w", err)
		}

		if len(params.CartItemIDs) > 0 {
			if _, err := tx.Exec(ctx, clearCartItemsSQL, params.CartItemIDs); err != nil {
				return fmt.Errorf("clearing cart items: %w", err)
			}
		}

		return nil
	})
}

// diagnoseCouponDenial re-reads the coupon after the guarded increment
// matched no row. Pricing already validated the coupon, so a denial here
// means the row changed underneath the order: deleted, deactivated, or
// consumed to its limit by concurrent orders.
func diagnoseCouponDenial(ctx context.Context, tx pgx.Tx, code string) error {
	var active bool
	err := tx.QueryRow(ctx, couponStateSQL, code).Scan(&active)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("re-reading coupon %q: %w", code, err)
	}
	return errors.Wrapf(classifyCouponDenial(err == nil, active), "coupon %s", code)
}

// classifyCouponDenial maps the coupon row state behind a failed guarded
// increment to the rejection the buyer sees.
func classifyCouponDenial(found, active bool) error {
	switch {
	case !found:
		return coupon.ErrNotFound
	case !active:
		return coupon.ErrInactive
	default:
		return coupon.ErrExhausted
	}
}

// GetByID returns an order with its items, payment, and payment history.
// Returns order.ErrNotFound when it does not exist.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := r.pool.Query(ctx, getOrderSQL, id)
	if err != nil {
		return nil, fmt.Errorf("querying order %q: %w", id, err)
	}
	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("querying order %q: %w", id, err)
	}

	itemRows, err := r.pool.Query(ctx, getOrderItemsSQL, id)
	if err != nil {
		return nil, fmt.Errorf("querying order items: %w", err)
	}
	o.Items, err = pgx.CollectRows(itemRows, func(row pgx.CollectableRow) (order.Item, error) {
		var it order.Item
		err := row.Scan(&it.ID, &it.VariantID, &it.ProductName, &it.SKU, &it.UnitPrice, &it.Quantity)
		return it, err
	})
	if err != nil {
		return nil, fmt.Errorf("scanning order items: %w", err)
	}

	p, err := r.getPayment(ctx, id)
	if err != nil && !errors.Is(err, order.ErrPaymentNotFound) {
		return nil, err
	}
	o.Payment = p

	return &o, nil
}

// List returns orders matching the filter, most recent first. Items and
// payments are not loaded; use GetByID for the full aggregate.
func (r *OrderRepository) List(ctx context.Context, filter order.ListFilter) ([]order.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.pool.Query(ctx, listOrdersSQL,
		filter.UserID, string(filter.Status), limit, filter.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}

	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, fmt.Errorf("scanning orders: %w", err)
	}
	return orders, nil
}

// UpdateStatus persists a validated status transition. Reason and delivery
// code columns are only written when the update carries them.
func (r *OrderRepository) UpdateStatus(ctx context.Context, update order.StatusUpdate) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tag, err := r.pool.Exec(ctx, updateOrderStatusSQL,
		update.OrderID, string(update.Status),
		update.CancelReason, update.RejectionReason,
		update.DeliveryCode, update.DeliveryCodeExpiry,
	)
	if err != nil {
		return fmt.Errorf("updating order %q status: %w", update.OrderID, err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

// GetPaymentByOrderID returns an order's payment with its history.
// Returns order.ErrPaymentNotFound when the order or payment is missing.
func (r *OrderRepository) GetPaymentByOrderID(ctx context.Context, orderID string) (*order.Payment, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	return r.getPayment(ctx, orderID)
}

// SettlePayment applies a settlement in one transaction: the payment row is
// locked, moved out of PENDING exactly once, one history entry is appended,
// and the order is confirmed when the settlement completed the payment. The
// status = 'PENDING' guard makes a lost race surface as zero rows, so
// concurrent callbacks cannot double-apply.
func (r *OrderRepository) SettlePayment(ctx context.Context, s order.Settlement) error {
	return inTx(ctx, r.pool, func(ctx context.Context, tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, settlePaymentSQL,
			s.PaymentID, string(s.Status), s.TransactionCode, s.GatewayPayload,
		)
		if err != nil {
			return fmt.Errorf("settling payment %q: %w", s.PaymentID, err)
		}
		if tag.RowsAffected() == 0 {
			return order.ErrAlreadySettled
		}

		_, err = tx.Exec(ctx, insertHistorySQL,
			uuid.New().String(), s.PaymentID, string(s.Status), s.Note, time.Now(),
		)
		if err != nil {
			return fmt.Errorf("appending payment history: %w", err)
		}

		if s.ConfirmOrder {
			if _, err := tx.Exec(ctx, confirmOrderSQL, s.OrderID); err != nil {
				return fmt.Errorf("confirming order: %w", err)
			}
		}

		return nil
	})
}

func (r *OrderRepository) getPayment(ctx context.Context, orderID string) (*order.Payment, error) {
	rows, err := r.pool.Query(ctx, getPaymentByOrderSQL, orderID)
	if err != nil {
		return nil, fmt.Errorf("querying payment for order %q: %w", orderID, err)
	}
	p, err := pgx.CollectExactlyOneRow(rows, scanPayment)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrPaymentNotFound
		}
		return nil, fmt.Errorf("querying payment for order %q: %w", orderID, err)
	}

	histRows, err := r.pool.Query(ctx, getHistorySQL, p.ID)
	if err != nil {
		return nil, fmt.Errorf("querying payment history: %w", err)
	}
	p.History, err = pgx.CollectRows(histRows, func(row pgx.CollectableRow) (order.PaymentHistory, error) {
		var h order.PaymentHistory
		var status string
		err := row.Scan(&h.ID, &h.PaymentID, &status, &h.Note, &h.CreatedAt)
		h.Status = order.PaymentStatus(status)
		return h, err
	})
	if err != nil {
		return nil, fmt.Errorf("scanning payment history: %w", err)
	}

	return &p, nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o      order.Order
		status string
	)
	err := row.Scan(
		&o.ID, &o.UserID, &o.AddressID, &o.ShippingMethodID,
		&o.Subtotal, &o.Discount, &o.ShippingFee, &o.Total,
		&o.CouponCode, &status,
		&o.DeliveryCode, &o.DeliveryCodeExpiry, &o.CancelReason, &o.RejectionReason,
		&o.CreatedAt, &o.UpdatedAt,
	)
	o.Status = order.Status(status)
	return o, err
}

func scanPayment(row pgx.CollectableRow) (order.Payment, error) {
	var (
		p      order.Payment
		status string
	)
	err := row.Scan(
		&p.ID, &p.OrderID, &p.MethodID, &p.Amount,
		&p.TransactionCode, &status, &p.GatewayPayload,
		&p.CreatedAt, &p.UpdatedAt,
	)
	p.Status = order.PaymentStatus(status)
	return p, err
}

package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront-checkout/internal/domain/shipping"
)

const getShippingMethodSQL = `SELECT id, name, base_fee, extra_fee_per_kg, free_threshold
	FROM shipping_methods WHERE id = $1`

var _ shipping.Repository = (*ShippingRepository)(nil)

// ShippingRepository implements shipping.Repository backed by PostgreSQL.
type ShippingRepository struct {
	pool *pgxpool.Pool
}

// NewShippingRepository returns a ShippingRepository that uses the given pool.
func NewShippingRepository(pool *pgxpool.Pool) *ShippingRepository {
	return &ShippingRepository{pool: pool}
}

// GetMethod returns a shipping method by ID.
// Returns shipping.ErrMethodNotFound when it does not exist.
func (r *ShippingRepository) GetMethod(ctx context.Context, id string) (*shipping.Method, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := r.pool.Query(ctx, getShippingMethodSQL, id)
	if err != nil {
		return nil, fmt.Errorf("querying shipping method %q: %w", id, err)
	}

	m, err := pgx.CollectExactlyOneRow(rows, func(row pgx.CollectableRow) (shipping.Method, error) {
		var m shipping.Method
		err := row.Scan(&m.ID, &m.Name, &m.BaseFee, &m.ExtraFeePerKg, &m.FreeThreshold)
		return m, err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shipping.ErrMethodNotFound
		}
		return nil, fmt.Errorf("querying shipping method %q: %w", id, err)
	}
	return &m, nil
}

package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront-checkout/internal/domain/cart"
)

const getCartItemsSQL = `SELECT id, user_id, variant_id, quantity
	FROM cart_items WHERE user_id = $1 AND variant_id = ANY($2)`

var _ cart.Repository = (*CartRepository)(nil)

// CartRepository implements cart.Repository backed by PostgreSQL. Consumed
// items are removed by OrderRepository.Create inside the order transaction.
type CartRepository struct {
	pool *pgxpool.Pool
}

// NewCartRepository returns a CartRepository that uses the given pool.
func NewCartRepository(pool *pgxpool.Pool) *CartRepository {
	return &CartRepository{pool: pool}
}

// GetItems returns the user's cart lines for the selected variants.
func (r *CartRepository) GetItems(ctx context.Context, userID string, variantIDs []string) ([]cart.Item, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := r.pool.Query(ctx, getCartItemsSQL, userID, variantIDs)
	if err != nil {
		return nil, fmt.Errorf("querying cart items: %w", err)
	}

	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (cart.Item, error) {
		var it cart.Item
		err := row.Scan(&it.ID, &it.UserID, &it.VariantID, &it.Quantity)
		return it, err
	})
	if err != nil {
		return nil, fmt.Errorf("scanning cart items: %w", err)
	}
	return items, nil
}

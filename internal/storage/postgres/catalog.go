package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront-checkout/internal/domain/catalog"
)

const getVariantsByIDsSQL = `SELECT id, product_id, product_name, sku,
	list_price, sale_price, weight_kg, stock
	FROM variants WHERE id = ANY($1)`

var _ catalog.Repository = (*CatalogRepository)(nil)

// CatalogRepository implements catalog.Repository backed by PostgreSQL.
type CatalogRepository struct {
	pool *pgxpool.Pool
}

// NewCatalogRepository returns a CatalogRepository that uses the given pool.
func NewCatalogRepository(pool *pgxpool.Pool) *CatalogRepository {
	return &CatalogRepository{pool: pool}
}

// GetVariantsByIDs fetches all requested variants in a single query. Missing
// IDs are simply absent from the result; callers decide whether that is an
// error.
func (r *CatalogRepository) GetVariantsByIDs(ctx context.Context, ids []string) ([]catalog.Variant, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := r.pool.Query(ctx, getVariantsByIDsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("querying variants: %w", err)
	}

	variants, err := pgx.CollectRows(rows, scanVariant)
	if err != nil {
		return nil, fmt.Errorf("scanning variants: %w", err)
	}
	return variants, nil
}

func scanVariant(row pgx.CollectableRow) (catalog.Variant, error) {
	var v catalog.Variant
	err := row.Scan(
		&v.ID, &v.ProductID, &v.ProductName, &v.SKU,
		&v.ListPrice, &v.SalePrice, &v.WeightKg, &v.Stock,
	)
	return v, err
}

// Package catalog exposes the read model of the product catalog consumed by
// checkout. Catalog management itself lives outside this service.
package catalog

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrVariantNotFound is returned when a requested variant does not exist.
var ErrVariantNotFound = errors.New("variant not found")

// Variant is a concrete purchasable unit of a product with its own stock.
type Variant struct {
	ID          string
	ProductID   string
	ProductName string
	SKU         string
	ListPrice   decimal.Decimal
	SalePrice   decimal.Decimal // zero when no sale is running
	WeightKg    decimal.Decimal
	Stock       int
}

// UnitPrice returns the price a buyer pays right now: the sale price when it
// is set and lower than the list price, otherwise the list price.
func (v Variant) UnitPrice() decimal.Decimal {
	if v.SalePrice.IsPositive() && v.SalePrice.LessThan(v.ListPrice) {
		return v.SalePrice
	}
	return v.ListPrice
}

// Repository defines read operations over product variants.
type Repository interface {
	GetVariantsByIDs(ctx context.Context, ids []string) ([]Variant, error)
}

// Package cart exposes the cart read model. Cart mutation endpoints live
// outside this service; checkout only reads selected items and clears the
// ones it consumed.
package cart

import (
	"context"

	"github.com/go-faster/errors"
)

// ErrItemNotFound is returned when a selected variant is not in the cart.
var ErrItemNotFound = errors.New("cart item not found")

// Item is a single variant selection in a customer's cart.
type Item struct {
	ID        string
	UserID    string
	VariantID string
	Quantity  int
}

// Repository defines the cart operations checkout depends on. Clearing the
// consumed items happens inside the order-creation transaction, so it is not
// part of this interface.
type Repository interface {
	GetItems(ctx context.Context, userID string, variantIDs []string) ([]Item, error)
}

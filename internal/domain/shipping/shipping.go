// Package shipping exposes the shipping-method lookup consumed by pricing.
package shipping

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrMethodNotFound is returned when a shipping method does not exist.
var ErrMethodNotFound = errors.New("shipping method not found")

// Method describes one way of delivering an order and its fee schedule.
type Method struct {
	ID   string
	Name string
	// BaseFee is charged for every shipment regardless of weight.
	BaseFee decimal.Decimal
	// ExtraFeePerKg is charged per kilogram above the included weight.
	ExtraFeePerKg decimal.Decimal
	// FreeThreshold waives the whole fee when the order subtotal reaches it.
	// Zero means the method never ships free.
	FreeThreshold decimal.Decimal
}

// Repository defines shipping method lookup.
type Repository interface {
	GetMethod(ctx context.Context, id string) (*Method, error)
}

package postgres

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xenking/storefront-checkout/internal/domain/coupon"
)

func TestClassifyCouponDenial(t *testing.T) {
	tests := []struct {
		name   string
		found  bool
		active bool
		want   error
	}{
		{name: "deleted between pricing and commit", found: false, active: false, want: coupon.ErrNotFound},
		{name: "deactivated between pricing and commit", found: true, active: false, want: coupon.ErrInactive},
		{name: "consumed to limit by concurrent orders", found: true, active: true, want: coupon.ErrExhausted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.ErrorIs(t, classifyCouponDenial(tt.found, tt.active), tt.want)
		})
	}
}

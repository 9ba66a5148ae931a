package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateTransition_ForwardPath(t *testing.T) {
	path := []Status{StatusPending, StatusConfirmed, StatusProcessing, StatusShipping, StatusCompleted}

	for i := 0; i < len(path)-1; i++ {
		assert.NoError(t, ValidateTransition(path[i], path[i+1], ActorAdmin),
			"admin %s -> %s", path[i], path[i+1])
	}

	// No skipping states.
	assert.ErrorIs(t, ValidateTransition(StatusPending, StatusProcessing, ActorAdmin), ErrIllegalTransition)
	assert.ErrorIs(t, ValidateTransition(StatusConfirmed, StatusCompleted, ActorAdmin), ErrIllegalTransition)

	// No going backwards.
	assert.ErrorIs(t, ValidateTransition(StatusShipping, StatusProcessing, ActorAdmin), ErrIllegalTransition)
}

func TestValidateTransition_Cancellation(t *testing.T) {
	// Customers may only cancel early.
	assert.NoError(t, ValidateTransition(StatusPending, StatusCancelled, ActorCustomer))
	assert.NoError(t, ValidateTransition(StatusConfirmed, StatusCancelled, ActorCustomer))
	assert.ErrorIs(t, ValidateTransition(StatusProcessing, StatusCancelled, ActorCustomer), ErrIllegalTransition)
	assert.ErrorIs(t, ValidateTransition(StatusShipping, StatusCancelled, ActorCustomer), ErrIllegalTransition)

	// Admins may cancel from any non-terminal state.
	for _, from := range []Status{StatusPending, StatusConfirmed, StatusProcessing, StatusShipping} {
		assert.NoError(t, ValidateTransition(from, StatusCancelled, ActorAdmin), "admin cancel from %s", from)
	}
}

func TestValidateTransition_TerminalStates(t *testing.T) {
	for _, from := range []Status{StatusCompleted, StatusCancelled, StatusDeliveryFailed} {
		assert.True(t, from.Terminal())
		assert.ErrorIs(t, ValidateTransition(from, StatusCancelled, ActorAdmin), ErrIllegalTransition)
		assert.ErrorIs(t, ValidateTransition(from, StatusConfirmed, ActorAdmin), ErrIllegalTransition)
	}
}

func TestValidateTransition_DeliveryFailed(t *testing.T) {
	assert.NoError(t, ValidateTransition(StatusShipping, StatusDeliveryFailed, ActorAdmin))

	assert.ErrorIs(t, ValidateTransition(StatusShipping, StatusDeliveryFailed, ActorCustomer), ErrIllegalTransition)
	assert.ErrorIs(t, ValidateTransition(StatusProcessing, StatusDeliveryFailed, ActorAdmin), ErrIllegalTransition)
	assert.ErrorIs(t, ValidateTransition(StatusPending, StatusDeliveryFailed, ActorAdmin), ErrIllegalTransition)
}

func TestValidateTransition_SystemActor(t *testing.T) {
	// Settlement confirms a pending order.
	assert.NoError(t, ValidateTransition(StatusPending, StatusConfirmed, ActorSystem))

	// The system takes no other edges.
	assert.ErrorIs(t, ValidateTransition(StatusConfirmed, StatusProcessing, ActorSystem), ErrIllegalTransition)
	assert.ErrorIs(t, ValidateTransition(StatusPending, StatusCancelled, ActorSystem), ErrIllegalTransition)
}

func TestValidatePaymentTransition(t *testing.T) {
	assert.NoError(t, ValidatePaymentTransition(PaymentPending, PaymentCompleted))
	assert.NoError(t, ValidatePaymentTransition(PaymentPending, PaymentFailed))
	assert.NoError(t, ValidatePaymentTransition(PaymentCompleted, PaymentRefunded))

	assert.ErrorIs(t, ValidatePaymentTransition(PaymentCompleted, PaymentFailed), ErrIllegalTransition)
	assert.ErrorIs(t, ValidatePaymentTransition(PaymentFailed, PaymentCompleted), ErrIllegalTransition)
	assert.ErrorIs(t, ValidatePaymentTransition(PaymentFailed, PaymentRefunded), ErrIllegalTransition)
	assert.ErrorIs(t, ValidatePaymentTransition(PaymentRefunded, PaymentCompleted), ErrIllegalTransition)
}

func TestCanCancel(t *testing.T) {
	assert.True(t, (&Order{Status: StatusPending}).CanCancel())
	assert.True(t, (&Order{Status: StatusConfirmed}).CanCancel())
	assert.False(t, (&Order{Status: StatusProcessing}).CanCancel())
	assert.False(t, (&Order{Status: StatusShipping}).CanCancel())
	assert.False(t, (&Order{Status: StatusCompleted}).CanCancel())
	assert.False(t, (&Order{Status: StatusCancelled}).CanCancel())
}

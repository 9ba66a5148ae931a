package order

import "github.com/go-faster/errors"

// Status is the order lifecycle state.
type Status string

const (
	StatusPending        Status = "PENDING"
	StatusConfirmed      Status = "CONFIRMED"
	StatusProcessing     Status = "PROCESSING"
	StatusShipping       Status = "SHIPPING"
	StatusCompleted      Status = "COMPLETED"
	StatusCancelled      Status = "CANCELLED"
	StatusDeliveryFailed Status = "DELIVERY_FAILED"
)

// PaymentStatus is the payment lifecycle state.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "PENDING"
	PaymentCompleted PaymentStatus = "COMPLETED"
	PaymentFailed    PaymentStatus = "FAILED"
	PaymentRefunded  PaymentStatus = "REFUNDED"
)

// Actor identifies who requests a transition.
type Actor string

const (
	ActorCustomer Actor = "customer"
	ActorAdmin    Actor = "admin"
	// ActorSystem is used for gateway-driven transitions (payment settlement).
	ActorSystem Actor = "system"
)

// ErrIllegalTransition is returned when a requested status change is not a
// legal edge of the state machine, or the actor is not permitted to take it.
var ErrIllegalTransition = errors.New("illegal status transition")

// forward is the single-step forward path of the order state machine.
// No transition skips a state; the only other exits are cancellation and
// delivery failure, handled separately.
var forward = map[Status]Status{
	StatusPending:    StatusConfirmed,
	StatusConfirmed:  StatusProcessing,
	StatusProcessing: StatusShipping,
	StatusShipping:   StatusCompleted,
}

// Terminal reports whether no further transitions are possible from s.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusCancelled, StatusDeliveryFailed:
		return true
	}
	return false
}

// ValidateTransition checks that from -> to is a legal edge of the order
// state machine and that the actor may take it.
//
// Forward edges are available to admins, plus PENDING -> CONFIRMED to the
// system (payment settlement). Cancellation is available from any
// non-terminal state to admins, but only from PENDING or CONFIRMED to
// customers. SHIPPING -> DELIVERY_FAILED is admin-only.
func ValidateTransition(from, to Status, actor Actor) error {
	if from.Terminal() {
		return errors.Wrapf(ErrIllegalTransition, "%s is terminal", from)
	}

	switch to {
	case StatusCancelled:
		if actor == ActorAdmin {
			return nil
		}
		if actor == ActorCustomer && (from == StatusPending || from == StatusConfirmed) {
			return nil
		}
		return errors.Wrapf(ErrIllegalTransition, "%s may not cancel from %s", actor, from)

	case StatusDeliveryFailed:
		if from != StatusShipping {
			return errors.Wrapf(ErrIllegalTransition, "delivery failure only from %s", StatusShipping)
		}
		if actor != ActorAdmin {
			return errors.Wrapf(ErrIllegalTransition, "%s may not record delivery failure", actor)
		}
		return nil

	default:
		if forward[from] != to {
			return errors.Wrapf(ErrIllegalTransition, "%s -> %s", from, to)
		}
		if actor == ActorAdmin {
			return nil
		}
		if actor == ActorSystem && from == StatusPending && to == StatusConfirmed {
			return nil
		}
		return errors.Wrapf(ErrIllegalTransition, "%s may not move %s -> %s", actor, from, to)
	}
}

// ValidatePaymentTransition checks that from -> to is a legal edge of the
// payment state machine.
func ValidatePaymentTransition(from, to PaymentStatus) error {
	switch {
	case from == PaymentPending && (to == PaymentCompleted || to == PaymentFailed):
		return nil
	case from == PaymentCompleted && to == PaymentRefunded:
		return nil
	}
	return errors.Wrapf(ErrIllegalTransition, "payment %s -> %s", from, to)
}

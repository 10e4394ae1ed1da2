package service

import (
	"errors"
	"sort"
	"strings"
)

var (
	// ErrInvalidSearch is returned when search criteria are malformed.
	ErrInvalidSearch = errors.New("invalid search criteria")

	// ErrInvalidSessionID is returned when the checkout session ID is empty.
	ErrInvalidSessionID = errors.New("invalid checkout session id")

	// ErrSessionNotFound is returned when no search has been stored for the session.
	ErrSessionNotFound = errors.New("checkout session not found or expired")

	// ErrInvalidDirection is returned for an unknown leg direction.
	ErrInvalidDirection = errors.New("invalid leg direction")

	// ErrReturnNotAllowed is returned when selecting a return leg on a one-way checkout.
	ErrReturnNotAllowed = errors.New("return leg not allowed on a one-way trip")

	// ErrLegMismatch is returned when a trip does not serve the searched route.
	ErrLegMismatch = errors.New("trip does not match the searched route")

	// ErrFareSoldOut is returned when a fare has fewer seats than passengers.
	ErrFareSoldOut = errors.New("not enough seats left on this fare")

	// ErrLegNotSelected is returned when a leg is needed but has not been chosen.
	ErrLegNotSelected = errors.New("leg not selected")

	// ErrSeatCountMismatch is returned when the number of seats differs from passengers.
	ErrSeatCountMismatch = errors.New("seat count must equal passenger count")

	// ErrTooManySeats is returned when more seats are requested than passengers.
	ErrTooManySeats = errors.New("more seats than passengers")

	// ErrDuplicateSeat is returned when the same seat is requested twice.
	ErrDuplicateSeat = errors.New("seat requested more than once")

	// ErrUnknownSeat is returned for a seat code outside the seat map.
	ErrUnknownSeat = errors.New("unknown seat")

	// ErrSeatUnavailable is returned when a seat is sold or held by another checkout.
	ErrSeatUnavailable = errors.New("seat not available")

	// ErrNotEnoughFreeSeats is returned when random assignment cannot fill every passenger.
	ErrNotEnoughFreeSeats = errors.New("not enough free standard seats")

	// ErrInvalidSeatMode is returned for an unknown seat selection mode.
	ErrInvalidSeatMode = errors.New("invalid seat selection mode")

	// ErrUnknownBus is returned when a chosen bus is not among the candidates.
	ErrUnknownBus = errors.New("bus is not a valid connection for this itinerary")

	// ErrNoTerminal is returned when the arrival airport has no bus terminal.
	ErrNoTerminal = errors.New("no bus terminal serves this airport")

	// ErrCouponNotFound is returned for an unknown coupon code.
	ErrCouponNotFound = errors.New("coupon not found")

	// ErrCouponInactive is returned for a disabled or out-of-date coupon.
	ErrCouponInactive = errors.New("coupon is not active")

	// ErrCouponExhausted is returned when a coupon reached its usage cap.
	ErrCouponExhausted = errors.New("coupon usage limit reached")

	// ErrCouponBelowMinimum is returned when the discounted total would fall under the minimum.
	ErrCouponBelowMinimum = errors.New("total after discount is below the minimum")

	// ErrCouponAlreadyApplied is returned when applying a second coupon.
	ErrCouponAlreadyApplied = errors.New("a coupon is already applied")

	// ErrInvalidAmount is returned for a non-positive amount.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrStageBlocked is returned when a route guard rejects the requested stage.
	ErrStageBlocked = errors.New("checkout stage not reachable")

	// ErrInvalidStage is returned for an unknown stage name.
	ErrInvalidStage = errors.New("invalid checkout stage")

	// ErrInvalidProcessor is returned for an unknown payment processor.
	ErrInvalidProcessor = errors.New("invalid payment processor")

	// ErrPaymentFailed is returned when the gateway could not create a checkout.
	ErrPaymentFailed = errors.New("payment could not be started")

	// ErrReservationConflict is returned when the reservation could not be stored
	// because a seat or the idempotency key is already taken.
	ErrReservationConflict = errors.New("reservation conflicts with an existing one")

	// ErrWebhookMismatch is returned when a webhook names a reservation that was
	// not paid through that processor or that checkout.
	ErrWebhookMismatch = errors.New("webhook does not match the reservation payment")

	// ErrInvalidImport is returned when a legacy blob cannot be normalized.
	ErrInvalidImport = errors.New("invalid checkout import")
)

// ValidationErrors collects per-field messages.
type ValidationErrors map[string][]string

// Add appends a message for field.
func (v ValidationErrors) Add(field, message string) {
	v[field] = append(v[field], message)
}

// Empty reports whether no field failed.
func (v ValidationErrors) Empty() bool {
	return len(v) == 0
}

func (v ValidationErrors) Error() string {
	fields := make([]string, 0, len(v))
	for f := range v {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return "validation failed: " + strings.Join(fields, ", ")
}

// StageBlockedError carries the guard decision of a blocked navigation.
type StageBlockedError struct {
	Decision Decision
}

func (e *StageBlockedError) Error() string {
	return ErrStageBlocked.Error() + ": " + e.Decision.Guard
}

func (e *StageBlockedError) Unwrap() error {
	return ErrStageBlocked
}

package flow

import "airlink/internal/domain"

// Well-known keys written by the purchase stages.
const (
	KeySearch        = "search"
	KeyLegOutbound   = "leg.outbound"
	KeyLegReturn     = "leg.return"
	KeySeatsOutbound = "seats.outbound"
	KeySeatsReturn   = "seats.return"
	KeyCheckoutReady = "checkout_ready"
	KeyBus           = "bus"
	KeyCoupon        = "coupon"
	KeyPassenger     = "passenger"
	KeyPaymentOK     = "payment_ok"
	KeyOrder         = "order"
)

// WellKnownKeys is everything Clear removes.
var WellKnownKeys = []string{
	KeySearch,
	KeyLegOutbound,
	KeyLegReturn,
	KeySeatsOutbound,
	KeySeatsReturn,
	KeyCheckoutReady,
	KeyBus,
	KeyCoupon,
	KeyPassenger,
	KeyPaymentOK,
	KeyOrder,
}

// LegKey returns the key of the leg selection for d.
func LegKey(d domain.Direction) string {
	if d == domain.DirectionReturn {
		return KeyLegReturn
	}
	return KeyLegOutbound
}

// SeatsKey returns the key of the seat selection for d.
func SeatsKey(d domain.Direction) string {
	if d == domain.DirectionReturn {
		return KeySeatsReturn
	}
	return KeySeatsOutbound
}

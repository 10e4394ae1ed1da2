package domain

import "time"

// ReservationStatus represents the lifecycle of a reservation.
type ReservationStatus string

const (
	ReservationStatusPending   ReservationStatus = "PENDING"
	ReservationStatusConfirmed ReservationStatus = "CONFIRMED"
	ReservationStatusCancelled ReservationStatus = "CANCELLED"
)

// LineKind classifies a reservation detail line.
type LineKind string

const (
	LineOutboundFlight LineKind = "outbound_flight"
	LineReturnFlight   LineKind = "return_flight"
	LineSeats          LineKind = "seats"
	LineBus            LineKind = "bus"
	LineDiscount       LineKind = "discount"
)

// ReservationLine is one priced item of a reservation. Discounts are negative.
type ReservationLine struct {
	Kind        LineKind
	Description string
	Quantity    int
	UnitPrice   int64
	Amount      int64
}

// ReservationSeat binds a seat code on a trip to the reservation.
type ReservationSeat struct {
	TripID   string
	SeatCode string
	Price    int64
}

// Reservation is the durable record created at payment submission.
type Reservation struct {
	ID             string
	Code           string
	UserID         string
	SessionID      string
	IdempotencyKey string
	Status         ReservationStatus
	Passenger      PassengerProfile
	Passengers     int
	Lines          []ReservationLine
	Seats          []ReservationSeat
	CouponID       string
	Discount       int64
	Total          int64
	Currency       string
	Payment        *Payment
	CreatedAt      time.Time
}

package domain

import "time"

// Trip represents a scheduled flight between two airports.
type Trip struct {
	ID          string
	FlightCode  string
	Carrier     string
	Origin      string
	Destination string
	CabinClass  string
	DepartureAt time.Time
	ArrivalAt   time.Time
}

// Duration returns the scheduled block time.
func (t *Trip) Duration() time.Duration {
	return t.ArrivalAt.Sub(t.DepartureAt)
}

// Fare tiers sold on every trip.
const (
	FareLight    = "Light"
	FareStandard = "Standard"
	FareFull     = "Full"
	FarePremium  = "Premium"
)

// Fare is a priced bundle for a trip with its remaining inventory.
type Fare struct {
	ID        string
	TripID    string
	Name      string
	Price     int64
	Currency  string
	SeatsLeft int
}

// DayAvailability is one cell of the weekly availability strip.
type DayAvailability struct {
	Date      string
	MinPrice  int64
	Available bool
}

// Receipt summarizes a confirmed reservation.
type Receipt struct {
	ReservationCode string
	CustomerEmail   string
	Lines           []ReservationLine
	Subtotal        int64
	Discount        int64
	Total           int64
	Currency        string
	Processor       Processor
	PaymentStatus   PaymentStatus
	PaidAt          time.Time
	CreatedAt       time.Time
}

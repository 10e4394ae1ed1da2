package domain

import "time"

// TripType distinguishes one-way from round-trip searches.
type TripType string

const (
	TripTypeOneWay    TripType = "OW"
	TripTypeRoundTrip TripType = "RT"
)

// Direction identifies a leg of the itinerary.
type Direction string

const (
	DirectionOutbound Direction = "outbound"
	DirectionReturn   Direction = "return"
)

// Valid reports whether d is a known direction.
func (d Direction) Valid() bool {
	return d == DirectionOutbound || d == DirectionReturn
}

// SearchCriteria is what the customer searched for.
type SearchCriteria struct {
	Origin        string   `json:"origin"`
	Destination   string   `json:"destination"`
	DepartureDate string   `json:"departure_date"`
	ReturnDate    string   `json:"return_date,omitempty"`
	TripType      TripType `json:"trip_type"`
	Passengers    int      `json:"passengers"`
	CabinClass    string   `json:"cabin_class,omitempty"`
}

// IsRoundTrip reports whether a return leg is required.
// A return date implies a round trip even when the type says otherwise.
func (c *SearchCriteria) IsRoundTrip() bool {
	return c.TripType == TripTypeRoundTrip || c.ReturnDate != ""
}

// LegSelection is the chosen trip and fare for one direction.
type LegSelection struct {
	Direction   Direction `json:"direction"`
	TripID      string    `json:"trip_id"`
	FlightCode  string    `json:"flight_code"`
	Carrier     string    `json:"carrier"`
	Origin      string    `json:"origin"`
	Destination string    `json:"destination"`
	DepartureAt time.Time `json:"departure_at"`
	ArrivalAt   time.Time `json:"arrival_at"`
	FareID      string    `json:"fare_id"`
	FareName    string    `json:"fare_name"`
	Price       int64     `json:"price"`
	Currency    string    `json:"currency"`
	SeatsLeft   int       `json:"seats_left"`
}

// Complete reports whether both trip and fare are present.
func (l *LegSelection) Complete() bool {
	return l != nil && l.TripID != "" && l.FareID != "" && l.Price > 0
}

// DurationMinutes is the scheduled leg duration.
func (l *LegSelection) DurationMinutes() int {
	return int(l.ArrivalAt.Sub(l.DepartureAt).Minutes())
}

// BusSelection holds the chosen ground legs, or the skip flag.
type BusSelection struct {
	Skipped bool                 `json:"skipped"`
	Legs    map[Direction]BusLeg `json:"legs,omitempty"`
}

// AppliedCoupon is the single coupon attached to a checkout.
type AppliedCoupon struct {
	ID          string     `json:"id"`
	Code        string     `json:"code"`
	Type        CouponType `json:"type"`
	Value       int64      `json:"value"`
	Description string     `json:"description"`
}

// OrderMarker records that a reservation was submitted for this checkout.
type OrderMarker struct {
	ReservationID   string    `json:"reservation_id"`
	ReservationCode string    `json:"reservation_code"`
	PaymentID       string    `json:"payment_id"`
	Processor       Processor `json:"processor"`
	RedirectURL     string    `json:"redirect_url"`
	Total           int64     `json:"total"`
	CreatedAt       time.Time `json:"created_at"`
}

// CheckoutSession is the typed view of everything stored for one checkout.
type CheckoutSession struct {
	ID            string
	Search        *SearchCriteria
	Legs          map[Direction]*LegSelection
	Seats         map[Direction]*SeatSelection
	CheckoutReady bool
	Bus           *BusSelection
	Coupon        *AppliedCoupon
	Passenger     *PassengerProfile
	PaymentOK     bool
	Order         *OrderMarker
}

// NewCheckoutSession returns an empty session with initialized maps.
func NewCheckoutSession(id string) *CheckoutSession {
	return &CheckoutSession{
		ID:    id,
		Legs:  make(map[Direction]*LegSelection),
		Seats: make(map[Direction]*SeatSelection),
	}
}

// Passengers returns the passenger count of the search, or zero.
func (s *CheckoutSession) Passengers() int {
	if s.Search == nil {
		return 0
	}
	return s.Search.Passengers
}

// RequiredDirections lists the legs this checkout must carry.
func (s *CheckoutSession) RequiredDirections() []Direction {
	if s.Search != nil && s.Search.IsRoundTrip() {
		return []Direction{DirectionOutbound, DirectionReturn}
	}
	return []Direction{DirectionOutbound}
}

// Stage is one step of the linear purchase flow.
type Stage string

const (
	StageSearch    Stage = "search"
	StageFare      Stage = "fare"
	StageSeats     Stage = "seats"
	StageBus       Stage = "bus"
	StageCoupon    Stage = "coupon"
	StagePassenger Stage = "passenger"
	StagePayment   Stage = "payment"
	StageSuccess   Stage = "success"
)

// Stages in flow order.
var Stages = []Stage{
	StageSearch, StageFare, StageSeats, StageBus,
	StageCoupon, StagePassenger, StagePayment, StageSuccess,
}

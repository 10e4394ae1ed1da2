package domain

// SeatTier is a seat category with its own surcharge.
type SeatTier string

const (
	SeatTierStandard SeatTier = "standard"
	SeatTierPremium  SeatTier = "premium"
	SeatTierComfort  SeatTier = "comfort"
	SeatTierExit     SeatTier = "exit"
	SeatTierFirstRow SeatTier = "first-row"
)

// SeatFeature tags the position of a seat in the row.
type SeatFeature string

const (
	SeatFeatureWindow SeatFeature = "window"
	SeatFeatureAisle  SeatFeature = "aisle"
	SeatFeatureCenter SeatFeature = "center"
)

// SeatMode is how seats were chosen for a leg.
type SeatMode string

const (
	SeatModeManual SeatMode = "manual"
	SeatModeRandom SeatMode = "random"
)

// Seat is one cell of a seat map.
type Seat struct {
	Code      string      `json:"code"`
	Row       int         `json:"row"`
	Letter    string      `json:"letter"`
	Tier      SeatTier    `json:"tier"`
	Price     int64       `json:"price"`
	Feature   SeatFeature `json:"feature"`
	Available bool        `json:"available"`
}

// SeatMap is the full grid for a trip.
type SeatMap struct {
	TripID  string   `json:"trip_id"`
	Rows    int      `json:"rows"`
	Letters []string `json:"letters"`
	Seats   []Seat   `json:"seats"`
}

// Seat returns the seat with the given code.
func (m *SeatMap) Seat(code string) (Seat, bool) {
	for _, s := range m.Seats {
		if s.Code == code {
			return s, true
		}
	}
	return Seat{}, false
}

// SelectedSeat is a seat assigned to a passenger with the price charged.
type SelectedSeat struct {
	Code    string      `json:"code"`
	Tier    SeatTier    `json:"tier"`
	Feature SeatFeature `json:"feature"`
	Price   int64       `json:"price"`
}

// SeatSelection is the set of seats chosen for one leg.
type SeatSelection struct {
	Direction Direction      `json:"direction"`
	TripID    string         `json:"trip_id"`
	Mode      SeatMode       `json:"mode"`
	Seats     []SelectedSeat `json:"seats"`
}

// Cost is the sum of seat surcharges.
func (s *SeatSelection) Cost() int64 {
	var total int64
	for _, seat := range s.Seats {
		total += seat.Price
	}
	return total
}

// Codes returns the seat codes in selection order.
func (s *SeatSelection) Codes() []string {
	codes := make([]string, len(s.Seats))
	for i, seat := range s.Seats {
		codes[i] = seat.Code
	}
	return codes
}

package service

import (
	"fmt"
	"math/rand"

	"airlink/internal/domain"
)

// SeatLetters are the columns of every cabin, window to window.
var SeatLetters = []string{"A", "B", "C", "D", "E", "F"}

// SeatTierPrices is the surcharge per tier, in CLP.
var SeatTierPrices = map[domain.SeatTier]int64{
	domain.SeatTierPremium:  25000,
	domain.SeatTierComfort:  15000,
	domain.SeatTierExit:     12000,
	domain.SeatTierFirstRow: 10000,
	domain.SeatTierStandard: 8000,
}

// TierForRow returns the seat tier of a row.
func TierForRow(row int) domain.SeatTier {
	switch {
	case row >= 1 && row <= 3:
		return domain.SeatTierPremium
	case row >= 4 && row <= 7:
		return domain.SeatTierComfort
	case row == 8:
		return domain.SeatTierFirstRow
	case row == 10 || row == 20:
		return domain.SeatTierExit
	default:
		return domain.SeatTierStandard
	}
}

// FeatureForLetter returns the position of a seat column.
func FeatureForLetter(letter string) domain.SeatFeature {
	switch letter {
	case "A", "F":
		return domain.SeatFeatureWindow
	case "C", "D":
		return domain.SeatFeatureAisle
	default:
		return domain.SeatFeatureCenter
	}
}

// SeatCode formats a row and letter, e.g. 12A.
func SeatCode(row int, letter string) string {
	return fmt.Sprintf("%d%s", row, letter)
}

// BuildSeatMap lays out rows x SeatLetters. Seats in unavailable are marked taken.
func BuildSeatMap(tripID string, rows int, unavailable map[string]bool) *domain.SeatMap {
	m := &domain.SeatMap{
		TripID:  tripID,
		Rows:    rows,
		Letters: SeatLetters,
		Seats:   make([]domain.Seat, 0, rows*len(SeatLetters)),
	}

	for row := 1; row <= rows; row++ {
		tier := TierForRow(row)
		for _, letter := range SeatLetters {
			code := SeatCode(row, letter)
			m.Seats = append(m.Seats, domain.Seat{
				Code:      code,
				Row:       row,
				Letter:    letter,
				Tier:      tier,
				Price:     SeatTierPrices[tier],
				Feature:   FeatureForLetter(letter),
				Available: !unavailable[code],
			})
		}
	}
	return m
}

// SeatPicker tracks a manual selection bounded by the passenger count.
type SeatPicker struct {
	passengers int
	selected   []domain.Seat
}

// NewSeatPicker creates a picker for the given number of passengers.
func NewSeatPicker(passengers int) *SeatPicker {
	return &SeatPicker{passengers: passengers}
}

// Toggle selects or deselects a seat and reports whether the selection changed.
// Unavailable seats are ignored, and a new seat is refused once every passenger has one.
func (p *SeatPicker) Toggle(seat domain.Seat) bool {
	if !seat.Available {
		return false
	}

	for i, s := range p.selected {
		if s.Code == seat.Code {
			p.selected = append(p.selected[:i], p.selected[i+1:]...)
			return true
		}
	}

	if len(p.selected) >= p.passengers {
		return false
	}
	p.selected = append(p.selected, seat)
	return true
}

// Selected returns the chosen seats in selection order.
func (p *SeatPicker) Selected() []domain.SelectedSeat {
	out := make([]domain.SelectedSeat, len(p.selected))
	for i, s := range p.selected {
		out[i] = domain.SelectedSeat{Code: s.Code, Tier: s.Tier, Feature: s.Feature, Price: s.Price}
	}
	return out
}

// CanContinue reports whether every passenger has exactly one seat.
func (p *SeatPicker) CanContinue() bool {
	return p.passengers > 0 && len(p.selected) == p.passengers
}

// PickRandomSeats assigns n free standard seats at no charge.
func PickRandomSeats(m *domain.SeatMap, n int, rng *rand.Rand) ([]domain.SelectedSeat, error) {
	var pool []domain.Seat
	for _, s := range m.Seats {
		if s.Available && s.Tier == domain.SeatTierStandard {
			pool = append(pool, s)
		}
	}
	if n <= 0 || len(pool) < n {
		return nil, ErrNotEnoughFreeSeats
	}

	rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })

	out := make([]domain.SelectedSeat, n)
	for i := 0; i < n; i++ {
		out[i] = domain.SelectedSeat{
			Code:    pool[i].Code,
			Tier:    pool[i].Tier,
			Feature: pool[i].Feature,
			Price:   0,
		}
	}
	return out, nil
}

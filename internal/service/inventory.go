package service

import (
	"context"
	"hash/fnv"
	"math/rand"

	"airlink/internal/repository"
)

// SeatInventoryProvider reports the seats already sold on a trip.
type SeatInventoryProvider interface {
	Unavailable(ctx context.Context, tripID string) (map[string]bool, error)
}

// DBSeatInventory reads sold seats from reservations.
type DBSeatInventory struct {
	seatRepo repository.SeatRepository
}

// NewDBSeatInventory creates a DBSeatInventory.
func NewDBSeatInventory(seatRepo repository.SeatRepository) *DBSeatInventory {
	return &DBSeatInventory{seatRepo: seatRepo}
}

func (p *DBSeatInventory) Unavailable(ctx context.Context, tripID string) (map[string]bool, error) {
	return p.seatRepo.BookedSeats(ctx, tripID)
}

// MockSeatInventory marks a stable pseudo-random share of seats as sold.
// The draw is seeded by the trip ID so reloading the map shows the same seats.
type MockSeatInventory struct {
	rows         int
	availability float64
}

// NewMockSeatInventory creates a MockSeatInventory. availability is the share of free seats.
func NewMockSeatInventory(rows int, availability float64) *MockSeatInventory {
	if availability < 0 {
		availability = 0
	}
	if availability > 1 {
		availability = 1
	}
	return &MockSeatInventory{rows: rows, availability: availability}
}

func (p *MockSeatInventory) Unavailable(ctx context.Context, tripID string) (map[string]bool, error) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(tripID))
	rng := rand.New(rand.NewSource(int64(h.Sum64())))

	taken := make(map[string]bool)
	for row := 1; row <= p.rows; row++ {
		for _, letter := range SeatLetters {
			if rng.Float64() >= p.availability {
				taken[SeatCode(row, letter)] = true
			}
		}
	}
	return taken, nil
}

var (
	_ SeatInventoryProvider = (*DBSeatInventory)(nil)
	_ SeatInventoryProvider = (*MockSeatInventory)(nil)
)

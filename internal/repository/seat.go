package repository

import "context"

// SeatRepository defines the persistence operations for seat assignments.
type SeatRepository interface {
	// BookedSeats returns the seat codes already sold on a trip.
	BookedSeats(ctx context.Context, tripID string) (map[string]bool, error)
}

package repository

import (
	"context"
	"time"

	"airlink/internal/domain"
)

// TripSearch contains the filters of a trip search.
type TripSearch struct {
	Origin      string
	Destination string
	Date        time.Time
	CabinClass  string // Optional: empty means any class
}

// TripRepository defines the read operations for the flight catalogue.
type TripRepository interface {
	// Search returns trips departing on the given day, ordered by departure.
	Search(ctx context.Context, q TripSearch) ([]*domain.Trip, error)

	// GetByID retrieves a trip by ID.
	GetByID(ctx context.Context, id string) (*domain.Trip, error)

	// ListFares returns the fares sold on a trip, cheapest first.
	ListFares(ctx context.Context, tripID string) ([]*domain.Fare, error)

	// GetFare retrieves a fare of a trip.
	GetFare(ctx context.Context, tripID, fareID string) (*domain.Fare, error)

	// MinPricesByDay returns the cheapest available fare per departure day
	// in [from, from+days). Days without sellable fares are omitted.
	MinPricesByDay(ctx context.Context, origin, destination string, from time.Time, days int) (map[string]int64, error)
}

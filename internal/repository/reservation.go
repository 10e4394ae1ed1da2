package repository

import (
	"context"

	"airlink/internal/domain"
)

// ReservationRepository defines the persistence operations for reservations.
type ReservationRepository interface {
	// Create persists the reservation with its passenger, lines, seats,
	// coupon usage and pending payment atomically.
	Create(ctx context.Context, reservation *domain.Reservation) error

	// GetByCode retrieves a reservation by its public code.
	GetByCode(ctx context.Context, code string) (*domain.Reservation, error)

	// GetByIdempotencyKey retrieves a reservation by its idempotency key.
	// Returns nil if no reservation exists with the given key.
	GetByIdempotencyKey(ctx context.Context, key string) (*domain.Reservation, error)

	// UpdateStatus updates the status of a reservation.
	UpdateStatus(ctx context.Context, id string, status domain.ReservationStatus) error
}

package repository

import (
	"context"

	"airlink/internal/domain"
)

// PaymentRepository defines the persistence operations for payments.
type PaymentRepository interface {
	// GetByID retrieves a payment by ID.
	GetByID(ctx context.Context, id string) (*domain.Payment, error)

	// GetByReservationID retrieves the latest payment of a reservation.
	GetByReservationID(ctx context.Context, reservationID string) (*domain.Payment, error)

	// AttachExternal records the processor and its checkout reference.
	AttachExternal(ctx context.Context, id string, processor domain.Processor, externalID string) error

	// UpdateStatus updates the status of a payment.
	UpdateStatus(ctx context.Context, id string, status domain.PaymentStatus) error
}

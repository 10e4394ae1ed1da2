package repository

import (
	"context"
	"time"

	"airlink/internal/domain"
)

// BusRepository defines the read operations for ground connections.
type BusRepository interface {
	// Departures returns buses leaving the terminal in [from, to) with seats left.
	Departures(ctx context.Context, terminal string, from, to time.Time) ([]domain.BusLeg, error)
}

package postgres

import (
	"context"
	"database/sql"
	"time"

	"airlink/internal/domain"
)

// BusRepository is a PostgreSQL implementation of repository.BusRepository.
type BusRepository struct {
	q Querier
}

// NewBusRepository creates a new PostgreSQL bus repository.
func NewBusRepository(db *sql.DB) *BusRepository {
	return &BusRepository{q: db}
}

// Departures returns buses leaving the terminal in [from, to) with seats left.
func (r *BusRepository) Departures(ctx context.Context, terminal string, from, to time.Time) ([]domain.BusLeg, error) {
	query := `
		SELECT id, operator, origin_terminal, destination, departure_at, arrival_at, price, seats_left
		FROM bus_departures
		WHERE origin_terminal = $1
		  AND departure_at >= $2 AND departure_at < $3
		  AND seats_left > 0
		ORDER BY departure_at
	`

	rows, err := r.q.QueryContext(ctx, query, terminal, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var legs []domain.BusLeg
	for rows.Next() {
		var leg domain.BusLeg
		if err := rows.Scan(
			&leg.ID,
			&leg.Operator,
			&leg.Origin,
			&leg.Destination,
			&leg.DepartureAt,
			&leg.ArrivalAt,
			&leg.Price,
			&leg.SeatsLeft,
		); err != nil {
			return nil, err
		}
		legs = append(legs, leg)
	}

	return legs, rows.Err()
}

package postgres

import (
	"context"
	"database/sql"
)

// SeatRepository is a PostgreSQL implementation of repository.SeatRepository.
type SeatRepository struct {
	q Querier
}

// NewSeatRepository creates a new PostgreSQL seat repository.
func NewSeatRepository(db *sql.DB) *SeatRepository {
	return &SeatRepository{q: db}
}

// NewSeatRepositoryWithTx creates a seat repository using a transaction.
func NewSeatRepositoryWithTx(tx *sql.Tx) *SeatRepository {
	return &SeatRepository{q: tx}
}

// BookedSeats returns the seat codes sold on a trip by reservations that were not cancelled.
func (r *SeatRepository) BookedSeats(ctx context.Context, tripID string) (map[string]bool, error) {
	query := `
		SELECT rs.seat_code
		FROM reservation_seats rs
		JOIN reservations r ON r.id = rs.reservation_id
		WHERE rs.trip_id = $1 AND r.status <> 'CANCELLED'
	`

	rows, err := r.q.QueryContext(ctx, query, tripID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	booked := make(map[string]bool)
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, err
		}
		booked[code] = true
	}

	return booked, rows.Err()
}

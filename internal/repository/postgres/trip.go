package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"airlink/internal/domain"
	"airlink/internal/repository"
)

// TripRepository is a PostgreSQL implementation of repository.TripRepository.
type TripRepository struct {
	q Querier
}

// NewTripRepository creates a new PostgreSQL trip repository.
func NewTripRepository(db *sql.DB) *TripRepository {
	return &TripRepository{q: db}
}

// NewTripRepositoryWithTx creates a trip repository using a transaction.
func NewTripRepositoryWithTx(tx *sql.Tx) *TripRepository {
	return &TripRepository{q: tx}
}

const tripColumns = `id, flight_code, carrier, origin, destination, cabin_class, departure_at, arrival_at`

// Search returns trips departing on the given day, ordered by departure.
func (r *TripRepository) Search(ctx context.Context, q repository.TripSearch) ([]*domain.Trip, error) {
	dayStart := time.Date(q.Date.Year(), q.Date.Month(), q.Date.Day(), 0, 0, 0, 0, q.Date.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)

	query := `
		SELECT ` + tripColumns + `
		FROM trips
		WHERE origin = $1 AND destination = $2
		  AND departure_at >= $3 AND departure_at < $4
		  AND ($5 = '' OR cabin_class = $5)
		ORDER BY departure_at
	`

	rows, err := r.q.QueryContext(ctx, query, q.Origin, q.Destination, dayStart, dayEnd, q.CabinClass)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trips []*domain.Trip
	for rows.Next() {
		trip, err := scanTrip(rows)
		if err != nil {
			return nil, err
		}
		trips = append(trips, trip)
	}

	return trips, rows.Err()
}

// GetByID retrieves a trip by ID.
func (r *TripRepository) GetByID(ctx context.Context, id string) (*domain.Trip, error) {
	query := `SELECT ` + tripColumns + ` FROM trips WHERE id = $1`

	trip, err := scanTrip(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	return trip, nil
}

// ListFares returns the fares sold on a trip, cheapest first.
func (r *TripRepository) ListFares(ctx context.Context, tripID string) ([]*domain.Fare, error) {
	query := `
		SELECT id, trip_id, name, price, currency, seats_left
		FROM fares WHERE trip_id = $1
		ORDER BY price
	`

	rows, err := r.q.QueryContext(ctx, query, tripID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fares []*domain.Fare
	for rows.Next() {
		var fare domain.Fare
		if err := rows.Scan(&fare.ID, &fare.TripID, &fare.Name, &fare.Price, &fare.Currency, &fare.SeatsLeft); err != nil {
			return nil, err
		}
		fares = append(fares, &fare)
	}

	return fares, rows.Err()
}

// GetFare retrieves a fare of a trip.
func (r *TripRepository) GetFare(ctx context.Context, tripID, fareID string) (*domain.Fare, error) {
	query := `
		SELECT id, trip_id, name, price, currency, seats_left
		FROM fares WHERE trip_id = $1 AND id = $2
	`

	var fare domain.Fare
	err := r.q.QueryRowContext(ctx, query, tripID, fareID).Scan(
		&fare.ID,
		&fare.TripID,
		&fare.Name,
		&fare.Price,
		&fare.Currency,
		&fare.SeatsLeft,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	return &fare, nil
}

// MinPricesByDay returns the cheapest sellable fare per departure day.
func (r *TripRepository) MinPricesByDay(ctx context.Context, origin, destination string, from time.Time, days int) (map[string]int64, error) {
	start := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, from.Location())
	end := start.AddDate(0, 0, days)

	query := `
		SELECT to_char(t.departure_at, 'YYYY-MM-DD') AS day, MIN(f.price)
		FROM trips t
		JOIN fares f ON f.trip_id = t.id
		WHERE t.origin = $1 AND t.destination = $2
		  AND t.departure_at >= $3 AND t.departure_at < $4
		  AND f.seats_left > 0
		GROUP BY day
	`

	rows, err := r.q.QueryContext(ctx, query, origin, destination, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	prices := make(map[string]int64)
	for rows.Next() {
		var day string
		var price int64
		if err := rows.Scan(&day, &price); err != nil {
			return nil, err
		}
		prices[day] = price
	}

	return prices, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTrip(row rowScanner) (*domain.Trip, error) {
	var trip domain.Trip
	err := row.Scan(
		&trip.ID,
		&trip.FlightCode,
		&trip.Carrier,
		&trip.Origin,
		&trip.Destination,
		&trip.CabinClass,
		&trip.DepartureAt,
		&trip.ArrivalAt,
	)
	if err != nil {
		return nil, err
	}
	return &trip, nil
}

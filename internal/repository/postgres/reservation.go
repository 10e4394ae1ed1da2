package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"airlink/internal/domain"
	"airlink/internal/repository"
)

// uniqueViolation is the PostgreSQL error code for unique constraint failures.
const uniqueViolation = "23505"

// ReservationRepository is a PostgreSQL implementation of repository.ReservationRepository.
type ReservationRepository struct {
	db *sql.DB
	q  Querier
}

// NewReservationRepository creates a new PostgreSQL reservation repository.
func NewReservationRepository(db *sql.DB) *ReservationRepository {
	return &ReservationRepository{db: db, q: db}
}

// Create persists the reservation with its passenger, lines, seats, coupon
// redemption and pending payment in a single transaction. The customer account
// is found by email or created.
func (r *ReservationRepository) Create(ctx context.Context, res *domain.Reservation) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	// Create transaction-scoped repositories.
	txUserRepo := NewUserRepositoryWithTx(tx)
	txCouponRepo := NewCouponRepositoryWithTx(tx)
	txPaymentRepo := NewPaymentRepositoryWithTx(tx)

	var user *domain.User
	user, err = txUserRepo.GetByEmail(ctx, res.Passenger.Email)
	if errors.Is(err, repository.ErrNotFound) {
		user = &domain.User{
			ID:      uuid.New().String(),
			Name:    res.Passenger.Name,
			Surname: res.Passenger.Surname,
			Email:   res.Passenger.Email,
			Phone:   res.Passenger.Phone,
		}
		err = txUserRepo.Create(ctx, user)
	}
	if err != nil {
		return err
	}
	res.UserID = user.ID

	var couponID sql.NullString
	if res.CouponID != "" {
		couponID = sql.NullString{String: res.CouponID, Valid: true}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO reservations (id, code, user_id, session_id, idempotency_key, status, passengers, coupon_id, discount, total, currency)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`,
		res.ID,
		res.Code,
		res.UserID,
		res.SessionID,
		res.IdempotencyKey,
		res.Status,
		res.Passengers,
		couponID,
		res.Discount,
		res.Total,
		res.Currency,
	)
	if err != nil {
		err = translateUnique(err)
		return err
	}

	p := res.Passenger
	_, err = tx.ExecContext(ctx, `
		INSERT INTO reservation_passengers (reservation_id, name, surname, birth_date, gender, document_type, document_number, email, phone)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, res.ID, p.Name, p.Surname, p.BirthDate, p.Gender, p.DocumentType, p.DocumentNumber, p.Email, p.Phone)
	if err != nil {
		return err
	}

	for i, line := range res.Lines {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO reservation_lines (reservation_id, position, kind, description, quantity, unit_price, amount)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, res.ID, i+1, line.Kind, line.Description, line.Quantity, line.UnitPrice, line.Amount)
		if err != nil {
			return err
		}
	}

	for _, seat := range res.Seats {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO reservation_seats (reservation_id, trip_id, seat_code, price)
			VALUES ($1, $2, $3, $4)
		`, res.ID, seat.TripID, seat.SeatCode, seat.Price)
		if err != nil {
			err = translateUnique(err)
			return err
		}
	}

	if res.CouponID != "" {
		if err = txCouponRepo.Redeem(ctx, res.CouponID, res.ID, res.Discount); err != nil {
			return err
		}
	}

	if res.Payment != nil {
		res.Payment.ReservationID = res.ID
		if err = txPaymentRepo.Create(ctx, res.Payment); err != nil {
			return err
		}
	}

	err = tx.Commit()
	return err
}

const reservationSelect = `
	SELECT r.id, r.code, r.user_id, r.session_id, r.idempotency_key, r.status, r.passengers,
	       COALESCE(r.coupon_id, ''), r.discount, r.total, r.currency, r.created_at,
	       p.name, p.surname, p.birth_date, p.gender, p.document_type, p.document_number, p.email, p.phone
	FROM reservations r
	JOIN reservation_passengers p ON p.reservation_id = r.id
`

// GetByCode retrieves a reservation by its public code.
func (r *ReservationRepository) GetByCode(ctx context.Context, code string) (*domain.Reservation, error) {
	res, err := r.getOne(ctx, reservationSelect+` WHERE r.code = $1`, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return res, nil
}

// GetByIdempotencyKey retrieves a reservation by its idempotency key.
// Returns nil if no reservation exists with the given key.
func (r *ReservationRepository) GetByIdempotencyKey(ctx context.Context, key string) (*domain.Reservation, error) {
	res, err := r.getOne(ctx, reservationSelect+` WHERE r.idempotency_key = $1`, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return res, nil
}

// UpdateStatus updates the status of a reservation. Cancelled reservations release their seats.
func (r *ReservationRepository) UpdateStatus(ctx context.Context, id string, status domain.ReservationStatus) error {
	result, err := r.q.ExecContext(ctx, `UPDATE reservations SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}

	if status == domain.ReservationStatusCancelled {
		_, err = r.q.ExecContext(ctx, `DELETE FROM reservation_seats WHERE reservation_id = $1`, id)
		return err
	}
	return nil
}

func (r *ReservationRepository) getOne(ctx context.Context, query string, arg any) (*domain.Reservation, error) {
	var res domain.Reservation
	p := &res.Passenger
	err := r.q.QueryRowContext(ctx, query, arg).Scan(
		&res.ID,
		&res.Code,
		&res.UserID,
		&res.SessionID,
		&res.IdempotencyKey,
		&res.Status,
		&res.Passengers,
		&res.CouponID,
		&res.Discount,
		&res.Total,
		&res.Currency,
		&res.CreatedAt,
		&p.Name,
		&p.Surname,
		&p.BirthDate,
		&p.Gender,
		&p.DocumentType,
		&p.DocumentNumber,
		&p.Email,
		&p.Phone,
	)
	if err != nil {
		return nil, err
	}

	res.Lines, err = r.lines(ctx, res.ID)
	if err != nil {
		return nil, err
	}

	res.Seats, err = r.seats(ctx, res.ID)
	if err != nil {
		return nil, err
	}

	payment, err := (&PaymentRepository{q: r.q}).GetByReservationID(ctx, res.ID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	res.Payment = payment

	return &res, nil
}

func (r *ReservationRepository) lines(ctx context.Context, reservationID string) ([]domain.ReservationLine, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT kind, description, quantity, unit_price, amount
		FROM reservation_lines WHERE reservation_id = $1
		ORDER BY position
	`, reservationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []domain.ReservationLine
	for rows.Next() {
		var line domain.ReservationLine
		if err := rows.Scan(&line.Kind, &line.Description, &line.Quantity, &line.UnitPrice, &line.Amount); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

func (r *ReservationRepository) seats(ctx context.Context, reservationID string) ([]domain.ReservationSeat, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT trip_id, seat_code, price
		FROM reservation_seats WHERE reservation_id = $1
		ORDER BY trip_id, seat_code
	`, reservationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var seats []domain.ReservationSeat
	for rows.Next() {
		var seat domain.ReservationSeat
		if err := rows.Scan(&seat.TripID, &seat.SeatCode, &seat.Price); err != nil {
			return nil, err
		}
		seats = append(seats, seat)
	}
	return seats, rows.Err()
}

func translateUnique(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return repository.ErrConflict
	}
	return err
}

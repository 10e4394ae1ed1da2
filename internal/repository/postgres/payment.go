package postgres

import (
	"context"
	"database/sql"
	"errors"

	"airlink/internal/domain"
	"airlink/internal/repository"
)

// PaymentRepository is a PostgreSQL implementation of repository.PaymentRepository.
type PaymentRepository struct {
	q Querier
}

// NewPaymentRepository creates a new PostgreSQL payment repository.
func NewPaymentRepository(db *sql.DB) *PaymentRepository {
	return &PaymentRepository{q: db}
}

// NewPaymentRepositoryWithTx creates a payment repository using a transaction.
func NewPaymentRepositoryWithTx(tx *sql.Tx) *PaymentRepository {
	return &PaymentRepository{q: tx}
}

const paymentColumns = `id, reservation_id, processor, external_id, amount, currency, status, created_at, updated_at`

// Create persists a new payment.
func (r *PaymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	query := `
		INSERT INTO payments (id, reservation_id, processor, external_id, amount, currency, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.q.ExecContext(ctx, query,
		payment.ID,
		payment.ReservationID,
		payment.Processor,
		payment.ExternalID,
		payment.Amount,
		payment.Currency,
		payment.Status,
	)

	return err
}

// GetByID retrieves a payment by ID.
func (r *PaymentRepository) GetByID(ctx context.Context, id string) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`
	return r.getOne(ctx, query, id)
}

// GetByReservationID retrieves the latest payment of a reservation.
func (r *PaymentRepository) GetByReservationID(ctx context.Context, reservationID string) (*domain.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments WHERE reservation_id = $1
		ORDER BY created_at DESC LIMIT 1
	`
	return r.getOne(ctx, query, reservationID)
}

func (r *PaymentRepository) getOne(ctx context.Context, query string, arg any) (*domain.Payment, error) {
	var payment domain.Payment
	err := r.q.QueryRowContext(ctx, query, arg).Scan(
		&payment.ID,
		&payment.ReservationID,
		&payment.Processor,
		&payment.ExternalID,
		&payment.Amount,
		&payment.Currency,
		&payment.Status,
		&payment.CreatedAt,
		&payment.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	return &payment, nil
}

// AttachExternal records the processor and its checkout reference.
func (r *PaymentRepository) AttachExternal(ctx context.Context, id string, processor domain.Processor, externalID string) error {
	query := `UPDATE payments SET processor = $1, external_id = $2, updated_at = NOW() WHERE id = $3`
	return r.execOne(ctx, query, processor, externalID, id)
}

// UpdateStatus updates the status of a payment.
func (r *PaymentRepository) UpdateStatus(ctx context.Context, id string, status domain.PaymentStatus) error {
	query := `UPDATE payments SET status = $1, updated_at = NOW() WHERE id = $2`
	return r.execOne(ctx, query, status, id)
}

func (r *PaymentRepository) execOne(ctx context.Context, query string, args ...any) error {
	result, err := r.q.ExecContext(ctx, query, args...)
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

	return nil
}

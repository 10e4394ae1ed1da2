package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"airlink/internal/domain"
	"airlink/internal/repository"
)

// CouponRepository is a PostgreSQL implementation of repository.CouponRepository.
type CouponRepository struct {
	q Querier
}

// NewCouponRepository creates a new PostgreSQL coupon repository.
func NewCouponRepository(db *sql.DB) *CouponRepository {
	return &CouponRepository{q: db}
}

// NewCouponRepositoryWithTx creates a coupon repository using a transaction.
func NewCouponRepositoryWithTx(tx *sql.Tx) *CouponRepository {
	return &CouponRepository{q: tx}
}

const couponColumns = `id, code, description, type, value, max_uses, uses, starts_at, ends_at, active`

// GetByCode retrieves a coupon by its code. Codes are stored upper-cased.
func (r *CouponRepository) GetByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	query := `SELECT ` + couponColumns + ` FROM coupons WHERE code = $1`

	coupon, err := scanCoupon(r.q.QueryRowContext(ctx, query, strings.ToUpper(strings.TrimSpace(code))))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	return coupon, nil
}

// ListActive returns coupons that are active, in date and under their usage cap.
func (r *CouponRepository) ListActive(ctx context.Context) ([]*domain.Coupon, error) {
	query := `
		SELECT ` + couponColumns + `
		FROM coupons
		WHERE active
		  AND starts_at <= NOW() AND ends_at >= NOW()
		  AND (max_uses = 0 OR uses < max_uses)
		ORDER BY ends_at
	`

	rows, err := r.q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var coupons []*domain.Coupon
	for rows.Next() {
		coupon, err := scanCoupon(rows)
		if err != nil {
			return nil, err
		}
		coupons = append(coupons, coupon)
	}

	return coupons, rows.Err()
}

// Redeem records the coupon against a reservation and increments its usage.
// Returns repository.ErrConflict when the usage cap has been reached.
func (r *CouponRepository) Redeem(ctx context.Context, couponID, reservationID string, discount int64) error {
	result, err := r.q.ExecContext(ctx,
		`UPDATE coupons SET uses = uses + 1 WHERE id = $1 AND (max_uses = 0 OR uses < max_uses)`,
		couponID,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return repository.ErrConflict
	}

	_, err = r.q.ExecContext(ctx,
		`INSERT INTO coupon_redemptions (coupon_id, reservation_id, discount) VALUES ($1, $2, $3)`,
		couponID, reservationID, discount,
	)
	return err
}

func scanCoupon(row rowScanner) (*domain.Coupon, error) {
	var coupon domain.Coupon
	var description sql.NullString
	err := row.Scan(
		&coupon.ID,
		&coupon.Code,
		&description,
		&coupon.Type,
		&coupon.Value,
		&coupon.MaxUses,
		&coupon.Uses,
		&coupon.StartsAt,
		&coupon.EndsAt,
		&coupon.Active,
	)
	if err != nil {
		return nil, err
	}
	coupon.Description = description.String
	return &coupon, nil
}

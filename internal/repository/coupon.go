package repository

import (
	"context"

	"airlink/internal/domain"
)

// CouponRepository defines the persistence operations for coupons.
type CouponRepository interface {
	// GetByCode retrieves a coupon by its (case-insensitive) code.
	GetByCode(ctx context.Context, code string) (*domain.Coupon, error)

	// ListActive returns coupons that are active, in date and under their usage cap.
	ListActive(ctx context.Context) ([]*domain.Coupon, error)
}

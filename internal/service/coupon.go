package service

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"airlink/internal/domain"
	"airlink/internal/redis"
	"airlink/internal/repository"
)

// ComputeDiscount applies a coupon to subtotal. The result never exceeds subtotal.
func ComputeDiscount(t domain.CouponType, value, subtotal int64) int64 {
	if subtotal <= 0 || value <= 0 {
		return 0
	}

	var discount int64
	switch t {
	case domain.CouponTypePercentage:
		// rounds half up, amounts are non-negative
		discount = (subtotal*value + 50) / 100
	case domain.CouponTypeFixed:
		discount = value
	}

	if discount > subtotal {
		discount = subtotal
	}
	return discount
}

// CouponService validates discount codes and attaches them to a checkout.
type CouponService struct {
	couponRepo repository.CouponRepository
	sessions   *SessionService
	guards     *GuardService
	cache      redis.CacheStoreInterface
	minTotal   int64
	now        func() time.Time
}

// NewCouponService creates a new CouponService. cache may be nil.
func NewCouponService(
	couponRepo repository.CouponRepository,
	sessions *SessionService,
	guards *GuardService,
	cache redis.CacheStoreInterface,
	minTotal int64,
) *CouponService {
	return &CouponService{
		couponRepo: couponRepo,
		sessions:   sessions,
		guards:     guards,
		cache:      cache,
		minTotal:   minTotal,
		now:        time.Now,
	}
}

// Validate checks a code against a subtotal and returns the resulting quote.
func (s *CouponService) Validate(ctx context.Context, code string, subtotal int64) (*domain.CouponQuote, error) {
	if subtotal <= 0 {
		return nil, ErrInvalidAmount
	}
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, ErrCouponNotFound
	}

	coupon, err := s.couponRepo.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrCouponNotFound
		}
		return nil, err
	}

	now := s.now()
	if !coupon.Active ||
		(!coupon.StartsAt.IsZero() && now.Before(coupon.StartsAt)) ||
		(!coupon.EndsAt.IsZero() && now.After(coupon.EndsAt)) {
		return nil, ErrCouponInactive
	}
	if coupon.MaxUses > 0 && coupon.Uses >= coupon.MaxUses {
		return nil, ErrCouponExhausted
	}

	discount := ComputeDiscount(coupon.Type, coupon.Value, subtotal)
	total := subtotal - discount
	if s.minTotal > 0 && total < s.minTotal {
		return nil, ErrCouponBelowMinimum
	}

	return &domain.CouponQuote{
		Coupon:   coupon,
		Subtotal: subtotal,
		Discount: discount,
		Total:    total,
	}, nil
}

// Apply validates a code against the checkout subtotal and attaches it.
// Only one coupon may be attached at a time.
func (s *CouponService) Apply(ctx context.Context, sessionID, code string) (*domain.CouponQuote, error) {
	session, err := s.sessions.LoadActive(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := s.guards.Require(ctx, session, domain.StageCoupon); err != nil {
		return nil, err
	}
	if session.Coupon != nil {
		return nil, ErrCouponAlreadyApplied
	}

	quote, err := s.Validate(ctx, code, QuoteSession(session).Subtotal)
	if err != nil {
		return nil, err
	}

	applied := &domain.AppliedCoupon{
		ID:          quote.Coupon.ID,
		Code:        quote.Coupon.Code,
		Type:        quote.Coupon.Type,
		Value:       quote.Coupon.Value,
		Description: quote.Coupon.Description,
	}
	if err := s.sessions.SaveCoupon(ctx, session, applied); err != nil {
		return nil, err
	}
	return quote, nil
}

// Remove detaches the coupon of a checkout.
func (s *CouponService) Remove(ctx context.Context, sessionID string) error {
	session, err := s.sessions.LoadActive(ctx, sessionID)
	if err != nil {
		return err
	}
	return s.sessions.RemoveCoupon(ctx, session)
}

// ListActive returns the coupons currently on offer.
func (s *CouponService) ListActive(ctx context.Context) ([]*domain.Coupon, error) {
	if s.cache != nil {
		var cached []*domain.Coupon
		hit, err := s.cache.GetJSON(ctx, redis.ActiveCouponsCacheKey, &cached)
		if err != nil {
			log.Printf("coupon cache read failed: %v", err)
		} else if hit {
			return cached, nil
		}
	}

	coupons, err := s.couponRepo.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, redis.ActiveCouponsCacheKey, coupons, redis.CouponCacheTTL); err != nil {
			log.Printf("coupon cache write failed: %v", err)
		}
	}
	return coupons, nil
}

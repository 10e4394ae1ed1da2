package domain

import "time"

// CouponType is how a coupon's value is applied.
type CouponType string

const (
	CouponTypePercentage CouponType = "porcentaje"
	CouponTypeFixed      CouponType = "monto_fijo"
)

// Coupon is a discount code as stored.
type Coupon struct {
	ID          string
	Code        string
	Description string
	Type        CouponType
	Value       int64
	MaxUses     int
	Uses        int
	StartsAt    time.Time
	EndsAt      time.Time
	Active      bool
}

// CouponQuote is the result of validating a coupon against a subtotal.
type CouponQuote struct {
	Coupon   *Coupon
	Subtotal int64
	Discount int64
	Total    int64
}

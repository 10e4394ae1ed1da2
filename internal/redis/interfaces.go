package redis

import (
	"context"
	"time"
)

// SeatHoldStoreInterface defines the interface for seat hold operations.
type SeatHoldStoreInterface interface {
	HoldSeats(ctx context.Context, tripID, holderID string, seatCodes []string, ttl time.Duration) (bool, error)
	ReleaseSeats(ctx context.Context, tripID, holderID string, seatCodes []string) error
	Holders(ctx context.Context, tripID string, seatCodes []string) (map[string]string, error)
}

// CacheStoreInterface defines the interface for JSON caching.
type CacheStoreInterface interface {
	GetJSON(ctx context.Context, key string, dst any) (bool, error)
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	Invalidate(ctx context.Context, keys ...string) error
}

// Ensure concrete types implement interfaces.
var (
	_ SeatHoldStoreInterface = (*SeatHoldStore)(nil)
	_ CacheStoreInterface    = (*CacheStore)(nil)
)

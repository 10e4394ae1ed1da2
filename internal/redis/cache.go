package redis

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// CacheStore handles read-through caching of catalogue lookups in Redis.
type CacheStore struct {
	client *redis.Client
}

// NewCacheStore creates a new CacheStore.
func NewCacheStore(client *redis.Client) *CacheStore {
	return &CacheStore{client: client}
}

// Cache TTL constants
const (
	SearchCacheTTL = 60 * time.Second // Schedules change rarely
	FareCacheTTL   = 15 * time.Second // Inventory moves with every sale
	CouponCacheTTL = 5 * time.Minute
)

// Key prefixes
const (
	searchCachePrefix = "cache:search:"
	fareCachePrefix   = "cache:fares:"
	couponCachePrefix = "cache:coupons:"
)

// SearchCacheKey builds the cache key of a trip search.
func SearchCacheKey(origin, destination, date, cabinClass string) string {
	return searchCachePrefix + strings.ToUpper(strings.Join([]string{origin, destination, date, cabinClass}, ":"))
}

// FareCacheKey builds the cache key of a trip's fares.
func FareCacheKey(tripID string) string {
	return fareCachePrefix + tripID
}

// ActiveCouponsCacheKey is the cache key of the active coupon listing.
const ActiveCouponsCacheKey = couponCachePrefix + "active"

// GetJSON decodes the cached value into dst. A miss returns false with no error.
func (s *CacheStore) GetJSON(ctx context.Context, key string, dst any) (bool, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return false, nil // Cache miss
		}
		return false, err
	}

	if err := json.Unmarshal(data, dst); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON stores value under key.
func (s *CacheStore) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, data, ttl).Err()
}

// Invalidate removes cached entries.
func (s *CacheStore) Invalidate(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return s.client.Del(ctx, keys...).Err()
}

package redis

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// releaseHold deletes a hold only if it is still owned by the caller.
var releaseHold = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// SeatHoldStore keeps short-lived seat holds so two checkouts cannot take the same seat.
type SeatHoldStore struct {
	client *redis.Client
}

// NewSeatHoldStore creates a new SeatHoldStore.
func NewSeatHoldStore(client *redis.Client) *SeatHoldStore {
	return &SeatHoldStore{client: client}
}

func seatHoldKey(tripID, seatCode string) string {
	return fmt.Sprintf("hold:seat:%s:%s", tripID, seatCode)
}

// HoldSeats holds every seat for holderID, or none of them.
// Returns true if all holds were acquired, false if any seat is held by someone else.
// Seats already held by holderID are refreshed.
func (s *SeatHoldStore) HoldSeats(ctx context.Context, tripID, holderID string, seatCodes []string, ttl time.Duration) (bool, error) {
	acquired := make([]string, 0, len(seatCodes))

	for _, code := range seatCodes {
		key := seatHoldKey(tripID, code)

		ok, err := s.client.SetNX(ctx, key, holderID, ttl).Result()
		if err != nil {
			s.rollback(ctx, tripID, holderID, acquired)
			return false, err
		}
		if ok {
			acquired = append(acquired, code)
			continue
		}

		owner, err := s.client.Get(ctx, key).Result()
		if err != nil && err != redis.Nil {
			s.rollback(ctx, tripID, holderID, acquired)
			return false, err
		}
		if owner != holderID {
			s.rollback(ctx, tripID, holderID, acquired)
			return false, nil
		}
		if err := s.client.Expire(ctx, key, ttl).Err(); err != nil {
			s.rollback(ctx, tripID, holderID, acquired)
			return false, err
		}
	}

	return true, nil
}

// ReleaseSeats drops the holds owned by holderID. Holds owned by others are left alone.
func (s *SeatHoldStore) ReleaseSeats(ctx context.Context, tripID, holderID string, seatCodes []string) error {
	for _, code := range seatCodes {
		if err := releaseHold.Run(ctx, s.client, []string{seatHoldKey(tripID, code)}, holderID).Err(); err != nil {
			return err
		}
	}
	return nil
}

// Holders returns the current holder of each held seat. Free seats are omitted.
func (s *SeatHoldStore) Holders(ctx context.Context, tripID string, seatCodes []string) (map[string]string, error) {
	holders := make(map[string]string)
	if len(seatCodes) == 0 {
		return holders, nil
	}

	keys := make([]string, len(seatCodes))
	for i, code := range seatCodes {
		keys[i] = seatHoldKey(tripID, code)
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	for i, v := range values {
		if owner, ok := v.(string); ok && owner != "" {
			holders[seatCodes[i]] = owner
		}
	}
	return holders, nil
}

func (s *SeatHoldStore) rollback(ctx context.Context, tripID, holderID string, seatCodes []string) {
	if len(seatCodes) == 0 {
		return
	}
	if err := s.ReleaseSeats(ctx, tripID, holderID, seatCodes); err != nil {
		log.Printf("seat hold rollback failed trip=%s holder=%s err=%v", tripID, holderID, err)
	}
}

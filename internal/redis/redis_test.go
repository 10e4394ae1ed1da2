package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"airlink/internal/flow"
)

func newTestClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestSeatHoldStore_HoldIsExclusive(t *testing.T) {
	_, client := newTestClient(t)
	store := NewSeatHoldStore(client)
	ctx := context.Background()

	ok, err := store.HoldSeats(ctx, "trip-1", "session-a", []string{"12A", "12B"}, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.HoldSeats(ctx, "trip-1", "session-b", []string{"12B"}, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "seat held by another session")

	ok, err = store.HoldSeats(ctx, "trip-2", "session-b", []string{"12B"}, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "same seat on another trip is independent")
}

func TestSeatHoldStore_PartialFailureRollsBack(t *testing.T) {
	_, client := newTestClient(t)
	store := NewSeatHoldStore(client)
	ctx := context.Background()

	_, err := store.HoldSeats(ctx, "trip-1", "session-a", []string{"14C"}, time.Minute)
	require.NoError(t, err)

	ok, err := store.HoldSeats(ctx, "trip-1", "session-b", []string{"14A", "14B", "14C"}, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	holders, err := store.Holders(ctx, "trip-1", []string{"14A", "14B", "14C"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"14C": "session-a"}, holders)
}

func TestSeatHoldStore_Rehold(t *testing.T) {
	mr, client := newTestClient(t)
	store := NewSeatHoldStore(client)
	ctx := context.Background()

	_, err := store.HoldSeats(ctx, "trip-1", "session-a", []string{"9F"}, time.Minute)
	require.NoError(t, err)

	mr.FastForward(50 * time.Second)

	ok, err := store.HoldSeats(ctx, "trip-1", "session-a", []string{"9F"}, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	mr.FastForward(30 * time.Second)
	holders, err := store.Holders(ctx, "trip-1", []string{"9F"})
	require.NoError(t, err)
	assert.Equal(t, "session-a", holders["9F"], "hold should have been refreshed")
}

func TestSeatHoldStore_ReleaseOnlyOwnHolds(t *testing.T) {
	_, client := newTestClient(t)
	store := NewSeatHoldStore(client)
	ctx := context.Background()

	_, err := store.HoldSeats(ctx, "trip-1", "session-a", []string{"3A"}, time.Minute)
	require.NoError(t, err)

	require.NoError(t, store.ReleaseSeats(ctx, "trip-1", "session-b", []string{"3A"}))
	holders, err := store.Holders(ctx, "trip-1", []string{"3A"})
	require.NoError(t, err)
	assert.Equal(t, "session-a", holders["3A"])

	require.NoError(t, store.ReleaseSeats(ctx, "trip-1", "session-a", []string{"3A"}))
	holders, err = store.Holders(ctx, "trip-1", []string{"3A"})
	require.NoError(t, err)
	assert.Empty(t, holders)
}

func TestSeatHoldStore_HoldExpires(t *testing.T) {
	mr, client := newTestClient(t)
	store := NewSeatHoldStore(client)
	ctx := context.Background()

	_, err := store.HoldSeats(ctx, "trip-1", "session-a", []string{"22D"}, time.Minute)
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)

	ok, err := store.HoldSeats(ctx, "trip-1", "session-b", []string{"22D"}, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCacheStore_RoundTripAndMiss(t *testing.T) {
	mr, client := newTestClient(t)
	cache := NewCacheStore(client)
	ctx := context.Background()

	type fare struct {
		Name  string
		Price int64
	}

	var got []fare
	hit, err := cache.GetJSON(ctx, FareCacheKey("trip-1"), &got)
	require.NoError(t, err)
	assert.False(t, hit)

	want := []fare{{Name: "Standard", Price: 50000}}
	require.NoError(t, cache.SetJSON(ctx, FareCacheKey("trip-1"), want, FareCacheTTL))

	hit, err = cache.GetJSON(ctx, FareCacheKey("trip-1"), &got)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, want, got)

	mr.FastForward(FareCacheTTL + time.Second)
	hit, err = cache.GetJSON(ctx, FareCacheKey("trip-1"), &got)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestSearchCacheKey_IsCaseInsensitive(t *testing.T) {
	assert.Equal(t,
		SearchCacheKey("scl", "lim", "2025-11-18", "economy"),
		SearchCacheKey("SCL", "LIM", "2025-11-18", "ECONOMY"),
	)
}

func TestKVStore_BacksFlowStore(t *testing.T) {
	mr, client := newTestClient(t)
	store := flow.NewStore(NewKVStore(client), time.Hour)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "s1", flow.KeyPaymentOK, true))

	var ok bool
	require.True(t, store.Get(ctx, "s1", flow.KeyPaymentOK, &ok))
	assert.True(t, ok)

	require.NoError(t, store.Clear(ctx, "s1"))
	assert.False(t, mr.Exists("flow:s1:"+flow.KeyPaymentOK))
}

// Package flow persists the per-checkout state written by each purchase stage.
//
// Values are wrapped in an envelope {"v": value, "e": expiresAtMillis} so the
// expiry travels with the value regardless of the backend. A zero "e" never
// expires. Blobs written without the envelope are returned as-is.
package flow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"
)

// DefaultTTL is how long a stage's state survives without being rewritten.
const DefaultTTL = 2 * time.Hour

// Backend is the raw key/value store behind a Store.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

type envelope struct {
	V json.RawMessage `json:"v"`
	E int64           `json:"e"`
}

// Store reads and writes flow state for checkout sessions.
type Store struct {
	backend    Backend
	defaultTTL time.Duration
	now        func() time.Time
}

// NewStore creates a Store. A non-positive ttl falls back to DefaultTTL.
func NewStore(backend Backend, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{backend: backend, defaultTTL: ttl, now: time.Now}
}

// WithClock replaces the time source. Used to simulate expiry in tests.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// TTL returns the default time-to-live of written values.
func (s *Store) TTL() time.Duration {
	return s.defaultTTL
}

// Set stores value under key with the default TTL.
func (s *Store) Set(ctx context.Context, sessionID, key string, value any) error {
	return s.SetTTL(ctx, sessionID, key, value, s.defaultTTL)
}

// SetTTL stores value under key. A non-positive ttl means the value never expires.
func (s *Store) SetTTL(ctx context.Context, sessionID, key string, value any, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("flow: encode %s: %w", key, err)
	}

	env := envelope{V: raw}
	if ttl > 0 {
		env.E = s.now().Add(ttl).UnixMilli()
	} else {
		ttl = 0
	}

	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("flow: encode %s: %w", key, err)
	}

	if err := s.backend.Set(ctx, storageKey(sessionID, key), data, ttl); err != nil {
		log.Printf("flow: write failed session=%s key=%s err=%v", sessionID, key, err)
		return fmt.Errorf("flow: write %s: %w", key, err)
	}
	return nil
}

// Get decodes the value under key into dst and reports whether it was present.
// Expired values are deleted and reported as absent. Read failures are logged
// and reported as absent.
func (s *Store) Get(ctx context.Context, sessionID, key string, dst any) bool {
	fullKey := storageKey(sessionID, key)

	data, ok, err := s.backend.Get(ctx, fullKey)
	if err != nil {
		log.Printf("flow: read failed session=%s key=%s err=%v", sessionID, key, err)
		return false
	}
	if !ok {
		return false
	}

	value, expiresAt := unwrap(data)
	if expiresAt != 0 && s.now().UnixMilli() > expiresAt {
		if err := s.backend.Del(ctx, fullKey); err != nil {
			log.Printf("flow: delete expired failed session=%s key=%s err=%v", sessionID, key, err)
		}
		return false
	}

	if err := json.Unmarshal(value, dst); err != nil {
		log.Printf("flow: decode failed session=%s key=%s err=%v", sessionID, key, err)
		return false
	}
	return true
}

// Remove deletes a single key.
func (s *Store) Remove(ctx context.Context, sessionID, key string) error {
	if err := s.backend.Del(ctx, storageKey(sessionID, key)); err != nil {
		return fmt.Errorf("flow: remove %s: %w", key, err)
	}
	return nil
}

// Clear removes every well-known key of the session.
func (s *Store) Clear(ctx context.Context, sessionID string) error {
	keys := make([]string, len(WellKnownKeys))
	for i, k := range WellKnownKeys {
		keys[i] = storageKey(sessionID, k)
	}
	if err := s.backend.Del(ctx, keys...); err != nil {
		log.Printf("flow: clear failed session=%s err=%v", sessionID, err)
		return fmt.Errorf("flow: clear: %w", err)
	}
	return nil
}

// unwrap returns the payload and expiry of a stored blob.
func unwrap(data []byte) (json.RawMessage, int64) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return data, 0
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return data, 0
	}
	v, hasValue := fields["v"]
	if !hasValue {
		return data, 0
	}

	var expiresAt int64
	if e, ok := fields["e"]; ok {
		_ = json.Unmarshal(e, &expiresAt)
	}
	return v, expiresAt
}

func storageKey(sessionID, key string) string {
	return "flow:" + sessionID + ":" + key
}

// Package events publishes checkout domain events to the message broker.
package events

import (
	"context"
	"time"
)

// Routing keys of published events.
const (
	ReservationCreated = "reservation.created"
	PaymentConfirmed   = "payment.confirmed"
	PaymentCancelled   = "payment.cancelled"
)

// Event is the envelope of every published message.
type Event struct {
	ID              string         `json:"id"`
	Type            string         `json:"type"`
	ReservationID   string         `json:"reservation_id"`
	ReservationCode string         `json:"reservation_code"`
	Email           string         `json:"email,omitempty"`
	Total           int64          `json:"total"`
	Currency        string         `json:"currency"`
	Processor       string         `json:"processor,omitempty"`
	Data            map[string]any `json:"data,omitempty"`
	OccurredAt      time.Time      `json:"occurred_at"`
}

// Publisher sends events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

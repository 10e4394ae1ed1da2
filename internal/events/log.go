package events

import (
	"context"
	"log"
)

// LogPublisher writes events to the log. Used when no broker is configured.
type LogPublisher struct{}

// NewLogPublisher creates a LogPublisher.
func NewLogPublisher() *LogPublisher {
	return &LogPublisher{}
}

func (p *LogPublisher) Publish(ctx context.Context, event Event) error {
	log.Printf("[EVENT] type=%s reservation=%s total=%d %s", event.Type, event.ReservationCode, event.Total, event.Currency)
	return nil
}

func (p *LogPublisher) Close() error { return nil }

package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"airlink/internal/domain"
	"airlink/internal/events"
)

// Notification represents a customer-facing message about a reservation.
type Notification struct {
	Type      string
	Recipient string
	Title     string
	Message   string
	Event     events.Event
}

// NotificationService publishes reservation events for downstream delivery
// (confirmation emails, back-office dashboards).
type NotificationService struct {
	publisher events.Publisher
}

// NewNotificationService creates a new NotificationService. A nil publisher logs events.
func NewNotificationService(publisher events.Publisher) *NotificationService {
	if publisher == nil {
		publisher = events.NewLogPublisher()
	}
	return &NotificationService{publisher: publisher}
}

// NotifyReservationCreated announces a reservation waiting for payment.
func (s *NotificationService) NotifyReservationCreated(ctx context.Context, res *domain.Reservation, processor domain.Processor, redirectURL string) error {
	event := newEvent(events.ReservationCreated, res)
	event.Processor = string(processor)
	event.Data = map[string]any{
		"redirect_url": redirectURL,
		"passengers":   res.Passengers,
		"discount":     res.Discount,
	}

	return s.send(ctx, Notification{
		Type:      events.ReservationCreated,
		Recipient: res.Passenger.Email,
		Title:     "Reservation Created",
		Message:   fmt.Sprintf("Reservation %s is waiting for payment of %d %s", res.Code, res.Total, res.Currency),
		Event:     event,
	})
}

// NotifyPaymentConfirmed announces a paid reservation with its receipt.
func (s *NotificationService) NotifyPaymentConfirmed(ctx context.Context, res *domain.Reservation, receipt *domain.Receipt, receiptText string) error {
	event := newEvent(events.PaymentConfirmed, res)
	if receipt != nil {
		event.Processor = string(receipt.Processor)
	}
	event.Data = map[string]any{
		"receipt": receiptText,
	}

	return s.send(ctx, Notification{
		Type:      events.PaymentConfirmed,
		Recipient: res.Passenger.Email,
		Title:     "Payment Confirmed",
		Message:   fmt.Sprintf("Payment of %d %s for reservation %s was confirmed", res.Total, res.Currency, res.Code),
		Event:     event,
	})
}

// NotifyPaymentCancelled announces a reservation whose payment did not go through.
func (s *NotificationService) NotifyPaymentCancelled(ctx context.Context, res *domain.Reservation) error {
	event := newEvent(events.PaymentCancelled, res)
	if res.Payment != nil {
		event.Processor = string(res.Payment.Processor)
	}

	return s.send(ctx, Notification{
		Type:      events.PaymentCancelled,
		Recipient: res.Passenger.Email,
		Title:     "Payment Cancelled",
		Message:   fmt.Sprintf("Payment for reservation %s was cancelled. Seats have been released.", res.Code),
		Event:     event,
	})
}

func newEvent(eventType string, res *domain.Reservation) events.Event {
	return events.Event{
		ID:              uuid.New().String(),
		Type:            eventType,
		ReservationID:   res.ID,
		ReservationCode: res.Code,
		Email:           res.Passenger.Email,
		Total:           res.Total,
		Currency:        res.Currency,
		OccurredAt:      time.Now().UTC(),
	}
}

// send logs the notification and publishes its event.
func (s *NotificationService) send(ctx context.Context, n Notification) error {
	log.Printf("[NOTIFICATION] Type=%s, Recipient=%s, Title=%s, Message=%s",
		n.Type, n.Recipient, n.Title, n.Message)

	if err := s.publisher.Publish(ctx, n.Event); err != nil {
		log.Printf("[NOTIFICATION] publish failed type=%s reservation=%s err=%v", n.Type, n.Event.ReservationCode, err)
		return err
	}
	return nil
}

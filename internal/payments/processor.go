// Package payments holds the clients of the external payment gateways.
//
// Every gateway turns a reservation into a hosted checkout page and later
// reports the outcome through a webhook.
package payments

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"airlink/internal/domain"
)

// ErrGateway is wrapped by every error caused by a gateway response.
var ErrGateway = errors.New("payment gateway error")

// ErrInvalidWebhook is returned for webhook payloads that cannot be trusted or parsed.
var ErrInvalidWebhook = errors.New("invalid webhook payload")

// Item is a positive line of the checkout.
type Item struct {
	Title     string
	Quantity  int
	UnitPrice int64
}

// CheckoutRequest describes what the customer is about to pay.
type CheckoutRequest struct {
	ReservationID   string
	ReservationCode string
	PaymentID       string
	Email           string
	Items           []Item
	Discount        int64
	Total           int64
	Currency        string
	SuccessURL      string
	CancelURL       string
	NotifyURL       string
}

// CheckoutResult is the hosted checkout created by the gateway.
type CheckoutResult struct {
	ExternalID  string
	RedirectURL string
}

// Outcome is the result reported by a webhook.
type Outcome string

const (
	OutcomeConfirmed Outcome = "confirmed"
	OutcomeCancelled Outcome = "cancelled"
	OutcomeIgnored   Outcome = "ignored"
)

// WebhookEvent is a gateway notification normalized across processors.
// CheckoutID is the id CreateCheckout returned for the reservation; it is empty
// when the processor looked the payment up through its own API instead.
type WebhookEvent struct {
	ReservationCode string
	CheckoutID      string
	ExternalID      string
	Outcome         Outcome
}

// Processor is a payment gateway.
type Processor interface {
	Name() domain.Processor
	CreateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutResult, error)
	ParseWebhook(ctx context.Context, payload []byte, header http.Header) (*WebhookEvent, error)
}

// Registry maps processor names to their clients.
type Registry map[domain.Processor]Processor

// NewRegistry builds a registry from the given processors.
func NewRegistry(processors ...Processor) Registry {
	r := make(Registry, len(processors))
	for _, p := range processors {
		r[p.Name()] = p
	}
	return r
}

// Get returns the processor registered under name.
func (r Registry) Get(name domain.Processor) (Processor, bool) {
	p, ok := r[name]
	return p, ok
}

func gatewayError(processor domain.Processor, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", ErrGateway, processor, fmt.Sprintf(format, args...))
}

package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"airlink/internal/domain"
)

// MockPSP is a gateway stand-in for local development. Checkouts always succeed
// and redirect straight to the success page.
type MockPSP struct{}

// NewMockPSP creates a new mock PSP.
func NewMockPSP() *MockPSP {
	return &MockPSP{}
}

func (p *MockPSP) Name() domain.Processor { return domain.ProcessorMock }

// CreateCheckout returns the success URL tagged with the reservation code.
func (p *MockPSP) CreateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutResult, error) {
	u, err := url.Parse(req.SuccessURL)
	if err != nil {
		return nil, gatewayError(p.Name(), "bad success url: %v", err)
	}
	q := u.Query()
	q.Set("mock", "1")
	u.RawQuery = q.Encode()

	return &CheckoutResult{ExternalID: "mock_" + req.PaymentID, RedirectURL: u.String()}, nil
}

// ParseWebhook accepts {"reservation_code": "...", "status": "approved|rejected"}
// with an optional "checkout_id". The body is not authenticated, so the mock
// must only be registered in development.
func (p *MockPSP) ParseWebhook(ctx context.Context, payload []byte, header http.Header) (*WebhookEvent, error) {
	var body struct {
		ReservationCode string `json:"reservation_code"`
		CheckoutID      string `json:"checkout_id"`
		Status          string `json:"status"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWebhook, err)
	}

	out := &WebhookEvent{ReservationCode: body.ReservationCode, CheckoutID: body.CheckoutID, ExternalID: body.CheckoutID, Outcome: OutcomeIgnored}
	switch body.Status {
	case "approved":
		out.Outcome = OutcomeConfirmed
	case "rejected", "cancelled":
		out.Outcome = OutcomeCancelled
	}
	return out, nil
}

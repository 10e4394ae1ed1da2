package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cast"

	"airlink/internal/domain"
)

// MercadoPago creates Checkout Pro preferences.
type MercadoPago struct {
	client      *http.Client
	baseURL     string
	accessToken string
}

// NewMercadoPago creates a MercadoPago client.
func NewMercadoPago(client *http.Client, baseURL, accessToken string) *MercadoPago {
	return &MercadoPago{client: client, baseURL: strings.TrimRight(baseURL, "/"), accessToken: accessToken}
}

func (m *MercadoPago) Name() domain.Processor { return domain.ProcessorMercadoPago }

type mpItem struct {
	Title      string `json:"title"`
	Quantity   int    `json:"quantity"`
	UnitPrice  int64  `json:"unit_price"`
	CurrencyID string `json:"currency_id"`
}

type mpPreference struct {
	Items             []mpItem          `json:"items"`
	Payer             map[string]string `json:"payer,omitempty"`
	BackURLs          map[string]string `json:"back_urls"`
	AutoReturn        string            `json:"auto_return"`
	ExternalReference string            `json:"external_reference"`
	NotificationURL   string            `json:"notification_url,omitempty"`
	Metadata          map[string]string `json:"metadata,omitempty"`
}

func (m *MercadoPago) headers() map[string]any {
	return map[string]any{"Authorization": "Bearer " + m.accessToken}
}

// CreateCheckout creates a preference. The discount travels as a negative item.
func (m *MercadoPago) CreateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutResult, error) {
	pref := mpPreference{
		BackURLs: map[string]string{
			"success": req.SuccessURL,
			"failure": req.CancelURL,
			"pending": req.SuccessURL,
		},
		AutoReturn:        "approved",
		ExternalReference: req.ReservationCode,
		NotificationURL:   req.NotifyURL,
		Metadata:          map[string]string{"reservation_id": req.ReservationID, "payment_id": req.PaymentID},
	}
	if req.Email != "" {
		pref.Payer = map[string]string{"email": req.Email}
	}
	for _, item := range req.Items {
		pref.Items = append(pref.Items, mpItem{Title: item.Title, Quantity: item.Quantity, UnitPrice: item.UnitPrice, CurrencyID: req.Currency})
	}
	if req.Discount > 0 {
		pref.Items = append(pref.Items, mpItem{Title: "Descuento", Quantity: 1, UnitPrice: -req.Discount, CurrencyID: req.Currency})
	}

	var resp struct {
		ID        string `json:"id"`
		InitPoint string `json:"init_point"`
	}
	if err := doJSON(ctx, m.client, http.MethodPost, m.baseURL+"/checkout/preferences", pref, m.headers(), &resp); err != nil {
		return nil, wrapTransport("mercadopago", err)
	}
	if resp.InitPoint == "" {
		return nil, gatewayError(m.Name(), "preference %s has no init_point", resp.ID)
	}

	return &CheckoutResult{ExternalID: resp.ID, RedirectURL: resp.InitPoint}, nil
}

// ParseWebhook reads a payment notification and fetches the payment to learn its status.
// Notification bodies are not signed, so the status always comes from the API.
// The API payment carries no preference id, so the event has no CheckoutID.
func (m *MercadoPago) ParseWebhook(ctx context.Context, payload []byte, header http.Header) (*WebhookEvent, error) {
	var note map[string]any
	if err := json.Unmarshal(payload, &note); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWebhook, err)
	}

	kind := cast.ToString(note["type"])
	if kind == "" {
		kind = cast.ToString(note["topic"])
	}
	if kind != "payment" {
		return &WebhookEvent{Outcome: OutcomeIgnored}, nil
	}

	data, _ := note["data"].(map[string]any)
	paymentID := cast.ToString(data["id"])
	if paymentID == "" {
		return nil, fmt.Errorf("%w: missing payment id", ErrInvalidWebhook)
	}

	var payment struct {
		ID                any    `json:"id"`
		Status            string `json:"status"`
		ExternalReference string `json:"external_reference"`
	}
	if err := doJSON(ctx, m.client, http.MethodGet, m.baseURL+"/v1/payments/"+paymentID, nil, m.headers(), &payment); err != nil {
		return nil, wrapTransport("mercadopago", err)
	}

	out := &WebhookEvent{ReservationCode: payment.ExternalReference, ExternalID: cast.ToString(payment.ID), Outcome: OutcomeIgnored}
	switch payment.Status {
	case "approved":
		out.Outcome = OutcomeConfirmed
	case "rejected", "cancelled", "refunded", "charged_back":
		out.Outcome = OutcomeCancelled
	}
	return out, nil
}

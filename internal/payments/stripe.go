package payments

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"airlink/internal/domain"
)

// stripeSignatureTolerance is how old a signed webhook may be.
const stripeSignatureTolerance = 5 * time.Minute

// Stripe creates Stripe Checkout sessions.
type Stripe struct {
	client        *http.Client
	baseURL       string
	secretKey     string
	webhookSecret string
	now           func() time.Time
}

// NewStripe creates a Stripe client. An empty webhookSecret disables signature checks.
func NewStripe(client *http.Client, baseURL, secretKey, webhookSecret string) *Stripe {
	return &Stripe{
		client:        client,
		baseURL:       strings.TrimRight(baseURL, "/"),
		secretKey:     secretKey,
		webhookSecret: webhookSecret,
		now:           time.Now,
	}
}

func (s *Stripe) Name() domain.Processor { return domain.ProcessorStripe }

type stripeSession struct {
	ID                string            `json:"id"`
	URL               string            `json:"url"`
	ClientReferenceID string            `json:"client_reference_id"`
	PaymentStatus     string            `json:"payment_status"`
	Metadata          map[string]string `json:"metadata"`
}

// CreateCheckout creates a Checkout Session. CLP is zero-decimal so amounts are sent as-is.
// Stripe rejects negative line items, so a discounted checkout is sent as a single
// line carrying the final total.
func (s *Stripe) CreateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutResult, error) {
	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("success_url", req.SuccessURL)
	form.Set("cancel_url", req.CancelURL)
	form.Set("client_reference_id", req.ReservationCode)
	form.Set("metadata[reservation_id]", req.ReservationID)
	form.Set("metadata[payment_id]", req.PaymentID)
	if req.Email != "" {
		form.Set("customer_email", req.Email)
	}

	items := req.Items
	if req.Discount > 0 {
		items = []Item{{Title: "Reserva " + req.ReservationCode, Quantity: 1, UnitPrice: req.Total}}
	}
	currency := strings.ToLower(req.Currency)
	for i, item := range items {
		prefix := fmt.Sprintf("line_items[%d]", i)
		form.Set(prefix+"[price_data][currency]", currency)
		form.Set(prefix+"[price_data][product_data][name]", item.Title)
		form.Set(prefix+"[price_data][unit_amount]", strconv.FormatInt(item.UnitPrice, 10))
		form.Set(prefix+"[quantity]", strconv.Itoa(item.Quantity))
	}

	body, err := doRequest(ctx, s.client, http.MethodPost, s.baseURL+"/v1/checkout/sessions",
		strings.NewReader(form.Encode()),
		map[string]any{
			"Authorization":   "Bearer " + s.secretKey,
			"Content-Type":    "application/x-www-form-urlencoded",
			"Idempotency-Key": req.PaymentID,
		},
	)
	if err != nil {
		return nil, wrapTransport("stripe", err)
	}

	var session stripeSession
	if err := json.Unmarshal(body, &session); err != nil {
		return nil, gatewayError(s.Name(), "decode session: %v", err)
	}
	if session.URL == "" {
		return nil, gatewayError(s.Name(), "session %s has no url", session.ID)
	}

	return &CheckoutResult{ExternalID: session.ID, RedirectURL: session.URL}, nil
}

type stripeEvent struct {
	Type string `json:"type"`
	Data struct {
		Object stripeSession `json:"object"`
	} `json:"data"`
}

// ParseWebhook verifies the Stripe-Signature header and maps session events.
// Without a webhook secret no event is accepted.
func (s *Stripe) ParseWebhook(ctx context.Context, payload []byte, header http.Header) (*WebhookEvent, error) {
	if s.webhookSecret == "" {
		return nil, fmt.Errorf("%w: stripe webhook secret not configured", ErrInvalidWebhook)
	}
	if err := s.verifySignature(payload, header.Get("Stripe-Signature")); err != nil {
		return nil, err
	}

	var event stripeEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWebhook, err)
	}

	obj := event.Data.Object
	out := &WebhookEvent{ReservationCode: obj.ClientReferenceID, CheckoutID: obj.ID, ExternalID: obj.ID, Outcome: OutcomeIgnored}

	switch event.Type {
	case "checkout.session.completed", "checkout.session.async_payment_succeeded":
		if obj.PaymentStatus == "paid" || event.Type == "checkout.session.async_payment_succeeded" {
			out.Outcome = OutcomeConfirmed
		}
	case "checkout.session.expired", "checkout.session.async_payment_failed":
		out.Outcome = OutcomeCancelled
	}

	return out, nil
}

// verifySignature checks a "t=<unix>,v1=<hex>" header against HMAC-SHA256("<t>.<payload>").
func (s *Stripe) verifySignature(payload []byte, header string) error {
	var timestamp string
	var signatures []string
	for _, part := range strings.Split(header, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "t":
			timestamp = kv[1]
		case "v1":
			signatures = append(signatures, kv[1])
		}
	}
	if timestamp == "" || len(signatures) == 0 {
		return fmt.Errorf("%w: missing stripe signature", ErrInvalidWebhook)
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: bad signature timestamp", ErrInvalidWebhook)
	}
	if s.now().Sub(time.Unix(ts, 0)) > stripeSignatureTolerance {
		return fmt.Errorf("%w: signature too old", ErrInvalidWebhook)
	}

	mac := hmac.New(sha256.New, []byte(s.webhookSecret))
	mac.Write([]byte(timestamp + "."))
	mac.Write(payload)
	expected := mac.Sum(nil)

	for _, sig := range signatures {
		got, err := hex.DecodeString(sig)
		if err == nil && hmac.Equal(got, expected) {
			return nil
		}
	}
	return fmt.Errorf("%w: signature mismatch", ErrInvalidWebhook)
}

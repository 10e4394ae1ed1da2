package payments

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"airlink/internal/domain"
)

// PayPal creates PayPal orders. PayPal does not settle CLP, so totals are
// converted to USD at a fixed rate.
type PayPal struct {
	client       *http.Client
	baseURL      string
	clientID     string
	clientSecret string
	clpPerUSD    int64
}

// NewPayPal creates a PayPal client.
func NewPayPal(client *http.Client, baseURL, clientID, clientSecret string, clpPerUSD int64) *PayPal {
	if clpPerUSD <= 0 {
		clpPerUSD = 900
	}
	return &PayPal{
		client:       client,
		baseURL:      strings.TrimRight(baseURL, "/"),
		clientID:     clientID,
		clientSecret: clientSecret,
		clpPerUSD:    clpPerUSD,
	}
}

func (p *PayPal) Name() domain.Processor { return domain.ProcessorPayPal }

// ToUSD converts a CLP amount to a USD string with two decimals, never below 0.01.
func (p *PayPal) ToUSD(clp int64) string {
	cents := (clp*100 + p.clpPerUSD/2) / p.clpPerUSD
	if cents < 1 {
		cents = 1
	}
	return fmt.Sprintf("%d.%02d", cents/100, cents%100)
}

func (p *PayPal) accessToken(ctx context.Context) (string, error) {
	basic := base64.StdEncoding.EncodeToString([]byte(p.clientID + ":" + p.clientSecret))
	body, err := doRequest(ctx, p.client, http.MethodPost, p.baseURL+"/v1/oauth2/token",
		strings.NewReader(url.Values{"grant_type": {"client_credentials"}}.Encode()),
		map[string]any{
			"Authorization": "Basic " + basic,
			"Content-Type":  "application/x-www-form-urlencoded",
		},
	)
	if err != nil {
		return "", wrapTransport("paypal", err)
	}

	var token struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(body, &token); err != nil || token.AccessToken == "" {
		return "", gatewayError(p.Name(), "no access token")
	}
	return token.AccessToken, nil
}

type paypalLink struct {
	Href string `json:"href"`
	Rel  string `json:"rel"`
}

type paypalOrder struct {
	ID            string       `json:"id"`
	Status        string       `json:"status"`
	Links         []paypalLink `json:"links"`
	PurchaseUnits []struct {
		ReferenceID string `json:"reference_id"`
		CustomID    string `json:"custom_id"`
	} `json:"purchase_units"`
}

// CreateCheckout creates an order and returns its approval link.
func (p *PayPal) CreateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutResult, error) {
	token, err := p.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	order := map[string]any{
		"intent": "CAPTURE",
		"purchase_units": []map[string]any{{
			"reference_id": req.ReservationCode,
			"custom_id":    req.ReservationID,
			"description":  "Reserva " + req.ReservationCode,
			"amount": map[string]string{
				"currency_code": "USD",
				"value":         p.ToUSD(req.Total),
			},
		}},
		"application_context": map[string]string{
			"return_url":  req.SuccessURL,
			"cancel_url":  req.CancelURL,
			"user_action": "PAY_NOW",
		},
	}

	var resp paypalOrder
	err = doJSON(ctx, p.client, http.MethodPost, p.baseURL+"/v2/checkout/orders", order,
		map[string]any{"Authorization": "Bearer " + token, "PayPal-Request-Id": req.PaymentID}, &resp)
	if err != nil {
		return nil, wrapTransport("paypal", err)
	}

	for _, link := range resp.Links {
		if link.Rel == "approve" || link.Rel == "payer-action" {
			return &CheckoutResult{ExternalID: resp.ID, RedirectURL: link.Href}, nil
		}
	}
	return nil, gatewayError(p.Name(), "order %s has no approval link", resp.ID)
}

// ParseWebhook handles order approval by capturing the order, and maps voided or
// denied payments to cancellation.
func (p *PayPal) ParseWebhook(ctx context.Context, payload []byte, header http.Header) (*WebhookEvent, error) {
	var event struct {
		EventType string      `json:"event_type"`
		Resource  paypalOrder `json:"resource"`
	}
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWebhook, err)
	}

	order := event.Resource
	out := &WebhookEvent{CheckoutID: order.ID, ExternalID: order.ID, Outcome: OutcomeIgnored}
	if len(order.PurchaseUnits) > 0 {
		out.ReservationCode = order.PurchaseUnits[0].ReferenceID
	}

	switch event.EventType {
	case "CHECKOUT.ORDER.APPROVED":
		captured, err := p.capture(ctx, order.ID)
		if err != nil {
			return nil, err
		}
		if captured.Status == "COMPLETED" {
			out.Outcome = OutcomeConfirmed
		}
	case "CHECKOUT.ORDER.VOIDED", "PAYMENT.CAPTURE.DENIED":
		out.Outcome = OutcomeCancelled
	}
	return out, nil
}

func (p *PayPal) capture(ctx context.Context, orderID string) (*paypalOrder, error) {
	token, err := p.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	var resp paypalOrder
	err = doJSON(ctx, p.client, http.MethodPost, p.baseURL+"/v2/checkout/orders/"+orderID+"/capture", struct{}{},
		map[string]any{"Authorization": "Bearer " + token, "PayPal-Request-Id": "capture-" + orderID}, &resp)
	if err != nil {
		return nil, wrapTransport("paypal", err)
	}
	return &resp, nil
}

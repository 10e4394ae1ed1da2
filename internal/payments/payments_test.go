package payments

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"airlink/internal/domain"
)

func sampleRequest() CheckoutRequest {
	return CheckoutRequest{
		ReservationID:   "res-1",
		ReservationCode: "RES251118AB12",
		PaymentID:       "pay-1",
		Email:           "ana@example.com",
		Items: []Item{
			{Title: "LA100 SCL-LIM Standard", Quantity: 1, UnitPrice: 50000},
			{Title: "Asientos 12A", Quantity: 1, UnitPrice: 8000},
		},
		Total:      58000,
		Currency:   "CLP",
		SuccessURL: "http://localhost:5173/pago/exito?code=RES251118AB12",
		CancelURL:  "http://localhost:5173/pago/cancelado?code=RES251118AB12",
		NotifyURL:  "http://api.local/v1/payments/webhooks/mercadopago",
	}
}

func TestStripe_CreateCheckoutSendsLineItems(t *testing.T) {
	var form url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/checkout/sessions", r.URL.Path)
		assert.Equal(t, "Bearer sk_test", r.Header.Get("Authorization"))
		assert.Equal(t, "pay-1", r.Header.Get("Idempotency-Key"))
		require.NoError(t, r.ParseForm())
		form = r.PostForm
		_, _ = w.Write([]byte(`{"id":"cs_123","url":"https://checkout.stripe.com/c/cs_123"}`))
	}))
	defer srv.Close()

	stripe := NewStripe(srv.Client(), srv.URL, "sk_test", "")
	res, err := stripe.CreateCheckout(context.Background(), sampleRequest())

	require.NoError(t, err)
	assert.Equal(t, "cs_123", res.ExternalID)
	assert.Equal(t, "https://checkout.stripe.com/c/cs_123", res.RedirectURL)
	assert.Equal(t, "clp", form.Get("line_items[0][price_data][currency]"))
	assert.Equal(t, "50000", form.Get("line_items[0][price_data][unit_amount]"))
	assert.Equal(t, "8000", form.Get("line_items[1][price_data][unit_amount]"))
	assert.Equal(t, "RES251118AB12", form.Get("client_reference_id"))
}

func TestStripe_DiscountCollapsesToTotal(t *testing.T) {
	var form url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		form = r.PostForm
		_, _ = w.Write([]byte(`{"id":"cs_1","url":"https://checkout.stripe.com/c/cs_1"}`))
	}))
	defer srv.Close()

	req := sampleRequest()
	req.Discount = 5800
	req.Total = 52200

	_, err := NewStripe(srv.Client(), srv.URL, "sk", "").CreateCheckout(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "52200", form.Get("line_items[0][price_data][unit_amount]"))
	assert.Empty(t, form.Get("line_items[1][price_data][unit_amount]"))
}

func TestStripe_ErrorSurfacesGatewayMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"Invalid currency: clpx"}}`))
	}))
	defer srv.Close()

	_, err := NewStripe(srv.Client(), srv.URL, "sk", "").CreateCheckout(context.Background(), sampleRequest())

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrGateway)
	assert.Contains(t, err.Error(), "Invalid currency: clpx")
}

func signStripe(secret string, ts int64, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(ts, 10) + "."))
	mac.Write(payload)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func TestStripe_WebhookSignature(t *testing.T) {
	now := time.Date(2025, 11, 18, 12, 0, 0, 0, time.UTC)
	stripe := NewStripe(http.DefaultClient, "http://unused", "sk", "whsec_test")
	stripe.now = func() time.Time { return now }

	payload := []byte(`{"type":"checkout.session.completed","data":{"object":{"id":"cs_1","client_reference_id":"RES251118AB12","payment_status":"paid"}}}`)

	header := http.Header{}
	header.Set("Stripe-Signature", signStripe("whsec_test", now.Unix(), payload))
	event, err := stripe.ParseWebhook(context.Background(), payload, header)
	require.NoError(t, err)
	assert.Equal(t, OutcomeConfirmed, event.Outcome)
	assert.Equal(t, "RES251118AB12", event.ReservationCode)
	assert.Equal(t, "cs_1", event.CheckoutID)

	header.Set("Stripe-Signature", signStripe("wrong", now.Unix(), payload))
	_, err = stripe.ParseWebhook(context.Background(), payload, header)
	assert.ErrorIs(t, err, ErrInvalidWebhook)

	header.Set("Stripe-Signature", signStripe("whsec_test", now.Add(-time.Hour).Unix(), payload))
	_, err = stripe.ParseWebhook(context.Background(), payload, header)
	assert.ErrorIs(t, err, ErrInvalidWebhook)
}

func TestStripe_WebhookWithoutSecret_Rejected(t *testing.T) {
	stripe := NewStripe(http.DefaultClient, "http://unused", "sk", "")
	payload := []byte(`{"type":"checkout.session.completed","data":{"object":{"id":"cs_1","client_reference_id":"RES251118AB12","payment_status":"paid"}}}`)

	_, err := stripe.ParseWebhook(context.Background(), payload, http.Header{})
	assert.ErrorIs(t, err, ErrInvalidWebhook)
}

func TestMercadoPago_DiscountIsNegativeItem(t *testing.T) {
	var pref mpPreference
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/checkout/preferences", r.URL.Path)
		assert.Equal(t, "Bearer mp_token", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &pref))
		_, _ = w.Write([]byte(`{"id":"pref-1","init_point":"https://mercadopago.cl/checkout?pref=pref-1"}`))
	}))
	defer srv.Close()

	req := sampleRequest()
	req.Discount = 5800
	req.Total = 52200

	res, err := NewMercadoPago(srv.Client(), srv.URL, "mp_token").CreateCheckout(context.Background(), req)

	require.NoError(t, err)
	assert.Equal(t, "https://mercadopago.cl/checkout?pref=pref-1", res.RedirectURL)
	require.Len(t, pref.Items, 3)
	assert.Equal(t, int64(-5800), pref.Items[2].UnitPrice)
	assert.Equal(t, "RES251118AB12", pref.ExternalReference)

	var sum int64
	for _, it := range pref.Items {
		sum += it.UnitPrice * int64(it.Quantity)
	}
	assert.Equal(t, req.Total, sum)
}

func TestMercadoPago_WebhookFetchesPaymentStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/payments/987", r.URL.Path)
		_, _ = w.Write([]byte(`{"id":987,"status":"approved","external_reference":"RES251118AB12"}`))
	}))
	defer srv.Close()

	mp := NewMercadoPago(srv.Client(), srv.URL, "mp_token")
	event, err := mp.ParseWebhook(context.Background(), []byte(`{"type":"payment","data":{"id":"987"}}`), http.Header{})

	require.NoError(t, err)
	assert.Equal(t, OutcomeConfirmed, event.Outcome)
	assert.Equal(t, "RES251118AB12", event.ReservationCode)
	assert.Equal(t, "987", event.ExternalID)
	assert.Empty(t, event.CheckoutID)

	event, err = mp.ParseWebhook(context.Background(), []byte(`{"type":"merchant_order","data":{"id":"1"}}`), http.Header{})
	require.NoError(t, err)
	assert.Equal(t, OutcomeIgnored, event.Outcome)
}

func TestPayPal_CreateCheckoutConvertsToUSD(t *testing.T) {
	var order map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/oauth2/token":
			user, pass, ok := r.BasicAuth()
			assert.True(t, ok)
			assert.Equal(t, "client", user)
			assert.Equal(t, "secret", pass)
			_, _ = w.Write([]byte(`{"access_token":"A21"}`))
		case "/v2/checkout/orders":
			assert.Equal(t, "Bearer A21", r.Header.Get("Authorization"))
			body, _ := io.ReadAll(r.Body)
			require.NoError(t, json.Unmarshal(body, &order))
			_, _ = w.Write([]byte(`{"id":"ORDER-1","status":"CREATED","links":[{"rel":"self","href":"x"},{"rel":"approve","href":"https://paypal.com/approve?token=ORDER-1"}]}`))
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	req := sampleRequest()
	req.Total = 90000

	res, err := NewPayPal(srv.Client(), srv.URL, "client", "secret", 900).CreateCheckout(context.Background(), req)

	require.NoError(t, err)
	assert.Equal(t, "https://paypal.com/approve?token=ORDER-1", res.RedirectURL)
	unit := order["purchase_units"].([]any)[0].(map[string]any)
	amount := unit["amount"].(map[string]any)
	assert.Equal(t, "USD", amount["currency_code"])
	assert.Equal(t, "100.00", amount["value"])
}

func TestPayPal_ToUSD(t *testing.T) {
	p := NewPayPal(http.DefaultClient, "", "", "", 900)
	assert.Equal(t, "64.44", p.ToUSD(58000))
	assert.Equal(t, "0.01", p.ToUSD(1))
	assert.Equal(t, "105.56", p.ToUSD(95000))
}

func TestMockPSP_RedirectsToSuccess(t *testing.T) {
	psp := NewMockPSP()
	res, err := psp.CreateCheckout(context.Background(), sampleRequest())
	require.NoError(t, err)
	assert.Contains(t, res.RedirectURL, "mock=1")
	assert.Contains(t, res.RedirectURL, "code=RES251118AB12")

	event, err := psp.ParseWebhook(context.Background(), []byte(`{"reservation_code":"RES251118AB12","status":"approved"}`), nil)
	require.NoError(t, err)
	assert.Equal(t, OutcomeConfirmed, event.Outcome)
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry(NewMockPSP(), NewStripe(http.DefaultClient, "", "", ""))
	_, ok := reg.Get(domain.ProcessorStripe)
	assert.True(t, ok)
	_, ok = reg.Get(domain.ProcessorPayPal)
	assert.False(t, ok)
}

package tests

import (
	"context"
	"errors"
	"strings"
	"testing"

	"airlink/internal/domain"
	"airlink/internal/payments"
	"airlink/internal/service"
)

// ──────────────────────────────────────────────
// 1. END-TO-END PURCHASE SCENARIOS
// ──────────────────────────────────────────────

func TestCheckout_OneWayWithStandardSeat_Totals58000(t *testing.T) {
	t.Parallel()
	env := newCheckoutEnv(t)
	ctx := context.Background()

	session := env.startOneWay(t, 1)
	env.selectLeg(t, session.ID, domain.DirectionOutbound)
	sel := env.selectSeats(t, session.ID, domain.DirectionOutbound, domain.SeatModeManual, "12A")

	if sel.Seats[0].Tier != domain.SeatTierStandard || sel.Seats[0].Price != 8000 {
		t.Fatalf("expected standard seat at 8000, got %s at %d", sel.Seats[0].Tier, sel.Seats[0].Price)
	}

	if _, err := env.bus.Skip(ctx, session.ID); err != nil {
		t.Fatalf("skip bus: %v", err)
	}
	env.savePassenger(t, session.ID)

	result, err := env.payment.Submit(ctx, service.SubmitPaymentRequest{
		SessionID: session.ID,
		Processor: domain.ProcessorStripe,
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	if result.Reservation.Total != 58000 {
		t.Errorf("expected total 58000, got %d", result.Reservation.Total)
	}
	if result.Reservation.Status != domain.ReservationStatusPending {
		t.Errorf("expected PENDING reservation, got %s", result.Reservation.Status)
	}
	if !strings.HasPrefix(result.Reservation.Code, "RES") {
		t.Errorf("unexpected reservation code %q", result.Reservation.Code)
	}
	if result.RedirectURL == "" {
		t.Error("expected a redirect URL")
	}

	req := env.processor.LastRequest()
	if req == nil {
		t.Fatal("expected gateway to be called")
	}
	if req.Total != 58000 {
		t.Errorf("expected gateway total 58000, got %d", req.Total)
	}
	if req.NotifyURL != "https://api.airlink.example/v1/payments/webhooks/stripe" {
		t.Errorf("unexpected notify URL %q", req.NotifyURL)
	}
	if !strings.HasPrefix(req.SuccessURL, "https://airlink.example/pago/exito?code=") {
		t.Errorf("unexpected success URL %q", req.SuccessURL)
	}
}

func TestCheckout_RoundTripWithRandomSeats_Totals95000(t *testing.T) {
	t.Parallel()
	env := newCheckoutEnv(t)
	ctx := context.Background()

	session := env.startRoundTrip(t, 1)
	env.selectLeg(t, session.ID, domain.DirectionOutbound)
	env.selectLeg(t, session.ID, domain.DirectionReturn)

	out := env.selectSeats(t, session.ID, domain.DirectionOutbound, domain.SeatModeRandom)
	ret := env.selectSeats(t, session.ID, domain.DirectionReturn, domain.SeatModeRandom)

	for _, sel := range []*domain.SeatSelection{out, ret} {
		if len(sel.Seats) != 1 {
			t.Fatalf("expected one seat per leg, got %d", len(sel.Seats))
		}
		if sel.Seats[0].Price != 0 || sel.Seats[0].Tier != domain.SeatTierStandard {
			t.Errorf("random seat must be a free standard seat, got %+v", sel.Seats[0])
		}
	}

	if _, err := env.bus.Skip(ctx, session.ID); err != nil {
		t.Fatalf("skip bus: %v", err)
	}
	env.savePassenger(t, session.ID)

	result, err := env.payment.Submit(ctx, service.SubmitPaymentRequest{
		SessionID: session.ID,
		Processor: domain.ProcessorStripe,
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.Reservation.Total != 95000 {
		t.Errorf("expected total 95000, got %d", result.Reservation.Total)
	}
	if len(result.Reservation.Seats) != 2 {
		t.Errorf("expected 2 reserved seats, got %d", len(result.Reservation.Seats))
	}
}

func TestCheckout_PercentCoupon_Totals90000(t *testing.T) {
	t.Parallel()
	env := newCheckoutEnv(t)
	ctx := context.Background()

	env.coupons.AddCoupon(&domain.Coupon{
		ID:     "coupon-1",
		Code:   "VERANO10",
		Type:   domain.CouponTypePercentage,
		Value:  10,
		Active: true,
	})

	session := env.startOneWay(t, 2)
	env.selectLeg(t, session.ID, domain.DirectionOutbound)
	env.selectSeats(t, session.ID, domain.DirectionOutbound, domain.SeatModeRandom)

	quote, err := env.coupon.Apply(ctx, session.ID, "verano10")
	if err != nil {
		t.Fatalf("apply coupon: %v", err)
	}
	if quote.Subtotal != 100000 || quote.Discount != 10000 || quote.Total != 90000 {
		t.Fatalf("expected 100000-10000=90000, got %d-%d=%d", quote.Subtotal, quote.Discount, quote.Total)
	}

	if _, err := env.bus.Skip(ctx, session.ID); err != nil {
		t.Fatalf("skip bus: %v", err)
	}
	env.savePassenger(t, session.ID)

	result, err := env.payment.Submit(ctx, service.SubmitPaymentRequest{
		SessionID: session.ID,
		Processor: domain.ProcessorStripe,
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	res := result.Reservation
	if res.Total != 90000 || res.Discount != 10000 {
		t.Errorf("expected total 90000 with discount 10000, got %d / %d", res.Total, res.Discount)
	}
	if res.CouponID != "coupon-1" {
		t.Errorf("expected coupon to be recorded, got %q", res.CouponID)
	}

	var discountLine *domain.ReservationLine
	for i := range res.Lines {
		if res.Lines[i].Kind == domain.LineDiscount {
			discountLine = &res.Lines[i]
		}
	}
	if discountLine == nil || discountLine.Amount != -10000 {
		t.Errorf("expected a -10000 discount line, got %+v", discountLine)
	}

	req := env.processor.LastRequest()
	if req.Discount != 10000 || req.Total != 90000 {
		t.Errorf("gateway got discount %d total %d", req.Discount, req.Total)
	}
	for _, item := range req.Items {
		if item.UnitPrice <= 0 {
			t.Errorf("gateway items must be positive, got %+v", item)
		}
	}
}

// ──────────────────────────────────────────────
// 2. SUBMISSION GUARDS
// ──────────────────────────────────────────────

func TestSubmit_WithoutOutboundLeg_BlockedBeforeGateway(t *testing.T) {
	t.Parallel()
	env := newCheckoutEnv(t)
	ctx := context.Background()

	session := env.startOneWay(t, 1)

	_, err := env.payment.Submit(ctx, service.SubmitPaymentRequest{
		SessionID: session.ID,
		Processor: domain.ProcessorStripe,
	})

	var blocked *service.StageBlockedError
	if !errors.As(err, &blocked) {
		t.Fatalf("expected StageBlockedError, got %v", err)
	}
	if blocked.Decision.Guard != service.GuardOutboundRequired.Name {
		t.Errorf("expected outbound-required guard, got %s", blocked.Decision.Guard)
	}
	if blocked.Decision.Redirect != service.FallbackRoute {
		t.Errorf("expected redirect to %s, got %s", service.FallbackRoute, blocked.Decision.Redirect)
	}

	if n := env.processor.CreateCheckoutCallCount; n != 0 {
		t.Errorf("expected no gateway calls, got %d", n)
	}
	if n := env.reservations.CreateCallCount; n != 0 {
		t.Errorf("expected no reservation writes, got %d", n)
	}

	if _, err := env.sessions.LoadActive(ctx, session.ID); !errors.Is(err, service.ErrSessionNotFound) {
		t.Errorf("expected session to be cleared, got %v", err)
	}
}

func TestSubmit_WithoutPassenger_ReturnsValidationErrors(t *testing.T) {
	t.Parallel()
	env := newCheckoutEnv(t)

	session := env.startOneWay(t, 1)
	env.selectLeg(t, session.ID, domain.DirectionOutbound)
	env.selectSeats(t, session.ID, domain.DirectionOutbound, domain.SeatModeManual, "15C")

	_, err := env.payment.Submit(context.Background(), service.SubmitPaymentRequest{
		SessionID: session.ID,
		Processor: domain.ProcessorStripe,
	})

	var verrs service.ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("expected validation errors, got %v", err)
	}
	if _, ok := verrs["passenger"]; !ok {
		t.Errorf("expected passenger error, got %v", verrs)
	}
	if n := env.processor.CreateCheckoutCallCount; n != 0 {
		t.Errorf("expected no gateway calls, got %d", n)
	}
}

func TestSubmit_UnknownProcessor_Rejected(t *testing.T) {
	t.Parallel()
	env := newCheckoutEnv(t)

	session := env.startOneWay(t, 1)

	_, err := env.payment.Submit(context.Background(), service.SubmitPaymentRequest{
		SessionID: session.ID,
		Processor: domain.ProcessorPayPal, // valid name, not registered
	})
	if !errors.Is(err, service.ErrInvalidProcessor) {
		t.Errorf("expected ErrInvalidProcessor, got %v", err)
	}
}

// ──────────────────────────────────────────────
// 3. IDEMPOTENT SUBMISSION
// ──────────────────────────────────────────────

func readyOneWay(t *testing.T, env *checkoutEnv) *domain.CheckoutSession {
	t.Helper()
	session := env.startOneWay(t, 1)
	env.selectLeg(t, session.ID, domain.DirectionOutbound)
	env.selectSeats(t, session.ID, domain.DirectionOutbound, domain.SeatModeManual, "12A")
	env.savePassenger(t, session.ID)
	return session
}

func TestSubmit_Twice_ReplaysSameReservation(t *testing.T) {
	t.Parallel()
	env := newCheckoutEnv(t)
	ctx := context.Background()
	session := readyOneWay(t, env)

	req := service.SubmitPaymentRequest{SessionID: session.ID, Processor: domain.ProcessorStripe}
	first, err := env.payment.Submit(ctx, req)
	if err != nil {
		t.Fatalf("first submit: %v", err)
	}
	second, err := env.payment.Submit(ctx, req)
	if err != nil {
		t.Fatalf("second submit: %v", err)
	}

	if !second.Replayed {
		t.Error("expected second submit to be a replay")
	}
	if first.Reservation.Code != second.Reservation.Code {
		t.Errorf("expected same reservation, got %s and %s", first.Reservation.Code, second.Reservation.Code)
	}
	if first.RedirectURL != second.RedirectURL {
		t.Errorf("expected same redirect, got %s and %s", first.RedirectURL, second.RedirectURL)
	}
	if env.reservations.Count() != 1 {
		t.Errorf("expected one reservation, got %d", env.reservations.Count())
	}
	if n := env.processor.CreateCheckoutCallCount; n != 1 {
		t.Errorf("expected one gateway call, got %d", n)
	}
}

func TestSubmit_GatewayFailure_RetriesWithSameReservation(t *testing.T) {
	t.Parallel()
	env := newCheckoutEnv(t)
	ctx := context.Background()
	session := readyOneWay(t, env)

	env.processor.SetCheckoutError(errors.New("connection reset"))
	req := service.SubmitPaymentRequest{SessionID: session.ID, Processor: domain.ProcessorStripe}

	_, err := env.payment.Submit(ctx, req)
	if !errors.Is(err, service.ErrPaymentFailed) {
		t.Fatalf("expected ErrPaymentFailed, got %v", err)
	}

	env.processor.SetCheckoutError(nil)
	result, err := env.payment.Submit(ctx, req)
	if err != nil {
		t.Fatalf("retry submit: %v", err)
	}
	if !result.Replayed {
		t.Error("expected retry to reuse the stored reservation")
	}
	if result.Reservation.Payment.Status != domain.PaymentStatusPending {
		t.Errorf("expected payment back to PENDING, got %s", result.Reservation.Payment.Status)
	}
	if env.reservations.Count() != 1 {
		t.Errorf("expected one reservation, got %d", env.reservations.Count())
	}
	if n := env.processor.CreateCheckoutCallCount; n != 2 {
		t.Errorf("expected two gateway calls, got %d", n)
	}
}

func TestSubmit_SameKeyInTwoCheckouts_KeepsReservationsApart(t *testing.T) {
	t.Parallel()
	env := newCheckoutEnv(t)
	ctx := context.Background()

	first := readyOneWay(t, env)
	second := env.startOneWay(t, 1)
	env.selectLeg(t, second.ID, domain.DirectionOutbound)
	env.selectSeats(t, second.ID, domain.DirectionOutbound, domain.SeatModeManual, "12B")
	env.savePassenger(t, second.ID)

	a, err := env.payment.Submit(ctx, service.SubmitPaymentRequest{SessionID: first.ID, Processor: domain.ProcessorStripe, IdempotencyKey: "1"})
	if err != nil {
		t.Fatalf("first checkout submit: %v", err)
	}
	b, err := env.payment.Submit(ctx, service.SubmitPaymentRequest{SessionID: second.ID, Processor: domain.ProcessorStripe, IdempotencyKey: "1"})
	if err != nil {
		t.Fatalf("second checkout submit: %v", err)
	}

	if b.Replayed {
		t.Error("a key reused by another checkout must not replay")
	}
	if b.Reservation.Code == a.Reservation.Code || b.Reservation.SessionID != second.ID {
		t.Errorf("expected a reservation of the second checkout, got %s for session %s", b.Reservation.Code, b.Reservation.SessionID)
	}
	if env.reservations.Count() != 2 {
		t.Errorf("expected two reservations, got %d", env.reservations.Count())
	}

	loaded, _ := env.sessions.LoadActive(ctx, second.ID)
	if loaded.Order == nil || loaded.Order.ReservationCode != b.Reservation.Code {
		t.Errorf("expected the second checkout to point at its own reservation, got %+v", loaded.Order)
	}
}

// ──────────────────────────────────────────────
// 4. WEBHOOKS
// ──────────────────────────────────────────────

func TestWebhook_OtherProcessor_CannotConfirm(t *testing.T) {
	t.Parallel()
	env := newCheckoutEnv(t)
	ctx := context.Background()
	session := readyOneWay(t, env)

	result, err := env.payment.Submit(ctx, service.SubmitPaymentRequest{SessionID: session.ID, Processor: domain.ProcessorStripe})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	code := result.Reservation.Code

	payload := []byte(`{"reservation_code":"` + code + `","status":"approved"}`)
	if _, err := env.payment.HandleWebhook(ctx, domain.ProcessorMock, payload, nil); !errors.Is(err, service.ErrWebhookMismatch) {
		t.Fatalf("expected ErrWebhookMismatch, got %v", err)
	}

	stored, _, _ := env.payment.GetReservation(ctx, code)
	if stored.Status != domain.ReservationStatusPending || stored.Payment.Status != domain.PaymentStatusPending {
		t.Errorf("expected reservation and payment to stay PENDING, got %s / %s", stored.Status, stored.Payment.Status)
	}
	loaded, _ := env.sessions.Load(ctx, session.ID)
	if loaded.PaymentOK {
		t.Error("payment must not be marked ok")
	}
}

func TestWebhook_OtherCheckoutID_CannotConfirm(t *testing.T) {
	t.Parallel()
	env := newCheckoutEnv(t)
	ctx := context.Background()
	session := readyOneWay(t, env)

	result, err := env.payment.Submit(ctx, service.SubmitPaymentRequest{SessionID: session.ID, Processor: domain.ProcessorStripe})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	code := result.Reservation.Code

	env.processor.SetEvent(&payments.WebhookEvent{ReservationCode: code, CheckoutID: "cs_someone_else", Outcome: payments.OutcomeConfirmed})
	if _, err := env.payment.HandleWebhook(ctx, domain.ProcessorStripe, []byte(`{}`), nil); !errors.Is(err, service.ErrWebhookMismatch) {
		t.Fatalf("expected ErrWebhookMismatch, got %v", err)
	}

	env.processor.SetEvent(&payments.WebhookEvent{ReservationCode: code, CheckoutID: result.Reservation.Payment.ExternalID, Outcome: payments.OutcomeConfirmed})
	res, err := env.payment.HandleWebhook(ctx, domain.ProcessorStripe, []byte(`{}`), nil)
	if err != nil {
		t.Fatalf("matching webhook: %v", err)
	}
	if res.Status != domain.ReservationStatusConfirmed {
		t.Errorf("expected CONFIRMED, got %s", res.Status)
	}
}

func TestWebhook_Approved_ConfirmsAndCompletesSession(t *testing.T) {
	t.Parallel()
	env := newCheckoutEnv(t)
	ctx := context.Background()
	session := readyOneWay(t, env)

	result, err := env.payment.Submit(ctx, service.SubmitPaymentRequest{SessionID: session.ID, Processor: domain.ProcessorStripe})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	code := result.Reservation.Code

	if env.holds.Holder(outboundTripID, "12A") != session.ID {
		t.Fatal("expected seat to be held by the session before payment")
	}

	env.processor.SetEvent(&payments.WebhookEvent{ReservationCode: code, Outcome: payments.OutcomeConfirmed})
	res, err := env.payment.HandleWebhook(ctx, domain.ProcessorStripe, []byte(`{}`), nil)
	if err != nil {
		t.Fatalf("webhook: %v", err)
	}
	if res == nil || res.Code != code {
		t.Fatalf("expected reservation %s, got %+v", code, res)
	}

	stored, receipt, err := env.payment.GetReservation(ctx, code)
	if err != nil {
		t.Fatalf("get reservation: %v", err)
	}
	if stored.Status != domain.ReservationStatusConfirmed {
		t.Errorf("expected CONFIRMED, got %s", stored.Status)
	}
	if stored.Payment.Status != domain.PaymentStatusConfirmed {
		t.Errorf("expected payment CONFIRMED, got %s", stored.Payment.Status)
	}
	if receipt.Total != 58000 || receipt.PaidAt.IsZero() {
		t.Errorf("unexpected receipt %+v", receipt)
	}

	if env.holds.Holder(outboundTripID, "12A") != "" {
		t.Error("expected seat hold to be released after confirmation")
	}

	decision, err := env.guards.Navigate(ctx, session.ID, domain.StageSuccess)
	if err != nil {
		t.Fatalf("navigate: %v", err)
	}
	if !decision.Allowed {
		t.Errorf("expected success stage to be reachable, got %+v", decision)
	}

	completed, err := env.sessions.Load(ctx, session.ID)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if completed.Search != nil || completed.Passenger != nil {
		t.Error("expected purchase state to be cleared")
	}
	if completed.Order == nil || completed.Order.ReservationCode != code {
		t.Error("expected order marker to survive completion")
	}

	// A second notification is a no-op.
	again, err := env.payment.HandleWebhook(ctx, domain.ProcessorStripe, []byte(`{}`), nil)
	if err != nil || again.Status != domain.ReservationStatusConfirmed {
		t.Errorf("expected idempotent webhook, got %v / %+v", err, again)
	}
}

func TestWebhook_Rejected_CancelsAndBlocksResubmit(t *testing.T) {
	t.Parallel()
	env := newCheckoutEnv(t)
	ctx := context.Background()
	session := readyOneWay(t, env)

	req := service.SubmitPaymentRequest{SessionID: session.ID, Processor: domain.ProcessorStripe}
	result, err := env.payment.Submit(ctx, req)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	env.processor.SetEvent(&payments.WebhookEvent{ReservationCode: result.Reservation.Code, Outcome: payments.OutcomeCancelled})
	if _, err := env.payment.HandleWebhook(ctx, domain.ProcessorStripe, nil, nil); err != nil {
		t.Fatalf("webhook: %v", err)
	}

	stored, _, err := env.payment.GetReservation(ctx, result.Reservation.Code)
	if err != nil {
		t.Fatalf("get reservation: %v", err)
	}
	if stored.Status != domain.ReservationStatusCancelled {
		t.Errorf("expected CANCELLED, got %s", stored.Status)
	}

	if _, err := env.payment.Submit(ctx, req); !errors.Is(err, service.ErrReservationConflict) {
		t.Errorf("expected ErrReservationConflict on resubmit, got %v", err)
	}
}

func TestWebhook_IgnoredEvent_ReturnsNil(t *testing.T) {
	t.Parallel()
	env := newCheckoutEnv(t)

	res, err := env.payment.HandleWebhook(context.Background(), domain.ProcessorStripe, nil, nil)
	if err != nil || res != nil {
		t.Errorf("expected ignored event, got %v / %+v", err, res)
	}
}

func TestWebhook_MockProcessor_ConfirmsByCode(t *testing.T) {
	t.Parallel()
	env := newCheckoutEnv(t)
	ctx := context.Background()
	session := readyOneWay(t, env)

	result, err := env.payment.Submit(ctx, service.SubmitPaymentRequest{SessionID: session.ID, Processor: domain.ProcessorMock})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !strings.Contains(result.RedirectURL, "/pago/exito") {
		t.Errorf("mock gateway should redirect to the success page, got %s", result.RedirectURL)
	}

	payload := []byte(`{"reservation_code":"` + result.Reservation.Code + `","status":"approved"}`)
	res, err := env.payment.HandleWebhook(ctx, domain.ProcessorMock, payload, nil)
	if err != nil {
		t.Fatalf("webhook: %v", err)
	}
	if res.Code != result.Reservation.Code {
		t.Errorf("unexpected reservation %s", res.Code)
	}

	stored, _, _ := env.payment.GetReservation(ctx, res.Code)
	if stored.Status != domain.ReservationStatusConfirmed {
		t.Errorf("expected CONFIRMED, got %s", stored.Status)
	}
}

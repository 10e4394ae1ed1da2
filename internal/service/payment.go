package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log"
	"math/big"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"airlink/internal/domain"
	"airlink/internal/payments"
	"airlink/internal/repository"
)

const reservationCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GenerateReservationCode returns "RES" + yymmdd + 4 random uppercase alphanumerics.
func GenerateReservationCode(now time.Time) string {
	suffix := make([]byte, 4)
	size := big.NewInt(int64(len(reservationCodeAlphabet)))
	for i := range suffix {
		n, err := rand.Int(rand.Reader, size)
		if err != nil {
			// crypto/rand does not fail on supported platforms
			panic(err)
		}
		suffix[i] = reservationCodeAlphabet[n.Int64()]
	}
	return "RES" + now.Format("060102") + string(suffix)
}

// PaymentURLs are the customer and gateway endpoints of a checkout.
type PaymentURLs struct {
	FrontendURL string
	APIBaseURL  string
}

// PaymentService turns a finished checkout into a reservation and a gateway checkout.
type PaymentService struct {
	sessions        *SessionService
	guards          *GuardService
	coupons         *CouponService
	seats           *SeatService
	reservationRepo repository.ReservationRepository
	paymentRepo     repository.PaymentRepository
	processors      payments.Registry
	notifier        *NotificationService
	receipts        *ReceiptService
	urls            PaymentURLs
	now             func() time.Time
	newCode         func(time.Time) string
}

// NewPaymentService creates a new PaymentService.
func NewPaymentService(
	sessions *SessionService,
	guards *GuardService,
	coupons *CouponService,
	seats *SeatService,
	reservationRepo repository.ReservationRepository,
	paymentRepo repository.PaymentRepository,
	processors payments.Registry,
	notifier *NotificationService,
	receipts *ReceiptService,
	urls PaymentURLs,
) *PaymentService {
	return &PaymentService{
		sessions:        sessions,
		guards:          guards,
		coupons:         coupons,
		seats:           seats,
		reservationRepo: reservationRepo,
		paymentRepo:     paymentRepo,
		processors:      processors,
		notifier:        notifier,
		receipts:        receipts,
		urls:            urls,
		now:             time.Now,
		newCode:         GenerateReservationCode,
	}
}

// SubmitPaymentRequest contains the parameters for paying a checkout.
type SubmitPaymentRequest struct {
	SessionID      string
	Processor      domain.Processor
	IdempotencyKey string // Optional: defaults to one reservation per checkout
}

// SubmitPaymentResult is the stored reservation and where to send the customer.
type SubmitPaymentResult struct {
	Reservation *domain.Reservation
	RedirectURL string
	Replayed    bool
}

// Submit validates the checkout, stores the reservation and opens the gateway checkout.
// No gateway is contacted unless every stage guard passes.
func (s *PaymentService) Submit(ctx context.Context, req SubmitPaymentRequest) (*SubmitPaymentResult, error) {
	if strings.TrimSpace(req.SessionID) == "" {
		return nil, ErrInvalidSessionID
	}
	processor, ok := s.processors.Get(req.Processor)
	if !req.Processor.Valid() || !ok {
		return nil, ErrInvalidProcessor
	}

	session, err := s.sessions.LoadActive(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}
	if err := s.guards.Require(ctx, session, domain.StagePayment); err != nil {
		return nil, err
	}

	if session.Passenger == nil {
		errs := ValidationErrors{}
		errs.Add("passenger", "is required")
		return nil, errs
	}
	if errs := ValidatePassenger(session.Passenger, s.now()); !errs.Empty() {
		return nil, errs
	}

	key := idempotencyKey(session.ID, req.IdempotencyKey)

	existing, err := s.reservationRepo.GetByIdempotencyKey(ctx, key)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if existing.SessionID != session.ID {
			return nil, ErrReservationConflict
		}
		return s.replay(ctx, session, existing, processor)
	}

	quote := QuoteSession(session)
	if session.Coupon != nil {
		cq, err := s.coupons.Validate(ctx, session.Coupon.Code, quote.Subtotal)
		if err != nil {
			return nil, err
		}
		quote.Discount = cq.Discount
		quote.Total = cq.Total
	}
	if quote.Total <= 0 {
		return nil, ErrInvalidAmount
	}

	res := s.buildReservation(session, key, quote, req.Processor)
	if err := s.reservationRepo.Create(ctx, res); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			// a concurrent submit with the same key may have won
			if winner, getErr := s.reservationRepo.GetByIdempotencyKey(ctx, key); getErr == nil && winner != nil && winner.SessionID == session.ID {
				return s.replay(ctx, session, winner, processor)
			}
			return nil, ErrReservationConflict
		}
		return nil, err
	}

	log.Printf("reservation created code=%s session=%s total=%d processor=%s", res.Code, session.ID, res.Total, req.Processor)
	return s.startCheckout(ctx, session, res, processor)
}

// idempotencyKey scopes a client key to its checkout. Without one, a checkout
// gets a single reservation.
func idempotencyKey(sessionID, clientKey string) string {
	clientKey = strings.TrimSpace(clientKey)
	if clientKey == "" {
		return "checkout:" + sessionID
	}
	return "checkout:" + sessionID + ":" + clientKey
}

func (s *PaymentService) replay(ctx context.Context, session *domain.CheckoutSession, res *domain.Reservation, processor payments.Processor) (*SubmitPaymentResult, error) {
	switch res.Status {
	case domain.ReservationStatusConfirmed:
		return &SubmitPaymentResult{Reservation: res, Replayed: true}, nil
	case domain.ReservationStatusCancelled:
		return nil, ErrReservationConflict
	}

	pending := res.Payment != nil && res.Payment.Status == domain.PaymentStatusPending && res.Payment.ExternalID != ""
	if pending && session.Order != nil && session.Order.ReservationID == res.ID && session.Order.RedirectURL != "" {
		return &SubmitPaymentResult{Reservation: res, RedirectURL: session.Order.RedirectURL, Replayed: true}, nil
	}

	result, err := s.startCheckout(ctx, session, res, processor)
	if err != nil {
		return nil, err
	}
	result.Replayed = true
	return result, nil
}

func (s *PaymentService) buildReservation(session *domain.CheckoutSession, key string, quote Quote, processor domain.Processor) *domain.Reservation {
	now := s.now()
	res := &domain.Reservation{
		ID:             uuid.New().String(),
		Code:           s.newCode(now),
		SessionID:      session.ID,
		IdempotencyKey: key,
		Status:         domain.ReservationStatusPending,
		Passenger:      *session.Passenger,
		Passengers:     session.Passengers(),
		Lines:          quote.Lines,
		Discount:       quote.Discount,
		Total:          quote.Total,
		Currency:       quote.Currency,
		CreatedAt:      now,
	}

	// the discount line must match the re-validated discount
	for i := range res.Lines {
		if res.Lines[i].Kind == domain.LineDiscount {
			res.Lines[i].UnitPrice = -quote.Discount
			res.Lines[i].Amount = -quote.Discount
		}
	}

	if session.Coupon != nil && quote.Discount > 0 {
		res.CouponID = session.Coupon.ID
	}

	for _, d := range session.RequiredDirections() {
		sel := session.Seats[d]
		if sel == nil {
			continue
		}
		for _, seat := range sel.Seats {
			res.Seats = append(res.Seats, domain.ReservationSeat{TripID: sel.TripID, SeatCode: seat.Code, Price: seat.Price})
		}
	}

	res.Payment = &domain.Payment{
		ID:            uuid.New().String(),
		ReservationID: res.ID,
		Processor:     processor,
		Amount:        res.Total,
		Currency:      res.Currency,
		Status:        domain.PaymentStatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	return res
}

func (s *PaymentService) startCheckout(ctx context.Context, session *domain.CheckoutSession, res *domain.Reservation, processor payments.Processor) (*SubmitPaymentResult, error) {
	if res.Payment == nil {
		return nil, fmt.Errorf("%w: reservation %s has no payment", ErrPaymentFailed, res.Code)
	}

	checkout, err := processor.CreateCheckout(ctx, s.checkoutRequest(res, processor.Name()))
	if err != nil {
		log.Printf("gateway checkout failed code=%s processor=%s err=%v", res.Code, processor.Name(), err)
		if updErr := s.paymentRepo.UpdateStatus(ctx, res.Payment.ID, domain.PaymentStatusFailed); updErr != nil {
			log.Printf("mark payment failed: %v", updErr)
		}
		res.Payment.Status = domain.PaymentStatusFailed
		return nil, fmt.Errorf("%w: %v", ErrPaymentFailed, err)
	}

	if err := s.paymentRepo.AttachExternal(ctx, res.Payment.ID, processor.Name(), checkout.ExternalID); err != nil {
		return nil, err
	}
	if res.Payment.Status != domain.PaymentStatusPending {
		if err := s.paymentRepo.UpdateStatus(ctx, res.Payment.ID, domain.PaymentStatusPending); err != nil {
			return nil, err
		}
	}
	res.Payment.Processor = processor.Name()
	res.Payment.ExternalID = checkout.ExternalID
	res.Payment.Status = domain.PaymentStatusPending

	order := &domain.OrderMarker{
		ReservationID:   res.ID,
		ReservationCode: res.Code,
		PaymentID:       res.Payment.ID,
		Processor:       processor.Name(),
		RedirectURL:     checkout.RedirectURL,
		Total:           res.Total,
		CreatedAt:       s.now(),
	}
	if err := s.sessions.SaveOrder(ctx, session, order); err != nil {
		log.Printf("save order marker failed session=%s err=%v", session.ID, err)
	}

	_ = s.notifier.NotifyReservationCreated(ctx, res, processor.Name(), checkout.RedirectURL)

	return &SubmitPaymentResult{Reservation: res, RedirectURL: checkout.RedirectURL}, nil
}

func (s *PaymentService) checkoutRequest(res *domain.Reservation, processor domain.Processor) payments.CheckoutRequest {
	req := payments.CheckoutRequest{
		ReservationID:   res.ID,
		ReservationCode: res.Code,
		PaymentID:       res.Payment.ID,
		Email:           res.Passenger.Email,
		Discount:        res.Discount,
		Total:           res.Total,
		Currency:        res.Currency,
	}
	for _, line := range res.Lines {
		if line.Amount <= 0 || line.Kind == domain.LineDiscount {
			continue
		}
		qty := line.Quantity
		unit := line.UnitPrice
		if qty < 1 || unit*int64(qty) != line.Amount {
			qty, unit = 1, line.Amount
		}
		req.Items = append(req.Items, payments.Item{Title: line.Description, Quantity: qty, UnitPrice: unit})
	}

	code := url.QueryEscape(res.Code)
	front := strings.TrimRight(s.urls.FrontendURL, "/")
	req.SuccessURL = front + "/pago/exito?code=" + code
	req.CancelURL = front + "/pago/cancelado?code=" + code
	if s.urls.APIBaseURL != "" {
		req.NotifyURL = strings.TrimRight(s.urls.APIBaseURL, "/") + "/v1/payments/webhooks/" + string(processor)
	}
	return req
}

// HandleWebhook applies a gateway notification to its reservation.
// Repeated notifications for an already settled reservation are no-ops.
func (s *PaymentService) HandleWebhook(ctx context.Context, name domain.Processor, payload []byte, header http.Header) (*domain.Reservation, error) {
	processor, ok := s.processors.Get(name)
	if !ok {
		return nil, ErrInvalidProcessor
	}

	event, err := processor.ParseWebhook(ctx, payload, header)
	if err != nil {
		return nil, err
	}
	if event.Outcome == payments.OutcomeIgnored {
		return nil, nil
	}

	res, err := s.reservationRepo.GetByCode(ctx, event.ReservationCode)
	if err != nil {
		return nil, err
	}
	if !paidThrough(res, name, event) {
		log.Printf("webhook rejected code=%s processor=%s checkout=%s", res.Code, name, event.CheckoutID)
		return nil, ErrWebhookMismatch
	}
	if res.Status != domain.ReservationStatusPending {
		return res, nil
	}

	switch event.Outcome {
	case payments.OutcomeConfirmed:
		return res, s.confirm(ctx, res)
	case payments.OutcomeCancelled:
		return res, s.cancel(ctx, res)
	}
	return res, nil
}

// paidThrough checks the event against the processor and checkout stored on the payment.
func paidThrough(res *domain.Reservation, name domain.Processor, event *payments.WebhookEvent) bool {
	if res.Payment == nil || res.Payment.Processor != name {
		return false
	}
	return event.CheckoutID == "" || event.CheckoutID == res.Payment.ExternalID
}

func (s *PaymentService) confirm(ctx context.Context, res *domain.Reservation) error {
	if err := s.reservationRepo.UpdateStatus(ctx, res.ID, domain.ReservationStatusConfirmed); err != nil {
		return err
	}
	res.Status = domain.ReservationStatusConfirmed

	if res.Payment != nil {
		if err := s.paymentRepo.UpdateStatus(ctx, res.Payment.ID, domain.PaymentStatusConfirmed); err != nil {
			return err
		}
		res.Payment.Status = domain.PaymentStatusConfirmed
		res.Payment.UpdatedAt = s.now()
	}

	s.seats.ReleaseHolds(ctx, res.SessionID, res.Seats)

	order := &domain.OrderMarker{
		ReservationID:   res.ID,
		ReservationCode: res.Code,
		Total:           res.Total,
		CreatedAt:       s.now(),
	}
	if res.Payment != nil {
		order.PaymentID = res.Payment.ID
		order.Processor = res.Payment.Processor
	}
	if err := s.sessions.CompletePayment(ctx, res.SessionID, order); err != nil {
		log.Printf("complete checkout failed session=%s err=%v", res.SessionID, err)
	}

	receipt := s.receipts.GenerateReceipt(res)
	_ = s.notifier.NotifyPaymentConfirmed(ctx, res, receipt, s.receipts.FormatReceipt(receipt))

	log.Printf("payment confirmed code=%s total=%d", res.Code, res.Total)
	return nil
}

func (s *PaymentService) cancel(ctx context.Context, res *domain.Reservation) error {
	if err := s.reservationRepo.UpdateStatus(ctx, res.ID, domain.ReservationStatusCancelled); err != nil {
		return err
	}
	res.Status = domain.ReservationStatusCancelled

	if res.Payment != nil {
		if err := s.paymentRepo.UpdateStatus(ctx, res.Payment.ID, domain.PaymentStatusCancelled); err != nil {
			return err
		}
		res.Payment.Status = domain.PaymentStatusCancelled
	}

	s.seats.ReleaseHolds(ctx, res.SessionID, res.Seats)
	_ = s.notifier.NotifyPaymentCancelled(ctx, res)

	log.Printf("payment cancelled code=%s", res.Code)
	return nil
}

// GetReservation returns a reservation with its receipt.
func (s *PaymentService) GetReservation(ctx context.Context, code string) (*domain.Reservation, *domain.Receipt, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, nil, repository.ErrNotFound
	}
	res, err := s.reservationRepo.GetByCode(ctx, code)
	if err != nil {
		return nil, nil, err
	}
	return res, s.receipts.GenerateReceipt(res), nil
}

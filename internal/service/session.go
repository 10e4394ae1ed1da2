package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"airlink/internal/domain"
	"airlink/internal/flow"
)

// SessionService reads and writes the typed checkout state.
// Every stage goes through it so the flow keys are only known here.
type SessionService struct {
	store *flow.Store
}

// NewSessionService creates a new SessionService.
func NewSessionService(store *flow.Store) *SessionService {
	return &SessionService{store: store}
}

// Start opens a new checkout with the given search.
func (s *SessionService) Start(ctx context.Context, criteria domain.SearchCriteria) (*domain.CheckoutSession, error) {
	session := domain.NewCheckoutSession(uuid.New().String())
	session.Search = &criteria

	if err := s.store.Set(ctx, session.ID, flow.KeySearch, criteria); err != nil {
		return nil, err
	}
	return session, nil
}

// Load returns everything stored for the session. Missing keys stay empty.
func (s *SessionService) Load(ctx context.Context, sessionID string) (*domain.CheckoutSession, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, ErrInvalidSessionID
	}

	session := domain.NewCheckoutSession(sessionID)

	var search domain.SearchCriteria
	if s.store.Get(ctx, sessionID, flow.KeySearch, &search) {
		session.Search = &search
	}

	for _, d := range []domain.Direction{domain.DirectionOutbound, domain.DirectionReturn} {
		var leg domain.LegSelection
		if s.store.Get(ctx, sessionID, flow.LegKey(d), &leg) {
			session.Legs[d] = &leg
		}
		var seats domain.SeatSelection
		if s.store.Get(ctx, sessionID, flow.SeatsKey(d), &seats) {
			session.Seats[d] = &seats
		}
	}

	s.store.Get(ctx, sessionID, flow.KeyCheckoutReady, &session.CheckoutReady)
	s.store.Get(ctx, sessionID, flow.KeyPaymentOK, &session.PaymentOK)

	var bus domain.BusSelection
	if s.store.Get(ctx, sessionID, flow.KeyBus, &bus) {
		session.Bus = &bus
	}
	var coupon domain.AppliedCoupon
	if s.store.Get(ctx, sessionID, flow.KeyCoupon, &coupon) {
		session.Coupon = &coupon
	}
	var passenger domain.PassengerProfile
	if s.store.Get(ctx, sessionID, flow.KeyPassenger, &passenger) {
		session.Passenger = &passenger
	}
	var order domain.OrderMarker
	if s.store.Get(ctx, sessionID, flow.KeyOrder, &order) {
		session.Order = &order
	}

	return session, nil
}

// LoadActive is Load for sessions that must have a stored search.
func (s *SessionService) LoadActive(ctx context.Context, sessionID string) (*domain.CheckoutSession, error) {
	session, err := s.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Search == nil {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// SaveSearch replaces the search criteria.
func (s *SessionService) SaveSearch(ctx context.Context, session *domain.CheckoutSession, criteria domain.SearchCriteria) error {
	if err := s.store.Set(ctx, session.ID, flow.KeySearch, criteria); err != nil {
		return err
	}
	session.Search = &criteria
	return nil
}

// SaveLeg stores the leg selection of its direction.
func (s *SessionService) SaveLeg(ctx context.Context, session *domain.CheckoutSession, leg *domain.LegSelection) error {
	if err := s.store.Set(ctx, session.ID, flow.LegKey(leg.Direction), leg); err != nil {
		return err
	}
	session.Legs[leg.Direction] = leg
	return nil
}

// RemoveLeg drops the leg selection of d.
func (s *SessionService) RemoveLeg(ctx context.Context, session *domain.CheckoutSession, d domain.Direction) error {
	if err := s.store.Remove(ctx, session.ID, flow.LegKey(d)); err != nil {
		return err
	}
	delete(session.Legs, d)
	return nil
}

// SaveSeats stores the seat selection of its direction.
func (s *SessionService) SaveSeats(ctx context.Context, session *domain.CheckoutSession, seats *domain.SeatSelection) error {
	if err := s.store.Set(ctx, session.ID, flow.SeatsKey(seats.Direction), seats); err != nil {
		return err
	}
	session.Seats[seats.Direction] = seats
	return nil
}

// RemoveSeats drops the seat selection of d and the checkout-ready flag.
func (s *SessionService) RemoveSeats(ctx context.Context, session *domain.CheckoutSession, d domain.Direction) error {
	if err := s.store.Remove(ctx, session.ID, flow.SeatsKey(d)); err != nil {
		return err
	}
	delete(session.Seats, d)
	return s.SetCheckoutReady(ctx, session, false)
}

// SetCheckoutReady records whether seat selection is finished.
func (s *SessionService) SetCheckoutReady(ctx context.Context, session *domain.CheckoutSession, ready bool) error {
	if !ready {
		if err := s.store.Remove(ctx, session.ID, flow.KeyCheckoutReady); err != nil {
			return err
		}
		session.CheckoutReady = false
		return nil
	}
	if err := s.store.Set(ctx, session.ID, flow.KeyCheckoutReady, true); err != nil {
		return err
	}
	session.CheckoutReady = true
	return nil
}

// SaveBus stores the ground connection choice.
func (s *SessionService) SaveBus(ctx context.Context, session *domain.CheckoutSession, bus *domain.BusSelection) error {
	if err := s.store.Set(ctx, session.ID, flow.KeyBus, bus); err != nil {
		return err
	}
	session.Bus = bus
	return nil
}

// SaveCoupon attaches the coupon.
func (s *SessionService) SaveCoupon(ctx context.Context, session *domain.CheckoutSession, coupon *domain.AppliedCoupon) error {
	if err := s.store.Set(ctx, session.ID, flow.KeyCoupon, coupon); err != nil {
		return err
	}
	session.Coupon = coupon
	return nil
}

// RemoveCoupon detaches the coupon.
func (s *SessionService) RemoveCoupon(ctx context.Context, session *domain.CheckoutSession) error {
	if err := s.store.Remove(ctx, session.ID, flow.KeyCoupon); err != nil {
		return err
	}
	session.Coupon = nil
	return nil
}

// SavePassenger stores the passenger profile.
func (s *SessionService) SavePassenger(ctx context.Context, session *domain.CheckoutSession, p *domain.PassengerProfile) error {
	if err := s.store.Set(ctx, session.ID, flow.KeyPassenger, p); err != nil {
		return err
	}
	session.Passenger = p
	return nil
}

// SaveOrder records the submitted reservation.
func (s *SessionService) SaveOrder(ctx context.Context, session *domain.CheckoutSession, order *domain.OrderMarker) error {
	if err := s.store.Set(ctx, session.ID, flow.KeyOrder, order); err != nil {
		return err
	}
	session.Order = order
	return nil
}

// CompletePayment wipes the purchase state and leaves only the success markers.
func (s *SessionService) CompletePayment(ctx context.Context, sessionID string, order *domain.OrderMarker) error {
	if err := s.store.Clear(ctx, sessionID); err != nil {
		return err
	}
	if err := s.store.Set(ctx, sessionID, flow.KeyPaymentOK, true); err != nil {
		return err
	}
	if order == nil {
		return nil
	}
	return s.store.Set(ctx, sessionID, flow.KeyOrder, order)
}

// Clear removes every stored stage of the session.
func (s *SessionService) Clear(ctx context.Context, sessionID string) error {
	return s.store.Clear(ctx, sessionID)
}

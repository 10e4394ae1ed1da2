package service

import (
	"context"
	"errors"
	"time"

	"airlink/internal/domain"
	"airlink/internal/repository"
)

// CheckoutService opens checkouts and records the chosen flights.
type CheckoutService struct {
	sessions *SessionService
	guards   *GuardService
	tripRepo repository.TripRepository
	seats    *SeatService
	now      func() time.Time
}

// NewCheckoutService creates a new CheckoutService.
func NewCheckoutService(
	sessions *SessionService,
	guards *GuardService,
	tripRepo repository.TripRepository,
	seats *SeatService,
) *CheckoutService {
	return &CheckoutService{
		sessions: sessions,
		guards:   guards,
		tripRepo: tripRepo,
		seats:    seats,
		now:      time.Now,
	}
}

// Start validates the search and opens a new checkout for it.
func (s *CheckoutService) Start(ctx context.Context, criteria domain.SearchCriteria) (*domain.CheckoutSession, error) {
	NormalizeSearch(&criteria)
	if errs := ValidateSearch(&criteria, s.now()); !errs.Empty() {
		return nil, errs
	}
	return s.sessions.Start(ctx, criteria)
}

// CheckoutView is the state of a checkout with its current price.
type CheckoutView struct {
	Session *domain.CheckoutSession
	Quote   Quote
	// Reachable lists the stages the session may enter now.
	Reachable []domain.Stage
}

// View returns the checkout state without enforcing any guard.
func (s *CheckoutService) View(ctx context.Context, sessionID string) (*CheckoutView, error) {
	session, err := s.sessions.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Search == nil && !session.PaymentOK {
		return nil, ErrSessionNotFound
	}

	view := &CheckoutView{Session: session, Quote: QuoteSession(session)}
	for _, stage := range domain.Stages {
		if d, err := Evaluate(session, stage); err == nil && d.Allowed {
			view.Reachable = append(view.Reachable, stage)
		}
	}
	return view, nil
}

// SelectLegRequest contains the parameters for choosing a flight and fare.
type SelectLegRequest struct {
	SessionID string
	Direction domain.Direction
	TripID    string
	FareID    string
}

// SelectLeg stores the trip and fare of one direction.
// Changing the trip of a leg drops the seats chosen on the previous trip.
func (s *CheckoutService) SelectLeg(ctx context.Context, req SelectLegRequest) (*domain.LegSelection, error) {
	if !req.Direction.Valid() {
		return nil, ErrInvalidDirection
	}
	if req.TripID == "" || req.FareID == "" {
		return nil, ErrLegNotSelected
	}

	session, err := s.sessions.LoadActive(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}

	if req.Direction == domain.DirectionReturn {
		if !session.Search.IsRoundTrip() {
			return nil, ErrReturnNotAllowed
		}
		if err := s.guards.Require(ctx, session, domain.StageFare); err != nil {
			return nil, err
		}
	}

	trip, err := s.tripRepo.GetByID(ctx, req.TripID)
	if err != nil {
		return nil, err
	}
	if !servesRoute(session.Search, req.Direction, trip) {
		return nil, ErrLegMismatch
	}

	fare, err := s.tripRepo.GetFare(ctx, trip.ID, req.FareID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrLegNotSelected
		}
		return nil, err
	}
	if fare.SeatsLeft < session.Passengers() {
		return nil, ErrFareSoldOut
	}

	leg := &domain.LegSelection{
		Direction:   req.Direction,
		TripID:      trip.ID,
		FlightCode:  trip.FlightCode,
		Carrier:     trip.Carrier,
		Origin:      trip.Origin,
		Destination: trip.Destination,
		DepartureAt: trip.DepartureAt,
		ArrivalAt:   trip.ArrivalAt,
		FareID:      fare.ID,
		FareName:    fare.Name,
		Price:       fare.Price,
		Currency:    fare.Currency,
		SeatsLeft:   fare.SeatsLeft,
	}

	if prev := session.Seats[req.Direction]; prev != nil && prev.TripID != leg.TripID {
		if err := s.seats.DropSelection(ctx, session, req.Direction); err != nil {
			return nil, err
		}
	}

	if err := s.sessions.SaveLeg(ctx, session, leg); err != nil {
		return nil, err
	}
	return leg, nil
}

// Abandon releases the seats of a checkout and wipes its state.
func (s *CheckoutService) Abandon(ctx context.Context, sessionID string) error {
	session, err := s.sessions.Load(ctx, sessionID)
	if err != nil {
		return err
	}
	for _, d := range []domain.Direction{domain.DirectionOutbound, domain.DirectionReturn} {
		if err := s.seats.DropSelection(ctx, session, d); err != nil {
			return err
		}
	}
	return s.sessions.Clear(ctx, session.ID)
}

// servesRoute checks the trip against the searched route; return legs fly it reversed.
func servesRoute(search *domain.SearchCriteria, d domain.Direction, trip *domain.Trip) bool {
	if d == domain.DirectionReturn {
		return trip.Origin == search.Destination && trip.Destination == search.Origin
	}
	return trip.Origin == search.Origin && trip.Destination == search.Destination
}

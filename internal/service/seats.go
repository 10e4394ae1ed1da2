package service

import (
	"context"
	"log"
	"math/rand"
	"strings"
	"sync"
	"time"

	"airlink/internal/domain"
	"airlink/internal/redis"
)

// SeatService builds seat maps and stores seat selections per leg.
type SeatService struct {
	sessions  *SessionService
	guards    *GuardService
	inventory SeatInventoryProvider
	holds     redis.SeatHoldStoreInterface
	rows      int
	holdTTL   time.Duration

	mu  sync.Mutex
	rng *rand.Rand
}

// NewSeatService creates a new SeatService. holds may be nil to disable seat holds.
// Seats held by a checkout that a guard clears are released.
func NewSeatService(
	sessions *SessionService,
	guards *GuardService,
	inventory SeatInventoryProvider,
	holds redis.SeatHoldStoreInterface,
	rows int,
	holdTTL time.Duration,
) *SeatService {
	if rows <= 0 {
		rows = 30
	}
	s := &SeatService{
		sessions:  sessions,
		guards:    guards,
		inventory: inventory,
		holds:     holds,
		rows:      rows,
		holdTTL:   holdTTL,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	if guards != nil {
		guards.OnClear(s.ReleaseSession)
	}
	return s
}

// WithRand replaces the random source used for random assignment.
func (s *SeatService) WithRand(rng *rand.Rand) *SeatService {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rng = rng
	return s
}

// SelectSeatsRequest contains the parameters for choosing seats on a leg.
type SelectSeatsRequest struct {
	SessionID string
	Direction domain.Direction
	Mode      domain.SeatMode // Optional: defaults to manual
	Seats     []string        // Required for manual mode
}

// SeatMap returns the seat map of a selected leg as this session sees it.
// Seats held by this session remain available to it.
func (s *SeatService) SeatMap(ctx context.Context, sessionID string, d domain.Direction) (*domain.SeatMap, error) {
	session, err := s.sessions.LoadActive(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := s.guards.Require(ctx, session, domain.StageSeats); err != nil {
		return nil, err
	}
	leg, err := legFor(session, d)
	if err != nil {
		return nil, err
	}
	return s.seatMap(ctx, session.ID, leg.TripID)
}

// Select validates and stores the seats of one leg, holding them for the session.
func (s *SeatService) Select(ctx context.Context, req SelectSeatsRequest) (*domain.SeatSelection, error) {
	session, err := s.sessions.LoadActive(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}
	if err := s.guards.Require(ctx, session, domain.StageSeats); err != nil {
		return nil, err
	}
	leg, err := legFor(session, req.Direction)
	if err != nil {
		return nil, err
	}

	mode := req.Mode
	if mode == "" {
		mode = domain.SeatModeManual
	}

	m, err := s.seatMap(ctx, session.ID, leg.TripID)
	if err != nil {
		return nil, err
	}

	pax := session.Passengers()
	var chosen []domain.SelectedSeat

	switch mode {
	case domain.SeatModeManual:
		chosen, err = pickManual(m, pax, req.Seats)
	case domain.SeatModeRandom:
		s.mu.Lock()
		chosen, err = PickRandomSeats(m, pax, s.rng)
		s.mu.Unlock()
	default:
		return nil, ErrInvalidSeatMode
	}
	if err != nil {
		return nil, err
	}

	selection := &domain.SeatSelection{
		Direction: req.Direction,
		TripID:    leg.TripID,
		Mode:      mode,
		Seats:     chosen,
	}

	if err := s.hold(ctx, session, selection); err != nil {
		return nil, err
	}

	if err := s.sessions.SaveSeats(ctx, session, selection); err != nil {
		return nil, err
	}
	if err := s.sessions.SetCheckoutReady(ctx, session, seatsComplete(session)); err != nil {
		return nil, err
	}

	return selection, nil
}

// DropSelection removes the seats of a leg and releases their holds.
func (s *SeatService) DropSelection(ctx context.Context, session *domain.CheckoutSession, d domain.Direction) error {
	previous := session.Seats[d]
	if previous == nil {
		return nil
	}
	s.release(ctx, session.ID, previous.TripID, previous.Codes())
	return s.sessions.RemoveSeats(ctx, session, d)
}

// ReleaseSession frees the holds of every seat selection stored on session.
func (s *SeatService) ReleaseSession(ctx context.Context, session *domain.CheckoutSession) {
	for _, sel := range session.Seats {
		if sel != nil {
			s.release(ctx, session.ID, sel.TripID, sel.Codes())
		}
	}
}

// ReleaseHolds frees every seat held by a session for the given reservation seats.
func (s *SeatService) ReleaseHolds(ctx context.Context, sessionID string, seats []domain.ReservationSeat) {
	byTrip := make(map[string][]string)
	for _, seat := range seats {
		byTrip[seat.TripID] = append(byTrip[seat.TripID], seat.SeatCode)
	}
	for tripID, codes := range byTrip {
		s.release(ctx, sessionID, tripID, codes)
	}
}

func (s *SeatService) seatMap(ctx context.Context, sessionID, tripID string) (*domain.SeatMap, error) {
	unavailable, err := s.inventory.Unavailable(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if unavailable == nil {
		unavailable = make(map[string]bool)
	}

	if s.holds != nil {
		codes := make([]string, 0, s.rows*len(SeatLetters))
		for row := 1; row <= s.rows; row++ {
			for _, letter := range SeatLetters {
				codes = append(codes, SeatCode(row, letter))
			}
		}
		holders, err := s.holds.Holders(ctx, tripID, codes)
		if err != nil {
			return nil, err
		}
		for code, holder := range holders {
			if holder != sessionID {
				unavailable[code] = true
			}
		}
	}

	return BuildSeatMap(tripID, s.rows, unavailable), nil
}

func (s *SeatService) hold(ctx context.Context, session *domain.CheckoutSession, selection *domain.SeatSelection) error {
	if s.holds == nil {
		return nil
	}

	ok, err := s.holds.HoldSeats(ctx, selection.TripID, session.ID, selection.Codes(), s.holdTTL)
	if err != nil {
		return err
	}
	if !ok {
		return ErrSeatUnavailable
	}

	previous := session.Seats[selection.Direction]
	if previous == nil {
		return nil
	}
	keep := make(map[string]bool)
	if previous.TripID == selection.TripID {
		for _, code := range selection.Codes() {
			keep[code] = true
		}
	}
	var stale []string
	for _, code := range previous.Codes() {
		if !keep[code] {
			stale = append(stale, code)
		}
	}
	s.release(ctx, session.ID, previous.TripID, stale)
	return nil
}

func (s *SeatService) release(ctx context.Context, sessionID, tripID string, codes []string) {
	if s.holds == nil || len(codes) == 0 {
		return
	}
	if err := s.holds.ReleaseSeats(ctx, tripID, sessionID, codes); err != nil {
		log.Printf("release seat holds failed session=%s trip=%s err=%v", sessionID, tripID, err)
	}
}

func pickManual(m *domain.SeatMap, passengers int, codes []string) ([]domain.SelectedSeat, error) {
	picker := NewSeatPicker(passengers)
	seen := make(map[string]bool, len(codes))

	for _, raw := range codes {
		code := strings.ToUpper(strings.TrimSpace(raw))
		if seen[code] {
			return nil, ErrDuplicateSeat
		}
		seen[code] = true

		seat, ok := m.Seat(code)
		if !ok {
			return nil, ErrUnknownSeat
		}
		if !seat.Available {
			return nil, ErrSeatUnavailable
		}
		if !picker.Toggle(seat) {
			return nil, ErrTooManySeats
		}
	}

	if !picker.CanContinue() {
		return nil, ErrSeatCountMismatch
	}
	return picker.Selected(), nil
}

// legFor returns the complete leg selection of d.
func legFor(session *domain.CheckoutSession, d domain.Direction) (*domain.LegSelection, error) {
	if !d.Valid() {
		return nil, ErrInvalidDirection
	}
	if d == domain.DirectionReturn && !session.Search.IsRoundTrip() {
		return nil, ErrReturnNotAllowed
	}
	leg := session.Legs[d]
	if !leg.Complete() {
		return nil, ErrLegNotSelected
	}
	return leg, nil
}

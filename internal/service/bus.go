package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"airlink/internal/domain"
)

// AirportTerminals maps an airport to the bus terminal serving it.
var AirportTerminals = map[string]string{
	"SCL": "SCL-BUS",
	"LSC": "COQ-BUS",
	"ANF": "ANF-BUS",
	"CCP": "CCP-BUS",
	"PMC": "PMC-BUS",
	"IQQ": "IQQ-BUS",
	"CJC": "CJC-BUS",
	"ZCO": "ZCO-BUS",
	"PUQ": "PUQ-BUS",
	"ARI": "ARI-BUS",
}

// DefaultBusArrivalBuffer is the minimum time between landing and the bus leaving.
const DefaultBusArrivalBuffer = 90 * time.Minute

// GroundConnectionProvider lists bus departures from a terminal.
type GroundConnectionProvider interface {
	Departures(ctx context.Context, terminal string, from, to time.Time) ([]domain.BusLeg, error)
}

// StaticRoute is a daily bus departure of the built-in schedule.
type StaticRoute struct {
	Terminal    string
	Destination string
	Operator    string
	Hour        int
	Minute      int
	Duration    time.Duration
	Price       int64
	Seats       int
}

// DefaultStaticRoutes is the schedule used when no bus inventory is stored.
var DefaultStaticRoutes = []StaticRoute{
	{Terminal: "SCL-BUS", Destination: "Santiago Centro", Operator: "TurBus", Hour: 7, Minute: 0, Duration: 45 * time.Minute, Price: 4500, Seats: 40},
	{Terminal: "SCL-BUS", Destination: "Santiago Centro", Operator: "Centropuerto", Hour: 12, Minute: 30, Duration: 45 * time.Minute, Price: 4000, Seats: 40},
	{Terminal: "SCL-BUS", Destination: "Valparaíso", Operator: "Pullman", Hour: 16, Minute: 0, Duration: 2 * time.Hour, Price: 9000, Seats: 44},
	{Terminal: "SCL-BUS", Destination: "Santiago Centro", Operator: "TurBus", Hour: 21, Minute: 15, Duration: 45 * time.Minute, Price: 4500, Seats: 40},
	{Terminal: "COQ-BUS", Destination: "Coquimbo", Operator: "Tur Transfer", Hour: 9, Minute: 0, Duration: 40 * time.Minute, Price: 5000, Seats: 30},
	{Terminal: "COQ-BUS", Destination: "La Serena Centro", Operator: "Tur Transfer", Hour: 18, Minute: 0, Duration: 25 * time.Minute, Price: 3500, Seats: 30},
	{Terminal: "ANF-BUS", Destination: "Antofagasta Centro", Operator: "Aerobus", Hour: 10, Minute: 0, Duration: 30 * time.Minute, Price: 4000, Seats: 35},
	{Terminal: "ANF-BUS", Destination: "Calama", Operator: "Tur Bus", Hour: 17, Minute: 30, Duration: 3 * time.Hour, Price: 12000, Seats: 44},
	{Terminal: "CCP-BUS", Destination: "Concepción Centro", Operator: "Buses Biobío", Hour: 8, Minute: 30, Duration: 25 * time.Minute, Price: 3000, Seats: 40},
	{Terminal: "CCP-BUS", Destination: "Talcahuano", Operator: "Buses Biobío", Hour: 19, Minute: 0, Duration: 35 * time.Minute, Price: 3500, Seats: 40},
	{Terminal: "PMC-BUS", Destination: "Puerto Varas", Operator: "Cruz del Sur", Hour: 11, Minute: 0, Duration: 30 * time.Minute, Price: 4500, Seats: 40},
	{Terminal: "IQQ-BUS", Destination: "Iquique Centro", Operator: "Aerobus", Hour: 13, Minute: 0, Duration: 40 * time.Minute, Price: 4500, Seats: 30},
	{Terminal: "CJC-BUS", Destination: "Calama Centro", Operator: "Transfer Calama", Hour: 14, Minute: 0, Duration: 20 * time.Minute, Price: 3500, Seats: 25},
	{Terminal: "ZCO-BUS", Destination: "Pucón", Operator: "JAC", Hour: 15, Minute: 0, Duration: 90 * time.Minute, Price: 8000, Seats: 40},
	{Terminal: "PUQ-BUS", Destination: "Puerto Natales", Operator: "Bus Sur", Hour: 12, Minute: 0, Duration: 3 * time.Hour, Price: 10000, Seats: 44},
	{Terminal: "ARI-BUS", Destination: "Arica Centro", Operator: "Radio Taxi Bus", Hour: 10, Minute: 30, Duration: 20 * time.Minute, Price: 3000, Seats: 20},
}

// StaticGroundConnections expands a daily schedule into dated departures.
type StaticGroundConnections struct {
	routes []StaticRoute
}

// NewStaticGroundConnections creates a provider over routes.
func NewStaticGroundConnections(routes []StaticRoute) *StaticGroundConnections {
	return &StaticGroundConnections{routes: routes}
}

func (p *StaticGroundConnections) Departures(ctx context.Context, terminal string, from, to time.Time) ([]domain.BusLeg, error) {
	var legs []domain.BusLeg
	day := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, from.Location())

	for ; day.Before(to); day = day.AddDate(0, 0, 1) {
		for _, r := range p.routes {
			if r.Terminal != terminal {
				continue
			}
			dep := day.Add(time.Duration(r.Hour)*time.Hour + time.Duration(r.Minute)*time.Minute)
			if dep.Before(from) || !dep.Before(to) {
				continue
			}
			legs = append(legs, domain.BusLeg{
				ID:          fmt.Sprintf("%s-%s-%02d%02d", r.Terminal, dep.Format("20060102"), r.Hour, r.Minute),
				Operator:    r.Operator,
				Origin:      r.Terminal,
				Destination: r.Destination,
				DepartureAt: dep,
				ArrivalAt:   dep.Add(r.Duration),
				Price:       r.Price,
				SeatsLeft:   r.Seats,
			})
		}
	}

	sort.Slice(legs, func(i, j int) bool { return legs[i].DepartureAt.Before(legs[j].DepartureAt) })
	return legs, nil
}

var _ GroundConnectionProvider = (*StaticGroundConnections)(nil)

// BusService offers ground connections after each landing.
type BusService struct {
	sessions *SessionService
	guards   *GuardService
	provider GroundConnectionProvider
	buffer   time.Duration
}

// NewBusService creates a new BusService.
func NewBusService(sessions *SessionService, guards *GuardService, provider GroundConnectionProvider, buffer time.Duration) *BusService {
	if buffer <= 0 {
		buffer = DefaultBusArrivalBuffer
	}
	return &BusService{sessions: sessions, guards: guards, provider: provider, buffer: buffer}
}

// Candidates lists the buses reachable after each required leg lands.
// Legs landing at an airport without a terminal get an empty list.
func (s *BusService) Candidates(ctx context.Context, sessionID string) (map[domain.Direction][]domain.BusLeg, error) {
	session, err := s.sessions.LoadActive(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := s.guards.Require(ctx, session, domain.StageBus); err != nil {
		return nil, err
	}
	return s.candidates(ctx, session)
}

// SelectBusRequest contains the chosen bus per direction.
type SelectBusRequest struct {
	SessionID string
	Choices   map[domain.Direction]string
}

// Select stores the chosen buses. Every choice must be one of the candidates.
func (s *BusService) Select(ctx context.Context, req SelectBusRequest) (*domain.BusSelection, error) {
	session, err := s.sessions.LoadActive(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}
	if err := s.guards.Require(ctx, session, domain.StageBus); err != nil {
		return nil, err
	}
	if len(req.Choices) == 0 {
		return nil, ErrUnknownBus
	}

	candidates, err := s.candidates(ctx, session)
	if err != nil {
		return nil, err
	}

	selection := &domain.BusSelection{Legs: make(map[domain.Direction]domain.BusLeg, len(req.Choices))}
	for d, busID := range req.Choices {
		if !d.Valid() {
			return nil, ErrInvalidDirection
		}
		found := false
		for _, leg := range candidates[d] {
			if leg.ID == busID {
				selection.Legs[d] = leg
				found = true
				break
			}
		}
		if !found {
			return nil, ErrUnknownBus
		}
	}

	if err := s.sessions.SaveBus(ctx, session, selection); err != nil {
		return nil, err
	}
	return selection, nil
}

// Skip records that no ground connection is wanted.
func (s *BusService) Skip(ctx context.Context, sessionID string) (*domain.BusSelection, error) {
	session, err := s.sessions.LoadActive(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := s.guards.Require(ctx, session, domain.StageBus); err != nil {
		return nil, err
	}

	selection := &domain.BusSelection{Skipped: true}
	if err := s.sessions.SaveBus(ctx, session, selection); err != nil {
		return nil, err
	}
	return selection, nil
}

func (s *BusService) candidates(ctx context.Context, session *domain.CheckoutSession) (map[domain.Direction][]domain.BusLeg, error) {
	pax := session.Passengers()
	out := make(map[domain.Direction][]domain.BusLeg)

	for _, d := range session.RequiredDirections() {
		leg := session.Legs[d]
		out[d] = []domain.BusLeg{}
		terminal, ok := AirportTerminals[leg.Destination]
		if !ok {
			continue
		}

		from := leg.ArrivalAt.Add(s.buffer)
		arrivalDay := time.Date(leg.ArrivalAt.Year(), leg.ArrivalAt.Month(), leg.ArrivalAt.Day(), 0, 0, 0, 0, leg.ArrivalAt.Location())
		to := arrivalDay.AddDate(0, 0, 2)

		departures, err := s.provider.Departures(ctx, terminal, from, to)
		if err != nil {
			return nil, err
		}
		for _, bus := range departures {
			if bus.SeatsLeft < pax {
				continue
			}
			bus.WaitLabel = WaitLabel(bus.DepartureAt.Sub(leg.ArrivalAt))
			out[d] = append(out[d], bus)
		}
	}
	return out, nil
}

// WaitLabel formats the layover between landing and the bus, e.g. "1h 45m wait".
func WaitLabel(wait time.Duration) string {
	if wait < 0 {
		wait = 0
	}
	minutes := int(wait.Minutes())
	h, m := minutes/60, minutes%60
	switch {
	case h == 0:
		return fmt.Sprintf("%dm wait", m)
	case m == 0:
		return fmt.Sprintf("%dh wait", h)
	default:
		return fmt.Sprintf("%dh %dm wait", h, m)
	}
}

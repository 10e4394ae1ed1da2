package tests

import (
	"context"
	"testing"
	"time"

	"airlink/internal/domain"
	"airlink/internal/flow"
	"airlink/internal/payments"
	"airlink/internal/service"
)

const (
	outboundTripID = "trip-scl-lsc"
	returnTripID   = "trip-lsc-scl"
	outboundFareID = "fare-out-standard"
	returnFareID   = "fare-ret-light"
)

// checkoutEnv wires every checkout service over in-memory mocks.
type checkoutEnv struct {
	backend      *flow.MemoryBackend
	trips        *MockTripRepository
	inventory    *MockSeatInventory
	holds        *MockSeatHoldStore
	buses        *MockBusProvider
	coupons      *MockCouponRepository
	reservations *MockReservationRepository
	payments     *MockPaymentRepository
	processor    *FakeProcessor

	sessions  *service.SessionService
	guards    *service.GuardService
	checkout  *service.CheckoutService
	seats     *service.SeatService
	bus       *service.BusService
	coupon    *service.CouponService
	passenger *service.PassengerService
	payment   *service.PaymentService
	search    *service.SearchService
	legacy    *service.LegacyImportService

	departure time.Time
	returning time.Time
}

func newCheckoutEnv(t *testing.T) *checkoutEnv {
	t.Helper()

	env := &checkoutEnv{
		backend:   flow.NewMemoryBackend(),
		trips:     NewMockTripRepository(),
		inventory: NewMockSeatInventory(),
		holds:     NewMockSeatHoldStore(),
		buses:     NewMockBusProvider(),
		coupons:   NewMockCouponRepository(),
		payments:  NewMockPaymentRepository(),
		processor: NewFakeProcessor(domain.ProcessorStripe),
	}
	env.reservations = NewMockReservationRepository(env.payments)

	day := time.Now().UTC().AddDate(0, 0, 14)
	env.departure = time.Date(day.Year(), day.Month(), day.Day(), 8, 0, 0, 0, time.UTC)
	env.returning = env.departure.AddDate(0, 0, 5)

	env.trips.AddTrip(&domain.Trip{
		ID:          outboundTripID,
		FlightCode:  "AL101",
		Carrier:     "AirLink",
		Origin:      "SCL",
		Destination: "LSC",
		CabinClass:  "economy",
		DepartureAt: env.departure,
		ArrivalAt:   env.departure.Add(time.Hour),
	},
		&domain.Fare{ID: outboundFareID, Name: domain.FareStandard, Price: 50000, SeatsLeft: 9},
		&domain.Fare{ID: "fare-out-last", Name: domain.FareLight, Price: 40000, SeatsLeft: 1},
	)
	env.trips.AddTrip(&domain.Trip{
		ID:          returnTripID,
		FlightCode:  "AL102",
		Carrier:     "AirLink",
		Origin:      "LSC",
		Destination: "SCL",
		CabinClass:  "economy",
		DepartureAt: env.returning,
		ArrivalAt:   env.returning.Add(time.Hour),
	},
		&domain.Fare{ID: returnFareID, Name: domain.FareLight, Price: 45000, SeatsLeft: 9},
	)

	store := flow.NewStore(env.backend, time.Hour)
	env.sessions = service.NewSessionService(store)
	env.guards = service.NewGuardService(env.sessions)
	env.seats = service.NewSeatService(env.sessions, env.guards, env.inventory, env.holds, 30, time.Hour)
	env.checkout = service.NewCheckoutService(env.sessions, env.guards, env.trips, env.seats)
	env.bus = service.NewBusService(env.sessions, env.guards, env.buses, 0)
	env.coupon = service.NewCouponService(env.coupons, env.sessions, env.guards, nil, 10000)
	env.passenger = service.NewPassengerService(env.sessions, env.guards)
	env.search = service.NewSearchService(env.trips, nil)
	env.legacy = service.NewLegacyImportService(env.checkout, env.seats, env.sessions, env.trips)
	env.payment = service.NewPaymentService(
		env.sessions,
		env.guards,
		env.coupon,
		env.seats,
		env.reservations,
		env.payments,
		payments.NewRegistry(env.processor, payments.NewMockPSP()),
		service.NewNotificationService(nil),
		service.NewReceiptService(),
		service.PaymentURLs{FrontendURL: "https://airlink.example", APIBaseURL: "https://api.airlink.example"},
	)
	return env
}

func (e *checkoutEnv) departureDate() string { return e.departure.Format("2006-01-02") }
func (e *checkoutEnv) returnDate() string    { return e.returning.Format("2006-01-02") }

// startOneWay opens a one-way SCL-LSC checkout.
func (e *checkoutEnv) startOneWay(t *testing.T, pax int) *domain.CheckoutSession {
	t.Helper()
	session, err := e.checkout.Start(context.Background(), domain.SearchCriteria{
		Origin:        "SCL",
		Destination:   "LSC",
		DepartureDate: e.departureDate(),
		Passengers:    pax,
	})
	if err != nil {
		t.Fatalf("start checkout: %v", err)
	}
	return session
}

// startRoundTrip opens a round-trip SCL-LSC checkout.
func (e *checkoutEnv) startRoundTrip(t *testing.T, pax int) *domain.CheckoutSession {
	t.Helper()
	session, err := e.checkout.Start(context.Background(), domain.SearchCriteria{
		Origin:        "SCL",
		Destination:   "LSC",
		DepartureDate: e.departureDate(),
		ReturnDate:    e.returnDate(),
		Passengers:    pax,
	})
	if err != nil {
		t.Fatalf("start checkout: %v", err)
	}
	return session
}

func (e *checkoutEnv) selectLeg(t *testing.T, sessionID string, d domain.Direction) {
	t.Helper()
	tripID, fareID := outboundTripID, outboundFareID
	if d == domain.DirectionReturn {
		tripID, fareID = returnTripID, returnFareID
	}
	if _, err := e.checkout.SelectLeg(context.Background(), service.SelectLegRequest{
		SessionID: sessionID,
		Direction: d,
		TripID:    tripID,
		FareID:    fareID,
	}); err != nil {
		t.Fatalf("select %s leg: %v", d, err)
	}
}

func (e *checkoutEnv) selectSeats(t *testing.T, sessionID string, d domain.Direction, mode domain.SeatMode, codes ...string) *domain.SeatSelection {
	t.Helper()
	sel, err := e.seats.Select(context.Background(), service.SelectSeatsRequest{
		SessionID: sessionID,
		Direction: d,
		Mode:      mode,
		Seats:     codes,
	})
	if err != nil {
		t.Fatalf("select %s seats: %v", d, err)
	}
	return sel
}

func (e *checkoutEnv) savePassenger(t *testing.T, sessionID string) {
	t.Helper()
	if _, err := e.passenger.Save(context.Background(), sessionID, validPassenger()); err != nil {
		t.Fatalf("save passenger: %v", err)
	}
}

func validPassenger() domain.PassengerProfile {
	return domain.PassengerProfile{
		Name:           "Camila",
		Surname:        "Rojas",
		BirthDate:      "1990-05-10",
		Gender:         "Femenino",
		DocumentType:   domain.DocumentRUT,
		DocumentNumber: "12.345.678-5",
		Email:          "camila.rojas@example.com",
		Phone:          "+56912345678",
	}
}

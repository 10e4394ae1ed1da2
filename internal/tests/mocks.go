package tests

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"airlink/internal/domain"
	"airlink/internal/payments"
	"airlink/internal/redis"
	"airlink/internal/repository"
)

// ──────────────────────────────────────────────
// MOCK TRIP REPOSITORY
// ──────────────────────────────────────────────

// MockTripRepository is a mock implementation of TripRepository.
type MockTripRepository struct {
	mu    sync.RWMutex
	trips map[string]*domain.Trip
	fares map[string][]*domain.Fare

	// Counters for verification
	SearchCallCount int32

	// Error injection
	SearchError error
}

// NewMockTripRepository creates a new mock trip repository.
func NewMockTripRepository() *MockTripRepository {
	return &MockTripRepository{
		trips: make(map[string]*domain.Trip),
		fares: make(map[string][]*domain.Fare),
	}
}

// AddTrip adds a trip and its fares to the mock repository.
func (m *MockTripRepository) AddTrip(trip *domain.Trip, fares ...*domain.Fare) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trips[trip.ID] = trip
	for _, f := range fares {
		f.TripID = trip.ID
		if f.Currency == "" {
			f.Currency = "CLP"
		}
	}
	m.fares[trip.ID] = append(m.fares[trip.ID], fares...)
}

func (m *MockTripRepository) Search(ctx context.Context, q repository.TripSearch) ([]*domain.Trip, error) {
	atomic.AddInt32(&m.SearchCallCount, 1)
	if m.SearchError != nil {
		return nil, m.SearchError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*domain.Trip
	for _, t := range m.trips {
		if t.Origin != q.Origin || t.Destination != q.Destination {
			continue
		}
		if t.DepartureAt.Format("2006-01-02") != q.Date.Format("2006-01-02") {
			continue
		}
		if q.CabinClass != "" && t.CabinClass != q.CabinClass {
			continue
		}
		copy := *t
		out = append(out, &copy)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DepartureAt.Before(out[j].DepartureAt) })
	return out, nil
}

func (m *MockTripRepository) GetByID(ctx context.Context, id string) (*domain.Trip, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	trip, ok := m.trips[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *trip
	return &copy, nil
}

func (m *MockTripRepository) ListFares(ctx context.Context, tripID string) ([]*domain.Fare, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*domain.Fare, 0, len(m.fares[tripID]))
	for _, f := range m.fares[tripID] {
		copy := *f
		out = append(out, &copy)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Price < out[j].Price })
	return out, nil
}

func (m *MockTripRepository) GetFare(ctx context.Context, tripID, fareID string) (*domain.Fare, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, f := range m.fares[tripID] {
		if f.ID == fareID {
			copy := *f
			return &copy, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *MockTripRepository) MinPricesByDay(ctx context.Context, origin, destination string, from time.Time, days int) (map[string]int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	to := from.AddDate(0, 0, days)
	out := make(map[string]int64)
	for _, t := range m.trips {
		if t.Origin != origin || t.Destination != destination {
			continue
		}
		if t.DepartureAt.Before(from) || !t.DepartureAt.Before(to) {
			continue
		}
		day := t.DepartureAt.Format("2006-01-02")
		for _, f := range m.fares[t.ID] {
			if f.SeatsLeft <= 0 {
				continue
			}
			if cur, ok := out[day]; !ok || f.Price < cur {
				out[day] = f.Price
			}
		}
	}
	return out, nil
}

// ──────────────────────────────────────────────
// MOCK SEAT INVENTORY AND HOLDS
// ──────────────────────────────────────────────

// MockSeatInventory reports a fixed set of sold seats per trip.
type MockSeatInventory struct {
	mu   sync.RWMutex
	sold map[string]map[string]bool
}

// NewMockSeatInventory creates an inventory where every seat is free.
func NewMockSeatInventory() *MockSeatInventory {
	return &MockSeatInventory{sold: make(map[string]map[string]bool)}
}

// MarkSold marks seats of a trip as sold.
func (m *MockSeatInventory) MarkSold(tripID string, codes ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sold[tripID] == nil {
		m.sold[tripID] = make(map[string]bool)
	}
	for _, c := range codes {
		m.sold[tripID][c] = true
	}
}

func (m *MockSeatInventory) Unavailable(ctx context.Context, tripID string) (map[string]bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]bool, len(m.sold[tripID]))
	for c := range m.sold[tripID] {
		out[c] = true
	}
	return out, nil
}

// MockSeatHoldStore is an in-memory implementation of SeatHoldStoreInterface.
type MockSeatHoldStore struct {
	mu    sync.Mutex
	holds map[string]string // trip|seat -> holder

	ReleaseCallCount int32
}

// NewMockSeatHoldStore creates a new mock seat hold store.
func NewMockSeatHoldStore() *MockSeatHoldStore {
	return &MockSeatHoldStore{holds: make(map[string]string)}
}

func holdKey(tripID, code string) string { return tripID + "|" + code }

func (m *MockSeatHoldStore) HoldSeats(ctx context.Context, tripID, holderID string, seatCodes []string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range seatCodes {
		if h, ok := m.holds[holdKey(tripID, c)]; ok && h != holderID {
			return false, nil
		}
	}
	for _, c := range seatCodes {
		m.holds[holdKey(tripID, c)] = holderID
	}
	return true, nil
}

func (m *MockSeatHoldStore) ReleaseSeats(ctx context.Context, tripID, holderID string, seatCodes []string) error {
	atomic.AddInt32(&m.ReleaseCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range seatCodes {
		if m.holds[holdKey(tripID, c)] == holderID {
			delete(m.holds, holdKey(tripID, c))
		}
	}
	return nil
}

func (m *MockSeatHoldStore) Holders(ctx context.Context, tripID string, seatCodes []string) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]string)
	for _, c := range seatCodes {
		if h, ok := m.holds[holdKey(tripID, c)]; ok {
			out[c] = h
		}
	}
	return out, nil
}

// Holder returns who holds a seat, for test assertions.
func (m *MockSeatHoldStore) Holder(tripID, code string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.holds[holdKey(tripID, code)]
}

var _ redis.SeatHoldStoreInterface = (*MockSeatHoldStore)(nil)

// ──────────────────────────────────────────────
// MOCK BUS PROVIDER
// ──────────────────────────────────────────────

// MockBusProvider serves fixed departures per terminal.
type MockBusProvider struct {
	mu   sync.RWMutex
	legs map[string][]domain.BusLeg
}

// NewMockBusProvider creates a provider without departures.
func NewMockBusProvider() *MockBusProvider {
	return &MockBusProvider{legs: make(map[string][]domain.BusLeg)}
}

// AddDeparture adds a departure from its origin terminal.
func (m *MockBusProvider) AddDeparture(leg domain.BusLeg) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.legs[leg.Origin] = append(m.legs[leg.Origin], leg)
}

func (m *MockBusProvider) Departures(ctx context.Context, terminal string, from, to time.Time) ([]domain.BusLeg, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.BusLeg
	for _, leg := range m.legs[terminal] {
		if leg.DepartureAt.Before(from) || !leg.DepartureAt.Before(to) {
			continue
		}
		out = append(out, leg)
	}
	return out, nil
}

// ──────────────────────────────────────────────
// MOCK COUPON REPOSITORY
// ──────────────────────────────────────────────

// MockCouponRepository is a mock implementation of CouponRepository.
type MockCouponRepository struct {
	mu      sync.RWMutex
	coupons map[string]*domain.Coupon

	ListActiveCallCount int32
}

// NewMockCouponRepository creates a new mock coupon repository.
func NewMockCouponRepository() *MockCouponRepository {
	return &MockCouponRepository{coupons: make(map[string]*domain.Coupon)}
}

// AddCoupon adds a coupon to the mock repository.
func (m *MockCouponRepository) AddCoupon(c *domain.Coupon) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.coupons[strings.ToUpper(c.Code)] = c
}

func (m *MockCouponRepository) GetByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.coupons[strings.ToUpper(code)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *c
	return &copy, nil
}

func (m *MockCouponRepository) ListActive(ctx context.Context) ([]*domain.Coupon, error) {
	atomic.AddInt32(&m.ListActiveCallCount, 1)
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.Coupon
	for _, c := range m.coupons {
		if c.Active {
			copy := *c
			out = append(out, &copy)
		}
	}
	return out, nil
}

// ──────────────────────────────────────────────
// MOCK RESERVATION AND PAYMENT REPOSITORIES
// ──────────────────────────────────────────────

// MockPaymentRepository is a mock implementation of PaymentRepository.
type MockPaymentRepository struct {
	mu       sync.RWMutex
	payments map[string]*domain.Payment

	UpdateStatusCallCount int32
}

// NewMockPaymentRepository creates a new mock payment repository.
func NewMockPaymentRepository() *MockPaymentRepository {
	return &MockPaymentRepository{payments: make(map[string]*domain.Payment)}
}

func (m *MockPaymentRepository) put(p *domain.Payment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *p
	m.payments[p.ID] = &copy
}

func (m *MockPaymentRepository) GetByID(ctx context.Context, id string) (*domain.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.payments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *p
	return &copy, nil
}

func (m *MockPaymentRepository) GetByReservationID(ctx context.Context, reservationID string) (*domain.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.payments {
		if p.ReservationID == reservationID {
			copy := *p
			return &copy, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *MockPaymentRepository) AttachExternal(ctx context.Context, id string, processor domain.Processor, externalID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[id]
	if !ok {
		return repository.ErrNotFound
	}
	p.Processor = processor
	p.ExternalID = externalID
	return nil
}

func (m *MockPaymentRepository) UpdateStatus(ctx context.Context, id string, status domain.PaymentStatus) error {
	atomic.AddInt32(&m.UpdateStatusCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[id]
	if !ok {
		return repository.ErrNotFound
	}
	p.Status = status
	return nil
}

// MockReservationRepository is a mock implementation of ReservationRepository.
// Payments are kept in the linked payment repository.
type MockReservationRepository struct {
	mu           sync.RWMutex
	reservations map[string]*domain.Reservation
	payments     *MockPaymentRepository

	// Counters for verification
	CreateCallCount int32

	// Error injection
	CreateError error
}

// NewMockReservationRepository creates a new mock reservation repository.
func NewMockReservationRepository(payments *MockPaymentRepository) *MockReservationRepository {
	return &MockReservationRepository{
		reservations: make(map[string]*domain.Reservation),
		payments:     payments,
	}
}

func (m *MockReservationRepository) Create(ctx context.Context, res *domain.Reservation) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.reservations {
		if r.IdempotencyKey == res.IdempotencyKey || r.Code == res.Code {
			return repository.ErrConflict
		}
	}
	copy := *res
	copy.Payment = nil
	m.reservations[res.ID] = &copy
	if res.Payment != nil {
		m.payments.put(res.Payment)
	}
	return nil
}

func (m *MockReservationRepository) GetByCode(ctx context.Context, code string) (*domain.Reservation, error) {
	return m.find(ctx, func(r *domain.Reservation) bool { return r.Code == code })
}

func (m *MockReservationRepository) GetByIdempotencyKey(ctx context.Context, key string) (*domain.Reservation, error) {
	res, err := m.find(ctx, func(r *domain.Reservation) bool { return r.IdempotencyKey == key })
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	return res, err
}

func (m *MockReservationRepository) UpdateStatus(ctx context.Context, id string, status domain.ReservationStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reservations[id]
	if !ok {
		return repository.ErrNotFound
	}
	r.Status = status
	return nil
}

// Count returns the number of stored reservations.
func (m *MockReservationRepository) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.reservations)
}

func (m *MockReservationRepository) find(ctx context.Context, match func(*domain.Reservation) bool) (*domain.Reservation, error) {
	m.mu.RLock()
	var found *domain.Reservation
	for _, r := range m.reservations {
		if match(r) {
			copy := *r
			found = &copy
			break
		}
	}
	m.mu.RUnlock()

	if found == nil {
		return nil, repository.ErrNotFound
	}
	if p, err := m.payments.GetByReservationID(ctx, found.ID); err == nil {
		found.Payment = p
	}
	return found, nil
}

// ──────────────────────────────────────────────
// FAKE PAYMENT PROCESSOR
// ──────────────────────────────────────────────

// FakeProcessor records gateway calls and answers webhooks with a preset event.
type FakeProcessor struct {
	mu   sync.Mutex
	name domain.Processor
	last *payments.CheckoutRequest

	// Counters for verification
	CreateCheckoutCallCount int32

	// Error injection
	CheckoutError error
	WebhookError  error

	// Event returned by ParseWebhook
	Event *payments.WebhookEvent
}

// NewFakeProcessor creates a fake gateway registered under name.
func NewFakeProcessor(name domain.Processor) *FakeProcessor {
	return &FakeProcessor{name: name}
}

func (p *FakeProcessor) Name() domain.Processor { return p.name }

func (p *FakeProcessor) CreateCheckout(ctx context.Context, req payments.CheckoutRequest) (*payments.CheckoutResult, error) {
	atomic.AddInt32(&p.CreateCheckoutCallCount, 1)
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.CheckoutError != nil {
		return nil, p.CheckoutError
	}
	copy := req
	p.last = &copy
	return &payments.CheckoutResult{
		ExternalID:  "ext_" + req.PaymentID,
		RedirectURL: "https://pay.example/" + string(p.name) + "/" + req.ReservationCode,
	}, nil
}

func (p *FakeProcessor) ParseWebhook(ctx context.Context, payload []byte, header http.Header) (*payments.WebhookEvent, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.WebhookError != nil {
		return nil, p.WebhookError
	}
	if p.Event == nil {
		return &payments.WebhookEvent{Outcome: payments.OutcomeIgnored}, nil
	}
	copy := *p.Event
	return &copy, nil
}

// LastRequest returns the last checkout request sent to the gateway.
func (p *FakeProcessor) LastRequest() *payments.CheckoutRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}

// SetCheckoutError changes the injected checkout error.
func (p *FakeProcessor) SetCheckoutError(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.CheckoutError = err
}

// SetEvent changes the event returned by ParseWebhook.
func (p *FakeProcessor) SetEvent(ev *payments.WebhookEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Event = ev
}

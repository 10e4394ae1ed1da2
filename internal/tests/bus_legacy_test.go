package tests

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"airlink/internal/domain"
	"airlink/internal/service"
)

// ──────────────────────────────────────────────
// 1. GROUND CONNECTIONS
// ──────────────────────────────────────────────

func TestWaitLabel(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		wait time.Duration
		want string
	}{
		{wait: 45 * time.Minute, want: "45m wait"},
		{wait: 2 * time.Hour, want: "2h wait"},
		{wait: 2*time.Hour + 15*time.Minute, want: "2h 15m wait"},
		{wait: -time.Minute, want: "0m wait"},
	}

	for _, tc := range testCases {
		if got := service.WaitLabel(tc.wait); got != tc.want {
			t.Errorf("WaitLabel(%s): expected %q, got %q", tc.wait, tc.want, got)
		}
	}
}

func TestStaticGroundConnections_ExpandsDailySchedule(t *testing.T) {
	t.Parallel()

	provider := service.NewStaticGroundConnections(service.DefaultStaticRoutes)
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	legs, err := provider.Departures(context.Background(), "COQ-BUS", day, day.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("departures: %v", err)
	}
	if len(legs) != 2 {
		t.Fatalf("expected 2 departures, got %d", len(legs))
	}
	if legs[0].ID != "COQ-BUS-20260310-0900" || legs[1].DepartureAt.Hour() != 18 {
		t.Errorf("unexpected departures: %+v", legs)
	}

	later, _ := provider.Departures(context.Background(), "COQ-BUS", day.Add(10*time.Hour), day.AddDate(0, 0, 1))
	if len(later) != 1 {
		t.Errorf("expected only the evening departure, got %d", len(later))
	}
}

func TestBusCandidates_RespectBufferAndCapacity(t *testing.T) {
	t.Parallel()
	env := newCheckoutEnv(t)
	ctx := context.Background()

	// the outbound leg lands at LSC at 09:00
	landing := env.departure.Add(time.Hour)
	env.buses.AddDeparture(domain.BusLeg{ID: "too-early", Origin: "COQ-BUS", DepartureAt: landing.Add(30 * time.Minute), Price: 5000, SeatsLeft: 10})
	env.buses.AddDeparture(domain.BusLeg{ID: "ok", Origin: "COQ-BUS", DepartureAt: landing.Add(2*time.Hour + 15*time.Minute), Price: 5000, SeatsLeft: 10})
	env.buses.AddDeparture(domain.BusLeg{ID: "full", Origin: "COQ-BUS", DepartureAt: landing.Add(3 * time.Hour), Price: 5000, SeatsLeft: 0})
	env.buses.AddDeparture(domain.BusLeg{ID: "too-late", Origin: "COQ-BUS", DepartureAt: landing.AddDate(0, 0, 3), Price: 5000, SeatsLeft: 10})

	session := env.startOneWay(t, 1)
	env.selectLeg(t, session.ID, domain.DirectionOutbound)
	env.selectSeats(t, session.ID, domain.DirectionOutbound, domain.SeatModeRandom)

	candidates, err := env.bus.Candidates(ctx, session.ID)
	if err != nil {
		t.Fatalf("candidates: %v", err)
	}
	out := candidates[domain.DirectionOutbound]
	if len(out) != 1 || out[0].ID != "ok" {
		t.Fatalf("expected only the reachable bus, got %+v", out)
	}
	if out[0].WaitLabel != "2h 15m wait" {
		t.Errorf("expected wait label, got %q", out[0].WaitLabel)
	}
}

func TestBusSelect_PricedPerPassenger(t *testing.T) {
	t.Parallel()
	env := newCheckoutEnv(t)
	ctx := context.Background()

	env.buses.AddDeparture(domain.BusLeg{
		ID:          "coq-1",
		Operator:    "Tur Transfer",
		Origin:      "COQ-BUS",
		Destination: "Coquimbo",
		DepartureAt: env.departure.Add(3 * time.Hour),
		Price:       5000,
		SeatsLeft:   10,
	})

	session := env.startOneWay(t, 2)
	env.selectLeg(t, session.ID, domain.DirectionOutbound)
	env.selectSeats(t, session.ID, domain.DirectionOutbound, domain.SeatModeRandom)

	if _, err := env.bus.Select(ctx, service.SelectBusRequest{
		SessionID: session.ID,
		Choices:   map[domain.Direction]string{domain.DirectionOutbound: "nope"},
	}); !errors.Is(err, service.ErrUnknownBus) {
		t.Errorf("expected ErrUnknownBus, got %v", err)
	}

	if _, err := env.bus.Select(ctx, service.SelectBusRequest{
		SessionID: session.ID,
		Choices:   map[domain.Direction]string{domain.DirectionOutbound: "coq-1"},
	}); err != nil {
		t.Fatalf("select bus: %v", err)
	}

	loaded, _ := env.sessions.LoadActive(ctx, session.ID)
	quote := service.QuoteSession(loaded)
	var busLine *domain.ReservationLine
	for i := range quote.Lines {
		if quote.Lines[i].Kind == domain.LineBus {
			busLine = &quote.Lines[i]
		}
	}
	if busLine == nil || busLine.Amount != 10000 {
		t.Fatalf("expected a 2 x 5000 bus line, got %+v", quote.Lines)
	}
	if quote.Total != 2*50000+10000 {
		t.Errorf("expected total 110000, got %d", quote.Total)
	}

	// skipping replaces the selection
	if _, err := env.bus.Skip(ctx, session.ID); err != nil {
		t.Fatalf("skip: %v", err)
	}
	loaded, _ = env.sessions.LoadActive(ctx, session.ID)
	if loaded.Bus == nil || !loaded.Bus.Skipped || service.QuoteSession(loaded).Total != 100000 {
		t.Errorf("expected skipped bus with no charge, got %+v", loaded.Bus)
	}
}

func TestBusCandidates_BeforeSeats_Blocked(t *testing.T) {
	t.Parallel()
	env := newCheckoutEnv(t)

	session := env.startOneWay(t, 1)
	env.selectLeg(t, session.ID, domain.DirectionOutbound)

	if _, err := env.bus.Candidates(context.Background(), session.ID); !errors.Is(err, service.ErrStageBlocked) {
		t.Errorf("expected ErrStageBlocked, got %v", err)
	}
}

// ──────────────────────────────────────────────
// 2. LEGACY IMPORT
// ──────────────────────────────────────────────

func TestLegacyImport_RebuildsCheckout(t *testing.T) {
	t.Parallel()
	env := newCheckoutEnv(t)

	blob := map[string]any{
		"searchState": map[string]any{
			"origen":    "scl",
			"destino":   "lsc",
			"fechaIda":  env.departureDate() + "T00:00:00.000Z",
			"pasajeros": "2",
		},
		"vueloIda": map[string]any{
			"idViaje":      outboundTripID,
			"tarifaNombre": "standard",
		},
		"asientosIda": []any{
			map[string]any{"codigo": "12A"},
			"12B",
		},
	}

	result, err := env.legacy.Import(context.Background(), blob)
	if err != nil {
		t.Fatalf("import: %v", err)
	}

	want := []string{"search", "leg.outbound", "seats.outbound"}
	if strings.Join(result.Imported, ",") != strings.Join(want, ",") {
		t.Errorf("expected imported %v, got %v (skipped %v)", want, result.Imported, result.Skipped)
	}

	session := result.Session
	if session.Passengers() != 2 {
		t.Errorf("expected 2 passengers, got %d", session.Passengers())
	}
	if leg := session.Legs[domain.DirectionOutbound]; leg == nil || leg.FareID != outboundFareID || leg.Price != 50000 {
		t.Errorf("expected the standard fare from the catalogue, got %+v", leg)
	}
	if sel := session.Seats[domain.DirectionOutbound]; sel == nil || len(sel.Seats) != 2 {
		t.Errorf("expected 2 imported seats, got %+v", sel)
	}
	if holder := env.holds.Holder(outboundTripID, "12A"); holder != session.ID {
		t.Errorf("expected imported seat to be held by the new session, got %q", holder)
	}
}

func TestLegacyImport_SkipsWhatNoLongerResolves(t *testing.T) {
	t.Parallel()
	env := newCheckoutEnv(t)

	blob := map[string]any{
		"busqueda": map[string]any{
			"origen":      "SCL",
			"destino":     "LSC",
			"fechaIda":    env.departureDate(),
			"fechaVuelta": env.returnDate(),
		},
		"vueloIda":       map[string]any{"idViaje": "gone"},
		"vueloVuelta":    map[string]any{"id": returnTripID, "precio": 45000},
		"asientosVuelta": []any{"99Z"},
	}

	result, err := env.legacy.Import(context.Background(), blob)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if _, ok := result.Skipped["leg.outbound"]; !ok {
		t.Errorf("expected the unknown outbound trip to be skipped, got %v", result.Skipped)
	}
	if !result.Session.Search.IsRoundTrip() {
		t.Error("expected a round-trip search")
	}
}

func TestLegacyImport_RequiresSearch(t *testing.T) {
	t.Parallel()
	env := newCheckoutEnv(t)

	_, err := env.legacy.Import(context.Background(), map[string]any{"vueloIda": map[string]any{"idViaje": outboundTripID}})
	if !errors.Is(err, service.ErrInvalidImport) {
		t.Errorf("expected ErrInvalidImport, got %v", err)
	}
}

// ──────────────────────────────────────────────
// 3. RECEIPTS AND CODES
// ──────────────────────────────────────────────

func TestGenerateReservationCode(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 9, 15, 0, 0, 0, time.UTC)
	re := regexp.MustCompile(`^RES260309[A-Z0-9]{4}$`)

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		code := service.GenerateReservationCode(now)
		if !re.MatchString(code) {
			t.Fatalf("unexpected code format: %s", code)
		}
		seen[code] = true
	}
	if len(seen) < 45 {
		t.Errorf("expected mostly distinct codes, got %d of 50", len(seen))
	}
}

func TestReceipt_FormatsDiscountAndTotals(t *testing.T) {
	t.Parallel()

	paidAt := time.Date(2026, 3, 9, 15, 0, 0, 0, time.UTC)
	res := &domain.Reservation{
		Code:      "RES260309ABCD",
		Passenger: validPassenger(),
		Lines: []domain.ReservationLine{
			{Kind: domain.LineOutboundFlight, Description: "AL101 SCL-LSC Standard", Quantity: 2, UnitPrice: 50000, Amount: 100000},
			{Kind: domain.LineDiscount, Description: "Coupon AHORRA10", Quantity: 1, UnitPrice: -10000, Amount: -10000},
		},
		Discount: 10000,
		Total:    90000,
		Currency: "CLP",
		Payment: &domain.Payment{
			Processor: domain.ProcessorStripe,
			Status:    domain.PaymentStatusConfirmed,
			UpdatedAt: paidAt,
		},
	}

	receipts := service.NewReceiptService()
	receipt := receipts.GenerateReceipt(res)
	if receipt.Subtotal != 100000 {
		t.Errorf("expected subtotal without the discount line, got %d", receipt.Subtotal)
	}
	if !receipt.PaidAt.Equal(paidAt) {
		t.Errorf("expected paid at %s, got %s", paidAt, receipt.PaidAt)
	}

	text := receipts.FormatReceipt(receipt)
	for _, want := range []string{"RES260309ABCD", "$100.000", "-$10.000", "$90.000 CLP", "Status: CONFIRMED"} {
		if !strings.Contains(text, want) {
			t.Errorf("expected receipt to contain %q:\n%s", want, text)
		}
	}
}

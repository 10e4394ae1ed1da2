package service

import (
	"context"
	"strings"

	"github.com/spf13/cast"

	"airlink/internal/domain"
	"airlink/internal/repository"
)

// legacyLeg names the blob keys of one direction.
type legacyLeg struct {
	direction domain.Direction
	flight    string
	fares     []string
	seats     []string
}

var legacyLegs = []legacyLeg{
	{
		direction: domain.DirectionOutbound,
		flight:    "vueloIda",
		fares:     []string{"tarifaIda", "precioIda", "fareIda"},
		seats:     []string{"asientosIda", "asientosSeleccionados"},
	},
	{
		direction: domain.DirectionReturn,
		flight:    "vueloVuelta",
		fares:     []string{"tarifaVuelta", "precioVuelta", "fareVuelta"},
		seats:     []string{"asientosVuelta"},
	},
}

// LegacyImportResult is the checkout rebuilt from a browser-storage blob.
type LegacyImportResult struct {
	Session  *domain.CheckoutSession
	Imported []string
	Skipped  map[string]string
}

// LegacyImportService rebuilds a checkout from the loosely typed state older
// clients kept in browser storage. Every value goes through the regular stage
// operations, so prices and seats are re-checked against the catalogue.
type LegacyImportService struct {
	checkout *CheckoutService
	seats    *SeatService
	sessions *SessionService
	tripRepo repository.TripRepository
}

// NewLegacyImportService creates a new LegacyImportService.
func NewLegacyImportService(checkout *CheckoutService, seats *SeatService, sessions *SessionService, tripRepo repository.TripRepository) *LegacyImportService {
	return &LegacyImportService{checkout: checkout, seats: seats, sessions: sessions, tripRepo: tripRepo}
}

// Import opens a new checkout from blob. The search is mandatory; legs and
// seats that no longer resolve are reported in Skipped.
func (s *LegacyImportService) Import(ctx context.Context, blob map[string]any) (*LegacyImportResult, error) {
	search := firstMap(blob, "searchState", "busqueda", "search")
	if search == nil {
		return nil, ErrInvalidImport
	}

	session, err := s.checkout.Start(ctx, legacyCriteria(search))
	if err != nil {
		return nil, err
	}

	result := &LegacyImportResult{Imported: []string{"search"}, Skipped: map[string]string{}}
	sources := []map[string]any{
		blob,
		firstMap(blob, "vueloSeleccionado"),
		firstMap(blob, "airlink_checkout_asientos"),
	}

	for _, l := range legacyLegs {
		if l.direction == domain.DirectionReturn && !session.Search.IsRoundTrip() {
			continue
		}
		legName := "leg." + string(l.direction)

		flight := cast.ToStringMap(lookup(sources, l.flight))
		tripID := firstString(flight, "idViaje", "id", "tripId", "trip_id")
		if tripID == "" {
			result.Skipped[legName] = "no flight"
			continue
		}

		fareID, err := s.resolveFare(ctx, tripID, flight, lookupAny(sources, l.fares...))
		if err != nil {
			result.Skipped[legName] = err.Error()
			continue
		}

		if _, err := s.checkout.SelectLeg(ctx, SelectLegRequest{
			SessionID: session.ID,
			Direction: l.direction,
			TripID:    tripID,
			FareID:    fareID,
		}); err != nil {
			result.Skipped[legName] = err.Error()
			continue
		}
		result.Imported = append(result.Imported, legName)

		codes := seatCodes(lookupAny(sources, l.seats...))
		if len(codes) == 0 {
			continue
		}
		seatName := "seats." + string(l.direction)
		if _, err := s.seats.Select(ctx, SelectSeatsRequest{
			SessionID: session.ID,
			Direction: l.direction,
			Mode:      domain.SeatModeManual,
			Seats:     codes,
		}); err != nil {
			result.Skipped[seatName] = err.Error()
			continue
		}
		result.Imported = append(result.Imported, seatName)
	}

	result.Session, err = s.sessions.Load(ctx, session.ID)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// resolveFare matches the stored fare hint against the current fares of the trip,
// by ID first, then by name, then by price.
func (s *LegacyImportService) resolveFare(ctx context.Context, tripID string, flight map[string]any, hint any) (string, error) {
	fares, err := s.tripRepo.ListFares(ctx, tripID)
	if err != nil {
		return "", err
	}

	var id, name string
	var price int64
	if m := cast.ToStringMap(hint); len(m) > 0 {
		id = firstString(m, "id", "idTarifa", "fareId")
		name = firstString(m, "nombre", "name", "tarifaNombre")
		price = cast.ToInt64(firstValue(m, "precio", "price"))
	} else if hint != nil {
		price = cast.ToInt64(hint)
	}
	if name == "" {
		name = firstString(flight, "tarifaNombre", "tarifa")
	}
	if price == 0 {
		price = cast.ToInt64(firstValue(flight, "precio", "price"))
	}

	for _, f := range fares {
		if id != "" && f.ID == id {
			return f.ID, nil
		}
	}
	for _, f := range fares {
		if name != "" && strings.EqualFold(f.Name, name) {
			return f.ID, nil
		}
	}
	for _, f := range fares {
		if price > 0 && f.Price == price {
			return f.ID, nil
		}
	}
	return "", ErrLegNotSelected
}

func legacyCriteria(m map[string]any) domain.SearchCriteria {
	return domain.SearchCriteria{
		Origin:        firstString(m, "origen", "origin", "from"),
		Destination:   firstString(m, "destino", "destination", "to"),
		DepartureDate: legacyDate(firstString(m, "fechaIda", "departureDate", "fecha")),
		ReturnDate:    legacyDate(firstString(m, "fechaVuelta", "returnDate")),
		TripType:      domain.TripType(firstString(m, "tipoViaje", "tripType")),
		Passengers:    cast.ToInt(firstValue(m, "pasajeros", "passengers", "adultos")),
		CabinClass:    firstString(m, "clase", "cabinClass"),
	}
}

// legacyDate keeps the date part of an ISO timestamp.
func legacyDate(v string) string {
	if len(v) > 10 && v[4] == '-' && v[7] == '-' {
		return v[:10]
	}
	return v
}

func seatCodes(v any) []string {
	var codes []string
	for _, item := range cast.ToSlice(v) {
		if m := cast.ToStringMap(item); len(m) > 0 {
			if code := firstString(m, "codigo", "numero", "code", "seat", "asiento"); code != "" {
				codes = append(codes, code)
			}
			continue
		}
		if code := strings.TrimSpace(cast.ToString(item)); code != "" {
			codes = append(codes, code)
		}
	}
	return codes
}

func lookup(sources []map[string]any, key string) any {
	for _, m := range sources {
		if m == nil {
			continue
		}
		if v, ok := m[key]; ok && v != nil {
			return v
		}
	}
	return nil
}

func lookupAny(sources []map[string]any, keys ...string) any {
	for _, k := range keys {
		if v := lookup(sources, k); v != nil {
			return v
		}
	}
	return nil
}

func firstMap(m map[string]any, keys ...string) map[string]any {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			if out := cast.ToStringMap(v); len(out) > 0 {
				return out
			}
		}
	}
	return nil
}

func firstValue(m map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func firstString(m map[string]any, keys ...string) string {
	return strings.TrimSpace(cast.ToString(firstValue(m, keys...)))
}

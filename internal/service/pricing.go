package service

import (
	"fmt"
	"strings"

	"airlink/internal/domain"
)

// DefaultCurrency is the currency every price is stored in.
const DefaultCurrency = "CLP"

// Quote is the priced breakdown of a checkout.
type Quote struct {
	Lines    []domain.ReservationLine `json:"lines"`
	Subtotal int64                    `json:"subtotal"`
	Discount int64                    `json:"discount"`
	Total    int64                    `json:"total"`
	Currency string                   `json:"currency"`
}

// QuoteSession prices everything selected so far.
// Fares and buses are charged per passenger, seats by their own surcharge.
// The coupon discount is recomputed against the current subtotal.
func QuoteSession(session *domain.CheckoutSession) Quote {
	q := Quote{Currency: DefaultCurrency}
	pax := session.Passengers()
	if pax < 1 {
		pax = 1
	}

	for _, d := range []domain.Direction{domain.DirectionOutbound, domain.DirectionReturn} {
		leg := session.Legs[d]
		if !leg.Complete() {
			continue
		}
		if leg.Currency != "" {
			q.Currency = leg.Currency
		}
		kind := domain.LineOutboundFlight
		if d == domain.DirectionReturn {
			kind = domain.LineReturnFlight
		}
		q.add(domain.ReservationLine{
			Kind:        kind,
			Description: fmt.Sprintf("%s %s-%s %s", leg.FlightCode, leg.Origin, leg.Destination, leg.FareName),
			Quantity:    pax,
			UnitPrice:   leg.Price,
			Amount:      leg.Price * int64(pax),
		})
	}

	for _, d := range []domain.Direction{domain.DirectionOutbound, domain.DirectionReturn} {
		sel := session.Seats[d]
		if sel == nil || len(sel.Seats) == 0 {
			continue
		}
		cost := sel.Cost()
		q.add(domain.ReservationLine{
			Kind:        domain.LineSeats,
			Description: fmt.Sprintf("Seats %s (%s)", strings.Join(sel.Codes(), ", "), d),
			Quantity:    len(sel.Seats),
			UnitPrice:   cost / int64(len(sel.Seats)),
			Amount:      cost,
		})
	}

	if session.Bus != nil && !session.Bus.Skipped {
		for _, d := range []domain.Direction{domain.DirectionOutbound, domain.DirectionReturn} {
			bus, ok := session.Bus.Legs[d]
			if !ok {
				continue
			}
			q.add(domain.ReservationLine{
				Kind:        domain.LineBus,
				Description: fmt.Sprintf("Bus %s %s to %s", bus.Operator, bus.Origin, bus.Destination),
				Quantity:    pax,
				UnitPrice:   bus.Price,
				Amount:      bus.Price * int64(pax),
			})
		}
	}

	q.Total = q.Subtotal
	if session.Coupon != nil {
		q.Discount = ComputeDiscount(session.Coupon.Type, session.Coupon.Value, q.Subtotal)
		if q.Discount > 0 {
			q.Lines = append(q.Lines, domain.ReservationLine{
				Kind:        domain.LineDiscount,
				Description: "Coupon " + session.Coupon.Code,
				Quantity:    1,
				UnitPrice:   -q.Discount,
				Amount:      -q.Discount,
			})
		}
		q.Total = q.Subtotal - q.Discount
	}

	return q
}

func (q *Quote) add(line domain.ReservationLine) {
	q.Lines = append(q.Lines, line)
	q.Subtotal += line.Amount
}

package service

import (
	"context"
	"log"

	"airlink/internal/domain"
)

// FallbackRoute is where a blocked navigation is sent.
const FallbackRoute = "/"

// Guard is a named precondition of a stage.
type Guard struct {
	Name string
	// ClearOnFail wipes the session when the guard blocks.
	ClearOnFail bool
	allows      func(*domain.CheckoutSession) bool
}

// Allows reports whether the session satisfies the guard.
func (g Guard) Allows(s *domain.CheckoutSession) bool {
	return g.allows(s)
}

var (
	GuardOutboundRequired = Guard{Name: "outbound-required", ClearOnFail: true, allows: hasOutbound}
	GuardReturnRequired   = Guard{Name: "return-required", ClearOnFail: true, allows: hasReturnIfRoundTrip}
	GuardCheckoutReady    = Guard{Name: "checkout-ready", ClearOnFail: true, allows: isCheckoutReady}
	GuardPaymentRequired  = Guard{Name: "payment-required", ClearOnFail: false, allows: isPaid}
)

// transitions lists the guards of each stage, evaluated in order.
var transitions = map[domain.Stage][]Guard{
	domain.StageSearch:    nil,
	domain.StageFare:      {GuardOutboundRequired},
	domain.StageSeats:     {GuardOutboundRequired, GuardReturnRequired},
	domain.StageBus:       {GuardOutboundRequired, GuardReturnRequired, GuardCheckoutReady},
	domain.StageCoupon:    {GuardOutboundRequired, GuardReturnRequired, GuardCheckoutReady},
	domain.StagePassenger: {GuardOutboundRequired, GuardReturnRequired, GuardCheckoutReady},
	domain.StagePayment:   {GuardOutboundRequired, GuardReturnRequired, GuardCheckoutReady},
	domain.StageSuccess:   {GuardPaymentRequired},
}

func hasOutbound(s *domain.CheckoutSession) bool {
	return s.Legs[domain.DirectionOutbound].Complete()
}

func hasReturnIfRoundTrip(s *domain.CheckoutSession) bool {
	if s.Search == nil || !s.Search.IsRoundTrip() {
		return true
	}
	return s.Legs[domain.DirectionReturn].Complete()
}

// isCheckoutReady accepts the explicit flag or a full seat selection per required leg.
func isCheckoutReady(s *domain.CheckoutSession) bool {
	if s.CheckoutReady {
		return true
	}
	return seatsComplete(s)
}

func seatsComplete(s *domain.CheckoutSession) bool {
	pax := s.Passengers()
	for _, d := range s.RequiredDirections() {
		sel := s.Seats[d]
		if sel == nil || len(sel.Seats) == 0 {
			return false
		}
		if pax > 0 && len(sel.Seats) != pax {
			return false
		}
	}
	return true
}

func isPaid(s *domain.CheckoutSession) bool {
	return s.PaymentOK
}

// Decision is the outcome of guarding a stage.
type Decision struct {
	Stage    domain.Stage `json:"stage"`
	Allowed  bool         `json:"allowed"`
	Guard    string       `json:"guard,omitempty"`
	Redirect string       `json:"redirect,omitempty"`
	Cleared  bool         `json:"cleared"`
}

// Evaluate runs the guards of stage against the session without side effects.
func Evaluate(session *domain.CheckoutSession, stage domain.Stage) (Decision, error) {
	guards, ok := transitions[stage]
	if !ok {
		return Decision{}, ErrInvalidStage
	}

	for _, g := range guards {
		if !g.Allows(session) {
			return Decision{
				Stage:    stage,
				Allowed:  false,
				Guard:    g.Name,
				Redirect: FallbackRoute,
				Cleared:  g.ClearOnFail,
			}, nil
		}
	}
	return Decision{Stage: stage, Allowed: true}, nil
}

// GuardService applies stage guards, clearing state when a guard demands it.
type GuardService struct {
	sessions *SessionService
	onClear  []func(context.Context, *domain.CheckoutSession)
}

// NewGuardService creates a new GuardService.
func NewGuardService(sessions *SessionService) *GuardService {
	return &GuardService{sessions: sessions}
}

// OnClear registers fn to run with the loaded session before a guard wipes it.
// Register during wiring only.
func (g *GuardService) OnClear(fn func(context.Context, *domain.CheckoutSession)) {
	g.onClear = append(g.onClear, fn)
}

// Navigate decides whether the session may enter stage.
func (g *GuardService) Navigate(ctx context.Context, sessionID string, stage domain.Stage) (Decision, error) {
	session, err := g.sessions.Load(ctx, sessionID)
	if err != nil {
		return Decision{}, err
	}

	decision, err := Evaluate(session, stage)
	if err != nil {
		return Decision{}, err
	}
	if err := g.enforce(ctx, session, decision); err != nil {
		return Decision{}, err
	}
	return decision, nil
}

// Require returns a StageBlockedError when session may not act on stage.
func (g *GuardService) Require(ctx context.Context, session *domain.CheckoutSession, stage domain.Stage) error {
	decision, err := Evaluate(session, stage)
	if err != nil {
		return err
	}
	if decision.Allowed {
		return nil
	}
	if err := g.enforce(ctx, session, decision); err != nil {
		return err
	}
	return &StageBlockedError{Decision: decision}
}

func (g *GuardService) enforce(ctx context.Context, session *domain.CheckoutSession, decision Decision) error {
	if decision.Allowed || !decision.Cleared {
		return nil
	}
	log.Printf("guard %s blocked stage=%s session=%s, clearing", decision.Guard, decision.Stage, session.ID)
	for _, fn := range g.onClear {
		fn(ctx, session)
	}
	return g.sessions.Clear(ctx, session.ID)
}

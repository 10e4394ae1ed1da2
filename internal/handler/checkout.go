package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"airlink/internal/domain"
	"airlink/internal/middleware"
	"airlink/internal/service"
)

// CheckoutHandler handles HTTP requests for the purchase flow.
type CheckoutHandler struct {
	checkoutService  *service.CheckoutService
	guardService     *service.GuardService
	seatService      *service.SeatService
	busService       *service.BusService
	passengerService *service.PassengerService
	importService    *service.LegacyImportService
	tokens           *middleware.SessionTokens
}

// NewCheckoutHandler creates a new CheckoutHandler.
func NewCheckoutHandler(
	checkoutService *service.CheckoutService,
	guardService *service.GuardService,
	seatService *service.SeatService,
	busService *service.BusService,
	passengerService *service.PassengerService,
	importService *service.LegacyImportService,
	tokens *middleware.SessionTokens,
) *CheckoutHandler {
	return &CheckoutHandler{
		checkoutService:  checkoutService,
		guardService:     guardService,
		seatService:      seatService,
		busService:       busService,
		passengerService: passengerService,
		importService:    importService,
		tokens:           tokens,
	}
}

// StartCheckoutResponse carries the token of a new checkout.
type StartCheckoutResponse struct {
	SessionID string                 `json:"session_id"`
	Token     string                 `json:"token"`
	ExpiresAt string                 `json:"expires_at"`
	Search    *domain.SearchCriteria `json:"search"`
}

// CheckoutResponse is the full state of a checkout.
type CheckoutResponse struct {
	SessionID     string                                     `json:"session_id"`
	Search        *domain.SearchCriteria                     `json:"search,omitempty"`
	Legs          map[domain.Direction]*domain.LegSelection  `json:"legs"`
	Seats         map[domain.Direction]*domain.SeatSelection `json:"seats"`
	CheckoutReady bool                                       `json:"checkout_ready"`
	Bus           *domain.BusSelection                       `json:"bus,omitempty"`
	Coupon        *domain.AppliedCoupon                      `json:"coupon,omitempty"`
	Passenger     *domain.PassengerProfile                   `json:"passenger,omitempty"`
	PaymentOK     bool                                       `json:"payment_ok"`
	Order         *domain.OrderMarker                        `json:"order,omitempty"`
	Quote         service.Quote                              `json:"quote"`
	Reachable     []domain.Stage                             `json:"reachable_stages"`
}

// ImportCheckoutResponse is a checkout rebuilt from a legacy blob.
type ImportCheckoutResponse struct {
	StartCheckoutResponse
	Imported []string          `json:"imported"`
	Skipped  map[string]string `json:"skipped,omitempty"`
}

// SelectLegRequest is the HTTP request body for choosing a flight.
type SelectLegRequest struct {
	TripID string `json:"trip_id"`
	FareID string `json:"fare_id"`
}

// SelectSeatsRequest is the HTTP request body for choosing seats.
type SelectSeatsRequest struct {
	Mode  domain.SeatMode `json:"mode"`
	Seats []string        `json:"seats"`
}

// SelectBusRequest is the HTTP request body for choosing buses.
type SelectBusRequest struct {
	Outbound string `json:"outbound,omitempty"`
	Return   string `json:"return,omitempty"`
}

// Start handles POST /v1/checkout
func (h *CheckoutHandler) Start(c *gin.Context) {
	var req domain.SearchCriteria
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	session, err := h.checkoutService.Start(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	resp, err := h.startResponse(session)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusCreated, resp)
}

// Import handles POST /v1/checkout/import
func (h *CheckoutHandler) Import(c *gin.Context) {
	var blob map[string]any
	if err := c.ShouldBindJSON(&blob); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	result, err := h.importService.Import(c.Request.Context(), blob)
	if err != nil {
		respondError(c, err)
		return
	}

	start, err := h.startResponse(result.Session)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusCreated, ImportCheckoutResponse{
		StartCheckoutResponse: *start,
		Imported:              result.Imported,
		Skipped:               result.Skipped,
	})
}

// Get handles GET /v1/checkout
func (h *CheckoutHandler) Get(c *gin.Context) {
	view, err := h.checkoutService.View(c.Request.Context(), middleware.SessionID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	s := view.Session
	respondJSON(c, http.StatusOK, CheckoutResponse{
		SessionID:     s.ID,
		Search:        s.Search,
		Legs:          s.Legs,
		Seats:         s.Seats,
		CheckoutReady: s.CheckoutReady,
		Bus:           s.Bus,
		Coupon:        s.Coupon,
		Passenger:     s.Passenger,
		PaymentOK:     s.PaymentOK,
		Order:         s.Order,
		Quote:         view.Quote,
		Reachable:     view.Reachable,
	})
}

// Abandon handles DELETE /v1/checkout
func (h *CheckoutHandler) Abandon(c *gin.Context) {
	if err := h.checkoutService.Abandon(c.Request.Context(), middleware.SessionID(c)); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Navigate handles GET /v1/checkout/stages/:stage
func (h *CheckoutHandler) Navigate(c *gin.Context) {
	decision, err := h.guardService.Navigate(c.Request.Context(), middleware.SessionID(c), domain.Stage(c.Param("stage")))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, decision)
}

// SelectLeg handles PUT /v1/checkout/legs/:direction
func (h *CheckoutHandler) SelectLeg(c *gin.Context) {
	var req SelectLegRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	leg, err := h.checkoutService.SelectLeg(c.Request.Context(), service.SelectLegRequest{
		SessionID: middleware.SessionID(c),
		Direction: domain.Direction(c.Param("direction")),
		TripID:    req.TripID,
		FareID:    req.FareID,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, leg)
}

// SeatMap handles GET /v1/checkout/seats/:direction
func (h *CheckoutHandler) SeatMap(c *gin.Context) {
	m, err := h.seatService.SeatMap(c.Request.Context(), middleware.SessionID(c), domain.Direction(c.Param("direction")))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, m)
}

// SelectSeats handles PUT /v1/checkout/seats/:direction
func (h *CheckoutHandler) SelectSeats(c *gin.Context) {
	var req SelectSeatsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	selection, err := h.seatService.Select(c.Request.Context(), service.SelectSeatsRequest{
		SessionID: middleware.SessionID(c),
		Direction: domain.Direction(c.Param("direction")),
		Mode:      req.Mode,
		Seats:     req.Seats,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, selection)
}

// Buses handles GET /v1/checkout/buses
func (h *CheckoutHandler) Buses(c *gin.Context) {
	candidates, err := h.busService.Candidates(c.Request.Context(), middleware.SessionID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, candidates)
}

// SelectBus handles PUT /v1/checkout/buses
func (h *CheckoutHandler) SelectBus(c *gin.Context) {
	var req SelectBusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	choices := make(map[domain.Direction]string)
	if req.Outbound != "" {
		choices[domain.DirectionOutbound] = req.Outbound
	}
	if req.Return != "" {
		choices[domain.DirectionReturn] = req.Return
	}

	selection, err := h.busService.Select(c.Request.Context(), service.SelectBusRequest{
		SessionID: middleware.SessionID(c),
		Choices:   choices,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, selection)
}

// SkipBus handles POST /v1/checkout/buses/skip
func (h *CheckoutHandler) SkipBus(c *gin.Context) {
	selection, err := h.busService.Skip(c.Request.Context(), middleware.SessionID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, selection)
}

// SavePassenger handles PUT /v1/checkout/passenger
func (h *CheckoutHandler) SavePassenger(c *gin.Context) {
	var req domain.PassengerProfile
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	profile, err := h.passengerService.Save(c.Request.Context(), middleware.SessionID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, profile)
}

func (h *CheckoutHandler) startResponse(session *domain.CheckoutSession) (*StartCheckoutResponse, error) {
	token, expires, err := h.tokens.Issue(session.ID)
	if err != nil {
		return nil, err
	}
	return &StartCheckoutResponse{
		SessionID: session.ID,
		Token:     token,
		ExpiresAt: expires.Format(time.RFC3339),
		Search:    session.Search,
	}, nil
}

package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"airlink/internal/domain"
	"airlink/internal/service"
)

// FlightHandler handles HTTP requests for the flight catalogue.
type FlightHandler struct {
	searchService *service.SearchService
}

// NewFlightHandler creates a new FlightHandler.
func NewFlightHandler(searchService *service.SearchService) *FlightHandler {
	return &FlightHandler{searchService: searchService}
}

// FlightResponse is a trip with its fares.
type FlightResponse struct {
	TripID          string         `json:"trip_id"`
	FlightCode      string         `json:"flight_code"`
	Carrier         string         `json:"carrier"`
	Origin          string         `json:"origin"`
	Destination     string         `json:"destination"`
	CabinClass      string         `json:"cabin_class"`
	DepartureAt     string         `json:"departure_at"`
	ArrivalAt       string         `json:"arrival_at"`
	DurationMinutes int            `json:"duration_minutes"`
	Fares           []FareResponse `json:"fares"`
}

// FareResponse is a priced fare of a trip.
type FareResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	Currency  string `json:"currency"`
	SeatsLeft int    `json:"seats_left"`
}

// DayAvailabilityResponse is one day of the availability strip.
type DayAvailabilityResponse struct {
	Date      string `json:"date"`
	MinPrice  int64  `json:"min_price,omitempty"`
	Available bool   `json:"available"`
}

// Search handles GET /v1/flights/search
func (h *FlightHandler) Search(c *gin.Context) {
	options, err := h.searchService.Search(c.Request.Context(), service.SearchRequest{
		Origin:      c.Query("origin"),
		Destination: c.Query("destination"),
		Date:        c.Query("date"),
		CabinClass:  c.Query("cabin_class"),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]FlightResponse, 0, len(options))
	for _, opt := range options {
		response = append(response, toFlightResponse(opt.Trip, opt.Fares))
	}

	respondJSON(c, http.StatusOK, response)
}

// Fares handles GET /v1/flights/:id/fares
func (h *FlightHandler) Fares(c *gin.Context) {
	fares, err := h.searchService.Fares(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toFareResponses(fares))
}

// Availability handles GET /v1/flights/availability
func (h *FlightHandler) Availability(c *gin.Context) {
	days := 0
	if raw := c.Query("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "days must be a number"})
			return
		}
		days = n
	}

	strip, err := h.searchService.Availability(c.Request.Context(), c.Query("origin"), c.Query("destination"), c.Query("from"), days)
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]DayAvailabilityResponse, len(strip))
	for i, d := range strip {
		response[i] = DayAvailabilityResponse{Date: d.Date, MinPrice: d.MinPrice, Available: d.Available}
	}

	respondJSON(c, http.StatusOK, response)
}

func toFlightResponse(trip *domain.Trip, fares []*domain.Fare) FlightResponse {
	return FlightResponse{
		TripID:          trip.ID,
		FlightCode:      trip.FlightCode,
		Carrier:         trip.Carrier,
		Origin:          trip.Origin,
		Destination:     trip.Destination,
		CabinClass:      trip.CabinClass,
		DepartureAt:     trip.DepartureAt.Format(time.RFC3339),
		ArrivalAt:       trip.ArrivalAt.Format(time.RFC3339),
		DurationMinutes: int(trip.Duration().Minutes()),
		Fares:           toFareResponses(fares),
	}
}

func toFareResponses(fares []*domain.Fare) []FareResponse {
	out := make([]FareResponse, 0, len(fares))
	for _, f := range fares {
		out = append(out, FareResponse{
			ID:        f.ID,
			Name:      f.Name,
			Price:     f.Price,
			Currency:  f.Currency,
			SeatsLeft: f.SeatsLeft,
		})
	}
	return out
}

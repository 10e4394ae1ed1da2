package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"airlink/internal/payments"
	"airlink/internal/repository"
	"airlink/internal/service"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error    string              `json:"error"`
	Fields   map[string][]string `json:"fields,omitempty"`
	Decision *service.Decision   `json:"decision,omitempty"`
}

// respondError sends an error response with the appropriate HTTP status code.
func respondError(c *gin.Context, err error) {
	code := mapErrorToHTTPStatus(err)
	resp := ErrorResponse{Error: err.Error()}

	var verrs service.ValidationErrors
	if errors.As(err, &verrs) {
		resp.Fields = verrs
	}
	var blocked *service.StageBlockedError
	if errors.As(err, &blocked) {
		d := blocked.Decision
		resp.Decision = &d
	}

	if code >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.JSON(code, resp)
}

// respondJSON sends a JSON response with the given status code.
func respondJSON(c *gin.Context, code int, data any) {
	c.JSON(code, data)
}

// mapErrorToHTTPStatus maps service/repository errors to HTTP status codes.
func mapErrorToHTTPStatus(err error) int {
	var verrs service.ValidationErrors

	switch {
	// Field validation errors
	case errors.As(err, &verrs):
		return http.StatusUnprocessableEntity

	// Not found errors
	case errors.Is(err, repository.ErrNotFound),
		errors.Is(err, service.ErrSessionNotFound),
		errors.Is(err, service.ErrCouponNotFound):
		return http.StatusNotFound

	// Validation errors - Bad Request
	case errors.Is(err, service.ErrInvalidSearch),
		errors.Is(err, service.ErrInvalidSessionID),
		errors.Is(err, service.ErrInvalidDirection),
		errors.Is(err, service.ErrInvalidSeatMode),
		errors.Is(err, service.ErrInvalidStage),
		errors.Is(err, service.ErrInvalidProcessor),
		errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, service.ErrInvalidImport),
		errors.Is(err, service.ErrLegNotSelected),
		errors.Is(err, service.ErrLegMismatch),
		errors.Is(err, service.ErrReturnNotAllowed),
		errors.Is(err, service.ErrSeatCountMismatch),
		errors.Is(err, service.ErrTooManySeats),
		errors.Is(err, service.ErrDuplicateSeat),
		errors.Is(err, service.ErrUnknownSeat),
		errors.Is(err, service.ErrUnknownBus),
		errors.Is(err, payments.ErrInvalidWebhook),
		errors.Is(err, service.ErrWebhookMismatch):
		return http.StatusBadRequest

	// Conflict errors
	case errors.Is(err, service.ErrStageBlocked),
		errors.Is(err, service.ErrFareSoldOut),
		errors.Is(err, service.ErrSeatUnavailable),
		errors.Is(err, service.ErrNotEnoughFreeSeats),
		errors.Is(err, service.ErrCouponAlreadyApplied),
		errors.Is(err, service.ErrReservationConflict),
		errors.Is(err, repository.ErrConflict):
		return http.StatusConflict

	// Business rule errors
	case errors.Is(err, service.ErrCouponInactive),
		errors.Is(err, service.ErrCouponExhausted),
		errors.Is(err, service.ErrCouponBelowMinimum):
		return http.StatusUnprocessableEntity

	// Upstream gateway errors
	case errors.Is(err, service.ErrPaymentFailed),
		errors.Is(err, payments.ErrGateway):
		return http.StatusBadGateway

	// Default to internal server error
	default:
		return http.StatusInternalServerError
	}
}

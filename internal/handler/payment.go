package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"airlink/internal/domain"
	"airlink/internal/middleware"
	"airlink/internal/service"
)

// PaymentHandler handles HTTP requests for payments and reservations.
type PaymentHandler struct {
	paymentService *service.PaymentService
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(paymentService *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

// SubmitPaymentRequest is the HTTP request body for paying a checkout.
type SubmitPaymentRequest struct {
	Processor string `json:"processor"`
}

// SubmitPaymentResponse is the HTTP response for a payment submission.
type SubmitPaymentResponse struct {
	Reservation ReservationResponse `json:"reservation"`
	RedirectURL string              `json:"redirect_url,omitempty"`
	Replayed    bool                `json:"replayed"`
}

// ReservationLineResponse is one priced line of a reservation.
type ReservationLineResponse struct {
	Kind        string `json:"kind"`
	Description string `json:"description"`
	Quantity    int    `json:"quantity"`
	UnitPrice   int64  `json:"unit_price"`
	Amount      int64  `json:"amount"`
}

// PaymentResponse is the payment attempt of a reservation.
type PaymentResponse struct {
	Processor  string `json:"processor"`
	ExternalID string `json:"external_id,omitempty"`
	Amount     int64  `json:"amount"`
	Status     string `json:"status"`
}

// ReservationResponse is the HTTP response for a reservation.
type ReservationResponse struct {
	Code       string                    `json:"code"`
	Status     string                    `json:"status"`
	Passenger  domain.PassengerProfile   `json:"passenger"`
	Passengers int                       `json:"passengers"`
	Lines      []ReservationLineResponse `json:"lines"`
	Seats      []string                  `json:"seats"`
	Discount   int64                     `json:"discount"`
	Total      int64                     `json:"total"`
	Currency   string                    `json:"currency"`
	Payment    *PaymentResponse          `json:"payment,omitempty"`
	CreatedAt  string                    `json:"created_at"`
}

// ReservationDetailResponse adds the printable receipt of a confirmed reservation.
type ReservationDetailResponse struct {
	ReservationResponse
	Receipt *ReceiptResponse `json:"receipt,omitempty"`
}

// ReceiptResponse is the receipt of a confirmed reservation.
type ReceiptResponse struct {
	Subtotal int64  `json:"subtotal"`
	Discount int64  `json:"discount"`
	Total    int64  `json:"total"`
	Currency string `json:"currency"`
	PaidAt   string `json:"paid_at,omitempty"`
}

// Submit handles POST /v1/checkout/payment
func (h *PaymentHandler) Submit(c *gin.Context) {
	var req SubmitPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	if req.Processor == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "processor is required"})
		return
	}

	result, err := h.paymentService.Submit(c.Request.Context(), service.SubmitPaymentRequest{
		SessionID:      middleware.SessionID(c),
		Processor:      domain.Processor(req.Processor),
		IdempotencyKey: c.GetHeader("Idempotency-Key"),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	code := http.StatusCreated
	if result.Replayed {
		code = http.StatusOK
	}
	respondJSON(c, code, SubmitPaymentResponse{
		Reservation: toReservationResponse(result.Reservation),
		RedirectURL: result.RedirectURL,
		Replayed:    result.Replayed,
	})
}

// Webhook handles POST /v1/payments/webhooks/:processor
func (h *PaymentHandler) Webhook(c *gin.Context) {
	payload, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	res, err := h.paymentService.HandleWebhook(c.Request.Context(), domain.Processor(c.Param("processor")), payload, c.Request.Header)
	if err != nil {
		respondError(c, err)
		return
	}

	if res == nil {
		respondJSON(c, http.StatusOK, gin.H{"status": "ignored"})
		return
	}
	respondJSON(c, http.StatusOK, gin.H{"status": string(res.Status), "code": res.Code})
}

// GetReservation handles GET /v1/reservations/:code
func (h *PaymentHandler) GetReservation(c *gin.Context) {
	res, receipt, err := h.paymentService.GetReservation(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}

	resp := ReservationDetailResponse{ReservationResponse: toReservationResponse(res)}
	if receipt != nil {
		resp.Receipt = &ReceiptResponse{
			Subtotal: receipt.Subtotal,
			Discount: receipt.Discount,
			Total:    receipt.Total,
			Currency: receipt.Currency,
		}
		if !receipt.PaidAt.IsZero() {
			resp.Receipt.PaidAt = receipt.PaidAt.Format(time.RFC3339)
		}
	}
	respondJSON(c, http.StatusOK, resp)
}

func toReservationResponse(res *domain.Reservation) ReservationResponse {
	resp := ReservationResponse{
		Code:       res.Code,
		Status:     string(res.Status),
		Passenger:  res.Passenger,
		Passengers: res.Passengers,
		Lines:      make([]ReservationLineResponse, 0, len(res.Lines)),
		Seats:      make([]string, 0, len(res.Seats)),
		Discount:   res.Discount,
		Total:      res.Total,
		Currency:   res.Currency,
		CreatedAt:  res.CreatedAt.Format(time.RFC3339),
	}
	for _, l := range res.Lines {
		resp.Lines = append(resp.Lines, ReservationLineResponse{
			Kind:        string(l.Kind),
			Description: l.Description,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			Amount:      l.Amount,
		})
	}
	for _, s := range res.Seats {
		resp.Seats = append(resp.Seats, s.SeatCode)
	}
	if p := res.Payment; p != nil {
		resp.Payment = &PaymentResponse{
			Processor:  string(p.Processor),
			ExternalID: p.ExternalID,
			Amount:     p.Amount,
			Status:     string(p.Status),
		}
	}
	return resp
}

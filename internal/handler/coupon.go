package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"airlink/internal/domain"
	"airlink/internal/middleware"
	"airlink/internal/service"
)

// CouponHandler handles HTTP requests for discount coupons.
type CouponHandler struct {
	couponService *service.CouponService
}

// NewCouponHandler creates a new CouponHandler.
func NewCouponHandler(couponService *service.CouponService) *CouponHandler {
	return &CouponHandler{couponService: couponService}
}

// ValidateCouponRequest is the HTTP request body for checking a code.
type ValidateCouponRequest struct {
	Code     string `json:"code"`
	Subtotal int64  `json:"subtotal"`
}

// ApplyCouponRequest is the HTTP request body for attaching a code to a checkout.
type ApplyCouponRequest struct {
	Code string `json:"code"`
}

// CouponResponse is the HTTP response for a coupon.
type CouponResponse struct {
	ID          string `json:"id"`
	Code        string `json:"code"`
	Description string `json:"description"`
	Type        string `json:"type"`
	Value       int64  `json:"value"`
	EndsAt      string `json:"ends_at,omitempty"`
}

// CouponQuoteResponse is a coupon priced against a subtotal.
type CouponQuoteResponse struct {
	Coupon   CouponResponse `json:"coupon"`
	Subtotal int64          `json:"subtotal"`
	Discount int64          `json:"discount"`
	Total    int64          `json:"total"`
}

// List handles GET /v1/coupons
func (h *CouponHandler) List(c *gin.Context) {
	coupons, err := h.couponService.ListActive(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]CouponResponse, 0, len(coupons))
	for _, cp := range coupons {
		response = append(response, toCouponResponse(cp))
	}
	respondJSON(c, http.StatusOK, response)
}

// Validate handles POST /v1/coupons/validate
func (h *CouponHandler) Validate(c *gin.Context) {
	var req ValidateCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	if req.Code == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "code is required"})
		return
	}

	quote, err := h.couponService.Validate(c.Request.Context(), req.Code, req.Subtotal)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toCouponQuoteResponse(quote))
}

// Apply handles POST /v1/checkout/coupon
func (h *CouponHandler) Apply(c *gin.Context) {
	var req ApplyCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	if req.Code == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "code is required"})
		return
	}

	quote, err := h.couponService.Apply(c.Request.Context(), middleware.SessionID(c), req.Code)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toCouponQuoteResponse(quote))
}

// Remove handles DELETE /v1/checkout/coupon
func (h *CouponHandler) Remove(c *gin.Context) {
	if err := h.couponService.Remove(c.Request.Context(), middleware.SessionID(c)); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func toCouponResponse(cp *domain.Coupon) CouponResponse {
	resp := CouponResponse{
		ID:          cp.ID,
		Code:        cp.Code,
		Description: cp.Description,
		Type:        string(cp.Type),
		Value:       cp.Value,
	}
	if !cp.EndsAt.IsZero() {
		resp.EndsAt = cp.EndsAt.Format("2006-01-02")
	}
	return resp
}

func toCouponQuoteResponse(q *domain.CouponQuote) CouponQuoteResponse {
	return CouponQuoteResponse{
		Coupon:   toCouponResponse(q.Coupon),
		Subtotal: q.Subtotal,
		Discount: q.Discount,
		Total:    q.Total,
	}
}

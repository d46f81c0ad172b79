package handler

import (
	appbilling "github.com/bizledger/backend/internal/application/billing"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// PaymentHandler handles payment-related API endpoints
type PaymentHandler struct {
	BaseHandler
	paymentService *appbilling.PaymentService
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(paymentService *appbilling.PaymentService) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
	}
}

// Record godoc
// @Summary      Record a payment
// @Description  Record a new payment, optionally linked to an invoice
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        X-Business-ID header string true "Business ID"
// @Param        request body appbilling.RecordPaymentRequest true "Payment record request"
// @Success      201 {object} APIResponse[appbilling.PaymentResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Router       /payments [post]
func (h *PaymentHandler) Record(c *gin.Context) {
	businessID, err := getBusinessID(c)
	if err != nil {
		h.Unauthorized(c, "Business identification required")
		return
	}

	var req appbilling.RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	payment, err := h.paymentService.RecordPayment(c.Request.Context(), businessID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, payment)
}

// Get godoc
// @Summary      Get a payment
// @Description  Get a single payment scoped to the business
// @Tags         payments
// @Produce      json
// @Param        X-Business-ID header string true "Business ID"
// @Param        id path string true "Payment ID"
// @Success      200 {object} APIResponse[appbilling.PaymentResponse]
// @Failure      404 {object} ErrorResponse
// @Router       /payments/{id} [get]
func (h *PaymentHandler) Get(c *gin.Context) {
	businessID, err := getBusinessID(c)
	if err != nil {
		h.Unauthorized(c, "Business identification required")
		return
	}

	paymentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid payment ID format")
		return
	}

	payment, err := h.paymentService.GetPayment(c.Request.Context(), businessID, paymentID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, payment)
}

// List godoc
// @Summary      List payments
// @Description  List payments for the business with filtering and pagination
// @Tags         payments
// @Produce      json
// @Param        X-Business-ID header string true "Business ID"
// @Param        status query string false "Payment status filter"
// @Param        invoice_id query string false "Invoice ID filter"
// @Param        provider query string false "Provider filter"
// @Param        page query int false "Page number"
// @Param        page_size query int false "Page size"
// @Success      200 {object} APIResponse[[]appbilling.PaymentResponse]
// @Failure      400 {object} ErrorResponse
// @Router       /payments [get]
func (h *PaymentHandler) List(c *gin.Context) {
	businessID, err := getBusinessID(c)
	if err != nil {
		h.Unauthorized(c, "Business identification required")
		return
	}

	var filter appbilling.PaymentListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	page, err := h.paymentService.ListPayments(c.Request.Context(), businessID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// Settle godoc
// @Summary      Settle a payment
// @Description  Apply a provider settlement notification; duplicates are acknowledged without touching the ledger
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        X-Business-ID header string true "Business ID"
// @Param        id path string true "Payment ID"
// @Param        request body appbilling.SettlePaymentRequest true "Settlement notification"
// @Success      200 {object} APIResponse[appbilling.SettlePaymentResult]
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Router       /payments/{id}/settle [post]
func (h *PaymentHandler) Settle(c *gin.Context) {
	businessID, err := getBusinessID(c)
	if err != nil {
		h.Unauthorized(c, "Business identification required")
		return
	}

	paymentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid payment ID format")
		return
	}

	var req appbilling.SettlePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := h.paymentService.SettlePayment(c.Request.Context(), businessID, paymentID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// Refund godoc
// @Summary      Refund a payment
// @Description  Return part or all of a succeeded payment and reconcile the linked invoice
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        X-Business-ID header string true "Business ID"
// @Param        id path string true "Payment ID"
// @Param        request body appbilling.RefundPaymentRequest false "Refund request; omit amount for a full refund"
// @Success      200 {object} APIResponse[appbilling.RefundPaymentResult]
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Router       /payments/{id}/refund [post]
func (h *PaymentHandler) Refund(c *gin.Context) {
	businessID, err := getBusinessID(c)
	if err != nil {
		h.Unauthorized(c, "Business identification required")
		return
	}

	paymentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid payment ID format")
		return
	}

	var req appbilling.RefundPaymentRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.BadRequest(c, err.Error())
			return
		}
	}

	result, err := h.paymentService.RefundPayment(c.Request.Context(), businessID, paymentID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// Cancel godoc
// @Summary      Cancel a payment
// @Description  Void a payment that has not settled yet
// @Tags         payments
// @Produce      json
// @Param        X-Business-ID header string true "Business ID"
// @Param        id path string true "Payment ID"
// @Success      200 {object} APIResponse[appbilling.PaymentResponse]
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Router       /payments/{id}/cancel [post]
func (h *PaymentHandler) Cancel(c *gin.Context) {
	businessID, err := getBusinessID(c)
	if err != nil {
		h.Unauthorized(c, "Business identification required")
		return
	}

	paymentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid payment ID format")
		return
	}

	payment, err := h.paymentService.CancelPayment(c.Request.Context(), businessID, paymentID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, payment)
}

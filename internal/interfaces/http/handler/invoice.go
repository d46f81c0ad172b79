package handler

import (
	appbilling "github.com/bizledger/backend/internal/application/billing"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// InvoiceHandler handles invoice-related API endpoints
type InvoiceHandler struct {
	BaseHandler
	invoiceService *appbilling.InvoiceService
	paymentService *appbilling.PaymentService
}

// NewInvoiceHandler creates a new InvoiceHandler
func NewInvoiceHandler(invoiceService *appbilling.InvoiceService, paymentService *appbilling.PaymentService) *InvoiceHandler {
	return &InvoiceHandler{
		invoiceService: invoiceService,
		paymentService: paymentService,
	}
}

// Create godoc
// @Summary      Create a new invoice
// @Description  Create a draft invoice with optional line items
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        X-Business-ID header string true "Business ID"
// @Param        request body appbilling.CreateInvoiceRequest true "Invoice creation request"
// @Success      201 {object} APIResponse[appbilling.InvoiceResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Router       /invoices [post]
func (h *InvoiceHandler) Create(c *gin.Context) {
	businessID, err := getBusinessID(c)
	if err != nil {
		h.Unauthorized(c, "Business identification required")
		return
	}

	var req appbilling.CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	invoice, err := h.invoiceService.CreateInvoice(c.Request.Context(), businessID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, invoice)
}

// Get godoc
// @Summary      Get an invoice
// @Description  Get a single invoice with its lines and running totals
// @Tags         invoices
// @Produce      json
// @Param        X-Business-ID header string true "Business ID"
// @Param        id path string true "Invoice ID"
// @Success      200 {object} APIResponse[appbilling.InvoiceResponse]
// @Failure      404 {object} ErrorResponse
// @Router       /invoices/{id} [get]
func (h *InvoiceHandler) Get(c *gin.Context) {
	businessID, err := getBusinessID(c)
	if err != nil {
		h.Unauthorized(c, "Business identification required")
		return
	}

	invoiceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID format")
		return
	}

	invoice, err := h.invoiceService.GetInvoice(c.Request.Context(), businessID, invoiceID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, invoice)
}

// List godoc
// @Summary      List invoices
// @Description  List invoices for the business with filtering and pagination
// @Tags         invoices
// @Produce      json
// @Param        X-Business-ID header string true "Business ID"
// @Param        status query string false "Invoice status filter"
// @Param        customer_id query string false "Customer ID filter"
// @Param        page query int false "Page number"
// @Param        page_size query int false "Page size"
// @Success      200 {object} APIResponse[[]appbilling.InvoiceResponse]
// @Failure      400 {object} ErrorResponse
// @Router       /invoices [get]
func (h *InvoiceHandler) List(c *gin.Context) {
	businessID, err := getBusinessID(c)
	if err != nil {
		h.Unauthorized(c, "Business identification required")
		return
	}

	var filter appbilling.InvoiceListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	page, err := h.invoiceService.ListInvoices(c.Request.Context(), businessID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// ReplaceLines godoc
// @Summary      Replace invoice lines
// @Description  Replace the full line set of a draft invoice and recalculate totals
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        X-Business-ID header string true "Business ID"
// @Param        id path string true "Invoice ID"
// @Param        request body appbilling.ReplaceLinesRequest true "New invoice lines"
// @Success      200 {object} APIResponse[appbilling.InvoiceResponse]
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Router       /invoices/{id}/lines [put]
func (h *InvoiceHandler) ReplaceLines(c *gin.Context) {
	businessID, err := getBusinessID(c)
	if err != nil {
		h.Unauthorized(c, "Business identification required")
		return
	}

	invoiceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID format")
		return
	}

	var req appbilling.ReplaceLinesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	invoice, err := h.invoiceService.ReplaceDraftLines(c.Request.Context(), businessID, invoiceID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, invoice)
}

// Send godoc
// @Summary      Send an invoice
// @Description  Issue a draft invoice to the customer
// @Tags         invoices
// @Produce      json
// @Param        X-Business-ID header string true "Business ID"
// @Param        id path string true "Invoice ID"
// @Success      200 {object} APIResponse[appbilling.InvoiceResponse]
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Router       /invoices/{id}/send [post]
func (h *InvoiceHandler) Send(c *gin.Context) {
	businessID, err := getBusinessID(c)
	if err != nil {
		h.Unauthorized(c, "Business identification required")
		return
	}

	invoiceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID format")
		return
	}

	invoice, err := h.invoiceService.SendInvoice(c.Request.Context(), businessID, invoiceID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, invoice)
}

// MarkViewed godoc
// @Summary      Mark an invoice viewed
// @Description  Record the customer opening the invoice
// @Tags         invoices
// @Produce      json
// @Param        X-Business-ID header string true "Business ID"
// @Param        id path string true "Invoice ID"
// @Success      200 {object} APIResponse[appbilling.InvoiceResponse]
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Router       /invoices/{id}/viewed [post]
func (h *InvoiceHandler) MarkViewed(c *gin.Context) {
	businessID, err := getBusinessID(c)
	if err != nil {
		h.Unauthorized(c, "Business identification required")
		return
	}

	invoiceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID format")
		return
	}

	invoice, err := h.invoiceService.MarkInvoiceViewed(c.Request.Context(), businessID, invoiceID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, invoice)
}

// Cancel godoc
// @Summary      Cancel an invoice
// @Description  Void an invoice that has no recorded payments
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        X-Business-ID header string true "Business ID"
// @Param        id path string true "Invoice ID"
// @Param        request body appbilling.CancelInvoiceRequest false "Cancellation reason"
// @Success      200 {object} APIResponse[appbilling.InvoiceResponse]
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Router       /invoices/{id}/cancel [post]
func (h *InvoiceHandler) Cancel(c *gin.Context) {
	businessID, err := getBusinessID(c)
	if err != nil {
		h.Unauthorized(c, "Business identification required")
		return
	}

	invoiceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID format")
		return
	}

	var req appbilling.CancelInvoiceRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.BadRequest(c, err.Error())
			return
		}
	}

	invoice, err := h.invoiceService.CancelInvoice(c.Request.Context(), businessID, invoiceID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, invoice)
}

// Delete godoc
// @Summary      Delete a draft invoice
// @Description  Hard delete an invoice that never left draft
// @Tags         invoices
// @Produce      json
// @Param        X-Business-ID header string true "Business ID"
// @Param        id path string true "Invoice ID"
// @Success      204 "No Content"
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Router       /invoices/{id} [delete]
func (h *InvoiceHandler) Delete(c *gin.Context) {
	businessID, err := getBusinessID(c)
	if err != nil {
		h.Unauthorized(c, "Business identification required")
		return
	}

	invoiceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID format")
		return
	}

	if err := h.invoiceService.DeleteDraftInvoice(c.Request.Context(), businessID, invoiceID); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

// Reconcile godoc
// @Summary      Reconcile an invoice
// @Description  Recompute the invoice's paid amount and status from its full payment set
// @Tags         invoices
// @Produce      json
// @Param        X-Business-ID header string true "Business ID"
// @Param        id path string true "Invoice ID"
// @Success      200 {object} APIResponse[appbilling.InvoiceResponse]
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Router       /invoices/{id}/reconcile [post]
func (h *InvoiceHandler) Reconcile(c *gin.Context) {
	businessID, err := getBusinessID(c)
	if err != nil {
		h.Unauthorized(c, "Business identification required")
		return
	}

	invoiceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID format")
		return
	}

	invoice, err := h.paymentService.ReconcileInvoice(c.Request.Context(), businessID, invoiceID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, invoice)
}

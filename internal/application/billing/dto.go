package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bizledger/backend/internal/domain/billing"
)

// InvoiceLineInput carries the editable inputs of one invoice line
type InvoiceLineInput struct {
	Description        string          `json:"description" binding:"required"`
	ProductID          *uuid.UUID      `json:"product_id,omitempty"`
	Quantity           decimal.Decimal `json:"quantity"`
	UnitPrice          decimal.Decimal `json:"unit_price"`
	DiscountPercentage decimal.Decimal `json:"discount_percentage"`
	TaxPercentage      decimal.Decimal `json:"tax_percentage"`
}

// CreateInvoiceRequest creates a draft invoice with its initial lines
type CreateInvoiceRequest struct {
	CustomerID *uuid.UUID         `json:"customer_id,omitempty"`
	OrderID    *uuid.UUID         `json:"order_id,omitempty"`
	Currency   string             `json:"currency"`
	IssueDate  time.Time          `json:"issue_date" binding:"required"`
	DueDate    time.Time          `json:"due_date" binding:"required"`
	Notes      string             `json:"notes"`
	Lines      []InvoiceLineInput `json:"lines"`
}

// ReplaceLinesRequest swaps the full line set of a draft invoice
type ReplaceLinesRequest struct {
	Lines []InvoiceLineInput `json:"lines" binding:"required"`
}

// CancelInvoiceRequest voids an invoice with an optional reason
type CancelInvoiceRequest struct {
	Reason string `json:"reason"`
}

// InvoiceLineResponse represents an invoice line in API responses
type InvoiceLineResponse struct {
	ID                 uuid.UUID       `json:"id"`
	Description        string          `json:"description"`
	ProductID          *uuid.UUID      `json:"product_id,omitempty"`
	Quantity           decimal.Decimal `json:"quantity"`
	UnitPrice          decimal.Decimal `json:"unit_price"`
	DiscountPercentage decimal.Decimal `json:"discount_percentage"`
	TaxPercentage      decimal.Decimal `json:"tax_percentage"`
	Subtotal           decimal.Decimal `json:"subtotal"`
	DiscountAmount     decimal.Decimal `json:"discount_amount"`
	TaxAmount          decimal.Decimal `json:"tax_amount"`
	Total              decimal.Decimal `json:"total"`
}

// InvoiceResponse represents an invoice in API responses
type InvoiceResponse struct {
	ID             uuid.UUID             `json:"id"`
	BusinessID     uuid.UUID             `json:"business_id"`
	InvoiceNumber  string                `json:"invoice_number"`
	CustomerID     *uuid.UUID            `json:"customer_id,omitempty"`
	OrderID        *uuid.UUID            `json:"order_id,omitempty"`
	Currency       string                `json:"currency"`
	Status         string                `json:"status"`
	IssueDate      time.Time             `json:"issue_date"`
	DueDate        time.Time             `json:"due_date"`
	Lines          []InvoiceLineResponse `json:"lines"`
	Subtotal       decimal.Decimal       `json:"subtotal"`
	DiscountAmount decimal.Decimal       `json:"discount_amount"`
	TaxAmount      decimal.Decimal       `json:"tax_amount"`
	TotalAmount    decimal.Decimal       `json:"total_amount"`
	AmountPaid     decimal.Decimal       `json:"amount_paid"`
	AmountDue      decimal.Decimal       `json:"amount_due"`
	Notes          string                `json:"notes,omitempty"`
	SentAt         *time.Time            `json:"sent_at,omitempty"`
	ViewedAt       *time.Time            `json:"viewed_at,omitempty"`
	PaidDate       *time.Time            `json:"paid_date,omitempty"`
	CancelledAt    *time.Time            `json:"cancelled_at,omitempty"`
	CancelReason   string                `json:"cancel_reason,omitempty"`
	RefundedAt     *time.Time            `json:"refunded_at,omitempty"`
	CreatedAt      time.Time             `json:"created_at"`
	UpdatedAt      time.Time             `json:"updated_at"`
	Version        int                   `json:"version"`
}

// ToInvoiceResponse maps an invoice aggregate to its API representation
func ToInvoiceResponse(invoice *billing.Invoice) *InvoiceResponse {
	lines := make([]InvoiceLineResponse, 0, len(invoice.Lines))
	for _, line := range invoice.Lines {
		lines = append(lines, InvoiceLineResponse{
			ID:                 line.ID,
			Description:        line.Description,
			ProductID:          line.ProductID,
			Quantity:           line.Quantity,
			UnitPrice:          line.UnitPrice,
			DiscountPercentage: line.DiscountPercentage,
			TaxPercentage:      line.TaxPercentage,
			Subtotal:           line.Subtotal,
			DiscountAmount:     line.DiscountAmount,
			TaxAmount:          line.TaxAmount,
			Total:              line.Total,
		})
	}

	return &InvoiceResponse{
		ID:             invoice.ID,
		BusinessID:     invoice.BusinessID,
		InvoiceNumber:  invoice.InvoiceNumber,
		CustomerID:     invoice.CustomerID,
		OrderID:        invoice.OrderID,
		Currency:       string(invoice.Currency),
		Status:         invoice.Status.String(),
		IssueDate:      invoice.IssueDate,
		DueDate:        invoice.DueDate,
		Lines:          lines,
		Subtotal:       invoice.Subtotal,
		DiscountAmount: invoice.DiscountAmount,
		TaxAmount:      invoice.TaxAmount,
		TotalAmount:    invoice.TotalAmount,
		AmountPaid:     invoice.AmountPaid,
		AmountDue:      invoice.AmountDue,
		Notes:          invoice.Notes,
		SentAt:         invoice.SentAt,
		ViewedAt:       invoice.ViewedAt,
		PaidDate:       invoice.PaidDate,
		CancelledAt:    invoice.CancelledAt,
		CancelReason:   invoice.CancelReason,
		RefundedAt:     invoice.RefundedAt,
		CreatedAt:      invoice.CreatedAt,
		UpdatedAt:      invoice.UpdatedAt,
		Version:        invoice.GetVersion(),
	}
}

// RecordPaymentRequest records a new payment, optionally linked to an invoice
type RecordPaymentRequest struct {
	InvoiceID  *uuid.UUID        `json:"invoice_id,omitempty"`
	Amount     decimal.Decimal   `json:"amount"`
	Currency   string            `json:"currency"`
	Provider   string            `json:"provider" binding:"required"`
	Processing bool              `json:"processing"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// SettlePaymentRequest applies a provider settlement notification
type SettlePaymentRequest struct {
	Outcome       string     `json:"outcome" binding:"required"`
	SettledAt     *time.Time `json:"settled_at,omitempty"`
	FailureReason string     `json:"failure_reason,omitempty"`
}

// RefundPaymentRequest refunds part or all of a succeeded payment.
// A nil amount refunds the full remaining balance.
type RefundPaymentRequest struct {
	Amount *decimal.Decimal `json:"amount,omitempty"`
	Reason string           `json:"reason"`
}

// PaymentResponse represents a payment in API responses
type PaymentResponse struct {
	ID            uuid.UUID         `json:"id"`
	BusinessID    uuid.UUID         `json:"business_id"`
	PaymentNumber string            `json:"payment_number"`
	InvoiceID     *uuid.UUID        `json:"invoice_id,omitempty"`
	Amount        decimal.Decimal   `json:"amount"`
	Currency      string            `json:"currency"`
	Provider      string            `json:"provider"`
	Status        string            `json:"status"`
	RefundAmount  decimal.Decimal   `json:"refund_amount"`
	FailureReason string            `json:"failure_reason,omitempty"`
	RefundReason  string            `json:"refund_reason,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
	PaidAt        *time.Time        `json:"paid_at,omitempty"`
	FailedAt      *time.Time        `json:"failed_at,omitempty"`
	RefundedAt    *time.Time        `json:"refunded_at,omitempty"`
	CancelledAt   *time.Time        `json:"cancelled_at,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
	Version       int               `json:"version"`
}

// ToPaymentResponse maps a payment aggregate to its API representation
func ToPaymentResponse(payment *billing.Payment) *PaymentResponse {
	return &PaymentResponse{
		ID:            payment.ID,
		BusinessID:    payment.BusinessID,
		PaymentNumber: payment.PaymentNumber,
		InvoiceID:     payment.InvoiceID,
		Amount:        payment.Amount,
		Currency:      string(payment.Currency),
		Provider:      payment.Provider,
		Status:        payment.Status.String(),
		RefundAmount:  payment.RefundAmount,
		FailureReason: payment.FailureReason,
		RefundReason:  payment.RefundReason,
		Metadata:      payment.Metadata,
		PaidAt:        payment.PaidAt,
		FailedAt:      payment.FailedAt,
		RefundedAt:    payment.RefundedAt,
		CancelledAt:   payment.CancelledAt,
		CreatedAt:     payment.CreatedAt,
		UpdatedAt:     payment.UpdatedAt,
		Version:       payment.GetVersion(),
	}
}

// SettlePaymentResult reports the outcome of processing a settlement
type SettlePaymentResult struct {
	Payment          *PaymentResponse `json:"payment"`
	Invoice          *InvoiceResponse `json:"invoice,omitempty"`
	AlreadyProcessed bool             `json:"already_processed"`
}

// RefundPaymentResult reports the outcome of processing a refund
type RefundPaymentResult struct {
	Payment *PaymentResponse `json:"payment"`
	Invoice *InvoiceResponse `json:"invoice,omitempty"`
}

// OverdueSweepResult reports the outcome of an overdue sweep run
type OverdueSweepResult struct {
	BusinessID uuid.UUID `json:"business_id"`
	AsOf       time.Time `json:"as_of"`
	Examined   int       `json:"examined"`
	Flagged    int       `json:"flagged"`
	Conflicts  int       `json:"conflicts"`
}

// InvoiceListFilter defines filtering options for invoice list queries
type InvoiceListFilter struct {
	Search     string     `form:"search"`
	Status     string     `form:"status"`
	CustomerID *uuid.UUID `form:"customer_id"`
	IssuedFrom *time.Time `form:"issued_from" time_format:"2006-01-02"`
	IssuedTo   *time.Time `form:"issued_to" time_format:"2006-01-02"`
	DueFrom    *time.Time `form:"due_from" time_format:"2006-01-02"`
	DueTo      *time.Time `form:"due_to" time_format:"2006-01-02"`
	Page       int        `form:"page"`
	PageSize   int        `form:"page_size"`
}

// PaymentListFilter defines filtering options for payment list queries
type PaymentListFilter struct {
	Search    string     `form:"search"`
	Status    string     `form:"status"`
	InvoiceID *uuid.UUID `form:"invoice_id"`
	Provider  string     `form:"provider"`
	Page      int        `form:"page"`
	PageSize  int        `form:"page_size"`
}

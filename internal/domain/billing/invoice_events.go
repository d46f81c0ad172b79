package billing

import (
	"time"

	"github.com/bizledger/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

const invoiceAggregateType = "Invoice"

// Event type constants for the invoice lifecycle
const (
	EventInvoiceCreated   = "invoice.created"
	EventInvoiceSent      = "invoice.sent"
	EventInvoiceViewed    = "invoice.viewed"
	EventInvoicePaid      = "invoice.paid"
	EventInvoiceOverdue   = "invoice.overdue"
	EventInvoiceCancelled = "invoice.cancelled"
	EventInvoiceRefunded  = "invoice.refunded"
)

// InvoiceCreatedEvent is raised when a draft invoice is created
type InvoiceCreatedEvent struct {
	shared.BaseDomainEvent
	InvoiceNumber string    `json:"invoice_number"`
	Currency      string    `json:"currency"`
	IssueDate     time.Time `json:"issue_date"`
	DueDate       time.Time `json:"due_date"`
}

func NewInvoiceCreatedEvent(invoice *Invoice) *InvoiceCreatedEvent {
	return &InvoiceCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventInvoiceCreated, invoiceAggregateType, invoice.ID, invoice.BusinessID),
		InvoiceNumber:   invoice.InvoiceNumber,
		Currency:        string(invoice.Currency),
		IssueDate:       invoice.IssueDate,
		DueDate:         invoice.DueDate,
	}
}

// InvoiceSentEvent is raised when an invoice is issued to the customer
type InvoiceSentEvent struct {
	shared.BaseDomainEvent
	InvoiceNumber string          `json:"invoice_number"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	DueDate       time.Time       `json:"due_date"`
}

func NewInvoiceSentEvent(invoice *Invoice) *InvoiceSentEvent {
	return &InvoiceSentEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventInvoiceSent, invoiceAggregateType, invoice.ID, invoice.BusinessID),
		InvoiceNumber:   invoice.InvoiceNumber,
		TotalAmount:     invoice.TotalAmount,
		DueDate:         invoice.DueDate,
	}
}

// InvoiceViewedEvent is raised the first time the customer opens the invoice
type InvoiceViewedEvent struct {
	shared.BaseDomainEvent
	InvoiceNumber string `json:"invoice_number"`
}

func NewInvoiceViewedEvent(invoice *Invoice) *InvoiceViewedEvent {
	return &InvoiceViewedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventInvoiceViewed, invoiceAggregateType, invoice.ID, invoice.BusinessID),
		InvoiceNumber:   invoice.InvoiceNumber,
	}
}

// InvoicePaidEvent is raised when reconciliation settles the full balance
type InvoicePaidEvent struct {
	shared.BaseDomainEvent
	InvoiceNumber string          `json:"invoice_number"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	AmountPaid    decimal.Decimal `json:"amount_paid"`
}

func NewInvoicePaidEvent(invoice *Invoice) *InvoicePaidEvent {
	return &InvoicePaidEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventInvoicePaid, invoiceAggregateType, invoice.ID, invoice.BusinessID),
		InvoiceNumber:   invoice.InvoiceNumber,
		TotalAmount:     invoice.TotalAmount,
		AmountPaid:      invoice.AmountPaid,
	}
}

// InvoiceOverdueEvent is raised when an invoice passes its due date unpaid
type InvoiceOverdueEvent struct {
	shared.BaseDomainEvent
	InvoiceNumber string          `json:"invoice_number"`
	AmountDue     decimal.Decimal `json:"amount_due"`
	DueDate       time.Time       `json:"due_date"`
}

func NewInvoiceOverdueEvent(invoice *Invoice) *InvoiceOverdueEvent {
	return &InvoiceOverdueEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventInvoiceOverdue, invoiceAggregateType, invoice.ID, invoice.BusinessID),
		InvoiceNumber:   invoice.InvoiceNumber,
		AmountDue:       invoice.AmountDue,
		DueDate:         invoice.DueDate,
	}
}

// InvoiceCancelledEvent is raised when an invoice is voided
type InvoiceCancelledEvent struct {
	shared.BaseDomainEvent
	InvoiceNumber string `json:"invoice_number"`
	Reason        string `json:"reason"`
}

func NewInvoiceCancelledEvent(invoice *Invoice, reason string) *InvoiceCancelledEvent {
	return &InvoiceCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventInvoiceCancelled, invoiceAggregateType, invoice.ID, invoice.BusinessID),
		InvoiceNumber:   invoice.InvoiceNumber,
		Reason:          reason,
	}
}

// InvoiceRefundedEvent is raised when every settled payment was refunded in full
type InvoiceRefundedEvent struct {
	shared.BaseDomainEvent
	InvoiceNumber string          `json:"invoice_number"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
}

func NewInvoiceRefundedEvent(invoice *Invoice) *InvoiceRefundedEvent {
	return &InvoiceRefundedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventInvoiceRefunded, invoiceAggregateType, invoice.ID, invoice.BusinessID),
		InvoiceNumber:   invoice.InvoiceNumber,
		TotalAmount:     invoice.TotalAmount,
	}
}

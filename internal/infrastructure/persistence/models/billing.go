package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bizledger/backend/internal/domain/billing"
	"github.com/bizledger/backend/internal/domain/shared/valueobject"
)

// InvoiceModel is the persistence model for invoices.
// Line items are stored inline as JSONB since they never exist outside
// their invoice.
type InvoiceModel struct {
	BusinessAggregateModel
	InvoiceNumber  string               `gorm:"type:varchar(50);not null;uniqueIndex:idx_invoice_business_number,priority:2"`
	CustomerID     *uuid.UUID           `gorm:"type:uuid;index"`
	OrderID        *uuid.UUID           `gorm:"type:uuid;index"`
	Currency       string               `gorm:"type:varchar(3);not null"`
	Status         string               `gorm:"type:varchar(20);not null;index"`
	IssueDate      time.Time            `gorm:"not null"`
	DueDate        time.Time            `gorm:"not null;index"`
	Lines          billing.InvoiceLines `gorm:"type:jsonb;default:'[]'"`
	Subtotal       decimal.Decimal      `gorm:"type:decimal(18,6);not null;default:0"`
	DiscountAmount decimal.Decimal      `gorm:"type:decimal(18,6);not null;default:0"`
	TaxAmount      decimal.Decimal      `gorm:"type:decimal(18,6);not null;default:0"`
	TotalAmount    decimal.Decimal      `gorm:"type:decimal(18,6);not null;default:0"`
	AmountPaid     decimal.Decimal      `gorm:"type:decimal(18,6);not null;default:0"`
	AmountDue      decimal.Decimal      `gorm:"type:decimal(18,6);not null;default:0"`
	Notes          string               `gorm:"type:text"`
	SentAt         *time.Time
	ViewedAt       *time.Time
	PaidDate       *time.Time
	CancelledAt    *time.Time
	CancelReason   string `gorm:"type:varchar(500)"`
	RefundedAt     *time.Time
}

// TableName returns the table name for InvoiceModel
func (InvoiceModel) TableName() string {
	return "invoices"
}

// ToDomain converts InvoiceModel to a domain Invoice
func (m *InvoiceModel) ToDomain() *billing.Invoice {
	invoice := &billing.Invoice{
		InvoiceNumber:  m.InvoiceNumber,
		CustomerID:     m.CustomerID,
		OrderID:        m.OrderID,
		Currency:       valueobject.Currency(m.Currency),
		Status:         billing.InvoiceStatus(m.Status),
		IssueDate:      m.IssueDate,
		DueDate:        m.DueDate,
		Lines:          m.Lines,
		Subtotal:       m.Subtotal,
		DiscountAmount: m.DiscountAmount,
		TaxAmount:      m.TaxAmount,
		TotalAmount:    m.TotalAmount,
		AmountPaid:     m.AmountPaid,
		AmountDue:      m.AmountDue,
		Notes:          m.Notes,
		SentAt:         m.SentAt,
		ViewedAt:       m.ViewedAt,
		PaidDate:       m.PaidDate,
		CancelledAt:    m.CancelledAt,
		CancelReason:   m.CancelReason,
		RefundedAt:     m.RefundedAt,
	}
	m.PopulateBusinessAggregateRoot(&invoice.BusinessAggregateRoot)
	return invoice
}

// FromDomain populates InvoiceModel from a domain Invoice
func (m *InvoiceModel) FromDomain(invoice *billing.Invoice) {
	m.FromDomainBusinessAggregateRoot(invoice.BusinessAggregateRoot)
	m.InvoiceNumber = invoice.InvoiceNumber
	m.CustomerID = invoice.CustomerID
	m.OrderID = invoice.OrderID
	m.Currency = string(invoice.Currency)
	m.Status = invoice.Status.String()
	m.IssueDate = invoice.IssueDate
	m.DueDate = invoice.DueDate
	m.Lines = invoice.Lines
	m.Subtotal = invoice.Subtotal
	m.DiscountAmount = invoice.DiscountAmount
	m.TaxAmount = invoice.TaxAmount
	m.TotalAmount = invoice.TotalAmount
	m.AmountPaid = invoice.AmountPaid
	m.AmountDue = invoice.AmountDue
	m.Notes = invoice.Notes
	m.SentAt = invoice.SentAt
	m.ViewedAt = invoice.ViewedAt
	m.PaidDate = invoice.PaidDate
	m.CancelledAt = invoice.CancelledAt
	m.CancelReason = invoice.CancelReason
	m.RefundedAt = invoice.RefundedAt
}

// InvoiceModelFromDomain creates a new InvoiceModel from a domain Invoice
func InvoiceModelFromDomain(invoice *billing.Invoice) *InvoiceModel {
	m := &InvoiceModel{}
	m.FromDomain(invoice)
	return m
}

// PaymentModel is the persistence model for payments
type PaymentModel struct {
	BusinessAggregateModel
	PaymentNumber string                  `gorm:"type:varchar(50);not null;uniqueIndex:idx_payment_business_number,priority:2"`
	InvoiceID     *uuid.UUID              `gorm:"type:uuid;index"`
	Amount        decimal.Decimal         `gorm:"type:decimal(18,6);not null"`
	Currency      string                  `gorm:"type:varchar(3);not null"`
	Provider      string                  `gorm:"type:varchar(50);not null"`
	Status        string                  `gorm:"type:varchar(20);not null;index"`
	RefundAmount  decimal.Decimal         `gorm:"type:decimal(18,6);not null;default:0"`
	FailureReason string                  `gorm:"type:varchar(500)"`
	RefundReason  string                  `gorm:"type:varchar(500)"`
	Metadata      billing.PaymentMetadata `gorm:"type:jsonb;default:'{}'"`
	PaidAt        *time.Time
	FailedAt      *time.Time
	RefundedAt    *time.Time
	CancelledAt   *time.Time
}

// TableName returns the table name for PaymentModel
func (PaymentModel) TableName() string {
	return "payments"
}

// ToDomain converts PaymentModel to a domain Payment
func (m *PaymentModel) ToDomain() *billing.Payment {
	payment := &billing.Payment{
		PaymentNumber: m.PaymentNumber,
		InvoiceID:     m.InvoiceID,
		Amount:        m.Amount,
		Currency:      valueobject.Currency(m.Currency),
		Provider:      m.Provider,
		Status:        billing.PaymentStatus(m.Status),
		RefundAmount:  m.RefundAmount,
		FailureReason: m.FailureReason,
		RefundReason:  m.RefundReason,
		Metadata:      m.Metadata,
		PaidAt:        m.PaidAt,
		FailedAt:      m.FailedAt,
		RefundedAt:    m.RefundedAt,
		CancelledAt:   m.CancelledAt,
	}
	m.PopulateBusinessAggregateRoot(&payment.BusinessAggregateRoot)
	return payment
}

// FromDomain populates PaymentModel from a domain Payment
func (m *PaymentModel) FromDomain(payment *billing.Payment) {
	m.FromDomainBusinessAggregateRoot(payment.BusinessAggregateRoot)
	m.PaymentNumber = payment.PaymentNumber
	m.InvoiceID = payment.InvoiceID
	m.Amount = payment.Amount
	m.Currency = string(payment.Currency)
	m.Provider = payment.Provider
	m.Status = payment.Status.String()
	m.RefundAmount = payment.RefundAmount
	m.FailureReason = payment.FailureReason
	m.RefundReason = payment.RefundReason
	m.Metadata = payment.Metadata
	m.PaidAt = payment.PaidAt
	m.FailedAt = payment.FailedAt
	m.RefundedAt = payment.RefundedAt
	m.CancelledAt = payment.CancelledAt
}

// PaymentModelFromDomain creates a new PaymentModel from a domain Payment
func PaymentModelFromDomain(payment *billing.Payment) *PaymentModel {
	m := &PaymentModel{}
	m.FromDomain(payment)
	return m
}

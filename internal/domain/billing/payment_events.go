package billing

import (
	"github.com/bizledger/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const paymentAggregateType = "Payment"

// Event type constants for the payment lifecycle
const (
	EventPaymentRecorded = "payment.recorded"
	EventPaymentSettled  = "payment.settled"
	EventPaymentFailed   = "payment.failed"
	EventPaymentRefunded = "payment.refunded"
)

// PaymentRecordedEvent is raised when a new payment enters the ledger
type PaymentRecordedEvent struct {
	shared.BaseDomainEvent
	PaymentNumber string          `json:"payment_number"`
	InvoiceID     *uuid.UUID      `json:"invoice_id,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	Provider      string          `json:"provider"`
}

func NewPaymentRecordedEvent(payment *Payment) *PaymentRecordedEvent {
	return &PaymentRecordedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventPaymentRecorded, paymentAggregateType, payment.ID, payment.BusinessID),
		PaymentNumber:   payment.PaymentNumber,
		InvoiceID:       payment.InvoiceID,
		Amount:          payment.Amount,
		Currency:        string(payment.Currency),
		Provider:        payment.Provider,
	}
}

// PaymentSettledEvent is raised when a payment settles successfully
type PaymentSettledEvent struct {
	shared.BaseDomainEvent
	PaymentNumber string          `json:"payment_number"`
	InvoiceID     *uuid.UUID      `json:"invoice_id,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
}

func NewPaymentSettledEvent(payment *Payment) *PaymentSettledEvent {
	return &PaymentSettledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventPaymentSettled, paymentAggregateType, payment.ID, payment.BusinessID),
		PaymentNumber:   payment.PaymentNumber,
		InvoiceID:       payment.InvoiceID,
		Amount:          payment.Amount,
	}
}

// PaymentFailedEvent is raised when the provider reports a failed settlement
type PaymentFailedEvent struct {
	shared.BaseDomainEvent
	PaymentNumber string `json:"payment_number"`
	Reason        string `json:"reason"`
}

func NewPaymentFailedEvent(payment *Payment, reason string) *PaymentFailedEvent {
	return &PaymentFailedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventPaymentFailed, paymentAggregateType, payment.ID, payment.BusinessID),
		PaymentNumber:   payment.PaymentNumber,
		Reason:          reason,
	}
}

// PaymentRefundedEvent is raised for every refund issued against a payment
type PaymentRefundedEvent struct {
	shared.BaseDomainEvent
	PaymentNumber string          `json:"payment_number"`
	InvoiceID     *uuid.UUID      `json:"invoice_id,omitempty"`
	RefundAmount  decimal.Decimal `json:"refund_amount"`
	TotalRefunded decimal.Decimal `json:"total_refunded"`
	Reason        string          `json:"reason"`
	FullyRefunded bool            `json:"fully_refunded"`
}

func NewPaymentRefundedEvent(payment *Payment, refundAmount decimal.Decimal, reason string) *PaymentRefundedEvent {
	return &PaymentRefundedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventPaymentRefunded, paymentAggregateType, payment.ID, payment.BusinessID),
		PaymentNumber:   payment.PaymentNumber,
		InvoiceID:       payment.InvoiceID,
		RefundAmount:    refundAmount,
		TotalRefunded:   payment.RefundAmount,
		Reason:          reason,
		FullyRefunded:   payment.Status == PaymentStatusRefunded,
	}
}

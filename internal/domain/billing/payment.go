package billing

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/bizledger/backend/internal/domain/shared"
	"github.com/bizledger/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentStatus represents the lifecycle status of a payment
type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "PENDING"
	PaymentStatusProcessing PaymentStatus = "PROCESSING"
	PaymentStatusSucceeded  PaymentStatus = "SUCCEEDED"
	PaymentStatusFailed     PaymentStatus = "FAILED"
	PaymentStatusRefunded   PaymentStatus = "REFUNDED"
	PaymentStatusCancelled  PaymentStatus = "CANCELLED"
)

// IsValid checks if the status is a known payment status
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusProcessing, PaymentStatusSucceeded,
		PaymentStatusFailed, PaymentStatusRefunded, PaymentStatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition leaves this status.
// SUCCEEDED is not terminal: refunds can still move it to REFUNDED.
func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusFailed || s == PaymentStatusRefunded || s == PaymentStatusCancelled
}

// CanSettle reports whether a settlement outcome may still be applied
func (s PaymentStatus) CanSettle() bool {
	return s == PaymentStatusPending || s == PaymentStatusProcessing
}

// CanRefund reports whether a refund may be issued against this payment
func (s PaymentStatus) CanRefund() bool {
	return s == PaymentStatusSucceeded
}

func (s PaymentStatus) String() string {
	return string(s)
}

// SettlementOutcome is the terminal result reported by a payment provider
type SettlementOutcome string

const (
	OutcomeSucceeded SettlementOutcome = "SUCCEEDED"
	OutcomeFailed    SettlementOutcome = "FAILED"
)

// IsValid checks if the outcome is a known settlement outcome
func (o SettlementOutcome) IsValid() bool {
	return o == OutcomeSucceeded || o == OutcomeFailed
}

// PaymentMetadata holds provider-specific key/value pairs, stored as JSONB
type PaymentMetadata map[string]string

// Value implements driver.Valuer interface for GORM to store as JSONB
func (m PaymentMetadata) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner interface for GORM to read from JSONB
func (m *PaymentMetadata) Scan(value interface{}) error {
	if value == nil {
		*m = PaymentMetadata{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("failed to scan PaymentMetadata: unsupported type")
	}

	if len(bytes) == 0 {
		*m = PaymentMetadata{}
		return nil
	}

	return json.Unmarshal(bytes, m)
}

// Payment is the aggregate root for a single payment attempt. It may hold a
// weak reference to an invoice; that link is validated against the business
// scope before any read or mutation crosses it.
type Payment struct {
	shared.BusinessAggregateRoot
	PaymentNumber string
	InvoiceID     *uuid.UUID
	Amount        decimal.Decimal
	Currency      valueobject.Currency
	Provider      string
	Status        PaymentStatus
	RefundAmount  decimal.Decimal
	FailureReason string
	RefundReason  string
	Metadata      PaymentMetadata
	PaidAt        *time.Time
	FailedAt      *time.Time
	RefundedAt    *time.Time
	CancelledAt   *time.Time
}

// NewPayment records a new pending payment
func NewPayment(businessID uuid.UUID, paymentNumber string, invoiceID *uuid.UUID, amount decimal.Decimal, currency valueobject.Currency, provider string, metadata PaymentMetadata) (*Payment, error) {
	if businessID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeValidation, "Business ID cannot be empty")
	}
	if paymentNumber == "" {
		return nil, shared.NewDomainError(shared.CodeValidation, "Payment number cannot be empty")
	}
	if !amount.IsPositive() {
		return nil, shared.NewDomainError(shared.CodeValidation, "Payment amount must be positive")
	}
	if !currency.IsValid() {
		return nil, shared.NewDomainError(shared.CodeValidation, "Unsupported currency: "+string(currency))
	}
	if provider == "" {
		return nil, shared.NewDomainError(shared.CodeValidation, "Payment provider cannot be empty")
	}
	if metadata == nil {
		metadata = PaymentMetadata{}
	}

	payment := &Payment{
		BusinessAggregateRoot: shared.NewBusinessAggregateRoot(businessID),
		PaymentNumber:         paymentNumber,
		InvoiceID:             invoiceID,
		Amount:                amount,
		Currency:              currency,
		Provider:              provider,
		Status:                PaymentStatusPending,
		RefundAmount:          decimal.Zero,
		Metadata:              metadata,
	}

	payment.AddDomainEvent(NewPaymentRecordedEvent(payment))
	return payment, nil
}

// MarkProcessing moves a pending payment to processing, used when the
// provider confirms asynchronous handling has started.
func (p *Payment) MarkProcessing() error {
	if p.Status == PaymentStatusProcessing {
		return nil
	}
	if p.Status != PaymentStatusPending {
		return shared.NewDomainError(shared.CodeInvalidTransition,
			"Cannot mark payment as processing in status "+p.Status.String())
	}

	p.Status = PaymentStatusProcessing
	p.IncrementVersion()
	return nil
}

// Settle applies a terminal provider outcome. Settlement notifications are
// delivered at least once: a repeat of an already applied outcome is a no-op,
// while a conflicting outcome on a settled payment is rejected.
func (p *Payment) Settle(outcome SettlementOutcome, settledAt time.Time, failureReason string) error {
	if !outcome.IsValid() {
		return shared.NewDomainError(shared.CodeValidation, "Unknown settlement outcome: "+string(outcome))
	}

	if !p.Status.CanSettle() {
		if (outcome == OutcomeSucceeded && p.Status == PaymentStatusSucceeded) ||
			(outcome == OutcomeFailed && p.Status == PaymentStatusFailed) {
			return nil
		}
		return shared.NewDomainError(shared.CodeInvalidTransition,
			"Cannot settle payment in status "+p.Status.String())
	}

	switch outcome {
	case OutcomeSucceeded:
		p.Status = PaymentStatusSucceeded
		p.PaidAt = &settledAt
		p.AddDomainEvent(NewPaymentSettledEvent(p))
	case OutcomeFailed:
		p.Status = PaymentStatusFailed
		p.FailedAt = &settledAt
		p.FailureReason = failureReason
		p.AddDomainEvent(NewPaymentFailedEvent(p, failureReason))
	}

	p.IncrementVersion()
	return nil
}

// Cancel voids a payment that never settled
func (p *Payment) Cancel() error {
	if !p.Status.CanSettle() {
		return shared.NewDomainError(shared.CodeInvalidTransition,
			"Cannot cancel payment in status "+p.Status.String())
	}

	now := time.Now()
	p.Status = PaymentStatusCancelled
	p.CancelledAt = &now
	p.IncrementVersion()
	return nil
}

// Refund returns part or all of a succeeded payment. The cumulative refund
// amount only ever grows and can never exceed the payment amount; when the
// full amount has been returned the payment moves to REFUNDED.
func (p *Payment) Refund(amount decimal.Decimal, reason string, refundedAt time.Time) error {
	if !p.Status.CanRefund() {
		return shared.NewDomainError(shared.CodeInvalidTransition,
			"Cannot refund payment in status "+p.Status.String())
	}
	if !amount.IsPositive() {
		return shared.NewDomainError(shared.CodeValidation, "Refund amount must be positive")
	}

	newRefundTotal := p.RefundAmount.Add(amount)
	if newRefundTotal.GreaterThan(p.Amount) {
		return shared.NewDomainError(shared.CodeRefundExceedsPayment,
			"Refund would exceed the payment amount")
	}

	p.RefundAmount = newRefundTotal
	p.RefundedAt = &refundedAt
	if reason != "" {
		p.RefundReason = reason
	}
	if p.RefundAmount.Equal(p.Amount) {
		p.Status = PaymentStatusRefunded
	}
	p.IncrementVersion()
	p.AddDomainEvent(NewPaymentRefundedEvent(p, amount, reason))
	return nil
}

// RemainingRefundable returns how much of the payment can still be refunded
func (p *Payment) RemainingRefundable() decimal.Decimal {
	if !p.Status.CanRefund() {
		return decimal.Zero
	}
	return p.Amount.Sub(p.RefundAmount)
}

// EffectiveAmount is the payment's current contribution to its invoice's
// amount paid: the settled amount minus everything refunded so far. Payments
// that never succeeded contribute nothing.
func (p *Payment) EffectiveAmount() decimal.Decimal {
	if p.Status != PaymentStatusSucceeded && p.Status != PaymentStatusRefunded {
		return decimal.Zero
	}
	return p.Amount.Sub(p.RefundAmount)
}

// ContributesToInvoice reports whether this payment takes part in
// reconciliation of its linked invoice.
func (p *Payment) ContributesToInvoice() bool {
	return p.InvoiceID != nil &&
		(p.Status == PaymentStatusSucceeded || p.Status == PaymentStatusRefunded)
}

// GetAmountMoney returns the payment amount as a Money value object
func (p *Payment) GetAmountMoney() valueobject.Money {
	return valueobject.MustNewMoney(p.Amount, p.Currency)
}

package billing

import (
	"time"

	"github.com/bizledger/backend/internal/domain/shared"
	"github.com/bizledger/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceStatus represents the lifecycle status of an invoice
type InvoiceStatus string

const (
	InvoiceStatusDraft     InvoiceStatus = "DRAFT"
	InvoiceStatusSent      InvoiceStatus = "SENT"
	InvoiceStatusViewed    InvoiceStatus = "VIEWED"
	InvoiceStatusPaid      InvoiceStatus = "PAID"
	InvoiceStatusOverdue   InvoiceStatus = "OVERDUE"
	InvoiceStatusCancelled InvoiceStatus = "CANCELLED"
	InvoiceStatusRefunded  InvoiceStatus = "REFUNDED"
)

// IsValid checks if the status is a known invoice status
func (s InvoiceStatus) IsValid() bool {
	switch s {
	case InvoiceStatusDraft, InvoiceStatusSent, InvoiceStatusViewed,
		InvoiceStatusPaid, InvoiceStatusOverdue, InvoiceStatusCancelled,
		InvoiceStatusRefunded:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition leaves this status.
// PAID is not terminal: a refund can move it back out.
func (s InvoiceStatus) IsTerminal() bool {
	return s == InvoiceStatusCancelled || s == InvoiceStatusRefunded
}

// CanModifyLines reports whether line items may still be changed
func (s InvoiceStatus) CanModifyLines() bool {
	return s == InvoiceStatusDraft
}

// CanCancel reports whether the invoice may be cancelled from this status
func (s InvoiceStatus) CanCancel() bool {
	return s == InvoiceStatusDraft || s == InvoiceStatusSent || s == InvoiceStatusViewed
}

// CanDelete reports whether the invoice may be hard deleted
func (s InvoiceStatus) CanDelete() bool {
	return s == InvoiceStatusDraft
}

// CanAcceptPayment reports whether new payments may be linked to the invoice
func (s InvoiceStatus) CanAcceptPayment() bool {
	return s != InvoiceStatusCancelled && s != InvoiceStatusRefunded
}

// CanBecomeOverdue reports whether the overdue sweep may pick up this status
func (s InvoiceStatus) CanBecomeOverdue() bool {
	return s == InvoiceStatusSent || s == InvoiceStatusViewed
}

func (s InvoiceStatus) String() string {
	return string(s)
}

// Invoice is the aggregate root for a customer invoice. It owns its line
// items, the derived amount fields and the lifecycle state machine.
// AmountPaid is never written directly by callers; only ApplyReconciliation
// (invoked by the reconciliation service) may change it.
type Invoice struct {
	shared.BusinessAggregateRoot
	InvoiceNumber  string
	CustomerID     *uuid.UUID
	OrderID        *uuid.UUID
	Currency       valueobject.Currency
	Status         InvoiceStatus
	IssueDate      time.Time
	DueDate        time.Time
	Lines          InvoiceLines
	Subtotal       decimal.Decimal
	DiscountAmount decimal.Decimal
	TaxAmount      decimal.Decimal
	TotalAmount    decimal.Decimal
	AmountPaid     decimal.Decimal
	AmountDue      decimal.Decimal
	Notes          string
	SentAt         *time.Time
	ViewedAt       *time.Time
	PaidDate       *time.Time
	CancelledAt    *time.Time
	CancelReason   string
	RefundedAt     *time.Time
}

// NewInvoice creates a new draft invoice without lines
func NewInvoice(businessID uuid.UUID, invoiceNumber string, currency valueobject.Currency, issueDate, dueDate time.Time, customerID, orderID *uuid.UUID) (*Invoice, error) {
	if businessID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeValidation, "Business ID cannot be empty")
	}
	if invoiceNumber == "" {
		return nil, shared.NewDomainError(shared.CodeValidation, "Invoice number cannot be empty")
	}
	if !currency.IsValid() {
		return nil, shared.NewDomainError(shared.CodeValidation, "Unsupported currency: "+string(currency))
	}
	if dueDate.Before(issueDate) {
		return nil, shared.NewDomainError(shared.CodeValidation, "Due date cannot be before issue date")
	}

	invoice := &Invoice{
		BusinessAggregateRoot: shared.NewBusinessAggregateRoot(businessID),
		InvoiceNumber:         invoiceNumber,
		CustomerID:            customerID,
		OrderID:               orderID,
		Currency:              currency,
		Status:                InvoiceStatusDraft,
		IssueDate:             issueDate,
		DueDate:               dueDate,
		Lines:                 InvoiceLines{},
		Subtotal:              decimal.Zero,
		DiscountAmount:        decimal.Zero,
		TaxAmount:             decimal.Zero,
		TotalAmount:           decimal.Zero,
		AmountPaid:            decimal.Zero,
		AmountDue:             decimal.Zero,
	}

	invoice.AddDomainEvent(NewInvoiceCreatedEvent(invoice))
	return invoice, nil
}

// AddLine appends a line item; only allowed while the invoice is a draft
func (i *Invoice) AddLine(description string, productID *uuid.UUID, quantity, unitPrice, discountPct, taxPct decimal.Decimal) (*InvoiceLine, error) {
	if !i.Status.CanModifyLines() {
		return nil, shared.NewDomainError(shared.CodeInvalidTransition, "Lines can only be modified on a draft invoice")
	}

	line, err := NewInvoiceLine(description, productID, quantity, unitPrice, discountPct, taxPct)
	if err != nil {
		return nil, err
	}

	i.Lines = append(i.Lines, *line)
	i.recalculateTotals()
	i.IncrementVersion()
	return line, nil
}

// RemoveLine removes a line item by id; only allowed while the invoice is a draft
func (i *Invoice) RemoveLine(lineID uuid.UUID) error {
	if !i.Status.CanModifyLines() {
		return shared.NewDomainError(shared.CodeInvalidTransition, "Lines can only be modified on a draft invoice")
	}

	for idx, line := range i.Lines {
		if line.ID == lineID {
			i.Lines = append(i.Lines[:idx], i.Lines[idx+1:]...)
			i.recalculateTotals()
			i.IncrementVersion()
			return nil
		}
	}
	return shared.NewDomainError(shared.CodeNotFound, "Invoice line not found")
}

// ReplaceLines swaps the full line set; only allowed while the invoice is a draft
func (i *Invoice) ReplaceLines(lines []InvoiceLine) error {
	if !i.Status.CanModifyLines() {
		return shared.NewDomainError(shared.CodeInvalidTransition, "Lines can only be modified on a draft invoice")
	}

	replacement := make(InvoiceLines, 0, len(lines))
	for idx := range lines {
		line := lines[idx]
		if err := line.recompute(); err != nil {
			return err
		}
		if line.ID == uuid.Nil {
			line.ID = uuid.New()
		}
		replacement = append(replacement, line)
	}

	i.Lines = replacement
	i.recalculateTotals()
	i.IncrementVersion()
	return nil
}

// recalculateTotals sums the line amounts into the invoice aggregates.
// Line totals are already rounded to the minor unit, so the invoice total
// always equals the sum of the per-line totals the customer sees.
func (i *Invoice) recalculateTotals() {
	subtotal := decimal.Zero
	discount := decimal.Zero
	tax := decimal.Zero
	total := decimal.Zero

	for _, line := range i.Lines {
		subtotal = subtotal.Add(line.Subtotal)
		discount = discount.Add(line.DiscountAmount)
		tax = tax.Add(line.TaxAmount)
		total = total.Add(line.Total)
	}

	i.Subtotal = subtotal
	i.DiscountAmount = discount
	i.TaxAmount = tax
	i.TotalAmount = total
	i.AmountDue = amountDueFor(total, i.AmountPaid)
}

// amountDueFor clamps the outstanding amount at zero
func amountDueFor(total, paid decimal.Decimal) decimal.Decimal {
	due := total.Sub(paid)
	if due.IsNegative() {
		return decimal.Zero
	}
	return due
}

// Send issues the invoice to the customer (draft -> sent)
func (i *Invoice) Send(sentAt time.Time) error {
	if i.Status != InvoiceStatusDraft {
		return shared.NewDomainError(shared.CodeInvalidTransition,
			"Cannot send invoice in status "+i.Status.String())
	}
	if len(i.Lines) == 0 {
		return shared.NewDomainError(shared.CodeValidation, "Cannot send an invoice without line items")
	}

	i.Status = InvoiceStatusSent
	i.SentAt = &sentAt
	i.AddDomainEvent(NewInvoiceSentEvent(i))

	// A draft can be fully paid before it is issued. An invoice must never
	// sit in SENT with nothing due, so it lands directly on PAID.
	if i.AmountDue.IsZero() && i.TotalAmount.IsPositive() {
		paidAt := sentAt
		i.Status = InvoiceStatusPaid
		i.PaidDate = &paidAt
		i.AddDomainEvent(NewInvoicePaidEvent(i))
	}

	i.IncrementVersion()
	return nil
}

// MarkViewed records the customer opening the invoice (sent -> viewed).
// View notifications are delivered at least once, so a repeat on an already
// viewed invoice is a no-op rather than an illegal transition.
func (i *Invoice) MarkViewed(viewedAt time.Time) error {
	if i.Status == InvoiceStatusViewed {
		return nil
	}
	if i.Status != InvoiceStatusSent {
		return shared.NewDomainError(shared.CodeInvalidTransition,
			"Cannot mark invoice as viewed in status "+i.Status.String())
	}

	i.Status = InvoiceStatusViewed
	i.ViewedAt = &viewedAt
	i.IncrementVersion()
	i.AddDomainEvent(NewInvoiceViewedEvent(i))
	return nil
}

// Cancel voids the invoice. Only draft, sent and viewed invoices with no
// recorded payments can be cancelled; anything paid must be refunded first.
func (i *Invoice) Cancel(reason string) error {
	if !i.Status.CanCancel() {
		return shared.NewDomainError(shared.CodeInvalidTransition,
			"Cannot cancel invoice in status "+i.Status.String())
	}
	if i.AmountPaid.IsPositive() {
		return shared.NewDomainError(shared.CodeInvalidTransition,
			"Cannot cancel an invoice with recorded payments; refund them first")
	}

	now := time.Now()
	i.Status = InvoiceStatusCancelled
	i.CancelledAt = &now
	i.CancelReason = reason
	i.IncrementVersion()
	i.AddDomainEvent(NewInvoiceCancelledEvent(i, reason))
	return nil
}

// MarkOverdue flags a sent or viewed invoice whose due date has passed and
// which still has an outstanding balance (the daily sweep entry point).
func (i *Invoice) MarkOverdue(asOf time.Time) error {
	if !i.Status.CanBecomeOverdue() {
		return shared.NewDomainError(shared.CodeInvalidTransition,
			"Cannot mark invoice as overdue in status "+i.Status.String())
	}
	if !i.DueDate.Before(asOf) {
		return shared.NewDomainError(shared.CodeValidation, "Invoice is not past its due date")
	}
	if !i.AmountDue.IsPositive() {
		return shared.NewDomainError(shared.CodeValidation, "Invoice has no outstanding balance")
	}

	i.Status = InvoiceStatusOverdue
	i.IncrementVersion()
	i.AddDomainEvent(NewInvoiceOverdueEvent(i))
	return nil
}

// IsOverdueCandidate reports whether the sweep should flag this invoice
func (i *Invoice) IsOverdueCandidate(asOf time.Time) bool {
	return i.Status.CanBecomeOverdue() && i.DueDate.Before(asOf) && i.AmountDue.IsPositive()
}

// ApplyReconciliation sets the reconciled amount paid and drives the implied
// status transitions. It is the single writer of AmountPaid and must only be
// called by the reconciliation service. When nothing changes the call is a
// no-op and the version is left untouched.
func (i *Invoice) ApplyReconciliation(amountPaid decimal.Decimal, asOf time.Time) error {
	// The state machine guards win over amount validation: reconciling
	// against a terminal status is an illegal edge no matter the amount.
	if i.Status == InvoiceStatusCancelled {
		return shared.NewDomainError(shared.CodeInvalidTransition,
			"Cannot reconcile payments against a cancelled invoice")
	}
	if i.Status == InvoiceStatusRefunded && amountPaid.IsPositive() {
		return shared.NewDomainError(shared.CodeInvalidTransition,
			"Cannot reconcile payments against a refunded invoice")
	}
	if amountPaid.IsNegative() {
		return shared.NewDomainError(shared.CodeValidation, "Reconciled amount paid cannot be negative")
	}
	if amountPaid.GreaterThan(i.TotalAmount) {
		return shared.NewDomainError(shared.CodeValidation,
			"Reconciled amount paid exceeds invoice total")
	}

	previousPaid := i.AmountPaid
	previousStatus := i.Status

	i.AmountPaid = amountPaid
	i.AmountDue = amountDueFor(i.TotalAmount, amountPaid)

	switch {
	case i.AmountDue.IsZero() && i.TotalAmount.IsPositive():
		// Fully paid. Only customer-facing statuses transition; a draft
		// keeps its status until it is sent.
		if i.Status == InvoiceStatusSent || i.Status == InvoiceStatusViewed || i.Status == InvoiceStatusOverdue {
			now := asOf
			i.Status = InvoiceStatusPaid
			i.PaidDate = &now
			i.AddDomainEvent(NewInvoicePaidEvent(i))
		}
	case i.Status == InvoiceStatusPaid && amountPaid.IsZero():
		// Every settled payment was refunded in full.
		now := asOf
		i.Status = InvoiceStatusRefunded
		i.RefundedAt = &now
		i.PaidDate = nil
		i.AddDomainEvent(NewInvoiceRefundedEvent(i))
	case i.Status == InvoiceStatusPaid && i.AmountDue.IsPositive():
		// Partial refund reopened the balance. An invoice must never sit in
		// PAID with an outstanding amount, so it returns to the collectible
		// states; viewed_at is preserved for the audit trail.
		if i.DueDate.Before(asOf) {
			i.Status = InvoiceStatusOverdue
			i.AddDomainEvent(NewInvoiceOverdueEvent(i))
		} else {
			i.Status = InvoiceStatusSent
		}
		i.PaidDate = nil
	}

	if i.AmountPaid.Equal(previousPaid) && i.Status == previousStatus {
		return nil
	}

	i.IncrementVersion()
	return nil
}

// GetTotalAmountMoney returns the invoice total as a Money value object
func (i *Invoice) GetTotalAmountMoney() valueobject.Money {
	return valueobject.MustNewMoney(i.TotalAmount, i.Currency)
}

// GetAmountDueMoney returns the outstanding balance as a Money value object
func (i *Invoice) GetAmountDueMoney() valueobject.Money {
	return valueobject.MustNewMoney(i.AmountDue, i.Currency)
}

package billing

import (
	"time"

	"github.com/bizledger/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// ReconciliationResult captures the outcome of reconciling one invoice
// against its payment set.
type ReconciliationResult struct {
	InvoiceID      string
	PreviousStatus InvoiceStatus
	CurrentStatus  InvoiceStatus
	AmountPaid     decimal.Decimal
	AmountDue      decimal.Decimal
	Changed        bool
}

// ReconciliationService keeps invoices consistent with their payments. It is
// the only component allowed to change an invoice's amount paid: the paid
// amount is always derived from the full payment set rather than adjusted
// incrementally, which makes reconciliation idempotent and self-healing after
// missed updates.
type ReconciliationService struct{}

// NewReconciliationService creates a new reconciliation service
func NewReconciliationService() *ReconciliationService {
	return &ReconciliationService{}
}

// Reconcile recomputes the invoice's amount paid from the given payments and
// applies any implied status transition. The payments must be the complete
// set linked to the invoice; passing a subset silently shrinks the paid
// amount, so callers load by invoice id. Running it twice with the same
// payment set changes nothing the second time.
func (s *ReconciliationService) Reconcile(invoice *Invoice, payments []*Payment, asOf time.Time) (*ReconciliationResult, error) {
	if invoice == nil {
		return nil, shared.NewDomainError(shared.CodeValidation, "Invoice cannot be nil")
	}

	amountPaid := decimal.Zero
	for _, payment := range payments {
		if payment.InvoiceID == nil || *payment.InvoiceID != invoice.ID {
			return nil, shared.NewDomainError(shared.CodeValidation,
				"Payment "+payment.PaymentNumber+" does not reference the invoice being reconciled")
		}
		if !payment.BelongsTo(invoice.BusinessID) {
			return nil, shared.NewDomainError(shared.CodeCrossBusinessAccess,
				"Payment "+payment.PaymentNumber+" belongs to a different business")
		}
		if payment.Currency != invoice.Currency {
			return nil, shared.NewDomainError(shared.CodeValidation,
				"Payment "+payment.PaymentNumber+" currency does not match the invoice")
		}
		amountPaid = amountPaid.Add(payment.EffectiveAmount())
	}

	previousStatus := invoice.Status
	previousVersion := invoice.GetVersion()

	if err := invoice.ApplyReconciliation(amountPaid, asOf); err != nil {
		return nil, err
	}

	return &ReconciliationResult{
		InvoiceID:      invoice.ID.String(),
		PreviousStatus: previousStatus,
		CurrentStatus:  invoice.Status,
		AmountPaid:     invoice.AmountPaid,
		AmountDue:      invoice.AmountDue,
		Changed:        invoice.GetVersion() != previousVersion,
	}, nil
}

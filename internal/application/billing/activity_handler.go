package billing

import (
	"context"

	"go.uber.org/zap"

	"github.com/bizledger/backend/internal/domain/billing"
	"github.com/bizledger/backend/internal/domain/shared"
)

// LedgerActivityHandler subscribes to every invoice and payment event and
// writes a structured activity entry for each. The entries form the audit
// trail operators grep when a balance is disputed.
type LedgerActivityHandler struct {
	logger *zap.Logger
}

// NewLedgerActivityHandler creates a new LedgerActivityHandler
func NewLedgerActivityHandler(logger *zap.Logger) *LedgerActivityHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LedgerActivityHandler{logger: logger}
}

// EventTypes returns the event types this handler is interested in
func (h *LedgerActivityHandler) EventTypes() []string {
	return []string{
		billing.EventInvoiceCreated,
		billing.EventInvoiceSent,
		billing.EventInvoiceViewed,
		billing.EventInvoicePaid,
		billing.EventInvoiceOverdue,
		billing.EventInvoiceCancelled,
		billing.EventInvoiceRefunded,
		billing.EventPaymentRecorded,
		billing.EventPaymentSettled,
		billing.EventPaymentFailed,
		billing.EventPaymentRefunded,
	}
}

// Handle writes an activity entry for the event
func (h *LedgerActivityHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	h.logger.Info("ledger activity",
		zap.String("event_id", event.EventID().String()),
		zap.String("event_type", event.EventType()),
		zap.String("aggregate_type", event.AggregateType()),
		zap.String("aggregate_id", event.AggregateID().String()),
		zap.String("business_id", event.BusinessID().String()),
		zap.Time("occurred_at", event.OccurredAt()))
	return nil
}

// Ensure LedgerActivityHandler implements shared.EventHandler
var _ shared.EventHandler = (*LedgerActivityHandler)(nil)

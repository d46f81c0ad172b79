package event

import (
	"github.com/bizledger/backend/internal/domain/billing"
)

// RegisterAllEvents registers all domain event types with the serializer so
// they can be rendered and replayed from their stored JSON form. Every event
// starts at schema version 1; when a schema changes, switch that event to a
// versioned registration with the upgrader chain.
func RegisterAllEvents(serializer Serializer) {
	// Invoice events
	serializer.Register(billing.EventInvoiceCreated, &billing.InvoiceCreatedEvent{})
	serializer.Register(billing.EventInvoiceSent, &billing.InvoiceSentEvent{})
	serializer.Register(billing.EventInvoiceViewed, &billing.InvoiceViewedEvent{})
	serializer.Register(billing.EventInvoicePaid, &billing.InvoicePaidEvent{})
	serializer.Register(billing.EventInvoiceOverdue, &billing.InvoiceOverdueEvent{})
	serializer.Register(billing.EventInvoiceCancelled, &billing.InvoiceCancelledEvent{})
	serializer.Register(billing.EventInvoiceRefunded, &billing.InvoiceRefundedEvent{})

	// Payment events
	serializer.Register(billing.EventPaymentRecorded, &billing.PaymentRecordedEvent{})
	serializer.Register(billing.EventPaymentSettled, &billing.PaymentSettledEvent{})
	serializer.Register(billing.EventPaymentFailed, &billing.PaymentFailedEvent{})
	serializer.Register(billing.EventPaymentRefunded, &billing.PaymentRefundedEvent{})
}

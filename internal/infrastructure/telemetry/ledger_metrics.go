// Package telemetry provides OpenTelemetry integration for metrics collection.
package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// LedgerMetrics provides business metrics for the invoicing and payment ledger.
// It tracks invoice issuance, payment outcomes, refunds, and receivable health.
type LedgerMetrics struct {
	meter  metric.Meter
	logger *zap.Logger

	// Counter metrics (monotonically increasing)
	invoiceIssuedTotal          *Counter
	invoiceAmountTotal          *Counter
	paymentTotal                *Counter
	refundTotal                 *Counter
	reconciliationConflictTotal *Counter
	overdueFlaggedTotal         *Counter

	// Gauge metrics (point-in-time values)
	receivableOpenCount   *Gauge
	receivableOutstanding *FloatGauge

	// Periodic collector
	stopChan    chan struct{}
	stopOnce    sync.Once
	collectOnce sync.Once

	// Data providers for periodic collection
	receivablesProvider ReceivablesMetricsProvider
}

// ReceivablesMetricsProvider provides receivable data for periodic metrics
// collection. This interface allows the telemetry layer to query ledger state
// without depending on the billing domain directly.
type ReceivablesMetricsProvider interface {
	// GetOpenInvoiceCount returns the number of invoices still carrying a balance for a business
	GetOpenInvoiceCount(ctx context.Context, businessID uuid.UUID) (int64, error)

	// GetOutstandingAmount returns the total amount due across open invoices for a business
	GetOutstandingAmount(ctx context.Context, businessID uuid.UUID) (decimal.Decimal, error)
}

// LedgerMetricsConfig holds configuration for ledger metrics.
type LedgerMetricsConfig struct {
	Meter               metric.Meter
	Logger              *zap.Logger
	CollectInterval     time.Duration // Default: 5 minutes
	ReceivablesProvider ReceivablesMetricsProvider
}

// NewLedgerMetrics creates a new LedgerMetrics instance.
func NewLedgerMetrics(cfg LedgerMetricsConfig) (*LedgerMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	lm := &LedgerMetrics{
		meter:               cfg.Meter,
		logger:              logger,
		stopChan:            make(chan struct{}),
		receivablesProvider: cfg.ReceivablesProvider,
	}

	// Initialize counter metrics
	var err error

	// Invoice metrics
	lm.invoiceIssuedTotal, err = NewCounter(
		cfg.Meter,
		"ledger_invoice_issued_total",
		"Total number of invoices issued",
		"{invoices}",
	)
	if err != nil {
		return nil, err
	}

	lm.invoiceAmountTotal, err = NewCounter(
		cfg.Meter,
		"ledger_invoice_amount_total",
		"Total invoiced amount in minor currency units (cents)",
		"{cents}",
	)
	if err != nil {
		return nil, err
	}

	// Payment metrics
	lm.paymentTotal, err = NewCounter(
		cfg.Meter,
		"ledger_payment_total",
		"Total number of payment transactions",
		"{payments}",
	)
	if err != nil {
		return nil, err
	}

	lm.refundTotal, err = NewCounter(
		cfg.Meter,
		"ledger_refund_total",
		"Total number of refunds issued",
		"{refunds}",
	)
	if err != nil {
		return nil, err
	}

	// Reconciliation metrics
	lm.reconciliationConflictTotal, err = NewCounter(
		cfg.Meter,
		"ledger_reconciliation_conflict_total",
		"Total number of optimistic lock conflicts during reconciliation",
		"{conflicts}",
	)
	if err != nil {
		return nil, err
	}

	lm.overdueFlaggedTotal, err = NewCounter(
		cfg.Meter,
		"ledger_overdue_flagged_total",
		"Total number of invoices flagged overdue by the daily sweep",
		"{invoices}",
	)
	if err != nil {
		return nil, err
	}

	// Receivable gauge metrics
	lm.receivableOpenCount, err = NewGauge(
		cfg.Meter,
		"ledger_receivable_open_count",
		"Number of invoices still carrying a balance",
		"{invoices}",
	)
	if err != nil {
		return nil, err
	}

	lm.receivableOutstanding, err = NewFloatGauge(
		cfg.Meter,
		"ledger_receivable_outstanding_amount",
		"Total amount due across open invoices",
		"{currency}",
	)
	if err != nil {
		return nil, err
	}

	return lm, nil
}

// =============================================================================
// Invoice Metrics
// =============================================================================

// RecordInvoiceIssued records an invoice issuance event.
// This should be called from the application layer when an invoice is sent.
func (lm *LedgerMetrics) RecordInvoiceIssued(ctx context.Context, businessID uuid.UUID, currency string) {
	lm.invoiceIssuedTotal.Inc(ctx,
		AttrBusinessID.String(businessID.String()),
		AttrCurrency.String(currency),
	)
}

// RecordInvoiceAmount records the invoiced amount.
// Amount should be in the smallest currency unit (cents).
func (lm *LedgerMetrics) RecordInvoiceAmount(ctx context.Context, businessID uuid.UUID, currency string, amountCents int64) {
	lm.invoiceAmountTotal.Add(ctx, amountCents,
		AttrBusinessID.String(businessID.String()),
		AttrCurrency.String(currency),
	)
}

// RecordInvoiceIssuedWithAmount is a convenience method that records both invoice count and amount.
func (lm *LedgerMetrics) RecordInvoiceIssuedWithAmount(ctx context.Context, businessID uuid.UUID, currency string, total decimal.Decimal) {
	lm.RecordInvoiceIssued(ctx, businessID, currency)

	// Convert to cents (multiply by 100)
	amountCents := total.Mul(decimal.NewFromInt(100)).IntPart()
	lm.RecordInvoiceAmount(ctx, businessID, currency, amountCents)
}

// =============================================================================
// Payment Metrics
// =============================================================================

// PaymentOutcome represents the outcome of a payment for metrics labeling.
type PaymentOutcome string

const (
	PaymentOutcomeSettled PaymentOutcome = "settled"
	PaymentOutcomeFailed  PaymentOutcome = "failed"
)

// RecordPayment records a payment transaction.
// This should be called when a payment settles or fails.
func (lm *LedgerMetrics) RecordPayment(ctx context.Context, businessID uuid.UUID, provider string, outcome PaymentOutcome) {
	lm.paymentTotal.Inc(ctx,
		AttrBusinessID.String(businessID.String()),
		AttrPaymentProvider.String(provider),
		AttrPaymentStatus.String(string(outcome)),
	)
}

// RecordRefund records a refund event.
func (lm *LedgerMetrics) RecordRefund(ctx context.Context, businessID uuid.UUID, provider string) {
	lm.refundTotal.Inc(ctx,
		AttrBusinessID.String(businessID.String()),
		AttrPaymentProvider.String(provider),
	)
}

// =============================================================================
// Reconciliation Metrics
// =============================================================================

// RecordReconciliationConflict records an optimistic lock conflict.
func (lm *LedgerMetrics) RecordReconciliationConflict(ctx context.Context, businessID uuid.UUID) {
	lm.reconciliationConflictTotal.Inc(ctx,
		AttrBusinessID.String(businessID.String()),
	)
}

// RecordOverdueFlagged records invoices flagged overdue by a sweep run.
func (lm *LedgerMetrics) RecordOverdueFlagged(ctx context.Context, businessID uuid.UUID, count int64) {
	lm.overdueFlaggedTotal.Add(ctx, count,
		AttrBusinessID.String(businessID.String()),
	)
}

// =============================================================================
// Receivable Metrics
// =============================================================================

// RecordOpenInvoiceCount records the number of invoices still carrying a balance.
// This is a gauge metric that should be updated periodically.
func (lm *LedgerMetrics) RecordOpenInvoiceCount(ctx context.Context, businessID uuid.UUID, count int64) {
	lm.receivableOpenCount.Record(ctx, count,
		AttrBusinessID.String(businessID.String()),
	)
}

// RecordOutstandingAmount records the total amount due across open invoices.
// This is a gauge metric that should be updated periodically.
func (lm *LedgerMetrics) RecordOutstandingAmount(ctx context.Context, businessID uuid.UUID, amount decimal.Decimal) {
	lm.receivableOutstanding.Record(ctx, amount.InexactFloat64(),
		AttrBusinessID.String(businessID.String()),
	)
}

// =============================================================================
// Periodic Collection
// =============================================================================

// BusinessProvider provides business IDs for periodic metrics collection.
type BusinessProvider interface {
	GetActiveBusinessIDs(ctx context.Context) ([]uuid.UUID, error)
}

// StartPeriodicCollection starts periodic collection of gauge metrics.
// It collects receivable metrics every interval (default: 5 minutes).
// This is non-blocking - use Stop() to stop collection.
func (lm *LedgerMetrics) StartPeriodicCollection(ctx context.Context, businessProvider BusinessProvider, interval time.Duration) {
	lm.collectOnce.Do(func() {
		if interval <= 0 {
			interval = 5 * time.Minute
		}

		go lm.runPeriodicCollection(ctx, businessProvider, interval)
	})
}

// runPeriodicCollection runs the periodic collection loop.
func (lm *LedgerMetrics) runPeriodicCollection(ctx context.Context, businessProvider BusinessProvider, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Collect immediately on start
	lm.collectReceivableMetrics(ctx, businessProvider)

	for {
		select {
		case <-lm.stopChan:
			lm.logger.Info("Stopping periodic ledger metrics collection")
			return
		case <-ctx.Done():
			lm.logger.Info("Context cancelled, stopping periodic ledger metrics collection")
			return
		case <-ticker.C:
			lm.collectReceivableMetrics(ctx, businessProvider)
		}
	}
}

// collectReceivableMetrics collects receivable gauge metrics for all businesses.
func (lm *LedgerMetrics) collectReceivableMetrics(ctx context.Context, businessProvider BusinessProvider) {
	if lm.receivablesProvider == nil {
		lm.logger.Debug("No receivables provider configured, skipping receivable metrics collection")
		return
	}

	businessIDs, err := businessProvider.GetActiveBusinessIDs(ctx)
	if err != nil {
		lm.logger.Error("Failed to get business IDs for metrics collection", zap.Error(err))
		return
	}

	for _, businessID := range businessIDs {
		lm.collectBusinessReceivableMetrics(ctx, businessID)
	}
}

// collectBusinessReceivableMetrics collects receivable metrics for a single business.
func (lm *LedgerMetrics) collectBusinessReceivableMetrics(ctx context.Context, businessID uuid.UUID) {
	// Collect open invoice count
	openCount, err := lm.receivablesProvider.GetOpenInvoiceCount(ctx, businessID)
	if err != nil {
		lm.logger.Warn("Failed to get open invoice count for business",
			zap.String("business_id", businessID.String()),
			zap.Error(err),
		)
	} else {
		lm.RecordOpenInvoiceCount(ctx, businessID, openCount)
	}

	// Collect outstanding amount
	outstanding, err := lm.receivablesProvider.GetOutstandingAmount(ctx, businessID)
	if err != nil {
		lm.logger.Warn("Failed to get outstanding amount for business",
			zap.String("business_id", businessID.String()),
			zap.Error(err),
		)
	} else {
		lm.RecordOutstandingAmount(ctx, businessID, outstanding)
	}
}

// Stop stops the periodic collection.
func (lm *LedgerMetrics) Stop() {
	lm.stopOnce.Do(func() {
		close(lm.stopChan)
	})
}

// =============================================================================
// Error Types
// =============================================================================

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewLedgerMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}

package telemetry_test

import (
	"context"
	"testing"
	"time"

	"github.com/bizledger/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"
)

func TestNewLedgerMetrics(t *testing.T) {
	meter := noop.NewMeterProvider().Meter("test")

	lm, err := telemetry.NewLedgerMetrics(telemetry.LedgerMetricsConfig{
		Meter:  meter,
		Logger: zap.NewNop(),
	})

	require.NoError(t, err)
	require.NotNil(t, lm)
}

func TestNewLedgerMetrics_NilMeter(t *testing.T) {
	lm, err := telemetry.NewLedgerMetrics(telemetry.LedgerMetricsConfig{
		Meter:  nil,
		Logger: zap.NewNop(),
	})

	require.Error(t, err)
	assert.Nil(t, lm)
	assert.Equal(t, "NewLedgerMetrics: meter cannot be nil", err.Error())
}

func TestLedgerMetrics_RecordInvoiceIssued(t *testing.T) {
	meter := noop.NewMeterProvider().Meter("test")
	lm, err := telemetry.NewLedgerMetrics(telemetry.LedgerMetricsConfig{
		Meter: meter,
	})
	require.NoError(t, err)

	ctx := context.Background()
	businessID := uuid.New()

	// Should not panic
	lm.RecordInvoiceIssued(ctx, businessID, "USD")
	lm.RecordInvoiceIssued(ctx, businessID, "EUR")
}

func TestLedgerMetrics_RecordInvoiceIssuedWithAmount(t *testing.T) {
	meter := noop.NewMeterProvider().Meter("test")
	lm, err := telemetry.NewLedgerMetrics(telemetry.LedgerMetricsConfig{
		Meter: meter,
	})
	require.NoError(t, err)

	ctx := context.Background()
	businessID := uuid.New()
	total := decimal.NewFromFloat(199.99)

	// Should not panic and record both count and amount
	lm.RecordInvoiceIssuedWithAmount(ctx, businessID, "USD", total)
}

func TestLedgerMetrics_RecordPayment(t *testing.T) {
	meter := noop.NewMeterProvider().Meter("test")
	lm, err := telemetry.NewLedgerMetrics(telemetry.LedgerMetricsConfig{
		Meter: meter,
	})
	require.NoError(t, err)

	ctx := context.Background()
	businessID := uuid.New()

	// Should not panic
	lm.RecordPayment(ctx, businessID, "stripe", telemetry.PaymentOutcomeSettled)
	lm.RecordPayment(ctx, businessID, "paypal", telemetry.PaymentOutcomeFailed)
	lm.RecordRefund(ctx, businessID, "stripe")
}

func TestLedgerMetrics_RecordReconciliationConflict(t *testing.T) {
	meter := noop.NewMeterProvider().Meter("test")
	lm, err := telemetry.NewLedgerMetrics(telemetry.LedgerMetricsConfig{
		Meter: meter,
	})
	require.NoError(t, err)

	ctx := context.Background()
	businessID := uuid.New()

	// Should not panic
	lm.RecordReconciliationConflict(ctx, businessID)
	lm.RecordOverdueFlagged(ctx, businessID, 3)
}

func TestLedgerMetrics_RecordReceivableGauges(t *testing.T) {
	meter := noop.NewMeterProvider().Meter("test")
	lm, err := telemetry.NewLedgerMetrics(telemetry.LedgerMetricsConfig{
		Meter: meter,
	})
	require.NoError(t, err)

	ctx := context.Background()
	businessID := uuid.New()

	// Should not panic
	lm.RecordOpenInvoiceCount(ctx, businessID, 12)
	lm.RecordOutstandingAmount(ctx, businessID, decimal.NewFromFloat(4312.50))
}

// Mock implementations for testing periodic collection

type mockBusinessProvider struct {
	businessIDs []uuid.UUID
	err         error
}

func (m *mockBusinessProvider) GetActiveBusinessIDs(ctx context.Context) ([]uuid.UUID, error) {
	return m.businessIDs, m.err
}

type mockReceivablesProvider struct {
	openCount   int64
	outstanding decimal.Decimal
	err         error
}

func (m *mockReceivablesProvider) GetOpenInvoiceCount(ctx context.Context, businessID uuid.UUID) (int64, error) {
	if m.err != nil {
		return 0, m.err
	}
	return m.openCount, nil
}

func (m *mockReceivablesProvider) GetOutstandingAmount(ctx context.Context, businessID uuid.UUID) (decimal.Decimal, error) {
	if m.err != nil {
		return decimal.Zero, m.err
	}
	return m.outstanding, nil
}

func TestLedgerMetrics_PeriodicCollection(t *testing.T) {
	meter := noop.NewMeterProvider().Meter("test")

	businessID := uuid.New()

	receivablesProvider := &mockReceivablesProvider{
		openCount:   7,
		outstanding: decimal.NewFromFloat(1250.00),
	}

	lm, err := telemetry.NewLedgerMetrics(telemetry.LedgerMetricsConfig{
		Meter:               meter,
		Logger:              zap.NewNop(),
		ReceivablesProvider: receivablesProvider,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	businessProvider := &mockBusinessProvider{
		businessIDs: []uuid.UUID{businessID},
	}

	// Start periodic collection with short interval for testing
	lm.StartPeriodicCollection(ctx, businessProvider, 100*time.Millisecond)

	// Wait for at least one collection cycle
	time.Sleep(150 * time.Millisecond)

	// Stop collection
	lm.Stop()

	// Should complete without error
}

func TestLedgerMetrics_PeriodicCollection_NoProvider(t *testing.T) {
	meter := noop.NewMeterProvider().Meter("test")

	lm, err := telemetry.NewLedgerMetrics(telemetry.LedgerMetricsConfig{
		Meter:  meter,
		Logger: zap.NewNop(),
		// No receivables provider
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	businessProvider := &mockBusinessProvider{
		businessIDs: []uuid.UUID{uuid.New()},
	}

	// Should not panic with no receivables provider
	lm.StartPeriodicCollection(ctx, businessProvider, 50*time.Millisecond)

	time.Sleep(100 * time.Millisecond)
	lm.Stop()
}

func TestLedgerMetrics_Stop_Idempotent(t *testing.T) {
	meter := noop.NewMeterProvider().Meter("test")
	lm, err := telemetry.NewLedgerMetrics(telemetry.LedgerMetricsConfig{
		Meter: meter,
	})
	require.NoError(t, err)

	// Calling Stop multiple times should not panic
	lm.Stop()
	lm.Stop()
	lm.Stop()
}

func TestLedgerMetrics_StartPeriodicCollection_OnlyOnce(t *testing.T) {
	meter := noop.NewMeterProvider().Meter("test")
	lm, err := telemetry.NewLedgerMetrics(telemetry.LedgerMetricsConfig{
		Meter:  meter,
		Logger: zap.NewNop(),
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	businessProvider := &mockBusinessProvider{
		businessIDs: []uuid.UUID{},
	}

	// Calling StartPeriodicCollection multiple times should only start once
	lm.StartPeriodicCollection(ctx, businessProvider, time.Hour)
	lm.StartPeriodicCollection(ctx, businessProvider, time.Minute)
	lm.StartPeriodicCollection(ctx, businessProvider, time.Second)

	lm.Stop()
}

func TestPaymentOutcome_Values(t *testing.T) {
	assert.Equal(t, telemetry.PaymentOutcome("settled"), telemetry.PaymentOutcomeSettled)
	assert.Equal(t, telemetry.PaymentOutcome("failed"), telemetry.PaymentOutcomeFailed)
}

func TestMetricsError_Error(t *testing.T) {
	err := &telemetry.MetricsError{
		Op:  "TestOperation",
		Err: "test error message",
	}

	assert.Equal(t, "TestOperation: test error message", err.Error())
}

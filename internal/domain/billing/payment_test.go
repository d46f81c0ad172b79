package billing

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bizledger/backend/internal/domain/shared"
	"github.com/bizledger/backend/internal/domain/shared/valueobject"
)

func newTestPayment(t *testing.T, amount string) *Payment {
	t.Helper()
	invoiceID := uuid.New()
	payment, err := NewPayment(uuid.New(), "PAY-20260301-00001", &invoiceID, dec(amount), valueobject.ZAR, "eft", nil)
	require.NoError(t, err)
	return payment
}

func newSucceededPayment(t *testing.T, amount string) *Payment {
	t.Helper()
	payment := newTestPayment(t, amount)
	require.NoError(t, payment.Settle(OutcomeSucceeded, time.Date(2026, 3, 5, 12, 0, 0, 0, time.UTC), ""))
	return payment
}

func TestNewPayment(t *testing.T) {
	t.Run("creates pending payment", func(t *testing.T) {
		payment := newTestPayment(t, "62.07")

		assert.Equal(t, PaymentStatusPending, payment.Status)
		assert.True(t, payment.RefundAmount.IsZero())
		assert.NotNil(t, payment.Metadata)
		assert.Len(t, payment.GetDomainEvents(), 1)
	})

	t.Run("rejects non-positive amount", func(t *testing.T) {
		_, err := NewPayment(uuid.New(), "PAY-1", nil, decimal.Zero, valueobject.ZAR, "eft", nil)
		require.Error(t, err)
		assert.True(t, shared.HasCode(err, shared.CodeValidation))

		_, err = NewPayment(uuid.New(), "PAY-1", nil, dec("-5"), valueobject.ZAR, "eft", nil)
		require.Error(t, err)
	})

	t.Run("rejects missing provider", func(t *testing.T) {
		_, err := NewPayment(uuid.New(), "PAY-1", nil, dec("10"), valueobject.ZAR, "", nil)
		require.Error(t, err)
	})
}

func TestPayment_Settle(t *testing.T) {
	t.Run("pending settles to succeeded", func(t *testing.T) {
		payment := newTestPayment(t, "62.07")
		settledAt := time.Date(2026, 3, 5, 12, 0, 0, 0, time.UTC)

		require.NoError(t, payment.Settle(OutcomeSucceeded, settledAt, ""))
		assert.Equal(t, PaymentStatusSucceeded, payment.Status)
		require.NotNil(t, payment.PaidAt)
		assert.Equal(t, settledAt, *payment.PaidAt)
	})

	t.Run("processing settles to failed with reason", func(t *testing.T) {
		payment := newTestPayment(t, "62.07")
		require.NoError(t, payment.MarkProcessing())

		require.NoError(t, payment.Settle(OutcomeFailed, time.Now(), "insufficient funds"))
		assert.Equal(t, PaymentStatusFailed, payment.Status)
		assert.Equal(t, "insufficient funds", payment.FailureReason)
	})

	t.Run("repeated identical outcome is a no-op", func(t *testing.T) {
		payment := newSucceededPayment(t, "62.07")
		version := payment.GetVersion()
		paidAt := *payment.PaidAt

		require.NoError(t, payment.Settle(OutcomeSucceeded, paidAt.Add(time.Hour), ""))
		assert.Equal(t, version, payment.GetVersion())
		assert.Equal(t, paidAt, *payment.PaidAt)
	})

	t.Run("conflicting outcome on settled payment is rejected", func(t *testing.T) {
		payment := newSucceededPayment(t, "62.07")

		err := payment.Settle(OutcomeFailed, time.Now(), "late failure")
		require.Error(t, err)
		assert.True(t, shared.HasCode(err, shared.CodeInvalidTransition))
		assert.Equal(t, PaymentStatusSucceeded, payment.Status)
	})

	t.Run("unknown outcome rejected", func(t *testing.T) {
		payment := newTestPayment(t, "10")
		err := payment.Settle(SettlementOutcome("MAYBE"), time.Now(), "")
		require.Error(t, err)
		assert.True(t, shared.HasCode(err, shared.CodeValidation))
	})
}

func TestPayment_Refund(t *testing.T) {
	t.Run("partial refund keeps succeeded status", func(t *testing.T) {
		payment := newSucceededPayment(t, "62.07")

		require.NoError(t, payment.Refund(dec("20"), "damaged goods", time.Now()))
		assert.Equal(t, PaymentStatusSucceeded, payment.Status)
		assert.True(t, dec("20").Equal(payment.RefundAmount))
		assert.True(t, dec("42.07").Equal(payment.EffectiveAmount()))
	})

	t.Run("refund amount is monotone", func(t *testing.T) {
		payment := newSucceededPayment(t, "100")

		require.NoError(t, payment.Refund(dec("30"), "", time.Now()))
		require.NoError(t, payment.Refund(dec("30"), "", time.Now()))
		assert.True(t, dec("60").Equal(payment.RefundAmount))
		assert.True(t, dec("40").Equal(payment.RemainingRefundable()))
	})

	t.Run("full refund transitions to refunded", func(t *testing.T) {
		payment := newSucceededPayment(t, "62.07")

		require.NoError(t, payment.Refund(dec("62.07"), "order cancelled", time.Now()))
		assert.Equal(t, PaymentStatusRefunded, payment.Status)
		require.NotNil(t, payment.RefundedAt)
		assert.True(t, payment.EffectiveAmount().IsZero())
	})

	t.Run("over-refund rejected without mutation", func(t *testing.T) {
		payment := newSucceededPayment(t, "62.07")
		require.NoError(t, payment.Refund(dec("40"), "", time.Now()))

		err := payment.Refund(dec("22.08"), "", time.Now())
		require.Error(t, err)
		assert.True(t, shared.HasCode(err, shared.CodeRefundExceedsPayment))
		assert.True(t, dec("40").Equal(payment.RefundAmount))
		assert.Equal(t, PaymentStatusSucceeded, payment.Status)
	})

	t.Run("cannot refund unsettled or failed payment", func(t *testing.T) {
		pending := newTestPayment(t, "10")
		err := pending.Refund(dec("5"), "", time.Now())
		require.Error(t, err)
		assert.True(t, shared.HasCode(err, shared.CodeInvalidTransition))

		failed := newTestPayment(t, "10")
		require.NoError(t, failed.Settle(OutcomeFailed, time.Now(), "declined"))
		err = failed.Refund(dec("5"), "", time.Now())
		require.Error(t, err)
	})

	t.Run("cannot refund beyond fully refunded", func(t *testing.T) {
		payment := newSucceededPayment(t, "10")
		require.NoError(t, payment.Refund(dec("10"), "", time.Now()))

		err := payment.Refund(dec("0.01"), "", time.Now())
		require.Error(t, err)
		assert.True(t, shared.HasCode(err, shared.CodeInvalidTransition))
	})

	t.Run("non-positive refund rejected", func(t *testing.T) {
		payment := newSucceededPayment(t, "10")
		err := payment.Refund(decimal.Zero, "", time.Now())
		require.Error(t, err)
		assert.True(t, shared.HasCode(err, shared.CodeValidation))
	})
}

func TestPayment_EffectiveAmount(t *testing.T) {
	tests := []struct {
		name    string
		prepare func(t *testing.T) *Payment
		want    string
	}{
		{
			name:    "pending contributes nothing",
			prepare: func(t *testing.T) *Payment { return newTestPayment(t, "50") },
			want:    "0",
		},
		{
			name: "failed contributes nothing",
			prepare: func(t *testing.T) *Payment {
				p := newTestPayment(t, "50")
				require.NoError(t, p.Settle(OutcomeFailed, time.Now(), "declined"))
				return p
			},
			want: "0",
		},
		{
			name:    "succeeded contributes full amount",
			prepare: func(t *testing.T) *Payment { return newSucceededPayment(t, "50") },
			want:    "50",
		},
		{
			name: "partially refunded contributes the remainder",
			prepare: func(t *testing.T) *Payment {
				p := newSucceededPayment(t, "50")
				require.NoError(t, p.Refund(dec("20"), "", time.Now()))
				return p
			},
			want: "30",
		},
		{
			name: "fully refunded contributes nothing",
			prepare: func(t *testing.T) *Payment {
				p := newSucceededPayment(t, "50")
				require.NoError(t, p.Refund(dec("50"), "", time.Now()))
				return p
			},
			want: "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payment := tt.prepare(t)
			assert.True(t, dec(tt.want).Equal(payment.EffectiveAmount()))
		})
	}
}

func TestPayment_Cancel(t *testing.T) {
	payment := newTestPayment(t, "10")
	require.NoError(t, payment.Cancel())
	assert.Equal(t, PaymentStatusCancelled, payment.Status)

	settled := newSucceededPayment(t, "10")
	err := settled.Cancel()
	require.Error(t, err)
}

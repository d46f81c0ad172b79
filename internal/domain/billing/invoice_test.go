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

func newTestInvoice(t *testing.T) *Invoice {
	t.Helper()
	issue := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	due := issue.AddDate(0, 0, 30)
	invoice, err := NewInvoice(uuid.New(), "INV-20260301-00001", valueobject.ZAR, issue, due, nil, nil)
	require.NoError(t, err)
	return invoice
}

func newSentInvoice(t *testing.T) *Invoice {
	t.Helper()
	invoice := newTestInvoice(t)
	_, err := invoice.AddLine("Consulting hours", nil, dec("3"), dec("19.99"), dec("10"), dec("15"))
	require.NoError(t, err)
	require.NoError(t, invoice.Send(invoice.IssueDate))
	return invoice
}

func TestNewInvoice(t *testing.T) {
	t.Run("creates draft with zero amounts", func(t *testing.T) {
		invoice := newTestInvoice(t)

		assert.Equal(t, InvoiceStatusDraft, invoice.Status)
		assert.True(t, invoice.TotalAmount.IsZero())
		assert.True(t, invoice.AmountPaid.IsZero())
		assert.True(t, invoice.AmountDue.IsZero())
		assert.Equal(t, 1, invoice.GetVersion())
		assert.Len(t, invoice.GetDomainEvents(), 1)
	})

	t.Run("rejects due date before issue date", func(t *testing.T) {
		issue := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
		_, err := NewInvoice(uuid.New(), "INV-1", valueobject.ZAR, issue, issue.AddDate(0, 0, -1), nil, nil)
		require.Error(t, err)
		assert.True(t, shared.HasCode(err, shared.CodeValidation))
	})

	t.Run("rejects unsupported currency", func(t *testing.T) {
		issue := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
		_, err := NewInvoice(uuid.New(), "INV-1", valueobject.Currency("XXX"), issue, issue, nil, nil)
		require.Error(t, err)
	})

	t.Run("rejects empty invoice number", func(t *testing.T) {
		issue := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
		_, err := NewInvoice(uuid.New(), "", valueobject.ZAR, issue, issue, nil, nil)
		require.Error(t, err)
	})
}

func TestInvoice_LineManagement(t *testing.T) {
	t.Run("aggregates sum line amounts", func(t *testing.T) {
		invoice := newTestInvoice(t)

		_, err := invoice.AddLine("Consulting hours", nil, dec("3"), dec("19.99"), dec("10"), dec("15"))
		require.NoError(t, err)
		_, err = invoice.AddLine("Travel", nil, dec("1"), dec("100"), dec("0"), dec("15"))
		require.NoError(t, err)

		assert.True(t, dec("159.97").Equal(invoice.Subtotal), "subtotal: got %s", invoice.Subtotal)
		assert.True(t, dec("5.997").Equal(invoice.DiscountAmount))
		assert.True(t, dec("23.09595").Equal(invoice.TaxAmount))
		assert.True(t, dec("177.07").Equal(invoice.TotalAmount), "total: got %s", invoice.TotalAmount)
		assert.True(t, invoice.AmountDue.Equal(invoice.TotalAmount))
	})

	t.Run("remove line recalculates totals", func(t *testing.T) {
		invoice := newTestInvoice(t)
		line, err := invoice.AddLine("Consulting hours", nil, dec("3"), dec("19.99"), dec("10"), dec("15"))
		require.NoError(t, err)
		_, err = invoice.AddLine("Travel", nil, dec("1"), dec("100"), dec("0"), dec("15"))
		require.NoError(t, err)

		require.NoError(t, invoice.RemoveLine(line.ID))
		assert.True(t, dec("115").Equal(invoice.TotalAmount))
	})

	t.Run("remove unknown line returns not found", func(t *testing.T) {
		invoice := newTestInvoice(t)
		err := invoice.RemoveLine(uuid.New())
		require.Error(t, err)
		assert.True(t, shared.HasCode(err, shared.CodeNotFound))
	})

	t.Run("replace lines is deterministic", func(t *testing.T) {
		invoice := newTestInvoice(t)
		lines := []InvoiceLine{
			{Description: "A", Quantity: dec("2"), UnitPrice: dec("10"), DiscountPercentage: dec("0"), TaxPercentage: dec("15")},
			{Description: "B", Quantity: dec("1"), UnitPrice: dec("5.55"), DiscountPercentage: dec("50"), TaxPercentage: dec("0")},
		}

		require.NoError(t, invoice.ReplaceLines(lines))
		firstTotal := invoice.TotalAmount

		require.NoError(t, invoice.ReplaceLines(lines))
		assert.True(t, firstTotal.Equal(invoice.TotalAmount))
		assert.Len(t, invoice.Lines, 2)
	})

	t.Run("lines frozen after send", func(t *testing.T) {
		invoice := newSentInvoice(t)

		_, err := invoice.AddLine("Late addition", nil, dec("1"), dec("10"), dec("0"), dec("0"))
		require.Error(t, err)
		assert.True(t, shared.HasCode(err, shared.CodeInvalidTransition))

		err = invoice.ReplaceLines(nil)
		require.Error(t, err)
	})
}

func TestInvoice_Send(t *testing.T) {
	t.Run("draft with lines becomes sent", func(t *testing.T) {
		invoice := newTestInvoice(t)
		_, err := invoice.AddLine("Consulting hours", nil, dec("1"), dec("100"), dec("0"), dec("0"))
		require.NoError(t, err)

		sentAt := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
		require.NoError(t, invoice.Send(sentAt))

		assert.Equal(t, InvoiceStatusSent, invoice.Status)
		require.NotNil(t, invoice.SentAt)
		assert.Equal(t, sentAt, *invoice.SentAt)
	})

	t.Run("cannot send without lines", func(t *testing.T) {
		invoice := newTestInvoice(t)
		err := invoice.Send(time.Now())
		require.Error(t, err)
		assert.True(t, shared.HasCode(err, shared.CodeValidation))
		assert.Equal(t, InvoiceStatusDraft, invoice.Status)
	})

	t.Run("cannot send twice", func(t *testing.T) {
		invoice := newSentInvoice(t)
		err := invoice.Send(time.Now())
		require.Error(t, err)
		assert.True(t, shared.HasCode(err, shared.CodeInvalidTransition))
	})

	t.Run("fully paid draft lands on paid, never sent with nothing due", func(t *testing.T) {
		invoice := newTestInvoice(t)
		_, err := invoice.AddLine("Consulting hours", nil, dec("1"), dec("207"), dec("0"), dec("0"))
		require.NoError(t, err)

		// Drafts accept payments; full reconciliation keeps DRAFT until send.
		require.NoError(t, invoice.ApplyReconciliation(invoice.TotalAmount, invoice.IssueDate))
		require.Equal(t, InvoiceStatusDraft, invoice.Status)
		require.True(t, invoice.AmountDue.IsZero())

		sentAt := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
		require.NoError(t, invoice.Send(sentAt))

		assert.Equal(t, InvoiceStatusPaid, invoice.Status)
		require.NotNil(t, invoice.SentAt)
		assert.Equal(t, sentAt, *invoice.SentAt)
		require.NotNil(t, invoice.PaidDate)
		assert.Equal(t, sentAt, *invoice.PaidDate)
	})
}

func TestInvoice_MarkViewed(t *testing.T) {
	t.Run("sent becomes viewed", func(t *testing.T) {
		invoice := newSentInvoice(t)
		viewedAt := time.Date(2026, 3, 3, 10, 0, 0, 0, time.UTC)

		require.NoError(t, invoice.MarkViewed(viewedAt))
		assert.Equal(t, InvoiceStatusViewed, invoice.Status)
		require.NotNil(t, invoice.ViewedAt)
	})

	t.Run("repeated view is a no-op", func(t *testing.T) {
		invoice := newSentInvoice(t)
		first := time.Date(2026, 3, 3, 10, 0, 0, 0, time.UTC)
		require.NoError(t, invoice.MarkViewed(first))
		version := invoice.GetVersion()

		require.NoError(t, invoice.MarkViewed(first.Add(time.Hour)))
		assert.Equal(t, version, invoice.GetVersion())
		assert.Equal(t, first, *invoice.ViewedAt)
	})

	t.Run("draft cannot be viewed", func(t *testing.T) {
		invoice := newTestInvoice(t)
		err := invoice.MarkViewed(time.Now())
		require.Error(t, err)
		assert.True(t, shared.HasCode(err, shared.CodeInvalidTransition))
	})
}

func TestInvoice_Cancel(t *testing.T) {
	t.Run("cancellable statuses", func(t *testing.T) {
		draft := newTestInvoice(t)
		require.NoError(t, draft.Cancel("customer withdrew"))
		assert.Equal(t, InvoiceStatusCancelled, draft.Status)
		assert.Equal(t, "customer withdrew", draft.CancelReason)
		require.NotNil(t, draft.CancelledAt)

		sent := newSentInvoice(t)
		require.NoError(t, sent.Cancel("duplicate"))
		assert.Equal(t, InvoiceStatusCancelled, sent.Status)
	})

	t.Run("cannot cancel with recorded payments", func(t *testing.T) {
		invoice := newSentInvoice(t)
		require.NoError(t, invoice.ApplyReconciliation(dec("10"), invoice.IssueDate))

		err := invoice.Cancel("too late")
		require.Error(t, err)
		assert.True(t, shared.HasCode(err, shared.CodeInvalidTransition))
	})

	t.Run("cannot cancel paid or cancelled", func(t *testing.T) {
		invoice := newSentInvoice(t)
		require.NoError(t, invoice.ApplyReconciliation(invoice.TotalAmount, invoice.IssueDate))
		require.Equal(t, InvoiceStatusPaid, invoice.Status)

		err := invoice.Cancel("nope")
		require.Error(t, err)

		cancelled := newTestInvoice(t)
		require.NoError(t, cancelled.Cancel("first"))
		err = cancelled.Cancel("second")
		require.Error(t, err)
	})
}

func TestInvoice_MarkOverdue(t *testing.T) {
	t.Run("sent invoice past due becomes overdue", func(t *testing.T) {
		invoice := newSentInvoice(t)
		asOf := invoice.DueDate.AddDate(0, 0, 1)

		require.NoError(t, invoice.MarkOverdue(asOf))
		assert.Equal(t, InvoiceStatusOverdue, invoice.Status)
	})

	t.Run("not yet due is rejected", func(t *testing.T) {
		invoice := newSentInvoice(t)
		err := invoice.MarkOverdue(invoice.DueDate)
		require.Error(t, err)
		assert.Equal(t, InvoiceStatusSent, invoice.Status)
	})

	t.Run("paid invoice is never overdue", func(t *testing.T) {
		invoice := newSentInvoice(t)
		require.NoError(t, invoice.ApplyReconciliation(invoice.TotalAmount, invoice.IssueDate))

		err := invoice.MarkOverdue(invoice.DueDate.AddDate(0, 0, 1))
		require.Error(t, err)
		assert.True(t, shared.HasCode(err, shared.CodeInvalidTransition))
	})

	t.Run("candidate check matches transition guards", func(t *testing.T) {
		invoice := newSentInvoice(t)
		assert.False(t, invoice.IsOverdueCandidate(invoice.DueDate))
		assert.True(t, invoice.IsOverdueCandidate(invoice.DueDate.AddDate(0, 0, 1)))
	})
}

func TestInvoice_ApplyReconciliation(t *testing.T) {
	t.Run("partial payment keeps status", func(t *testing.T) {
		invoice := newSentInvoice(t)
		require.NoError(t, invoice.ApplyReconciliation(dec("20"), invoice.IssueDate))

		assert.Equal(t, InvoiceStatusSent, invoice.Status)
		assert.True(t, dec("20").Equal(invoice.AmountPaid))
		assert.True(t, dec("42.07").Equal(invoice.AmountDue))
	})

	t.Run("full payment transitions to paid", func(t *testing.T) {
		invoice := newSentInvoice(t)
		paidAt := invoice.IssueDate.AddDate(0, 0, 5)

		require.NoError(t, invoice.ApplyReconciliation(invoice.TotalAmount, paidAt))
		assert.Equal(t, InvoiceStatusPaid, invoice.Status)
		require.NotNil(t, invoice.PaidDate)
		assert.True(t, invoice.AmountDue.IsZero())
	})

	t.Run("overdue invoice paid in full transitions to paid", func(t *testing.T) {
		invoice := newSentInvoice(t)
		require.NoError(t, invoice.MarkOverdue(invoice.DueDate.AddDate(0, 0, 1)))

		require.NoError(t, invoice.ApplyReconciliation(invoice.TotalAmount, invoice.DueDate.AddDate(0, 0, 2)))
		assert.Equal(t, InvoiceStatusPaid, invoice.Status)
	})

	t.Run("same amount is a no-op", func(t *testing.T) {
		invoice := newSentInvoice(t)
		require.NoError(t, invoice.ApplyReconciliation(dec("20"), invoice.IssueDate))
		version := invoice.GetVersion()

		require.NoError(t, invoice.ApplyReconciliation(dec("20"), invoice.IssueDate))
		assert.Equal(t, version, invoice.GetVersion())
	})

	t.Run("full refund moves paid to refunded", func(t *testing.T) {
		invoice := newSentInvoice(t)
		require.NoError(t, invoice.ApplyReconciliation(invoice.TotalAmount, invoice.IssueDate))

		require.NoError(t, invoice.ApplyReconciliation(decimal.Zero, invoice.IssueDate))
		assert.Equal(t, InvoiceStatusRefunded, invoice.Status)
		require.NotNil(t, invoice.RefundedAt)
		assert.Nil(t, invoice.PaidDate)
	})

	t.Run("partial refund reopens a paid invoice", func(t *testing.T) {
		invoice := newSentInvoice(t)
		require.NoError(t, invoice.ApplyReconciliation(invoice.TotalAmount, invoice.IssueDate))

		require.NoError(t, invoice.ApplyReconciliation(dec("42.07"), invoice.IssueDate.AddDate(0, 0, 1)))
		assert.Equal(t, InvoiceStatusSent, invoice.Status)
		assert.True(t, dec("20").Equal(invoice.AmountDue))
		assert.Nil(t, invoice.PaidDate)
	})

	t.Run("partial refund past due reopens to overdue", func(t *testing.T) {
		invoice := newSentInvoice(t)
		require.NoError(t, invoice.ApplyReconciliation(invoice.TotalAmount, invoice.IssueDate))

		asOf := invoice.DueDate.AddDate(0, 0, 3)
		require.NoError(t, invoice.ApplyReconciliation(dec("42.07"), asOf))
		assert.Equal(t, InvoiceStatusOverdue, invoice.Status)
	})

	t.Run("overpayment fails loudly without mutation", func(t *testing.T) {
		invoice := newSentInvoice(t)
		before := invoice.AmountPaid

		err := invoice.ApplyReconciliation(invoice.TotalAmount.Add(dec("0.01")), invoice.IssueDate)
		require.Error(t, err)
		assert.True(t, shared.HasCode(err, shared.CodeValidation))
		assert.True(t, before.Equal(invoice.AmountPaid))
	})

	t.Run("cancelled invoice rejects reconciliation", func(t *testing.T) {
		invoice := newTestInvoice(t)
		require.NoError(t, invoice.Cancel("void"))

		err := invoice.ApplyReconciliation(dec("1"), time.Now())
		require.Error(t, err)
		assert.True(t, shared.HasCode(err, shared.CodeInvalidTransition))
	})

	t.Run("negative amount rejected", func(t *testing.T) {
		invoice := newSentInvoice(t)
		err := invoice.ApplyReconciliation(dec("-1"), time.Now())
		require.Error(t, err)
	})
}

func TestInvoiceStatus_Predicates(t *testing.T) {
	assert.True(t, InvoiceStatusCancelled.IsTerminal())
	assert.True(t, InvoiceStatusRefunded.IsTerminal())
	assert.False(t, InvoiceStatusPaid.IsTerminal())

	assert.True(t, InvoiceStatusDraft.CanModifyLines())
	assert.False(t, InvoiceStatusSent.CanModifyLines())

	assert.True(t, InvoiceStatusViewed.CanCancel())
	assert.False(t, InvoiceStatusOverdue.CanCancel())

	assert.True(t, InvoiceStatusOverdue.CanAcceptPayment())
	assert.False(t, InvoiceStatusCancelled.CanAcceptPayment())

	assert.False(t, InvoiceStatus("BOGUS").IsValid())
}

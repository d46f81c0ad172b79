package handler

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bizledger/backend/internal/infrastructure/scheduler"
)

type stubSweepScheduler struct {
	triggerErr error
	triggered  int
}

func (s *stubSweepScheduler) TriggerManualRun(_ context.Context) error {
	if s.triggerErr != nil {
		return s.triggerErr
	}
	s.triggered++
	return nil
}

func (s *stubSweepScheduler) GetStatus() map[string]any {
	return map[string]any{"running": true, "schedule": "daily at 02:00"}
}

func TestOverdueHandler_RunFlagsPastDueInvoices(t *testing.T) {
	env := newLedgerTestEnv(t)

	// An invoice issued two months ago that fell due a month ago
	issueDate := time.Now().AddDate(0, -2, 0)
	dueDate := time.Now().AddDate(0, -1, 0)
	w := env.do(t, http.MethodPost, "/api/v1/invoices", createInvoiceBody(issueDate, dueDate))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	invoiceID := dataField(t, decodeResponse(t, w), "id").(string)

	w = env.do(t, http.MethodPost, "/api/v1/invoices/"+invoiceID+"/send", nil)
	require.Equal(t, http.StatusOK, w.Code)

	// A current invoice that should be left alone
	env.createSentInvoice(t)

	w = env.do(t, http.MethodPost, "/api/v1/overdue/run", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decodeResponse(t, w)
	assert.Equal(t, float64(1), dataField(t, resp, "examined"))
	assert.Equal(t, float64(1), dataField(t, resp, "flagged"))
	assert.Equal(t, float64(0), dataField(t, resp, "conflicts"))

	w = env.do(t, http.MethodGet, "/api/v1/invoices/"+invoiceID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp = decodeResponse(t, w)
	assert.Equal(t, "OVERDUE", dataField(t, resp, "status"))
}

func TestOverdueHandler_RunIsIdempotent(t *testing.T) {
	env := newLedgerTestEnv(t)

	issueDate := time.Now().AddDate(0, -2, 0)
	dueDate := time.Now().AddDate(0, -1, 0)
	w := env.do(t, http.MethodPost, "/api/v1/invoices", createInvoiceBody(issueDate, dueDate))
	require.Equal(t, http.StatusCreated, w.Code)
	invoiceID := dataField(t, decodeResponse(t, w), "id").(string)
	w = env.do(t, http.MethodPost, "/api/v1/invoices/"+invoiceID+"/send", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodPost, "/api/v1/overdue/run", nil)
	require.Equal(t, http.StatusOK, w.Code)

	// Second run finds nothing to flag
	w = env.do(t, http.MethodPost, "/api/v1/overdue/run", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	assert.Equal(t, float64(0), dataField(t, resp, "examined"))
	assert.Equal(t, float64(0), dataField(t, resp, "flagged"))
}

func TestOverdueHandler_TriggerSweep(t *testing.T) {
	env := newLedgerTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/overdue/sweep", nil)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 1, env.sweep.triggered)
}

func TestOverdueHandler_TriggerSweepNotRunning(t *testing.T) {
	env := newLedgerTestEnv(t)
	env.sweep.triggerErr = scheduler.ErrSchedulerNotRunning

	w := env.do(t, http.MethodPost, "/api/v1/overdue/sweep", nil)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestOverdueHandler_SweepStatus(t *testing.T) {
	env := newLedgerTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/v1/overdue/sweep/status", nil)

	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	assert.Equal(t, true, dataField(t, resp, "running"))
}

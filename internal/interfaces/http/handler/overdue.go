package handler

import (
	"context"
	"errors"
	"time"

	appbilling "github.com/bizledger/backend/internal/application/billing"
	"github.com/bizledger/backend/internal/infrastructure/scheduler"
	"github.com/gin-gonic/gin"
)

// SweepScheduler is the scheduler surface the overdue endpoints need
type SweepScheduler interface {
	TriggerManualRun(ctx context.Context) error
	GetStatus() map[string]any
}

// OverdueHandler exposes the overdue sweep for operators
type OverdueHandler struct {
	BaseHandler
	invoiceService *appbilling.InvoiceService
	sweepScheduler SweepScheduler
}

// NewOverdueHandler creates a new OverdueHandler
func NewOverdueHandler(invoiceService *appbilling.InvoiceService, sweepScheduler SweepScheduler) *OverdueHandler {
	return &OverdueHandler{
		invoiceService: invoiceService,
		sweepScheduler: sweepScheduler,
	}
}

// Run godoc
// @Summary      Run the overdue sweep for the business
// @Description  Flag every sent or viewed invoice past its due date with an outstanding balance
// @Tags         overdue
// @Produce      json
// @Param        X-Business-ID header string true "Business ID"
// @Success      200 {object} APIResponse[appbilling.OverdueSweepResult]
// @Failure      401 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Router       /overdue/run [post]
func (h *OverdueHandler) Run(c *gin.Context) {
	businessID, err := getBusinessID(c)
	if err != nil {
		h.Unauthorized(c, "Business identification required")
		return
	}

	result, err := h.invoiceService.UpdateOverdueInvoices(c.Request.Context(), businessID, time.Now())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// TriggerSweep godoc
// @Summary      Trigger the global overdue sweep
// @Description  Kick off the scheduled sweep across every business without waiting for the cron window
// @Tags         overdue
// @Produce      json
// @Success      202 {object} SuccessResponse
// @Failure      409 {object} ErrorResponse
// @Router       /overdue/sweep [post]
func (h *OverdueHandler) TriggerSweep(c *gin.Context) {
	if h.sweepScheduler == nil {
		h.Conflict(c, "Overdue scheduler is not configured")
		return
	}

	if err := h.sweepScheduler.TriggerManualRun(c.Request.Context()); err != nil {
		if errors.Is(err, scheduler.ErrSchedulerNotRunning) {
			h.Conflict(c, "Overdue scheduler is not running")
			return
		}
		h.HandleError(c, err)
		return
	}

	h.Success(c, gin.H{"triggered": true})
}

// SweepStatus godoc
// @Summary      Get overdue sweep status
// @Description  Report the scheduler state and the last and next run times
// @Tags         overdue
// @Produce      json
// @Success      200 {object} APIResponse[map[string]any]
// @Router       /overdue/sweep/status [get]
func (h *OverdueHandler) SweepStatus(c *gin.Context) {
	if h.sweepScheduler == nil {
		h.Conflict(c, "Overdue scheduler is not configured")
		return
	}

	h.Success(c, h.sweepScheduler.GetStatus())
}

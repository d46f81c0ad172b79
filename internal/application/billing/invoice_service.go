package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bizledger/backend/internal/domain/billing"
	"github.com/bizledger/backend/internal/domain/shared"
	"github.com/bizledger/backend/internal/domain/shared/valueobject"
)

// InvoiceService provides application-level invoice operations
type InvoiceService struct {
	invoiceRepo    billing.InvoiceRepository
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// NewInvoiceService creates a new InvoiceService
func NewInvoiceService(invoiceRepo billing.InvoiceRepository, eventPublisher shared.EventPublisher, logger *zap.Logger) *InvoiceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InvoiceService{
		invoiceRepo:    invoiceRepo,
		eventPublisher: eventPublisher,
		logger:         logger,
	}
}

// CreateInvoice creates a draft invoice with its initial line items
func (s *InvoiceService) CreateInvoice(ctx context.Context, businessID uuid.UUID, req CreateInvoiceRequest) (*InvoiceResponse, error) {
	currency := valueobject.Currency(req.Currency)
	if req.Currency == "" {
		currency = valueobject.DefaultCurrency
	}

	invoiceNumber, err := s.invoiceRepo.GenerateInvoiceNumber(ctx, businessID)
	if err != nil {
		return nil, fmt.Errorf("generate invoice number: %w", err)
	}

	invoice, err := billing.NewInvoice(businessID, invoiceNumber, currency, req.IssueDate, req.DueDate, req.CustomerID, req.OrderID)
	if err != nil {
		return nil, err
	}
	invoice.Notes = req.Notes

	for _, input := range req.Lines {
		if _, err := invoice.AddLine(input.Description, input.ProductID, input.Quantity, input.UnitPrice, input.DiscountPercentage, input.TaxPercentage); err != nil {
			return nil, err
		}
	}

	if err := s.invoiceRepo.Save(ctx, invoice); err != nil {
		return nil, fmt.Errorf("save invoice: %w", err)
	}

	s.publishEvents(ctx, invoice)
	s.logger.Info("Invoice created",
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("invoice_number", invoice.InvoiceNumber),
		zap.String("business_id", businessID.String()),
		zap.String("total_amount", invoice.TotalAmount.String()))

	return ToInvoiceResponse(invoice), nil
}

// GetInvoice returns a single invoice scoped to the business
func (s *InvoiceService) GetInvoice(ctx context.Context, businessID, invoiceID uuid.UUID) (*InvoiceResponse, error) {
	invoice, err := s.findInvoice(ctx, businessID, invoiceID)
	if err != nil {
		return nil, err
	}
	return ToInvoiceResponse(invoice), nil
}

// ListInvoices returns a page of invoices matching the filter
func (s *InvoiceService) ListInvoices(ctx context.Context, businessID uuid.UUID, filter InvoiceListFilter) (*shared.Paginated[InvoiceResponse], error) {
	repoFilter := billing.InvoiceFilter{Filter: shared.DefaultFilter()}
	repoFilter.Search = filter.Search
	if filter.Page > 0 {
		repoFilter.Page = filter.Page
	}
	if filter.PageSize > 0 {
		repoFilter.PageSize = filter.PageSize
	}
	if filter.Status != "" {
		status := billing.InvoiceStatus(filter.Status)
		if !status.IsValid() {
			return nil, shared.NewDomainError(shared.CodeValidation, "Unknown invoice status: "+filter.Status)
		}
		repoFilter.Status = &status
	}
	repoFilter.CustomerID = filter.CustomerID
	repoFilter.IssuedFrom = filter.IssuedFrom
	repoFilter.IssuedTo = filter.IssuedTo
	repoFilter.DueFrom = filter.DueFrom
	repoFilter.DueTo = filter.DueTo

	page, err := s.invoiceRepo.FindAllForBusiness(ctx, businessID, repoFilter)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}

	items := make([]InvoiceResponse, 0, len(page.Items))
	for idx := range page.Items {
		items = append(items, *ToInvoiceResponse(&page.Items[idx]))
	}
	result := shared.NewPaginated(items, page.Total, page.Page, page.PageSize)
	return &result, nil
}

// ReplaceDraftLines swaps the full line set of a draft invoice
func (s *InvoiceService) ReplaceDraftLines(ctx context.Context, businessID, invoiceID uuid.UUID, req ReplaceLinesRequest) (*InvoiceResponse, error) {
	invoice, err := s.findInvoice(ctx, businessID, invoiceID)
	if err != nil {
		return nil, err
	}

	lines := make([]billing.InvoiceLine, 0, len(req.Lines))
	for _, input := range req.Lines {
		line, err := billing.NewInvoiceLine(input.Description, input.ProductID, input.Quantity, input.UnitPrice, input.DiscountPercentage, input.TaxPercentage)
		if err != nil {
			return nil, err
		}
		lines = append(lines, *line)
	}

	if err := invoice.ReplaceLines(lines); err != nil {
		return nil, err
	}
	if err := s.invoiceRepo.Save(ctx, invoice); err != nil {
		return nil, fmt.Errorf("save invoice: %w", err)
	}

	return ToInvoiceResponse(invoice), nil
}

// SendInvoice issues a draft invoice to the customer
func (s *InvoiceService) SendInvoice(ctx context.Context, businessID, invoiceID uuid.UUID) (*InvoiceResponse, error) {
	invoice, err := s.findInvoice(ctx, businessID, invoiceID)
	if err != nil {
		return nil, err
	}

	if err := invoice.Send(time.Now()); err != nil {
		return nil, err
	}
	if err := s.invoiceRepo.Save(ctx, invoice); err != nil {
		return nil, fmt.Errorf("save invoice: %w", err)
	}

	s.publishEvents(ctx, invoice)
	s.logger.Info("Invoice sent",
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("invoice_number", invoice.InvoiceNumber))

	return ToInvoiceResponse(invoice), nil
}

// MarkInvoiceViewed records the customer opening the invoice
func (s *InvoiceService) MarkInvoiceViewed(ctx context.Context, businessID, invoiceID uuid.UUID) (*InvoiceResponse, error) {
	invoice, err := s.findInvoice(ctx, businessID, invoiceID)
	if err != nil {
		return nil, err
	}

	if err := invoice.MarkViewed(time.Now()); err != nil {
		return nil, err
	}
	if err := s.invoiceRepo.Save(ctx, invoice); err != nil {
		return nil, fmt.Errorf("save invoice: %w", err)
	}

	s.publishEvents(ctx, invoice)
	return ToInvoiceResponse(invoice), nil
}

// CancelInvoice voids an invoice that has no recorded payments
func (s *InvoiceService) CancelInvoice(ctx context.Context, businessID, invoiceID uuid.UUID, req CancelInvoiceRequest) (*InvoiceResponse, error) {
	invoice, err := s.findInvoice(ctx, businessID, invoiceID)
	if err != nil {
		return nil, err
	}

	if err := invoice.Cancel(req.Reason); err != nil {
		return nil, err
	}
	if err := s.invoiceRepo.Save(ctx, invoice); err != nil {
		return nil, fmt.Errorf("save invoice: %w", err)
	}

	s.publishEvents(ctx, invoice)
	s.logger.Info("Invoice cancelled",
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("reason", req.Reason))

	return ToInvoiceResponse(invoice), nil
}

// DeleteDraftInvoice hard deletes an invoice that never left draft
func (s *InvoiceService) DeleteDraftInvoice(ctx context.Context, businessID, invoiceID uuid.UUID) error {
	invoice, err := s.findInvoice(ctx, businessID, invoiceID)
	if err != nil {
		return err
	}

	if !invoice.Status.CanDelete() {
		return shared.NewDomainError(shared.CodeInvalidTransition,
			"Only draft invoices can be deleted")
	}

	if err := s.invoiceRepo.DeleteForBusiness(ctx, businessID, invoiceID); err != nil {
		return fmt.Errorf("delete invoice: %w", err)
	}

	s.logger.Info("Draft invoice deleted", zap.String("invoice_id", invoiceID.String()))
	return nil
}

// UpdateOverdueInvoices flags every sent or viewed invoice past its due date
// with an outstanding balance. Each invoice is saved with an optimistic
// version check; a conflict means a concurrent settlement got there first, so
// the invoice is skipped and picked up again on the next run.
func (s *InvoiceService) UpdateOverdueInvoices(ctx context.Context, businessID uuid.UUID, asOf time.Time) (*OverdueSweepResult, error) {
	candidates, err := s.invoiceRepo.FindOverdueCandidates(ctx, businessID, asOf)
	if err != nil {
		return nil, fmt.Errorf("find overdue candidates: %w", err)
	}

	result := &OverdueSweepResult{
		BusinessID: businessID,
		AsOf:       asOf,
		Examined:   len(candidates),
	}

	for _, invoice := range candidates {
		if !invoice.IsOverdueCandidate(asOf) {
			continue
		}

		expectedVersion := invoice.GetVersion()
		if err := invoice.MarkOverdue(asOf); err != nil {
			s.logger.Warn("Overdue sweep skipped invoice",
				zap.String("invoice_id", invoice.ID.String()),
				zap.Error(err))
			continue
		}

		if err := s.invoiceRepo.SaveWithLock(ctx, invoice, expectedVersion); err != nil {
			if shared.HasCode(err, shared.CodeReconciliationConflict) {
				result.Conflicts++
				s.logger.Info("Overdue sweep lost a version race, will retry next run",
					zap.String("invoice_id", invoice.ID.String()))
				continue
			}
			return nil, fmt.Errorf("save overdue invoice %s: %w", invoice.ID, err)
		}

		s.publishEvents(ctx, invoice)
		result.Flagged++
	}

	s.logger.Info("Overdue sweep finished",
		zap.String("business_id", businessID.String()),
		zap.Time("as_of", asOf),
		zap.Int("examined", result.Examined),
		zap.Int("flagged", result.Flagged),
		zap.Int("conflicts", result.Conflicts))

	return result, nil
}

func (s *InvoiceService) findInvoice(ctx context.Context, businessID, invoiceID uuid.UUID) (*billing.Invoice, error) {
	invoice, err := s.invoiceRepo.FindByIDForBusiness(ctx, businessID, invoiceID)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, shared.NewDomainError(shared.CodeNotFound, "Invoice not found")
	}
	return invoice, nil
}

func (s *InvoiceService) publishEvents(ctx context.Context, invoice *billing.Invoice) {
	if s.eventPublisher == nil {
		return
	}
	events := invoice.GetDomainEvents()
	if len(events) == 0 {
		return
	}
	if err := s.eventPublisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("Failed to publish invoice events",
			zap.String("invoice_id", invoice.ID.String()),
			zap.Error(err))
	}
	invoice.ClearDomainEvents()
}

package billing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bizledger/backend/internal/domain/billing"
	"github.com/bizledger/backend/internal/domain/shared"
	"github.com/bizledger/backend/internal/domain/shared/valueobject"
)

// PaymentService provides application-level payment operations. Settlement
// and refund handling run payment and invoice updates inside a single
// transaction scope and reconcile the invoice from its full payment set.
type PaymentService struct {
	paymentRepo       billing.PaymentRepository
	invoiceRepo       billing.InvoiceRepository
	txScope           TransactionScope
	idempotencyStore  shared.IdempotencyStore
	idempotencyConfig shared.IdempotencyConfig
	reconciliationSvc *billing.ReconciliationService
	eventPublisher    shared.EventPublisher
	logger            *zap.Logger
}

// PaymentServiceConfig holds the dependencies of PaymentService
type PaymentServiceConfig struct {
	PaymentRepo       billing.PaymentRepository
	InvoiceRepo       billing.InvoiceRepository
	TransactionScope  TransactionScope
	IdempotencyStore  shared.IdempotencyStore
	IdempotencyConfig *shared.IdempotencyConfig
	EventPublisher    shared.EventPublisher
	Logger            *zap.Logger
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(config PaymentServiceConfig) *PaymentService {
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	idempotencyConfig := shared.DefaultIdempotencyConfig()
	if config.IdempotencyConfig != nil {
		idempotencyConfig = *config.IdempotencyConfig
	}

	txScope := config.TransactionScope
	if txScope == nil {
		txScope = NewNoOpTransactionScope(config.InvoiceRepo, config.PaymentRepo)
	}

	return &PaymentService{
		paymentRepo:       config.PaymentRepo,
		invoiceRepo:       config.InvoiceRepo,
		txScope:           txScope,
		idempotencyStore:  config.IdempotencyStore,
		idempotencyConfig: idempotencyConfig,
		reconciliationSvc: billing.NewReconciliationService(),
		eventPublisher:    config.EventPublisher,
		logger:            logger,
	}
}

// settlementKey builds the idempotency key for a settlement notification
func settlementKey(paymentID uuid.UUID, outcome billing.SettlementOutcome) string {
	return fmt.Sprintf("settlement:%s:%s", paymentID, outcome)
}

// RecordPayment records a new payment in the ledger. When the payment is
// linked to an invoice, the link is validated: the invoice must belong to
// the same business, accept payments and have enough outstanding balance.
func (s *PaymentService) RecordPayment(ctx context.Context, businessID uuid.UUID, req RecordPaymentRequest) (*PaymentResponse, error) {
	currency := valueobject.Currency(req.Currency)
	if req.Currency == "" {
		currency = valueobject.DefaultCurrency
	}

	if req.InvoiceID != nil {
		invoice, err := s.loadInvoiceChecked(ctx, businessID, *req.InvoiceID)
		if err != nil {
			return nil, err
		}
		if !invoice.Status.CanAcceptPayment() {
			return nil, shared.NewDomainError(shared.CodeInvalidTransition,
				"Invoice in status "+invoice.Status.String()+" does not accept payments")
		}
		if invoice.Currency != currency {
			return nil, shared.NewDomainError(shared.CodeValidation,
				"Payment currency does not match the invoice currency")
		}
		if req.Amount.GreaterThan(invoice.AmountDue) {
			return nil, shared.NewDomainError(shared.CodeValidation,
				"Payment amount exceeds the invoice amount due")
		}
	}

	paymentNumber, err := s.paymentRepo.GeneratePaymentNumber(ctx, businessID)
	if err != nil {
		return nil, fmt.Errorf("generate payment number: %w", err)
	}

	payment, err := billing.NewPayment(businessID, paymentNumber, req.InvoiceID, req.Amount, currency, req.Provider, req.Metadata)
	if err != nil {
		return nil, err
	}
	if req.Processing {
		if err := payment.MarkProcessing(); err != nil {
			return nil, err
		}
	}

	if err := s.paymentRepo.Save(ctx, payment); err != nil {
		return nil, fmt.Errorf("save payment: %w", err)
	}

	s.publishPaymentEvents(ctx, payment)
	s.logger.Info("Payment recorded",
		zap.String("payment_id", payment.ID.String()),
		zap.String("payment_number", payment.PaymentNumber),
		zap.String("amount", payment.Amount.String()),
		zap.String("provider", payment.Provider))

	return ToPaymentResponse(payment), nil
}

// SettlePayment applies a provider settlement notification. Notifications
// are delivered at least once; a duplicate of an already processed
// payment_id+outcome pair is acknowledged without touching the ledger.
// The payment outcome and the reconciled invoice are persisted atomically;
// a RECONCILIATION_CONFLICT means a concurrent writer won the version race
// and the provider should redeliver.
func (s *PaymentService) SettlePayment(ctx context.Context, businessID, paymentID uuid.UUID, req SettlePaymentRequest) (*SettlePaymentResult, error) {
	outcome := billing.SettlementOutcome(strings.ToUpper(req.Outcome))
	if !outcome.IsValid() {
		return nil, shared.NewDomainError(shared.CodeValidation, "Unknown settlement outcome: "+req.Outcome)
	}

	settledAt := time.Now()
	if req.SettledAt != nil {
		settledAt = *req.SettledAt
	}

	if _, err := s.loadPaymentChecked(ctx, businessID, paymentID); err != nil {
		return nil, err
	}

	key := settlementKey(paymentID, outcome)
	if s.idempotencyStore != nil && s.idempotencyConfig.Enabled {
		processed, err := s.idempotencyStore.IsProcessed(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("idempotency check: %w", err)
		}
		if processed {
			s.logger.Info("Settlement already processed",
				zap.String("payment_id", paymentID.String()),
				zap.String("outcome", string(outcome)))
			return s.alreadyProcessedResult(ctx, businessID, paymentID)
		}
	}

	var settledPayment *billing.Payment
	var reconciledInvoice *billing.Invoice

	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		payment, err := repos.PaymentRepo().FindByIDForBusiness(ctx, businessID, paymentID)
		if err != nil {
			return err
		}
		if payment == nil {
			return shared.NewDomainError(shared.CodeNotFound, "Payment not found")
		}

		expectedVersion := payment.GetVersion()
		if err := payment.Settle(outcome, settledAt, req.FailureReason); err != nil {
			return err
		}
		if payment.GetVersion() != expectedVersion {
			if err := repos.PaymentRepo().SaveWithLock(ctx, payment, expectedVersion); err != nil {
				return err
			}
		}
		settledPayment = payment

		reconciledInvoice, err = s.reconcileLinkedInvoice(ctx, repos, payment, settledAt)
		return err
	})
	if err != nil {
		return nil, err
	}

	// The key is marked only after the transaction committed; a crash
	// before this point leaves the redelivery free to apply the settlement
	// for real. Concurrent first deliveries are serialized by the invoice
	// version check inside the transaction.
	if s.idempotencyStore != nil && s.idempotencyConfig.Enabled {
		if _, err := s.idempotencyStore.MarkProcessed(ctx, key, s.idempotencyConfig.TTL); err != nil {
			s.logger.Warn("Failed to mark settlement processed",
				zap.String("key", key), zap.Error(err))
		}
	}

	s.publishPaymentEvents(ctx, settledPayment)
	if reconciledInvoice != nil {
		s.publishInvoiceEvents(ctx, reconciledInvoice)
	}

	s.logger.Info("Payment settled",
		zap.String("payment_id", paymentID.String()),
		zap.String("outcome", string(outcome)))

	result := &SettlePaymentResult{Payment: ToPaymentResponse(settledPayment)}
	if reconciledInvoice != nil {
		result.Invoice = ToInvoiceResponse(reconciledInvoice)
	}
	return result, nil
}

// RefundPayment returns part or all of a succeeded payment and reconciles
// the linked invoice inside the same transaction. A nil amount refunds the
// full remaining balance.
func (s *PaymentService) RefundPayment(ctx context.Context, businessID, paymentID uuid.UUID, req RefundPaymentRequest) (*RefundPaymentResult, error) {
	if _, err := s.loadPaymentChecked(ctx, businessID, paymentID); err != nil {
		return nil, err
	}

	refundedAt := time.Now()
	var refundedPayment *billing.Payment
	var reconciledInvoice *billing.Invoice

	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		payment, err := repos.PaymentRepo().FindByIDForBusiness(ctx, businessID, paymentID)
		if err != nil {
			return err
		}
		if payment == nil {
			return shared.NewDomainError(shared.CodeNotFound, "Payment not found")
		}

		amount := payment.RemainingRefundable()
		if req.Amount != nil {
			amount = *req.Amount
		}

		expectedVersion := payment.GetVersion()
		if err := payment.Refund(amount, req.Reason, refundedAt); err != nil {
			return err
		}
		if err := repos.PaymentRepo().SaveWithLock(ctx, payment, expectedVersion); err != nil {
			return err
		}
		refundedPayment = payment

		reconciledInvoice, err = s.reconcileLinkedInvoice(ctx, repos, payment, refundedAt)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publishPaymentEvents(ctx, refundedPayment)
	if reconciledInvoice != nil {
		s.publishInvoiceEvents(ctx, reconciledInvoice)
	}

	s.logger.Info("Payment refunded",
		zap.String("payment_id", paymentID.String()),
		zap.String("refund_total", refundedPayment.RefundAmount.String()),
		zap.String("status", refundedPayment.Status.String()))

	result := &RefundPaymentResult{Payment: ToPaymentResponse(refundedPayment)}
	if reconciledInvoice != nil {
		result.Invoice = ToInvoiceResponse(reconciledInvoice)
	}
	return result, nil
}

// CancelPayment voids a payment that has not settled yet
func (s *PaymentService) CancelPayment(ctx context.Context, businessID, paymentID uuid.UUID) (*PaymentResponse, error) {
	payment, err := s.loadPaymentChecked(ctx, businessID, paymentID)
	if err != nil {
		return nil, err
	}

	if err := payment.Cancel(); err != nil {
		return nil, err
	}
	if err := s.paymentRepo.Save(ctx, payment); err != nil {
		return nil, fmt.Errorf("save payment: %w", err)
	}

	s.publishPaymentEvents(ctx, payment)
	s.logger.Info("Payment cancelled",
		zap.String("payment_id", paymentID.String()),
		zap.String("payment_number", payment.PaymentNumber))

	return ToPaymentResponse(payment), nil
}

// GetPayment returns a single payment scoped to the business
func (s *PaymentService) GetPayment(ctx context.Context, businessID, paymentID uuid.UUID) (*PaymentResponse, error) {
	payment, err := s.loadPaymentChecked(ctx, businessID, paymentID)
	if err != nil {
		return nil, err
	}
	return ToPaymentResponse(payment), nil
}

// ListPayments returns a page of payments matching the filter
func (s *PaymentService) ListPayments(ctx context.Context, businessID uuid.UUID, filter PaymentListFilter) (*shared.Paginated[PaymentResponse], error) {
	repoFilter := billing.PaymentFilter{Filter: shared.DefaultFilter()}
	repoFilter.Search = filter.Search
	if filter.Page > 0 {
		repoFilter.Page = filter.Page
	}
	if filter.PageSize > 0 {
		repoFilter.PageSize = filter.PageSize
	}
	if filter.Status != "" {
		status := billing.PaymentStatus(filter.Status)
		if !status.IsValid() {
			return nil, shared.NewDomainError(shared.CodeValidation, "Unknown payment status: "+filter.Status)
		}
		repoFilter.Status = &status
	}
	repoFilter.InvoiceID = filter.InvoiceID
	repoFilter.Provider = filter.Provider

	page, err := s.paymentRepo.FindAllForBusiness(ctx, businessID, repoFilter)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}

	items := make([]PaymentResponse, 0, len(page.Items))
	for idx := range page.Items {
		items = append(items, *ToPaymentResponse(&page.Items[idx]))
	}
	result := shared.NewPaginated(items, page.Total, page.Page, page.PageSize)
	return &result, nil
}

// ReconcileInvoice recomputes an invoice's paid amount from its payments.
// Exposed for recovery: normal flows reconcile as part of settle and refund.
func (s *PaymentService) ReconcileInvoice(ctx context.Context, businessID, invoiceID uuid.UUID) (*InvoiceResponse, error) {
	var reconciled *billing.Invoice

	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		invoice, err := repos.InvoiceRepo().FindByIDForBusiness(ctx, businessID, invoiceID)
		if err != nil {
			return err
		}
		if invoice == nil {
			return shared.NewDomainError(shared.CodeNotFound, "Invoice not found")
		}

		payments, err := repos.PaymentRepo().FindByInvoice(ctx, businessID, invoice.ID)
		if err != nil {
			return err
		}

		expectedVersion := invoice.GetVersion()
		result, err := s.reconciliationSvc.Reconcile(invoice, payments, time.Now())
		if err != nil {
			return err
		}
		if result.Changed {
			if err := repos.InvoiceRepo().SaveWithLock(ctx, invoice, expectedVersion); err != nil {
				return err
			}
		}
		reconciled = invoice
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishInvoiceEvents(ctx, reconciled)
	return ToInvoiceResponse(reconciled), nil
}

// reconcileLinkedInvoice reconciles the payment's invoice inside the current
// transaction. Payments without an invoice reference leave nothing to do.
func (s *PaymentService) reconcileLinkedInvoice(ctx context.Context, repos TransactionalRepositories, payment *billing.Payment, asOf time.Time) (*billing.Invoice, error) {
	if payment.InvoiceID == nil {
		return nil, nil
	}

	invoice, err := repos.InvoiceRepo().FindByIDForBusiness(ctx, payment.BusinessID, *payment.InvoiceID)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, shared.NewDomainError(shared.CodeNotFound, "Linked invoice not found")
	}

	payments, err := repos.PaymentRepo().FindByInvoice(ctx, payment.BusinessID, invoice.ID)
	if err != nil {
		return nil, err
	}
	// The payment being processed may not be visible in the transaction's
	// read yet; make sure the reconciled set includes its current state.
	replaced := false
	for idx := range payments {
		if payments[idx].ID == payment.ID {
			payments[idx] = payment
			replaced = true
			break
		}
	}
	if !replaced {
		payments = append(payments, payment)
	}

	expectedVersion := invoice.GetVersion()
	result, err := s.reconciliationSvc.Reconcile(invoice, payments, asOf)
	if err != nil {
		return nil, err
	}
	if result.Changed {
		if err := repos.InvoiceRepo().SaveWithLock(ctx, invoice, expectedVersion); err != nil {
			return nil, err
		}
		s.logger.Info("Invoice reconciled",
			zap.String("invoice_id", invoice.ID.String()),
			zap.String("previous_status", result.PreviousStatus.String()),
			zap.String("status", result.CurrentStatus.String()),
			zap.String("amount_paid", result.AmountPaid.String()),
			zap.String("amount_due", result.AmountDue.String()))
	}

	return invoice, nil
}

// alreadyProcessedResult builds the acknowledgement for a duplicate settlement
func (s *PaymentService) alreadyProcessedResult(ctx context.Context, businessID, paymentID uuid.UUID) (*SettlePaymentResult, error) {
	payment, err := s.loadPaymentChecked(ctx, businessID, paymentID)
	if err != nil {
		return nil, err
	}

	result := &SettlePaymentResult{
		Payment:          ToPaymentResponse(payment),
		AlreadyProcessed: true,
	}
	if payment.InvoiceID != nil {
		invoice, err := s.invoiceRepo.FindByIDForBusiness(ctx, businessID, *payment.InvoiceID)
		if err == nil && invoice != nil {
			result.Invoice = ToInvoiceResponse(invoice)
		}
	}
	return result, nil
}

// loadPaymentChecked loads a payment and enforces the business boundary.
// A cross-business attempt is a security violation, not a data error, and is
// logged with a distinct marker.
func (s *PaymentService) loadPaymentChecked(ctx context.Context, businessID, paymentID uuid.UUID) (*billing.Payment, error) {
	payment, err := s.paymentRepo.FindByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, shared.NewDomainError(shared.CodeNotFound, "Payment not found")
	}
	if !payment.BelongsTo(businessID) {
		s.logger.Warn("SECURITY cross-business access attempt",
			zap.String("resource", "payment"),
			zap.String("resource_id", paymentID.String()),
			zap.String("owner_business_id", payment.BusinessID.String()),
			zap.String("caller_business_id", businessID.String()))
		return nil, shared.ErrCrossBusinessAccess
	}
	return payment, nil
}

// loadInvoiceChecked loads an invoice and enforces the business boundary
func (s *PaymentService) loadInvoiceChecked(ctx context.Context, businessID, invoiceID uuid.UUID) (*billing.Invoice, error) {
	invoice, err := s.invoiceRepo.FindByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, shared.NewDomainError(shared.CodeNotFound, "Invoice not found")
	}
	if !invoice.BelongsTo(businessID) {
		s.logger.Warn("SECURITY cross-business access attempt",
			zap.String("resource", "invoice"),
			zap.String("resource_id", invoiceID.String()),
			zap.String("owner_business_id", invoice.BusinessID.String()),
			zap.String("caller_business_id", businessID.String()))
		return nil, shared.ErrCrossBusinessAccess
	}
	return invoice, nil
}

func (s *PaymentService) publishPaymentEvents(ctx context.Context, payment *billing.Payment) {
	if s.eventPublisher == nil || payment == nil {
		return
	}
	events := payment.GetDomainEvents()
	if len(events) == 0 {
		return
	}
	if err := s.eventPublisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("Failed to publish payment events",
			zap.String("payment_id", payment.ID.String()),
			zap.Error(err))
	}
	payment.ClearDomainEvents()
}

func (s *PaymentService) publishInvoiceEvents(ctx context.Context, invoice *billing.Invoice) {
	if s.eventPublisher == nil || invoice == nil {
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

package billing

import (
	"context"

	"github.com/bizledger/backend/internal/domain/billing"
)

// TransactionScope provides transactional access to the ledger repositories.
// Settlement and refund handling mutate a payment and its invoice together;
// running both saves inside one scope keeps the pair atomic: either the
// payment outcome and the reconciled invoice are both persisted, or neither is.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	// If the function succeeds, the transaction is committed.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to the ledger repositories within
// a transaction. All repositories returned share the same underlying
// database transaction.
type TransactionalRepositories interface {
	// InvoiceRepo returns the invoice repository scoped to the current transaction
	InvoiceRepo() billing.InvoiceRepository
	// PaymentRepo returns the payment repository scoped to the current transaction
	PaymentRepo() billing.PaymentRepository
}

// NoOpTransactionScope is a transaction scope that doesn't actually use
// transactions. Useful for tests and for repository implementations that
// provide their own consistency guarantees.
type NoOpTransactionScope struct {
	invoiceRepo billing.InvoiceRepository
	paymentRepo billing.PaymentRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories.
func NewNoOpTransactionScope(invoiceRepo billing.InvoiceRepository, paymentRepo billing.PaymentRepository) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		invoiceRepo: invoiceRepo,
		paymentRepo: paymentRepo,
	}
}

// Execute runs fn against the wrapped repositories without a transaction
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// InvoiceRepo returns the wrapped invoice repository
func (s *NoOpTransactionScope) InvoiceRepo() billing.InvoiceRepository {
	return s.invoiceRepo
}

// PaymentRepo returns the wrapped payment repository
func (s *NoOpTransactionScope) PaymentRepo() billing.PaymentRepository {
	return s.paymentRepo
}

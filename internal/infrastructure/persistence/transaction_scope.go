package persistence

import (
	"context"

	"gorm.io/gorm"

	appbilling "github.com/bizledger/backend/internal/application/billing"
	"github.com/bizledger/backend/internal/domain/billing"
)

// GormTransactionScope runs settlement and refund work inside a database
// transaction so the payment write and the invoice reconciliation commit or
// roll back together.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs fn inside a transaction, handing it repositories bound to the
// transaction connection
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos appbilling.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx})
	})
}

// gormTransactionalRepositories provides repositories bound to a transaction
type gormTransactionalRepositories struct {
	tx *gorm.DB
}

func (r *gormTransactionalRepositories) InvoiceRepo() billing.InvoiceRepository {
	return NewGormInvoiceRepository(r.tx)
}

func (r *gormTransactionalRepositories) PaymentRepo() billing.PaymentRepository {
	return NewGormPaymentRepository(r.tx)
}

// Ensure interfaces are implemented
var (
	_ appbilling.TransactionScope          = (*GormTransactionScope)(nil)
	_ appbilling.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
)

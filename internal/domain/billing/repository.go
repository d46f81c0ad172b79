package billing

import (
	"context"
	"time"

	"github.com/bizledger/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// InvoiceFilter narrows invoice list queries
type InvoiceFilter struct {
	shared.Filter
	Status     *InvoiceStatus
	CustomerID *uuid.UUID
	IssuedFrom *time.Time
	IssuedTo   *time.Time
	DueFrom    *time.Time
	DueTo      *time.Time
}

// PaymentFilter narrows payment list queries
type PaymentFilter struct {
	shared.Filter
	Status    *PaymentStatus
	InvoiceID *uuid.UUID
	Provider  string
}

// InvoiceRepository is the persistence port for the Invoice aggregate.
// All reads and writes are scoped to a business; cross-business lookups
// surface as not found.
type InvoiceRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Invoice, error)
	FindByIDForBusiness(ctx context.Context, businessID, id uuid.UUID) (*Invoice, error)
	FindByNumberForBusiness(ctx context.Context, businessID uuid.UUID, invoiceNumber string) (*Invoice, error)
	FindAllForBusiness(ctx context.Context, businessID uuid.UUID, filter InvoiceFilter) (*shared.Paginated[Invoice], error)
	// FindOverdueCandidates returns sent and viewed invoices past their due
	// date with an outstanding balance, for the overdue sweep.
	FindOverdueCandidates(ctx context.Context, businessID uuid.UUID, asOf time.Time) ([]*Invoice, error)
	Save(ctx context.Context, invoice *Invoice) error
	// SaveWithLock persists the invoice only when the stored version matches
	// expectedVersion, returning a RECONCILIATION_CONFLICT error otherwise.
	SaveWithLock(ctx context.Context, invoice *Invoice, expectedVersion int) error
	DeleteForBusiness(ctx context.Context, businessID, id uuid.UUID) error
	GenerateInvoiceNumber(ctx context.Context, businessID uuid.UUID) (string, error)
}

// PaymentRepository is the persistence port for the Payment aggregate
type PaymentRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Payment, error)
	FindByIDForBusiness(ctx context.Context, businessID, id uuid.UUID) (*Payment, error)
	// FindByInvoice returns every payment referencing the invoice, in
	// creation order. Reconciliation depends on this being the complete set.
	FindByInvoice(ctx context.Context, businessID, invoiceID uuid.UUID) ([]*Payment, error)
	FindAllForBusiness(ctx context.Context, businessID uuid.UUID, filter PaymentFilter) (*shared.Paginated[Payment], error)
	Save(ctx context.Context, payment *Payment) error
	SaveWithLock(ctx context.Context, payment *Payment, expectedVersion int) error
	GeneratePaymentNumber(ctx context.Context, businessID uuid.UUID) (string, error)
}

// BusinessRepository lists the businesses known to the ledger, used by the
// overdue sweep to fan out per business.
type BusinessRepository interface {
	ListBusinessIDs(ctx context.Context) ([]uuid.UUID, error)
}

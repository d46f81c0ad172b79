package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bizledger/backend/internal/domain/billing"
	"github.com/bizledger/backend/internal/domain/shared"
	"github.com/bizledger/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormInvoiceRepository implements InvoiceRepository using GORM
type GormInvoiceRepository struct {
	db          *gorm.DB
	outboxSaver shared.OutboxEventSaver // optional, for transactional outbox pattern
}

// NewGormInvoiceRepository creates a new GormInvoiceRepository
func NewGormInvoiceRepository(db *gorm.DB) *GormInvoiceRepository {
	return &GormInvoiceRepository{db: db}
}

// SetOutboxEventSaver sets the outbox event saver for transactional event publishing
func (r *GormInvoiceRepository) SetOutboxEventSaver(saver shared.OutboxEventSaver) {
	r.outboxSaver = saver
}

// FindByID finds an invoice by its ID regardless of business
func (r *GormInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Invoice, error) {
	var model models.InvoiceModel
	if err := r.db.WithContext(ctx).
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByIDForBusiness finds an invoice by ID for a specific business
func (r *GormInvoiceRepository) FindByIDForBusiness(ctx context.Context, businessID, id uuid.UUID) (*billing.Invoice, error) {
	var model models.InvoiceModel
	if err := r.db.WithContext(ctx).
		Where("business_id = ? AND id = ?", businessID, id).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByNumberForBusiness finds an invoice by its number for a business
func (r *GormInvoiceRepository) FindByNumberForBusiness(ctx context.Context, businessID uuid.UUID, invoiceNumber string) (*billing.Invoice, error) {
	var model models.InvoiceModel
	if err := r.db.WithContext(ctx).
		Where("business_id = ? AND invoice_number = ?", businessID, invoiceNumber).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAllForBusiness finds invoices for a business with filtering and pagination
func (r *GormInvoiceRepository) FindAllForBusiness(ctx context.Context, businessID uuid.UUID, filter billing.InvoiceFilter) (*shared.Paginated[billing.Invoice], error) {
	countQuery := r.db.WithContext(ctx).Model(&models.InvoiceModel{}).
		Where("business_id = ?", businessID)
	countQuery = r.applyInvoiceFilterWithoutPagination(countQuery, filter)

	var total int64
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, err
	}

	query := r.db.WithContext(ctx).Model(&models.InvoiceModel{}).
		Where("business_id = ?", businessID)
	query = r.applyInvoiceFilterWithoutPagination(query, filter)
	query = r.applyPagination(query, filter.Filter)

	var invoiceModels []models.InvoiceModel
	if err := query.Find(&invoiceModels).Error; err != nil {
		return nil, err
	}

	invoices := make([]billing.Invoice, len(invoiceModels))
	for i, model := range invoiceModels {
		invoices[i] = *model.ToDomain()
	}
	page := shared.NewPaginated(invoices, total, filter.Page, filter.PageSize)
	return &page, nil
}

// FindOverdueCandidates finds sent and viewed invoices past their due date
// that still carry an outstanding balance
func (r *GormInvoiceRepository) FindOverdueCandidates(ctx context.Context, businessID uuid.UUID, asOf time.Time) ([]*billing.Invoice, error) {
	var invoiceModels []models.InvoiceModel
	if err := r.db.WithContext(ctx).
		Where("business_id = ? AND due_date < ? AND amount_due > 0 AND status IN ?", businessID, asOf,
			[]billing.InvoiceStatus{billing.InvoiceStatusSent, billing.InvoiceStatusViewed}).
		Order("due_date ASC").
		Find(&invoiceModels).Error; err != nil {
		return nil, err
	}
	invoices := make([]*billing.Invoice, len(invoiceModels))
	for i := range invoiceModels {
		invoices[i] = invoiceModels[i].ToDomain()
	}
	return invoices, nil
}

// Save creates or updates an invoice
func (r *GormInvoiceRepository) Save(ctx context.Context, invoice *billing.Invoice) error {
	model := models.InvoiceModelFromDomain(invoice)
	events := invoice.GetDomainEvents()

	if r.outboxSaver == nil || len(events) == 0 {
		return r.db.WithContext(ctx).Save(model).Error
	}

	// Save events to the outbox in the same transaction as the invoice row
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(model).Error; err != nil {
			return err
		}
		if err := r.outboxSaver.SaveEvents(ctx, tx, events...); err != nil {
			return fmt.Errorf("failed to save events to outbox: %w", err)
		}
		return nil
	})
}

// SaveWithLock saves the invoice only when the stored row still carries
// expectedVersion. Zero rows affected means another writer got there first.
func (r *GormInvoiceRepository) SaveWithLock(ctx context.Context, invoice *billing.Invoice, expectedVersion int) error {
	model := models.InvoiceModelFromDomain(invoice)
	events := invoice.GetDomainEvents()

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Select("*") so cleared fields such as paid_date write back as NULL.
		result := tx.
			Model(model).
			Where("id = ? AND version = ?", invoice.ID, expectedVersion).
			Select("*").
			Updates(model)

		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrReconciliationConflict
		}

		if r.outboxSaver != nil && len(events) > 0 {
			if err := r.outboxSaver.SaveEvents(ctx, tx, events...); err != nil {
				return fmt.Errorf("failed to save events to outbox: %w", err)
			}
		}
		return nil
	})
}

// DeleteForBusiness deletes an invoice belonging to a business
func (r *GormInvoiceRepository) DeleteForBusiness(ctx context.Context, businessID, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.InvoiceModel{}, "business_id = ? AND id = ?", businessID, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// GenerateInvoiceNumber generates a unique invoice number
func (r *GormInvoiceRepository) GenerateInvoiceNumber(ctx context.Context, businessID uuid.UUID) (string, error) {
	// Format: INV-YYYYMMDD-XXXXX
	date := time.Now().Format("20060102")
	prefix := fmt.Sprintf("INV-%s-", date)

	// Find the highest number for today
	var maxNumber string
	if err := r.db.WithContext(ctx).
		Model(&models.InvoiceModel{}).
		Select("invoice_number").
		Where("business_id = ? AND invoice_number LIKE ?", businessID, prefix+"%").
		Order("invoice_number DESC").
		Limit(1).
		Pluck("invoice_number", &maxNumber).Error; err != nil {
		return "", err
	}

	var nextNum int
	if maxNumber != "" {
		parts := strings.Split(maxNumber, "-")
		if len(parts) == 3 {
			fmt.Sscanf(parts[2], "%d", &nextNum)
		}
	}
	nextNum++

	return fmt.Sprintf("%s%05d", prefix, nextNum), nil
}

// applyPagination applies pagination and ordering to the query
func (r *GormInvoiceRepository) applyPagination(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	orderBy := ValidateSortField(filter.OrderBy, InvoiceSortFields, "created_at")
	orderDir := ValidateSortOrder(filter.OrderDir)
	return query.Order(orderBy + " " + orderDir)
}

// applyInvoiceFilterWithoutPagination applies filter options without pagination
func (r *GormInvoiceRepository) applyInvoiceFilterWithoutPagination(query *gorm.DB, filter billing.InvoiceFilter) *gorm.DB {
	if filter.Search != "" {
		searchPattern := "%" + filter.Search + "%"
		query = query.Where("invoice_number ILIKE ? OR notes ILIKE ?", searchPattern, searchPattern)
	}

	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.CustomerID != nil {
		query = query.Where("customer_id = ?", *filter.CustomerID)
	}
	if filter.IssuedFrom != nil {
		query = query.Where("issue_date >= ?", *filter.IssuedFrom)
	}
	if filter.IssuedTo != nil {
		query = query.Where("issue_date <= ?", *filter.IssuedTo)
	}
	if filter.DueFrom != nil {
		query = query.Where("due_date >= ?", *filter.DueFrom)
	}
	if filter.DueTo != nil {
		query = query.Where("due_date <= ?", *filter.DueTo)
	}

	return query
}

// Ensure GormInvoiceRepository implements InvoiceRepository
var _ billing.InvoiceRepository = (*GormInvoiceRepository)(nil)

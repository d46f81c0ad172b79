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

// GormPaymentRepository implements PaymentRepository using GORM
type GormPaymentRepository struct {
	db          *gorm.DB
	outboxSaver shared.OutboxEventSaver // optional, for transactional outbox pattern
}

// NewGormPaymentRepository creates a new GormPaymentRepository
func NewGormPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

// SetOutboxEventSaver sets the outbox event saver for transactional event publishing
func (r *GormPaymentRepository) SetOutboxEventSaver(saver shared.OutboxEventSaver) {
	r.outboxSaver = saver
}

// FindByID finds a payment by its ID regardless of business
func (r *GormPaymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Payment, error) {
	var model models.PaymentModel
	if err := r.db.WithContext(ctx).
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByIDForBusiness finds a payment by ID for a specific business
func (r *GormPaymentRepository) FindByIDForBusiness(ctx context.Context, businessID, id uuid.UUID) (*billing.Payment, error) {
	var model models.PaymentModel
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

// FindByInvoice returns every payment referencing the invoice in creation
// order. Reconciliation derives the invoice balance from this full set.
func (r *GormPaymentRepository) FindByInvoice(ctx context.Context, businessID, invoiceID uuid.UUID) ([]*billing.Payment, error) {
	var paymentModels []models.PaymentModel
	if err := r.db.WithContext(ctx).
		Where("business_id = ? AND invoice_id = ?", businessID, invoiceID).
		Order("created_at ASC").
		Find(&paymentModels).Error; err != nil {
		return nil, err
	}
	payments := make([]*billing.Payment, len(paymentModels))
	for i := range paymentModels {
		payments[i] = paymentModels[i].ToDomain()
	}
	return payments, nil
}

// FindAllForBusiness finds payments for a business with filtering and pagination
func (r *GormPaymentRepository) FindAllForBusiness(ctx context.Context, businessID uuid.UUID, filter billing.PaymentFilter) (*shared.Paginated[billing.Payment], error) {
	countQuery := r.db.WithContext(ctx).Model(&models.PaymentModel{}).
		Where("business_id = ?", businessID)
	countQuery = r.applyPaymentFilterWithoutPagination(countQuery, filter)

	var total int64
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, err
	}

	query := r.db.WithContext(ctx).Model(&models.PaymentModel{}).
		Where("business_id = ?", businessID)
	query = r.applyPaymentFilterWithoutPagination(query, filter)
	query = r.applyPagination(query, filter.Filter)

	var paymentModels []models.PaymentModel
	if err := query.Find(&paymentModels).Error; err != nil {
		return nil, err
	}

	payments := make([]billing.Payment, len(paymentModels))
	for i, model := range paymentModels {
		payments[i] = *model.ToDomain()
	}
	page := shared.NewPaginated(payments, total, filter.Page, filter.PageSize)
	return &page, nil
}

// Save creates or updates a payment
func (r *GormPaymentRepository) Save(ctx context.Context, payment *billing.Payment) error {
	model := models.PaymentModelFromDomain(payment)
	events := payment.GetDomainEvents()

	if r.outboxSaver == nil || len(events) == 0 {
		return r.db.WithContext(ctx).Save(model).Error
	}

	// Save events to the outbox in the same transaction as the payment row
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

// SaveWithLock saves the payment only when the stored row still carries
// expectedVersion
func (r *GormPaymentRepository) SaveWithLock(ctx context.Context, payment *billing.Payment, expectedVersion int) error {
	model := models.PaymentModelFromDomain(payment)
	events := payment.GetDomainEvents()

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Select("*") so cleared fields write back as NULL.
		result := tx.
			Model(model).
			Where("id = ? AND version = ?", payment.ID, expectedVersion).
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

// GeneratePaymentNumber generates a unique payment number
func (r *GormPaymentRepository) GeneratePaymentNumber(ctx context.Context, businessID uuid.UUID) (string, error) {
	// Format: PAY-YYYYMMDD-XXXXX
	date := time.Now().Format("20060102")
	prefix := fmt.Sprintf("PAY-%s-", date)

	var maxNumber string
	if err := r.db.WithContext(ctx).
		Model(&models.PaymentModel{}).
		Select("payment_number").
		Where("business_id = ? AND payment_number LIKE ?", businessID, prefix+"%").
		Order("payment_number DESC").
		Limit(1).
		Pluck("payment_number", &maxNumber).Error; err != nil {
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
func (r *GormPaymentRepository) applyPagination(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	orderBy := ValidateSortField(filter.OrderBy, PaymentSortFields, "created_at")
	orderDir := ValidateSortOrder(filter.OrderDir)
	return query.Order(orderBy + " " + orderDir)
}

// applyPaymentFilterWithoutPagination applies filter options without pagination
func (r *GormPaymentRepository) applyPaymentFilterWithoutPagination(query *gorm.DB, filter billing.PaymentFilter) *gorm.DB {
	if filter.Search != "" {
		searchPattern := "%" + filter.Search + "%"
		query = query.Where("payment_number ILIKE ? OR provider ILIKE ?", searchPattern, searchPattern)
	}

	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.InvoiceID != nil {
		query = query.Where("invoice_id = ?", *filter.InvoiceID)
	}
	if filter.Provider != "" {
		query = query.Where("provider = ?", filter.Provider)
	}

	return query
}

// Ensure GormPaymentRepository implements PaymentRepository
var _ billing.PaymentRepository = (*GormPaymentRepository)(nil)

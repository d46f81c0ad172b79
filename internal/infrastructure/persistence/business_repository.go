package persistence

import (
	"context"

	"github.com/bizledger/backend/internal/domain/billing"
	"github.com/bizledger/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormBusinessRepository lists the businesses known to the ledger. Businesses
// are owned by an upstream identity system, so the set is derived from the
// invoices table rather than a table of its own.
type GormBusinessRepository struct {
	db *gorm.DB
}

// NewGormBusinessRepository creates a new GormBusinessRepository
func NewGormBusinessRepository(db *gorm.DB) *GormBusinessRepository {
	return &GormBusinessRepository{db: db}
}

// ListBusinessIDs returns the distinct business IDs holding invoices
func (r *GormBusinessRepository) ListBusinessIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := r.db.WithContext(ctx).
		Model(&models.InvoiceModel{}).
		Distinct("business_id").
		Order("business_id ASC").
		Pluck("business_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// Ensure GormBusinessRepository implements BusinessRepository
var _ billing.BusinessRepository = (*GormBusinessRepository)(nil)

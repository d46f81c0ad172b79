package models

import (
	"time"

	"github.com/bizledger/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// BaseModel provides common persistence fields for all models.
// It maps to the domain's BaseEntity.
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// ToDomain converts BaseModel to domain BaseEntity
func (m *BaseModel) ToDomain() shared.BaseEntity {
	return shared.BaseEntity{
		ID:        m.ID,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// FromDomainBaseEntity populates BaseModel from domain BaseEntity
func (m *BaseModel) FromDomainBaseEntity(e shared.BaseEntity) {
	m.ID = e.ID
	m.CreatedAt = e.CreatedAt
	m.UpdatedAt = e.UpdatedAt
}

// AggregateModel provides common persistence fields for aggregate roots.
// It extends BaseModel with version for optimistic locking.
type AggregateModel struct {
	BaseModel
	Version int `gorm:"not null;default:1"`
}

// FromDomainAggregateRoot populates AggregateModel from domain BaseAggregateRoot
func (m *AggregateModel) FromDomainAggregateRoot(a shared.BaseAggregateRoot) {
	m.FromDomainBaseEntity(a.BaseEntity)
	m.Version = a.Version
}

// BusinessAggregateModel provides common persistence fields for
// business-scoped aggregate roots. It extends AggregateModel with the
// owning business ID.
type BusinessAggregateModel struct {
	AggregateModel
	BusinessID uuid.UUID `gorm:"type:uuid;not null;index"`
}

// FromDomainBusinessAggregateRoot populates BusinessAggregateModel from domain BusinessAggregateRoot
func (m *BusinessAggregateModel) FromDomainBusinessAggregateRoot(b shared.BusinessAggregateRoot) {
	m.FromDomainAggregateRoot(b.BaseAggregateRoot)
	m.BusinessID = b.BusinessID
}

// PopulateBusinessAggregateRoot populates a domain BusinessAggregateRoot from persistence model
func (m *BusinessAggregateModel) PopulateBusinessAggregateRoot(b *shared.BusinessAggregateRoot) {
	b.BaseAggregateRoot.BaseEntity.ID = m.ID
	b.BaseAggregateRoot.BaseEntity.CreatedAt = m.CreatedAt
	b.BaseAggregateRoot.BaseEntity.UpdatedAt = m.UpdatedAt
	b.BaseAggregateRoot.Version = m.Version
	b.BusinessID = m.BusinessID
}

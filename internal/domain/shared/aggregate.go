package shared

import (
	"github.com/google/uuid"
)

// AggregateRoot is the base interface for all aggregate roots
type AggregateRoot interface {
	Entity
	GetVersion() int
	IncrementVersion()
	AddDomainEvent(event DomainEvent)
	GetDomainEvents() []DomainEvent
	ClearDomainEvents()
}

// BaseAggregateRoot provides common fields for aggregate roots
type BaseAggregateRoot struct {
	BaseEntity
	Version      int           `gorm:"not null;default:1"`
	domainEvents []DomainEvent `gorm:"-"`
}

// GetVersion returns the aggregate version for optimistic locking
func (a *BaseAggregateRoot) GetVersion() int {
	return a.Version
}

// IncrementVersion increments the version number
func (a *BaseAggregateRoot) IncrementVersion() {
	a.Version++
}

// AddDomainEvent adds a domain event to be published
func (a *BaseAggregateRoot) AddDomainEvent(event DomainEvent) {
	a.domainEvents = append(a.domainEvents, event)
}

// GetDomainEvents returns all pending domain events
func (a *BaseAggregateRoot) GetDomainEvents() []DomainEvent {
	return a.domainEvents
}

// ClearDomainEvents clears the pending domain events
func (a *BaseAggregateRoot) ClearDomainEvents() {
	a.domainEvents = nil
}

// NewBaseAggregateRoot creates a new base aggregate root
func NewBaseAggregateRoot() BaseAggregateRoot {
	return BaseAggregateRoot{
		BaseEntity:   NewBaseEntity(),
		Version:      1,
		domainEvents: make([]DomainEvent, 0),
	}
}

// BusinessAggregateRoot extends BaseAggregateRoot with business scoping.
// Every ledger aggregate belongs to exactly one business; cross-business
// access is rejected before any read or mutation.
type BusinessAggregateRoot struct {
	BaseAggregateRoot
	BusinessID uuid.UUID `gorm:"type:uuid;not null;index"`
}

// NewBusinessAggregateRoot creates a new business-scoped aggregate root
func NewBusinessAggregateRoot(businessID uuid.UUID) BusinessAggregateRoot {
	return BusinessAggregateRoot{
		BaseAggregateRoot: NewBaseAggregateRoot(),
		BusinessID:        businessID,
	}
}

// BelongsTo reports whether the aggregate belongs to the given business.
func (b *BusinessAggregateRoot) BelongsTo(businessID uuid.UUID) bool {
	return b.BusinessID == businessID
}

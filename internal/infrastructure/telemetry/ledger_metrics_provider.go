// Package telemetry provides OpenTelemetry integration for metrics collection.
package telemetry

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// openInvoiceStatuses are the statuses under which an invoice can still carry
// a collectible balance.
var openInvoiceStatuses = []string{"sent", "viewed", "overdue"}

// GormReceivablesMetricsProvider implements ReceivablesMetricsProvider using GORM.
// It queries the invoices table directly for aggregated metrics.
type GormReceivablesMetricsProvider struct {
	db *gorm.DB
}

// NewGormReceivablesMetricsProvider creates a new GormReceivablesMetricsProvider.
func NewGormReceivablesMetricsProvider(db *gorm.DB) *GormReceivablesMetricsProvider {
	return &GormReceivablesMetricsProvider{db: db}
}

// GetOpenInvoiceCount returns the number of invoices still carrying a balance for a business.
func (p *GormReceivablesMetricsProvider) GetOpenInvoiceCount(ctx context.Context, businessID uuid.UUID) (int64, error) {
	var count int64
	err := p.db.WithContext(ctx).
		Table("invoices").
		Where("business_id = ? AND amount_due > 0 AND status IN ?", businessID, openInvoiceStatuses).
		Count(&count).Error

	return count, err
}

// GetOutstandingAmount returns the total amount due across open invoices for a business.
func (p *GormReceivablesMetricsProvider) GetOutstandingAmount(ctx context.Context, businessID uuid.UUID) (decimal.Decimal, error) {
	var total decimal.NullDecimal
	err := p.db.WithContext(ctx).
		Table("invoices").
		Select("COALESCE(SUM(amount_due), 0)").
		Where("business_id = ? AND amount_due > 0 AND status IN ?", businessID, openInvoiceStatuses).
		Scan(&total).Error

	if err != nil {
		return decimal.Zero, err
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	return total.Decimal, nil
}

// GormBusinessProvider implements BusinessProvider using GORM.
type GormBusinessProvider struct {
	db *gorm.DB
}

// NewGormBusinessProvider creates a new GormBusinessProvider.
func NewGormBusinessProvider(db *gorm.DB) *GormBusinessProvider {
	return &GormBusinessProvider{db: db}
}

// GetActiveBusinessIDs returns every business ID present in the ledger.
func (p *GormBusinessProvider) GetActiveBusinessIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := p.db.WithContext(ctx).
		Table("invoices").
		Distinct("business_id").
		Order("business_id ASC").
		Pluck("business_id", &ids).Error

	return ids, err
}

package billing

import (
	"database/sql/driver"
	"encoding/json"
	"errors"

	"github.com/bizledger/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var oneHundred = decimal.NewFromInt(100)

// minorUnitPlaces is the rounding precision for line totals.
// All supported currencies use two decimal places (cents).
const minorUnitPlaces = 2

// LineAmounts holds the derived amounts of a single invoice line.
// Discount is applied before tax: the tax base is the discounted subtotal.
// This ordering matches VAT-on-net invoicing and must be preserved.
type LineAmounts struct {
	Subtotal       decimal.Decimal `json:"subtotal"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	TaxAmount      decimal.Decimal `json:"tax_amount"`
	Total          decimal.Decimal `json:"total"`
}

// ComputeLine derives subtotal, discount, tax and total for one invoice line.
// Inputs are constrained to quantity >= 0, unitPrice >= 0 and percentages in
// [0, 100]; violations are rejected before any computation. All arithmetic is
// exact; rounding happens only at the final total, half-up to the minor unit.
func ComputeLine(quantity, unitPrice, discountPct, taxPct decimal.Decimal) (LineAmounts, error) {
	if quantity.IsNegative() {
		return LineAmounts{}, shared.NewDomainError(shared.CodeValidation, "Quantity cannot be negative")
	}
	if unitPrice.IsNegative() {
		return LineAmounts{}, shared.NewDomainError(shared.CodeValidation, "Unit price cannot be negative")
	}
	if discountPct.IsNegative() || discountPct.GreaterThan(oneHundred) {
		return LineAmounts{}, shared.NewDomainError(shared.CodeValidation, "Discount percentage must be between 0 and 100")
	}
	if taxPct.IsNegative() || taxPct.GreaterThan(oneHundred) {
		return LineAmounts{}, shared.NewDomainError(shared.CodeValidation, "Tax percentage must be between 0 and 100")
	}

	subtotal := quantity.Mul(unitPrice)
	discountAmount := subtotal.Mul(discountPct).Div(oneHundred)
	taxable := subtotal.Sub(discountAmount)
	taxAmount := taxable.Mul(taxPct).Div(oneHundred)
	total := taxable.Add(taxAmount).Round(minorUnitPlaces)

	return LineAmounts{
		Subtotal:       subtotal,
		DiscountAmount: discountAmount,
		TaxAmount:      taxAmount,
		Total:          total,
	}, nil
}

// InvoiceLine represents a single product/service entry on an invoice.
// It is a child entity of the Invoice aggregate, stored as JSONB; its derived
// amounts are never written independently of recomputation.
type InvoiceLine struct {
	ID                 uuid.UUID       `json:"id"`
	Description        string          `json:"description"`
	ProductID          *uuid.UUID      `json:"product_id,omitempty"`
	Quantity           decimal.Decimal `json:"quantity"`
	UnitPrice          decimal.Decimal `json:"unit_price"`
	DiscountPercentage decimal.Decimal `json:"discount_percentage"`
	TaxPercentage      decimal.Decimal `json:"tax_percentage"`
	Subtotal           decimal.Decimal `json:"subtotal"`
	DiscountAmount     decimal.Decimal `json:"discount_amount"`
	TaxAmount          decimal.Decimal `json:"tax_amount"`
	Total              decimal.Decimal `json:"total"`
}

// NewInvoiceLine creates a new invoice line with derived amounts computed
func NewInvoiceLine(description string, productID *uuid.UUID, quantity, unitPrice, discountPct, taxPct decimal.Decimal) (*InvoiceLine, error) {
	if description == "" {
		return nil, shared.NewDomainError(shared.CodeValidation, "Line description cannot be empty")
	}
	if len(description) > 500 {
		return nil, shared.NewDomainError(shared.CodeValidation, "Line description cannot exceed 500 characters")
	}

	amounts, err := ComputeLine(quantity, unitPrice, discountPct, taxPct)
	if err != nil {
		return nil, err
	}

	return &InvoiceLine{
		ID:                 uuid.New(),
		Description:        description,
		ProductID:          productID,
		Quantity:           quantity,
		UnitPrice:          unitPrice,
		DiscountPercentage: discountPct,
		TaxPercentage:      taxPct,
		Subtotal:           amounts.Subtotal,
		DiscountAmount:     amounts.DiscountAmount,
		TaxAmount:          amounts.TaxAmount,
		Total:              amounts.Total,
	}, nil
}

// recompute refreshes the derived amounts from the line's inputs
func (l *InvoiceLine) recompute() error {
	amounts, err := ComputeLine(l.Quantity, l.UnitPrice, l.DiscountPercentage, l.TaxPercentage)
	if err != nil {
		return err
	}
	l.Subtotal = amounts.Subtotal
	l.DiscountAmount = amounts.DiscountAmount
	l.TaxAmount = amounts.TaxAmount
	l.Total = amounts.Total
	return nil
}

// Amounts returns the line's derived amounts
func (l *InvoiceLine) Amounts() LineAmounts {
	return LineAmounts{
		Subtotal:       l.Subtotal,
		DiscountAmount: l.DiscountAmount,
		TaxAmount:      l.TaxAmount,
		Total:          l.Total,
	}
}

// InvoiceLines is a slice of InvoiceLine that implements GORM Scanner/Valuer
// for JSONB storage within the invoice row.
type InvoiceLines []InvoiceLine

// Value implements driver.Valuer interface for GORM to store as JSONB
func (l InvoiceLines) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	return json.Marshal(l)
}

// Scan implements sql.Scanner interface for GORM to read from JSONB
func (l *InvoiceLines) Scan(value interface{}) error {
	if value == nil {
		*l = InvoiceLines{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("failed to scan InvoiceLines: unsupported type")
	}

	if len(bytes) == 0 {
		*l = InvoiceLines{}
		return nil
	}

	return json.Unmarshal(bytes, l)
}

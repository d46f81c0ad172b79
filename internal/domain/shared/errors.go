package shared

import "errors"

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Error codes used across the ledger
const (
	CodeNotFound               = "NOT_FOUND"
	CodeAlreadyExists          = "ALREADY_EXISTS"
	CodeValidation             = "VALIDATION_ERROR"
	CodeInvalidTransition      = "INVALID_TRANSITION"
	CodeRefundExceedsPayment   = "REFUND_EXCEEDS_PAYMENT"
	CodeCrossBusinessAccess    = "CROSS_BUSINESS_ACCESS"
	CodeReconciliationConflict = "RECONCILIATION_CONFLICT"
	CodeConcurrencyConflict    = "CONCURRENCY_CONFLICT"
)

// Common domain errors
var (
	ErrNotFound               = NewDomainError(CodeNotFound, "Resource not found")
	ErrAlreadyExists          = NewDomainError(CodeAlreadyExists, "Resource already exists")
	ErrValidation             = NewDomainError(CodeValidation, "Invalid input provided")
	ErrInvalidTransition      = NewDomainError(CodeInvalidTransition, "Status transition not allowed")
	ErrRefundExceedsPayment   = NewDomainError(CodeRefundExceedsPayment, "Refund amount exceeds payment amount")
	ErrCrossBusinessAccess    = NewDomainError(CodeCrossBusinessAccess, "Resource belongs to another business")
	ErrReconciliationConflict = NewDomainError(CodeReconciliationConflict, "Invoice was modified by a concurrent reconciliation")
	ErrConcurrencyConflict    = NewDomainError(CodeConcurrencyConflict, "Resource was modified by another process")
)

// HasCode reports whether err is (or wraps) a DomainError with the given code.
func HasCode(err error, code string) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

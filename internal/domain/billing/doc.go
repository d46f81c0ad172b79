// Package billing provides the domain model of the invoice and payment ledger.
//
// This package implements the billing bounded context, which is responsible for:
//   - Computing invoice line amounts (discount before tax, exact decimal math)
//   - Aggregating lines into invoice totals and the outstanding balance
//   - Enforcing the invoice and payment lifecycle state machines
//   - Reconciling invoices against their payment set
//
// Key Aggregates:
//   - Invoice: A customer invoice with its line items, derived amounts and
//     lifecycle status (draft, sent, viewed, paid, overdue, cancelled, refunded)
//   - Payment: A single payment attempt with its settlement outcome and
//     cumulative refund amount
//
// Domain Services:
//   - ReconciliationService: The single writer of an invoice's paid amount,
//     derived from the full payment set so repeated runs are idempotent
//
// Invariants the model protects:
//   - amount_paid equals the sum of effective amounts of settled payments
//   - amount_due equals total minus paid, never negative
//   - refund amounts only grow and never exceed the payment amount
//   - an invoice never stays paid with an outstanding balance
package billing

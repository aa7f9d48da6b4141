/*
Package reconcile provides the accounts-receivable reconciliation engine.

PURPOSE:
  This package contains the pure derivation logic that turns two raw
  record streams - invoices (work orders) and payments - into settled
  balances. Nothing here is persisted: how much of an invoice is paid,
  the chronological statement of an account, and the per-client totals
  are all recomputed from scratch on every pass over a fresh snapshot.

KEY CONCEPTS IN THIS FILE (types.go):
  - Invoice: A billable work order with line items and a total
  - Payment: Money received, either bound to one invoice ("direct")
    or bound only to a client ("account credit")
  - InvoiceSettlement: Derived paid/balance/status for one invoice
  - StatementEntry: One row of the chronological account statement
  - ClientSummary: Aggregate billed/paid/balance per client

DESIGN PRINCIPLES:
  1. Purity: Same snapshot in, same derivation out. No hidden state.
  2. Precision: Uses decimal.Decimal to avoid floating-point drift.
  3. Tolerance: Malformed upstream fields normalize to safe defaults
     instead of failing (see normalize.go).
  4. Transparency: Credit allocations carry a trace of which payment
     settled which invoice.

USAGE:
  cls := reconcile.Classify(payments, reconcile.Confirmed)
  settlements := reconcile.AllocatePayments(invoices, cls.Credits)
  statement := reconcile.BuildStatement(invoices, cls.All())

SEE ALSO:
  - classify.go: Direct vs account-credit payment split
  - allocate.go: Greedy chronological credit allocation
  - statement.go: Debit/credit merge with running balance
  - summary.go: Per-client aggregation
*/
package reconcile

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type ClientID string
type InvoiceID string
type PaymentID string

// =============================================================================
// CLIENT - Referenced, never owned, by invoices and payments
// =============================================================================

type Client struct {
	ID   ClientID
	Name string
}

// =============================================================================
// INVOICE - A billable work order
// =============================================================================

// PaymentCondition tags how an invoice is expected to be paid.
type PaymentCondition string

const (
	// ConditionImmediate ("contado"): settled at creation. The summary
	// treats these as self-paid even when no payment record exists.
	ConditionImmediate PaymentCondition = "contado"

	// ConditionAccount ("cuenta corriente"): accumulates balance on the
	// client's running account, settled later via credits.
	ConditionAccount PaymentCondition = "cuenta_corriente"
)

// LineItem is one row of an invoice. Subtotal should equal
// Quantity * UnitPrice; violations are data-quality warnings, not errors
// (see validate.go).
type LineItem struct {
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	Subtotal    decimal.Decimal
}

// Invoice is immutable once created. Paid/balance are never stored on
// it; they are derived by the allocator on every pass.
type Invoice struct {
	ID        InvoiceID
	ClientID  ClientID // empty = no client reference
	Date      time.Time
	Total     decimal.Decimal
	Condition PaymentCondition
	Items     []LineItem

	// Payments recorded directly against this invoice at the source.
	Payments []Payment
}

// DirectPaid sums the confirmed payments attached to the invoice.
// Non-positive amounts contribute nothing.
func (inv Invoice) DirectPaid() decimal.Decimal {
	total := decimal.Zero
	for _, p := range inv.Payments {
		if p.Status == PaymentConfirmed {
			total = total.Add(p.Contribution())
		}
	}
	return total
}

// =============================================================================
// PAYMENT - Money received
// =============================================================================

type PaymentMethod string

const (
	MethodCash     PaymentMethod = "efectivo"
	MethodTransfer PaymentMethod = "transferencia"
	MethodCheck    PaymentMethod = "cheque"
	MethodCard     PaymentMethod = "tarjeta"
	MethodOther    PaymentMethod = "otro"
)

// PaymentStatus: only confirmed payments participate in any balance
// computation.
type PaymentStatus string

const (
	PaymentConfirmed PaymentStatus = "confirmed"
	PaymentPending   PaymentStatus = "pending"
	PaymentRejected  PaymentStatus = "rejected"
)

// PaymentMetadata carries method-specific fields (checks, transfers).
type PaymentMetadata struct {
	Bank         string
	CheckNumber  string
	ClearingDate time.Time
}

// Payment is never mutated by the engine. A payment with an invoice
// reference is "direct"; one with only a client reference is an
// account credit eligible for allocation.
type Payment struct {
	ID        PaymentID
	ClientID  ClientID  // optional
	InvoiceID InvoiceID // optional
	Amount    decimal.Decimal
	Date      time.Time
	Method    PaymentMethod
	Status    PaymentStatus
	Metadata  *PaymentMetadata
}

// IsDirect reports whether the payment is bound to a specific invoice.
func (p Payment) IsDirect() bool { return p.InvoiceID != "" }

// IsCredit reports whether the payment is an unallocated account credit.
func (p Payment) IsCredit() bool { return p.InvoiceID == "" && p.ClientID != "" }

// Contribution returns the amount this payment adds to paid totals.
// Non-positive amounts are treated as zero.
func (p Payment) Contribution() decimal.Decimal {
	if p.Amount.IsPositive() {
		return p.Amount
	}
	return decimal.Zero
}

// =============================================================================
// DERIVED TYPES - Transient, recomputed on every snapshot
// =============================================================================

// SettlementStatus classifies an invoice after allocation.
type SettlementStatus string

const (
	StatusSettled SettlementStatus = "settled"
	StatusPartial SettlementStatus = "partial"
	StatusOwing   SettlementStatus = "owing"
)

// Allocation records that Amount of a credit payment was applied to an
// invoice. One payment may split across several invoices and one
// invoice may receive several allocations.
type Allocation struct {
	PaymentID PaymentID
	InvoiceID InvoiceID
	Amount    decimal.Decimal
}

// InvoiceSettlement is the allocator's result for one invoice.
// Invariant: 0 <= Balance <= Total, and Paid + Balance == Total.
type InvoiceSettlement struct {
	InvoiceID   InvoiceID
	Total       decimal.Decimal
	Paid        decimal.Decimal
	Balance     decimal.Decimal
	Status      SettlementStatus
	Allocations []Allocation
}

// EntryKind distinguishes statement rows.
type EntryKind string

const (
	EntryDebit  EntryKind = "invoice"
	EntryCredit EntryKind = "payment"
)

// StatementEntry is one row of the chronological account statement.
// Balance is the running debit-minus-credit after this entry.
type StatementEntry struct {
	Date     time.Time
	Kind     EntryKind
	SourceID string
	Debit    decimal.Decimal
	Credit   decimal.Decimal
	Balance  decimal.Decimal
}

// ClientSummary aggregates one client's position and retains the member
// records for drill-down.
type ClientSummary struct {
	ClientID    ClientID
	Name        string
	TotalBilled decimal.Decimal
	TotalPaid   decimal.Decimal
	Balance     decimal.Decimal
	Invoices    []Invoice
	Payments    []Payment
}

// =============================================================================
// DATA-QUALITY WARNINGS
// =============================================================================

// WarningCode identifies a recoverable data-quality condition. Warnings
// are values, not errors: the engine keeps going.
type WarningCode string

const (
	// WarnOrphanPayment: payment with neither client nor invoice
	// reference. It cannot be reconciled and is excluded.
	WarnOrphanPayment WarningCode = "orphan_payment"

	// WarnItemSubtotal: line subtotal != quantity * unit price.
	WarnItemSubtotal WarningCode = "item_subtotal_mismatch"

	// WarnInvoiceTotal: invoice total != sum of line subtotals. Balance
	// math still trusts the stored total.
	WarnInvoiceTotal WarningCode = "invoice_total_mismatch"
)

type Warning struct {
	Code     WarningCode
	SourceID string
	Message  string
}

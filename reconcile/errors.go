/*
errors.go - Centralized error types for the reconciliation engine

PURPOSE:
  Normal operation produces no errors: malformed fields normalize to
  safe defaults and data-quality conditions are warnings, not failures.
  What remains here is the small set of real failures - upstream read
  errors passed through by the snapshot loader, and the one invariant
  violation the allocator is built to make impossible.

USAGE:
  if errors.Is(err, reconcile.ErrOverAllocation) {
      // internal invariant broken - report, do not retry
  }
*/
package reconcile

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// ErrOverAllocation means the sum allocated from a credit exceeded
	// its amount, or an invoice received more than its total. Clamping
	// in the allocator prevents this by construction; seeing it means
	// an internal invariant is broken, not bad user data.
	ErrOverAllocation = errors.New("allocation exceeds available amount")

	// ErrClientNotFound is returned by callers resolving a client id
	// against a snapshot or store.
	ErrClientNotFound = errors.New("client not found")
)

// OverAllocationError carries the detail of an invariant violation.
type OverAllocationError struct {
	PaymentID PaymentID
	InvoiceID InvoiceID
	Capacity  decimal.Decimal
	Allocated decimal.Decimal
}

func (e *OverAllocationError) Error() string {
	return fmt.Sprintf("over-allocation: payment %s on invoice %s, allocated %s of %s",
		e.PaymentID, e.InvoiceID, e.Allocated, e.Capacity)
}

func (e *OverAllocationError) Unwrap() error { return ErrOverAllocation }

// CheckConservation verifies the allocation invariants over a finished
// settlement set: no credit gives more than its amount and no invoice
// receives more than its total. Returns nil or an OverAllocationError.
// Intended for callers that want a belt-and-braces check before
// presenting results.
func CheckConservation(settlements []InvoiceSettlement, credits []Payment) error {
	capacity := make(map[PaymentID]decimal.Decimal, len(credits))
	for _, c := range credits {
		capacity[c.ID] = c.Contribution()
	}

	drawn := AllocatedByPayment(settlements)
	for id, total := range drawn {
		if total.GreaterThan(capacity[id]) {
			return &OverAllocationError{PaymentID: id, Capacity: capacity[id], Allocated: total}
		}
	}

	for _, s := range settlements {
		if s.Balance.IsNegative() || (s.Total.IsPositive() && s.Paid.GreaterThan(s.Total)) {
			return &OverAllocationError{InvoiceID: s.InvoiceID, Capacity: s.Total, Allocated: s.Paid}
		}
	}
	return nil
}

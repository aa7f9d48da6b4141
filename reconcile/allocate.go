/*
allocate.go - Greedy chronological credit allocation

PURPOSE:
  For one client, turns a list of invoices and a pool of account credits
  into a per-invoice paid/balance/status result, with a trace of which
  credit settled which invoice.

ALGORITHM:
  1. Order invoices by date ascending (oldest debt settles first).
  2. Order the credit pool by date ascending. The pool order is fixed
     once per client and shared across all invoices, so invoice order
     directly determines which invoice wins scarce credit.
  3. For each invoice: remaining = total - directPaid (clamped >= 0).
     Walk the pool; apply min(credit remaining, invoice remaining) from
     each credit until the invoice is settled or the pool is exhausted.
  4. Paid = total - remaining. Settled when remaining is zero, owing
     when nothing was paid, partial otherwise.

ORDERING:
  Ties on date are broken by record id ascending, for both invoices and
  credits. Allocation therefore depends only on record content, never on
  the order records happened to arrive in.

IMMUTABILITY:
  The pool is a value. Each draw returns a NEW pool state; caller data
  (invoices, credit payments) is never mutated. Clamping at every
  subtraction keeps balances in [0, total] even under decimal edge
  inputs - over-allocation is impossible by construction (errors.go).

SEE ALSO:
  - classify.go: Produces the credit population
  - statement.go: The independent chronological view over the same facts
*/
package reconcile

import (
	"sort"

	"github.com/shopspring/decimal"
)

// =============================================================================
// CREDIT POOL - Immutable allocation state
// =============================================================================

type creditState struct {
	payment   Payment
	remaining decimal.Decimal
}

// creditPool holds the remaining capacity of each account credit.
// Draws return a new pool; the old value stays intact.
type creditPool struct {
	credits []creditState
}

func newCreditPool(credits []Payment) creditPool {
	states := make([]creditState, 0, len(credits))
	for _, p := range credits {
		// Same gate as Invoice.DirectPaid: only confirmed money counts.
		if p.Status != PaymentConfirmed {
			continue
		}
		states = append(states, creditState{payment: p, remaining: p.Contribution()})
	}
	sort.SliceStable(states, func(i, j int) bool {
		a, b := states[i].payment, states[j].payment
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		return a.ID < b.ID
	})
	return creditPool{credits: states}
}

// draw applies credit against one invoice's outstanding demand and
// returns the new pool state plus the allocation traces. The walk stops
// as soon as demand reaches zero.
func (cp creditPool) draw(target InvoiceID, demand decimal.Decimal) (creditPool, []Allocation) {
	if !demand.IsPositive() {
		return cp, nil
	}

	next := creditPool{credits: append([]creditState(nil), cp.credits...)}
	var allocs []Allocation

	for i := range next.credits {
		if !demand.IsPositive() {
			break
		}
		if !next.credits[i].remaining.IsPositive() {
			continue
		}
		applied := decimal.Min(next.credits[i].remaining, demand)
		next.credits[i].remaining = next.credits[i].remaining.Sub(applied)
		demand = demand.Sub(applied)
		allocs = append(allocs, Allocation{
			PaymentID: next.credits[i].payment.ID,
			InvoiceID: target,
			Amount:    applied,
		})
	}
	return next, allocs
}

// =============================================================================
// ALLOCATOR
// =============================================================================

// AllocatePayments settles a client's invoices against its pool of
// account credits. Pending and rejected credits never enter the pool.
// Inputs are not mutated; results come back in chronological invoice
// order.
func AllocatePayments(invoices []Invoice, credits []Payment) []InvoiceSettlement {
	ordered := append([]Invoice(nil), invoices...)
	sort.SliceStable(ordered, func(i, j int) bool {
		if !ordered[i].Date.Equal(ordered[j].Date) {
			return ordered[i].Date.Before(ordered[j].Date)
		}
		return ordered[i].ID < ordered[j].ID
	})

	pool := newCreditPool(credits)
	settlements := make([]InvoiceSettlement, 0, len(ordered))

	for _, inv := range ordered {
		remaining := clampNonNegative(inv.Total.Sub(inv.DirectPaid()))

		var allocs []Allocation
		// Non-positive totals are already settled; they draw nothing.
		if inv.Total.IsPositive() && remaining.IsPositive() {
			pool, allocs = pool.draw(inv.ID, remaining)
			for _, a := range allocs {
				remaining = clampNonNegative(remaining.Sub(a.Amount))
			}
		}

		paid := inv.Total.Sub(remaining)
		settlements = append(settlements, InvoiceSettlement{
			InvoiceID:   inv.ID,
			Total:       inv.Total,
			Paid:        paid,
			Balance:     remaining,
			Status:      settlementStatus(paid, remaining),
			Allocations: allocs,
		})
	}
	return settlements
}

func settlementStatus(paid, balance decimal.Decimal) SettlementStatus {
	switch {
	case balance.IsZero():
		return StatusSettled
	case !paid.IsPositive():
		return StatusOwing
	default:
		return StatusPartial
	}
}

func clampNonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// AllocatedByPayment folds settlement traces into the total drawn from
// each credit. Used by the data-quality checks and by callers that show
// leftover credit.
func AllocatedByPayment(settlements []InvoiceSettlement) map[PaymentID]decimal.Decimal {
	totals := make(map[PaymentID]decimal.Decimal)
	for _, s := range settlements {
		for _, a := range s.Allocations {
			totals[a.PaymentID] = totals[a.PaymentID].Add(a.Amount)
		}
	}
	return totals
}

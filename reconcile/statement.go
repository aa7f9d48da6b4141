/*
statement.go - Chronological account statement with running balance

PURPOSE:
  Merges invoice events (debits) and payment events (credits) into one
  time-ordered sequence and folds a running balance over it. This is the
  "cuenta corriente" view: what happened, in order, and where the
  account stood after each event.

GUARANTEE:
  The final running balance equals
    sum(invoice totals) - sum(payment contributions)
  for the entries in the statement, which matches the ClientSummary
  balance for the same input set. Both views derive from the same facts
  and must agree. An immediate-condition invoice therefore carries a
  matching settlement credit dated with the invoice, mirroring the
  self-settlement the summary applies; no stored payment record backs
  that entry.

ORDERING:
  Entries sort by date ascending; entries sharing a date order by source
  record id ascending. Same deterministic key as the allocator, so the
  statement never depends on input order.

SEE ALSO:
  - summary.go: The aggregate view this must agree with
*/
package reconcile

import (
	"sort"

	"github.com/shopspring/decimal"
)

// BuildStatement merges invoices (debit = total) and payments
// (credit = contribution) into one chronological sequence and computes
// the running balance at each entry. Immediate-condition invoices emit
// a settlement credit right after their debit, keeping the final
// balance in step with SummarizeClients. Inputs are not mutated.
func BuildStatement(invoices []Invoice, payments []Payment) []StatementEntry {
	entries := make([]StatementEntry, 0, len(invoices)+len(payments))

	for _, inv := range invoices {
		entries = append(entries, StatementEntry{
			Date:     inv.Date,
			Kind:     EntryDebit,
			SourceID: string(inv.ID),
			Debit:    inv.Total,
			Credit:   decimal.Zero,
		})
		if inv.Condition == ConditionImmediate {
			// Shares the debit's sort key; the stable sort keeps it
			// immediately after.
			entries = append(entries, StatementEntry{
				Date:     inv.Date,
				Kind:     EntryCredit,
				SourceID: string(inv.ID),
				Debit:    decimal.Zero,
				Credit:   inv.Total,
			})
		}
	}
	for _, p := range payments {
		entries = append(entries, StatementEntry{
			Date:     p.Date,
			Kind:     EntryCredit,
			SourceID: string(p.ID),
			Debit:    decimal.Zero,
			Credit:   p.Contribution(),
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].Date.Equal(entries[j].Date) {
			return entries[i].Date.Before(entries[j].Date)
		}
		return entries[i].SourceID < entries[j].SourceID
	})

	balance := decimal.Zero
	for i := range entries {
		balance = balance.Add(entries[i].Debit).Sub(entries[i].Credit)
		entries[i].Balance = balance
	}
	return entries
}

// FinalBalance returns the running balance after the last entry, zero
// for an empty statement.
func FinalBalance(entries []StatementEntry) decimal.Decimal {
	if len(entries) == 0 {
		return decimal.Zero
	}
	return entries[len(entries)-1].Balance
}

/*
summary.go - Per-client aggregation

PURPOSE:
  Groups invoices and payments by client identity and produces the
  aggregate position: total billed, total paid, balance. This is the
  top-level receivables view ("who owes what").

BUSINESS RULE:
  An immediate-condition ("contado") invoice is self-settled at
  creation: it adds to paid as well as billed, independent of any
  payment record. This is deliberate - the counter charges cash up
  front and no payment document is ever registered for it.

FILTERING:
  The optional date range applies to INVOICE dates only. Payments count
  toward the referenced client regardless of date, so a statement cut
  mid-period still shows money received against older invoices.
  Clients appearing only in the payment stream are represented with
  zero billed.

SEE ALSO:
  - statement.go: The chronological view this must agree with
*/
package reconcile

import (
	"sort"
	"time"
)

// DateRange is a closed interval over invoice dates. A zero From or To
// leaves that side unbounded.
type DateRange struct {
	From time.Time
	To   time.Time
}

// Contains reports whether t falls inside the range.
func (r DateRange) Contains(t time.Time) bool {
	if !r.From.IsZero() && t.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && t.After(r.To) {
		return false
	}
	return true
}

// SummarizeClients groups invoices and payments by client and computes
// billed/paid/balance per client. Payments are expected to be
// confirmed-filtered already (classifier output). Results come back
// ordered by client id so output is stable across runs.
func SummarizeClients(invoices []Invoice, payments []Payment, within *DateRange) []ClientSummary {
	byClient := make(map[ClientID]*ClientSummary)

	summary := func(id ClientID) *ClientSummary {
		s, ok := byClient[id]
		if !ok {
			s = &ClientSummary{ClientID: id}
			byClient[id] = s
		}
		return s
	}

	for _, inv := range invoices {
		if inv.ClientID == "" {
			continue
		}
		if within != nil && !within.Contains(inv.Date) {
			continue
		}
		s := summary(inv.ClientID)
		s.TotalBilled = s.TotalBilled.Add(inv.Total)
		if inv.Condition == ConditionImmediate {
			// Self-settled at creation, no payment record expected.
			s.TotalPaid = s.TotalPaid.Add(inv.Total)
		}
		s.Invoices = append(s.Invoices, inv)
	}

	for _, p := range payments {
		if p.ClientID == "" {
			continue
		}
		s := summary(p.ClientID)
		s.TotalPaid = s.TotalPaid.Add(p.Contribution())
		s.Payments = append(s.Payments, p)
	}

	out := make([]ClientSummary, 0, len(byClient))
	for _, s := range byClient {
		s.Balance = s.TotalBilled.Sub(s.TotalPaid)
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ClientID < out[j].ClientID })
	return out
}

/*
classify.go - Payment classification

PURPOSE:
  Splits a raw payment list into the two populations the rest of the
  engine works with:

  Direct:  bound to one specific invoice. Counts toward that invoice's
           directPaid and is never allocated elsewhere.
  Credits: bound only to a client ("account credit"). The allocator
           spreads these across the client's outstanding invoices.

  Unconfirmed payments are excluded from both populations entirely.

ORPHANS:
  A payment with neither a client nor an invoice reference cannot be
  reconciled against anything. The source system dropped these silently;
  here they surface as WarnOrphanPayment so the condition is visible in
  the data-quality report instead of disappearing.

SEE ALSO:
  - allocate.go: Consumes the Credits population
  - summary.go: Consumes the confirmed set per client
*/
package reconcile

import "fmt"

// Classification is the disjoint split of a payment list.
type Classification struct {
	Direct   []Payment
	Credits  []Payment
	Warnings []Warning
}

// All returns the confirmed payments of both populations, direct first.
// Order within each population preserves input order.
func (c Classification) All() []Payment {
	out := make([]Payment, 0, len(c.Direct)+len(c.Credits))
	out = append(out, c.Direct...)
	out = append(out, c.Credits...)
	return out
}

// Confirmed is the default confirmation predicate.
func Confirmed(p Payment) bool { return p.Status == PaymentConfirmed }

// Classify splits payments into direct and account-credit populations,
// excluding payments the predicate rejects. Orphans (no client, no
// invoice) are excluded as well and reported as warnings.
func Classify(payments []Payment, confirmed func(Payment) bool) Classification {
	if confirmed == nil {
		confirmed = Confirmed
	}

	var cls Classification
	for _, p := range payments {
		if !confirmed(p) {
			continue
		}
		switch {
		case p.IsDirect():
			cls.Direct = append(cls.Direct, p)
		case p.IsCredit():
			cls.Credits = append(cls.Credits, p)
		default:
			cls.Warnings = append(cls.Warnings, Warning{
				Code:     WarnOrphanPayment,
				SourceID: string(p.ID),
				Message:  fmt.Sprintf("payment %s has no client or invoice reference and cannot be reconciled", p.ID),
			})
		}
	}
	return cls
}

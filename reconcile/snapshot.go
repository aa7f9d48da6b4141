/*
snapshot.go - Snapshot loading and the engine facade

PURPOSE:
  The engine itself never performs I/O. An external Source provides the
  two raw read operations (invoices, payments); LoadSnapshot runs both
  concurrently and hands the engine a complete, immutable snapshot only
  after BOTH have resolved. Every derivation starts from a fresh
  snapshot - nothing is cached or memoized across snapshots.

TRANSIENCE:
  Allocation is order-dependent (credits are consumed greedily in
  invoice-date order), so re-running on a different snapshot is not
  guaranteed to preserve previous allocation traces. Callers must
  re-derive, never diff.

SEE ALSO:
  - store/sqlite: SQLite-backed Source
  - reconcile/store: in-memory Source for tests and demos
*/
package reconcile

import (
	"context"
	"fmt"
	"time"
)

// =============================================================================
// SOURCE - The external data-access collaborator
// =============================================================================

// Source exposes the two raw read operations the engine consumes.
// Implementations own persistence and transport entirely; failures
// propagate unchanged to the caller.
type Source interface {
	Invoices(ctx context.Context) ([]Invoice, error)
	Payments(ctx context.Context) ([]Payment, error)
}

// Snapshot is one consistent read of both record streams.
type Snapshot struct {
	Invoices  []Invoice
	Payments  []Payment
	FetchedAt time.Time
}

// LoadSnapshot fetches invoices and payments concurrently and returns
// once both reads have resolved. If either fails, the first error wins
// and no snapshot is produced.
func LoadSnapshot(ctx context.Context, src Source) (Snapshot, error) {
	var (
		invoices []Invoice
		payments []Payment
		invErr   error
		payErr   error
	)

	done := make(chan struct{})
	go func() {
		defer close(done)
		payments, payErr = src.Payments(ctx)
	}()
	invoices, invErr = src.Invoices(ctx)
	<-done

	if invErr != nil {
		return Snapshot{}, fmt.Errorf("fetch invoices: %w", invErr)
	}
	if payErr != nil {
		return Snapshot{}, fmt.Errorf("fetch payments: %w", payErr)
	}

	return Snapshot{Invoices: invoices, Payments: payments, FetchedAt: time.Now().UTC()}, nil
}

// =============================================================================
// ENGINE - Fetch-then-derive facade
// =============================================================================

// Engine binds a Source to the pure entry points for callers that want
// one-call reconciliation. All results are derived fresh per call.
type Engine struct {
	Source Source
}

// ClientSummaries loads a snapshot and returns the per-client aggregate
// view plus the data-quality warnings found along the way.
func (e *Engine) ClientSummaries(ctx context.Context, within *DateRange) ([]ClientSummary, []Warning, error) {
	snap, err := LoadSnapshot(ctx, e.Source)
	if err != nil {
		return nil, nil, err
	}

	cls := Classify(snap.Payments, Confirmed)
	warnings := append(cls.Warnings, ValidateInvoices(snap.Invoices)...)
	return SummarizeClients(snap.Invoices, cls.All(), within), warnings, nil
}

// ClientSettlements loads a snapshot and runs the allocator for one
// client. Direct payments from the stream that are not already attached
// to their invoice are merged in first, deduplicated by payment id.
func (e *Engine) ClientSettlements(ctx context.Context, clientID ClientID) ([]InvoiceSettlement, error) {
	snap, err := LoadSnapshot(ctx, e.Source)
	if err != nil {
		return nil, err
	}

	cls := Classify(snap.Payments, Confirmed)
	invoices := attachDirectPayments(clientInvoices(snap.Invoices, clientID), cls.Direct)

	var credits []Payment
	for _, p := range cls.Credits {
		if p.ClientID == clientID {
			credits = append(credits, p)
		}
	}
	return AllocatePayments(invoices, credits), nil
}

// ClientStatement loads a snapshot and builds the chronological ledger
// for one client: its invoices as debits, its confirmed client-
// referenced payments as credits. Uses the same per-client record set
// as ClientSummaries so the two views always agree on the balance.
func (e *Engine) ClientStatement(ctx context.Context, clientID ClientID) ([]StatementEntry, error) {
	snap, err := LoadSnapshot(ctx, e.Source)
	if err != nil {
		return nil, err
	}

	cls := Classify(snap.Payments, Confirmed)
	var payments []Payment
	for _, p := range cls.All() {
		if p.ClientID == clientID {
			payments = append(payments, p)
		}
	}
	return BuildStatement(clientInvoices(snap.Invoices, clientID), payments), nil
}

// Warnings loads a snapshot and returns the full data-quality report:
// orphan payments plus invoice/line-item inconsistencies.
func (e *Engine) Warnings(ctx context.Context) ([]Warning, error) {
	snap, err := LoadSnapshot(ctx, e.Source)
	if err != nil {
		return nil, err
	}

	cls := Classify(snap.Payments, Confirmed)
	return append(cls.Warnings, ValidateInvoices(snap.Invoices)...), nil
}

func clientInvoices(invoices []Invoice, clientID ClientID) []Invoice {
	var out []Invoice
	for _, inv := range invoices {
		if inv.ClientID == clientID {
			out = append(out, inv)
		}
	}
	return out
}

// attachDirectPayments merges stream-level direct payments into their
// invoices so DirectPaid sees them, skipping ids already attached at
// the source. Invoices are copied; inputs stay unmodified.
func attachDirectPayments(invoices []Invoice, direct []Payment) []Invoice {
	byInvoice := make(map[InvoiceID][]Payment)
	for _, p := range direct {
		byInvoice[p.InvoiceID] = append(byInvoice[p.InvoiceID], p)
	}

	out := make([]Invoice, len(invoices))
	for i, inv := range invoices {
		merged := inv
		merged.Payments = append([]Payment(nil), inv.Payments...)
		seen := make(map[PaymentID]bool, len(merged.Payments))
		for _, p := range merged.Payments {
			seen[p.ID] = true
		}
		for _, p := range byInvoice[inv.ID] {
			if !seen[p.ID] {
				merged.Payments = append(merged.Payments, p)
			}
		}
		out[i] = merged
	}
	return out
}

package reconcile_test

import (
	"testing"
	"time"

	"github.com/lasombra/receivables/reconcile"
)

// =============================================================================
// CLIENT SUMMARY TESTS
// =============================================================================

func TestSummarize_BilledPaidBalancePerClient(t *testing.T) {
	// GIVEN: Two clients with invoices and payments
	// WHEN: Summarizing without a date range
	// THEN: Each client gets its own billed/paid/balance, ordered by id

	invoices := []reconcile.Invoice{
		invoice("inv-1", "cl-a", day(2026, time.March, 1), 100),
		invoice("inv-2", "cl-b", day(2026, time.March, 2), 200),
		invoice("inv-3", "cl-a", day(2026, time.March, 10), 50),
	}
	payments := []reconcile.Payment{
		credit("pay-1", "cl-a", day(2026, time.March, 20), 120),
	}

	summaries := reconcile.SummarizeClients(invoices, payments, nil)

	if len(summaries) != 2 {
		t.Fatalf("expected 2 summaries, got %d", len(summaries))
	}
	a, b := summaries[0], summaries[1]
	if a.ClientID != "cl-a" || b.ClientID != "cl-b" {
		t.Fatalf("expected order cl-a, cl-b; got %s, %s", a.ClientID, b.ClientID)
	}
	equal(t, 150, a.TotalBilled, "cl-a billed")
	equal(t, 120, a.TotalPaid, "cl-a paid")
	equal(t, 30, a.Balance, "cl-a balance")
	equal(t, 200, b.TotalBilled, "cl-b billed")
	equal(t, 0, b.TotalPaid, "cl-b paid")
}

func TestSummarize_ImmediateInvoice_SelfSettles(t *testing.T) {
	// GIVEN: A cash-sale invoice with no payment record at all
	// WHEN: Summarizing
	// THEN: It counts as both billed and paid

	inv := invoice("inv-1", "cl-a", day(2026, time.May, 4), 12000)
	inv.Condition = reconcile.ConditionImmediate

	summaries := reconcile.SummarizeClients([]reconcile.Invoice{inv}, nil, nil)

	equal(t, 12000, summaries[0].TotalBilled, "billed")
	equal(t, 12000, summaries[0].TotalPaid, "paid")
	equal(t, 0, summaries[0].Balance, "balance")
}

func TestSummarize_PaymentOnlyClient_ZeroBilled(t *testing.T) {
	// GIVEN: A client appearing only in the payment stream
	// WHEN: Summarizing
	// THEN: It is present with zero billed and a negative balance

	payments := []reconcile.Payment{
		credit("pay-1", "cl-ghost", day(2026, time.March, 1), 500),
	}

	summaries := reconcile.SummarizeClients(nil, payments, nil)

	if len(summaries) != 1 {
		t.Fatalf("expected 1 summary, got %d", len(summaries))
	}
	equal(t, 0, summaries[0].TotalBilled, "billed")
	equal(t, 500, summaries[0].TotalPaid, "paid")
	equal(t, -500, summaries[0].Balance, "balance")
}

func TestSummarize_DateRange_FiltersInvoicesOnly(t *testing.T) {
	// GIVEN: Invoices in and out of March, and a payment in April
	// WHEN: Summarizing within March
	// THEN: Only March invoices count toward billed, but the April payment
	//       still counts toward paid

	invoices := []reconcile.Invoice{
		invoice("inv-feb", "cl-a", day(2026, time.February, 20), 100),
		invoice("inv-mar", "cl-a", day(2026, time.March, 10), 200),
	}
	payments := []reconcile.Payment{
		credit("pay-apr", "cl-a", day(2026, time.April, 5), 50),
	}
	within := &reconcile.DateRange{
		From: day(2026, time.March, 1),
		To:   day(2026, time.March, 31),
	}

	summaries := reconcile.SummarizeClients(invoices, payments, within)

	equal(t, 200, summaries[0].TotalBilled, "billed")
	equal(t, 50, summaries[0].TotalPaid, "paid")
}

func TestSummarize_InvoiceWithoutClient_Skipped(t *testing.T) {
	// GIVEN: An invoice missing its client reference
	// WHEN: Summarizing
	// THEN: It belongs to no one and appears nowhere

	invoices := []reconcile.Invoice{
		invoice("inv-lost", "", day(2026, time.March, 1), 100),
	}

	if summaries := reconcile.SummarizeClients(invoices, nil, nil); len(summaries) != 0 {
		t.Errorf("expected no summaries, got %+v", summaries)
	}
}

func TestDateRange_OpenEnds(t *testing.T) {
	// GIVEN: Ranges with one unbounded side
	// WHEN: Checking containment
	// THEN: The zero side accepts everything

	fromOnly := reconcile.DateRange{From: day(2026, time.March, 1)}
	if fromOnly.Contains(day(2026, time.February, 1)) {
		t.Errorf("expected February outside from-only range")
	}
	if !fromOnly.Contains(day(2030, time.January, 1)) {
		t.Errorf("expected far future inside from-only range")
	}

	toOnly := reconcile.DateRange{To: day(2026, time.March, 31)}
	if !toOnly.Contains(day(2020, time.January, 1)) {
		t.Errorf("expected far past inside to-only range")
	}
	if toOnly.Contains(day(2026, time.April, 1)) {
		t.Errorf("expected April outside to-only range")
	}
}

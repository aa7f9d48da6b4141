package reconcile_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lasombra/receivables/reconcile"
)

// =============================================================================
// TEST HELPERS
// =============================================================================
// Shared by the other reconcile tests in this package.

func amt(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v)
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func invoice(id, client string, date time.Time, total float64) reconcile.Invoice {
	return reconcile.Invoice{
		ID:        reconcile.InvoiceID(id),
		ClientID:  reconcile.ClientID(client),
		Date:      date,
		Total:     amt(total),
		Condition: reconcile.ConditionAccount,
	}
}

func credit(id, client string, date time.Time, amount float64) reconcile.Payment {
	return reconcile.Payment{
		ID:       reconcile.PaymentID(id),
		ClientID: reconcile.ClientID(client),
		Date:     date,
		Amount:   amt(amount),
		Method:   reconcile.MethodTransfer,
		Status:   reconcile.PaymentConfirmed,
	}
}

func directPayment(id, invoiceID string, date time.Time, amount float64) reconcile.Payment {
	return reconcile.Payment{
		ID:        reconcile.PaymentID(id),
		InvoiceID: reconcile.InvoiceID(invoiceID),
		Date:      date,
		Amount:    amt(amount),
		Method:    reconcile.MethodCash,
		Status:    reconcile.PaymentConfirmed,
	}
}

func equal(t *testing.T, want float64, got decimal.Decimal, label string) {
	t.Helper()
	if !got.Equal(amt(want)) {
		t.Errorf("%s: expected %v, got %v", label, want, got)
	}
}

// =============================================================================
// ALLOCATION SCENARIOS
// =============================================================================

func TestAllocate_CreditSpansInvoices_OldestFirst(t *testing.T) {
	// GIVEN: Two open invoices (100 then 50) and one account credit of 120
	// WHEN: Allocating
	// THEN: The oldest invoice settles fully, the newer gets the 20 left over

	invoices := []reconcile.Invoice{
		invoice("inv-2", "cl-1", day(2026, time.March, 15), 50),
		invoice("inv-1", "cl-1", day(2026, time.March, 1), 100),
	}
	credits := []reconcile.Payment{
		credit("pay-1", "cl-1", day(2026, time.April, 1), 120),
	}

	settlements := reconcile.AllocatePayments(invoices, credits)

	if len(settlements) != 2 {
		t.Fatalf("expected 2 settlements, got %d", len(settlements))
	}
	if settlements[0].InvoiceID != "inv-1" {
		t.Fatalf("expected oldest invoice first, got %s", settlements[0].InvoiceID)
	}
	equal(t, 100, settlements[0].Paid, "inv-1 paid")
	if settlements[0].Status != reconcile.StatusSettled {
		t.Errorf("expected inv-1 settled, got %s", settlements[0].Status)
	}
	equal(t, 20, settlements[1].Paid, "inv-2 paid")
	equal(t, 30, settlements[1].Balance, "inv-2 balance")
	if settlements[1].Status != reconcile.StatusPartial {
		t.Errorf("expected inv-2 partial, got %s", settlements[1].Status)
	}
}

func TestAllocate_DirectPaymentReducesDemandBeforeCredits(t *testing.T) {
	// GIVEN: An invoice of 100 with a direct payment of 40 attached, and a credit of 100
	// WHEN: Allocating
	// THEN: Only 60 is drawn from the credit; 40 stays in the pool for nothing

	inv := invoice("inv-1", "cl-1", day(2026, time.March, 1), 100)
	inv.Payments = []reconcile.Payment{
		directPayment("pay-d", "inv-1", day(2026, time.March, 1), 40),
	}
	credits := []reconcile.Payment{
		credit("pay-c", "cl-1", day(2026, time.March, 5), 100),
	}

	settlements := reconcile.AllocatePayments([]reconcile.Invoice{inv}, credits)

	equal(t, 100, settlements[0].Paid, "paid")
	equal(t, 0, settlements[0].Balance, "balance")
	if settlements[0].Status != reconcile.StatusSettled {
		t.Errorf("expected settled, got %s", settlements[0].Status)
	}

	drawn := reconcile.AllocatedByPayment(settlements)
	equal(t, 60, drawn["pay-c"], "credit drawn")
}

func TestAllocate_InsufficientCredit_LeavesNewerInvoicesOwing(t *testing.T) {
	// GIVEN: Three invoices of 100 each and a single credit of 100
	// WHEN: Allocating
	// THEN: Oldest settles, the rest get nothing

	invoices := []reconcile.Invoice{
		invoice("inv-1", "cl-1", day(2026, time.January, 10), 100),
		invoice("inv-2", "cl-1", day(2026, time.February, 10), 100),
		invoice("inv-3", "cl-1", day(2026, time.March, 10), 100),
	}
	credits := []reconcile.Payment{
		credit("pay-1", "cl-1", day(2026, time.March, 20), 100),
	}

	settlements := reconcile.AllocatePayments(invoices, credits)

	if settlements[0].Status != reconcile.StatusSettled {
		t.Errorf("expected inv-1 settled, got %s", settlements[0].Status)
	}
	for _, s := range settlements[1:] {
		if s.Status != reconcile.StatusOwing {
			t.Errorf("expected %s owing, got %s", s.InvoiceID, s.Status)
		}
		equal(t, 0, s.Paid, string(s.InvoiceID)+" paid")
	}
}

func TestAllocate_MultipleCredits_ConsumedInDateOrder(t *testing.T) {
	// GIVEN: One invoice of 150 and two credits, 100 (Feb) and 100 (Jan)
	// WHEN: Allocating
	// THEN: The January credit drains first, the February one covers the rest

	invoices := []reconcile.Invoice{
		invoice("inv-1", "cl-1", day(2026, time.March, 1), 150),
	}
	credits := []reconcile.Payment{
		credit("pay-feb", "cl-1", day(2026, time.February, 1), 100),
		credit("pay-jan", "cl-1", day(2026, time.January, 1), 100),
	}

	settlements := reconcile.AllocatePayments(invoices, credits)

	allocs := settlements[0].Allocations
	if len(allocs) != 2 {
		t.Fatalf("expected 2 allocations, got %d", len(allocs))
	}
	if allocs[0].PaymentID != "pay-jan" {
		t.Errorf("expected pay-jan first, got %s", allocs[0].PaymentID)
	}
	equal(t, 100, allocs[0].Amount, "pay-jan applied")
	equal(t, 50, allocs[1].Amount, "pay-feb applied")
}

func TestAllocate_SameDateInvoices_TieBrokenByID(t *testing.T) {
	// GIVEN: Two invoices on the same day and a credit covering only one
	// WHEN: Allocating
	// THEN: The lower record id wins the credit, regardless of input order

	invoices := []reconcile.Invoice{
		invoice("inv-b", "cl-1", day(2026, time.March, 1), 100),
		invoice("inv-a", "cl-1", day(2026, time.March, 1), 100),
	}
	credits := []reconcile.Payment{
		credit("pay-1", "cl-1", day(2026, time.March, 2), 100),
	}

	settlements := reconcile.AllocatePayments(invoices, credits)

	if settlements[0].InvoiceID != "inv-a" {
		t.Fatalf("expected inv-a first, got %s", settlements[0].InvoiceID)
	}
	if settlements[0].Status != reconcile.StatusSettled {
		t.Errorf("expected inv-a settled, got %s", settlements[0].Status)
	}
	if settlements[1].Status != reconcile.StatusOwing {
		t.Errorf("expected inv-b owing, got %s", settlements[1].Status)
	}
}

// =============================================================================
// EDGE CASES
// =============================================================================

func TestAllocate_ZeroTotalInvoice_SettledWithoutDrawing(t *testing.T) {
	// GIVEN: A zero-total invoice (malformed amount normalized to zero) and a credit
	// WHEN: Allocating
	// THEN: The invoice is settled and the credit remains untouched

	invoices := []reconcile.Invoice{
		invoice("inv-zero", "cl-1", day(2026, time.March, 1), 0),
		invoice("inv-real", "cl-1", day(2026, time.March, 2), 80),
	}
	credits := []reconcile.Payment{
		credit("pay-1", "cl-1", day(2026, time.March, 3), 80),
	}

	settlements := reconcile.AllocatePayments(invoices, credits)

	if settlements[0].Status != reconcile.StatusSettled {
		t.Errorf("expected zero invoice settled, got %s", settlements[0].Status)
	}
	if len(settlements[0].Allocations) != 0 {
		t.Errorf("expected no allocations on zero invoice")
	}
	if settlements[1].Status != reconcile.StatusSettled {
		t.Errorf("expected real invoice settled, got %s", settlements[1].Status)
	}
}

func TestAllocate_OverpaidInvoice_BalanceClampsToZero(t *testing.T) {
	// GIVEN: An invoice of 100 with 120 paid directly against it
	// WHEN: Allocating
	// THEN: Balance is zero, never negative, and no credit is drawn

	inv := invoice("inv-1", "cl-1", day(2026, time.March, 1), 100)
	inv.Payments = []reconcile.Payment{
		directPayment("pay-d", "inv-1", day(2026, time.March, 1), 120),
	}
	credits := []reconcile.Payment{
		credit("pay-c", "cl-1", day(2026, time.March, 5), 50),
	}

	settlements := reconcile.AllocatePayments([]reconcile.Invoice{inv}, credits)

	equal(t, 0, settlements[0].Balance, "balance")
	if settlements[0].Status != reconcile.StatusSettled {
		t.Errorf("expected settled, got %s", settlements[0].Status)
	}
	if len(settlements[0].Allocations) != 0 {
		t.Errorf("expected no credit drawn for an overpaid invoice")
	}
}

func TestAllocate_PendingAndRejectedCredits_ContributeNothing(t *testing.T) {
	// GIVEN: An open invoice and credits that are pending or rejected
	// WHEN: Allocating (credits enter via their contribution)
	// THEN: Nothing applies

	pending := credit("pay-p", "cl-1", day(2026, time.March, 1), 100)
	pending.Status = reconcile.PaymentPending
	rejected := credit("pay-r", "cl-1", day(2026, time.March, 2), 100)
	rejected.Status = reconcile.PaymentRejected

	invoices := []reconcile.Invoice{
		invoice("inv-1", "cl-1", day(2026, time.March, 1), 100),
	}

	settlements := reconcile.AllocatePayments(invoices, []reconcile.Payment{pending, rejected})

	if settlements[0].Status != reconcile.StatusOwing {
		t.Errorf("expected owing, got %s", settlements[0].Status)
	}
	equal(t, 0, settlements[0].Paid, "paid")
	if len(settlements[0].Allocations) != 0 {
		t.Errorf("expected no allocation traces, got %+v", settlements[0].Allocations)
	}
}

// =============================================================================
// PROPERTIES
// =============================================================================

func TestAllocate_Conservation_NoCreditDrawnBeyondCapacity(t *testing.T) {
	// GIVEN: A mixed book of invoices and credits
	// WHEN: Allocating
	// THEN: Every credit's drawn total stays within its contribution and
	//       every balance stays within [0, total]

	invoices := []reconcile.Invoice{
		invoice("inv-1", "cl-1", day(2026, time.January, 5), 75.50),
		invoice("inv-2", "cl-1", day(2026, time.January, 5), 20.25),
		invoice("inv-3", "cl-1", day(2026, time.February, 1), 130),
	}
	credits := []reconcile.Payment{
		credit("pay-1", "cl-1", day(2026, time.January, 10), 60.10),
		credit("pay-2", "cl-1", day(2026, time.February, 15), 90),
	}

	settlements := reconcile.AllocatePayments(invoices, credits)

	if err := reconcile.CheckConservation(settlements, credits); err != nil {
		t.Fatalf("conservation violated: %v", err)
	}
}

func TestAllocate_Deterministic_InputOrderIrrelevant(t *testing.T) {
	// GIVEN: The same records presented in two different orders
	// WHEN: Allocating both
	// THEN: The settlements are identical

	invoices := []reconcile.Invoice{
		invoice("inv-1", "cl-1", day(2026, time.January, 5), 100),
		invoice("inv-2", "cl-1", day(2026, time.January, 5), 100),
		invoice("inv-3", "cl-1", day(2026, time.February, 1), 100),
	}
	credits := []reconcile.Payment{
		credit("pay-1", "cl-1", day(2026, time.January, 10), 150),
		credit("pay-2", "cl-1", day(2026, time.January, 10), 30),
	}

	reversedInv := []reconcile.Invoice{invoices[2], invoices[1], invoices[0]}
	reversedCred := []reconcile.Payment{credits[1], credits[0]}

	a := reconcile.AllocatePayments(invoices, credits)
	b := reconcile.AllocatePayments(reversedInv, reversedCred)

	if len(a) != len(b) {
		t.Fatalf("settlement counts differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i].InvoiceID != b[i].InvoiceID || !a[i].Paid.Equal(b[i].Paid) || a[i].Status != b[i].Status {
			t.Errorf("settlement %d differs: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestAllocate_Idempotent_SameInputSameOutput(t *testing.T) {
	// GIVEN: A fixed input set
	// WHEN: Allocating twice
	// THEN: Results match exactly and inputs are unchanged

	invoices := []reconcile.Invoice{
		invoice("inv-1", "cl-1", day(2026, time.March, 1), 100),
	}
	credits := []reconcile.Payment{
		credit("pay-1", "cl-1", day(2026, time.March, 5), 60),
	}
	originalAmount := credits[0].Amount

	first := reconcile.AllocatePayments(invoices, credits)
	second := reconcile.AllocatePayments(invoices, credits)

	if !first[0].Paid.Equal(second[0].Paid) || first[0].Status != second[0].Status {
		t.Errorf("repeated allocation diverged: %+v vs %+v", first[0], second[0])
	}
	if !credits[0].Amount.Equal(originalAmount) {
		t.Errorf("input credit mutated: %v -> %v", originalAmount, credits[0].Amount)
	}
}

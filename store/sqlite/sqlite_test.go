package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lasombra/receivables/expenses"
	"github.com/lasombra/receivables/reconcile"
	"github.com/lasombra/receivables/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func testInvoice(id, client string, date time.Time, total int64) reconcile.Invoice {
	return reconcile.Invoice{
		ID:        reconcile.InvoiceID(id),
		ClientID:  reconcile.ClientID(client),
		Date:      date,
		Total:     decimal.NewFromInt(total),
		Condition: reconcile.ConditionAccount,
	}
}

func testPayment(id string, date time.Time, amount int64) reconcile.Payment {
	return reconcile.Payment{
		ID:     reconcile.PaymentID(id),
		Date:   date,
		Amount: decimal.NewFromInt(amount),
		Method: reconcile.MethodCash,
		Status: reconcile.PaymentConfirmed,
	}
}

func mar(d int) time.Time {
	return time.Date(2026, time.March, d, 0, 0, 0, 0, time.UTC)
}

// =============================================================================
// ROUND TRIPS
// =============================================================================

func TestStore_InvoiceRoundTrip(t *testing.T) {
	// GIVEN: An invoice with line items and an attached payment
	// WHEN: Saving and reading back
	// THEN: Everything survives, amounts exact

	store := newTestStore(t)
	ctx := context.Background()

	inv := testInvoice("ord-1", "cl-1", mar(2), 48000)
	inv.Items = []reconcile.LineItem{
		{Description: "Cubierta 295/80", Quantity: decimal.NewFromInt(2), UnitPrice: decimal.NewFromInt(21000), Subtotal: decimal.NewFromInt(42000)},
		{Description: "Alineacion", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(6000), Subtotal: decimal.NewFromInt(6000)},
	}
	attached := testPayment("pg-1", mar(2), 20000)
	attached.InvoiceID = "ord-1"
	attached.ClientID = "cl-1"
	inv.Payments = []reconcile.Payment{attached}

	require.NoError(t, store.SaveInvoice(ctx, inv))

	got, err := store.Invoices(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)

	assert.Equal(t, inv.ID, got[0].ID)
	assert.Equal(t, inv.ClientID, got[0].ClientID)
	assert.True(t, got[0].Total.Equal(inv.Total), "total: %v", got[0].Total)
	assert.True(t, got[0].Date.Equal(inv.Date))
	require.Len(t, got[0].Items, 2)
	assert.Equal(t, "Cubierta 295/80", got[0].Items[0].Description)
	assert.True(t, got[0].Items[0].Subtotal.Equal(decimal.NewFromInt(42000)))
	require.Len(t, got[0].Payments, 1)
	assert.True(t, got[0].Payments[0].Amount.Equal(decimal.NewFromInt(20000)))
}

func TestStore_SaveInvoice_UpsertReplacesItems(t *testing.T) {
	// GIVEN: A saved invoice with two line items
	// WHEN: Saving the same id again with one item
	// THEN: The old items are gone, not accumulated

	store := newTestStore(t)
	ctx := context.Background()

	inv := testInvoice("ord-1", "cl-1", mar(2), 100)
	inv.Items = []reconcile.LineItem{
		{Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(50), Subtotal: decimal.NewFromInt(50)},
		{Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(50), Subtotal: decimal.NewFromInt(50)},
	}
	require.NoError(t, store.SaveInvoice(ctx, inv))

	inv.Items = inv.Items[:1]
	inv.Total = decimal.NewFromInt(50)
	require.NoError(t, store.SaveInvoice(ctx, inv))

	got, err := store.Invoices(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Len(t, got[0].Items, 1)
	assert.True(t, got[0].Total.Equal(decimal.NewFromInt(50)))
}

func TestStore_PaymentMetadataRoundTrip(t *testing.T) {
	// GIVEN: A check payment with bank metadata
	// WHEN: Saving and reading back
	// THEN: Metadata survives; plain payments come back with nil metadata

	store := newTestStore(t)
	ctx := context.Background()

	check := testPayment("pg-check", mar(10), 10000)
	check.ClientID = "cl-1"
	check.Method = reconcile.MethodCheck
	check.Metadata = &reconcile.PaymentMetadata{
		Bank:         "Banco Provincia",
		CheckNumber:  "00412233",
		ClearingDate: mar(25),
	}
	plain := testPayment("pg-plain", mar(11), 500)
	plain.ClientID = "cl-1"

	require.NoError(t, store.SavePayment(ctx, check))
	require.NoError(t, store.SavePayment(ctx, plain))

	got, err := store.Payments(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)

	require.NotNil(t, got[0].Metadata)
	assert.Equal(t, "Banco Provincia", got[0].Metadata.Bank)
	assert.Equal(t, "00412233", got[0].Metadata.CheckNumber)
	assert.True(t, got[0].Metadata.ClearingDate.Equal(mar(25)))
	assert.Nil(t, got[1].Metadata)
}

// =============================================================================
// REFERENCE BACKFILL
// =============================================================================

func TestStore_Payments_BackfillsClientFromInvoice(t *testing.T) {
	// GIVEN: A payment referencing only its invoice
	// WHEN: Reading payments
	// THEN: The client id is filled in from the invoice join

	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveInvoice(ctx, testInvoice("ord-1", "cl-7", mar(1), 100)))

	p := testPayment("pg-1", mar(2), 100)
	p.InvoiceID = "ord-1"
	require.NoError(t, store.SavePayment(ctx, p))

	got, err := store.Payments(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, reconcile.ClientID("cl-7"), got[0].ClientID)
}

func TestStore_PaymentsByClient_IncludesBackfilled(t *testing.T) {
	// GIVEN: One payment referencing the client directly, one via its invoice
	// WHEN: Querying by client
	// THEN: Both come back

	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveInvoice(ctx, testInvoice("ord-1", "cl-7", mar(1), 100)))

	viaInvoice := testPayment("pg-1", mar(2), 40)
	viaInvoice.InvoiceID = "ord-1"
	direct := testPayment("pg-2", mar(3), 60)
	direct.ClientID = "cl-7"
	other := testPayment("pg-3", mar(3), 99)
	other.ClientID = "cl-other"

	require.NoError(t, store.SavePayment(ctx, viaInvoice))
	require.NoError(t, store.SavePayment(ctx, direct))
	require.NoError(t, store.SavePayment(ctx, other))

	got, err := store.PaymentsByClient(ctx, "cl-7")
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

// =============================================================================
// ORDERING AND MISC
// =============================================================================

func TestStore_Invoices_OrderedByDateThenID(t *testing.T) {
	// GIVEN: Invoices saved out of order, two on the same date
	// WHEN: Reading all
	// THEN: Date ascending, id breaking ties

	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveInvoice(ctx, testInvoice("ord-b", "cl-1", mar(5), 10)))
	require.NoError(t, store.SaveInvoice(ctx, testInvoice("ord-c", "cl-1", mar(1), 10)))
	require.NoError(t, store.SaveInvoice(ctx, testInvoice("ord-a", "cl-1", mar(5), 10)))

	got, err := store.Invoices(ctx)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, reconcile.InvoiceID("ord-c"), got[0].ID)
	assert.Equal(t, reconcile.InvoiceID("ord-a"), got[1].ID)
	assert.Equal(t, reconcile.InvoiceID("ord-b"), got[2].ID)
}

func TestStore_ClientsAndExpenses(t *testing.T) {
	// GIVEN: Clients and expense entries
	// WHEN: Round-tripping
	// THEN: Lookup, listing, and expense ordering all work

	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveClient(ctx, reconcile.Client{ID: "cl-1", Name: "Transportes del Sur"}))
	require.NoError(t, store.SaveClient(ctx, reconcile.Client{ID: "cl-2", Name: "Agro Norte"}))

	c, err := store.GetClient(ctx, "cl-1")
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, "Transportes del Sur", c.Name)

	missing, err := store.GetClient(ctx, "cl-nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	clients, err := store.ListClients(ctx)
	require.NoError(t, err)
	require.Len(t, clients, 2)
	assert.Equal(t, "Agro Norte", clients[0].Name) // name order

	require.NoError(t, store.SaveExpense(ctx, expenses.Expense{
		ID: "e-1", Date: mar(5), Concept: "Alquiler", Amount: decimal.NewFromInt(80000),
	}))
	book, err := store.Expenses(ctx)
	require.NoError(t, err)
	require.Len(t, book, 1)
	assert.True(t, book[0].Amount.Equal(decimal.NewFromInt(80000)))
}

func TestStore_Reset(t *testing.T) {
	// GIVEN: A populated store
	// WHEN: Resetting
	// THEN: Every table is empty

	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveClient(ctx, reconcile.Client{ID: "cl-1", Name: "X"}))
	require.NoError(t, store.SaveInvoice(ctx, testInvoice("ord-1", "cl-1", mar(1), 100)))
	require.NoError(t, store.SavePayment(ctx, testPayment("pg-1", mar(2), 50)))

	require.NoError(t, store.Reset(ctx))

	invoices, err := store.Invoices(ctx)
	require.NoError(t, err)
	assert.Empty(t, invoices)
	payments, err := store.Payments(ctx)
	require.NoError(t, err)
	assert.Empty(t, payments)
	clients, err := store.ListClients(ctx)
	require.NoError(t, err)
	assert.Empty(t, clients)
}

// =============================================================================
// SOURCE CONTRACT
// =============================================================================

func TestStore_ServesAsEngineSource(t *testing.T) {
	// GIVEN: A store seeded with an invoice and an account credit
	// WHEN: Running the engine against it
	// THEN: The settlement picture is derived straight from SQLite

	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveInvoice(ctx, testInvoice("ord-1", "cl-1", mar(1), 100)))
	creditPay := testPayment("pg-1", mar(10), 60)
	creditPay.ClientID = "cl-1"
	require.NoError(t, store.SavePayment(ctx, creditPay))

	engine := &reconcile.Engine{Source: store}
	settlements, err := engine.ClientSettlements(ctx, "cl-1")
	require.NoError(t, err)
	require.Len(t, settlements, 1)
	assert.Equal(t, reconcile.StatusPartial, settlements[0].Status)
	assert.True(t, settlements[0].Paid.Equal(decimal.NewFromInt(60)))
	assert.True(t, settlements[0].Balance.Equal(decimal.NewFromInt(40)))
}

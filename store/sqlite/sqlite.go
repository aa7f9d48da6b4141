/*
Package sqlite provides a SQLite-backed reconcile.Source.

PURPOSE:
  Concrete implementation of the external data collaborator the engine
  reads from. Holds raw facts only - clients, work orders with their
  line items, payments, expenses. Derived values (paid, balance,
  status) are NEVER stored; the engine recomputes them from a fresh
  snapshot on every request.

KEY TABLES:
  clients:        Identity and display name
  invoices:       Work orders (total, date, payment condition)
  invoice_items:  Line items per invoice
  payments:       All payments; invoice_id NULL = account credit
  expenses:       Back-office expense book

REFERENCE NORMALIZATION:
  Payments are read with a join against invoices so a payment that only
  carries an invoice reference still comes back with its client id
  filled in. The engine never chases references itself.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. SQLite is opened with WAL
  (Write-Ahead Logging): multiple readers don't block and a single
  writer at a time is enough for a seed/sync workload.

USAGE:
  st, err := sqlite.New("./data/taller.db")
  if err != nil {
      log.Fatal(err)
  }
  defer st.Close()

  engine := &reconcile.Engine{Source: st}

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - reconcile/snapshot.go: Source contract and engine
  - reconcile/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/lasombra/receivables/expenses"
	"github.com/lasombra/receivables/reconcile"
)

// Store implements reconcile.Source using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a store at the given path. Use ":memory:" for tests.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS clients (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS invoices (
		id TEXT PRIMARY KEY,
		client_id TEXT,
		date TEXT NOT NULL,
		total TEXT NOT NULL,
		condition TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_invoices_client_date
		ON invoices(client_id, date);

	CREATE TABLE IF NOT EXISTS invoice_items (
		invoice_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		description TEXT,
		quantity TEXT NOT NULL,
		unit_price TEXT NOT NULL,
		subtotal TEXT NOT NULL,
		PRIMARY KEY (invoice_id, position)
	);

	CREATE TABLE IF NOT EXISTS payments (
		id TEXT PRIMARY KEY,
		client_id TEXT,
		invoice_id TEXT,
		amount TEXT NOT NULL,
		date TEXT NOT NULL,
		method TEXT NOT NULL,
		status TEXT NOT NULL,
		bank TEXT,
		check_number TEXT,
		clearing_date TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_payments_client_date
		ON payments(client_id, date);
	CREATE INDEX IF NOT EXISTS idx_payments_invoice
		ON payments(invoice_id) WHERE invoice_id IS NOT NULL;

	CREATE TABLE IF NOT EXISTS expenses (
		id TEXT PRIMARY KEY,
		date TEXT NOT NULL,
		concept TEXT NOT NULL,
		amount TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_expenses_date
		ON expenses(date);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// WRITES - seed/sync plumbing, not engine operations
// =============================================================================

// SaveClient upserts a client.
func (s *Store) SaveClient(ctx context.Context, c reconcile.Client) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO clients (id, name, created_at) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name`,
		string(c.ID), c.Name, now())
	if err != nil {
		return fmt.Errorf("failed to save client: %w", err)
	}
	return nil
}

// SaveInvoice upserts an invoice with its line items and attached
// payments in one transaction.
func (s *Store) SaveInvoice(ctx context.Context, inv reconcile.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO invoices (id, client_id, date, total, condition, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			client_id = excluded.client_id,
			date = excluded.date,
			total = excluded.total,
			condition = excluded.condition`,
		string(inv.ID), nullString(string(inv.ClientID)), formatDate(inv.Date),
		inv.Total.String(), string(inv.Condition), now())
	if err != nil {
		return fmt.Errorf("failed to save invoice: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM invoice_items WHERE invoice_id = ?`, string(inv.ID)); err != nil {
		return fmt.Errorf("failed to clear invoice items: %w", err)
	}
	for i, item := range inv.Items {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO invoice_items (invoice_id, position, description, quantity, unit_price, subtotal)
			VALUES (?, ?, ?, ?, ?, ?)`,
			string(inv.ID), i+1, item.Description,
			item.Quantity.String(), item.UnitPrice.String(), item.Subtotal.String())
		if err != nil {
			return fmt.Errorf("failed to save invoice item: %w", err)
		}
	}

	for _, p := range inv.Payments {
		if err := savePaymentTx(ctx, tx, p); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// SavePayment upserts a payment.
func (s *Store) SavePayment(ctx context.Context, p reconcile.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := savePaymentTx(ctx, tx, p); err != nil {
		return err
	}
	return tx.Commit()
}

func savePaymentTx(ctx context.Context, tx *sql.Tx, p reconcile.Payment) error {
	var bank, check, clearing any
	if p.Metadata != nil {
		bank = nullString(p.Metadata.Bank)
		check = nullString(p.Metadata.CheckNumber)
		if !p.Metadata.ClearingDate.IsZero() {
			clearing = formatDate(p.Metadata.ClearingDate)
		}
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO payments (id, client_id, invoice_id, amount, date, method, status,
			bank, check_number, clearing_date, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			client_id = excluded.client_id,
			invoice_id = excluded.invoice_id,
			amount = excluded.amount,
			date = excluded.date,
			method = excluded.method,
			status = excluded.status,
			bank = excluded.bank,
			check_number = excluded.check_number,
			clearing_date = excluded.clearing_date`,
		string(p.ID), nullString(string(p.ClientID)), nullString(string(p.InvoiceID)),
		p.Amount.String(), formatDate(p.Date), string(p.Method), string(p.Status),
		bank, check, clearing, now())
	if err != nil {
		return fmt.Errorf("failed to save payment: %w", err)
	}
	return nil
}

// SaveExpense upserts an expense-book entry.
func (s *Store) SaveExpense(ctx context.Context, e expenses.Expense) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO expenses (id, date, concept, amount, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			date = excluded.date,
			concept = excluded.concept,
			amount = excluded.amount`,
		e.ID, formatDate(e.Date), e.Concept, e.Amount.String(), now())
	if err != nil {
		return fmt.Errorf("failed to save expense: %w", err)
	}
	return nil
}

// Reset clears all data. Demo and dev use only.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, table := range []string{"invoice_items", "payments", "invoices", "clients", "expenses"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to reset %s: %w", table, err)
		}
	}
	return nil
}

// =============================================================================
// READS - reconcile.Source and per-client queries
// =============================================================================

// Invoices returns all invoices with their line items and attached
// payments, ordered by date then id.
func (s *Store) Invoices(ctx context.Context) ([]reconcile.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryInvoices(ctx, `
		SELECT id, client_id, date, total, condition
		FROM invoices
		ORDER BY date ASC, id ASC`)
}

// InvoicesByClient returns one client's invoices.
func (s *Store) InvoicesByClient(ctx context.Context, clientID reconcile.ClientID) ([]reconcile.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryInvoices(ctx, `
		SELECT id, client_id, date, total, condition
		FROM invoices
		WHERE client_id = ?
		ORDER BY date ASC, id ASC`, string(clientID))
}

// Payments returns all payments, ordered by date then id. The client
// reference is backfilled from the invoice when the payment only
// carries an invoice reference.
func (s *Store) Payments(ctx context.Context) ([]reconcile.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryPayments(ctx, `
		SELECT p.id, COALESCE(p.client_id, i.client_id), p.invoice_id, p.amount, p.date,
		       p.method, p.status, p.bank, p.check_number, p.clearing_date
		FROM payments p
		LEFT JOIN invoices i ON i.id = p.invoice_id
		ORDER BY p.date ASC, p.id ASC`)
}

// PaymentsByClient returns one client's payments.
func (s *Store) PaymentsByClient(ctx context.Context, clientID reconcile.ClientID) ([]reconcile.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryPayments(ctx, `
		SELECT p.id, COALESCE(p.client_id, i.client_id), p.invoice_id, p.amount, p.date,
		       p.method, p.status, p.bank, p.check_number, p.clearing_date
		FROM payments p
		LEFT JOIN invoices i ON i.id = p.invoice_id
		WHERE COALESCE(p.client_id, i.client_id) = ?
		ORDER BY p.date ASC, p.id ASC`, string(clientID))
}

// GetClient returns a client, or nil when absent.
func (s *Store) GetClient(ctx context.Context, id reconcile.ClientID) (*reconcile.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var c reconcile.Client
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name FROM clients WHERE id = ?`, string(id)).
		Scan(&c.ID, &c.Name)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get client: %w", err)
	}
	return &c, nil
}

// ListClients returns all clients ordered by name.
func (s *Store) ListClients(ctx context.Context) ([]reconcile.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name FROM clients ORDER BY name ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}
	defer rows.Close()

	var clients []reconcile.Client
	for rows.Next() {
		var c reconcile.Client
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("failed to scan client: %w", err)
		}
		clients = append(clients, c)
	}
	return clients, rows.Err()
}

// Expenses returns the expense book ordered by date then id.
func (s *Store) Expenses(ctx context.Context) ([]expenses.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, date, concept, amount FROM expenses ORDER BY date ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query expenses: %w", err)
	}
	defer rows.Close()

	var out []expenses.Expense
	for rows.Next() {
		var (
			e      expenses.Expense
			date   string
			amount string
		)
		if err := rows.Scan(&e.ID, &date, &e.Concept, &amount); err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		e.Date = parseDate(date)
		e.Amount = parseAmount(amount)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) queryInvoices(ctx context.Context, query string, args ...any) ([]reconcile.Invoice, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query invoices: %w", err)
	}
	defer rows.Close()

	var invoices []reconcile.Invoice
	for rows.Next() {
		var (
			inv       reconcile.Invoice
			clientID  sql.NullString
			date      string
			total     string
			condition string
		)
		if err := rows.Scan(&inv.ID, &clientID, &date, &total, &condition); err != nil {
			return nil, fmt.Errorf("failed to scan invoice: %w", err)
		}
		inv.ClientID = reconcile.ClientID(clientID.String)
		inv.Date = parseDate(date)
		inv.Total = parseAmount(total)
		inv.Condition = reconcile.PaymentCondition(condition)
		invoices = append(invoices, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Item and payment loads happen after the invoice cursor closes:
	// go-sqlite3 serializes on a single connection.
	for i := range invoices {
		if invoices[i].Items, err = s.loadItems(ctx, invoices[i].ID); err != nil {
			return nil, err
		}
		if invoices[i].Payments, err = s.loadAttachedPayments(ctx, invoices[i].ID); err != nil {
			return nil, err
		}
	}
	return invoices, nil
}

func (s *Store) loadItems(ctx context.Context, invoiceID reconcile.InvoiceID) ([]reconcile.LineItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT description, quantity, unit_price, subtotal
		FROM invoice_items WHERE invoice_id = ? ORDER BY position ASC`, string(invoiceID))
	if err != nil {
		return nil, fmt.Errorf("failed to query invoice items: %w", err)
	}
	defer rows.Close()

	var items []reconcile.LineItem
	for rows.Next() {
		var (
			item        reconcile.LineItem
			description sql.NullString
			qty         string
			price       string
			subtotal    string
		)
		if err := rows.Scan(&description, &qty, &price, &subtotal); err != nil {
			return nil, fmt.Errorf("failed to scan invoice item: %w", err)
		}
		item.Description = description.String
		item.Quantity = parseAmount(qty)
		item.UnitPrice = parseAmount(price)
		item.Subtotal = parseAmount(subtotal)
		items = append(items, item)
	}
	return items, rows.Err()
}

func (s *Store) loadAttachedPayments(ctx context.Context, invoiceID reconcile.InvoiceID) ([]reconcile.Payment, error) {
	return s.queryPayments(ctx, `
		SELECT p.id, COALESCE(p.client_id, i.client_id), p.invoice_id, p.amount, p.date,
		       p.method, p.status, p.bank, p.check_number, p.clearing_date
		FROM payments p
		LEFT JOIN invoices i ON i.id = p.invoice_id
		WHERE p.invoice_id = ?
		ORDER BY p.date ASC, p.id ASC`, string(invoiceID))
}

func (s *Store) queryPayments(ctx context.Context, query string, args ...any) ([]reconcile.Payment, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query payments: %w", err)
	}
	defer rows.Close()

	var payments []reconcile.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

func scanPayment(rows *sql.Rows) (reconcile.Payment, error) {
	var (
		p         reconcile.Payment
		clientID  sql.NullString
		invoiceID sql.NullString
		amount    string
		date      string
		bank      sql.NullString
		check     sql.NullString
		clearing  sql.NullString
	)

	err := rows.Scan(&p.ID, &clientID, &invoiceID, &amount, &date,
		&p.Method, &p.Status, &bank, &check, &clearing)
	if err != nil {
		return p, fmt.Errorf("failed to scan payment: %w", err)
	}

	p.ClientID = reconcile.ClientID(clientID.String)
	p.InvoiceID = reconcile.InvoiceID(invoiceID.String)
	p.Amount = parseAmount(amount)
	p.Date = parseDate(date)

	if bank.Valid || check.Valid || clearing.Valid {
		p.Metadata = &reconcile.PaymentMetadata{
			Bank:         bank.String,
			CheckNumber:  check.String,
			ClearingDate: parseDate(clearing.String),
		}
	}
	return p, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func formatDate(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseDate(s string) time.Time {
	return reconcile.NormalizeDate(s)
}

func parseAmount(s string) decimal.Decimal {
	return reconcile.NormalizeAmount(s)
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

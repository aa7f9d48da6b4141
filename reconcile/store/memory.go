// Package store provides Source implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/lasombra/receivables/reconcile"
)

// =============================================================================
// MEMORY SOURCE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu       sync.RWMutex
	invoices []reconcile.Invoice
	payments []reconcile.Payment
}

func NewMemory() *Memory {
	return &Memory{}
}

// AddInvoice registers an invoice in the snapshot source.
func (m *Memory) AddInvoice(inv reconcile.Invoice) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invoices = append(m.invoices, inv)
}

// AddPayment registers a payment in the snapshot source.
func (m *Memory) AddPayment(p reconcile.Payment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payments = append(m.payments, p)
}

// Invoices returns a copy ordered by date then id, the same contract
// the SQLite source honors.
func (m *Memory) Invoices(_ context.Context) ([]reconcile.Invoice, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]reconcile.Invoice, len(m.invoices))
	copy(out, m.invoices)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Payments returns a copy ordered by date then id.
func (m *Memory) Payments(_ context.Context) ([]reconcile.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]reconcile.Payment, len(m.payments))
	copy(out, m.payments)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Reset clears all records.
func (m *Memory) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invoices = nil
	m.payments = nil
}

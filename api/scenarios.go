/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with
	realistic shop data for demos. Each scenario creates clients, work
	orders, payments, and expenses that demonstrate specific engine
	behavior.

AVAILABLE SCENARIOS:

	cuenta-corriente: Running-account client with partial payments and
	                  an unassigned credit that spills across invoices
	contado:          Cash-sale clients whose invoices self-settle
	datos-sucios:     Dirty source data: malformed amounts, orphan
	                  payments, same-day invoice and payment

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Ingest raw documents the way the sync job would
 3. Save the parsed records through the store

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "cuenta-corriente"}

NOTE:

	Scenarios reset the database. Only use in development/demo
	environments.

SEE ALSO:
  - handlers.go: LoadScenario, ListScenarios handlers
  - ingest/ingest.go: Raw document parsing
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lasombra/receivables/expenses"
	"github.com/lasombra/receivables/ingest"
	"github.com/lasombra/receivables/reconcile"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "cuenta-corriente",
		Name:        "Cuenta Corriente",
		Description: "Running-account client with partial payments and a floating credit",
	},
	{
		ID:          "contado",
		Name:        "Contado",
		Description: "Cash sales that settle themselves on the spot",
	},
	{
		ID:          "datos-sucios",
		Name:        "Datos Sucios",
		Description: "Malformed amounts, orphan payments, and same-day activity",
	},
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	current := h.loadedScenario()
	if current == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}

	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}

	writeJSON(w, http.StatusOK, ScenarioDTO{
		ID:   current,
		Name: current,
	})
}

// LoadScenario loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ctx := r.Context()

	// Reset first
	if err := h.Store.Reset(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.setScenario("")

	var err error
	switch req.ScenarioID {
	case "cuenta-corriente":
		err = h.loadRunningAccountScenario(ctx)
	case "contado":
		err = h.loadCashSaleScenario(ctx)
	case "datos-sucios":
		err = h.loadDirtyDataScenario(ctx)
	default:
		writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
		return
	}

	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load scenario: %v", err), err)
		return
	}

	h.setScenario(req.ScenarioID)
	h.Log.Info().Str("scenario", req.ScenarioID).Msg("scenario loaded")

	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

// ResetDatabase wipes all data.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.setScenario("")
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

// loadRunningAccountScenario builds a workshop regular: three work
// orders on account, one direct partial payment, and an unassigned
// transfer that the allocator spreads oldest-first.
func (h *Handler) loadRunningAccountScenario(ctx context.Context) error {
	if err := h.Store.SaveClient(ctx, reconcile.Client{ID: "cl-transportes-sur", Name: "Transportes del Sur"}); err != nil {
		return err
	}

	docs := []ingest.Doc{
		{
			"id":        "ord-1001",
			"cliente":   "cl-transportes-sur",
			"fecha":     "2026-03-02",
			"total":     48000,
			"condicion": "cuenta_corriente",
			"items": []any{
				map[string]any{"descripcion": "Cubierta 295/80 R22.5", "cantidad": 2, "precio_unitario": 21000, "subtotal": 42000},
				map[string]any{"descripcion": "Alineacion y balanceo", "cantidad": 1, "precio_unitario": 6000, "subtotal": 6000},
			},
			"pagos": []any{
				map[string]any{"id": "pg-2001", "monto": 20000, "fecha": "2026-03-02", "metodo": "efectivo", "estado": "confirmado"},
			},
		},
		{
			"id":        "ord-1002",
			"cliente":   "cl-transportes-sur",
			"fecha":     "2026-03-15",
			"total":     15500,
			"condicion": "cuenta_corriente",
			"items": []any{
				map[string]any{"descripcion": "Reparacion pinchadura", "cantidad": 1, "precio_unitario": 15500, "subtotal": 15500},
			},
		},
		{
			"id":        "ord-1003",
			"cliente":   "cl-transportes-sur",
			"fecha":     "2026-04-01",
			"total":     9000,
			"condicion": "cuenta_corriente",
		},
	}
	if err := h.seedInvoices(ctx, docs); err != nil {
		return err
	}

	// Account credit with no invoice reference; the engine spreads it
	// oldest invoice first.
	credit := ingest.ParsePayment(ingest.Doc{
		"id":      "pg-2002",
		"cliente": "cl-transportes-sur",
		"monto":   "38000.00",
		"fecha":   "2026-04-10",
		"metodo":  "transferencia",
		"estado":  "acreditado",
		"banco":   "Banco Nacion",
	})
	if err := h.Store.SavePayment(ctx, credit); err != nil {
		return err
	}

	return h.seedExpenses(ctx)
}

// loadCashSaleScenario builds walk-in clients paying on the spot.
func (h *Handler) loadCashSaleScenario(ctx context.Context) error {
	if err := h.Store.SaveClient(ctx, reconcile.Client{ID: "cl-gomez", Name: "Ricardo Gomez"}); err != nil {
		return err
	}
	if err := h.Store.SaveClient(ctx, reconcile.Client{ID: "cl-perez", Name: "Marta Perez"}); err != nil {
		return err
	}

	// Cash sales carry no payment documents. The counter charges up
	// front and the invoice self-settles; registering a payment on top
	// would count the money twice.
	docs := []ingest.Doc{
		{
			"id":        "ord-2001",
			"cliente":   "cl-gomez",
			"fecha":     "2026-05-04",
			"total":     12000,
			"condicion": "contado",
		},
		{
			"id":        "ord-2002",
			"cliente":   "cl-perez",
			"fecha":     "2026-05-06",
			"total":     4500,
			"condicion": "contado",
		},
	}
	if err := h.seedInvoices(ctx, docs); err != nil {
		return err
	}
	return h.seedExpenses(ctx)
}

// loadDirtyDataScenario builds the messy inputs the normalizer and
// warning pipeline exist for.
func (h *Handler) loadDirtyDataScenario(ctx context.Context) error {
	if err := h.Store.SaveClient(ctx, reconcile.Client{ID: "cl-agro-norte", Name: "Agro Norte SRL"}); err != nil {
		return err
	}

	docs := []ingest.Doc{
		{
			// Malformed total; the normalizer maps it to zero and the
			// engine treats the invoice as settled.
			"id":        "ord-3001",
			"cliente":   "cl-agro-norte",
			"fecha":     "2026-06-01",
			"total":     "veinte mil",
			"condicion": "cuenta_corriente",
		},
		{
			// Line items that do not add up; flagged, never corrected.
			"id":        "ord-3002",
			"cliente":   "cl-agro-norte",
			"fecha":     "2026-06-10",
			"total":     10000,
			"condicion": "cuenta_corriente",
			"items": []any{
				map[string]any{"descripcion": "Camara 900-20", "cantidad": 2, "precio_unitario": 3000, "subtotal": 7000},
			},
		},
	}
	if err := h.seedInvoices(ctx, docs); err != nil {
		return err
	}

	// Same-day invoice and payment: the debit sorts before the credit.
	sameDay := ingest.ParsePayment(ingest.Doc{
		"id":      "pg-4001",
		"cliente": "cl-agro-norte",
		"monto":   10000,
		"fecha":   "2026-06-10",
		"metodo":  "cheque",
		"estado":  "confirmado",
		"banco":   "Banco Provincia",
		"nro_cheque": "00412233",
	})
	if err := h.Store.SavePayment(ctx, sameDay); err != nil {
		return err
	}

	// Orphan payment: no client, no invoice. Surfaces as a warning.
	orphan := ingest.ParsePayment(ingest.Doc{
		"id":     "pg-4002",
		"monto":  5000,
		"fecha":  "2026-06-12",
		"metodo": "efectivo",
		"estado": "confirmado",
	})
	return h.Store.SavePayment(ctx, orphan)
}

// =============================================================================
// SEED HELPERS
// =============================================================================

func (h *Handler) seedInvoices(ctx context.Context, docs []ingest.Doc) error {
	for _, doc := range docs {
		if err := h.Store.SaveInvoice(ctx, ingest.ParseInvoice(doc)); err != nil {
			return err
		}
	}
	return nil
}

func (h *Handler) seedExpenses(ctx context.Context) error {
	book := []expenses.Expense{
		{Date: date(2026, time.March, 5), Concept: "Compra cubiertas proveedor", Amount: decimal.NewFromInt(150000)},
		{Date: date(2026, time.March, 28), Concept: "Alquiler galpon", Amount: decimal.NewFromInt(80000)},
		{Date: date(2026, time.April, 3), Concept: "Luz y agua", Amount: decimal.NewFromInt(12500)},
	}
	for _, e := range book {
		e.ID = uuid.NewString()
		if err := h.Store.SaveExpense(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

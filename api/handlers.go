/*
handlers.go - HTTP API handlers for the receivables engine

PURPOSE:
  Exposes the reconciliation engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.
  Every read recomputes from a fresh snapshot; nothing derived is
  cached or stored.

ENDPOINTS:
  Health:
    GET  /api/health                        Liveness probe

  Clients:
    GET  /api/clients                       Per-client summaries
                                            ?from=YYYY-MM-DD&to=YYYY-MM-DD
    GET  /api/clients/{id}                  One client's summary
    GET  /api/clients/{id}/settlements      Per-invoice settlement detail
    GET  /api/clients/{id}/statement        Chronological account ledger

  Warnings:
    GET  /api/warnings                      Data-quality findings

  Expenses:
    GET  /api/expenses?year=YYYY&month=M    Expense book with running total

  Scenarios:
    GET  /api/scenarios                     List demo scenarios
    POST /api/scenarios/load                Load a demo scenario
    POST /api/scenarios/reset               Wipe the database

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Invalid input (bad dates, unknown scenario)
  - 404: Client not found
  - 500: Store failures

SECURITY NOTE:
  No authentication middleware. The server is meant to sit on a
  trusted back-office network.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/lasombra/receivables/expenses"
	"github.com/lasombra/receivables/reconcile"
	"github.com/lasombra/receivables/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store  *sqlite.Store
	Engine *reconcile.Engine
	Log    zerolog.Logger

	// Track currently loaded scenario. Loads and resets write it while
	// GetCurrentScenario reads it, so access goes through mu.
	mu              sync.Mutex
	currentScenario string
}

func (h *Handler) setScenario(id string) {
	h.mu.Lock()
	h.currentScenario = id
	h.mu.Unlock()
}

func (h *Handler) loadedScenario() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.currentScenario
}

// NewHandler creates a new handler around the given store.
func NewHandler(store *sqlite.Store, log zerolog.Logger) *Handler {
	return &Handler{
		Store:  store,
		Engine: &reconcile.Engine{Source: store},
		Log:    log,
	}
}

// Health is the liveness probe.
// GET /api/health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// CLIENT HANDLERS
// =============================================================================

// ListClients returns per-client summaries, optionally restricted to a
// billing date range.
// GET /api/clients?from=YYYY-MM-DD&to=YYYY-MM-DD
func (h *Handler) ListClients(w http.ResponseWriter, r *http.Request) {
	within, err := parseRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date range (use YYYY-MM-DD)", err)
		return
	}

	summaries, _, err := h.Engine.ClientSummaries(r.Context(), within)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to summarize clients", err)
		return
	}

	dtos := make([]ClientSummaryDTO, len(summaries))
	for i, s := range summaries {
		dtos[i] = toSummaryDTO(s)
		if dtos[i].Name == "" {
			dtos[i].Name = h.clientName(r, reconcile.ClientID(dtos[i].ClientID))
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetClient returns one client's summary.
// GET /api/clients/{id}
func (h *Handler) GetClient(w http.ResponseWriter, r *http.Request) {
	id := reconcile.ClientID(chi.URLParam(r, "id"))

	summaries, _, err := h.Engine.ClientSummaries(r.Context(), nil)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to summarize clients", err)
		return
	}

	for _, s := range summaries {
		if s.ClientID == id {
			dto := toSummaryDTO(s)
			if dto.Name == "" {
				dto.Name = h.clientName(r, id)
			}
			writeJSON(w, http.StatusOK, dto)
			return
		}
	}
	writeError(w, http.StatusNotFound, "Client not found", reconcile.ErrClientNotFound)
}

// GetSettlements returns per-invoice settlement detail for one client.
// GET /api/clients/{id}/settlements
func (h *Handler) GetSettlements(w http.ResponseWriter, r *http.Request) {
	id := reconcile.ClientID(chi.URLParam(r, "id"))

	settlements, err := h.Engine.ClientSettlements(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to settle invoices", err)
		return
	}

	dtos := make([]SettlementDTO, len(settlements))
	for i, s := range settlements {
		dtos[i] = toSettlementDTO(s)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetStatement returns the chronological account ledger for one client.
// GET /api/clients/{id}/statement
func (h *Handler) GetStatement(w http.ResponseWriter, r *http.Request) {
	id := reconcile.ClientID(chi.URLParam(r, "id"))

	entries, err := h.Engine.ClientStatement(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to build statement", err)
		return
	}

	dtos := make([]StatementEntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = toEntryDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ListWarnings returns every data-quality finding in the current data.
// GET /api/warnings
func (h *Handler) ListWarnings(w http.ResponseWriter, r *http.Request) {
	warnings, err := h.Engine.Warnings(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to collect warnings", err)
		return
	}

	dtos := make([]WarningDTO, len(warnings))
	for i, warning := range warnings {
		dtos[i] = toWarningDTO(warning)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// EXPENSE HANDLERS
// =============================================================================

// ListExpenses returns the expense book with running totals, optionally
// filtered to one year or one month.
// GET /api/expenses?year=YYYY&month=M
func (h *Handler) ListExpenses(w http.ResponseWriter, r *http.Request) {
	book, err := h.Store.Expenses(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load expenses", err)
		return
	}

	if yearStr := r.URL.Query().Get("year"); yearStr != "" {
		year, err := strconv.Atoi(yearStr)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid year", err)
			return
		}
		var month time.Month
		if monthStr := r.URL.Query().Get("month"); monthStr != "" {
			m, err := strconv.Atoi(monthStr)
			if err != nil || m < 1 || m > 12 {
				writeError(w, http.StatusBadRequest, "Invalid month (1-12)", err)
				return
			}
			month = time.Month(m)
		}
		book = expenses.FilterMonth(book, year, month)
	}

	lines := expenses.Statement(book)
	dto := ExpenseBookDTO{Entries: make([]ExpenseDTO, len(lines))}
	for i, line := range lines {
		dto.Entries[i] = toExpenseDTO(line)
	}
	total := decimal.Zero
	for _, e := range book {
		total = total.Add(e.Amount)
	}
	dto.Total = amount(total)
	for _, m := range expenses.MonthlyTotals(book) {
		dto.Months = append(dto.Months, MonthTotalDTO{
			Year:  m.Year,
			Month: int(m.Month),
			Total: amount(m.Total),
			Count: m.Count,
		})
	}
	writeJSON(w, http.StatusOK, dto)
}

// =============================================================================
// HELPERS
// =============================================================================

// clientName looks up the display name for summaries built from
// payment-only activity. Best effort; an empty name is fine.
func (h *Handler) clientName(r *http.Request, id reconcile.ClientID) string {
	c, err := h.Store.GetClient(r.Context(), id)
	if err != nil || c == nil {
		return ""
	}
	return c.Name
}

func parseRange(r *http.Request) (*reconcile.DateRange, error) {
	fromStr := r.URL.Query().Get("from")
	toStr := r.URL.Query().Get("to")
	if fromStr == "" && toStr == "" {
		return nil, nil
	}

	var within reconcile.DateRange
	if fromStr != "" {
		from, err := time.Parse("2006-01-02", fromStr)
		if err != nil {
			return nil, err
		}
		within.From = from
	}
	if toStr != "" {
		to, err := time.Parse("2006-01-02", toStr)
		if err != nil {
			return nil, err
		}
		within.To = to
	}
	return &within, nil
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

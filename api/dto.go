/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types
  decouple the internal domain model from the external API contract:
  amounts cross the wire as float64 for frontend convenience while the
  engine keeps exact decimals internally.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data
  carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - reconcile/types.go: The internal model these mirror
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/lasombra/receivables/expenses"
	"github.com/lasombra/receivables/reconcile"
)

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// ClientDTO represents a client in API responses.
type ClientDTO struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ClientSummaryDTO is the per-client receivables position.
type ClientSummaryDTO struct {
	ClientID    string  `json:"client_id"`
	Name        string  `json:"name,omitempty"`
	TotalBilled float64 `json:"total_billed"`
	TotalPaid   float64 `json:"total_paid"`
	Balance     float64 `json:"balance"`
	Invoices    int     `json:"invoices"`
	Payments    int     `json:"payments"`
}

// AllocationDTO records one credit application to an invoice.
type AllocationDTO struct {
	PaymentID string  `json:"payment_id"`
	Amount    float64 `json:"amount"`
}

// SettlementDTO is per-invoice settlement detail.
type SettlementDTO struct {
	InvoiceID   string          `json:"invoice_id"`
	Total       float64         `json:"total"`
	Paid        float64         `json:"paid"`
	Balance     float64         `json:"balance"`
	Status      string          `json:"status"`
	Allocations []AllocationDTO `json:"allocations"`
}

// StatementEntryDTO is one line of a client's account statement.
type StatementEntryDTO struct {
	Date     string  `json:"date"`
	Kind     string  `json:"kind"`
	SourceID string  `json:"source_id"`
	Debit    float64 `json:"debit"`
	Credit   float64 `json:"credit"`
	Balance  float64 `json:"balance"`
}

// WarningDTO surfaces a data-quality finding.
type WarningDTO struct {
	Code     string `json:"code"`
	SourceID string `json:"source_id,omitempty"`
	Message  string `json:"message"`
}

// ExpenseDTO is one expense-book entry with its running total.
type ExpenseDTO struct {
	ID           string  `json:"id"`
	Date         string  `json:"date"`
	Concept      string  `json:"concept"`
	Amount       float64 `json:"amount"`
	RunningTotal float64 `json:"running_total"`
}

// ExpenseBookDTO wraps a filtered expense listing.
type ExpenseBookDTO struct {
	Entries []ExpenseDTO    `json:"entries"`
	Total   float64         `json:"total"`
	Months  []MonthTotalDTO `json:"months,omitempty"`
}

// MonthTotalDTO is one month's aggregate spend.
type MonthTotalDTO struct {
	Year  int     `json:"year"`
	Month int     `json:"month"`
	Total float64 `json:"total"`
	Count int     `json:"count"`
}

// ScenarioDTO describes a loadable demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadScenarioRequest selects a scenario to load.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func amount(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}

func dateString(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02")
}

func toSummaryDTO(s reconcile.ClientSummary) ClientSummaryDTO {
	return ClientSummaryDTO{
		ClientID:    string(s.ClientID),
		Name:        s.Name,
		TotalBilled: amount(s.TotalBilled),
		TotalPaid:   amount(s.TotalPaid),
		Balance:     amount(s.Balance),
		Invoices:    len(s.Invoices),
		Payments:    len(s.Payments),
	}
}

func toSettlementDTO(s reconcile.InvoiceSettlement) SettlementDTO {
	allocations := make([]AllocationDTO, len(s.Allocations))
	for i, a := range s.Allocations {
		allocations[i] = AllocationDTO{
			PaymentID: string(a.PaymentID),
			Amount:    amount(a.Amount),
		}
	}
	return SettlementDTO{
		InvoiceID:   string(s.InvoiceID),
		Total:       amount(s.Total),
		Paid:        amount(s.Paid),
		Balance:     amount(s.Balance),
		Status:      string(s.Status),
		Allocations: allocations,
	}
}

func toEntryDTO(e reconcile.StatementEntry) StatementEntryDTO {
	return StatementEntryDTO{
		Date:     dateString(e.Date),
		Kind:     string(e.Kind),
		SourceID: e.SourceID,
		Debit:    amount(e.Debit),
		Credit:   amount(e.Credit),
		Balance:  amount(e.Balance),
	}
}

func toWarningDTO(w reconcile.Warning) WarningDTO {
	return WarningDTO{
		Code:     string(w.Code),
		SourceID: w.SourceID,
		Message:  w.Message,
	}
}

func toExpenseDTO(line expenses.StatementLine) ExpenseDTO {
	return ExpenseDTO{
		ID:           line.ID,
		Date:         dateString(line.Date),
		Concept:      line.Concept,
		Amount:       amount(line.Amount),
		RunningTotal: amount(line.RunningTotal),
	}
}

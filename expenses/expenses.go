/*
Package expenses is the back-office expense book.

PURPOSE:
  Tracks the shop's own outgoing money (supplier purchases, rent,
  services) alongside the receivables views. Deliberately simple: an
  expense is a dated amount with a free-text concept, and the only
  derivations are a running-total statement and monthly totals.

SEPARATION:
  Expenses never interact with client balances. They live in their own
  table and their own views; the reconciliation engine does not read
  them.

SEE ALSO:
  - store/sqlite/sqlite.go: Persistence
  - api/handlers.go: HTTP surface
*/
package expenses

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Expense is a single outgoing entry in the book.
type Expense struct {
	ID      string
	Date    time.Time
	Concept string
	Amount  decimal.Decimal
}

// StatementLine is an expense with the running total up to and
// including it.
type StatementLine struct {
	Expense
	RunningTotal decimal.Decimal
}

// Statement orders expenses by date (id breaks ties) and folds a
// running total over them.
func Statement(book []Expense) []StatementLine {
	sorted := make([]Expense, len(book))
	copy(sorted, book)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].Date.Equal(sorted[j].Date) {
			return sorted[i].Date.Before(sorted[j].Date)
		}
		return sorted[i].ID < sorted[j].ID
	})

	lines := make([]StatementLine, 0, len(sorted))
	total := decimal.Zero
	for _, e := range sorted {
		total = total.Add(e.Amount)
		lines = append(lines, StatementLine{Expense: e, RunningTotal: total})
	}
	return lines
}

// MonthTotal is the spend in one calendar month.
type MonthTotal struct {
	Year  int
	Month time.Month
	Total decimal.Decimal
	Count int
}

// MonthlyTotals aggregates the book per calendar month, oldest first.
func MonthlyTotals(book []Expense) []MonthTotal {
	type key struct {
		year  int
		month time.Month
	}
	buckets := make(map[key]*MonthTotal)
	for _, e := range book {
		k := key{e.Date.Year(), e.Date.Month()}
		bucket, ok := buckets[k]
		if !ok {
			bucket = &MonthTotal{Year: k.year, Month: k.month, Total: decimal.Zero}
			buckets[k] = bucket
		}
		bucket.Total = bucket.Total.Add(e.Amount)
		bucket.Count++
	}

	out := make([]MonthTotal, 0, len(buckets))
	for _, bucket := range buckets {
		out = append(out, *bucket)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year < out[j].Year
		}
		return out[i].Month < out[j].Month
	})
	return out
}

// FilterMonth returns the entries for one calendar month, sorted by
// date then id. Month zero means the whole year.
func FilterMonth(book []Expense, year int, month time.Month) []Expense {
	var out []Expense
	for _, e := range book {
		if e.Date.Year() != year {
			continue
		}
		if month != 0 && e.Date.Month() != month {
			continue
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

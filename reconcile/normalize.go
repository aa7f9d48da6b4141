/*
normalize.go - Coercion of raw heterogeneous fields

PURPOSE:
  The upstream document store is loosely typed: amounts arrive as
  numbers, strings, or not at all; dates as strings in several layouts;
  references sometimes as a scalar id and sometimes as an embedded
  object. These helpers collapse all of that into one well-typed shape
  before the engine sees it.

CONTRACT:
  - NormalizeAmount never fails: missing, non-numeric, and non-finite
    inputs all become zero.
  - NormalizeDate never fails: invalid dates become the zero time, which
    compares as the earliest possible value so sorts stay total.
  - NormalizeRef accepts "abc", 42, {"id": "abc"} or {"_id": "abc"} and
    returns the plain id string.

These are pure functions with no side effects.

SEE ALSO:
  - ingest: applies these at the data-access boundary
*/
package reconcile

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// dateLayouts are tried in order when a date arrives as a string.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02/01/2006", // day-first, as the source UI writes it
}

// NormalizeAmount coerces a raw numeric-like value into a decimal
// amount, defaulting to zero on any missing or unparseable input.
func NormalizeAmount(v any) decimal.Decimal {
	switch x := v.(type) {
	case nil:
		return decimal.Zero
	case decimal.Decimal:
		return x
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return decimal.Zero
		}
		return decimal.NewFromFloat(x)
	case float32:
		return NormalizeAmount(float64(x))
	case int:
		return decimal.NewFromInt(int64(x))
	case int64:
		return decimal.NewFromInt(x)
	case json.Number:
		return NormalizeAmount(string(x))
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(x))
		if err != nil {
			return decimal.Zero
		}
		return d
	default:
		return decimal.Zero
	}
}

// NormalizeDate coerces a raw date-like value into a timestamp usable
// for ordering and display. Invalid dates become the zero time, the
// earliest-sortable value.
func NormalizeDate(v any) time.Time {
	switch x := v.(type) {
	case nil:
		return time.Time{}
	case time.Time:
		return x
	case string:
		s := strings.TrimSpace(x)
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC()
			}
		}
		return time.Time{}
	case float64:
		// Unix seconds, another shape the source emits.
		if math.IsNaN(x) || math.IsInf(x, 0) || x <= 0 {
			return time.Time{}
		}
		return time.Unix(int64(x), 0).UTC()
	default:
		return time.Time{}
	}
}

// NormalizeRef collapses a duck-typed reference (scalar id or embedded
// {id} object) into a plain id string. Empty string means no reference.
func NormalizeRef(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case float64:
		if x != math.Trunc(x) || math.IsNaN(x) || math.IsInf(x, 0) {
			return ""
		}
		return strconv.FormatInt(int64(x), 10)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case map[string]any:
		for _, key := range []string{"id", "_id"} {
			if inner, ok := x[key]; ok {
				return NormalizeRef(inner)
			}
		}
		return ""
	default:
		return ""
	}
}

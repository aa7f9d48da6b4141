/*
validate.go - Invoice consistency checks

PURPOSE:
  The engine trusts the stored invoice total for all balance math, but
  the stored total can disagree with the line items it supposedly sums.
  These checks surface that disagreement as data-quality warnings for
  the reporting layer. Nothing here is fatal and nothing is corrected.

CHECKS:
  - Each line's subtotal equals quantity * unit price.
  - The invoice total equals the sum of line subtotals.

An invoice without line items is not flagged: some sources store the
total only.
*/
package reconcile

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ValidateInvoice returns the data-quality warnings for one invoice.
func ValidateInvoice(inv Invoice) []Warning {
	var warnings []Warning

	itemSum := decimal.Zero
	for i, item := range inv.Items {
		expected := item.Quantity.Mul(item.UnitPrice)
		if !expected.Equal(item.Subtotal) {
			warnings = append(warnings, Warning{
				Code:     WarnItemSubtotal,
				SourceID: string(inv.ID),
				Message: fmt.Sprintf("invoice %s line %d: subtotal %s != %s x %s",
					inv.ID, i+1, item.Subtotal, item.Quantity, item.UnitPrice),
			})
		}
		itemSum = itemSum.Add(item.Subtotal)
	}

	if len(inv.Items) > 0 && !itemSum.Equal(inv.Total) {
		warnings = append(warnings, Warning{
			Code:     WarnInvoiceTotal,
			SourceID: string(inv.ID),
			Message: fmt.Sprintf("invoice %s: total %s != line item sum %s",
				inv.ID, inv.Total, itemSum),
		})
	}
	return warnings
}

// ValidateInvoices runs ValidateInvoice over a batch.
func ValidateInvoices(invoices []Invoice) []Warning {
	var warnings []Warning
	for _, inv := range invoices {
		warnings = append(warnings, ValidateInvoice(inv)...)
	}
	return warnings
}

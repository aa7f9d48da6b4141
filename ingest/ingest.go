/*
Package ingest converts raw document-store records into engine types.

PURPOSE:
  The remote document store is schemaless: a work order or payment
  arrives as a loosely-typed JSON document whose fields may be missing,
  stringly-typed, or reference another document either by scalar id or
  by an embedded object. This package is the one place that tolerates
  all of that. Past this boundary the engine only ever sees a single
  explicit reference shape and well-typed amounts and dates.

FIELD NAMES:
  Documents use the source system's Spanish field names ("monto",
  "fecha", "cliente", "orden"). English aliases are accepted where the
  newer sync jobs emit them.

CONTRACT:
  Parsing never fails. Malformed amounts become zero, malformed dates
  become the earliest-sortable value, malformed references become
  no-reference. Whether the resulting record is usable is the
  classifier's and validator's call, not the parser's.

USAGE:
  inv := ingest.ParseInvoice(doc)   // doc is a decoded JSON object
  pay := ingest.ParsePayment(doc)

SEE ALSO:
  - reconcile/normalize.go: The coercion primitives applied here
*/
package ingest

import (
	"strings"

	"github.com/lasombra/receivables/reconcile"
)

// Doc is one decoded document from the remote store.
type Doc = map[string]any

// field returns the first present key among aliases.
func field(doc Doc, aliases ...string) any {
	for _, k := range aliases {
		if v, ok := doc[k]; ok {
			return v
		}
	}
	return nil
}

// str coerces a free-text field; non-strings become empty.
func str(v any) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

// =============================================================================
// INVOICE DOCUMENTS
// =============================================================================

// ParseInvoice converts a raw work-order document into an Invoice.
func ParseInvoice(doc Doc) reconcile.Invoice {
	inv := reconcile.Invoice{
		ID:        reconcile.InvoiceID(reconcile.NormalizeRef(field(doc, "id", "_id"))),
		ClientID:  reconcile.ClientID(reconcile.NormalizeRef(field(doc, "cliente", "client"))),
		Date:      reconcile.NormalizeDate(field(doc, "fecha", "date")),
		Total:     reconcile.NormalizeAmount(field(doc, "total")),
		Condition: ParseCondition(str(field(doc, "condicion", "condition"))),
	}

	if items, ok := field(doc, "items", "detalle").([]any); ok {
		for _, raw := range items {
			if itemDoc, ok := raw.(Doc); ok {
				inv.Items = append(inv.Items, parseLineItem(itemDoc))
			}
		}
	}

	if pagos, ok := field(doc, "pagos", "payments").([]any); ok {
		for _, raw := range pagos {
			if payDoc, ok := raw.(Doc); ok {
				p := ParsePayment(payDoc)
				// Attached payments implicitly reference their invoice.
				if p.InvoiceID == "" {
					p.InvoiceID = inv.ID
				}
				if p.ClientID == "" {
					p.ClientID = inv.ClientID
				}
				inv.Payments = append(inv.Payments, p)
			}
		}
	}
	return inv
}

func parseLineItem(doc Doc) reconcile.LineItem {
	return reconcile.LineItem{
		Description: str(field(doc, "descripcion", "description")),
		Quantity:    reconcile.NormalizeAmount(field(doc, "cantidad", "quantity")),
		UnitPrice:   reconcile.NormalizeAmount(field(doc, "precio_unitario", "unit_price")),
		Subtotal:    reconcile.NormalizeAmount(field(doc, "subtotal")),
	}
}

// ParseCondition maps the stored payment-condition tag. Unknown tags
// default to the running account, the safer side: the balance stays
// visible instead of silently self-settling.
func ParseCondition(raw string) reconcile.PaymentCondition {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "contado", "inmediato", "immediate", "cash":
		return reconcile.ConditionImmediate
	default:
		return reconcile.ConditionAccount
	}
}

// =============================================================================
// PAYMENT DOCUMENTS
// =============================================================================

// ParsePayment converts a raw payment document into a Payment.
func ParsePayment(doc Doc) reconcile.Payment {
	p := reconcile.Payment{
		ID:        reconcile.PaymentID(reconcile.NormalizeRef(field(doc, "id", "_id"))),
		ClientID:  reconcile.ClientID(reconcile.NormalizeRef(field(doc, "cliente", "client"))),
		InvoiceID: reconcile.InvoiceID(reconcile.NormalizeRef(field(doc, "orden", "factura", "invoice"))),
		Amount:    reconcile.NormalizeAmount(field(doc, "monto", "amount")),
		Date:      reconcile.NormalizeDate(field(doc, "fecha", "date")),
		Method:    ParseMethod(str(field(doc, "metodo", "method"))),
		Status:    ParseStatus(str(field(doc, "estado", "status"))),
	}

	bank := str(field(doc, "banco", "bank"))
	check := str(field(doc, "nro_cheque", "check_number"))
	if bank != "" || check != "" {
		p.Metadata = &reconcile.PaymentMetadata{
			Bank:         bank,
			CheckNumber:  check,
			ClearingDate: reconcile.NormalizeDate(field(doc, "fecha_acreditacion", "clearing_date")),
		}
	}
	return p
}

// ParseMethod maps the stored method tag, defaulting to "otro".
func ParseMethod(raw string) reconcile.PaymentMethod {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "efectivo", "cash":
		return reconcile.MethodCash
	case "transferencia", "transfer":
		return reconcile.MethodTransfer
	case "cheque", "check":
		return reconcile.MethodCheck
	case "tarjeta", "card":
		return reconcile.MethodCard
	default:
		return reconcile.MethodOther
	}
}

// ParseStatus maps the stored confirmation state. Anything that is not
// explicitly confirmed stays out of balance math, so unknown states
// land on pending.
func ParseStatus(raw string) reconcile.PaymentStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "confirmado", "confirmed", "acreditado":
		return reconcile.PaymentConfirmed
	case "rechazado", "rejected":
		return reconcile.PaymentRejected
	default:
		return reconcile.PaymentPending
	}
}

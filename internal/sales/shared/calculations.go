// Package shared holds line arithmetic common to quotations, orders and
// invoices. Totals are always derived from the lines, never trusted from
// the client.
package shared

// LineInput is the part of a document line that totals derive from.
type LineInput struct {
	Quantity float64
	Price    float64
}

// LineSubtotal computes the subtotal of a single line.
func LineSubtotal(quantity, price float64) float64 {
	return quantity * price
}

// TotalAmount sums line subtotals.
func TotalAmount(lines []LineInput) float64 {
	var total float64
	for _, l := range lines {
		total += LineSubtotal(l.Quantity, l.Price)
	}
	return total
}

package billing

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/clinicbill/clinicbill/pkg/period"
)

var hundred = decimal.NewFromInt(100)

// Totals are the derived invoice aggregates.
type Totals struct {
	Subtotal       float64 `json:"subtotal"`
	TaxAmount      float64 `json:"taxAmount"`
	DiscountAmount float64 `json:"discountAmount"`
	Total          float64 `json:"total"`
}

func cents(d decimal.Decimal) float64 {
	f, _ := d.Round(2).Float64()
	return f
}

// ComputeInvoiceTotals prices items and derives the aggregates. Rates are
// percentages: subtotal 125 at taxRate 10 gives a tax amount of 12.5. Every
// amount is rounded to cents; the total is computed from the unrounded parts.
func ComputeInvoiceTotals(items []InvoiceItem, taxRate, discountRate float64) ([]InvoiceItem, Totals) {
	priced := make([]InvoiceItem, len(items))
	subtotal := decimal.Zero
	for i, it := range items {
		amount := decimal.NewFromFloat(it.Quantity).Mul(decimal.NewFromFloat(it.Rate))
		it.Amount = cents(amount)
		priced[i] = it
		subtotal = subtotal.Add(amount)
	}

	tax := subtotal.Mul(decimal.NewFromFloat(taxRate)).Div(hundred)
	discount := subtotal.Mul(decimal.NewFromFloat(discountRate)).Div(hundred)
	total := subtotal.Add(tax).Sub(discount)

	return priced, Totals{
		Subtotal:       cents(subtotal),
		TaxAmount:      cents(tax),
		DiscountAmount: cents(discount),
		Total:          cents(total),
	}
}

// WithTotals returns inv with its item amounts and aggregates recomputed.
func (inv Invoice) WithTotals() Invoice {
	items, t := ComputeInvoiceTotals(inv.Items, inv.TaxRate, inv.DiscountRate)
	inv.Items = items
	inv.Subtotal = t.Subtotal
	inv.TaxAmount = t.TaxAmount
	inv.DiscountAmount = t.DiscountAmount
	inv.Total = t.Total
	return inv
}

// Reprice attaches recomputed aggregates to p when it changes the items or
// either rate. Unchanged inputs are taken from current.
func (p InvoicePatch) Reprice(current Invoice) InvoicePatch {
	if p.Items == nil && p.TaxRate == nil && p.DiscountRate == nil {
		return p
	}
	items, taxRate, discountRate := current.Items, current.TaxRate, current.DiscountRate
	if p.Items != nil {
		items = *p.Items
	}
	if p.TaxRate != nil {
		taxRate = *p.TaxRate
	}
	if p.DiscountRate != nil {
		discountRate = *p.DiscountRate
	}
	priced, t := ComputeInvoiceTotals(items, taxRate, discountRate)
	p.Items = &priced
	p.totals = &t
	return p
}

// Repriced reports whether Reprice attached aggregates.
func (p InvoicePatch) Repriced() (Totals, bool) {
	if p.totals == nil {
		return Totals{}, false
	}
	return *p.totals, true
}

var invoiceNumberRE = regexp.MustCompile(`^INV-(\d{4})-(\d+)$`)

// FormatInvoiceNumber renders INV-<year>-<seq> with a 3-digit minimum.
func FormatInvoiceNumber(year, seq int) string {
	return fmt.Sprintf("INV-%d-%03d", year, seq)
}

// ParseInvoiceNumber splits an invoice number into year and sequence.
func ParseInvoiceNumber(s string) (year, seq int, ok bool) {
	m := invoiceNumberRE.FindStringSubmatch(s)
	if m == nil {
		return 0, 0, false
	}
	year, _ = strconv.Atoi(m[1])
	seq, err := strconv.Atoi(m[2])
	if err != nil {
		return 0, 0, false
	}
	return year, seq, true
}

// MaxSequence returns the highest sequence among numbers issued for year.
func MaxSequence(numbers []string, year int) int {
	max := 0
	for _, n := range numbers {
		if y, seq, ok := ParseInvoiceNumber(n); ok && y == year && seq > max {
			max = seq
		}
	}
	return max
}

// InvoiceYear is the numbering year of an invoice: its issue date's year, or
// now's when the date is not set.
func InvoiceYear(date string, now time.Time) int {
	if t, err := period.ParseDate(date); err == nil {
		return t.Year()
	}
	return now.Year()
}

package billing

import (
	"testing"
	"time"
)

func TestComputeInvoiceTotals(t *testing.T) {
	items := []InvoiceItem{
		{Description: "Consult", Quantity: 2, Rate: 50},
		{Description: "Lab", Quantity: 1, Rate: 25},
	}
	priced, got := ComputeInvoiceTotals(items, 10, 5)

	want := Totals{Subtotal: 125, TaxAmount: 12.5, DiscountAmount: 6.25, Total: 131.25}
	if got != want {
		t.Errorf("totals = %+v, want %+v", got, want)
	}
	if priced[0].Amount != 100 || priced[1].Amount != 25 {
		t.Errorf("item amounts = %v, %v", priced[0].Amount, priced[1].Amount)
	}
	if items[0].Amount != 0 {
		t.Error("input items must not be modified")
	}
}

func TestComputeInvoiceTotals_Rounding(t *testing.T) {
	_, got := ComputeInvoiceTotals([]InvoiceItem{{Quantity: 3, Rate: 0.1}}, 7.25, 0)
	if got.Subtotal != 0.3 {
		t.Errorf("subtotal = %v, want 0.3", got.Subtotal)
	}
	if got.TaxAmount != 0.02 {
		t.Errorf("tax = %v, want 0.02", got.TaxAmount)
	}
	if got.Total != 0.32 {
		t.Errorf("total = %v, want 0.32", got.Total)
	}
}

func TestComputeInvoiceTotals_Empty(t *testing.T) {
	priced, got := ComputeInvoiceTotals(nil, 10, 5)
	if len(priced) != 0 || got != (Totals{}) {
		t.Errorf("expected zero totals, got %+v", got)
	}
}

func TestInvoice_WithTotals(t *testing.T) {
	inv := Invoice{
		Items:        []InvoiceItem{{Description: "a", Quantity: 2, Rate: 50}, {Description: "b", Quantity: 1, Rate: 25}},
		TaxRate:      10,
		DiscountRate: 5,
		Subtotal:     999,
		Total:        999,
	}.WithTotals()
	if inv.Subtotal != 125 || inv.TaxAmount != 12.5 || inv.DiscountAmount != 6.25 || inv.Total != 131.25 {
		t.Errorf("unexpected aggregates %+v", inv)
	}
}

func TestInvoicePatch_RepriceOnItemChange(t *testing.T) {
	current := Invoice{
		Items:        []InvoiceItem{{Description: "a", Quantity: 2, Rate: 50}, {Description: "b", Quantity: 1, Rate: 25}},
		TaxRate:      10,
		DiscountRate: 5,
	}.WithTotals()

	items := []InvoiceItem{{Description: "a", Quantity: 3, Rate: 50}, {Description: "b", Quantity: 1, Rate: 25}}
	p := InvoicePatch{Items: &items}.Reprice(current)
	got, ok := p.Repriced()
	if !ok {
		t.Fatal("expected repriced patch")
	}
	want := Totals{Subtotal: 175, TaxAmount: 17.5, DiscountAmount: 8.75, Total: 183.75}
	if got != want {
		t.Errorf("totals = %+v, want %+v", got, want)
	}
	cols, err := p.Columns()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, c := range []string{"items", "subtotal", "tax_amount", "discount_amount", "total"} {
		if _, ok := cols[c]; !ok {
			t.Errorf("expected column %s", c)
		}
	}
	if cols["total"] != 183.75 {
		t.Errorf("total column = %v", cols["total"])
	}
}

func TestInvoicePatch_RepriceOnRateChange(t *testing.T) {
	current := Invoice{Items: []InvoiceItem{{Description: "a", Quantity: 1, Rate: 200}}, TaxRate: 0}.WithTotals()
	rate := 10.0
	got, ok := InvoicePatch{DiscountRate: &rate}.Reprice(current).Repriced()
	if !ok || got.DiscountAmount != 20 || got.Total != 180 {
		t.Errorf("unexpected totals %+v (ok=%v)", got, ok)
	}
}

func TestInvoicePatch_NoRepriceForStatus(t *testing.T) {
	s := InvoiceSent
	p := InvoicePatch{Status: &s}.Reprice(Invoice{})
	if _, ok := p.Repriced(); ok {
		t.Error("status-only patch should not carry totals")
	}
	cols, _ := p.Columns()
	if len(cols) != 1 {
		t.Errorf("expected only status column, got %v", cols)
	}
}

func TestInvoiceNumbering(t *testing.T) {
	var issued []string
	for i := 1; i <= 12; i++ {
		n := FormatInvoiceNumber(2025, MaxSequence(issued, 2025)+1)
		issued = append(issued, n)
	}
	if issued[0] != "INV-2025-001" || issued[11] != "INV-2025-012" {
		t.Errorf("unexpected numbers %v", issued)
	}

	year, seq, ok := ParseInvoiceNumber("INV-2024-1234")
	if !ok || year != 2024 || seq != 1234 {
		t.Errorf("ParseInvoiceNumber = %d, %d, %v", year, seq, ok)
	}
	if _, _, ok := ParseInvoiceNumber("INV-24-1"); ok {
		t.Error("expected malformed number to be rejected")
	}
	if got := MaxSequence([]string{"INV-2024-009", "INV-2025-003", "bogus"}, 2025); got != 3 {
		t.Errorf("MaxSequence = %d, want 3", got)
	}
}

func TestInvoiceYear(t *testing.T) {
	now := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	if got := InvoiceYear("2025-12-31", now); got != 2025 {
		t.Errorf("InvoiceYear = %d, want 2025", got)
	}
	if got := InvoiceYear("", now); got != 2026 {
		t.Errorf("InvoiceYear(empty) = %d, want 2026", got)
	}
}

package billing

import (
	"context"
	"testing"
	"time"
)

func date(s string) time.Time {
	t, _ := time.Parse("2006-01-02", s)
	return t
}

func TestEntryMemRepo_ListFiltered(t *testing.T) {
	ctx := context.Background()
	repo := NewEntryMemRepo()
	for _, e := range []EntryRow{
		{ClinicID: "C1", ProviderID: "P1", Date: date("2025-02-01"), Status: "pending"},
		{ClinicID: "C1", ProviderID: "P2", Date: date("2025-02-28"), Status: "pending"},
		{ClinicID: "C2", ProviderID: "P1", Date: date("2025-03-01"), Status: "pending"},
		{ClinicID: "C1", ProviderID: "P1", Date: date("2025-01-31"), Status: "paid"},
	} {
		if _, err := repo.Create(ctx, e); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	all, _ := repo.List(ctx)
	if len(all) != 4 || !all[0].Date.Equal(date("2025-03-01")) || !all[3].Date.Equal(date("2025-01-31")) {
		t.Errorf("expected date-descending order, got %v", all)
	}

	feb, err := repo.ListFiltered(ctx, EntryFilter{Month: "February 2025"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(feb) != 2 {
		t.Errorf("expected 2 February entries (Feb 28 included, Mar 1 excluded), got %d", len(feb))
	}

	p1, _ := repo.ListFiltered(ctx, EntryFilter{ProviderID: "P1"})
	if len(p1) != 3 {
		t.Errorf("expected 3 entries for P1 across clinics, got %d", len(p1))
	}

	c1p1, _ := repo.ListFiltered(ctx, EntryFilter{ClinicID: "C1", ProviderID: "P1", Month: "Feb 2025"})
	if len(c1p1) != 1 {
		t.Errorf("expected 1 entry, got %d", len(c1p1))
	}

	if _, err := repo.ListFiltered(ctx, EntryFilter{Month: "Smarch 2025"}); err == nil {
		t.Error("expected error for unparseable month")
	}
}

func TestReceivableMemRepo_ListFiltered(t *testing.T) {
	ctx := context.Background()
	repo := NewReceivableMemRepo()
	for _, a := range []ReceivableRow{
		{ClinicID: "C1", Date: date("2024-02-29"), Type: "Patient"},
		{ClinicID: "C1", Date: date("2024-03-01"), Type: "Patient"},
		{ClinicID: "C2", Date: date("2024-02-10"), Type: "Clinic"},
	} {
		if _, err := repo.Create(ctx, a); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	got, _ := repo.ListFiltered(ctx, ReceivableFilter{ClinicID: "C1", Month: "February 2024"})
	if len(got) != 1 || !got[0].Date.Equal(date("2024-02-29")) {
		t.Errorf("unexpected rows %v", got)
	}
}

func TestInvoiceMemRepo_MaxSequenceAndUniqueness(t *testing.T) {
	ctx := context.Background()
	repo := NewInvoiceMemRepo()
	for _, n := range []string{"INV-2025-001", "INV-2025-007", "INV-2024-020"} {
		if _, err := repo.Create(ctx, InvoiceRow{InvoiceNumber: n, ClinicID: "C1"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if max, _ := repo.MaxSequence(ctx, 2025); max != 7 {
		t.Errorf("MaxSequence(2025) = %d, want 7", max)
	}
	if max, _ := repo.MaxSequence(ctx, 2023); max != 0 {
		t.Errorf("MaxSequence(2023) = %d, want 0", max)
	}
	if _, err := repo.Create(ctx, InvoiceRow{InvoiceNumber: "INV-2025-007"}); err == nil {
		t.Error("expected duplicate invoice number error")
	}
}

package timecard

import (
	"context"
	"testing"
)

func TestComputePay(t *testing.T) {
	tests := []struct {
		hours, rate, want float64
	}{
		{8, 25, 200},
		{7.5, 19.99, 149.93},
		{0, 40, 0},
		{0.1, 0.2, 0.02},
	}
	for _, tt := range tests {
		if got := ComputePay(tt.hours, tt.rate); got != tt.want {
			t.Errorf("ComputePay(%v, %v) = %v, want %v", tt.hours, tt.rate, got, tt.want)
		}
	}
}

func TestEntry_RoundTrip(t *testing.T) {
	e := Entry{
		ID: "t1", EmployeeID: "emp-7", ClinicID: "C1", Date: "2025-06-02",
		HoursWorked: 8, HourlyRate: 30, Status: StatusSubmitted, Notes: "covered front desk",
	}.WithPay()
	if e.TotalPay != 240 {
		t.Fatalf("TotalPay = %v", e.TotalPay)
	}
	row, err := e.ToRow()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := FromRow(row); got != e {
		t.Errorf("round trip = %+v, want %+v", got, e)
	}
}

func TestEntry_ToRowDefaultsDraft(t *testing.T) {
	row, err := Entry{EmployeeID: "e", ClinicID: "c", Date: "2025-06-02"}.ToRow()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if row.Status != string(StatusDraft) {
		t.Errorf("status = %q, want draft", row.Status)
	}
}

func TestPatch_RepriceRecomputesPay(t *testing.T) {
	current := Entry{HoursWorked: 8, HourlyRate: 30}.WithPay()
	hours := 6.0
	cols, err := Patch{HoursWorked: &hours}.Reprice(current).Columns()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cols["total_pay"] != 180.0 {
		t.Errorf("total_pay = %v, want 180", cols["total_pay"])
	}

	notes := "x"
	cols, _ = Patch{Notes: &notes}.Reprice(current).Columns()
	if _, ok := cols["total_pay"]; ok {
		t.Error("notes-only patch must not touch total_pay")
	}
}

func TestTransitions(t *testing.T) {
	if !Transitions.Can(StatusDraft, StatusSubmitted) || !Transitions.Can(StatusSubmitted, StatusApproved) {
		t.Error("draft -> submitted -> approved should be legal")
	}
	if Transitions.Can(StatusDraft, StatusApproved) || Transitions.Can(StatusApproved, StatusDraft) {
		t.Error("approval requires submission and is final")
	}
}

func TestMemRepo_Order(t *testing.T) {
	ctx := context.Background()
	repo := NewMemRepo()
	older, _ := Entry{EmployeeID: "e", ClinicID: "C1", Date: "2025-06-01"}.ToRow()
	newer, _ := Entry{EmployeeID: "e", ClinicID: "C1", Date: "2025-06-03"}.ToRow()
	other, _ := Entry{EmployeeID: "e", ClinicID: "C2", Date: "2025-06-02"}.ToRow()
	for _, r := range []Row{older, newer, other} {
		if _, err := repo.Create(ctx, r); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	rows, _ := repo.ListByClinic(ctx, "C1")
	if len(rows) != 2 || !rows[0].Date.After(rows[1].Date) {
		t.Errorf("expected newest first, got %v", rows)
	}
}

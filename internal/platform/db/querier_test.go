package db

import (
	"context"
	"strings"
	"testing"
)

func TestUpdateSQL(t *testing.T) {
	sql, args, err := UpdateSQL("billing_entries", "be-1", Columns{
		"status": "approved",
		"amount": 120.5,
	}, "id, status")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "UPDATE billing_entries SET amount = $2, status = $3, updated_at = NOW() WHERE id = $1 RETURNING id, status"
	if sql != want {
		t.Errorf("unexpected SQL:\n got %s\nwant %s", sql, want)
	}
	if len(args) != 3 || args[0] != "be-1" || args[1] != 120.5 || args[2] != "approved" {
		t.Errorf("unexpected args: %v", args)
	}
}

func TestUpdateSQL_NoColumns(t *testing.T) {
	_, _, err := UpdateSQL("clinics", "c-1", Columns{}, "id")
	if err == nil || !strings.Contains(err.Error(), "no columns") {
		t.Fatalf("expected no columns error, got %v", err)
	}
}

func TestTxFromContext_Empty(t *testing.T) {
	if tx := TxFromContext(context.Background()); tx != nil {
		t.Error("expected nil tx for bare context")
	}
}

package admin

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"

	"github.com/clinicbill/clinicbill/internal/platform/db"
)

func TestClinicMemRepo_CRUD(t *testing.T) {
	ctx := context.Background()
	repo := NewClinicMemRepo()

	b, err := repo.Create(ctx, ClinicRow{Name: "Bayview", Active: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.ID == "" || b.CreatedAt.IsZero() {
		t.Errorf("expected generated id and created_at, got %+v", b)
	}
	if _, err := repo.Create(ctx, ClinicRow{Name: "Aspen", Active: true}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rows, _ := repo.List(ctx)
	if len(rows) != 2 || rows[0].Name != "Aspen" || rows[1].Name != "Bayview" {
		t.Errorf("expected name order, got %+v", rows)
	}

	updated, err := repo.Update(ctx, b.ID, db.Columns{"active": false, "phone": "555"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Active || updated.Phone != "555" || updated.Name != "Bayview" {
		t.Errorf("unexpected update result %+v", updated)
	}

	if _, err := repo.Update(ctx, b.ID, db.Columns{"colour": "red"}); err == nil {
		t.Error("expected unknown column error")
	}
	if _, err := repo.Update(ctx, "missing", db.Columns{"name": "x"}); !errors.Is(err, pgx.ErrNoRows) {
		t.Errorf("expected ErrNoRows, got %v", err)
	}

	if err := repo.Delete(ctx, b.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := repo.Delete(ctx, b.ID); !errors.Is(err, pgx.ErrNoRows) {
		t.Errorf("expected ErrNoRows on second delete, got %v", err)
	}
}

func TestProviderMemRepo_ListByClinic(t *testing.T) {
	ctx := context.Background()
	repo := NewProviderMemRepo()
	for _, p := range []ProviderRow{
		{Name: "Zed", ClinicID: "c1"},
		{Name: "Amy", ClinicID: "c1"},
		{Name: "Bob", ClinicID: "c2"},
	} {
		if _, err := repo.Create(ctx, p); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	rows, _ := repo.ListByClinic(ctx, "c1")
	if len(rows) != 2 || rows[0].Name != "Amy" || rows[1].Name != "Zed" {
		t.Errorf("unexpected rows %+v", rows)
	}
}

func TestUserProfileMemRepo_KeepsAuthID(t *testing.T) {
	ctx := context.Background()
	repo := NewUserProfileMemRepo()
	if _, err := repo.Create(ctx, UserProfileRow{ID: "auth-user-1", Email: "a@b.io", Name: "Ann", Role: "provider"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := repo.GetByID(ctx, "auth-user-1")
	if err != nil || got.Email != "a@b.io" {
		t.Fatalf("GetByID = %+v, %v", got, err)
	}
	var dup *db.DuplicateKeyError
	if _, err := repo.Create(ctx, UserProfileRow{ID: "auth-user-1"}); !errors.As(err, &dup) {
		t.Errorf("expected duplicate key error, got %v", err)
	}
	updated, err := repo.Update(ctx, "auth-user-1", db.Columns{"clinic_id": ptrStr("c1")})
	if err != nil || updated.ClinicID == nil || *updated.ClinicID != "c1" {
		t.Errorf("unexpected update %+v, %v", updated, err)
	}
}

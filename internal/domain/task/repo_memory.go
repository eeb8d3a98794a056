package task

import (
	"context"
	"time"

	"github.com/clinicbill/clinicbill/internal/platform/db"
)

var schema = db.MemSchema[Row]{
	Table: "todo_items",
	ID:    func(r *Row) *string { return &r.ID },
	Touch: func(r *Row, now time.Time, created bool) {
		if created {
			r.CreatedAt = now
		}
		r.UpdatedAt = now
	},
	Apply: func(r *Row, cols db.Columns) error {
		for _, name := range cols.Names() {
			v := cols[name]
			var err error
			switch name {
			case "clinic_id":
				err = db.SetString(&r.ClinicID, name, v)
			case "claim_id":
				err = db.SetString(&r.ClaimID, name, v)
			case "status":
				err = db.SetString(&r.Status, name, v)
			case "issue":
				err = db.SetString(&r.Issue, name, v)
			case "notes":
				err = db.SetNullString(&r.Notes, name, v)
			case "created_by":
				err = db.SetString(&r.CreatedBy, name, v)
			case "completed_at":
				err = db.SetNullTime(&r.CompletedAt, name, v)
			default:
				err = db.UnknownColumn("todo_items", name)
			}
			if err != nil {
				return err
			}
		}
		return nil
	},
	Less: func(a, b *Row) bool { return a.CreatedAt.After(b.CreatedAt) },
}

type repoMem struct {
	t *db.MemTable[Row]
}

// NewMemRepo returns an in-memory Repository.
func NewMemRepo() Repository {
	return &repoMem{t: db.NewMemTable(schema)}
}

func (r *repoMem) List(_ context.Context) ([]Row, error) {
	return r.t.List(nil), nil
}

func (r *repoMem) ListByClinic(_ context.Context, clinicID string) ([]Row, error) {
	return r.t.List(func(i *Row) bool { return i.ClinicID == clinicID }), nil
}

func (r *repoMem) Create(_ context.Context, row Row) (Row, error) {
	return r.t.Insert(row)
}

func (r *repoMem) Update(_ context.Context, id string, cols db.Columns) (Row, error) {
	return r.t.Update(id, cols)
}

func (r *repoMem) Delete(_ context.Context, id string) error {
	return r.t.Delete(id)
}

package patient

import (
	"context"
	"time"

	"github.com/clinicbill/clinicbill/internal/platform/db"
)

var schema = db.MemSchema[Row]{
	Table: "patients",
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
			case "patient_id":
				err = db.SetString(&r.PatientID, name, v)
			case "first_name":
				err = db.SetString(&r.FirstName, name, v)
			case "last_name":
				err = db.SetString(&r.LastName, name, v)
			case "insurance":
				err = db.SetString(&r.Insurance, name, v)
			case "copay":
				err = db.SetFloat(&r.Copay, name, v)
			case "coinsurance":
				err = db.SetFloat(&r.Coinsurance, name, v)
			case "clinic_id":
				err = db.SetString(&r.ClinicID, name, v)
			default:
				err = db.UnknownColumn("patients", name)
			}
			if err != nil {
				return err
			}
		}
		return nil
	},
	Less: func(a, b *Row) bool {
		if a.LastName != b.LastName {
			return a.LastName < b.LastName
		}
		return a.FirstName < b.FirstName
	},
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
	return r.t.List(func(p *Row) bool { return p.ClinicID == clinicID }), nil
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

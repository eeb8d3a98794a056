package timecard

import (
	"context"
	"time"

	"github.com/clinicbill/clinicbill/internal/platform/db"
)

var schema = db.MemSchema[Row]{
	Table: "timecard_entries",
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
			case "employee_id":
				err = db.SetString(&r.EmployeeID, name, v)
			case "clinic_id":
				err = db.SetString(&r.ClinicID, name, v)
			case "date":
				err = db.SetTime(&r.Date, name, v)
			case "hours_worked":
				err = db.SetFloat(&r.HoursWorked, name, v)
			case "hourly_rate":
				err = db.SetFloat(&r.HourlyRate, name, v)
			case "total_pay":
				err = db.SetFloat(&r.TotalPay, name, v)
			case "status":
				err = db.SetString(&r.Status, name, v)
			case "notes":
				err = db.SetNullString(&r.Notes, name, v)
			default:
				err = db.UnknownColumn("timecard_entries", name)
			}
			if err != nil {
				return err
			}
		}
		return nil
	},
	Less: func(a, b *Row) bool {
		if !a.Date.Equal(b.Date) {
			return a.Date.After(b.Date)
		}
		return a.CreatedAt.After(b.CreatedAt)
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
	return r.t.List(func(e *Row) bool { return e.ClinicID == clinicID }), nil
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

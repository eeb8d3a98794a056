package timecard

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicbill/clinicbill/internal/platform/db"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) db.Querier {
	return db.Pick(ctx, r.pool)
}

const columns = `id, employee_id, clinic_id, date, hours_worked, hourly_rate, total_pay, status, notes,
	created_at, updated_at`

func scan(row pgx.Row) (Row, error) {
	var e Row
	err := row.Scan(
		&e.ID, &e.EmployeeID, &e.ClinicID, &e.Date, &e.HoursWorked, &e.HourlyRate, &e.TotalPay,
		&e.Status, &e.Notes, &e.CreatedAt, &e.UpdatedAt,
	)
	return e, err
}

func collect(rows pgx.Rows, err error) ([]Row, error) {
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Row, error) {
		return scan(row)
	})
}

func (r *repoPG) List(ctx context.Context) ([]Row, error) {
	return collect(r.conn(ctx).Query(ctx,
		`SELECT `+columns+` FROM timecard_entries ORDER BY date DESC, created_at DESC`))
}

func (r *repoPG) ListByClinic(ctx context.Context, clinicID string) ([]Row, error) {
	return collect(r.conn(ctx).Query(ctx,
		`SELECT `+columns+` FROM timecard_entries WHERE clinic_id = $1 ORDER BY date DESC, created_at DESC`, clinicID))
}

func (r *repoPG) Create(ctx context.Context, e Row) (Row, error) {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	return scan(r.conn(ctx).QueryRow(ctx, `
		INSERT INTO timecard_entries (
			id, employee_id, clinic_id, date, hours_worked, hourly_rate, total_pay, status, notes
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+columns,
		e.ID, e.EmployeeID, e.ClinicID, e.Date, e.HoursWorked, e.HourlyRate, e.TotalPay, e.Status, e.Notes,
	))
}

func (r *repoPG) Update(ctx context.Context, id string, cols db.Columns) (Row, error) {
	sql, args, err := db.UpdateSQL("timecard_entries", id, cols, columns)
	if err != nil {
		return Row{}, err
	}
	return scan(r.conn(ctx).QueryRow(ctx, sql, args...))
}

func (r *repoPG) Delete(ctx context.Context, id string) error {
	return db.DeleteByID(ctx, r.conn(ctx), "timecard_entries", id)
}

package patient

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

const columns = `id, patient_id, first_name, last_name, insurance, copay, coinsurance, clinic_id, created_at, updated_at`

func scan(row pgx.Row) (Row, error) {
	var p Row
	err := row.Scan(
		&p.ID, &p.PatientID, &p.FirstName, &p.LastName, &p.Insurance,
		&p.Copay, &p.Coinsurance, &p.ClinicID, &p.CreatedAt, &p.UpdatedAt,
	)
	return p, err
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
		`SELECT `+columns+` FROM patients ORDER BY last_name, first_name`))
}

func (r *repoPG) ListByClinic(ctx context.Context, clinicID string) ([]Row, error) {
	return collect(r.conn(ctx).Query(ctx,
		`SELECT `+columns+` FROM patients WHERE clinic_id = $1 ORDER BY last_name, first_name`, clinicID))
}

func (r *repoPG) Create(ctx context.Context, p Row) (Row, error) {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	return scan(r.conn(ctx).QueryRow(ctx, `
		INSERT INTO patients (id, patient_id, first_name, last_name, insurance, copay, coinsurance, clinic_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+columns,
		p.ID, p.PatientID, p.FirstName, p.LastName, p.Insurance, p.Copay, p.Coinsurance, p.ClinicID,
	))
}

func (r *repoPG) Update(ctx context.Context, id string, cols db.Columns) (Row, error) {
	sql, args, err := db.UpdateSQL("patients", id, cols, columns)
	if err != nil {
		return Row{}, err
	}
	return scan(r.conn(ctx).QueryRow(ctx, sql, args...))
}

func (r *repoPG) Delete(ctx context.Context, id string) error {
	return db.DeleteByID(ctx, r.conn(ctx), "patients", id)
}

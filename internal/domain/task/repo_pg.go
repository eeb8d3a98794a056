package task

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

const columns = `id, clinic_id, claim_id, status, issue, notes, created_by, completed_at, created_at, updated_at`

func scan(row pgx.Row) (Row, error) {
	var i Row
	err := row.Scan(
		&i.ID, &i.ClinicID, &i.ClaimID, &i.Status, &i.Issue, &i.Notes, &i.CreatedBy,
		&i.CompletedAt, &i.CreatedAt, &i.UpdatedAt,
	)
	return i, err
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
	return collect(r.conn(ctx).Query(ctx, `SELECT `+columns+` FROM todo_items ORDER BY created_at DESC`))
}

func (r *repoPG) ListByClinic(ctx context.Context, clinicID string) ([]Row, error) {
	return collect(r.conn(ctx).Query(ctx,
		`SELECT `+columns+` FROM todo_items WHERE clinic_id = $1 ORDER BY created_at DESC`, clinicID))
}

func (r *repoPG) Create(ctx context.Context, i Row) (Row, error) {
	if i.ID == "" {
		i.ID = uuid.New().String()
	}
	return scan(r.conn(ctx).QueryRow(ctx, `
		INSERT INTO todo_items (id, clinic_id, claim_id, status, issue, notes, created_by, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+columns,
		i.ID, i.ClinicID, i.ClaimID, i.Status, i.Issue, i.Notes, i.CreatedBy, i.CompletedAt,
	))
}

func (r *repoPG) Update(ctx context.Context, id string, cols db.Columns) (Row, error) {
	sql, args, err := db.UpdateSQL("todo_items", id, cols, columns)
	if err != nil {
		return Row{}, err
	}
	return scan(r.conn(ctx).QueryRow(ctx, sql, args...))
}

func (r *repoPG) Delete(ctx context.Context, id string) error {
	return db.DeleteByID(ctx, r.conn(ctx), "todo_items", id)
}

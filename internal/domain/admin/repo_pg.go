package admin

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicbill/clinicbill/internal/platform/db"
)

// -- Clinic Repository --

type clinicRepoPG struct {
	pool *pgxpool.Pool
}

func NewClinicRepo(pool *pgxpool.Pool) ClinicRepository {
	return &clinicRepoPG{pool: pool}
}

func (r *clinicRepoPG) conn(ctx context.Context) db.Querier {
	return db.Pick(ctx, r.pool)
}

const clinicColumns = `id, name, address, phone, active, created_at, updated_at`

func scanClinic(row pgx.Row) (ClinicRow, error) {
	var c ClinicRow
	err := row.Scan(&c.ID, &c.Name, &c.Address, &c.Phone, &c.Active, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func collectClinics(rows pgx.Rows, err error) ([]ClinicRow, error) {
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (ClinicRow, error) {
		return scanClinic(row)
	})
}

func (r *clinicRepoPG) List(ctx context.Context) ([]ClinicRow, error) {
	return collectClinics(r.conn(ctx).Query(ctx, `SELECT `+clinicColumns+` FROM clinics ORDER BY name`))
}

func (r *clinicRepoPG) Create(ctx context.Context, c ClinicRow) (ClinicRow, error) {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return scanClinic(r.conn(ctx).QueryRow(ctx, `
		INSERT INTO clinics (id, name, address, phone, active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+clinicColumns,
		c.ID, c.Name, c.Address, c.Phone, c.Active,
	))
}

func (r *clinicRepoPG) Update(ctx context.Context, id string, cols db.Columns) (ClinicRow, error) {
	sql, args, err := db.UpdateSQL("clinics", id, cols, clinicColumns)
	if err != nil {
		return ClinicRow{}, err
	}
	return scanClinic(r.conn(ctx).QueryRow(ctx, sql, args...))
}

func (r *clinicRepoPG) Delete(ctx context.Context, id string) error {
	return db.DeleteByID(ctx, r.conn(ctx), "clinics", id)
}

// -- Provider Repository --

type providerRepoPG struct {
	pool *pgxpool.Pool
}

func NewProviderRepo(pool *pgxpool.Pool) ProviderRepository {
	return &providerRepoPG{pool: pool}
}

func (r *providerRepoPG) conn(ctx context.Context) db.Querier {
	return db.Pick(ctx, r.pool)
}

const providerColumns = `id, name, email, clinic_id, active, created_at, updated_at`

func scanProvider(row pgx.Row) (ProviderRow, error) {
	var p ProviderRow
	err := row.Scan(&p.ID, &p.Name, &p.Email, &p.ClinicID, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func collectProviders(rows pgx.Rows, err error) ([]ProviderRow, error) {
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (ProviderRow, error) {
		return scanProvider(row)
	})
}

func (r *providerRepoPG) List(ctx context.Context) ([]ProviderRow, error) {
	return collectProviders(r.conn(ctx).Query(ctx, `SELECT `+providerColumns+` FROM providers ORDER BY name`))
}

func (r *providerRepoPG) ListByClinic(ctx context.Context, clinicID string) ([]ProviderRow, error) {
	return collectProviders(r.conn(ctx).Query(ctx,
		`SELECT `+providerColumns+` FROM providers WHERE clinic_id = $1 ORDER BY name`, clinicID))
}

func (r *providerRepoPG) Create(ctx context.Context, p ProviderRow) (ProviderRow, error) {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	return scanProvider(r.conn(ctx).QueryRow(ctx, `
		INSERT INTO providers (id, name, email, clinic_id, active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+providerColumns,
		p.ID, p.Name, p.Email, p.ClinicID, p.Active,
	))
}

func (r *providerRepoPG) Update(ctx context.Context, id string, cols db.Columns) (ProviderRow, error) {
	sql, args, err := db.UpdateSQL("providers", id, cols, providerColumns)
	if err != nil {
		return ProviderRow{}, err
	}
	return scanProvider(r.conn(ctx).QueryRow(ctx, sql, args...))
}

func (r *providerRepoPG) Delete(ctx context.Context, id string) error {
	return db.DeleteByID(ctx, r.conn(ctx), "providers", id)
}

// -- User Profile Repository --

type profileRepoPG struct {
	pool *pgxpool.Pool
}

func NewUserProfileRepo(pool *pgxpool.Pool) UserProfileRepository {
	return &profileRepoPG{pool: pool}
}

func (r *profileRepoPG) conn(ctx context.Context) db.Querier {
	return db.Pick(ctx, r.pool)
}

const profileColumns = `id, email, name, role, clinic_id, provider_id, created_at, updated_at`

func scanProfile(row pgx.Row) (UserProfileRow, error) {
	var p UserProfileRow
	err := row.Scan(&p.ID, &p.Email, &p.Name, &p.Role, &p.ClinicID, &p.ProviderID, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (r *profileRepoPG) List(ctx context.Context) ([]UserProfileRow, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+profileColumns+` FROM user_profiles ORDER BY name`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (UserProfileRow, error) {
		return scanProfile(row)
	})
}

func (r *profileRepoPG) GetByID(ctx context.Context, id string) (UserProfileRow, error) {
	return scanProfile(r.conn(ctx).QueryRow(ctx, `SELECT `+profileColumns+` FROM user_profiles WHERE id = $1`, id))
}

// Create inserts the profile. The id is the auth user id and is never
// generated here.
func (r *profileRepoPG) Create(ctx context.Context, p UserProfileRow) (UserProfileRow, error) {
	return scanProfile(r.conn(ctx).QueryRow(ctx, `
		INSERT INTO user_profiles (id, email, name, role, clinic_id, provider_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+profileColumns,
		p.ID, p.Email, p.Name, p.Role, p.ClinicID, p.ProviderID,
	))
}

func (r *profileRepoPG) Update(ctx context.Context, id string, cols db.Columns) (UserProfileRow, error) {
	sql, args, err := db.UpdateSQL("user_profiles", id, cols, profileColumns)
	if err != nil {
		return UserProfileRow{}, err
	}
	return scanProfile(r.conn(ctx).QueryRow(ctx, sql, args...))
}

func (r *profileRepoPG) Delete(ctx context.Context, id string) error {
	return db.DeleteByID(ctx, r.conn(ctx), "user_profiles", id)
}

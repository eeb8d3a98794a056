package admin

import (
	"context"
	"time"

	"github.com/clinicbill/clinicbill/internal/platform/db"
)

var clinicSchema = db.MemSchema[ClinicRow]{
	Table: "clinics",
	ID:    func(r *ClinicRow) *string { return &r.ID },
	Touch: func(r *ClinicRow, now time.Time, created bool) {
		if created {
			r.CreatedAt = now
		}
		r.UpdatedAt = now
	},
	Apply: func(r *ClinicRow, cols db.Columns) error {
		for _, name := range cols.Names() {
			v := cols[name]
			var err error
			switch name {
			case "name":
				err = db.SetString(&r.Name, name, v)
			case "address":
				err = db.SetString(&r.Address, name, v)
			case "phone":
				err = db.SetString(&r.Phone, name, v)
			case "active":
				err = db.SetBool(&r.Active, name, v)
			default:
				err = db.UnknownColumn("clinics", name)
			}
			if err != nil {
				return err
			}
		}
		return nil
	},
	Less: func(a, b *ClinicRow) bool { return a.Name < b.Name },
}

type clinicRepoMem struct {
	t *db.MemTable[ClinicRow]
}

// NewClinicMemRepo returns an in-memory ClinicRepository.
func NewClinicMemRepo() ClinicRepository {
	return &clinicRepoMem{t: db.NewMemTable(clinicSchema)}
}

func (r *clinicRepoMem) List(_ context.Context) ([]ClinicRow, error) {
	return r.t.List(nil), nil
}

func (r *clinicRepoMem) Create(_ context.Context, row ClinicRow) (ClinicRow, error) {
	return r.t.Insert(row)
}

func (r *clinicRepoMem) Update(_ context.Context, id string, cols db.Columns) (ClinicRow, error) {
	return r.t.Update(id, cols)
}

func (r *clinicRepoMem) Delete(_ context.Context, id string) error {
	return r.t.Delete(id)
}

var providerSchema = db.MemSchema[ProviderRow]{
	Table: "providers",
	ID:    func(r *ProviderRow) *string { return &r.ID },
	Touch: func(r *ProviderRow, now time.Time, created bool) {
		if created {
			r.CreatedAt = now
		}
		r.UpdatedAt = now
	},
	Apply: func(r *ProviderRow, cols db.Columns) error {
		for _, name := range cols.Names() {
			v := cols[name]
			var err error
			switch name {
			case "name":
				err = db.SetString(&r.Name, name, v)
			case "email":
				err = db.SetString(&r.Email, name, v)
			case "clinic_id":
				err = db.SetString(&r.ClinicID, name, v)
			case "active":
				err = db.SetBool(&r.Active, name, v)
			default:
				err = db.UnknownColumn("providers", name)
			}
			if err != nil {
				return err
			}
		}
		return nil
	},
	Less: func(a, b *ProviderRow) bool { return a.Name < b.Name },
}

type providerRepoMem struct {
	t *db.MemTable[ProviderRow]
}

// NewProviderMemRepo returns an in-memory ProviderRepository.
func NewProviderMemRepo() ProviderRepository {
	return &providerRepoMem{t: db.NewMemTable(providerSchema)}
}

func (r *providerRepoMem) List(_ context.Context) ([]ProviderRow, error) {
	return r.t.List(nil), nil
}

func (r *providerRepoMem) ListByClinic(_ context.Context, clinicID string) ([]ProviderRow, error) {
	return r.t.List(func(p *ProviderRow) bool { return p.ClinicID == clinicID }), nil
}

func (r *providerRepoMem) Create(_ context.Context, row ProviderRow) (ProviderRow, error) {
	return r.t.Insert(row)
}

func (r *providerRepoMem) Update(_ context.Context, id string, cols db.Columns) (ProviderRow, error) {
	return r.t.Update(id, cols)
}

func (r *providerRepoMem) Delete(_ context.Context, id string) error {
	return r.t.Delete(id)
}

var profileSchema = db.MemSchema[UserProfileRow]{
	Table: "user_profiles",
	ID:    func(r *UserProfileRow) *string { return &r.ID },
	Touch: func(r *UserProfileRow, now time.Time, created bool) {
		if created {
			r.CreatedAt = now
		}
		r.UpdatedAt = now
	},
	Apply: func(r *UserProfileRow, cols db.Columns) error {
		for _, name := range cols.Names() {
			v := cols[name]
			var err error
			switch name {
			case "email":
				err = db.SetString(&r.Email, name, v)
			case "name":
				err = db.SetString(&r.Name, name, v)
			case "role":
				err = db.SetString(&r.Role, name, v)
			case "clinic_id":
				err = db.SetNullString(&r.ClinicID, name, v)
			case "provider_id":
				err = db.SetNullString(&r.ProviderID, name, v)
			default:
				err = db.UnknownColumn("user_profiles", name)
			}
			if err != nil {
				return err
			}
		}
		return nil
	},
	Less: func(a, b *UserProfileRow) bool { return a.Name < b.Name },
}

type profileRepoMem struct {
	t *db.MemTable[UserProfileRow]
}

// NewUserProfileMemRepo returns an in-memory UserProfileRepository.
func NewUserProfileMemRepo() UserProfileRepository {
	return &profileRepoMem{t: db.NewMemTable(profileSchema)}
}

func (r *profileRepoMem) List(_ context.Context) ([]UserProfileRow, error) {
	return r.t.List(nil), nil
}

func (r *profileRepoMem) GetByID(_ context.Context, id string) (UserProfileRow, error) {
	return r.t.Get(id)
}

func (r *profileRepoMem) Create(_ context.Context, row UserProfileRow) (UserProfileRow, error) {
	return r.t.Insert(row)
}

func (r *profileRepoMem) Update(_ context.Context, id string, cols db.Columns) (UserProfileRow, error) {
	return r.t.Update(id, cols)
}

func (r *profileRepoMem) Delete(_ context.Context, id string) error {
	return r.t.Delete(id)
}

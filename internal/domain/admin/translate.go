package admin

import (
	"github.com/clinicbill/clinicbill/internal/platform/auth"
	"github.com/clinicbill/clinicbill/internal/platform/db"
)

func ClinicFromRow(r ClinicRow) Clinic {
	return Clinic{ID: r.ID, Name: r.Name, Address: r.Address, Phone: r.Phone, Active: r.Active}
}

func (c Clinic) ToRow() (ClinicRow, error) {
	return ClinicRow{ID: c.ID, Name: c.Name, Address: c.Address, Phone: c.Phone, Active: c.Active}, nil
}

func (p ClinicPatch) Columns() (db.Columns, error) {
	cols := db.Columns{}
	if p.Name != nil {
		cols["name"] = *p.Name
	}
	if p.Address != nil {
		cols["address"] = *p.Address
	}
	if p.Phone != nil {
		cols["phone"] = *p.Phone
	}
	if p.Active != nil {
		cols["active"] = *p.Active
	}
	return cols, nil
}

func ProviderFromRow(r ProviderRow) Provider {
	return Provider{ID: r.ID, Name: r.Name, Email: r.Email, ClinicID: r.ClinicID, Active: r.Active}
}

func (p Provider) ToRow() (ProviderRow, error) {
	return ProviderRow{ID: p.ID, Name: p.Name, Email: p.Email, ClinicID: p.ClinicID, Active: p.Active}, nil
}

func (p ProviderPatch) Columns() (db.Columns, error) {
	cols := db.Columns{}
	if p.Name != nil {
		cols["name"] = *p.Name
	}
	if p.Email != nil {
		cols["email"] = *p.Email
	}
	if p.ClinicID != nil {
		cols["clinic_id"] = *p.ClinicID
	}
	if p.Active != nil {
		cols["active"] = *p.Active
	}
	return cols, nil
}

func UserProfileFromRow(r UserProfileRow) UserProfile {
	return UserProfile{
		ID:         r.ID,
		Email:      r.Email,
		Name:       r.Name,
		Role:       auth.Role(r.Role),
		ClinicID:   db.StringValue(r.ClinicID),
		ProviderID: db.StringValue(r.ProviderID),
	}
}

func (p UserProfile) ToRow() (UserProfileRow, error) {
	return UserProfileRow{
		ID:         p.ID,
		Email:      p.Email,
		Name:       p.Name,
		Role:       string(p.Role),
		ClinicID:   db.NullString(p.ClinicID),
		ProviderID: db.NullString(p.ProviderID),
	}, nil
}

func (p UserProfilePatch) Columns() (db.Columns, error) {
	cols := db.Columns{}
	if p.Email != nil {
		cols["email"] = *p.Email
	}
	if p.Name != nil {
		cols["name"] = *p.Name
	}
	if p.Role != nil {
		cols["role"] = string(*p.Role)
	}
	if p.ClinicID != nil {
		cols["clinic_id"] = db.NullString(*p.ClinicID)
	}
	if p.ProviderID != nil {
		cols["provider_id"] = db.NullString(*p.ProviderID)
	}
	return cols, nil
}

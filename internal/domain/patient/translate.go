package patient

import "github.com/clinicbill/clinicbill/internal/platform/db"

func FromRow(r Row) Patient {
	return Patient{
		ID:          r.ID,
		PatientID:   r.PatientID,
		FirstName:   r.FirstName,
		LastName:    r.LastName,
		Insurance:   r.Insurance,
		Copay:       r.Copay,
		Coinsurance: r.Coinsurance,
		ClinicID:    r.ClinicID,
	}
}

func (p Patient) ToRow() (Row, error) {
	return Row{
		ID:          p.ID,
		PatientID:   p.PatientID,
		FirstName:   p.FirstName,
		LastName:    p.LastName,
		Insurance:   p.Insurance,
		Copay:       p.Copay,
		Coinsurance: p.Coinsurance,
		ClinicID:    p.ClinicID,
	}, nil
}

func (p Patch) Columns() (db.Columns, error) {
	cols := db.Columns{}
	if p.PatientID != nil {
		cols["patient_id"] = *p.PatientID
	}
	if p.FirstName != nil {
		cols["first_name"] = *p.FirstName
	}
	if p.LastName != nil {
		cols["last_name"] = *p.LastName
	}
	if p.Insurance != nil {
		cols["insurance"] = *p.Insurance
	}
	if p.Copay != nil {
		cols["copay"] = *p.Copay
	}
	if p.Coinsurance != nil {
		cols["coinsurance"] = *p.Coinsurance
	}
	if p.ClinicID != nil {
		cols["clinic_id"] = *p.ClinicID
	}
	return cols, nil
}

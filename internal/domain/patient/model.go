// Package patient holds the clinic patient roster.
package patient

import "time"

// Patient is the patient view-model. PatientID is the clinic's external
// identifier, distinct from the row id.
type Patient struct {
	ID          string  `json:"id"`
	PatientID   string  `json:"patientId" validate:"required"`
	FirstName   string  `json:"firstName" validate:"required"`
	LastName    string  `json:"lastName" validate:"required"`
	Insurance   string  `json:"insurance"`
	Copay       float64 `json:"copay" validate:"gte=0"`
	Coinsurance float64 `json:"coinsurance" validate:"gte=0"`
	ClinicID    string  `json:"clinicId" validate:"required"`
}

// FullName renders "First Last".
func (p Patient) FullName() string {
	return p.FirstName + " " + p.LastName
}

// Row maps to the patients table.
type Row struct {
	ID          string    `db:"id"`
	PatientID   string    `db:"patient_id"`
	FirstName   string    `db:"first_name"`
	LastName    string    `db:"last_name"`
	Insurance   string    `db:"insurance"`
	Copay       float64   `db:"copay"`
	Coinsurance float64   `db:"coinsurance"`
	ClinicID    string    `db:"clinic_id"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// Patch is a partial patient update.
type Patch struct {
	PatientID   *string  `json:"patientId,omitempty" validate:"omitempty,min=1"`
	FirstName   *string  `json:"firstName,omitempty" validate:"omitempty,min=1"`
	LastName    *string  `json:"lastName,omitempty" validate:"omitempty,min=1"`
	Insurance   *string  `json:"insurance,omitempty"`
	Copay       *float64 `json:"copay,omitempty" validate:"omitempty,gte=0"`
	Coinsurance *float64 `json:"coinsurance,omitempty" validate:"omitempty,gte=0"`
	ClinicID    *string  `json:"clinicId,omitempty" validate:"omitempty,min=1"`
}

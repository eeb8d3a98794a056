package api

import (
	"github.com/labstack/echo/v4"

	"github.com/clinicbill/clinicbill/internal/domain/patient"
	"github.com/clinicbill/clinicbill/internal/platform/auth"
	"github.com/clinicbill/clinicbill/internal/store"
)

func (s *Server) registerPatients(g *echo.Group) {
	resource[patient.Patient, patient.Patch]{
		path:    "/patients",
		all:     (*store.Store).Patients,
		one:     (*store.Store).Patient,
		add:     (*store.Store).AddPatient,
		edit:    (*store.Store).UpdatePatient,
		del:     (*store.Store).DeletePatient,
		scopeOf: func(v patient.Patient) scope { return scope{ClinicID: v.ClinicID} },
		moved: func(v patient.Patient, p patient.Patch) patient.Patient {
			v.ClinicID = ptrOr(p.ClinicID, v.ClinicID)
			return v
		},
		writers: []auth.Role{auth.RoleOfficeStaff, auth.RoleBillingStaff},
	}.register(g)
}

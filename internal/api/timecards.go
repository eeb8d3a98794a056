package api

import (
	"github.com/labstack/echo/v4"

	"github.com/clinicbill/clinicbill/internal/domain/timecard"
	"github.com/clinicbill/clinicbill/internal/platform/auth"
	"github.com/clinicbill/clinicbill/internal/store"
)

func (s *Server) registerTimecards(g *echo.Group) {
	resource[timecard.Entry, timecard.Patch]{
		path: "/timecards",
		all:  (*store.Store).TimecardEntries,
		one:  (*store.Store).TimecardEntry,
		add:  (*store.Store).AddTimecardEntry,
		edit: (*store.Store).UpdateTimecardEntry,
		del:  (*store.Store).DeleteTimecardEntry,
		scopeOf: func(v timecard.Entry) scope {
			return scope{ClinicID: v.ClinicID, Status: string(v.Status), Date: v.Date}
		},
		moved: func(v timecard.Entry, p timecard.Patch) timecard.Entry {
			v.ClinicID = ptrOr(p.ClinicID, v.ClinicID)
			return v
		},
		writers: []auth.Role{auth.RoleOfficeStaff, auth.RoleBillingStaff},
	}.register(g)
}

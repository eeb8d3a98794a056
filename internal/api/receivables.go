package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/clinicbill/clinicbill/internal/domain/billing"
	"github.com/clinicbill/clinicbill/internal/platform/auth"
	"github.com/clinicbill/clinicbill/internal/store"
	"github.com/clinicbill/clinicbill/pkg/pagination"
)

var receivableResource = resource[billing.AccountsReceivable, billing.ReceivablePatch]{
	path: "/receivables",
	all:  (*store.Store).AccountsReceivable,
	one:  (*store.Store).Receivable,
	add:  (*store.Store).AddAccountsReceivable,
	edit: (*store.Store).UpdateAccountsReceivable,
	del:  (*store.Store).DeleteAccountsReceivable,
	scopeOf: func(v billing.AccountsReceivable) scope {
		return scope{ClinicID: v.ClinicID, Status: string(v.Type), Date: v.Date}
	},
	moved: func(v billing.AccountsReceivable, p billing.ReceivablePatch) billing.AccountsReceivable {
		v.ClinicID = ptrOr(p.ClinicID, v.ClinicID)
		return v
	},
	writers: []auth.Role{auth.RoleBillingStaff, auth.RoleOfficeStaff},
}

func (s *Server) registerReceivables(g *echo.Group) {
	g.POST("/receivables/refresh", s.refreshReceivables)
	receivableResource.register(g)
}

func (s *Server) refreshReceivables(c echo.Context) error {
	var req refreshRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}
	p := principalFrom(c)
	if p.Role == auth.RoleProvider {
		return echo.NewHTTPError(http.StatusForbidden, "receivables are clinic records")
	}
	req, err := req.scoped(p)
	if err != nil {
		return err
	}
	st := workspaceFrom(c).Store
	f := billing.ReceivableFilter{ClinicID: req.ClinicID, Month: req.Month}
	if err := st.RefreshAccountsReceivable(c.Request().Context(), f); err != nil {
		return httpError(err)
	}
	items := visibleOnly(p, st.AccountsReceivable(), receivableResource.visible)
	return c.JSON(http.StatusOK, pagination.Page(items, pagination.FromContext(c)))
}

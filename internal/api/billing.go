package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/clinicbill/clinicbill/internal/domain/billing"
	"github.com/clinicbill/clinicbill/internal/platform/auth"
	"github.com/clinicbill/clinicbill/internal/store"
	"github.com/clinicbill/clinicbill/pkg/pagination"
	"github.com/clinicbill/clinicbill/pkg/period"
)

var entryResource = resource[billing.BillingEntry, billing.EntryPatch]{
	path: "/billing-entries",
	all:  (*store.Store).BillingEntries,
	one:  (*store.Store).BillingEntry,
	add:  (*store.Store).AddBillingEntry,
	edit: (*store.Store).UpdateBillingEntry,
	del:  (*store.Store).DeleteBillingEntry,
	scopeOf: func(v billing.BillingEntry) scope {
		return scope{ClinicID: v.ClinicID, ProviderID: v.ProviderID, Status: string(v.Status), Date: v.Date}
	},
	canSee: func(p auth.Principal, v billing.BillingEntry) bool {
		return p.CanSeeEntry(v.ClinicID, v.ProviderID)
	},
	moved: func(v billing.BillingEntry, p billing.EntryPatch) billing.BillingEntry {
		v.ClinicID = ptrOr(p.ClinicID, v.ClinicID)
		v.ProviderID = ptrOr(p.ProviderID, v.ProviderID)
		return v
	},
	writers: []auth.Role{auth.RoleProvider, auth.RoleOfficeStaff, auth.RoleBillingStaff},
	// Providers submit work; only staff move it through review.
	beforeAdd: func(p auth.Principal, v *billing.BillingEntry) error {
		if p.Role != auth.RoleProvider {
			return nil
		}
		if v.Status != "" && v.Status != billing.EntryPending {
			return echo.NewHTTPError(http.StatusForbidden, "providers can only submit pending entries")
		}
		v.Status = billing.EntryPending
		return nil
	},
	beforeEdit: func(p auth.Principal, current billing.BillingEntry, patch billing.EntryPatch) error {
		if p.Role == auth.RoleProvider && patch.Status != nil && *patch.Status != current.Status {
			return echo.NewHTTPError(http.StatusForbidden, "providers cannot change entry status")
		}
		return nil
	},
}

var issueResource = resource[billing.ClaimIssue, billing.IssuePatch]{
	path: "/claim-issues",
	all:  (*store.Store).ClaimIssues,
	one:  (*store.Store).ClaimIssue,
	add:  (*store.Store).AddClaimIssue,
	edit: (*store.Store).UpdateClaimIssue,
	del:  (*store.Store).DeleteClaimIssue,
	scopeOf: func(v billing.ClaimIssue) scope {
		return scope{ClinicID: v.ClinicID, ProviderID: v.ProviderID, Status: string(v.Status), Date: datePart(v.CreatedAt)}
	},
	canSee: func(p auth.Principal, v billing.ClaimIssue) bool {
		return p.CanSeeEntry(v.ClinicID, v.ProviderID)
	},
	moved: func(v billing.ClaimIssue, p billing.IssuePatch) billing.ClaimIssue {
		v.ClinicID = ptrOr(p.ClinicID, v.ClinicID)
		v.ProviderID = ptrOr(p.ProviderID, v.ProviderID)
		return v
	},
	writers: []auth.Role{auth.RoleOfficeStaff, auth.RoleBillingStaff},
}

func (s *Server) registerBilling(g *echo.Group) {
	g.POST("/billing-entries/refresh", s.refreshEntries)
	entryResource.register(g)
	issueResource.register(g)

	g.GET("/revenue/clinics/:id", s.clinicRevenue)
	g.GET("/revenue/providers/:id", s.providerRevenue)
}

type refreshRequest struct {
	ClinicID   string `json:"clinicId"`
	ProviderID string `json:"providerId"`
	Month      string `json:"month"`
}

// scoped pins the request to what the principal may load. Admins keep the
// filter they asked for.
func (r refreshRequest) scoped(p auth.Principal) (refreshRequest, error) {
	switch {
	case p.Role.IsAdmin():
	case p.Role == auth.RoleProvider:
		if p.ProviderID == "" {
			return r, echo.NewHTTPError(http.StatusForbidden, "profile has no provider affiliation")
		}
		r.ProviderID = p.ProviderID
	default:
		if p.ClinicID == "" {
			return r, echo.NewHTTPError(http.StatusForbidden, "profile has no clinic affiliation")
		}
		r.ClinicID = p.ClinicID
	}
	if r.Month != "" {
		if _, err := period.ParseMonth(r.Month); err != nil {
			return r, echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
	}
	return r, nil
}

// refreshEntries replaces the loaded billing entries with the scoped query
// and answers with the visible result.
func (s *Server) refreshEntries(c echo.Context) error {
	var req refreshRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}
	p := principalFrom(c)
	req, err := req.scoped(p)
	if err != nil {
		return err
	}
	st := workspaceFrom(c).Store
	f := billing.EntryFilter{ClinicID: req.ClinicID, ProviderID: req.ProviderID, Month: req.Month}
	if err := st.RefreshBillingEntries(c.Request().Context(), f); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.Page(visibleOnly(p, st.BillingEntries(), entryResource.visible), pagination.FromContext(c)))
}

type revenueResponse struct {
	ID      string  `json:"id"`
	Revenue float64 `json:"revenue"`
}

func (s *Server) clinicRevenue(c echo.Context) error {
	id := c.Param("id")
	st := workspaceFrom(c).Store
	if _, err := st.Clinic(id); err != nil {
		return httpError(err)
	}
	if !principalFrom(c).CanSeeClinic(id) {
		return echo.NewHTTPError(http.StatusNotFound, "record not found")
	}
	return c.JSON(http.StatusOK, revenueResponse{ID: id, Revenue: st.ClinicRevenue(id)})
}

func (s *Server) providerRevenue(c echo.Context) error {
	id := c.Param("id")
	st := workspaceFrom(c).Store
	pr, err := st.Provider(id)
	if err != nil {
		return httpError(err)
	}
	if !principalFrom(c).CanSeeEntry(pr.ClinicID, pr.ID) {
		return echo.NewHTTPError(http.StatusNotFound, "record not found")
	}
	return c.JSON(http.StatusOK, revenueResponse{ID: id, Revenue: st.ProviderRevenue(id)})
}

func visibleOnly[T any](p auth.Principal, items []T, visible func(auth.Principal, T) bool) []T {
	out := make([]T, 0, len(items))
	for _, v := range items {
		if visible(p, v) {
			out = append(out, v)
		}
	}
	return out
}

// datePart trims an RFC 3339 timestamp to its calendar date.
func datePart(ts string) string {
	if len(ts) < len(period.DateLayout) {
		return ts
	}
	return ts[:len(period.DateLayout)]
}

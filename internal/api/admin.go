package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/clinicbill/clinicbill/internal/domain/admin"
	"github.com/clinicbill/clinicbill/internal/platform/auth"
	"github.com/clinicbill/clinicbill/internal/store"
)

func (s *Server) registerAdmin(g *echo.Group) {
	resource[admin.Clinic, admin.ClinicPatch]{
		path:    "/clinics",
		all:     (*store.Store).Clinics,
		one:     (*store.Store).Clinic,
		add:     (*store.Store).AddClinic,
		edit:    (*store.Store).UpdateClinic,
		del:     (*store.Store).DeleteClinic,
		scopeOf: func(v admin.Clinic) scope { return scope{ClinicID: v.ID} },
		writers: []auth.Role{auth.RoleAdmin},
	}.register(g)

	resource[admin.Provider, admin.ProviderPatch]{
		path:    "/providers",
		all:     (*store.Store).Providers,
		one:     (*store.Store).Provider,
		add:     (*store.Store).AddProvider,
		edit:    (*store.Store).UpdateProvider,
		del:     (*store.Store).DeleteProvider,
		scopeOf: func(v admin.Provider) scope { return scope{ClinicID: v.ClinicID, ProviderID: v.ID} },
		// A provider always sees its own record.
		canSee: func(p auth.Principal, v admin.Provider) bool {
			return p.CanSeeClinic(v.ClinicID) || (p.ProviderID != "" && p.ProviderID == v.ID)
		},
		writers: []auth.Role{auth.RoleAdmin},
	}.register(g)

	resource[admin.UserProfile, admin.UserProfilePatch]{
		path:    "/user-profiles",
		all:     (*store.Store).UserProfiles,
		one:     (*store.Store).UserProfile,
		add:     (*store.Store).AddUserProfile,
		edit:    (*store.Store).UpdateUserProfile,
		del:     (*store.Store).DeleteUserProfile,
		scopeOf: func(v admin.UserProfile) scope { return scope{ClinicID: v.ClinicID, ProviderID: v.ProviderID} },
		readers: []auth.Role{auth.RoleAdmin},
		writers: []auth.Role{auth.RoleAdmin},
		beforeAdd: func(p auth.Principal, v *admin.UserProfile) error {
			return grantable(p, v.Role)
		},
		beforeEdit: func(p auth.Principal, _ admin.UserProfile, patch admin.UserProfilePatch) error {
			if patch.Role == nil {
				return nil
			}
			return grantable(p, *patch.Role)
		},
	}.register(g)

	g.GET("/me", s.me)
}

func grantable(p auth.Principal, r auth.Role) error {
	if r == auth.RoleSuperAdmin && p.Role != auth.RoleSuperAdmin {
		return echo.NewHTTPError(http.StatusForbidden, "only a super admin can grant super_admin")
	}
	return nil
}

// me returns the caller's own profile.
func (s *Server) me(c echo.Context) error {
	profile, err := workspaceFrom(c).Store.UserProfile(principalFrom(c).UserID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, profile)
}

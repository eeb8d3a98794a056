package auth

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// Role is the durable role recorded on a user profile.
type Role string

const (
	RoleProvider      Role = "provider"
	RoleOfficeStaff   Role = "office_staff"
	RoleBillingStaff  Role = "billing_staff"
	RoleBillingViewer Role = "billing_viewer"
	RoleAdmin         Role = "admin"
	RoleSuperAdmin    Role = "super_admin"
)

// Roles lists every role in privilege order.
var Roles = []Role{RoleProvider, RoleOfficeStaff, RoleBillingStaff, RoleBillingViewer, RoleAdmin, RoleSuperAdmin}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	for _, known := range Roles {
		if r == known {
			return true
		}
	}
	return false
}

// IsAdmin reports whether r sees and manages every clinic.
func (r Role) IsAdmin() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

// ClinicScoped reports whether r is limited to its own clinic.
func (r Role) ClinicScoped() bool {
	return r == RoleOfficeStaff || r == RoleBillingStaff || r == RoleBillingViewer
}

// ParseRole converts s to a Role, rejecting unknown values.
func ParseRole(s string) (Role, error) {
	r := Role(strings.TrimSpace(s))
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

// RequireRole returns middleware that admits principals holding one of roles.
// Admins and super admins are always admitted.
func RequireRole(roles ...Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, ok := PrincipalFromContext(c.Request().Context())
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "not signed in")
			}
			if p.Role.IsAdmin() {
				return next(c)
			}
			for _, required := range roles {
				if p.Role == required {
					return next(c)
				}
			}
			names := make([]string, len(roles))
			for i, r := range roles {
				names[i] = string(r)
			}
			return echo.NewHTTPError(http.StatusForbidden,
				fmt.Sprintf("required role: %s", strings.Join(names, " or ")))
		}
	}
}

package auth

import "context"

// Principal is the role-scoped identity derived from the signed-in account's
// user profile. ClinicID and ProviderID are empty when the profile has no
// affiliation.
type Principal struct {
	UserID     string `json:"userId"`
	Email      string `json:"email"`
	Name       string `json:"name"`
	Role       Role   `json:"role"`
	ClinicID   string `json:"clinicId,omitempty"`
	ProviderID string `json:"providerId,omitempty"`
}

// CanSeeEntry applies the billing-entry visibility rule: providers see their
// own entries regardless of clinic, clinic staff see their clinic, admins see
// everything.
func (p Principal) CanSeeEntry(clinicID, providerID string) bool {
	switch {
	case p.Role.IsAdmin():
		return true
	case p.Role == RoleProvider:
		return p.ProviderID != "" && providerID == p.ProviderID
	case p.Role.ClinicScoped():
		return p.ClinicID != "" && clinicID == p.ClinicID
	}
	return false
}

// CanSeeClinic applies the clinic visibility rule used for records that carry
// no provider reference (patients, invoices, todo items, receivables, ...).
func (p Principal) CanSeeClinic(clinicID string) bool {
	if p.Role.IsAdmin() {
		return true
	}
	return p.ClinicID != "" && clinicID == p.ClinicID
}

// ReadOnly reports whether the principal may only read.
func (p Principal) ReadOnly() bool {
	return p.Role == RoleBillingViewer
}

type principalKey struct{}

// WithPrincipal stores p on ctx.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext returns the principal stored by WithPrincipal.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

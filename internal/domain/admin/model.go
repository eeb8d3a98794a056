// Package admin holds the directory entities managed by administrators:
// clinics, providers and user profiles.
package admin

import (
	"time"

	"github.com/clinicbill/clinicbill/internal/platform/auth"
)

// Clinic is the clinic view-model.
type Clinic struct {
	ID      string `json:"id"`
	Name    string `json:"name" validate:"required"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
	Active  bool   `json:"active"`
}

// ClinicRow maps to the clinics table.
type ClinicRow struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	Address   string    `db:"address"`
	Phone     string    `db:"phone"`
	Active    bool      `db:"active"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// ClinicPatch is a partial clinic update; nil fields are left unchanged.
// Deactivation is an ordinary Active=false update.
type ClinicPatch struct {
	Name    *string `json:"name,omitempty" validate:"omitempty,min=1"`
	Address *string `json:"address,omitempty"`
	Phone   *string `json:"phone,omitempty"`
	Active  *bool   `json:"active,omitempty"`
}

// Provider is a billing provider affiliated with exactly one clinic.
type Provider struct {
	ID       string `json:"id"`
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"omitempty,email"`
	ClinicID string `json:"clinicId" validate:"required"`
	Active   bool   `json:"active"`
}

// ProviderRow maps to the providers table.
type ProviderRow struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	Email     string    `db:"email"`
	ClinicID  string    `db:"clinic_id"`
	Active    bool      `db:"active"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

type ProviderPatch struct {
	Name     *string `json:"name,omitempty" validate:"omitempty,min=1"`
	Email    *string `json:"email,omitempty" validate:"omitempty,email"`
	ClinicID *string `json:"clinicId,omitempty" validate:"omitempty,min=1"`
	Active   *bool   `json:"active,omitempty"`
}

// UserProfile is the durable record of an authenticated account. Its ID is
// the auth provider's user id.
type UserProfile struct {
	ID         string    `json:"id" validate:"required"`
	Email      string    `json:"email" validate:"required,email"`
	Name       string    `json:"name" validate:"required"`
	Role       auth.Role `json:"role" validate:"required,oneof=provider office_staff billing_staff billing_viewer admin super_admin"`
	ClinicID   string    `json:"clinicId,omitempty"`
	ProviderID string    `json:"providerId,omitempty"`
}

// Principal derives the role-scoped identity for p.
func (p UserProfile) Principal() auth.Principal {
	return auth.Principal{
		UserID:     p.ID,
		Email:      p.Email,
		Name:       p.Name,
		Role:       p.Role,
		ClinicID:   p.ClinicID,
		ProviderID: p.ProviderID,
	}
}

// UserProfileRow maps to the user_profiles table.
type UserProfileRow struct {
	ID         string    `db:"id"`
	Email      string    `db:"email"`
	Name       string    `db:"name"`
	Role       string    `db:"role"`
	ClinicID   *string   `db:"clinic_id"`
	ProviderID *string   `db:"provider_id"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

// UserProfilePatch clears an affiliation when given a pointer to "".
type UserProfilePatch struct {
	Email      *string    `json:"email,omitempty" validate:"omitempty,email"`
	Name       *string    `json:"name,omitempty" validate:"omitempty,min=1"`
	Role       *auth.Role `json:"role,omitempty" validate:"omitempty,oneof=provider office_staff billing_staff billing_viewer admin super_admin"`
	ClinicID   *string    `json:"clinicId,omitempty"`
	ProviderID *string    `json:"providerId,omitempty"`
}

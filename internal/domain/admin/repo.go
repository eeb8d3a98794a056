package admin

import (
	"context"

	"github.com/clinicbill/clinicbill/internal/platform/db"
)

// ClinicRepository is the gateway to the clinics table. Every method is one
// round trip; errors are returned as the store reported them.
type ClinicRepository interface {
	List(ctx context.Context) ([]ClinicRow, error)
	Create(ctx context.Context, row ClinicRow) (ClinicRow, error)
	Update(ctx context.Context, id string, cols db.Columns) (ClinicRow, error)
	Delete(ctx context.Context, id string) error
}

// ProviderRepository is the gateway to the providers table.
type ProviderRepository interface {
	List(ctx context.Context) ([]ProviderRow, error)
	ListByClinic(ctx context.Context, clinicID string) ([]ProviderRow, error)
	Create(ctx context.Context, row ProviderRow) (ProviderRow, error)
	Update(ctx context.Context, id string, cols db.Columns) (ProviderRow, error)
	Delete(ctx context.Context, id string) error
}

// UserProfileRepository is the gateway to the user_profiles table.
type UserProfileRepository interface {
	List(ctx context.Context) ([]UserProfileRow, error)
	GetByID(ctx context.Context, id string) (UserProfileRow, error)
	Create(ctx context.Context, row UserProfileRow) (UserProfileRow, error)
	Update(ctx context.Context, id string, cols db.Columns) (UserProfileRow, error)
	Delete(ctx context.Context, id string) error
}

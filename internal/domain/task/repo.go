package task

import (
	"context"

	"github.com/clinicbill/clinicbill/internal/platform/db"
)

// Repository is the gateway to todo_items, newest first.
type Repository interface {
	List(ctx context.Context) ([]Row, error)
	ListByClinic(ctx context.Context, clinicID string) ([]Row, error)
	Create(ctx context.Context, row Row) (Row, error)
	Update(ctx context.Context, id string, cols db.Columns) (Row, error)
	Delete(ctx context.Context, id string) error
}

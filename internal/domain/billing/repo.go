package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/clinicbill/clinicbill/internal/platform/db"
	"github.com/clinicbill/clinicbill/pkg/period"
)

// EntryFilter scopes a billing-entry query. Empty fields do not filter.
// Month is a label such as "January 2025".
type EntryFilter struct {
	ClinicID   string
	ProviderID string
	Month      string
}

// ReceivableFilter scopes an accounts-receivable query.
type ReceivableFilter struct {
	ClinicID string
	Month    string
}

// monthBounds resolves a month label to inclusive DATE bounds.
func monthBounds(label string) (from, to time.Time, ok bool, err error) {
	if label == "" {
		return time.Time{}, time.Time{}, false, nil
	}
	m, err := period.ParseMonth(label)
	if err != nil {
		return time.Time{}, time.Time{}, false, fmt.Errorf("month filter: %w", err)
	}
	return m.First(), m.Last(), true, nil
}

func inRange(d, from, to time.Time) bool {
	return !d.Before(from) && !d.After(to)
}

// EntryRepository is the gateway to billing_entries. Lists are ordered by
// service date, newest first.
type EntryRepository interface {
	List(ctx context.Context) ([]EntryRow, error)
	ListByClinic(ctx context.Context, clinicID string) ([]EntryRow, error)
	ListFiltered(ctx context.Context, f EntryFilter) ([]EntryRow, error)
	Create(ctx context.Context, row EntryRow) (EntryRow, error)
	Update(ctx context.Context, id string, cols db.Columns) (EntryRow, error)
	Delete(ctx context.Context, id string) error
}

// IssueRepository is the gateway to claim_issues, newest first.
type IssueRepository interface {
	List(ctx context.Context) ([]IssueRow, error)
	ListByClinic(ctx context.Context, clinicID string) ([]IssueRow, error)
	Create(ctx context.Context, row IssueRow) (IssueRow, error)
	Update(ctx context.Context, id string, cols db.Columns) (IssueRow, error)
	Delete(ctx context.Context, id string) error
}

// InvoiceRepository is the gateway to invoices, newest issue date first.
type InvoiceRepository interface {
	List(ctx context.Context) ([]InvoiceRow, error)
	ListByClinic(ctx context.Context, clinicID string) ([]InvoiceRow, error)
	// MaxSequence returns the highest INV-<year>-NNN sequence issued, or 0.
	MaxSequence(ctx context.Context, year int) (int, error)
	Create(ctx context.Context, row InvoiceRow) (InvoiceRow, error)
	Update(ctx context.Context, id string, cols db.Columns) (InvoiceRow, error)
	Delete(ctx context.Context, id string) error
}

// ReceivableRepository is the gateway to accounts_receivable, newest first.
type ReceivableRepository interface {
	List(ctx context.Context) ([]ReceivableRow, error)
	ListByClinic(ctx context.Context, clinicID string) ([]ReceivableRow, error)
	ListFiltered(ctx context.Context, f ReceivableFilter) ([]ReceivableRow, error)
	Create(ctx context.Context, row ReceivableRow) (ReceivableRow, error)
	Update(ctx context.Context, id string, cols db.Columns) (ReceivableRow, error)
	Delete(ctx context.Context, id string) error
}

package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/clinicbill/clinicbill/internal/platform/db"
)

func newerFirst(a, b time.Time) bool { return a.After(b) }

// -- BillingEntry --

var entrySchema = db.MemSchema[EntryRow]{
	Table: "billing_entries",
	ID:    func(r *EntryRow) *string { return &r.ID },
	Touch: func(r *EntryRow, now time.Time, created bool) {
		if created {
			r.CreatedAt = now
		}
		r.UpdatedAt = now
	},
	Apply: func(r *EntryRow, cols db.Columns) error {
		for _, name := range cols.Names() {
			v := cols[name]
			var err error
			switch name {
			case "provider_id":
				err = db.SetString(&r.ProviderID, name, v)
			case "clinic_id":
				err = db.SetString(&r.ClinicID, name, v)
			case "date":
				err = db.SetTime(&r.Date, name, v)
			case "patient_name":
				err = db.SetString(&r.PatientName, name, v)
			case "procedure_code":
				err = db.SetString(&r.ProcedureCode, name, v)
			case "description":
				err = db.SetString(&r.Description, name, v)
			case "amount":
				err = db.SetFloat(&r.Amount, name, v)
			case "status":
				err = db.SetString(&r.Status, name, v)
			case "claim_number":
				err = db.SetNullString(&r.ClaimNumber, name, v)
			case "notes":
				err = db.SetNullString(&r.Notes, name, v)
			default:
				err = db.UnknownColumn("billing_entries", name)
			}
			if err != nil {
				return err
			}
		}
		return nil
	},
	Less: func(a, b *EntryRow) bool {
		if !a.Date.Equal(b.Date) {
			return newerFirst(a.Date, b.Date)
		}
		return newerFirst(a.CreatedAt, b.CreatedAt)
	},
}

type entryRepoMem struct {
	t *db.MemTable[EntryRow]
}

// NewEntryMemRepo returns an in-memory EntryRepository.
func NewEntryMemRepo() EntryRepository {
	return &entryRepoMem{t: db.NewMemTable(entrySchema)}
}

func (r *entryRepoMem) List(ctx context.Context) ([]EntryRow, error) {
	return r.ListFiltered(ctx, EntryFilter{})
}

func (r *entryRepoMem) ListByClinic(ctx context.Context, clinicID string) ([]EntryRow, error) {
	return r.ListFiltered(ctx, EntryFilter{ClinicID: clinicID})
}

func (r *entryRepoMem) ListFiltered(_ context.Context, f EntryFilter) ([]EntryRow, error) {
	from, to, byMonth, err := monthBounds(f.Month)
	if err != nil {
		return nil, err
	}
	return r.t.List(func(e *EntryRow) bool {
		return (f.ClinicID == "" || e.ClinicID == f.ClinicID) &&
			(f.ProviderID == "" || e.ProviderID == f.ProviderID) &&
			(!byMonth || inRange(e.Date, from, to))
	}), nil
}

func (r *entryRepoMem) Create(_ context.Context, row EntryRow) (EntryRow, error) {
	return r.t.Insert(row)
}

func (r *entryRepoMem) Update(_ context.Context, id string, cols db.Columns) (EntryRow, error) {
	return r.t.Update(id, cols)
}

func (r *entryRepoMem) Delete(_ context.Context, id string) error {
	return r.t.Delete(id)
}

// -- ClaimIssue --

var issueSchema = db.MemSchema[IssueRow]{
	Table: "claim_issues",
	ID:    func(r *IssueRow) *string { return &r.ID },
	Touch: func(r *IssueRow, now time.Time, created bool) {
		if created {
			r.CreatedAt = now
		}
		r.UpdatedAt = now
	},
	Apply: func(r *IssueRow, cols db.Columns) error {
		for _, name := range cols.Names() {
			v := cols[name]
			var err error
			switch name {
			case "claim_number":
				err = db.SetString(&r.ClaimNumber, name, v)
			case "clinic_id":
				err = db.SetString(&r.ClinicID, name, v)
			case "provider_id":
				err = db.SetString(&r.ProviderID, name, v)
			case "description":
				err = db.SetString(&r.Description, name, v)
			case "priority":
				err = db.SetString(&r.Priority, name, v)
			case "status":
				err = db.SetString(&r.Status, name, v)
			case "assigned_to":
				err = db.SetNullString(&r.AssignedTo, name, v)
			case "due_date":
				err = db.SetNullTime(&r.DueDate, name, v)
			default:
				err = db.UnknownColumn("claim_issues", name)
			}
			if err != nil {
				return err
			}
		}
		return nil
	},
	Less: func(a, b *IssueRow) bool { return newerFirst(a.CreatedAt, b.CreatedAt) },
}

type issueRepoMem struct {
	t *db.MemTable[IssueRow]
}

// NewIssueMemRepo returns an in-memory IssueRepository.
func NewIssueMemRepo() IssueRepository {
	return &issueRepoMem{t: db.NewMemTable(issueSchema)}
}

func (r *issueRepoMem) List(_ context.Context) ([]IssueRow, error) {
	return r.t.List(nil), nil
}

func (r *issueRepoMem) ListByClinic(_ context.Context, clinicID string) ([]IssueRow, error) {
	return r.t.List(func(i *IssueRow) bool { return i.ClinicID == clinicID }), nil
}

func (r *issueRepoMem) Create(_ context.Context, row IssueRow) (IssueRow, error) {
	return r.t.Insert(row)
}

func (r *issueRepoMem) Update(_ context.Context, id string, cols db.Columns) (IssueRow, error) {
	return r.t.Update(id, cols)
}

func (r *issueRepoMem) Delete(_ context.Context, id string) error {
	return r.t.Delete(id)
}

// -- Invoice --

var invoiceSchema = db.MemSchema[InvoiceRow]{
	Table: "invoices",
	ID:    func(r *InvoiceRow) *string { return &r.ID },
	Touch: func(r *InvoiceRow, now time.Time, created bool) {
		if created {
			r.CreatedAt = now
		}
		r.UpdatedAt = now
	},
	Apply: func(r *InvoiceRow, cols db.Columns) error {
		for _, name := range cols.Names() {
			v := cols[name]
			var err error
			switch name {
			case "clinic_id":
				err = db.SetString(&r.ClinicID, name, v)
			case "date":
				err = db.SetTime(&r.Date, name, v)
			case "due_date":
				err = db.SetTime(&r.DueDate, name, v)
			case "status":
				err = db.SetString(&r.Status, name, v)
			case "items":
				items, ok := v.([]InvoiceItemRow)
				if !ok {
					return fmt.Errorf("column %q is of type jsonb but value is %T", name, v)
				}
				r.Items = append([]InvoiceItemRow(nil), items...)
			case "subtotal":
				err = db.SetFloat(&r.Subtotal, name, v)
			case "tax_rate":
				err = db.SetFloat(&r.TaxRate, name, v)
			case "tax_amount":
				err = db.SetFloat(&r.TaxAmount, name, v)
			case "discount_rate":
				err = db.SetFloat(&r.DiscountRate, name, v)
			case "discount_amount":
				err = db.SetFloat(&r.DiscountAmount, name, v)
			case "total":
				err = db.SetFloat(&r.Total, name, v)
			case "notes":
				err = db.SetNullString(&r.Notes, name, v)
			default:
				err = db.UnknownColumn("invoices", name)
			}
			if err != nil {
				return err
			}
		}
		return nil
	},
	Less: func(a, b *InvoiceRow) bool {
		if !a.Date.Equal(b.Date) {
			return newerFirst(a.Date, b.Date)
		}
		return a.InvoiceNumber > b.InvoiceNumber
	},
}

type invoiceRepoMem struct {
	t *db.MemTable[InvoiceRow]
}

// NewInvoiceMemRepo returns an in-memory InvoiceRepository.
func NewInvoiceMemRepo() InvoiceRepository {
	return &invoiceRepoMem{t: db.NewMemTable(invoiceSchema)}
}

func (r *invoiceRepoMem) List(_ context.Context) ([]InvoiceRow, error) {
	return r.t.List(nil), nil
}

func (r *invoiceRepoMem) ListByClinic(_ context.Context, clinicID string) ([]InvoiceRow, error) {
	return r.t.List(func(i *InvoiceRow) bool { return i.ClinicID == clinicID }), nil
}

func (r *invoiceRepoMem) MaxSequence(_ context.Context, year int) (int, error) {
	var numbers []string
	for _, inv := range r.t.List(nil) {
		numbers = append(numbers, inv.InvoiceNumber)
	}
	return MaxSequence(numbers, year), nil
}

func (r *invoiceRepoMem) Create(_ context.Context, row InvoiceRow) (InvoiceRow, error) {
	for _, existing := range r.t.List(nil) {
		if existing.InvoiceNumber == row.InvoiceNumber {
			return InvoiceRow{}, &db.DuplicateKeyError{Table: "invoices_invoice_number", ID: row.InvoiceNumber}
		}
	}
	row.Items = append([]InvoiceItemRow(nil), row.Items...)
	return r.t.Insert(row)
}

func (r *invoiceRepoMem) Update(_ context.Context, id string, cols db.Columns) (InvoiceRow, error) {
	return r.t.Update(id, cols)
}

func (r *invoiceRepoMem) Delete(_ context.Context, id string) error {
	return r.t.Delete(id)
}

// -- AccountsReceivable --

var receivableSchema = db.MemSchema[ReceivableRow]{
	Table: "accounts_receivable",
	ID:    func(r *ReceivableRow) *string { return &r.ID },
	Touch: func(r *ReceivableRow, now time.Time, created bool) {
		if created {
			r.CreatedAt = now
		}
		r.UpdatedAt = now
	},
	Apply: func(r *ReceivableRow, cols db.Columns) error {
		for _, name := range cols.Names() {
			v := cols[name]
			var err error
			switch name {
			case "patient_id":
				err = db.SetString(&r.PatientID, name, v)
			case "clinic_id":
				err = db.SetString(&r.ClinicID, name, v)
			case "date":
				err = db.SetTime(&r.Date, name, v)
			case "amount":
				err = db.SetFloat(&r.Amount, name, v)
			case "type":
				err = db.SetString(&r.Type, name, v)
			case "owed":
				err = db.SetFloat(&r.Owed, name, v)
			case "description":
				err = db.SetNullString(&r.Description, name, v)
			case "notes":
				err = db.SetNullString(&r.Notes, name, v)
			default:
				err = db.UnknownColumn("accounts_receivable", name)
			}
			if err != nil {
				return err
			}
		}
		return nil
	},
	Less: func(a, b *ReceivableRow) bool {
		if !a.Date.Equal(b.Date) {
			return newerFirst(a.Date, b.Date)
		}
		return newerFirst(a.CreatedAt, b.CreatedAt)
	},
}

type receivableRepoMem struct {
	t *db.MemTable[ReceivableRow]
}

// NewReceivableMemRepo returns an in-memory ReceivableRepository.
func NewReceivableMemRepo() ReceivableRepository {
	return &receivableRepoMem{t: db.NewMemTable(receivableSchema)}
}

func (r *receivableRepoMem) List(ctx context.Context) ([]ReceivableRow, error) {
	return r.ListFiltered(ctx, ReceivableFilter{})
}

func (r *receivableRepoMem) ListByClinic(ctx context.Context, clinicID string) ([]ReceivableRow, error) {
	return r.ListFiltered(ctx, ReceivableFilter{ClinicID: clinicID})
}

func (r *receivableRepoMem) ListFiltered(_ context.Context, f ReceivableFilter) ([]ReceivableRow, error) {
	from, to, byMonth, err := monthBounds(f.Month)
	if err != nil {
		return nil, err
	}
	return r.t.List(func(a *ReceivableRow) bool {
		return (f.ClinicID == "" || a.ClinicID == f.ClinicID) && (!byMonth || inRange(a.Date, from, to))
	}), nil
}

func (r *receivableRepoMem) Create(_ context.Context, row ReceivableRow) (ReceivableRow, error) {
	return r.t.Insert(row)
}

func (r *receivableRepoMem) Update(_ context.Context, id string, cols db.Columns) (ReceivableRow, error) {
	return r.t.Update(id, cols)
}

func (r *receivableRepoMem) Delete(_ context.Context, id string) error {
	return r.t.Delete(id)
}

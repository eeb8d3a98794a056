package billing

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicbill/clinicbill/internal/platform/db"
)

// where accumulates "col = $n" clauses.
type where struct {
	clauses []string
	args    []interface{}
}

func (w *where) add(clause string, arg interface{}) {
	w.args = append(w.args, arg)
	w.clauses = append(w.clauses, fmt.Sprintf(clause, len(w.args)))
}

func (w *where) String() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.clauses, " AND ")
}

// -- BillingEntry Repository --

type entryRepoPG struct {
	pool *pgxpool.Pool
}

func NewEntryRepo(pool *pgxpool.Pool) EntryRepository {
	return &entryRepoPG{pool: pool}
}

func (r *entryRepoPG) conn(ctx context.Context) db.Querier {
	return db.Pick(ctx, r.pool)
}

const entryColumns = `id, provider_id, clinic_id, date, patient_name, procedure_code, description,
	amount, status, claim_number, notes, created_at, updated_at`

func scanEntry(row pgx.Row) (EntryRow, error) {
	var e EntryRow
	err := row.Scan(
		&e.ID, &e.ProviderID, &e.ClinicID, &e.Date, &e.PatientName, &e.ProcedureCode, &e.Description,
		&e.Amount, &e.Status, &e.ClaimNumber, &e.Notes, &e.CreatedAt, &e.UpdatedAt,
	)
	return e, err
}

func collectEntries(rows pgx.Rows, err error) ([]EntryRow, error) {
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (EntryRow, error) {
		return scanEntry(row)
	})
}

func (r *entryRepoPG) List(ctx context.Context) ([]EntryRow, error) {
	return r.ListFiltered(ctx, EntryFilter{})
}

func (r *entryRepoPG) ListByClinic(ctx context.Context, clinicID string) ([]EntryRow, error) {
	return r.ListFiltered(ctx, EntryFilter{ClinicID: clinicID})
}

func (r *entryRepoPG) ListFiltered(ctx context.Context, f EntryFilter) ([]EntryRow, error) {
	from, to, byMonth, err := monthBounds(f.Month)
	if err != nil {
		return nil, err
	}
	var w where
	if f.ClinicID != "" {
		w.add("clinic_id = $%d", f.ClinicID)
	}
	if f.ProviderID != "" {
		w.add("provider_id = $%d", f.ProviderID)
	}
	if byMonth {
		w.add("date >= $%d", from)
		w.add("date <= $%d", to)
	}
	return collectEntries(r.conn(ctx).Query(ctx,
		`SELECT `+entryColumns+` FROM billing_entries`+w.String()+` ORDER BY date DESC, created_at DESC`, w.args...))
}

func (r *entryRepoPG) Create(ctx context.Context, e EntryRow) (EntryRow, error) {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	return scanEntry(r.conn(ctx).QueryRow(ctx, `
		INSERT INTO billing_entries (
			id, provider_id, clinic_id, date, patient_name, procedure_code, description,
			amount, status, claim_number, notes
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING `+entryColumns,
		e.ID, e.ProviderID, e.ClinicID, e.Date, e.PatientName, e.ProcedureCode, e.Description,
		e.Amount, e.Status, e.ClaimNumber, e.Notes,
	))
}

func (r *entryRepoPG) Update(ctx context.Context, id string, cols db.Columns) (EntryRow, error) {
	sql, args, err := db.UpdateSQL("billing_entries", id, cols, entryColumns)
	if err != nil {
		return EntryRow{}, err
	}
	return scanEntry(r.conn(ctx).QueryRow(ctx, sql, args...))
}

func (r *entryRepoPG) Delete(ctx context.Context, id string) error {
	return db.DeleteByID(ctx, r.conn(ctx), "billing_entries", id)
}

// -- ClaimIssue Repository --

type issueRepoPG struct {
	pool *pgxpool.Pool
}

func NewIssueRepo(pool *pgxpool.Pool) IssueRepository {
	return &issueRepoPG{pool: pool}
}

func (r *issueRepoPG) conn(ctx context.Context) db.Querier {
	return db.Pick(ctx, r.pool)
}

const issueColumns = `id, claim_number, clinic_id, provider_id, description, priority, status,
	assigned_to, due_date, created_at, updated_at`

func scanIssue(row pgx.Row) (IssueRow, error) {
	var i IssueRow
	err := row.Scan(
		&i.ID, &i.ClaimNumber, &i.ClinicID, &i.ProviderID, &i.Description, &i.Priority, &i.Status,
		&i.AssignedTo, &i.DueDate, &i.CreatedAt, &i.UpdatedAt,
	)
	return i, err
}

func collectIssues(rows pgx.Rows, err error) ([]IssueRow, error) {
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (IssueRow, error) {
		return scanIssue(row)
	})
}

func (r *issueRepoPG) List(ctx context.Context) ([]IssueRow, error) {
	return collectIssues(r.conn(ctx).Query(ctx,
		`SELECT `+issueColumns+` FROM claim_issues ORDER BY created_at DESC`))
}

func (r *issueRepoPG) ListByClinic(ctx context.Context, clinicID string) ([]IssueRow, error) {
	return collectIssues(r.conn(ctx).Query(ctx,
		`SELECT `+issueColumns+` FROM claim_issues WHERE clinic_id = $1 ORDER BY created_at DESC`, clinicID))
}

func (r *issueRepoPG) Create(ctx context.Context, i IssueRow) (IssueRow, error) {
	if i.ID == "" {
		i.ID = uuid.New().String()
	}
	return scanIssue(r.conn(ctx).QueryRow(ctx, `
		INSERT INTO claim_issues (
			id, claim_number, clinic_id, provider_id, description, priority, status, assigned_to, due_date
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+issueColumns,
		i.ID, i.ClaimNumber, i.ClinicID, i.ProviderID, i.Description, i.Priority, i.Status, i.AssignedTo, i.DueDate,
	))
}

func (r *issueRepoPG) Update(ctx context.Context, id string, cols db.Columns) (IssueRow, error) {
	sql, args, err := db.UpdateSQL("claim_issues", id, cols, issueColumns)
	if err != nil {
		return IssueRow{}, err
	}
	return scanIssue(r.conn(ctx).QueryRow(ctx, sql, args...))
}

func (r *issueRepoPG) Delete(ctx context.Context, id string) error {
	return db.DeleteByID(ctx, r.conn(ctx), "claim_issues", id)
}

// -- Invoice Repository --

type invoiceRepoPG struct {
	pool *pgxpool.Pool
}

func NewInvoiceRepo(pool *pgxpool.Pool) InvoiceRepository {
	return &invoiceRepoPG{pool: pool}
}

func (r *invoiceRepoPG) conn(ctx context.Context) db.Querier {
	return db.Pick(ctx, r.pool)
}

const invoiceColumns = `id, invoice_number, clinic_id, date, due_date, status, items,
	subtotal, tax_rate, tax_amount, discount_rate, discount_amount, total, notes, created_at, updated_at`

func scanInvoice(row pgx.Row) (InvoiceRow, error) {
	var inv InvoiceRow
	err := row.Scan(
		&inv.ID, &inv.InvoiceNumber, &inv.ClinicID, &inv.Date, &inv.DueDate, &inv.Status, &inv.Items,
		&inv.Subtotal, &inv.TaxRate, &inv.TaxAmount, &inv.DiscountRate, &inv.DiscountAmount, &inv.Total,
		&inv.Notes, &inv.CreatedAt, &inv.UpdatedAt,
	)
	return inv, err
}

func collectInvoices(rows pgx.Rows, err error) ([]InvoiceRow, error) {
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (InvoiceRow, error) {
		return scanInvoice(row)
	})
}

func (r *invoiceRepoPG) List(ctx context.Context) ([]InvoiceRow, error) {
	return collectInvoices(r.conn(ctx).Query(ctx,
		`SELECT `+invoiceColumns+` FROM invoices ORDER BY date DESC, invoice_number DESC`))
}

func (r *invoiceRepoPG) ListByClinic(ctx context.Context, clinicID string) ([]InvoiceRow, error) {
	return collectInvoices(r.conn(ctx).Query(ctx,
		`SELECT `+invoiceColumns+` FROM invoices WHERE clinic_id = $1 ORDER BY date DESC, invoice_number DESC`, clinicID))
}

func (r *invoiceRepoPG) MaxSequence(ctx context.Context, year int) (int, error) {
	var max int
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT COALESCE(MAX(CAST(split_part(invoice_number, '-', 3) AS INTEGER)), 0)
		FROM invoices
		WHERE invoice_number ~ ('^INV-' || $1::text || '-[0-9]+$')`, year).Scan(&max)
	return max, err
}

func (r *invoiceRepoPG) Create(ctx context.Context, inv InvoiceRow) (InvoiceRow, error) {
	if inv.ID == "" {
		inv.ID = uuid.New().String()
	}
	items := inv.Items
	if items == nil {
		items = []InvoiceItemRow{}
	}
	return scanInvoice(r.conn(ctx).QueryRow(ctx, `
		INSERT INTO invoices (
			id, invoice_number, clinic_id, date, due_date, status, items,
			subtotal, tax_rate, tax_amount, discount_rate, discount_amount, total, notes
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING `+invoiceColumns,
		inv.ID, inv.InvoiceNumber, inv.ClinicID, inv.Date, inv.DueDate, inv.Status, items,
		inv.Subtotal, inv.TaxRate, inv.TaxAmount, inv.DiscountRate, inv.DiscountAmount, inv.Total, inv.Notes,
	))
}

func (r *invoiceRepoPG) Update(ctx context.Context, id string, cols db.Columns) (InvoiceRow, error) {
	sql, args, err := db.UpdateSQL("invoices", id, cols, invoiceColumns)
	if err != nil {
		return InvoiceRow{}, err
	}
	return scanInvoice(r.conn(ctx).QueryRow(ctx, sql, args...))
}

func (r *invoiceRepoPG) Delete(ctx context.Context, id string) error {
	return db.DeleteByID(ctx, r.conn(ctx), "invoices", id)
}

// -- AccountsReceivable Repository --

type receivableRepoPG struct {
	pool *pgxpool.Pool
}

func NewReceivableRepo(pool *pgxpool.Pool) ReceivableRepository {
	return &receivableRepoPG{pool: pool}
}

func (r *receivableRepoPG) conn(ctx context.Context) db.Querier {
	return db.Pick(ctx, r.pool)
}

const receivableColumns = `id, patient_id, clinic_id, date, amount, type, owed, description, notes,
	created_at, updated_at`

func scanReceivable(row pgx.Row) (ReceivableRow, error) {
	var a ReceivableRow
	err := row.Scan(
		&a.ID, &a.PatientID, &a.ClinicID, &a.Date, &a.Amount, &a.Type, &a.Owed, &a.Description, &a.Notes,
		&a.CreatedAt, &a.UpdatedAt,
	)
	return a, err
}

func (r *receivableRepoPG) List(ctx context.Context) ([]ReceivableRow, error) {
	return r.ListFiltered(ctx, ReceivableFilter{})
}

func (r *receivableRepoPG) ListByClinic(ctx context.Context, clinicID string) ([]ReceivableRow, error) {
	return r.ListFiltered(ctx, ReceivableFilter{ClinicID: clinicID})
}

func (r *receivableRepoPG) ListFiltered(ctx context.Context, f ReceivableFilter) ([]ReceivableRow, error) {
	from, to, byMonth, err := monthBounds(f.Month)
	if err != nil {
		return nil, err
	}
	var w where
	if f.ClinicID != "" {
		w.add("clinic_id = $%d", f.ClinicID)
	}
	if byMonth {
		w.add("date >= $%d", from)
		w.add("date <= $%d", to)
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+receivableColumns+` FROM accounts_receivable`+w.String()+` ORDER BY date DESC, created_at DESC`, w.args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (ReceivableRow, error) {
		return scanReceivable(row)
	})
}

func (r *receivableRepoPG) Create(ctx context.Context, a ReceivableRow) (ReceivableRow, error) {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	return scanReceivable(r.conn(ctx).QueryRow(ctx, `
		INSERT INTO accounts_receivable (id, patient_id, clinic_id, date, amount, type, owed, description, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+receivableColumns,
		a.ID, a.PatientID, a.ClinicID, a.Date, a.Amount, a.Type, a.Owed, a.Description, a.Notes,
	))
}

func (r *receivableRepoPG) Update(ctx context.Context, id string, cols db.Columns) (ReceivableRow, error) {
	sql, args, err := db.UpdateSQL("accounts_receivable", id, cols, receivableColumns)
	if err != nil {
		return ReceivableRow{}, err
	}
	return scanReceivable(r.conn(ctx).QueryRow(ctx, sql, args...))
}

func (r *receivableRepoPG) Delete(ctx context.Context, id string) error {
	return db.DeleteByID(ctx, r.conn(ctx), "accounts_receivable", id)
}

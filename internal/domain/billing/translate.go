package billing

import (
	"fmt"
	"time"

	"github.com/clinicbill/clinicbill/internal/platform/db"
	"github.com/clinicbill/clinicbill/pkg/period"
)

func parseDate(field, s string) (time.Time, error) {
	t, err := period.ParseDate(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: %w", field, err)
	}
	return t, nil
}

func parseOptionalDate(field, s string) (*time.Time, error) {
	t, err := period.ParseOptionalDate(s)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", field, err)
	}
	return t, nil
}

// -- BillingEntry --

func EntryFromRow(r EntryRow) BillingEntry {
	return BillingEntry{
		ID:            r.ID,
		ProviderID:    r.ProviderID,
		ClinicID:      r.ClinicID,
		Date:          period.FormatDate(r.Date),
		PatientName:   r.PatientName,
		ProcedureCode: r.ProcedureCode,
		Description:   r.Description,
		Amount:        r.Amount,
		Status:        EntryStatus(r.Status),
		ClaimNumber:   db.StringValue(r.ClaimNumber),
		Notes:         db.StringValue(r.Notes),
	}
}

func (e BillingEntry) ToRow() (EntryRow, error) {
	date, err := parseDate("date", e.Date)
	if err != nil {
		return EntryRow{}, err
	}
	return EntryRow{
		ID:            e.ID,
		ProviderID:    e.ProviderID,
		ClinicID:      e.ClinicID,
		Date:          date,
		PatientName:   e.PatientName,
		ProcedureCode: e.ProcedureCode,
		Description:   e.Description,
		Amount:        e.Amount,
		Status:        string(e.Status),
		ClaimNumber:   db.NullString(e.ClaimNumber),
		Notes:         db.NullString(e.Notes),
	}, nil
}

func (p EntryPatch) Columns() (db.Columns, error) {
	cols := db.Columns{}
	if p.ProviderID != nil {
		cols["provider_id"] = *p.ProviderID
	}
	if p.ClinicID != nil {
		cols["clinic_id"] = *p.ClinicID
	}
	if p.Date != nil {
		d, err := parseDate("date", *p.Date)
		if err != nil {
			return nil, err
		}
		cols["date"] = d
	}
	if p.PatientName != nil {
		cols["patient_name"] = *p.PatientName
	}
	if p.ProcedureCode != nil {
		cols["procedure_code"] = *p.ProcedureCode
	}
	if p.Description != nil {
		cols["description"] = *p.Description
	}
	if p.Amount != nil {
		cols["amount"] = *p.Amount
	}
	if p.Status != nil {
		cols["status"] = string(*p.Status)
	}
	if p.ClaimNumber != nil {
		cols["claim_number"] = db.NullString(*p.ClaimNumber)
	}
	if p.Notes != nil {
		cols["notes"] = db.NullString(*p.Notes)
	}
	return cols, nil
}

// -- ClaimIssue --

func IssueFromRow(r IssueRow) ClaimIssue {
	out := ClaimIssue{
		ID:          r.ID,
		ClaimNumber: r.ClaimNumber,
		ClinicID:    r.ClinicID,
		ProviderID:  r.ProviderID,
		Description: r.Description,
		Priority:    Priority(r.Priority),
		Status:      IssueStatus(r.Status),
		AssignedTo:  db.StringValue(r.AssignedTo),
		DueDate:     period.FormatOptionalDate(r.DueDate),
	}
	if !r.CreatedAt.IsZero() {
		out.CreatedAt = r.CreatedAt.UTC().Format(time.RFC3339)
	}
	return out
}

// ToRow maps the writable fields; CreatedAt is assigned by the store.
func (i ClaimIssue) ToRow() (IssueRow, error) {
	due, err := parseOptionalDate("dueDate", i.DueDate)
	if err != nil {
		return IssueRow{}, err
	}
	return IssueRow{
		ID:          i.ID,
		ClaimNumber: i.ClaimNumber,
		ClinicID:    i.ClinicID,
		ProviderID:  i.ProviderID,
		Description: i.Description,
		Priority:    string(i.Priority),
		Status:      string(i.Status),
		AssignedTo:  db.NullString(i.AssignedTo),
		DueDate:     due,
	}, nil
}

func (p IssuePatch) Columns() (db.Columns, error) {
	cols := db.Columns{}
	if p.ClaimNumber != nil {
		cols["claim_number"] = *p.ClaimNumber
	}
	if p.ClinicID != nil {
		cols["clinic_id"] = *p.ClinicID
	}
	if p.ProviderID != nil {
		cols["provider_id"] = *p.ProviderID
	}
	if p.Description != nil {
		cols["description"] = *p.Description
	}
	if p.Priority != nil {
		cols["priority"] = string(*p.Priority)
	}
	if p.Status != nil {
		cols["status"] = string(*p.Status)
	}
	if p.AssignedTo != nil {
		cols["assigned_to"] = db.NullString(*p.AssignedTo)
	}
	if p.DueDate != nil {
		d, err := parseOptionalDate("dueDate", *p.DueDate)
		if err != nil {
			return nil, err
		}
		cols["due_date"] = d
	}
	return cols, nil
}

// -- Invoice --

func itemsFromRows(rows []InvoiceItemRow) []InvoiceItem {
	out := make([]InvoiceItem, len(rows))
	for i, r := range rows {
		out[i] = InvoiceItem{ID: r.ID, Description: r.Description, Quantity: r.Quantity, Rate: r.Rate, Amount: r.Amount}
	}
	return out
}

func itemsToRows(items []InvoiceItem) []InvoiceItemRow {
	out := make([]InvoiceItemRow, len(items))
	for i, it := range items {
		out[i] = InvoiceItemRow{ID: it.ID, Description: it.Description, Quantity: it.Quantity, Rate: it.Rate, Amount: it.Amount}
	}
	return out
}

func InvoiceFromRow(r InvoiceRow) Invoice {
	return Invoice{
		ID:             r.ID,
		InvoiceNumber:  r.InvoiceNumber,
		ClinicID:       r.ClinicID,
		Date:           period.FormatDate(r.Date),
		DueDate:        period.FormatDate(r.DueDate),
		Status:         InvoiceStatus(r.Status),
		Items:          itemsFromRows(r.Items),
		Subtotal:       r.Subtotal,
		TaxRate:        r.TaxRate,
		TaxAmount:      r.TaxAmount,
		DiscountRate:   r.DiscountRate,
		DiscountAmount: r.DiscountAmount,
		Total:          r.Total,
		Notes:          db.StringValue(r.Notes),
	}
}

// ToRow maps inv as given; callers run WithTotals first.
func (inv Invoice) ToRow() (InvoiceRow, error) {
	date, err := parseDate("date", inv.Date)
	if err != nil {
		return InvoiceRow{}, err
	}
	due, err := parseDate("dueDate", inv.DueDate)
	if err != nil {
		return InvoiceRow{}, err
	}
	return InvoiceRow{
		ID:             inv.ID,
		InvoiceNumber:  inv.InvoiceNumber,
		ClinicID:       inv.ClinicID,
		Date:           date,
		DueDate:        due,
		Status:         string(inv.Status),
		Items:          itemsToRows(inv.Items),
		Subtotal:       inv.Subtotal,
		TaxRate:        inv.TaxRate,
		TaxAmount:      inv.TaxAmount,
		DiscountRate:   inv.DiscountRate,
		DiscountAmount: inv.DiscountAmount,
		Total:          inv.Total,
		Notes:          db.NullString(inv.Notes),
	}, nil
}

func (p InvoicePatch) Columns() (db.Columns, error) {
	cols := db.Columns{}
	if p.ClinicID != nil {
		cols["clinic_id"] = *p.ClinicID
	}
	if p.Date != nil {
		d, err := parseDate("date", *p.Date)
		if err != nil {
			return nil, err
		}
		cols["date"] = d
	}
	if p.DueDate != nil {
		d, err := parseDate("dueDate", *p.DueDate)
		if err != nil {
			return nil, err
		}
		cols["due_date"] = d
	}
	if p.Status != nil {
		cols["status"] = string(*p.Status)
	}
	if p.Items != nil {
		cols["items"] = itemsToRows(*p.Items)
	}
	if p.TaxRate != nil {
		cols["tax_rate"] = *p.TaxRate
	}
	if p.DiscountRate != nil {
		cols["discount_rate"] = *p.DiscountRate
	}
	if p.Notes != nil {
		cols["notes"] = db.NullString(*p.Notes)
	}
	if t, ok := p.Repriced(); ok {
		cols["subtotal"] = t.Subtotal
		cols["tax_amount"] = t.TaxAmount
		cols["discount_amount"] = t.DiscountAmount
		cols["total"] = t.Total
	}
	return cols, nil
}

// -- AccountsReceivable --

func ReceivableFromRow(r ReceivableRow) AccountsReceivable {
	return AccountsReceivable{
		ID:          r.ID,
		PatientID:   r.PatientID,
		ClinicID:    r.ClinicID,
		Date:        period.FormatDate(r.Date),
		Amount:      r.Amount,
		Type:        ReceivableType(r.Type),
		Owed:        r.Owed,
		Description: db.StringValue(r.Description),
		Notes:       db.StringValue(r.Notes),
	}
}

func (a AccountsReceivable) ToRow() (ReceivableRow, error) {
	date, err := parseDate("date", a.Date)
	if err != nil {
		return ReceivableRow{}, err
	}
	return ReceivableRow{
		ID:          a.ID,
		PatientID:   a.PatientID,
		ClinicID:    a.ClinicID,
		Date:        date,
		Amount:      a.Amount,
		Type:        string(a.Type),
		Owed:        a.Owed,
		Description: db.NullString(a.Description),
		Notes:       db.NullString(a.Notes),
	}, nil
}

func (p ReceivablePatch) Columns() (db.Columns, error) {
	cols := db.Columns{}
	if p.PatientID != nil {
		cols["patient_id"] = *p.PatientID
	}
	if p.ClinicID != nil {
		cols["clinic_id"] = *p.ClinicID
	}
	if p.Date != nil {
		d, err := parseDate("date", *p.Date)
		if err != nil {
			return nil, err
		}
		cols["date"] = d
	}
	if p.Amount != nil {
		cols["amount"] = *p.Amount
	}
	if p.Type != nil {
		cols["type"] = string(*p.Type)
	}
	if p.Owed != nil {
		cols["owed"] = *p.Owed
	}
	if p.Description != nil {
		cols["description"] = db.NullString(*p.Description)
	}
	if p.Notes != nil {
		cols["notes"] = db.NullString(*p.Notes)
	}
	return cols, nil
}

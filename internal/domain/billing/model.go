// Package billing holds billing entries, claim issues, invoices and accounts
// receivable, together with their status machines and derived totals.
package billing

import (
	"time"

	"github.com/clinicbill/clinicbill/internal/platform/fsm"
)

// EntryStatus is the billing-entry lifecycle state.
type EntryStatus string

const (
	EntryPending  EntryStatus = "pending"
	EntryApproved EntryStatus = "approved"
	EntryPaid     EntryStatus = "paid"
	EntryRejected EntryStatus = "rejected"
)

// EntryTransitions: pending -> approved -> paid, rejected from pending or
// approved, and a rejected entry may be resubmitted.
var EntryTransitions = fsm.New("billing entry", map[EntryStatus][]EntryStatus{
	EntryPending:  {EntryApproved, EntryRejected},
	EntryApproved: {EntryPaid, EntryRejected},
	EntryRejected: {EntryPending},
	EntryPaid:     nil,
})

// BillingEntry is one service billed by a provider.
type BillingEntry struct {
	ID            string      `json:"id"`
	ProviderID    string      `json:"providerId" validate:"required"`
	ClinicID      string      `json:"clinicId" validate:"required"`
	Date          string      `json:"date" validate:"required,datetime=2006-01-02"`
	PatientName   string      `json:"patientName" validate:"required"`
	ProcedureCode string      `json:"procedureCode" validate:"required"`
	Description   string      `json:"description"`
	Amount        float64     `json:"amount" validate:"gte=0"`
	Status        EntryStatus `json:"status" validate:"required,oneof=pending approved paid rejected"`
	ClaimNumber   string      `json:"claimNumber,omitempty"`
	Notes         string      `json:"notes,omitempty"`
}

// EntryRow maps to the billing_entries table.
type EntryRow struct {
	ID            string    `db:"id"`
	ProviderID    string    `db:"provider_id"`
	ClinicID      string    `db:"clinic_id"`
	Date          time.Time `db:"date"`
	PatientName   string    `db:"patient_name"`
	ProcedureCode string    `db:"procedure_code"`
	Description   string    `db:"description"`
	Amount        float64   `db:"amount"`
	Status        string    `db:"status"`
	ClaimNumber   *string   `db:"claim_number"`
	Notes         *string   `db:"notes"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

type EntryPatch struct {
	ProviderID    *string      `json:"providerId,omitempty" validate:"omitempty,min=1"`
	ClinicID      *string      `json:"clinicId,omitempty" validate:"omitempty,min=1"`
	Date          *string      `json:"date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	PatientName   *string      `json:"patientName,omitempty" validate:"omitempty,min=1"`
	ProcedureCode *string      `json:"procedureCode,omitempty" validate:"omitempty,min=1"`
	Description   *string      `json:"description,omitempty"`
	Amount        *float64     `json:"amount,omitempty" validate:"omitempty,gte=0"`
	Status        *EntryStatus `json:"status,omitempty" validate:"omitempty,oneof=pending approved paid rejected"`
	ClaimNumber   *string      `json:"claimNumber,omitempty"`
	Notes         *string      `json:"notes,omitempty"`
}

// Priority of a claim issue.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// IssueStatus is the claim-issue lifecycle state.
type IssueStatus string

const (
	IssueOpen       IssueStatus = "open"
	IssueInProgress IssueStatus = "in_progress"
	IssueResolved   IssueStatus = "resolved"
)

var IssueTransitions = fsm.New("claim issue", map[IssueStatus][]IssueStatus{
	IssueOpen:       {IssueInProgress, IssueResolved},
	IssueInProgress: {IssueOpen, IssueResolved},
	IssueResolved:   {IssueOpen},
})

// ClaimIssue tracks a problem with a submitted claim. ClaimNumber is free
// text, not a reference to a billing entry. CreatedAt is read-only.
type ClaimIssue struct {
	ID          string      `json:"id"`
	ClaimNumber string      `json:"claimNumber" validate:"required"`
	ClinicID    string      `json:"clinicId" validate:"required"`
	ProviderID  string      `json:"providerId" validate:"required"`
	Description string      `json:"description" validate:"required"`
	Priority    Priority    `json:"priority" validate:"required,oneof=low medium high"`
	Status      IssueStatus `json:"status" validate:"required,oneof=open in_progress resolved"`
	AssignedTo  string      `json:"assignedTo,omitempty"`
	DueDate     string      `json:"dueDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
	CreatedAt   string      `json:"createdAt,omitempty"`
}

// IssueRow maps to the claim_issues table.
type IssueRow struct {
	ID          string     `db:"id"`
	ClaimNumber string     `db:"claim_number"`
	ClinicID    string     `db:"clinic_id"`
	ProviderID  string     `db:"provider_id"`
	Description string     `db:"description"`
	Priority    string     `db:"priority"`
	Status      string     `db:"status"`
	AssignedTo  *string    `db:"assigned_to"`
	DueDate     *time.Time `db:"due_date"`
	CreatedAt   time.Time  `db:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at"`
}

type IssuePatch struct {
	ClaimNumber *string      `json:"claimNumber,omitempty" validate:"omitempty,min=1"`
	ClinicID    *string      `json:"clinicId,omitempty" validate:"omitempty,min=1"`
	ProviderID  *string      `json:"providerId,omitempty" validate:"omitempty,min=1"`
	Description *string      `json:"description,omitempty" validate:"omitempty,min=1"`
	Priority    *Priority    `json:"priority,omitempty" validate:"omitempty,oneof=low medium high"`
	Status      *IssueStatus `json:"status,omitempty" validate:"omitempty,oneof=open in_progress resolved"`
	AssignedTo  *string      `json:"assignedTo,omitempty"`
	DueDate     *string      `json:"dueDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

// InvoiceStatus is the invoice lifecycle state.
type InvoiceStatus string

const (
	InvoiceDraft     InvoiceStatus = "draft"
	InvoiceSent      InvoiceStatus = "sent"
	InvoicePaid      InvoiceStatus = "paid"
	InvoiceOverdue   InvoiceStatus = "overdue"
	InvoiceCancelled InvoiceStatus = "cancelled"
)

var InvoiceTransitions = fsm.New("invoice", map[InvoiceStatus][]InvoiceStatus{
	InvoiceDraft:     {InvoiceSent, InvoiceCancelled},
	InvoiceSent:      {InvoicePaid, InvoiceOverdue, InvoiceCancelled},
	InvoiceOverdue:   {InvoicePaid, InvoiceCancelled},
	InvoicePaid:      nil,
	InvoiceCancelled: nil,
})

// InvoiceItem is one invoice line. Amount is derived from Quantity and Rate.
type InvoiceItem struct {
	ID          string  `json:"id,omitempty"`
	Description string  `json:"description" validate:"required"`
	Quantity    float64 `json:"quantity" validate:"gt=0"`
	Rate        float64 `json:"rate" validate:"gte=0"`
	Amount      float64 `json:"amount"`
}

// Invoice is a clinic invoice. The aggregate fields are derived by
// ComputeInvoiceTotals and never accepted from callers.
type Invoice struct {
	ID             string        `json:"id"`
	InvoiceNumber  string        `json:"invoiceNumber"`
	ClinicID       string        `json:"clinicId" validate:"required"`
	Date           string        `json:"date" validate:"required,datetime=2006-01-02"`
	DueDate        string        `json:"dueDate" validate:"required,datetime=2006-01-02"`
	Status         InvoiceStatus `json:"status" validate:"required,oneof=draft sent paid overdue cancelled"`
	Items          []InvoiceItem `json:"items" validate:"dive"`
	Subtotal       float64       `json:"subtotal"`
	TaxRate        float64       `json:"taxRate" validate:"gte=0,lte=100"`
	TaxAmount      float64       `json:"taxAmount"`
	DiscountRate   float64       `json:"discountRate" validate:"gte=0,lte=100"`
	DiscountAmount float64       `json:"discountAmount"`
	Total          float64       `json:"total"`
	Notes          string        `json:"notes,omitempty"`
}

// InvoiceItemRow is the jsonb shape of one line in invoices.items.
type InvoiceItemRow struct {
	ID          string  `json:"id,omitempty"`
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	Rate        float64 `json:"rate"`
	Amount      float64 `json:"amount"`
}

// InvoiceRow maps to the invoices table.
type InvoiceRow struct {
	ID             string           `db:"id"`
	InvoiceNumber  string           `db:"invoice_number"`
	ClinicID       string           `db:"clinic_id"`
	Date           time.Time        `db:"date"`
	DueDate        time.Time        `db:"due_date"`
	Status         string           `db:"status"`
	Items          []InvoiceItemRow `db:"items"`
	Subtotal       float64          `db:"subtotal"`
	TaxRate        float64          `db:"tax_rate"`
	TaxAmount      float64          `db:"tax_amount"`
	DiscountRate   float64          `db:"discount_rate"`
	DiscountAmount float64          `db:"discount_amount"`
	Total          float64          `db:"total"`
	Notes          *string          `db:"notes"`
	CreatedAt      time.Time        `db:"created_at"`
	UpdatedAt      time.Time        `db:"updated_at"`
}

// InvoicePatch is a partial invoice update. Aggregates are attached by
// Reprice, never by callers.
type InvoicePatch struct {
	ClinicID     *string        `json:"clinicId,omitempty" validate:"omitempty,min=1"`
	Date         *string        `json:"date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	DueDate      *string        `json:"dueDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Status       *InvoiceStatus `json:"status,omitempty" validate:"omitempty,oneof=draft sent paid overdue cancelled"`
	Items        *[]InvoiceItem `json:"items,omitempty" validate:"omitempty,dive"`
	TaxRate      *float64       `json:"taxRate,omitempty" validate:"omitempty,gte=0,lte=100"`
	DiscountRate *float64       `json:"discountRate,omitempty" validate:"omitempty,gte=0,lte=100"`
	Notes        *string        `json:"notes,omitempty"`

	totals *Totals
}

// ReceivableType is who owes a receivable.
type ReceivableType string

const (
	ReceivableInsurance ReceivableType = "Insurance"
	ReceivablePatient   ReceivableType = "Patient"
	ReceivableClinic    ReceivableType = "Clinic"
)

// AccountsReceivable is an amount owed for a patient's care.
type AccountsReceivable struct {
	ID          string         `json:"id"`
	PatientID   string         `json:"patientId" validate:"required"`
	ClinicID    string         `json:"clinicId" validate:"required"`
	Date        string         `json:"date" validate:"required,datetime=2006-01-02"`
	Amount      float64        `json:"amount" validate:"gte=0"`
	Type        ReceivableType `json:"type" validate:"required,oneof=Insurance Patient Clinic"`
	Owed        float64        `json:"owed" validate:"gte=0"`
	Description string         `json:"description,omitempty"`
	Notes       string         `json:"notes,omitempty"`
}

// ReceivableRow maps to the accounts_receivable table.
type ReceivableRow struct {
	ID          string    `db:"id"`
	PatientID   string    `db:"patient_id"`
	ClinicID    string    `db:"clinic_id"`
	Date        time.Time `db:"date"`
	Amount      float64   `db:"amount"`
	Type        string    `db:"type"`
	Owed        float64   `db:"owed"`
	Description *string   `db:"description"`
	Notes       *string   `db:"notes"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

type ReceivablePatch struct {
	PatientID   *string         `json:"patientId,omitempty" validate:"omitempty,min=1"`
	ClinicID    *string         `json:"clinicId,omitempty" validate:"omitempty,min=1"`
	Date        *string         `json:"date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Amount      *float64        `json:"amount,omitempty" validate:"omitempty,gte=0"`
	Type        *ReceivableType `json:"type,omitempty" validate:"omitempty,oneof=Insurance Patient Clinic"`
	Owed        *float64        `json:"owed,omitempty" validate:"omitempty,gte=0"`
	Description *string         `json:"description,omitempty"`
	Notes       *string         `json:"notes,omitempty"`
}

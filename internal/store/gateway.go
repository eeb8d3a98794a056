package store

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicbill/clinicbill/internal/domain/admin"
	"github.com/clinicbill/clinicbill/internal/domain/billing"
	"github.com/clinicbill/clinicbill/internal/domain/patient"
	"github.com/clinicbill/clinicbill/internal/domain/task"
	"github.com/clinicbill/clinicbill/internal/domain/timecard"
)

// Gateway bundles one repository per table.
type Gateway struct {
	Clinics     admin.ClinicRepository
	Providers   admin.ProviderRepository
	Profiles    admin.UserProfileRepository
	Patients    patient.Repository
	Entries     billing.EntryRepository
	Issues      billing.IssueRepository
	Invoices    billing.InvoiceRepository
	Receivables billing.ReceivableRepository
	Timecards   timecard.Repository
	Todos       task.Repository
}

// NewPGGateway wires every repository to pool.
func NewPGGateway(pool *pgxpool.Pool) Gateway {
	return Gateway{
		Clinics:     admin.NewClinicRepo(pool),
		Providers:   admin.NewProviderRepo(pool),
		Profiles:    admin.NewUserProfileRepo(pool),
		Patients:    patient.NewRepo(pool),
		Entries:     billing.NewEntryRepo(pool),
		Issues:      billing.NewIssueRepo(pool),
		Invoices:    billing.NewInvoiceRepo(pool),
		Receivables: billing.NewReceivableRepo(pool),
		Timecards:   timecard.NewRepo(pool),
		Todos:       task.NewRepo(pool),
	}
}

// NewMemoryGateway returns empty in-memory tables. Workspaces that share one
// gateway share its data, as they would a database.
func NewMemoryGateway() Gateway {
	return Gateway{
		Clinics:     admin.NewClinicMemRepo(),
		Providers:   admin.NewProviderMemRepo(),
		Profiles:    admin.NewUserProfileMemRepo(),
		Patients:    patient.NewMemRepo(),
		Entries:     billing.NewEntryMemRepo(),
		Issues:      billing.NewIssueMemRepo(),
		Invoices:    billing.NewInvoiceMemRepo(),
		Receivables: billing.NewReceivableMemRepo(),
		Timecards:   timecard.NewMemRepo(),
		Todos:       task.NewMemRepo(),
	}
}

package store

import (
	"context"

	"github.com/clinicbill/clinicbill/internal/domain/admin"
	"github.com/clinicbill/clinicbill/internal/domain/billing"
	"github.com/clinicbill/clinicbill/internal/domain/patient"
	"github.com/clinicbill/clinicbill/internal/domain/task"
	"github.com/clinicbill/clinicbill/internal/domain/timecard"
)

// Every command validates, checks the status transition when one is
// requested, translates, calls the gateway and only then patches the
// collection. A failed command leaves the collections untouched and returns
// the gateway's error as is.

// -- Clinics --

func (s *Store) Clinics() []admin.Clinic { return read(s, &s.clinics) }

func (s *Store) Clinic(id string) (admin.Clinic, error) { return lookup(s, &s.clinics, id) }

func (s *Store) AddClinic(ctx context.Context, c admin.Clinic) (admin.Clinic, error) {
	if err := s.check(c); err != nil {
		return admin.Clinic{}, s.fail("add", CollectionClinics, "", err)
	}
	return add(ctx, s, &s.clinics, c, admin.Clinic.ToRow, s.gw.Clinics.Create, admin.ClinicFromRow)
}

func (s *Store) UpdateClinic(ctx context.Context, id string, p admin.ClinicPatch) (admin.Clinic, error) {
	if err := s.check(p); err != nil {
		return admin.Clinic{}, s.fail("update", CollectionClinics, id, err)
	}
	return update(ctx, s, &s.clinics, id, p.Columns, s.gw.Clinics.Update, admin.ClinicFromRow)
}

func (s *Store) DeleteClinic(ctx context.Context, id string) error {
	return remove(ctx, s, &s.clinics, id, s.gw.Clinics.Delete)
}

// -- Providers --

func (s *Store) Providers() []admin.Provider { return read(s, &s.providers) }

func (s *Store) Provider(id string) (admin.Provider, error) { return lookup(s, &s.providers, id) }

func (s *Store) AddProvider(ctx context.Context, p admin.Provider) (admin.Provider, error) {
	if err := s.check(p); err != nil {
		return admin.Provider{}, s.fail("add", CollectionProviders, "", err)
	}
	return add(ctx, s, &s.providers, p, admin.Provider.ToRow, s.gw.Providers.Create, admin.ProviderFromRow)
}

func (s *Store) UpdateProvider(ctx context.Context, id string, p admin.ProviderPatch) (admin.Provider, error) {
	if err := s.check(p); err != nil {
		return admin.Provider{}, s.fail("update", CollectionProviders, id, err)
	}
	return update(ctx, s, &s.providers, id, p.Columns, s.gw.Providers.Update, admin.ProviderFromRow)
}

func (s *Store) DeleteProvider(ctx context.Context, id string) error {
	return remove(ctx, s, &s.providers, id, s.gw.Providers.Delete)
}

// -- User profiles --

func (s *Store) UserProfiles() []admin.UserProfile { return read(s, &s.profiles) }

func (s *Store) UserProfile(id string) (admin.UserProfile, error) { return lookup(s, &s.profiles, id) }

// AddUserProfile inserts a profile for an existing auth account; p.ID must
// be the account's user id.
func (s *Store) AddUserProfile(ctx context.Context, p admin.UserProfile) (admin.UserProfile, error) {
	if err := s.check(p); err != nil {
		return admin.UserProfile{}, s.fail("add", CollectionProfiles, "", err)
	}
	return add(ctx, s, &s.profiles, p, admin.UserProfile.ToRow, s.gw.Profiles.Create, admin.UserProfileFromRow)
}

func (s *Store) UpdateUserProfile(ctx context.Context, id string, p admin.UserProfilePatch) (admin.UserProfile, error) {
	if err := s.check(p); err != nil {
		return admin.UserProfile{}, s.fail("update", CollectionProfiles, id, err)
	}
	return update(ctx, s, &s.profiles, id, p.Columns, s.gw.Profiles.Update, admin.UserProfileFromRow)
}

func (s *Store) DeleteUserProfile(ctx context.Context, id string) error {
	return remove(ctx, s, &s.profiles, id, s.gw.Profiles.Delete)
}

// -- Patients --

func (s *Store) Patients() []patient.Patient { return read(s, &s.patients) }

func (s *Store) Patient(id string) (patient.Patient, error) { return lookup(s, &s.patients, id) }

func (s *Store) AddPatient(ctx context.Context, p patient.Patient) (patient.Patient, error) {
	if err := s.check(p); err != nil {
		return patient.Patient{}, s.fail("add", CollectionPatients, "", err)
	}
	return add(ctx, s, &s.patients, p, patient.Patient.ToRow, s.gw.Patients.Create, patient.FromRow)
}

func (s *Store) UpdatePatient(ctx context.Context, id string, p patient.Patch) (patient.Patient, error) {
	if err := s.check(p); err != nil {
		return patient.Patient{}, s.fail("update", CollectionPatients, id, err)
	}
	return update(ctx, s, &s.patients, id, p.Columns, s.gw.Patients.Update, patient.FromRow)
}

func (s *Store) DeletePatient(ctx context.Context, id string) error {
	return remove(ctx, s, &s.patients, id, s.gw.Patients.Delete)
}

// -- Billing entries --

func (s *Store) BillingEntries() []billing.BillingEntry { return read(s, &s.entries) }

func (s *Store) BillingEntry(id string) (billing.BillingEntry, error) { return lookup(s, &s.entries, id) }

// AddBillingEntry creates an entry; a missing status defaults to pending.
func (s *Store) AddBillingEntry(ctx context.Context, e billing.BillingEntry) (billing.BillingEntry, error) {
	if e.Status == "" {
		e.Status = billing.EntryPending
	}
	if err := s.check(e); err != nil {
		return billing.BillingEntry{}, s.fail("add", CollectionEntries, "", err)
	}
	return add(ctx, s, &s.entries, e, billing.BillingEntry.ToRow, s.gw.Entries.Create, billing.EntryFromRow)
}

func (s *Store) UpdateBillingEntry(ctx context.Context, id string, p billing.EntryPatch) (billing.BillingEntry, error) {
	if err := s.check(p); err != nil {
		return billing.BillingEntry{}, s.fail("update", CollectionEntries, id, err)
	}
	if err := transition(s, &s.entries, id, p.Status, billing.EntryTransitions,
		func(e billing.BillingEntry) billing.EntryStatus { return e.Status }); err != nil {
		return billing.BillingEntry{}, err
	}
	return update(ctx, s, &s.entries, id, p.Columns, s.gw.Entries.Update, billing.EntryFromRow)
}

func (s *Store) DeleteBillingEntry(ctx context.Context, id string) error {
	return remove(ctx, s, &s.entries, id, s.gw.Entries.Delete)
}

// -- Claim issues --

func (s *Store) ClaimIssues() []billing.ClaimIssue { return read(s, &s.issues) }

func (s *Store) ClaimIssue(id string) (billing.ClaimIssue, error) { return lookup(s, &s.issues, id) }

func (s *Store) AddClaimIssue(ctx context.Context, i billing.ClaimIssue) (billing.ClaimIssue, error) {
	if i.Status == "" {
		i.Status = billing.IssueOpen
	}
	if i.Priority == "" {
		i.Priority = billing.PriorityMedium
	}
	if err := s.check(i); err != nil {
		return billing.ClaimIssue{}, s.fail("add", CollectionIssues, "", err)
	}
	return add(ctx, s, &s.issues, i, billing.ClaimIssue.ToRow, s.gw.Issues.Create, billing.IssueFromRow)
}

func (s *Store) UpdateClaimIssue(ctx context.Context, id string, p billing.IssuePatch) (billing.ClaimIssue, error) {
	if err := s.check(p); err != nil {
		return billing.ClaimIssue{}, s.fail("update", CollectionIssues, id, err)
	}
	if err := transition(s, &s.issues, id, p.Status, billing.IssueTransitions,
		func(i billing.ClaimIssue) billing.IssueStatus { return i.Status }); err != nil {
		return billing.ClaimIssue{}, err
	}
	return update(ctx, s, &s.issues, id, p.Columns, s.gw.Issues.Update, billing.IssueFromRow)
}

func (s *Store) DeleteClaimIssue(ctx context.Context, id string) error {
	return remove(ctx, s, &s.issues, id, s.gw.Issues.Delete)
}

// -- Invoices --

func (s *Store) Invoices() []billing.Invoice { return read(s, &s.invoices) }

func (s *Store) Invoice(id string) (billing.Invoice, error) { return lookup(s, &s.invoices, id) }

// NextInvoiceNumber returns the number the next invoice dated in year gets.
func (s *Store) NextInvoiceNumber(ctx context.Context, year int) (string, error) {
	seq, err := s.gw.Invoices.MaxSequence(ctx, year)
	if err != nil {
		return "", err
	}
	return billing.FormatInvoiceNumber(year, seq+1), nil
}

// AddInvoice numbers the invoice when it has no number yet, derives its
// totals and creates it. Status defaults to draft.
func (s *Store) AddInvoice(ctx context.Context, inv billing.Invoice) (billing.Invoice, error) {
	if inv.Status == "" {
		inv.Status = billing.InvoiceDraft
	}
	if err := s.check(inv); err != nil {
		return billing.Invoice{}, s.fail("add", CollectionInvoices, "", err)
	}
	if inv.InvoiceNumber == "" {
		number, err := s.NextInvoiceNumber(ctx, billing.InvoiceYear(inv.Date, s.opts.Now()))
		if err != nil {
			return billing.Invoice{}, s.fail("add", CollectionInvoices, "", err)
		}
		inv.InvoiceNumber = number
	}
	return add(ctx, s, &s.invoices, inv.WithTotals(), billing.Invoice.ToRow, s.gw.Invoices.Create, billing.InvoiceFromRow)
}

// UpdateInvoice re-derives every aggregate when items or rates change.
func (s *Store) UpdateInvoice(ctx context.Context, id string, p billing.InvoicePatch) (billing.Invoice, error) {
	if err := s.check(p); err != nil {
		return billing.Invoice{}, s.fail("update", CollectionInvoices, id, err)
	}
	if err := transition(s, &s.invoices, id, p.Status, billing.InvoiceTransitions,
		func(inv billing.Invoice) billing.InvoiceStatus { return inv.Status }); err != nil {
		return billing.Invoice{}, err
	}
	if p.Items != nil || p.TaxRate != nil || p.DiscountRate != nil {
		cur, err := lookup(s, &s.invoices, id)
		if err != nil {
			return billing.Invoice{}, s.fail("update", CollectionInvoices, id, err)
		}
		p = p.Reprice(cur)
	}
	return update(ctx, s, &s.invoices, id, p.Columns, s.gw.Invoices.Update, billing.InvoiceFromRow)
}

func (s *Store) DeleteInvoice(ctx context.Context, id string) error {
	return remove(ctx, s, &s.invoices, id, s.gw.Invoices.Delete)
}

// -- Accounts receivable --

func (s *Store) AccountsReceivable() []billing.AccountsReceivable { return read(s, &s.receivables) }

func (s *Store) Receivable(id string) (billing.AccountsReceivable, error) {
	return lookup(s, &s.receivables, id)
}

func (s *Store) AddAccountsReceivable(ctx context.Context, a billing.AccountsReceivable) (billing.AccountsReceivable, error) {
	if err := s.check(a); err != nil {
		return billing.AccountsReceivable{}, s.fail("add", CollectionReceivables, "", err)
	}
	return add(ctx, s, &s.receivables, a, billing.AccountsReceivable.ToRow, s.gw.Receivables.Create, billing.ReceivableFromRow)
}

func (s *Store) UpdateAccountsReceivable(ctx context.Context, id string, p billing.ReceivablePatch) (billing.AccountsReceivable, error) {
	if err := s.check(p); err != nil {
		return billing.AccountsReceivable{}, s.fail("update", CollectionReceivables, id, err)
	}
	return update(ctx, s, &s.receivables, id, p.Columns, s.gw.Receivables.Update, billing.ReceivableFromRow)
}

func (s *Store) DeleteAccountsReceivable(ctx context.Context, id string) error {
	return remove(ctx, s, &s.receivables, id, s.gw.Receivables.Delete)
}

// -- Timecards --

func (s *Store) TimecardEntries() []timecard.Entry { return read(s, &s.timecards) }

func (s *Store) TimecardEntry(id string) (timecard.Entry, error) { return lookup(s, &s.timecards, id) }

// AddTimecardEntry derives total pay before creating the entry.
func (s *Store) AddTimecardEntry(ctx context.Context, e timecard.Entry) (timecard.Entry, error) {
	if err := s.check(e); err != nil {
		return timecard.Entry{}, s.fail("add", CollectionTimecards, "", err)
	}
	return add(ctx, s, &s.timecards, e.WithPay(), timecard.Entry.ToRow, s.gw.Timecards.Create, timecard.FromRow)
}

func (s *Store) UpdateTimecardEntry(ctx context.Context, id string, p timecard.Patch) (timecard.Entry, error) {
	if err := s.check(p); err != nil {
		return timecard.Entry{}, s.fail("update", CollectionTimecards, id, err)
	}
	if err := transition(s, &s.timecards, id, p.Status, timecard.Transitions,
		func(e timecard.Entry) timecard.Status { return e.Status }); err != nil {
		return timecard.Entry{}, err
	}
	if p.HoursWorked != nil || p.HourlyRate != nil {
		cur, err := lookup(s, &s.timecards, id)
		if err != nil {
			return timecard.Entry{}, s.fail("update", CollectionTimecards, id, err)
		}
		p = p.Reprice(cur)
	}
	return update(ctx, s, &s.timecards, id, p.Columns, s.gw.Timecards.Update, timecard.FromRow)
}

func (s *Store) DeleteTimecardEntry(ctx context.Context, id string) error {
	return remove(ctx, s, &s.timecards, id, s.gw.Timecards.Delete)
}

// -- Todo items --

func (s *Store) TodoItems() []task.Item { return read(s, &s.todos) }

func (s *Store) TodoItem(id string) (task.Item, error) { return lookup(s, &s.todos, id) }

// AddTodoItem stamps completedAt for items created as completed.
func (s *Store) AddTodoItem(ctx context.Context, i task.Item) (task.Item, error) {
	if i.Status == "" {
		i.Status = task.StatusWaiting
	}
	if err := s.check(i); err != nil {
		return task.Item{}, s.fail("add", CollectionTodos, "", err)
	}
	return add(ctx, s, &s.todos, i.WithCompletion(s.opts.Now()), task.Item.ToRow, s.gw.Todos.Create, task.FromRow)
}

// UpdateTodoItem stamps completedAt on entering completed and clears it on
// leaving.
func (s *Store) UpdateTodoItem(ctx context.Context, id string, p task.Patch) (task.Item, error) {
	if err := s.check(p); err != nil {
		return task.Item{}, s.fail("update", CollectionTodos, id, err)
	}
	if err := transition(s, &s.todos, id, p.Status, task.Transitions,
		func(i task.Item) task.Status { return i.Status }); err != nil {
		return task.Item{}, err
	}
	if p.Status != nil {
		cur, err := lookup(s, &s.todos, id)
		if err != nil {
			return task.Item{}, s.fail("update", CollectionTodos, id, err)
		}
		p = p.WithCompletion(cur, s.opts.Now())
	}
	return update(ctx, s, &s.todos, id, p.Columns, s.gw.Todos.Update, task.FromRow)
}

func (s *Store) DeleteTodoItem(ctx context.Context, id string) error {
	return remove(ctx, s, &s.todos, id, s.gw.Todos.Delete)
}

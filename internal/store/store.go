// Package store is the in-memory source of truth for one workspace. It loads
// every collection through the gateway, applies mutations only after the
// gateway accepted them, and publishes a change event for each.
package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/clinicbill/clinicbill/internal/domain/admin"
	"github.com/clinicbill/clinicbill/internal/domain/billing"
	"github.com/clinicbill/clinicbill/internal/domain/patient"
	"github.com/clinicbill/clinicbill/internal/domain/task"
	"github.com/clinicbill/clinicbill/internal/domain/timecard"
	"github.com/clinicbill/clinicbill/internal/platform/db"
	"github.com/clinicbill/clinicbill/internal/platform/events"
	"github.com/clinicbill/clinicbill/internal/platform/fsm"
)

var (
	// ErrNotFound means the record is not in the loaded collection.
	ErrNotFound = errors.New("record not found")
	// ErrValidation is matched by every ValidationError.
	ErrValidation = errors.New("validation failed")
)

// ValidationError wraps a payload that was rejected before reaching the
// gateway. It matches both ErrValidation and the underlying error.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string { return "validation failed: " + e.Err.Error() }

func (e *ValidationError) Unwrap() []error { return []error{ErrValidation, e.Err} }

// Collection names carried by change events.
const (
	CollectionClinics     = "clinics"
	CollectionProviders   = "providers"
	CollectionProfiles    = "user_profiles"
	CollectionPatients    = "patients"
	CollectionEntries     = "billing_entries"
	CollectionIssues      = "claim_issues"
	CollectionInvoices    = "invoices"
	CollectionReceivables = "accounts_receivable"
	CollectionTimecards   = "timecard_entries"
	CollectionTodos       = "todo_items"
)

// Options configures a Store.
type Options struct {
	// EnforceTransitions rejects status changes missing from the entity's
	// transition table.
	EnforceTransitions bool
	Workspace          string
	Logger             zerolog.Logger
	Now                func() time.Time
}

type collection[T any] struct {
	name   string
	items  []T
	id     func(T) string
	clinic func(T) string
}

func (c *collection[T]) find(id string) (T, bool) {
	for _, it := range c.items {
		if c.id(it) == id {
			return it, true
		}
	}
	var zero T
	return zero, false
}

// The patch helpers build a new slice so copies handed to readers never
// change underneath them.

func (c *collection[T]) prepend(v T) {
	next := make([]T, 0, len(c.items)+1)
	next = append(next, v)
	c.items = append(next, c.items...)
}

func (c *collection[T]) merge(v T) {
	next := make([]T, len(c.items))
	copy(next, c.items)
	for i := range next {
		if c.id(next[i]) == c.id(v) {
			next[i] = v
		}
	}
	c.items = next
}

func (c *collection[T]) remove(id string) {
	next := make([]T, 0, len(c.items))
	for _, it := range c.items {
		if c.id(it) != id {
			next = append(next, it)
		}
	}
	c.items = next
}

// Store holds the collections of one workspace.
type Store struct {
	gw       Gateway
	opts     Options
	log      zerolog.Logger
	validate *validator.Validate
	changes  *events.Bus[events.Change]

	mu          sync.RWMutex
	loading     bool
	loadErr     error
	clinics     collection[admin.Clinic]
	providers   collection[admin.Provider]
	profiles    collection[admin.UserProfile]
	patients    collection[patient.Patient]
	entries     collection[billing.BillingEntry]
	issues      collection[billing.ClaimIssue]
	invoices    collection[billing.Invoice]
	receivables collection[billing.AccountsReceivable]
	timecards   collection[timecard.Entry]
	todos       collection[task.Item]
}

// New returns an empty store over gw. Call Load to populate it.
func New(gw Gateway, opts Options) *Store {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	log := opts.Logger.With().Str("component", "store").Logger()
	if opts.Workspace != "" {
		log = log.With().Str("workspace", opts.Workspace).Logger()
	}
	return &Store{
		gw:       gw,
		opts:     opts,
		log:      log,
		validate: validator.New(),
		changes:  events.NewBus[events.Change](),

		clinics: collection[admin.Clinic]{name: CollectionClinics,
			id: func(v admin.Clinic) string { return v.ID }, clinic: func(v admin.Clinic) string { return v.ID }},
		providers: collection[admin.Provider]{name: CollectionProviders,
			id: func(v admin.Provider) string { return v.ID }, clinic: func(v admin.Provider) string { return v.ClinicID }},
		profiles: collection[admin.UserProfile]{name: CollectionProfiles,
			id: func(v admin.UserProfile) string { return v.ID }, clinic: func(v admin.UserProfile) string { return v.ClinicID }},
		patients: collection[patient.Patient]{name: CollectionPatients,
			id: func(v patient.Patient) string { return v.ID }, clinic: func(v patient.Patient) string { return v.ClinicID }},
		entries: collection[billing.BillingEntry]{name: CollectionEntries,
			id: func(v billing.BillingEntry) string { return v.ID }, clinic: func(v billing.BillingEntry) string { return v.ClinicID }},
		issues: collection[billing.ClaimIssue]{name: CollectionIssues,
			id: func(v billing.ClaimIssue) string { return v.ID }, clinic: func(v billing.ClaimIssue) string { return v.ClinicID }},
		invoices: collection[billing.Invoice]{name: CollectionInvoices,
			id: func(v billing.Invoice) string { return v.ID }, clinic: func(v billing.Invoice) string { return v.ClinicID }},
		receivables: collection[billing.AccountsReceivable]{name: CollectionReceivables,
			id: func(v billing.AccountsReceivable) string { return v.ID }, clinic: func(v billing.AccountsReceivable) string { return v.ClinicID }},
		timecards: collection[timecard.Entry]{name: CollectionTimecards,
			id: func(v timecard.Entry) string { return v.ID }, clinic: func(v timecard.Entry) string { return v.ClinicID }},
		todos: collection[task.Item]{name: CollectionTodos,
			id: func(v task.Item) string { return v.ID }, clinic: func(v task.Item) string { return v.ClinicID }},
	}
}

// Changes publishes one event per applied mutation or replaced collection.
func (s *Store) Changes() *events.Bus[events.Change] { return s.changes }

// Loading reports whether a bulk load is in flight.
func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Err returns the error of the last bulk load, if any.
func (s *Store) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadErr
}

func fetch[R, T any](ctx context.Context, name string, list func(context.Context) ([]R, error), from func(R) T, dst *[]T) error {
	rows, err := list(ctx)
	if err != nil {
		return fmt.Errorf("load %s: %w", name, err)
	}
	out := make([]T, len(rows))
	for i, r := range rows {
		out[i] = from(r)
	}
	*dst = out
	return nil
}

// Load fetches every collection in parallel and replaces them together. On
// failure the previous collections are kept and Err reports the cause.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	s.loading = true
	s.mu.Unlock()

	var (
		clinics     []admin.Clinic
		providers   []admin.Provider
		profiles    []admin.UserProfile
		patients    []patient.Patient
		entries     []billing.BillingEntry
		issues      []billing.ClaimIssue
		invoices    []billing.Invoice
		receivables []billing.AccountsReceivable
		timecards   []timecard.Entry
		todos       []task.Item
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return fetch(gctx, CollectionClinics, s.gw.Clinics.List, admin.ClinicFromRow, &clinics) })
	g.Go(func() error { return fetch(gctx, CollectionProviders, s.gw.Providers.List, admin.ProviderFromRow, &providers) })
	g.Go(func() error { return fetch(gctx, CollectionProfiles, s.gw.Profiles.List, admin.UserProfileFromRow, &profiles) })
	g.Go(func() error { return fetch(gctx, CollectionPatients, s.gw.Patients.List, patient.FromRow, &patients) })
	g.Go(func() error { return fetch(gctx, CollectionEntries, s.gw.Entries.List, billing.EntryFromRow, &entries) })
	g.Go(func() error { return fetch(gctx, CollectionIssues, s.gw.Issues.List, billing.IssueFromRow, &issues) })
	g.Go(func() error { return fetch(gctx, CollectionInvoices, s.gw.Invoices.List, billing.InvoiceFromRow, &invoices) })
	g.Go(func() error {
		return fetch(gctx, CollectionReceivables, s.gw.Receivables.List, billing.ReceivableFromRow, &receivables)
	})
	g.Go(func() error { return fetch(gctx, CollectionTimecards, s.gw.Timecards.List, timecard.FromRow, &timecards) })
	g.Go(func() error { return fetch(gctx, CollectionTodos, s.gw.Todos.List, task.FromRow, &todos) })
	err := g.Wait()

	s.mu.Lock()
	s.loading = false
	s.loadErr = err
	if err == nil {
		s.clinics.items = clinics
		s.providers.items = providers
		s.profiles.items = profiles
		s.patients.items = patients
		s.entries.items = entries
		s.issues.items = issues
		s.invoices.items = invoices
		s.receivables.items = receivables
		s.timecards.items = timecards
		s.todos.items = todos
	}
	s.mu.Unlock()

	if err != nil {
		s.log.Error().Err(err).Msg("bulk load failed")
		return err
	}
	s.log.Debug().
		Int("billing_entries", len(entries)).
		Int("invoices", len(invoices)).
		Int("patients", len(patients)).
		Msg("collections loaded")
	for _, name := range []string{
		CollectionClinics, CollectionProviders, CollectionProfiles, CollectionPatients, CollectionEntries,
		CollectionIssues, CollectionInvoices, CollectionReceivables, CollectionTimecards, CollectionTodos,
	} {
		s.publish(name, events.OpReplaced, "", "")
	}
	return nil
}

// Reset empties every collection, as after sign-out.
func (s *Store) Reset() {
	s.mu.Lock()
	s.loadErr = nil
	s.clinics.items = nil
	s.providers.items = nil
	s.profiles.items = nil
	s.patients.items = nil
	s.entries.items = nil
	s.issues.items = nil
	s.invoices.items = nil
	s.receivables.items = nil
	s.timecards.items = nil
	s.todos.items = nil
	s.mu.Unlock()
}

// RefreshData reloads every collection.
func (s *Store) RefreshData(ctx context.Context) error {
	return s.Load(ctx)
}

func (s *Store) publish(name string, op events.Op, id, clinicID string) {
	s.changes.Publish(events.Change{
		Collection: name,
		Op:         op,
		ID:         id,
		ClinicID:   clinicID,
		At:         s.opts.Now().UTC(),
	})
}

// fail logs a rejected command and hands err back unchanged.
func (s *Store) fail(op, name, id string, err error) error {
	evt := s.log.Error()
	if errors.Is(err, ErrValidation) || errors.Is(err, fsm.ErrInvalidTransition) || errors.Is(err, ErrNotFound) {
		evt = s.log.Warn()
	}
	evt.Err(err).Str("op", op).Str("entity", name).Str("id", id).Msg("store command failed")
	return err
}

func (s *Store) check(v interface{}) error {
	if err := s.validate.Struct(v); err != nil {
		return &ValidationError{Err: err}
	}
	return nil
}

func invalid(err error) error {
	if err == nil {
		return nil
	}
	return &ValidationError{Err: err}
}

func read[T any](s *Store, c *collection[T]) []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]T, len(c.items))
	copy(out, c.items)
	return out
}

func lookup[T any](s *Store, c *collection[T], id string) (T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := c.find(id)
	if !ok {
		return v, fmt.Errorf("%s %s: %w", c.name, id, ErrNotFound)
	}
	return v, nil
}

// add sends a prepared row to the gateway and prepends the stored result.
func add[T, R any](ctx context.Context, s *Store, c *collection[T], v T,
	toRow func(T) (R, error), create func(context.Context, R) (R, error), from func(R) T) (T, error) {
	var zero T
	row, err := toRow(v)
	if err != nil {
		return zero, s.fail("add", c.name, "", invalid(err))
	}
	created, err := create(ctx, row)
	if err != nil {
		return zero, s.fail("add", c.name, "", err)
	}
	out := from(created)

	s.mu.Lock()
	c.prepend(out)
	s.mu.Unlock()
	s.publish(c.name, events.OpCreated, c.id(out), c.clinic(out))
	return out, nil
}

// update sends cols to the gateway and merges the returned row.
func update[T, R any](ctx context.Context, s *Store, c *collection[T], id string, columns func() (db.Columns, error),
	patch func(context.Context, string, db.Columns) (R, error), from func(R) T) (T, error) {
	var zero T
	cols, err := columns()
	if err != nil {
		return zero, s.fail("update", c.name, id, invalid(err))
	}
	if len(cols) == 0 {
		return zero, s.fail("update", c.name, id, invalid(errors.New("no fields to update")))
	}
	row, err := patch(ctx, id, cols)
	if err != nil {
		return zero, s.fail("update", c.name, id, err)
	}
	out := from(row)

	s.mu.Lock()
	c.merge(out)
	s.mu.Unlock()
	s.publish(c.name, events.OpUpdated, id, c.clinic(out))
	return out, nil
}

// remove deletes through the gateway and filters the record out.
func remove[T any](ctx context.Context, s *Store, c *collection[T], id string, del func(context.Context, string) error) error {
	if err := del(ctx, id); err != nil {
		return s.fail("delete", c.name, id, err)
	}
	s.mu.Lock()
	old, _ := c.find(id)
	c.remove(id)
	s.mu.Unlock()

	clinicID := ""
	if c.id(old) == id {
		clinicID = c.clinic(old)
	}
	s.publish(c.name, events.OpDeleted, id, clinicID)
	return nil
}

// replace swaps a whole collection for a freshly queried subset.
func replace[T, R any](ctx context.Context, s *Store, c *collection[T], list func(context.Context) ([]R, error), from func(R) T) error {
	var items []T
	if err := fetch(ctx, c.name, list, from, &items); err != nil {
		return s.fail("refresh", c.name, "", err)
	}
	s.mu.Lock()
	c.items = items
	s.mu.Unlock()
	s.publish(c.name, events.OpReplaced, "", "")
	return nil
}

// transition checks a status change against the loaded record.
func transition[T any, S ~string](s *Store, c *collection[T], id string, next *S, m *fsm.Machine[S], status func(T) S) error {
	if next == nil || !s.opts.EnforceTransitions {
		return nil
	}
	cur, err := lookup(s, c, id)
	if err != nil {
		return s.fail("update", c.name, id, err)
	}
	if err := m.Check(status(cur), *next); err != nil {
		return s.fail("update", c.name, id, err)
	}
	return nil
}

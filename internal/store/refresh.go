package store

import (
	"context"

	"github.com/clinicbill/clinicbill/internal/domain/billing"
	"github.com/clinicbill/clinicbill/internal/domain/task"
)

// Scoped refreshes replace the collection with the filtered subset. Every
// reader sees the narrowed collection until the next RefreshData.

// RefreshBillingEntries reloads billing entries matching f.
func (s *Store) RefreshBillingEntries(ctx context.Context, f billing.EntryFilter) error {
	return replace(ctx, s, &s.entries, func(ctx context.Context) ([]billing.EntryRow, error) {
		return s.gw.Entries.ListFiltered(ctx, f)
	}, billing.EntryFromRow)
}

// RefreshTodoItems reloads todo items of clinicID, or all when empty.
func (s *Store) RefreshTodoItems(ctx context.Context, clinicID string) error {
	return replace(ctx, s, &s.todos, func(ctx context.Context) ([]task.Row, error) {
		if clinicID == "" {
			return s.gw.Todos.List(ctx)
		}
		return s.gw.Todos.ListByClinic(ctx, clinicID)
	}, task.FromRow)
}

// RefreshAccountsReceivable reloads receivables matching f.
func (s *Store) RefreshAccountsReceivable(ctx context.Context, f billing.ReceivableFilter) error {
	return replace(ctx, s, &s.receivables, func(ctx context.Context) ([]billing.ReceivableRow, error) {
		return s.gw.Receivables.ListFiltered(ctx, f)
	}, billing.ReceivableFromRow)
}

package db

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// MemSchema describes how a MemTable reads and writes one row type.
type MemSchema[R any] struct {
	Table string
	// ID returns a pointer to the row's primary key.
	ID func(*R) *string
	// Touch stamps audit columns; created is true on insert.
	Touch func(r *R, now time.Time, created bool)
	// Apply writes a partial update using storage column names.
	Apply func(r *R, cols Columns) error
	// Less orders List results.
	Less func(a, b *R) bool
}

// MemTable is a thread-safe in-memory table with the same contract as the
// Postgres gateways: generated ids on insert, pgx.ErrNoRows for missing rows
// and NOW()-style audit stamps.
type MemTable[R any] struct {
	schema MemSchema[R]
	now    func() time.Time

	mu   sync.RWMutex
	rows map[string]R
}

// NewMemTable creates an empty table.
func NewMemTable[R any](schema MemSchema[R]) *MemTable[R] {
	return &MemTable[R]{schema: schema, now: time.Now, rows: make(map[string]R)}
}

// List returns the rows accepted by keep (all rows when keep is nil), ordered
// by the schema's Less.
func (t *MemTable[R]) List(keep func(*R) bool) []R {
	t.mu.RLock()
	out := make([]R, 0, len(t.rows))
	for _, r := range t.rows {
		r := r
		if keep == nil || keep(&r) {
			out = append(out, r)
		}
	}
	t.mu.RUnlock()

	if t.schema.Less != nil {
		sort.SliceStable(out, func(i, j int) bool { return t.schema.Less(&out[i], &out[j]) })
	}
	return out
}

// Get returns the row with id.
func (t *MemTable[R]) Get(id string) (R, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	r, ok := t.rows[id]
	if !ok {
		var zero R
		return zero, pgx.ErrNoRows
	}
	return r, nil
}

// Insert stores row, assigning an id when it has none, and returns the
// stored copy.
func (t *MemTable[R]) Insert(row R) (R, error) {
	id := t.schema.ID(&row)
	if *id == "" {
		*id = uuid.New().String()
	}
	if t.schema.Touch != nil {
		t.schema.Touch(&row, t.now(), true)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.rows[*id]; exists {
		var zero R
		return zero, &DuplicateKeyError{Table: t.schema.Table, ID: *id}
	}
	t.rows[*id] = row
	return row, nil
}

// Update applies cols to the row with id and returns the updated copy.
func (t *MemTable[R]) Update(id string, cols Columns) (R, error) {
	var zero R
	if len(cols) == 0 {
		_, _, err := UpdateSQL(t.schema.Table, id, cols, "*")
		return zero, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	r, ok := t.rows[id]
	if !ok {
		return zero, pgx.ErrNoRows
	}
	if err := t.schema.Apply(&r, cols); err != nil {
		return zero, err
	}
	if t.schema.Touch != nil {
		t.schema.Touch(&r, t.now(), false)
	}
	t.rows[id] = r
	return r, nil
}

// Delete removes the row with id.
func (t *MemTable[R]) Delete(id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.rows[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(t.rows, id)
	return nil
}

// Len returns the number of rows.
func (t *MemTable[R]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.rows)
}

// DuplicateKeyError mirrors a unique violation on the primary key.
type DuplicateKeyError struct {
	Table string
	ID    string
}

func (e *DuplicateKeyError) Error() string {
	return "duplicate key value violates unique constraint \"" + e.Table + "_pkey\" (id=" + e.ID + ")"
}

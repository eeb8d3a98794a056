package db

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is the subset of pgx shared by *pgxpool.Pool, *pgxpool.Conn and pgx.Tx.
type Querier interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type txKey struct{}

// WithTx returns a context carrying tx; gateways use it instead of the pool.
func WithTx(ctx context.Context, tx pgx.Tx) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

// TxFromContext returns the transaction stored by WithTx, or nil.
func TxFromContext(ctx context.Context) pgx.Tx {
	tx, _ := ctx.Value(txKey{}).(pgx.Tx)
	return tx
}

// Pick returns the context transaction when present, otherwise fallback.
func Pick(ctx context.Context, fallback Querier) Querier {
	if tx := TxFromContext(ctx); tx != nil {
		return tx
	}
	return fallback
}

// Columns is a partial row keyed by column name. Only the columns present are
// written by an UPDATE.
type Columns map[string]interface{}

// Names returns the column names in a stable order.
func (c Columns) Names() []string {
	names := make([]string, 0, len(c))
	for k := range c {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// UpdateSQL builds "UPDATE table SET a=$2, b=$3, updated_at=NOW() WHERE id=$1
// RETURNING returning". The id is always $1.
func UpdateSQL(table string, id string, cols Columns, returning string) (string, []interface{}, error) {
	if len(cols) == 0 {
		return "", nil, fmt.Errorf("update %s: no columns supplied", table)
	}
	names := cols.Names()
	sets := make([]string, 0, len(names)+1)
	args := make([]interface{}, 0, len(names)+1)
	args = append(args, id)
	for i, name := range names {
		sets = append(sets, fmt.Sprintf("%s = $%d", name, i+2))
		args = append(args, cols[name])
	}
	sets = append(sets, "updated_at = NOW()")
	sql := fmt.Sprintf("UPDATE %s SET %s WHERE id = $1 RETURNING %s", table, strings.Join(sets, ", "), returning)
	return sql, args, nil
}

// DeleteByID deletes one row by primary key, returning pgx.ErrNoRows when no
// row matched.
func DeleteByID(ctx context.Context, q Querier, table, id string) error {
	tag, err := q.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = $1", table), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

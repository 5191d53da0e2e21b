// Package repository holds the query helpers shared by the SQLite and
// PostgreSQL record stores. Queries are written once with '?' placeholders
// and rebound to the driver's syntax by a Binder before execution.
package repository

import (
	"context"
	"database/sql"
	"strings"
)

// Querier is implemented by *sql.DB, *sql.Tx, and *sql.Conn.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Executor is implemented by *sql.DB, *sql.Tx, and *sql.Conn.
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Scanner is satisfied by *sql.Row and *sql.Rows.
type Scanner interface {
	Scan(dest ...any) error
}

// ScanFunc converts one row into a typed value.
type ScanFunc[T any] func(Scanner) (T, error)

// Binder rewrites '?' placeholders for the active driver. A nil Binder
// leaves the query unchanged, which is correct for SQLite.
type Binder func(query string) string

func (b Binder) bind(query string) string {
	if b == nil {
		return query
	}
	return b(query)
}

// Placeholders returns n comma separated '?' markers for an IN clause.
func Placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// InTx runs fn inside a transaction, committing only when fn succeeds.
func InTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// QueryOne executes a query expected to return a single row. A missing row
// surfaces as sql.ErrNoRows for MapError.
func QueryOne[T any](ctx context.Context, q Querier, bind Binder, query string, args []any, scan ScanFunc[T]) (T, error) {
	var zero T
	result, err := scan(q.QueryRowContext(ctx, bind.bind(query), args...))
	if err != nil {
		return zero, err
	}
	return result, nil
}

// QueryMany collects every row of query. No rows yields an empty, non-nil slice.
func QueryMany[T any](ctx context.Context, q Querier, bind Binder, query string, args []any, scan ScanFunc[T]) ([]T, error) {
	rows, err := q.QueryContext(ctx, bind.bind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]T, 0)
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, item)
	}
	return results, rows.Err()
}

// Count runs a single-column COUNT query.
func Count(ctx context.Context, q Querier, bind Binder, query string, args ...any) (int, error) {
	var n int
	if err := q.QueryRowContext(ctx, bind.bind(query), args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// ExecExpectOne executes a statement that must affect exactly one row.
// Zero affected rows returns sql.ErrNoRows.
func ExecExpectOne(ctx context.Context, e Executor, bind Binder, query string, args ...any) error {
	result, err := e.ExecContext(ctx, bind.bind(query), args...)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

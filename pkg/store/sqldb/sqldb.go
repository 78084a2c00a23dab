// Package sqldb implements store.Executor over database/sql.
package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/thalysguimaraes/elementor-whatsapp/pkg/store"
)

// Executor runs statements on a *sql.DB, rebinding "?" placeholders to "$n".
type Executor struct {
	db     *sql.DB
	logger *slog.Logger
}

func New(db *sql.DB, logger *slog.Logger) *Executor {
	return &Executor{
		db:     db,
		logger: logger.With("module", "sqldb"),
	}
}

// DB exposes the underlying connection pool.
func (e *Executor) DB() *sql.DB {
	return e.db
}

func (e *Executor) Query(ctx context.Context, query string, params ...any) (*store.Result, error) {
	return run(ctx, e.db, store.Statement{SQL: query, Params: params})
}

// Batch runs all statements in one transaction, rolling back on the first failure.
func (e *Executor) Batch(ctx context.Context, statements []store.Statement) ([]store.Result, error) {
	if len(statements) == 0 {
		return nil, store.ErrEmptyBatch
	}

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	results := make([]store.Result, 0, len(statements))

	for i, stmt := range statements {
		result, err := run(ctx, tx, stmt)
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				e.logger.ErrorContext(ctx, "Failed to rollback transaction", "error", rbErr)
			}

			return nil, fmt.Errorf("statement %d failed: %w", i, err)
		}

		results = append(results, *result)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return results, nil
}

func (e *Executor) Ping(ctx context.Context) error {
	return e.db.PingContext(ctx)
}

func (e *Executor) Close() error {
	return e.db.Close()
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func run(ctx context.Context, q queryer, stmt store.Statement) (*store.Result, error) {
	query := Rebind(stmt.SQL)

	if !returnsRows(query) {
		res, err := q.ExecContext(ctx, query, stmt.Params...)
		if err != nil {
			return nil, err
		}

		changes, _ := res.RowsAffected()

		return &store.Result{Rows: []store.Row{}, Meta: store.Meta{Changes: changes}}, nil
	}

	rows, err := q.QueryContext(ctx, query, stmt.Params...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	result := &store.Result{Rows: []store.Row{}}

	for rows.Next() {
		values := make([]any, len(columns))
		pointers := make([]any, len(columns))

		for i := range values {
			pointers[i] = &values[i]
		}

		if err := rows.Scan(pointers...); err != nil {
			return nil, err
		}

		row := make(store.Row, len(columns))
		for i, col := range columns {
			row[col] = values[i]
		}

		result.Rows = append(result.Rows, row)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	result.Meta.RowsRead = int64(len(result.Rows))

	return result, nil
}

func returnsRows(query string) bool {
	upper := strings.ToUpper(strings.TrimSpace(query))

	if strings.HasPrefix(upper, "SELECT") || strings.HasPrefix(upper, "WITH") {
		return true
	}

	return strings.Contains(upper, "RETURNING")
}

// Rebind converts "?" placeholders outside string literals to Postgres "$n" placeholders.
func Rebind(query string) string {
	var (
		b       strings.Builder
		n       int
		inQuote bool
	)

	b.Grow(len(query) + 8)

	for _, r := range query {
		switch {
		case r == '\'':
			inQuote = !inQuote
			b.WriteRune(r)
		case r == '?' && !inQuote:
			n++
			b.WriteString("$")
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteRune(r)
		}
	}

	return b.String()
}

// Package store abstracts the relational configuration store behind a small SQL executor.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrEmptyBatch is returned when Batch is called without statements.
var ErrEmptyBatch = errors.New("batch has no statements")

// Statement is one SQL statement with positional "?" parameters.
type Statement struct {
	SQL    string `json:"sql"`
	Params []any  `json:"params"`
}

// Meta carries execution details reported by the store.
type Meta struct {
	Changes     int64 `json:"changes"`
	LastRowID   int64 `json:"last_row_id"`
	RowsRead    int64 `json:"rows_read"`
	RowsWritten int64 `json:"rows_written"`
}

// Result is the outcome of one statement.
type Result struct {
	Rows []Row `json:"results"`
	Meta Meta  `json:"meta"`
}

// First returns the first row, or nil when the result is empty.
func (r *Result) First() Row {
	if r == nil || len(r.Rows) == 0 {
		return nil
	}

	return r.Rows[0]
}

// Executor runs SQL against the configuration store.
type Executor interface {
	Query(ctx context.Context, sql string, params ...any) (*Result, error)
	// Batch runs all statements as one atomic unit and returns one result per statement.
	Batch(ctx context.Context, statements []Statement) ([]Result, error)
	Ping(ctx context.Context) error
}

// Row is one result row keyed by column name.
type Row map[string]any

func (r Row) String(col string) string {
	switch v := r[col].(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(v, 10)
	case json.Number:
		return v.String()
	case time.Time:
		return v.UTC().Format(time.RFC3339)
	default:
		return fmt.Sprint(v)
	}
}

func (r Row) Int64(col string) int64 {
	switch v := r[col].(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case int:
		return int64(v)
	case int32:
		return int64(v)
	case json.Number:
		n, _ := v.Int64()
		return n
	case string:
		n, _ := strconv.ParseInt(v, 10, 64)
		return n
	case []byte:
		n, _ := strconv.ParseInt(string(v), 10, 64)
		return n
	case bool:
		if v {
			return 1
		}

		return 0
	default:
		return 0
	}
}

// Bool reads booleans stored natively or as SQLite integers.
func (r Row) Bool(col string) bool {
	switch v := r[col].(type) {
	case bool:
		return v
	case string:
		b, err := strconv.ParseBool(v)
		if err != nil {
			return r.Int64(col) != 0
		}

		return b
	default:
		return r.Int64(col) != 0
	}
}

// NullableInt64 returns nil when the column is NULL.
func (r Row) NullableInt64(col string) *int64 {
	if r[col] == nil {
		return nil
	}

	n := r.Int64(col)

	return &n
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// Time parses timestamps in the formats SQLite and Postgres emit. Unparseable values yield the zero time.
func (r Row) Time(col string) time.Time {
	switch v := r[col].(type) {
	case time.Time:
		return v
	case string:
		return parseTime(v)
	case []byte:
		return parseTime(string(v))
	default:
		return time.Time{}
	}
}

func parseTime(s string) time.Time {
	s = strings.TrimSpace(s)

	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}

	return time.Time{}
}

// StringList splits a comma separated column, dropping blanks.
func (r Row) StringList(col string) []string {
	raw := r.String(col)
	if raw == "" {
		return []string{}
	}

	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))

	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}

	return out
}

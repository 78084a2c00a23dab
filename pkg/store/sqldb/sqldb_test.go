package sqldb

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thalysguimaraes/elementor-whatsapp/pkg/store"
)

func newMockExecutor(t *testing.T) (*Executor, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return New(db, slog.New(slog.NewTextHandler(io.Discard, nil))), mock
}

func TestRebind(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"SELECT 1", "SELECT 1"},
		{"SELECT * FROM forms WHERE id = ?", "SELECT * FROM forms WHERE id = $1"},
		{"INSERT INTO t (a, b) VALUES (?, ?)", "INSERT INTO t (a, b) VALUES ($1, $2)"},
		{"SELECT '?' AS q, ? AS v", "SELECT '?' AS q, $1 AS v"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Rebind(tt.in))
	}
}

func TestExecutor_Query_Select(t *testing.T) {
	t.Parallel()

	exec, mock := newMockExecutor(t)

	mock.ExpectQuery("SELECT id, name FROM forms WHERE id = $1").
		WithArgs("contato").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow("contato", "Contato"))

	result, err := exec.Query(context.Background(), "SELECT id, name FROM forms WHERE id = ?", "contato")
	require.NoError(t, err)
	require.Len(t, result.Rows, 1)
	assert.Equal(t, "Contato", result.First().String("name"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExecutor_Query_Exec(t *testing.T) {
	t.Parallel()

	exec, mock := newMockExecutor(t)

	mock.ExpectExec("DELETE FROM contacts WHERE id = $1").
		WithArgs(int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	result, err := exec.Query(context.Background(), "DELETE FROM contacts WHERE id = ?", int64(3))
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.Meta.Changes)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExecutor_Batch_Commits(t *testing.T) {
	t.Parallel()

	exec, mock := newMockExecutor(t)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM form_fields WHERE form_id = $1").WithArgs("f").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("INSERT INTO form_fields (form_id) VALUES ($1)").WithArgs("f").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	results, err := exec.Batch(context.Background(), []store.Statement{
		{SQL: "DELETE FROM form_fields WHERE form_id = ?", Params: []any{"f"}},
		{SQL: "INSERT INTO form_fields (form_id) VALUES (?)", Params: []any{"f"}},
	})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, int64(2), results[0].Meta.Changes)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExecutor_Batch_RollsBackOnFailure(t *testing.T) {
	t.Parallel()

	exec, mock := newMockExecutor(t)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM form_fields WHERE form_id = $1").WithArgs("f").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("INSERT INTO form_fields (form_id) VALUES ($1)").WithArgs("f").WillReturnError(errors.New("constraint"))
	mock.ExpectRollback()

	_, err := exec.Batch(context.Background(), []store.Statement{
		{SQL: "DELETE FROM form_fields WHERE form_id = ?", Params: []any{"f"}},
		{SQL: "INSERT INTO form_fields (form_id) VALUES (?)", Params: []any{"f"}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "statement 1 failed")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExecutor_Batch_Empty(t *testing.T) {
	t.Parallel()

	exec, _ := newMockExecutor(t)

	_, err := exec.Batch(context.Background(), nil)
	require.ErrorIs(t, err, store.ErrEmptyBatch)
}

func TestExecutor_Ping(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	mock.ExpectPing()

	exec := New(db, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, exec.Ping(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

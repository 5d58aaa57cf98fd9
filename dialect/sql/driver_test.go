package sql

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/typegen/dialect"
)

func TestOpenDB(t *testing.T) {
	tests := []struct {
		name    string
		driver  string
		dialect string
	}{
		{"postgres", dialect.Postgres, dialect.Postgres},
		{"mysql", dialect.MySQL, dialect.MySQL},
		{"sqlite", dialect.SQLite, dialect.SQLite},
		{"sqlite3 alias", "sqlite3", dialect.SQLite},
		{"unknown driver", "oracle", "oracle"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, _, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			drv := OpenDB(tt.driver, db)
			assert.Equal(t, tt.dialect, drv.Dialect())
			assert.Equal(t, db, drv.DB())
		})
	}
}

func TestDriverQuery(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	drv := OpenDB(dialect.Postgres, db)

	t.Run("with_args", func(t *testing.T) {
		mock.ExpectQuery("SELECT payload FROM typegen_cache WHERE cache_key = \\$1").
			WithArgs("k").
			WillReturnRows(sqlmock.NewRows([]string{"payload"}).AddRow([]byte("v")))

		rows := &Rows{}
		err := drv.Query(context.Background(), "SELECT payload FROM typegen_cache WHERE cache_key = $1", []any{"k"}, rows)
		require.NoError(t, err)
		require.True(t, rows.Next())
		var got []byte
		require.NoError(t, rows.Scan(&got))
		assert.Equal(t, []byte("v"), got)
		require.NoError(t, rows.Close())
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("error", func(t *testing.T) {
		mock.ExpectQuery("SELECT").WillReturnError(errors.New("boom"))
		err := drv.Query(context.Background(), "SELECT 1", []any{}, &Rows{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "dialect/sql: query")
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("invalid_destination", func(t *testing.T) {
		var rows []string
		err := drv.Query(context.Background(), "SELECT 1", []any{}, &rows)
		assert.ErrorContains(t, err, "expect *sql.Rows")
	})

	t.Run("invalid_args", func(t *testing.T) {
		err := drv.Query(context.Background(), "SELECT 1", "k", &Rows{})
		assert.ErrorContains(t, err, "expect []any")
	})
}

func TestDriverExec(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	drv := OpenDB(dialect.MySQL, db)

	t.Run("result", func(t *testing.T) {
		mock.ExpectExec("DELETE FROM typegen_cache").WillReturnResult(sqlmock.NewResult(0, 3))
		var res Result
		require.NoError(t, drv.Exec(context.Background(), "DELETE FROM typegen_cache", []any{}, &res))
		n, err := res.RowsAffected()
		require.NoError(t, err)
		assert.Equal(t, int64(3), n)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("error", func(t *testing.T) {
		mock.ExpectExec("DELETE").WillReturnError(errors.New("locked"))
		err := drv.Exec(context.Background(), "DELETE FROM typegen_cache", []any{}, nil)
		assert.ErrorContains(t, err, "locked")
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("invalid_destination", func(t *testing.T) {
		var n int
		assert.ErrorContains(t, drv.Exec(context.Background(), "DELETE", []any{}, &n), "expect *sql.Result")
	})
}

func TestDriverTransaction(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	drv := OpenDB(dialect.SQLite, db)

	t.Run("commit", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec("DELETE FROM typegen_cache").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		tx, err := drv.Tx(context.Background())
		require.NoError(t, err)
		require.NoError(t, tx.Exec(context.Background(), "DELETE FROM typegen_cache", []any{}, nil))
		require.NoError(t, tx.Commit())
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rollback", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec("DELETE").WillReturnError(errors.New("error"))
		mock.ExpectRollback()

		tx, err := drv.Tx(context.Background())
		require.NoError(t, err)
		require.Error(t, tx.Exec(context.Background(), "DELETE FROM typegen_cache", []any{}, nil))
		require.NoError(t, tx.Rollback())
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestIsValidIdentifier(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected bool
	}{
		{"valid_simple", "typegen_cache", true},
		{"valid_with_dot", "public.typegen_cache", true},
		{"valid_starting_underscore", "_cache", true},
		{"invalid_empty", "", false},
		{"invalid_starting_number", "1cache", false},
		{"invalid_with_space", "type cache", false},
		{"invalid_with_semicolon", "cache;DROP TABLE", false},
		{"invalid_with_dash", "type-cache", false},
		{"invalid_too_long", string(make([]byte, 129)), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, isValidIdentifier(tt.input))
		})
	}
}

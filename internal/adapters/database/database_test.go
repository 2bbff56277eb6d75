package database

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satishbabariya/schemakit/internal/core/dialect"
)

func openSQLite(t *testing.T, driver string) *Session {
	t.Helper()
	s, err := Open(context.Background(), Config{
		Driver: driver,
		URL:    filepath.Join(t.TempDir(), "test.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	_, err = s.Exec(context.Background(), "CREATE TABLE people (id INTEGER PRIMARY KEY AUTOINCREMENT, name VARCHAR(50) NOT NULL UNIQUE)", nil)
	require.NoError(t, err)
	return s
}

func count(t *testing.T, s *Session) int {
	t.Helper()
	var n int
	require.NoError(t, s.QueryRow(context.Background(), "SELECT COUNT(*) FROM people", nil, &n))
	return n
}

func TestBind(t *testing.T) {
	tests := []struct {
		name     string
		dialect  dialect.Dialect
		stmt     string
		params   Params
		wantStmt string
		wantArgs []any
	}{
		{
			name:     "positional",
			dialect:  dialect.SQLite{},
			stmt:     "SELECT * FROM t WHERE a = :a AND b = :b OR a = :a",
			params:   Params{"a": 1, "b": "x"},
			wantStmt: "SELECT * FROM t WHERE a = ? AND b = ? OR a = ?",
			wantArgs: []any{1, "x", 1},
		},
		{
			name:     "numbered reuse",
			dialect:  dialect.Postgres{},
			stmt:     "SELECT * FROM t WHERE a = :a AND b = :b OR a = :a",
			params:   Params{"a": 1, "b": "x"},
			wantStmt: "SELECT * FROM t WHERE a = $1 AND b = $2 OR a = $1",
			wantArgs: []any{1, "x"},
		},
		{
			name:     "quotes and casts",
			dialect:  dialect.Postgres{},
			stmt:     "SELECT ':skip', \"col:x\", v::text FROM t WHERE id = :id",
			params:   Params{"id": 7},
			wantStmt: "SELECT ':skip', \"col:x\", v::text FROM t WHERE id = $1",
			wantArgs: []any{7},
		},
		{
			name:     "no params",
			dialect:  dialect.MySQL{},
			stmt:     "SELECT 1",
			wantStmt: "SELECT 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmt, args, err := bind(tt.dialect, tt.stmt, tt.params)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStmt, stmt)
			assert.Equal(t, tt.wantArgs, args)
		})
	}

	_, _, err := bind(dialect.SQLite{}, "SELECT :missing", Params{})
	assert.ErrorIs(t, err, ErrMissingParam)
}

func TestConfigResolve(t *testing.T) {
	c, d, err := Config{URL: "postgres://u@localhost/db"}.resolve()
	require.NoError(t, err)
	assert.Equal(t, "postgres", d.Name())
	assert.Equal(t, "postgres", c.Driver)

	c, d, err = Config{Driver: "pgx", URL: "postgres://u@localhost/db"}.resolve()
	require.NoError(t, err)
	assert.Equal(t, "postgres", d.Name())
	assert.Equal(t, "pgx", c.Driver)

	_, _, err = Config{Dialect: "mysql", Driver: "sqlite3", URL: "x.db"}.resolve()
	assert.Error(t, err)

	_, _, err = Config{URL: "something"}.resolve()
	assert.ErrorIs(t, err, dialect.ErrUnknownDialect)

	dsn, err := Config{Driver: "mysql", URL: "mysql://root:pw@tcp(localhost:3306)/app"}.dsn()
	require.NoError(t, err)
	assert.Contains(t, dsn, "parseTime=true")

	for _, tt := range []struct{ driver, url, want string }{
		{"sqlite3", "shop.db", "shop.db?_foreign_keys=on"},
		{"sqlite3", "file:shop.db?cache=shared", "file:shop.db?cache=shared&_foreign_keys=on"},
		{"sqlite", "shop.db", "shop.db?_pragma=foreign_keys(1)"},
		{"sqlite3", "shop.db?_foreign_keys=off", "shop.db?_foreign_keys=off"},
	} {
		dsn, err := Config{Driver: tt.driver, URL: tt.url}.dsn()
		require.NoError(t, err)
		assert.Equal(t, tt.want, dsn)
	}
}

func TestForeignKeysOnEveryConnection(t *testing.T) {
	for _, driver := range []string{"sqlite3", "sqlite"} {
		t.Run(driver, func(t *testing.T) {
			s := openSQLite(t, driver)
			// Drop idle connections so each statement gets a fresh one.
			s.db.SetMaxIdleConns(0)
			for i := 0; i < 2; i++ {
				var on int
				require.NoError(t, s.QueryRow(context.Background(), "PRAGMA foreign_keys", nil, &on))
				assert.Equal(t, 1, on)
			}
		})
	}
}

func TestReleaseStatementsRunAfterTransaction(t *testing.T) {
	ctx := context.Background()
	s := openSQLite(t, "sqlite3")
	cacheSize := func() int {
		var n int
		require.NoError(t, s.QueryRow(ctx, "PRAGMA cache_size", nil, &n))
		return n
	}

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	tx.OnRelease("PRAGMA cache_size = 123")
	_, err = s.Exec(ctx, "INSERT INTO people (name) VALUES ('ada')", nil)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())
	assert.Equal(t, 123, cacheSize())
	assert.Equal(t, 1, count(t, s))

	// A failed statement rolls back and still resets the connection.
	tx, err = s.Begin(ctx)
	require.NoError(t, err)
	tx.OnRelease("PRAGMA cache_size = 321")
	_, err = s.Exec(ctx, "INSERT INTO people (name) VALUES ('ada')", nil)
	require.Error(t, err)
	assert.Equal(t, RolledBack, tx.State())
	assert.Equal(t, 321, cacheSize())

	// A connection that cannot be reset is not reused.
	tx, err = s.Begin(ctx)
	require.NoError(t, err)
	tx.OnRelease("SELEC nonsense")
	err = tx.Commit()
	var execErr *ExecError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, "SELEC nonsense", execErr.Statement)
	assert.False(t, s.InTransaction())
	assert.Equal(t, 1, count(t, s))
}

func TestSessionOutsideTransaction(t *testing.T) {
	ctx := context.Background()
	s := openSQLite(t, "sqlite3")
	assert.Equal(t, "sqlite", s.Dialect().Name())
	assert.False(t, s.InTransaction())

	id, err := s.Insert(ctx, "INSERT INTO people (name) VALUES (:name)", Params{"name": "ada"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)

	n, err := s.Exec(ctx, "UPDATE people SET name = :name WHERE id = :id", Params{"name": "grace", "id": id})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	var names []string
	err = s.Query(ctx, "SELECT name FROM people", nil, func(rows *sql.Rows) error {
		var name string
		if err := rows.Scan(&name); err != nil {
			return err
		}
		names = append(names, name)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"grace"}, names)

	var name string
	err = s.QueryRow(ctx, "SELECT name FROM people WHERE id = :id", Params{"id": 99}, &name)
	assert.ErrorIs(t, err, sql.ErrNoRows)

	_, err = s.Exec(ctx, "INSERT INTO people (name) VALUES (:name)", Params{"name": "grace"})
	var execErr *ExecError
	require.ErrorAs(t, err, &execErr)
	assert.NotEmpty(t, execErr.Code)
	assert.Contains(t, execErr.Message, "UNIQUE")
	assert.Equal(t, "INSERT INTO people (name) VALUES (:name)", execErr.Statement)
	assert.Equal(t, Params{"name": "grace"}, execErr.Params)
}

func TestTransactionLifecycle(t *testing.T) {
	ctx := context.Background()
	s := openSQLite(t, "sqlite3")

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	assert.Equal(t, InTransaction, tx.State())
	assert.True(t, s.InTransaction())

	_, err = s.Begin(ctx)
	assert.ErrorIs(t, err, ErrTransactionActive)

	_, err = s.Insert(ctx, "INSERT INTO people (name) VALUES (:name)", Params{"name": "ada"})
	require.NoError(t, err)
	require.NoError(t, tx.Commit())
	assert.Equal(t, Committed, tx.State())
	assert.False(t, s.InTransaction())
	assert.ErrorIs(t, tx.Commit(), ErrTransactionDone)
	assert.NoError(t, tx.Rollback())
	assert.Equal(t, 1, count(t, s))

	tx, err = s.Begin(ctx)
	require.NoError(t, err)
	_, err = s.Insert(ctx, "INSERT INTO people (name) VALUES (:name)", Params{"name": "linus"})
	require.NoError(t, err)
	require.NoError(t, tx.Rollback())
	assert.Equal(t, RolledBack, tx.State())
	assert.Equal(t, 1, count(t, s))
}

func TestFailureRollsBackAutomatically(t *testing.T) {
	ctx := context.Background()
	s := openSQLite(t, "sqlite3")

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	_, err = s.Insert(ctx, "INSERT INTO people (name) VALUES (:name)", Params{"name": "ada"})
	require.NoError(t, err)

	_, err = s.Insert(ctx, "INSERT INTO people (name) VALUES (:name)", Params{"name": "ada"})
	var execErr *ExecError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, RolledBack, tx.State())
	assert.False(t, s.InTransaction())
	assert.Equal(t, 0, count(t, s))
}

type brokenTx struct {
	rollbackErr error
}

func (brokenTx) ExecContext(context.Context, string, ...any) (sql.Result, error) {
	return nil, errors.New("disk I/O error")
}

func (brokenTx) QueryContext(context.Context, string, ...any) (*sql.Rows, error) {
	return nil, errors.New("disk I/O error")
}

func (brokenTx) Commit() error     { return nil }
func (b brokenTx) Rollback() error { return b.rollbackErr }

func TestRollbackFailureKeepsBothErrors(t *testing.T) {
	s := openSQLite(t, "sqlite3")
	rbErr := errors.New("connection lost")
	s.tx = &Tx{session: s, tx: brokenTx{rollbackErr: rbErr}, state: InTransaction}

	_, err := s.Exec(context.Background(), "DELETE FROM people WHERE id = :id", Params{"id": 1})

	var txErr *TransactionError
	require.ErrorAs(t, err, &txErr)
	assert.Equal(t, "DELETE FROM people WHERE id = :id", txErr.Original.Statement)
	assert.Contains(t, txErr.Original.Message, "disk I/O error")
	assert.ErrorIs(t, err, rbErr)

	var execErr *ExecError
	assert.ErrorAs(t, err, &execErr)
	assert.Contains(t, err.Error(), "rollback also failed")
	assert.False(t, s.InTransaction())
}

func TestPureGoDriver(t *testing.T) {
	s := openSQLite(t, "sqlite")
	assert.Equal(t, "sqlite", s.Driver())

	_, err := s.Exec(context.Background(), "SELEC nonsense", nil)
	var execErr *ExecError
	require.ErrorAs(t, err, &execErr)
	assert.NotEmpty(t, execErr.Code)
}

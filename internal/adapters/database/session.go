package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/satishbabariya/schemakit/internal/core/dialect"
	"github.com/satishbabariya/schemakit/internal/debug"
)

// Session is the execution context of one logical flow. It owns a
// connection pool and at most one open transaction; every statement runs
// inside that transaction when one is open and on a pooled connection
// otherwise. A session must not be shared between concurrent flows.
type Session struct {
	db      *sql.DB
	dialect dialect.Dialect
	driver  string

	mu sync.Mutex
	tx *Tx
}

// Dialect returns the dialect of the connected backend.
func (s *Session) Dialect() dialect.Dialect { return s.dialect }

// Driver returns the database/sql driver name.
func (s *Session) Driver() string { return s.driver }

// Close rolls back any open transaction and closes the pool.
func (s *Session) Close() error {
	if tx := s.current(); tx != nil {
		if err := tx.Rollback(); err != nil {
			debug.Warn("Rollback on close failed", "error", err)
		}
	}
	return s.db.Close()
}

// Ping checks the connection.
func (s *Session) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// InTransaction reports whether a transaction is open.
func (s *Session) InTransaction() bool {
	return s.current() != nil
}

func (s *Session) current() *Tx {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tx
}

// Begin opens the session's transaction. Only one transaction may be open
// at a time; a second Begin fails with ErrTransactionActive.
func (s *Session) Begin(ctx context.Context) (*Tx, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tx != nil {
		return nil, ErrTransactionActive
	}
	// The connection stays pinned until the transaction ends so that
	// connection-scoped settings can be reset before it is pooled again.
	c, err := s.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	sqlTx, err := c.BeginTx(ctx, nil)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	s.tx = &Tx{session: s, tx: sqlTx, conn: c, ctx: context.WithoutCancel(ctx), state: InTransaction}
	debug.Debug("Transaction started", "dialect", s.dialect.Name())
	return s.tx, nil
}

// conn is what both *sql.DB and *sql.Tx offer.
type conn interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *Session) target() (conn, *Tx) {
	if tx := s.current(); tx != nil {
		return tx.tx, tx
	}
	return s.db, nil
}

// fail converts a driver error and, inside a transaction, rolls it back.
func (s *Session) fail(tx *Tx, err error, stmt string, params Params) error {
	execErr := translate(err, stmt, params)
	if tx == nil {
		return execErr
	}
	debug.Debug("Statement failed, rolling back", "statement", stmt, "error", err)
	// A canceled context has already made database/sql roll back.
	if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
		return &TransactionError{Original: execErr, Rollback: rbErr}
	}
	return execErr
}

func (s *Session) prepare(stmt string, params Params) (string, []any, error) {
	query, args, err := bind(s.dialect, stmt, params)
	if err != nil {
		return "", nil, err
	}
	debug.Debug("Executing statement", "statement", query, "args", args, "tx", s.InTransaction())
	return query, args, nil
}

// Exec runs a statement and returns the number of affected rows.
func (s *Session) Exec(ctx context.Context, stmt string, params Params) (int64, error) {
	res, err := s.exec(ctx, stmt, params)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		debug.Debug("Driver cannot report affected rows", "driver", s.driver, "error", err)
		return 0, nil
	}
	return n, nil
}

// Insert runs an INSERT and returns the last inserted identifier. Drivers
// that cannot report one (PostgreSQL) yield 0.
func (s *Session) Insert(ctx context.Context, stmt string, params Params) (int64, error) {
	res, err := s.exec(ctx, stmt, params)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		debug.Debug("Driver cannot report last insert id", "driver", s.driver, "error", err)
		return 0, nil
	}
	return id, nil
}

func (s *Session) exec(ctx context.Context, stmt string, params Params) (sql.Result, error) {
	query, args, err := s.prepare(stmt, params)
	if err != nil {
		return nil, err
	}
	c, tx := s.target()
	res, err := c.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, s.fail(tx, err, stmt, params)
	}
	return res, nil
}

// ExecAll runs statements in order and stops at the first failure.
func (s *Session) ExecAll(ctx context.Context, stmts []string) error {
	for _, stmt := range stmts {
		if _, err := s.exec(ctx, stmt, nil); err != nil {
			return err
		}
	}
	return nil
}

// Query runs a statement and calls fn once per row. The rows, and with
// them the connection, are released on every exit path. fn must not run
// statements on the same session outside a transaction: SQLite sessions
// hold a single connection.
func (s *Session) Query(ctx context.Context, stmt string, params Params, fn func(*sql.Rows) error) error {
	query, args, err := s.prepare(stmt, params)
	if err != nil {
		return err
	}
	c, tx := s.target()
	rows, err := c.QueryContext(ctx, query, args...)
	if err != nil {
		return s.fail(tx, err, stmt, params)
	}
	defer rows.Close()

	for rows.Next() {
		if err := fn(rows); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return s.fail(tx, err, stmt, params)
	}
	return nil
}

// QueryRow runs a statement and scans its first row into dest. It returns
// sql.ErrNoRows when there is none; that is not treated as a failure.
func (s *Session) QueryRow(ctx context.Context, stmt string, params Params, dest ...any) error {
	found := false
	err := s.Query(ctx, stmt, params, func(rows *sql.Rows) error {
		if found {
			return nil
		}
		found = true
		return rows.Scan(dest...)
	})
	if err != nil {
		return err
	}
	if !found {
		return sql.ErrNoRows
	}
	return nil
}

// Values scans the current row into a slice with one value per column.
func Values(rows *sql.Rows) ([]any, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	vals := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, err
	}
	return vals, nil
}

// IsExecError reports whether err is (or wraps) a backend rejection.
func IsExecError(err error) bool {
	var e *ExecError
	return errors.As(err, &e)
}

package database

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"

	"github.com/satishbabariya/schemakit/internal/debug"
)

// State is the lifecycle state of a transaction.
type State int

const (
	Idle State = iota
	InTransaction
	Committed
	RolledBack
)

func (s State) String() string {
	switch s {
	case InTransaction:
		return "in transaction"
	case Committed:
		return "committed"
	case RolledBack:
		return "rolled back"
	default:
		return "idle"
	}
}

// Tx is the open transaction of a session. Statements are not run on the
// Tx itself: while it is open the session routes them here.
type Tx struct {
	session *Session
	tx      interface {
		conn
		Commit() error
		Rollback() error
	}
	conn  *sql.Conn
	ctx   context.Context
	state State

	release []string
}

// State reports where the transaction is in its lifecycle.
func (t *Tx) State() State {
	t.session.mu.Lock()
	defer t.session.mu.Unlock()
	return t.state
}

func (t *Tx) finish(state State) bool {
	t.session.mu.Lock()
	defer t.session.mu.Unlock()
	if t.state != InTransaction {
		return false
	}
	t.state = state
	if t.session.tx == t {
		t.session.tx = nil
	}
	return true
}

// OnRelease registers statements that run on the transaction's connection
// once it has committed or rolled back, before the connection goes back to
// the pool. They run whichever way the transaction ends.
func (t *Tx) OnRelease(stmts ...string) {
	t.session.mu.Lock()
	defer t.session.mu.Unlock()
	t.release = append(t.release, stmts...)
}

// Commit commits and returns the session to idle.
func (t *Tx) Commit() error {
	if !t.finish(Committed) {
		return ErrTransactionDone
	}
	err := t.tx.Commit()
	relErr := t.releaseConn()
	if err != nil {
		return fmt.Errorf("commit failed: %w", err)
	}
	if relErr != nil {
		return relErr
	}
	debug.Debug("Transaction committed")
	return nil
}

// Rollback rolls back and returns the session to idle. Rolling back a
// finished transaction is a no-op, so it is safe to defer.
func (t *Tx) Rollback() error {
	if !t.finish(RolledBack) {
		return nil
	}
	err := t.tx.Rollback()
	relErr := t.releaseConn()
	if err != nil {
		return fmt.Errorf("rollback failed: %w", err)
	}
	if relErr != nil {
		return relErr
	}
	debug.Debug("Transaction rolled back")
	return nil
}

// releaseConn runs the release statements and returns the pinned
// connection. A connection whose settings could not be reset is discarded
// instead of pooled.
func (t *Tx) releaseConn() error {
	if t.conn == nil {
		return nil
	}
	t.session.mu.Lock()
	stmts := t.release
	t.release = nil
	t.session.mu.Unlock()

	var err error
	for _, stmt := range stmts {
		if _, execErr := t.conn.ExecContext(t.ctx, stmt); execErr != nil {
			err = fmt.Errorf("failed to reset connection: %w", translate(execErr, stmt, nil))
			break
		}
	}
	if err != nil {
		debug.Warn("Discarding connection", "error", err)
		_ = t.conn.Raw(func(any) error { return driver.ErrBadConn })
	}
	if closeErr := t.conn.Close(); closeErr != nil && !errors.Is(closeErr, sql.ErrConnDone) {
		debug.Debug("Closing connection failed", "error", closeErr)
	}
	return err
}

package database

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"modernc.org/sqlite"
)

var (
	// ErrTransactionActive is returned by Begin while a transaction is open.
	ErrTransactionActive = errors.New("a transaction is already open on this session")

	// ErrTransactionDone is returned when committing a finished transaction.
	ErrTransactionDone = errors.New("transaction has already been committed or rolled back")

	// ErrMissingParam is returned when a statement names a parameter that
	// was not supplied.
	ErrMissingParam = errors.New("missing statement parameter")
)

// ExecError is a statement the backend rejected. It keeps everything needed
// to reproduce the failure.
type ExecError struct {
	Code      string
	Message   string
	Statement string
	Params    Params
	Err       error
}

func (e *ExecError) Error() string {
	code := ""
	if e.Code != "" {
		code = " [" + e.Code + "]"
	}
	if len(e.Params) == 0 {
		return fmt.Sprintf("statement failed%s: %s\n  statement: %s", code, e.Message, e.Statement)
	}
	return fmt.Sprintf("statement failed%s: %s\n  statement: %s\n  params: %v", code, e.Message, e.Statement, e.Params)
}

func (e *ExecError) Unwrap() error {
	return e.Err
}

// TransactionError is a failed statement whose automatic rollback failed
// as well. Both failures are kept.
type TransactionError struct {
	Original *ExecError
	Rollback error
}

func (e *TransactionError) Error() string {
	return fmt.Sprintf("%v\nrollback also failed: %v", e.Original, e.Rollback)
}

func (e *TransactionError) Unwrap() []error {
	return []error{e.Original, e.Rollback}
}

// translate wraps a driver error into an ExecError carrying the backend's
// native code.
func translate(err error, stmt string, params Params) *ExecError {
	e := &ExecError{Message: err.Error(), Statement: stmt, Params: params, Err: err}

	var myErr *mysql.MySQLError
	var pqErr *pq.Error
	var pgErr *pgconn.PgError
	var liteErr sqlite3.Error
	var moderncErr *sqlite.Error

	switch {
	case errors.As(err, &myErr):
		e.Code = strconv.Itoa(int(myErr.Number))
		e.Message = myErr.Message
	case errors.As(err, &pqErr):
		e.Code = string(pqErr.Code)
		e.Message = pqErr.Message
	case errors.As(err, &pgErr):
		e.Code = pgErr.Code
		e.Message = pgErr.Message
	case errors.As(err, &liteErr):
		e.Code = strconv.Itoa(int(liteErr.ExtendedCode))
	case errors.As(err, &moderncErr):
		e.Code = strconv.Itoa(moderncErr.Code())
	}
	return e
}

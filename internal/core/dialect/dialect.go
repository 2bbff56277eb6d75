// Package dialect translates the canonical schema model into backend-specific
// DDL and DML.
package dialect

import (
	"errors"
	"fmt"
	"strings"

	"github.com/satishbabariya/schemakit/internal/core/schema"
)

// Dialect is the capability interface every backend implements.
type Dialect interface {
	// Name returns the canonical dialect name.
	Name() string

	// Quote returns ident unchanged when it is a plain identifier and a
	// quoted form otherwise.
	Quote(ident string) string

	// BindVar returns the positional placeholder for the n-th (1-based) argument.
	BindVar(n int) string

	// NativeType maps the canonical field type to the backend type keyword.
	NativeType(f *schema.Field) (string, error)

	// FieldDefinition renders the full column clause. With forSafeAlter a NOT
	// NULL column gets a synthesized default so it can be added to a
	// populated table.
	FieldDefinition(f *schema.Field, forSafeAlter bool) (string, error)

	// CreateTableStatements returns CREATE TABLE followed by index and
	// foreign key statements in field order.
	CreateTableStatements(t *schema.Table) ([]string, error)

	// DropTableStatements returns the statements dropping t.
	DropTableStatements(t *schema.Table) []string

	// AddFieldStatements adds f to an existing table t, including its index.
	AddFieldStatements(f *schema.Field, t *schema.Table) ([]string, error)

	// AlterFieldStatements turns column current into gauge in place.
	AlterFieldStatements(current, gauge *schema.Field, t *schema.Table) ([]string, error)

	// AddIndexStatements creates the index f's classification requires.
	AddIndexStatements(f *schema.Field, t *schema.Table) ([]string, error)

	// DropIndexStatements drops the index f currently carries.
	DropIndexStatements(f *schema.Field, t *schema.Table) ([]string, error)

	// ForeignKeyClause returns the named constraint fragment for f.
	ForeignKeyClause(f *schema.Field, t *schema.Table) (string, error)

	// ActionKeyword maps a canonical referential action to SQL.
	ActionKeyword(a schema.ForeignKeyAction) (string, error)

	// DisableForeignKeysStatements suspend key enforcement for the current
	// transaction; RestoreForeignKeysStatements undo any session-level effect
	// once the transaction has ended, on the same connection.
	DisableForeignKeysStatements() []string
	RestoreForeignKeysStatements() []string

	// ResetSequenceStatements move autoincrement counters past rows that
	// were inserted with explicit keys.
	ResetSequenceStatements(t *schema.Table) []string

	// SupportsAlterField reports whether columns can be altered in place.
	SupportsAlterField() bool

	// SupportsTransactionalDDL reports whether DDL participates in transactions.
	SupportsTransactionalDDL() bool
}

var (
	// ErrUnknownDialect is returned by For for an unregistered name.
	ErrUnknownDialect = errors.New("unknown dialect")

	// ErrUnsupported is matched by every *UnsupportedError.
	ErrUnsupported = errors.New("unsupported by dialect")
)

// UnsupportedError reports a legal canonical request the backend cannot express.
type UnsupportedError struct {
	Dialect string
	Reason  string
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("%s: unsupported: %s", e.Dialect, e.Reason)
}

// Is reports whether target is ErrUnsupported.
func (e *UnsupportedError) Is(target error) bool {
	return target == ErrUnsupported
}

// NotImplementedError reports a canonical value the generator does not know.
type NotImplementedError struct {
	Dialect string
	What    string
	Value   string
}

func (e *NotImplementedError) Error() string {
	return fmt.Sprintf("%s: %s %q not implemented", e.Dialect, e.What, e.Value)
}

// For returns the dialect registered under name.
func For(name string) (Dialect, error) {
	switch strings.ToLower(name) {
	case "sqlite", "sqlite3":
		return SQLite{}, nil
	case "mysql", "mariadb":
		return MySQL{}, nil
	case "postgres", "postgresql", "pgx":
		return Postgres{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownDialect, name)
}

// Names lists the canonical dialect names.
func Names() []string {
	return []string{"sqlite", "mysql", "postgres"}
}

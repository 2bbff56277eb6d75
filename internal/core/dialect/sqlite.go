package dialect

import (
	"fmt"
	"strings"

	"github.com/satishbabariya/schemakit/internal/core/schema"
)

// SQLite implements Dialect for SQLite 3.
type SQLite struct{}

// Name returns the dialect name
func (SQLite) Name() string { return "sqlite" }

// Quote quotes non-plain identifiers with double quotes
func (SQLite) Quote(ident string) string { return quoteWith(ident, `"`) }

// BindVar returns the positional placeholder
func (SQLite) BindVar(int) string { return "?" }

// NativeType maps canonical types to SQLite declared types. Declared names
// are kept close to the canonical ones so introspection can map them back.
func (s SQLite) NativeType(f *schema.Field) (string, error) {
	if f.IsAutoIncrement() {
		return "INTEGER", nil
	}
	switch f.Type {
	case schema.TinyInt:
		return "TINYINT", nil
	case schema.SmallInt:
		return "SMALLINT", nil
	case schema.MediumInt:
		return "MEDIUMINT", nil
	case schema.Int:
		return "INTEGER", nil
	case schema.BigInt:
		return "BIGINT", nil
	case schema.Float:
		return "FLOAT", nil
	case schema.Real:
		return "REAL", nil
	case schema.Double:
		return "DOUBLE", nil
	case schema.Decimal:
		return "DECIMAL" + decimalArgs(f), nil
	case schema.Char:
		return fmt.Sprintf("CHAR(%d)", charLength(f, 1)), nil
	case schema.Varchar:
		return fmt.Sprintf("VARCHAR(%d)", charLength(f, 255)), nil
	case schema.Text:
		return "TEXT", nil
	case schema.MediumText:
		return "MEDIUMTEXT", nil
	case schema.LongText:
		return "LONGTEXT", nil
	case schema.TinyBlob:
		return "TINYBLOB", nil
	case schema.Blob:
		return "BLOB", nil
	case schema.MediumBlob:
		return "MEDIUMBLOB", nil
	case schema.LongBlob:
		return "LONGBLOB", nil
	case schema.Date:
		return "DATE", nil
	case schema.DateTime:
		return "DATETIME", nil
	case schema.Time:
		return "TIME", nil
	case schema.Timestamp:
		return "TIMESTAMP", nil
	case schema.Enum:
		return fmt.Sprintf("VARCHAR(%d)", enumLength(f)), nil
	}
	return "", &NotImplementedError{Dialect: s.Name(), What: "data type", Value: string(f.Type)}
}

// FieldDefinition renders a column clause. Autoincrement keys are declared
// inline because SQLite only accepts AUTOINCREMENT there.
func (s SQLite) FieldDefinition(f *schema.Field, forSafeAlter bool) (string, error) {
	typ, err := s.NativeType(f)
	if err != nil {
		return "", err
	}
	parts := []string{s.Quote(f.Name), typ}
	if f.IsAutoIncrement() {
		return strings.Join(append(parts, "PRIMARY KEY AUTOINCREMENT"), " "), nil
	}
	if f.Collation != "" && f.Type.Family() == schema.FamilyText {
		parts = append(parts, "COLLATE "+f.Collation)
	}
	def, err := defaultValue(s.Name(), f, forSafeAlter)
	if err != nil {
		return "", err
	}
	if def != "" {
		parts = append(parts, "DEFAULT "+def)
	}
	if !f.Nullable {
		parts = append(parts, "NOT NULL")
	}
	if f.Type == schema.Enum && len(f.EnumValues) > 0 {
		parts = append(parts, enumCheck(s, f))
	}
	return strings.Join(parts, " "), nil
}

// CreateTableStatements declares foreign keys inline; SQLite cannot add
// them later.
func (s SQLite) CreateTableStatements(t *schema.Table) ([]string, error) {
	return createTable(s, t, tableLayout{
		inlinePK: func(f *schema.Field) bool { return f.IsAutoIncrement() },
		inlineFK: true,
	})
}

// DropTableStatements drops the table
func (s SQLite) DropTableStatements(t *schema.Table) []string {
	return []string{fmt.Sprintf("DROP TABLE %s", s.Quote(t.Name))}
}

// AddFieldStatements adds a column. A foreign key column carries its
// REFERENCES clause inline, which SQLite only allows for nullable columns.
func (s SQLite) AddFieldStatements(f *schema.Field, t *schema.Table) ([]string, error) {
	if !f.Index.IsForeign() {
		return addField(s, f, t)
	}
	if f.Index.IsPrimary() || !f.Nullable {
		return nil, &UnsupportedError{
			Dialect: s.Name(),
			Reason:  fmt.Sprintf("cannot add NOT NULL or key foreign key column %s to existing table %s", f.Name, t.Name),
		}
	}
	def, err := s.FieldDefinition(f, true)
	if err != nil {
		return nil, err
	}
	onUpdate, err := s.ActionKeyword(f.OnUpdate)
	if err != nil {
		return nil, err
	}
	onDelete, err := s.ActionKeyword(f.OnDelete)
	if err != nil {
		return nil, err
	}
	return []string{
		fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s REFERENCES %s (%s) ON UPDATE %s ON DELETE %s",
			s.Quote(t.Name), def, s.Quote(f.RefTable), s.Quote(f.RefField), onUpdate, onDelete),
		createIndex(s, t, f, SupportIndexName(t, f), false),
	}, nil
}

// AlterFieldStatements is unsupported: SQLite cannot alter columns in place.
func (s SQLite) AlterFieldStatements(current, gauge *schema.Field, t *schema.Table) ([]string, error) {
	return nil, &UnsupportedError{
		Dialect: s.Name(),
		Reason:  fmt.Sprintf("cannot alter column %s.%s in place", t.Name, gauge.Name),
	}
}

// AddIndexStatements creates simple and unique indexes; constraints cannot
// be added to existing SQLite tables.
func (s SQLite) AddIndexStatements(f *schema.Field, t *schema.Table) ([]string, error) {
	if f.Index == schema.IndexForeign {
		return nil, &UnsupportedError{
			Dialect: s.Name(),
			Reason:  fmt.Sprintf("cannot add foreign key on existing column %s.%s", t.Name, f.Name),
		}
	}
	return addIndex(s, f, t)
}

// DropIndexStatements drops simple and unique indexes.
func (s SQLite) DropIndexStatements(f *schema.Field, t *schema.Table) ([]string, error) {
	switch f.Index {
	case schema.IndexUnique, schema.IndexSimple:
		return []string{fmt.Sprintf("DROP INDEX %s", s.Quote(IndexName(t, f)))}, nil
	case schema.IndexNone, "":
		return nil, nil
	}
	return nil, &UnsupportedError{
		Dialect: s.Name(),
		Reason:  fmt.Sprintf("cannot drop %s index of %s.%s", f.Index, t.Name, f.Name),
	}
}

// ForeignKeyClause renders the table constraint
func (s SQLite) ForeignKeyClause(f *schema.Field, t *schema.Table) (string, error) {
	return foreignKeyClause(s, f, t)
}

// ActionKeyword maps referential actions
func (s SQLite) ActionKeyword(a schema.ForeignKeyAction) (string, error) {
	return actionKeyword(s.Name(), a)
}

// DisableForeignKeysStatements defers key checks to commit. PRAGMA
// foreign_keys is a no-op inside a transaction, defer_foreign_keys is not.
func (SQLite) DisableForeignKeysStatements() []string {
	return []string{"PRAGMA defer_foreign_keys = ON"}
}

// RestoreForeignKeysStatements is empty; defer_foreign_keys resets on commit.
func (SQLite) RestoreForeignKeysStatements() []string { return nil }

// ResetSequenceStatements is empty; sqlite_sequence follows explicit keys.
func (SQLite) ResetSequenceStatements(*schema.Table) []string { return nil }

// SupportsAlterField reports false
func (SQLite) SupportsAlterField() bool { return false }

// SupportsTransactionalDDL reports true
func (SQLite) SupportsTransactionalDDL() bool { return true }

var _ Dialect = SQLite{}

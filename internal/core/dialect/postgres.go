package dialect

import (
	"fmt"
	"slices"
	"strings"

	"github.com/satishbabariya/schemakit/internal/core/schema"
)

// Postgres implements Dialect for PostgreSQL.
type Postgres struct{}

// Name returns the dialect name
func (Postgres) Name() string { return "postgres" }

// Quote quotes non-plain identifiers with double quotes
func (Postgres) Quote(ident string) string { return quoteWith(ident, `"`) }

// BindVar returns $n
func (Postgres) BindVar(n int) string { return fmt.Sprintf("$%d", n) }

// NativeType maps canonical types to PostgreSQL types. Unsigned has no
// equivalent and is ignored.
func (p Postgres) NativeType(f *schema.Field) (string, error) {
	if f.IsAutoIncrement() {
		switch f.Type {
		case schema.TinyInt, schema.SmallInt:
			return "SMALLSERIAL", nil
		case schema.BigInt:
			return "BIGSERIAL", nil
		default:
			return "SERIAL", nil
		}
	}
	switch f.Type {
	case schema.TinyInt, schema.SmallInt:
		return "SMALLINT", nil
	case schema.MediumInt, schema.Int:
		return "INTEGER", nil
	case schema.BigInt:
		return "BIGINT", nil
	case schema.Float, schema.Real:
		return "REAL", nil
	case schema.Double:
		return "DOUBLE PRECISION", nil
	case schema.Decimal:
		return "NUMERIC" + decimalArgs(f), nil
	case schema.Char:
		return fmt.Sprintf("CHAR(%d)", charLength(f, 1)), nil
	case schema.Varchar:
		return fmt.Sprintf("VARCHAR(%d)", charLength(f, 255)), nil
	case schema.Text, schema.MediumText, schema.LongText:
		return "TEXT", nil
	case schema.TinyBlob, schema.Blob, schema.MediumBlob, schema.LongBlob:
		return "BYTEA", nil
	case schema.Date:
		return "DATE", nil
	case schema.DateTime:
		return "TIMESTAMP", nil
	case schema.Time:
		return "TIME", nil
	case schema.Timestamp:
		return "TIMESTAMPTZ", nil
	case schema.Enum:
		return fmt.Sprintf("VARCHAR(%d)", enumLength(f)), nil
	}
	return "", &NotImplementedError{Dialect: p.Name(), What: "data type", Value: string(f.Type)}
}

// FieldDefinition renders a column clause
func (p Postgres) FieldDefinition(f *schema.Field, forSafeAlter bool) (string, error) {
	typ, err := p.NativeType(f)
	if err != nil {
		return "", err
	}
	parts := []string{p.Quote(f.Name), typ}
	if f.Collation != "" && f.Type.Family() == schema.FamilyText {
		parts = append(parts, `COLLATE "`+f.Collation+`"`)
	}
	def, err := defaultValue(p.Name(), f, forSafeAlter)
	if err != nil {
		return "", err
	}
	if def != "" {
		parts = append(parts, "DEFAULT "+def)
	}
	if !f.Nullable || f.Index.IsPrimary() {
		parts = append(parts, "NOT NULL")
	}
	if f.Type == schema.Enum && len(f.EnumValues) > 0 {
		parts = append(parts, enumCheck(p, f))
	}
	return strings.Join(parts, " "), nil
}

// CreateTableStatements adds foreign keys after the table exists
func (p Postgres) CreateTableStatements(t *schema.Table) ([]string, error) {
	return createTable(p, t, tableLayout{})
}

// DropTableStatements drops the table
func (p Postgres) DropTableStatements(t *schema.Table) []string {
	return []string{fmt.Sprintf("DROP TABLE %s", p.Quote(t.Name))}
}

// AddFieldStatements adds a column and its index
func (p Postgres) AddFieldStatements(f *schema.Field, t *schema.Table) ([]string, error) {
	return addField(p, f, t)
}

// AlterFieldStatements changes type, default and nullability in place.
// Enum value sets live in an unnamed CHECK constraint and are not altered.
func (p Postgres) AlterFieldStatements(current, gauge *schema.Field, t *schema.Table) ([]string, error) {
	if current.Index.IsPrimary() != gauge.Index.IsPrimary() || current.IsAutoIncrement() != gauge.IsAutoIncrement() {
		return nil, &UnsupportedError{
			Dialect: p.Name(),
			Reason:  fmt.Sprintf("cannot change primary key or autoincrement of %s.%s in place", t.Name, gauge.Name),
		}
	}
	if (current.Type == schema.Enum || gauge.Type == schema.Enum) &&
		(current.Type != gauge.Type || !slices.Equal(current.EnumValues, gauge.EnumValues)) {
		return nil, &UnsupportedError{
			Dialect: p.Name(),
			Reason:  fmt.Sprintf("cannot change enum values of %s.%s in place", t.Name, gauge.Name),
		}
	}
	typ, err := p.NativeType(gauge)
	if err != nil {
		return nil, err
	}
	table, col := p.Quote(t.Name), p.Quote(gauge.Name)
	stmts := []string{fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s TYPE %s USING %s::%s", table, col, typ, col, typ)}
	if gauge.Default != "" {
		stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s SET DEFAULT %s", table, col, gauge.Default))
	} else if current.Default != "" {
		stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s DROP DEFAULT", table, col))
	}
	if gauge.Nullable && !gauge.Index.IsPrimary() {
		stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s DROP NOT NULL", table, col))
	} else {
		stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s SET NOT NULL", table, col))
	}
	return stmts, nil
}

// AddIndexStatements creates the index the field requires
func (p Postgres) AddIndexStatements(f *schema.Field, t *schema.Table) ([]string, error) {
	return addIndex(p, f, t)
}

// DropIndexStatements drops an index, or a foreign key and its support index.
func (p Postgres) DropIndexStatements(f *schema.Field, t *schema.Table) ([]string, error) {
	switch f.Index {
	case schema.IndexUnique, schema.IndexSimple:
		return []string{fmt.Sprintf("DROP INDEX %s", p.Quote(IndexName(t, f)))}, nil
	case schema.IndexForeign:
		return []string{
			fmt.Sprintf("ALTER TABLE %s DROP CONSTRAINT %s", p.Quote(t.Name), p.Quote(IndexName(t, f))),
			fmt.Sprintf("DROP INDEX %s", p.Quote(SupportIndexName(t, f))),
		}, nil
	case schema.IndexNone, "":
		return nil, nil
	}
	return nil, &UnsupportedError{
		Dialect: p.Name(),
		Reason:  fmt.Sprintf("cannot drop %s index of %s.%s", f.Index, t.Name, f.Name),
	}
}

// ForeignKeyClause renders a deferrable constraint so clone can defer checks.
func (p Postgres) ForeignKeyClause(f *schema.Field, t *schema.Table) (string, error) {
	clause, err := foreignKeyClause(p, f, t)
	if err != nil {
		return "", err
	}
	return clause + " DEFERRABLE INITIALLY IMMEDIATE", nil
}

// ActionKeyword maps referential actions. RESTRICT cannot be deferred, so
// it is rendered as NO ACTION.
func (p Postgres) ActionKeyword(a schema.ForeignKeyAction) (string, error) {
	if a == schema.ActionRestrict || a == "" {
		return "NO ACTION", nil
	}
	return actionKeyword(p.Name(), a)
}

// DisableForeignKeysStatements defers deferrable constraints to commit.
func (Postgres) DisableForeignKeysStatements() []string {
	return []string{"SET CONSTRAINTS ALL DEFERRED"}
}

// RestoreForeignKeysStatements is empty; the setting ends with the transaction.
func (Postgres) RestoreForeignKeysStatements() []string { return nil }

// ResetSequenceStatements sets each serial sequence to the column's
// current maximum.
func (p Postgres) ResetSequenceStatements(t *schema.Table) []string {
	var stmts []string
	for _, f := range t.Fields {
		if !f.IsAutoIncrement() {
			continue
		}
		col := p.Quote(f.Name)
		stmts = append(stmts, fmt.Sprintf(
			"SELECT setval(pg_get_serial_sequence(%s, %s), COALESCE(MAX(%s), 1), MAX(%s) IS NOT NULL) FROM %s",
			literal(p.Quote(t.Name)), literal(f.Name), col, col, p.Quote(t.Name)))
	}
	return stmts
}

// SupportsAlterField reports true
func (Postgres) SupportsAlterField() bool { return true }

// SupportsTransactionalDDL reports true
func (Postgres) SupportsTransactionalDDL() bool { return true }

var _ Dialect = Postgres{}

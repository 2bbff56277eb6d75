package dialect

import (
	"fmt"
	"strings"

	"github.com/satishbabariya/schemakit/internal/core/schema"
)

// MySQL implements Dialect for MySQL 8 and MariaDB.
type MySQL struct{}

// Name returns the dialect name
func (MySQL) Name() string { return "mysql" }

// Quote quotes non-plain identifiers with backticks
func (MySQL) Quote(ident string) string { return quoteWith(ident, "`") }

// BindVar returns the positional placeholder
func (MySQL) BindVar(int) string { return "?" }

// NativeType maps canonical types to MySQL column types
func (m MySQL) NativeType(f *schema.Field) (string, error) {
	unsigned := ""
	if f.Unsigned && f.Type.Family() == schema.FamilyInteger {
		unsigned = " UNSIGNED"
	}
	if f.IsAutoIncrement() {
		if f.Type == schema.BigInt {
			return "BIGINT" + unsigned, nil
		}
		return "INT" + unsigned, nil
	}
	switch f.Type {
	case schema.TinyInt:
		return "TINYINT" + unsigned, nil
	case schema.SmallInt:
		return "SMALLINT" + unsigned, nil
	case schema.MediumInt:
		return "MEDIUMINT" + unsigned, nil
	case schema.Int:
		return "INT" + unsigned, nil
	case schema.BigInt:
		return "BIGINT" + unsigned, nil
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
		return fmt.Sprintf("ENUM(%s)", enumValues(f)), nil
	}
	return "", &NotImplementedError{Dialect: m.Name(), What: "data type", Value: string(f.Type)}
}

// FieldDefinition renders a column clause. TEXT columns only accept
// expression defaults, so synthesized text defaults are parenthesized.
func (m MySQL) FieldDefinition(f *schema.Field, forSafeAlter bool) (string, error) {
	typ, err := m.NativeType(f)
	if err != nil {
		return "", err
	}
	parts := []string{m.Quote(f.Name), typ}
	if f.Collation != "" && f.Type.Family() == schema.FamilyText {
		parts = append(parts, "COLLATE "+f.Collation)
	}
	def, err := defaultValue(m.Name(), f, forSafeAlter)
	if err != nil {
		return "", err
	}
	if def != "" {
		if f.Default == "" && isMySQLTextBlob(f.Type) {
			def = "(" + def + ")"
		}
		parts = append(parts, "DEFAULT "+def)
	}
	if f.Nullable && !f.Index.IsPrimary() {
		parts = append(parts, "NULL")
	} else {
		parts = append(parts, "NOT NULL")
	}
	if f.IsAutoIncrement() {
		parts = append(parts, "AUTO_INCREMENT")
	}
	return strings.Join(parts, " "), nil
}

func isMySQLTextBlob(t schema.DataType) bool {
	switch t {
	case schema.Text, schema.MediumText, schema.LongText:
		return true
	}
	return t.IsBlob()
}

// CreateTableStatements adds foreign keys after the table exists so that
// index and constraint names stay explicit.
func (m MySQL) CreateTableStatements(t *schema.Table) ([]string, error) {
	engine := t.Engine
	if engine == "" {
		engine = "InnoDB"
	}
	suffix := " ENGINE=" + engine
	if t.Charset != "" {
		suffix += " DEFAULT CHARSET=" + t.Charset
	}
	return createTable(m, t, tableLayout{suffix: suffix})
}

// DropTableStatements drops the table
func (m MySQL) DropTableStatements(t *schema.Table) []string {
	return []string{fmt.Sprintf("DROP TABLE %s", m.Quote(t.Name))}
}

// AddFieldStatements adds a column and its index
func (m MySQL) AddFieldStatements(f *schema.Field, t *schema.Table) ([]string, error) {
	return addField(m, f, t)
}

// AlterFieldStatements rewrites the column definition with MODIFY COLUMN.
// Changes to the primary key or autoincrement are not altered in place.
func (m MySQL) AlterFieldStatements(current, gauge *schema.Field, t *schema.Table) ([]string, error) {
	if current.Index.IsPrimary() != gauge.Index.IsPrimary() || current.IsAutoIncrement() != gauge.IsAutoIncrement() {
		return nil, &UnsupportedError{
			Dialect: m.Name(),
			Reason:  fmt.Sprintf("cannot change primary key or autoincrement of %s.%s in place", t.Name, gauge.Name),
		}
	}
	def, err := m.FieldDefinition(gauge, true)
	if err != nil {
		return nil, err
	}
	return []string{fmt.Sprintf("ALTER TABLE %s MODIFY COLUMN %s", m.Quote(t.Name), def)}, nil
}

// AddIndexStatements creates the index the field requires
func (m MySQL) AddIndexStatements(f *schema.Field, t *schema.Table) ([]string, error) {
	return addIndex(m, f, t)
}

// DropIndexStatements drops an index, or a foreign key and its support index.
func (m MySQL) DropIndexStatements(f *schema.Field, t *schema.Table) ([]string, error) {
	switch f.Index {
	case schema.IndexUnique, schema.IndexSimple:
		return []string{fmt.Sprintf("DROP INDEX %s ON %s", m.Quote(IndexName(t, f)), m.Quote(t.Name))}, nil
	case schema.IndexForeign:
		return []string{
			fmt.Sprintf("ALTER TABLE %s DROP FOREIGN KEY %s", m.Quote(t.Name), m.Quote(IndexName(t, f))),
			fmt.Sprintf("DROP INDEX %s ON %s", m.Quote(SupportIndexName(t, f)), m.Quote(t.Name)),
		}, nil
	case schema.IndexNone, "":
		return nil, nil
	}
	return nil, &UnsupportedError{
		Dialect: m.Name(),
		Reason:  fmt.Sprintf("cannot drop %s index of %s.%s", f.Index, t.Name, f.Name),
	}
}

// ForeignKeyClause renders the table constraint
func (m MySQL) ForeignKeyClause(f *schema.Field, t *schema.Table) (string, error) {
	return foreignKeyClause(m, f, t)
}

// ActionKeyword maps referential actions
func (m MySQL) ActionKeyword(a schema.ForeignKeyAction) (string, error) {
	return actionKeyword(m.Name(), a)
}

// DisableForeignKeysStatements turns off key checks for the session.
func (MySQL) DisableForeignKeysStatements() []string {
	return []string{"SET FOREIGN_KEY_CHECKS = 0"}
}

// RestoreForeignKeysStatements turns key checks back on before the
// connection returns to the pool.
func (MySQL) RestoreForeignKeysStatements() []string {
	return []string{"SET FOREIGN_KEY_CHECKS = 1"}
}

// ResetSequenceStatements is empty; AUTO_INCREMENT follows explicit keys.
func (MySQL) ResetSequenceStatements(*schema.Table) []string { return nil }

// SupportsAlterField reports true
func (MySQL) SupportsAlterField() bool { return true }

// SupportsTransactionalDDL reports false; MySQL commits implicitly on DDL.
func (MySQL) SupportsTransactionalDDL() bool { return false }

var _ Dialect = MySQL{}

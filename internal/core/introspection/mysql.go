package introspection

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/satishbabariya/schemakit/internal/adapters/database"
	"github.com/satishbabariya/schemakit/internal/core/schema"
	"github.com/satishbabariya/schemakit/internal/debug"
)

// MySQLIntrospector reads information_schema for the current database.
type MySQLIntrospector struct {
	session *database.Session
}

// Introspect reads every base table of DATABASE().
func (i *MySQLIntrospector) Introspect(ctx context.Context) (*schema.Schema, error) {
	set := newTableSet()

	err := i.session.Query(ctx, `SELECT table_name, COALESCE(engine, ''), COALESCE(table_collation, '')
		FROM information_schema.tables
		WHERE table_schema = DATABASE() AND table_type = 'BASE TABLE'
		ORDER BY table_name`, nil, func(rows *sql.Rows) error {
		var name, engine, collation string
		if err := rows.Scan(&name, &engine, &collation); err != nil {
			return err
		}
		r := set.add(name)
		r.table.Engine = engine
		if cs, _, ok := strings.Cut(collation, "_"); ok {
			r.table.Charset = cs
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query tables: %w", err)
	}

	err = i.session.Query(ctx, `SELECT table_name, column_name, column_type, is_nullable, column_default, extra, collation_name
		FROM information_schema.columns
		WHERE table_schema = DATABASE()
		ORDER BY table_name, ordinal_position`, nil, func(rows *sql.Rows) error {
		var table, name, colType, nullable, extra string
		var dflt, collation sql.NullString
		if err := rows.Scan(&table, &name, &colType, &nullable, &dflt, &extra, &collation); err != nil {
			return err
		}
		r := set.get(table)
		if r == nil {
			return nil
		}
		f := &schema.Field{
			Name:          name,
			Nullable:      strings.EqualFold(nullable, "YES"),
			AutoIncrement: strings.Contains(strings.ToLower(extra), "auto_increment"),
			Collation:     collation.String,
			Default:       mysqlDefault(dflt),
		}
		if err := mysqlType(f, colType); err != nil {
			return fmt.Errorf("column %s.%s: %w", table, name, err)
		}
		r.table.Fields = append(r.table.Fields, f)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query columns: %w", err)
	}

	err = i.session.Query(ctx, `SELECT table_name, index_name, non_unique, column_name
		FROM information_schema.statistics
		WHERE table_schema = DATABASE()
		ORDER BY table_name, index_name, seq_in_index`, nil, func(rows *sql.Rows) error {
		var table, index, column string
		var nonUnique int
		if err := rows.Scan(&table, &index, &nonUnique, &column); err != nil {
			return err
		}
		r := set.get(table)
		if r == nil {
			return nil
		}
		if index == "PRIMARY" {
			r.primary = append(r.primary, column)
			return nil
		}
		r.addIndexColumn(index, column, nonUnique == 0, false)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query indexes: %w", err)
	}

	err = i.session.Query(ctx, `SELECT k.table_name, k.constraint_name, k.column_name, k.referenced_table_name,
			k.referenced_column_name, r.update_rule, r.delete_rule
		FROM information_schema.key_column_usage k
		JOIN information_schema.referential_constraints r
			ON r.constraint_schema = k.constraint_schema
			AND r.constraint_name = k.constraint_name
			AND r.table_name = k.table_name
		WHERE k.table_schema = DATABASE() AND k.referenced_table_name IS NOT NULL
		ORDER BY k.table_name, k.constraint_name, k.ordinal_position`, nil, func(rows *sql.Rows) error {
		var fk rawForeignKey
		var table, column, refColumn string
		if err := rows.Scan(&table, &fk.name, &column, &fk.refTable, &refColumn, &fk.onUpdate, &fk.onDelete); err != nil {
			return err
		}
		if r := set.get(table); r != nil {
			fk.columns = []string{column}
			fk.refColumns = []string{refColumn}
			r.addForeignKeyColumn(fk)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query foreign keys: %w", err)
	}

	return set.schema(), nil
}

// mysqlDefault drops the NULL default MariaDB reports as a literal.
func mysqlDefault(dflt sql.NullString) string {
	if !dflt.Valid || strings.EqualFold(dflt.String, "NULL") {
		return ""
	}
	return dflt.String
}

// mysqlType maps a column_type such as "int unsigned" or "enum('a','b')".
func mysqlType(f *schema.Field, columnType string) error {
	expr, err := schema.ParseTypeExpr(columnType)
	if err != nil {
		return err
	}
	f.Unsigned = expr.Has("unsigned")
	ints := expr.Ints()
	size := func() {
		if len(ints) > 0 {
			f.Length = ints[0]
		}
		if len(ints) > 1 {
			f.Scale = ints[1]
		}
	}

	switch base := expr.Base(); base {
	case "tinyint", "bool", "boolean", "bit":
		f.Type = schema.TinyInt
	case "smallint", "year":
		f.Type = schema.SmallInt
	case "mediumint":
		f.Type = schema.MediumInt
	case "int", "integer":
		f.Type = schema.Int
	case "bigint":
		f.Type = schema.BigInt
	case "float":
		f.Type = schema.Float
	case "real", "double", "double precision":
		f.Type = schema.Double
	case "decimal", "numeric":
		f.Type = schema.Decimal
		size()
	case "char", "binary":
		f.Type = schema.Char
		size()
	case "varchar", "varbinary":
		f.Type = schema.Varchar
		size()
	case "tinytext", "text":
		f.Type = schema.Text
	case "mediumtext":
		f.Type = schema.MediumText
	case "longtext", "json":
		f.Type = schema.LongText
	case "tinyblob":
		f.Type = schema.TinyBlob
	case "blob":
		f.Type = schema.Blob
	case "mediumblob":
		f.Type = schema.MediumBlob
	case "longblob":
		f.Type = schema.LongBlob
	case "date":
		f.Type = schema.Date
	case "datetime":
		f.Type = schema.DateTime
	case "time":
		f.Type = schema.Time
	case "timestamp":
		f.Type = schema.Timestamp
	case "enum":
		f.Type = schema.Enum
		f.EnumValues = expr.Strings()
	case "set":
		f.Type = schema.Varchar
		f.Length = 255
	default:
		debug.Debug("Mapping unknown MySQL type to longtext", "type", columnType)
		f.Type = schema.LongText
	}
	return nil
}

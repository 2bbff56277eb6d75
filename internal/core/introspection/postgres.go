package introspection

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	"github.com/satishbabariya/schemakit/internal/adapters/database"
	"github.com/satishbabariya/schemakit/internal/core/schema"
	"github.com/satishbabariya/schemakit/internal/debug"
)

// PostgresIntrospector reads the catalogs of current_schema().
type PostgresIntrospector struct {
	session *database.Session
}

var (
	postgresCheckColumn = regexp.MustCompile(`(?i)^CHECK\s*\(+\s*"?(\w+)"?\s*\)?(?:::[\w ]+)?\s*(?:=\s*ANY|IN)\b`)
	postgresCheckValue  = regexp.MustCompile(`'((?:[^']|'')*)'`)
	postgresCast        = regexp.MustCompile(`^('(?:[^']|'')*')::[\w ]+$`)
)

// Introspect reads every ordinary table of the current schema.
func (i *PostgresIntrospector) Introspect(ctx context.Context) (*schema.Schema, error) {
	set := newTableSet()

	err := i.session.Query(ctx, `SELECT table_name FROM information_schema.tables
		WHERE table_schema = current_schema() AND table_type = 'BASE TABLE'
		ORDER BY table_name`, nil, func(rows *sql.Rows) error {
		var name string
		if err := rows.Scan(&name); err != nil {
			return err
		}
		set.add(name)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query tables: %w", err)
	}

	enums, err := i.enumChecks(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query check constraints: %w", err)
	}

	err = i.session.Query(ctx, `SELECT table_name, column_name, data_type, is_nullable, column_default, is_identity,
			character_maximum_length, numeric_precision, numeric_scale, collation_name
		FROM information_schema.columns
		WHERE table_schema = current_schema()
		ORDER BY table_name, ordinal_position`, nil, func(rows *sql.Rows) error {
		var table, name, dataType, nullable, identity string
		var dflt, collation sql.NullString
		var length, precision, scale sql.NullInt64
		if err := rows.Scan(&table, &name, &dataType, &nullable, &dflt, &identity,
			&length, &precision, &scale, &collation); err != nil {
			return err
		}
		r := set.get(table)
		if r == nil {
			return nil
		}
		f := &schema.Field{
			Name:      name,
			Nullable:  strings.EqualFold(nullable, "YES"),
			Collation: collation.String,
		}
		switch {
		case strings.HasPrefix(dflt.String, "nextval("), strings.EqualFold(identity, "YES"):
			f.AutoIncrement = true
		default:
			f.Default = postgresDefault(dflt.String)
		}
		postgresType(f, dataType, int(length.Int64), int(precision.Int64), int(scale.Int64))
		if values, ok := enums[table+"."+name]; ok && f.Type.Family() == schema.FamilyText {
			f.Type = schema.Enum
			f.EnumValues = values
			f.Length = 0
		}
		r.table.Fields = append(r.table.Fields, f)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query columns: %w", err)
	}

	err = i.session.Query(ctx, `SELECT t.relname, ic.relname, ix.indisunique, ix.indisprimary, a.attname
		FROM pg_index ix
		JOIN pg_class t ON t.oid = ix.indrelid
		JOIN pg_class ic ON ic.oid = ix.indexrelid
		JOIN pg_namespace n ON n.oid = t.relnamespace
		JOIN LATERAL unnest(ix.indkey) WITH ORDINALITY AS k(attnum, ord) ON true
		JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = k.attnum
		WHERE n.nspname = current_schema() AND t.relkind = 'r'
		ORDER BY t.relname, ic.relname, k.ord`, nil, func(rows *sql.Rows) error {
		var table, index, column string
		var unique, primary bool
		if err := rows.Scan(&table, &index, &unique, &primary, &column); err != nil {
			return err
		}
		r := set.get(table)
		if r == nil {
			return nil
		}
		if primary {
			r.primary = append(r.primary, column)
			return nil
		}
		r.addIndexColumn(index, column, unique, false)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query indexes: %w", err)
	}

	err = i.session.Query(ctx, `SELECT t.relname, c.conname, a.attname, rt.relname, ra.attname,
			c.confupdtype::text, c.confdeltype::text
		FROM pg_constraint c
		JOIN pg_class t ON t.oid = c.conrelid
		JOIN pg_namespace n ON n.oid = t.relnamespace
		JOIN pg_class rt ON rt.oid = c.confrelid
		JOIN LATERAL unnest(c.conkey, c.confkey) WITH ORDINALITY AS k(attnum, refnum, ord) ON true
		JOIN pg_attribute a ON a.attrelid = c.conrelid AND a.attnum = k.attnum
		JOIN pg_attribute ra ON ra.attrelid = c.confrelid AND ra.attnum = k.refnum
		WHERE c.contype = 'f' AND n.nspname = current_schema()
		ORDER BY t.relname, c.conname, k.ord`, nil, func(rows *sql.Rows) error {
		var fk rawForeignKey
		var table, column, refColumn, onUpdate, onDelete string
		if err := rows.Scan(&table, &fk.name, &column, &fk.refTable, &refColumn, &onUpdate, &onDelete); err != nil {
			return err
		}
		if r := set.get(table); r != nil {
			fk.columns = []string{column}
			fk.refColumns = []string{refColumn}
			fk.onUpdate = postgresAction(onUpdate)
			fk.onDelete = postgresAction(onDelete)
			r.addForeignKeyColumn(fk)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query foreign keys: %w", err)
	}

	return set.schema(), nil
}

// enumChecks recovers enum value sets from single-column CHECK constraints,
// keyed by "table.column".
func (i *PostgresIntrospector) enumChecks(ctx context.Context) (map[string][]string, error) {
	enums := make(map[string][]string)
	err := i.session.Query(ctx, `SELECT t.relname, pg_get_constraintdef(c.oid)
		FROM pg_constraint c
		JOIN pg_class t ON t.oid = c.conrelid
		JOIN pg_namespace n ON n.oid = t.relnamespace
		WHERE c.contype = 'c' AND n.nspname = current_schema()`, nil, func(rows *sql.Rows) error {
		var table, def string
		if err := rows.Scan(&table, &def); err != nil {
			return err
		}
		column, values, ok := parseEnumCheck(def)
		if ok {
			enums[table+"."+column] = values
		}
		return nil
	})
	return enums, err
}

func parseEnumCheck(def string) (string, []string, bool) {
	m := postgresCheckColumn.FindStringSubmatch(def)
	if m == nil {
		return "", nil, false
	}
	var values []string
	for _, v := range postgresCheckValue.FindAllStringSubmatch(def, -1) {
		values = append(values, strings.ReplaceAll(v[1], "''", "'"))
	}
	if len(values) == 0 {
		return "", nil, false
	}
	return m[1], values, true
}

// postgresDefault strips the cast Postgres attaches to literal defaults.
func postgresDefault(dflt string) string {
	if m := postgresCast.FindStringSubmatch(dflt); m != nil {
		return m[1]
	}
	return dflt
}

func postgresAction(code string) string {
	switch code {
	case "c":
		return "cascade"
	case "n":
		return "set null"
	case "a", "r":
		return "restrict"
	}
	return code
}

// postgresType maps an information_schema data_type.
func postgresType(f *schema.Field, dataType string, length, precision, scale int) {
	switch strings.ToLower(dataType) {
	case "smallint":
		f.Type = schema.SmallInt
	case "integer":
		f.Type = schema.Int
	case "bigint":
		f.Type = schema.BigInt
	case "boolean":
		f.Type = schema.TinyInt
	case "real":
		f.Type = schema.Real
	case "double precision":
		f.Type = schema.Double
	case "numeric", "money":
		f.Type = schema.Decimal
		f.Length, f.Scale = precision, scale
	case "character":
		f.Type = schema.Char
		f.Length = length
	case "character varying":
		f.Type = schema.Varchar
		f.Length = length
	case "text", "json", "jsonb", "xml":
		f.Type = schema.Text
	case "uuid":
		f.Type = schema.Char
		f.Length = 36
	case "bytea":
		f.Type = schema.Blob
	case "date":
		f.Type = schema.Date
	case "timestamp without time zone":
		f.Type = schema.DateTime
	case "timestamp with time zone":
		f.Type = schema.Timestamp
	case "time without time zone", "time with time zone":
		f.Type = schema.Time
	default:
		debug.Debug("Mapping unknown PostgreSQL type to text", "type", dataType)
		f.Type = schema.Text
	}
}

package introspection

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/satishbabariya/schemakit/internal/adapters/database"
	"github.com/satishbabariya/schemakit/internal/core/schema"
)

// SQLiteIntrospector reads sqlite_master and the table pragmas.
type SQLiteIntrospector struct {
	session *database.Session
}

var (
	sqliteConstraint = regexp.MustCompile(`(?i)CONSTRAINT\s+["` + "`" + `]?(\w+)["` + "`" + `]?\s+FOREIGN\s+KEY\s*\(\s*["` + "`" + `]?(\w+)["` + "`" + `]?\s*\)`)
	sqliteEnumCheck  = regexp.MustCompile(`(?i)CHECK\s*\(\s*["` + "`" + `]?(\w+)["` + "`" + `]?\s+IN\s*\(((?:\s*'(?:[^']|'')*'\s*,?)*)\)\s*\)`)
	sqliteComment    = regexp.MustCompile(`(?s)--[^\n]*|/\*.*?\*/`)
)

// sqliteAutoIncrement reports whether column is declared INTEGER PRIMARY
// KEY AUTOINCREMENT in ddl, the only form SQLite accepts.
func sqliteAutoIncrement(ddl, column string) bool {
	re, err := regexp.Compile(`(?i)(?:^|[\s,(])["` + "`" + `\[]?` + regexp.QuoteMeta(column) +
		`["` + "`" + `\]]?\s+INTEGER\s+PRIMARY\s+KEY\b[^,]*?\bAUTOINCREMENT\b`)
	if err != nil {
		return false
	}
	return re.MatchString(sqliteComment.ReplaceAllString(ddl, " "))
}

type sqliteMaster struct {
	name string
	sql  string
}

// Introspect reads every user table.
func (i *SQLiteIntrospector) Introspect(ctx context.Context) (*schema.Schema, error) {
	var masters []sqliteMaster
	err := i.session.Query(ctx, `SELECT name, sql FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`, nil,
		func(rows *sql.Rows) error {
			var m sqliteMaster
			var ddl sql.NullString
			if err := rows.Scan(&m.name, &ddl); err != nil {
				return err
			}
			m.sql = ddl.String
			masters = append(masters, m)
			return nil
		})
	if err != nil {
		return nil, fmt.Errorf("failed to query tables: %w", err)
	}

	set := newTableSet()
	for _, m := range masters {
		r := set.add(m.name)
		if err := i.columns(ctx, r, m.sql); err != nil {
			return nil, fmt.Errorf("failed to introspect columns for %s: %w", m.name, err)
		}
		if err := i.indexes(ctx, r); err != nil {
			return nil, fmt.Errorf("failed to introspect indexes for %s: %w", m.name, err)
		}
		if err := i.foreignKeys(ctx, r, m.sql); err != nil {
			return nil, fmt.Errorf("failed to introspect foreign keys for %s: %w", m.name, err)
		}
	}
	return set.schema(), nil
}

func (i *SQLiteIntrospector) quote(name string) string {
	return i.session.Dialect().Quote(name)
}

func (i *SQLiteIntrospector) columns(ctx context.Context, r *rawTable, ddl string) error {
	enums := make(map[string][]string)
	for _, m := range sqliteEnumCheck.FindAllStringSubmatch(ddl, -1) {
		if expr, err := schema.ParseTypeExpr("enum(" + m[2] + ")"); err == nil {
			enums[strings.ToLower(m[1])] = expr.Strings()
		}
	}

	type keyPart struct {
		pos  int
		name string
	}
	var keys []keyPart

	err := i.session.Query(ctx, fmt.Sprintf("PRAGMA table_info(%s)", i.quote(r.table.Name)), nil, func(rows *sql.Rows) error {
		var cid, notNull, pk int
		var name, colType string
		var dflt sql.NullString
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dflt, &pk); err != nil {
			return err
		}
		f := &schema.Field{Name: name, Nullable: notNull == 0, Default: dflt.String}
		sqliteType(f, colType)
		if values, ok := enums[strings.ToLower(name)]; ok && f.Type.Family() == schema.FamilyText {
			f.Type = schema.Enum
			f.EnumValues = values
			f.Length = 0
		}
		if pk > 0 {
			keys = append(keys, keyPart{pos: pk, name: name})
			if strings.EqualFold(colType, "INTEGER") && sqliteAutoIncrement(ddl, name) {
				f.AutoIncrement = true
				f.Type = schema.Int
			}
		}
		r.table.Fields = append(r.table.Fields, f)
		return nil
	})
	if err != nil {
		return err
	}
	sort.Slice(keys, func(a, b int) bool { return keys[a].pos < keys[b].pos })
	for _, k := range keys {
		r.primary = append(r.primary, k.name)
	}
	return nil
}

func (i *SQLiteIntrospector) indexes(ctx context.Context, r *rawTable) error {
	var list []rawIndex
	err := i.session.Query(ctx, fmt.Sprintf("PRAGMA index_list(%s)", i.quote(r.table.Name)), nil, func(rows *sql.Rows) error {
		var seq, unique, partial int
		var name, origin string
		if err := rows.Scan(&seq, &name, &unique, &origin, &partial); err != nil {
			return err
		}
		list = append(list, rawIndex{name: name, unique: unique == 1, primary: origin == "pk"})
		return nil
	})
	if err != nil {
		return err
	}

	for _, idx := range list {
		err := i.session.Query(ctx, fmt.Sprintf("PRAGMA index_info(%s)", i.quote(idx.name)), nil, func(rows *sql.Rows) error {
			var seqno, cid int
			var name sql.NullString
			if err := rows.Scan(&seqno, &cid, &name); err != nil {
				return err
			}
			if name.Valid {
				idx.columns = append(idx.columns, name.String)
			}
			return nil
		})
		if err != nil {
			return err
		}
		r.indexes = append(r.indexes, idx)
	}
	return nil
}

// foreignKeys reads the key list. SQLite does not report constraint names,
// so they are recovered from the table definition.
func (i *SQLiteIntrospector) foreignKeys(ctx context.Context, r *rawTable, ddl string) error {
	names := make(map[string]string)
	for _, m := range sqliteConstraint.FindAllStringSubmatch(ddl, -1) {
		names[strings.ToLower(m[2])] = m[1]
	}

	ids := make(map[int]string)
	return i.session.Query(ctx, fmt.Sprintf("PRAGMA foreign_key_list(%s)", i.quote(r.table.Name)), nil, func(rows *sql.Rows) error {
		var id, seq int
		var table, from, onUpdate, onDelete, match string
		var to sql.NullString
		if err := rows.Scan(&id, &seq, &table, &from, &to, &onUpdate, &onDelete, &match); err != nil {
			return err
		}
		name, ok := ids[id]
		if !ok {
			name = names[strings.ToLower(from)]
			if name == "" {
				name = fmt.Sprintf("%s_fk_%d", r.table.Name, id)
			}
			ids[id] = name
		}
		r.addForeignKeyColumn(rawForeignKey{
			name:       name,
			columns:    []string{from},
			refTable:   table,
			refColumns: []string{to.String},
			onUpdate:   onUpdate,
			onDelete:   onDelete,
		})
		return nil
	})
}

// sqliteType maps a declared type back to the canonical one. Declared
// names that are not canonical fall back to SQLite's affinity rules.
func sqliteType(f *schema.Field, declared string) {
	expr, err := schema.ParseTypeExpr(declared)
	base := ""
	if err == nil {
		base = expr.Base()
		if ints := expr.Ints(); len(ints) > 0 {
			f.Length = ints[0]
			if len(ints) > 1 {
				f.Scale = ints[1]
			}
		}
		f.Unsigned = expr.Has("unsigned")
	}
	switch base {
	case "integer":
		f.Type = schema.Int
		return
	case "numeric":
		f.Type = schema.Decimal
		return
	}
	if dt, err := schema.ParseDataType(base); err == nil && dt != schema.Enum {
		f.Type = dt
		return
	}

	upper := strings.ToUpper(declared)
	f.Length, f.Scale = 0, 0
	switch {
	case strings.Contains(upper, "INT"):
		f.Type = schema.BigInt
	case strings.Contains(upper, "CHAR"), strings.Contains(upper, "TEXT"), strings.Contains(upper, "CLOB"):
		f.Type = schema.Text
	case upper == "", strings.Contains(upper, "BLOB"):
		f.Type = schema.Blob
	case strings.Contains(upper, "REAL"), strings.Contains(upper, "FLOA"), strings.Contains(upper, "DOUB"):
		f.Type = schema.Double
	default:
		f.Type = schema.Decimal
	}
}

package dialect

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/satishbabariya/schemakit/internal/core/schema"
)

// SupportIndexSuffix marks an index that only backs a foreign key constraint.
const SupportIndexSuffix = "_ix"

// DefaultDecimalPrecision and DefaultDecimalScale apply when a decimal field
// declares no length.
const (
	DefaultDecimalPrecision = 18
	DefaultDecimalScale     = 4
)

var plainIdent = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

var reserved = map[string]bool{
	"add": true, "all": true, "alter": true, "and": true, "as": true, "by": true, "check": true,
	"column": true, "constraint": true, "create": true, "default": true, "delete": true,
	"desc": true, "distinct": true, "drop": true, "from": true, "group": true, "having": true,
	"in": true, "index": true, "insert": true, "into": true, "key": true, "limit": true,
	"not": true, "null": true, "on": true, "or": true, "order": true, "primary": true,
	"references": true, "select": true, "set": true, "table": true, "to": true, "union": true,
	"unique": true, "update": true, "user": true, "values": true, "where": true,
}

func quoteWith(ident, q string) string {
	if plainIdent.MatchString(ident) && !reserved[strings.ToLower(ident)] {
		return ident
	}
	return q + strings.ReplaceAll(ident, q, q+q) + q
}

// literal renders s as a single-quoted SQL string literal.
func literal(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// IndexName returns the configured index name of f, falling back to the
// safe naming policy.
func IndexName(t *schema.Table, f *schema.Field) string {
	if f.IndexName != "" {
		return f.IndexName
	}
	return schema.SafeIndexName(t.Name, f)
}

// SupportIndexName names the plain index backing f's foreign key.
func SupportIndexName(t *schema.Table, f *schema.Field) string {
	return IndexName(t, f) + SupportIndexSuffix
}

func joinQuoted(d Dialect, names ...string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = d.Quote(n)
	}
	return strings.Join(quoted, ", ")
}

func fieldNames(fields []*schema.Field) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = f.Name
	}
	return out
}

func decimalArgs(f *schema.Field) string {
	if f.Length <= 0 {
		return fmt.Sprintf("(%d,%d)", DefaultDecimalPrecision, DefaultDecimalScale)
	}
	return fmt.Sprintf("(%d,%d)", f.Length, f.Scale)
}

func charLength(f *schema.Field, fallback int) int {
	if f.Length > 0 {
		return f.Length
	}
	return fallback
}

// enumLength is the widest value, or the declared length if larger.
func enumLength(f *schema.Field) int {
	n := f.Length
	for _, v := range f.EnumValues {
		if len(v) > n {
			n = len(v)
		}
	}
	if n == 0 {
		n = 1
	}
	return n
}

func enumValues(f *schema.Field) string {
	vals := make([]string, len(f.EnumValues))
	for i, v := range f.EnumValues {
		vals[i] = literal(v)
	}
	return strings.Join(vals, ", ")
}

func enumCheck(d Dialect, f *schema.Field) string {
	return fmt.Sprintf("CHECK (%s IN (%s))", d.Quote(f.Name), enumValues(f))
}

// defaultValue returns the DEFAULT expression for f, or "" for none. An
// explicit default always wins; otherwise one is synthesized only for safe
// alters of NOT NULL columns.
func defaultValue(dialect string, f *schema.Field, forSafeAlter bool) (string, error) {
	if f.Default != "" {
		return f.Default, nil
	}
	if !forSafeAlter || f.Nullable || f.IsAutoIncrement() {
		return "", nil
	}
	switch f.Type.Family() {
	case schema.FamilyInteger, schema.FamilyReal:
		return "0", nil
	case schema.FamilyText:
		if f.Type == schema.Enum && len(f.EnumValues) > 0 {
			return literal(f.EnumValues[0]), nil
		}
		return "''", nil
	case schema.FamilyTemporal:
		switch f.Type {
		case schema.Date:
			return "'1970-01-01'", nil
		case schema.Time:
			return "'00:00:00'", nil
		default:
			return "'1970-01-01 00:00:00'", nil
		}
	case schema.FamilyBlob:
		return "", &UnsupportedError{
			Dialect: dialect,
			Reason:  fmt.Sprintf("NOT NULL %s column %s has no legal default value", f.Type, f.Name),
		}
	}
	return "", &NotImplementedError{Dialect: dialect, What: "data type", Value: string(f.Type)}
}

func actionKeyword(dialect string, a schema.ForeignKeyAction) (string, error) {
	switch a {
	case schema.ActionRestrict, "":
		return "RESTRICT", nil
	case schema.ActionCascade:
		return "CASCADE", nil
	case schema.ActionSetNull:
		return "SET NULL", nil
	}
	return "", &NotImplementedError{Dialect: dialect, What: "foreign key action", Value: string(a)}
}

func foreignKeyClause(d Dialect, f *schema.Field, t *schema.Table) (string, error) {
	if !f.Index.IsForeign() {
		return "", fmt.Errorf("%s.%s is not a foreign key", t.Name, f.Name)
	}
	onUpdate, err := d.ActionKeyword(f.OnUpdate)
	if err != nil {
		return "", err
	}
	onDelete, err := d.ActionKeyword(f.OnDelete)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s (%s) ON UPDATE %s ON DELETE %s",
		d.Quote(IndexName(t, f)), d.Quote(f.Name), d.Quote(f.RefTable), d.Quote(f.RefField), onUpdate, onDelete), nil
}

func createIndex(d Dialect, t *schema.Table, f *schema.Field, name string, unique bool) string {
	kw := "INDEX"
	if unique {
		kw = "UNIQUE INDEX"
	}
	return fmt.Sprintf("CREATE %s %s ON %s (%s)", kw, d.Quote(name), d.Quote(t.Name), d.Quote(f.Name))
}

type tableLayout struct {
	// inlinePK reports fields whose definition already declares the key.
	inlinePK func(f *schema.Field) bool
	// inlineFK puts foreign keys into CREATE TABLE instead of ALTER TABLE.
	inlineFK bool
	suffix   string
}

func createTable(d Dialect, t *schema.Table, layout tableLayout) ([]string, error) {
	if len(t.Fields) == 0 {
		return nil, fmt.Errorf("table %s has no fields", t.Name)
	}

	defs := make([]string, 0, len(t.Fields)+2)
	var keyCols []*schema.Field
	inlined := 0
	for _, f := range t.Fields {
		def, err := d.FieldDefinition(f, false)
		if err != nil {
			return nil, fmt.Errorf("table %s: %w", t.Name, err)
		}
		defs = append(defs, def)
		if !f.Index.IsPrimary() {
			continue
		}
		if layout.inlinePK != nil && layout.inlinePK(f) {
			inlined++
		} else {
			keyCols = append(keyCols, f)
		}
	}
	if inlined > 0 && len(keyCols) > 0 {
		return nil, &UnsupportedError{
			Dialect: d.Name(),
			Reason:  fmt.Sprintf("table %s combines an autoincrement key with other key columns", t.Name),
		}
	}
	if len(keyCols) > 0 {
		defs = append(defs, fmt.Sprintf("PRIMARY KEY (%s)", joinQuoted(d, fieldNames(keyCols)...)))
	}

	var after []string
	for _, f := range t.Fields {
		switch f.Index {
		case schema.IndexNone, schema.IndexPrimary, "":
		case schema.IndexUnique:
			after = append(after, createIndex(d, t, f, IndexName(t, f), true))
		case schema.IndexSimple:
			after = append(after, createIndex(d, t, f, IndexName(t, f), false))
		case schema.IndexForeign, schema.IndexForeignPrimary:
			clause, err := d.ForeignKeyClause(f, t)
			if err != nil {
				return nil, fmt.Errorf("table %s: %w", t.Name, err)
			}
			if layout.inlineFK {
				defs = append(defs, clause)
			}
			after = append(after, createIndex(d, t, f, SupportIndexName(t, f), false))
			if !layout.inlineFK {
				after = append(after, fmt.Sprintf("ALTER TABLE %s ADD %s", d.Quote(t.Name), clause))
			}
		default:
			return nil, &NotImplementedError{Dialect: d.Name(), What: "index classification", Value: string(f.Index)}
		}
	}

	create := fmt.Sprintf("CREATE TABLE %s (%s)%s", d.Quote(t.Name), strings.Join(defs, ", "), layout.suffix)
	return append([]string{create}, after...), nil
}

func addField(d Dialect, f *schema.Field, t *schema.Table) ([]string, error) {
	if f.Index.IsPrimary() {
		return nil, &UnsupportedError{
			Dialect: d.Name(),
			Reason:  fmt.Sprintf("cannot add primary key column %s to existing table %s", f.Name, t.Name),
		}
	}
	def, err := d.FieldDefinition(f, true)
	if err != nil {
		return nil, err
	}
	stmts := []string{fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", d.Quote(t.Name), def)}
	idx, err := d.AddIndexStatements(f, t)
	if err != nil {
		return nil, err
	}
	return append(stmts, idx...), nil
}

func addIndex(d Dialect, f *schema.Field, t *schema.Table) ([]string, error) {
	switch f.Index {
	case schema.IndexNone, "":
		return nil, nil
	case schema.IndexPrimary, schema.IndexForeignPrimary:
		return nil, &UnsupportedError{
			Dialect: d.Name(),
			Reason:  fmt.Sprintf("cannot add primary key on existing column %s.%s", t.Name, f.Name),
		}
	case schema.IndexUnique:
		return []string{createIndex(d, t, f, IndexName(t, f), true)}, nil
	case schema.IndexSimple:
		return []string{createIndex(d, t, f, IndexName(t, f), false)}, nil
	case schema.IndexForeign:
		clause, err := d.ForeignKeyClause(f, t)
		if err != nil {
			return nil, err
		}
		return []string{
			createIndex(d, t, f, SupportIndexName(t, f), false),
			fmt.Sprintf("ALTER TABLE %s ADD %s", d.Quote(t.Name), clause),
		}, nil
	}
	return nil, &NotImplementedError{Dialect: d.Name(), What: "index classification", Value: string(f.Index)}
}

// CountStatement counts the rows of t.
func CountStatement(d Dialect, t *schema.Table) string {
	return fmt.Sprintf("SELECT COUNT(*) FROM %s", d.Quote(t.Name))
}

// SelectStatement reads every column of t in declaration order, ordered by
// the primary key when the table has one.
func SelectStatement(d Dialect, t *schema.Table) string {
	stmt := fmt.Sprintf("SELECT %s FROM %s", joinQuoted(d, fieldNames(t.Fields)...), d.Quote(t.Name))
	if pk := t.PrimaryKey(); len(pk) > 0 {
		stmt += " ORDER BY " + joinQuoted(d, fieldNames(pk)...)
	}
	return stmt
}

// InsertStatement returns a single-row INSERT for t using named parameters
// and the parameter name bound to each field, in field order.
func InsertStatement(d Dialect, t *schema.Table) (string, []string) {
	params := make([]string, len(t.Fields))
	holders := make([]string, len(t.Fields))
	for i, f := range t.Fields {
		name := f.Name
		if !plainIdent.MatchString(name) {
			name = fmt.Sprintf("p%d", i+1)
		}
		params[i] = name
		holders[i] = ":" + name
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		d.Quote(t.Name), joinQuoted(d, fieldNames(t.Fields)...), strings.Join(holders, ", ")), params
}

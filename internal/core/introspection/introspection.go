// Package introspection reads the actual schema of a live database.
package introspection

import (
	"context"
	"fmt"
	"strings"

	"github.com/satishbabariya/schemakit/internal/adapters/database"
	"github.com/satishbabariya/schemakit/internal/core/dialect"
	"github.com/satishbabariya/schemakit/internal/core/schema"
	"github.com/satishbabariya/schemakit/internal/debug"
)

// Introspector reads the schema of a connected database.
type Introspector interface {
	Introspect(ctx context.Context) (*schema.Schema, error)
}

// New returns the introspector for the session's backend.
func New(s *database.Session) (Introspector, error) {
	switch s.Dialect().Name() {
	case "sqlite":
		return &SQLiteIntrospector{session: s}, nil
	case "mysql":
		return &MySQLIntrospector{session: s}, nil
	case "postgres":
		return &PostgresIntrospector{session: s}, nil
	}
	return nil, fmt.Errorf("no introspector for dialect %s", s.Dialect().Name())
}

// Introspect is a shortcut for New followed by Introspect.
func Introspect(ctx context.Context, s *database.Session) (*schema.Schema, error) {
	i, err := New(s)
	if err != nil {
		return nil, err
	}
	return i.Introspect(ctx)
}

type rawIndex struct {
	name    string
	columns []string
	unique  bool
	primary bool
}

type rawForeignKey struct {
	name       string
	columns    []string
	refTable   string
	refColumns []string
	onUpdate   string
	onDelete   string
}

// rawTable collects what a backend reports before fields are classified.
type rawTable struct {
	table       *schema.Table
	primary     []string
	indexes     []rawIndex
	foreignKeys []rawForeignKey
}

func newRawTable(name string) *rawTable {
	return &rawTable{table: &schema.Table{Name: name}}
}

func (r *rawTable) addIndexColumn(name, column string, unique, primary bool) {
	for i := range r.indexes {
		if r.indexes[i].name == name {
			r.indexes[i].columns = append(r.indexes[i].columns, column)
			return
		}
	}
	r.indexes = append(r.indexes, rawIndex{name: name, columns: []string{column}, unique: unique, primary: primary})
}

func (r *rawTable) addForeignKeyColumn(fk rawForeignKey) {
	for i := range r.foreignKeys {
		if r.foreignKeys[i].name == fk.name {
			r.foreignKeys[i].columns = append(r.foreignKeys[i].columns, fk.columns...)
			r.foreignKeys[i].refColumns = append(r.foreignKeys[i].refColumns, fk.refColumns...)
			return
		}
	}
	r.foreignKeys = append(r.foreignKeys, fk)
}

func action(rule string) schema.ForeignKeyAction {
	a, err := schema.ParseForeignKeyAction(rule)
	if err != nil {
		debug.Debug("Treating unknown referential action as restrict", "action", rule)
		return schema.ActionRestrict
	}
	return a
}

// build classifies every field by the single-column keys and indexes that
// cover it. Multi-column indexes and foreign keys cannot be expressed and
// are skipped; the index backing a foreign key is absorbed by it.
func (r *rawTable) build() *schema.Table {
	t := r.table
	for _, f := range t.Fields {
		f.Index = schema.IndexNone
	}
	for _, name := range r.primary {
		if f := t.Field(name); f != nil {
			f.Index = schema.IndexPrimary
		}
	}
	if len(r.primary) != 1 {
		for _, f := range t.Fields {
			f.AutoIncrement = false
		}
	}

	for _, fk := range r.foreignKeys {
		if len(fk.columns) != 1 || len(fk.refColumns) != 1 {
			debug.Debug("Skipping multi-column foreign key", "table", t.Name, "constraint", fk.name)
			continue
		}
		f := t.Field(fk.columns[0])
		if f == nil || f.Index.IsForeign() {
			continue
		}
		f.RefTable = fk.refTable
		f.RefField = fk.refColumns[0]
		f.OnUpdate = action(fk.onUpdate)
		f.OnDelete = action(fk.onDelete)
		f.IndexName = fk.name
		if f.Index.IsPrimary() {
			f.Index = schema.IndexForeignPrimary
		} else {
			f.Index = schema.IndexForeign
		}
		if f.IndexName == "" {
			f.IndexName = schema.SafeIndexName(t.Name, f)
		}
	}

	for _, idx := range r.indexes {
		if idx.primary {
			continue
		}
		if len(idx.columns) != 1 {
			debug.Debug("Skipping multi-column index", "table", t.Name, "index", idx.name)
			continue
		}
		f := t.Field(idx.columns[0])
		switch {
		case f == nil, f.Index.IsPrimary():
		case f.Index.IsForeign():
			if !strings.HasSuffix(idx.name, dialect.SupportIndexSuffix) && idx.name != f.IndexName {
				debug.Debug("Ignoring extra index on foreign key column", "table", t.Name, "index", idx.name)
			}
		case f.Index != schema.IndexNone:
			debug.Debug("Ignoring second index on column", "table", t.Name, "field", f.Name, "index", idx.name)
		case idx.unique:
			f.Index = schema.IndexUnique
			f.IndexName = idx.name
		default:
			f.Index = schema.IndexSimple
			f.IndexName = idx.name
		}
	}
	return t
}

// tableSet keeps raw tables in the order the backend listed them.
type tableSet struct {
	order  []*rawTable
	byName map[string]*rawTable
}

func newTableSet() *tableSet {
	return &tableSet{byName: make(map[string]*rawTable)}
}

func (s *tableSet) add(name string) *rawTable {
	r := newRawTable(name)
	s.order = append(s.order, r)
	s.byName[name] = r
	return r
}

func (s *tableSet) get(name string) *rawTable {
	return s.byName[name]
}

func (s *tableSet) schema() *schema.Schema {
	out := &schema.Schema{}
	for _, r := range s.order {
		out.Tables = append(out.Tables, r.build())
	}
	return out
}

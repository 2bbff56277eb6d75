package differ

import (
	"errors"
	"fmt"
	"strings"

	"github.com/satishbabariya/schemakit/internal/core/dialect"
	"github.com/satishbabariya/schemakit/internal/core/schema"
	"github.com/satishbabariya/schemakit/internal/debug"
)

// Differ compares schemas for one dialect. It only reports; it never
// executes a repair.
type Differ struct {
	dialect dialect.Dialect
}

// New creates a differ generating repairs for d.
func New(d dialect.Dialect) *Differ {
	return &Differ{dialect: d}
}

// Compare reports how actual deviates from gauge.
//
// Missing tables come first in creation order, then obsolete tables in
// actual order, then per common table (gauge order) the field and index
// discrepancies in gauge field order followed by obsolete fields in actual
// order. Names are matched case-insensitively.
//
// Expected structural mismatches are results; an error is returned only
// when the dialect cannot render a canonical value at all.
func (d *Differ) Compare(gauge, actual *schema.Schema) ([]SchemaError, error) {
	var errs []SchemaError

	order, err := gauge.CreateOrder()
	var cycle *schema.CycleError
	if err != nil && !errors.As(err, &cycle) {
		return nil, err
	}
	for _, t := range order {
		if actual.TableFold(t.Name) != nil {
			continue
		}
		e, err := d.missingTable(t)
		if err != nil {
			return nil, err
		}
		errs = append(errs, e)
	}

	for _, t := range actual.Tables {
		if gauge.TableFold(t.Name) != nil {
			continue
		}
		errs = append(errs, SchemaError{
			Kind:        TableObsolete,
			Description: fmt.Sprintf("table %s is not part of the schema", t.Name),
			Table:       t.Name,
			Statements:  d.dialect.DropTableStatements(t),
		})
	}

	for _, gt := range gauge.Tables {
		at := actual.TableFold(gt.Name)
		if at == nil {
			continue
		}
		tableErrs, err := d.compareTable(gt, at)
		if err != nil {
			return nil, err
		}
		errs = append(errs, tableErrs...)
	}

	debug.Debug("Compared schemas", "dialect", d.dialect.Name(), "discrepancies", len(errs))
	return errs, nil
}

func (d *Differ) missingTable(t *schema.Table) (SchemaError, error) {
	e := SchemaError{
		Kind:        TableMissing,
		Description: fmt.Sprintf("table %s is missing", t.Name),
		Table:       t.Name,
	}
	stmts, err := d.dialect.CreateTableStatements(t)
	if err != nil {
		return e, d.unrepairable(&e, err)
	}
	e.Statements = stmts
	return e, nil
}

// unrepairable marks e unrepairable when err is an unsupported request and
// returns err otherwise.
func (d *Differ) unrepairable(e *SchemaError, err error) error {
	if !errors.Is(err, dialect.ErrUnsupported) {
		return fmt.Errorf("%s: %w", e.Description, err)
	}
	e.Unrepairable = true
	e.Statements = nil
	var uerr *dialect.UnsupportedError
	if errors.As(err, &uerr) {
		e.Description += ": " + uerr.Reason
	}
	return nil
}

func (d *Differ) compareTable(gauge, actual *schema.Table) ([]SchemaError, error) {
	var errs []SchemaError
	for _, gf := range gauge.Fields {
		af := actual.FieldFold(gf.Name)
		if af == nil {
			e, err := d.missingField(gf, gauge)
			if err != nil {
				return nil, err
			}
			errs = append(errs, e)
			continue
		}
		if e, ok, err := d.compareDefinition(af, gf, gauge); err != nil {
			return nil, err
		} else if ok {
			errs = append(errs, e)
		}
		if e, ok, err := d.compareIndex(af, gf, actual, gauge); err != nil {
			return nil, err
		} else if ok {
			errs = append(errs, e)
		}
	}
	for _, af := range actual.Fields {
		if gauge.FieldFold(af.Name) != nil {
			continue
		}
		errs = append(errs, SchemaError{
			Kind:         FieldObsolete,
			Description:  fmt.Sprintf("field %s.%s is not part of the schema and must be dropped manually", actual.Name, af.Name),
			Table:        gauge.Name,
			Field:        af.Name,
			Unrepairable: true,
		})
	}
	return errs, nil
}

func (d *Differ) missingField(f *schema.Field, t *schema.Table) (SchemaError, error) {
	e := SchemaError{
		Kind:        FieldMissing,
		Description: fmt.Sprintf("field %s.%s is missing", t.Name, f.Name),
		Table:       t.Name,
		Field:       f.Name,
	}
	if f.Type.IsBlob() && !f.Nullable {
		e.Description += fmt.Sprintf(": NOT NULL %s column has no legal default", f.Type)
		e.Unrepairable = true
		return e, nil
	}
	stmts, err := d.dialect.AddFieldStatements(f, t)
	if err != nil {
		return e, d.unrepairable(&e, err)
	}
	e.Statements = stmts
	return e, nil
}

// nullable treats key columns as NOT NULL whatever they declare.
func nullable(f *schema.Field) bool {
	return f.Nullable && !f.Index.IsPrimary()
}

func sameDefinition(current, gauge *schema.Field) bool {
	if current.Type.Family() != gauge.Type.Family() {
		return false
	}
	if nullable(current) != nullable(gauge) {
		return false
	}
	if current.Index.IsPrimary() != gauge.Index.IsPrimary() {
		return false
	}
	if current.Type.IsInteger() && gauge.Type.IsInteger() && current.IsAutoIncrement() != gauge.IsAutoIncrement() {
		return false
	}
	return true
}

func (d *Differ) compareDefinition(current, gauge *schema.Field, t *schema.Table) (SchemaError, bool, error) {
	if sameDefinition(current, gauge) {
		return SchemaError{}, false, nil
	}
	e := SchemaError{
		Kind:        FieldDefinitionObsolete,
		Description: fmt.Sprintf("field %s.%s is %s, expected %s", t.Name, gauge.Name, current.Describe(), gauge.Describe()),
		Table:       t.Name,
		Field:       gauge.Name,
	}
	keyChange := current.Index.IsPrimary() != gauge.Index.IsPrimary() || current.IsAutoIncrement() != gauge.IsAutoIncrement()
	if !d.dialect.SupportsAlterField() || keyChange {
		e.Unrepairable = true
		return e, true, nil
	}
	stmts, err := d.dialect.AlterFieldStatements(current, gauge, t)
	if err != nil {
		return e, true, d.unrepairable(&e, err)
	}
	e.Statements = stmts
	return e, true, nil
}

func normalizeAction(a schema.ForeignKeyAction) schema.ForeignKeyAction {
	if a == "" {
		return schema.ActionRestrict
	}
	return a
}

func sameIndex(current, gauge *schema.Field) bool {
	ck, gk := current.Index.WithoutPrimary(), gauge.Index.WithoutPrimary()
	if ck != gk {
		return false
	}
	if ck != schema.IndexForeign {
		return true
	}
	return strings.EqualFold(current.RefTable, gauge.RefTable) &&
		strings.EqualFold(current.RefField, gauge.RefField) &&
		normalizeAction(current.OnUpdate) == normalizeAction(gauge.OnUpdate) &&
		normalizeAction(current.OnDelete) == normalizeAction(gauge.OnDelete)
}

func describeIndex(f *schema.Field) string {
	k := f.Index.WithoutPrimary()
	if k != schema.IndexForeign {
		return string(k)
	}
	return fmt.Sprintf("foreign key to %s.%s (on update %s, on delete %s)",
		f.RefTable, f.RefField, normalizeAction(f.OnUpdate), normalizeAction(f.OnDelete))
}

// compareIndex applies the index decision table. Simple and unique indexes
// are added, dropped or toggled. Anything involving a foreign key or a
// change of primary key is left to the operator.
func (d *Differ) compareIndex(current, gauge *schema.Field, actualTable, gaugeTable *schema.Table) (SchemaError, bool, error) {
	if sameIndex(current, gauge) {
		return SchemaError{}, false, nil
	}
	ck, gk := current.Index.WithoutPrimary(), gauge.Index.WithoutPrimary()

	e := SchemaError{
		Kind:        IndexObsolete,
		Description: fmt.Sprintf("index of %s.%s is %s, expected %s", gaugeTable.Name, gauge.Name, describeIndex(current), describeIndex(gauge)),
		Table:       gaugeTable.Name,
		Field:       gauge.Name,
	}
	if ck == schema.IndexNone {
		e.Kind = IndexMissing
	}
	if ck == schema.IndexForeign || gk == schema.IndexForeign ||
		current.Index.IsPrimary() != gauge.Index.IsPrimary() {
		e.Unrepairable = true
		return e, true, nil
	}

	// Only the non-primary part is rendered: the key itself is a column
	// definition concern.
	cur := *current
	cur.Index = ck
	want := *gauge
	want.Index = gk

	drop, err := d.dialect.DropIndexStatements(&cur, actualTable)
	if err != nil {
		return e, true, d.unrepairable(&e, err)
	}
	add, err := d.dialect.AddIndexStatements(&want, gaugeTable)
	if err != nil {
		return e, true, d.unrepairable(&e, err)
	}
	e.Statements = append(drop, add...)
	return e, true, nil
}

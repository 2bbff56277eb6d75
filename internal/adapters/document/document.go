// Package document reads and writes XML schema documents.
//
// A document has a <database> root holding <table> elements, each holding
// <field> elements:
//
//	<database description="Shop" charset="utf8mb4" formatVersion="1.0">
//	  <table name="orders">
//	    <field name="id" type="int" index="primary" autoincrement="true"/>
//	    <field name="total" type="decimal(10,2)"/>
//	    <field name="customer_id" type="int" index="foreign" references="customers.id" onDelete="cascade"/>
//	  </table>
//	</database>
package document

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/hashicorp/go-version"

	"github.com/satishbabariya/schemakit/internal/core/schema"
)

// FormatVersion is written into every document.
const FormatVersion = "1.0"

var supported = version.MustConstraints(version.NewConstraint(">= 1.0, < 2.0"))

var (
	// ErrNoDatabase is returned when a document has no <database> root.
	ErrNoDatabase = errors.New("document has no database element")

	// ErrUnsupportedFormat is returned for a formatVersion outside the
	// supported range.
	ErrUnsupportedFormat = errors.New("unsupported document format version")
)

// AttributeError points at the attribute that could not be read.
type AttributeError struct {
	Table     string
	Field     string
	Attribute string
	Value     string
	Err       error
}

func (e *AttributeError) Error() string {
	where := e.Table
	if e.Field != "" {
		where += "." + e.Field
	}
	return fmt.Sprintf("%s: invalid %s %q: %v", where, e.Attribute, e.Value, e.Err)
}

func (e *AttributeError) Unwrap() error {
	return e.Err
}

// Parse reads one document.
func Parse(r io.Reader) (*schema.Schema, error) {
	doc, err := xmlquery.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}
	root := xmlquery.FindOne(doc, "/database")
	if root == nil {
		return nil, ErrNoDatabase
	}
	if err := checkVersion(root.SelectAttr("formatVersion")); err != nil {
		return nil, err
	}

	s := &schema.Schema{
		Description:   root.SelectAttr("description"),
		Charset:       root.SelectAttr("charset"),
		ExtensionGuid: strings.TrimSpace(root.SelectAttr("extension")),
	}
	for _, tn := range xmlquery.Find(root, "table") {
		t := &schema.Table{
			Name:        tn.SelectAttr("name"),
			Description: tn.SelectAttr("description"),
			Charset:     tn.SelectAttr("charset"),
			Engine:      tn.SelectAttr("engine"),
		}
		for _, fn := range xmlquery.Find(tn, "field") {
			f, err := parseField(t.Name, fn)
			if err != nil {
				return nil, err
			}
			t.Fields = append(t.Fields, f)
		}
		s.Tables = append(s.Tables, t)
	}
	return s, nil
}

// ParseBytes is Parse for an in-memory document.
func ParseBytes(data []byte) (*schema.Schema, error) {
	return Parse(bytes.NewReader(data))
}

func checkVersion(s string) error {
	if s == "" {
		s = FormatVersion
	}
	v, err := version.NewVersion(s)
	if err != nil {
		return fmt.Errorf("%w: %q: %v", ErrUnsupportedFormat, s, err)
	}
	if !supported.Check(v) {
		return fmt.Errorf("%w: %s (supported: %s)", ErrUnsupportedFormat, v, supported)
	}
	return nil
}

func parseField(table string, n *xmlquery.Node) (*schema.Field, error) {
	f := &schema.Field{
		Name:      n.SelectAttr("name"),
		Collation: n.SelectAttr("collation"),
		Default:   n.SelectAttr("default"),
		IndexName: n.SelectAttr("indexName"),
	}
	fail := func(attr, value string, err error) error {
		return &AttributeError{Table: table, Field: f.Name, Attribute: attr, Value: value, Err: err}
	}

	typ := n.SelectAttr("type")
	if err := schema.ApplyTypeExpr(f, typ); err != nil {
		return nil, fail("type", typ, err)
	}
	if v := n.SelectAttr("length"); v != "" {
		l, err := strconv.Atoi(v)
		if err != nil {
			return nil, fail("length", v, err)
		}
		f.Length = l
	}
	if v := n.SelectAttr("scale"); v != "" {
		sc, err := strconv.Atoi(v)
		if err != nil {
			return nil, fail("scale", v, err)
		}
		f.Scale = sc
	}

	for attr, dst := range map[string]*bool{
		"nullable":      &f.Nullable,
		"autoincrement": &f.AutoIncrement,
		"unsigned":      &f.Unsigned,
	} {
		v := n.SelectAttr(attr)
		if v == "" {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fail(attr, v, err)
		}
		*dst = *dst || b
	}

	idx := n.SelectAttr("index")
	kind, err := schema.ParseIndexKind(idx)
	if err != nil {
		return nil, fail("index", idx, err)
	}
	f.Index = kind

	for _, vn := range xmlquery.Find(n, "value") {
		f.EnumValues = append(f.EnumValues, vn.InnerText())
	}

	if ref := n.SelectAttr("references"); ref != "" {
		table, field, ok := strings.Cut(ref, ".")
		if !ok || table == "" || field == "" {
			return nil, fail("references", ref, errors.New("expected table.field"))
		}
		f.RefTable, f.RefField = table, field
	}
	for attr, dst := range map[string]*schema.ForeignKeyAction{
		"onUpdate": &f.OnUpdate,
		"onDelete": &f.OnDelete,
	} {
		v := n.SelectAttr(attr)
		if v == "" && !f.Index.IsForeign() {
			continue
		}
		a, err := schema.ParseForeignKeyAction(v)
		if err != nil {
			return nil, fail(attr, v, err)
		}
		*dst = a
	}
	return f, nil
}

package document

import (
	"fmt"
	"strconv"

	"github.com/antchfx/xmlquery"

	"github.com/satishbabariya/schemakit/internal/core/schema"
)

const header = `<?xml version="1.0" encoding="UTF-8"?>` + "\n"

// Write serializes s. Attributes at their default value are omitted, so
// Parse(Write(s)) yields s again.
func Write(s *schema.Schema) ([]byte, error) {
	root := element("database")
	attr(root, "description", s.Description)
	attr(root, "charset", s.Charset)
	attr(root, "extension", s.ExtensionGuid)
	attr(root, "formatVersion", FormatVersion)

	for _, t := range s.Tables {
		tn := element("table")
		xmlquery.AddAttr(tn, "name", t.Name)
		attr(tn, "description", t.Description)
		attr(tn, "charset", t.Charset)
		attr(tn, "engine", t.Engine)
		for _, f := range t.Fields {
			fn, err := writeField(f)
			if err != nil {
				return nil, fmt.Errorf("table %s: %w", t.Name, err)
			}
			xmlquery.AddChild(tn, fn)
		}
		xmlquery.AddChild(root, tn)
	}
	return []byte(header + root.OutputXML(true) + "\n"), nil
}

func writeField(f *schema.Field) (*xmlquery.Node, error) {
	if _, err := schema.ParseDataType(string(f.Type)); err != nil {
		return nil, fmt.Errorf("field %s: %w", f.Name, err)
	}
	n := element("field")
	xmlquery.AddAttr(n, "name", f.Name)
	xmlquery.AddAttr(n, "type", TypeExpr(f))
	flag(n, "nullable", f.Nullable)
	flag(n, "autoincrement", f.AutoIncrement)
	attr(n, "collation", f.Collation)
	attr(n, "default", f.Default)
	if f.Index != "" && f.Index != schema.IndexNone {
		xmlquery.AddAttr(n, "index", string(f.Index))
	}
	attr(n, "indexName", f.IndexName)
	if f.Index.IsForeign() {
		xmlquery.AddAttr(n, "references", f.RefTable+"."+f.RefField)
		if f.OnUpdate != "" && f.OnUpdate != schema.ActionRestrict {
			xmlquery.AddAttr(n, "onUpdate", string(f.OnUpdate))
		}
		if f.OnDelete != "" && f.OnDelete != schema.ActionRestrict {
			xmlquery.AddAttr(n, "onDelete", string(f.OnDelete))
		}
	}
	for _, v := range f.EnumValues {
		vn := element("value")
		xmlquery.AddChild(vn, &xmlquery.Node{Type: xmlquery.TextNode, Data: v})
		xmlquery.AddChild(n, vn)
	}
	return n, nil
}

// TypeExpr renders the compact type expression of f, such as varchar(100),
// decimal(10,2) or int unsigned. Enum values are not part of it.
func TypeExpr(f *schema.Field) string {
	s := string(f.Type)
	switch {
	case f.Type == schema.Enum:
	case f.Length > 0 && f.Scale > 0:
		s += "(" + strconv.Itoa(f.Length) + "," + strconv.Itoa(f.Scale) + ")"
	case f.Length > 0:
		s += "(" + strconv.Itoa(f.Length) + ")"
	}
	if f.Unsigned {
		s += " unsigned"
	}
	return s
}

func element(name string) *xmlquery.Node {
	return &xmlquery.Node{Type: xmlquery.ElementNode, Data: name}
}

func attr(n *xmlquery.Node, key, value string) {
	if value != "" {
		xmlquery.AddAttr(n, key, value)
	}
}

func flag(n *xmlquery.Node, key string, on bool) {
	if on {
		xmlquery.AddAttr(n, key, "true")
	}
}

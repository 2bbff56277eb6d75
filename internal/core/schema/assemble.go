package schema

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/satishbabariya/schemakit/internal/debug"
)

// Assemble merges one base document and any number of extension documents
// into a single schema.
//
// Exactly one document must have an empty extension identifier. Every other
// document must carry a UUID. When filter is non-empty only the listed
// extensions contribute tables; the base schema is always included. Tables in
// the result are copies tagged with the identifier of their document.
func Assemble(docs []*Schema, filter ...uuid.UUID) (*Schema, error) {
	var base *Schema
	for _, doc := range docs {
		if doc.ExtensionGuid != "" {
			continue
		}
		if base != nil {
			return nil, ErrMultipleBaseSchemas
		}
		base = doc
	}
	if base == nil {
		return nil, ErrNoBaseSchema
	}

	wanted := make(map[uuid.UUID]bool, len(filter))
	for _, id := range filter {
		wanted[id] = true
	}

	out := &Schema{
		Description: base.Description,
		Charset:     base.Charset,
	}
	owner := make(map[string]string)
	add := func(doc *Schema, source string) error {
		for _, t := range doc.Tables {
			if prev, ok := owner[t.Name]; ok {
				return &TableClashError{Table: t.Name, Existing: prev, Incoming: source}
			}
			owner[t.Name] = source
			nt := t.Clone()
			nt.ExtensionGuid = doc.ExtensionGuid
			out.Tables = append(out.Tables, nt)
		}
		return nil
	}

	if err := add(base, "base schema"); err != nil {
		return nil, err
	}
	for _, doc := range docs {
		if doc == base {
			continue
		}
		id, err := uuid.Parse(doc.ExtensionGuid)
		if err != nil {
			return nil, &InvalidExtensionError{Extension: doc.ExtensionGuid, Cause: err}
		}
		if len(wanted) > 0 && !wanted[id] {
			debug.Debug("Skipping extension schema", "extension", doc.ExtensionGuid)
			continue
		}
		if err := add(doc, fmt.Sprintf("extension %s", doc.ExtensionGuid)); err != nil {
			return nil, err
		}
	}

	debug.Debug("Assembled schema", "documents", len(docs), "tables", len(out.Tables))
	return out, nil
}

// TablesOf returns the tables contributed by the given extension; an empty
// identifier selects the base schema's tables.
func (s *Schema) TablesOf(extension string) []*Table {
	var tables []*Table
	for _, t := range s.Tables {
		if t.ExtensionGuid == extension {
			tables = append(tables, t)
		}
	}
	return tables
}

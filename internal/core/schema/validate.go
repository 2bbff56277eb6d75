package schema

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/google/uuid"
)

// Validate checks the structural invariants of the schema and reports every
// violation at once.
func (s *Schema) Validate() error {
	var problems []string
	addf := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if s.ExtensionGuid != "" {
		if _, err := uuid.Parse(s.ExtensionGuid); err != nil {
			addf("extension identifier %q is not a valid UUID", s.ExtensionGuid)
		}
	}
	if len(s.Tables) == 0 {
		addf("schema has no tables")
	}

	tables := make(map[string]*Table, len(s.Tables))
	for _, t := range s.Tables {
		switch {
		case t.Name == "":
			addf("table with empty name")
			continue
		case strings.IndexFunc(t.Name, unicode.IsSpace) >= 0:
			addf("table name %q contains whitespace", t.Name)
		}
		if _, dup := tables[t.Name]; dup {
			addf("duplicate table %q", t.Name)
		}
		tables[t.Name] = t
	}

	for _, t := range s.Tables {
		if t.Name == "" {
			continue
		}
		if len(t.Fields) == 0 {
			addf("table %q has no fields", t.Name)
		}
		seen := make(map[string]bool, len(t.Fields))
		for _, f := range t.Fields {
			if f.Name == "" || strings.IndexFunc(f.Name, unicode.IsSpace) >= 0 {
				addf("table %q: invalid field name %q", t.Name, f.Name)
				continue
			}
			if seen[f.Name] {
				addf("table %q: duplicate field %q", t.Name, f.Name)
			}
			seen[f.Name] = true

			if f.Type.Family() == FamilyUnknown {
				addf("%s.%s: unknown data type %q", t.Name, f.Name, f.Type)
			}
			if f.Type == Enum && len(f.EnumValues) == 0 {
				addf("%s.%s: enum field has no values", t.Name, f.Name)
			}
			if f.Index.IsForeign() {
				ref := tables[f.RefTable]
				switch {
				case f.RefTable == "" || f.RefField == "":
					addf("%s.%s: foreign key without referenced table and field", t.Name, f.Name)
				case ref == nil:
					addf("%s.%s: references unknown table %q", t.Name, f.Name, f.RefTable)
				case ref.Field(f.RefField) == nil:
					addf("%s.%s: references unknown field %s.%s", t.Name, f.Name, f.RefTable, f.RefField)
				}
			}
		}
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

package schema

import "strconv"

// AllIndexNamesUnique reports whether every indexed field in the schema has a
// non-empty index name that no other index shares.
func (s *Schema) AllIndexNamesUnique() bool {
	seen := make(map[string]bool)
	for _, t := range s.Tables {
		for _, f := range t.Fields {
			if !needsIndexName(f) {
				continue
			}
			if f.IndexName == "" || seen[f.IndexName] {
				return false
			}
			seen[f.IndexName] = true
		}
	}
	return true
}

// AssignSafeIndexNames renames every index to {table}_{field}_fk for foreign
// keys and {table}_{field}_idx otherwise. Underscores in names can make two
// such names coincide (a_b.c and a.b_c); later ones get a numeric suffix.
func (s *Schema) AssignSafeIndexNames() {
	used := make(map[string]bool)
	for _, t := range s.Tables {
		for _, f := range t.Fields {
			if !needsIndexName(f) {
				continue
			}
			name := SafeIndexName(t.Name, f)
			for n := 2; used[name]; n++ {
				name = SafeIndexName(t.Name, f) + strconv.Itoa(n)
			}
			used[name] = true
			f.IndexName = name
		}
	}
}

// SafeIndexName returns the base name AssignSafeIndexNames gives f.
func SafeIndexName(table string, f *Field) string {
	if f.Index.IsForeign() {
		return table + "_" + f.Name + "_fk"
	}
	return table + "_" + f.Name + "_idx"
}

// Primary keys are named by the table definition itself.
func needsIndexName(f *Field) bool {
	switch f.Index {
	case IndexUnique, IndexSimple, IndexForeign, IndexForeignPrimary:
		return true
	}
	return false
}

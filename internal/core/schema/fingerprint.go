package schema

import (
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/zeebo/blake3"
)

// Fingerprint returns a hex blake3 digest of the schema's tables, fields and
// extension provenance. Informational hints (descriptions, charsets,
// engines) are not part of it.
func (s *Schema) Fingerprint() string {
	h := blake3.New()
	for _, t := range s.Tables {
		writeTable(h, t)
	}
	return hex.EncodeToString(h.Sum(nil))
}

func writeTable(w io.Writer, t *Table) {
	fmt.Fprintf(w, "table %s ext=%s\n", t.Name, t.ExtensionGuid)
	for _, f := range t.Fields {
		fmt.Fprintf(w, "  field %s %s len=%d scale=%d null=%t ai=%t unsigned=%t default=%q collation=%q index=%s/%s",
			f.Name, f.Type, f.Length, f.Scale, f.Nullable, f.AutoIncrement, f.Unsigned, f.Default, f.Collation, f.Index, f.IndexName)
		if f.Index.IsForeign() {
			fmt.Fprintf(w, " ref=%s.%s upd=%s del=%s", f.RefTable, f.RefField, f.OnUpdate, f.OnDelete)
		}
		if len(f.EnumValues) > 0 {
			fmt.Fprintf(w, " values=%s", strings.Join(f.EnumValues, ","))
		}
		io.WriteString(w, "\n")
	}
}

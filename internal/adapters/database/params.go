package database

import (
	"fmt"
	"strings"

	"github.com/satishbabariya/schemakit/internal/core/dialect"
)

// Params binds :name placeholders in a statement.
type Params map[string]any

func isNameStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isNameChar(c byte) bool {
	return isNameStart(c) || (c >= '0' && c <= '9')
}

// bind rewrites :name placeholders into the dialect's bind variables and
// returns the positional arguments. Quoted text and :: casts are left
// untouched. A name used twice binds the same value twice, or reuses the
// same $n where the dialect numbers its variables.
func bind(d dialect.Dialect, stmt string, params Params) (string, []any, error) {
	if !strings.Contains(stmt, ":") {
		return stmt, nil, nil
	}
	numbered := d.BindVar(1) != d.BindVar(2)

	var b strings.Builder
	var args []any
	positions := make(map[string]int)
	var quote byte

	for i := 0; i < len(stmt); i++ {
		c := stmt[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
			b.WriteByte(c)
		case c == '\'' || c == '"' || c == '`':
			quote = c
			b.WriteByte(c)
		case c == ':' && i+1 < len(stmt) && stmt[i+1] == ':':
			b.WriteString("::")
			i++
		case c == ':' && i+1 < len(stmt) && isNameStart(stmt[i+1]):
			j := i + 1
			for j < len(stmt) && isNameChar(stmt[j]) {
				j++
			}
			name := stmt[i+1 : j]
			v, ok := params[name]
			if !ok {
				return "", nil, fmt.Errorf("%w: %q", ErrMissingParam, name)
			}
			if n, seen := positions[name]; seen && numbered {
				b.WriteString(d.BindVar(n))
			} else {
				args = append(args, v)
				positions[name] = len(args)
				b.WriteString(d.BindVar(len(args)))
			}
			i = j - 1
		default:
			b.WriteByte(c)
		}
	}
	return b.String(), args, nil
}
